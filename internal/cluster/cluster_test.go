package cluster_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"rendezvous-collectives/internal/api"
	"rendezvous-collectives/internal/cluster"
	"rendezvous-collectives/internal/metrics"
	"rendezvous-collectives/internal/store"
)

// singleNodeReplicator builds a one-node "cluster" (N=W=R=1) so the quorum
// and owner-routing code paths can be exercised without a network.
func singleNodeReplicator(t *testing.T) *cluster.Replicator {
	t.Helper()
	s, err := store.New(t.TempDir(), "solo")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	membership := cluster.NewMembership([]cluster.Node{{ID: "solo", Address: "127.0.0.1:0"}}, 10)
	return cluster.NewReplicator("solo", membership, s, 1, 1, 1)
}

func TestReplicateWriteThenCoordinateRead(t *testing.T) {
	rep := singleNodeReplicator(t)

	val, err := rep.ReplicateWrite("k", "v1", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", val.Data)

	got, err := rep.CoordinateRead("k")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "v1", got.Data)
}

func TestCoordinateReadMissingKeyReturnsNil(t *testing.T) {
	rep := singleNodeReplicator(t)
	got, err := rep.CoordinateRead("missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteReplicatedHidesKey(t *testing.T) {
	rep := singleNodeReplicator(t)
	_, err := rep.ReplicateWrite("k", "v1", nil)
	require.NoError(t, err)

	require.NoError(t, rep.DeleteReplicated("k"))

	got, err := rep.CoordinateRead("k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCoordinateAddAccumulatesOnOwner(t *testing.T) {
	rep := singleNodeReplicator(t)

	total, err := rep.CoordinateAdd("c", 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	total, err = rep.CoordinateAdd("c", 4)
	require.NoError(t, err)
	require.Equal(t, int64(7), total)
}

func TestCoordinateCheckAndWait(t *testing.T) {
	rep := singleNodeReplicator(t)

	ok, err := rep.CoordinateCheck([]string{"a", "b"})
	require.NoError(t, err)
	require.False(t, ok)

	_, err = rep.ReplicateWrite("a", "1", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rep.CoordinateWait(ctx, []string{"a", "b"}) }()

	time.Sleep(20 * time.Millisecond)
	_, err = rep.ReplicateWrite("b", "2", nil)
	require.NoError(t, err)

	require.NoError(t, <-done)
}

func TestCoordinateMultiGetAndMultiSet(t *testing.T) {
	rep := singleNodeReplicator(t)

	keys := []string{"x", "y", "z"}
	values := [][]byte{{1}, {2}, {3}}

	require.NoError(t, rep.CoordinateMultiSet(keys, values))
	got, err := rep.CoordinateMultiGet(keys)
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestShardKeyGroupsPrefixedKeys(t *testing.T) {
	require.Equal(t, "barrier-a", cluster.ShardKey("barrier-a"))
	require.Equal(t, "barrier-a", cluster.ShardKey("barrier-a/0"))
	require.Equal(t, "barrier-a", cluster.ShardKey("barrier-a/num_members"))
}

// TestCoordinateReadFetchesFromPeerOverHTTP stands up a real second node
// behind an httptest.Server and forces CoordinateRead to pull the value
// over the wire via fetchFromPeer (internal/cluster/replicator.go) rather
// than from the local store. The key is slash-bearing, matching the shape
// every collectives key has (collectives/keylayout.go), which is exactly
// what breaks if fetchFromPeer ever regresses to splicing the key into a
// ":key" path segment instead of the query string.
func TestCoordinateReadFetchesFromPeerOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	peerStore, err := store.New(t.TempDir(), "peer")
	require.NoError(t, err)
	t.Cleanup(func() { _ = peerStore.Close() })

	peerMembership := cluster.NewMembership([]cluster.Node{
		{ID: "peer", Address: "127.0.0.1:0"},
		{ID: "self", Address: "127.0.0.1:0"},
	}, 10)
	peerReplicator := cluster.NewReplicator("peer", peerMembership, peerStore, 1, 1, 1)
	peerReg := metrics.NewRegistry(prometheus.NewRegistry())

	peerRouter := gin.New()
	api.NewHandler(peerStore, peerReplicator, peerMembership, peerReg, "peer").Register(peerRouter)
	server := httptest.NewServer(peerRouter)
	t.Cleanup(server.Close)
	peerAddr := strings.TrimPrefix(server.URL, "http://")

	key := "s9/1"
	_, err = peerStore.Put(key, "from-peer", nil)
	require.NoError(t, err)

	selfStore, err := store.New(t.TempDir(), "self")
	require.NoError(t, err)
	t.Cleanup(func() { _ = selfStore.Close() })

	selfMembership := cluster.NewMembership([]cluster.Node{
		{ID: "peer", Address: peerAddr},
		{ID: "self", Address: "127.0.0.1:0"},
	}, 10)
	selfReplicator := cluster.NewReplicator("self", selfMembership, selfStore, 2, 1, 2)

	val, err := selfReplicator.CoordinateRead(key)
	require.NoError(t, err)
	require.NotNil(t, val)
	require.Equal(t, "from-peer", val.Data)
}

func TestRingGetNodesReturnsDistinctPhysicalNodes(t *testing.T) {
	ring := cluster.NewRing(50)
	ring.AddNode("n1")
	ring.AddNode("n2")
	ring.AddNode("n3")

	nodes := ring.GetNodes("some-key", 3)
	require.Len(t, nodes, 3)
	require.ElementsMatch(t, []string{"n1", "n2", "n3"}, nodes)
}
