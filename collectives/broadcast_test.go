package collectives_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroadcast_RoundTrip(t *testing.T) {
	world := newWorld(3)

	require.NoError(t, world[0].BroadcastSend("s1", []byte{0xAA}, time.Second))

	for _, rank := range []int{1, 2} {
		got, err := world[rank].BroadcastRecv("s1", time.Second)
		require.NoError(t, err)
		require.Equal(t, []byte{0xAA}, got)
	}
}

func TestBroadcast_EmptyPayloadRoundTrips(t *testing.T) {
	world := newWorld(2)

	require.NoError(t, world[0].BroadcastSend("empty", []byte{}, time.Second))
	got, err := world[1].BroadcastRecv("empty", time.Second)
	require.NoError(t, err)
	require.Empty(t, got)
}
