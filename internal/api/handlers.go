// Package api wires up the Gin HTTP router with all handler functions.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rendezvous-collectives/internal/cluster"
	"rendezvous-collectives/internal/metrics"
	"rendezvous-collectives/internal/store"
)

// defaultBlockingTimeout bounds a blocking GET/wait call that didn't specify
// its own timeout query parameter.
const defaultBlockingTimeout = 5 * time.Minute

// Handler holds all dependencies injected from main.
type Handler struct {
	store      *store.Store
	replicator *cluster.Replicator
	membership *cluster.Membership
	metrics    *metrics.Registry
	selfID     string
}

// NewHandler creates a Handler.
func NewHandler(s *store.Store, r *cluster.Replicator, m *cluster.Membership, reg *metrics.Registry, selfID string) *Handler {
	return &Handler{store: s, replicator: r, membership: m, metrics: reg, selfID: selfID}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	// The rendezvous key-value surface — this is what rendezvousclient.Client
	// and, transitively, the collectives package talk to.
	kv := r.Group("/store")
	kv.POST("/set", h.Set)
	kv.GET("/get", h.Get)
	kv.POST("/add", h.Add)
	kv.POST("/check", h.Check)
	kv.POST("/wait", h.Wait)
	kv.POST("/multiget", h.MultiGet)
	kv.POST("/multiset", h.MultiSet)

	// Cluster management.
	clusterGroup := r.Group("/cluster")
	clusterGroup.POST("/join", h.Join)
	clusterGroup.POST("/leave", h.Leave)
	clusterGroup.GET("/nodes", h.ListNodes)

	// Internal endpoints used only by peer nodes.
	internal := r.Group("/internal")
	internal.POST("/replicate", h.InternalReplicate)
	internal.GET("/fetch", h.InternalFetch)
	internal.POST("/add", h.InternalAdd)
}

// ─── Store handlers ───────────────────────────────────────────────────────────

// Set handles POST /store/set
// Body: {"key": "<string>", "value": "<base64 bytes>"}
func (h *Handler) Set(c *gin.Context) {
	var body struct {
		Key   string `json:"key" binding:"required"`
		Value []byte `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	val, err := h.replicator.ReplicateWrite(body.Key, string(body.Value), nil)
	h.metrics.ObserveOp("set", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": body.Key, "value": []byte(val.Data)})
}

// Get handles GET /store/get?key=<string>&blocking=true&timeout=5s
// A blocking GET waits for the key to appear (or for the timeout to elapse)
// instead of immediately returning 404 — this is what backs the broadcast
// and gather receive paths. key travels in the query string, not a :key
// path segment, because collectives keys routinely contain '/'
// (collectives/keylayout.go) and Gin's router matches on the already
// percent-decoded path, where a literal '/' can't be confined to one
// segment.
func (h *Handler) Get(c *gin.Context) {
	key := c.Query("key")
	timeout := parseTimeout(c, defaultBlockingTimeout)

	var val *store.Value
	var err error
	if c.Query("blocking") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		if waitErr := h.replicator.CoordinateWait(ctx, []string{key}); waitErr != nil {
			h.metrics.ObserveOp("get", waitErr)
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": waitErr.Error()})
			return
		}
		val, err = h.replicator.CoordinateRead(key)
	} else {
		val, err = h.replicator.CoordinateRead(key)
	}

	h.metrics.ObserveOp("get", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if val == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":        key,
		"value":      []byte(val.Data),
		"clock":      val.Clock,
		"updated_at": val.UpdatedAt,
	})
}

// Add handles POST /store/add
// Body: {"key": "<string>", "delta": <int64>}
func (h *Handler) Add(c *gin.Context) {
	var body struct {
		Key   string `json:"key" binding:"required"`
		Delta int64  `json:"delta"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := h.replicator.CoordinateAdd(body.Key, body.Delta)
	h.metrics.ObserveOp("add", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": body.Key, "total": total})
}

// Check handles POST /store/check
// Body: {"keys": ["<string>", ...]}
func (h *Handler) Check(c *gin.Context) {
	var body struct {
		Keys []string `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.replicator.CoordinateCheck(body.Keys)
	h.metrics.ObserveOp("check", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

// Wait handles POST /store/wait?timeout=5s
// Body: {"keys": ["<string>", ...]}
func (h *Handler) Wait(c *gin.Context) {
	var body struct {
		Keys []string `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeout := parseTimeout(c, defaultBlockingTimeout)
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	err := h.replicator.CoordinateWait(ctx, body.Keys)
	h.metrics.ObserveOp("wait", err)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// MultiGet handles POST /store/multiget
// Body: {"keys": ["<string>", ...]}
func (h *Handler) MultiGet(c *gin.Context) {
	var body struct {
		Keys []string `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	values, err := h.replicator.CoordinateMultiGet(body.Keys)
	h.metrics.ObserveOp("multiget", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// MultiSet handles POST /store/multiset
// Body: {"keys": ["<string>", ...], "values": ["<base64 bytes>", ...]}
func (h *Handler) MultiSet(c *gin.Context) {
	var body struct {
		Keys   []string `json:"keys" binding:"required"`
		Values [][]byte `json:"values" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.replicator.CoordinateMultiSet(body.Keys, body.Values)
	h.metrics.ObserveOp("multiset", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseTimeout(c *gin.Context, fallback time.Duration) time.Duration {
	raw := c.Query("timeout")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ─── Cluster management handlers ─────────────────────────────────────────────

// Join handles POST /cluster/join
// Body: {"id": "<nodeID>", "address": "<host:port>"}
func (h *Handler) Join(c *gin.Context) {
	var node cluster.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.membership.Join(node); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": node.ID})
}

// Leave handles POST /cluster/leave
// Body: {"id": "<nodeID>"}
func (h *Handler) Leave(c *gin.Context) {
	var body struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.membership.Leave(body.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": body.ID})
}

// ListNodes handles GET /cluster/nodes
func (h *Handler) ListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.membership.All()})
}

// ─── Internal (peer-to-peer) handlers ────────────────────────────────────────

// InternalReplicate handles POST /internal/replicate
// Accepts a value from a peer and applies it using vector-clock conflict resolution.
func (h *Handler) InternalReplicate(c *gin.Context) {
	var req cluster.ReplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.store.ApplyRemote(req.Key, req.Value)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// InternalFetch handles GET /internal/fetch?key=<string>
// Returns the raw value (including tombstones) so peers can do read repair.
// key travels in the query string for the same reason Handler.Get's does:
// collectives keys contain '/' and Gin's router can't confine that to a
// single ":key" path segment.
func (h *Handler) InternalFetch(c *gin.Context) {
	key := c.Query("key")
	val, ok := h.store.GetRaw(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, val)
}

// InternalAdd handles POST /internal/add
// Only ever called on the node that owns the shard for the key — forwarded
// here by a peer's CoordinateAdd when that peer isn't the owner.
func (h *Handler) InternalAdd(c *gin.Context) {
	var req cluster.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := h.store.Add(req.Key, req.Delta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}
