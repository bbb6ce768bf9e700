package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/dto"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/middleware"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage"
)

// DataHandler serves the latest cached readings of the configured nodes
type DataHandler struct {
	cache storage.SampleCache
	nodes map[string]domain.NodeConfig
	ids   []string
}

// NewDataHandler creates a new data handler over the configured nodes
func NewDataHandler(cache storage.SampleCache, nodes []domain.NodeConfig) *DataHandler {
	h := &DataHandler{
		cache: cache,
		nodes: make(map[string]domain.NodeConfig, len(nodes)),
	}
	for _, node := range nodes {
		node.NodeID = domain.NormalizeNodeID(node.NodeID)
		if node.NodeID == "" {
			continue
		}
		if _, dup := h.nodes[node.NodeID]; dup {
			continue
		}
		h.nodes[node.NodeID] = node
		h.ids = append(h.ids, node.NodeID)
	}
	sort.Strings(h.ids)
	return h
}

// GetAll godoc
// @Summary Latest reading of every node
// @Description Get the latest waveform of every configured node, sorted by node id
// @Tags data
// @Produce json
// @Success 200 {object} dto.AggregateResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/data/all [get]
func (h *DataHandler) GetAll(c *gin.Context) {
	if len(h.ids) == 0 {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:     "No nodes configured",
			Message:   "The live-data server has no sensor nodes configured",
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	readings, err := h.cache.GetMany(c.Request.Context(), h.ids)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:     "Failed to retrieve readings",
			Message:   "Internal server error occurred while reading the sample cache",
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	response := dto.AggregateResponse{Data: make([]domain.NodeEntry, 0, len(h.ids))}
	for _, id := range h.ids {
		response.Data = append(response.Data, dto.ToNodeEntry(h.nodes[id], readings[id]))
	}
	c.JSON(http.StatusOK, response)
}

// GetNode godoc
// @Summary Latest sample of one node
// @Description Get the bare waveform sample of a node; node ids are case-insensitive
// @Tags data
// @Produce json
// @Param node path string true "Node ID" example("ET1002")
// @Success 200 {object} domain.WaveformSample
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/data/{node} [get]
func (h *DataHandler) GetNode(c *gin.Context) {
	id := domain.NormalizeNodeID(c.Param("node"))
	if _, ok := h.nodes[id]; !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:     "Node not found",
			Message:   "No node configured with id: " + id,
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	reading, err := h.cache.Get(c.Request.Context(), id)
	if err != nil && !errors.Is(err, domain.ErrNodeNotFound) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:     "Failed to retrieve reading",
			Message:   "Internal server error occurred while reading the sample cache",
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	if reading == nil || reading.Sample == nil || !reading.Status.Reachable() {
		status := domain.NodeStatusOffline
		if reading != nil {
			status = reading.Status
		}
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:     "Node unavailable",
			Message:   "Node " + id + " is " + string(status),
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, reading.Sample)
}
