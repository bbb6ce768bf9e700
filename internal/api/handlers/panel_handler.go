package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/dto"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/middleware"
	"github.com/marisusis/eclipse.marisusis.me/internal/dashboard"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// Graph size bounds in CSS pixels
const (
	DefaultGraphWidth  = 600
	DefaultGraphHeight = 300
	MaxGraphSize       = 4096
)

// PanelService is the dashboard surface the panel endpoints need
type PanelService interface {
	Panels() []*dashboard.Panel
	Panel(nodeID string) (*dashboard.Panel, error)
	Version() uint64
	Wheel(nodeID string, deltaY float64) (float64, bool, error)
}

// GraphSize is the default panel size served when the query omits one
type GraphSize struct {
	Width  int
	Height int
}

// PanelHandler handles dashboard panel requests
type PanelHandler struct {
	service PanelService
	size    GraphSize
}

// NewPanelHandler creates a new panel handler
func NewPanelHandler(service PanelService, size GraphSize) *PanelHandler {
	if size.Width <= 0 {
		size.Width = DefaultGraphWidth
	}
	if size.Height <= 0 {
		size.Height = DefaultGraphHeight
	}
	return &PanelHandler{
		service: service,
		size:    size,
	}
}

// ListPanels godoc
// @Summary List all panels
// @Description Get every dashboard panel in display order
// @Tags panels
// @Produce json
// @Success 200 {object} dto.PanelListResponse
// @Router /api/panels [get]
func (h *PanelHandler) ListPanels(c *gin.Context) {
	c.JSON(http.StatusOK, PanelList(h.service))
}

// PanelList builds the panel list response for the current dashboard state
func PanelList(service PanelService) *dto.PanelListResponse {
	panels := service.Panels()
	views := make([]dashboard.PanelView, 0, len(panels))
	for _, p := range panels {
		views = append(views, p.View())
	}
	return dto.ToPanelListResponse(views, service.Version())
}

// GetPanel godoc
// @Summary Get panel by node ID
// @Description Get the status, location and zoom window of one panel
// @Tags panels
// @Produce json
// @Param node path string true "Node ID" example("ET1002")
// @Success 200 {object} dto.PanelResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/panels/{node} [get]
func (h *PanelHandler) GetPanel(c *gin.Context) {
	panel, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToPanelResponse(panel.View()))
}

// GetGraph godoc
// @Summary Render a panel
// @Description Render the panel's waveform, or the NO DATA placeholder, as PNG
// @Tags panels
// @Produce png
// @Param node path string true "Node ID" example("ET1002")
// @Param width query int false "Width in CSS pixels" default(600)
// @Param height query int false "Height in CSS pixels" default(300)
// @Success 200 {file} binary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/panels/{node}/graph.png [get]
func (h *PanelHandler) GetGraph(c *gin.Context) {
	width, err := parseSize(c.Query("width"), h.size.Width)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:     "Invalid width parameter",
			Message:   err.Error(),
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}
	height, err := parseSize(c.Query("height"), h.size.Height)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:     "Invalid height parameter",
			Message:   err.Error(),
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	panel, ok := h.lookup(c)
	if !ok {
		return
	}

	img, err := panel.RenderPNG(width, height)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:     "Failed to render panel",
			Message:   "Internal server error occurred while rendering the panel",
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img)
}

// Wheel godoc
// @Summary Zoom a panel
// @Description Apply one wheel gesture to a panel's time window; negative delta zooms in
// @Tags panels
// @Accept json
// @Produce json
// @Param node path string true "Node ID" example("ET1002")
// @Param request body dto.WheelRequest true "Wheel gesture"
// @Success 200 {object} dto.WheelResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/panels/{node}/wheel [post]
func (h *PanelHandler) Wheel(c *gin.Context) {
	var req dto.WheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:     "Invalid request",
			Message:   "delta_y is required",
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}

	id := domain.NormalizeNodeID(c.Param("node"))
	window, changed, err := h.service.Wheel(id, *req.DeltaY)
	if err != nil {
		h.writeLookupError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, dto.WheelResponse{
		NodeID:        id,
		WindowSeconds: window,
		Changed:       changed,
	})
}

func (h *PanelHandler) lookup(c *gin.Context) (*dashboard.Panel, bool) {
	id := domain.NormalizeNodeID(c.Param("node"))
	panel, err := h.service.Panel(id)
	if err != nil {
		h.writeLookupError(c, id, err)
		return nil, false
	}
	return panel, true
}

func (h *PanelHandler) writeLookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, domain.ErrNodeNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:     "Panel not found",
			Message:   "No panel for node: " + id,
			RequestID: c.GetString(middleware.RequestIDKey),
			Timestamp: time.Now(),
		})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:     "Failed to retrieve panel",
		Message:   "Internal server error occurred while looking up the panel",
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now(),
	})
}

func parseSize(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n <= 0 || n > MaxGraphSize {
		return 0, errors.New("must be between 1 and " + strconv.Itoa(MaxGraphSize))
	}
	return n, nil
}
