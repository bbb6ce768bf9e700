package dto

import (
	"time"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// FlagsResponse mirrors the sample flags shown on a panel
type FlagsResponse struct {
	HasGPSFix  bool `json:"has_gps_fix" example:"true"`
	IsClipping bool `json:"is_clipping" example:"false"`
}

// PanelResponse represents one dashboard panel in API responses
type PanelResponse struct {
	NodeID        string         `json:"node_id" example:"ET1002"`
	Location      string         `json:"location" example:"Lab"`
	Status        string         `json:"status" example:"ONLINE"`
	StatusClass   string         `json:"status_class" example:"online"`
	WindowSeconds float64        `json:"window_seconds" example:"0.3"`
	HasData       bool           `json:"has_data" example:"true"`
	Flags         *FlagsResponse `json:"flags,omitempty"`
	SampleRate    float64        `json:"sample_rate,omitempty" example:"1000"`
	SampleCount   int            `json:"sample_count,omitempty" example:"4096"`
	LastUpdate    int64          `json:"last_update,omitempty" example:"1700000000000"`
	Version       uint64         `json:"version" example:"42"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
	Source        string         `json:"source" example:"aggregate"`
	GraphURL      string         `json:"graph_url" example:"/api/panels/ET1002/graph.png"`
}

// PanelListResponse wraps the panels in display order
type PanelListResponse struct {
	Panels  []*PanelResponse `json:"panels"`
	Total   int              `json:"total" example:"2"`
	Version uint64           `json:"version" example:"42"`
}

// WheelRequest carries one wheel gesture for a panel
type WheelRequest struct {
	DeltaY *float64 `json:"delta_y" binding:"required" example:"-100"`
}

// WheelResponse reports the panel's window after the gesture
type WheelResponse struct {
	NodeID        string  `json:"node_id" example:"ET1002"`
	WindowSeconds float64 `json:"window_seconds" example:"0.2"`
	Changed       bool    `json:"changed" example:"true"`
}

// StreamMessage is pushed to update stream clients after every committed change
type StreamMessage struct {
	Type    string             `json:"type" example:"snapshot"`
	NodeID  string             `json:"node_id,omitempty" example:"ET1002"`
	Version uint64             `json:"version" example:"42"`
	Panels  *PanelListResponse `json:"panels"`
}

// AggregateResponse is the live-data server's /api/data/all body
type AggregateResponse struct {
	Data []domain.NodeEntry `json:"data"`
}
