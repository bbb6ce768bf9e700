package dto

import (
	"net/url"

	"github.com/marisusis/eclipse.marisusis.me/internal/dashboard"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

// ToPanelResponse converts a dashboard.PanelView to dto.PanelResponse
func ToPanelResponse(view dashboard.PanelView) *PanelResponse {
	resp := &PanelResponse{
		NodeID:        view.NodeID,
		Location:      view.Location,
		Status:        view.Status.Label(),
		StatusClass:   view.Status.Class(),
		WindowSeconds: view.WindowSeconds,
		HasData:       view.HasData,
		Version:       view.Version,
		Source:        string(view.Source),
		GraphURL:      "/api/panels/" + url.PathEscape(view.NodeID) + "/graph.png",
	}

	if view.HasData {
		resp.Flags = &FlagsResponse{
			HasGPSFix:  view.Flags.HasGPSFix,
			IsClipping: view.Flags.IsClipping,
		}
		resp.SampleRate = view.SampleRate
		resp.SampleCount = view.SampleCount
		resp.LastUpdate = view.LastUpdate
	}
	if !view.UpdatedAt.IsZero() {
		updated := view.UpdatedAt.UTC()
		resp.UpdatedAt = &updated
	}
	return resp
}

// ToPanelListResponse converts panel views to dto.PanelListResponse
func ToPanelListResponse(views []dashboard.PanelView, version uint64) *PanelListResponse {
	responses := make([]*PanelResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, ToPanelResponse(view))
	}

	return &PanelListResponse{
		Panels:  responses,
		Total:   len(responses),
		Version: version,
	}
}

// ToNodeEntry converts a cached reading into an aggregate payload entry.
// A nil reading means the node has never been polled.
func ToNodeEntry(node domain.NodeConfig, reading *domain.NodeReading) domain.NodeEntry {
	entry := domain.NodeEntry{
		NodeID:   node.NodeID,
		Status:   domain.NodeStatusOffline,
		Location: node.Descriptor().DisplayLocation(),
	}
	if reading == nil {
		return entry
	}

	entry.Status = reading.Status
	if reading.Sample != nil && reading.Status.Reachable() {
		entry.Data = reading.Sample
		entry.LastUpdate = reading.Sample.LastUpdate()
	}
	return entry
}
