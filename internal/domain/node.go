package domain

import (
	"strings"
	"time"
)

// DefaultLocation is shown for nodes that have no configured or reported location.
const DefaultLocation = "Earth"

// NodeDescriptor is the static identity of a dashboard panel.
type NodeDescriptor struct {
	NodeID   string `json:"node_id" yaml:"node_id"`
	Location string `json:"location,omitempty" yaml:"location"`

	// Endpoint, when set, makes the panel poll its own per-node endpoint
	// instead of reading its entry from the aggregate feed
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint"`
}

// DisplayLocation returns the location or the placeholder.
func (d NodeDescriptor) DisplayLocation() string {
	if strings.TrimSpace(d.Location) == "" {
		return DefaultLocation
	}
	return d.Location
}

// NodeConfig describes an upstream sensor node polled by the live-data server.
type NodeConfig struct {
	NodeID       string `yaml:"node_id"`
	DataEndpoint string `yaml:"data_endpoint"`
	Location     string `yaml:"location"`
	// Endpoint is the dashboard-side per-node path; empty means aggregate-fed
	Endpoint string `yaml:"endpoint"`
}

// Descriptor converts the config entry into the dashboard's panel identity.
func (n NodeConfig) Descriptor() NodeDescriptor {
	return NodeDescriptor{NodeID: n.NodeID, Location: n.Location, Endpoint: n.Endpoint}
}

// NodeReading is the live-data server's latest view of one node.
type NodeReading struct {
	NodeID    string          `json:"node_id"`
	Sample    *WaveformSample `json:"sample"`
	Status    NodeStatus      `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OfflineReading returns the initial reading every node starts with.
func OfflineReading(nodeID string) *NodeReading {
	return &NodeReading{NodeID: nodeID, Status: NodeStatusOffline}
}

// NodeEntry is one element of the aggregate payload.
type NodeEntry struct {
	NodeID     string          `json:"node_id"`
	Status     NodeStatus      `json:"status,omitempty"`
	Location   string          `json:"location,omitempty"`
	LastUpdate int64           `json:"last_update"`
	Data       *WaveformSample `json:"data"`
}

// LiveSample returns the entry's sample, or nil when the server reports the node offline.
func (e NodeEntry) LiveSample() *WaveformSample {
	if e.Data == nil {
		return nil
	}
	if e.Status != "" && !e.Status.Reachable() {
		return nil
	}
	return e.Data
}

// AggregateResponse is the body of the aggregate endpoint.
type AggregateResponse struct {
	Data []NodeEntry `json:"data"`
}

// ReadingEnvelope is the body returned by an upstream sensor node.
type ReadingEnvelope struct {
	Data *WaveformSample `json:"data"`
}

// NormalizeNodeID canonicalizes node identifiers (the wire uses upper case, e.g. "ET1002").
func NormalizeNodeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
