package domain

// Status is the connectivity indicator shown next to a panel.
// It is derived from the panel's current sample and nothing else.
type Status int

const (
	StatusOffline Status = iota
	StatusOnline
	StatusNoFix
)

type statusInfo struct {
	label string
	class string
}

var statusTable = [...]statusInfo{
	StatusOffline: {label: "OFFLINE", class: "offline"},
	StatusOnline:  {label: "ONLINE", class: "online"},
	StatusNoFix:   {label: "NO-FIX", class: "no-fix"},
}

// StatusOf derives the status of a sample-or-absent value.
// Clipping only changes the trace colour, never the status.
func StatusOf(sample *WaveformSample) Status {
	switch {
	case sample == nil:
		return StatusOffline
	case sample.Flags.HasGPSFix:
		return StatusOnline
	default:
		return StatusNoFix
	}
}

// Label returns the display text, e.g. "ONLINE".
func (s Status) Label() string {
	if s < 0 || int(s) >= len(statusTable) {
		return statusTable[StatusOffline].label
	}
	return statusTable[s].label
}

// Class returns the style class, e.g. "no-fix".
func (s Status) Class() string {
	if s < 0 || int(s) >= len(statusTable) {
		return statusTable[StatusOffline].class
	}
	return statusTable[s].class
}

func (s Status) String() string { return s.Class() }

// NodeStatus is the status vocabulary of the live-data server's JSON payloads.
type NodeStatus string

const (
	NodeStatusOnline   NodeStatus = "online"
	NodeStatusTimeout  NodeStatus = "timeout"
	NodeStatusNoGPSFix NodeStatus = "nogpsfix"
	NodeStatusOffline  NodeStatus = "offline"
)

// Reachable reports whether the server considers the node to have live data.
func (s NodeStatus) Reachable() bool {
	return s == NodeStatusOnline || s == NodeStatusNoGPSFix
}

// NodeStatusOf maps a freshly polled sample onto the wire status.
func NodeStatusOf(sample *WaveformSample) NodeStatus {
	switch StatusOf(sample) {
	case StatusOnline:
		return NodeStatusOnline
	case StatusNoFix:
		return NodeStatusNoGPSFix
	default:
		return NodeStatusOffline
	}
}
