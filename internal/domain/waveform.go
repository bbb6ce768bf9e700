package domain

import (
	"fmt"
	"math"
)

// WaveformFlags carries the per-sample condition bits reported by a sensor node.
// Missing fields decode to false.
type WaveformFlags struct {
	HasGPSFix  bool `json:"has_gps_fix"`
	IsClipping bool `json:"is_clipping"`
}

// WaveformSample is one node's most recent telemetry snapshot.
// A new sample always replaces the previous one; samples are never merged.
type WaveformSample struct {
	// SampleRate is the acquisition rate in samples per second
	SampleRate float64 `json:"sample_rate"`

	// Samples holds normalized voltage readings, conceptually in [-1, 1]
	Samples []float64 `json:"data"`

	Flags WaveformFlags `json:"flags"`

	// Timestamp is the capture time in unix milliseconds, when the node reports one
	Timestamp *int64 `json:"timestamp,omitempty"`

	// GPS block reported by the node alongside the capture
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Elevation float64 `json:"elevation,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Angle     float64 `json:"angle,omitempty"`
	Fix       uint16  `json:"fix,omitempty"`
}

// Validate reports whether the sample can be rendered.
func (s *WaveformSample) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil sample", ErrValidationFailed)
	}
	if math.IsNaN(s.SampleRate) || math.IsInf(s.SampleRate, 0) || s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %v", ErrValidationFailed, s.SampleRate)
	}
	return nil
}

// LastUpdate returns the capture timestamp or 0 when the node did not send one.
func (s *WaveformSample) LastUpdate() int64 {
	if s == nil || s.Timestamp == nil {
		return 0
	}
	return *s.Timestamp
}
