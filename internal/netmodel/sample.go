// Package netmodel defines the data structures shared by the sampler,
// store, and reporting components.
package netmodel

import "time"

// Sample is a single point-in-time reading of an interface's cumulative
// RX/TX byte counters. The values are the operating system's running
// totals at Timestamp, not per-interval deltas; counters may restart at
// zero at any point (reboot, interface reset, wraparound) and nothing in
// the record marks such a restart.
type Sample struct {
	Timestamp int64  `json:"ts"`
	Iface     string `json:"iface"`
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
}

// Time returns the sample timestamp as a time.Time.
func (s Sample) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// Window is a half-open time interval [Start, End) in epoch seconds.
// Start <= End always holds for windows produced by the resolver; a
// zero-width window yields zero usage.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Second
}

// UsageTotals holds accrued usage for one interface over one window.
type UsageTotals struct {
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}
