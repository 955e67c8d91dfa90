// Package accrual converts an ordered series of cumulative counter
// samples into usage totals by summing deltas between consecutive
// readings.
package accrual

import "github.com/netusage-app/netusage/internal/netmodel"

// Accrue computes total bytes received/transmitted from the given
// samples, which must already be filtered to one interface and to the
// window, sorted ascending by timestamp (ties kept in retrieval order).
//
// A negative delta between consecutive readings means the counter was
// reset (interface restart, reboot, wraparound); that pair contributes
// zero and accrual continues from the post-reset baseline. Two resets
// falling between the same pair of samples are indistinguishable from
// one reset followed by growth from zero, so usage in that gap is
// undercounted. RX and TX are clamped independently.
//
// Fewer than two samples carry no delta information and yield {0, 0}.
func Accrue(w netmodel.Window, samples []netmodel.Sample) netmodel.UsageTotals {
	if w.Start >= w.End || len(samples) < 2 {
		return netmodel.UsageTotals{}
	}

	var totals netmodel.UsageTotals
	prev := samples[0]
	for _, curr := range samples[1:] {
		if curr.RxBytes >= prev.RxBytes {
			totals.RxBytes += curr.RxBytes - prev.RxBytes
		}
		if curr.TxBytes >= prev.TxBytes {
			totals.TxBytes += curr.TxBytes - prev.TxBytes
		}
		prev = curr
	}
	return totals
}
