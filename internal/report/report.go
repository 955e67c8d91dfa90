// Package report composes human-readable usage reports from stored
// samples.
package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/netusage-app/netusage/internal/accrual"
	"github.com/netusage-app/netusage/internal/netmodel"
	"github.com/netusage-app/netusage/internal/store"
	"github.com/netusage-app/netusage/internal/window"
)

// byteUnits are the humanization steps, 1024 apart.
var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with two decimal places in the
// largest unit that keeps the value below 1024.
func FormatBytes(n uint64) string {
	v := float64(n)
	for _, unit := range byteUnits[:len(byteUnits)-1] {
		if v < 1024 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[len(byteUnits)-1])
}

// Composer builds usage reports for one interface from the sample
// store.
type Composer struct {
	store  store.Store
	logger *zap.Logger
}

// NewComposer creates a Composer over the given store.
func NewComposer(st store.Store, logger *zap.Logger) *Composer {
	return &Composer{store: st, logger: logger}
}

// Totals fetches the window's samples for iface and accrues usage.
func (c *Composer) Totals(ctx context.Context, iface string, w netmodel.Window) (netmodel.UsageTotals, error) {
	samples, err := c.store.Range(ctx, iface, w.Start, w.End)
	if err != nil {
		return netmodel.UsageTotals{}, err
	}
	totals := accrual.Accrue(w, samples)
	c.logger.Debug("Accrued usage",
		zap.String("iface", iface),
		zap.Int64("start", w.Start),
		zap.Int64("end", w.End),
		zap.Int("samples", len(samples)),
		zap.Uint64("rx", totals.RxBytes),
		zap.Uint64("tx", totals.TxBytes))
	return totals, nil
}

// Compose renders a usage report for iface over w. label names the
// window in the header (a date, a range, "last 24h"). When hourly is
// set, w is treated as a day window and a 24-line hourly breakdown is
// appended, each bucket accrued independently.
func (c *Composer) Compose(ctx context.Context, iface, label string, w netmodel.Window, hourly bool) (string, error) {
	totals, err := c.Totals(ctx, iface, w)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[report] %s (%s)\n", label, iface)
	fmt.Fprintf(&b, "  Downloaded: %s\n", FormatBytes(totals.RxBytes))
	fmt.Fprintf(&b, "  Uploaded:   %s\n", FormatBytes(totals.TxBytes))

	if hourly {
		b.WriteString("\nHourly breakdown:\n")
		for h, bucket := range window.HourlyBuckets(w) {
			bt, err := c.Totals(ctx, iface, bucket)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  %02d:00 - %02d:00  down %s  up %s\n",
				h, h+1, FormatBytes(bt.RxBytes), FormatBytes(bt.TxBytes))
		}
	}
	return b.String(), nil
}
