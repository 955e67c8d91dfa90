package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netusage-app/netusage/internal/accrual"
	"github.com/netusage-app/netusage/internal/netmodel"
	"github.com/netusage-app/netusage/internal/sampler"
	"github.com/netusage-app/netusage/internal/window"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0.00 B"},
		{512, "512.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{5 << 30, "5.00 GB"},
		{1 << 40, "1.00 TB"},
		{1 << 50, "1.00 PB"},
		{1 << 60, "1024.00 PB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatBytes(tc.in), "FormatBytes(%d)", tc.in)
	}
}

type memStore struct {
	samples []netmodel.Sample
}

func (m *memStore) Append(_ context.Context, s netmodel.Sample) error {
	m.samples = append(m.samples, s)
	return nil
}

func (m *memStore) Range(_ context.Context, iface string, start, end int64) ([]netmodel.Sample, error) {
	var out []netmodel.Sample
	for _, s := range m.samples {
		if s.Iface == iface && s.Timestamp >= start && s.Timestamp <= end {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// dayOfSamples populates one full day of monotonic samples every 30
// minutes, counters equal to the timestamp so deltas are easy to check.
func dayOfSamples() *memStore {
	st := &memStore{}
	for ts := int64(0); ts <= 86400; ts += 1800 {
		st.samples = append(st.samples, netmodel.Sample{
			Timestamp: ts,
			Iface:     "en0",
			RxBytes:   uint64(ts),
			TxBytes:   uint64(ts) * 2,
		})
	}
	return st
}

func TestTotals(t *testing.T) {
	c := NewComposer(dayOfSamples(), zap.NewNop())
	w := netmodel.Window{Start: 0, End: 86400}

	totals, err := c.Totals(context.Background(), "en0", w)
	require.NoError(t, err)

	assert.Equal(t, uint64(86400), totals.RxBytes)
	assert.Equal(t, uint64(172800), totals.TxBytes)
}

func TestHourlyBucketsSumToDayTotal(t *testing.T) {
	st := dayOfSamples()
	c := NewComposer(st, zap.NewNop())
	day := netmodel.Window{Start: 0, End: 86400}
	ctx := context.Background()

	dayTotals, err := c.Totals(ctx, "en0", day)
	require.NoError(t, err)

	var sum netmodel.UsageTotals
	for _, bucket := range window.HourlyBuckets(day) {
		bt, err := c.Totals(ctx, "en0", bucket)
		require.NoError(t, err)
		sum.RxBytes += bt.RxBytes
		sum.TxBytes += bt.TxBytes
	}

	// Samples land exactly on bucket boundaries, so no inter-bucket
	// delta is lost and the breakdown sums to the day total.
	assert.Equal(t, dayTotals, sum)
}

func TestCompose_TotalsOnly(t *testing.T) {
	c := NewComposer(dayOfSamples(), zap.NewNop())
	w := netmodel.Window{Start: 0, End: 86400}

	out, err := c.Compose(context.Background(), "en0", "2025-11-02", w, false)
	require.NoError(t, err)

	assert.Contains(t, out, "[report] 2025-11-02 (en0)")
	assert.Contains(t, out, "Downloaded: "+FormatBytes(86400))
	assert.Contains(t, out, "Uploaded:   "+FormatBytes(172800))
	assert.NotContains(t, out, "Hourly breakdown")
}

func TestCompose_HourlyBreakdown(t *testing.T) {
	c := NewComposer(dayOfSamples(), zap.NewNop())
	w := netmodel.Window{Start: 0, End: 86400}

	out, err := c.Compose(context.Background(), "en0", "2025-11-02", w, true)
	require.NoError(t, err)

	assert.Contains(t, out, "Hourly breakdown:")
	assert.Contains(t, out, "00:00 - 01:00")
	assert.Contains(t, out, "23:00 - 24:00")
	assert.Equal(t, 24, strings.Count(out, "down "))
}

func TestCompose_EmptyStore(t *testing.T) {
	c := NewComposer(&memStore{}, zap.NewNop())
	w := netmodel.Window{Start: 0, End: 86400}

	out, err := c.Compose(context.Background(), "en0", "2025-11-02", w, false)
	require.NoError(t, err)

	assert.Contains(t, out, "Downloaded: 0.00 B")
	assert.Contains(t, out, "Uploaded:   0.00 B")
}

type fixedReader struct {
	rx, tx uint64
}

func (f fixedReader) Read(_ context.Context, _ string) (uint64, uint64, error) {
	return f.rx, f.tx, nil
}

// Mirrors the report --since/--last --update flow: sample first, then
// resolve the window, then accrue. The fresh reading must land inside
// the window as its final point and move the totals.
func TestUpdateBeforeReportIncludesFreshSample(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()

	st := &memStore{samples: []netmodel.Sample{
		{Timestamp: now - 3600, Iface: "en0", RxBytes: 100, TxBytes: 10},
		{Timestamp: now - 1800, Iface: "en0", RxBytes: 600, TxBytes: 60},
	}}

	s := sampler.New(fixedReader{rx: 900, tx: 90}, st, "en0", time.Minute, zap.NewNop())
	fresh, err := s.SampleOnce(ctx)
	require.NoError(t, err)

	since := time.Unix(now-7200, 0).UTC().Format("2006-01-02T15:04:05")
	resolver := &window.Resolver{Now: time.Now, Local: time.UTC}
	w, err := resolver.Resolve(window.Spec{Since: since})
	require.NoError(t, err)

	require.GreaterOrEqual(t, fresh.Timestamp, w.Start)
	require.LessOrEqual(t, fresh.Timestamp, w.End, "fresh sample must fall inside the resolved window")

	samples, err := st.Range(ctx, "en0", w.Start, w.End)
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	assert.Equal(t, fresh.Timestamp, samples[len(samples)-1].Timestamp, "fresh sample must be the final point")

	totals, err := NewComposer(st, zap.NewNop()).Totals(ctx, "en0", w)
	require.NoError(t, err)

	// (600-100) + (900-600) = 800; without the update it would be 500.
	assert.Equal(t, uint64(800), totals.RxBytes)
	assert.Equal(t, uint64(80), totals.TxBytes)
}

func TestComposeMatchesAccrueDirectly(t *testing.T) {
	st := dayOfSamples()
	c := NewComposer(st, zap.NewNop())
	w := netmodel.Window{Start: 3600, End: 7200}

	totals, err := c.Totals(context.Background(), "en0", w)
	require.NoError(t, err)

	samples, _ := st.Range(context.Background(), "en0", w.Start, w.End)
	assert.Equal(t, accrual.Accrue(w, samples), totals)
}
