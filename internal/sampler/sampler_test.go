package sampler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netusage-app/netusage/internal/netmodel"
)

type fakeReader struct {
	mu   sync.Mutex
	rx   uint64
	tx   uint64
	errs int // fail this many reads before succeeding
}

func (f *fakeReader) Read(_ context.Context, _ string) (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs > 0 {
		f.errs--
		return 0, 0, errors.New("interface unreachable")
	}
	f.rx += 1000
	f.tx += 500
	return f.rx, f.tx, nil
}

type memStore struct {
	mu      sync.Mutex
	samples []netmodel.Sample
}

func (m *memStore) Append(_ context.Context, s netmodel.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *memStore) Range(_ context.Context, iface string, start, end int64) ([]netmodel.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []netmodel.Sample
	for _, s := range m.samples {
		if s.Iface == iface && s.Timestamp >= start && s.Timestamp <= end {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

func TestSampleOnce_AppendsReading(t *testing.T) {
	st := &memStore{}
	s := New(&fakeReader{}, st, "en0", time.Minute, zap.NewNop())

	before := time.Now().Unix()
	sample, err := s.SampleOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "en0", sample.Iface)
	assert.Equal(t, uint64(1000), sample.RxBytes)
	assert.Equal(t, uint64(500), sample.TxBytes)
	assert.GreaterOrEqual(t, sample.Timestamp, before)
	assert.Equal(t, 1, st.count())
}

func TestSampleOnce_ReadFailureAppendsNothing(t *testing.T) {
	st := &memStore{}
	s := New(&fakeReader{errs: 1}, st, "en0", time.Minute, zap.NewNop())

	_, err := s.SampleOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, st.count())
}

func TestRun_SamplesOnTicksAndStopsCleanly(t *testing.T) {
	st := &memStore{}
	s := New(&fakeReader{}, st, "en0", 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Immediate sample plus a few ticks.
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, st.count(), 2)
}

func TestRun_ContinuesAfterReadFailures(t *testing.T) {
	st := &memStore{}
	// First two reads fail, later ticks succeed.
	s := New(&fakeReader{errs: 2}, st, "en0", 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(80 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, st.count(), 1, "loop must keep sampling after failed reads")
}

func TestNew_DefaultsInterval(t *testing.T) {
	s := New(&fakeReader{}, &memStore{}, "en0", 0, zap.NewNop())
	assert.Equal(t, DefaultInterval, s.interval)
}
