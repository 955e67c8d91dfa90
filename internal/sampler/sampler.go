// Package sampler takes counter readings and appends them to the
// sample store, either once or on a fixed interval until cancelled.
package sampler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netusage-app/netusage/internal/netmodel"
	"github.com/netusage-app/netusage/internal/reader"
	"github.com/netusage-app/netusage/internal/store"
)

// DefaultInterval is the watch-mode sampling interval when none is
// configured.
const DefaultInterval = 60 * time.Second

// Sampler reads cumulative counters for one interface and records them.
type Sampler struct {
	reader   reader.Reader
	store    store.Store
	iface    string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Sampler for iface. A non-positive interval falls back
// to DefaultInterval.
func New(r reader.Reader, st store.Store, iface string, interval time.Duration, logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		reader:   r,
		store:    st,
		iface:    iface,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// SampleOnce reads the current counters and appends one sample.
func (s *Sampler) SampleOnce(ctx context.Context) (netmodel.Sample, error) {
	rx, tx, err := s.reader.Read(ctx, s.iface)
	if err != nil {
		return netmodel.Sample{}, err
	}
	sample := netmodel.Sample{
		Timestamp: s.now().Unix(),
		Iface:     s.iface,
		RxBytes:   rx,
		TxBytes:   tx,
	}
	if err := s.store.Append(ctx, sample); err != nil {
		return netmodel.Sample{}, err
	}
	s.logger.Info("Sampled counters",
		zap.String("iface", s.iface),
		zap.Int64("ts", sample.Timestamp),
		zap.Uint64("rx", rx),
		zap.Uint64("tx", tx))
	return sample, nil
}

// Run samples immediately, then on every interval tick, until the
// context is cancelled. A failed read or append is logged and the loop
// continues at the next tick; each append is a single atomic insert so
// cancellation never leaves a partial record.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Watching interface",
		zap.String("iface", s.iface),
		zap.Duration("interval", s.interval))

	if _, err := s.SampleOnce(ctx); err != nil {
		s.logger.Error("Sampling failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Watch stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SampleOnce(ctx); err != nil {
				s.logger.Error("Sampling failed", zap.Error(err))
			}
		}
	}
}
