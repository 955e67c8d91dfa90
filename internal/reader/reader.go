// Package reader reads an interface's cumulative RX/TX byte counters
// from the operating system. The primary source is gopsutil's per-NIC
// counters; when that fails (or the interface is missing from its
// view), the netstat command output is parsed as a fallback.
package reader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	psnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

// ErrReadFailed means the counter source could not produce a reading
// for the requested interface.
var ErrReadFailed = errors.New("counter read failed")

// Reader reads the current cumulative byte counters for one interface.
type Reader interface {
	Read(ctx context.Context, iface string) (rx, tx uint64, err error)
}

// CounterReader reads counters via gopsutil's per-NIC statistics.
type CounterReader struct{}

// Read looks up iface among the per-NIC counters.
func (CounterReader) Read(ctx context.Context, iface string) (uint64, uint64, error) {
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	for _, c := range counters {
		if c.Name == iface {
			return c.BytesRecv, c.BytesSent, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: interface %q not found", ErrReadFailed, iface)
}

// NetstatReader shells out to netstat and parses its table output.
// Kept as a fallback for interfaces (or platforms) gopsutil does not
// report, and as the source of truth when counters disagree is not a
// concern this tool takes on.
type NetstatReader struct{}

// Read runs `netstat -ib -I <iface>` and parses the counters out of
// its output.
func (NetstatReader) Read(ctx context.Context, iface string) (uint64, uint64, error) {
	out, err := exec.CommandContext(ctx, "netstat", "-ib", "-I", iface).Output()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: running netstat: %v", ErrReadFailed, err)
	}
	return ParseNetstat(string(out), iface)
}

// Chain tries each configured reader in order, returning the first
// successful reading.
type Chain struct {
	readers []Reader
	logger  *zap.Logger
}

// New builds the default reader chain: gopsutil first, netstat second.
func New(logger *zap.Logger) *Chain {
	return &Chain{
		readers: []Reader{CounterReader{}, NetstatReader{}},
		logger:  logger,
	}
}

// NewChain builds a chain over explicit readers, for tests.
func NewChain(logger *zap.Logger, readers ...Reader) *Chain {
	return &Chain{readers: readers, logger: logger}
}

// Read returns the first successful reading from the chain. Failures
// short of the last reader are logged at debug level.
func (c *Chain) Read(ctx context.Context, iface string) (uint64, uint64, error) {
	var lastErr error
	for _, r := range c.readers {
		rx, tx, err := r.Read(ctx, iface)
		if err == nil {
			return rx, tx, nil
		}
		lastErr = err
		c.logger.Debug("Counter source failed, trying next",
			zap.String("iface", iface),
			zap.Error(err))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no counter sources configured", ErrReadFailed)
	}
	return 0, 0, lastErr
}
