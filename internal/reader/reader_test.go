package reader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReader struct {
	rx, tx uint64
	err    error
	calls  int
}

func (s *stubReader) Read(_ context.Context, _ string) (uint64, uint64, error) {
	s.calls++
	return s.rx, s.tx, s.err
}

func TestChain_FirstSuccessWins(t *testing.T) {
	primary := &stubReader{rx: 100, tx: 200}
	fallback := &stubReader{rx: 999, tx: 999}
	c := NewChain(zap.NewNop(), primary, fallback)

	rx, tx, err := c.Read(context.Background(), "en0")
	require.NoError(t, err)

	assert.Equal(t, uint64(100), rx)
	assert.Equal(t, uint64(200), tx)
	assert.Zero(t, fallback.calls, "fallback must not run when primary succeeds")
}

func TestChain_FallsBackOnError(t *testing.T) {
	primary := &stubReader{err: errors.New("no such interface")}
	fallback := &stubReader{rx: 42, tx: 84}
	c := NewChain(zap.NewNop(), primary, fallback)

	rx, tx, err := c.Read(context.Background(), "en0")
	require.NoError(t, err)

	assert.Equal(t, uint64(42), rx)
	assert.Equal(t, uint64(84), tx)
	assert.Equal(t, 1, primary.calls)
}

func TestChain_AllFailReturnsLastError(t *testing.T) {
	lastErr := errors.New("netstat missing")
	c := NewChain(zap.NewNop(),
		&stubReader{err: errors.New("gopsutil failed")},
		&stubReader{err: lastErr})

	_, _, err := c.Read(context.Background(), "en0")
	assert.ErrorIs(t, err, lastErr)
}
