package spiglow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/spiglow/pulse"
)

// fakeClock returns immediately, except for the heartbeat period, which
// blocks until the context is done so the heartbeat task stays idle.
type fakeClock struct {
	block time.Duration

	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	if d == c.block {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// recorder records every write. After stopAfter writes it calls stop, and
// the write numbered failAt fails.
type recorder struct {
	writes    [][]byte
	stopAfter int
	stop      func()
	failAt    int
	panicAt   int
	closed    bool
}

func (r *recorder) Write(p []byte) (int, error) {
	n := len(r.writes) + 1
	if n == r.panicAt {
		panic("spi exploded")
	}
	if n == r.failAt {
		return 0, io.ErrClosedPipe
	}
	r.writes = append(r.writes, append([]byte(nil), p...))
	if n == r.stopAfter && r.stop != nil {
		r.stop()
	}
	return len(p), nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func (r *recorder) packed(t *testing.T) []pulse.Packed {
	t.Helper()
	out := make([]pulse.Packed, len(r.writes))
	for i, w := range r.writes {
		require.Len(t, w, pulse.Size)
		var b pulse.Buffer
		copy(b[:], w)
		p, err := pulse.Decode(b)
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func newTestDaemon(t *testing.T, rec *recorder, clock Clock) *Daemon {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := NewDaemon(DefaultConfig(), logger, DaemonOpts{
		Open:  func(*Config, *slog.Logger) (Transport, error) { return rec, nil },
		Clock: clock,
	})
	require.NoError(t, err)
	return d
}

func TestDaemonRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{stopAfter: 6, stop: cancel}
	clock := &fakeClock{block: time.Second}

	err := newTestDaemon(t, rec, clock).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, rec.closed)

	assert.Equal(t, []pulse.Packed{
		0x000000, // black at 1
		0x000200, // red at 2
		0x030303, // white at 3
		0x000004, // blue at 4
		0x000000, // black at 5
		0x000600, // red at 6
		0x000000, // turned off on the way out
	}, rec.packed(t))

	var delays int
	var heartbeats int
	for i, d := range clock.Sleeps() {
		switch d {
		case 100 * time.Millisecond:
			assert.Zero(t, delays, "settle comes before the first frame (sleep %d)", i)
		case DefaultDelay:
			delays++
		case time.Second:
			heartbeats++
		default:
			t.Errorf("unexpected sleep %v", d)
		}
	}
	assert.Equal(t, 6, delays)
	assert.Equal(t, 1, heartbeats)
}

func TestDaemonTransportFailure(t *testing.T) {
	rec := &recorder{failAt: 3}
	clock := &fakeClock{block: time.Second}

	err := newTestDaemon(t, rec, clock).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Len(t, rec.writes, 2, "no retry after a failed write")
	assert.True(t, rec.closed)
}

func TestDaemonPanic(t *testing.T) {
	rec := &recorder{panicAt: 2}
	clock := &fakeClock{block: time.Second}

	err := newTestDaemon(t, rec, clock).Run(context.Background())

	var perr *PanicError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, "animation", perr.Task)
	assert.Equal(t, "spi exploded", perr.Value)
	assert.NotEmpty(t, perr.Stack)
}

func TestDaemonOpenFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := NewDaemon(DefaultConfig(), logger, DaemonOpts{
		Open: func(*Config, *slog.Logger) (Transport, error) {
			return nil, errors.New("no SPI port")
		},
		Clock: &fakeClock{},
	})
	require.NoError(t, err)

	err = d.Run(context.Background())
	assert.ErrorContains(t, err, "no SPI port")
}

func TestNewDaemonInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Palette = nil

	_, err := NewDaemon(cfg, slog.Default(), DaemonOpts{})
	assert.Error(t, err)
}

func TestOpenTransportConsole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = ConsoleTransport

	tr, err := OpenTransport(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	b := pulse.Encode(White.Pack())
	_, err = tr.Write(b[:])
	assert.NoError(t, err)
	assert.NoError(t, tr.Close())
}

func TestSystemClockCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, SystemClock{}.Sleep(context.Background(), time.Millisecond))
}
