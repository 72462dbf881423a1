package spiglow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/spiglow/internal/transport"
	"libdb.so/spiglow/pulse"
)

// Transport carries pulse buffers to the LED. A failed write is not retried.
type Transport = io.WriteCloser

// Opener opens the transport described by a configuration.
type Opener func(cfg *Config, logger *slog.Logger) (Transport, error)

// OpenTransport opens the transport selected by cfg.Transport.
func OpenTransport(cfg *Config, logger *slog.Logger) (Transport, error) {
	switch cfg.Transport {
	case SPITransport:
		return transport.OpenSPI(cfg.Device, cfg.Frequency.Physic())
	case SerialTransport:
		return transport.OpenSerial(cfg.Device, cfg.Baud, cfg.Frequency.Physic(), logger)
	case ConsoleTransport:
		return transport.NewConsole(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// PanicError is returned by Daemon.Run when one of its tasks panicked.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s task panicked: %v", e.Task, e.Value)
}

// Daemon is the main spiglow daemon. It runs the animation task, which owns
// the transport, next to an independent heartbeat task.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
	open   Opener
	clock  Clock
}

// DaemonOpts overrides the collaborators of a Daemon. Zero fields keep their
// defaults.
type DaemonOpts struct {
	// Open defaults to OpenTransport.
	Open Opener
	// Clock defaults to SystemClock.
	Clock Clock
}

// NewDaemon creates a new spiglow daemon.
func NewDaemon(cfg *Config, logger *slog.Logger, opts DaemonOpts) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if opts.Open == nil {
		opts.Open = OpenTransport
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		open:   opts.Open,
		clock:  opts.Clock,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled, the
// transport fails or a task panics.
func (d *Daemon) Run(ctx context.Context) error {
	t, err := d.open(d.cfg, d.logger)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s transport", d.cfg.Transport)
	}
	defer t.Close()

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return d.guard("animation", func() error { return d.animate(ctx, t) })
	})
	errg.Go(func() error {
		return d.guard("heartbeat", func() error { return d.heartbeat(ctx) })
	})

	return errg.Wait()
}

// guard turns a panic in f into a *PanicError.
func (d *Daemon) guard(task string, f func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			perr := &PanicError{Task: task, Value: v, Stack: debug.Stack()}
			d.logger.Error(
				"task panicked",
				"task", task,
				"panic", v)
			err = perr
		}
	}()
	return f()
}

func (d *Daemon) animate(ctx context.Context, t Transport) error {
	if settle := time.Duration(d.cfg.Settle); settle > 0 {
		d.logger.Debug("waiting for the data line to settle", "settle", settle)
		if err := d.clock.Sleep(ctx, settle); err != nil {
			return err
		}
	}

	anim := NewAnimator(d.cfg.Palette, uint8(d.cfg.BrightnessLimit), time.Duration(d.cfg.Delay))

	for {
		frame := anim.Step()

		d.logger.Debug(
			"writing frame",
			"color", frame.Packed.String(),
			"brightness", fmt.Sprintf("%.2f%%", frame.Brightness.Percent()),
			"pulse", frame.Pulse.String())

		if _, err := t.Write(frame.Pulse[:]); err != nil {
			return errors.Wrap(err, "failed to write frame")
		}

		if err := d.clock.Sleep(ctx, frame.Delay); err != nil {
			d.turnOff(t)
			return err
		}
	}
}

// turnOff leaves the LED dark on shutdown. Errors are only logged since the
// daemon is exiting anyway.
func (d *Daemon) turnOff(t Transport) {
	var err error
	if c, ok := t.(interface{ Clear() error }); ok {
		err = c.Clear()
	} else {
		off := pulse.Encode(Black.Pack())
		_, err = t.Write(off[:])
	}
	if err != nil {
		d.logger.Warn("failed to turn the LED off", "error", err)
	}
}

func (d *Daemon) heartbeat(ctx context.Context) error {
	for {
		if err := d.clock.Sleep(ctx, time.Duration(d.cfg.Heartbeat)); err != nil {
			return err
		}
		d.logger.Debug("heartbeat")
	}
}
