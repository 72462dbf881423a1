package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"libdb.so/spiglow"
)

var (
	config    = ""
	transport = ""
	device    = ""
	verbose   = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file, defaults are used if empty")
	pflag.StringVarP(&transport, "transport", "t", transport, "override the transport (spi, serial, console)")
	pflag.StringVarP(&device, "device", "d", device, "override the SPI port or serial device")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		var perr *spiglow.PanicError
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "panic: %v\n\n%s", perr.Value, perr.Stack)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}

	if transport != "" {
		cfg.Transport = spiglow.TransportKind(transport)
	}
	if device != "" {
		cfg.Device = device
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	d, err := spiglow.NewDaemon(cfg, slog.Default(), spiglow.DaemonOpts{})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	slog.Info(
		"driving LED",
		"transport", cfg.Transport,
		"device", cfg.Device,
		"frequency", cfg.Frequency.Physic().String())

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon failed: %w", err)
	}

	return nil
}

func readConfig() (*spiglow.Config, error) {
	if config == "" {
		return spiglow.DefaultConfig(), nil
	}

	f, err := os.Open(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return spiglow.ParseConfig(f)
}
