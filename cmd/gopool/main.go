// Command gopool runs a thread pool either as a one-off burst benchmark or
// as a small service that feeds scheduled jobs into the pool and exposes
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vnykmshr/gopool/internal/config"
)

const shutdownTimeout = 30 * time.Second

type options struct {
	configPath  string
	workers     int
	logLevel    string
	metricsAddr string
	burst       int
	burstWork   time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("gopool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a .yaml or .json config file")
	fs.IntVar(&opts.workers, "workers", 0, "number of workers (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "verbose, debug, detail, trace, info, warning or error")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides config)")
	fs.IntVar(&opts.burst, "burst", 0, "submit N jobs, wait for them, print stats and exit")
	fs.DurationVar(&opts.burstWork, "burst-work", 10*time.Millisecond, "how long each burst job sleeps")
	err := fs.Parse(args)
	return opts, err
}

// loadConfig applies flag overrides on top of the file or default config.
func loadConfig(opts options) (*config.FileConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.workers > 0 {
		cfg.Pool.Workers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, stdout, stderr)
	if err != nil {
		return err
	}

	if opts.burst > 0 {
		err := a.runBurst(opts.burst, opts.burstWork)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := a.shutdown(shutdownCtx); err == nil {
			err = serr
		}
		return err
	}

	if err := a.startService(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.shutdown(shutdownCtx)
		return err
	}

	<-ctx.Done()
	a.log.Infof("shutting down: %v", context.Cause(ctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.shutdown(shutdownCtx)
}

func main() {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		cancel(fmt.Errorf("received signal %v", sig))
	}()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gopool: %v\n", err)
		os.Exit(1)
	}
}
