// Command bakery drives the bakery lock with a pool of workers that
// increment a shared counter, and reports whether any update was lost.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llxisdsh/bakery/internal/harness"
)

type runFlags struct {
	config      string
	threads     int
	iterations  int
	duration    time.Duration
	maxTicket   uint32
	metricsAddr string
	percentiles bool
	verbose     bool
}

func newLogger(verbose bool) (*zap.Logger, error) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return c.Build()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bakery",
		Short:         "Exercise a bakery lock with a fixed pool of workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run workers that increment a shared counter under the lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			log, err := newLogger(f.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return run(cmd.Context(), cmd, cfg, f.percentiles, log)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "TOML configuration file")
	fs.IntVarP(&f.threads, "threads", "n", 0, "number of workers (lock participants)")
	fs.IntVarP(&f.iterations, "iterations", "k", 0, "critical sections per worker")
	fs.DurationVarP(&f.duration, "duration", "d", 0, "run for a fixed time instead of a fixed count")
	fs.Uint32Var(&f.maxTicket, "max-ticket", 0, "ticket ceiling, forces overflow drains when small")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&f.percentiles, "percentiles", false, "print the acquire latency distribution")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// resolveConfig layers explicitly set flags over the config file, which in
// turn is layered over the defaults.
func resolveConfig(fs *pflag.FlagSet, f runFlags) (harness.Config, error) {
	cfg := harness.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = harness.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	if fs.Changed("threads") {
		cfg.Threads = f.threads
	}
	if fs.Changed("iterations") {
		cfg.Iterations = f.iterations
	}
	if fs.Changed("duration") {
		cfg.Duration = harness.Duration(f.duration)
	}
	if fs.Changed("max-ticket") {
		cfg.MaxTicket = f.maxTicket
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddress = f.metricsAddr
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cmd *cobra.Command, cfg harness.Config, percentiles bool, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := harness.NewMetrics(reg)

	if cfg.MetricsAddress != "" {
		srv, err := serveMetrics(cfg.MetricsAddress, reg, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	r, err := harness.Run(ctx, cfg, harness.Deps{Logger: log, Metrics: m})
	if r != nil {
		if _, werr := r.WriteTo(cmd.OutOrStdout()); werr != nil {
			return werr
		}
		if percentiles {
			if _, perr := r.Histogram.PercentilesPrint(cmd.OutOrStdout(), 1, 1.0); perr != nil {
				return perr
			}
		}
	}
	if err != nil {
		return err
	}
	return r.Check()
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to serve metrics", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("address", ln.Addr().String()))
	return srv, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bakery:", err)
		stop()
		os.Exit(1)
	}
}
