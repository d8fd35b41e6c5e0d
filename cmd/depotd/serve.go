package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/depot"
	"github.com/xraph/depot/api"
	audithook "github.com/xraph/depot/audit_hook"
	"github.com/xraph/depot/changefeed/amqp"
	"github.com/xraph/depot/config"
	"github.com/xraph/depot/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background sweepers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts = append(opts,
		depot.WithLogger(logger),
		depot.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(registry))),
		depot.WithPlugin(audithook.New(audithook.SlogRecorder{Logger: logger.With("component", "audit")},
			audithook.WithLogger(logger))),
	)

	d := depot.New(st, opts...)
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop() //nolint:errcheck // shutdown path

	if cfg.AMQP.URL != "" {
		pub, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		go amqp.NewForwarder(d.Feed(), pub, logger).Run(ctx)
		logger.Info("forwarding changes", "exchange", cfg.AMQP.Exchange)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewServer(d,
			api.WithLogger(logger),
			api.WithLocation(loc),
			api.WithMetrics(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("depotd listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
