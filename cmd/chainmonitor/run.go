package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	rediscache "github.com/goware/cachestore-redis"
	cachestore "github.com/goware/cachestore2"
	"github.com/goware/logger"
	"github.com/spf13/cobra"

	"github.com/sequenceos/chainmonitor/blockwatcher"
	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/chainclient/evm"
	"github.com/sequenceos/chainmonitor/chainclient/stellar"
	"github.com/sequenceos/chainmonitor/clientpool"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/cursorstore"
	"github.com/sequenceos/chainmonitor/engine"
	"github.com/sequenceos/chainmonitor/ethrpc"
	"github.com/sequenceos/chainmonitor/filter"
	"github.com/sequenceos/chainmonitor/metrics"
	"github.com/sequenceos/chainmonitor/notify"
)

const (
	flagMetricsAddr = "metrics-addr"
	flagRedisAddr   = "redis-addr"
	flagLogLevel    = "log-level"

	defaultMetricsAddr = ":8081"
)

func newRunCmd() *cobra.Command {
	var configDir, metricsAddr, redisAddr, logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "load config, poll every configured network, and dispatch matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := resolveConfigDir(configDir)
			return runEngine(cmd.Context(), root, metricsAddr, redisAddr, logLevel)
		},
	}
	cmd.Flags().StringVar(&configDir, flagConfigDir, "", "path to the config directory; falls back to $"+envConfigDir)
	cmd.Flags().StringVar(&metricsAddr, flagMetricsAddr, envOrDefault("CHAINMONITOR_METRICS_ADDR", defaultMetricsAddr), "address to serve /metrics on")
	cmd.Flags().StringVar(&redisAddr, flagRedisAddr, envOrDefault("CHAINMONITOR_REDIS_ADDR", ""), "redis host:port to back the cursor store durably; empty uses an in-memory store")
	cmd.Flags().StringVar(&logLevel, flagLogLevel, envOrDefault("CHAINMONITOR_LOG_LEVEL", "INFO"), "log level: DEBUG, INFO, WARN, ERROR")
	return cmd
}

func runEngine(ctx context.Context, configDir, metricsAddr, redisAddr, logLevel string) error {
	log := logger.NewLogger(parseLogLevel(logLevel))

	cfg, err := config.Load(configDir)
	if err != nil {
		// Configuration errors are fatal at startup.
		return fmt.Errorf("chainmonitor: config: %w", err)
	}

	reg := metrics.New()
	metricsServer := metrics.NewServer(metricsAddr, reg)

	cursorStore, err := openCursorStore(redisAddr)
	if err != nil {
		return fmt.Errorf("chainmonitor: cursor store: %w", err)
	}

	dispatcher := notify.New(cfg.Triggers,
		notify.WithLogger(log),
		notify.WithMetrics(reg),
		notify.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
	)

	decoders := map[chain.Family]filter.Decoder{
		chain.FamilyEVM:     filter.EVMDecoder{},
		chain.FamilyStellar: filter.StellarDecoder{},
	}
	filterEngine := filter.New(decoders, filter.WithLogger(log))

	var allMonitors []config.Monitor
	for _, m := range cfg.Monitors {
		allMonitors = append(allMonitors, m)
	}

	pipeline := engine.New(filterEngine, allMonitors, dispatcher,
		engine.WithLogger(log),
		engine.WithMetrics(reg),
	)

	watchers := make([]*blockwatcher.Watcher, 0, len(cfg.Networks))
	for _, network := range cfg.Networks {
		pool, err := buildPool(network, log, reg)
		if err != nil {
			return fmt.Errorf("chainmonitor: network %q: %w", network.Slug, err)
		}

		w, err := blockwatcher.New(blockwatcher.Options{
			Network:  network,
			Pool:     pool,
			Cursor:   cursorStore,
			Pipeline: pipeline.Run,
			Metrics:  reg,
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("chainmonitor: network %q: building watcher: %w", network.Slug, err)
		}
		watchers = append(watchers, w)
	}

	supervisor := blockwatcher.NewSupervisor(watchers...)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- metricsServer.Run(runCtx)
	}()
	go func() {
		errCh <- supervisor.Run(runCtx)
	}()

	log.Infof("chainmonitor: running %d network(s), metrics on %s", len(watchers), metricsAddr)

	select {
	case <-runCtx.Done():
		// First signal: let in-flight blocks finish their pipeline pass up
		// to the cursor write, then both goroutines return on their own.
	case err := <-errCh:
		stop()
		if err != nil {
			return fmt.Errorf("chainmonitor: %w", err)
		}
	}
	<-errCh
	<-errCh
	return nil
}

// buildPool dials every configured endpoint for network and wraps them in
// a clientpool.Pool, choosing the concrete chainclient implementation by
// the network's chain-family tag.
func buildPool(network config.Network, log logger.Logger, reg *metrics.Registry) (*clientpool.Pool, error) {
	endpoints := make([]clientpool.Endpoint, 0, len(network.Endpoints))

	timeout := time.Duration(network.RequestTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for _, ep := range network.Endpoints {
		weight := ep.Weight
		if weight <= 0 {
			weight = 1
		}

		var client clientpool.Client
		switch network.Family {
		case chain.FamilyEVM:
			c, err := evm.New(network.Slug, ep.URL,
				ethrpc.WithHTTPClient(&http.Client{
					Timeout:   timeout,
					Transport: headerTransport{headers: ep.Headers, base: http.DefaultTransport},
				}),
				ethrpc.WithLogger(log),
			)
			if err != nil {
				return nil, fmt.Errorf("dialing %s: %w", ep.URL, err)
			}
			client = c
		case chain.FamilyStellar:
			sc := stellar.New(network.Slug, ep.URL)
			sc.HTTPClient = &http.Client{
				Timeout:   timeout,
				Transport: headerTransport{headers: ep.Headers, base: http.DefaultTransport},
			}
			client = sc
		default:
			return nil, fmt.Errorf("unknown chain family %q", network.Family)
		}

		endpoints = append(endpoints, clientpool.Endpoint{
			Client: client,
			Weight: weight,
			Label:  ep.URL,
		})
	}

	return clientpool.New(network.Slug, log, reg, endpoints)
}

// openCursorStore wires the durable cursor backing: a Redis-backed
// cachestore.Backend when redisAddr is set, so the cursor survives a
// restart on a shared deployment, otherwise the bounded in-memory
// default meant for local development.
func openCursorStore(redisAddr string) (*cursorstore.Store, error) {
	if redisAddr == "" {
		return cursorstore.OpenInMemory(256)
	}

	backend, err := rediscache.New(rediscache.Config{
		Enabled: true,
		Host:    redisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis %s: %w", redisAddr, err)
	}

	var _ cachestore.Backend = backend // backend must satisfy cachestore2's Backend contract
	return cursorstore.Open(backend, 0)
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "DEBUG", "debug":
		return logger.LogLevel_DEBUG
	case "WARN", "warn":
		return logger.LogLevel_WARN
	case "ERROR", "error":
		return logger.LogLevel_ERROR
	default:
		return logger.LogLevel_INFO
	}
}

// headerTransport injects per-endpoint static headers.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
