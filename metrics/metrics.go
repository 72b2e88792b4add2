// Package metrics implements the counters and gauges the CLI exposes on
// its metrics port. Every other package in this module depends only on
// the small Metrics interfaces this registry satisfies, keeping the
// prometheus import confined to this one package.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every counter/gauge the engine reports, and satisfies
// the small Metrics interfaces declared by blockwatcher, clientpool,
// notify, and engine so each of those packages stays free of a
// prometheus dependency.
type Registry struct {
	reg *prometheus.Registry

	blocksProcessed    *prometheus.CounterVec
	blocksSkipped      *prometheus.CounterVec
	blocksGap          *prometheus.CounterVec
	blocksDuplicate    *prometheus.CounterVec
	matchesTotal       *prometheus.CounterVec
	notificationsSent  *prometheus.CounterVec
	notificationsRetry *prometheus.CounterVec
	notificationsFail  *prometheus.CounterVec
	scriptVetoed       *prometheus.CounterVec
	scriptTimeouts     *prometheus.CounterVec
	scriptFailures     *prometheus.CounterVec
	rpcErrors          *prometheus.CounterVec
	cursorLag          *prometheus.GaugeVec
}

// New builds a Registry with every series pre-declared (so a fresh
// counter reads 0, not "absent", on first scrape).
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		blocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocks_processed_total",
			Help: "Blocks the pipeline processed successfully, per network.",
		}, []string{"network"}),
		blocksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocks_skipped_total",
			Help: "Blocks skipped after a permanent pipeline error, per network.",
		}, []string{"network"}),
		blocksGap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "block_gaps_total",
			Help: "Sequence gaps detected in a fetched batch, per network.",
		}, []string{"network"}),
		blocksDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "block_duplicates_total",
			Help: "Duplicate block observations dropped, per network.",
		}, []string{"network"}),
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matches_total",
			Help: "Monitor matches emitted by the filter engine, per monitor.",
		}, []string{"monitor"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications delivered successfully, per trigger.",
		}, []string{"trigger"}),
		notificationsRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_retried_total",
			Help: "Notification delivery attempts beyond the first, per trigger.",
		}, []string{"trigger"}),
		notificationsFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications that exhausted retries or failed permanently, per trigger.",
		}, []string{"trigger"}),
		scriptVetoed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "script_vetoed_total",
			Help: "Matches dropped because a gating script's verdict was false, per monitor.",
		}, []string{"monitor"}),
		scriptTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "script_timeouts_total",
			Help: "Gating script invocations that exceeded their timeout, per monitor.",
		}, []string{"monitor"}),
		scriptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "script_failures_total",
			Help: "Gating script invocations that could not be evaluated at all, per monitor.",
		}, []string{"monitor"}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_errors_total",
			Help: "Client Pool calls that failed and triggered endpoint rotation, per network.",
		}, []string{"network"}),
		cursorLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cursor_lag_blocks",
			Help: "Blocks between a network's persisted cursor and its confirmed tip.",
		}, []string{"network"}),
	}

	reg.MustRegister(
		r.blocksProcessed, r.blocksSkipped, r.blocksGap, r.blocksDuplicate,
		r.matchesTotal,
		r.notificationsSent, r.notificationsRetry, r.notificationsFail,
		r.scriptVetoed, r.scriptTimeouts, r.scriptFailures,
		r.rpcErrors, r.cursorLag,
	)
	return r
}

// blockwatcher.Metrics

func (r *Registry) BlockProcessed(network string) { r.blocksProcessed.WithLabelValues(network).Inc() }
func (r *Registry) BlockSkipped(network string)   { r.blocksSkipped.WithLabelValues(network).Inc() }
func (r *Registry) BlockGap(network string)       { r.blocksGap.WithLabelValues(network).Inc() }
func (r *Registry) BlockDuplicate(network string) { r.blocksDuplicate.WithLabelValues(network).Inc() }

// clientpool.Metrics

func (r *Registry) RPCError(network string) { r.rpcErrors.WithLabelValues(network).Inc() }

// notify.Metrics (ScriptVetoed below belongs to engine.Metrics)

func (r *Registry) NotificationSent(trigger string) {
	r.notificationsSent.WithLabelValues(trigger).Inc()
}
func (r *Registry) NotificationRetried(trigger string) {
	r.notificationsRetry.WithLabelValues(trigger).Inc()
}
func (r *Registry) NotificationFailed(trigger string) {
	r.notificationsFail.WithLabelValues(trigger).Inc()
}
func (r *Registry) ScriptVetoed(monitor string) { r.scriptVetoed.WithLabelValues(monitor).Inc() }

// engine.Metrics (trigger/match-level counters the pipeline glue reports)

func (r *Registry) MatchEmitted(monitor string)  { r.matchesTotal.WithLabelValues(monitor).Inc() }
func (r *Registry) ScriptTimeout(monitor string) { r.scriptTimeouts.WithLabelValues(monitor).Inc() }
func (r *Registry) ScriptFailed(monitor string)  { r.scriptFailures.WithLabelValues(monitor).Inc() }

// CursorLag reports the gap between network's persisted cursor and its
// confirmed tip, recomputed once per watcher tick.
func (r *Registry) CursorLag(network string, lag int64) {
	if lag < 0 {
		lag = 0
	}
	r.cursorLag.WithLabelValues(network).Set(float64(lag))
}

// Server exposes the registry on /metrics.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to addr (e.g. ":8081") serving reg.
func NewServer(addr string, reg *Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: serving: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
