package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goware/breaker"
	"github.com/goware/channel"
	"github.com/goware/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

const (
	retryBase        = 500 * time.Millisecond
	retryFactor      = 2.0
	retryMaxAttempts = 5 // 1 initial attempt + 4 retries

	// monitorQueueCapacity bounds the per-monitor backlog between the
	// Filter Engine and the Dispatcher. Enqueue blocks once it is full,
	// throttling
	// block intake instead of dropping matches.
	monitorQueueCapacity = 1024
)

// Metrics is the small counter surface the dispatcher reports through;
// satisfied by the metrics package in production and a no-op in tests.
type Metrics interface {
	NotificationSent(trigger string)
	NotificationRetried(trigger string)
	NotificationFailed(trigger string)
}

type noopMetrics struct{}

func (noopMetrics) NotificationSent(string)    {}
func (noopMetrics) NotificationRetried(string) {}
func (noopMetrics) NotificationFailed(string)  {}

type job struct {
	monitor config.Monitor
	match   filter.Match
}

// Dispatcher fans a Monitor Match out to every trigger its monitor
// names. One worker goroutine per monitor drains that monitor's
// bounded queue in arrival order; within one match, every channel fires
// concurrently (errgroup), so per-monitor order holds per channel while
// channels never block each other.
type Dispatcher struct {
	triggers map[string]config.Trigger
	client   *http.Client
	log      logger.Logger
	metrics  Metrics

	mu      sync.Mutex
	queues  map[string]channel.Channel[job]
	dbPools map[string]*pgxpool.Pool // keyed by DSN, built lazily
}

// Option configures a Dispatcher at construction.
type Option func(*Dispatcher)

func WithLogger(log logger.Logger) Option { return func(d *Dispatcher) { d.log = log } }
func WithMetrics(m Metrics) Option        { return func(d *Dispatcher) { d.metrics = m } }
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// New builds a Dispatcher over the configured triggers.
func New(triggers map[string]config.Trigger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		triggers: triggers,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      logger.NewLogger(logger.LogLevel_WARN),
		metrics:  noopMetrics{},
		queues:   map[string]channel.Channel[job]{},
		dbPools:  map[string]*pgxpool.Pool{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands match to mon's per-monitor delivery queue, blocking if the
// queue is at capacity. ctx governs only the
// enqueue itself, not the eventual delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, mon config.Monitor, match filter.Match) error {
	q := d.queueFor(mon.Name)
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	q.Send(job{monitor: mon, match: match})
	return nil
}

func (d *Dispatcher) queueFor(monitorName string) channel.Channel[job] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[monitorName]; ok {
		return q
	}

	q := channel.NewUnboundedChan[job](16, monitorQueueCapacity, channel.Options{
		Logger: d.log,
		Label:  monitorName,
	})
	d.queues[monitorName] = q

	go d.drain(monitorName, q)

	return q
}

func (d *Dispatcher) drain(monitorName string, q channel.Channel[job]) {
	for j := range q.ReadChannel() {
		// Background is deliberate: delivery retries outlive any single
		// caller's enqueue context; the drain goroutine keeps running
		// after the triggering poll tick returns.
		if err := d.dispatchOne(context.Background(), j); err != nil {
			d.log.Warnf("notify: monitor=%s tx=%s dispatch failed: %v", monitorName, j.match.TxHash, err)
		}
	}
}

// dispatchOne delivers one match to every trigger its monitor names,
// concurrently.
func (d *Dispatcher) dispatchOne(ctx context.Context, j job) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, triggerName := range j.monitor.Triggers {
		triggerName := triggerName
		g.Go(func() error {
			return d.deliverToTrigger(ctx, triggerName, j.match)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) deliverToTrigger(ctx context.Context, triggerName string, match filter.Match) error {
	t, ok := d.triggers[triggerName]
	if !ok {
		return fmt.Errorf("notify: unknown trigger %q", triggerName)
	}

	rendered, missing := RenderTemplate(t.Template, match.Variables)
	for _, ident := range missing {
		d.log.Warnf("notify: trigger=%s template references unknown identifier %q", triggerName, ident)
	}

	deliverer, err := d.delivererFor(t)
	if err != nil {
		d.metrics.NotificationFailed(triggerName)
		return err
	}

	// A permanent failure cancels
	// retryCtx from inside the retried closure so breaker.Do gives up
	// immediately instead of spending its attempt budget on a failure
	// retrying can never fix.
	retryCtx, abortRetries := context.WithCancel(ctx)
	defer abortRetries()

	attempt := 0
	var lastErr error
	err = breaker.Do(retryCtx, func() error {
		attempt++
		if attempt > 1 {
			d.metrics.NotificationRetried(triggerName)
		}
		lastErr = deliverer.deliver(ctx, rendered, match)
		if lastErr != nil && isPermanent(lastErr) {
			abortRetries()
		}
		return lastErr
	}, nil, retryBase, retryFactor, retryMaxAttempts)

	if lastErr != nil {
		err = lastErr
	}
	if err != nil {
		d.metrics.NotificationFailed(triggerName)
		return fmt.Errorf("notify: delivering to trigger %q: %w", triggerName, err)
	}
	d.metrics.NotificationSent(triggerName)
	return nil
}

func (d *Dispatcher) delivererFor(t config.Trigger) (deliverer, error) {
	switch t.Type {
	case config.TriggerSlack:
		return newSlackDeliverer(d.client, t), nil
	case config.TriggerDiscord:
		return newDiscordDeliverer(d.client, t), nil
	case config.TriggerWebhook:
		return newGenericWebhookDeliverer(d.client, t), nil
	case config.TriggerTelegram:
		return newTelegramDeliverer(d.client, t), nil
	case config.TriggerEmail:
		return newEmailDeliverer(t), nil
	case config.TriggerScript:
		return newScriptDeliverer(t), nil
	case config.TriggerDatabase:
		pool, err := d.dbPoolFor(t.DSN)
		if err != nil {
			return nil, err
		}
		return newDatabaseDeliverer(pool, t), nil
	default:
		return nil, fmt.Errorf("notify: unsupported trigger type %q", t.Type)
	}
}

func (d *Dispatcher) dbPoolFor(dsn string) (*pgxpool.Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pool, ok := d.dbPools[dsn]; ok {
		return pool, nil
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("notify: opening database pool: %w", err)
	}
	d.dbPools[dsn] = pool
	return pool, nil
}

// Close releases every database pool the dispatcher opened.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pool := range d.dbPools {
		pool.Close()
	}
}

// isPermanent reports whether err (or something it wraps) is ErrPermanent.
func isPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
