// Package blockwatcher implements the Block Watcher: a per-network
// scheduler that advances a durable cursor, fetches ranges of blocks with
// failover, and hands them to the downstream pipeline while preserving
// at-least-once semantics. There is no reorg bookkeeping here: the
// watcher only ever advances past confirmation-depth-final blocks, so
// there is no reorg window to track.
package blockwatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goware/calc"
	"github.com/goware/logger"
	"golang.org/x/sync/errgroup"

	"github.com/sequenceos/chainmonitor/blocktracker"
	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/clientpool"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/cursorstore"
	"github.com/sequenceos/chainmonitor/util"
)

// Pipeline is invoked once per block, in strict ascending order, and
// should return a non-nil error only for a permanent, block-local
// failure (e.g. decode error); transient RPC failures are already
// retried inside the Client Pool before a block ever reaches here.
type Pipeline func(ctx context.Context, block chain.Block) error

// Metrics is the small counter surface the watcher increments; the
// concrete implementation lives in package metrics and is injected here
// to keep this package free of a prometheus dependency.
type Metrics interface {
	BlockProcessed(network string)
	BlockSkipped(network string)
	BlockGap(network string)
	BlockDuplicate(network string)
	CursorLag(network string, lag int64)
}

type noopMetrics struct{}

func (noopMetrics) BlockProcessed(string)   {}
func (noopMetrics) BlockSkipped(string)     {}
func (noopMetrics) BlockGap(string)         {}
func (noopMetrics) BlockDuplicate(string)   {}
func (noopMetrics) CursorLag(string, int64) {}

// Options configures one network's Watcher.
type Options struct {
	Network  config.Network
	Pool     *clientpool.Pool
	Cursor   *cursorstore.Store
	Tracker  *blocktracker.Tracker
	Pipeline Pipeline
	Metrics  Metrics
	Logger   logger.Logger

	// Alerter is notified each time a network's streak of consecutive
	// pipeline errors reaches alertThreshold (once per streak; a
	// successful block resets the streak), so an operator can
	// tell a monitor repeatedly failing to decode one address apart from
	// an isolated bad block. Defaults to a no-op.
	Alerter util.Alerter
}

// alertThreshold is the number of consecutive skipped blocks on one
// network before the watcher escalates beyond a log line to Alerter.
const alertThreshold = 5

// Watcher drives one network's poll loop.
type Watcher struct {
	opts Options
	log  logger.Logger

	skipStreak int
}

// New validates opts and builds a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Pool == nil {
		return nil, fmt.Errorf("blockwatcher: pool is required")
	}
	if opts.Cursor == nil {
		return nil, fmt.Errorf("blockwatcher: cursor store is required")
	}
	if opts.Tracker == nil {
		opts.Tracker = blocktracker.New(64)
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("blockwatcher: pipeline is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger(logger.LogLevel_WARN)
	}
	if opts.Alerter == nil {
		opts.Alerter = util.NoopAlerter()
	}
	return &Watcher{opts: opts, log: opts.Logger}, nil
}

// Run executes the poll loop until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	network := w.opts.Network.Slug
	pollInterval := time.Duration(w.opts.Network.PollIntervalMS) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	if err := w.ensureColdStart(ctx); err != nil {
		return fmt.Errorf("blockwatcher: %s: cold start: %w", network, err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				w.log.Warnf("blockwatcher: network=%s tick failed, will retry next interval: %v", network, err)
			}
		}
	}
}

// ensureColdStart seeds the cursor at tip-confirmation_depth when no
// cursor has ever been persisted.
func (w *Watcher) ensureColdStart(ctx context.Context) error {
	network := w.opts.Network.Slug
	_, ok, err := w.opts.Cursor.GetLastProcessed(ctx, network)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	tip, err := w.opts.Pool.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}
	start := calc.Max(int64(tip)-int64(w.opts.Network.ConfirmationDepth), 0)
	return w.opts.Cursor.SetLastProcessed(ctx, network, uint64(start))
}

// tick runs one loop iteration: read cursor, compute target, fetch
// chunks in order, feed the pipeline, advance the cursor.
func (w *Watcher) tick(ctx context.Context) error {
	network := w.opts.Network.Slug

	cursor, ok, err := w.opts.Cursor.GetLastProcessed(ctx, network)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cursor disappeared for %q after cold start", network)
	}

	tip, err := w.opts.Pool.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}

	if tip < w.opts.Network.ConfirmationDepth {
		return nil // chain too young, nothing final yet
	}
	target := tip - w.opts.Network.ConfirmationDepth
	w.opts.Metrics.CursorLag(network, int64(target)-int64(cursor))
	if target <= cursor {
		return nil
	}

	maxRange := w.opts.Network.MaxBlockRange
	if maxRange == 0 {
		maxRange = 1
	}

	from := cursor + 1
	for from <= target {
		to := from + maxRange - 1
		if to > target {
			to = target
		}

		blocks, err := w.opts.Pool.GetBlocks(ctx, from, to)
		if err != nil {
			return fmt.Errorf("fetching %s blocks [%d,%d]: %w", network, from, to, err)
		}

		var numbers []uint64
		for _, b := range blocks {
			numbers = append(numbers, b.Number)
			if err := w.processBlock(ctx, b); err != nil {
				var gapErr blocktracker.ErrGap
				if errors.As(err, &gapErr) {
					w.opts.Tracker.Reset(network)
					w.opts.Metrics.BlockGap(network)
					w.log.Warnf("blockwatcher: network=%s gap detected (batch=%s): %v, aborting batch to re-fetch from cursor",
						network, blocktracker.Digest(network, numbers), gapErr)
					return fmt.Errorf("blockwatcher: %w, aborting batch to re-fetch from cursor", gapErr)
				}
				return err
			}
		}

		from = to + 1
	}

	return nil
}

// processBlock runs duplicate/gap detection, then the pipeline, then
// advances and persists the cursor. A permanent pipeline error is logged
// and swallowed so the cursor still advances.
func (w *Watcher) processBlock(ctx context.Context, b chain.Block) error {
	network := w.opts.Network.Slug

	dup, err := w.opts.Tracker.Observe(network, b.Number)
	if err != nil {
		return err // blocktracker.ErrGap, handled by caller
	}
	if dup {
		w.log.Warnf("blockwatcher: network=%s dropping duplicate block observation for #%d", network, b.Number)
		w.opts.Metrics.BlockDuplicate(network)
		return nil
	}

	if err := w.opts.Pipeline(ctx, b); err != nil {
		w.log.Errorf("blockwatcher: network=%s permanent pipeline error, skipping block #%d: %v", network, b.Number, err)
		w.opts.Metrics.BlockSkipped(network)
		w.skipStreak++
		if w.skipStreak == alertThreshold {
			w.opts.Alerter.Alert(ctx, "blockwatcher: network=%s has skipped %d consecutive blocks, last failure at #%d: %v",
				network, w.skipStreak, b.Number, err)
		}
	} else {
		w.opts.Metrics.BlockProcessed(network)
		w.skipStreak = 0
	}

	if err := w.opts.Cursor.SetLastProcessed(ctx, network, b.Number); err != nil {
		return fmt.Errorf("advancing cursor to %d: %w", b.Number, err)
	}
	return nil
}

// Supervisor runs one Watcher per network concurrently, each independent
// of the others, under a single errgroup for structured cancellation.
type Supervisor struct {
	watchers []*Watcher
}

// NewSupervisor wraps watchers for joint supervision.
func NewSupervisor(watchers ...*Watcher) *Supervisor {
	return &Supervisor{watchers: watchers}
}

// Run starts every watcher and blocks until ctx is cancelled or one
// watcher returns a fatal (non-nil) error.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range s.watchers {
		w := w
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	return g.Wait()
}
