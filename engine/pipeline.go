// Package engine wires the Filter Engine, Trigger Condition Runner, and
// Notification Dispatcher into one blockwatcher.Pipeline that every
// network's watcher shares.
// Every monitor applicable to the network sees every block; the monitor
// set is resolved from config and re-evaluated per block.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/goware/logger"

	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
	"github.com/sequenceos/chainmonitor/notify"
	"github.com/sequenceos/chainmonitor/trigger"
)

// Metrics is the counter surface this package reports through, beyond
// what blockwatcher/clientpool/notify already cover directly.
type Metrics interface {
	MatchEmitted(monitor string)
	ScriptVetoed(monitor string)
	ScriptTimeout(monitor string)
	ScriptFailed(monitor string)
}

type noopMetrics struct{}

func (noopMetrics) MatchEmitted(string)  {}
func (noopMetrics) ScriptVetoed(string)  {}
func (noopMetrics) ScriptTimeout(string) {}
func (noopMetrics) ScriptFailed(string)  {}

// Pipeline evaluates every configured monitor against one block, gates
// each candidate match through its monitor's trigger conditions, and
// enqueues whatever survives to the dispatcher.
type Pipeline struct {
	monitors   []config.Monitor
	dispatcher *notify.Dispatcher
	filter     *filter.Engine
	metrics    Metrics
	log        logger.Logger
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

func WithMetrics(m Metrics) Option        { return func(p *Pipeline) { p.metrics = m } }
func WithLogger(log logger.Logger) Option { return func(p *Pipeline) { p.log = log } }

// New builds a Pipeline over monitors. Pre-filtering monitors to one
// network is not required: the Filter Engine itself checks each
// monitor's Networks against the block.
func New(eng *filter.Engine, monitors []config.Monitor, dispatcher *notify.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		monitors:   monitors,
		dispatcher: dispatcher,
		filter:     eng,
		metrics:    noopMetrics{},
		log:        logger.NewLogger(logger.LogLevel_WARN),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// monitorByName resolves a single monitor's TriggerConditions and
// Triggers back from its name, since filter.Match only carries the name
// (it is also the literal gating-script payload).
func (p *Pipeline) monitorByName(name string) (config.Monitor, bool) {
	for _, m := range p.monitors {
		if m.Name == name {
			return m, true
		}
	}
	return config.Monitor{}, false
}

// Run satisfies blockwatcher.Pipeline: it decodes and matches block,
// gates every match through its monitor's trigger conditions (all must
// pass), and dispatches the survivors.
func (p *Pipeline) Run(ctx context.Context, block chain.Block) error {
	matches, err := p.filter.Run(block, p.monitors)
	if err != nil {
		return fmt.Errorf("engine: filtering block %d: %w", block.Number, err)
	}

	for _, m := range matches {
		p.metrics.MatchEmitted(m.MonitorName)

		mon, ok := p.monitorByName(m.MonitorName)
		if !ok {
			p.log.Errorf("engine: match for unknown monitor %q, dropping", m.MonitorName)
			continue
		}

		if !p.gate(ctx, mon, m) {
			continue
		}

		if err := p.dispatcher.Enqueue(ctx, mon, m); err != nil {
			return fmt.Errorf("engine: enqueueing match for monitor %q: %w", mon.Name, err)
		}
	}

	return nil
}

// gate runs mon's trigger conditions against candidate via
// trigger.EvaluateAll, attributing a non-pass to the right metric: a
// clean veto, a timeout, or any other evaluation failure (both of the
// latter drop the match the same as a veto, never retried).
func (p *Pipeline) gate(ctx context.Context, mon config.Monitor, candidate filter.Match) bool {
	passed, err := trigger.EvaluateAll(ctx, mon.TriggerConditions, candidate)
	if err == nil {
		return passed
	}

	switch {
	case errors.Is(err, trigger.ErrVetoed):
		p.metrics.ScriptVetoed(mon.Name)
	case errors.Is(err, trigger.ErrTimeout):
		p.metrics.ScriptTimeout(mon.Name)
	default:
		p.metrics.ScriptFailed(mon.Name)
	}
	p.log.Warnf("engine: monitor=%s tx=%s gating script did not pass: %v", mon.Name, candidate.TxHash, err)
	return false
}
