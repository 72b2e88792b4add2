// Package filter implements the Filter Engine: a stateless transformer
// turning one (block, []monitor) pair into the list of Monitor Matches
// those monitors produce. Signature canonicalisation goes through
// ethcoder; decoding happens only against each watched address's
// declared contract spec, per monitor.
package filter

import (
	"strings"
	"sync"
	"time"

	"github.com/goware/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/expr"
)

// exprErrorWindow is the rate-limit window for expression-evaluation
// error logs, keyed per (monitor, signature) pair.
const exprErrorWindow = 1 * time.Minute

// Engine evaluates monitors against blocks. It is chain-agnostic: Decoders
// maps a chain.Family to the Decoder implementation for that family.
type Engine struct {
	Decoders map[chain.Family]Decoder

	log        logger.Logger
	exprErrors *errorDedup
	canonSigs  sync.Map // declared signature -> canonical form, "" if invalid
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the logger decode errors and rate-limited
// expression-evaluation errors are reported
// through. Defaults to a WARN-level logger.NewLogger, the same default
// every other long-lived component in this module falls back to.
func WithLogger(log logger.Logger) Option { return func(e *Engine) { e.log = log } }

// New builds an Engine wired with the given per-family decoders.
func New(decoders map[chain.Family]Decoder, opts ...Option) *Engine {
	e := &Engine{
		Decoders:   decoders,
		log:        logger.NewLogger(logger.LogLevel_WARN),
		exprErrors: newErrorDedup(exprErrorWindow),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates every monitor applicable to block.NetworkSlug against
// block, returning matches in (transaction-index, log-index) order,
// with duplicate (tx, monitor, condition) matches inside the block
// collapsed.
//
// A malformed transaction or log never aborts the block: decode failures are caught and logged inside
// matchTransaction, which always returns cleanly.
func (e *Engine) Run(block chain.Block, monitors []config.Monitor) ([]Match, error) {
	decoder, ok := e.Decoders[block.Family]
	if !ok {
		return nil, nil
	}

	seen := make(map[DedupKey]struct{})
	var out []Match

	for _, tx := range block.Transactions {
		for _, mon := range monitors {
			if mon.Paused || !appliesToNetwork(mon, block.NetworkSlug) {
				continue
			}

			matches := e.matchTransaction(decoder, block, tx, mon)

			for _, m := range matches {
				dup := false
				for _, k := range m.dedupKeys() {
					if _, ok := seen[k]; ok {
						dup = true
						break
					}
				}
				if dup {
					continue
				}
				for _, k := range m.dedupKeys() {
					seen[k] = struct{}{}
				}
				out = append(out, m)
			}
		}
	}

	return out, nil
}

// matchTransaction runs the full per-monitor, per-transaction pipeline:
// address filter, transaction-level conditions, function-call decode and
// match, then per-log event decode and match. A
// decode error on the call or on any one log is logged with block/tx
// identifiers and that piece is skipped; it never aborts the rest of the
// transaction or the block.
func (e *Engine) matchTransaction(decoder Decoder, block chain.Block, tx chain.Transaction, mon config.Monitor) []Match {
	if len(mon.Addresses) > 0 && !addressFilterPasses(mon, tx) {
		return nil
	}

	vars := ambientVars(block, tx)
	var matches []Match

	for i, cond := range mon.MatchConditions.Transactions {
		if cond.Status != "" && !strings.EqualFold(cond.Status, string(tx.Status)) {
			continue
		}
		ok, err := evalCondition(cond, vars)
		if err != nil {
			e.logExprError(mon.Name, cond.Expression, block, tx, err)
			continue
		}
		if !ok {
			continue
		}
		matches = append(matches, newMatch(mon, block, tx, MatchedCondition{Kind: ConditionTransaction, Index: i}, nil, vars))
	}

	spec := watchedContractSpec(mon, tx.To)
	if spec != nil && len(tx.Input) >= 4 {
		call, ok, err := decoder.DecodeCall(tx.Input, spec)
		if err != nil {
			e.logDecodeError(block, tx, "call", err)
		} else if ok {
			argVars := mergeVars(vars, chain.ArgMap(call.Args))
			for i, cond := range mon.MatchConditions.Functions {
				if !e.signatureMatches(cond.Signature, call.Signature) {
					continue
				}
				matched, err := evalCondition(cond, argVars)
				if err != nil {
					e.logExprError(mon.Name, call.Signature, block, tx, err)
					continue
				}
				if !matched {
					continue
				}
				matches = append(matches, newMatch(mon, block, tx, MatchedCondition{Kind: ConditionFunction, Signature: call.Signature, Index: i}, call.Args, argVars))
			}
		}
	}

	for _, log := range tx.Logs {
		logSpec := watchedContractSpecForAddress(mon, log.Address)
		if logSpec == nil {
			continue
		}
		event, ok, err := decoder.DecodeEvent(log, logSpec)
		if err != nil {
			e.logDecodeError(block, tx, "event", err)
			continue
		}
		if !ok {
			continue
		}
		argVars := mergeVars(vars, chain.ArgMap(event.Args))
		for i, cond := range mon.MatchConditions.Events {
			if !e.signatureMatches(cond.Signature, event.Signature) {
				continue
			}
			matched, err := evalCondition(cond, argVars)
			if err != nil {
				e.logExprError(mon.Name, event.Signature, block, tx, err)
				continue
			}
			if !matched {
				continue
			}
			matches = append(matches, newMatch(mon, block, tx, MatchedCondition{Kind: ConditionEvent, Signature: event.Signature, Index: i}, event.Args, argVars))
		}
	}

	return matches
}

// signatureMatches compares a monitor-declared signature against the
// decoder's canonical form, normalising the declared side first.
// Canonicalisations are cached: monitors reuse the same handful of
// signatures for every block.
func (e *Engine) signatureMatches(declared, canonical string) bool {
	if declared == canonical {
		return true
	}
	if cached, ok := e.canonSigs.Load(declared); ok {
		return cached.(string) == canonical
	}
	canon, err := CanonicalSignature(declared)
	if err != nil {
		canon = ""
		e.log.Warnf("filter: invalid condition signature %q: %v", declared, err)
	}
	e.canonSigs.Store(declared, canon)
	return canon != "" && canon == canonical
}

// logDecodeError reports a call/log decode failure with the block/tx
// identifiers. Decode errors are not rate-limited: each
// malformed transaction or log is its own event worth seeing.
func (e *Engine) logDecodeError(block chain.Block, tx chain.Transaction, what string, err error) {
	e.log.Warnf("filter: network=%s block=%d tx=%s %s decode error, skipping: %v",
		block.NetworkSlug, block.Number, tx.Hash.Hex(), what, err)
}

// logExprError reports an expression-evaluation error, rate-limited to
// once per (monitor, signature) pair per exprErrorWindow, still naming the block/tx that tripped it.
func (e *Engine) logExprError(monitor, signature string, block chain.Block, tx chain.Transaction, err error) {
	if !e.exprErrors.allow(monitor, signature) {
		return
	}
	e.log.Warnf("filter: monitor=%s signature=%s network=%s block=%d tx=%s expression error: %v",
		monitor, signature, block.NetworkSlug, block.Number, tx.Hash.Hex(), err)
}

func evalCondition(cond config.ConditionSpec, vars expr.Vars) (bool, error) {
	if cond.Expression == "" {
		return true, nil
	}
	return expr.Eval(&cond.Parsed, vars)
}

func appliesToNetwork(mon config.Monitor, slug string) bool {
	for _, n := range mon.Networks {
		if n == slug {
			return true
		}
	}
	return false
}

// addressFilterPasses is the first gate: reject a transaction
// whose `to`, logs' addresses, or (for Stellar) operation target does not
// intersect the monitor's watched addresses.
func addressFilterPasses(mon config.Monitor, tx chain.Transaction) bool {
	for _, wa := range mon.Addresses {
		if tx.To != nil && strings.EqualFold(tx.To.Hex(), wa.Address) {
			return true
		}
		for _, log := range tx.Logs {
			if strings.EqualFold(log.Address.Hex(), wa.Address) {
				return true
			}
		}
	}
	return false
}

func watchedContractSpec(mon config.Monitor, to *common.Address) *config.ContractSpec {
	if to == nil {
		return nil
	}
	return watchedContractSpecForAddress(mon, *to)
}

func watchedContractSpecForAddress(mon config.Monitor, addr common.Address) *config.ContractSpec {
	for _, wa := range mon.Addresses {
		if strings.EqualFold(addr.Hex(), wa.Address) {
			return wa.Contract
		}
	}
	return nil
}

func newMatch(mon config.Monitor, block chain.Block, tx chain.Transaction, mc MatchedCondition, args []chain.NamedArg, vars expr.Vars) Match {
	return Match{
		MonitorName:       mon.Name,
		NetworkSlug:       block.NetworkSlug,
		BlockNumber:       block.Number,
		TxHash:            tx.Hash.Hex(),
		MatchedConditions: []MatchedCondition{mc},
		DecodedArgs:       args,
		Variables:         vars,
	}
}

// ambientVars builds the small set of identifiers the expression language
// falls back to when a name is not a decoded arg (mergeVars lets decoded
// args override them).
func ambientVars(block chain.Block, tx chain.Transaction) map[string]any {
	v := map[string]any{
		"status":       string(tx.Status),
		"block_number": block.Number,
		"tx_hash":      tx.Hash.Hex(),
		"value":        tx.Value,
		"gas_used":     tx.GasUsed,
		"from":         tx.From.Hex(),
	}
	if tx.To != nil {
		v["to"] = tx.To.Hex()
	}
	return v
}

func mergeVars(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
