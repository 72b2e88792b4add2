// Package clientpool implements the Client Pool: it owns one or more
// clients per network and rotates to a healthy endpoint on transient
// failure, retrying through breaker.Do and rotating endpoints between
// attempts.
package clientpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goware/breaker"
	"github.com/goware/logger"

	"github.com/sequenceos/chainmonitor/chain"
)

// Client is the small chain-agnostic Blockchain Client contract
// that chainclient/evm.Client and chainclient/stellar.Client both satisfy.
type Client interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	GetBlocks(ctx context.Context, from, to uint64) ([]chain.Block, error)
}

// Endpoint pairs a Client with its configured weight, used to bias the
// round-robin rotation order.
type Endpoint struct {
	Client Client
	Weight int
	Label  string // e.g. the RPC URL, for logging only
}

// Metrics is the small counter surface the pool reports RPC failures
// through.
type Metrics interface {
	RPCError(network string)
}

type noopMetrics struct{}

func (noopMetrics) RPCError(string) {}

// Pool rotates across a network's endpoints on transient failure and
// retries with exponential backoff.
type Pool struct {
	NetworkSlug string
	log         logger.Logger
	metrics     Metrics

	mu        sync.Mutex
	order     []int // indices into endpoints, weight-expanded round-robin order
	pos       int
	endpoints []Endpoint
}

const (
	retryBase        = 250 * time.Millisecond
	retryFactor      = 2.0
	retryMaxAttempts = 5 // bounded attempt budget per pool call
)

// New builds a Pool for networkSlug from its configured endpoints. Weight
// expands each endpoint's presence in the rotation order so the
// round-robin favors higher-weighted endpoints (minimum weight 1).
func New(networkSlug string, log logger.Logger, metrics Metrics, endpoints []Endpoint) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("clientpool: network %q has no endpoints", networkSlug)
	}
	if log == nil {
		log = logger.NewLogger(logger.LogLevel_WARN)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	p := &Pool{NetworkSlug: networkSlug, log: log, metrics: metrics, endpoints: endpoints}
	for i, ep := range endpoints {
		weight := ep.Weight
		if weight < 1 {
			weight = 1
		}
		for j := 0; j < weight; j++ {
			p.order = append(p.order, i)
		}
	}
	return p, nil
}

// current returns the endpoint the pool is presently favoring. It does
// not move the rotation pointer; only rotate does, after a failure.
func (p *Pool) current() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.order[p.pos%len(p.order)]
	return p.endpoints[idx]
}

// rotate advances the rotation pointer by one slot so the next attempt
// uses the next entry of the weight-expanded order.
func (p *Pool) rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos++
}

// LatestBlockNumber queries the chain tip, retrying with endpoint
// rotation on transient failure.
func (p *Pool) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var tip uint64
	err := p.do(ctx, func(ctx context.Context, c Client) error {
		n, err := c.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}
		tip = n
		return nil
	})
	return tip, err
}

// GetBlocks fetches [from, to], retrying with endpoint rotation on
// transient failure.
func (p *Pool) GetBlocks(ctx context.Context, from, to uint64) ([]chain.Block, error) {
	var blocks []chain.Block
	err := p.do(ctx, func(ctx context.Context, c Client) error {
		b, err := c.GetBlocks(ctx, from, to)
		if err != nil {
			return err
		}
		blocks = b
		return nil
	})
	return blocks, err
}

func (p *Pool) do(ctx context.Context, fn func(context.Context, Client) error) error {
	return breaker.Do(ctx, func() error {
		ep := p.current()
		err := fn(ctx, ep.Client)
		if err != nil {
			p.metrics.RPCError(p.NetworkSlug)
			p.log.Warnf("clientpool: network=%s endpoint=%s call failed, rotating: %v", p.NetworkSlug, ep.Label, err)
			p.rotate()
		}
		return err
	}, nil, retryBase, retryFactor, retryMaxAttempts)
}
