package notify

import (
	"context"
	"errors"

	"github.com/sequenceos/chainmonitor/filter"
)

// ErrPermanent tags a delivery failure the dispatcher must not retry
// (4xx other than 429, a payload that cannot be encoded, an email trigger
// with no recipients). Adapters wrap their permanent errors with it;
// anything else is assumed transient and goes through the retry policy.
// Template rendering never fails, so it never produces this error.
var ErrPermanent = errors.New("notify: permanent delivery failure")

// deliverer is the capability every channel adapter implements: attempt
// one delivery of rendered to its channel. Retry/backoff lives above this
// interface in Dispatcher.deliverWithRetry.
type deliverer interface {
	deliver(ctx context.Context, rendered string, match filter.Match) error
}
