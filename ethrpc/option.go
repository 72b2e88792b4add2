package ethrpc

import (
	"net/http"

	"github.com/goware/logger"
)

type Option func(*Provider)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func WithHTTPClient(c httpClient) Option {
	return func(p *Provider) {
		p.SetHTTPClient(c)
	}
}

func WithLogger(log logger.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// 0: semi-strict transactions – validates only transaction V, R, S values (default)
// 1: disabled, no validation on blocks or transactions
// 2: strict block and transactions – validates block hash and transaction V, R, S values
func WithStrictness(strictness StrictnessLevel) Option {
	return func(p *Provider) {
		p.strictness = strictness
	}
}

func WithSemiValidation() Option {
	return func(p *Provider) {
		p.strictness = StrictnessLevel_Semi
	}
}

func WithStrictValidation() Option {
	return func(p *Provider) {
		p.strictness = StrictnessLevel_Strict
	}
}
