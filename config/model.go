// Package config loads and validates the declarative JSON configuration
// of the monitoring engine: one directory each for networks, monitors, and
// triggers, one file per entity. Unknown fields are rejected and every
// cross-reference (monitor -> network, monitor -> trigger) is resolved at
// load time; any problem is a fatal, non-retryable config.Error.
package config

import (
	"fmt"

	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/expr"
)

// Endpoint is one weighted RPC endpoint for a network.
type Endpoint struct {
	URL     string            `json:"url"`
	WSURL   string            `json:"ws_url,omitempty"`
	Weight  int               `json:"weight"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Network is the immutable description of one blockchain network.
type Network struct {
	Slug              string       `json:"slug"`
	Family            chain.Family `json:"family"`
	Endpoints         []Endpoint   `json:"endpoints"`
	ConfirmationDepth uint64       `json:"confirmation_depth"`
	PollIntervalMS    int64        `json:"poll_interval_ms"`
	MaxBlockRange     uint64       `json:"max_block_range"`
	RequestTimeoutMS  int64        `json:"request_timeout_ms"`
}

// ABIParam is one typed, optionally indexed parameter of a function or
// event signature in a contract spec.
type ABIParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

// ABIEntry is one function or event signature within a contract spec.
type ABIEntry struct {
	Name   string     `json:"name"`
	Type   string     `json:"type"` // "function" | "event"
	Inputs []ABIParam `json:"inputs"`
}

// ContractSpec is an ABI-like description of the functions/events a
// watched address exposes.
type ContractSpec struct {
	ABI []ABIEntry `json:"abi"`
}

// WatchedAddress is one address a monitor observes, with its optional
// decoding rule.
type WatchedAddress struct {
	Address  string        `json:"address"`
	Contract *ContractSpec `json:"contract,omitempty"`
}

// ConditionSpec is one entry of match_conditions.{functions,events,transactions}.
type ConditionSpec struct {
	Signature  string `json:"signature,omitempty"` // empty for plain transaction conditions
	Expression string `json:"expression,omitempty"`
	Status     string `json:"status,omitempty"` // transactions only: "success" | "failure" | "" (any)

	// Parsed is the pre-parsed expression AST, built once at load time.
	Parsed expr.Node `json:"-"`
}

// MatchConditions holds the three parallel condition arrays of a monitor.
type MatchConditions struct {
	Functions    []ConditionSpec `json:"functions,omitempty"`
	Events       []ConditionSpec `json:"events,omitempty"`
	Transactions []ConditionSpec `json:"transactions,omitempty"`
}

// TriggerCondition is one external gating script reference.
type TriggerCondition struct {
	Path      string   `json:"path"`
	Language  string   `json:"language"` // "bash" | "python" | "js"
	Args      []string `json:"args,omitempty"`
	TimeoutMS int64    `json:"timeout_ms"`
}

// Monitor is a named match rule.
type Monitor struct {
	Name              string             `json:"name"`
	Paused            bool               `json:"paused"`
	Networks          []string           `json:"networks"`
	Addresses         []WatchedAddress   `json:"addresses"`
	MatchConditions   MatchConditions    `json:"match_conditions"`
	TriggerConditions []TriggerCondition `json:"trigger_conditions,omitempty"`
	Triggers          []string           `json:"triggers"`
}

// TriggerType tags the notification sink variant.
type TriggerType string

const (
	TriggerSlack    TriggerType = "slack"
	TriggerEmail    TriggerType = "email"
	TriggerDiscord  TriggerType = "discord"
	TriggerTelegram TriggerType = "telegram"
	TriggerWebhook  TriggerType = "webhook"
	TriggerScript   TriggerType = "script"
	TriggerDatabase TriggerType = "database"
)

// Trigger is a named notification sink, variant-tagged by Type. Only the
// fields relevant to Type are populated; the rest are the zero value.
type Trigger struct {
	Name     string      `json:"name"`
	Type     TriggerType `json:"type"`
	Template string      `json:"template"`

	// slack / discord / webhook
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"` // webhook only, default POST
	Headers map[string]string `json:"headers,omitempty"`

	// email
	SMTPHost   string   `json:"smtp_host,omitempty"`
	SMTPPort   int      `json:"smtp_port,omitempty"`
	Username   string   `json:"username,omitempty"`
	Password   string   `json:"password,omitempty"`
	From       string   `json:"from,omitempty"`
	Recipients []string `json:"recipients,omitempty"`

	// telegram
	BotToken string `json:"bot_token,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`

	// script
	ScriptPath string   `json:"script_path,omitempty"`
	ScriptArgs []string `json:"script_args,omitempty"`

	// database
	DSN       string `json:"dsn,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

// Error is a fatal, startup-phase configuration problem.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
