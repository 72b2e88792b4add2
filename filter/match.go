package filter

import (
	"strconv"

	"github.com/sequenceos/chainmonitor/chain"
)

// ConditionKind tags which of a monitor's three parallel condition arrays a
// Match's matched condition came from.
type ConditionKind string

const (
	ConditionTransaction ConditionKind = "transaction"
	ConditionFunction    ConditionKind = "function"
	ConditionEvent       ConditionKind = "event"
)

// MatchedCondition identifies exactly which declared condition fired,
// forming half of the dedup key.
type MatchedCondition struct {
	Kind      ConditionKind `json:"kind"`
	Signature string        `json:"signature,omitempty"` // canonical signature, empty for plain transaction conditions
	Index     int           `json:"index"`               // position within its match_conditions array, for multiple identical signatures
}

// Match is the immutable record emitted by the Filter Engine. It is also the literal payload written to a gating
// script's standard input, so every field carries a json tag.
type Match struct {
	MonitorName       string             `json:"monitor_name"`
	NetworkSlug       string             `json:"network_slug"`
	BlockNumber       uint64             `json:"block_number"`
	TxHash            string             `json:"tx_hash"`
	MatchedConditions []MatchedCondition `json:"matched_conditions"`
	DecodedArgs       []chain.NamedArg   `json:"decoded_args,omitempty"`
	Variables         map[string]any     `json:"variables"`
}

// DedupKey is the identity the engine collapses duplicate matches on
// within a single block, and the Dispatcher/cursor layer can reuse across
// restarts for idempotent redelivery.
// The key includes NetworkSlug, so dedup is per network: a monitor
// watching two forked networks that both report the same tx hash emits
// one match per network.
type DedupKey struct {
	NetworkSlug string
	TxHash      string
	MonitorName string
	ConditionID string
}

func (m Match) dedupKeys() []DedupKey {
	keys := make([]DedupKey, 0, len(m.MatchedConditions))
	for _, mc := range m.MatchedConditions {
		keys = append(keys, DedupKey{
			NetworkSlug: m.NetworkSlug,
			TxHash:      m.TxHash,
			MonitorName: m.MonitorName,
			ConditionID: conditionID(mc),
		})
	}
	return keys
}

func conditionID(mc MatchedCondition) string {
	return string(mc.Kind) + ":" + mc.Signature + ":" + strconv.Itoa(mc.Index)
}
