// Package chain defines the chain-family-tagged data model shared by every
// network the monitor watches: blocks, transactions, logs, and the decoded
// call/event shapes the filter engine matches against.
//
// Concrete chains (EVM, Stellar) each project their native representation
// into this common shape so the block watcher and filter engine can stay
// chain-agnostic.
package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Family identifies which concrete chain implementation produced a Block.
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilyStellar Family = "stellar"
)

// Status is the outcome of a transaction, used by the transaction-level
// match condition.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusUnknown Status = "unknown"
)

// Log is the chain-agnostic projection of an EVM event log / Stellar
// contract effect: an address, an ordered topic list (topic[0] is the
// event signature hash for EVM), and opaque payload data.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
	Index   uint
}

// Transaction is the chain-agnostic projection of one on-chain
// transaction/operation.
type Transaction struct {
	Hash    common.Hash
	Index   uint
	From    common.Address
	To      *common.Address // nil for contract creation
	Value   *big.Int
	Input   []byte
	GasUsed uint64
	Status  Status
	Logs    []Log
}

// Block is the chain-agnostic projection of one finalized block.
type Block struct {
	Family       Family
	NetworkSlug  string
	Number       uint64
	Hash         common.Hash
	ParentHash   common.Hash
	Timestamp    time.Time
	Transactions []Transaction
}

// NamedArg is one decoded, named argument of a function call or event.
type NamedArg struct {
	Name  string `json:"name"`
	Type  string `json:"type"` // ABI canonical type, e.g. "uint256", "address[]"
	Value any    `json:"value"`
}

// DecodedCall is the result of decoding a transaction's input data against
// a watched address's contract spec.
type DecodedCall struct {
	Signature string // canonical, e.g. "transfer(address,uint256)"
	Args      []NamedArg
}

// DecodedEvent is the result of decoding one log against a watched
// address's contract spec.
type DecodedEvent struct {
	Signature string
	Args      []NamedArg
}

// ArgMap flattens NamedArg slices into name->value for the expression
// evaluator and template renderer.
func ArgMap(args []NamedArg) map[string]any {
	m := make(map[string]any, len(args))
	for _, a := range args {
		m[a.Name] = a.Value
	}
	return m
}
