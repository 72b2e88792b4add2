package filter

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/ethcoder"
)

// StellarDecoder implements Decoder against Horizon's operation/effect
// model. chainclient/stellar.Client
// projects each ledger operation as a synthetic chain.Log whose Data is
// the operation's type string (e.g. "payment", "create_account"); this
// decoder matches that string against a contract spec's declared
// operation entries. There is no function-call analogue on Stellar, so
// DecodeCall always reports no match.
type StellarDecoder struct{}

var _ Decoder = StellarDecoder{}

// DecodeCall always reports no match: Stellar transactions carry no
// calldata-equivalent for the engine to decode.
func (StellarDecoder) DecodeCall(input []byte, spec *config.ContractSpec) (chain.DecodedCall, bool, error) {
	return chain.DecodedCall{}, false, nil
}

// DecodeEvent matches log.Data (the operation type string) against
// spec's declared "operation" entries by name.
func (StellarDecoder) DecodeEvent(log chain.Log, spec *config.ContractSpec) (chain.DecodedEvent, bool, error) {
	if spec == nil || len(log.Data) == 0 {
		return chain.DecodedEvent{}, false, nil
	}
	opType := string(log.Data)

	for _, entry := range spec.ABI {
		if entry.Type != "operation" {
			continue
		}
		if !strings.EqualFold(entry.Name, opType) {
			continue
		}
		return chain.DecodedEvent{Signature: entry.Name}, true, nil
	}

	return chain.DecodedEvent{}, false, nil
}

// CanonicalEventTopic returns the Keccak256 hash of signature exactly as
// given; unlike EVMDecoder, it does not canonicalise the signature first.
func (StellarDecoder) CanonicalEventTopic(signature string) (common.Hash, error) {
	return ethcoder.Keccak256Hash([]byte(signature)), nil
}
