package filter

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/ethcoder"
)

// Decoder is the small chain-agnostic capability set the Filter Engine
// depends on. EVM and Stellar each supply a
// concrete implementation.
type Decoder interface {
	// DecodeCall decodes a transaction's input data against spec. ok is
	// false (with a nil error) when the input's 4-byte selector matches
	// no entry in spec.
	DecodeCall(input []byte, spec *config.ContractSpec) (call chain.DecodedCall, ok bool, err error)

	// DecodeEvent decodes one log against spec. ok is false (with a nil
	// error) when the log's topic[0] matches no entry in spec.
	DecodeEvent(log chain.Log, spec *config.ContractSpec) (event chain.DecodedEvent, ok bool, err error)

	// CanonicalEventTopic returns the keccak256 topic hash for an event's
	// canonical signature, the same hash DecodeEvent compares against a
	// log's topic[0].
	CanonicalEventTopic(signature string) (common.Hash, error)
}

// EVMDecoder implements Decoder against the go-ethereum ABI packages,
// decoding calls and events against one watched address's declared
// contract spec.
type EVMDecoder struct{}

var _ Decoder = EVMDecoder{}

func (EVMDecoder) CanonicalEventTopic(signature string) (common.Hash, error) {
	canon, err := CanonicalSignature(signature)
	if err != nil {
		return common.Hash{}, err
	}
	return ethcoder.Keccak256Hash([]byte(canon)), nil
}

func (d EVMDecoder) DecodeCall(input []byte, spec *config.ContractSpec) (chain.DecodedCall, bool, error) {
	if spec == nil || len(input) < 4 {
		return chain.DecodedCall{}, false, nil
	}
	selector := input[:4]

	for _, entry := range spec.ABI {
		if entry.Type != "function" {
			continue
		}
		sig, args, err := entryArguments(entry)
		if err != nil {
			return chain.DecodedCall{}, false, fmt.Errorf("filter: building abi for %q: %w", entry.Name, err)
		}
		canon, err := CanonicalSignature(sig)
		if err != nil {
			return chain.DecodedCall{}, false, err
		}
		if !selectorMatches(canon, selector) {
			continue
		}

		values, err := args.Unpack(input[4:])
		if err != nil {
			return chain.DecodedCall{}, false, fmt.Errorf("filter: decoding call %q: %w", canon, err)
		}
		return chain.DecodedCall{Signature: canon, Args: namedArgs(entry.Inputs, values)}, true, nil
	}

	return chain.DecodedCall{}, false, nil
}

func (d EVMDecoder) DecodeEvent(log chain.Log, spec *config.ContractSpec) (chain.DecodedEvent, bool, error) {
	if spec == nil || len(log.Topics) == 0 {
		return chain.DecodedEvent{}, false, nil
	}

	for _, entry := range spec.ABI {
		if entry.Type != "event" {
			continue
		}
		sig, _, err := entryArguments(entry)
		if err != nil {
			return chain.DecodedEvent{}, false, fmt.Errorf("filter: building abi for %q: %w", entry.Name, err)
		}
		canon, err := CanonicalSignature(sig)
		if err != nil {
			return chain.DecodedEvent{}, false, err
		}
		topic := ethcoder.Keccak256Hash([]byte(canon))
		if log.Topics[0] != topic {
			continue
		}

		event, err := decodeEventArgs(entry, log)
		if err != nil {
			return chain.DecodedEvent{}, false, fmt.Errorf("filter: decoding event %q: %w", canon, err)
		}
		event.Signature = canon
		return event, true, nil
	}

	return chain.DecodedEvent{}, false, nil
}

// entryArguments builds the plain "Name(type,type,...)" signature string
// for an ABIEntry, used both for canonicalisation and (for functions) to
// build the abi.Arguments needed to unpack the call payload.
func entryArguments(entry config.ABIEntry) (string, abi.Arguments, error) {
	var sb strings.Builder
	sb.WriteString(entry.Name)
	sb.WriteByte('(')
	args := make(abi.Arguments, 0, len(entry.Inputs))
	for i, in := range entry.Inputs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(in.Type)
		abiType, err := abi.NewType(in.Type, "", nil)
		if err != nil {
			return "", nil, err
		}
		args = append(args, abi.Argument{Name: in.Name, Type: abiType, Indexed: in.Indexed})
	}
	sb.WriteByte(')')
	return sb.String(), args, nil
}

func selectorMatches(canonSig string, selector []byte) bool {
	topic := ethcoder.Keccak256([]byte(canonSig))
	return len(topic) >= 4 && string(topic[:4]) == string(selector)
}

// decodeEventArgs splits indexed args (from log.Topics[1:], each a single
// 32-byte word) from non-indexed args (packed in log.Data), the same
// split ethcoder.EventDecoder.DecodeLog performs.
func decodeEventArgs(entry config.ABIEntry, log chain.Log) (chain.DecodedEvent, error) {
	var indexedArgs, dataArgs abi.Arguments
	var indexedInputs, dataInputs []config.ABIParam

	for _, in := range entry.Inputs {
		abiType, err := abi.NewType(in.Type, "", nil)
		if err != nil {
			return chain.DecodedEvent{}, err
		}
		arg := abi.Argument{Name: in.Name, Type: abiType, Indexed: in.Indexed}
		if in.Indexed {
			indexedArgs = append(indexedArgs, arg)
			indexedInputs = append(indexedInputs, in)
		} else {
			dataArgs = append(dataArgs, arg)
			dataInputs = append(dataInputs, in)
		}
	}

	if len(indexedArgs) != len(log.Topics)-1 {
		return chain.DecodedEvent{}, fmt.Errorf("indexed arg count %d does not match topic count %d", len(indexedArgs), len(log.Topics)-1)
	}

	out := make([]chain.NamedArg, 0, len(entry.Inputs))

	for i, arg := range indexedArgs {
		topic := log.Topics[i+1]
		v, err := unpackIndexed(arg, topic.Bytes())
		if err != nil {
			return chain.DecodedEvent{}, err
		}
		out = append(out, chain.NamedArg{Name: indexedInputs[i].Name, Type: indexedInputs[i].Type, Value: v})
	}

	if len(dataArgs) > 0 {
		values, err := dataArgs.Unpack(log.Data)
		if err != nil {
			return chain.DecodedEvent{}, err
		}
		dataNamed := namedArgs(dataInputs, values)
		out = append(out, dataNamed...)
	}

	return chain.DecodedEvent{Args: out}, nil
}

// unpackIndexed decodes a single 32-byte indexed topic word using the
// same single-argument Arguments.Unpack machinery used for data args,
// since go-ethereum's abi.Arguments handles static-type topic decoding
// identically to a single-word data tuple.
func unpackIndexed(arg abi.Argument, word []byte) (any, error) {
	single := abi.Arguments{{Type: arg.Type}}
	values, err := single.Unpack(word)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("expected exactly one decoded value for indexed arg %q", arg.Name)
	}
	return values[0], nil
}

func namedArgs(inputs []config.ABIParam, values []any) []chain.NamedArg {
	out := make([]chain.NamedArg, 0, len(inputs))
	for i, in := range inputs {
		var v any
		if i < len(values) {
			v = values[i]
		}
		out = append(out, chain.NamedArg{Name: in.Name, Type: in.Type, Value: v})
	}
	return out
}
