package ethrpc

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sequenceos/chainmonitor/ethrpc/jsonrpc"
)

type Call struct {
	request    jsonrpc.Message
	response   *jsonrpc.Message
	resultFn   func(message json.RawMessage) error
	err        error
	strictness StrictnessLevel
}

func (c Call) Strict(strictness StrictnessLevel) Call {
	c.strictness = strictness
	return c
}

func (c *Call) Error() string {
	if c == nil || c.err == nil {
		return ""
	}
	return c.err.Error()
}

func (c *Call) Unwrap() error {
	return c.err
}

type IntoFn[T any] func(raw json.RawMessage, ret *T, strictness StrictnessLevel) error

type CallBuilder[T any] struct {
	err        error
	method     string
	params     []any
	intoFn     IntoFn[T]
	strictness StrictnessLevel
}

func (b CallBuilder[T]) Strict(strictness StrictnessLevel) CallBuilder[T] {
	b.strictness = strictness
	return b
}

func (b CallBuilder[T]) Into(ret *T) Call {
	if b.err != nil {
		return Call{err: b.err}
	}
	return Call{
		request: jsonrpc.NewRequest(0, b.method, b.params),
		resultFn: func(message json.RawMessage) error {
			if ret == nil {
				return nil
			}
			if b.intoFn != nil {
				return b.intoFn(message, ret, b.strictness)
			}
			return json.Unmarshal(message, ret)
		},
	}
}

var Pending = big.NewInt(-1)

func toBlockNumArg(blockNum *big.Int) string {
	if blockNum == nil {
		return "latest"
	}
	if blockNum.Cmp(Pending) == 0 {
		return "pending"
	}
	return hexutil.EncodeBig(blockNum)
}

func hexIntoUint64(message json.RawMessage, ret *uint64, strictness StrictnessLevel) error {
	if len(message) == 4 && string(message) == "null" {
		*ret = 0
		return nil
	}

	var result hexutil.Uint64
	if err := json.Unmarshal(message, &result); err != nil {
		return err
	}
	*ret = uint64(result)
	return nil
}
