package ethcoder

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func Keccak256(input []byte) []byte {
	return crypto.Keccak256(input)
}

func Sha3HashFromBytes(input []byte) string {
	return hexutil.Encode(Keccak256(input))
}

func Sha3Hash(input string) string {
	return Sha3HashFromBytes([]byte(input))
}

// FunctionSignature returns the 4-byte selector hex for a function
// signature, ie. "balanceOf(address,uint256)" => "0x00fdd58e".
func FunctionSignature(functionExpr string) string {
	return hexutil.Encode(Keccak256([]byte(functionExpr))[0:4])
}

func BytesToBytes32(slice []byte) [32]byte {
	var bytes32 [32]byte
	copy(bytes32[:], slice)
	return bytes32
}

func AddressPadding(input string) string {
	if strings.HasPrefix(input, "0x") {
		input = input[2:]
	}
	if len(input) < 64 {
		input = strings.Repeat("0", 64-len(input)) + input
	}
	return input[0:64]
}
