package ethcoder

import (
	"github.com/ethereum/go-ethereum/common"
)

func Keccak256Hash(input []byte) common.Hash {
	return common.BytesToHash(Keccak256(input))
}

func SHA3(input []byte) common.Hash {
	return Keccak256Hash(input)
}
