package filter_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/expr"
	"github.com/sequenceos/chainmonitor/filter"
)

func erc20TransferSpec() *config.ContractSpec {
	return &config.ContractSpec{
		ABI: []config.ABIEntry{
			{
				Name: "Transfer",
				Type: "event",
				Inputs: []config.ABIParam{
					{Name: "from", Type: "address", Indexed: true},
					{Name: "to", Type: "address", Indexed: true},
					{Name: "value", Type: "uint256"},
				},
			},
			{
				Name: "transfer",
				Type: "function",
				Inputs: []config.ABIParam{
					{Name: "to", Type: "address"},
					{Name: "amount", Type: "uint256"},
				},
			},
		},
	}
}

func mustParseExpr(t *testing.T, src string) expr.Node {
	t.Helper()
	n, err := expr.Parse(src)
	require.NoError(t, err)
	return n
}

func TestEngine_EventMatch(t *testing.T) {
	decoder := filter.EVMDecoder{}
	tokenAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fromAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	toAddr := common.HexToAddress("0x3333333333333333333333333333333333333333")

	topic, err := decoder.CanonicalEventTopic("Transfer(address indexed from, address indexed to, uint256 value)")
	require.NoError(t, err)

	value := make([]byte, 32)
	big.NewInt(5000).FillBytes(value)

	block := chain.Block{
		Family:      chain.FamilyEVM,
		NetworkSlug: "ethereum_mainnet",
		Number:      100,
		Transactions: []chain.Transaction{
			{
				Hash:   common.HexToHash("0xaaaa"),
				From:   fromAddr,
				To:     &tokenAddr,
				Value:  big.NewInt(0),
				Status: chain.StatusSuccess,
				Logs: []chain.Log{
					{
						Address: tokenAddr,
						Topics: []common.Hash{
							topic,
							common.BytesToHash(fromAddr.Bytes()),
							common.BytesToHash(toAddr.Bytes()),
						},
						Data: value,
					},
				},
			},
		},
	}

	cond := config.ConditionSpec{
		Signature:  "Transfer(address,address,uint256)",
		Expression: `value > 1000`,
	}
	cond.Parsed = mustParseExpr(t, cond.Expression)

	mon := config.Monitor{
		Name:     "big-transfers",
		Networks: []string{"ethereum_mainnet"},
		Addresses: []config.WatchedAddress{
			{Address: tokenAddr.Hex(), Contract: erc20TransferSpec()},
		},
		MatchConditions: config.MatchConditions{
			Events: []config.ConditionSpec{cond},
		},
	}

	engine := filter.New(map[chain.Family]filter.Decoder{chain.FamilyEVM: decoder})
	matches, err := engine.Run(block, []config.Monitor{mon})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "big-transfers", matches[0].MonitorName)
	assert.Equal(t, filter.ConditionEvent, matches[0].MatchedConditions[0].Kind)
	assert.Equal(t, "Transfer(address,address,uint256)", matches[0].MatchedConditions[0].Signature)
}

func TestEngine_AddressFilterRejectsUnwatched(t *testing.T) {
	decoder := filter.EVMDecoder{}
	watched := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")

	block := chain.Block{
		Family:      chain.FamilyEVM,
		NetworkSlug: "ethereum_mainnet",
		Number:      1,
		Transactions: []chain.Transaction{
			{Hash: common.HexToHash("0xbbbb"), To: &other, Status: chain.StatusSuccess},
		},
	}

	mon := config.Monitor{
		Name:      "watch-one",
		Networks:  []string{"ethereum_mainnet"},
		Addresses: []config.WatchedAddress{{Address: watched.Hex()}},
		MatchConditions: config.MatchConditions{
			Transactions: []config.ConditionSpec{{}},
		},
	}

	engine := filter.New(map[chain.Family]filter.Decoder{chain.FamilyEVM: decoder})
	matches, err := engine.Run(block, []config.Monitor{mon})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_TransactionStatusFilter(t *testing.T) {
	decoder := filter.EVMDecoder{}
	block := chain.Block{
		Family:      chain.FamilyEVM,
		NetworkSlug: "ethereum_mainnet",
		Number:      1,
		Transactions: []chain.Transaction{
			{Hash: common.HexToHash("0xcccc"), Status: chain.StatusFailure},
		},
	}

	mon := config.Monitor{
		Name:     "failures",
		Networks: []string{"ethereum_mainnet"},
		MatchConditions: config.MatchConditions{
			Transactions: []config.ConditionSpec{{Status: "failure"}},
		},
	}

	engine := filter.New(map[chain.Family]filter.Decoder{chain.FamilyEVM: decoder})
	matches, err := engine.Run(block, []config.Monitor{mon})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filter.ConditionTransaction, matches[0].MatchedConditions[0].Kind)
}

func TestEngine_PausedMonitorProducesNoMatches(t *testing.T) {
	decoder := filter.EVMDecoder{}
	block := chain.Block{
		Family:      chain.FamilyEVM,
		NetworkSlug: "ethereum_mainnet",
		Number:      1,
		Transactions: []chain.Transaction{
			{Hash: common.HexToHash("0xdddd"), Status: chain.StatusSuccess},
		},
	}

	mon := config.Monitor{
		Name:     "paused-monitor",
		Paused:   true,
		Networks: []string{"ethereum_mainnet"},
		MatchConditions: config.MatchConditions{
			Transactions: []config.ConditionSpec{{}},
		},
	}

	engine := filter.New(map[chain.Family]filter.Decoder{chain.FamilyEVM: decoder})
	matches, err := engine.Run(block, []config.Monitor{mon})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_ReprocessingSameBlockDedupsWithinRun(t *testing.T) {
	decoder := filter.EVMDecoder{}
	tx := chain.Transaction{Hash: common.HexToHash("0xeeee"), Status: chain.StatusSuccess}
	block := chain.Block{
		Family:       chain.FamilyEVM,
		NetworkSlug:  "ethereum_mainnet",
		Number:       7,
		Transactions: []chain.Transaction{tx, tx}, // same tx observed twice
	}

	mon := config.Monitor{
		Name:     "all-success",
		Networks: []string{"ethereum_mainnet"},
		MatchConditions: config.MatchConditions{
			Transactions: []config.ConditionSpec{{Status: "success"}},
		},
	}

	engine := filter.New(map[chain.Family]filter.Decoder{chain.FamilyEVM: decoder})
	matches, err := engine.Run(block, []config.Monitor{mon})
	require.NoError(t, err)
	require.Len(t, matches, 1, "duplicate (tx, monitor, condition) inside one block must collapse")
}
