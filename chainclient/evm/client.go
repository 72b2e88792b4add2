// Package evm implements the chain-agnostic Blockchain Client contract
// for EVM networks, driving an *ethrpc.Provider for tip, block, and
// receipt lookups.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sequenceos/chainmonitor/chain"
	"github.com/sequenceos/chainmonitor/ethrpc"
	"github.com/sequenceos/chainmonitor/ethutil"
)

// ErrReceiptsUnavailable reports a block whose receipt/log set does not
// match its header bloom, which is what a pruned archive node returns for
// old blocks. It is transient: the Client Pool rotates to another
// endpoint and retries rather than advancing past an under-observed
// block.
var ErrReceiptsUnavailable = errors.New("chainclient/evm: receipts unavailable")

// Client adapts one ethrpc.Provider (one RPC endpoint) to the chain-agnostic
// Blockchain Client contract the Client Pool composes over.
type Client struct {
	NetworkSlug string
	Provider    *ethrpc.Provider
}

// New dials nodeURL and wraps it as a Client for networkSlug.
func New(networkSlug, nodeURL string, opts ...ethrpc.Option) (*Client, error) {
	provider, err := ethrpc.NewProvider(nodeURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("chainclient/evm: dialing %s: %w", nodeURL, err)
	}
	return &Client{NetworkSlug: networkSlug, Provider: provider}, nil
}

// LatestBlockNumber returns the chain tip.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.Provider.BlockNumber(ctx)
}

// GetBlocks fetches the inclusive block range [from, to], decoding each
// block's transactions and receipts into the chain-agnostic projection.
func (c *Client) GetBlocks(ctx context.Context, from, to uint64) ([]chain.Block, error) {
	if to < from {
		return nil, nil
	}

	blocks := make([]chain.Block, 0, to-from+1)
	for n := from; n <= to; n++ {
		b, err := c.getBlock(ctx, n)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (c *Client) getBlock(ctx context.Context, number uint64) (chain.Block, error) {
	raw, err := c.Provider.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return chain.Block{}, fmt.Errorf("chainclient/evm: fetching block %d: %w", number, err)
	}

	out := chain.Block{
		Family:      chain.FamilyEVM,
		NetworkSlug: c.NetworkSlug,
		Number:      raw.NumberU64(),
		Hash:        raw.Hash(),
		ParentHash:  raw.ParentHash(),
		Timestamp:   timeFromUnix(raw.Time()),
	}

	var allLogs []types.Log
	for i, tx := range raw.Transactions() {
		decoded, rawLogs, err := c.decodeTransaction(ctx, raw, tx, uint(i))
		if err != nil {
			return chain.Block{}, err
		}
		out.Transactions = append(out.Transactions, decoded)
		allLogs = append(allLogs, rawLogs...)
	}

	// A pruned archive node can silently return a truncated receipt/log
	// set for an old block; the header's logs bloom is the cheap check
	// that catches it.
	if !ethutil.ValidateLogsWithBlockHeader(allLogs, raw.Header()) {
		return chain.Block{}, fmt.Errorf("%w: block %d: receipt logs do not match header bloom, node may be pruned", ErrReceiptsUnavailable, number)
	}

	return out, nil
}

func timeFromUnix(sec uint64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

func (c *Client) decodeTransaction(ctx context.Context, block *types.Block, tx *types.Transaction, index uint) (chain.Transaction, []types.Log, error) {
	receipt, err := c.Provider.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return chain.Transaction{}, nil, fmt.Errorf("chainclient/evm: fetching receipt for %s: %w", tx.Hash().Hex(), err)
	}

	from, err := c.Provider.TransactionSender(ctx, tx, block.Hash(), index)
	if err != nil {
		return chain.Transaction{}, nil, fmt.Errorf("chainclient/evm: recovering sender for %s: %w", tx.Hash().Hex(), err)
	}

	status := chain.StatusFailure
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = chain.StatusSuccess
	}

	out := chain.Transaction{
		Hash:    tx.Hash(),
		Index:   index,
		From:    from,
		To:      tx.To(),
		Value:   tx.Value(),
		Input:   tx.Data(),
		GasUsed: receipt.GasUsed,
		Status:  status,
	}

	rawLogs := make([]types.Log, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		out.Logs = append(out.Logs, chain.Log{
			Address: l.Address,
			Topics:  l.Topics,
			Data:    l.Data,
			Index:   uint(l.Index),
		})
		rawLogs = append(rawLogs, *l)
	}

	return out, rawLogs, nil
}
