// Package stellar implements the Blockchain Client contract against a
// Horizon-compatible REST endpoint, fetching ledgers and their operations
// through Horizon's paginated GET endpoints.
package stellar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goware/superr"

	"github.com/sequenceos/chainmonitor/chain"
)

var ErrRequestFail = errors.New("stellar: request fail")

// Client adapts one Horizon base URL to the chain-agnostic Blockchain
// Client contract.
type Client struct {
	NetworkSlug string
	BaseURL     string
	HTTPClient  *http.Client
}

// New builds a Client against a Horizon base URL such as
// "https://horizon.stellar.org".
func New(networkSlug, baseURL string) *Client {
	return &Client{
		NetworkSlug: networkSlug,
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type horizonLedger struct {
	Sequence       uint64 `json:"sequence"`
	Hash           string `json:"hash"`
	PrevHash       string `json:"prev_hash"`
	ClosedAt       string `json:"closed_at"`
	OperationCount int    `json:"operation_count"`
}

type horizonLedgersPage struct {
	Embedded struct {
		Records []horizonLedger `json:"records"`
	} `json:"_embedded"`
}

type horizonOperation struct {
	ID              string `json:"id"`
	TransactionHash string `json:"transaction_hash"`
	SourceAccount   string `json:"source_account"`
	Type            string `json:"type"`
	Successful      bool   `json:"transaction_successful"`
}

type horizonOperationsPage struct {
	Embedded struct {
		Records []horizonOperation `json:"records"`
	} `json:"_embedded"`
}

// LatestBlockNumber returns the most recent closed ledger sequence.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var page horizonLedgersPage
	if err := c.get(ctx, "/ledgers?order=desc&limit=1", &page); err != nil {
		return 0, err
	}
	if len(page.Embedded.Records) == 0 {
		return 0, fmt.Errorf("stellar: no ledgers returned")
	}
	return page.Embedded.Records[0].Sequence, nil
}

// GetBlocks fetches the inclusive ledger range [from, to], projecting each
// ledger's operations as the chain-agnostic transaction shape (one
// synthetic transaction per distinct transaction_hash within the ledger).
func (c *Client) GetBlocks(ctx context.Context, from, to uint64) ([]chain.Block, error) {
	if to < from {
		return nil, nil
	}

	blocks := make([]chain.Block, 0, to-from+1)
	for seq := from; seq <= to; seq++ {
		b, err := c.getLedger(ctx, seq)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (c *Client) getLedger(ctx context.Context, seq uint64) (chain.Block, error) {
	var ledgerPage horizonLedgersPage
	if err := c.get(ctx, fmt.Sprintf("/ledgers?order=asc&cursor=%d&limit=1", seq-1), &ledgerPage); err != nil {
		return chain.Block{}, err
	}
	if len(ledgerPage.Embedded.Records) == 0 {
		return chain.Block{}, fmt.Errorf("stellar: ledger %d not found", seq)
	}
	ledger := ledgerPage.Embedded.Records[0]

	closedAt, err := time.Parse(time.RFC3339, ledger.ClosedAt)
	if err != nil {
		closedAt = time.Time{}
	}

	var opsPage horizonOperationsPage
	if err := c.get(ctx, fmt.Sprintf("/ledgers/%d/operations", seq), &opsPage); err != nil {
		return chain.Block{}, err
	}

	byTx := make(map[string]*chain.Transaction)
	var order []string
	for _, op := range opsPage.Embedded.Records {
		tx, ok := byTx[op.TransactionHash]
		if !ok {
			status := chain.StatusFailure
			if op.Successful {
				status = chain.StatusSuccess
			}
			tx = &chain.Transaction{Hash: common.HexToHash(op.TransactionHash), Status: status}
			byTx[op.TransactionHash] = tx
			order = append(order, op.TransactionHash)
		}
		tx.Logs = append(tx.Logs, chain.Log{
			Data:  []byte(op.Type),
			Index: uint(len(tx.Logs)),
		})
	}

	block := chain.Block{
		Family:      chain.FamilyStellar,
		NetworkSlug: c.NetworkSlug,
		Number:      seq,
		Timestamp:   closedAt,
	}
	for i, hash := range order {
		tx := byTx[hash]
		tx.Index = uint(i)
		block.Transactions = append(block.Transactions, *tx)
	}
	return block, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("stellar: invalid url %q: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return superr.Wrap(ErrRequestFail, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return superr.Wrap(ErrRequestFail, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return superr.Wrap(ErrRequestFail, fmt.Errorf("reading response body: %w", err))
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		details := string(body)
		if len(details) > 200 {
			details = details[:200] + " (truncated, " + strconv.Itoa(len(body)) + " bytes)"
		}
		return superr.Wrap(ErrRequestFail, fmt.Errorf("non-2xx response %d: %s", res.StatusCode, details))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return superr.Wrap(ErrRequestFail, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
