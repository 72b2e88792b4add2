// Package cursorstore implements Block Storage: the small persistent
// key-value surface tracking each network's last-processed block number,
// plus an optional raw block dump for debugging. The backing is a
// pluggable cachestore.Backend so the cursor can live in memory for
// development or in Redis for a shared deployment.
package cursorstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	memcache "github.com/goware/cachestore-mem"
	cachestore "github.com/goware/cachestore2"
)

const cursorKeyPrefix = "cursor:"
const rawBlockKeyPrefix = "rawblock:"

// Store is the durable cursor surface the Block Watcher reads at the
// start of every poll and writes after each successfully processed
// block.
type Store struct {
	cursors   cachestore.Store[uint64]
	rawBlocks cachestore.Store[[]byte] // optional, nil unless debug dump enabled
}

// Open builds a Store atop backend. If rawBlockExpiry is zero, raw block
// dumps are disabled.
func Open(backend cachestore.Backend, rawBlockExpiry time.Duration) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("cursorstore: backend is nil")
	}

	cursors := cachestore.OpenStore[uint64](backend)

	var rawBlocks cachestore.Store[[]byte]
	if rawBlockExpiry > 0 {
		rawBlocks = cachestore.OpenStore[[]byte](backend, cachestore.WithDefaultKeyExpiry(rawBlockExpiry))
	}

	return &Store{cursors: cursors, rawBlocks: rawBlocks}, nil
}

// OpenInMemory builds a non-durable Store backed by a bounded in-process
// LRU cache (github.com/goware/cachestore-mem), for local development
// and tests where a durable backend would be overkill.
func OpenInMemory(maxNetworks uint32) (*Store, error) {
	if maxNetworks == 0 {
		maxNetworks = 256
	}
	cursors, err := memcache.NewCacheWithSize[uint64](maxNetworks)
	if err != nil {
		return nil, fmt.Errorf("cursorstore: opening in-memory cursor cache: %w", err)
	}
	return &Store{cursors: cursors}, nil
}

// GetLastProcessed returns the last-processed block number for network,
// or ok=false if no cursor has ever been written.
func (s *Store) GetLastProcessed(ctx context.Context, network string) (uint64, bool, error) {
	n, ok, err := s.cursors.Get(ctx, cursorKeyPrefix+network)
	if err != nil {
		return 0, false, fmt.Errorf("cursorstore: get %q: %w", network, err)
	}
	return n, ok, nil
}

// SetLastProcessed durably advances the cursor for network. Callers are
// responsible for the monotonic-non-decreasing invariant; the
// store itself performs a blind write.
func (s *Store) SetLastProcessed(ctx context.Context, network string, n uint64) error {
	if err := s.cursors.Set(ctx, cursorKeyPrefix+network, n); err != nil {
		return fmt.Errorf("cursorstore: set %q=%d: %w", network, n, err)
	}
	return nil
}

// DumpRawBlock stores a block's raw payload for debugging, a no-op if raw
// dumps are disabled.
func (s *Store) DumpRawBlock(ctx context.Context, network string, number uint64, payload []byte) error {
	if s.rawBlocks == nil {
		return nil
	}
	key := rawBlockKeyPrefix + network + ":" + strconv.FormatUint(number, 10)
	if err := s.rawBlocks.Set(ctx, key, payload); err != nil {
		return fmt.Errorf("cursorstore: dump raw block %s/%d: %w", network, number, err)
	}
	return nil
}
