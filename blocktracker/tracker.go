// Package blocktracker implements the Block Tracker: an in-memory guard
// detecting gaps and duplicates in the processed-block sequence per
// network, remembering a bounded window of recently processed numbers.
package blocktracker

import (
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// ErrGap is returned when Observe sees a block number that skips ahead of
// the expected next number, meaning an earlier block was never
// recorded.
type ErrGap struct {
	Network  string
	Expected uint64
	Got      uint64
}

func (e ErrGap) Error() string {
	return fmt.Sprintf("blocktracker: gap on %q: expected %d, got %d", e.Network, e.Expected, e.Got)
}

// Tracker remembers the last N processed block numbers per network to
// catch duplicate re-delivery and sequence gaps before the Filter Engine
// ever sees a block.
type Tracker struct {
	retention int

	mu    sync.Mutex
	seen  map[string]map[uint64]struct{}
	order map[string][]uint64 // insertion order, for evicting past retention
	last  map[string]uint64
}

// New builds a Tracker remembering up to retention block numbers per
// network.
func New(retention int) *Tracker {
	if retention < 1 {
		retention = 1
	}
	return &Tracker{
		retention: retention,
		seen:      make(map[string]map[uint64]struct{}),
		order:     make(map[string][]uint64),
		last:      make(map[string]uint64),
	}
}

// Observe records that `number` was processed for network. It returns
// (duplicate=true, nil) if the number was already seen, so the caller
// can drop it with a warning, or an ErrGap if number
// skips ahead of the expected next number with no prior record of the
// in-between numbers.
func (t *Tracker) Observe(network string, number uint64) (duplicate bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[network] == nil {
		t.seen[network] = make(map[uint64]struct{})
	}

	if _, ok := t.seen[network][number]; ok {
		return true, nil
	}

	if last, ok := t.last[network]; ok && number > last+1 {
		return false, ErrGap{Network: network, Expected: last + 1, Got: number}
	}

	t.seen[network][number] = struct{}{}
	t.order[network] = append(t.order[network], number)
	t.last[network] = number

	if excess := len(t.order[network]) - t.retention; excess > 0 {
		for _, n := range t.order[network][:excess] {
			delete(t.seen[network], n)
		}
		t.order[network] = t.order[network][excess:]
	}

	return false, nil
}

// Reset forgets everything remembered for network (used when the watcher
// re-fetches from the cursor after a gap).
func (t *Tracker) Reset(network string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, network)
	delete(t.order, network)
	delete(t.last, network)
}

// Digest produces a short label (a 64-bit non-cryptographic xxh3 hash)
// for a batch of block
// numbers, for correlating a gap/duplicate warning log line with the
// underlying observation set.
func Digest(network string, numbers []uint64) string {
	d := xxh3.New()
	d.Write([]byte(network))
	for _, n := range numbers {
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(n >> (8 * i))
		}
		d.Write(buf[:])
	}
	return fmt.Sprintf("%s:%d", network, d.Sum64())
}
