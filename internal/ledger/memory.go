package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for testing and for single-process deployments that do not
// require durable persistence across restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	chains map[string][]*Link
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chains: make(map[string][]*Link)}
}

// ReadTail implements Store.
func (s *MemoryStore) ReadTail(_ context.Context, chainID string) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := s.chains[chainID]
	if len(links) == 0 {
		return nil, nil
	}
	return links[len(links)-1], nil
}

// AppendIfTailMatches implements Store. The tail comparison and the append
// happen under one write lock, making the operation an atomic
// compare-and-swap.
func (s *MemoryStore) AppendIfTailMatches(_ context.Context, chainID, expectedTailHash string, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links := s.chains[chainID]
	tailHash := GenesisHash
	if len(links) > 0 {
		tailHash = links[len(links)-1].Hash
	}
	if tailHash != expectedTailHash {
		return ErrTailConflict
	}
	s.chains[chainID] = append(links, link)
	return nil
}

// ReadRange implements Store.
func (s *MemoryStore) ReadRange(_ context.Context, chainID string, from, to uint64) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Link
	for _, l := range s.chains[chainID] {
		if l.Sequence >= from && l.Sequence <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context, chainID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chains[chainID]), nil
}

// Chains implements Store.
func (s *MemoryStore) Chains(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chains))
	for id, links := range s.chains {
		if len(links) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
