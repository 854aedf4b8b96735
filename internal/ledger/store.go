package ledger

import "context"

// Store is the append-only persistence consumed by Appender and Verifier,
// keyed by chain id. Implementations must persist Payload byte-for-byte as
// given; re-serialising it would silently change the canonical form and break
// later verification.
type Store interface {
	// ReadTail returns the last link of the chain, or (nil, nil) if the
	// chain has no links yet. Errors are reserved for store failures.
	ReadTail(ctx context.Context, chainID string) (*Link, error)

	// AppendIfTailMatches appends link only if the chain's current tail hash
	// still equals expectedTailHash (GenesisHash for an empty chain).
	// Returns ErrTailConflict if the tail moved. This compare-and-swap is
	// the sole synchronisation point for a chain; different chains never
	// block one another.
	AppendIfTailMatches(ctx context.Context, chainID, expectedTailHash string, link *Link) error

	// ReadRange returns the links with sequence in [from, to], ascending.
	ReadRange(ctx context.Context, chainID string, from, to uint64) ([]*Link, error)

	// Len returns the number of links in the chain.
	Len(ctx context.Context, chainID string) (int, error)

	// Chains lists every chain id with at least one link.
	Chains(ctx context.Context) ([]string, error)
}
