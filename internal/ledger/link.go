package ledger

import "time"

// Link is a single entry in one chain. Links are created exactly once by
// Appender and are immutable thereafter; there is no update or delete.
type Link struct {
	ChainID   string    `json:"chain_id"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"` // assigned by the appender, never the caller
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Payload   []byte    `json:"payload"` // canonical bytes; opaque past this package
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// ComputeHash returns the digest over the link's hashed field set: every
// field except Hash itself. The fields are canonically encoded first, so the
// digest is reproducible from a stored link alone. Derived values computed
// elsewhere in the system (balances, reports) are never part of this set.
func (l *Link) ComputeHash() (string, error) {
	fields := map[string]any{
		"chain_id":  l.ChainID,
		"sequence":  l.Sequence,
		"timestamp": l.Timestamp,
		"actor":     l.Actor,
		"action":    l.Action,
		"payload":   l.Payload,
		"prev_hash": l.PrevHash,
	}
	data, err := Canonicalize(fields)
	if err != nil {
		return "", err
	}
	return digest(linkDomain, data), nil
}
