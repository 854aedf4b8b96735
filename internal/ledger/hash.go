package ledger

import (
	"crypto/sha256"
	"encoding/hex"
)

// GenesisHash is the well-known previous-hash of the first link in any chain.
// It is a fixed sentinel value, never a stored entry; chains start at
// sequence 0 with PrevHash set to this constant.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// HashAlgorithm identifies the digest algorithm used for every hash this
// package produces. It is fixed for the lifetime of all chains; changing it
// would break verifiability of historical links.
const HashAlgorithm = "sha256"

// Domain-separation prefixes. Each distinct use of the hash function gets its
// own prefix so digests from one context can never collide with another.
// These are fixed constants: changing either invalidates every digest
// recorded under it.
const (
	linkDomain     = "praxis/ledger/link/v1:"
	evidenceDomain = "praxis/ledger/evidence/v1:"
)

// digest returns the hex-encoded SHA-256 of domain || data.
func digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
