// Package ledger implements the tamper-evident, hash-chained event ledger
// that backs every compliance-sensitive workflow in Praxis: service-of-process
// attempts, onboarding stage transitions, trust-account postings.
//
// Each logical stream is an independent chain of links. A link records who did
// what, when, with an opaque canonical payload, and carries the SHA-256 of its
// predecessor; the first link of a chain points at GenesisHash (64 hex zeros).
// Any alteration of a stored link is detectable by Verifier, which reports the
// earliest broken sequence number rather than just "invalid".
//
// Appender is the only component that creates links. It linearises concurrent
// appends to one chain with a compare-and-swap against the chain tail; appends
// to different chains never contend.
//
// Two Store implementations are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, for production use.
package ledger
