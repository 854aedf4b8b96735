package ledger

// Evidence is a content-addressable digest of externally captured evidence
// (GPS fix, outcome, media references). It is computed once, at the moment
// the evidence is captured, and then carried as ordinary payload content
// inside the chain link that records the event. It has no lifecycle of its
// own and is never verified independently of the chain that contains it.
type Evidence struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

// DigestEvidence hashes the non-repudiation-critical fields of an event
// under the evidence domain prefix. The same canonicalization rules apply as
// for payloads, so an empty field and an omitted one digest identically.
func DigestEvidence(fields any) (Evidence, error) {
	data, err := Canonicalize(fields)
	if err != nil {
		return Evidence{}, err
	}
	return Evidence{
		Algorithm: HashAlgorithm,
		Digest:    digest(evidenceDomain, data),
	}, nil
}

// PayloadFields returns the evidence as a payload fragment suitable for
// embedding in a link payload.
func (e Evidence) PayloadFields() map[string]any {
	return map[string]any{
		"algorithm": e.Algorithm,
		"digest":    e.Digest,
	}
}
