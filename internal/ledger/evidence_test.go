package ledger_test

import (
	"testing"

	"github.com/praxis-legal/praxis/internal/ledger"
)

func TestDigestEvidence_emptyNotesAndAbsentNotesAgree(t *testing.T) {
	withNotes, err := ledger.DigestEvidence(map[string]any{
		"lat": -26.2041, "lng": 28.0473, "accuracy": 5,
		"outcome": "served", "notes": "",
	})
	if err != nil {
		t.Fatal(err)
	}
	without, err := ledger.DigestEvidence(map[string]any{
		"lat": -26.2041, "lng": 28.0473, "accuracy": 5,
		"outcome": "served",
	})
	if err != nil {
		t.Fatal(err)
	}
	if withNotes.Digest != without.Digest {
		t.Errorf("empty vs absent notes: %q != %q", withNotes.Digest, without.Digest)
	}
	if withNotes.Algorithm != ledger.HashAlgorithm {
		t.Errorf("algorithm: got %q, want %q", withNotes.Algorithm, ledger.HashAlgorithm)
	}
}

func TestDigestEvidence_outcomeChangesDigest(t *testing.T) {
	served, err := ledger.DigestEvidence(map[string]any{
		"lat": -26.2041, "lng": 28.0473, "accuracy": 5, "outcome": "served",
	})
	if err != nil {
		t.Fatal(err)
	}
	refused, err := ledger.DigestEvidence(map[string]any{
		"lat": -26.2041, "lng": 28.0473, "accuracy": 5, "outcome": "refused",
	})
	if err != nil {
		t.Fatal(err)
	}
	if served.Digest == refused.Digest {
		t.Error("changing outcome must change the digest")
	}
}

func TestDigestEvidence_distinctFromLinkHashDomain(t *testing.T) {
	fields := map[string]any{"outcome": "served"}

	ev, err := ledger.DigestEvidence(fields)
	if err != nil {
		t.Fatal(err)
	}

	link := &ledger.Link{}
	link.Payload, err = ledger.Canonicalize(fields)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := link.ComputeHash()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Digest == hash {
		t.Error("evidence and link digests over similar data must not collide across domains")
	}
}

func TestDigestEvidence_embedsInPayload(t *testing.T) {
	ev, err := ledger.DigestEvidence(map[string]any{"outcome": "served"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = ledger.Canonicalize(map[string]any{
		"outcome":  "served",
		"evidence": ev,
	})
	if err != nil {
		t.Errorf("evidence should canonicalize inside a payload: %v", err)
	}
}
