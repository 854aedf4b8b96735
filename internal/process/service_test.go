package process_test

import (
	"context"
	"testing"

	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/internal/process"
	"go.uber.org/zap"
)

var ctx = context.Background()

func setup() (*process.Service, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	appender := ledger.NewAppender(store, zap.NewNop())
	return process.NewService(appender, zap.NewNop()), store
}

func validInput() process.AttemptInput {
	return process.AttemptInput{
		InstructionID: "7f3a",
		GPS:           process.GPSFix{Lat: -26.2041, Lng: 28.0473, Accuracy: 5},
		Outcome:       process.OutcomeServed,
		Notes:         "handed to respondent at gate",
		Items: []process.EvidenceItem{
			{Kind: "photo", Ref: "media/7f3a/1.jpg"},
			{Kind: "signature", Ref: "media/7f3a/sig.png"},
		},
	}
}

func TestRecordAttempt_sealsLinkWithEvidence(t *testing.T) {
	svc, store := setup()

	link, err := svc.RecordAttempt(ctx, "sheriff-77", validInput())
	if err != nil {
		t.Fatal(err)
	}
	if link.Action != process.ActionAttemptLogged {
		t.Errorf("action: got %q", link.Action)
	}
	if link.ChainID != "instr-7f3a" {
		t.Errorf("chain id: got %q", link.ChainID)
	}

	var payload struct {
		Outcome  string `cbor:"outcome"`
		Evidence struct {
			Algorithm string `cbor:"algorithm"`
			Digest    string `cbor:"digest"`
		} `cbor:"evidence"`
	}
	if err := ledger.DecodePayload(link.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Outcome != process.OutcomeServed {
		t.Errorf("payload outcome: got %q", payload.Outcome)
	}
	if payload.Evidence.Algorithm != ledger.HashAlgorithm || payload.Evidence.Digest == "" {
		t.Errorf("evidence digest missing from payload: %+v", payload.Evidence)
	}

	report, err := ledger.NewVerifier(store, zap.NewNop()).Verify(ctx, "instr-7f3a")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid {
		t.Errorf("chain broken at %d (%s)", report.BrokenAtSequence, report.Reason)
	}
}

func TestRecordAttempt_multipleAttemptsChain(t *testing.T) {
	svc, _ := setup()

	first, err := svc.RecordAttempt(ctx, "sheriff-77", validInput())
	if err != nil {
		t.Fatal(err)
	}

	in := validInput()
	in.Outcome = process.OutcomeRefused
	second, err := svc.RecordAttempt(ctx, "sheriff-77", in)
	if err != nil {
		t.Fatal(err)
	}

	if second.PrevHash != first.Hash {
		t.Error("second attempt does not chain from the first")
	}
	if second.Sequence != 1 {
		t.Errorf("second attempt sequence: got %d, want 1", second.Sequence)
	}
}

func TestRecordAttempt_rejectsInvalidInput(t *testing.T) {
	svc, store := setup()

	cases := map[string]func(in *process.AttemptInput){
		"missing instruction": func(in *process.AttemptInput) { in.InstructionID = "" },
		"unknown outcome":     func(in *process.AttemptInput) { in.Outcome = "lost" },
		"lat out of range":    func(in *process.AttemptInput) { in.GPS.Lat = 91 },
		"lng out of range":    func(in *process.AttemptInput) { in.GPS.Lng = -181 },
		"negative accuracy":   func(in *process.AttemptInput) { in.GPS.Accuracy = -1 },
		"item without ref":    func(in *process.AttemptInput) { in.Items[0].Ref = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if _, err := svc.RecordAttempt(ctx, "sheriff-77", in); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// Nothing may have been appended by a rejected attempt.
	chains, err := store.Chains(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) != 0 {
		t.Errorf("rejected attempts left chains behind: %v", chains)
	}
}

func TestRecordAttempt_evidenceDigestMatchesCapturedFields(t *testing.T) {
	svc, _ := setup()
	in := validInput()

	link, err := svc.RecordAttempt(ctx, "sheriff-77", in)
	if err != nil {
		t.Fatal(err)
	}

	var payload struct {
		Evidence struct {
			Digest string `cbor:"digest"`
		} `cbor:"evidence"`
	}
	if err := ledger.DecodePayload(link.Payload, &payload); err != nil {
		t.Fatal(err)
	}

	want, err := ledger.DigestEvidence(map[string]any{
		"lat":      in.GPS.Lat,
		"lng":      in.GPS.Lng,
		"accuracy": in.GPS.Accuracy,
		"outcome":  in.Outcome,
		"notes":    in.Notes,
		"items": []any{
			map[string]any{"kind": "photo", "ref": "media/7f3a/1.jpg"},
			map[string]any{"kind": "signature", "ref": "media/7f3a/sig.png"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if payload.Evidence.Digest != want.Digest {
		t.Errorf("sealed digest %q does not match independently computed %q", payload.Evidence.Digest, want.Digest)
	}
}
