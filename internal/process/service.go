// Package process records service-of-process attempts as sealed chain links,
// one chain per dispatch instruction. Each attempt carries a content-addressed
// evidence digest computed over its non-repudiation-critical fields before
// the append.
package process

import (
	"context"
	"fmt"

	"github.com/praxis-legal/praxis/internal/ledger"
	"go.uber.org/zap"
)

// ActionAttemptLogged is the action recorded for every sealed attempt.
const ActionAttemptLogged = "ATTEMPT_LOGGED"

// appender is the ledger interface consumed by Service.
type appender interface {
	Append(ctx context.Context, chainID, actor, action string, payload any) (*ledger.Link, error)
}

// Service implements service-attempt recording.
type Service struct {
	ledger appender
	logger *zap.Logger
}

// NewService creates a Service appending through the given ledger.
func NewService(ledger appender, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, logger: logger}
}

// ChainID returns the chain carrying all attempts for one dispatch instruction.
func ChainID(instructionID string) string {
	return "instr-" + instructionID
}

// RecordAttempt validates the attempt, digests its evidence, and seals it
// onto the instruction's chain. The returned link is the caller's receipt.
func (s *Service) RecordAttempt(ctx context.Context, actor string, in AttemptInput) (*ledger.Link, error) {
	if in.InstructionID == "" {
		return nil, fmt.Errorf("instruction id is required")
	}
	if !validOutcomes[in.Outcome] {
		return nil, fmt.Errorf("unknown outcome %q", in.Outcome)
	}
	if in.GPS.Lat < -90 || in.GPS.Lat > 90 || in.GPS.Lng < -180 || in.GPS.Lng > 180 {
		return nil, fmt.Errorf("gps fix out of range: lat=%v lng=%v", in.GPS.Lat, in.GPS.Lng)
	}
	if in.GPS.Accuracy < 0 {
		return nil, fmt.Errorf("gps accuracy must be non-negative")
	}

	items := make([]any, 0, len(in.Items))
	for i, item := range in.Items {
		if item.Kind == "" || item.Ref == "" {
			return nil, fmt.Errorf("evidence item %d: kind and ref are required", i)
		}
		items = append(items, map[string]any{"kind": item.Kind, "ref": item.Ref})
	}

	// The non-repudiation-critical subset, digested once at capture time.
	evidence, err := ledger.DigestEvidence(map[string]any{
		"lat":      in.GPS.Lat,
		"lng":      in.GPS.Lng,
		"accuracy": in.GPS.Accuracy,
		"outcome":  in.Outcome,
		"notes":    in.Notes,
		"items":    items,
	})
	if err != nil {
		return nil, fmt.Errorf("digest evidence: %w", err)
	}

	payload := map[string]any{
		"instruction_id": in.InstructionID,
		"gps": map[string]any{
			"lat":      in.GPS.Lat,
			"lng":      in.GPS.Lng,
			"accuracy": in.GPS.Accuracy,
		},
		"outcome":  in.Outcome,
		"notes":    in.Notes,
		"items":    items,
		"evidence": evidence,
	}

	link, err := s.ledger.Append(ctx, ChainID(in.InstructionID), actor, ActionAttemptLogged, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("service attempt sealed",
		zap.String("instruction_id", in.InstructionID),
		zap.String("outcome", in.Outcome),
		zap.Uint64("sequence", link.Sequence),
		zap.String("hash", link.Hash),
	)
	return link, nil
}
