// Package onboarding tracks client onboarding as a fixed stage progression,
// with every transition sealed as a chain link. The chain itself is the
// record of state: the current stage is derived from the chain tail, never
// from a separately mutable row.
package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/praxis-legal/praxis/internal/ledger"
	"go.uber.org/zap"
)

// ActionStageAdvanced is the action recorded for every stage transition.
const ActionStageAdvanced = "STAGE_ADVANCED"

// Onboarding stages, in the only order they may be traversed.
const (
	StageIntake        = "intake"
	StageFICAReview    = "fica_review"
	StageConflictCheck = "conflict_check"
	StageMandateSigned = "mandate_signed"
	StageActive        = "active"
)

var stageOrder = []string{
	StageIntake,
	StageFICAReview,
	StageConflictCheck,
	StageMandateSigned,
	StageActive,
}

// ErrInvalidTransition is returned when a requested stage is not the next
// stage in the progression. Skips and regressions are both rejected.
var ErrInvalidTransition = errors.New("onboarding: invalid stage transition")

// appender is the ledger write interface consumed by Service.
type appender interface {
	AppendChecked(ctx context.Context, chainID, actor, action string, payload any, recheck ledger.RecheckFunc) (*ledger.Link, error)
}

// tailReader reads the chain tail the current stage is derived from.
type tailReader interface {
	ReadTail(ctx context.Context, chainID string) (*ledger.Link, error)
}

// Service implements onboarding stage transitions.
type Service struct {
	ledger appender
	store  tailReader
	logger *zap.Logger
}

// NewService creates a Service appending through ledger and deriving the
// current stage from store.
func NewService(ledger appender, store tailReader, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, store: store, logger: logger}
}

// ChainID returns the chain carrying one client's onboarding history.
func ChainID(clientID string) string {
	return "onboard-" + clientID
}

// Stage returns the client's current stage, or the empty string if
// onboarding has not started.
func (s *Service) Stage(ctx context.Context, clientID string) (string, error) {
	tail, err := s.store.ReadTail(ctx, ChainID(clientID))
	if err != nil {
		return "", err
	}
	if tail == nil {
		return "", nil
	}
	return stageFromLink(tail)
}

// AdvanceStage seals a transition to the given stage. The stage must be the
// immediate successor of the client's current stage; the first transition
// must be to intake.
func (s *Service) AdvanceStage(ctx context.Context, clientID, actor, to string) (*ledger.Link, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if stageIndex(to) < 0 {
		return nil, fmt.Errorf("unknown stage %q", to)
	}

	current, err := s.Stage(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if to != nextStage(current) {
		return nil, fmt.Errorf("%w: %q does not follow %q", ErrInvalidTransition, to, current)
	}

	payload := map[string]any{
		"client_id": clientID,
		"from":      current,
		"to":        to,
	}
	// The transition is revalidated against the tail of every append attempt:
	// a concurrent advance that wins the race shifts the current stage, and
	// this transition must not be sealed on top of it. Stages only move
	// forward, so a passing recheck also means the payload's "from" still
	// names the tail's stage.
	recheck := func(_ context.Context, tail *ledger.Link) error {
		tailStage := ""
		if tail != nil {
			var err error
			if tailStage, err = stageFromLink(tail); err != nil {
				return err
			}
		}
		if to != nextStage(tailStage) {
			return fmt.Errorf("%w: %q does not follow %q", ErrInvalidTransition, to, tailStage)
		}
		return nil
	}
	link, err := s.ledger.AppendChecked(ctx, ChainID(clientID), actor, ActionStageAdvanced, payload, recheck)
	if err != nil {
		return nil, err
	}

	s.logger.Info("onboarding stage advanced",
		zap.String("client_id", clientID),
		zap.String("from", current),
		zap.String("to", to),
		zap.String("hash", link.Hash),
	)
	return link, nil
}

func stageIndex(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// nextStage returns the stage that must follow current, or the empty string
// if the progression is complete.
func nextStage(current string) string {
	if current == "" {
		return StageIntake
	}
	i := stageIndex(current)
	if i < 0 || i+1 >= len(stageOrder) {
		return ""
	}
	return stageOrder[i+1]
}

func stageFromLink(l *ledger.Link) (string, error) {
	var payload struct {
		To string `cbor:"to"`
	}
	if err := ledger.DecodePayload(l.Payload, &payload); err != nil {
		return "", fmt.Errorf("read stage from chain tail: %w", err)
	}
	if payload.To == "" {
		return "", fmt.Errorf("chain tail at sequence %d has no stage", l.Sequence)
	}
	return payload.To, nil
}
