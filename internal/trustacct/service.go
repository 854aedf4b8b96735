// Package trustacct posts trust-account transactions as sealed chain links,
// one chain per account. The chain is the authoritative transaction record;
// the per-account balance is a denormalised cache that can always be rebuilt
// by replaying the chain.
package trustacct

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/praxis-legal/praxis/internal/ledger"
	"go.uber.org/zap"
)

// ActionTxnPosted is the action recorded for every sealed posting.
const ActionTxnPosted = "TXN_POSTED"

// ErrInsufficientFunds is returned when a debit would overdraw the account.
// Trust accounts may never go negative.
var ErrInsufficientFunds = errors.New("trustacct: insufficient funds")

// appender is the ledger write interface consumed by Service.
type appender interface {
	AppendChecked(ctx context.Context, chainID, actor, action string, payload any, recheck ledger.RecheckFunc) (*ledger.Link, error)
}

// rangeReader reads stored links for balance rebuilds.
type rangeReader interface {
	ReadRange(ctx context.Context, chainID string, from, to uint64) ([]*ledger.Link, error)
}

// Service implements trust-account posting.
type Service struct {
	ledger appender
	chains rangeReader
	repo   BalanceRepository
	logger *zap.Logger
}

// NewService creates a Service appending through ledger, with balances
// cached in repo.
func NewService(ledger appender, chains rangeReader, repo BalanceRepository, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, chains: chains, repo: repo, logger: logger}
}

// ChainID returns the chain carrying one trust account's postings.
func ChainID(accountID string) string {
	return "trust-" + accountID
}

// Balance returns the account's cached balance in cents.
func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	return s.repo.Balance(ctx, accountID)
}

// Post validates and seals a transaction onto the account's chain, then
// updates the cached balance. The resulting balance is not part of the
// sealed payload: it is a function of the chain, and hashing it would make
// the record circular.
func (s *Service) Post(ctx context.Context, accountID, actor string, in TxnInput) (*ledger.Link, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if in.Type != TypeCredit && in.Type != TypeDebit {
		return nil, fmt.Errorf("unknown transaction type %q", in.Type)
	}
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", in.AmountCents)
	}
	if in.Reference == "" {
		return nil, fmt.Errorf("payment reference is required")
	}

	payload := map[string]any{
		"account_id":   accountID,
		"type":         in.Type,
		"amount_cents": in.AmountCents,
		"reference":    in.Reference,
		"matter_id":    in.MatterID,
	}

	// Debits carry the overdraft check as a per-attempt recheck: the balance
	// is replayed from the chain at the exact tail the append will build on,
	// so a concurrent posting that wins the race cannot let this debit seal
	// an overdraft. Credits have no chain-state precondition.
	var balance int64
	var recheck ledger.RecheckFunc
	if in.Type == TypeDebit {
		recheck = func(ctx context.Context, tail *ledger.Link) error {
			at, err := s.balanceAt(ctx, accountID, tail)
			if err != nil {
				return err
			}
			if in.AmountCents > at {
				return fmt.Errorf("%w: debit %d exceeds balance %d", ErrInsufficientFunds, in.AmountCents, at)
			}
			balance = at
			return nil
		}
	} else {
		var err error
		if balance, err = s.repo.Balance(ctx, accountID); err != nil {
			return nil, err
		}
	}

	link, err := s.ledger.AppendChecked(ctx, ChainID(accountID), actor, ActionTxnPosted, payload, recheck)
	if err != nil {
		return nil, err
	}

	newBalance := balance + in.AmountCents
	if in.Type == TypeDebit {
		newBalance = balance - in.AmountCents
	}
	if err := s.repo.SetBalance(ctx, accountID, newBalance); err != nil {
		// The posting is sealed; the cache is stale, not the record.
		s.logger.Warn("balance cache update failed, rebuild required",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}

	s.logger.Info("trust transaction posted",
		zap.String("account_id", accountID),
		zap.String("type", in.Type),
		zap.Int64("amount_cents", in.AmountCents),
		zap.String("hash", link.Hash),
	)
	return link, nil
}

// RebuildBalance replays the account's chain and rewrites the cached
// balance. Used after a cache update failure or a restore from backup.
func (s *Service) RebuildBalance(ctx context.Context, accountID string) (int64, error) {
	links, err := s.chains.ReadRange(ctx, ChainID(accountID), 0, math.MaxUint64)
	if err != nil {
		return 0, err
	}

	balance, err := replayBalance(accountID, links)
	if err != nil {
		return 0, err
	}

	if err := s.repo.SetBalance(ctx, accountID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// balanceAt replays the account's chain up to and including tail. Links at
// or below the tail are sealed, so the result is the account's balance at
// exactly the state an append onto tail would extend.
func (s *Service) balanceAt(ctx context.Context, accountID string, tail *ledger.Link) (int64, error) {
	if tail == nil {
		return 0, nil
	}
	links, err := s.chains.ReadRange(ctx, ChainID(accountID), 0, tail.Sequence)
	if err != nil {
		return 0, err
	}
	return replayBalance(accountID, links)
}

func replayBalance(accountID string, links []*ledger.Link) (int64, error) {
	var balance int64
	for _, l := range links {
		var payload struct {
			Type        string `cbor:"type"`
			AmountCents int64  `cbor:"amount_cents"`
		}
		if err := ledger.DecodePayload(l.Payload, &payload); err != nil {
			return 0, fmt.Errorf("replay %q sequence %d: %w", accountID, l.Sequence, err)
		}
		switch payload.Type {
		case TypeCredit:
			balance += payload.AmountCents
		case TypeDebit:
			balance -= payload.AmountCents
		}
	}
	return balance, nil
}
