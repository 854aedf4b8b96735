package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 5
	baseBackoff        = 25 * time.Millisecond
)

// Appender is the only component that creates chain links. It owns the
// append-side concurrency discipline: read the tail, build the link, and
// compare-and-swap it in, retrying a bounded number of times with jittered
// backoff when a concurrent append wins the race.
type Appender struct {
	store       Store
	logger      *zap.Logger
	clock       func() time.Time
	maxAttempts int
}

// NewAppender creates an Appender on the given store.
func NewAppender(store Store, logger *zap.Logger) *Appender {
	return &Appender{
		store:       store,
		logger:      logger,
		clock:       time.Now,
		maxAttempts: defaultMaxAttempts,
	}
}

// WithClock overrides the timestamp source. For tests.
func (a *Appender) WithClock(clock func() time.Time) *Appender {
	a.clock = clock
	return a
}

// RecheckFunc revalidates a caller precondition against the chain tail an
// append attempt is about to build on (nil for an empty chain). It runs once
// per attempt, so a precondition that held when the caller decided to append
// is re-established after every lost race. Returning an error aborts the
// append and surfaces that error unchanged.
type RecheckFunc func(ctx context.Context, tail *Link) error

// Append canonicalizes payload, seals it into a new link chained to the
// current tail of chainID, and appends it. The returned link includes its
// hash and serves as the caller's receipt.
//
// Payload canonicalization failures surface before any store I/O. A
// ConcurrentAppendConflict is retried internally; if retries are exhausted
// the error wraps ErrRetriesExhausted and the caller is expected to resubmit.
func (a *Appender) Append(ctx context.Context, chainID, actor, action string, payload any) (*Link, error) {
	return a.AppendChecked(ctx, chainID, actor, action, payload, nil)
}

// AppendChecked is Append with a per-attempt precondition. Callers whose
// validity depends on chain state (a stage progression, a running balance)
// pass a recheck so a concurrent append cannot invalidate the decision
// between their read and the sealed write.
func (a *Appender) AppendChecked(ctx context.Context, chainID, actor, action string, payload any, recheck RecheckFunc) (*Link, error) {
	if chainID == "" {
		return nil, errors.New("ledger: chain id is required")
	}
	if actor == "" {
		return nil, errors.New("ledger: actor is required")
	}
	if action == "" {
		return nil, errors.New("ledger: action is required")
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, err
	}

	var lastErr error
	var inDoubt *Link // link whose write outcome is unknown (store error mid-append)
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepJittered(ctx, attempt); err != nil {
				return nil, err
			}
		}

		tail, err := a.store.ReadTail(ctx, chainID)
		if err != nil {
			lastErr = err
			continue
		}

		// If an earlier attempt failed with an unknown outcome, its write may
		// have landed. The tail tells us: same previous hash, actor, action,
		// and payload bytes means our link is already sealed.
		if inDoubt != nil && tail != nil && sameAppend(tail, inDoubt) {
			a.logger.Debug("append already applied, returning stored link",
				zap.String("chain_id", chainID),
				zap.Uint64("sequence", tail.Sequence),
			)
			return tail, nil
		}
		inDoubt = nil

		if recheck != nil {
			if err := recheck(ctx, tail); err != nil {
				return nil, err
			}
		}

		var sequence uint64
		prevHash := GenesisHash
		if tail != nil {
			sequence = tail.Sequence + 1
			prevHash = tail.Hash
		}

		link := &Link{
			ChainID:  chainID,
			Sequence: sequence,
			// Truncated to microseconds so the stored form round-trips
			// through timestamptz without changing the hashed value.
			Timestamp: a.clock().UTC().Truncate(time.Microsecond),
			Actor:     actor,
			Action:    action,
			Payload:   canonical,
			PrevHash:  prevHash,
		}
		link.Hash, err = link.ComputeHash()
		if err != nil {
			return nil, err
		}

		switch err := a.store.AppendIfTailMatches(ctx, chainID, prevHash, link); {
		case err == nil:
			a.logger.Debug("chain link sealed",
				zap.String("chain_id", chainID),
				zap.Uint64("sequence", link.Sequence),
				zap.String("action", action),
				zap.String("hash", link.Hash),
			)
			return link, nil
		case errors.Is(err, ErrTailConflict):
			// Lost the race; the write definitely did not land.
			lastErr = err
		default:
			var se *StoreError
			if !errors.As(err, &se) {
				return nil, err
			}
			// Transient store failure: outcome unknown, check on next pass.
			lastErr = err
			inDoubt = link
		}
	}

	return nil, fmt.Errorf("ledger: append to %q: %w (last error: %v)",
		chainID, ErrRetriesExhausted, lastErr)
}

// sameAppend reports whether stored is the link attempted tried to write:
// same link to the previous entry, same actor, action, and payload bytes.
// Timestamp is excluded because every attempt assigns a fresh one.
func sameAppend(stored, attempted *Link) bool {
	return stored.PrevHash == attempted.PrevHash &&
		stored.Actor == attempted.Actor &&
		stored.Action == attempted.Action &&
		bytes.Equal(stored.Payload, attempted.Payload)
}

// sleepJittered blocks for the attempt's backoff interval (exponential base
// plus up to 100% jitter) or until ctx is done.
func sleepJittered(ctx context.Context, attempt int) error {
	d := baseBackoff << (attempt - 1)
	d += time.Duration(rand.Int63n(int64(d)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
