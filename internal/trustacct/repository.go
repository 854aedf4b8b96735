package trustacct

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BalanceRepository stores the denormalised running balance per trust
// account. The balance is derived data: the chain is authoritative and a
// stale balance is rebuilt from it, never the other way around.
type BalanceRepository interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	SetBalance(ctx context.Context, accountID string, cents int64) error
}

// PostgresBalanceRepository persists balances in the trust_balances table.
type PostgresBalanceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBalanceRepository creates a repository on the given pool.
func NewPostgresBalanceRepository(pool *pgxpool.Pool) *PostgresBalanceRepository {
	return &PostgresBalanceRepository{pool: pool}
}

// Balance returns the account's balance in cents; an unknown account is zero.
func (r *PostgresBalanceRepository) Balance(ctx context.Context, accountID string) (int64, error) {
	var cents int64
	err := r.pool.QueryRow(ctx,
		"SELECT balance_cents FROM trust_balances WHERE account_id = $1", accountID,
	).Scan(&cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance for %q: %w", accountID, err)
	}
	return cents, nil
}

// SetBalance upserts the account's balance.
func (r *PostgresBalanceRepository) SetBalance(ctx context.Context, accountID string, cents int64) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO trust_balances (account_id, balance_cents, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id) DO UPDATE
		SET balance_cents = EXCLUDED.balance_cents, updated_at = now()`,
		accountID, cents,
	); err != nil {
		return fmt.Errorf("set balance for %q: %w", accountID, err)
	}
	return nil
}

// MemoryBalanceRepository is an in-memory BalanceRepository for tests and
// single-process deployments.
type MemoryBalanceRepository struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// NewMemoryBalanceRepository creates an empty MemoryBalanceRepository.
func NewMemoryBalanceRepository() *MemoryBalanceRepository {
	return &MemoryBalanceRepository{balances: make(map[string]int64)}
}

// Balance implements BalanceRepository.
func (r *MemoryBalanceRepository) Balance(_ context.Context, accountID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[accountID], nil
}

// SetBalance implements BalanceRepository.
func (r *MemoryBalanceRepository) SetBalance(_ context.Context, accountID string, cents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[accountID] = cents
	return nil
}
