package ledger

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists chains to a PostgreSQL database. It implements the
// Store interface.
//
// The compare-and-swap append is a single conditional INSERT: the statement
// guards on the current tail hash and the (chain_id, sequence) primary key
// rejects the loser of any remaining race. No lock is held across I/O, and
// appends to different chains proceed fully independently.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

const linkColumns = "chain_id, sequence, ts, actor, action, payload, prev_hash, hash"

// ReadTail implements Store.
func (s *PostgresStore) ReadTail(ctx context.Context, chainID string) (*Link, error) {
	link := &Link{}
	err := s.pool.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM chain_links WHERE chain_id = $1 ORDER BY sequence DESC LIMIT 1",
		chainID,
	).Scan(
		&link.ChainID, &link.Sequence, &link.Timestamp, &link.Actor,
		&link.Action, &link.Payload, &link.PrevHash, &link.Hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read tail", err)
	}
	return link, nil
}

// AppendIfTailMatches implements Store.
func (s *PostgresStore) AppendIfTailMatches(ctx context.Context, chainID, expectedTailHash string, link *Link) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO chain_links (chain_id, sequence, ts, actor, action, payload, prev_hash, hash)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE COALESCE(
			(SELECT hash FROM chain_links WHERE chain_id = $1 ORDER BY sequence DESC LIMIT 1),
			$9
		) = $7
		ON CONFLICT (chain_id, sequence) DO NOTHING`,
		link.ChainID, link.Sequence, link.Timestamp, link.Actor,
		link.Action, link.Payload, link.PrevHash, link.Hash,
		GenesisHash,
	)
	if err != nil {
		return storeErr("append", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTailConflict
	}
	s.logger.Debug("chain link appended",
		zap.String("chain_id", link.ChainID),
		zap.Uint64("sequence", link.Sequence),
		zap.String("action", link.Action),
	)
	return nil
}

// ReadRange implements Store.
func (s *PostgresStore) ReadRange(ctx context.Context, chainID string, from, to uint64) ([]*Link, error) {
	// Sequences are stored as BIGINT; clamp open-ended ranges to its max.
	if to > math.MaxInt64 {
		to = math.MaxInt64
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+linkColumns+` FROM chain_links
		 WHERE chain_id = $1 AND sequence BETWEEN $2 AND $3
		 ORDER BY sequence ASC`,
		chainID, from, to,
	)
	if err != nil {
		return nil, storeErr("read range", err)
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		link := &Link{}
		if err := rows.Scan(
			&link.ChainID, &link.Sequence, &link.Timestamp, &link.Actor,
			&link.Action, &link.Payload, &link.PrevHash, &link.Hash,
		); err != nil {
			return nil, storeErr("scan link", err)
		}
		out = append(out, link)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read range", err)
	}
	return out, nil
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context, chainID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chain_links WHERE chain_id = $1", chainID,
	).Scan(&n); err != nil {
		return 0, storeErr("count links", err)
	}
	return n, nil
}

// Chains implements Store.
func (s *PostgresStore) Chains(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT chain_id FROM chain_links ORDER BY chain_id",
	)
	if err != nil {
		return nil, storeErr("list chains", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan chain id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list chains", err)
	}
	return ids, nil
}
