package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/admin-console/internal/repository"
)

// KVRepo implements KVRepository on the console_kv table.
type KVRepo struct{ db *DB }

var _ repository.KVRepository = (*KVRepo)(nil)

// NewKVRepo constructs a key-value repository.
func NewKVRepo(db *DB) *KVRepo { return &KVRepo{db: db} }

// GetMany loads the requested keys in one round trip.
func (r *KVRepo) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	const q = `SELECT key, value FROM console_kv WHERE key = ANY($1)`
	rows, err := r.db.Pool.Query(ctx, q, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutMany upserts all pairs inside one transaction.
func (r *KVRepo) PutMany(ctx context.Context, kv map[string]string) (err error) {
	if len(kv) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `
INSERT INTO console_kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	for _, k := range repository.SortedKeys(kv) {
		if _, err = tx.Exec(ctx, q, k, kv[k]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMany removes the keys in a single statement.
func (r *KVRepo) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `DELETE FROM console_kv WHERE key = ANY($1)`
	_, err := r.db.Pool.Exec(ctx, q, keys)
	return err
}
