package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements used by the stores.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const getDesire = `
SELECT user_name, id, status, title, data, created_at, updated_at
FROM desires
WHERE user_name = ? AND id = ?
`

type GetDesireParams struct {
	UserName string
	ID       string
}

func (q *Queries) GetDesire(ctx context.Context, arg GetDesireParams) (DesireRow, error) {
	row := q.db.QueryRowContext(ctx, getDesire, arg.UserName, arg.ID)
	var i DesireRow
	err := row.Scan(&i.UserName, &i.ID, &i.Status, &i.Title, &i.Data, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listDesiresByStatus = `
SELECT user_name, id, status, title, data, created_at, updated_at
FROM desires
WHERE user_name = ? AND status = ?
ORDER BY created_at, id
`

type ListDesiresByStatusParams struct {
	UserName string
	Status   string
}

func (q *Queries) ListDesiresByStatus(ctx context.Context, arg ListDesiresByStatusParams) ([]DesireRow, error) {
	rows, err := q.db.QueryContext(ctx, listDesiresByStatus, arg.UserName, arg.Status)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []DesireRow
	for rows.Next() {
		var i DesireRow
		if err := rows.Scan(&i.UserName, &i.ID, &i.Status, &i.Title, &i.Data, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listDesireUsers = `
SELECT DISTINCT user_name FROM desires ORDER BY user_name
`

func (q *Queries) ListDesireUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listDesireUsers)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

const saveDesire = `
INSERT INTO desires (user_name, id, status, title, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_name, id) DO UPDATE SET
    status     = excluded.status,
    title      = excluded.title,
    data       = excluded.data,
    updated_at = excluded.updated_at
`

type SaveDesireParams struct {
	UserName  string
	ID        string
	Status    string
	Title     string
	Data      string
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) SaveDesire(ctx context.Context, arg SaveDesireParams) error {
	_, err := q.db.ExecContext(ctx, saveDesire,
		arg.UserName, arg.ID, arg.Status, arg.Title, arg.Data, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateDesireInStatus = `
UPDATE desires SET title = ?, data = ?, updated_at = ?
WHERE user_name = ? AND id = ? AND status = ?
`

type UpdateDesireInStatusParams struct {
	Title     string
	Data      string
	UpdatedAt int64
	UserName  string
	ID        string
	Status    string
}

// UpdateDesireInStatus returns the number of rows written, zero when the row
// is missing or has moved to another status.
func (q *Queries) UpdateDesireInStatus(ctx context.Context, arg UpdateDesireInStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateDesireInStatus,
		arg.Title, arg.Data, arg.UpdatedAt, arg.UserName, arg.ID, arg.Status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const incrementMetric = `
INSERT INTO desire_metrics (user_name, name, value) VALUES (?, ?, 1)
ON CONFLICT (user_name, name) DO UPDATE SET value = value + 1
`

type IncrementMetricParams struct {
	UserName string
	Name     string
}

func (q *Queries) IncrementMetric(ctx context.Context, arg IncrementMetricParams) error {
	_, err := q.db.ExecContext(ctx, incrementMetric, arg.UserName, arg.Name)
	return err
}

const listMetrics = `
SELECT user_name, name, value FROM desire_metrics WHERE user_name = ? ORDER BY name
`

func (q *Queries) ListMetrics(ctx context.Context, userName string) ([]DesireMetric, error) {
	rows, err := q.db.QueryContext(ctx, listMetrics, userName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []DesireMetric
	for rows.Next() {
		var i DesireMetric
		if err := rows.Scan(&i.UserName, &i.Name, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const kvGet = `
SELECT key, value, expires_at, created_at, updated_at FROM kv_store WHERE key = ?
`

func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	row := q.db.QueryRowContext(ctx, kvGet, key)
	var i KvStore
	err := row.Scan(&i.Key, &i.Value, &i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const kvSet = `
INSERT INTO kv_store (key, value, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value      = excluded.value,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at
`

type KVSetParams struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const kvDelete = `DELETE FROM kv_store WHERE key = ?`

func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, kvDelete, key)
	return err
}

const kvListKeys = `
SELECT key FROM kv_store
WHERE key LIKE ? ESCAPE '\' AND (expires_at IS NULL OR expires_at >= ?)
ORDER BY key
`

type KVListKeysParams struct {
	Pattern string
	Now     int64
}

func (q *Queries) KVListKeys(ctx context.Context, arg KVListKeysParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, kvListKeys, arg.Pattern, arg.Now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	return items, rows.Err()
}

const kvSweepExpired = `
DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at < ?
`

func (q *Queries) KVSweepExpired(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, kvSweepExpired, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const acquireLock = `
INSERT INTO locks (name, owner, acquired_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
    owner       = excluded.owner,
    acquired_at = excluded.acquired_at,
    expires_at  = excluded.expires_at
WHERE locks.expires_at < excluded.acquired_at
`

type AcquireLockParams struct {
	Name       string
	Owner      string
	AcquiredAt int64
	ExpiresAt  int64
}

// AcquireLock inserts the lock row, or takes over an expired one. It reports
// the number of rows written; zero means the lock is held.
func (q *Queries) AcquireLock(ctx context.Context, arg AcquireLockParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, acquireLock, arg.Name, arg.Owner, arg.AcquiredAt, arg.ExpiresAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const releaseLock = `DELETE FROM locks WHERE name = ? AND owner = ?`

type ReleaseLockParams struct {
	Name  string
	Owner string
}

func (q *Queries) ReleaseLock(ctx context.Context, arg ReleaseLockParams) error {
	_, err := q.db.ExecContext(ctx, releaseLock, arg.Name, arg.Owner)
	return err
}

const getLock = `SELECT name, owner, acquired_at, expires_at FROM locks WHERE name = ?`

func (q *Queries) GetLock(ctx context.Context, name string) (Lock, error) {
	row := q.db.QueryRowContext(ctx, getLock, name)
	var i Lock
	err := row.Scan(&i.Name, &i.Owner, &i.AcquiredAt, &i.ExpiresAt)
	return i, err
}

const sweepExpiredLocks = `DELETE FROM locks WHERE expires_at < ?`

func (q *Queries) SweepExpiredLocks(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, sweepExpiredLocks, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
