package db

import "database/sql"

// DesireRow is a persisted desire. Data holds the JSON document; the other
// columns are copies used for lookup and ordering.
type DesireRow struct {
	UserName  string
	ID        string
	Status    string
	Title     string
	Data      string
	CreatedAt int64
	UpdatedAt int64
}

type DesireMetric struct {
	UserName string
	Name     string
	Value    int64
}

type KvStore struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

type Lock struct {
	Name       string
	Owner      string
	AcquiredAt int64
	ExpiresAt  int64
}
