package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation pq.ErrorCode = "23505"

// Dialect classifies lib/pq errors and carries the PostgreSQL schema.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS trees (
			id BIGSERIAL PRIMARY KEY,
			tree TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			height_ft DOUBLE PRECISION NOT NULL DEFAULT 0,
			ground_circumference_ft DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS insects (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			fact TEXT NOT NULL DEFAULT '',
			territory TEXT NOT NULL DEFAULT '',
			millimeters DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS insect_trees (
			tree_id BIGINT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
			insect_id BIGINT NOT NULL REFERENCES insects(id) ON DELETE CASCADE,
			PRIMARY KEY (tree_id, insect_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insect_trees_insect ON insect_trees(insect_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trees_tree ON trees(tree)`,
		`CREATE INDEX IF NOT EXISTS idx_insects_name ON insects(name)`,
	}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Messages returns the server message followed by its detail, if any.
func (Dialect) Messages(err error) []string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	msgs := []string{pqErr.Message}
	if pqErr.Detail != "" {
		msgs = append(msgs, pqErr.Detail)
	}
	return msgs
}
