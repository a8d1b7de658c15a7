package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/grove/pkg/storage"
)

// ListTrees returns every tree, tallest first.
func (s *Store) ListTrees(ctx context.Context) (trees []storage.TreeSummary, err error) {
	ctx, done := s.observe(ctx, "list_trees")
	defer done(&err)

	return s.queryTreeSummaries(ctx, "list trees", listTreesQuery)
}

// SearchTrees returns trees whose name contains value, ordered by name.
// Case sensitivity follows the backend's LIKE.
func (s *Store) SearchTrees(ctx context.Context, value string) (trees []storage.TreeSummary, err error) {
	ctx, done := s.observe(ctx, "search_trees")
	defer done(&err)

	return s.queryTreeSummaries(ctx, "search trees", searchTreesQuery, "%"+value+"%")
}

func (s *Store) queryTreeSummaries(ctx context.Context, op, query string, args ...any) ([]storage.TreeSummary, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	trees := []storage.TreeSummary{}
	for rows.Next() {
		var t storage.TreeSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.HeightFt); err != nil {
			return nil, s.wrap(op, err)
		}
		trees = append(trees, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(op, err)
	}
	return trees, nil
}

// GetTree returns the tree with the given id or storage.ErrNotFound.
func (s *Store) GetTree(ctx context.Context, id int64) (tree *storage.Tree, err error) {
	ctx, done := s.observe(ctx, "get_tree")
	defer done(&err)

	return s.scanTree(s.q.QueryRowContext(ctx, getTreeQuery, id))
}

// FindTreeByName returns the lowest-id tree named name or storage.ErrNotFound.
func (s *Store) FindTreeByName(ctx context.Context, name string) (tree *storage.Tree, err error) {
	ctx, done := s.observe(ctx, "find_tree_by_name")
	defer done(&err)

	return s.scanTree(s.q.QueryRowContext(ctx, findTreeByNameQuery, name))
}

func (s *Store) scanTree(row *sql.Row) (*storage.Tree, error) {
	t := &storage.Tree{}
	err := row.Scan(&t.ID, &t.Name, &t.Location, &t.HeightFt, &t.GroundCircumferenceFt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("get tree", err)
	}
	return t, nil
}

// CreateTree inserts tree and sets its ID and timestamps.
func (s *Store) CreateTree(ctx context.Context, tree *storage.Tree) (err error) {
	ctx, done := s.observe(ctx, "create_tree")
	defer done(&err)

	now := s.now()
	err = s.q.QueryRowContext(ctx, createTreeQuery,
		tree.Name, tree.Location, tree.HeightFt, tree.GroundCircumferenceFt, now, now,
	).Scan(&tree.ID)
	if err != nil {
		return s.wrap("create tree", err)
	}
	tree.CreatedAt = now
	tree.UpdatedAt = now
	return nil
}

// UpdateTree overwrites every mutable column of tree.
func (s *Store) UpdateTree(ctx context.Context, tree *storage.Tree) (err error) {
	ctx, done := s.observe(ctx, "update_tree")
	defer done(&err)

	now := s.now()
	res, err := s.q.ExecContext(ctx, updateTreeQuery,
		tree.Name, tree.Location, tree.HeightFt, tree.GroundCircumferenceFt, now, tree.ID,
	)
	if err != nil {
		return s.wrap("update tree", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	tree.UpdatedAt = now
	return nil
}

// DeleteTree removes the tree and its join rows.
func (s *Store) DeleteTree(ctx context.Context, id int64) (err error) {
	ctx, done := s.observe(ctx, "delete_tree")
	defer done(&err)

	return s.WithTx(ctx, func(tx storage.Repository) error {
		q := tx.(*Store).q
		if _, err := q.ExecContext(ctx, deleteTreeLinksQuery, id); err != nil {
			return s.wrap("delete tree links", err)
		}
		res, err := q.ExecContext(ctx, deleteTreeQuery, id)
		if err != nil {
			return s.wrap("delete tree", err)
		}
		return requireRow(res)
	})
}
