package sqlstore

import (
	"context"

	"github.com/platinummonkey/grove/pkg/storage"
)

// ListTreesWithInsects returns trees that have at least one insect, tallest
// first with ties broken by id. Each tree's insects are sorted by name.
func (s *Store) ListTreesWithInsects(ctx context.Context) (trees []storage.TreeWithInsects, err error) {
	ctx, done := s.observe(ctx, "list_trees_with_insects")
	defer done(&err)

	rows, err := s.q.QueryContext(ctx, treesWithInsectsQuery)
	if err != nil {
		return nil, s.wrap("list trees with insects", err)
	}
	defer rows.Close()

	trees = []storage.TreeWithInsects{}
	for rows.Next() {
		var (
			t storage.TreeWithInsects
			i storage.InsectRef
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Location, &t.HeightFt, &i.ID, &i.Name); err != nil {
			return nil, s.wrap("list trees with insects", err)
		}
		// rows arrive grouped by tree
		if n := len(trees); n > 0 && trees[n-1].ID == t.ID {
			trees[n-1].Insects = append(trees[n-1].Insects, i)
			continue
		}
		t.Insects = []storage.InsectRef{i}
		trees = append(trees, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list trees with insects", err)
	}
	return trees, nil
}

// ListInsectsWithTrees returns every insect sorted by name with the trees it
// is linked to. Insects without trees carry an empty list.
func (s *Store) ListInsectsWithTrees(ctx context.Context) (insects []storage.InsectWithTrees, err error) {
	ctx, done := s.observe(ctx, "list_insects_with_trees")
	defer done(&err)

	insects, err = s.insectsByName(ctx)
	if err != nil {
		return nil, err
	}

	// The insect rows are closed before these run so a single-connection
	// pool cannot deadlock.
	for idx := range insects {
		refs, err := s.treesForInsect(ctx, insects[idx].ID)
		if err != nil {
			return nil, err
		}
		insects[idx].Trees = refs
	}
	return insects, nil
}

func (s *Store) insectsByName(ctx context.Context) ([]storage.InsectWithTrees, error) {
	rows, err := s.q.QueryContext(ctx, insectsByNameQuery)
	if err != nil {
		return nil, s.wrap("list insects with trees", err)
	}
	defer rows.Close()

	insects := []storage.InsectWithTrees{}
	for rows.Next() {
		var i storage.InsectWithTrees
		if err := rows.Scan(&i.ID, &i.Name, &i.Description); err != nil {
			return nil, s.wrap("list insects with trees", err)
		}
		insects = append(insects, i)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list insects with trees", err)
	}
	return insects, nil
}

// TreesForInsect returns the trees linked to insectID sorted by name.
func (s *Store) TreesForInsect(ctx context.Context, insectID int64) (refs []storage.TreeRef, err error) {
	ctx, done := s.observe(ctx, "trees_for_insect")
	defer done(&err)

	return s.treesForInsect(ctx, insectID)
}

func (s *Store) treesForInsect(ctx context.Context, insectID int64) ([]storage.TreeRef, error) {
	rows, err := s.q.QueryContext(ctx, treesForInsectQuery, insectID)
	if err != nil {
		return nil, s.wrap("trees for insect", err)
	}
	defer rows.Close()

	refs := []storage.TreeRef{}
	for rows.Next() {
		var r storage.TreeRef
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, s.wrap("trees for insect", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("trees for insect", err)
	}
	return refs, nil
}

// AssociationExists reports whether treeID and insectID are linked.
func (s *Store) AssociationExists(ctx context.Context, treeID, insectID int64) (exists bool, err error) {
	ctx, done := s.observe(ctx, "association_exists")
	defer done(&err)

	var n int64
	if err := s.q.QueryRowContext(ctx, associationExistsQuery, treeID, insectID).Scan(&n); err != nil {
		return false, s.wrap("check association", err)
	}
	return n > 0, nil
}

// Associate links treeID and insectID. Linking an already linked pair
// returns storage.ErrAlreadyAssociated.
func (s *Store) Associate(ctx context.Context, treeID, insectID int64) (err error) {
	ctx, done := s.observe(ctx, "associate")
	defer done(&err)

	if _, err := s.q.ExecContext(ctx, associateQuery, treeID, insectID); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return storage.ErrAlreadyAssociated
		}
		return s.wrap("associate", err)
	}
	return nil
}

// RemoveAssociation unlinks treeID and insectID.
func (s *Store) RemoveAssociation(ctx context.Context, treeID, insectID int64) (err error) {
	ctx, done := s.observe(ctx, "remove_association")
	defer done(&err)

	res, err := s.q.ExecContext(ctx, removeAssociationQuery, treeID, insectID)
	if err != nil {
		return s.wrap("remove association", err)
	}
	return requireRow(res)
}
