package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/grove/pkg/storage"
)

// ListInsects returns every insect, smallest first.
func (s *Store) ListInsects(ctx context.Context) (insects []storage.InsectSummary, err error) {
	ctx, done := s.observe(ctx, "list_insects")
	defer done(&err)

	return s.queryInsectSummaries(ctx, "list insects", listInsectsQuery)
}

// SearchInsects returns insects whose name contains value in store order.
func (s *Store) SearchInsects(ctx context.Context, value string) (insects []storage.InsectSummary, err error) {
	ctx, done := s.observe(ctx, "search_insects")
	defer done(&err)

	return s.queryInsectSummaries(ctx, "search insects", searchInsectsQuery, "%"+value+"%")
}

func (s *Store) queryInsectSummaries(ctx context.Context, op, query string, args ...any) ([]storage.InsectSummary, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	insects := []storage.InsectSummary{}
	for rows.Next() {
		var i storage.InsectSummary
		if err := rows.Scan(&i.ID, &i.Name, &i.Millimeters); err != nil {
			return nil, s.wrap(op, err)
		}
		insects = append(insects, i)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(op, err)
	}
	return insects, nil
}

func (s *Store) GetInsect(ctx context.Context, id int64) (insect *storage.Insect, err error) {
	ctx, done := s.observe(ctx, "get_insect")
	defer done(&err)

	return s.scanInsect(s.q.QueryRowContext(ctx, getInsectQuery, id))
}

func (s *Store) FindInsectByName(ctx context.Context, name string) (insect *storage.Insect, err error) {
	ctx, done := s.observe(ctx, "find_insect_by_name")
	defer done(&err)

	return s.scanInsect(s.q.QueryRowContext(ctx, findInsectByNameQuery, name))
}

func (s *Store) scanInsect(row *sql.Row) (*storage.Insect, error) {
	i := &storage.Insect{}
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.Fact, &i.Territory, &i.Millimeters, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("get insect", err)
	}
	return i, nil
}

func (s *Store) CreateInsect(ctx context.Context, insect *storage.Insect) (err error) {
	ctx, done := s.observe(ctx, "create_insect")
	defer done(&err)

	now := s.now()
	err = s.q.QueryRowContext(ctx, createInsectQuery,
		insect.Name, insect.Description, insect.Fact, insect.Territory, insect.Millimeters, now, now,
	).Scan(&insect.ID)
	if err != nil {
		return s.wrap("create insect", err)
	}
	insect.CreatedAt = now
	insect.UpdatedAt = now
	return nil
}

func (s *Store) UpdateInsect(ctx context.Context, insect *storage.Insect) (err error) {
	ctx, done := s.observe(ctx, "update_insect")
	defer done(&err)

	now := s.now()
	res, err := s.q.ExecContext(ctx, updateInsectQuery,
		insect.Name, insect.Description, insect.Fact, insect.Territory, insect.Millimeters, now, insect.ID,
	)
	if err != nil {
		return s.wrap("update insect", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	insect.UpdatedAt = now
	return nil
}

func (s *Store) DeleteInsect(ctx context.Context, id int64) (err error) {
	ctx, done := s.observe(ctx, "delete_insect")
	defer done(&err)

	return s.WithTx(ctx, func(tx storage.Repository) error {
		q := tx.(*Store).q
		if _, err := q.ExecContext(ctx, deleteInsectLinksQuery, id); err != nil {
			return s.wrap("delete insect links", err)
		}
		res, err := q.ExecContext(ctx, deleteInsectQuery, id)
		if err != nil {
			return s.wrap("delete insect", err)
		}
		return requireRow(res)
	})
}
