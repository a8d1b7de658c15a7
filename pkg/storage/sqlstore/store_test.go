package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

var errDuplicate = errors.New("duplicate key")

type testDialect struct{}

func (testDialect) Name() string                     { return "test" }
func (testDialect) Schema() []string                 { return []string{"CREATE TABLE trees (id INTEGER)"} }
func (testDialect) IsUniqueViolation(err error) bool { return errors.Is(err, errDuplicate) }
func (testDialect) Messages(err error) []string {
	if err == nil {
		return nil
	}
	return []string{"test: " + err.Error()}
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(db, testDialect{}, opts...), mock
}

func TestStore_Bootstrap(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE trees (id INTEGER)").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Bootstrap(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListTrees(t *testing.T) {
	t.Run("returns summaries", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"id", "tree", "height_ft"}).
			AddRow(int64(1), "General Sherman", 274.9).
			AddRow(int64(4), "Stagg", 243.0)
		mock.ExpectQuery(listTreesQuery).WillReturnRows(rows)

		trees, err := store.ListTrees(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []storage.TreeSummary{
			{ID: 1, Name: "General Sherman", HeightFt: 274.9},
			{ID: 4, Name: "Stagg", HeightFt: 243.0},
		}, trees)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table yields empty slice", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(listTreesQuery).WillReturnRows(sqlmock.NewRows([]string{"id", "tree", "height_ft"}))

		trees, err := store.ListTrees(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, trees)
		assert.Empty(t, trees)
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(listTreesQuery).WillReturnError(errors.New("connection reset"))

		_, err := store.ListTrees(context.Background())
		require.Error(t, err)

		var se *storage.StoreError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "list trees", se.Op)
		assert.Equal(t, "test: connection reset", storage.Details(err))
	})
}

func TestStore_GetTree_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(getTreeQuery).WithArgs(int64(42)).WillReturnError(sql.ErrNoRows)

	_, err := store.GetTree(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SearchTrees_WrapsValue(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(searchTreesQuery).WithArgs("%Gen%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tree", "height_ft"}).AddRow(int64(2), "General Grant", 268.1))

	trees, err := store.SearchTrees(context.Background(), "Gen")
	require.NoError(t, err)
	assert.Len(t, trees, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateTree(t *testing.T) {
	store, mock := newMockStore(t)
	tree := &storage.Tree{Name: "Lincoln", Location: "Giant Forest", HeightFt: 255.8, GroundCircumferenceFt: 98.3}

	mock.ExpectQuery(createTreeQuery).
		WithArgs("Lincoln", "Giant Forest", 255.8, 98.3, fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	require.NoError(t, store.CreateTree(context.Background(), tree))
	assert.Equal(t, int64(3), tree.ID)
	assert.Equal(t, fixedNow, tree.CreatedAt)
	assert.Equal(t, fixedNow, tree.UpdatedAt)
}

func TestStore_UpdateTree(t *testing.T) {
	t.Run("updates row", func(t *testing.T) {
		store, mock := newMockStore(t)
		tree := &storage.Tree{ID: 3, Name: "Lincoln", HeightFt: 256}
		mock.ExpectExec(updateTreeQuery).
			WithArgs("Lincoln", "", 256.0, 0.0, fixedNow, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.UpdateTree(context.Background(), tree))
		assert.Equal(t, fixedNow, tree.UpdatedAt)
	})

	t.Run("missing row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(updateTreeQuery).WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateTree(context.Background(), &storage.Tree{ID: 99})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStore_DeleteTree(t *testing.T) {
	t.Run("deletes links then tree", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteTreeLinksQuery).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(deleteTreeQuery).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.DeleteTree(context.Background(), 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tree rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteTreeLinksQuery).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(deleteTreeQuery).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.DeleteTree(context.Background(), 7)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListTreesWithInsects_GroupsRows(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "tree", "location", "height_ft", "id", "name"}).
		AddRow(int64(1), "General Sherman", "Giant Forest", 274.9, int64(1), "Western Pygmy Blue Butterfly").
		AddRow(int64(4), "Stagg", "Alder Creek", 243.0, int64(2), "Patu Digua Spider").
		AddRow(int64(4), "Stagg", "Alder Creek", 243.0, int64(1), "Western Pygmy Blue Butterfly")
	mock.ExpectQuery(treesWithInsectsQuery).WillReturnRows(rows)

	trees, err := store.ListTreesWithInsects(context.Background())
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, []storage.InsectRef{{ID: 1, Name: "Western Pygmy Blue Butterfly"}}, trees[0].Insects)
	assert.Equal(t, []storage.InsectRef{
		{ID: 2, Name: "Patu Digua Spider"},
		{ID: 1, Name: "Western Pygmy Blue Butterfly"},
	}, trees[1].Insects)
}

func TestStore_ListInsectsWithTrees(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(insectsByNameQuery).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(2), "Patu Digua Spider", "tiny").
			AddRow(int64(3), "Zebra Beetle", "striped"))
	mock.ExpectQuery(treesForInsectQuery).WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "tree"}).AddRow(int64(4), "Stagg"))
	mock.ExpectQuery(treesForInsectQuery).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "tree"}))

	insects, err := store.ListInsectsWithTrees(context.Background())
	require.NoError(t, err)
	require.Len(t, insects, 2)
	assert.Equal(t, []storage.TreeRef{{ID: 4, Name: "Stagg"}}, insects[0].Trees)
	assert.NotNil(t, insects[1].Trees)
	assert.Empty(t, insects[1].Trees)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Associate(t *testing.T) {
	t.Run("duplicate pair", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(associateQuery).WithArgs(int64(1), int64(2)).WillReturnError(errDuplicate)

		err := store.Associate(context.Background(), 1, 2)
		assert.ErrorIs(t, err, storage.ErrAlreadyAssociated)
	})

	t.Run("other failure keeps messages", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(associateQuery).WithArgs(int64(1), int64(2)).WillReturnError(errors.New("fk violation"))

		err := store.Associate(context.Background(), 1, 2)
		require.Error(t, err)
		assert.Equal(t, "test: fk violation", storage.Details(err))
	})
}

func TestStore_AssociationExists(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(associationExistsQuery).WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	exists, err := store.AssociationExists(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_WithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(associateQuery).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithTx(context.Background(), func(tx storage.Repository) error {
			return tx.Associate(context.Background(), 1, 2)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.WithTx(context.Background(), func(tx storage.Repository) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("close inside transaction is rejected", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx storage.Repository) error {
			return tx.Close()
		})
		assert.Error(t, err)
	})
}

func TestStore_Counts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(countsQuery).WillReturnRows(
		sqlmock.NewRows([]string{"trees", "insects", "links"}).AddRow(int64(4), int64(2), int64(5)))

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.Counts{Trees: 4, Insects: 2, Associations: 5}, counts)
}

func TestStore_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store, mock := newMockStore(t, WithMetrics(metrics))
	mock.ExpectQuery(getTreeQuery).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(listTreesQuery).WillReturnError(errors.New("down"))

	_, _ = store.GetTree(context.Background(), 1)
	_, _ = store.ListTrees(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("get_tree", "test", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageErrorsTotal.WithLabelValues("get_tree", "test", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageErrorsTotal.WithLabelValues("list_trees", "test", "store")))
}

func TestStore_Close(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectClose()

	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
