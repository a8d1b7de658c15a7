// Package storage defines the persistence contract for the grove service.
//
// # Overview
//
// Trees and insects are independent entities related many-to-many through a
// join table that carries nothing but the two foreign keys. Handlers never
// talk to a database directly; they receive a Repository at construction time
// and every call takes the request context.
//
// # Architecture
//
// The contract is split into focused capabilities that compose into
// Repository:
//
//   - TreeStore: CRUD and name search over trees
//   - InsectStore: CRUD and name search over insects
//   - AssociationStore: join-table reads (both projections) and writes
//   - Transactor: run a sequence of calls atomically
//
// The SQL implementation lives in storage/sqlstore and is shared by the
// PostgreSQL (storage/postgres) and SQLite (storage/sqlite) backends, which
// only contribute a driver, a bootstrap schema and error classification.
// storage/backends picks one from Config.
//
// # Errors
//
// Lookups that match nothing return ErrNotFound. Inserting a join row that
// already exists returns ErrAlreadyAssociated. Driver failures are wrapped in
// *StoreError so callers can surface the underlying validation messages:
//
//	tree, err := repo.GetTree(ctx, id)
//	if errors.Is(err, storage.ErrNotFound) {
//		// 404
//	}
//
// # Transactions
//
//	err := repo.WithTx(ctx, func(tx storage.Repository) error {
//		if err := tx.CreateTree(ctx, tree); err != nil {
//			return err
//		}
//		return tx.Associate(ctx, tree.ID, insectID)
//	})
//
// Returning an error from the callback rolls back every write made through tx.
package storage
