// Package sqlstore implements storage.Repository on database/sql.
//
// Queries use $N placeholders and INSERT ... RETURNING, which both
// PostgreSQL (lib/pq) and SQLite 3.35+ (mattn/go-sqlite3) accept, so the
// backends only differ in their Dialect: bootstrap DDL and the way driver
// errors are classified.
//
// Every method takes the caller's context, opens an OpenTelemetry span and
// records Prometheus storage metrics when a *observability.Metrics is
// supplied through WithMetrics.
package sqlstore
