// Package catalog provides the optional metadata index kept next to the
// document store.
//
// The catalog records name, size, etag and timestamps for every document the
// service writes, which makes paginated listings cheap on remote backends.
// Rows are scoped by backend identity, so pointing the service at another
// backend never surfaces documents from the previous one. The backend stays
// the source of truth: `docvault reindex` rebuilds the catalog from it.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, for shared deployments
//   - SQLite: modernc.org/sqlite, for single-node deployments and tests
//
// # Usage
//
//	cfg := catalog.Config{
//	    Type:   "sqlite",
//	    DSN:    "docvault.db",
//	    Tables: docvault.Tables{Documents: "docvault_documents"},
//	}
//
//	store, err := catalog.Open(ctx, cfg, backend.Identity())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
package catalog
