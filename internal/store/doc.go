// Package store provides a SQLite-backed source catalog for query
// execution.
//
// The store holds named tables. Each table records its item type and an
// ordered list of rows:
//   - source_tables: table name and item type text
//   - source_rows: one canonical JSON row per record, keyed by UUIDv7
//
// # Critical Patterns
//
// Deterministic Reads
//   - Rows are returned ORDER BY seq ASC, id ASC COLLATE BINARY
//   - seq is the insertion position, never a timestamp
//
// Canonical Rows
//   - Rows are stored as RFC 8785 canonical JSON (ir.MarshalCanonical)
//   - Decimal values keep their exact digits on the way back
//
// Typed Tables
//   - Inserted rows must conform to the table's item type
//   - Integers are widened to decimals in float fields
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// *Store implements expr.Catalog, so it can back execute.NewInMemory.
package store
