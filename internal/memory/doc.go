// Package memory persists the learning/confidence memory in SQLite and
// answers the two lookups the correction pipeline relies on.
//
// The Store remembers which legal-entity name was seen with which document
// number in each party role, learned from files the operator has already
// corrected. Every observed pair carries an occurrence count and a status:
// active pairs feed automatic lookups, quarantined pairs are retained but
// excluded until enough corroborating evidence promotes them. Within one
// (name key, role) group at most one pair is ever active; the resolver's
// margin and per-role threshold rules decide which, if any.
//
// Ingestion of one corrected file is a single transaction guarded by a
// process-wide mutex and a cross-process file lock; replays of
// byte-identical content are detected via SHA-256 and applied as no-ops.
// Lookups never touch the database: they read an immutable snapshot that is
// rebuilt and atomically swapped after each successful ingestion.
//
// Treat this package as the single source of truth for learning semantics;
// schema changes are added as new files under migrations/ and applied in
// order at open.
package memory
