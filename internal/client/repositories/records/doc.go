// Package records stores codec documents for one collection in a local
// SQLite table.
//
// Each table keeps the wire document in body, plus the id, user_id,
// date_iso and updated_at columns that the composite-key lookup and ordering
// need. Rows are returned in insertion order (seq), which upserts preserve.
package records
