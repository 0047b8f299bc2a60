// Package ingest implements the idempotent ingestion store for one-shot
// submissions (ads, ai-studio, radgivning) and the read facade the admin
// UI queries.
//
// The write path guarantees at-most-once persistence per idempotency key
// under at-least-once delivery: the repository's InsertIfAbsent must be a
// single atomic storage operation, never an existence check followed by an
// insert. Concurrent retries of the same key race safely; exactly one row
// survives and later deliveries are acknowledged no-ops.
package ingest
