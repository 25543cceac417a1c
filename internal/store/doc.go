// Package store provides SQLite-backed durable storage for UMICP messages.
//
// The store keeps:
//   - Envelopes: an append-only log of canonical envelopes, keyed by hash
//   - Stream cursors: the next sequence per stream, for sender and receiver resume
//
// # Invariants
//
// Content addressing
//   - The primary key is the envelope hash, the SHA-256 of its canonical form
//   - Writing the same envelope twice is a no-op that reports the original seq
//
// Logical time
//   - Every envelope gets a strictly increasing seq at first write
//   - All queries order by seq ASC, hash ASC, never by wall time
//
// # SQLite settings
//
// The log runs in WAL mode with synchronous=NORMAL and a single
// connection. busy_timeout defaults to DefaultBusyTimeoutMS and is set
// with WithBusyTimeout.
package store
