// Package store is the SQLite gesture journal.
//
// A Journal attached to an engine records, per drag session:
//   - sessions: token, dragged id, initial and final board (CBOR) and hashes
//   - events: every input event with its seq, CBOR-encoded
//   - commits: every persister notification
//   - diagnostics: every diagnostic, including rejected idle events
//
// Replay re-drives a recorded session through a fresh engine and checks
// that it reproduces the same commits and the same final board hash.
//
// # Determinism
//
//   - All ordering uses seq (the engine's logical clock) and insertion
//     order, NEVER timestamps.
//   - Payloads use CBOR Core Deterministic Encoding; board hashes use
//     canonical JSON with SHA-256 domain separation (internal/canon).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - an exclusive flock on <path>.lock keeps a file journal single-writer
//     across processes
package store
