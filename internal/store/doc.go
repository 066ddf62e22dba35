// Package store provides SQLite-backed storage for analysis reports.
//
// Each analysis run is one row in runs plus one row per root in verdicts.
// Run rows are keyed by run ID and written with ON CONFLICT DO NOTHING, so
// recording the same report twice is harmless.
//
// Ordering uses the seq column (insertion order), never timestamps; every
// query carries an explicit ORDER BY so repeated reads are identical.
// Explanation paths are stored as canonical JSON.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: verdicts must reference an existing run
package store
