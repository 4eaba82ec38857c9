// Package store persists the bot's event ledger using SQLite.
//
// # Architecture
//
// Store is the interface consumed by the bot; SQLiteStore implements it on
// modernc.org/sqlite and MockStore keeps everything in memory for tests.
//
// The ledger is append-only and audit-only: it records every inbound event
// with how it was handled and every outbound send with its message id.
// Nothing in the conversation engine reads it back.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//
// Database file locations:
//
//   - Production: /var/lib/coven-bot/ledger.db
//   - Development: ~/.local/share/coven-bot/ledger.db
//   - Testing: a file under t.TempDir()
//
// All methods accept context.Context for cancellation support.
package store
