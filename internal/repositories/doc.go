// Package repositories implements SQLite persistence for the client's durable state.
//
// The playback core treats storage as optional: every reader tolerates a missing
// value and callers degrade to defaults when a repository returns an error.
//
// Key Implementations:
//   - [LocalStorage] : string key/value store for preferences and the playback snapshot
//   - [HistoryRepository] : append-only listening history written by the analytics history sink
//
// Values in [LocalStorage] are opaque strings. JSON encoding of structured values is the
// caller's concern, see [LocalStorage.GetJSON] and [LocalStorage.SetJSON].
package repositories
