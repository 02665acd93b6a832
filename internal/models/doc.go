// Package models defines the media catalog shapes and queue entities the player core passes around.
//
// The package contains two categories of types:
//
// 1. Catalog shapes: immutable data fetched from the catalog layer and only ever referenced
//   - [Song] : one concrete recording of a track at a show, with per-quality stream URLs
//   - [Track] : a song title within one show, aggregating its recorded versions
//   - [Album] : a show, an ordered list of tracks plus venue and date
//
// 2. Queue entities: owned by the queue store
//   - [QueueItem] : the queue's unit of work, a selected [Song] plus its sibling versions
//   - [AlbumSource] : which show and track index a queue item visually belongs to
//   - [AlbumGroup] : a contiguous run of queue items from the same show
//   - [UnifiedQueue] : a point-in-time copy of the whole queue
//
// [PlaybackSnapshot] is the only queue-adjacent state that outlives a session.
package models
