// Package queue implements the unified queue: one flat, ordered list of
// [models.QueueItem] plus a cursor naming the current item.
//
// The [Store] is the authority on sequence and selection. It never panics or
// returns errors for bad indices; out-of-range input is clamped or ignored so
// that after every call either the queue is empty and the cursor is -1, or the
// cursor points at a valid item.
//
// Navigation honours [models.RepeatMode] and shuffle. Shuffle draws from a bag
// holding every item not yet played in the current cycle, so no item repeats
// before all have played once. [Store.PeekNextTrack] uses the same selection
// as [Store.NextTrack] without moving the cursor.
//
// Album groups are contiguous runs of items from the same show. They are for
// display only and never affect playback order.
package queue
