// Package player implements the playback engine.
//
// An [Engine] owns two audio elements arranged as a [Deck] and plays whatever
// the queue store designates as current. Control flow follows a transition
// table (see [Status]): a media error skips forward once and a second failure
// while recovering stops playback. Near the end of a song the engine preloads
// the queue's next item into the idle slot and, when a crossfade duration is
// set, swaps the slots and ramps the two volumes against each other.
//
// Element events arrive on the elements' own goroutines; every handler takes the
// engine lock and drops events whose load token is stale. Side effects that leave
// the engine (analytics, announcements, toasts, media session) run after the
// lock is released.
package player
