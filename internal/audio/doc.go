// Package audio defines the media element contract the playback engine drives and
// provides its implementations.
//
// An [Element] behaves like a browser audio element: [Element.Load] points it at a
// source and returns a load token, [Element.Play] starts playback once the source is
// ready, and state changes are reported as [Event] values tagged with the token of
// the load they belong to. Consumers drop events whose token is stale.
//
// Implementations:
//   - [BeepElement] : real output through gopxl/beep (built where the speaker backend is available)
//   - [SilentElement] : keeps a wall clock but produces no sound
//
// [New] picks the best implementation for the current build.
package audio
