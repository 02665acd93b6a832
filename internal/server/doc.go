// Package server exposes the playback engine over a small local HTTP API so
// other processes (a phone on the LAN, a status bar widget) can drive it.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Remote Control
//
// [Remote] implements [Handler]: it owns every /api route and dispatches on method and path.
//
//	GET  /api/state       current engine state
//	GET  /api/queue       queue snapshot with album groups
//	GET  /api/events      state changes as server-sent events
//	POST /api/play        resume or start the current item
//	POST /api/pause
//	POST /api/toggle
//	POST /api/next
//	POST /api/prev
//	POST /api/seek        {"position": 93.5}
//	POST /api/volume      {"volume": 0.4}
//	POST /api/crossfade   {"seconds": 6}
//	POST /api/queue/play  {"index": 3}
//	POST /api/repeat      {"mode": "all"}; an empty body cycles
//	POST /api/shuffle     {"on": true}; an empty body toggles
//
// Every POST answers with the state after the command, the same body GET /api/state returns.
package server
