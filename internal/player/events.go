package player

import (
	"fmt"

	"github.com/desertthunder/encore/internal/audio"
)

// handleEvent is the handler of both elements.
func (e *Engine) handleEvent(el audio.Element, ev audio.Event) {
	e.lock()
	defer e.unlock()

	if e.closed {
		return
	}

	role, ok := e.deck.RoleOf(el)
	if !ok {
		return
	}
	if role == RolePreload {
		e.handlePreloadEvent(ev)
		return
	}
	if ev.Token != e.token {
		e.logger.Debug("dropped stale event", "event", ev.Type, "token", ev.Token, "current", e.token)
		return
	}

	switch ev.Type {
	case audio.EventPlay:
		// The platform resumed us, e.g. after an interruption ended.
		if e.machine.is(StatusPaused, StatusRecoveringPaused) {
			e.fire(trStart)
			e.publishPlaybackStateLocked()
		}
	case audio.EventPlaying:
		e.setBufferingLocked(false)
		e.fire(trConfirm)
	case audio.EventWaiting:
		e.setBufferingLocked(true)
	case audio.EventPause:
		if e.machine.is(StatusPlaying, StatusRecovering) {
			e.saveProgressLocked()
			e.fire(trPause)
			e.publishPlaybackStateLocked()
		}
	case audio.EventLoaded:
		if d := e.deck.Active().Duration(); d > 0 {
			e.duration = d
			e.changed()
		}
	case audio.EventEnded:
		if e.handled {
			return
		}
		e.handled = true
		e.onEndedLocked()
	case audio.EventError:
		if e.handled {
			return
		}
		e.handled = true
		e.onErrorLocked(ev.Code)
	}
}

// handlePreloadEvent handles events from the preload slot: either the
// element preparing the next song or the outgoing element of a crossfade.
func (e *Engine) handlePreloadEvent(ev audio.Event) {
	if f := e.fade; f != nil && ev.Token == f.token {
		if ev.Type.IsTerminal() {
			e.finishFadeLocked()
		}
		return
	}
	if p := e.preload; p != nil && ev.Token == p.token && ev.Type == audio.EventError {
		e.logger.Warn("preload failed", "song", p.song.ID, "cause", ev.Code.Cause())
		e.invalidatePreloadLocked()
	}
}

func (e *Engine) setBufferingLocked(on bool) {
	if e.buffering == on {
		return
	}
	e.buffering = on
	e.stallHandled = false
	if on {
		e.bufferingSince = e.now()
	}
	e.changed()
}

// onEndedLocked handles the natural end of the active song: its snapshot is
// cleared and the queue advances, stopping with the song kept when nothing is next.
func (e *Engine) onEndedLocked() {
	if !e.fire(trEnd) {
		return
	}
	if song := e.activeSong; song != nil {
		if e.progress != nil {
			e.progress.ClearFor(song.ID)
		}
		e.markCompleteLocked(*song)
	}
	e.advanceLocked()
}

// advanceLocked moves to the queue's next song from Ended.
func (e *Engine) advanceLocked() {
	e.checkPreloadLocked()
	e.fire(trAdvance)

	next := e.queue.NextTrack()
	if next == nil {
		e.fire(trExhaust)
		e.currentTime = e.duration
		e.publishPlaybackStateLocked()
		e.logger.Info("queue finished", "last", e.activeSongID())
		return
	}
	e.startLocked(*next, e.currentQueueID())
}

// onErrorLocked reports a stream error and skips forward once. The machine
// stops instead when the error arrives while already recovering.
func (e *Engine) onErrorLocked(code audio.MediaErrorCode) {
	from := e.machine.status
	if !e.fire(trError) {
		return
	}

	failed := e.activeSong
	cause := code.Cause()
	title := ""
	if failed != nil {
		song := *failed
		title = song.Title
		sink := e.sink
		e.after(func() { sink.TrackPlaybackError(song, cause, int(code)) })
	}

	if from == StatusRecovering || from == StatusRecoveringPaused {
		e.logger.Error("stream error", "song", e.activeSongID(), "code", int(code), "cause", cause, "skipped", false)
		e.notify(fmt.Sprintf("Couldn't play %q (%s error). Playback stopped.", title, cause))
		e.publishPlaybackStateLocked()
		return
	}

	e.checkPreloadLocked()
	e.fire(trRecover)
	next := e.queue.NextTrack()
	if next == nil {
		e.fire(trExhaust)
		e.logger.Error("stream error", "song", e.activeSongID(), "code", int(code), "cause", cause, "skipped", false)
		e.notify(fmt.Sprintf("Couldn't play %q (%s error). Playback stopped.", title, cause))
		e.publishPlaybackStateLocked()
		return
	}

	e.logger.Error("stream error", "song", e.activeSongID(), "code", int(code), "cause", cause, "skipped", true, "next", next.ID)
	e.notify(fmt.Sprintf("Couldn't play %q (%s error). Skipping to %q.", title, cause, next.Title))
	e.startLocked(*next, e.currentQueueID())
}

func (e *Engine) currentQueueID() string {
	if item := e.queue.CurrentItem(); item != nil {
		return item.QueueID
	}
	return ""
}
