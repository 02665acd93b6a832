package player

import (
	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
)

// startLocked makes song active and starts it. It reuses the preload element
// when it already holds item, otherwise it loads the active element. The caller
// has already moved the queue cursor.
//
// While advancing or recovering the load is part of that transition, so the
// machine only sees the outcome of Play.
func (e *Engine) startLocked(song models.Song, queueID string) {
	e.finishFadeLocked()

	var el audio.Element
	if p := e.preload; p != nil && p.song.ID == song.ID && (queueID == "" || p.queueID == queueID) {
		e.deck.Swap()
		e.deck.Preload().Load("")
		e.preload = nil
		el = e.deck.Active()
		e.token = p.token
		e.activeURL = p.url
		e.logger.Debug("promoted preload", "song", song.ID)
	} else {
		e.invalidatePreloadLocked()
		el = e.deck.Active()
		e.activeURL = e.resolver.StreamURL(song)
		e.token = loadSong(el, e.activeURL, song)
	}

	if !e.machine.is(StatusAdvancing, StatusRecovering) {
		e.fire(trLoad)
	}
	e.activateLocked(song)
	e.applyVolumeLocked(el, e.volume)
	e.playLocked(el)
}

// loadSong loads url into el and hands the catalog duration to elements
// that only know it from us.
func loadSong(el audio.Element, url string, song models.Song) uint64 {
	token := el.Load(url)
	if h, ok := el.(audio.DurationHinter); ok && song.Duration > 0 {
		h.SetDuration(song.Duration)
	}
	return token
}

// activateLocked runs the side effects of song becoming active.
func (e *Engine) activateLocked(song models.Song) {
	e.activeSong = &song
	e.handled = false
	e.currentTime = 0
	e.duration = song.Duration
	e.lastPos = 0
	e.playedSecs = 0
	e.lastSave = e.now()
	e.buffering = false
	e.stallHandled = false
	delete(e.played, song.ID)
	delete(e.completed, song.ID)
	e.changed()

	sink := e.sink
	e.after(func() { sink.TrackSongPlay(song) })
	if e.announcer != nil {
		e.after(func() { e.announcer.Announce("Now playing: " + song.Label()) })
	}
	if e.session != nil {
		e.after(func() { e.session.SetMetadata(song) })
	}
}

// playLocked asks el to play and routes a refusal through the machine. A
// refused start is logged, never returned: the next explicit gesture retries.
func (e *Engine) playLocked(el audio.Element) bool {
	if err := el.Play(e.ctx); err != nil {
		e.logger.Warn("play refused", "song", e.activeSongID(), "error", err, "status", e.machine.status)
		e.fire(trRefuse)
		e.publishPlaybackStateLocked()
		return false
	}
	e.fire(trStart)
	e.publishPlaybackStateLocked()
	return true
}

func (e *Engine) activeSongID() string {
	if e.activeSong == nil {
		return ""
	}
	return e.activeSong.ID
}

// applyVolumeLocked writes v to el unless the platform ignores programmatic volume.
func (e *Engine) applyVolumeLocked(el audio.Element, v float64) {
	if !e.platform.SupportsVolumeControl() {
		return
	}
	el.SetVolume(v)
}

// invalidatePreloadLocked drops whatever the preload element holds.
func (e *Engine) invalidatePreloadLocked() {
	if e.preload == nil {
		return
	}
	e.logger.Debug("dropped preload", "song", e.preload.song.ID)
	e.preload = nil
	e.deck.Preload().Load("")
}

// checkPreloadLocked drops the preload when the queue changed since it was made.
func (e *Engine) checkPreloadLocked() {
	if e.preload != nil && e.preload.generation != e.queue.Generation() {
		e.invalidatePreloadLocked()
	}
}

// finishFadeLocked ends a crossfade: the outgoing element is unloaded and the
// incoming one gets the full volume.
func (e *Engine) finishFadeLocked() {
	if e.fade == nil {
		return
	}
	e.fade.out.Load("")
	e.fade = nil
	e.applyVolumeLocked(e.deck.Active(), e.volume)
}

// saveProgressLocked writes a resume snapshot for the active song.
func (e *Engine) saveProgressLocked() {
	if e.progress == nil || e.activeSong == nil {
		return
	}
	e.lastSave = e.now()
	pos := e.deck.Active().CurrentTime()
	dur := e.deck.Active().Duration()
	if dur <= 0 {
		dur = e.activeSong.Duration
	}
	e.progress.SaveURL(*e.activeSong, e.activeURL, pos, dur)
}
