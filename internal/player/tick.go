package player

import (
	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
)

// maxTickDelta caps how much playback one tick can account for, so seeks and
// suspended processes do not count as listening.
const maxTickDelta = 5.0

// Tick samples the active element and runs the time-driven work. [Engine.Run]
// calls it on every tick; tests call it directly.
func (e *Engine) Tick() {
	e.lock()
	defer e.unlock()

	if e.closed || e.activeSong == nil {
		return
	}

	el := e.deck.Active()
	pos := el.CurrentTime()
	dur := el.Duration()
	if dur <= 0 {
		dur = e.activeSong.Duration
	}
	if pos != e.currentTime || dur != e.duration {
		e.currentTime, e.duration = pos, dur
		e.changed()
	}

	if e.machine.is(StatusRecovering) && pos > 0 {
		e.fire(trConfirm)
	}

	playing := e.isPlayingLocked()
	if playing && !e.buffering {
		if delta := pos - e.lastPos; delta > 0 && delta <= maxTickDelta {
			e.playedSecs += delta
		}
	}
	e.lastPos = pos

	song := *e.activeSong
	if !e.played[song.ID] && e.playedSecs >= e.cfg.PlayedThreshold.Seconds() {
		e.played[song.ID] = true
		secs, sink := e.playedSecs, e.sink
		e.after(func() { sink.TrackSongPlayed(song, secs) })
	}
	if dur > 0 && pos >= dur*e.cfg.CompleteFraction {
		e.markCompleteLocked(song)
	}

	if !playing {
		return
	}

	now := e.now()
	if e.cfg.SaveInterval > 0 && now.Sub(e.lastSave) >= e.cfg.SaveInterval {
		e.saveProgressLocked()
	}
	if e.buffering && !e.stallHandled && e.cfg.StallTimeout > 0 && now.Sub(e.bufferingSince) >= e.cfg.StallTimeout {
		e.stallHandled = true
		e.degradeLocked(pos)
	}

	e.checkPreloadLocked()
	if dur <= 0 {
		return
	}
	remaining := dur - pos
	window := max(e.cfg.PreloadWindow.Seconds(), float64(e.crossfade))
	if remaining <= window {
		e.preloadNextLocked()
	}
	if e.fade != nil {
		e.rampLocked()
	} else if e.crossfadeEnabledLocked() && remaining <= float64(e.crossfade) {
		e.startCrossfadeLocked()
	}
}

// markCompleteLocked fires the completion event once per activation.
func (e *Engine) markCompleteLocked(song models.Song) {
	if e.completed[song.ID] {
		return
	}
	e.completed[song.ID] = true
	sink := e.sink
	e.after(func() { sink.TrackSongComplete(song) })
}

// preloadNextLocked loads the queue's lookahead into the preload element
// unless it is the active song or already there.
func (e *Engine) preloadNextLocked() {
	if e.fade != nil {
		return
	}
	next := e.queue.PeekNextItem()
	if next == nil || next.Song.ID == e.activeSongID() {
		return
	}
	if e.preload != nil && e.preload.song.ID == next.Song.ID && e.preload.queueID == next.QueueID {
		return
	}

	e.invalidatePreloadLocked()
	url := e.resolver.StreamURL(next.Song)
	el := e.deck.Preload()
	token := loadSong(el, url, next.Song)
	e.applyVolumeLocked(el, 0)
	e.preload = &preloadSlot{
		song:       next.Song,
		queueID:    next.QueueID,
		url:        url,
		token:      token,
		generation: e.queue.Generation(),
	}
	e.logger.Debug("preloading", "song", next.Song.ID)
}

func (e *Engine) crossfadeEnabledLocked() bool {
	return e.crossfade > 0 && e.platform.SupportsVolumeControl() && e.machine.is(StatusPlaying)
}

// startCrossfadeLocked advances the queue into the preloaded song while the
// active one is still playing. The elements swap roles at once; the ramp
// happens on the following ticks.
func (e *Engine) startCrossfadeLocked() {
	p := e.preload
	if p == nil {
		return
	}
	if next := e.queue.PeekNextItem(); next == nil || next.QueueID != p.queueID || next.Song.ID != p.song.ID {
		e.invalidatePreloadLocked()
		return
	}

	outgoing := *e.activeSong
	if e.progress != nil {
		e.progress.ClearFor(outgoing.ID)
	}
	e.markCompleteLocked(outgoing)

	e.fire(trEnd)
	e.fire(trAdvance)
	if e.queue.NextTrack() == nil {
		e.fire(trExhaust)
		return
	}

	e.fade = &fade{out: e.deck.Active(), token: e.token}
	e.deck.Swap()
	e.preload = nil
	e.token = p.token
	e.activeURL = p.url

	in := e.deck.Active()
	e.activateLocked(p.song)
	in.SetVolume(0)
	e.logger.Debug("crossfade", "from", outgoing.ID, "to", p.song.ID, "seconds", e.crossfade)
	if !e.playLocked(in) {
		e.finishFadeLocked()
	}
}

// rampLocked sets both volumes from the incoming element's position.
func (e *Engine) rampLocked() {
	in := e.deck.Active()
	g := smoothstep(in.CurrentTime() / float64(e.crossfade))
	if g >= 1 {
		e.finishFadeLocked()
		return
	}
	in.SetVolume(e.volume * g)
	e.fade.out.SetVolume(e.volume * (1 - g))
}

// degradeLocked reloads the active song one quality tier lower at pos.
func (e *Engine) degradeLocked(pos float64) {
	song := *e.activeSong
	url, ok := e.resolver.LowerQualityURL(song, e.activeURL)
	if !ok {
		e.logger.Warn("stalled at lowest quality", "song", song.ID)
		return
	}
	e.logger.Warn("stalled, lowering quality", "song", song.ID, "position", pos)

	el := e.deck.Active()
	e.activeURL = url
	e.token = loadSong(el, url, song)
	e.handled = false
	el.Seek(pos)
	e.lastPos = pos
	e.applyVolumeLocked(el, e.volume)
	if err := el.Play(e.ctx); err != nil {
		e.logger.Warn("play refused", "song", song.ID, "error", err)
	}
	e.bufferingSince = e.now()
	e.stallHandled = false
}

// smoothstep eases t in [0, 1].
func smoothstep(t float64) float64 {
	t = audio.Clamp01(t)
	return t * t * (3 - 2*t)
}
