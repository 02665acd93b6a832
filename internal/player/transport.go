package player

import (
	"strconv"

	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/progress"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
)

// PlaySong puts song right after the queue cursor, makes it current and starts
// it before returning.
func (e *Engine) PlaySong(song models.Song) {
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}

	e.checkPreloadLocked()
	item := e.queue.PlayTrack(song)
	e.startLocked(item.Song, item.QueueID)
}

// TogglePlay pauses while playing and plays otherwise.
func (e *Engine) TogglePlay() {
	if e.State().IsPlaying {
		e.Pause()
		return
	}
	e.Play()
}

// Play resumes the active song. With nothing active it starts the queue's
// current song; after the queue finished it restarts the last one.
func (e *Engine) Play() {
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}

	switch {
	case e.activeSong == nil:
		item := e.queue.CurrentItem()
		if item == nil {
			return
		}
		e.startLocked(item.Song, item.QueueID)
	case e.machine.is(StatusStopped, StatusEnded, StatusIdle):
		e.startLocked(*e.activeSong, "")
	case e.isPlayingLocked():
	default:
		e.playLocked(e.deck.Active())
	}
}

// Pause pauses and saves progress right away.
func (e *Engine) Pause() {
	e.lock()
	defer e.unlock()
	if e.closed || !e.machine.is(StatusPlaying, StatusRecovering, StatusLoading) {
		return
	}

	e.finishFadeLocked()
	e.deck.Active().Pause()
	e.fire(trPause)
	e.saveProgressLocked()
	e.publishPlaybackStateLocked()
}

// SetVolume clamps v to [0, 1]. Where the platform ignores programmatic volume
// the value is recorded but not written to the element.
func (e *Engine) SetVolume(v float64) {
	v = audio.Clamp01(v)
	connected := e.connectAnalyzer() == nil

	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}

	e.volume = v
	e.changed()
	if e.fade == nil {
		e.applyVolumeLocked(e.deck.Active(), v)
	}
	if e.analyzer != nil && connected {
		e.analyzer.SetGain(v)
	}
}

// connectAnalyzer connects the visualisation graph once and reports the outcome.
func (e *Engine) connectAnalyzer() error {
	if e.analyzer == nil {
		return nil
	}
	e.analyzerOnce.Do(func() {
		if e.analyzerErr = e.analyzer.Connect(e.ctx); e.analyzerErr != nil {
			e.logger.Warn("analyzer unavailable", "error", e.analyzerErr)
		}
	})
	return e.analyzerErr
}

// Seek moves the active song to seconds. Callers clamp seconds to the duration.
func (e *Engine) Seek(seconds float64) {
	e.lock()
	defer e.unlock()
	if e.closed || e.activeSong == nil {
		return
	}
	e.seekLocked(seconds)
}

func (e *Engine) seekLocked(seconds float64) {
	e.finishFadeLocked()
	e.deck.Active().Seek(seconds)
	e.currentTime = seconds
	e.lastPos = seconds
	e.changed()
}

// PlayNext advances the queue and plays the result. It reports false when the
// queue has nothing next.
func (e *Engine) PlayNext() bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	e.checkPreloadLocked()
	next := e.queue.NextTrack()
	if next == nil {
		return false
	}
	e.startLocked(*next, e.currentQueueID())
	return true
}

// PlayPrev restarts the active song when it is past the restart threshold and
// otherwise plays the previous queue item. With nothing before it restarts.
func (e *Engine) PlayPrev() {
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}

	if e.activeSong != nil && e.deck.Active().CurrentTime() > e.cfg.RestartThreshold.Seconds() {
		e.seekLocked(0)
		return
	}

	e.checkPreloadLocked()
	prev := e.queue.PrevTrack()
	if prev == nil {
		if e.activeSong != nil {
			e.seekLocked(0)
		}
		return
	}
	e.startLocked(*prev, e.currentQueueID())
}

// PlayFromQueue makes the item at index current and plays it. Out-of-range
// indices are ignored.
func (e *Engine) PlayFromQueue(index int) bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	e.checkPreloadLocked()
	if !e.queue.SetCurrentTrack(index) {
		return false
	}
	return e.startCurrentLocked()
}

// PlayAlbum replaces the queue with album and plays from startIndex.
func (e *Engine) PlayAlbum(album models.Album, startIndex int) bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	e.checkPreloadLocked()
	e.queue.LoadAlbum(album, startIndex)
	return e.startCurrentLocked()
}

// PlayTrack plays one version of track next to the cursor, keeping every
// version of the track selectable.
func (e *Engine) PlayTrack(track models.Track, songIndex int) bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	item, ok := queue.TrackVersionsToItem(track, songIndex)
	if !ok {
		return false
	}
	e.checkPreloadLocked()
	item = e.queue.PlayItem(item)
	e.startLocked(item.Song, item.QueueID)
	return true
}

// PlayAlbumFromTrack loads album at trackIndex with song as that track's
// recording and plays it. Next and previous still move by track.
func (e *Engine) PlayAlbumFromTrack(album models.Album, trackIndex int, song models.Song) bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	e.checkPreloadLocked()
	e.queue.LoadAlbum(album, trackIndex)
	if item := e.queue.CurrentItem(); item != nil {
		e.queue.SelectVersion(queue.ByQueueID(item.QueueID), song)
	}
	return e.startCurrentLocked()
}

// SelectVersion switches the recording of a queue item. When that item is the
// one playing, the new recording starts in its place.
func (e *Engine) SelectVersion(ref queue.Ref, song models.Song) bool {
	e.lock()
	defer e.unlock()
	if e.closed {
		return false
	}

	e.checkPreloadLocked()
	idx := e.queue.SelectVersion(ref, song)
	if idx < 0 {
		return false
	}
	if idx == e.queue.CursorIndex() && e.activeSong != nil {
		e.startCurrentLocked()
	}
	return true
}

func (e *Engine) startCurrentLocked() bool {
	item := e.queue.CurrentItem()
	if item == nil {
		return false
	}
	e.startLocked(item.Song, item.QueueID)
	return true
}

// SetCrossfadeDuration sets and persists the crossfade, clamped to [0, 12] seconds.
func (e *Engine) SetCrossfadeDuration(seconds int) {
	seconds = clampCrossfade(seconds)

	e.lock()
	defer e.unlock()

	e.crossfade = seconds
	e.changed()
	if e.prefs == nil {
		return
	}
	prefs, logger := e.prefs, e.logger
	e.after(func() {
		if err := prefs.Set(CrossfadeKey, strconv.Itoa(seconds)); err != nil {
			logger.Warn("could not persist crossfade", "error", err)
		}
	})
}

func (e *Engine) SetQueueOpen(open bool) {
	e.lock()
	defer e.unlock()
	e.queueOpen = open
	e.changed()
}

func (e *Engine) ToggleQueue() bool {
	e.lock()
	defer e.unlock()
	e.queueOpen = !e.queueOpen
	e.changed()
	return e.queueOpen
}

// ResumeSavedProgress plays the saved snapshot from its position and clears it.
// It returns [shared.ErrNoSnapshot] when nothing is saved.
func (e *Engine) ResumeSavedProgress() error {
	if e.progress == nil {
		return shared.ErrNoSnapshot
	}
	snap := e.progress.Load()
	if snap == nil {
		return shared.ErrNoSnapshot
	}

	e.lock()
	defer e.unlock()
	if e.closed {
		return nil
	}

	e.checkPreloadLocked()
	item := e.queue.PlayTrack(progress.StubSong(*snap))
	e.startLocked(item.Song, item.QueueID)
	e.seekLocked(snap.Position)
	e.progress.Clear()
	e.logger.Info("resumed", "song", snap.SongID, "position", snap.Position)
	return nil
}
