package testing

import (
	"context"
	"sync"

	"github.com/desertthunder/encore/internal/analytics"
	"github.com/desertthunder/encore/internal/models"
)

// RecordingSink captures analytics events.
type RecordingSink struct {
	analytics.FuncSink

	mu     sync.Mutex
	events []analytics.Event
}

func NewRecordingSink() *RecordingSink {
	r := &RecordingSink{}
	r.FuncSink = func(ev analytics.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}
	return r
}

func (r *RecordingSink) Events() []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]analytics.Event(nil), r.events...)
}

// Count returns how many events named name were recorded, optionally for one song.
func (r *RecordingSink) Count(name, songID string) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Name == name && (songID == "" || ev.SongID == songID) {
			n++
		}
	}
	return n
}

// Messages collects strings from notifiers and announcers.
type Messages struct {
	mu   sync.Mutex
	msgs []string
}

func (m *Messages) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, s)
}

func (m *Messages) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msgs...)
}

func (m *Messages) Last() string {
	all := m.All()
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// RecordingNotifier captures toasts.
type RecordingNotifier struct{ Messages }

func (n *RecordingNotifier) Notify(message string) { n.add(message) }

// RecordingAnnouncer captures screen-reader announcements.
type RecordingAnnouncer struct{ Messages }

func (a *RecordingAnnouncer) Announce(message string) { a.add(message) }

// RecordingMediaSession captures lock-screen metadata updates.
type RecordingMediaSession struct {
	mu     sync.Mutex
	Songs  []models.Song
	States []bool
}

func (s *RecordingMediaSession) SetMetadata(song models.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Songs = append(s.Songs, song)
}

func (s *RecordingMediaSession) SetPlaybackState(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.States = append(s.States, playing)
}

func (s *RecordingMediaSession) MetadataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Songs)
}

// Platform reports a fixed volume capability.
type Platform struct {
	Volume bool
}

func (p Platform) SupportsVolumeControl() bool { return p.Volume }

// FakeAnalyzer records connection and gain calls.
type FakeAnalyzer struct {
	mu         sync.Mutex
	ConnectErr error
	connects   int
	gains      []float64
}

func (a *FakeAnalyzer) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	return a.ConnectErr
}

func (a *FakeAnalyzer) SetGain(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gains = append(a.gains, v)
}

func (a *FakeAnalyzer) Connects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

func (a *FakeAnalyzer) Gains() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.gains...)
}
