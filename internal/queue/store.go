package queue

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Store owns the unified queue for one session.
type Store struct {
	mu sync.Mutex

	items   []models.QueueItem
	cursor  int
	shuffle bool
	repeat  models.RepeatMode
	groups  []models.AlbumGroup

	// upNext holds queue ids added with AddToUpNext that have not played yet, oldest first.
	upNext []string
	// bag holds queue ids left in the current shuffle cycle, in draw order.
	bag []string
	// history holds queue ids made current while shuffling, for PrevTrack.
	history []string
	// pendingCycle is set when the bag was refilled for a new cycle that NextTrack has not entered yet.
	pendingCycle bool

	generation uint64
	rng        *rand.Rand
	logger     *log.Logger

	subsMu sync.Mutex
	subs   []*Subscription
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = shared.WithLogger(l, "component", "queue") }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{cursor: -1, repeat: models.RepeatOff}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if s.logger == nil {
		s.logger = shared.WithLogger(shared.NewLogger(nil), "component", "queue")
	}
	return s
}

// LoadAlbum replaces the whole queue with one item per track of album and makes
// the item for track startIndex current. startIndex is clamped.
func (s *Store) LoadAlbum(album models.Album, startIndex int) {
	items := AlbumToItems(album)

	s.mu.Lock()
	defer s.mu.Unlock()

	start := startIndex
	if i := slices.IndexFunc(items, func(it models.QueueItem) bool { return it.AlbumSource.TrackIndex == startIndex }); i >= 0 {
		start = i
	}
	s.replaceLocked(items, start)
	s.logger.Debug("album loaded", "album", album.Identifier, "items", len(items), "cursor", s.cursor)
}

// LoadItems replaces the queue with items and makes start current. start is clamped.
func (s *Store) LoadItems(items []models.QueueItem, start int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(cloneItems(items), start)
}

func (s *Store) replaceLocked(items []models.QueueItem, start int) {
	for i := range items {
		items[i].Played = false
	}
	s.items = items
	s.upNext = nil
	s.history = nil
	s.bag = nil
	s.pendingCycle = false
	s.cursor = -1

	if len(items) > 0 {
		s.cursor = clamp(start, 0, len(items)-1)
		s.activateLocked(s.cursor)
		if s.shuffle {
			s.refillBagLocked(true)
		}
	}

	s.contentChangedLocked(-1)
	s.notifyLocked(ChangeCursor, s.cursor)
}

// PlayTrack inserts song as an ad-hoc item right after the cursor and makes it current.
// Pending up-next items stay queued behind it.
func (s *Store) PlayTrack(song models.Song) models.QueueItem {
	return s.PlayItem(TrackToItem(song))
}

// PlayItem inserts item right after the cursor and makes it current.
func (s *Store) PlayItem(item models.QueueItem) models.QueueItem {
	item = s.prepareItem(item)

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.cursor + 1
	s.insertLocked(at, item)
	s.cursor = at
	s.activateLocked(at)
	s.contentChangedLocked(at)
	s.notifyLocked(ChangeCursor, at)
	return item
}

// AddToUpNext inserts song after the cursor, behind earlier up-next additions,
// without changing the current item. On an empty queue the item becomes current.
func (s *Store) AddToUpNext(song models.Song) models.QueueItem {
	item := s.prepareItem(TrackToItem(song))

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		s.insertLocked(0, item)
		s.cursor = 0
		s.activateLocked(0)
		s.contentChangedLocked(0)
		s.notifyLocked(ChangeCursor, 0)
		return item
	}

	at := s.cursor + 1
	for at < len(s.items) && slices.Contains(s.upNext, s.items[at].QueueID) {
		at++
	}
	s.insertLocked(at, item)
	s.upNext = append(s.upNext, item.QueueID)
	s.contentChangedLocked(at)
	return item
}

// AddToQueue appends song at the end. On an empty queue the item becomes current.
func (s *Store) AddToQueue(song models.Song) models.QueueItem {
	item := s.prepareItem(TrackToItem(song))

	s.mu.Lock()
	defer s.mu.Unlock()

	at := len(s.items)
	s.insertLocked(at, item)
	if s.cursor < 0 {
		s.cursor = 0
		s.activateLocked(0)
		s.notifyLocked(ChangeCursor, 0)
	} else if s.shuffle {
		pos := s.rng.IntN(len(s.bag) + 1)
		s.bag = slices.Insert(s.bag, pos, item.QueueID)
	}
	s.contentChangedLocked(at)
	return item
}

// RemoveItem deletes the item at index. Removing the current item makes the
// following item current (or the new last item). Out-of-range is a no-op.
func (s *Store) RemoveItem(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return false
	}

	id := s.items[index].QueueID
	s.items = slices.Delete(s.items, index, index+1)
	s.forgetLocked(id)

	wasCurrent := index == s.cursor
	switch {
	case len(s.items) == 0:
		s.cursor = -1
	case index < s.cursor:
		s.cursor--
	case wasCurrent:
		s.cursor = min(s.cursor, len(s.items)-1)
		s.activateLocked(s.cursor)
	}

	s.contentChangedLocked(index)
	if wasCurrent {
		s.notifyLocked(ChangeCursor, s.cursor)
	}
	return true
}

// Clear empties the queue.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.cursor = -1
	s.upNext = nil
	s.bag = nil
	s.history = nil
	s.contentChangedLocked(-1)
	s.notifyLocked(ChangeCursor, -1)
}

// MoveItem moves the item at from to position to. The current item keeps being
// current wherever it ends up. from out of range is a no-op; to is clamped.
func (s *Store) MoveItem(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.items) {
		return false
	}
	to = clamp(to, 0, len(s.items)-1)
	if from == to {
		return false
	}

	item := s.items[from]
	s.items = slices.Delete(s.items, from, from+1)
	s.items = slices.Insert(s.items, to, item)

	switch {
	case from == s.cursor:
		s.cursor = to
	case from < s.cursor && to >= s.cursor:
		s.cursor--
	case from > s.cursor && to <= s.cursor:
		s.cursor++
	}

	s.contentChangedLocked(to)
	return true
}

// SetCurrentTrack makes the item at index current. Out-of-range is a no-op.
func (s *Store) SetCurrentTrack(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return false
	}
	s.moveCursorLocked(index)
	return true
}

// SongAt returns the selected song at index, or nil when out of range.
func (s *Store) SongAt(index int) *models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return nil
	}
	song := s.items[index].Song
	return &song
}

// ItemAt returns a copy of the item at index, or nil when out of range.
func (s *Store) ItemAt(index int) *models.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return nil
	}
	item := s.items[index]
	return &item
}

// Ref identifies a queue item for [Store.SelectVersion].
type Ref struct {
	queueID    string
	trackIndex int
	byTrack    bool
}

// ByQueueID refers to the item with the given queue id.
func ByQueueID(id string) Ref { return Ref{queueID: id} }

// ByTrackIndex refers to the album-sourced item for track index i, preferring the
// current item's album when several albums are queued.
func ByTrackIndex(i int) Ref { return Ref{trackIndex: i, byTrack: true} }

// SelectVersion switches the referenced item to song. It is a no-op when song is
// not among the item's versions or is already selected; order and cursor never change.
// It returns the item's index when something changed, else -1.
func (s *Store) SelectVersion(ref Ref, song models.Song) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.resolveRefLocked(ref)
	if idx < 0 {
		return -1
	}

	item := &s.items[idx]
	if item.Song.ID == song.ID || !item.HasVersion(song.ID) {
		return -1
	}

	item.Song = song
	s.generation++
	s.notifyLocked(ChangeVersion, idx)
	return idx
}

func (s *Store) resolveRefLocked(ref Ref) int {
	if !ref.byTrack {
		return slices.IndexFunc(s.items, func(it models.QueueItem) bool { return it.QueueID == ref.queueID })
	}

	matches := func(album string) func(models.QueueItem) bool {
		return func(it models.QueueItem) bool {
			return it.AlbumSource != nil && it.AlbumSource.TrackIndex == ref.trackIndex &&
				(album == "" || it.AlbumSource.AlbumIdentifier == album)
		}
	}

	if s.cursor >= 0 {
		if src := s.items[s.cursor].AlbumSource; src != nil {
			if i := slices.IndexFunc(s.items, matches(src.AlbumIdentifier)); i >= 0 {
				return i
			}
		}
	}
	return slices.IndexFunc(s.items, matches(""))
}

// SetRepeat sets the repeat mode. Unknown modes are ignored.
func (s *Store) SetRepeat(mode models.RepeatMode) {
	if _, ok := models.ParseRepeatMode(string(mode)); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repeat == mode {
		return
	}
	s.repeat = mode
	s.generation++
	s.notifyLocked(ChangeMode, -1)
}

// CycleRepeat advances the repeat mode off → all → one → off and returns the new mode.
func (s *Store) CycleRepeat() models.RepeatMode {
	s.mu.Lock()
	mode := s.repeat.Next()
	s.mu.Unlock()

	s.SetRepeat(mode)
	return mode
}

// ToggleShuffle flips shuffle and returns the new state. Turning shuffle on
// reshuffles only the items not yet played; the played history is kept.
func (s *Store) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setShuffleLocked(!s.shuffle)
	return s.shuffle
}

// SetShuffle enables or disables shuffle.
func (s *Store) SetShuffle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuffle != on {
		s.setShuffleLocked(on)
	}
}

func (s *Store) setShuffleLocked(on bool) {
	s.shuffle = on
	s.bag = nil
	s.history = nil
	if on {
		if s.cursor >= 0 {
			s.history = []string{s.items[s.cursor].QueueID}
		}
		s.refillBagLocked(true)
	}
	s.generation++
	s.notifyLocked(ChangeMode, -1)
}

// CurrentItem returns a copy of the current item, or nil.
func (s *Store) CurrentItem() *models.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return nil
	}
	item := s.items[s.cursor]
	return &item
}

// CurrentSong returns the selected song of the current item, or nil.
func (s *Store) CurrentSong() *models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return nil
	}
	song := s.items[s.cursor].Song
	return &song
}

func (s *Store) HasItems() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) IsFirstItem() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor == 0
}

func (s *Store) IsLastItem() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0 && s.cursor == len(s.items)-1
}

func (s *Store) CursorIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Items returns a copy of the queue.
func (s *Store) Items() []models.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Store) Groups() []models.AlbumGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.groups)
}

func (s *Store) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuffle
}

func (s *Store) Repeat() models.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

// Generation increases on every content, cursor, mode or version change.
// Holders of derived state, like a preloaded next song, compare it to detect staleness.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot returns a copy of the whole queue state.
func (s *Store) Snapshot() models.UnifiedQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.UnifiedQueue{
		Items:       cloneItems(s.items),
		CursorIndex: s.cursor,
		Shuffle:     s.shuffle,
		Repeat:      s.repeat,
		Groups:      slices.Clone(s.groups),
	}
}

// Subscribe registers a new change listener.
func (s *Store) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (s *Store) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if i := slices.Index(s.subs, sub); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
		sub.close()
	}
}

// Close closes every subscription.
func (s *Store) Close() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
}

// prepareItem makes sure item carries a queue id and lists its own song as a version.
func (s *Store) prepareItem(item models.QueueItem) models.QueueItem {
	if item.QueueID == "" {
		item.QueueID = shared.GenerateID()
	}
	if !item.HasVersion(item.Song.ID) {
		item.AvailableVersions = append(slices.Clone(item.AvailableVersions), item.Song)
	}
	item.Played = false
	return item
}

func (s *Store) insertLocked(at int, item models.QueueItem) {
	s.items = slices.Insert(s.items, at, item)
	if at <= s.cursor {
		s.cursor++
	}
}

// activateLocked marks the item at index as played and drops it from pending lists.
func (s *Store) activateLocked(index int) {
	item := &s.items[index]
	item.Played = true
	s.upNext = slices.DeleteFunc(s.upNext, func(id string) bool { return id == item.QueueID })
	s.bag = slices.DeleteFunc(s.bag, func(id string) bool { return id == item.QueueID })
	if s.shuffle && (len(s.history) == 0 || s.history[len(s.history)-1] != item.QueueID) {
		s.history = append(s.history, item.QueueID)
	}
}

func (s *Store) moveCursorLocked(index int) {
	s.cursor = index
	s.activateLocked(index)
	s.generation++
	s.notifyLocked(ChangeCursor, index)
}

func (s *Store) forgetLocked(id string) {
	drop := func(x string) bool { return x == id }
	s.upNext = slices.DeleteFunc(s.upNext, drop)
	s.bag = slices.DeleteFunc(s.bag, drop)
	s.history = slices.DeleteFunc(s.history, drop)
}

func (s *Store) contentChangedLocked(index int) {
	s.groups = Groups(s.items)
	s.generation++
	s.notifyLocked(ChangeContent, index)
}

func (s *Store) notifyLocked(kind ChangeKind, index int) {
	c := Change{Kind: kind, Index: index, Generation: s.generation}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.send(c)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
