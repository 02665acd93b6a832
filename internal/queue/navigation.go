package queue

import (
	"slices"

	"github.com/desertthunder/encore/internal/models"
)

// NextTrack advances the cursor per repeat and shuffle and returns the new
// current song. It returns nil, leaving the cursor in place, when the queue is
// exhausted with repeat off. Repeat one returns the current song again.
func (s *Store) NextTrack() *models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.selectNextLocked()
	if idx < 0 {
		return nil
	}

	if s.repeat != models.RepeatOne {
		wrapped := s.pendingCycle || (!s.shuffle && idx <= s.cursor)
		if wrapped {
			for i := range s.items {
				s.items[i].Played = false
			}
			s.pendingCycle = false
		}
		s.moveCursorLocked(idx)
	}

	song := s.items[idx].Song
	return &song
}

// PeekNextTrack returns the song NextTrack would return, without moving the cursor.
func (s *Store) PeekNextTrack() *models.Song {
	item := s.PeekNextItem()
	if item == nil {
		return nil
	}
	return &item.Song
}

// PeekNextItem returns a copy of the item NextTrack would make current.
func (s *Store) PeekNextItem() *models.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.selectNextLocked()
	if idx < 0 {
		return nil
	}
	item := s.items[idx]
	return &item
}

// PrevTrack moves the cursor back and returns the new current song, or nil when
// there is nothing before it. Repeat all wraps from the first item to the last.
// While shuffling it retraces the order items were played in.
func (s *Store) PrevTrack() *models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}

	idx := -1
	switch {
	case s.shuffle:
		if len(s.history) < 2 {
			return nil
		}
		cur := s.history[len(s.history)-1]
		s.history = s.history[:len(s.history)-1]
		s.bag = slices.Insert(s.bag, 0, cur)
		idx = s.indexOfLocked(s.history[len(s.history)-1])
	case s.cursor > 0:
		idx = s.cursor - 1
	case s.repeat == models.RepeatAll:
		idx = len(s.items) - 1
	}

	if idx < 0 {
		return nil
	}
	s.moveCursorLocked(idx)
	song := s.items[idx].Song
	return &song
}

// selectNextLocked picks the index NextTrack moves to, or -1. It only mutates
// the shuffle bag, and only to start a new cycle, so a peek and the following
// NextTrack agree.
func (s *Store) selectNextLocked() int {
	if len(s.items) == 0 {
		return -1
	}
	if s.repeat == models.RepeatOne {
		return s.cursor
	}

	if !s.shuffle {
		switch {
		case s.cursor+1 < len(s.items):
			return s.cursor + 1
		case s.repeat == models.RepeatAll:
			return 0
		default:
			return -1
		}
	}

	for len(s.upNext) > 0 {
		if i := s.indexOfLocked(s.upNext[0]); i >= 0 {
			return i
		}
		s.upNext = s.upNext[1:]
	}

	for {
		if len(s.bag) == 0 {
			if s.repeat != models.RepeatAll {
				return -1
			}
			s.newCycleLocked()
			if len(s.bag) == 0 {
				return s.cursor
			}
		}
		if i := s.indexOfLocked(s.bag[0]); i >= 0 {
			return i
		}
		s.bag = s.bag[1:]
	}
}

// refillBagLocked shuffles a new bag of every item except the current one.
// With unplayedOnly it skips items already played in this cycle.
func (s *Store) refillBagLocked(unplayedOnly bool) {
	s.bag = s.bag[:0]
	for i, item := range s.items {
		if i == s.cursor || (unplayedOnly && item.Played) || slices.Contains(s.upNext, item.QueueID) {
			continue
		}
		s.bag = append(s.bag, item.QueueID)
	}
	s.rng.Shuffle(len(s.bag), func(i, j int) { s.bag[i], s.bag[j] = s.bag[j], s.bag[i] })
	s.pendingCycle = false
}

// newCycleLocked fills the bag for the next repeat-all cycle with every item.
// The current item goes anywhere but first, so a cycle does not open with the
// song that closed the previous one.
func (s *Store) newCycleLocked() {
	s.refillBagLocked(false)
	if s.cursor >= 0 && !slices.Contains(s.upNext, s.items[s.cursor].QueueID) {
		pos := 0
		if len(s.bag) > 0 {
			pos = 1 + s.rng.IntN(len(s.bag))
		}
		s.bag = slices.Insert(s.bag, pos, s.items[s.cursor].QueueID)
	}
	s.pendingCycle = true
}

func (s *Store) indexOfLocked(queueID string) int {
	return slices.IndexFunc(s.items, func(it models.QueueItem) bool { return it.QueueID == queueID })
}
