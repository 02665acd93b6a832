package player

import "github.com/desertthunder/encore/internal/audio"

// Role names a deck slot.
type Role int

const (
	RoleActive Role = iota
	RolePreload
)

func (r Role) String() string {
	if r == RoleActive {
		return "active"
	}
	return "preload"
}

// Deck is a pool of exactly two elements indexed by role. Swap exchanges the
// roles in one step; callers serialise access.
type Deck struct {
	slots  [2]audio.Element
	active int
}

// NewDeck creates a Deck with a in the active role and b in the preload role.
func NewDeck(a, b audio.Element) *Deck {
	return &Deck{slots: [2]audio.Element{a, b}}
}

func (d *Deck) Active() audio.Element { return d.slots[d.active] }

func (d *Deck) Preload() audio.Element { return d.slots[1-d.active] }

// Swap promotes the preload element to active and demotes the active one.
func (d *Deck) Swap() {
	d.active = 1 - d.active
}

// RoleOf reports the current role of el.
func (d *Deck) RoleOf(el audio.Element) (Role, bool) {
	switch el {
	case d.Active():
		return RoleActive, true
	case d.Preload():
		return RolePreload, true
	}
	return 0, false
}

// Each calls fn for both elements.
func (d *Deck) Each(fn func(audio.Element)) {
	fn(d.slots[0])
	fn(d.slots[1])
}
