package queue

const changeBufferSize = 16

// ChangeKind classifies a store mutation.
type ChangeKind int

const (
	// ChangeContent means items were added, removed, reordered or replaced.
	ChangeContent ChangeKind = iota
	// ChangeCursor means a different item became current.
	ChangeCursor
	// ChangeMode means shuffle or repeat changed.
	ChangeMode
	// ChangeVersion means an item switched to another recording.
	ChangeVersion
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeContent:
		return "content"
	case ChangeCursor:
		return "cursor"
	case ChangeMode:
		return "mode"
	case ChangeVersion:
		return "version"
	default:
		return "unknown"
	}
}

// Change describes one mutation. Index is the affected item where one applies, else -1.
type Change struct {
	Kind       ChangeKind
	Index      int
	Generation uint64
}

// Subscription receives store changes. Slow readers miss events rather than block the store.
type Subscription struct {
	Changes <-chan Change
	Done    <-chan struct{}

	ch   chan Change
	done chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		ch:   make(chan Change, changeBufferSize),
		done: make(chan struct{}),
	}
	s.Changes = s.ch
	s.Done = s.done
	return s
}

// send delivers c without blocking.
func (s *Subscription) send(c Change) {
	select {
	case s.ch <- c:
	default:
	}
}

func (s *Subscription) close() {
	close(s.done)
}
