package audio

import "sync"

// dispatcher delivers events in order from its own goroutine.
//
// The queue is unbounded so emitters never block while holding their locks.
type dispatcher struct {
	mu      sync.Mutex
	pending []Event
	handler func(Event)
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newDispatcher() *dispatcher {
	d := &dispatcher{wake: make(chan struct{}, 1), done: make(chan struct{})}
	go d.loop()
	return d
}

func (d *dispatcher) setHandler(h func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

func (d *dispatcher) emit(ev Event) {
	d.mu.Lock()
	d.pending = append(d.pending, ev)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if len(d.pending) == 0 {
				d.mu.Unlock()
				break
			}
			ev := d.pending[0]
			d.pending = d.pending[1:]
			h := d.handler
			d.mu.Unlock()

			if h != nil {
				h(ev)
			}
		}
	}
}

func (d *dispatcher) close() {
	d.once.Do(func() { close(d.done) })
}
