package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/desertthunder/encore/internal/shared"
)

// BeaconOpts configures a [BeaconSink].
type BeaconOpts struct {
	Client          *http.Client
	EventsPerSecond float64 // default: 5
	Buffer          int     // default: 64
	Logger          *log.Logger
}

// BeaconSink POSTs events as JSON to an HTTP endpoint from a single worker.
//
// Events are queued in a bounded buffer; when it is full new events are dropped.
type BeaconSink struct {
	FuncSink

	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
	events   chan Event

	dropped atomic.Int64
	sent    atomic.Int64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewBeaconSink creates a BeaconSink and starts its worker.
func NewBeaconSink(endpoint string, opts BeaconOpts) *BeaconSink {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.EventsPerSecond <= 0 {
		opts.EventsPerSecond = 5
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &BeaconSink{
		endpoint: endpoint,
		client:   opts.Client,
		limiter:  rate.NewLimiter(rate.Limit(opts.EventsPerSecond), 1),
		logger:   shared.WithLogger(opts.Logger, "component", "beacon"),
		events:   make(chan Event, opts.Buffer),
		cancel:   cancel,
	}
	b.FuncSink = b.enqueue

	b.wg.Add(1)
	go b.worker(ctx)
	return b
}

func (b *BeaconSink) enqueue(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.dropped.Add(1)
		return
	}

	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
		b.logger.Debug("analytics buffer full, dropping event", "event", ev.Name)
	}
}

func (b *BeaconSink) worker(ctx context.Context) {
	defer b.wg.Done()

	for ev := range b.events {
		if err := b.limiter.Wait(ctx); err != nil {
			b.dropped.Add(1)
			continue
		}
		if err := b.post(ctx, ev); err != nil {
			b.logger.Warn("failed to send analytics event", "event", ev.Name, "error", err)
			continue
		}
		b.sent.Add(1)
	}
}

func (b *BeaconSink) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// Stats returns how many events were sent and dropped.
func (b *BeaconSink) Stats() (sent, dropped int64) {
	return b.sent.Load(), b.dropped.Load()
}

// Close stops accepting events and waits for queued events to drain, up to ctx.
func (b *BeaconSink) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		return ctx.Err()
	}
}
