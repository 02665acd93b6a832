package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
)

// Controller is the part of [player.Engine] the remote drives.
type Controller interface {
	State() player.State
	Queue() *queue.Store
	Play()
	Pause()
	TogglePlay()
	PlayNext() bool
	PlayPrev()
	Seek(seconds float64)
	SetVolume(v float64)
	SetCrossfadeDuration(seconds int)
	PlayFromQueue(index int) bool
	Subscribe() *player.Subscription
	Unsubscribe(sub *player.Subscription)
}

// StateView is the JSON shape of the engine state.
type StateView struct {
	Status      string       `json:"status"`
	IsPlaying   bool         `json:"isPlaying"`
	IsBuffering bool         `json:"isBuffering"`
	Volume      float64      `json:"volume"`
	CurrentTime float64      `json:"currentTime"`
	Duration    float64      `json:"duration"`
	Crossfade   int          `json:"crossfadeDuration"`
	QueueOpen   bool         `json:"isQueueOpen"`
	Song        *models.Song `json:"activeSong,omitempty"`
	Cursor      int          `json:"cursorIndex"`
	QueueLength int          `json:"queueLength"`
	Shuffle     bool         `json:"shuffle"`
	Repeat      string       `json:"repeat"`
}

// NewStateView combines engine state with the queue's cursor and modes.
func NewStateView(st player.State, q *queue.Store) StateView {
	return StateView{
		Status:      st.Status.String(),
		IsPlaying:   st.IsPlaying,
		IsBuffering: st.IsBuffering,
		Volume:      st.Volume,
		CurrentTime: st.CurrentTime,
		Duration:    st.Duration,
		Crossfade:   st.CrossfadeDuration,
		QueueOpen:   st.IsQueueOpen,
		Song:        st.ActiveSong,
		Cursor:      q.CursorIndex(),
		QueueLength: q.Len(),
		Shuffle:     q.Shuffle(),
		Repeat:      string(q.Repeat()),
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// command handles one POST route. A non-nil error becomes a 4xx response.
type command func(r *http.Request) error

// Remote serves the remote-control API for one engine.
type Remote struct {
	ctl       Controller
	logger    *log.Logger
	heartbeat time.Duration
	commands  map[string]command
}

// NewRemote creates a Remote. logger may be nil.
func NewRemote(ctl Controller, logger *log.Logger) *Remote {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	r := &Remote{ctl: ctl, logger: shared.WithLogger(logger, "component", "remote"), heartbeat: 15 * time.Second}
	r.commands = map[string]command{
		"/api/play":       r.simple(ctl.Play),
		"/api/pause":      r.simple(ctl.Pause),
		"/api/toggle":     r.simple(ctl.TogglePlay),
		"/api/prev":       r.simple(ctl.PlayPrev),
		"/api/next":       r.next,
		"/api/seek":       r.seek,
		"/api/volume":     r.volume,
		"/api/crossfade":  r.crossfade,
		"/api/queue/play": r.playIndex,
		"/api/repeat":     r.repeat,
		"/api/shuffle":    r.shuffle,
	}
	return r
}

// Routes returns the path patterns the remote serves.
func (rm *Remote) Routes() []string {
	return []string{"/api/"}
}

// ServeHTTP dispatches on method and path.
func (rm *Remote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switch r.URL.Path {
		case "/api/state":
			rm.writeJSON(w, http.StatusOK, rm.view())
		case "/api/queue":
			rm.writeJSON(w, http.StatusOK, rm.ctl.Queue().Snapshot())
		case "/api/events":
			rm.events(w, r)
		default:
			rm.writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		}
	case http.MethodPost:
		cmd, ok := rm.commands[r.URL.Path]
		if !ok {
			rm.writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
			return
		}
		if err := cmd(r); err != nil {
			rm.writeError(w, err)
			return
		}
		rm.writeJSON(w, http.StatusOK, rm.view())
	default:
		w.Header().Set("Allow", "GET, POST")
		rm.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	}
}

func (rm *Remote) view() StateView {
	return NewStateView(rm.ctl.State(), rm.ctl.Queue())
}

func (rm *Remote) simple(fn func()) command {
	return func(*http.Request) error {
		fn()
		return nil
	}
}

func (rm *Remote) next(*http.Request) error {
	if !rm.ctl.PlayNext() {
		return fmt.Errorf("%w: nothing to play next", errConflict)
	}
	return nil
}

func (rm *Remote) seek(r *http.Request) error {
	var body struct {
		Position *float64 `json:"position"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Position == nil || *body.Position < 0 {
		return fmt.Errorf("%w: position must be a non-negative number", shared.ErrInvalidInput)
	}
	rm.ctl.Seek(*body.Position)
	return nil
}

func (rm *Remote) volume(r *http.Request) error {
	var body struct {
		Volume *float64 `json:"volume"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Volume == nil {
		return fmt.Errorf("%w: volume", shared.ErrMissingArgument)
	}
	rm.ctl.SetVolume(*body.Volume)
	return nil
}

func (rm *Remote) crossfade(r *http.Request) error {
	var body struct {
		Seconds *int `json:"seconds"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Seconds == nil {
		return fmt.Errorf("%w: seconds", shared.ErrMissingArgument)
	}
	rm.ctl.SetCrossfadeDuration(*body.Seconds)
	return nil
}

func (rm *Remote) playIndex(r *http.Request) error {
	var body struct {
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Index == nil {
		return fmt.Errorf("%w: index", shared.ErrMissingArgument)
	}
	if !rm.ctl.PlayFromQueue(*body.Index) {
		return fmt.Errorf("%w: no queue item at index %d", shared.ErrInvalidInput, *body.Index)
	}
	return nil
}

func (rm *Remote) repeat(r *http.Request) error {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	q := rm.ctl.Queue()
	if body.Mode == "" {
		q.CycleRepeat()
		return nil
	}
	mode, ok := models.ParseRepeatMode(body.Mode)
	if !ok {
		return fmt.Errorf("%w: unknown repeat mode %q", shared.ErrInvalidInput, body.Mode)
	}
	q.SetRepeat(mode)
	return nil
}

func (rm *Remote) shuffle(r *http.Request) error {
	var body struct {
		On *bool `json:"on"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	q := rm.ctl.Queue()
	if body.On == nil {
		q.ToggleShuffle()
		return nil
	}
	q.SetShuffle(*body.On)
	return nil
}

// events streams every state change as a server-sent event until the client
// goes away or the engine closes.
func (rm *Remote) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		rm.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := rm.ctl.Subscribe()
	defer rm.ctl.Unsubscribe(sub)

	heartbeat := time.NewTicker(rm.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case st := <-sub.Updates:
			data, err := json.Marshal(NewStateView(st, rm.ctl.Queue()))
			if err != nil {
				rm.logger.Warn("failed to encode state", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

var errConflict = errors.New("conflict")

func (rm *Remote) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errConflict) {
		status = http.StatusConflict
	}
	rm.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (rm *Remote) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rm.logger.Warn("failed to write response", "error", err)
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput)
	}
	return nil
}

// NewHandler builds the full remote-control router: recovery and request
// logging around the API plus a /healthz probe.
func NewHandler(ctl Controller, logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(shared.WithLogger(logger, "component", "http")))
	router.HandleFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "ok\n")
	})
	router.Handler(NewRemote(ctl, logger))
	return router
}
