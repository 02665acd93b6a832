package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlayerView ViewState = iota
	VersionView
)

const (
	seekStep    = 10.0
	volumeStep  = 0.05
	crossStep   = 3
	toastTTL    = 6 * time.Second
	maxToasts   = 3
	defaultCols = 80
	defaultRows = 24
)

// Controller is the part of [player.Engine] the view drives.
type Controller interface {
	State() player.State
	Queue() *queue.Store
	TogglePlay()
	PlayNext() bool
	PlayPrev()
	Seek(seconds float64)
	SetVolume(v float64)
	SetCrossfadeDuration(seconds int)
	PlayFromQueue(index int) bool
	SelectVersion(ref queue.Ref, song models.Song) bool
	ToggleQueue() bool
	Subscribe() *player.Subscription
	Unsubscribe(sub *player.Subscription)
}

type toast struct {
	id   int
	text string
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   Controller
	queue    *queue.Store
	stateSub *player.Subscription
	queueSub *queue.Subscription

	state    player.State
	snapshot models.UnifiedQueue
	selected int

	versions    list.Model
	versionsFor string
	bar         progress.Model

	toasts       []toast
	nextToast    int
	announcement string
	closed       bool

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a TUI model driving engine. Call [Model.Close] when the program exits.
func NewModel(ctx context.Context, engine Controller) *Model {
	q := engine.Queue()
	m := &Model{
		ctx:      ctx,
		view:     PlayerView,
		engine:   engine,
		queue:    q,
		stateSub: engine.Subscribe(),
		queueSub: q.Subscribe(),
		state:    engine.State(),
		snapshot: q.Snapshot(),
		selected: q.CursorIndex(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:     help.New(),
		keys:     newKeyMap(),
	}
	m.resize(defaultCols, defaultRows)
	return m
}

// Run runs the player until the listener quits or ctx is done. The bridge, if
// given, is attached to the program before it starts.
func Run(ctx context.Context, engine Controller, bridge *Bridge) error {
	m := NewModel(ctx, engine)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if bridge != nil {
		bridge.Attach(p)
	}
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the engine and queue subscriptions.
func (m *Model) Close() {
	m.engine.Unsubscribe(m.stateSub)
	m.queue.Unsubscribe(m.queueSub)
}

// Init starts listening for engine and queue changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.waitForQueue())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case VersionView:
			return m.handleVersionKeys(msg)
		default:
			return m.handlePlayerKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == VersionView {
		var cmd tea.Cmd
		m.versions, cmd = m.versions.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgState:
		m.state = msg.data.(player.State)
		return m, m.waitForState()

	case MsgEngineClosed:
		m.closed = true
		return m, tea.Quit

	case MsgQueueChanged:
		m.refreshQueue()
		return m, m.waitForQueue()

	case MsgToast:
		m.nextToast++
		id := m.nextToast
		m.toasts = append(m.toasts, toast{id: id, text: msg.data.(string)})
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
		return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg(id) })

	case MsgToastExpired:
		id := msg.data.(int)
		for i, t := range m.toasts {
			if t.id == id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case MsgAnnounce:
		m.announcement = msg.data.(string)
		return m, nil

	case MsgMetadata:
		return m, tea.SetWindowTitle(msg.data.(string))
	}
	return m, nil
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.engine.TogglePlay()
	case key.Matches(msg, m.keys.next):
		if !m.engine.PlayNext() {
			return m.Update(toastMsg("End of queue"))
		}
	case key.Matches(msg, m.keys.prev):
		m.engine.PlayPrev()
	case key.Matches(msg, m.keys.forward):
		m.seekBy(seekStep)
	case key.Matches(msg, m.keys.rewind):
		m.seekBy(-seekStep)
	case key.Matches(msg, m.keys.louder):
		m.engine.SetVolume(m.state.Volume + volumeStep)
	case key.Matches(msg, m.keys.quieter):
		m.engine.SetVolume(m.state.Volume - volumeStep)
	case key.Matches(msg, m.keys.shuffle):
		m.queue.ToggleShuffle()
	case key.Matches(msg, m.keys.repeat):
		m.queue.CycleRepeat()
	case key.Matches(msg, m.keys.crossfade):
		next := m.state.CrossfadeDuration + crossStep
		if next > player.MaxCrossfade {
			next = 0
		}
		m.engine.SetCrossfadeDuration(next)
	case key.Matches(msg, m.keys.queue):
		if m.engine.ToggleQueue() {
			m.selected = m.queue.CursorIndex()
		}
	case key.Matches(msg, m.keys.up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.enter):
		if m.drawerOpen() {
			m.engine.PlayFromQueue(m.selected)
		}
	case key.Matches(msg, m.keys.remove):
		if m.drawerOpen() {
			m.queue.RemoveItem(m.selected)
		}
	case key.Matches(msg, m.keys.versions):
		m.openVersions()
	}
	m.sync()
	return m, nil
}

func (m *Model) handleVersionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.versions):
		m.view = PlayerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if v, ok := m.versions.SelectedItem().(versionItem); ok {
			m.engine.SelectVersion(queue.ByQueueID(m.versionsFor), v.song)
		}
		m.view = PlayerView
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.versions, cmd = m.versions.Update(msg)
	return m, cmd
}

// sync pulls state after a command so the next frame never shows stale values
// while the subscription message is still in flight.
func (m *Model) sync() {
	m.state = m.engine.State()
	m.refreshQueue()
}

func (m *Model) refreshQueue() {
	m.snapshot = m.queue.Snapshot()
	m.selected = min(max(m.selected, 0), max(len(m.snapshot.Items)-1, 0))
}

func (m *Model) drawerOpen() bool {
	return m.state.IsQueueOpen && len(m.snapshot.Items) > 0
}

func (m *Model) moveSelection(delta int) {
	if !m.drawerOpen() {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.snapshot.Items)-1)
}

func (m *Model) seekBy(delta float64) {
	if m.state.ActiveSong == nil {
		return
	}
	pos := math.Max(m.state.CurrentTime+delta, 0)
	if m.state.Duration > 0 {
		pos = math.Min(pos, m.state.Duration)
	}
	m.engine.Seek(pos)
}

// openVersions shows the picker for the selected drawer item, or the current
// item when the drawer is closed. Items with one recording have nothing to pick.
func (m *Model) openVersions() {
	idx := m.snapshot.CursorIndex
	if m.drawerOpen() {
		idx = m.selected
	}
	if idx < 0 || idx >= len(m.snapshot.Items) {
		return
	}
	item := m.snapshot.Items[idx]
	if len(item.AvailableVersions) < 2 {
		return
	}

	m.versions = list.New(versionItems(item), list.NewDefaultDelegate(), 0, 0)
	m.versions.Title = fmt.Sprintf("Versions of %q", item.TrackTitle)
	m.versions.SetShowHelp(false)
	m.versions.SetSize(max(m.width-4, 20), max(m.height-8, 5))
	m.versionsFor = item.QueueID
	m.view = VersionView
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.bar.Width = max(w-20, 10)
	m.help.Width = w
	if m.view == VersionView {
		m.versions.SetSize(max(w-4, 20), max(h-8, 5))
	}
}

func (m *Model) waitForState() tea.Cmd {
	sub := m.stateSub
	return func() tea.Msg {
		select {
		case st := <-sub.Updates:
			return stateMsg(st)
		case <-sub.Done:
			return engineClosedMsg()
		case <-m.ctx.Done():
			return engineClosedMsg()
		}
	}
}

func (m *Model) waitForQueue() tea.Cmd {
	sub := m.queueSub
	return func() tea.Msg {
		select {
		case c := <-sub.Changes:
			return queueChangedMsg(c)
		case <-sub.Done:
			return nil
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.view == VersionView {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.back})
		return fmt.Sprintf("%s\n\n%s", m.versions.View(), helpView)
	}

	var b strings.Builder
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	if m.drawerOpen() {
		b.WriteString("\n")
		b.WriteString(m.renderDrawer())
	}
	if len(m.toasts) > 0 {
		b.WriteString("\n")
		for _, t := range m.toasts {
			b.WriteString(styles.toast.Render(t.text))
			b.WriteString("\n")
		}
	}
	if m.announcement != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.announcement))
		b.WriteString("\n")
	}

	helpKeys := m.keys.ShortHelp()
	if m.drawerOpen() {
		helpKeys = m.keys.drawerHelp()
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderNowPlaying() string {
	title := styles.title.Render("encore")
	song := m.state.ActiveSong
	if song == nil {
		return fmt.Sprintf("%s\n%s", title, styles.dim.Render("Nothing playing. Load a show with --album."))
	}

	status := "▶"
	switch {
	case m.state.IsBuffering:
		status = styles.warn.Render("… buffering")
	case !m.state.IsPlaying:
		status = "⏸"
	}

	heading := styles.ok.Render(song.DisplayTitle())
	sub := song.ArtistName
	if where := strings.Trim(strings.Join([]string{song.Date, song.Venue}, " · "), " ·"); where != "" {
		sub += " · " + where
	}

	frac := 0.0
	if m.state.Duration > 0 {
		frac = math.Min(m.state.CurrentTime/m.state.Duration, 1)
	}
	bar := fmt.Sprintf("%s %s / %s", m.bar.ViewAs(frac),
		shared.FormatDuration(m.state.CurrentTime), shared.FormatDuration(m.state.Duration))

	modes := fmt.Sprintf("vol %d%%  shuffle %s  repeat %s  crossfade %ds",
		int(math.Round(m.state.Volume*100)), onOff(m.snapshot.Shuffle), m.snapshot.Repeat, m.state.CrossfadeDuration)

	return fmt.Sprintf("%s\n%s %s\n%s\n%s\n%s", title, status, heading, styles.dim.Render(sub), bar, styles.dim.Render(modes))
}

// renderDrawer lists the queue under album headings. Grouping is visual only.
func (m *Model) renderDrawer() string {
	var b strings.Builder
	writeRange := func(start, end int) {
		for i := start; i < end; i++ {
			b.WriteString(m.renderRow(i))
			b.WriteString("\n")
		}
	}

	next := 0
	for _, g := range m.snapshot.Groups {
		if next < g.Start {
			b.WriteString(styles.group.Render("Queued"))
			b.WriteString("\n")
			writeRange(next, g.Start)
		}
		b.WriteString(styles.group.Render(fmt.Sprintf("%s (%d)", g.AlbumTitle, g.Len())))
		b.WriteString("\n")
		writeRange(g.Start, g.End)
		next = g.End
	}
	if next < len(m.snapshot.Items) {
		b.WriteString(styles.group.Render("Queued"))
		b.WriteString("\n")
		writeRange(next, len(m.snapshot.Items))
	}
	return b.String()
}

func (m *Model) renderRow(i int) string {
	qi := queueItem{item: m.snapshot.Items[i]}

	pointer := "  "
	if i == m.selected {
		pointer = "› "
	}
	line := fmt.Sprintf("%s%2d. %s  %s", pointer, i+1, qi.Title(), styles.dim.Render(qi.Description()))
	if i == m.snapshot.CursorIndex {
		return styles.current.Render(line + " ♪")
	}
	return line
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
