// Package app contains the interactive document viewer.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/markstyle/internal/highlight"
	"github.com/zjrosen/markstyle/internal/keys"
	"github.com/zjrosen/markstyle/internal/log"
	"github.com/zjrosen/markstyle/internal/pipeline"
	"github.com/zjrosen/markstyle/internal/pubsub"
	"github.com/zjrosen/markstyle/internal/styler"
	"github.com/zjrosen/markstyle/internal/watcher"
)

// maxLogLines bounds the log pane.
const maxLogLines = 200

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#93A1A1")).Background(lipgloss.Color("#073642"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC322F")).Bold(true)
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#657B83"))
)

// Config configures the viewer.
type Config struct {
	Path     string
	Pipeline *pipeline.Pipeline

	// Watch reloads the document when the file changes.
	Watch    bool
	Debounce time.Duration

	// Debug enables the log pane (ctrl+x).
	Debug bool

	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// loadedMsg carries a freshly loaded document for generation gen.
type loadedMsg struct {
	gen int
	doc *pipeline.Document
	err error
}

// highlightedMsg reports the end of a background highlight of generation gen.
type highlightedMsg struct {
	gen         int
	resolutions []highlight.Resolution
	err         error
}

// Model is the viewer state.
type Model struct {
	pipeline *pipeline.Pipeline
	path     string
	readFile func(string) ([]byte, error)

	doc *pipeline.Document
	gen int
	err error

	viewport viewport.Model
	help     help.Model
	keys     keys.ViewerKeyMap
	ready    bool
	width    int
	height   int

	debug    bool
	showLog  bool
	logLines []string

	ctx         context.Context
	cancel      context.CancelFunc
	resolutions *pubsub.ContinuousListener[highlight.Resolution]
	watcher     *watcher.Watcher
	changes     *pubsub.ContinuousListener[watcher.Event]
	logs        *log.LogListener
}

// New loads cfg.Path and builds the viewer. When the pipeline is not async
// every code block is highlighted before New returns.
func New(cfg Config) (Model, error) {
	if cfg.Pipeline == nil {
		return Model{}, fmt.Errorf("viewer needs a pipeline")
	}
	readFile := cfg.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		pipeline: cfg.Pipeline,
		path:     cfg.Path,
		readFile: readFile,
		help:     help.New(),
		keys:     keys.Viewer.WithDebug(cfg.Debug),
		debug:    cfg.Debug,
		ctx:      ctx,
		cancel:   cancel,
	}

	loaded := m.load(0)()
	msg := loaded.(loadedMsg)
	if msg.err != nil {
		cancel()
		return Model{}, msg.err
	}
	m.doc = msg.doc

	if r := cfg.Pipeline.Resolver(); r != nil {
		m.resolutions = pubsub.NewContinuousListener(ctx, r.Broker())
	}
	if cfg.Debug {
		m.logs = log.NewListener(ctx)
	}
	if cfg.Watch {
		w, err := watcher.New(watcher.Config{Path: cfg.Path, Debounce: cfg.Debounce})
		if err == nil {
			m.changes = pubsub.NewContinuousListener(ctx, w.Broker())
			if err := w.Start(); err == nil {
				m.watcher = w
			} else {
				log.Warn(log.CatWatcher, "live reload disabled", "path", cfg.Path, "error", err)
				_ = w.Stop()
				m.changes = nil
			}
		}
	}
	return m, nil
}

// Init starts the listeners and, in async mode, the first highlight pass.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.resolutions != nil {
		cmds = append(cmds, m.resolutions.Listen())
	}
	if m.changes != nil {
		cmds = append(cmds, m.changes.Listen())
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	cmds = append(cmds, m.highlight())
	return tea.Batch(cmds...)
}

// load reads and styles the file as generation gen. Outside async mode it
// also highlights before returning so the first paint is complete.
func (m Model) load(gen int) tea.Cmd {
	p, ctx, path, readFile := m.pipeline, m.ctx, m.path, m.readFile
	return func() tea.Msg {
		data, err := readFile(path)
		if err != nil {
			return loadedMsg{gen: gen, err: fmt.Errorf("reading %s: %w", path, err)}
		}
		doc, err := p.Load(ctx, path, string(data))
		if err != nil {
			return loadedMsg{gen: gen, err: err}
		}
		if !p.Async() {
			if _, err := p.Highlight(ctx, doc); err != nil {
				log.ErrorErr(log.CatHighlight, "highlight failed", err, "path", path)
			}
		}
		return loadedMsg{gen: gen, doc: doc}
	}
}

// highlight resolves the pending blocks of the current document in the
// background.
func (m Model) highlight() tea.Cmd {
	r := m.pipeline.Resolver()
	if r == nil || m.doc == nil || len(m.doc.Result.Pending) == 0 {
		return nil
	}
	ctx, gen, doc := m.ctx, m.gen, m.doc
	pending := append([]styler.CodeBlock(nil), doc.Result.Pending...)
	return func() tea.Msg {
		res, err := r.Resolve(ctx, pending)
		return highlightedMsg{gen: gen, resolutions: res, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if !m.ready || m.showLog {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case loadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			log.ErrorErr(log.CatUI, "reload failed", msg.err, "path", m.path)
			return m, nil
		}
		m.err = nil
		m.doc = msg.doc
		m.refresh()
		return m, m.highlight()

	case highlightedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			log.ErrorErr(log.CatHighlight, "background highlight stopped", msg.err, "path", m.path)
		}
		highlight.Apply(m.doc.Buffer, msg.resolutions)
		m.doc.Result.Pending = pipeline.Unresolved(msg.resolutions)
		m.refresh()
		return m, nil

	case pubsub.Event[highlight.Resolution]:
		// Blocks are applied as they finish; highlightedMsg settles the rest.
		if msg.Type == pubsub.ResolvedEvent && m.isPending(msg.Payload.Block) {
			highlight.Apply(m.doc.Buffer, []highlight.Resolution{msg.Payload})
			m.refresh()
		}
		return m, m.resolutions.Listen()

	case pubsub.Event[watcher.Event]:
		if msg.Type == pubsub.FailedEvent {
			log.Warn(log.CatWatcher, "watcher error received", "error", msg.Payload.Err)
			return m, m.changes.Listen()
		}
		m.gen++
		log.Debug(log.CatUI, "document changed, reloading", "path", m.path, "generation", m.gen)
		return m, tea.Batch(m.load(m.gen), m.changes.Listen())

	case log.LogEvent:
		m.logLines = append(m.logLines, strings.TrimRight(msg.Payload, "\n"))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, m.logs.Listen()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.gen++
		return m, m.load(m.gen)
	case key.Matches(msg, m.keys.Rehighlight):
		n := m.pipeline.Forget(m.doc)
		log.Debug(log.CatUI, "re-highlighting document", "path", m.path, "blocks", n)
		m.gen++
		return m, m.load(m.gen)
	}
	if !m.ready {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
	}
	return m, nil
}

// isPending reports whether block is still waiting in the current document.
func (m Model) isPending(block styler.CodeBlock) bool {
	if m.doc == nil {
		return false
	}
	for _, p := range m.doc.Result.Pending {
		if p.Range == block.Range && p.Text == block.Text {
			return true
		}
	}
	return false
}

// refresh re-renders the document into the viewport, keeping the scroll
// position.
func (m *Model) refresh() {
	if !m.ready || m.doc == nil {
		return
	}
	offset := m.viewport.YOffset
	m.viewport.SetContent(m.pipeline.Render(m.ctx, m.doc, m.width))
	m.viewport.SetYOffset(offset)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	body := m.viewport.View()
	if m.showLog {
		body = m.logView()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), m.help.View(m.keys))
}

func (m Model) logView() string {
	h := m.viewport.Height
	lines := m.logLines
	if len(lines) > h {
		lines = lines[len(lines)-h:]
	}
	out := make([]string, h)
	copy(out, lines)
	return logStyle.Render(strings.Join(out, "\n"))
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Width(m.width).Render(m.err.Error())
	}
	parts := []string{m.path, fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)}
	if m.doc != nil {
		if n := len(m.doc.Result.Pending); n > 0 {
			parts = append(parts, fmt.Sprintf("%d blocks pending", n))
		}
		if m.doc.Result.Skipped > 0 {
			parts = append(parts, fmt.Sprintf("%d nodes skipped", m.doc.Result.Skipped))
		}
	}
	if stats, ok := m.pipeline.CacheStats(); ok && stats.Hits+stats.Misses > 0 {
		parts = append(parts, fmt.Sprintf("cache %.0f%% hit", stats.HitRate()*100))
	}
	if m.watcher != nil {
		parts = append(parts, "watching")
	}
	return statusStyle.Width(m.width).Render(strings.Join(parts, " · "))
}

// Document returns the document currently shown.
func (m Model) Document() *pipeline.Document { return m.doc }

// Close stops the watcher and the listeners.
func (m *Model) Close() error {
	m.cancel()
	if m.watcher != nil {
		return m.watcher.Stop()
	}
	return nil
}
