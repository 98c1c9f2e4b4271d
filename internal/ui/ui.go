package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/booklister/internal/carousel"
	"github.com/desertthunder/booklister/internal/formatter"
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/nav"
	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/services"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

// Options holds the dependencies of a [Model]. API is required; Uploads enables upload history.
type Options struct {
	API       services.Service
	Uploads   *repositories.UploadRepository
	Config    *shared.Config
	Logger    *log.Logger
	Scheduler upload.Scheduler
	Path      string                 // starting route, defaults to the upload page
	Open      func(url string) error // defaults to [shared.OpenBrowser]
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	api       services.Service
	uploads   *repositories.UploadRepository
	config    *shared.Config
	logger    *log.Logger
	scheduler upload.Scheduler
	open      func(string) error

	path   string
	width  int
	height int
	help   help.Model
	keys   keyMap

	session    *upload.Session
	progressCh chan upload.ProgressUpdate
	listening  bool
	input      textinput.Model
	bar        progress.Model
	cursor     int
	phase      upload.ProgressUpdate
	uploadErr  string
	notice     string

	queue     list.Model
	books     []models.Book
	book      *models.Book
	carousel  *carousel.Carousel
	reviewErr error

	format    formatter.Format
	exporting bool
	exported  *exportDoneMsg

	status      *models.UploadStatus
	summary     *repositories.UploadSummary
	settingsErr error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = upload.ClockScheduler{}
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if _, ok := nav.Active(opts.Path); !ok {
		opts.Path = nav.Upload.Path
	}

	format, err := formatter.ParseFormat(opts.Config.Export.Format)
	if err != nil {
		format = formatter.FormatCSV
	}

	input := textinput.New()
	input.Placeholder = "path to an image or folder"
	input.Prompt = "› "
	input.CharLimit = 4096

	queue := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	queue.Title = "Review queue"

	m := &Model{
		ctx:        ctx,
		api:        opts.API,
		uploads:    opts.Uploads,
		config:     opts.Config,
		logger:     opts.Logger,
		scheduler:  opts.Scheduler,
		open:       opts.Open,
		path:       opts.Path,
		help:       help.New(),
		keys:       newKeyMap(),
		progressCh: make(chan upload.ProgressUpdate, 32),
		input:      input,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
		queue:      queue,
		format:     format,
	}
	m.newSession()
	return m
}

// Close disposes the upload session, cancelling its timers.
func (m *Model) Close() {
	m.session.Dispose()
}

// Path returns the current route.
func (m *Model) Path() string {
	return m.path
}

// Init loads the data for the starting page.
func (m *Model) Init() tea.Cmd {
	return m.load()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(max(msg.Width-8, 10), 64)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case progressMsg:
		return m.handleProgress(upload.ProgressUpdate(msg))

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case queueFetchedMsg:
		if msg.err != nil {
			m.reviewErr = msg.err
			return m, nil
		}
		m.reviewErr = nil
		m.books = msg.books
		return m, m.queue.SetItems(bookItems(msg.books))

	case bookFetchedMsg:
		if msg.err != nil {
			m.reviewErr = msg.err
			return m, nil
		}
		m.reviewErr = nil
		m.book = msg.book
		m.carousel = carousel.New(m.api.BaseURL(), msg.book.ID, msg.book.Images)
		return m, nil

	case browserOpenedMsg:
		if msg.err != nil {
			m.reviewErr = msg.err
		}
		return m, nil

	case exportDoneMsg:
		m.exporting = false
		m.exported = &msg
		return m, nil

	case settingsFetchedMsg:
		m.status = msg.status
		m.summary = msg.summary
		m.settingsErr = msg.err
		return m, nil
	}

	return m.updateComponents(msg)
}

// View renders the navigation bar above the current page.
func (m *Model) View() string {
	var body string
	switch m.route() {
	case nav.Review:
		body = m.renderReview()
	case nav.Upload:
		body = m.renderUpload()
	case nav.Export:
		body = m.renderExport()
	case nav.Settings:
		body = m.renderSettings()
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.renderNav(), body, m.help.ShortHelpView(m.helpKeys()))
}

func (m *Model) route() nav.Route {
	r, _ := nav.Active(m.path)
	return r
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.route() == nav.Upload && m.input.Focused() {
		return m.handleInputKeys(msg)
	}
	if m.route() == nav.Review && m.carousel == nil && m.queue.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.queue, cmd = m.queue.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		return m.cycle(1)
	case key.Matches(msg, m.keys.prevTab):
		return m.cycle(-1)
	}

	if m.carousel == nil || m.route() != nav.Review {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(nav.Routes()) {
			return m.navigate(nav.Routes()[n-1].Path)
		}
	}

	switch m.route() {
	case nav.Review:
		return m.handleReviewKeys(msg)
	case nav.Upload:
		return m.handleUploadKeys(msg)
	case nav.Export:
		return m.handleExportKeys(msg)
	case nav.Settings:
		return m.handleSettingsKeys(msg)
	}
	return m, nil
}

// navigate switches to path and loads the data the page needs.
func (m *Model) navigate(path string) (tea.Model, tea.Cmd) {
	m.logger.Debug("navigate", "from", m.path, "to", path)
	if m.route() == nav.Upload && m.session.Completed() {
		m.session.Dispose()
		m.newSession()
	}
	m.path = path
	if m.route() == nav.Review {
		m.book = nil
		m.carousel = nil
	}
	return m, m.load()
}

func (m *Model) cycle(delta int) (tea.Model, tea.Cmd) {
	routes := nav.Routes()
	i := nav.Index(m.route().Path)
	next := ((i+delta)%len(routes) + len(routes)) % len(routes)
	return m.navigate(routes[next].Path)
}

func (m *Model) load() tea.Cmd {
	switch m.route() {
	case nav.Review:
		return m.fetchQueue()
	case nav.Settings:
		return m.fetchSettings()
	}
	return nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route() {
	case nav.Review:
		m.queue, cmd = m.queue.Update(msg)
	case nav.Upload:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) renderNav() string {
	items := nav.Items(m.path)
	tabs := make([]string, len(items))
	for i, item := range items {
		label := fmt.Sprintf("%d %s %s", i+1, item.Icon, item.Name)
		if item.Active {
			tabs[i] = styles.active.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) helpKeys() []key.Binding {
	switch m.route() {
	case nav.Upload:
		if m.input.Focused() {
			return []key.Binding{m.keys.enter, m.keys.addDir, m.keys.back}
		}
		return []key.Binding{m.keys.add, m.keys.remove, m.keys.dropDir, m.keys.clear, m.keys.submit, m.keys.nextTab, m.keys.quit}
	case nav.Review:
		if m.carousel != nil {
			return []key.Binding{m.keys.left, m.keys.right, m.keys.jump, m.keys.open, m.keys.back, m.keys.quit}
		}
		return []key.Binding{m.keys.enter, m.keys.refresh, m.keys.nextTab, m.keys.quit}
	case nav.Export:
		return []key.Binding{m.keys.export, m.keys.format, m.keys.nextTab, m.keys.quit}
	default:
		return []key.Binding{m.keys.refresh, m.keys.nextTab, m.keys.quit}
	}
}
