package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/importer"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// rows of chrome around the preview table
const reservedLines = 14

// Model is the import wizard. Its step always mirrors the pipeline's state;
// the model only adds the cursor, the edit box and transient notices.
type Model struct {
	ctx       context.Context
	pipeline  *importer.Pipeline
	opener    importer.Opener
	theme     Theme
	keymap    KeyMap
	spinner   spinner.Model
	input     textinput.Model
	help      help.Model
	snap      importer.Snapshot
	notice    string
	editing   importer.Field
	cursor    int
	offset    int
	width     int
	height    int
	noticeErr bool
	busy      bool
	quitting  bool
}

// New creates the wizard over pipeline. opener resolves paths typed in the
// upload step; nil means importer.OpenFile.
func New(ctx context.Context, pipeline *importer.Pipeline, opener importer.Opener, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if opener == nil {
		opener = importer.OpenFile
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cfg.Theme.StatusInfo

	ti := textinput.New()
	ti.CharLimit = 512
	ti.Prompt = "› "

	h := help.New()
	h.ShowAll = cfg.ShowHelp

	m := Model{
		ctx:      ctx,
		pipeline: pipeline,
		opener:   opener,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		spinner:  s,
		input:    ti,
		help:     h,
		width:    cfg.Width,
		height:   cfg.Height,
		snap:     pipeline.Snapshot(),
	}
	m.syncInput()
	return m
}

// Init starts the spinner and the path prompt and picks up any pipeline
// change made before the program started.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.refreshCmd())
}

// Snapshot returns the last pipeline state the wizard rendered.
func (m Model) Snapshot() importer.Snapshot {
	return m.snap
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.apply(msg.snap)
		return m, nil

	case selectedMsg:
		m.busy = false
		m.apply(m.pipeline.Snapshot())
		if msg.err != nil && m.snap.Error == "" {
			m.setNotice(common.UserMessage(msg.err, "Failed to open statement"), true)
		}
		return m, nil

	case confirmedMsg:
		m.busy = false
		m.apply(m.pipeline.Snapshot())
		if msg.err != nil && !errors.Is(msg.err, query.ErrInFlight) && m.snap.Error == "" {
			m.setNotice(common.UserMessage(msg.err, "Failed to import transactions"), true)
		}
		return m, nil

	case postedMsg:
		m.busy = false
		m.apply(m.pipeline.Snapshot())
		if msg.err == nil {
			m.setNotice(fmt.Sprintf("Posted %d transaction(s)", msg.resp.UpdatedCount), false)
		}
		return m, nil

	case resetMsg:
		m.apply(m.pipeline.Snapshot())
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.editing != "" {
			return m.handleEditKey(msg)
		}
		if m.snap.State == importer.StateUpload {
			return m.handleUploadKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// apply adopts a pipeline snapshot and keeps local state consistent with it.
func (m *Model) apply(snap importer.Snapshot) {
	prev := m.snap.State
	m.snap = snap
	if snap.State != prev {
		m.editing = ""
		m.cursor = 0
		m.offset = 0
		m.notice = ""
	}
	m.syncInput()
	m.clampCursor()
}

func (m *Model) syncInput() {
	switch {
	case m.editing != "":
		m.input.Placeholder = string(m.editing)
		m.input.Focus()
	case m.snap.State == importer.StateUpload:
		m.input.Placeholder = "path to a .csv, .pdf, .ofx or .qfx statement"
		m.input.Focus()
	default:
		m.input.Blur()
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Save):
		path := m.input.Value()
		if path == "" || m.busy {
			return m, nil
		}
		m.busy = true
		m.notice = ""
		return m, m.selectFileCmd(path)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.snap.State {
	case importer.StateProcessing:
		if key.Matches(msg, m.keymap.Reset) {
			return m, m.resetCmd()
		}
	case importer.StatePreview:
		return m.handlePreviewKey(msg)
	case importer.StateSuccess:
		switch {
		case key.Matches(msg, m.keymap.Post):
			if m.snap.Posted || m.snap.Posting {
				return m, nil
			}
			m.busy = true
			return m, m.postCmd()
		case key.Matches(msg, m.keymap.Reset):
			return m, m.resetCmd()
		}
	}
	return m, nil
}

func (m Model) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	preview := m.pipeline.Preview()
	if preview == nil {
		return m, nil
	}
	n := preview.Len()
	page := m.pageSize()

	switch {
	case key.Matches(msg, m.keymap.Up):
		m.cursor--
	case key.Matches(msg, m.keymap.Down):
		m.cursor++
	case key.Matches(msg, m.keymap.PageUp):
		m.cursor -= page
	case key.Matches(msg, m.keymap.PageDown):
		m.cursor += page
	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0
	case key.Matches(msg, m.keymap.End):
		m.cursor = n - 1
	case key.Matches(msg, m.keymap.Toggle):
		if _, err := preview.Toggle(m.cursor); err != nil {
			m.setNotice(err.Error(), true)
		}
	case key.Matches(msg, m.keymap.SelectAll):
		preview.SelectAll()
	case key.Matches(msg, m.keymap.DeselectAll):
		preview.DeselectAll()
	case key.Matches(msg, m.keymap.DeselectDuplicates):
		removed := preview.DeselectDuplicates()
		m.setNotice(fmt.Sprintf("Deselected %d likely duplicate(s)", removed), false)
	case key.Matches(msg, m.keymap.EditVendor):
		return m.startEdit(importer.FieldVendor)
	case key.Matches(msg, m.keymap.EditCategory):
		return m.startEdit(importer.FieldCategory)
	case key.Matches(msg, m.keymap.EditClassification):
		return m.startEdit(importer.FieldClassification)
	case key.Matches(msg, m.keymap.Reset):
		return m, m.resetCmd()
	case key.Matches(msg, m.keymap.Confirm):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.notice = ""
		return m, m.confirmCmd()
	}

	m.clampCursor()
	return m, nil
}

func (m Model) startEdit(field importer.Field) (tea.Model, tea.Cmd) {
	preview := m.pipeline.Preview()
	if preview == nil {
		return m, nil
	}
	row, err := preview.Row(m.cursor)
	if err != nil {
		return m, nil
	}

	m.editing = field
	m.notice = ""
	m.input.SetValue(fieldValue(row, field))
	m.input.CursorEnd()
	m.syncInput()
	return m, textinput.Blink
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.editing = ""
		m.input.SetValue("")
		m.syncInput()
		return m, nil
	case key.Matches(msg, m.keymap.Save):
		preview := m.pipeline.Preview()
		if preview == nil {
			m.editing = ""
			m.syncInput()
			return m, nil
		}
		if err := preview.Edit(m.cursor, m.editing, m.input.Value()); err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		m.editing = ""
		m.input.SetValue("")
		m.syncInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) pageSize() int {
	return max(m.height-reservedLines, 5)
}

func (m *Model) clampCursor() {
	n := 0
	if preview := m.pipeline.Preview(); preview != nil {
		n = preview.Len()
	}
	if n == 0 {
		m.cursor, m.offset = 0, 0
		return
	}
	m.cursor = min(max(m.cursor, 0), n-1)

	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}
