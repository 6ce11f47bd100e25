package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/s3tui/internal/app_events"
	"github.com/rescp17/s3tui/internal/app_events/transfers"
	"github.com/rescp17/s3tui/internal/style"
	"github.com/rescp17/s3tui/internal/util"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// AppController is what the TUI needs from the application controller
type AppController interface {
	UIMessages() <-chan tea.Msg
	AppEvents() chan<- appevents.AppEvent
	Items() []model.TransferItem
	Stats() transfer.Stats
}

type tickMsg time.Time

const (
	refreshInterval = time.Second
	chromeHeight    = 7 // header, status, help and table borders
	destWidth       = 28
)

var columns = []table.Column{
	{Title: "", Width: 1},
	{Title: "Bucket", Width: 14},
	{Title: "Name", Width: 24},
	{Title: "Destination", Width: destWidth},
	{Title: "Credential", Width: 12},
	{Title: "Progress", Width: 16},
	{Title: "Speed", Width: 10},
	{Title: "ETA", Width: 8},
	{Title: "Error", Width: 30},
}

// Model is the transfers page
type Model struct {
	app     AppController
	keys    keyMap
	help    help.Model
	table   table.Model
	spinner spinner.Model
	rows    []model.TransferItem
	status  string
	err     error
	now     func() time.Time
}

// NewModel creates the transfers page for app
func NewModel(app AppController) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(style.NewTableStyles())

	m := Model{
		app:     app,
		keys:    defaultKeyMap,
		help:    help.New(),
		table:   t,
		spinner: style.NewSpinner(),
		now:     time.Now,
	}
	m.refresh()
	return m
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m Model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		return <-m.app.UIMessages()
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// send delivers an intent to the app without blocking the update loop
func (m Model) send(event appevents.AppEvent) tea.Cmd {
	events := m.app.AppEvents()
	return func() tea.Msg {
		events <- event
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenForAppMessages(), m.spinner.Tick, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, processed := m.handleAppMessage(msg); processed {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Run):
			m.err = nil
			return m, m.send(transfers.RunTransfersMsg{})
		case key.Matches(msg, m.keys.Clear):
			return m, m.send(transfers.ClearFinishedMsg{})
		case key.Matches(msg, m.keys.Pause):
			return m, m.sendForSelected(func(row model.TransferItem) appevents.AppEvent {
				return transfers.PauseTransferMsg{Item: row}
			})
		case key.Matches(msg, m.keys.Resume):
			return m, m.sendForSelected(func(row model.TransferItem) appevents.AppEvent {
				return transfers.ResumeTransferMsg{Item: row}
			})
		case key.Matches(msg, m.keys.Cancel):
			return m, m.sendForSelected(func(row model.TransferItem) appevents.AppEvent {
				return transfers.CancelTransferMsg{Item: row}
			})
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleAppMessage(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case transfers.StateChangedMsg, transfers.ProgressMsg, transfers.SelectionChangedMsg:
		m.refresh()
		return m.listenForAppMessages(), true
	case transfers.StatusUpdateMsg:
		m.status = msg.Message
		m.refresh()
		return m.listenForAppMessages(), true
	case appevents.AppErrorMsg:
		slog.Debug("Showing app error", "error", msg.Err)
		m.err = msg.Err
		return m.listenForAppMessages(), true
	}
	return nil, false
}

func (m Model) sendForSelected(build func(model.TransferItem) appevents.AppEvent) tea.Cmd {
	row, ok := m.Selected()
	if !ok {
		return nil
	}
	return m.send(build(row))
}

// Selected returns the row under the cursor
func (m Model) Selected() (model.TransferItem, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return model.TransferItem{}, false
	}
	return m.rows[i], true
}

func (m *Model) refresh() {
	m.rows = m.app.Items()
	now := m.now()
	rows := make([]table.Row, 0, len(m.rows))
	for _, item := range m.rows {
		rows = append(rows, tableRow(item, now))
	}
	m.table.SetRows(rows)
}

func tableRow(item model.TransferItem, now time.Time) table.Row {
	cells := item.Columns()
	cells[3] = util.TruncateLeft(cells[3], destWidth)
	speed, eta := "-", "-"
	if item.State.IsInProgress() {
		speed = util.FormatSpeed(item.Speed(now))
		if left, ok := item.ETA(now); ok {
			eta = left.String()
		}
	}
	// direction, bucket, name, destination, credential, progress, speed, eta, error
	return table.Row{cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], speed, eta, cells[6]}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(style.BaseStyle.Render(m.table.View()))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(style.ErrorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(style.SuccessStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) header() string {
	stats := m.app.Stats()
	var downloads, uploads int
	for _, row := range m.rows {
		if row.Direction == transfer.Download {
			downloads++
		} else {
			uploads++
		}
	}
	title := style.HeaderStyle.Render("s3tui transfers")
	counts := fmt.Sprintf("↓ %d  ↑ %d", downloads, uploads)
	jobs := fmt.Sprintf("active %d  pending %d  paused %d", stats.Active, stats.Pending, stats.Paused)
	if stats.Active > 0 {
		jobs = m.spinner.View() + " " + jobs
	} else {
		jobs = style.HelpStyle.Render(jobs)
	}
	return fmt.Sprintf("%s  %s  %s", title, counts, jobs)
}
