// Package tui is the terminal log viewer: a live, filterable view of one
// viewer's buffer with auto-follow, clear and export.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/narvanalabs/mission-console/internal/logs"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
)

// Source is the live log view the model renders.
type Source interface {
	State() stream.State
	View(c logs.Criteria) []models.LogEntry
	Export(c logs.Criteria, now time.Time) (filename, body string)
	Clear()
	Subscribe() *logs.Subscriber
}

// changeMsg delivers one buffer or connection change.
type changeMsg struct {
	change logs.Change
}

// sourceClosedMsg means the source stopped and will send nothing more.
type sourceClosedMsg struct{}

// exportedMsg reports the outcome of an export.
type exportedMsg struct {
	path    string
	entries int
	err     error
}

// Options configures a Model.
type Options struct {
	// ExportDir receives exported files; empty means the working directory.
	ExportDir string
	// Follow sets the initial auto-follow state.
	Follow bool
}

// Model implements tea.Model.
type Model struct {
	source  Source
	sub     *logs.Subscriber
	keys    KeyMap

	viewport viewport.Model
	search   textinput.Model
	help     help.Model

	criteria  logs.Criteria
	follower  *logs.Follower
	view      []models.LogEntry
	state     stream.State
	searching bool
	status    string
	statusErr bool

	exportDir string
	now       func() time.Time
	writeFile func(name string, data []byte, perm os.FileMode) error

	width, height int
}

// NewModel creates a model over source and subscribes to its changes.
func NewModel(source Source, opts Options) Model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "message or mission id"
	search.CharLimit = 128

	model := Model{
		source:    source,
		sub:       source.Subscribe(),
		keys:      DefaultKeyMap,
		viewport:  viewport.New(80, 20),
		search:    search,
		help:      help.New(),
		criteria:  logs.DefaultCriteria(),
		follower:  logs.NewFollower(opts.Follow),
		state:     source.State(),
		exportDir: opts.ExportDir,
		now:       time.Now,
		writeFile: os.WriteFile,
	}
	model.refresh()
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForChange(model.sub)
}

// listenForChange blocks until the source publishes a change. A missed
// change is reported as a replacement so the view is rebuilt.
func listenForChange(sub *logs.Subscriber) tea.Cmd {
	return func() tea.Msg {
		select {
		case change, ok := <-sub.Ch:
			if !ok {
				return sourceClosedMsg{}
			}
			return changeMsg{change: change}
		case <-sub.Resync:
			return changeMsg{change: logs.Change{Kind: logs.ChangeReplaced}}
		}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		model.layout()
		return model, nil

	case changeMsg:
		if message.change.Kind == logs.ChangeState {
			model.state = stream.State(message.change.State)
		} else {
			model.refresh()
		}
		return model, listenForChange(model.sub)

	case sourceClosedMsg:
		return model, tea.Quit

	case exportedMsg:
		if message.err != nil {
			model.setStatus("export failed: "+message.err.Error(), true)
		} else {
			model.setStatus(fmt.Sprintf("exported %d entries to %s", message.entries, message.path), false)
		}
		return model, nil

	case tea.KeyMsg:
		if model.searching {
			return model.handleSearchKeys(message)
		}
		return model.handleKeys(message)
	}

	return model, nil
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Follow):
		if model.follower.Toggle() {
			model.viewport.GotoBottom()
			model.setStatus("following new entries", false)
		} else {
			model.setStatus("follow paused", false)
		}

	case key.Matches(message, model.keys.Level):
		model.criteria.Level = next(levelChoices(), model.criteria.Level)
		model.refresh()

	case key.Matches(message, model.keys.Category):
		model.criteria.Category = next(categoryChoices(), model.criteria.Category)
		model.refresh()

	case key.Matches(message, model.keys.Search):
		model.searching = true
		model.search.SetValue(model.criteria.Search)
		model.search.CursorEnd()
		model.layout()
		return model, model.search.Focus()

	case key.Matches(message, model.keys.Reset):
		model.criteria = logs.DefaultCriteria()
		model.refresh()

	case key.Matches(message, model.keys.Clear):
		// The resulting change message refreshes the view.
		model.source.Clear()
		model.setStatus("buffer cleared", false)

	case key.Matches(message, model.keys.Export):
		return model, model.export()

	case key.Matches(message, model.keys.Help):
		model.help.ShowAll = !model.help.ShowAll
		model.layout()

	case key.Matches(message, model.keys.Up):
		model.viewport.LineUp(1)
	case key.Matches(message, model.keys.Down):
		model.viewport.LineDown(1)
	case key.Matches(message, model.keys.PageUp):
		model.viewport.LineUp(model.viewport.Height)
	case key.Matches(message, model.keys.PageDown):
		model.viewport.LineDown(model.viewport.Height)
	case key.Matches(message, model.keys.Top):
		model.viewport.GotoTop()
	case key.Matches(message, model.keys.Bottom):
		model.viewport.GotoBottom()
	}
	return model, nil
}

// handleSearchKeys applies the search term as it is typed. Enter keeps
// it; Esc restores the term from before editing started.
func (model Model) handleSearchKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEnter:
		model.criteria.Search = model.search.Value()
		model.searching = false
		model.search.Blur()
		model.layout()
		return model, nil
	case tea.KeyEsc:
		model.searching = false
		model.search.Blur()
		model.search.SetValue(model.criteria.Search)
		model.layout()
		model.refresh()
		return model, nil
	case tea.KeyCtrlC:
		return model, tea.Quit
	}

	var command tea.Cmd
	model.search, command = model.search.Update(message)
	model.refresh()
	return model, command
}

// export writes the current filtered view to a file off the update loop.
func (model Model) export() tea.Cmd {
	filename, body := model.source.Export(model.activeCriteria(), model.now())
	entries := 0
	if body != "" {
		entries = strings.Count(body, "\n") + 1
	}
	path := filepath.Join(model.exportDir, filename)
	writeFile := model.writeFile

	return func() tea.Msg {
		err := writeFile(path, []byte(body), 0o644)
		return exportedMsg{path: path, entries: entries, err: err}
	}
}

// activeCriteria includes an in-progress search edit.
func (model Model) activeCriteria() logs.Criteria {
	c := model.criteria
	if model.searching {
		c.Search = model.search.Value()
	}
	return c
}

// refresh recomputes the filtered view and follows the tail if enabled.
func (model *Model) refresh() {
	model.view = model.source.View(model.activeCriteria())
	model.viewport.SetContent(model.renderEntries())
	if model.follower.Observe(len(model.view)) {
		model.viewport.GotoBottom()
	}
}

func (model *Model) setStatus(text string, isErr bool) {
	model.status = text
	model.statusErr = isErr
}

// layout sizes the viewport to what the header and footer leave over.
func (model *Model) layout() {
	if model.width == 0 || model.height == 0 {
		return
	}
	chrome := lipgloss.Height(model.renderHeader()) + lipgloss.Height(model.renderFooter())
	model.viewport.Width = model.width
	model.viewport.Height = max(model.height-chrome, 1)
	model.viewport.SetContent(model.renderEntries())
	if model.follower.Enabled() {
		model.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		model.renderHeader(),
		model.viewport.View(),
		model.renderFooter(),
	)
}

func (model Model) renderHeader() string {
	state := stateStyles[model.state].Render("● " + model.state.String())
	follow := "follow off"
	if model.follower.Enabled() {
		follow = "follow on"
	}
	c := model.activeCriteria()
	filters := fmt.Sprintf("level:%s category:%s", c.Level, c.Category)
	if c.Search != "" {
		filters += fmt.Sprintf(" search:%q", c.Search)
	}

	return headerStyle.Render(strings.Join([]string{
		titleStyle.Render("Mission Console"),
		state,
		faintStyle.Render(fmt.Sprintf("%d entries", len(model.view))),
		faintStyle.Render(follow),
		faintStyle.Render(filters),
	}, "  "))
}

func (model Model) renderFooter() string {
	var lines []string
	if model.searching {
		lines = append(lines, statusStyle.Render(model.search.View()))
	} else if model.status != "" {
		style := statusStyle
		if model.statusErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(model.status))
	}
	lines = append(lines, statusStyle.Render(model.help.View(model.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (model Model) renderEntries() string {
	if len(model.view) == 0 {
		if model.state == stream.StateConnected {
			return emptyStyle.Render("No log entries match the current filters.")
		}
		return emptyStyle.Render("Waiting for the log stream...")
	}

	var b strings.Builder
	for i, entry := range model.view {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := renderEntry(entry)
		if model.viewport.Width > 0 {
			line = ansi.Truncate(line, model.viewport.Width, "…")
		}
		b.WriteString(line)
	}
	return b.String()
}

func renderEntry(entry models.LogEntry) string {
	level := strings.ToUpper(string(entry.Level))
	if style, ok := levelStyles[entry.Level]; ok {
		level = style.Render(fmt.Sprintf("%-7s", level))
	}

	parts := []string{
		faintStyle.Render(entry.Timestamp.Format("15:04:05")),
		level,
		faintStyle.Render(fmt.Sprintf("%-10s", entry.Category)),
	}
	if entry.MissionID != "" {
		parts = append(parts, missionTag.Render(entry.MissionID))
	}
	parts = append(parts, singleLine.Replace(entry.Message))
	return strings.Join(parts, " ")
}

// singleLine keeps every entry on one viewport line.
var singleLine = strings.NewReplacer("\r\n", "↵", "\n", "↵", "\r", "↵")

func levelChoices() []string {
	choices := []string{logs.All}
	for _, level := range models.Levels {
		choices = append(choices, string(level))
	}
	return choices
}

func categoryChoices() []string {
	choices := []string{logs.All}
	for _, category := range models.Categories {
		choices = append(choices, string(category))
	}
	return choices
}

// next returns the choice after current, wrapping around.
func next(choices []string, current string) string {
	for i, choice := range choices {
		if choice == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}
