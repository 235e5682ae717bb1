package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gerunddev/orgnode/internal/index"
	"github.com/gerunddev/orgnode/internal/styles"
)

// indexModel is the Bubble Tea model for the index progress display
type indexModel struct {
	spinner  spinner.Model
	status   string
	complete bool
	result   *index.Result
	err      error
}

// IndexMsg is sent when indexing completes
type IndexMsg struct {
	Result *index.Result
	Err    error
}

// InitIndexModel creates a new index progress model
func InitIndexModel(dir string) indexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	return indexModel{
		spinner: s,
		status:  "Indexing " + dir + "...",
	}
}

func (m indexModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case IndexMsg:
		m.complete = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m indexModel) View() string {
	if !m.complete {
		return fmt.Sprintf("\n%s %s\n\n", m.spinner.View(), m.status)
	}

	if m.err != nil {
		return styles.ErrorStyle.Render("✗ Index failed: "+m.err.Error()) + "\n"
	}

	r := m.result
	took := styles.HelpStyle.Render(fmt.Sprintf("Completed in %v", r.EndTime.Sub(r.StartTime).Round(time.Millisecond)))
	if r.FilesIndexed == 0 && len(r.Errors) == 0 {
		return styles.SuccessStyle.Render(fmt.Sprintf("✓ Nothing changed (%d file(s) up to date)", r.Skipped)) + "\n" + took + "\n"
	}

	msg := styles.SuccessStyle.Render(fmt.Sprintf("✓ Indexed %d file(s)", r.FilesIndexed))
	if r.Pruned > 0 {
		msg += ", " + styles.DimStyle.Render(fmt.Sprintf("%d removed", r.Pruned))
	}
	if len(r.Duplicates) > 0 {
		msg += ", " + styles.WarningStyle.Render(fmt.Sprintf("%d duplicate id(s)", len(r.Duplicates)))
	}
	if len(r.Errors) > 0 {
		msg += ", " + styles.ErrorStyle.Render(fmt.Sprintf("%d error(s)", len(r.Errors)))
	}
	return msg + "\n" + took + "\n"
}
