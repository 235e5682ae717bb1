package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gerunddev/orgnode/internal/styles"
	"github.com/gerunddev/orgnode/parser"
)

const dateLayout = "2006-01-02"

type browseModel struct {
	table       table.Model
	viewport    viewport.Model
	name        string
	nodes       []*parser.Node
	visible     []int // indexes into nodes for the table rows
	hideClosed  bool
	showingNode bool
	width       int
	height      int
}

// InitBrowseModel creates a node browser for the document read from name
func InitBrowseModel(name string, doc *parser.Document) browseModel {
	columns := []table.Column{
		{Title: "Heading", Width: 48},
		{Title: "Todo", Width: 10},
		{Title: "Pri", Width: 4},
		{Title: "Tags", Width: 20},
		{Title: "Scheduled", Width: 11},
		{Title: "Deadline", Width: 11},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(styles.Border)).
		BorderBottom(true).
		Bold(false)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color(styles.Background)).
		Background(lipgloss.Color(styles.Yellow)).
		Bold(false)
	t.SetStyles(ts)

	vp := viewport.New(100, 20)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(styles.Border)).
		Padding(1)

	m := browseModel{
		table:    t,
		viewport: vp,
		name:     name,
	}
	for _, n := range doc.Nodes {
		if n.Level() > 0 {
			m.nodes = append(m.nodes, n)
		}
	}
	m.refreshRows()
	return m
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-10, 3))
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-6, 3)

	case tea.KeyMsg:
		if m.showingNode {
			switch msg.String() {
			case "q", "esc":
				m.showingNode = false
				return m, nil
			case "up", "k", "down", "j", "pgup", "pgdown":
				m.viewport, cmd = m.viewport.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k", "down", "j", "pgup", "pgdown", "home", "end":
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		case "h":
			m.hideClosed = !m.hideClosed
			m.refreshRows()
			return m, nil
		case "enter", "v":
			if n := m.selected(); n != nil {
				m.showingNode = true
				m.viewport.SetContent(n.String())
				m.viewport.GotoTop()
			}
			return m, nil
		}
	}

	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("orgnode: " + m.name))
	b.WriteString("\n\n")

	if m.showingNode {
		n := m.selected()
		b.WriteString(styles.LabelStyle.Render(fmt.Sprintf("Node: %s", n.Heading())))
		b.WriteString("\n\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("↑/k up • ↓/j down • esc/q back"))
		b.WriteString("\n")
		return b.String()
	}

	if len(m.nodes) == 0 {
		b.WriteString(styles.DimStyle.Render("No headings in this document"))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("q quit"))
		b.WriteString("\n")
		return b.String()
	}

	label := fmt.Sprintf("Nodes: %d", len(m.visible))
	if m.hideClosed {
		label += fmt.Sprintf(" (%d closed hidden)", len(m.nodes)-len(m.visible))
	}
	b.WriteString(styles.LabelStyle.Render(label))
	b.WriteString("\n\n")
	b.WriteString(styles.TableStyle.Render(m.table.View()))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("↑/k up • ↓/j down • enter/v view • h hide closed • q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *browseModel) refreshRows() {
	m.visible = nil
	rows := []table.Row{}
	for i, n := range m.nodes {
		if m.hideClosed && n.Closed() {
			continue
		}
		m.visible = append(m.visible, i)
		rows = append(rows, nodeRow(n))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m browseModel) selected() *parser.Node {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visible) {
		return nil
	}
	return m.nodes[m.visible[c]]
}

func nodeRow(n *parser.Node) table.Row {
	row := table.Row{
		strings.Repeat("  ", n.Level()-1) + n.Heading(),
		n.Todo(),
		n.Priority(),
		strings.Join(n.Tags(), ":"),
		"",
		"",
	}
	if d, ok := n.Scheduled(); ok {
		row[4] = d.Format(dateLayout)
	}
	if d, ok := n.Deadline(); ok {
		row[5] = d.Format(dateLayout)
	}
	return row
}
