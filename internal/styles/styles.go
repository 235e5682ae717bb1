package styles

import "github.com/charmbracelet/lipgloss"

// Monokai Pro color palette
const (
	// Base colors
	Background = "#2D2A2E"
	Foreground = "#FCFCFA"

	// Accent colors
	Red     = "#FF6188" // Errors, overdue
	Orange  = "#FC9867" // Warnings, priority B
	Yellow  = "#FFD866" // Highlights, open TODO keywords
	Green   = "#A9DC76" // Success, closed keywords
	Cyan    = "#78DCE8" // Dates
	Blue    = "#AB9DF2" // Tags
	Magenta = "#FF6188" // Titles

	// UI colors
	Comment = "#727072" // Dim text, help
	Border  = "#5B595C" // Borders, separators
)

// Common styles
var (
	SuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Green))
	ErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Red))
	WarningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Orange))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(Comment))
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Magenta))
	HighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Yellow)).Bold(true)
	SpinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Magenta))
	HelpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(Comment))
	LabelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Comment))
	ValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Foreground))

	// Node metadata
	OpenTodoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Yellow)).Bold(true)
	ClosedTodoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Green))
	TagStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color(Blue))
	DateStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(Cyan))

	// Table/list styles
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(Magenta))

	TableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Border))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Background)).
			Background(lipgloss.Color(Yellow))

	NormalTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Foreground))
)

// Todo renders a TODO keyword, green once the work is closed
func Todo(keyword string, closed bool) string {
	if keyword == "" {
		return ""
	}
	if closed {
		return ClosedTodoStyle.Render(keyword)
	}
	return OpenTodoStyle.Render(keyword)
}

// Priority renders a priority cookie such as [#A]
func Priority(p string) string {
	switch p {
	case "":
		return ""
	case "A":
		return ErrorStyle.Render("[#A]")
	case "B":
		return WarningStyle.Render("[#B]")
	}
	return DimStyle.Render("[#" + p + "]")
}
