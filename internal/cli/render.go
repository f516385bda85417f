package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
)

// Theme defines the colors used by voicectl output.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Good    lipgloss.Color
	Bad     lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00afff"),
	Dim:     lipgloss.Color("#6e7681"),
	Good:    lipgloss.Color("#00ff9f"),
	Bad:     lipgloss.Color("#ff5f5f"),
}

type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
	Good   lipgloss.Style
	Bad    lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Good:   lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		Bad:    lipgloss.NewStyle().Bold(true).Foreground(t.Bad),
	}
}

// field is one labelled line of a block.
type field struct {
	label string
	value string
}

// printBlock writes a title followed by aligned label/value lines.
func (s Styles) printBlock(w io.Writer, title string, fields ...field) {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.label))
	}
	label := s.Label.Width(width + 2)

	fmt.Fprintln(w, s.Title.Render(title))
	for _, f := range fields {
		fmt.Fprintln(w, "  "+label.Render(f.label+":")+f.value)
	}
}

func (s Styles) yesNo(ok bool, yes, no string) string {
	if ok {
		return s.Good.Render(yes)
	}
	return s.Bad.Render(no)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

var userColumns = []string{"USER", "STATUS", "METHOD", "DIMS", "UPDATED"}

// printUsers writes enrollments as a table.
func (s Styles) printUsers(w io.Writer, users []models.EnrollmentSummary) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}
		rows = append(rows, []string{u.UserID, status, u.EmbeddingMethod, fmt.Sprint(u.EmbeddingDimensions), formatTime(u.UpdatedAt)})
	}

	widths := make([]int, len(userColumns))
	for i, c := range userColumns {
		widths[i] = len(c)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	line := func(style lipgloss.Style, cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i]).Render(c)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(w, line(s.Header, userColumns))
	for _, r := range rows {
		fmt.Fprintln(w, line(lipgloss.NewStyle(), r))
	}
}
