package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	mapStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)
	alertTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	alertActionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("63")).
				Padding(0, 2)
)

// View implements tea.Model
func (m *Model) View() string {
	if alert := m.Alert(); alert != "" {
		return m.renderAlert(alert)
	}

	header := titleStyle.Render("cvs-compass") + "  " + mutedStyle.Render(m.status())

	panel := mapStyle.Render(strings.Join(m.grid.render(m.current, m.entries, m.selected), "\n"))

	list := m.table.View()
	if len(m.entries) == 0 {
		list = mutedStyle.Render("No stores nearby yet")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, panel, "  ", list)
	if m.width > 0 && m.width < lipgloss.Width(body) {
		body = lipgloss.JoinVertical(lipgloss.Left, panel, list)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.help.View(m.keys))
}

func (m *Model) status() string {
	current := "locating..."
	if m.current != nil {
		current = "you " + m.current.String()
		if d := geo.Distance(*m.current, m.grid.center); d >= 1 {
			current += fmt.Sprintf(" (%s from center)", geo.FormatDistance(d))
		}
	}
	return fmt.Sprintf("center %s | %s | %s", m.grid.center, current, m.auth)
}

func (m *Model) renderAlert(message string) string {
	box := alertStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		alertTitleStyle.Render(apperrors.AlertTitle),
		"",
		message,
		"",
		alertActionStyle.Render(apperrors.AlertAction),
	))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
