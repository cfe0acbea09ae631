package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/poi"
	"github.com/Ch00k/cvs-compass/internal/router"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		return m, nil

	case tickMsg:
		m.syncState()
		return m, tick()

	case mapCenterMsg:
		// the panel moves at once, so the move settles immediately
		m.moveTo(msg.center)
		return m, nil

	case errorMsg:
		m.alerts = append(m.alerts, msg.message)
		return m, nil

	case entriesMsg:
		m.setEntries(msg.entries)
		m.syncState()
		return m, nil

	case tea.KeyMsg:
		if len(m.alerts) > 0 {
			switch {
			case key.Matches(msg, m.keys.Dismiss):
				m.alerts = m.alerts[1:]
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.Recenter):
			m.post(router.RecenterRequested{})
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.post(router.RefreshRequested{})
			return m, nil

		case key.Matches(msg, m.keys.PanNorth):
			m.pan(1, 0)
			return m, nil
		case key.Matches(msg, m.keys.PanSouth):
			m.pan(-1, 0)
			return m, nil
		case key.Matches(msg, m.keys.PanWest):
			m.pan(0, -1)
			return m, nil
		case key.Matches(msg, m.keys.PanEast):
			m.pan(0, 1)
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if len(m.entries) > 0 {
				m.post(router.EntrySelected{Index: m.table.Cursor()})
			}
			return m, nil

		case key.Matches(msg, m.keys.SelectPOI):
			m.selectPOI()
			return m, nil
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m, nil
}

// pan moves the map by a quarter of the panel in the given direction
func (m *Model) pan(north, east float64) {
	stepEast := float64(m.grid.width) / 4 * m.grid.scale
	stepNorth := float64(m.grid.height) / 4 * 2 * m.grid.scale
	m.moveTo(m.grid.center.Offset(north*stepNorth, east*stepEast))
}

func (m *Model) moveTo(center geo.Location) {
	m.grid.center = center
	m.post(router.MapMoveFinished{Center: center})
}

// selectPOI reports the store under the cursor as a map marker tap. The
// router never consumes it, so the map highlights the marker itself.
func (m *Model) selectPOI() {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return
	}
	e := m.entries[i]
	m.post(router.POISelected{Item: poi.Item{
		Name:     e.PlaceName,
		Address:  e.Address,
		Location: e.Location,
	}})
	m.selected = i
}

func (m *Model) setEntries(entries []router.StoreListEntry) {
	m.entries = entries
	m.selected = -1

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{strconv.Itoa(i + 1), e.PlaceName, e.Address, e.Distance}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

func (m *Model) syncState() {
	if m.state == nil {
		return
	}
	s := m.state()
	m.current = s.CurrentLocation
	m.auth = s.Auth
}
