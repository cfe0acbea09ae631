// Package tui is the interactive terminal presentation of the compass: a map
// panel around the map center, the nearby store list and a modal alert.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/router"
)

const (
	defaultMapWidth  = 41
	defaultMapHeight = 15
	// metres per map column
	defaultScale = 25.0
	refreshEvery = 500 * time.Millisecond
)

// Options configures the model
type Options struct {
	// InitialCenter is shown until the router first centers the map
	InitialCenter geo.Location
	MapWidth      int
	MapHeight     int
	Scale         float64
}

type mapCenterMsg struct{ center geo.Location }

type errorMsg struct{ message string }

type entriesMsg struct{ entries []router.StoreListEntry }

type tickMsg time.Time

// Model is the bubbletea model. post delivers events to the session and
// state reads the router's view state.
type Model struct {
	post  func(router.Event) bool
	state func() router.ViewState

	keys  KeyMap
	help  help.Model
	table table.Model

	width  int
	height int
	grid   mapGrid

	current  *geo.Location
	auth     router.AuthState
	entries  []router.StoreListEntry
	selected int
	alerts   []string
}

// NewModel creates the model
func NewModel(post func(router.Event) bool, state func() router.ViewState, opts Options) *Model {
	if opts.MapWidth <= 0 {
		opts.MapWidth = defaultMapWidth
	}
	if opts.MapHeight <= 0 {
		opts.MapHeight = defaultMapHeight
	}
	if opts.Scale <= 0 {
		opts.Scale = defaultScale
	}

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(opts.MapHeight),
		table.WithKeyMap(tableKeyMap()),
	)

	return &Model{
		post:  post,
		state: state,
		keys:  defaultKeyMap,
		help:  help.New(),
		table: t,
		grid: mapGrid{
			center: opts.InitialCenter,
			width:  opts.MapWidth,
			height: opts.MapHeight,
			scale:  opts.Scale,
		},
		selected: -1,
	}
}

func columns(width int) []table.Column {
	address := width - 4 - 20 - 8 - 8
	if address < 12 {
		address = 12
	}
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Store", Width: 20},
		{Title: "Address", Width: address},
		{Title: "Distance", Width: 8},
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Center returns the map center currently shown
func (m *Model) Center() geo.Location { return m.grid.center }

// Alert returns the alert on screen, if any
func (m *Model) Alert() string {
	if len(m.alerts) == 0 {
		return ""
	}
	return m.alerts[0]
}
