package tui

import (
	"math"
	"strings"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/router"
)

// Map markers
const (
	markerEmpty    = '.'
	markerCenter   = '+'
	markerCurrent  = '@'
	markerSelected = '*'
	markerMany     = '#'
)

// mapGrid is a character grid around a center. A cell is scale metres wide
// and twice as tall, matching the usual terminal cell aspect.
type mapGrid struct {
	center geo.Location
	width  int
	height int
	scale  float64
}

// cell returns the grid position of loc, or false when it falls outside
func (g mapGrid) cell(loc geo.Location) (row, col int, ok bool) {
	north, east := geo.Project(g.center, loc)
	col = g.width/2 + int(math.Round(east/g.scale))
	row = g.height/2 - int(math.Round(north/(2*g.scale)))
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return 0, 0, false
	}
	return row, col, true
}

// render draws entries as their 1-based list number, the selected entry as
// '*', the current location as '@' and the center as '+'. Later markers win.
func (g mapGrid) render(current *geo.Location, entries []router.StoreListEntry, selected int) []string {
	if g.width <= 0 || g.height <= 0 {
		return nil
	}

	cells := make([][]rune, g.height)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(string(markerEmpty), g.width))
	}

	for i, e := range entries {
		row, col, ok := g.cell(e.Location)
		if !ok {
			continue
		}
		switch {
		case i == selected:
			cells[row][col] = markerSelected
		case i < 9:
			cells[row][col] = rune('1' + i)
		default:
			cells[row][col] = markerMany
		}
	}

	cells[g.height/2][g.width/2] = markerCenter

	if current != nil {
		if row, col, ok := g.cell(*current); ok {
			cells[row][col] = markerCurrent
		}
	}

	lines := make([]string, g.height)
	for i, row := range cells {
		lines[i] = string(row)
	}
	return lines
}
