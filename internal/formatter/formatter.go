// Package formatter renders store lists, alerts and probe results as plain text.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/probe"
	"github.com/Ch00k/cvs-compass/internal/router"
)

const (
	gap            = "   "
	columnGap      = len(gap)
	minColumnWidth = 12
)

// FormatTable formats store list entries as a table string
func FormatTable(entries []router.StoreListEntry) string {
	return FormatTableWidth(entries, 0)
}

// FormatTableWidth formats entries like FormatTable, shortening addresses so
// rows fit in width columns. A width of 0 or less means unlimited.
func FormatTableWidth(entries []router.StoreListEntry, width int) string {
	if len(entries) == 0 {
		return ""
	}

	headers := []string{"#", "Store", "Address", "Distance"}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{strconv.Itoa(i + 1), e.PlaceName, e.Address, e.Distance}
	}
	if width > 0 {
		fitColumn(headers, rows, 2, width)
	}
	return table(headers, rows)
}

// FormatProbeResults formats doctor results as a table string
func FormatProbeResults(results []probe.Result) string {
	if len(results) == 0 {
		return ""
	}

	headers := []string{"Endpoint", "Host", "Address", "Latency (ms)"}
	rows := make([][]string, len(results))
	for i, r := range results {
		latency := formatLatency(r.Latency)
		if r.Err != nil {
			latency = r.Err.Error()
		}
		rows[i] = []string{r.Target.Name, r.Target.Host, r.Addr, latency}
	}
	return table(headers, rows)
}

// FormatAlert renders an error message the way the interactive alert shows it
func FormatAlert(message string) string {
	return fmt.Sprintf("[%s] %s (%s)", apperrors.AlertTitle, message, apperrors.AlertAction)
}

// FormatUserLocation formats the current position and map center
func FormatUserLocation(state router.ViewState) string {
	const indent = "               " // Length of "Your location: "

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Your location: %s (%s)\n", formatLocation(state.CurrentLocation), state.Auth))
	output.WriteString(fmt.Sprintf("Map center:    %s", formatLocation(state.MapCenter)))
	if state.CurrentLocation != nil && state.MapCenter != nil {
		if d := geo.Distance(*state.CurrentLocation, *state.MapCenter); d >= 1 {
			output.WriteString(fmt.Sprintf("\n%s%s away", indent, geo.FormatDistance(d)))
		}
	}
	return output.String()
}

func formatLocation(loc *geo.Location) string {
	if loc == nil {
		return "unknown"
	}
	return loc.String()
}

// table lays out columns by display width, so Hangul cells line up
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var output strings.Builder

	headerParts := make([]string, len(headers))
	for i, header := range headers {
		headerParts[i] = padRight(header, widths[i])
	}
	output.WriteString(strings.TrimRight(strings.Join(headerParts, gap), " "))
	output.WriteString("\n")

	separators := make([]string, len(headers))
	for i, width := range widths {
		separators[i] = strings.Repeat("-", width)
	}
	output.WriteString(strings.Join(separators, gap))
	output.WriteString("\n")

	for _, row := range rows {
		rowParts := make([]string, len(row))
		for i, cell := range row {
			rowParts[i] = padRight(cell, widths[i])
		}
		output.WriteString(strings.TrimRight(strings.Join(rowParts, gap), " "))
		output.WriteString("\n")
	}

	return output.String()
}

// fitColumn truncates column col so that a table row fits in width, keeping
// at least minColumnWidth cells of it
func fitColumn(headers []string, rows [][]string, col, width int) {
	others := columnGap * (len(headers) - 1)
	for i, header := range headers {
		if i == col {
			continue
		}
		w := runewidth.StringWidth(header)
		for _, row := range rows {
			w = max(w, runewidth.StringWidth(row[i]))
		}
		others += w
	}

	limit := max(width-others, minColumnWidth)
	for _, row := range rows {
		row[col] = runewidth.Truncate(row[col], limit, "...")
	}
}

// padRight pads a string with spaces on the right to reach the display width
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func formatLatency(latency *float64) string {
	if latency == nil {
		return "timeout"
	}
	return fmt.Sprintf("%.2f", *latency)
}
