package tui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/router"
)

var pangyo = location.DefaultFixedLocation

type poster struct {
	mu     sync.Mutex
	events []router.Event
}

func (p *poster) post(ev router.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return true
}

func (p *poster) Events() []router.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]router.Event(nil), p.events...)
}

type sender struct{ msgs []tea.Msg }

func (s *sender) Send(msg tea.Msg) { s.msgs = append(s.msgs, msg) }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(state router.ViewState) (*Model, *poster) {
	p := &poster{}
	m := NewModel(p.post, func() router.ViewState { return state }, Options{InitialCenter: pangyo})
	return m, p
}

func entries() []router.StoreListEntry {
	return []router.StoreListEntry{
		{PlaceName: "GS25 판교점", Address: "판교역로 166", Distance: "100m", Location: pangyo.Offset(100, 0)},
		{PlaceName: "CU 판교점", Address: "삼평동 1", Distance: "200m", Location: pangyo.Offset(0, 200)},
	}
}

func TestSignalsSendMessages(t *testing.T) {
	s := &sender{}
	signals := Signals(s)
	signals.MapCenter(pangyo)
	signals.ErrorMessage("oops")
	signals.Entries(entries())

	require.Len(t, s.msgs, 3)
	assert.Equal(t, mapCenterMsg{center: pangyo}, s.msgs[0])
	assert.Equal(t, errorMsg{message: "oops"}, s.msgs[1])
	assert.IsType(t, entriesMsg{}, s.msgs[2])
	assert.Nil(t, signals.Search)
}

func TestMapCenterSettlesImmediately(t *testing.T) {
	m, p := newTestModel(router.ViewState{})
	target := pangyo.Offset(300, 300)

	m.Update(mapCenterMsg{center: target})

	assert.Equal(t, target, m.Center())
	assert.Equal(t, []router.Event{router.MapMoveFinished{Center: target}}, p.Events())
}

func TestKeysPostEvents(t *testing.T) {
	m, p := newTestModel(router.ViewState{})
	m.Update(entriesMsg{entries: entries()})

	m.Update(runes("r"))
	m.Update(runes("f"))
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	events := p.Events()
	require.Len(t, events, 3)
	assert.Equal(t, router.RecenterRequested{}, events[0])
	assert.Equal(t, router.RefreshRequested{}, events[1])
	assert.Equal(t, router.EntrySelected{Index: 1}, events[2])
}

func TestPanMovesCenterAndReportsMove(t *testing.T) {
	m, p := newTestModel(router.ViewState{})

	m.Update(runes("w"))
	north := m.Center()
	n, e := geo.Project(pangyo, north)
	assert.Greater(t, n, 0.0)
	assert.InDelta(t, 0, e, 0.001)

	m.Update(runes("s"))
	assert.InDelta(t, pangyo.Latitude, m.Center().Latitude, 1e-9)

	m.Update(runes("d"))
	_, e = geo.Project(pangyo, m.Center())
	assert.Greater(t, e, 0.0)

	events := p.Events()
	require.Len(t, events, 3)
	assert.Equal(t, router.MapMoveFinished{Center: north}, events[0])
}

func TestSelectPOIHighlightsMarker(t *testing.T) {
	m, p := newTestModel(router.ViewState{})
	m.Update(entriesMsg{entries: entries()})

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	events := p.Events()
	require.Len(t, events, 1)
	sel, ok := events[0].(router.POISelected)
	require.True(t, ok)
	assert.Equal(t, "GS25 판교점", sel.Item.Name)
	assert.Equal(t, 0, m.selected)
	assert.Contains(t, m.View(), "*")
}

func TestEnterWithoutEntriesDoesNothing(t *testing.T) {
	m, p := newTestModel(router.ViewState{})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, p.Events())
}

func TestAlertIsModal(t *testing.T) {
	m, p := newTestModel(router.ViewState{})
	m.Update(errorMsg{message: "위치 정보를 비활성화하면 사용자의 현재 위치를 알 수 없습니다."})
	m.Update(errorMsg{message: "second"})

	view := m.View()
	assert.Contains(t, view, "문제 발생")
	assert.Contains(t, view, "위치 정보를 비활성화하면")
	assert.Contains(t, view, "확인")

	// other keys are swallowed while the alert is up
	m.Update(runes("r"))
	assert.Empty(t, p.Events())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "second", m.Alert())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", m.Alert())

	m.Update(runes("r"))
	assert.Len(t, p.Events(), 1)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(router.ViewState{})
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewShowsMapAndList(t *testing.T) {
	here := pangyo
	m, _ := newTestModel(router.ViewState{Auth: router.Authorized, CurrentLocation: &here})
	m.Update(tickMsg{})
	m.Update(entriesMsg{entries: entries()})

	view := m.View()
	assert.Contains(t, view, "GS25 판교점")
	assert.Contains(t, view, "authorized")
	assert.Contains(t, view, "@")
	assert.Contains(t, view, "1")
}

func TestMapGrid(t *testing.T) {
	g := mapGrid{center: pangyo, width: 11, height: 5, scale: 100}
	current := pangyo.Offset(0, -300)
	lines := g.render(&current, []router.StoreListEntry{
		{Location: pangyo.Offset(200, 0)},
		{Location: pangyo.Offset(0, 400)},
		{Location: pangyo.Offset(5000, 0)},
	}, 1)

	require.Len(t, lines, 5)
	assert.Equal(t, "...........", lines[0])
	assert.Equal(t, ".....1.....", lines[1])
	assert.Equal(t, "..@..+...*.", lines[2])
	assert.Equal(t, 11, len(lines[4]))
	assert.False(t, strings.ContainsAny(strings.Join(lines, ""), "3"))
}
