package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/router"
	"github.com/Ch00k/cvs-compass/internal/session"
)

// Sender delivers messages into a running program
type Sender interface {
	Send(msg tea.Msg)
}

// Signals adapts router outputs to program messages
func Signals(p Sender) router.Signals {
	return router.Signals{
		MapCenter: func(loc geo.Location) {
			p.Send(mapCenterMsg{center: loc})
		},
		ErrorMessage: func(msg string) {
			p.Send(errorMsg{message: msg})
		},
		Entries: func(entries []router.StoreListEntry) {
			p.Send(entriesMsg{entries: entries})
		},
	}
}

// initColorProfile forces full color when CLICOLOR_FORCE or COLORTERM ask for it
func initColorProfile() {
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// Run builds the session with signals bound to a full-screen program, runs
// both and returns when the user quits or ctx is done
func Run(ctx context.Context, build func(router.Signals) *session.Session, opts Options, programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	initColorProfile()

	var s *session.Session
	model := NewModel(
		func(ev router.Event) bool { return s.Post(ev) },
		func() router.ViewState { return s.State() },
		opts,
	)

	programOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, programOpts...)
	p := tea.NewProgram(model, programOpts...)
	s = build(Signals(p))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	_, err := p.Run()
	cancel()
	sessionErr := <-done

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return sessionErr
}
