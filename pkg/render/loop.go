package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// KeyName converts a tcell key press to the key names used by
// engine.KeyBindings. Unbound keys return "".
func KeyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyEnter:
		return engine.KeyEnter
	case tcell.KeyEscape:
		return engine.KeyEscape
	case tcell.KeyTab:
		return engine.KeyTab
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return engine.KeyBackspace
	case tcell.KeyUp:
		return engine.KeyUp
	case tcell.KeyDown:
		return engine.KeyDown
	case tcell.KeyRune:
		return string(ev.Rune())
	}
	return ""
}

// Loop plays a session in the terminal: it forwards bound keys as
// commands and redraws on every key and every refresh tick.
type Loop struct {
	renderer *TerminalRenderer
	screen   tcell.Screen
	session  Session
	logger   *logging.Logger
	refresh  time.Duration
	status   string
}

// NewLoop creates a loop drawing session onto screen.
func NewLoop(screen tcell.Screen, session Session, logger *logging.Logger, opts ...TerminalOption) *Loop {
	return &Loop{
		renderer: NewTerminalRenderer(screen, opts...),
		screen:   screen,
		session:  session,
		logger:   logger,
		refresh:  100 * time.Millisecond,
	}
}

// Run blocks until ctx is done or the pilot quits with q or Ctrl+C.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := l.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	l.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if l.HandleKey(ctx, ev) {
					return nil
				}
			case *tcell.EventResize:
				l.screen.Sync()
			}
			l.Draw()
		case <-ticker.C:
			l.Draw()
		}
	}
}

// HandleKey runs the command bound to ev on the current screen. It
// reports whether the pilot asked to quit.
func (l *Loop) HandleKey(ctx context.Context, ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
		return true
	}
	st, ok := l.session.State()
	if !ok {
		return false
	}
	cmd, bound := engine.KeyBindings(st.Screen, l.renderer.catalog)[KeyName(ev)]
	if !bound {
		return false
	}
	l.status = ""
	if err := l.session.Command(ctx, cmd); err != nil {
		l.status = err.Error()
		l.logger.Debug(ctx, "command rejected", "command", cmd, "error", err.Error())
	}
	return false
}

// Status returns the error of the last rejected command, if any.
func (l *Loop) Status() string {
	return l.status
}

// Draw renders the newest state.
func (l *Loop) Draw() {
	st, ok := l.session.State()
	if !ok {
		l.renderer.Clear()
		l.renderer.drawCentered(l.renderer.height/2, styleDim, "waiting for server...")
		l.renderer.Present()
		return
	}
	l.renderer.RenderState(st)
	if l.status != "" {
		l.renderer.drawText(0, l.renderer.height-1, styleDestroyed, fmt.Sprintf("%-*s", l.renderer.width, l.status))
		l.renderer.Present()
	}
}
