package engo

import (
	"context"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/render"
)

type binding struct {
	screen engine.Screen
	key    string
}

// buttons maps engo button names to the session key they stand for.
var buttons = map[string]binding{
	"zoomOut":    {engine.ScreenFlight, "-"},
	"zoomIn":     {engine.ScreenFlight, "+"},
	"steerLeft":  {engine.ScreenFlight, "a"},
	"steerRight": {engine.ScreenFlight, "d"},
	"advance":    {engine.ScreenFlight, engine.KeyEnter},
	"stage":      {engine.ScreenFlight, engine.KeySpace},
	"auto":       {engine.ScreenFlight, engine.KeyTab},
	"exit":       {engine.ScreenFlight, engine.KeyEscape},
	"launch":     {engine.ScreenSpaceCenter, "l"},
}

// InputSystem turns key presses into session commands. Commands are sent
// from a worker goroutine so a slow server never stalls the frame loop.
type InputSystem struct {
	session render.Session
	logger  *logging.Logger
	queue   chan string

	// Input timing
	lastInputSent time.Time
	inputDelay    time.Duration
}

// NewInputSystem creates an input system sending to session.
func NewInputSystem(session render.Session, logger *logging.Logger) *InputSystem {
	return &InputSystem{
		session:    session,
		logger:     logger,
		queue:      make(chan string, 16),
		inputDelay: 50 * time.Millisecond,
	}
}

// Run sends queued commands until ctx is done.
func (is *InputSystem) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-is.queue:
			if err := is.session.Command(ctx, cmd); err != nil {
				is.logger.Warn(ctx, "command rejected", "command", cmd, "error", err.Error())
			}
		}
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update queues a command for every button pressed this frame.
func (is *InputSystem) Update(dt float32) {
	if time.Since(is.lastInputSent) < is.inputDelay {
		return
	}
	for name := range buttons {
		if engo.Input.Button(name).JustPressed() {
			is.Press(name)
		}
	}
}

// Press queues the command bound to button. It reports false when the
// button is unbound or the queue is full.
func (is *InputSystem) Press(button string) bool {
	cmd, ok := CommandFor(button)
	if !ok {
		return false
	}
	return is.Send(cmd)
}

// Send queues cmd. It reports false when the queue is full.
func (is *InputSystem) Send(cmd string) bool {
	select {
	case is.queue <- cmd:
		is.lastInputSent = time.Now()
		return true
	default:
		return false
	}
}

// CommandFor returns the session command bound to an engo button.
func CommandFor(button string) (string, bool) {
	b, ok := buttons[button]
	if !ok {
		return "", false
	}
	cmd, ok := engine.KeyBindings(b.screen, nil)[b.key]
	return cmd, ok
}

// SetupInputBindings registers the flight buttons with engo.
func SetupInputBindings() {
	engo.Input.RegisterButton("zoomOut", engo.KeyDash)
	engo.Input.RegisterButton("zoomIn", engo.KeyEquals)
	engo.Input.RegisterButton("steerLeft", engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton("steerRight", engo.KeyD, engo.KeyArrowRight)
	engo.Input.RegisterButton("advance", engo.KeyEnter)
	engo.Input.RegisterButton("stage", engo.KeySpace)
	engo.Input.RegisterButton("auto", engo.KeyTab)
	engo.Input.RegisterButton("exit", engo.KeyEscape)
	engo.Input.RegisterButton("launch", engo.KeyL)
}
