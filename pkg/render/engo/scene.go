// Package engo is the windowed client: an engo scene that draws a flight
// and sends key presses to a local game or a server.
package engo

import (
	"context"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/network"
	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
	"github.com/opd-ai/go-rocketsim/pkg/render"
)

// FlightScene draws the session's flight and forwards flight keys.
type FlightScene struct {
	session render.Session
	bus     *event.Bus
	catalog *part.Catalog
	planet  physics.Planet
	logger  *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	subs   []*event.Subscription

	assets   *AssetManager
	renderer *EngoRenderer
	camera   *CameraSystem
	input    *InputSystem
	hud      *HUDSystem

	state engine.GameState
}

// SceneOption configures a FlightScene.
type SceneOption func(*FlightScene)

// WithSceneLogger sets the scene's logger.
func WithSceneLogger(l *logging.Logger) SceneOption {
	return func(s *FlightScene) { s.logger = l }
}

// WithSceneCatalog sets the catalog part sprites are built from.
func WithSceneCatalog(c *part.Catalog) SceneOption {
	return func(s *FlightScene) { s.catalog = c }
}

// WithScenePlanet sets the planet drawn under the rocket.
func WithScenePlanet(p physics.Planet) SceneOption {
	return func(s *FlightScene) { s.planet = p }
}

// WithEventBus shows connection changes published on bus.
func WithEventBus(bus *event.Bus) SceneOption {
	return func(s *FlightScene) { s.bus = bus }
}

// NewFlightScene creates a scene driving session.
func NewFlightScene(session render.Session, opts ...SceneOption) *FlightScene {
	s := &FlightScene{
		session: session,
		catalog: part.DefaultCatalog(),
		planet:  physics.DefaultPlanet(),
		logger:  logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns the scene type (required by Engo)
func (scene *FlightScene) Type() string {
	return "FlightScene"
}

// Preload rasterizes the part outlines.
func (scene *FlightScene) Preload() {
	scene.assets = NewAssetManager(scene.catalog)
	scene.assets.BuildImages()
}

// Setup is called when the scene starts (required by Engo)
func (scene *FlightScene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(color.Black)

	if err := scene.assets.LoadAssets(); err != nil {
		scene.logger.Error(context.Background(), "Failed to load assets", err)
	}

	rs := &common.RenderSystem{}
	world.AddSystem(rs)

	scene.camera = NewCameraSystem(scene.planet.Radius)
	world.AddSystem(scene.camera)

	scene.renderer = NewEngoRenderer(rs, scene.camera, scene.assets, scene.planet)

	SetupInputBindings()
	scene.input = NewInputSystem(scene.session, scene.logger)
	world.AddSystem(scene.input)

	scene.hud = NewHUDSystem(rs, scene.assets.Font())
	world.AddSystem(scene.hud)

	world.AddSystem(&syncSystem{scene: scene})

	scene.ctx, scene.cancel = context.WithCancel(context.Background())
	go scene.input.Run(scene.ctx)
	scene.subscribeToEvents()

	if st, ok := scene.session.State(); !ok || st.Screen != engine.ScreenFlight {
		scene.input.Send("goto " + string(engine.ScreenFlight))
	}
}

// subscribeToEvents mirrors the client connection state in the HUD.
func (scene *FlightScene) subscribeToEvents() {
	if scene.bus == nil {
		return
	}
	status := map[event.Type]string{
		network.ClientDisconnected:    "Disconnected",
		network.ClientReconnected:     "Connected",
		network.ClientReconnectFailed: "Offline",
	}
	for t, text := range status {
		scene.subs = append(scene.subs, scene.bus.Subscribe(t, func(event.Event) {
			scene.hud.SetConnectionStatus(text)
		}))
	}
}

// Sync pulls the newest session state into the renderer and the HUD. It
// runs on the engo loop once per frame.
func (scene *FlightScene) Sync() {
	st, ok := scene.session.State()
	if !ok {
		return
	}
	scene.state = st
	scene.renderer.Clear()
	if st.Screen == engine.ScreenFlight {
		scene.renderer.RenderFlight(st.Flight)
	} else {
		scene.renderer.RenderFlight(nil)
	}
	scene.hud.UpdateGameState(st)
	scene.renderer.Present()
}

// State returns the state drawn in the last frame.
func (scene *FlightScene) State() engine.GameState {
	return scene.state
}

// Exit stops the command worker and drops event subscriptions.
func (scene *FlightScene) Exit() {
	if scene.cancel != nil {
		scene.cancel()
	}
	for _, sub := range scene.subs {
		sub.Cancel()
	}
	scene.subs = nil
}

// syncSystem calls FlightScene.Sync every frame.
type syncSystem struct {
	scene *FlightScene
}

func (s *syncSystem) Update(dt float32) { s.scene.Sync() }

func (s *syncSystem) Remove(ecs.BasicEntity) {}

// Run opens a window and plays scene until it is closed.
func Run(title string, width, height int, scene *FlightScene) {
	engo.Run(engo.RunOptions{
		Title:  title,
		Width:  width,
		Height: height,
	}, scene)
}
