// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-rocketsim/pkg/audio"
	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/network"
	"github.com/opd-ai/go-rocketsim/pkg/render"
	engorender "github.com/opd-ai/go-rocketsim/pkg/render/engo"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	serverAddr := flag.String("server", "", "Server address, host:port or ws://host:port/ws (overrides config)")
	pilotName := flag.String("name", "Pilot", "Pilot name")
	design := flag.String("design", "", "Rocket design to start with")
	renderer := flag.String("renderer", "terminal", "Renderer type: 'terminal' or 'engo'")
	width := flag.Int("width", 1024, "Window width (Engo only)")
	height := flag.Int("height", 768, "Window height (Engo only)")
	logPath := flag.String("log", "", "Write logs to this file")
	sound := flag.Bool("sound", false, "Play audio cues")
	flag.Parse()

	// Load configuration
	gameConfig := config.DefaultConfig()
	if _, err := os.Stat(*configPath); err == nil {
		if gameConfig, err = config.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	}
	if *serverAddr == "" {
		*serverAddr = gameConfig.NetworkConfig.ServerAddress
	}

	logger, err := newLogger(*logPath, gameConfig.LoggingConfig.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := event.NewEventBus()
	opts := []network.ClientOption{network.WithClientLogger(logger)}
	if *design != "" {
		opts = append(opts, network.WithLaunchDesign(*design))
	}
	client := network.NewGameClient(eventBus, opts...)

	logger.Info(ctx, "Connecting to server", "address", *serverAddr, "pilot", *pilotName)
	if err := client.Connect(ctx, *serverAddr, *pilotName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to server: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	eventBus.Subscribe(network.ClientReconnectFailed, func(e event.Event) {
		logger.Warn(ctx, "Gave up reconnecting")
		stop()
	})

	if *sound {
		cues := audio.NewCues(audio.WithLogger(logger))
		if err := cues.Init(); err != nil {
			logger.Warn(ctx, "Playing without sound", "error", err.Error())
		}
		// Server notices are republished on the client bus.
		cues.Attach(eventBus)
		defer cues.Close()
	}

	session := render.Remote(client)
	switch *renderer {
	case "engo":
		scene := engorender.NewFlightScene(session,
			engorender.WithSceneLogger(logger),
			engorender.WithScenePlanet(gameConfig.FlightParams().Planet),
			engorender.WithEventBus(eventBus),
		)
		engorender.Run("Rocket Sim", *width, *height, scene)
	default:
		if err := runTerminal(ctx, session, logger, gameConfig); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func runTerminal(ctx context.Context, session render.Session, logger *logging.Logger, cfg *config.GameConfig) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return logging.WrapError(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return logging.WrapError(err, "failed to initialize screen")
	}
	defer screen.Fini()

	loop := render.NewLoop(screen, session, logger,
		render.WithPlanet(cfg.FlightParams().Planet),
	)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// newLogger logs to path, or nowhere when path is empty. The terminal
// renderer owns stdout.
func newLogger(path, level string) (*logging.Logger, error) {
	var out io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}
	return logging.NewLoggerWithOptions(logging.Options{Level: level, Output: out})
}
