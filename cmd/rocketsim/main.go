// cmd/rocketsim/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-rocketsim/pkg/audio"
	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/render"
	"github.com/opd-ai/go-rocketsim/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	planet := flag.String("planet", "", "Planet template to fly from (overrides config)")
	seed := flag.Uint64("seed", 0, "Random seed for wind and wrecks (0 picks one)")
	logPath := flag.String("log", "", "Write logs to this file")
	record := flag.Bool("record", false, "Record flights in the configured database")
	sound := flag.Bool("sound", false, "Play audio cues")
	flag.Parse()

	if err := run(*configPath, *planet, *seed, *logPath, *record, *sound); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, planet string, seed uint64, logPath string, record, sound bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if planet != "" {
		if err := config.ApplyPlanetTemplate(cfg, planet); err != nil {
			return err
		}
	}
	if seed != 0 {
		cfg.SessionConfig.Seed = seed
	}

	logger, closeLog, err := openLog(logPath, cfg.LoggingConfig)
	if err != nil {
		return err
	}
	defer closeLog()

	game, err := engine.NewGame(cfg, engine.WithLogger(logger))
	if err != nil {
		return logging.WrapError(err, "failed to create game")
	}

	if record {
		store, err := storage.Open(cfg.StorageConfig)
		if err != nil {
			return logging.WrapError(err, "failed to open flight store")
		}
		defer store.Close()
		recorder := storage.NewRecorder(store, "local-"+strconv.FormatInt(time.Now().Unix(), 10),
			storage.WithRecorderLogger(logger))
		recorder.Attach(game.EventBus)
		defer recorder.Close()
	}

	if sound {
		cues := audio.NewCues(audio.WithLogger(logger))
		if err := cues.Init(); err != nil {
			logger.Warn(ctx, "Playing without sound", "error", err.Error())
		}
		cues.Attach(game.EventBus)
		defer cues.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return logging.WrapError(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return logging.WrapError(err, "failed to initialize screen")
	}
	defer screen.Fini()

	game.Start()
	defer game.Stop()

	loop := render.NewLoop(screen, render.Local(game), logger,
		render.WithCatalog(game.Catalog),
		render.WithPlanet(cfg.FlightParams().Planet),
	)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openLog returns a logger writing to path, or a silent one when path is
// empty. The terminal owns stdout.
func openLog(path string, cfg config.LoggingConfig) (*logging.Logger, func(), error) {
	if path == "" && cfg.GraylogAddress == "" {
		return logging.Discard(), func() {}, nil
	}
	opts := logging.Options{Level: cfg.Level, GraylogAddress: cfg.GraylogAddress}
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		opts.Output = f
	} else {
		opts.Output = io.Discard
	}
	logger, err := logging.NewLoggerWithOptions(opts)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, nil, err
	}
	return logger, func() {
		logger.Close()
		if file != nil {
			file.Close()
		}
	}, nil
}
