// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/health"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/network"
	"github.com/opd-ai/go-rocketsim/pkg/resource"
	"github.com/opd-ai/go-rocketsim/pkg/storage"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	planet := flag.String("planet", "", "Planet template to fly from (overrides config)")
	flag.Parse()

	// Create default configuration file if requested
	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	gameConfig := loadConfig(ctx, logger, *configPath)
	if *planet != "" {
		if err := config.ApplyPlanetTemplate(gameConfig, *planet); err != nil {
			logger.Error(ctx, "Unknown planet template", err,
				"planet", *planet,
				"available", config.ListPlanetTemplates(),
			)
			os.Exit(1)
		}
	}

	// Apply environment variable overrides
	if err := config.ApplyEnvironmentOverrides(gameConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}
	env, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	if l, err := logging.NewLoggerWithOptions(logging.Options{
		Level:          gameConfig.LoggingConfig.Level,
		GraylogAddress: gameConfig.LoggingConfig.GraylogAddress,
	}); err != nil {
		logger.Warn(ctx, "Falling back to stdout logging", "error", err.Error())
	} else {
		logger = l
		defer logger.Close()
	}

	resources := resource.NewManager(env, resource.WithLogger(logger))
	if err := resources.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	opts := []network.ServerOption{
		network.WithServerLogger(logger),
		network.WithResourceManager(resources),
	}
	healthChecker := health.NewHealthChecker()

	// Optional flight recorder database
	if gameConfig.StorageConfig.Enabled {
		store, err := storage.Open(gameConfig.StorageConfig)
		if err != nil {
			logger.Error(ctx, "Failed to open flight store", err,
				"driver", gameConfig.StorageConfig.Driver,
			)
			os.Exit(1)
		}
		defer store.Close()
		opts = append(opts, network.WithStore(store))
		healthChecker.AddCheck(health.NewPingHealthCheck("storage", store.Ping))
		logger.Info(ctx, "Recording flights", "driver", store.Driver())
	}

	// Optional InfluxDB telemetry
	if gameConfig.TelemetryConfig.Enabled {
		sink, err := storage.NewInfluxSink(gameConfig.TelemetryConfig, logger)
		if err != nil {
			logger.Error(ctx, "Failed to create telemetry sink", err,
				"url", gameConfig.TelemetryConfig.URL,
			)
			os.Exit(1)
		}
		defer sink.Close()
		opts = append(opts, network.WithSampleSink(sink))
		healthChecker.AddCheck(health.NewPingHealthCheck("telemetry", sink.Ping))
	}

	// Create server
	server := network.NewGameServer(gameConfig, env, opts...)

	healthChecker.AddCheck(health.NewSessionHealthCheck(
		server.Running, server.SessionCount, server.MaxSessions(),
	))
	healthChecker.AddCheck(health.NewNetworkHealthCheck(server.Addr))
	healthChecker.AddCheck(resource.NewHealthCheck(resources))

	mux := healthChecker.Mux()
	mux.HandleFunc("/health", healthChecker.LivenessHandler)
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler)
	wsPath := gameConfig.NetworkConfig.WebSocketPath
	if wsPath != "" {
		mux.Handle(wsPath, server.WebSocketHandler())
	}

	httpServer := &http.Server{
		Addr:        ":" + strconv.Itoa(gameConfig.NetworkConfig.HealthPort),
		Handler:     mux,
		ReadTimeout: env.ReadTimeout,
	}

	// Start server
	serverAddr := gameConfig.NetworkConfig.ServerAddress
	if serverAddr == "" {
		logger.Error(ctx, "Server address not configured", nil,
			"message", "Set ROCKETSIM_SERVER_ADDR and ROCKETSIM_SERVER_PORT environment variables or provide in config file",
		)
		os.Exit(1)
	}

	logger.Info(ctx, "Starting server",
		"address", serverAddr,
		"max_pilots", gameConfig.MaxPilots,
	)
	if err := server.Start(serverAddr); err != nil {
		logger.Error(ctx, "Failed to start server", err,
			"address", serverAddr,
		)
		os.Exit(1)
	}

	// Start HTTP server in background
	go func() {
		logger.Info(ctx, "Starting HTTP server",
			"address", httpServer.Addr,
			"websocket_path", wsPath,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "HTTP server failed", err)
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", err)
	}

	server.Stop()

	if err := resources.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Resource shutdown incomplete", "error", err.Error())
	}
}

func loadConfig(ctx context.Context, logger *logging.Logger, path string) *config.GameConfig {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", path,
		)
		os.Exit(1)
	}
	return cfg
}
