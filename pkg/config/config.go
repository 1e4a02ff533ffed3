// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/physics"
)

// GameConfig contains configuration for a rocket simulator session or server
type GameConfig struct {
	MaxPilots       int             `json:"maxPilots"`
	CatalogPath     string          `json:"catalogPath,omitempty"`
	PlanetConfig    PlanetConfig    `json:"planet"`
	FlightConfig    FlightConfig    `json:"flight"`
	SessionConfig   SessionConfig   `json:"session"`
	NetworkConfig   NetworkConfig   `json:"network"`
	StorageConfig   StorageConfig   `json:"storage"`
	TelemetryConfig TelemetryConfig `json:"telemetry"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

// PlanetConfig describes the body flights launch from
type PlanetConfig struct {
	Name             string  `json:"name"`
	Radius           float64 `json:"radius"`
	AtmosphereHeight float64 `json:"atmosphereHeight"`
	Gravity          float64 `json:"gravity"`
	DragCoefficient  float64 `json:"dragCoefficient"`
	CrossSection     float64 `json:"crossSection"`
}

// FlightConfig contains flight tuning
type FlightConfig struct {
	SteerMultiplier  float64 `json:"steerMultiplier"`
	StageControlCost float64 `json:"stageControlCost"`
	BurnRate         float64 `json:"burnRate"`
	PathInterval     float64 `json:"pathInterval"`
	TrajectorySteps  int     `json:"trajectorySteps"`
	TrajectoryStep   float64 `json:"trajectoryStep"`
	CrashSpeed       float64 `json:"crashSpeed"`
	WreckChance      float64 `json:"wreckChance"`
	WindStrength     float64 `json:"windStrength"`
	InitialZoom      float64 `json:"initialZoom"`
}

// SessionConfig contains the starting state of a player session
type SessionConfig struct {
	TimeMultiplier float64  `json:"timeMultiplier"`
	InitialDesign  string   `json:"initialDesign"`
	InitialScreen  string   `json:"initialScreen"`
	ResearchPoints int      `json:"researchPoints"`
	UnlockedParts  []string `json:"unlockedParts"`
	Seed           uint64   `json:"seed,omitempty"`
}

// NetworkConfig contains network-related configuration
type NetworkConfig struct {
	UpdateRate    int    `json:"updateRate"`
	ServerPort    int    `json:"serverPort"`
	ServerAddress string `json:"serverAddress"`
	WebSocketPath string `json:"webSocketPath"`
	HealthPort    int    `json:"healthPort"`
}

// StorageConfig selects the flight recorder database
type StorageConfig struct {
	Enabled bool   `json:"enabled"`
	Driver  string `json:"driver"`
	DSN     string `json:"dsn"`
}

// TelemetryConfig configures the optional InfluxDB sink
type TelemetryConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level          string `json:"level"`
	GraylogAddress string `json:"graylogAddress,omitempty"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *GameConfig, path string) error {
	if config == nil {
		return errors.New("config is nil")
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default game configuration
func DefaultConfig() *GameConfig {
	params := flight.DefaultParams()
	return &GameConfig{
		MaxPilots:    16,
		PlanetConfig: planetConfigFrom("Kerbin", params.Planet),
		FlightConfig: FlightConfig{
			SteerMultiplier:  params.SteerMultiplier,
			StageControlCost: params.StageControlCost,
			BurnRate:         params.BurnRate,
			PathInterval:     params.PathInterval,
			TrajectorySteps:  params.TrajectorySteps,
			TrajectoryStep:   params.TrajectoryStep,
			CrashSpeed:       params.CrashSpeed,
			WreckChance:      params.WreckChance,
			WindStrength:     params.WindStrength,
			InitialZoom:      params.InitialZoom,
		},
		SessionConfig: SessionConfig{
			TimeMultiplier: 3,
			InitialDesign:  "pcmb",
			InitialScreen:  "home",
			ResearchPoints: 0,
			UnlockedParts:  []string{"c", "p", "b", "m", "f", "e", "o"},
		},
		NetworkConfig: NetworkConfig{
			UpdateRate:    10,
			ServerPort:    4567,
			ServerAddress: "localhost:4567",
			WebSocketPath: "/ws",
			HealthPort:    8080,
		},
		StorageConfig: StorageConfig{
			Enabled: false,
			Driver:  "sqlite",
			DSN:     "file::memory:?cache=shared",
		},
		TelemetryConfig: TelemetryConfig{
			Enabled: false,
			URL:     "http://localhost:8086",
			Org:     "rocketsim",
			Bucket:  "flights",
		},
		LoggingConfig: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Validate checks the file-level configuration.
func (c *GameConfig) Validate() error {
	if c.PlanetConfig.Radius <= 0 {
		return &ValidationError{Field: "PlanetConfig.Radius", Value: c.PlanetConfig.Radius, Message: "must be positive"}
	}
	if c.PlanetConfig.AtmosphereHeight < 0 {
		return &ValidationError{Field: "PlanetConfig.AtmosphereHeight", Value: c.PlanetConfig.AtmosphereHeight, Message: "must not be negative"}
	}
	if c.FlightConfig.WreckChance < 0 || c.FlightConfig.WreckChance > 1 {
		return &ValidationError{Field: "FlightConfig.WreckChance", Value: c.FlightConfig.WreckChance, Message: "must be between 0 and 1"}
	}
	if c.FlightConfig.TrajectorySteps < 0 {
		return &ValidationError{Field: "FlightConfig.TrajectorySteps", Value: c.FlightConfig.TrajectorySteps, Message: "must not be negative"}
	}
	if c.SessionConfig.TimeMultiplier <= 0 {
		return &ValidationError{Field: "SessionConfig.TimeMultiplier", Value: c.SessionConfig.TimeMultiplier, Message: "must be positive"}
	}
	switch c.StorageConfig.Driver {
	case "sqlite", "postgres":
	default:
		return &ValidationError{Field: "StorageConfig.Driver", Value: c.StorageConfig.Driver, Message: "must be sqlite or postgres"}
	}
	return nil
}

// FlightParams converts the planet and flight sections into simulation
// constants.
func (c *GameConfig) FlightParams() flight.Params {
	p := flight.DefaultParams()
	p.Planet = physics.Planet{
		Radius:           c.PlanetConfig.Radius,
		AtmosphereHeight: c.PlanetConfig.AtmosphereHeight,
		Gravity:          c.PlanetConfig.Gravity,
		DragCoefficient:  c.PlanetConfig.DragCoefficient,
		CrossSection:     c.PlanetConfig.CrossSection,
	}
	fc := c.FlightConfig
	p.SteerMultiplier = fc.SteerMultiplier
	p.StageControlCost = fc.StageControlCost
	p.BurnRate = fc.BurnRate
	p.PathInterval = fc.PathInterval
	p.TrajectorySteps = fc.TrajectorySteps
	p.TrajectoryStep = fc.TrajectoryStep
	p.CrashSpeed = fc.CrashSpeed
	p.WreckChance = fc.WreckChance
	p.WindStrength = fc.WindStrength
	p.InitialZoom = fc.InitialZoom
	return p
}

func planetConfigFrom(name string, p physics.Planet) PlanetConfig {
	return PlanetConfig{
		Name:             name,
		Radius:           p.Radius,
		AtmosphereHeight: p.AtmosphereHeight,
		Gravity:          p.Gravity,
		DragCoefficient:  p.DragCoefficient,
		CrossSection:     p.CrossSection,
	}
}
