package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the server reads.
const EnvPrefix = "ROCKETSIM"

// EnvironmentConfig holds deployment settings read from the environment.
type EnvironmentConfig struct {
	ServerAddr     string
	ServerPort     int
	HealthPort     int
	MaxClients     int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	UpdateRate     int
	TimeMultiplier float64

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         uint32
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails uint32

	// Resource Management Configuration
	MaxMemoryMB           int64
	MaxGoroutines         int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration

	StorageDriver string
	StorageDSN    string
	LogLevel      string
	GraylogAddr   string
}

// ValidationError reports an out-of-range setting.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_addr", "localhost")
	v.SetDefault("server_port", 4567)
	v.SetDefault("health_port", 8080)
	v.SetDefault("max_clients", 32)
	v.SetDefault("read_timeout", 30*time.Second)
	v.SetDefault("write_timeout", 30*time.Second)
	v.SetDefault("update_rate", 10)
	v.SetDefault("time_multiplier", 3.0)

	v.SetDefault("circuit_breaker_max_requests", 3)
	v.SetDefault("circuit_breaker_interval", 60*time.Second)
	v.SetDefault("circuit_breaker_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker_max_consecutive_fails", 5)

	v.SetDefault("max_memory_mb", 500)
	v.SetDefault("max_goroutines", 1000)
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("resource_check_interval", 10*time.Second)

	v.SetDefault("storage_driver", "")
	v.SetDefault("storage_dsn", "")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("graylog_addr", "")
	return v
}

// LoadConfigFromEnv reads and validates ROCKETSIM_* variables.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	v := newEnvViper()
	config := &EnvironmentConfig{
		ServerAddr:     v.GetString("server_addr"),
		ServerPort:     v.GetInt("server_port"),
		HealthPort:     v.GetInt("health_port"),
		MaxClients:     v.GetInt("max_clients"),
		ReadTimeout:    v.GetDuration("read_timeout"),
		WriteTimeout:   v.GetDuration("write_timeout"),
		UpdateRate:     v.GetInt("update_rate"),
		TimeMultiplier: v.GetFloat64("time_multiplier"),

		CircuitBreakerMaxRequests:         v.GetUint32("circuit_breaker_max_requests"),
		CircuitBreakerInterval:            v.GetDuration("circuit_breaker_interval"),
		CircuitBreakerTimeout:             v.GetDuration("circuit_breaker_timeout"),
		CircuitBreakerMaxConsecutiveFails: v.GetUint32("circuit_breaker_max_consecutive_fails"),

		MaxMemoryMB:           v.GetInt64("max_memory_mb"),
		MaxGoroutines:         v.GetInt("max_goroutines"),
		ShutdownTimeout:       v.GetDuration("shutdown_timeout"),
		ResourceCheckInterval: v.GetDuration("resource_check_interval"),

		StorageDriver: v.GetString("storage_driver"),
		StorageDSN:    v.GetString("storage_dsn"),
		LogLevel:      v.GetString("log_level"),
		GraylogAddr:   v.GetString("graylog_addr"),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateEnvironmentConfig(c *EnvironmentConfig) error {
	if c.ServerAddr == "" {
		return &ValidationError{Field: "ServerAddr", Value: c.ServerAddr, Message: "must not be empty"}
	}
	if c.ServerPort < 1024 || c.ServerPort > 65535 {
		return &ValidationError{Field: "ServerPort", Value: c.ServerPort, Message: "must be between 1024 and 65535"}
	}
	if c.HealthPort < 1024 || c.HealthPort > 65535 {
		return &ValidationError{Field: "HealthPort", Value: c.HealthPort, Message: "must be between 1024 and 65535"}
	}
	if c.MaxClients < 1 || c.MaxClients > 1000 {
		return &ValidationError{Field: "MaxClients", Value: c.MaxClients, Message: "must be between 1 and 1000"}
	}
	if c.ReadTimeout < time.Second || c.ReadTimeout > time.Minute {
		return &ValidationError{Field: "ReadTimeout", Value: c.ReadTimeout, Message: "must be between 1s and 1m"}
	}
	if c.WriteTimeout < time.Second || c.WriteTimeout > time.Minute {
		return &ValidationError{Field: "WriteTimeout", Value: c.WriteTimeout, Message: "must be between 1s and 1m"}
	}
	if c.UpdateRate < 1 || c.UpdateRate > 100 {
		return &ValidationError{Field: "UpdateRate", Value: c.UpdateRate, Message: "must be between 1 and 100"}
	}
	if c.TimeMultiplier <= 0 || c.TimeMultiplier > 100 {
		return &ValidationError{Field: "TimeMultiplier", Value: c.TimeMultiplier, Message: "must be in (0, 100]"}
	}
	if c.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: c.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	}
	if c.CircuitBreakerInterval < time.Second {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: c.CircuitBreakerInterval, Message: "must be at least 1s"}
	}
	if c.CircuitBreakerTimeout < time.Second {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: c.CircuitBreakerTimeout, Message: "must be at least 1s"}
	}
	if c.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: c.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	if c.MaxMemoryMB < 1 {
		return &ValidationError{Field: "MaxMemoryMB", Value: c.MaxMemoryMB, Message: "must be positive"}
	}
	if c.MaxGoroutines < 1 {
		return &ValidationError{Field: "MaxGoroutines", Value: c.MaxGoroutines, Message: "must be positive"}
	}
	switch c.StorageDriver {
	case "", "sqlite", "postgres":
	default:
		return &ValidationError{Field: "StorageDriver", Value: c.StorageDriver, Message: "must be sqlite or postgres"}
	}
	return nil
}

// ApplyEnvironmentOverrides folds ROCKETSIM_* variables into config.
func ApplyEnvironmentOverrides(config *GameConfig) error {
	env, err := LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}

	config.NetworkConfig.ServerAddress = fmt.Sprintf("%s:%d", env.ServerAddr, env.ServerPort)
	config.NetworkConfig.ServerPort = env.ServerPort
	config.NetworkConfig.HealthPort = env.HealthPort
	config.NetworkConfig.UpdateRate = env.UpdateRate
	config.MaxPilots = env.MaxClients
	config.SessionConfig.TimeMultiplier = env.TimeMultiplier

	if env.StorageDriver != "" {
		config.StorageConfig.Enabled = true
		config.StorageConfig.Driver = env.StorageDriver
		if env.StorageDSN != "" {
			config.StorageConfig.DSN = env.StorageDSN
		}
	}
	config.LoggingConfig.Level = env.LogLevel
	if env.GraylogAddr != "" {
		config.LoggingConfig.GraylogAddress = env.GraylogAddr
	}
	return nil
}
