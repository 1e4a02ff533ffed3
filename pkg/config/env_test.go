package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createValidConfig creates a valid EnvironmentConfig for testing
func createValidConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		ServerAddr:     "localhost",
		ServerPort:     4567,
		HealthPort:     8080,
		MaxClients:     32,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		UpdateRate:     10,
		TimeMultiplier: 3,
		// Circuit Breaker Configuration
		CircuitBreakerMaxRequests:         3,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             30 * time.Second,
		CircuitBreakerMaxConsecutiveFails: 5,
		// Resource Management Configuration
		MaxMemoryMB:           500,
		MaxGoroutines:         100,
		ShutdownTimeout:       30 * time.Second,
		ResourceCheckInterval: 10 * time.Second,
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		config, err := LoadConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, "localhost", config.ServerAddr)
		assert.Equal(t, 4567, config.ServerPort)
		assert.Equal(t, 32, config.MaxClients)
		assert.Equal(t, 30*time.Second, config.ReadTimeout)
		assert.Equal(t, 10, config.UpdateRate)
		assert.Equal(t, 3.0, config.TimeMultiplier)
		assert.Equal(t, uint32(5), config.CircuitBreakerMaxConsecutiveFails)
		assert.Equal(t, "INFO", config.LogLevel)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("ROCKETSIM_SERVER_ADDR", "192.168.1.100")
		t.Setenv("ROCKETSIM_SERVER_PORT", "8081")
		t.Setenv("ROCKETSIM_MAX_CLIENTS", "64")
		t.Setenv("ROCKETSIM_READ_TIMEOUT", "45s")
		t.Setenv("ROCKETSIM_WRITE_TIMEOUT", "50s")
		t.Setenv("ROCKETSIM_UPDATE_RATE", "30")
		t.Setenv("ROCKETSIM_TIME_MULTIPLIER", "6")
		t.Setenv("ROCKETSIM_STORAGE_DRIVER", "postgres")

		config, err := LoadConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, "192.168.1.100", config.ServerAddr)
		assert.Equal(t, 8081, config.ServerPort)
		assert.Equal(t, 64, config.MaxClients)
		assert.Equal(t, 45*time.Second, config.ReadTimeout)
		assert.Equal(t, 50*time.Second, config.WriteTimeout)
		assert.Equal(t, 30, config.UpdateRate)
		assert.Equal(t, 6.0, config.TimeMultiplier)
		assert.Equal(t, "postgres", config.StorageDriver)
	})

	t.Run("InvalidValue", func(t *testing.T) {
		t.Setenv("ROCKETSIM_SERVER_PORT", "80")

		_, err := LoadConfigFromEnv()
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "ServerPort", ve.Field)
	})
}

func TestValidateEnvironmentConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *EnvironmentConfig)
		errorField string
	}{
		{"ValidConfig", func(c *EnvironmentConfig) {}, ""},
		{"EmptyServerAddr", func(c *EnvironmentConfig) { c.ServerAddr = "" }, "ServerAddr"},
		{"ServerPortTooLow", func(c *EnvironmentConfig) { c.ServerPort = 1023 }, "ServerPort"},
		{"ServerPortTooHigh", func(c *EnvironmentConfig) { c.ServerPort = 65536 }, "ServerPort"},
		{"HealthPortTooLow", func(c *EnvironmentConfig) { c.HealthPort = 80 }, "HealthPort"},
		{"MaxClientsTooLow", func(c *EnvironmentConfig) { c.MaxClients = 0 }, "MaxClients"},
		{"MaxClientsTooHigh", func(c *EnvironmentConfig) { c.MaxClients = 1001 }, "MaxClients"},
		{"ReadTimeoutTooShort", func(c *EnvironmentConfig) { c.ReadTimeout = 500 * time.Millisecond }, "ReadTimeout"},
		{"ReadTimeoutTooLong", func(c *EnvironmentConfig) { c.ReadTimeout = 2 * time.Minute }, "ReadTimeout"},
		{"UpdateRateTooLow", func(c *EnvironmentConfig) { c.UpdateRate = 0 }, "UpdateRate"},
		{"UpdateRateTooHigh", func(c *EnvironmentConfig) { c.UpdateRate = 101 }, "UpdateRate"},
		{"TimeMultiplierZero", func(c *EnvironmentConfig) { c.TimeMultiplier = 0 }, "TimeMultiplier"},
		{"CircuitBreakerMaxRequestsTooLow", func(c *EnvironmentConfig) { c.CircuitBreakerMaxRequests = 0 }, "CircuitBreakerMaxRequests"},
		{"CircuitBreakerIntervalTooShort", func(c *EnvironmentConfig) { c.CircuitBreakerInterval = 500 * time.Millisecond }, "CircuitBreakerInterval"},
		{"UnknownStorageDriver", func(c *EnvironmentConfig) { c.StorageDriver = "mysql" }, "StorageDriver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createValidConfig()
			tt.mutate(c)
			err := validateEnvironmentConfig(c)

			if tt.errorField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.errorField, ve.Field)
			assert.Contains(t, ve.Error(), tt.errorField)
		})
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("ROCKETSIM_SERVER_ADDR", "testhost")
	t.Setenv("ROCKETSIM_SERVER_PORT", "9999")
	t.Setenv("ROCKETSIM_MAX_CLIENTS", "100")
	t.Setenv("ROCKETSIM_UPDATE_RATE", "50")
	t.Setenv("ROCKETSIM_STORAGE_DRIVER", "sqlite")
	t.Setenv("ROCKETSIM_STORAGE_DSN", "flights.db")
	t.Setenv("ROCKETSIM_GRAYLOG_ADDR", "graylog:12201")

	gameConfig := DefaultConfig()
	require.NoError(t, ApplyEnvironmentOverrides(gameConfig))

	assert.Equal(t, "testhost:9999", gameConfig.NetworkConfig.ServerAddress)
	assert.Equal(t, 9999, gameConfig.NetworkConfig.ServerPort)
	assert.Equal(t, 100, gameConfig.MaxPilots)
	assert.Equal(t, 50, gameConfig.NetworkConfig.UpdateRate)
	assert.True(t, gameConfig.StorageConfig.Enabled)
	assert.Equal(t, "flights.db", gameConfig.StorageConfig.DSN)
	assert.Equal(t, "graylog:12201", gameConfig.LoggingConfig.GraylogAddress)
}

func TestApplyEnvironmentOverrides_InvalidEnv(t *testing.T) {
	t.Setenv("ROCKETSIM_UPDATE_RATE", "1000")
	assert.Error(t, ApplyEnvironmentOverrides(DefaultConfig()))
}
