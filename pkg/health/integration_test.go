package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/network"
	"github.com/opd-ai/go-rocketsim/pkg/resource"
	"github.com/opd-ai/go-rocketsim/pkg/storage"
)

func integrationEnvironment() *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
		MaxMemoryMB:           100000,
		MaxGoroutines:         200,
		ShutdownTimeout:       2 * time.Second,
		ResourceCheckInterval: time.Second,
	}
}

// TestHealthCheckIntegration runs the probes against a real server.
func TestHealthCheckIntegration(t *testing.T) {
	gameConfig := config.DefaultConfig()
	gameConfig.MaxPilots = 2
	env := integrationEnvironment()

	resources := resource.NewManager(env, resource.WithLogger(logging.Discard()))
	server := network.NewGameServer(gameConfig, env,
		network.WithServerLogger(logging.Discard()),
		network.WithResourceManager(resources),
	)

	store, err := storage.Open(config.StorageConfig{
		Enabled: true,
		Driver:  storage.DriverSQLite,
		DSN:     "file:health_integration?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(NewSessionHealthCheck(server.Running, server.SessionCount, server.MaxSessions()))
	healthChecker.AddCheck(NewNetworkHealthCheck(server.Addr))
	healthChecker.AddCheck(NewPingHealthCheck("storage", store.Ping))
	healthChecker.AddCheck(resource.NewHealthCheck(resources))

	t.Run("health checks before server start", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		if health.Checks["sessions"].Status != "unhealthy" {
			t.Error("Sessions should be unhealthy before server start")
		}
		if health.Checks["network"].Status != "unhealthy" {
			t.Error("Network should be unhealthy before server start")
		}
		if health.Checks["storage"].Status != "healthy" {
			t.Errorf("Storage should be healthy, got: %s", health.Checks["storage"].Message)
		}
		if health.Status != "unhealthy" {
			t.Error("Overall status should be unhealthy before server start")
		}
	})

	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}
	defer server.Stop()

	t.Run("health checks after server start", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		for _, name := range []string{"sessions", "network", "storage", "resource"} {
			if health.Checks[name].Status != "healthy" {
				t.Errorf("%s should be healthy after server start, got: %s", name, health.Checks[name].Message)
			}
		}
		if health.Status != "healthy" {
			t.Errorf("Overall status should be healthy after server start, got: %s", health.Status)
		}
	})

	t.Run("full session table is not ready", func(t *testing.T) {
		for i := 0; i < gameConfig.MaxPilots; i++ {
			c := network.NewGameClient(nil,
				network.WithClientLogger(logging.Discard()),
				network.WithReconnect(0, 0),
			)
			if err := c.Connect(context.Background(), server.Addr(), fmt.Sprintf("Pilot%d", i)); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			defer c.Disconnect()
		}

		req := httptest.NewRequest("GET", "/health/ready", nil)
		w := httptest.NewRecorder()
		healthChecker.Mux().ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, w.Code)
		}

		var response HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response.Checks["sessions"].Status != "unhealthy" {
			t.Error("Sessions should be unhealthy with a full table")
		}
	})

	t.Run("liveness endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health/live", nil)
		w := httptest.NewRecorder()
		healthChecker.Mux().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
		}

		var response map[string]string
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response["status"] != "alive" {
			t.Errorf("Expected status 'alive', got %s", response["status"])
		}
	})
}

// TestHealthCheckWithFailures tests health check behavior when components fail
func TestHealthCheckWithFailures(t *testing.T) {
	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(&mockHealthCheck{
		name:    "failing_component",
		healthy: false,
		err:     fmt.Errorf("component is down"),
	})

	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()
	healthChecker.ReadinessHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var response HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got %s", response.Status)
	}
	if response.Checks["failing_component"].Message == "" {
		t.Error("Failing component should have an error message")
	}
}
