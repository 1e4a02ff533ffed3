package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := Open(config.StorageConfig{
		Enabled: true,
		Driver:  DriverSQLite,
		DSN:     "file:" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, err := Open(config.StorageConfig{Enabled: false})
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("unknown_driver", func(t *testing.T) {
		_, err := Open(config.StorageConfig{Enabled: true, Driver: "oracle"})
		assert.Error(t, err)
	})

	t.Run("postgres_without_dsn", func(t *testing.T) {
		_, err := Open(config.StorageConfig{Enabled: true, Driver: DriverPostgres})
		assert.Error(t, err)
	})

	t.Run("sqlite_migrates", func(t *testing.T) {
		store := openTestStore(t)
		assert.Equal(t, DriverSQLite, store.Driver())
		require.NoError(t, store.Ping(context.Background()))
		for _, m := range Models() {
			assert.True(t, store.DB.Migrator().HasTable(m))
		}
	})
}

type captureSink struct {
	mu      sync.Mutex
	samples []float64
}

func (c *captureSink) WriteSample(_ *FlightRecord, s *event.FlightEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s.Altitude)
}

func TestRecorder_Events(t *testing.T) {
	store := openTestStore(t)
	bus := event.NewEventBus()
	sink := &captureSink{}
	rec := NewRecorder(store, "pilot-1", WithSink(sink), WithRecorderLogger(logging.Discard()))
	rec.Attach(bus)
	ctx := context.Background()
	src := &struct{ name string }{"session"}

	started := event.NewFlightEvent(event.FlightStarted, src, 1)
	started.Design = "pcmb"
	bus.Publish(started)
	bus.Publish(event.NewStageEvent(event.StageActivated, src, 1, 3, "b"))
	for i, alt := range []float64{10, 40, 25} {
		s := event.NewFlightEvent(event.TurnAdvanced, src, 1)
		s.Time = float64(i + 1)
		s.Altitude = alt
		bus.Publish(s)
	}
	// Events of unknown flights are ignored.
	bus.Publish(event.NewFlightEvent(event.TurnAdvanced, src, 99))

	require.Len(t, rec.Open(), 1)

	destroyed := event.NewFlightEvent(event.FlightDestroyed, src, 1)
	destroyed.Speed = 80
	bus.Publish(destroyed)
	assert.Empty(t, rec.Open())

	flights, err := store.Flights(ctx, 0)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	f := flights[0]
	assert.Equal(t, "pilot-1", f.SessionID)
	assert.Equal(t, "pcmb", f.Design)
	assert.Equal(t, 3, f.Turns)
	assert.InDelta(t, 40.0, f.MaxAltitude, 1e-9)
	assert.True(t, f.Destroyed)
	assert.NotNil(t, f.EndedAt)

	samples, err := store.Samples(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.InDelta(t, 1.0, samples[0].Time, 1e-9)
	assert.InDelta(t, 25.0, samples[2].Altitude, 1e-9)

	events, err := store.Events(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(event.StageActivated), events[0].Type)
	assert.Equal(t, string(event.FlightDestroyed), events[1].Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "b", payload["part"])

	assert.Equal(t, []float64{10, 40, 25}, sink.samples)
}

func TestRecorder_NewLaunchClosesPrevious(t *testing.T) {
	store := openTestStore(t)
	bus := event.NewEventBus()
	rec := NewRecorder(store, "pilot", WithRecorderLogger(logging.Discard()))
	rec.Attach(bus)
	src := &struct{}{}

	bus.Publish(event.NewFlightEvent(event.FlightStarted, src, 1))
	bus.Publish(event.NewFlightEvent(event.FlightStarted, src, 2))
	require.Len(t, rec.Open(), 1)
	assert.Equal(t, uint64(2), rec.Open()[0].FlightID)

	rec.Close()
	flights, err := store.Flights(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, flights, 2)
	for _, f := range flights {
		assert.NotNil(t, f.EndedAt, "flight %d", f.FlightID)
		assert.False(t, f.Destroyed)
	}

	// Detached recorders ignore further events.
	bus.Publish(event.NewFlightEvent(event.FlightStarted, src, 3))
	assert.Empty(t, rec.Open())
}

func TestRecorder_WithoutStore(t *testing.T) {
	bus := event.NewEventBus()
	sink := &captureSink{}
	rec := NewRecorder(nil, "", WithSink(sink), WithRecorderLogger(logging.Discard()))
	rec.Attach(bus)

	bus.Publish(event.NewFlightEvent(event.FlightStarted, nil, 1))
	s := event.NewFlightEvent(event.TurnAdvanced, nil, 1)
	s.Altitude = 7
	bus.Publish(s)

	assert.Equal(t, []float64{7}, sink.samples)
	assert.Equal(t, 1, rec.Open()[0].Turns)
}

func TestRecorder_RecordsGameSession(t *testing.T) {
	store := openTestStore(t)
	cfg := config.DefaultConfig()
	cfg.SessionConfig.Seed = 7
	g, err := engine.NewGame(cfg, engine.WithLogger(logging.Discard()))
	require.NoError(t, err)

	rec := NewRecorder(store, "local", WithRecorderLogger(logging.Discard()))
	rec.Attach(g.EventBus)
	ctx := context.Background()

	for _, cmd := range []string{"goto flight", "activate stage", "advance turn", "advance turn"} {
		require.NoError(t, g.HandleCommand(ctx, cmd), cmd)
	}
	rec.Close()

	flights, err := store.Flights(ctx, 1)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "pcmb", flights[0].Design)
	assert.Equal(t, 2, flights[0].Turns)

	samples, err := store.Samples(ctx, flights[0].ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Greater(t, samples[1].Altitude, samples[0].Altitude)
}

func TestInfluxSink(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, err := NewInfluxSink(config.TelemetryConfig{}, nil)
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, err := NewInfluxSink(config.TelemetryConfig{Enabled: true, URL: "http://localhost:8086"}, nil)
		assert.Error(t, err)
	})

	t.Run("writes_line_protocol", func(t *testing.T) {
		var (
			mu   sync.Mutex
			body strings.Builder
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ping":
				w.WriteHeader(http.StatusNoContent)
			case "/api/v2/write":
				data, _ := io.ReadAll(r.Body)
				mu.Lock()
				body.Write(data)
				mu.Unlock()
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		sink, err := NewInfluxSink(config.TelemetryConfig{
			Enabled: true,
			URL:     srv.URL,
			Token:   "test",
			Org:     "rocketsim",
			Bucket:  "flights",
		}, logging.Discard())
		require.NoError(t, err)
		defer sink.Close()

		require.NoError(t, sink.Ping(context.Background()))

		rec := &FlightRecord{FlightID: 4, Design: "pcmb", StartedAt: time.Unix(1700000000, 0)}
		s := event.NewFlightEvent(event.TurnAdvanced, nil, 4)
		s.Altitude = 123.5
		sink.WriteSample(rec, s)
		sink.Flush()

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return strings.Contains(body.String(), Measurement+",design=pcmb,flight=4")
		}, 2*time.Second, 10*time.Millisecond)
		mu.Lock()
		assert.Contains(t, body.String(), "altitude=123.5")
		mu.Unlock()
	})
}
