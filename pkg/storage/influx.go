package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// Measurement is the InfluxDB measurement telemetry is written to.
const Measurement = "flight_telemetry"

// InfluxSink streams telemetry samples to InfluxDB through a non-blocking
// write API.
type InfluxSink struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	logger *logging.Logger
}

// NewInfluxSink connects to the configured server. It does not wait for
// the server to answer; use Ping for that.
func NewInfluxSink(cfg config.TelemetryConfig, logger *logging.Logger) (*InfluxSink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("telemetry requires url, org and bucket")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)
	s := &InfluxSink{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger: logger,
	}

	errorsCh := s.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			s.logger.Error(context.Background(), "error sending telemetry to InfluxDB", writeErr, "bucket", cfg.Bucket)
		}
	}()

	return s, nil
}

// WriteSample queues one point.
func (s *InfluxSink) WriteSample(rec *FlightRecord, sample *event.FlightEvent) {
	tags := map[string]string{
		"flight": strconv.FormatUint(sample.FlightID, 10),
		"design": rec.Design,
	}
	if rec.SessionID != "" {
		tags["session"] = rec.SessionID
	}
	fields := map[string]interface{}{
		"time":      sample.Time,
		"altitude":  sample.Altitude,
		"speed":     sample.Speed,
		"fuel":      sample.Fuel,
		"control":   sample.Control,
		"rotation":  sample.Rotation,
		"destroyed": sample.Destroyed,
	}
	s.writer.WritePoint(influxdb2.NewPoint(Measurement, tags, fields, rec.StartedAt.Add(secondsToDuration(sample.Time))))
}

// Flush sends queued points.
func (s *InfluxSink) Flush() {
	s.writer.Flush()
}

// Ping checks that the server is reachable.
func (s *InfluxSink) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("influxdb is not ready")
	}
	return nil
}

// Close flushes pending points and releases the client.
func (s *InfluxSink) Close() {
	s.writer.Flush()
	s.client.Close()
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
