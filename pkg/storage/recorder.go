package storage

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// SampleSink receives every telemetry sample the recorder sees.
type SampleSink interface {
	WriteSample(rec *FlightRecord, sample *event.FlightEvent)
}

type flightKey struct {
	source   any
	flightID uint64
}

// Recorder turns session events into flight records. A nil store keeps
// records in memory and only feeds the sinks.
type Recorder struct {
	store     *Store
	sessionID string
	logger    *logging.Logger
	sinks     []SampleSink
	now       func() time.Time

	mu      sync.Mutex
	flights map[flightKey]*FlightRecord
	subs    []*event.Subscription
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSink adds a telemetry sink.
func WithSink(s SampleSink) RecorderOption {
	return func(r *Recorder) { r.sinks = append(r.sinks, s) }
}

// WithRecorderLogger sets the logger used for write failures.
func WithRecorderLogger(l *logging.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder tagging its flights with sessionID.
func NewRecorder(store *Store, sessionID string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:     store,
		sessionID: sessionID,
		now:       time.Now,
		flights:   make(map[flightKey]*FlightRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewLogger()
	}
	return r
}

// Attach subscribes the recorder to the flight events of bus.
func (r *Recorder) Attach(bus *event.Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range []event.Type{
		event.FlightStarted,
		event.TurnAdvanced,
		event.FlightDestroyed,
		event.StageActivated,
		event.StageSeparated,
	} {
		r.subs = append(r.subs, bus.Subscribe(t, r.handle))
	}
}

// Close unsubscribes and marks every open flight as ended.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		s.Cancel()
	}
	r.subs = nil
	ctx := context.Background()
	for k, rec := range r.flights {
		r.finish(ctx, rec)
		delete(r.flights, k)
	}
}

// Open returns the records of flights still in progress.
func (r *Recorder) Open() []FlightRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FlightRecord, 0, len(r.flights))
	for _, rec := range r.flights {
		out = append(out, *rec)
	}
	return out
}

func (r *Recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx := context.Background()

	switch ev := e.(type) {
	case *event.FlightEvent:
		key := flightKey{source: ev.GetSource(), flightID: ev.FlightID}
		switch ev.GetType() {
		case event.FlightStarted:
			r.start(ctx, key, ev)
		case event.TurnAdvanced:
			if rec, ok := r.flights[key]; ok {
				r.sample(ctx, rec, ev)
			}
		case event.FlightDestroyed:
			if rec, ok := r.flights[key]; ok {
				rec.Destroyed = true
				r.event(ctx, rec, ev.GetType(), map[string]any{
					"time":     ev.Time,
					"altitude": ev.Altitude,
					"speed":    ev.Speed,
				})
				r.finish(ctx, rec)
				delete(r.flights, key)
			}
		}
	case *event.StageEvent:
		key := flightKey{source: ev.GetSource(), flightID: ev.FlightID}
		if rec, ok := r.flights[key]; ok {
			r.event(ctx, rec, ev.GetType(), map[string]any{
				"index": ev.Index,
				"part":  ev.Part,
			})
		}
	}
}

func (r *Recorder) start(ctx context.Context, key flightKey, ev *event.FlightEvent) {
	// A new launch abandons any flight the same session still had open.
	for k, rec := range r.flights {
		if k.source == key.source {
			r.finish(ctx, rec)
			delete(r.flights, k)
		}
	}

	rec := &FlightRecord{
		SessionID: r.sessionID,
		FlightID:  ev.FlightID,
		Design:    ev.Design,
		StartedAt: r.now(),
	}
	if r.store != nil {
		if err := r.store.DB.WithContext(ctx).Create(rec).Error; err != nil {
			r.logger.Error(ctx, "failed to record flight", err, "flight", ev.FlightID)
		}
	}
	r.flights[key] = rec
}

func (r *Recorder) sample(ctx context.Context, rec *FlightRecord, ev *event.FlightEvent) {
	rec.Turns++
	rec.MaxAltitude = math.Max(rec.MaxAltitude, ev.Altitude)

	if r.store != nil {
		s := FlightSample{
			FlightRecordID: rec.ID,
			RecordedAt:     r.now(),
			Time:           ev.Time,
			Altitude:       ev.Altitude,
			Speed:          ev.Speed,
			Fuel:           ev.Fuel,
			Control:        ev.Control,
			Rotation:       ev.Rotation,
			Destroyed:      ev.Destroyed,
		}
		if err := r.store.DB.WithContext(ctx).Create(&s).Error; err != nil {
			r.logger.Error(ctx, "failed to record sample", err, "flight", rec.FlightID)
		}
		err := r.store.DB.WithContext(ctx).Model(rec).Updates(map[string]any{
			"turns":        rec.Turns,
			"max_altitude": rec.MaxAltitude,
		}).Error
		if err != nil {
			r.logger.Error(ctx, "failed to update flight", err, "flight", rec.FlightID)
		}
	}

	for _, sink := range r.sinks {
		sink.WriteSample(rec, ev)
	}
}

func (r *Recorder) event(ctx context.Context, rec *FlightRecord, t event.Type, payload map[string]any) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error(ctx, "failed to encode event", err, "type", string(t))
		return
	}
	row := FlightEventRecord{
		FlightRecordID: rec.ID,
		RecordedAt:     r.now(),
		Type:           string(t),
		Payload:        datatypes.JSON(data),
	}
	if err := r.store.DB.WithContext(ctx).Create(&row).Error; err != nil {
		r.logger.Error(ctx, "failed to record event", err, "type", string(t))
	}
}

func (r *Recorder) finish(ctx context.Context, rec *FlightRecord) {
	ended := r.now()
	rec.EndedAt = &ended
	if r.store == nil {
		return
	}
	err := r.store.DB.WithContext(ctx).Model(rec).Updates(map[string]any{
		"ended_at":  rec.EndedAt,
		"destroyed": rec.Destroyed,
	}).Error
	if err != nil {
		r.logger.Error(ctx, "failed to close flight", err, "flight", rec.FlightID)
	}
}
