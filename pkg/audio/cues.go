// Package audio plays short flight cues through the system speaker.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// DefaultSampleRate is the speaker rate used by NewCues.
const DefaultSampleRate = beep.SampleRate(44100)

// Cue is one flight sound.
type Cue int

const (
	CueLaunch Cue = iota
	CueStage
	CueSeparation
	CueCrash
)

func (c Cue) String() string {
	switch c {
	case CueLaunch:
		return "launch"
	case CueStage:
		return "stage"
	case CueSeparation:
		return "separation"
	case CueCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// cueEvents maps session events to the cue they trigger.
var cueEvents = map[event.Type]Cue{
	event.FlightStarted:   CueLaunch,
	event.StageActivated:  CueStage,
	event.StageSeparated:  CueSeparation,
	event.FlightDestroyed: CueCrash,
}

// Stream returns the finite sound of cue at rate.
func Stream(c Cue, rate beep.SampleRate) beep.Streamer {
	switch c {
	case CueLaunch:
		d := 600 * time.Millisecond
		rumble := newEnvelope(newOscillator(WaveNoise, 0, 0, d, rate), d, 200*time.Millisecond, 300*time.Millisecond, rate)
		sweep := newEnvelope(newOscillator(WaveSine, 80, 240, d, rate), d, 50*time.Millisecond, 300*time.Millisecond, rate)
		return beep.Mix(newVolume(rumble, 0.3), newVolume(sweep, 0.6))
	case CueStage:
		n1 := newEnvelope(newOscillator(WaveSquare, 660, 660, 60*time.Millisecond, rate), 60*time.Millisecond, 5*time.Millisecond, 30*time.Millisecond, rate)
		n2 := newEnvelope(newOscillator(WaveSquare, 880, 880, 90*time.Millisecond, rate), 90*time.Millisecond, 5*time.Millisecond, 60*time.Millisecond, rate)
		return newVolume(beep.Seq(n1, n2), 0.3)
	case CueSeparation:
		tone, err := generators.SineTone(rate, 330)
		if err != nil {
			return beep.Silence(rate.N(100 * time.Millisecond))
		}
		d := 100 * time.Millisecond
		return newVolume(newEnvelope(beep.Take(rate.N(d), tone), d, 2*time.Millisecond, 80*time.Millisecond, rate), 0.5)
	case CueCrash:
		d := 800 * time.Millisecond
		noise := newEnvelope(newOscillator(WaveNoise, 0, 0, d, rate), d, 5*time.Millisecond, 700*time.Millisecond, rate)
		thud := newEnvelope(newOscillator(WaveSine, 120, 40, d, rate), d, 5*time.Millisecond, 600*time.Millisecond, rate)
		return beep.Mix(newVolume(noise, 0.5), newVolume(thud, 0.7))
	default:
		return beep.Silence(0)
	}
}

// Cues plays a sound for flight events. Until Init succeeds every call is
// a no-op, so a machine without audio runs silently.
type Cues struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	rate        beep.SampleRate
	volume      float64
	initialized bool
	logger      *logging.Logger
	subs        []*event.Subscription
}

// Option configures Cues.
type Option func(*Cues)

// WithVolume sets the linear master volume, 1 being unchanged.
func WithVolume(v float64) Option {
	return func(c *Cues) { c.volume = v }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Cues) { c.logger = l }
}

// NewCues creates silent cues. Call Init to open the speaker.
func NewCues(opts ...Option) *Cues {
	c := &Cues{
		mixer:  &beep.Mixer{},
		rate:   DefaultSampleRate,
		volume: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// Init opens the speaker and starts the mixer. On error the cues stay
// silent.
func (c *Cues) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := speaker.Init(c.rate, c.rate.N(100*time.Millisecond)); err != nil {
		c.logger.Warn(context.Background(), "audio unavailable", "error", err.Error())
		return logging.WrapError(err, "failed to open speaker")
	}
	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Play starts cue on top of whatever is playing.
func (c *Cues) Play(cue Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	s := newVolume(Stream(cue, c.rate), c.volume)
	speaker.Lock()
	c.mixer.Add(s)
	speaker.Unlock()
}

// Playing returns the number of cues still sounding.
func (c *Cues) Playing() int {
	speaker.Lock()
	defer speaker.Unlock()
	return c.mixer.Len()
}

// Attach plays cues for the flight events published on bus.
func (c *Cues) Attach(bus *event.Bus) {
	for typ, cue := range cueEvents {
		sub := bus.Subscribe(typ, func(event.Event) { c.Play(cue) })
		c.mu.Lock()
		c.subs = append(c.subs, sub)
		c.mu.Unlock()
	}
}

// Close detaches from the bus and silences the mixer.
func (c *Cues) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	initialized := c.initialized
	c.initialized = false
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	if initialized {
		speaker.Lock()
		c.mixer.Clear()
		speaker.Unlock()
	}
}
