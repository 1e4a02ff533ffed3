// pkg/network/server.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/part"
	"github.com/opd-ai/go-rocketsim/pkg/resource"
	"github.com/opd-ai/go-rocketsim/pkg/storage"
	"github.com/opd-ai/go-rocketsim/pkg/validation"
)

// ErrServerFull is returned when every pilot slot is taken.
var ErrServerFull = errors.New("server full")

// GameServer hosts one simulator session per connected pilot and streams
// each session's state back to its pilot.
type GameServer struct {
	EventBus *event.Bus

	config       *config.GameConfig
	logger       *logging.Logger
	resources    *resource.Manager
	ownResources bool
	validator    *validation.MessageValidator
	ownValidator bool
	store        *storage.Store
	sinks        []storage.SampleSink

	listener     net.Listener
	sessions     map[uint64]*Session
	sessionsLock sync.RWMutex
	running      atomic.Bool
	nextID       atomic.Uint64
	updateRate   time.Duration
	maxClients   int
	readTimeout  time.Duration
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// Session is one pilot's connection and simulator.
type Session struct {
	ID          uint64
	PilotName   string
	Game        *engine.Game
	ConnectedAt time.Time

	conn      transport
	recorder  *storage.Recorder
	subs      []*event.Subscription
	lastInput atomic.Int64
}

// clientKey identifies the session to the rate limiter.
func (s *Session) clientKey() string {
	return strconv.FormatUint(s.ID, 10)
}

// LastInput returns when the pilot last sent a command.
func (s *Session) LastInput() time.Time {
	return time.Unix(0, s.lastInput.Load())
}

// SessionInfo describes a session for listings.
type SessionInfo struct {
	ID          uint64        `json:"id"`
	PilotName   string        `json:"pilotName"`
	RemoteAddr  string        `json:"remoteAddr"`
	ConnectedAt time.Time     `json:"connectedAt"`
	Screen      engine.Screen `json:"screen"`
	FlightID    uint64        `json:"flightId,omitempty"`
}

// ServerOption configures a GameServer.
type ServerOption func(*GameServer)

// WithServerLogger sets the server logger. Sessions log through it too.
func WithServerLogger(l *logging.Logger) ServerOption {
	return func(s *GameServer) { s.logger = l }
}

// WithResourceManager tracks connection goroutines with m instead of a
// manager owned by the server.
func WithResourceManager(m *resource.Manager) ServerOption {
	return func(s *GameServer) { s.resources = m }
}

// WithValidator replaces the default message validator.
func WithValidator(v *validation.MessageValidator) ServerOption {
	return func(s *GameServer) { s.validator = v }
}

// WithStore records every session's flights in store.
func WithStore(store *storage.Store) ServerOption {
	return func(s *GameServer) { s.store = store }
}

// WithSampleSink forwards every session's telemetry samples to sink.
func WithSampleSink(sink storage.SampleSink) ServerOption {
	return func(s *GameServer) { s.sinks = append(s.sinks, sink) }
}

// NewGameServer creates a server whose sessions are configured by cfg.
// A nil env falls back to the environment, then to defaults.
func NewGameServer(cfg *config.GameConfig, env *config.EnvironmentConfig, opts ...ServerOption) *GameServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if env == nil {
		var err error
		if env, err = config.LoadConfigFromEnv(); err != nil {
			env = defaultEnvironment()
		}
	}

	rate := cfg.NetworkConfig.UpdateRate
	if rate <= 0 {
		rate = 10
	}
	s := &GameServer{
		EventBus:     event.NewEventBus(),
		config:       cfg,
		sessions:     make(map[uint64]*Session),
		updateRate:   time.Second / time.Duration(rate),
		maxClients:   cfg.MaxPilots,
		readTimeout:  env.ReadTimeout,
		writeTimeout: env.WriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}
	if s.resources == nil {
		s.resources = resource.NewManager(env, resource.WithLogger(s.logger))
		s.ownResources = true
	}
	if s.validator == nil {
		s.validator = validation.NewMessageValidator()
		s.ownValidator = true
	}
	return s
}

func defaultEnvironment() *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		ReadTimeout:                       30 * time.Second,
		WriteTimeout:                      30 * time.Second,
		CircuitBreakerMaxRequests:         3,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             30 * time.Second,
		CircuitBreakerMaxConsecutiveFails: 5,
		MaxMemoryMB:                       500,
		MaxGoroutines:                     1000,
		ShutdownTimeout:                   30 * time.Second,
		ResourceCheckInterval:             10 * time.Second,
	}
}

// Start listens on address and begins accepting pilots.
func (s *GameServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.listener = listener
	s.running.Store(true)

	if s.ownResources {
		if err := s.resources.Start(); err != nil {
			s.logger.Warn(s.ctx, "Resource manager not started", "error", err.Error())
		}
	}
	if err := s.resources.Go(s.ctx, "accept", s.acceptConnections); err != nil {
		s.running.Store(false)
		listener.Close()
		return fmt.Errorf("failed to start accept loop: %w", err)
	}

	s.logger.Info(s.ctx, "Game server started", "address", listener.Addr().String(), "max_pilots", s.maxClients)
	return nil
}

// Stop disconnects every pilot and stops accepting new ones.
func (s *GameServer) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsLock.RLock()
	for _, sess := range s.sessions {
		sess.conn.Write(DisconnectNotification, nil)
		sess.conn.Close()
	}
	s.sessionsLock.RUnlock()

	if s.ownResources {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.resources.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "Resource shutdown incomplete", "error", err.Error())
		}
		cancel()
	}
	if s.ownValidator {
		s.validator.Close()
	}

	s.logger.Info(context.Background(), "Game server stopped")
}

// Running reports whether the server is accepting pilots.
func (s *GameServer) Running() bool {
	return s.running.Load()
}

// Addr returns the listener address, or "" before Start.
func (s *GameServer) Addr() string {
	if s.listener == nil || !s.running.Load() {
		return ""
	}
	return s.listener.Addr().String()
}

// SessionCount returns the number of connected pilots.
func (s *GameServer) SessionCount() int {
	s.sessionsLock.RLock()
	defer s.sessionsLock.RUnlock()
	return len(s.sessions)
}

// MaxSessions returns the pilot limit.
func (s *GameServer) MaxSessions() int {
	return s.maxClients
}

// Sessions lists the connected pilots.
func (s *GameServer) Sessions() []SessionInfo {
	s.sessionsLock.RLock()
	defer s.sessionsLock.RUnlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, SessionInfo{
			ID:          sess.ID,
			PilotName:   sess.PilotName,
			RemoteAddr:  sess.conn.RemoteAddr(),
			ConnectedAt: sess.ConnectedAt,
			Screen:      sess.Game.Screen(),
			FlightID:    sess.Game.FlightID(),
		})
	}
	return out
}

// Session returns the session with id.
func (s *GameServer) Session(id uint64) (*Session, bool) {
	s.sessionsLock.RLock()
	defer s.sessionsLock.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// acceptConnections accepts new client connections
func (s *GameServer) acceptConnections(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn(ctx, "Error accepting connection", "error", err.Error())
			continue
		}

		tr := newFrameConn(conn, s.writeTimeout)
		if err := s.resources.Go(ctx, "session", func(ctx context.Context) { s.serve(ctx, tr) }); err != nil {
			s.logger.Warn(ctx, "Rejecting connection", "remote", tr.RemoteAddr(), "error", err.Error())
			tr.Write(ConnectResponse, ConnectResponseData{Error: err.Error()})
			tr.Close()
		}
	}
}

// WebSocketHandler serves the same sessions as the TCP listener, with
// each message wrapped in a JSON Envelope.
func (s *GameServer) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.running.Load() {
			http.Error(w, "server not running", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug(r.Context(), "WebSocket upgrade failed", "error", err.Error())
			return
		}
		s.serve(s.ctx, newWSConn(conn, s.writeTimeout))
	})
}

// serve runs one connection from handshake to disconnect.
func (s *GameServer) serve(ctx context.Context, tr transport) {
	defer tr.Close()

	req, err := s.readConnectRequest(tr)
	if err != nil {
		s.logger.Debug(ctx, "Handshake failed", "remote", tr.RemoteAddr(), "error", err.Error())
		tr.Write(ConnectResponse, ConnectResponseData{Error: err.Error()})
		return
	}

	sess, err := s.openSession(tr, req)
	if err != nil {
		s.logger.Info(ctx, "Session refused", "remote", tr.RemoteAddr(), "pilot", req.PilotName, "error", err.Error())
		tr.Write(ConnectResponse, ConnectResponseData{Error: err.Error()})
		return
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer s.closeSession(sess)
	defer cancel()

	if err := tr.Write(ConnectResponse, ConnectResponseData{
		Success:   true,
		SessionID: sess.ID,
		PilotName: sess.PilotName,
	}); err != nil {
		return
	}
	s.pushState(sess)

	if err := s.resources.Go(sessCtx, "state-push", func(ctx context.Context) { s.pushStates(ctx, sess) }); err != nil {
		s.logger.Warn(sessCtx, "State updates disabled", "session", sess.ID, "error", err.Error())
	}
	s.handleClientMessages(sessCtx, sess)
}

func (s *GameServer) readConnectRequest(tr transport) (ConnectRequestData, error) {
	var req ConnectRequestData
	if s.readTimeout > 0 {
		tr.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	msgType, data, err := tr.Read()
	if err != nil {
		return req, fmt.Errorf("failed to read connect request: %w", err)
	}
	if msgType != ConnectRequest {
		return req, fmt.Errorf("expected connect request, got %s", msgType)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse connect request: %w", err)
	}
	name, err := validation.ValidatePilotName(req.PilotName)
	if err != nil {
		return req, err
	}
	req.PilotName = name
	return req, nil
}

// openSession creates and registers the pilot's simulator.
func (s *GameServer) openSession(tr transport, req ConnectRequestData) (*Session, error) {
	s.sessionsLock.Lock()
	full := s.maxClients > 0 && len(s.sessions) >= s.maxClients
	s.sessionsLock.Unlock()
	if full {
		return nil, ErrServerFull
	}

	game, err := engine.NewGame(s.config, engine.WithLogger(s.logger))
	if err != nil {
		return nil, logging.WrapError(err, "failed to create session")
	}
	if req.Design != "" {
		unlocked := game.Snapshot().UnlockedParts
		d, err := validation.ValidateDesign(req.Design, game.Catalog, func(k part.Key) bool {
			for _, u := range unlocked {
				if u == string(k) {
					return true
				}
			}
			return false
		})
		if err != nil {
			return nil, fmt.Errorf("invalid design: %w", err)
		}
		if err := game.SetDesign(d); err != nil {
			return nil, fmt.Errorf("invalid design: %w", err)
		}
	}

	sess := &Session{
		ID:          s.nextID.Add(1),
		PilotName:   req.PilotName,
		Game:        game,
		ConnectedAt: time.Now(),
		conn:        tr,
	}
	sess.lastInput.Store(sess.ConnectedAt.UnixNano())

	for _, t := range noticeTypes {
		sess.subs = append(sess.subs, game.EventBus.Subscribe(t, func(e event.Event) {
			if n, ok := NoticeFrom(e); ok {
				tr.Write(EventNotice, n)
			}
		}))
	}
	if s.store != nil || len(s.sinks) > 0 {
		opts := []storage.RecorderOption{storage.WithRecorderLogger(s.logger)}
		for _, sink := range s.sinks {
			opts = append(opts, storage.WithSink(sink))
		}
		sess.recorder = storage.NewRecorder(s.store, fmt.Sprintf("%s#%d", sess.PilotName, sess.ID), opts...)
		sess.recorder.Attach(game.EventBus)
	}

	s.sessionsLock.Lock()
	if s.maxClients > 0 && len(s.sessions) >= s.maxClients {
		s.sessionsLock.Unlock()
		s.releaseSession(sess)
		return nil, ErrServerFull
	}
	s.sessions[sess.ID] = sess
	s.sessionsLock.Unlock()

	game.Start()
	s.logger.Info(s.ctx, "Pilot joined", "session", sess.ID, "pilot", sess.PilotName, "remote", tr.RemoteAddr())
	s.EventBus.Publish(event.NewPilotEvent(event.PilotJoined, s, sess.ID, sess.PilotName))
	return sess, nil
}

// handleClientMessages processes messages from a connected pilot
func (s *GameServer) handleClientMessages(ctx context.Context, sess *Session) {
	for {
		if s.readTimeout > 0 {
			sess.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		msgType, data, err := sess.conn.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && s.running.Load() {
				s.logger.Debug(ctx, "Connection lost", "session", sess.ID, "error", err.Error())
			}
			return
		}

		if err := s.validator.ValidateMessage(data, sess.clientKey()); err != nil {
			s.logger.Warn(ctx, "Message rejected", "session", sess.ID, "type", msgType.String(), "error", err.Error())
			if msgType == CommandRequest {
				s.rejectCommand(ctx, sess, data, err)
			}
			continue
		}

		switch msgType {
		case CommandRequest:
			s.handleCommand(ctx, sess, data)

		case PingRequest:
			sess.conn.Write(PingResponse, json.RawMessage(data))

		case DisconnectNotification:
			s.logger.Debug(ctx, "Pilot disconnecting", "session", sess.ID)
			return

		default:
			s.logger.Debug(ctx, "Unknown message type", "session", sess.ID, "type", msgType.String())
		}
	}
}

// rejectCommand answers a command the validator refused, echoing its
// sequence number when the payload parses.
func (s *GameServer) rejectCommand(ctx context.Context, sess *Session, data []byte, reason error) {
	var req CommandData
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Debug(ctx, "Malformed command rejected", "session", sess.ID, "error", err.Error())
		sess.conn.Write(CommandResponse, CommandResult{Error: "malformed command: " + reason.Error()})
		return
	}
	sess.conn.Write(CommandResponse, CommandResult{Seq: req.Seq, Error: reason.Error()})
}

// handleCommand runs one pilot command against the session and answers
// with its result followed by the updated state.
func (s *GameServer) handleCommand(ctx context.Context, sess *Session, data []byte) {
	var req CommandData
	if err := json.Unmarshal(data, &req); err != nil {
		sess.conn.Write(CommandResponse, CommandResult{Error: "malformed command"})
		return
	}
	sess.lastInput.Store(time.Now().UnixNano())

	cmd, err := validation.ValidateCommand(req.Command, engine.Verbs)
	if err == nil {
		err = sess.Game.HandleCommand(ctx, cmd)
	}

	res := CommandResult{Seq: req.Seq, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	sess.conn.Write(CommandResponse, res)
	s.pushState(sess)
}

// pushStates streams snapshots at the configured update rate.
func (s *GameServer) pushStates(ctx context.Context, sess *Session) {
	ticker := time.NewTicker(s.updateRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pushState(sess); err != nil {
				return
			}
		}
	}
}

func (s *GameServer) pushState(sess *Session) error {
	state := sess.Game.Snapshot()
	if err := sess.conn.Write(GameStateUpdate, &state); err != nil {
		s.logger.Debug(s.ctx, "State update failed", "session", sess.ID, "error", err.Error())
		return err
	}
	return nil
}

// closeSession removes a session and ends its simulator.
func (s *GameServer) closeSession(sess *Session) {
	s.sessionsLock.Lock()
	delete(s.sessions, sess.ID)
	s.sessionsLock.Unlock()

	s.releaseSession(sess)
	s.validator.Forget(sess.clientKey())

	s.logger.Info(s.ctx, "Pilot left", "session", sess.ID, "pilot", sess.PilotName)
	s.EventBus.Publish(event.NewPilotEvent(event.PilotLeft, s, sess.ID, sess.PilotName))
}

func (s *GameServer) releaseSession(sess *Session) {
	sess.Game.Stop()
	for _, sub := range sess.subs {
		sub.Cancel()
	}
	if sess.recorder != nil {
		sess.recorder.Close()
	}
}
