// pkg/network/client.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/event"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
	"github.com/opd-ai/go-rocketsim/pkg/validation"
)

var (
	// ErrNotConnected is returned by calls that need a live session.
	ErrNotConnected = errors.New("not connected")
	// ErrRejected is returned when the server refuses a pilot.
	ErrRejected = errors.New("server rejected connection")
	// ErrCommandFailed wraps the server's reason for refusing a command.
	ErrCommandFailed = errors.New("command failed")
)

// GameClient handles network communication with the server
type GameClient struct {
	EventBus *event.Bus

	logger         *logging.Logger
	networkService *NetworkService

	mu                sync.Mutex
	conn              transport
	serverAddress     string
	pilotName         string
	design            string
	sessionID         uint64
	connected         bool
	closing           bool
	latency           time.Duration
	seq               uint64
	pending           map[uint64]chan CommandResult
	reconnectAttempts int

	receivedStates       chan *engine.GameState
	pingInterval         time.Duration
	reconnectDelay       time.Duration
	maxReconnectAttempts int

	ctx               context.Context
	cancel            context.CancelFunc
	connectionTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
}

// ClientOption configures a GameClient.
type ClientOption func(*GameClient)

// WithClientLogger sets the client logger.
func WithClientLogger(l *logging.Logger) ClientOption {
	return func(c *GameClient) { c.logger = l }
}

// WithNetworkService replaces the client's circuit breaker.
func WithNetworkService(ns *NetworkService) ClientOption {
	return func(c *GameClient) { c.networkService = ns }
}

// WithPingInterval sets how often latency is measured.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *GameClient) { c.pingInterval = d }
}

// WithReconnect sets the reconnect policy. Zero attempts disables it.
func WithReconnect(attempts int, delay time.Duration) ClientOption {
	return func(c *GameClient) {
		c.maxReconnectAttempts = attempts
		c.reconnectDelay = delay
	}
}

// WithLaunchDesign asks the server to start the session with design.
func WithLaunchDesign(design string) ClientOption {
	return func(c *GameClient) { c.design = design }
}

// NewGameClient creates a new game client
func NewGameClient(eventBus *event.Bus, opts ...ClientOption) *GameClient {
	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		envConfig = defaultEnvironment()
	}
	if eventBus == nil {
		eventBus = event.NewEventBus()
	}

	c := &GameClient{
		EventBus:             eventBus,
		pending:              make(map[uint64]chan CommandResult),
		receivedStates:       make(chan *engine.GameState, 10),
		pingInterval:         5 * time.Second,
		reconnectDelay:       3 * time.Second,
		maxReconnectAttempts: 5,
		connectionTimeout:    30 * time.Second,
		readTimeout:          envConfig.ReadTimeout,
		writeTimeout:         envConfig.WriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger()
	}
	if c.networkService == nil {
		c.networkService = NewNetworkService(envConfig, WithServiceLogger(c.logger))
	}
	return c
}

// Connect dials address and opens a session for pilotName. Addresses
// starting with ws:// or wss:// use the WebSocket transport.
func (c *GameClient) Connect(ctx context.Context, address, pilotName string) error {
	name, err := validation.ValidatePilotName(pilotName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupConnection()
	c.serverAddress = address
	c.pilotName = name
	c.closing = false

	dialCtx, cancel := context.WithTimeout(ctx, c.connectionTimeout)
	defer cancel()

	var tr transport
	err = c.networkService.ExecuteWithRetry(dialCtx, func() error {
		var derr error
		tr, derr = c.dial(dialCtx, address)
		return derr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	resp, err := c.performHandshake(tr, name)
	if err != nil {
		tr.Close()
		return err
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.conn = tr
	c.sessionID = resp.SessionID
	c.connected = true

	go c.messageLoop(c.ctx, tr)
	go c.pingLoop(c.ctx, tr)

	c.logger.Info(ctx, "Connected to server", "address", address, "pilot", name, "session", resp.SessionID)
	return nil
}

func (c *GameClient) dial(ctx context.Context, address string) (transport, error) {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
		if err != nil {
			return nil, fmt.Errorf("websocket dial failed: %w", err)
		}
		return newWSConn(conn, c.writeTimeout), nil
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newFrameConn(conn, c.writeTimeout), nil
}

// performHandshake sends a connect request and processes the server's response.
func (c *GameClient) performHandshake(tr transport, name string) (ConnectResponseData, error) {
	var resp ConnectResponseData
	if err := tr.Write(ConnectRequest, ConnectRequestData{PilotName: name, Design: c.design}); err != nil {
		return resp, fmt.Errorf("failed to send connect request: %w", err)
	}

	tr.SetReadDeadline(time.Now().Add(c.connectionTimeout))
	defer tr.SetReadDeadline(time.Time{})

	msgType, data, err := tr.Read()
	if err != nil {
		return resp, fmt.Errorf("failed to read connect response: %w", err)
	}
	if msgType != ConnectResponse {
		return resp, fmt.Errorf("unexpected response type: %s", msgType)
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("failed to parse connect response: %w", err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return resp, nil
}

// cleanupConnection closes the connection and fails pending commands.
// Must be called with the lock held.
func (c *GameClient) cleanupConnection() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for seq, ch := range c.pending {
		ch <- CommandResult{Seq: seq, Error: ErrNotConnected.Error()}
		delete(c.pending, seq)
	}
}

// Disconnect ends the session. The client does not reconnect afterwards.
func (c *GameClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	if !c.connected {
		return nil
	}
	c.conn.Write(DisconnectNotification, nil)
	c.cleanupConnection()
	return nil
}

// Connected reports whether a session is open.
func (c *GameClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionID returns the id the server assigned to this session.
func (c *GameClient) SessionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// PilotName returns the validated name used for the session.
func (c *GameClient) PilotName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pilotName
}

// CircuitState returns the state of the client's circuit breaker.
func (c *GameClient) CircuitState() gobreaker.State {
	return c.networkService.GetState()
}

// SendCommand sends one session command and waits for the server to
// apply it. Refused commands return an error wrapping ErrCommandFailed.
func (c *GameClient) SendCommand(ctx context.Context, command string) error {
	cmd, err := validation.ValidateCommand(command, engine.Verbs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.seq++
	seq := c.seq
	ch := make(chan CommandResult, 1)
	c.pending[seq] = ch
	tr := c.conn
	c.mu.Unlock()

	err = c.networkService.Execute(ctx, func() error {
		return tr.Write(CommandRequest, CommandData{Seq: seq, Command: cmd})
	})
	if err != nil {
		c.forget(seq)
		return fmt.Errorf("failed to send command: %w", err)
	}

	select {
	case res := <-ch:
		if !res.OK {
			return fmt.Errorf("%w: %s", ErrCommandFailed, res.Error)
		}
		return nil
	case <-ctx.Done():
		c.forget(seq)
		return ctx.Err()
	}
}

func (c *GameClient) forget(seq uint64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// GetLatency returns the last measured round trip to the server
func (c *GameClient) GetLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// States returns the channel of session snapshots. When the reader falls
// behind the oldest snapshot is dropped.
func (c *GameClient) States() <-chan *engine.GameState {
	return c.receivedStates
}

// messageLoop handles incoming messages from the server
func (c *GameClient) messageLoop(ctx context.Context, tr transport) {
	for {
		if c.readTimeout > 0 {
			tr.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		msgType, data, err := tr.Read()
		if err != nil {
			c.handleDisconnect(tr, err)
			return
		}

		switch msgType {
		case GameStateUpdate:
			c.handleGameStateUpdate(data)

		case CommandResponse:
			c.handleCommandResult(data)

		case EventNotice:
			c.handleEventNotice(data)

		case PingResponse:
			c.handlePingResponse(data)

		case DisconnectNotification:
			c.handleDisconnect(tr, errors.New("server closed the session"))
			return

		default:
			c.logger.Debug(ctx, "Ignoring message", "type", msgType.String())
		}
	}
}

// handleGameStateUpdate processes a game state update
func (c *GameClient) handleGameStateUpdate(data []byte) {
	var state engine.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return
	}

	for {
		select {
		case c.receivedStates <- &state:
			return
		default:
		}
		select {
		case <-c.receivedStates:
		default:
		}
	}
}

func (c *GameClient) handleCommandResult(data []byte) {
	var res CommandResult
	if err := json.Unmarshal(data, &res); err != nil {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[res.Seq]
	delete(c.pending, res.Seq)
	c.mu.Unlock()
	if ok {
		ch <- res
	}
}

func (c *GameClient) handleEventNotice(data []byte) {
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return
	}
	c.EventBus.Publish(&NoticeEvent{
		BaseEvent: event.BaseEvent{EventType: n.Type, Source: c},
		Notice:    n,
	})
}

// handlePingResponse processes a ping response
func (c *GameClient) handlePingResponse(data []byte) {
	var ping PingData
	if err := json.Unmarshal(data, &ping); err != nil {
		return
	}
	c.mu.Lock()
	c.latency = time.Since(ping.Sent)
	c.mu.Unlock()
}

// pingLoop periodically sends ping requests to the server
func (c *GameClient) pingLoop(ctx context.Context, tr transport) {
	if c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tr.Write(PingRequest, PingData{Sent: time.Now()}); err != nil {
				return
			}
		}
	}
}

// handleDisconnect handles the loss of tr. Losses of connections that
// were already replaced are ignored.
func (c *GameClient) handleDisconnect(tr transport, err error) {
	c.mu.Lock()
	if c.conn != tr || !c.connected {
		c.mu.Unlock()
		return
	}
	c.cleanupConnection()
	reconnect := !c.closing && c.maxReconnectAttempts > 0
	c.mu.Unlock()

	c.logger.Warn(context.Background(), "Disconnected from server", "error", err.Error())
	c.EventBus.Publish(&event.BaseEvent{EventType: ClientDisconnected, Source: c})

	if reconnect {
		go c.attemptReconnect()
	}
}

// attemptReconnect reopens the session with the stored address and name.
func (c *GameClient) attemptReconnect() {
	c.mu.Lock()
	address, name := c.serverAddress, c.pilotName
	c.reconnectAttempts = 0
	c.mu.Unlock()

	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		time.Sleep(c.reconnectDelay)

		c.mu.Lock()
		c.reconnectAttempts = attempt
		closing := c.closing
		c.mu.Unlock()
		if closing {
			return
		}

		if err := c.Connect(context.Background(), address, name); err == nil {
			c.EventBus.Publish(&event.BaseEvent{EventType: ClientReconnected, Source: c})
			return
		}
	}

	c.EventBus.Publish(&event.BaseEvent{EventType: ClientReconnectFailed, Source: c})
}

// Client event types
const (
	ClientDisconnected    event.Type = "client_disconnected"
	ClientReconnected     event.Type = "client_reconnected"
	ClientReconnectFailed event.Type = "client_reconnect_failed"
)

// NoticeEvent republishes a server-side session event on the client bus
// under the event's own type.
type NoticeEvent struct {
	event.BaseEvent
	Notice Notice
}
