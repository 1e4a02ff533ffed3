// pkg/network/protocol.go
package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-rocketsim/pkg/event"
)

// MessageType defines the type of network message
type MessageType byte

const (
	ConnectRequest MessageType = iota
	ConnectResponse
	DisconnectNotification
	GameStateUpdate
	CommandRequest
	CommandResponse
	PingRequest
	PingResponse
	EventNotice
)

var messageNames = [...]string{
	ConnectRequest:         "connect",
	ConnectResponse:        "connected",
	DisconnectNotification: "disconnect",
	GameStateUpdate:        "state",
	CommandRequest:         "command",
	CommandResponse:        "result",
	PingRequest:            "ping",
	PingResponse:           "pong",
	EventNotice:            "event",
}

// String returns the name used for the type in WebSocket envelopes.
func (t MessageType) String() string {
	if int(t) < len(messageNames) {
		return messageNames[t]
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// ParseMessageType is the inverse of MessageType.String.
func ParseMessageType(name string) (MessageType, error) {
	for i, n := range messageNames {
		if n == name {
			return MessageType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown message type %q", name)
}

// MaxPayloadSize is the largest payload a frame length can describe.
const MaxPayloadSize = math.MaxUint16

const headerSize = 3

// ErrMessageTooLarge is returned for payloads over MaxPayloadSize.
var ErrMessageTooLarge = errors.New("message too large")

// WriteMessage encodes msg as JSON and writes it as a single frame: one
// type byte, a big-endian uint16 payload length, then the payload.
func WriteMessage(w io.Writer, msgType MessageType, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	frame := make([]byte, headerSize+len(data))
	frame[0] = byte(msgType)
	binary.BigEndian.PutUint16(frame[1:headerSize], uint16(len(data)))
	copy(frame[headerSize:], data)

	_, err = w.Write(frame)
	return err
}

// ReadMessage reads one frame written by WriteMessage.
func ReadMessage(r io.Reader) (MessageType, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	data := make([]byte, binary.BigEndian.Uint16(header[1:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, err
	}
	return MessageType(header[0]), data, nil
}

// ConnectRequestData opens a session. Design optionally replaces the
// starting rocket.
type ConnectRequestData struct {
	PilotName string `json:"pilotName"`
	Design    string `json:"design,omitempty"`
}

// ConnectResponseData answers a ConnectRequest.
type ConnectResponseData struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	SessionID uint64 `json:"sessionId,omitempty"`
	PilotName string `json:"pilotName,omitempty"`
}

// CommandData carries one session command. Seq is echoed in the result.
type CommandData struct {
	Seq     uint64 `json:"seq"`
	Command string `json:"command"`
}

// CommandResult reports the outcome of a command.
type CommandResult struct {
	Seq   uint64 `json:"seq"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PingData is echoed back unchanged by the server.
type PingData struct {
	Sent time.Time `json:"sent"`
}

// Notice is the wire form of a session event.
type Notice struct {
	Type     event.Type `json:"type"`
	FlightID uint64     `json:"flightId,omitempty"`
	Design   string     `json:"design,omitempty"`
	Time     float64    `json:"time,omitempty"`
	Altitude float64    `json:"altitude,omitempty"`
	Index    int        `json:"index,omitempty"`
	Part     string     `json:"part,omitempty"`
	From     string     `json:"from,omitempty"`
	To       string     `json:"to,omitempty"`
	Cost     int        `json:"cost,omitempty"`
}

// noticeTypes are the session events forwarded to clients. Turn samples
// are left out since every state update carries them.
var noticeTypes = []event.Type{
	event.FlightStarted,
	event.FlightDestroyed,
	event.StageActivated,
	event.StageSeparated,
	event.ScreenChanged,
	event.PartUnlocked,
}

// NoticeFrom converts a session event to its wire form.
func NoticeFrom(e event.Event) (Notice, bool) {
	n := Notice{Type: e.GetType()}
	switch ev := e.(type) {
	case *event.FlightEvent:
		n.FlightID = ev.FlightID
		n.Design = ev.Design
		n.Time = ev.Time
		n.Altitude = ev.Altitude
	case *event.StageEvent:
		n.FlightID = ev.FlightID
		n.Index = ev.Index
		n.Part = ev.Part
	case *event.ScreenEvent:
		n.From = ev.From
		n.To = ev.To
	case *event.PartEvent:
		n.Part = ev.Part
		n.Cost = ev.Cost
	default:
		return Notice{}, false
	}
	return n, true
}

// transport is a message-oriented connection. Writes are safe for
// concurrent use; reads are not.
type transport interface {
	Read() (MessageType, []byte, error)
	Write(msgType MessageType, msg any) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// frameConn speaks the binary framing over a stream connection.
type frameConn struct {
	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newFrameConn(conn net.Conn, writeTimeout time.Duration) *frameConn {
	return &frameConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *frameConn) Read() (MessageType, []byte, error) {
	return ReadMessage(c.conn)
}

func (c *frameConn) Write(msgType MessageType, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return WriteMessage(c.conn, msgType, msg)
}

func (c *frameConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *frameConn) Close() error                      { return c.conn.Close() }

func (c *frameConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Envelope is the WebSocket form of a message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsConn carries one Envelope per WebSocket text message.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	conn.SetReadLimit(MaxPayloadSize + 1024)
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) Read() (MessageType, []byte, error) {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	msgType, err := ParseMessageType(env.Type)
	if err != nil {
		return 0, nil, err
	}
	if len(env.Data) == 0 {
		return msgType, []byte("null"), nil
	}
	return msgType, env.Data, nil
}

func (c *wsConn) Write(msgType MessageType, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	raw, err := json.Marshal(Envelope{Type: msgType.String(), Data: data})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *wsConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }
func (c *wsConn) Close() error                      { return c.conn.Close() }

func (c *wsConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
