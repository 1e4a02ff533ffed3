package render

import (
	"context"
	"sync"

	"github.com/opd-ai/go-rocketsim/pkg/engine"
	"github.com/opd-ai/go-rocketsim/pkg/network"
)

// Session is what a front end drives: a local game or a connection to a
// server.
type Session interface {
	// Command runs one session command.
	Command(ctx context.Context, cmd string) error
	// State returns the newest known state and whether there is one.
	State() (engine.GameState, bool)
}

type localSession struct {
	game *engine.Game
}

// Local wraps a game running in this process.
func Local(g *engine.Game) Session {
	return localSession{game: g}
}

func (s localSession) Command(ctx context.Context, cmd string) error {
	return s.game.HandleCommand(ctx, cmd)
}

func (s localSession) State() (engine.GameState, bool) {
	return s.game.Snapshot(), true
}

type remoteSession struct {
	client *network.GameClient

	mu     sync.Mutex
	latest *engine.GameState
}

// Remote wraps a connected network client. It consumes the client's
// state channel.
func Remote(c *network.GameClient) Session {
	return &remoteSession{client: c}
}

func (s *remoteSession) Command(ctx context.Context, cmd string) error {
	return s.client.SendCommand(ctx, cmd)
}

func (s *remoteSession) State() (engine.GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case st := <-s.client.States():
			if st != nil {
				s.latest = st
			}
			continue
		default:
		}
		break
	}
	if s.latest == nil {
		return engine.GameState{}, false
	}
	return *s.latest, true
}
