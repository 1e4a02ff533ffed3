package engine

import (
	"slices"

	"github.com/opd-ai/go-rocketsim/pkg/flight"
	"github.com/opd-ai/go-rocketsim/pkg/vab"
)

// GameState is a point-in-time copy of a session, safe to serialize and
// hand to renderers or remote clients.
type GameState struct {
	Screen               Screen         `json:"screen"`
	Buildings            []Building     `json:"buildings"`
	SelectedBuilding     int            `json:"selectedBuilding"`
	ResearchPoints       int            `json:"researchPoints"`
	UnlockedParts        []string       `json:"unlockedParts"`
	SelectedResearchPart string         `json:"selectedResearchPart"`
	Design               string         `json:"design"`
	PickedPart           string         `json:"pickedPart,omitempty"`
	SelectedRow          int            `json:"selectedRow"`
	Summary              vab.Summary    `json:"summary"`
	Flight               *flight.Flight `json:"flight,omitempty"`
	FlightID             uint64         `json:"flightId,omitempty"`
	Turns                uint64         `json:"turns"`
	AutoAdvancing        bool           `json:"autoAdvancing"`
	TimeMultiplier       float64        `json:"timeMultiplier"`
}

// Snapshot copies the session state.
func (g *Game) Snapshot() GameState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := GameState{
		Screen:           g.screen,
		Buildings:        slices.Clone(Buildings),
		SelectedBuilding: g.selectedBuilding,
		ResearchPoints:   g.researchPoints,
		Design:           g.builder.Design().String(),
		PickedPart:       string(g.builder.Picked()),
		SelectedRow:      g.builder.SelectedRow(),
		Summary:          g.builder.Summary(),
		FlightID:         g.flightID,
		Turns:            g.turns,
		AutoAdvancing:    g.autoCancel != nil,
		TimeMultiplier:   g.timeMultiplier,
	}
	for _, k := range g.builder.Unlocked() {
		st.UnlockedParts = append(st.UnlockedParts, string(k))
	}
	if keys := g.Catalog.Keys(); g.selectedResearchPart < len(keys) {
		st.SelectedResearchPart = string(keys[g.selectedResearchPart])
	}
	if g.flight != nil {
		fc := *g.flight
		fc.Computed.Trajectory = slices.Clone(g.flight.Computed.Trajectory)
		st.Flight = &fc
	}
	return st
}
