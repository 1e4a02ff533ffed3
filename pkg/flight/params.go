package flight

import "github.com/opd-ai/go-rocketsim/pkg/physics"

// Params holds the tuning constants of the simulation.
type Params struct {
	Planet physics.Planet `json:"planet"`

	SteerMultiplier  float64 `json:"steerMultiplier"`
	StageControlCost float64 `json:"stageControlCost"`
	BurnRate         float64 `json:"burnRate"`
	MinMass          float64 `json:"minMass"`

	PathInterval    float64 `json:"pathInterval"`
	TrajectorySteps int     `json:"trajectorySteps"`
	TrajectoryStep  float64 `json:"trajectoryStep"`

	CrashSpeed        float64 `json:"crashSpeed"`
	WreckChance       float64 `json:"wreckChance"`
	BounceFriction    float64 `json:"bounceFriction"`
	BounceRestitution float64 `json:"bounceRestitution"`
	WindStrength      float64 `json:"windStrength"`

	InitialZoom float64 `json:"initialZoom"`
	MinZoom     float64 `json:"minZoom"`
	MaxZoom     float64 `json:"maxZoom"`
}

// DefaultParams returns the stock simulation constants.
func DefaultParams() Params {
	return Params{
		Planet:            physics.DefaultPlanet(),
		SteerMultiplier:   3,
		StageControlCost:  10,
		BurnRate:          5,
		MinMass:           0.1,
		PathInterval:      2,
		TrajectorySteps:   15,
		TrajectoryStep:    8,
		CrashSpeed:        50,
		WreckChance:       0.7,
		BounceFriction:    0.9,
		BounceRestitution: 0.6,
		WindStrength:      12,
		InitialZoom:       5,
		MinZoom:           0.1,
		MaxZoom:           30,
	}
}
