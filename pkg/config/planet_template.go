package config

import (
	"fmt"
	"sort"
)

// PlanetTemplate is a named planet preset.
type PlanetTemplate struct {
	Name        string
	Description string
	Planet      PlanetConfig
}

var planetTemplates = map[string]PlanetTemplate{
	"kerbin": {
		Name:        "Kerbin",
		Description: "Home world with a thick atmosphere",
		Planet: PlanetConfig{
			Name: "Kerbin", Radius: 600000, AtmosphereHeight: 70000,
			Gravity: 9.8, DragCoefficient: 1.0 / 4000, CrossSection: 1,
		},
	},
	"mun": {
		Name:        "Mun",
		Description: "Airless moon with weak gravity",
		Planet: PlanetConfig{
			Name: "Mun", Radius: 200000, AtmosphereHeight: 0,
			Gravity: 1.63, DragCoefficient: 1.0 / 4000, CrossSection: 1,
		},
	},
	"duna": {
		Name:        "Duna",
		Description: "Small red world with thin air",
		Planet: PlanetConfig{
			Name: "Duna", Radius: 320000, AtmosphereHeight: 50000,
			Gravity: 2.94, DragCoefficient: 1.0 / 8000, CrossSection: 1,
		},
	},
}

// GetPlanetTemplate returns the named preset, or nil.
func GetPlanetTemplate(name string) *PlanetTemplate {
	t, ok := planetTemplates[name]
	if !ok {
		return nil
	}
	return &t
}

// ListPlanetTemplates returns the preset names, sorted.
func ListPlanetTemplates() []string {
	names := make([]string, 0, len(planetTemplates))
	for n := range planetTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyPlanetTemplate replaces the planet section of config.
func ApplyPlanetTemplate(config *GameConfig, name string) error {
	t := GetPlanetTemplate(name)
	if t == nil {
		return fmt.Errorf("unknown planet template %q", name)
	}
	config.PlanetConfig = t.Planet
	return nil
}
