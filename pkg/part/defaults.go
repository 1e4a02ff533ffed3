package part

// DefaultParts returns the stock parts available from the first launch.
func DefaultParts() []Part {
	return []Part{
		{
			Key:        "c",
			Name:       "Mk2 Command Capsule",
			Connectors: TopBottom,
			Mass:       2,
			Steering:   3,
			Control:    15,
			Complexity: 4,
			Polygon:    []float64{15, 0, 25, 0, 25, 10, 40, 36, 40, 40, 0, 40, 0, 36, 15, 10},
		},
		{
			Key:        "o",
			Name:       "Computotron",
			Connectors: TopBottom,
			Mass:       1,
			Control:    10,
			Complexity: 4,
			Polygon:    []float64{0, 0, 38, 0, 38, 20, 0, 20},
		},
		{
			Key:        "p",
			Name:       "Mk17 Parachute (Cosmetic)",
			Connectors: Bottom,
			Mass:       1,
			Complexity: 2,
			Polygon:    []float64{10, 0, 20, 20, 0, 20},
		},
		{
			Key:          "b",
			Name:         "RT-6 Solid Fuel Booster",
			Connectors:   Top,
			Mass:         4,
			DryMass:      2,
			Thrust:       230,
			FuelCapacity: 180,
			Complexity:   2,
			Polygon: []float64{
				0, 40, 0, 0, 40, 0, 40, 40,
				30, 40, 30, 50,
				25, 50, 35, 60,
				5, 60, 15, 50,
				10, 50, 10, 40,
			},
		},
		{
			Key:        "m",
			Name:       "Goo Demystifier Unit (Cosmetic)",
			Connectors: Sides,
			Mass:       2,
			Complexity: 4,
			Polygon:    []float64{0, 0, 40, 0, 40, 40, 0, 40},
		},
		{
			Key:        "f",
			Name:       "Aero Fin",
			Connectors: Sides,
			Mass:       2,
			Steering:   6,
			Complexity: 2,
			Polygon: []float64{
				10, 0, 30, 0,
				30, 6, 40, 28, 30, 26, 30, 30,
				10, 30, 10, 26, 0, 28, 10, 6,
			},
		},
		{
			Key:        "e",
			Name:       "Separator",
			Connectors: TopBottom,
			Mass:       1,
			Separates:  true,
			Complexity: 2,
			Polygon:    []float64{0, 0, 40, 0, 38, 10, 40, 20, 0, 20, 2, 10},
		},
	}
}

// DefaultCatalog returns a catalog of DefaultParts.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultParts())
	if err != nil {
		panic("part: invalid default catalog: " + err.Error())
	}
	return c
}
