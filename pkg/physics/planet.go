package physics

// Planet describes the single circular body flights launch from. Its
// center is the origin of the world frame.
type Planet struct {
	Radius           float64 `json:"radius"`
	AtmosphereHeight float64 `json:"atmosphereHeight"`
	Gravity          float64 `json:"gravity"`
	DragCoefficient  float64 `json:"dragCoefficient"`
	CrossSection     float64 `json:"crossSection"`
}

// DefaultPlanet returns the 600 km world with a 70 km atmosphere.
func DefaultPlanet() Planet {
	return Planet{
		Radius:           600000,
		AtmosphereHeight: 70000,
		Gravity:          9.8,
		DragCoefficient:  1.0 / 4000,
		CrossSection:     1,
	}
}

// Altitude returns the height of pos above the surface. It is negative
// below ground.
func (p Planet) Altitude(pos Vector2D) float64 {
	return pos.Length() - p.Radius
}

// InAtmosphere reports whether altitude lies inside the atmosphere band.
func (p Planet) InAtmosphere(altitude float64) bool {
	return altitude > 0 && altitude <= p.AtmosphereHeight
}

// Density returns the relative air density used for drag. It grows
// linearly with altitude inside the atmosphere.
func (p Planet) Density(altitude float64) float64 {
	if p.AtmosphereHeight == 0 {
		return 0
	}
	return altitude / p.AtmosphereHeight
}

// GravityAt returns the gravitational acceleration at planet angle theta
// (radians). It always points at the planet center.
func (p Planet) GravityAt(theta float64) Vector2D {
	return FromAngle(theta, -p.Gravity)
}

// Drag returns the quadratic drag force on a body moving at velocity
// through air at the given altitude. Each axis is resisted on its own.
func (p Planet) Drag(velocity Vector2D, altitude float64) Vector2D {
	k := 0.5 * p.Density(altitude) * p.DragCoefficient * p.CrossSection
	return velocity.Mul(velocity).Mul(velocity.Direction()).Scale(-k)
}

// SurfacePoint returns the point on the surface at angle theta.
func (p Planet) SurfacePoint(theta float64) Vector2D {
	return FromAngle(theta, p.Radius)
}
