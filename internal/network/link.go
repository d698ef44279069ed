package network

// LinkKind enumerates the closed set of heat-transfer laws.
type LinkKind int

const (
	// Conductive transfers U·A·(Tv−Tu)·dt joules.
	Conductive LinkKind = iota
	// Radiative transfers a temperature-independent P·dt joules. Used for
	// solar and internal gains; the source side is always a boundary node.
	Radiative
	// ThermalRadiative transfers P·dt·(Tv−Tu)/ΔTrated joules, the
	// rated-power-at-rated-delta law of a hydronic emitter.
	ThermalRadiative
	// BoilerRadiative is ThermalRadiative gated by a thermostat with a
	// hysteresis dead-band, and never transfers against the gradient.
	BoilerRadiative
	// Convective transfers (ach·dt/3600)·MassU·(Tv−Tu) joules, modeling air
	// exchange with the u-side air volume.
	Convective
)

func (k LinkKind) String() string {
	switch k {
	case Conductive:
		return "conductive"
	case Radiative:
		return "radiative"
	case ThermalRadiative:
		return "thermal_radiative"
	case BoilerRadiative:
		return "boiler_radiative"
	case Convective:
		return "convective"
	}
	return "unknown"
}

// Link is one heat-transfer relation on an edge. Each kind uses only the
// fields it needs; the zero value of the rest is ignored.
type Link struct {
	Kind LinkKind

	// Conductive
	UValue float64 // W/m²K
	AreaM2 float64

	// Radiative family. PowerW is the current transfer rate; for links with
	// ApertureM2 > 0 the integrator refreshes PowerW from BasePowerW plus
	// aperture-collected solar irradiance each step.
	PowerW     float64
	BasePowerW float64
	ApertureM2 float64

	// ThermalRadiative / BoilerRadiative
	RatedDeltaC float64

	// BoilerRadiative thermostat state. On persists across steps.
	On        bool
	SetpointC float64

	// Convective
	ACH float64
}

// hysteresisBandC is the half-width of the thermostat dead-band.
const hysteresisBandC = 0.5

// UpdateBoiler advances the boiler state machine from the thermostat reading
// (the internal-air temperature of the previous completed step). Within the
// dead-band the state is left unchanged.
func (l *Link) UpdateBoiler(thermostatC float64) {
	if l.Kind != BoilerRadiative {
		return
	}
	switch {
	case !l.On && thermostatC < l.SetpointC-hysteresisBandC:
		l.On = true
	case l.On && thermostatC > l.SetpointC+hysteresisBandC:
		l.On = false
	}
}

// Step computes the energy transferred to u over dt seconds and mutates both
// accumulators by equal and opposite amounts. Positive return means u gained
// energy at v's expense.
func (l *Link) Step(u, v *Node, dt float64) float64 {
	e := l.energy(u, v, dt)
	u.EnergyJ += e
	v.EnergyJ -= e
	return e
}

// energy evaluates the transfer law without side effects.
func (l *Link) energy(u, v *Node, dt float64) float64 {
	switch l.Kind {
	case Conductive:
		return l.UValue * l.AreaM2 * (v.TempC - u.TempC) * dt
	case Radiative:
		return l.PowerW * dt
	case ThermalRadiative:
		return l.PowerW * dt * (v.TempC - u.TempC) / l.RatedDeltaC
	case BoilerRadiative:
		if !l.On {
			return 0
		}
		delta := v.TempC - u.TempC
		if delta < 0 {
			delta = 0
		}
		return l.PowerW * dt * delta / l.RatedDeltaC
	case Convective:
		return l.ACH * dt / 3600 * u.MassJ * (v.TempC - u.TempC)
	}
	return 0
}

// Conductance returns the link's linear coupling in W/K, used by the implicit
// matrix formulation. Radiative links have no temperature-scaled coupling and
// return 0; a boiler that is off (or pumping against the gradient, judged
// from the current temperatures) contributes nothing.
func (l *Link) Conductance(u, v *Node) float64 {
	switch l.Kind {
	case Conductive:
		return l.UValue * l.AreaM2
	case ThermalRadiative:
		return l.PowerW / l.RatedDeltaC
	case BoilerRadiative:
		if !l.On || v.TempC <= u.TempC {
			return 0
		}
		return l.PowerW / l.RatedDeltaC
	case Convective:
		return l.ACH * u.MassJ / 3600
	}
	return 0
}
