package network

import (
	"fmt"
	"math"

	"housesim/internal/model"
)

// Params describes the parametric cuboid dwelling. Areas and masses scale
// linearly with ScaleFactor; 1.0 is the base envelope below.
type Params struct {
	ScaleFactor float64
	ACH         float64
	UValue      float64 // W/m²K, applied to the whole envelope
	BoilerW     float64
	SetpointC   float64
}

// FromResult converts a calibrated parameter set into builder params.
func FromResult(r model.ThermalModelResult) Params {
	return Params{
		ScaleFactor: r.ScaleFactor,
		ACH:         r.ACH,
		UValue:      r.UValue,
		BoilerW:     r.BoilerW,
		SetpointC:   r.SetpointC,
	}
}

// Base cuboid: 8 m × 6 m footprint, 2.5 m storey.
const (
	baseWidthM  = 8.0
	baseDepthM  = 6.0
	baseHeightM = 2.5

	baseWindowSouthM2 = 4.0
	baseWindowNorthM2 = 2.0

	// Volumetric heat capacity of air, J/m³K (1.225 kg/m³ × 1005 J/kgK).
	airHeatCapacity = 1231.0

	// Areal heat capacities, J/m²K.
	wallHeatCapacity   = 30000.0
	roofHeatCapacity   = 20000.0
	floorHeatCapacity  = 50000.0
	windowHeatCapacity = 10000.0

	// Hydronic loop: water content plus emitter metal, J/K at scale 1.
	heatingSystemMassJ = 250000.0

	// Emitter shell loses a little heat to the room conductively even when
	// the loop is cold; this also keeps the heating system grounded to a
	// boundary through the fabric.
	emitterShellU      = 5.0
	emitterShellAreaM2 = 2.0

	solarTransmittance = 0.7
	internalGainsW     = 200.0

	// Boundary temperatures.
	GroundTempC     = 10.0
	FlowTempC       = 70.0
	emitterRatedDel = 20.0
)

type envelopeElement struct {
	tag      model.ElementTag
	areaM2   float64
	capacity float64 // J/m²K
}

func baseEnvelope() []envelopeElement {
	wallNS := baseWidthM * baseHeightM
	wallEW := baseDepthM * baseHeightM
	floor := baseWidthM * baseDepthM
	return []envelopeElement{
		{model.WallNorth, wallNS - baseWindowNorthM2, wallHeatCapacity},
		{model.WallSouth, wallNS - baseWindowSouthM2, wallHeatCapacity},
		{model.WallEast, wallEW, wallHeatCapacity},
		{model.WallWest, wallEW, wallHeatCapacity},
		{model.WindowNorth, baseWindowNorthM2, windowHeatCapacity},
		{model.WindowSouth, baseWindowSouthM2, windowHeatCapacity},
		{model.Roof, floor, roofHeatCapacity},
		{model.Floor, floor, floorHeatCapacity},
	}
}

// BuildParametric assembles the cuboid network: each envelope element is a
// finite-mass node bridged by two conductive half-links (outside face to the
// boundary, inside face to the room air), ventilation is a convective link,
// solar and internal gains feed the room from the heat-source reservoir, and
// the boiler charges the hydronic loop which radiates into the room.
func BuildParametric(p Params) (*Network, error) {
	if p.ScaleFactor <= 0 {
		return nil, fmt.Errorf("%w: scale factor must be positive, got %g", ErrConfiguration, p.ScaleFactor)
	}
	if p.UValue <= 0 {
		return nil, fmt.Errorf("%w: u-value must be positive, got %g", ErrConfiguration, p.UValue)
	}
	if p.ACH < 0 || p.BoilerW < 0 {
		return nil, fmt.Errorf("%w: ach and boiler power must be non-negative", ErrConfiguration)
	}

	n := New()
	volume := baseWidthM * baseDepthM * baseHeightM * p.ScaleFactor
	airMass := volume * airHeatCapacity

	n.AddNode(&Node{Tag: model.InternalAir, TempC: p.SetpointC, MassJ: airMass})
	n.AddNode(&Node{Tag: model.HeatingSystem, TempC: 35, MassJ: heatingSystemMassJ * p.ScaleFactor})
	n.AddNode(&Node{Tag: model.ExternalAir, TempC: 10, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.Ground, TempC: GroundTempC, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.HeatSource, TempC: FlowTempC, MassJ: math.Inf(1)})

	for _, el := range baseEnvelope() {
		area := el.areaM2 * p.ScaleFactor
		n.AddNode(&Node{Tag: el.tag, TempC: 15, MassJ: area * el.capacity})

		outer := model.ExternalAir
		if el.tag == model.Floor {
			outer = model.Ground
		}
		// Two series half-links so the element node sits mid-fabric; each
		// half carries twice the element U to preserve the overall value.
		if err := n.Connect(&Edge{U: el.tag, V: outer,
			Conductive: &Link{Kind: Conductive, UValue: 2 * p.UValue, AreaM2: area}}); err != nil {
			return nil, err
		}
		if err := n.Connect(&Edge{U: el.tag, V: model.InternalAir,
			Conductive: &Link{Kind: Conductive, UValue: 2 * p.UValue, AreaM2: area}}); err != nil {
			return nil, err
		}
	}

	// Ventilation air exchange.
	if err := n.Connect(&Edge{U: model.InternalAir, V: model.ExternalAir,
		Convective: &Link{Kind: Convective, ACH: p.ACH}}); err != nil {
		return nil, err
	}

	// Solar aperture plus steady internal gains, injected from the reservoir.
	aperture := (baseWindowSouthM2 + baseWindowNorthM2) * p.ScaleFactor * solarTransmittance
	if err := n.Connect(&Edge{U: model.InternalAir, V: model.HeatSource,
		Radiative: &Link{Kind: Radiative, BasePowerW: internalGainsW * p.ScaleFactor, ApertureM2: aperture}}); err != nil {
		return nil, err
	}

	// Boiler charges the loop; the loop radiates into the room.
	if err := n.Connect(&Edge{U: model.HeatingSystem, V: model.HeatSource,
		Radiative: &Link{Kind: BoilerRadiative, PowerW: p.BoilerW, RatedDeltaC: emitterRatedDel, SetpointC: p.SetpointC}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.InternalAir, V: model.HeatingSystem,
		Radiative: &Link{Kind: ThermalRadiative, PowerW: p.BoilerW, RatedDeltaC: emitterRatedDel}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.HeatingSystem, V: model.InternalAir,
		Conductive: &Link{Kind: Conductive, UValue: emitterShellU, AreaM2: emitterShellAreaM2 * p.ScaleFactor}}); err != nil {
		return nil, err
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// SurveyElement is one measured envelope component from a building survey.
type SurveyElement struct {
	Tag    model.ElementTag `json:"tag"`
	AreaM2 float64          `json:"area_m2"`
	UValue float64          `json:"u_value"`
	// Capacity is the areal heat capacity in J/m²K; zero selects a default
	// by element tag.
	Capacity float64 `json:"capacity,omitempty"`
}

// BuildSurveyed assembles a network from measured element areas and U-values.
// Ventilation, gains, and the heating loop follow the parametric layout.
func BuildSurveyed(elements []SurveyElement, ach, boilerW, setpointC float64) (*Network, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: survey has no elements", ErrConfiguration)
	}

	n := New()
	var floorArea float64
	for _, el := range elements {
		if el.Tag == model.Floor {
			floorArea += el.AreaM2
		}
	}
	if floorArea == 0 {
		return nil, fmt.Errorf("%w: survey has no floor element", ErrConfiguration)
	}
	airMass := floorArea * baseHeightM * airHeatCapacity

	n.AddNode(&Node{Tag: model.InternalAir, TempC: setpointC, MassJ: airMass})
	n.AddNode(&Node{Tag: model.HeatingSystem, TempC: 35, MassJ: heatingSystemMassJ})
	n.AddNode(&Node{Tag: model.ExternalAir, TempC: 10, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.Ground, TempC: GroundTempC, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.HeatSource, TempC: FlowTempC, MassJ: math.Inf(1)})

	var aperture float64
	for _, el := range elements {
		if el.AreaM2 <= 0 || el.UValue <= 0 {
			return nil, fmt.Errorf("%w: survey element %s needs positive area and u-value", ErrConfiguration, el.Tag)
		}
		capacity := el.Capacity
		if capacity == 0 {
			capacity = defaultCapacity(el.Tag)
		}
		n.AddNode(&Node{Tag: el.Tag, TempC: 15, MassJ: el.AreaM2 * capacity})

		outer := model.ExternalAir
		if el.Tag == model.Floor {
			outer = model.Ground
		}
		if err := n.Connect(&Edge{U: el.Tag, V: outer,
			Conductive: &Link{Kind: Conductive, UValue: 2 * el.UValue, AreaM2: el.AreaM2}}); err != nil {
			return nil, err
		}
		if err := n.Connect(&Edge{U: el.Tag, V: model.InternalAir,
			Conductive: &Link{Kind: Conductive, UValue: 2 * el.UValue, AreaM2: el.AreaM2}}); err != nil {
			return nil, err
		}
		if isWindow(el.Tag) {
			aperture += el.AreaM2 * solarTransmittance
		}
	}

	if err := n.Connect(&Edge{U: model.InternalAir, V: model.ExternalAir,
		Convective: &Link{Kind: Convective, ACH: ach}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.InternalAir, V: model.HeatSource,
		Radiative: &Link{Kind: Radiative, BasePowerW: internalGainsW, ApertureM2: aperture}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.HeatingSystem, V: model.HeatSource,
		Radiative: &Link{Kind: BoilerRadiative, PowerW: boilerW, RatedDeltaC: emitterRatedDel, SetpointC: setpointC}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.InternalAir, V: model.HeatingSystem,
		Radiative: &Link{Kind: ThermalRadiative, PowerW: boilerW, RatedDeltaC: emitterRatedDel}}); err != nil {
		return nil, err
	}
	if err := n.Connect(&Edge{U: model.HeatingSystem, V: model.InternalAir,
		Conductive: &Link{Kind: Conductive, UValue: emitterShellU, AreaM2: emitterShellAreaM2}}); err != nil {
		return nil, err
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func defaultCapacity(tag model.ElementTag) float64 {
	switch tag {
	case model.Roof:
		return roofHeatCapacity
	case model.Floor:
		return floorHeatCapacity
	case model.WindowNorth, model.WindowSouth:
		return windowHeatCapacity
	default:
		return wallHeatCapacity
	}
}

func isWindow(tag model.ElementTag) bool {
	return tag == model.WindowNorth || tag == model.WindowSouth
}
