package network

import (
	"fmt"

	"housesim/internal/model"
)

// Improved material U-values installed by each intervention, W/m²K.
const (
	loftUValue     = 0.16
	claddingUValue = 0.30
	glazingUValue  = 1.40
)

// Air-tightness gains: cladding and double glazing both cut infiltration.
const (
	claddingACHFactor = 0.90
	glazingACHFactor  = 0.85
)

type interventionSpec struct {
	uValue    float64
	achFactor float64
	matches   func(tag model.ElementTag) bool
}

var interventionSpecs = map[model.Intervention]interventionSpec{
	model.InterventionLoft: {
		uValue:    loftUValue,
		achFactor: 1,
		matches:   func(tag model.ElementTag) bool { return tag == model.Roof },
	},
	model.InterventionCladding: {
		uValue:    claddingUValue,
		achFactor: claddingACHFactor,
		matches: func(tag model.ElementTag) bool {
			switch tag {
			case model.WallNorth, model.WallEast, model.WallSouth, model.WallWest:
				return true
			}
			return false
		},
	},
	model.InterventionDoubleGlazing: {
		uValue:    glazingUValue,
		achFactor: glazingACHFactor,
		matches:   isWindow,
	},
}

// envelopeFraction is each component's share of the base envelope area, used
// to recompose the aggregate U-value of a parametric result.
func envelopeFractions() (wall, window, roof, floor float64) {
	var total float64
	areas := make(map[model.ElementTag]float64)
	for _, el := range baseEnvelope() {
		areas[el.tag] = el.areaM2
		total += el.areaM2
	}
	wall = (areas[model.WallNorth] + areas[model.WallEast] + areas[model.WallSouth] + areas[model.WallWest]) / total
	window = (areas[model.WindowNorth] + areas[model.WindowSouth]) / total
	roof = areas[model.Roof] / total
	floor = areas[model.Floor] / total
	return
}

// ApplyInterventions returns a copy of a parametric result with its composite
// U-value and air-change rate rewritten for the given retrofits. The
// composite is recomposed through the aggregate resistance
// R = Σ(area fraction / component U); an intervention only displaces a
// component that is currently worse than its material, and the outcome is
// clamped so it never beats the all-improved minimum.
func ApplyInterventions(res model.ThermalModelResult, tags []model.Intervention) (model.ThermalModelResult, error) {
	out := res
	if len(tags) == 0 {
		return out, nil
	}

	wallU, windowU, roofU := res.UValue, res.UValue, res.UValue
	for _, tag := range tags {
		spec, ok := interventionSpecs[tag]
		if !ok {
			return out, fmt.Errorf("%w: unknown intervention %q", ErrConfiguration, tag)
		}
		switch tag {
		case model.InterventionLoft:
			roofU = min(roofU, spec.uValue)
		case model.InterventionCladding:
			wallU = min(wallU, spec.uValue)
		case model.InterventionDoubleGlazing:
			windowU = min(windowU, spec.uValue)
		}
		out.ACH *= spec.achFactor
	}

	wallF, windowF, roofF, floorF := envelopeFractions()
	composite := func(wu, wnu, ru float64) float64 {
		r := wallF/wu + windowF/wnu + roofF/ru + floorF/res.UValue
		return 1 / r
	}

	improved := composite(wallU, windowU, roofU)
	floor := composite(min(res.UValue, claddingUValue), min(res.UValue, glazingUValue), min(res.UValue, loftUValue))
	if improved < floor {
		improved = floor
	}
	if improved > res.UValue {
		improved = res.UValue
	}
	out.UValue = improved
	return out, nil
}

// ApplyToNetwork returns a retrofitted clone of a surveyed network: each
// intervention caps the U-value of its matching elements' fabric links at the
// improved material value, and the ventilation link's ach is scaled down for
// cladding and glazing. The input network is untouched.
func ApplyToNetwork(n *Network, tags []model.Intervention) (*Network, error) {
	out := n.Clone()
	for _, tag := range tags {
		spec, ok := interventionSpecs[tag]
		if !ok {
			return nil, fmt.Errorf("%w: unknown intervention %q", ErrConfiguration, tag)
		}
		for _, e := range out.edges {
			if e.Conductive != nil && (spec.matches(e.U) || spec.matches(e.V)) {
				// Fabric links carry 2× the element U (series halves).
				if e.Conductive.UValue > 2*spec.uValue {
					e.Conductive.UValue = 2 * spec.uValue
				}
			}
			if e.Convective != nil {
				e.Convective.ACH *= spec.achFactor
			}
		}
	}
	return out, nil
}
