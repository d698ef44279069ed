package network

import (
	"math"

	"housesim/internal/model"
)

// Node is one lumped thermal mass in the heat network.
//
// MassJ is the thermal capacity in J/K. A node with MassJ = +Inf is a
// boundary reservoir: its temperature is driven externally and never updated
// from the accumulator. EnergyJ accumulates the signed sum of all incident
// link transfers within the current step and is reset after every
// temperature update.
type Node struct {
	Tag     model.ElementTag
	TempC   float64
	MassJ   float64
	EnergyJ float64
}

// Boundary reports whether the node is an infinite-mass reservoir.
func (n *Node) Boundary() bool {
	return math.IsInf(n.MassJ, 1)
}

// ApplyUpdate folds the accumulated energy into the temperature and resets
// the accumulator. Boundary nodes keep their externally driven temperature.
func (n *Node) ApplyUpdate() {
	if !n.Boundary() {
		n.TempC += n.EnergyJ / n.MassJ
	}
	n.EnergyJ = 0
}
