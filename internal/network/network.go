package network

import (
	"errors"
	"fmt"
	"sort"

	"housesim/internal/model"
)

// ErrConfiguration marks a malformed network detected at build time.
var ErrConfiguration = errors.New("network configuration")

// Edge joins two nodes and carries up to one link per transfer family. The
// radiative slot holds any of the radiative kinds.
type Edge struct {
	U, V model.ElementTag

	Conductive *Link
	Convective *Link
	Radiative  *Link
}

// Links returns the non-nil links of the edge in a fixed order.
func (e *Edge) Links() []*Link {
	out := make([]*Link, 0, 3)
	if e.Conductive != nil {
		out = append(out, e.Conductive)
	}
	if e.Convective != nil {
		out = append(out, e.Convective)
	}
	if e.Radiative != nil {
		out = append(out, e.Radiative)
	}
	return out
}

// Network is one building's thermal circuit: a node set keyed by element tag
// and an ordered edge list. It is exclusively owned by whichever simulation
// is stepping it and is not safe for concurrent use.
type Network struct {
	nodes map[model.ElementTag]*Node
	edges []*Edge
}

func New() *Network {
	return &Network{nodes: make(map[model.ElementTag]*Node)}
}

// AddNode registers a node. Re-adding a tag replaces the previous node.
func (n *Network) AddNode(node *Node) {
	n.nodes[node.Tag] = node
}

// Node returns the node for a tag, or nil.
func (n *Network) Node(tag model.ElementTag) *Node {
	return n.nodes[tag]
}

// Tags returns all node tags in lexicographic order. Every index-sensitive
// consumer (the matrix formulation, frame recording) uses this order.
func (n *Network) Tags() []model.ElementTag {
	tags := make([]model.ElementTag, 0, len(n.nodes))
	for tag := range n.nodes {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Connect adds an edge between two existing nodes.
func (n *Network) Connect(e *Edge) error {
	if n.nodes[e.U] == nil || n.nodes[e.V] == nil {
		return fmt.Errorf("%w: edge %s-%s references unknown node", ErrConfiguration, e.U, e.V)
	}
	n.edges = append(n.edges, e)
	return nil
}

// Edges returns the edge list in insertion order.
func (n *Network) Edges() []*Edge {
	return n.edges
}

// SetBoundary drives a reservoir node's temperature. Finite-mass nodes are
// left alone.
func (n *Network) SetBoundary(tag model.ElementTag, tempC float64) {
	if node := n.nodes[tag]; node != nil && node.Boundary() {
		node.TempC = tempC
	}
}

// UpdateBoilers advances every boiler state machine from the thermostat
// reading.
func (n *Network) UpdateBoilers(thermostatC float64) {
	for _, e := range n.edges {
		if e.Radiative != nil {
			e.Radiative.UpdateBoiler(thermostatC)
		}
	}
}

// RefreshSolar recomputes the power of aperture-driven radiative links from
// the current solar irradiance.
func (n *Network) RefreshSolar(irradianceWm2 float64) {
	for _, e := range n.edges {
		l := e.Radiative
		if l != nil && l.Kind == Radiative && l.ApertureM2 > 0 {
			l.PowerW = l.BasePowerW + irradianceWm2*l.ApertureM2
		}
	}
}

// Clone deep-copies the network, including accumulators and boiler state.
// The midpoint integrator uses clones as disposable trial networks.
func (n *Network) Clone() *Network {
	out := New()
	for tag, node := range n.nodes {
		cp := *node
		out.nodes[tag] = &cp
	}
	out.edges = make([]*Edge, len(n.edges))
	for i, e := range n.edges {
		cp := Edge{U: e.U, V: e.V}
		if e.Conductive != nil {
			l := *e.Conductive
			cp.Conductive = &l
		}
		if e.Convective != nil {
			l := *e.Convective
			cp.Convective = &l
		}
		if e.Radiative != nil {
			l := *e.Radiative
			cp.Radiative = &l
		}
		out.edges[i] = &cp
	}
	return out
}

// Validate checks the structural invariants: positive coefficients and
// masses, boundary nodes present, and every finite-mass node reaching
// ExternalAir or Ground through conductive or convective links (no orphaned
// thermal mass).
func (n *Network) Validate() error {
	for tag, node := range n.nodes {
		if node.MassJ <= 0 {
			return fmt.Errorf("%w: node %s has non-positive thermal mass", ErrConfiguration, tag)
		}
	}
	if n.nodes[model.ExternalAir] == nil && n.nodes[model.Ground] == nil {
		return fmt.Errorf("%w: no boundary node (external air or ground)", ErrConfiguration)
	}

	for _, e := range n.edges {
		for _, l := range e.Links() {
			switch l.Kind {
			case Conductive:
				if l.UValue <= 0 || l.AreaM2 <= 0 {
					return fmt.Errorf("%w: edge %s-%s conductive link needs positive U and area", ErrConfiguration, e.U, e.V)
				}
			case ThermalRadiative, BoilerRadiative:
				if l.PowerW < 0 || l.RatedDeltaC <= 0 {
					return fmt.Errorf("%w: edge %s-%s %s link needs non-negative power and positive rated delta", ErrConfiguration, e.U, e.V, l.Kind)
				}
			case Convective:
				if l.ACH < 0 {
					return fmt.Errorf("%w: edge %s-%s convective link has negative ach", ErrConfiguration, e.U, e.V)
				}
				if n.nodes[e.U].Boundary() {
					return fmt.Errorf("%w: edge %s-%s convective link must have the air volume on the u side", ErrConfiguration, e.U, e.V)
				}
			}
		}
	}

	// Flood from the boundary nodes over conductive/convective edges; every
	// finite-mass node must be reached.
	reached := make(map[model.ElementTag]bool)
	var frontier []model.ElementTag
	for _, tag := range []model.ElementTag{model.ExternalAir, model.Ground} {
		if n.nodes[tag] != nil {
			reached[tag] = true
			frontier = append(frontier, tag)
		}
	}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, e := range n.edges {
			if e.Conductive == nil && e.Convective == nil {
				continue
			}
			var next model.ElementTag
			switch cur {
			case e.U:
				next = e.V
			case e.V:
				next = e.U
			default:
				continue
			}
			if !reached[next] {
				reached[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	for tag, node := range n.nodes {
		if node.Boundary() {
			continue
		}
		if !reached[tag] {
			return fmt.Errorf("%w: node %s has no conductive or convective path to a boundary", ErrConfiguration, tag)
		}
	}
	return nil
}
