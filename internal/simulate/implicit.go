package simulate

import (
	"time"

	"housesim/internal/model"
	"housesim/internal/network"
)

// implicitStepper advances the network by a backward-Euler matrix solve:
// an N×N energy matrix over the lexicographically ordered nodes is assembled
// from the linear link couplings and solved directly for the post-step
// temperature vector, sidestepping the small-dt stability constraint of the
// explicit schemes.
//
// Boiler on/off state and transfer direction are frozen per step from the
// pre-step temperatures, making the one nonlinear link linear within the
// step. Constant-radiative (solar/internal gain) contributions enter as an
// additive forcing vector rather than being folded into the matrix.
type implicitStepper struct {
	tags  []model.ElementTag
	index map[model.ElementTag]int
}

type linkStamp struct {
	u, v int
	g    float64 // W/K, zero for constant-power links
	p    float64 // W into u, constant-power links only
	kind network.LinkKind
}

func (s *implicitStepper) step(net *network.Network, dtSec float64, at time.Time) (map[model.ElementTag]float64, float64, error) {
	s.ensureIndex(net)
	n := len(s.tags)

	stamps := make([]linkStamp, 0, len(net.Edges())*2)
	for _, e := range net.Edges() {
		u, v := net.Node(e.U), net.Node(e.V)
		iu, iv := s.index[e.U], s.index[e.V]
		for _, l := range e.Links() {
			st := linkStamp{u: iu, v: iv, kind: l.Kind}
			if l.Kind == network.Radiative {
				st.p = l.PowerW
			} else {
				st.g = l.Conductance(u, v)
			}
			stamps = append(stamps, st)
		}
	}

	// Assemble A·T' = b with rows scaled by thermal mass; boundary rows pin
	// the driven temperature.
	a := make([][]float64, n)
	b := make([]float64, n)
	for i, tag := range s.tags {
		a[i] = make([]float64, n)
		node := net.Node(tag)
		if node.Boundary() {
			a[i][i] = 1
			b[i] = node.TempC
			continue
		}
		a[i][i] = node.MassJ
		b[i] = node.MassJ * node.TempC
	}
	for _, st := range stamps {
		for _, side := range [2][2]int{{st.u, st.v}, {st.v, st.u}} {
			i, j := side[0], side[1]
			node := net.Node(s.tags[i])
			if node.Boundary() {
				continue
			}
			a[i][i] += dtSec * st.g
			a[i][j] -= dtSec * st.g
			if i == st.u {
				b[i] += dtSec * st.p
			} else {
				b[i] -= dtSec * st.p
			}
		}
	}

	solved, ok := solveDense(a, b)
	if !ok {
		return nil, 0, &ConservationError{Time: at, Imbalance: 0}
	}

	// Flow pass at the solved temperatures: backward Euler makes each finite
	// node's mass·ΔT exactly the sum of its incident flows, so accumulating
	// flows gives consistent per-node energies for boundary nodes too.
	var heatingJ float64
	for _, st := range stamps {
		var e float64
		if st.kind == network.Radiative {
			e = st.p * dtSec
		} else {
			e = st.g * (solved[st.v] - solved[st.u]) * dtSec
		}
		net.Node(s.tags[st.u]).EnergyJ += e
		net.Node(s.tags[st.v]).EnergyJ -= e
		if st.kind == network.BoilerRadiative {
			heatingJ += e
		}
	}

	energies := captureEnergies(net)
	for i, tag := range s.tags {
		node := net.Node(tag)
		if !node.Boundary() {
			node.TempC = solved[i]
		}
		node.EnergyJ = 0
	}
	return energies, heatingJ, nil
}

func (s *implicitStepper) ensureIndex(net *network.Network) {
	tags := net.Tags()
	if len(tags) == len(s.tags) {
		same := true
		for i, tag := range tags {
			if s.tags[i] != tag {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	s.tags = tags
	s.index = make(map[model.ElementTag]int, len(tags))
	for i, tag := range tags {
		s.index[tag] = i
	}
}

// solveDense solves a·x = b in place by Gaussian elimination with partial
// pivoting. Returns false for a singular system.
func solveDense(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if abs(a[row][col]) > abs(a[pivot][col]) {
				pivot = row
			}
		}
		if abs(a[pivot][col]) < 1e-300 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			if f == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
