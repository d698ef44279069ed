package simulate

import (
	"fmt"
	"math"
	"time"

	"housesim/internal/model"
	"housesim/internal/network"
	"housesim/internal/weather"
)

// Strategy selects the stepping scheme.
type Strategy string

const (
	// Explicit is a forward Euler step with a per-step conservation check.
	Explicit Strategy = "explicit"
	// Midpoint runs a trial Euler step on a disposable clone and applies the
	// average of the initial and trial energy changes.
	Midpoint Strategy = "midpoint"
	// Implicit assembles a backward-Euler energy matrix and solves for the
	// post-step temperature vector directly.
	Implicit Strategy = "implicit"
)

// ConservationError reports an energy-balance or numeric-stability failure
// during a step. A single forward simulation treats it as fatal; the
// calibration loop converts it into a bounded loss penalty.
type ConservationError struct {
	Time      time.Time
	Imbalance float64 // J, signed residual across all accumulators
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("energy conservation violated at %s: imbalance %.6g J",
		e.Time.Format(time.RFC3339), e.Imbalance)
}

// Conservation tolerance, relative to the gross energy moved in the step.
const conservationRelTol = 1e-9

// tempSanityC bounds plausible temperatures; beyond it the integration has
// blown up.
const tempSanityC = 1000.0

// Frame is the recorded state after one completed step.
type Frame struct {
	Time time.Time
	// TempC and EnergyJ are keyed by element tag; EnergyJ holds each node's
	// accumulated transfer for the step, captured before the reset.
	TempC    map[model.ElementTag]float64
	EnergyJ  map[model.ElementTag]float64
	HeatingJ float64
}

// InternalTempC is a convenience accessor for the room-air trace.
func (f Frame) InternalTempC() float64 {
	return f.TempC[model.InternalAir]
}

// Config drives one simulation run. The zero value is not usable: Start, End
// and Dt are required.
type Config struct {
	Start    time.Time
	End      time.Time
	Dt       time.Duration
	Strategy Strategy

	// GroundTempC drives the ground boundary; zero selects the default.
	GroundTempC float64

	// DHW optionally superimposes sampled hot-water draws on the heating
	// usage of each frame.
	DHW *DHWProfile

	// Callback, when set, observes every frame as it is produced.
	Callback func(Frame)
}

type stepper interface {
	// step advances the network by dtSec, fills a frame's energy map, and
	// returns the boiler energy delivered.
	step(net *network.Network, dtSec float64, at time.Time) (map[model.ElementTag]float64, float64, error)
}

// Run advances the network through [cfg.Start, cfg.End) at cfg.Dt, driving
// the boundary nodes from the weather series. Frames are timestamped at the
// start of each step, half-open at End. The network is mutated in place and
// must not be shared with another simulation.
func Run(net *network.Network, series weather.Series, cfg Config) ([]Frame, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("%w: timestep must be positive", network.ErrConfiguration)
	}
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("%w: empty simulation window", network.ErrConfiguration)
	}

	var st stepper
	switch cfg.Strategy {
	case Explicit, "":
		st = explicitStepper{}
	case Midpoint:
		st = midpointStepper{}
	case Implicit:
		st = &implicitStepper{}
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", network.ErrConfiguration, cfg.Strategy)
	}

	groundC := cfg.GroundTempC
	if groundC == 0 {
		groundC = network.GroundTempC
	}

	dtSec := cfg.Dt.Seconds()
	steps := int(cfg.End.Sub(cfg.Start) / cfg.Dt)
	if cfg.Start.Add(time.Duration(steps)*cfg.Dt).Before(cfg.End) {
		steps++
	}
	frames := make([]Frame, 0, steps)

	var thermostatC float64
	if room := net.Node(model.InternalAir); room != nil {
		thermostatC = room.TempC
	}
	prev := cfg.Start
	for t := cfg.Start; t.Before(cfg.End); t = t.Add(cfg.Dt) {
		cond := series.At(t)
		net.SetBoundary(model.ExternalAir, cond.TempC)
		net.SetBoundary(model.Ground, groundC)
		net.RefreshSolar(cond.SolarWm2)
		net.UpdateBoilers(thermostatC)

		energies, heatingJ, err := st.step(net, dtSec, t)
		if err != nil {
			return frames, err
		}

		temps := make(map[model.ElementTag]float64, len(energies))
		for _, tag := range net.Tags() {
			node := net.Node(tag)
			if !isFinite(node.TempC) || math.Abs(node.TempC) > tempSanityC {
				return frames, &ConservationError{Time: t, Imbalance: node.TempC}
			}
			temps[tag] = node.TempC
		}
		if cfg.DHW != nil {
			heatingJ += cfg.DHW.EnergyJ(prev, t.Add(cfg.Dt))
		}

		frame := Frame{Time: t, TempC: temps, EnergyJ: energies, HeatingJ: heatingJ}
		frames = append(frames, frame)
		if cfg.Callback != nil {
			cfg.Callback(frame)
		}

		thermostatC = temps[model.InternalAir]
		prev = t.Add(cfg.Dt)
	}
	return frames, nil
}

// HeatingKWh sums the heating usage of the frames whose timestamp falls in
// [start, end), in kWh.
func HeatingKWh(frames []Frame, start, end time.Time) float64 {
	var joules float64
	for _, f := range frames {
		if f.Time.Before(start) || !f.Time.Before(end) {
			continue
		}
		joules += f.HeatingJ
	}
	return joules / 3.6e6
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// explicitStepper is plain forward Euler over every link.
type explicitStepper struct{}

func (explicitStepper) step(net *network.Network, dtSec float64, at time.Time) (map[model.ElementTag]float64, float64, error) {
	heatingJ, gross := accumulate(net, dtSec)
	if err := checkConservation(net, gross, at); err != nil {
		return nil, 0, err
	}
	energies := captureEnergies(net)
	applyUpdates(net)
	return energies, heatingJ, nil
}

// accumulate runs every link's transfer into the node accumulators and
// returns the boiler energy delivered plus the gross magnitude moved.
func accumulate(net *network.Network, dtSec float64) (heatingJ, gross float64) {
	for _, e := range net.Edges() {
		u, v := net.Node(e.U), net.Node(e.V)
		for _, l := range e.Links() {
			moved := l.Step(u, v, dtSec)
			gross += math.Abs(moved)
			if l.Kind == network.BoilerRadiative {
				heatingJ += moved
			}
		}
	}
	return heatingJ, gross
}

// checkConservation verifies the closed-system invariant: since every link
// moves equal and opposite amounts, the accumulators across all nodes
// (boundary reservoirs included) must cancel to numerical tolerance.
func checkConservation(net *network.Network, gross float64, at time.Time) error {
	var sum float64
	for _, tag := range net.Tags() {
		sum += net.Node(tag).EnergyJ
	}
	tol := conservationRelTol * (1 + gross)
	if math.Abs(sum) > tol || !isFinite(sum) {
		return &ConservationError{Time: at, Imbalance: sum}
	}
	return nil
}

func captureEnergies(net *network.Network) map[model.ElementTag]float64 {
	out := make(map[model.ElementTag]float64)
	for _, tag := range net.Tags() {
		out[tag] = net.Node(tag).EnergyJ
	}
	return out
}

func applyUpdates(net *network.Network) {
	for _, tag := range net.Tags() {
		net.Node(tag).ApplyUpdate()
	}
}
