package calibrate

import (
	"errors"
	"fmt"
	"time"

	"housesim/internal/model"
	"housesim/internal/network"
	"housesim/internal/simulate"
	"housesim/internal/weather"
)

// Config controls one calibration run. Zero fields take the defaults below.
type Config struct {
	Dt           time.Duration // simulation timestep, default 3 min
	Iterations   int           // optimizer budget beyond hints, default 300
	PenaltyScale float64       // comfort-band penalty weight, default 1000
	Strategy     simulate.Strategy
	Seed         uint64
}

const (
	defaultDt           = 3 * time.Minute
	defaultIterations   = 300
	defaultPenaltyScale = 1000

	// comfortBandC is the half-width of the tolerated drift around setpoint.
	comfortBandC = 3.0

	// infeasibleFactor scales the bounded loss returned for candidates whose
	// forward simulation fails its conservation invariant. Proportional to
	// the squared total consumption so it dominates any feasible residual
	// without wrecking a surrogate optimizer's statistics.
	infeasibleFactor = 100.0
)

func (c Config) withDefaults() Config {
	if c.Dt <= 0 {
		c.Dt = defaultDt
	}
	if c.Iterations <= 0 {
		c.Iterations = defaultIterations
	}
	if c.PenaltyScale <= 0 {
		c.PenaltyScale = defaultPenaltyScale
	}
	return c
}

// Bounds returns the search box in parameter order: scale factor, ach,
// u-value, boiler power, setpoint, daily DHW (capped at the observed mean
// daily consumption).
func Bounds(records []model.ConsumptionRecord) []Bound {
	var totalKWh, totalDays float64
	for _, r := range records {
		totalKWh += r.KWh
		totalDays += r.Days()
	}
	meanDaily := 0.0
	if totalDays > 0 {
		meanDaily = totalKWh / totalDays
	}
	return []Bound{
		{0.1, 10},      // scale factor
		{1, 20},        // ach
		{1, 2.5},       // u-value
		{0, 60000},     // boiler power W
		{16, 24},       // setpoint °C
		{0, meanDaily}, // daily DHW kWh
	}
}

func resultFromVector(x []float64) model.ThermalModelResult {
	return model.ThermalModelResult{
		ScaleFactor: x[0],
		ACH:         x[1],
		UValue:      x[2],
		BoilerW:     x[3],
		SetpointC:   x[4],
		DHWDailyKWh: x[5],
	}
}

func vectorFromResult(r model.ThermalModelResult) []float64 {
	return []float64{r.ScaleFactor, r.ACH, r.UValue, r.BoilerW, r.SetpointC, r.DHWDailyKWh}
}

// Fit calibrates the parametric building model against observed fuel
// consumption. Each candidate builds a fresh network, forward-simulates the
// observed window, resamples the simulated heating usage onto the metering
// periods, and scores the squared residual plus a comfort-band temperature
// penalty. Candidates whose simulation blows up score a bounded infeasibility
// penalty instead of aborting the run.
func Fit(series weather.Series, records []model.ConsumptionRecord, hints []model.ThermalModelResult, cfg Config, opt Optimizer) (model.ThermalModelResult, error) {
	cfg = cfg.withDefaults()
	if len(records) == 0 {
		return model.ThermalModelResult{}, fmt.Errorf("%w: no consumption records", weather.ErrDataInsufficient)
	}
	if opt == nil {
		opt = NewRandomSearch(cfg.Seed)
	}

	start, end := records[0].Start, records[0].End
	var totalKWh float64
	for _, r := range records {
		if r.Start.Before(start) {
			start = r.Start
		}
		if r.End.After(end) {
			end = r.End
		}
		totalKWh += r.KWh
	}
	infeasibleLoss := infeasibleFactor * totalKWh * totalKWh

	loss := func(x []float64) float64 {
		candidate := resultFromVector(x)
		l, err := Evaluate(candidate, series, records, cfg, start, end)
		var cv *simulate.ConservationError
		if errors.As(err, &cv) {
			return infeasibleLoss
		}
		if err != nil {
			return infeasibleLoss
		}
		return l
	}

	hintVecs := make([][]float64, len(hints))
	for i, h := range hints {
		hintVecs[i] = vectorFromResult(h)
	}

	best, _, err := opt.Minimize(loss, Bounds(records), hintVecs, cfg.Iterations)
	if err != nil {
		return model.ThermalModelResult{}, fmt.Errorf("calibration: %w", err)
	}
	return resultFromVector(best), nil
}

// Evaluate scores one candidate: the squared kWh residual over the metering
// periods plus the scaled comfort-band penalty. Exposed so callers can score
// a fitted result against fresh data.
func Evaluate(candidate model.ThermalModelResult, series weather.Series, records []model.ConsumptionRecord, cfg Config, start, end time.Time) (float64, error) {
	cfg = cfg.withDefaults()

	net, err := network.BuildParametric(network.FromResult(candidate))
	if err != nil {
		return 0, err
	}

	frames, err := simulate.Run(net, series, simulate.Config{
		Start:    start,
		End:      end,
		Dt:       cfg.Dt,
		Strategy: cfg.Strategy,
	})
	if err != nil {
		return 0, err
	}

	var residual float64
	for _, rec := range records {
		sim := simulate.HeatingKWh(frames, rec.Start, rec.End) + candidate.DHWDailyKWh*rec.Days()
		diff := rec.KWh - sim
		residual += diff * diff
	}

	// Comfort penalty: (T−(sp+3))·(T−(sp−3)) is positive exactly when the
	// room drifts outside the ±3 °C band. Integrated over time in °C²·days
	// so it stays commensurate with the kWh² residual.
	dtDays := cfg.Dt.Hours() / 24
	var penalty float64
	for _, f := range frames {
		t := f.InternalTempC()
		p := (t - (candidate.SetpointC + comfortBandC)) * (t - (candidate.SetpointC - comfortBandC))
		if p > 0 {
			penalty += p * dtDays
		}
	}

	return residual + cfg.PenaltyScale*penalty, nil
}
