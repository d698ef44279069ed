package weather

import (
	"errors"
	"fmt"
	"math"
	"time"

	"housesim/internal/model"
)

// ErrDataInsufficient marks a weather series too short or sparse for the
// comfort-index transform.
var ErrDataInsufficient = errors.New("insufficient weather data")

// DefaultBaitCoefficients returns the separately fitted comfort-index
// optimum. The regression fields are zero until FitBaitCoefficients fills
// them in.
func DefaultBaitCoefficients() model.BaitCoefficients {
	return model.BaitCoefficients{
		SolarGain:          0.012,
		WindChill:          0.20,
		HumidityDiscomfort: 0.050,
		Smoothing:          0.50,
		Threshold:          15.5,
	}
}

// Comfort-band setpoints. The solar and wind setpoints track the raw
// temperature: warm days carry more sun and calmer perceived wind.
const (
	humiditySetpointPct = 50.0
	humidityTempPivotC  = 18.0

	blendLowC  = 15.0
	blendHighC = 23.0
)

func solarSetpoint(tempC float64) float64 { return 100 + 7*tempC }
func windSetpoint(tempC float64) float64  { return 4.5 - 0.025*tempC }

// BAIT computes the building-adjusted driving temperature for every record in
// the series: the comfort formula per sample, a backward exponential smoothing
// over the previous two days, then a sigmoid blend back toward the raw
// temperature across the 15–23 °C band (occupants opening windows in mild
// weather). At least two days of sub-daily data are required.
func BAIT(s Series, c model.BaitCoefficients) ([]float64, error) {
	recs := s.Records()
	if err := checkCoverage(recs); err != nil {
		return nil, err
	}

	raw := make([]float64, len(recs))
	for i, r := range recs {
		raw[i] = r.TempC +
			c.SolarGain*(r.SolarWm2-solarSetpoint(r.TempC)) -
			c.WindChill*(r.WindMS-windSetpoint(r.TempC)) +
			c.HumidityDiscomfort*(r.TempC-humidityTempPivotC)*(r.Humidity-humiditySetpointPct)
	}

	smoothed := smoothTwoDays(s, raw, c.Smoothing)

	out := make([]float64, len(recs))
	for i, r := range recs {
		w := blendWeight(r.TempC)
		out[i] = (1-w)*smoothed[i] + w*r.TempC
	}
	return out, nil
}

// ApplyBait returns a series whose temperatures are the BAIT index, ready to
// drive the external-air boundary of a simulation.
func ApplyBait(s Series, c model.BaitCoefficients) (Series, error) {
	temps, err := BAIT(s, c)
	if err != nil {
		return Series{}, err
	}
	return s.WithTemps(temps), nil
}

func checkCoverage(recs []model.WeatherRecord) error {
	if len(recs) < 3 {
		return fmt.Errorf("%w: need at least 3 records, got %d", ErrDataInsufficient, len(recs))
	}
	span := recs[len(recs)-1].Timestamp.Sub(recs[0].Timestamp)
	if span < 48*time.Hour {
		return fmt.Errorf("%w: need at least two days of records, got %s", ErrDataInsufficient, span)
	}
	// Sub-daily: more records than covered days.
	days := span.Hours() / 24
	if float64(len(recs)) <= days {
		return fmt.Errorf("%w: series is not sub-daily (%d records over %.1f days)", ErrDataInsufficient, len(recs), days)
	}
	return nil
}

// smoothTwoDays blends each sample with the index value one and two days
// earlier, weighted 1, λ, λ² and normalized. Lags falling before the series
// start drop out of the normalization.
func smoothTwoDays(s Series, raw []float64, lambda float64) []float64 {
	recs := s.Records()
	start := recs[0].Timestamp

	lagged := Series{records: make([]model.WeatherRecord, len(recs))}
	copy(lagged.records, recs)
	for i := range lagged.records {
		lagged.records[i].TempC = raw[i]
	}

	out := make([]float64, len(recs))
	for i, r := range recs {
		sum := raw[i]
		norm := 1.0
		weight := lambda
		for lag := 1; lag <= 2; lag++ {
			at := r.Timestamp.Add(-time.Duration(lag) * 24 * time.Hour)
			if !at.Before(start) {
				sum += weight * lagged.At(at).TempC
				norm += weight
			}
			weight *= lambda
		}
		out[i] = sum / norm
	}
	return out
}

// blendWeight rises 0→1 as the raw temperature crosses the comfort band.
func blendWeight(tempC float64) float64 {
	mid := (blendLowC + blendHighC) / 2
	scale := (blendHighC - blendLowC) / 8
	return 1 / (1 + math.Exp(-(tempC-mid)/scale))
}

// HeatingDegreeDays integrates the deficit of the index below the threshold
// over a window, in °C·days. Samples are weighted by the spacing to their
// predecessor, so irregular series integrate correctly.
func HeatingDegreeDays(s Series, temps []float64, threshold float64, start, end time.Time) float64 {
	recs := s.Records()
	var hdd float64
	for i := 1; i < len(recs); i++ {
		t := recs[i].Timestamp
		if !t.After(start) || t.After(end) {
			continue
		}
		deficit := threshold - temps[i]
		if deficit <= 0 {
			continue
		}
		dtDays := t.Sub(recs[i-1].Timestamp).Hours() / 24
		hdd += deficit * dtDays
	}
	return hdd
}

// FitBaitCoefficients regresses per-period consumption against heating degree
// days and period length, holding the comfort coefficients fixed at their
// optimum:
//
//	kWh ≈ HeatingKWh·HDD + DHWKWh·days
//
// solved by least squares, with R² against the observed consumption.
func FitBaitCoefficients(s Series, records []model.ConsumptionRecord, c model.BaitCoefficients) (model.BaitCoefficients, error) {
	if len(records) < 2 {
		return c, fmt.Errorf("%w: need at least 2 consumption periods, got %d", ErrDataInsufficient, len(records))
	}
	temps, err := BAIT(s, c)
	if err != nil {
		return c, err
	}

	// Normal equations for the two-column design matrix [hdd days].
	var shh, shd, sdd, shy, sdy float64
	hdds := make([]float64, len(records))
	days := make([]float64, len(records))
	for i, rec := range records {
		hdds[i] = HeatingDegreeDays(s, temps, c.Threshold, rec.Start, rec.End)
		days[i] = rec.Days()
		shh += hdds[i] * hdds[i]
		shd += hdds[i] * days[i]
		sdd += days[i] * days[i]
		shy += hdds[i] * rec.KWh
		sdy += days[i] * rec.KWh
	}
	det := shh*sdd - shd*shd
	if math.Abs(det) < 1e-12 {
		return c, fmt.Errorf("%w: degenerate degree-day regression", ErrDataInsufficient)
	}
	heating := (shy*sdd - sdy*shd) / det
	dhw := (sdy*shh - shy*shd) / det

	var mean float64
	for _, rec := range records {
		mean += rec.KWh
	}
	mean /= float64(len(records))

	var ssRes, ssTot float64
	for i, rec := range records {
		pred := heating*hdds[i] + dhw*days[i]
		ssRes += (rec.KWh - pred) * (rec.KWh - pred)
		ssTot += (rec.KWh - mean) * (rec.KWh - mean)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	out := c
	out.HeatingKWh = heating
	out.DHWKWh = dhw
	out.R2 = r2
	return out, nil
}
