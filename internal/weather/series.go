package weather

import (
	"sort"
	"time"

	"housesim/internal/model"
)

// Series is an ordered outdoor-weather trace. The integrator samples it on
// its own timestep grid through At.
type Series struct {
	records []model.WeatherRecord
}

// NewSeries copies and time-sorts the records.
func NewSeries(records []model.WeatherRecord) Series {
	cp := make([]model.WeatherRecord, len(records))
	copy(cp, records)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
	return Series{records: cp}
}

// Len returns the number of records.
func (s Series) Len() int { return len(s.records) }

// Records returns the backing records in time order.
func (s Series) Records() []model.WeatherRecord { return s.records }

// Range returns the covered time range.
func (s Series) Range() (model.TimeRange, bool) {
	if len(s.records) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: s.records[0].Timestamp,
		End:   s.records[len(s.records)-1].Timestamp,
	}, true
}

// At linearly interpolates conditions at t. Outside the covered range the
// nearest endpoint is held.
func (s Series) At(t time.Time) model.WeatherRecord {
	if len(s.records) == 0 {
		return model.WeatherRecord{Timestamp: t}
	}
	i := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].Timestamp.Before(t)
	})
	if i == 0 {
		r := s.records[0]
		r.Timestamp = t
		return r
	}
	if i == len(s.records) {
		r := s.records[len(s.records)-1]
		r.Timestamp = t
		return r
	}

	a, b := s.records[i-1], s.records[i]
	span := b.Timestamp.Sub(a.Timestamp).Seconds()
	if span <= 0 {
		r := b
		r.Timestamp = t
		return r
	}
	f := t.Sub(a.Timestamp).Seconds() / span
	lerp := func(x, y float64) float64 { return x + (y-x)*f }
	return model.WeatherRecord{
		Timestamp:  t,
		TempC:      lerp(a.TempC, b.TempC),
		Humidity:   lerp(a.Humidity, b.Humidity),
		SolarWm2:   lerp(a.SolarWm2, b.SolarWm2),
		WindMS:     lerp(a.WindMS, b.WindMS),
		PressureMb: lerp(a.PressureMb, b.PressureMb),
	}
}

// WithTemps returns a copy of the series with temperatures replaced by temps,
// which must be index-aligned with Records. Used to swap in BAIT-adjusted
// driving temperatures.
func (s Series) WithTemps(temps []float64) Series {
	cp := make([]model.WeatherRecord, len(s.records))
	copy(cp, s.records)
	for i := range cp {
		if i < len(temps) {
			cp[i].TempC = temps[i]
		}
	}
	return Series{records: cp}
}
