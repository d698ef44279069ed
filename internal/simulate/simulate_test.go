package simulate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housesim/internal/model"
	"housesim/internal/network"
	"housesim/internal/weather"
)

var simStart = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

// constantWeather covers the window with hourly samples at a fixed outdoor
// temperature and no sun.
func constantWeather(hours int, tempC float64) weather.Series {
	records := make([]model.WeatherRecord, hours+1)
	for i := range records {
		records[i] = model.WeatherRecord{
			Timestamp: simStart.Add(time.Duration(i) * time.Hour),
			TempC:     tempC,
			Humidity:  80,
			WindMS:    3,
		}
	}
	return weather.NewSeries(records)
}

func houseParams() network.Params {
	return network.Params{
		ScaleFactor: 1.0,
		ACH:         1.0,
		UValue:      1.3,
		BoilerW:     0,
		SetpointC:   19,
	}
}

// twoNodeNet is a single finite mass against an outdoor reservoir, the
// smallest network with a known closed-form trajectory.
func twoNodeNet(massJ, uValue, areaM2, tempC float64) *network.Network {
	n := network.New()
	n.AddNode(&network.Node{Tag: model.WallNorth, TempC: tempC, MassJ: massJ})
	n.AddNode(&network.Node{Tag: model.ExternalAir, TempC: 0, MassJ: math.Inf(1)})
	if err := n.Connect(&network.Edge{U: model.WallNorth, V: model.ExternalAir,
		Conductive: &network.Link{Kind: network.Conductive, UValue: uValue, AreaM2: areaM2}}); err != nil {
		panic(err)
	}
	return n
}

func TestRun_TwoNodeExponentialDecay(t *testing.T) {
	// T(t) = Tb + (T0-Tb)·exp(-UA·t/M) against a 0 °C reservoir.
	const (
		massJ  = 40000.0
		uValue = 2.0
		areaM2 = 10.0
		t0     = 20.0
	)
	series := constantWeather(3, 0)

	for _, strategy := range []Strategy{Explicit, Midpoint, Implicit} {
		t.Run(string(strategy), func(t *testing.T) {
			net := twoNodeNet(massJ, uValue, areaM2, t0)
			frames, err := Run(net, series, Config{
				Start:    simStart,
				End:      simStart.Add(2 * time.Hour),
				Dt:       10 * time.Second,
				Strategy: strategy,
			})
			require.NoError(t, err)
			require.Len(t, frames, 720)

			k := uValue * areaM2 / massJ
			for _, i := range []int{90, 360, 719} {
				elapsed := frames[i].Time.Add(10 * time.Second).Sub(simStart).Seconds()
				want := t0 * math.Exp(-k*elapsed)
				assert.InDelta(t, want, frames[i].TempC[model.WallNorth], 0.05,
					"frame %d", i)
			}
		})
	}
}

func TestRun_ConservationPerFrame(t *testing.T) {
	series := constantWeather(7, 2)
	for _, strategy := range []Strategy{Explicit, Midpoint, Implicit} {
		t.Run(string(strategy), func(t *testing.T) {
			p := houseParams()
			p.BoilerW = 15000
			net, err := network.BuildParametric(p)
			require.NoError(t, err)

			frames, err := Run(net, series, Config{
				Start:    simStart,
				End:      simStart.Add(6 * time.Hour),
				Dt:       time.Minute,
				Strategy: strategy,
			})
			require.NoError(t, err)
			require.NotEmpty(t, frames)

			for _, f := range frames {
				var sum, gross float64
				for _, e := range f.EnergyJ {
					sum += e
					gross += math.Abs(e)
				}
				assert.LessOrEqual(t, math.Abs(sum), 1e-6*(1+gross),
					"frame %s leaks energy", f.Time)
			}
		})
	}
}

func TestRun_StrategiesAgree(t *testing.T) {
	series := constantWeather(13, 4)
	final := make(map[Strategy]float64)
	for _, strategy := range []Strategy{Explicit, Midpoint, Implicit} {
		net, err := network.BuildParametric(houseParams())
		require.NoError(t, err)
		frames, err := Run(net, series, Config{
			Start:    simStart,
			End:      simStart.Add(12 * time.Hour),
			Dt:       30 * time.Second,
			Strategy: strategy,
		})
		require.NoError(t, err)
		final[strategy] = frames[len(frames)-1].InternalTempC()
	}
	assert.InDelta(t, final[Explicit], final[Midpoint], 0.3)
	assert.InDelta(t, final[Explicit], final[Implicit], 0.3)
}

func TestRun_Deterministic(t *testing.T) {
	series := constantWeather(5, 0)
	run := func() []Frame {
		p := houseParams()
		p.BoilerW = 12000
		net, err := network.BuildParametric(p)
		require.NoError(t, err)
		frames, err := Run(net, series, Config{
			Start:    simStart,
			End:      simStart.Add(4 * time.Hour),
			Dt:       time.Minute,
			Strategy: Midpoint,
			DHW:      NewDHWProfile(3.0, 42),
		})
		require.NoError(t, err)
		return frames
	}
	assert.Equal(t, run(), run(), "identical configs must produce identical frames")
}

func TestRun_FrameTimestampsHalfOpen(t *testing.T) {
	net := twoNodeNet(40000, 1, 10, 15)
	frames, err := Run(net, constantWeather(2, 5), Config{
		Start: simStart,
		End:   simStart.Add(time.Hour),
		Dt:    15 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, frames, 4)
	assert.Equal(t, simStart, frames[0].Time)
	assert.Equal(t, simStart.Add(45*time.Minute), frames[3].Time)
}

func TestRun_ConfigErrors(t *testing.T) {
	net := twoNodeNet(40000, 1, 10, 15)
	series := constantWeather(2, 5)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Start: simStart, End: simStart.Add(time.Hour)}},
		{"empty window", Config{Start: simStart, End: simStart, Dt: time.Minute}},
		{"unknown strategy", Config{Start: simStart, End: simStart.Add(time.Hour), Dt: time.Minute, Strategy: "rk4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(net, series, tt.cfg)
			assert.ErrorIs(t, err, network.ErrConfiguration)
		})
	}
}

func TestRun_BoilerHoldsSetpoint(t *testing.T) {
	p := houseParams()
	p.BoilerW = 6000
	net, err := network.BuildParametric(p)
	require.NoError(t, err)

	frames, err := Run(net, constantWeather(13, 5), Config{
		Start:    simStart,
		End:      simStart.Add(12 * time.Hour),
		Dt:       time.Minute,
		Strategy: Explicit,
	})
	require.NoError(t, err)

	// After the warm-up transient the room rides the thermostat band.
	for _, f := range frames[len(frames)/2:] {
		temp := f.InternalTempC()
		assert.Greater(t, temp, p.SetpointC-3, "room too cold at %s", f.Time)
		assert.Less(t, temp, p.SetpointC+3, "room too warm at %s", f.Time)
	}
	assert.Greater(t, HeatingKWh(frames, simStart, simStart.Add(12*time.Hour)), 0.0)
}

func TestRun_WarmWeatherNoHeating(t *testing.T) {
	p := houseParams()
	p.BoilerW = 20000
	net, err := network.BuildParametric(p)
	require.NoError(t, err)
	// Start the room above the switch-on threshold so the boiler never fires.
	net.Node(model.InternalAir).TempC = p.SetpointC + 1

	frames, err := Run(net, constantWeather(7, 25), Config{
		Start:    simStart,
		End:      simStart.Add(6 * time.Hour),
		Dt:       time.Minute,
		Strategy: Explicit,
	})
	require.NoError(t, err)
	assert.Zero(t, HeatingKWh(frames, simStart, simStart.Add(6*time.Hour)))
}

func TestRun_UnstableTimestepFails(t *testing.T) {
	p := houseParams()
	p.ACH = 20
	p.UValue = 2.5
	net, err := network.BuildParametric(p)
	require.NoError(t, err)

	_, err = Run(net, constantWeather(49, 0), Config{
		Start:    simStart,
		End:      simStart.Add(48 * time.Hour),
		Dt:       time.Hour,
		Strategy: Explicit,
	})
	require.Error(t, err)
	var cerr *ConservationError
	assert.ErrorAs(t, err, &cerr)
	assert.NotEmpty(t, cerr.Error())
}

func TestHeatingKWh_Window(t *testing.T) {
	frames := []Frame{
		{Time: simStart, HeatingJ: 3.6e6},
		{Time: simStart.Add(time.Hour), HeatingJ: 7.2e6},
		{Time: simStart.Add(2 * time.Hour), HeatingJ: 3.6e6},
	}
	assert.InDelta(t, 3.0, HeatingKWh(frames, simStart, simStart.Add(2*time.Hour)), 1e-9)
	// End frame excluded, start included.
	assert.InDelta(t, 2.0, HeatingKWh(frames, simStart.Add(time.Hour), simStart.Add(2*time.Hour)), 1e-9)
}

func TestDHWProfile_Reproducible(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	a := NewDHWProfile(3.0, 7)
	b := NewDHWProfile(3.0, 7)
	full := a.EnergyJ(day, day.AddDate(0, 0, 1))
	assert.InDelta(t, 3.0*3.6e6, full, 1e-6, "a full day drains the daily budget")
	assert.Equal(t, full, b.EnergyJ(day, day.AddDate(0, 0, 1)))

	// Splitting the window cannot change the total.
	mid := day.Add(14 * time.Hour)
	assert.InDelta(t, full, a.EnergyJ(day, mid)+a.EnergyJ(mid, day.AddDate(0, 0, 1)), 1e-6)

	// Querying a later day first must not disturb earlier days.
	c := NewDHWProfile(3.0, 7)
	c.EnergyJ(day.AddDate(0, 0, 5), day.AddDate(0, 0, 6))
	assert.Equal(t, full, c.EnergyJ(day, day.AddDate(0, 0, 1)))

	// Draws only land in the usual waking windows.
	assert.Zero(t, a.EnergyJ(day, day.Add(6*time.Hour)))
	assert.Zero(t, a.EnergyJ(day.Add(22*time.Hour), day.AddDate(0, 0, 1)))
}

func TestDHWProfile_Disabled(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	var nilProfile *DHWProfile
	assert.Zero(t, nilProfile.EnergyJ(day, day.AddDate(0, 0, 1)))
	assert.Zero(t, NewDHWProfile(0, 1).EnergyJ(day, day.AddDate(0, 0, 1)))
}

func TestRun_CallbackSeesEveryFrame(t *testing.T) {
	net := twoNodeNet(40000, 1, 10, 15)
	var seen []time.Time
	frames, err := Run(net, constantWeather(2, 5), Config{
		Start:    simStart,
		End:      simStart.Add(time.Hour),
		Dt:       10 * time.Minute,
		Callback: func(f Frame) { seen = append(seen, f.Time) },
	})
	require.NoError(t, err)
	require.Len(t, seen, len(frames))
	for i, f := range frames {
		assert.Equal(t, f.Time, seen[i])
	}
}
