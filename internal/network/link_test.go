package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"housesim/internal/model"
)

func TestLink_StepLaws(t *testing.T) {
	tests := []struct {
		name  string
		link  Link
		uTemp float64
		vTemp float64
		uMass float64
		dt    float64
		want  float64
	}{
		{
			name:  "conductive follows U·A·ΔT·dt",
			link:  Link{Kind: Conductive, UValue: 1.5, AreaM2: 10},
			uTemp: 20, vTemp: 10, uMass: 1e6, dt: 60,
			want: 1.5 * 10 * -10 * 60,
		},
		{
			name:  "radiative is temperature independent",
			link:  Link{Kind: Radiative, PowerW: 300},
			uTemp: 50, vTemp: -50, uMass: 1e6, dt: 60,
			want: 300 * 60,
		},
		{
			name:  "thermal radiative scales with ΔT over rated",
			link:  Link{Kind: ThermalRadiative, PowerW: 12000, RatedDeltaC: 20},
			uTemp: 20, vTemp: 30, uMass: 1e6, dt: 60,
			want: 12000 * 60 * 10 / 20,
		},
		{
			name:  "boiler off transfers nothing",
			link:  Link{Kind: BoilerRadiative, PowerW: 24000, RatedDeltaC: 20, On: false},
			uTemp: 30, vTemp: 70, uMass: 1e6, dt: 60,
			want: 0,
		},
		{
			name:  "boiler on transfers rated-fraction",
			link:  Link{Kind: BoilerRadiative, PowerW: 24000, RatedDeltaC: 20, On: true},
			uTemp: 60, vTemp: 70, uMass: 1e6, dt: 60,
			want: 24000 * 60 * 10 / 20,
		},
		{
			name:  "boiler never pumps against the gradient",
			link:  Link{Kind: BoilerRadiative, PowerW: 24000, RatedDeltaC: 20, On: true},
			uTemp: 80, vTemp: 70, uMass: 1e6, dt: 60,
			want: 0,
		},
		{
			name:  "convective scales with air mass and ach",
			link:  Link{Kind: Convective, ACH: 2},
			uTemp: 20, vTemp: 5, uMass: 150000, dt: 180,
			want: 2 * 180 / 3600.0 * 150000 * -15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Node{Tag: model.InternalAir, TempC: tt.uTemp, MassJ: tt.uMass}
			v := &Node{Tag: model.ExternalAir, TempC: tt.vTemp, MassJ: math.Inf(1)}

			got := tt.link.Step(u, v, tt.dt)
			assert.InDelta(t, tt.want, got, 1e-9)

			// Bookkeeping is always sign-symmetric.
			assert.InDelta(t, got, u.EnergyJ, 1e-9)
			assert.InDelta(t, -got, v.EnergyJ, 1e-9)
		})
	}
}

func TestLink_BoilerHysteresis(t *testing.T) {
	l := Link{Kind: BoilerRadiative, PowerW: 24000, RatedDeltaC: 20, SetpointC: 20}

	assert.False(t, l.On, "boiler starts off")

	// Cooling through the dead-band does not switch on.
	l.UpdateBoiler(19.8)
	assert.False(t, l.On)

	l.UpdateBoiler(19.4)
	assert.True(t, l.On, "below setpoint−0.5 switches on")

	// Once on, fluctuations inside the dead-band leave it latched.
	for _, temp := range []float64{19.7, 20.0, 20.4, 19.6, 20.5} {
		l.UpdateBoiler(temp)
		assert.True(t, l.On, "thermostat %.1f must not unlatch", temp)
	}

	l.UpdateBoiler(20.6)
	assert.False(t, l.On, "above setpoint+0.5 switches off")

	// And stays off back down through the band.
	l.UpdateBoiler(19.9)
	assert.False(t, l.On)
}

func TestNode_ApplyUpdate(t *testing.T) {
	n := &Node{Tag: model.InternalAir, TempC: 20, MassJ: 1000, EnergyJ: 500}
	n.ApplyUpdate()
	assert.InDelta(t, 20.5, n.TempC, 1e-12)
	assert.Zero(t, n.EnergyJ)

	res := &Node{Tag: model.ExternalAir, TempC: 5, MassJ: math.Inf(1), EnergyJ: 1e9}
	res.ApplyUpdate()
	assert.Equal(t, 5.0, res.TempC, "reservoir temperature is never updated from the accumulator")
	assert.Zero(t, res.EnergyJ)
}
