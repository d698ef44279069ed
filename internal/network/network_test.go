package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housesim/internal/model"
)

func validParams() Params {
	return Params{ScaleFactor: 1, ACH: 4, UValue: 1.5, BoilerW: 24000, SetpointC: 20}
}

func TestBuildParametric(t *testing.T) {
	net, err := BuildParametric(validParams())
	require.NoError(t, err)

	for _, tag := range []model.ElementTag{
		model.InternalAir, model.WallNorth, model.WallEast, model.WallSouth,
		model.WallWest, model.WindowNorth, model.WindowSouth, model.Floor,
		model.Roof, model.ExternalAir, model.Ground, model.HeatSource,
		model.HeatingSystem,
	} {
		require.NotNil(t, net.Node(tag), "missing node %s", tag)
	}

	assert.True(t, net.Node(model.ExternalAir).Boundary())
	assert.True(t, net.Node(model.Ground).Boundary())
	assert.True(t, net.Node(model.HeatSource).Boundary())
	assert.False(t, net.Node(model.InternalAir).Boundary())

	assert.NoError(t, net.Validate())
}

func TestBuildParametric_ScaleFactor(t *testing.T) {
	small, err := BuildParametric(validParams())
	require.NoError(t, err)

	p := validParams()
	p.ScaleFactor = 2
	big, err := BuildParametric(p)
	require.NoError(t, err)

	ratio := big.Node(model.InternalAir).MassJ / small.Node(model.InternalAir).MassJ
	assert.InDelta(t, 2.0, ratio, 1e-9, "air mass scales with scale factor")
}

func TestBuildParametric_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero scale", func(p *Params) { p.ScaleFactor = 0 }},
		{"negative u-value", func(p *Params) { p.UValue = -1 }},
		{"negative ach", func(p *Params) { p.ACH = -0.5 }},
		{"negative boiler", func(p *Params) { p.BoilerW = -100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := BuildParametric(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestBuildSurveyed(t *testing.T) {
	elements := []SurveyElement{
		{Tag: model.WallNorth, AreaM2: 18, UValue: 1.8},
		{Tag: model.WallSouth, AreaM2: 16, UValue: 1.8},
		{Tag: model.WindowSouth, AreaM2: 4, UValue: 4.8},
		{Tag: model.Roof, AreaM2: 48, UValue: 2.3},
		{Tag: model.Floor, AreaM2: 48, UValue: 1.1},
	}
	net, err := BuildSurveyed(elements, 3, 18000, 21)
	require.NoError(t, err)
	require.NoError(t, net.Validate())

	assert.NotNil(t, net.Node(model.WindowSouth))
	assert.Nil(t, net.Node(model.WallEast), "only surveyed elements become nodes")
}

func TestBuildSurveyed_Invalid(t *testing.T) {
	_, err := BuildSurveyed(nil, 3, 18000, 21)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = BuildSurveyed([]SurveyElement{{Tag: model.WallNorth, AreaM2: 18, UValue: 1.8}}, 3, 18000, 21)
	assert.ErrorIs(t, err, ErrConfiguration, "survey without a floor cannot ground the air volume")

	_, err = BuildSurveyed([]SurveyElement{
		{Tag: model.Floor, AreaM2: 48, UValue: 1.1},
		{Tag: model.WallNorth, AreaM2: -2, UValue: 1.8},
	}, 3, 18000, 21)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValidate_OrphanedMass(t *testing.T) {
	n := New()
	n.AddNode(&Node{Tag: model.ExternalAir, TempC: 5, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.InternalAir, TempC: 20, MassJ: 150000})
	n.AddNode(&Node{Tag: model.WallNorth, TempC: 15, MassJ: 500000})

	require.NoError(t, n.Connect(&Edge{U: model.InternalAir, V: model.ExternalAir,
		Convective: &Link{Kind: Convective, ACH: 2}}))
	// WallNorth is only radiatively coupled: orphaned thermal mass.
	require.NoError(t, n.Connect(&Edge{U: model.WallNorth, V: model.InternalAir,
		Radiative: &Link{Kind: ThermalRadiative, PowerW: 100, RatedDeltaC: 10}}))

	err := n.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "wall_north")
}

func TestValidate_ConvectiveOrientation(t *testing.T) {
	n := New()
	n.AddNode(&Node{Tag: model.ExternalAir, TempC: 5, MassJ: math.Inf(1)})
	n.AddNode(&Node{Tag: model.InternalAir, TempC: 20, MassJ: 150000})
	require.NoError(t, n.Connect(&Edge{U: model.ExternalAir, V: model.InternalAir,
		Convective: &Link{Kind: Convective, ACH: 2}}))

	err := n.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestClone_Independence(t *testing.T) {
	net, err := BuildParametric(validParams())
	require.NoError(t, err)

	cp := net.Clone()
	cp.Node(model.InternalAir).TempC = 99
	for _, e := range cp.Edges() {
		if e.Radiative != nil && e.Radiative.Kind == BoilerRadiative {
			e.Radiative.On = true
		}
	}

	assert.NotEqual(t, 99.0, net.Node(model.InternalAir).TempC)
	for _, e := range net.Edges() {
		if e.Radiative != nil && e.Radiative.Kind == BoilerRadiative {
			assert.False(t, e.Radiative.On, "clone boiler state must not leak back")
		}
	}
}

func TestTags_Deterministic(t *testing.T) {
	net, err := BuildParametric(validParams())
	require.NoError(t, err)

	first := net.Tags()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, net.Tags())
	}
	for i := 1; i < len(first); i++ {
		assert.Less(t, string(first[i-1]), string(first[i]), "tags are lexicographically ordered")
	}
}
