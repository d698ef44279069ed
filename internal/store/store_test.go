package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housesim/internal/model"
)

var t0 = time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)

func TestStore_WeatherBetween(t *testing.T) {
	s := New()
	// Out of order on purpose.
	s.AddWeather("home", []model.WeatherRecord{
		{Timestamp: t0.Add(2 * time.Hour), TempC: 7},
		{Timestamp: t0, TempC: 5},
		{Timestamp: t0.Add(time.Hour), TempC: 6},
		{Timestamp: t0.Add(3 * time.Hour), TempC: 8},
	})

	got := s.WeatherBetween("home", t0.Add(time.Hour), t0.Add(3*time.Hour))
	require.Len(t, got, 2)
	assert.Equal(t, 6.0, got[0].TempC)
	assert.Equal(t, 7.0, got[1].TempC)

	// Half-open: start inclusive, end exclusive.
	all := s.WeatherBetween("home", t0, t0.Add(4*time.Hour))
	assert.Len(t, all, 4)
	assert.Empty(t, s.WeatherBetween("home", t0.Add(3*time.Hour), t0.Add(3*time.Hour)))
	assert.Empty(t, s.WeatherBetween("absent", t0, t0.Add(time.Hour)))
}

func TestStore_ConsumptionBetween(t *testing.T) {
	s := New()
	s.AddConsumption("home", []model.ConsumptionRecord{
		{Start: t0.AddDate(0, 1, 0), End: t0.AddDate(0, 2, 0), KWh: 700},
		{Start: t0, End: t0.AddDate(0, 1, 0), KWh: 843},
	})

	got := s.ConsumptionBetween("home", t0, t0.AddDate(0, 1, 0))
	require.Len(t, got, 1)
	assert.Equal(t, 843.0, got[0].KWh)

	got = s.ConsumptionBetween("home", t0, t0.AddDate(0, 3, 0))
	require.Len(t, got, 2)
	assert.True(t, got[0].Start.Before(got[1].Start))
}

func TestStore_WeatherRange(t *testing.T) {
	s := New()
	_, ok := s.WeatherRange("home")
	assert.False(t, ok)

	s.AddWeather("home", []model.WeatherRecord{
		{Timestamp: t0.Add(5 * time.Hour)},
		{Timestamp: t0},
	})
	tr, ok := s.WeatherRange("home")
	require.True(t, ok)
	assert.Equal(t, t0, tr.Start)
	assert.Equal(t, t0.Add(5*time.Hour), tr.End)
}

func TestStore_Datasets(t *testing.T) {
	s := New()
	assert.Empty(t, s.Datasets())

	s.AddWeather("b", []model.WeatherRecord{{Timestamp: t0}})
	s.AddConsumption("a", []model.ConsumptionRecord{{Start: t0, End: t0.Add(time.Hour), KWh: 1}})
	assert.Equal(t, []string{"a", "b"}, s.Datasets())
}
