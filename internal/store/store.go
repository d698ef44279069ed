package store

import (
	"sort"
	"sync"
	"time"

	"housesim/internal/model"
)

// Store holds weather and fuel-consumption series in memory, keyed by dataset
// id. It implements the narrow collaborator contract the engine expects from
// its surroundings: records between two timestamps for a dataset.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
}

type dataset struct {
	weather     []model.WeatherRecord     // sorted by timestamp
	consumption []model.ConsumptionRecord // sorted by period start
}

func New() *Store {
	return &Store{datasets: make(map[string]*dataset)}
}

func (s *Store) dataset(id string) *dataset {
	if d, ok := s.datasets[id]; ok {
		return d
	}
	d := &dataset{}
	s.datasets[id] = d
	return d
}

// AddWeather appends weather records to a dataset, keeping time order.
func (s *Store) AddWeather(id string, records []model.WeatherRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dataset(id)
	d.weather = append(d.weather, records...)
	sort.Slice(d.weather, func(i, j int) bool {
		return d.weather[i].Timestamp.Before(d.weather[j].Timestamp)
	})
}

// AddConsumption appends metering periods to a dataset, keeping start order.
func (s *Store) AddConsumption(id string, records []model.ConsumptionRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dataset(id)
	d.consumption = append(d.consumption, records...)
	sort.Slice(d.consumption, func(i, j int) bool {
		return d.consumption[i].Start.Before(d.consumption[j].Start)
	})
}

// WeatherBetween returns the dataset's weather records in [start, end).
func (s *Store) WeatherBetween(id string, start, end time.Time) []model.WeatherRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil
	}
	lo := sort.Search(len(d.weather), func(i int) bool {
		return !d.weather[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(d.weather), func(i int) bool {
		return !d.weather[i].Timestamp.Before(end)
	})
	out := make([]model.WeatherRecord, hi-lo)
	copy(out, d.weather[lo:hi])
	return out
}

// ConsumptionBetween returns the metering periods starting in [start, end).
func (s *Store) ConsumptionBetween(id string, start, end time.Time) []model.ConsumptionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil
	}
	lo := sort.Search(len(d.consumption), func(i int) bool {
		return !d.consumption[i].Start.Before(start)
	})
	hi := sort.Search(len(d.consumption), func(i int) bool {
		return !d.consumption[i].Start.Before(end)
	})
	out := make([]model.ConsumptionRecord, hi-lo)
	copy(out, d.consumption[lo:hi])
	return out
}

// WeatherRange returns the time span covered by a dataset's weather.
func (s *Store) WeatherRange(id string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok || len(d.weather) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: d.weather[0].Timestamp,
		End:   d.weather[len(d.weather)-1].Timestamp,
	}, true
}

// Datasets returns all dataset ids in lexicographic order.
func (s *Store) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
