package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"housesim/internal/calibrate"
	"housesim/internal/ingest"
	"housesim/internal/model"
	"housesim/internal/network"
	"housesim/internal/simulate"
	"housesim/internal/store"
	"housesim/internal/weather"
	"housesim/internal/ws"
)

func main() {
	inputDir := flag.String("input-dir", "input", "directory containing <dataset>_weather.csv / <dataset>_meter.csv files")
	addr := flag.String("addr", ":8080", "listen address")
	frameEvery := flag.Int("frame-every", 10, "broadcast every nth simulation frame")
	flag.Parse()

	dataStore := store.New()
	if err := loadCSVs(*inputDir, dataStore); err != nil {
		log.Fatalf("Failed to load CSV data: %v", err)
	}
	ids := dataStore.Datasets()
	if len(ids) == 0 {
		log.Fatal("No data loaded")
	}
	for _, id := range ids {
		if tr, ok := dataStore.WeatherRange(id); ok {
			log.Printf("Dataset %s: %s to %s", id, tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))
		}
	}

	hub := ws.NewHub()
	srv := &server{store: dataStore, hub: hub, frameEvery: *frameEvery}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/datasets", srv.handleDatasets).Methods(http.MethodGet)
	r.HandleFunc("/api/simulate", srv.handleSimulate).Methods(http.MethodPost)
	r.HandleFunc("/api/calibrate", srv.handleCalibrate).Methods(http.MethodPost)
	r.HandleFunc("/api/interventions", srv.handleInterventions).Methods(http.MethodPost)
	r.Handle("/ws", hub)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, handlers.LoggingHandler(os.Stdout, cors(r))); err != nil {
		log.Fatal(err)
	}
}

type server struct {
	store      *store.Store
	hub        *ws.Hub
	frameEvery int
}

type datasetInfo struct {
	ID    string `json:"id"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func (s *server) handleDatasets(w http.ResponseWriter, _ *http.Request) {
	var out []datasetInfo
	for _, id := range s.store.Datasets() {
		info := datasetInfo{ID: id}
		if tr, ok := s.store.WeatherRange(id); ok {
			info.Start = tr.Start.Format(time.RFC3339)
			info.End = tr.End.Format(time.RFC3339)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type simulateRequest struct {
	Dataset   string                   `json:"dataset"`
	Params    model.ThermalModelResult `json:"params"`
	Start     string                   `json:"start,omitempty"`
	End       string                   `json:"end,omitempty"`
	DtMinutes float64                  `json:"dt_minutes,omitempty"`
	Strategy  string                   `json:"strategy,omitempty"`
	Bait      bool                     `json:"bait,omitempty"`
	Seed      uint64                   `json:"seed,omitempty"`
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	tr, ok := s.store.WeatherRange(req.Dataset)
	if !ok {
		httpError(w, http.StatusNotFound, fmt.Errorf("unknown dataset %q", req.Dataset))
		return
	}
	start, end := tr.Start, tr.End
	if req.Start != "" {
		t, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
		start = t
	}
	if req.End != "" {
		t, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
		end = t
	}

	series := weather.NewSeries(s.store.WeatherBetween(req.Dataset, tr.Start, tr.End.Add(time.Second)))
	if req.Bait {
		adjusted, err := weather.ApplyBait(series, weather.DefaultBaitCoefficients())
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		series = adjusted
	}

	net, err := network.BuildParametric(network.FromResult(req.Params))
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}

	dt := 3 * time.Minute
	if req.DtMinutes > 0 {
		dt = time.Duration(req.DtMinutes * float64(time.Minute))
	}

	runID := uuid.NewString()
	bridge := ws.NewBridge(s.hub, runID, s.frameEvery)
	bridge.Started(ws.RunStartedPayload{
		RunID:    runID,
		Dataset:  req.Dataset,
		Strategy: string(simulate.Strategy(req.Strategy)),
		Start:    start.Format(time.RFC3339),
		End:      end.Format(time.RFC3339),
		Params:   req.Params,
	})

	cfg := simulate.Config{
		Start:    start,
		End:      end,
		Dt:       dt,
		Strategy: simulate.Strategy(req.Strategy),
		Callback: bridge.OnFrame,
	}
	if req.Params.DHWDailyKWh > 0 {
		cfg.DHW = simulate.NewDHWProfile(req.Params.DHWDailyKWh, req.Seed)
	}

	// Each run owns its network; the engine itself is single-threaded.
	go func() {
		frames, err := simulate.Run(net, series, cfg)
		if err != nil {
			log.Printf("Run %s failed: %v", runID, err)
			bridge.Failed(err)
			return
		}
		bridge.Finished(frames)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

type calibrateRequest struct {
	Dataset    string                     `json:"dataset"`
	Iterations int                        `json:"iterations,omitempty"`
	Seed       uint64                     `json:"seed,omitempty"`
	Hints      []model.ThermalModelResult `json:"hints,omitempty"`
	FitBait    bool                       `json:"fit_bait,omitempty"`
}

type calibrateResponse struct {
	Result model.ThermalModelResult `json:"result"`
	Bait   *model.BaitCoefficients  `json:"bait,omitempty"`
}

func (s *server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	tr, ok := s.store.WeatherRange(req.Dataset)
	if !ok {
		httpError(w, http.StatusNotFound, fmt.Errorf("unknown dataset %q", req.Dataset))
		return
	}
	series := weather.NewSeries(s.store.WeatherBetween(req.Dataset, tr.Start, tr.End.Add(time.Second)))
	records := s.store.ConsumptionBetween(req.Dataset, tr.Start, tr.End.Add(time.Second))
	if len(records) == 0 {
		httpError(w, http.StatusUnprocessableEntity, fmt.Errorf("dataset %q has no consumption records", req.Dataset))
		return
	}

	result, err := calibrate.Fit(series, records, req.Hints, calibrate.Config{
		Iterations: req.Iterations,
		Seed:       req.Seed,
	}, nil)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}

	resp := calibrateResponse{Result: result}
	if req.FitBait {
		bait, err := weather.FitBaitCoefficients(series, records, weather.DefaultBaitCoefficients())
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		resp.Bait = &bait
	}
	writeJSON(w, http.StatusOK, resp)
}

type interventionsRequest struct {
	Params        model.ThermalModelResult `json:"params"`
	Interventions []model.Intervention     `json:"interventions"`
	// Dataset, when set, simulates before and after over the dataset's
	// weather to estimate the saving.
	Dataset   string  `json:"dataset,omitempty"`
	DtMinutes float64 `json:"dt_minutes,omitempty"`
	Strategy  string  `json:"strategy,omitempty"`
}

type interventionsResponse struct {
	Original    model.ThermalModelResult `json:"original"`
	Modified    model.ThermalModelResult `json:"modified"`
	OriginalKWh float64                  `json:"original_kwh,omitempty"`
	ModifiedKWh float64                  `json:"modified_kwh,omitempty"`
	SavingsPct  float64                  `json:"savings_pct,omitempty"`
}

func (s *server) handleInterventions(w http.ResponseWriter, r *http.Request) {
	var req interventionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	modified, err := network.ApplyInterventions(req.Params, req.Interventions)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	resp := interventionsResponse{Original: req.Params, Modified: modified}

	if req.Dataset != "" {
		tr, ok := s.store.WeatherRange(req.Dataset)
		if !ok {
			httpError(w, http.StatusNotFound, fmt.Errorf("unknown dataset %q", req.Dataset))
			return
		}
		series := weather.NewSeries(s.store.WeatherBetween(req.Dataset, tr.Start, tr.End.Add(time.Second)))

		dt := 3 * time.Minute
		if req.DtMinutes > 0 {
			dt = time.Duration(req.DtMinutes * float64(time.Minute))
		}
		before, err := simulatedKWh(req.Params, series, tr, dt, simulate.Strategy(req.Strategy))
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		after, err := simulatedKWh(modified, series, tr, dt, simulate.Strategy(req.Strategy))
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		resp.OriginalKWh = before
		resp.ModifiedKWh = after
		if before > 0 {
			resp.SavingsPct = 100 * (before - after) / before
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func simulatedKWh(params model.ThermalModelResult, series weather.Series, tr model.TimeRange, dt time.Duration, strategy simulate.Strategy) (float64, error) {
	net, err := network.BuildParametric(network.FromResult(params))
	if err != nil {
		return 0, err
	}
	frames, err := simulate.Run(net, series, simulate.Config{
		Start:    tr.Start,
		End:      tr.End,
		Dt:       dt,
		Strategy: strategy,
	})
	if err != nil {
		return 0, err
	}
	return simulate.HeatingKWh(frames, tr.Start, tr.End), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// loadCSVs loads <dataset>_weather.csv and <dataset>_meter.csv files.
func loadCSVs(dir string, s *store.Store) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading input directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		path := filepath.Join(dir, name)
		log.Printf("Loading %s...", path)

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}

		base := strings.TrimSuffix(name, ".csv")
		switch {
		case strings.HasSuffix(base, "_weather"):
			records, perr := (&ingest.WeatherParser{}).Parse(f)
			f.Close()
			if perr != nil {
				return fmt.Errorf("parsing %s: %w", path, perr)
			}
			s.AddWeather(strings.TrimSuffix(base, "_weather"), records)
			log.Printf("  Loaded %d weather records from %s", len(records), name)
		case strings.HasSuffix(base, "_meter"):
			records, perr := (&ingest.MeterParser{}).Parse(f)
			f.Close()
			if perr != nil {
				return fmt.Errorf("parsing %s: %w", path, perr)
			}
			s.AddConsumption(strings.TrimSuffix(base, "_meter"), records)
			log.Printf("  Loaded %d consumption periods from %s", len(records), name)
		default:
			f.Close()
			log.Printf("  Skipping %s (expected *_weather.csv or *_meter.csv)", name)
		}
	}
	return nil
}
