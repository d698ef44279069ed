package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"housesim/internal/calibrate"
	"housesim/internal/ingest"
	"housesim/internal/model"
	"housesim/internal/weather"
)

func main() {
	weatherPath := flag.String("weather", "weather.csv", "weather CSV file")
	meterPath := flag.String("meter", "meter.csv", "fuel-consumption CSV file")
	iterations := flag.Int("iterations", 300, "optimizer iteration budget")
	dtMinutes := flag.Float64("dt", 3, "simulation timestep (minutes)")
	seed := flag.Uint64("seed", 1, "optimizer random seed")
	hintPath := flag.String("hints", "", "optional JSON file with hint parameter sets")
	fitBait := flag.Bool("fit-bait", false, "also fit BAIT degree-day coefficients")
	flag.Parse()

	series := loadWeather(*weatherPath)
	records := loadMeter(*meterPath)
	log.Printf("Loaded %d weather records and %d consumption periods", series.Len(), len(records))

	var hints []model.ThermalModelResult
	if *hintPath != "" {
		data, err := os.ReadFile(*hintPath)
		if err != nil {
			log.Fatalf("Reading hints: %v", err)
		}
		if err := json.Unmarshal(data, &hints); err != nil {
			log.Fatalf("Parsing hints: %v", err)
		}
	}

	cfg := calibrate.Config{
		Dt:         time.Duration(*dtMinutes * float64(time.Minute)),
		Iterations: *iterations,
		Seed:       *seed,
	}

	startedAt := time.Now()
	result, err := calibrate.Fit(series, records, hints, cfg, nil)
	if err != nil {
		log.Fatalf("Calibration: %v", err)
	}
	log.Printf("Calibration finished in %s", time.Since(startedAt).Round(time.Second))

	out := map[string]any{"result": result}
	if *fitBait {
		bait, err := weather.FitBaitCoefficients(series, records, weather.DefaultBaitCoefficients())
		if err != nil {
			log.Fatalf("BAIT fit: %v", err)
		}
		out["bait"] = bait
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func loadWeather(path string) weather.Series {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Opening %s: %v", path, err)
	}
	defer f.Close()

	records, err := (&ingest.WeatherParser{}).Parse(f)
	if err != nil {
		log.Fatalf("Parsing %s: %v", path, err)
	}
	if len(records) == 0 {
		log.Fatal("No weather data loaded")
	}
	return weather.NewSeries(records)
}

func loadMeter(path string) []model.ConsumptionRecord {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Opening %s: %v", path, err)
	}
	defer f.Close()

	records, err := (&ingest.MeterParser{}).Parse(f)
	if err != nil {
		log.Fatalf("Parsing %s: %v", path, err)
	}
	if len(records) == 0 {
		log.Fatal("No consumption data loaded")
	}
	return records
}
