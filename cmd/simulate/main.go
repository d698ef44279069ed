package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"housesim/internal/ingest"
	"housesim/internal/model"
	"housesim/internal/network"
	"housesim/internal/simulate"
	"housesim/internal/weather"
)

func main() {
	weatherPath := flag.String("weather", "weather.csv", "weather CSV file")
	scale := flag.Float64("scale", 1.0, "building scale factor")
	ach := flag.Float64("ach", 4.0, "air changes per hour")
	uValue := flag.Float64("u-value", 1.5, "envelope U-value (W/m²K)")
	boiler := flag.Float64("boiler", 24000, "boiler power (W)")
	setpoint := flag.Float64("setpoint", 20, "thermostat setpoint (°C)")
	dhw := flag.Float64("dhw", 0, "daily hot water usage (kWh)")
	dtMinutes := flag.Float64("dt", 3, "timestep (minutes)")
	strategy := flag.String("strategy", "explicit", "integration strategy: explicit, midpoint, implicit")
	useBait := flag.Bool("bait", false, "drive the simulation with the BAIT comfort index")
	retrofits := flag.String("interventions", "", "comma-separated retrofits: loft, cladding, double_glazing")
	surveyPath := flag.String("survey", "", "optional JSON file of surveyed envelope elements, overrides -scale/-u-value")
	seed := flag.Uint64("seed", 1, "random seed for hot-water draws")
	outPath := flag.String("out", "", "optional CSV output for the frame series")
	flag.Parse()

	series := loadWeather(*weatherPath)
	tr, ok := series.Range()
	if !ok {
		log.Fatal("No weather data loaded")
	}
	log.Printf("Weather: %s to %s (%d records)",
		tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"), series.Len())

	if *useBait {
		adjusted, err := weather.ApplyBait(series, weather.DefaultBaitCoefficients())
		if err != nil {
			log.Fatalf("BAIT transform: %v", err)
		}
		series = adjusted
	}

	var tags []model.Intervention
	if *retrofits != "" {
		for _, s := range strings.Split(*retrofits, ",") {
			tags = append(tags, model.Intervention(strings.TrimSpace(s)))
		}
	}

	var net *network.Network
	if *surveyPath != "" {
		net = buildFromSurvey(*surveyPath, *ach, *boiler, *setpoint, tags)
	} else {
		result := model.ThermalModelResult{
			ScaleFactor: *scale,
			ACH:         *ach,
			UValue:      *uValue,
			BoilerW:     *boiler,
			SetpointC:   *setpoint,
		}
		if len(tags) > 0 {
			modified, err := network.ApplyInterventions(result, tags)
			if err != nil {
				log.Fatalf("Applying interventions: %v", err)
			}
			log.Printf("Retrofits %s: U %.2f -> %.2f W/m²K, ACH %.2f -> %.2f",
				*retrofits, result.UValue, modified.UValue, result.ACH, modified.ACH)
			result = modified
		}
		built, err := network.BuildParametric(network.FromResult(result))
		if err != nil {
			log.Fatalf("Building network: %v", err)
		}
		net = built
	}

	cfg := simulate.Config{
		Start:    tr.Start,
		End:      tr.End,
		Dt:       time.Duration(*dtMinutes * float64(time.Minute)),
		Strategy: simulate.Strategy(*strategy),
	}
	if *dhw > 0 {
		cfg.DHW = simulate.NewDHWProfile(*dhw, *seed)
	}

	frames, err := simulate.Run(net, series, cfg)
	if err != nil {
		log.Fatalf("Simulation: %v", err)
	}

	totalKWh := simulate.HeatingKWh(frames, tr.Start, tr.End)
	days := tr.End.Sub(tr.Start).Hours() / 24

	fmt.Println()
	fmt.Println("Forward Simulation")
	fmt.Printf("  Strategy:       %s\n", cfg.Strategy)
	fmt.Printf("  Steps:          %d at %.1f min\n", len(frames), *dtMinutes)
	fmt.Printf("  Heating:        %.1f kWh (%.2f kWh/day)\n", totalKWh, totalKWh/days)
	fmt.Printf("  Final room:     %.2f °C\n", frames[len(frames)-1].InternalTempC())

	if *outPath != "" {
		if err := writeFrames(*outPath, frames); err != nil {
			log.Fatalf("Writing %s: %v", *outPath, err)
		}
		log.Printf("Wrote %d frames to %s", len(frames), *outPath)
	}
}

func buildFromSurvey(path string, ach, boilerW, setpointC float64, tags []model.Intervention) *network.Network {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Reading %s: %v", path, err)
	}
	var elements []network.SurveyElement
	if err := json.Unmarshal(data, &elements); err != nil {
		log.Fatalf("Parsing %s: %v", path, err)
	}

	net, err := network.BuildSurveyed(elements, ach, boilerW, setpointC)
	if err != nil {
		log.Fatalf("Building surveyed network: %v", err)
	}
	if len(tags) > 0 {
		net, err = network.ApplyToNetwork(net, tags)
		if err != nil {
			log.Fatalf("Applying interventions: %v", err)
		}
	}
	return net
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
	return weather.NewSeries(records)
}

func writeFrames(path string, frames []simulate.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "internal_temp_c", "external_temp_c", "heating_kwh"}); err != nil {
		return err
	}
	for _, fr := range frames {
		row := []string{
			fr.Time.Format(time.RFC3339),
			strconv.FormatFloat(fr.InternalTempC(), 'f', 3, 64),
			strconv.FormatFloat(fr.TempC[model.ExternalAir], 'f', 3, 64),
			strconv.FormatFloat(fr.HeatingJ/3.6e6, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
