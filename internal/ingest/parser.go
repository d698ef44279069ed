package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"housesim/internal/model"
)

// WeatherParser parses hourly (or finer) weather CSV exports.
//
// Expected format:
//
//	timestamp,temperature,humidity,solar_radiation,wind_speed,pressure
//	2023-11-01T00:00:00Z,7.2,81,0,3.4,1012
type WeatherParser struct{}

func (p *WeatherParser) Parse(r io.Reader) ([]model.WeatherRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < 6 || header[0] != "timestamp" {
		return nil, fmt.Errorf("unexpected weather CSV header: %v", header)
	}

	var records []model.WeatherRecord
	lineNum := 1
	for {
		lineNum++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 fields, got %d", lineNum, len(rec))
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing timestamp %q: %w", lineNum, rec[0], err)
		}
		fields := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing field %q: %w", lineNum, rec[i+1], err)
			}
			fields[i] = v
		}

		records = append(records, model.WeatherRecord{
			Timestamp:  ts,
			TempC:      fields[0],
			Humidity:   fields[1],
			SolarWm2:   fields[2],
			WindMS:     fields[3],
			PressureMb: fields[4],
		})
	}
	return records, nil
}

// MeterParser parses metered fuel-consumption periods.
//
// Expected format:
//
//	start,end,consumption_kwh
//	2023-11-01T00:00:00Z,2023-12-01T00:00:00Z,843.5
type MeterParser struct{}

func (p *MeterParser) Parse(r io.Reader) ([]model.ConsumptionRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < 3 || header[0] != "start" {
		return nil, fmt.Errorf("unexpected meter CSV header: %v", header)
	}

	var records []model.ConsumptionRecord
	lineNum := 1
	for {
		lineNum++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", lineNum, len(rec))
		}

		start, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing start %q: %w", lineNum, rec[0], err)
		}
		end, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing end %q: %w", lineNum, rec[1], err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("line %d: period end %s not after start %s", lineNum, rec[1], rec[0])
		}
		kwh, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing consumption %q: %w", lineNum, rec[2], err)
		}

		records = append(records, model.ConsumptionRecord{Start: start, End: end, KWh: kwh})
	}
	return records, nil
}
