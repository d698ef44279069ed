package model

import "time"

// ElementTag identifies one lumped element of the building's thermal circuit.
type ElementTag string

const (
	InternalAir   ElementTag = "internal_air"
	WallNorth     ElementTag = "wall_north"
	WallEast      ElementTag = "wall_east"
	WallSouth     ElementTag = "wall_south"
	WallWest      ElementTag = "wall_west"
	WindowNorth   ElementTag = "window_north"
	WindowSouth   ElementTag = "window_south"
	Floor         ElementTag = "floor"
	Roof          ElementTag = "roof"
	ExternalAir   ElementTag = "external_air"
	Ground        ElementTag = "ground"
	HeatSource    ElementTag = "heat_source"
	HeatingSystem ElementTag = "heating_system"
)

// ElementInfo holds a display name for an element tag.
type ElementInfo struct {
	Name string
}

// ElementCatalog maps every known ElementTag to its display name.
var ElementCatalog = map[ElementTag]ElementInfo{
	InternalAir:   {Name: "Internal Air"},
	WallNorth:     {Name: "North Wall"},
	WallEast:      {Name: "East Wall"},
	WallSouth:     {Name: "South Wall"},
	WallWest:      {Name: "West Wall"},
	WindowNorth:   {Name: "North Window"},
	WindowSouth:   {Name: "South Window"},
	Floor:         {Name: "Floor"},
	Roof:          {Name: "Roof"},
	ExternalAir:   {Name: "External Air"},
	Ground:        {Name: "Ground"},
	HeatSource:    {Name: "Heat Source"},
	HeatingSystem: {Name: "Heating System"},
}

// WeatherRecord is one observation of outdoor conditions.
type WeatherRecord struct {
	Timestamp  time.Time
	TempC      float64 // °C
	Humidity   float64 // %
	SolarWm2   float64 // W/m²
	WindMS     float64 // m/s
	PressureMb float64 // mbar
}

// ConsumptionRecord is one metered fuel-consumption period.
type ConsumptionRecord struct {
	Start time.Time
	End   time.Time
	KWh   float64
}

// Days returns the period length in days.
func (c ConsumptionRecord) Days() float64 {
	return c.End.Sub(c.Start).Hours() / 24
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ThermalModelResult is a calibrated parameter set. It is an immutable value:
// interventions and refits always produce a fresh copy.
type ThermalModelResult struct {
	ScaleFactor float64 `json:"scale_factor"`
	ACH         float64 `json:"ach"`
	UValue      float64 `json:"u_value"`
	BoilerW     float64 `json:"boiler_power_w"`
	SetpointC   float64 `json:"setpoint_c"`
	DHWDailyKWh float64 `json:"dhw_daily_kwh"`
}

// BaitCoefficients holds the fitted comfort-index and degree-day regression
// parameters. The comfort coefficients (solar gain through threshold) are held
// fixed during the regression; heating/DHW split and R² come out of it.
type BaitCoefficients struct {
	SolarGain          float64 `json:"solar_gain"`
	WindChill          float64 `json:"wind_chill"`
	HumidityDiscomfort float64 `json:"humidity_discomfort"`
	Smoothing          float64 `json:"smoothing"`
	Threshold          float64 `json:"threshold"`
	HeatingKWh         float64 `json:"heating_kwh"`
	DHWKWh             float64 `json:"dhw_kwh"`
	R2                 float64 `json:"r2_score"`
}

// Intervention is a fabric retrofit applied to a calibrated model.
type Intervention string

const (
	InterventionLoft          Intervention = "loft"
	InterventionCladding      Intervention = "cladding"
	InterventionDoubleGlazing Intervention = "double_glazing"
)
