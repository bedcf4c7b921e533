package types

import "time"

// ReadingType identifies a Data.gov.sg real-time reading endpoint.
type ReadingType string

const (
	ReadingAirTemperature   ReadingType = "air-temperature"
	ReadingRelativeHumidity ReadingType = "relative-humidity"
	ReadingWindDirection    ReadingType = "wind-direction"
	ReadingWindSpeed        ReadingType = "wind-speed"
	ReadingRainfall         ReadingType = "rainfall"
	ReadingPSI              ReadingType = "psi"
	ReadingPM25             ReadingType = "pm25"
)

// StationReading is a single station's value for one metric, positioned for
// map rendering.
type StationReading struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Value     float64 `json:"value"`
}

// EnvReading is the nearest-source value for one metric at a query location.
type EnvReading struct {
	Value         float64 `json:"value"`
	Unit          string  `json:"unit"`
	StationDistKm float64 `json:"station_dist_km"`
	Source        string  `json:"source"`
}

// EnvironmentalContext bundles the nearest weather and air-quality readings
// for a location.
type EnvironmentalContext struct {
	Timestamp  time.Time             `json:"timestamp"`
	Lat        float64               `json:"lat"`
	Lng        float64               `json:"lng"`
	Weather    map[string]EnvReading `json:"weather"`
	AirQuality map[string]EnvReading `json:"air_quality"`
}
