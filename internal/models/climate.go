package models

// Station is a row of the station table. Only the identifier is served.
type Station struct {
	ID        int64
	StationID string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Measurement is a row of the measurement table.
type Measurement struct {
	ID            int64
	StationID     string
	Date          string   // ISO YYYY-MM-DD
	Precipitation *float64 // NULL when not recorded
	Tobs          float64
}

type PrecipitationReading struct {
	Date          string
	Precipitation *float64
}

type TemperatureObservation struct {
	Date string  `json:"date"`
	Tobs float64 `json:"tobs"`
}

// DailyTemperatureStats aggregates every station reporting on Date.
type DailyTemperatureStats struct {
	Date string  `json:"date"`
	TMin float64 `json:"TMIN"`
	TMax float64 `json:"TMAX"`
	TAvg float64 `json:"TAVG"`
}

// DateBounds holds the dataset-wide dates computed once at startup.
type DateBounds struct {
	Oldest        string `json:"oldest"`
	MostRecent    string `json:"mostRecent"`
	OneYearCutoff string `json:"oneYearCutoff"`
}
