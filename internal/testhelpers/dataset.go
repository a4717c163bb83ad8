// Package testhelpers builds seeded SQLite datasets for tests in other packages.
package testhelpers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kjstillabower/surfsup-climate-api/internal/dataset"
	"github.com/kjstillabower/surfsup-climate-api/internal/models"
)

// Schema mirrors the Hawaii climate dataset tables the service reads.
const Schema = `
CREATE TABLE station (
  id        INTEGER PRIMARY KEY,
  station   TEXT,
  name      TEXT,
  latitude  REAL,
  longitude REAL,
  elevation REAL
);
CREATE TABLE measurement (
  id      INTEGER PRIMARY KEY,
  station TEXT,
  date    TEXT,
  prcp    REAL,
  tobs    REAL
);
`

// Prcp returns a pointer for Measurement.Precipitation literals.
func Prcp(v float64) *float64 { return &v }

// WriteDataset creates a SQLite file under t.TempDir() holding the given rows,
// inserted in slice order. Returns the file path.
func WriteDataset(t *testing.T, stations []models.Station, measurements []models.Measurement) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "climate.sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close dataset: %v", err)
		}
	}()

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("exec schema: %v", err)
	}
	for _, s := range stations {
		if _, err := db.Exec(`INSERT INTO station(station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
			s.StationID, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			t.Fatalf("insert station %s: %v", s.StationID, err)
		}
	}
	for _, m := range measurements {
		if _, err := db.Exec(`INSERT INTO measurement(station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
			m.StationID, m.Date, m.Precipitation, m.Tobs); err != nil {
			t.Fatalf("insert measurement %s/%s: %v", m.StationID, m.Date, err)
		}
	}
	return path
}

// NewStore writes a dataset and opens it read-only the way the service does.
// The store is closed when the test ends.
func NewStore(t *testing.T, stations []models.Station, measurements []models.Measurement) *dataset.Store {
	t.Helper()
	path := WriteDataset(t, stations, measurements)
	store, err := dataset.Open(context.Background(), path, "", 2, nil)
	if err != nil {
		t.Fatalf("dataset.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SampleStations and SampleMeasurements form a small dataset spanning 2016-08-20..2017-08-23.
// USC00519281 has the most measurements.
var SampleStations = []models.Station{
	{StationID: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3},
	{StationID: "USC00519281", Name: "WAIHEE 837.5, HI US", Latitude: 21.45167, Longitude: -157.84889, Elevation: 32.9},
	{StationID: "USC00513117", Name: "KANEOHE 838.1, HI US", Latitude: 21.4234, Longitude: -157.8015, Elevation: 14.6},
}

var SampleMeasurements = []models.Measurement{
	{StationID: "USC00519397", Date: "2016-08-20", Precipitation: Prcp(0.01), Tobs: 80},
	{StationID: "USC00519281", Date: "2016-08-23", Precipitation: Prcp(1.79), Tobs: 77},
	{StationID: "USC00519397", Date: "2016-08-23", Precipitation: Prcp(0.00), Tobs: 81},
	{StationID: "USC00519281", Date: "2017-08-21", Precipitation: Prcp(0.56), Tobs: 76},
	{StationID: "USC00513117", Date: "2017-08-22", Precipitation: nil, Tobs: 79},
	{StationID: "USC00519281", Date: "2017-08-22", Precipitation: Prcp(0.5), Tobs: 75},
	{StationID: "USC00519281", Date: "2017-08-23", Precipitation: Prcp(0.45), Tobs: 76},
	{StationID: "USC00519397", Date: "2017-08-23", Precipitation: Prcp(0.0), Tobs: 81},
}
