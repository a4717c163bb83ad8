package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/surfsup-climate-api/internal/cache"
	"github.com/kjstillabower/surfsup-climate-api/internal/dataset"
	"github.com/kjstillabower/surfsup-climate-api/internal/models"
	"github.com/kjstillabower/surfsup-climate-api/internal/testhelpers"
	"github.com/kjstillabower/surfsup-climate-api/internal/validation"
)

type mockAccessor struct {
	mu        sync.Mutex
	calls     map[string]int
	err       error
	stations  []string
	active    string
	stats     []models.DailyTemperatureStats
	statsArgs [2]string
}

func (m *mockAccessor) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *mockAccessor) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockAccessor) PrecipitationSince(ctx context.Context, date string) ([]models.PrecipitationReading, error) {
	m.record("precipitation")
	return []models.PrecipitationReading{}, m.err
}

func (m *mockAccessor) StationIDs(ctx context.Context) ([]string, error) {
	m.record("stations")
	if m.err != nil {
		return nil, m.err
	}
	return m.stations, nil
}

func (m *mockAccessor) MostActiveStationID(ctx context.Context) (string, error) {
	m.record("active")
	return m.active, m.err
}

func (m *mockAccessor) TemperatureObservationsSince(ctx context.Context, stationID, date string) ([]models.TemperatureObservation, error) {
	m.record("tobs")
	return []models.TemperatureObservation{}, m.err
}

func (m *mockAccessor) TemperatureStatsInRange(ctx context.Context, start, end string) ([]models.DailyTemperatureStats, error) {
	m.record("stats")
	m.mu.Lock()
	m.statsArgs = [2]string{start, end}
	m.mu.Unlock()
	return m.stats, m.err
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

var sampleBounds = models.DateBounds{Oldest: "2016-08-20", MostRecent: "2017-08-23", OneYearCutoff: "2016-08-23"}

func newSampleService(t *testing.T) *ClimateService {
	t.Helper()
	store := testhelpers.NewStore(t, testhelpers.SampleStations, testhelpers.SampleMeasurements)
	bounds, err := dataset.LoadBounds(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadBounds() error = %v", err)
	}
	return NewClimateService(store, bounds, cache.NewInMemoryCache(), time.Minute, time.Second)
}

func TestPrecipitation_LastRowWinsWithinYear(t *testing.T) {
	svc := newSampleService(t)

	got, err := svc.Precipitation(context.Background())
	if err != nil {
		t.Fatalf("Precipitation() error = %v", err)
	}
	want := map[string]*float64{
		"2016-08-23": testhelpers.Prcp(0.00),
		"2017-08-21": testhelpers.Prcp(0.56),
		"2017-08-22": testhelpers.Prcp(0.5),
		"2017-08-23": testhelpers.Prcp(0.0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Precipitation() = %v, want %v", got, want)
	}
	for date := range got {
		if date < svc.Bounds().OneYearCutoff {
			t.Errorf("date %s precedes cutoff %s", date, svc.Bounds().OneYearCutoff)
		}
	}
}

func TestPrecipitation_NullPreserved(t *testing.T) {
	store := testhelpers.NewStore(t, nil, []models.Measurement{
		{StationID: "S1", Date: "2017-08-22", Precipitation: testhelpers.Prcp(0.3), Tobs: 70},
		{StationID: "S2", Date: "2017-08-22", Precipitation: nil, Tobs: 71},
		{StationID: "S1", Date: "2017-08-23", Precipitation: testhelpers.Prcp(0.02), Tobs: 72},
	})
	bounds, err := dataset.LoadBounds(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadBounds() error = %v", err)
	}
	svc := NewClimateService(store, bounds, cache.NewInMemoryCache(), time.Minute, 0)

	for i := 0; i < 2; i++ { // second pass is served from cache
		got, err := svc.Precipitation(context.Background())
		if err != nil {
			t.Fatalf("Precipitation() error = %v", err)
		}
		v, ok := got["2017-08-22"]
		if !ok || v != nil {
			t.Errorf("pass %d: 2017-08-22 = %v (present %v), want null", i, v, ok)
		}
	}
}

func TestStations(t *testing.T) {
	got, err := newSampleService(t).Stations(context.Background())
	if err != nil {
		t.Fatalf("Stations() error = %v", err)
	}
	want := []string{"USC00519397", "USC00519281", "USC00513117"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Stations() = %v, want %v", got, want)
	}
}

func TestTemperatureObservations_MostActiveStation(t *testing.T) {
	got, err := newSampleService(t).TemperatureObservations(context.Background())
	if err != nil {
		t.Fatalf("TemperatureObservations() error = %v", err)
	}
	want := []models.TemperatureObservation{
		{Date: "2016-08-23", Tobs: 77},
		{Date: "2017-08-21", Tobs: 76},
		{Date: "2017-08-22", Tobs: 75},
		{Date: "2017-08-23", Tobs: 76},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TemperatureObservations() = %+v, want %+v", got, want)
	}
}

func TestTemperatureStats(t *testing.T) {
	svc := newSampleService(t)

	got, err := svc.TemperatureStats(context.Background(), "2017-08-22", "")
	if err != nil {
		t.Fatalf("TemperatureStats() error = %v", err)
	}
	want := []models.DailyTemperatureStats{
		{Date: "2017-08-22", TMin: 75, TMax: 79, TAvg: 77},
		{Date: "2017-08-23", TMin: 76, TMax: 81, TAvg: 78.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TemperatureStats() = %+v, want %+v", got, want)
	}

	explicit, err := svc.TemperatureStats(context.Background(), "2017-08-22", svc.Bounds().MostRecent)
	if err != nil {
		t.Fatalf("TemperatureStats(explicit end) error = %v", err)
	}
	if !reflect.DeepEqual(got, explicit) {
		t.Errorf("start-only %+v != explicit end %+v", got, explicit)
	}
}

func TestTemperatureStats_EmptyRangeIsNotAnError(t *testing.T) {
	got, err := newSampleService(t).TemperatureStats(context.Background(), "2017-01-01", "2017-01-31")
	if err != nil {
		t.Fatalf("TemperatureStats() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("TemperatureStats() = %#v, want empty list", got)
	}
}

func TestTemperatureStats_ValidationSkipsQuery(t *testing.T) {
	m := &mockAccessor{}
	svc := NewClimateService(m, sampleBounds, nil, time.Minute, 0)

	_, err := svc.TemperatureStats(context.Background(), "2017-08-23", "2017-08-22")
	if !errors.Is(err, validation.ErrEndBeforeStart) {
		t.Fatalf("TemperatureStats() error = %v, want ErrEndBeforeStart", err)
	}
	if n := m.count("stats"); n != 0 {
		t.Errorf("dataset queried %d times for invalid range, want 0", n)
	}
}

func TestTemperatureStats_NormalizesDates(t *testing.T) {
	m := &mockAccessor{stats: []models.DailyTemperatureStats{}}
	svc := NewClimateService(m, sampleBounds, nil, time.Minute, 0)

	if _, err := svc.TemperatureStats(context.Background(), "2017-8-1", "2017-8-2"); err != nil {
		t.Fatalf("TemperatureStats() error = %v", err)
	}
	if m.statsArgs != [2]string{"2017-08-01", "2017-08-02"} {
		t.Errorf("query args = %v, want ISO dates", m.statsArgs)
	}
}

func TestCached_HitSkipsDataset(t *testing.T) {
	m := &mockAccessor{stations: []string{"S1", "S2"}}
	svc := NewClimateService(m, sampleBounds, cache.NewInMemoryCache(), time.Minute, 0)

	for i := 0; i < 3; i++ {
		got, err := svc.Stations(context.Background())
		if err != nil {
			t.Fatalf("Stations() error = %v", err)
		}
		if !reflect.DeepEqual(got, []string{"S1", "S2"}) {
			t.Errorf("Stations() = %v", got)
		}
	}
	if n := m.count("stations"); n != 1 {
		t.Errorf("dataset queried %d times, want 1", n)
	}
}

func TestCached_CacheFailureFallsThrough(t *testing.T) {
	m := &mockAccessor{stations: []string{"S1"}}
	svc := NewClimateService(m, sampleBounds, failingCache{}, time.Minute, 0)

	got, err := svc.Stations(context.Background())
	if err != nil {
		t.Fatalf("Stations() error = %v, want fallthrough to dataset", err)
	}
	if !reflect.DeepEqual(got, []string{"S1"}) {
		t.Errorf("Stations() = %v, want [S1]", got)
	}
}

func TestCached_DatasetErrorNotCached(t *testing.T) {
	m := &mockAccessor{err: errors.New("disk I/O error")}
	c := cache.NewInMemoryCache()
	svc := NewClimateService(m, sampleBounds, c, time.Minute, time.Second)

	_, err := svc.Stations(context.Background())
	if err == nil || !errors.Is(err, m.err) {
		t.Fatalf("Stations() error = %v, want wrapped dataset error", err)
	}
	if _, ok, _ := c.Get(context.Background(), "stations"); ok {
		t.Error("failed result was cached")
	}
}

func TestTemperatureObservations_NoData(t *testing.T) {
	m := &mockAccessor{err: dataset.ErrNoData}
	svc := NewClimateService(m, sampleBounds, nil, time.Minute, 0)

	if _, err := svc.TemperatureObservations(context.Background()); !errors.Is(err, dataset.ErrNoData) {
		t.Errorf("TemperatureObservations() error = %v, want ErrNoData", err)
	}
	if n := m.count("tobs"); n != 0 {
		t.Errorf("observations queried %d times without a station, want 0", n)
	}
}
