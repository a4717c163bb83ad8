package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kjstillabower/surfsup-climate-api/internal/models"
	"github.com/kjstillabower/surfsup-climate-api/internal/observability"
)

// ErrNoData is returned when the measurement table has no rows to derive a result from.
var ErrNoData = errors.New("dataset: no measurements")

// Store runs the typed read queries against the climate dataset.
// Safe for concurrent use; database/sql pools the read-only connections.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore wraps an open database handle. logger may be nil.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Open opens the SQLite dataset read-only and verifies it is reachable.
// dsn, when non-empty, is passed to the driver as-is and path is ignored.
func Open(ctx context.Context, path, dsn string, maxOpenConns int, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		dsn = buildDSN(path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("dataset open: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dataset ping: %w", err)
	}
	return NewStore(db, logger), nil
}

// buildDSN turns a file path into a read-only URI. A path already starting with
// "file:" keeps its own parameters.
func buildDSN(path string) string {
	params := "mode=ro&_busy_timeout=5000"
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params
	}
	return "file:" + path + "?" + params
}

// Ping checks the dataset is still reachable. Used by the health handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool. Call during shutdown.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DateBounds returns the oldest and most recent measurement dates.
func (s *Store) DateBounds(ctx context.Context) (oldest, mostRecent string, err error) {
	defer s.observe("date_bounds", time.Now(), &err)

	var lo, hi sql.NullString
	if err = s.db.QueryRowContext(ctx, dateBoundsSQL).Scan(&lo, &hi); err != nil {
		return "", "", fmt.Errorf("query date bounds: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return "", "", ErrNoData
	}
	return lo.String, hi.String, nil
}

// PrecipitationSince returns every measurement on or after date in table order.
// Precipitation is nil where the dataset holds NULL.
func (s *Store) PrecipitationSince(ctx context.Context, date string) (readings []models.PrecipitationReading, err error) {
	defer s.observe("precipitation_since", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, precipitationSinceSQL, date)
	if err != nil {
		return nil, fmt.Errorf("query precipitation: %w", err)
	}
	defer rows.Close()

	readings = []models.PrecipitationReading{}
	for rows.Next() {
		var r models.PrecipitationReading
		var prcp sql.NullFloat64
		if err = rows.Scan(&r.Date, &prcp); err != nil {
			return nil, fmt.Errorf("scan precipitation: %w", err)
		}
		if prcp.Valid {
			v := prcp.Float64
			r.Precipitation = &v
		}
		readings = append(readings, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate precipitation: %w", err)
	}
	return readings, nil
}

// StationIDs returns one id per station row, duplicates included.
func (s *Store) StationIDs(ctx context.Context) (ids []string, err error) {
	defer s.observe("station_ids", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, stationIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return ids, nil
}

// MostActiveStationID returns the station with the most measurements.
func (s *Store) MostActiveStationID(ctx context.Context) (id string, err error) {
	defer s.observe("most_active_station", time.Now(), &err)

	var n int64
	err = s.db.QueryRowContext(ctx, mostActiveStationSQL).Scan(&id, &n)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoData
	}
	if err != nil {
		return "", fmt.Errorf("query most active station: %w", err)
	}
	return id, nil
}

// TemperatureObservationsSince returns stationID's observations on or after date in table order.
func (s *Store) TemperatureObservationsSince(ctx context.Context, stationID, date string) (obs []models.TemperatureObservation, err error) {
	defer s.observe("tobs_since", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, temperatureObservationsSinceSQL, stationID, date)
	if err != nil {
		return nil, fmt.Errorf("query temperature observations: %w", err)
	}
	defer rows.Close()

	obs = []models.TemperatureObservation{}
	for rows.Next() {
		var o models.TemperatureObservation
		if err = rows.Scan(&o.Date, &o.Tobs); err != nil {
			return nil, fmt.Errorf("scan temperature observation: %w", err)
		}
		obs = append(obs, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate temperature observations: %w", err)
	}
	return obs, nil
}

// TemperatureStatsInRange returns one row per distinct date in [start, end], ascending,
// with the min, max and mean observation across all stations that day.
func (s *Store) TemperatureStatsInRange(ctx context.Context, start, end string) (stats []models.DailyTemperatureStats, err error) {
	defer s.observe("temperature_stats", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, temperatureStatsInRangeSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("query temperature stats: %w", err)
	}
	defer rows.Close()

	stats = []models.DailyTemperatureStats{}
	for rows.Next() {
		var st models.DailyTemperatureStats
		if err = rows.Scan(&st.Date, &st.TMin, &st.TMax, &st.TAvg); err != nil {
			return nil, fmt.Errorf("scan temperature stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate temperature stats: %w", err)
	}
	return stats, nil
}

// observe records the query outcome. errp is read after the query returns.
func (s *Store) observe(query string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	status := "success"
	if *errp != nil && !errors.Is(*errp, ErrNoData) {
		status = "error"
	}
	observability.DatasetQueriesTotal.WithLabelValues(query, status).Inc()
	observability.DatasetQueryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
	s.logger.Debug("dataset query",
		zap.String("query", query),
		zap.String("status", status),
		zap.Duration("duration", elapsed))
}
