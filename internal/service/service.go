package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/surfsup-climate-api/internal/cache"
	"github.com/kjstillabower/surfsup-climate-api/internal/models"
	"github.com/kjstillabower/surfsup-climate-api/internal/observability"
	"github.com/kjstillabower/surfsup-climate-api/internal/validation"
)

// Accessor is the read interface over the climate dataset.
type Accessor interface {
	PrecipitationSince(ctx context.Context, date string) ([]models.PrecipitationReading, error)
	StationIDs(ctx context.Context) ([]string, error)
	MostActiveStationID(ctx context.Context) (string, error)
	TemperatureObservationsSince(ctx context.Context, stationID, date string) ([]models.TemperatureObservation, error)
	TemperatureStatsInRange(ctx context.Context, start, end string) ([]models.DailyTemperatureStats, error)
}

// ClimateService answers the API's queries from the dataset using the startup
// date bounds. Results are cached cache-aside; the dataset never changes while
// the process runs, so entries only expire by TTL.
type ClimateService struct {
	store     Accessor
	bounds    models.DateBounds
	cache     cache.Cache
	ttl       time.Duration
	coalescer *requestCoalescer // nil when coalescing is disabled
}

// NewClimateService creates a ClimateService. A nil cache disables caching;
// coalesceTimeout of 0 disables request coalescing.
func NewClimateService(store Accessor, bounds models.DateBounds, c cache.Cache, ttl, coalesceTimeout time.Duration) *ClimateService {
	if c == nil {
		c = cache.NoopCache{}
	}
	var coalescer *requestCoalescer
	if coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	return &ClimateService{
		store:     store,
		bounds:    bounds,
		cache:     c,
		ttl:       ttl,
		coalescer: coalescer,
	}
}

// Bounds returns the dataset date bounds computed at startup.
func (s *ClimateService) Bounds() models.DateBounds {
	return s.bounds
}

// Precipitation maps each date in the last year of data to its precipitation.
// When several stations report the same date, the last row in table order wins.
func (s *ClimateService) Precipitation(ctx context.Context) (map[string]*float64, error) {
	return cached(ctx, s, "precipitation", func(ctx context.Context) (map[string]*float64, error) {
		readings, err := s.store.PrecipitationSince(ctx, s.bounds.OneYearCutoff)
		if err != nil {
			return nil, err
		}
		out := make(map[string]*float64, len(readings))
		for _, r := range readings {
			out[r.Date] = r.Precipitation
		}
		return out, nil
	})
}

// Stations returns every station id in table order.
func (s *ClimateService) Stations(ctx context.Context) ([]string, error) {
	return cached(ctx, s, "stations", s.store.StationIDs)
}

// TemperatureObservations returns the last year of observations for the station
// with the most measurements.
func (s *ClimateService) TemperatureObservations(ctx context.Context) ([]models.TemperatureObservation, error) {
	return cached(ctx, s, "tobs", func(ctx context.Context) ([]models.TemperatureObservation, error) {
		stationID, err := s.store.MostActiveStationID(ctx)
		if err != nil {
			return nil, err
		}
		observability.LoggerFromContext(ctx).Debug("most active station", zap.String("station", stationID))
		return s.store.TemperatureObservationsSince(ctx, stationID, s.bounds.OneYearCutoff)
	})
}

// TemperatureStats returns daily TMIN/TMAX/TAVG for [start, end]. end == "" means the
// most recent date. Invalid input yields a *validation.RangeError and no query.
func (s *ClimateService) TemperatureStats(ctx context.Context, start, end string) ([]models.DailyTemperatureStats, error) {
	r, err := validation.ValidateRange(start, end, s.bounds)
	if err != nil {
		return nil, err
	}
	key := "stats:" + r.Start + ":" + r.End
	return cached(ctx, s, key, func(ctx context.Context) ([]models.DailyTemperatureStats, error) {
		return s.store.TemperatureStatsInRange(ctx, r.Start, r.End)
	})
}

// cached returns the value for key from the cache, or runs fetch and stores its
// JSON encoding. Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *ClimateService, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	logger := observability.LoggerFromContext(ctx)

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			observability.CacheHitsTotal.WithLabelValues("response").Inc()
			logger.Debug("cache hit", zap.String("key", key))
			return v, nil
		}
		logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	load := func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	var shared bool
	if s.coalescer != nil {
		raw, shared, err = s.coalescer.GetOrDo(ctx, key, load)
	} else {
		raw, err = load(ctx)
	}
	if err != nil {
		return zero, fmt.Errorf("%s: %w", key, err)
	}
	if shared {
		observability.RequestCoalescingHitsTotal.Inc()
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("%s: decode: %w", key, err)
	}
	if !shared {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
