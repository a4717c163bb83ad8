package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/surfsup-climate-api/internal/lifecycle"
	"github.com/kjstillabower/surfsup-climate-api/internal/observability"
	"github.com/kjstillabower/surfsup-climate-api/internal/service"
	"github.com/kjstillabower/surfsup-climate-api/internal/traffic"
	"github.com/kjstillabower/surfsup-climate-api/internal/validation"
)

const homePage = `<strong>Welcome to the SurfsUp API!</strong><br/><br/>` +
	`<u>Available routes:</u><br/><br/>` +
	`/api/v1.0/precipitation<br/><br/>` +
	`/api/v1.0/stations<br/><br/>` +
	`/api/v1.0/tobs<br/><br/>` +
	`/api/v1.0/&ltstart&gt &nbsp <strong>or</strong> &nbsp /api/v1.0/&ltstart&gt/&ltend&gt<br/><br/>` +
	`**<strong>Note:</strong> &ltstart&gt and &ltend&gt are dates formatted YYYY-MM-DD**`

// HealthConfig holds the dependency checks run by the health handler.
type HealthConfig struct {
	// DatasetPing checks the dataset connection. Required.
	DatasetPing func(ctx context.Context) error
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// Outcomes, when set, receives every data-route result; the status is degraded while
	// the error rate is at or above DegradedErrorPct over at least DegradedMinSamples requests.
	Outcomes           *traffic.Tracker
	DegradedMinSamples int
	DegradedErrorPct   float64
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	climate      *service.ClimateService
	healthConfig *HealthConfig
	logger       *zap.Logger
	// errorStatusCodes answers validation failures with 400 instead of 200.
	errorStatusCodes bool

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(climate *service.ClimateService, healthConfig *HealthConfig, logger *zap.Logger, errorStatusCodes bool) *Handler {
	return &Handler{
		climate:          climate,
		healthConfig:     healthConfig,
		logger:           logger,
		errorStatusCodes: errorStatusCodes,
	}
}

// Register binds every route to router. Static /api/v1.0 routes are registered
// before the date routes so they take precedence.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/", h.GetHome).Methods("GET")
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	api := router.PathPrefix("/api/v1.0").Subrouter()
	api.HandleFunc("/precipitation", h.GetPrecipitation).Methods("GET")
	api.HandleFunc("/stations", h.GetStations).Methods("GET")
	api.HandleFunc("/tobs", h.GetTemperatureObservations).Methods("GET")
	api.HandleFunc("/{start}", h.GetTemperatureStats).Methods("GET")
	api.HandleFunc("/{start}/{end}", h.GetTemperatureStats).Methods("GET")
}

// GetHome handles GET /.
func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(homePage))
}

// GetPrecipitation handles GET /api/v1.0/precipitation.
func (h *Handler) GetPrecipitation(w http.ResponseWriter, r *http.Request) {
	result, err := h.climate.Precipitation(r.Context())
	h.recordOutcome(err)
	if err != nil {
		writeDatasetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetStations handles GET /api/v1.0/stations.
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	result, err := h.climate.Stations(r.Context())
	h.recordOutcome(err)
	if err != nil {
		writeDatasetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetTemperatureObservations handles GET /api/v1.0/tobs.
func (h *Handler) GetTemperatureObservations(w http.ResponseWriter, r *http.Request) {
	result, err := h.climate.TemperatureObservations(r.Context())
	h.recordOutcome(err)
	if err != nil {
		writeDatasetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetTemperatureStats handles GET /api/v1.0/{start} and GET /api/v1.0/{start}/{end}.
// Rejected ranges answer with a single-element error list.
func (h *Handler) GetTemperatureStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.climate.TemperatureStats(r.Context(), vars["start"], vars["end"])
	if err != nil {
		if re, ok := validation.AsRangeError(err); ok {
			observability.ValidationRejectsTotal.WithLabelValues(re.Reason()).Inc()
			observability.LoggerFromContext(r.Context()).Debug("date range rejected",
				zap.String("start", vars["start"]),
				zap.String("end", vars["end"]),
				zap.String("reason", re.Reason()))
			status := http.StatusOK
			if h.errorStatusCodes {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, re.Body())
			return
		}
		h.recordOutcome(err)
		writeDatasetError(w, r, err)
		return
	}
	h.recordOutcome(nil)
	writeJSON(w, http.StatusOK, result)
}

// recordOutcome feeds the error-rate window. Validation rejects are not recorded.
func (h *Handler) recordOutcome(err error) {
	if h.healthConfig == nil || h.healthConfig.Outcomes == nil {
		return
	}
	if err != nil {
		h.healthConfig.Outcomes.RecordError()
		return
	}
	h.healthConfig.Outcomes.RecordSuccess()
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, statusCode, checks := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    status,
		"service":   "surfsup-climate-api",
		"version":   "dev",
		"checks":    checks,
		"dataset":   h.climate.Bounds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, dataset reachability, cache, error rate.
// An unreachable cache or a high error rate only degrades the status.
func (h *Handler) computeHealthStatus(ctx context.Context) (string, int, map[string]string) {
	checks := make(map[string]string)
	if lifecycle.IsShuttingDown() {
		return "shutting-down", http.StatusServiceUnavailable, checks
	}

	status, code := "healthy", http.StatusOK
	if h.healthConfig != nil && h.healthConfig.DatasetPing != nil {
		if err := h.healthConfig.DatasetPing(ctx); err != nil {
			checks["dataset"] = "unhealthy"
			status, code = "unhealthy", http.StatusServiceUnavailable
		} else {
			checks["dataset"] = "healthy"
		}
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		}
	}
	if h.healthConfig != nil && h.healthConfig.Outcomes != nil {
		if h.healthConfig.Outcomes.Degraded(h.healthConfig.DegradedMinSamples, h.healthConfig.DegradedErrorPct) {
			checks["errorRate"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["errorRate"] = "healthy"
		}
	}
	return status, code, checks
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeDatasetError writes a 500 for a failed query and logs the cause with the request's logger.
func writeDatasetError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("dataset query failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "DATASET_UNAVAILABLE", "Unable to read climate data")
}
