package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AppState struct {
	Service   *detections.Service
	Config    *config.Config
	Log       logrus.FieldLogger
	Debug     bool
	StartedAt time.Time
}

type ctxKey int

const requestIDKey ctxKey = iota

func newRouter(s *AppState) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.loggingMiddleware, corsMiddleware(s.Config.Server.CORSOrigin))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/detect", s.handleDetect).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/detect-file", s.handleDetect).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/detect-batch", s.handleDetectBatch).Methods(http.MethodPost, http.MethodOptions)
	s.addMonitoringRoutes(api)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodOptions)

	r.NotFoundHandler = corsMiddleware(s.Config.Server.CORSOrigin)(http.HandlerFunc(handleNotFound))
	r.MethodNotAllowedHandler = corsMiddleware(s.Config.Server.CORSOrigin)(http.HandlerFunc(handleMethodNotAllowed))
	return r
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/models", s.handleModels).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet, http.MethodOptions)
}

func corsMiddleware(origin string) mux.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware keeps a caller supplied X-Request-ID or assigns a
// new one, and echoes it on the response.
func (s *AppState) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *AppState) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.Log.WithFields(logrus.Fields{
			"request_id": requestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"took":       time.Since(start),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// sendError reports err with the status and code of its kind.
func sendError(w http.ResponseWriter, err error) {
	sendErrorResponse(w, detections.Code(err), err.Error(), detections.HTTPStatus(err))
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: MsgEndpointNotFound})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendErrorResponse(w, "method_not_allowed", r.Method+" not allowed", http.StatusMethodNotAllowed)
}
