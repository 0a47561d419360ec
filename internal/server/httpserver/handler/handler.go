package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Handler-level error codes; map errors carry their own SM-MAP codes.
const (
	CodeBadRequest = "SM-HTTP-4000"
	CodeTooLarge   = "SM-HTTP-4130"
	CodeInternal   = "SM-SYS-5000"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Handler serves the key API.
type Handler struct {
	m       *shardmap.Map[string, []byte]
	log     logger.Logger
	mux     *http.ServeMux
	ready   func() bool
	started time.Time
}

// New creates a Handler for m. ready reports readiness; nil means always ready.
func New(m *shardmap.Map[string, []byte], log logger.Logger, ready func() bool) *Handler {
	if log == nil {
		log = logger.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}
	h := &Handler{
		m:       m,
		log:     log,
		mux:     http.NewServeMux(),
		ready:   ready,
		started: time.Now(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /v1/stats", h.handleStats)
	h.mux.HandleFunc("PUT /v1/keys/{key}", h.handleInsert)
	h.mux.HandleFunc("GET /v1/keys/{key}", h.handleGet)
	h.mux.HandleFunc("DELETE /v1/keys/{key}", h.handleDelete)
	h.mux.HandleFunc("POST /v1/keys/{key}/replace", h.handleReplace)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, nil))
}

// handleMapError converts map errors to HTTP responses.
func (h *Handler) handleMapError(w http.ResponseWriter, r *http.Request, err error) {
	var me *shardmap.Error
	if !errors.As(err, &me) {
		logger.L(r.Context()).Error("unexpected map error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
		return
	}
	h.writeError(w, r, StatusFor(err), me.Code, me.Message)
}

// StatusFor maps a map error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shardmap.ErrDoesNotExist), errors.Is(err, shardmap.ErrDropFailed):
		return http.StatusNotFound
	case errors.Is(err, shardmap.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, shardmap.ErrOutOfMemory):
		return http.StatusInsufficientStorage
	case errors.Is(err, shardmap.ErrInvalidBucketCount), errors.Is(err, shardmap.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeValue reads a ValueRequest body.
func (h *Handler) decodeValue(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ValueRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge, "request body too large")
			return nil, false
		}
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.Value == nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "value is required")
		return nil, false
	}
	value, err := DecodeValue(*req.Value, req.Encoding)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid value encoding")
		return nil, false
	}
	return value, true
}
