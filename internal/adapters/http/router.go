// Package httpadapter exposes the document pipeline over HTTP:
// asynchronous submission plus synchronous classify/extract endpoints
// for callers that already hold the document bytes in storage.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
	"github.com/ringside-labs/docintel/internal/observability/metrics"
)

const backpressureWait = 50 * time.Millisecond

var (
	errInvalidJobPath     = errors.New("job id is required")
	errStorageKeyRequired = errors.New("storage_key is required")
)

// TrafficConfig bounds inbound load. Zero values disable the
// corresponding gate.
type TrafficConfig struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	jobs       ports.JobService
	classifier ports.DocumentClassifier
	extractor  ports.DataExtractor
	ready      func(context.Context) error
	metrics    *metrics.HTTPServerMetrics
	traffic    TrafficConfig
}

func NewRouter(
	jobs ports.JobService,
	classifier ports.DocumentClassifier,
	extractor ports.DataExtractor,
	ready func(context.Context) error,
	m *metrics.HTTPServerMetrics,
	traffic TrafficConfig,
) *Router {
	return &Router{
		jobs:       jobs,
		classifier: classifier,
		extractor:  extractor,
		ready:      ready,
		metrics:    m,
		traffic:    traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/documents/process", rt.submitDocument)
	mux.HandleFunc("/v1/jobs/", rt.getJob)
	mux.HandleFunc("/v1/extract/classify", rt.classifyDocument)
	mux.HandleFunc("/v1/extract/data", rt.extractData)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		DocumentID string            `json:"document_id"`
		StorageKey string            `json:"storage_key"`
		UploadedBy string            `json:"uploaded_by"`
		Metadata   map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}

	job, err := rt.jobs.Submit(r.Context(), ports.SubmitRequest{
		DocumentID: req.DocumentID,
		StorageKey: req.StorageKey,
		UploadedBy: req.UploadedBy,
		Metadata:   req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "parse path", errInvalidJobPath))
		return
	}

	job, err := rt.jobs.Status(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		DocumentID string `json:"document_id"`
		StorageKey string `json:"storage_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "validate request", errStorageKeyRequired))
		return
	}

	result, err := rt.classifier.ClassifyStored(r.Context(), req.DocumentID, req.StorageKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) extractData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		DocumentID   string `json:"document_id"`
		StorageKey   string `json:"storage_key"`
		DocumentType string `json:"document_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "validate request", errStorageKeyRequired))
		return
	}

	dt, ok := domain.ParseDocumentType(req.DocumentType)
	if !ok {
		writeError(w, domain.WrapError(domain.ErrInvalidDocumentType, "parse document type",
			fmt.Errorf("unrecognized type %q", req.DocumentType)))
		return
	}

	result, err := rt.extractor.ExtractStored(r.Context(), req.DocumentID, req.StorageKey, dt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]errorBody{"error": {
		Code:    "method_not_allowed",
		Message: "method not allowed",
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
