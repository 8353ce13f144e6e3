package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cvrisk/db"
	"cvrisk/ml"
	"cvrisk/monitoring"
	"cvrisk/risk"
	"cvrisk/store"
)

// AuditLog is the subset of db.AuditLog the handlers use.
type AuditLog interface {
	RecordEvaluation(ctx context.Context, ev db.Evaluation) error
	Summary(ctx context.Context) (*db.Summary, error)
}

// Deps are the collaborators wired in by main. Evaluator and Store are
// required; the rest may be nil.
type Deps struct {
	Evaluator *risk.Evaluator
	Store     *store.Store
	Stats     *monitoring.Stats
	Hub       *monitoring.Hub
	Audit     AuditLog
	Artifact  *ml.Artifact
	// LoadError explains why the evaluator has no model.
	LoadError error
	Logger    *zap.Logger
	Now       func() time.Time
}

type Handlers struct {
	evaluator *risk.Evaluator
	store     *store.Store
	stats     *monitoring.Stats
	hub       *monitoring.Hub
	audit     AuditLog
	artifact  *ml.Artifact
	loadErr   error
	log       *zap.Logger
	now       func() time.Time
	pages     *template.Template
}

func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		evaluator: d.Evaluator,
		store:     d.Store,
		stats:     d.Stats,
		hub:       d.Hub,
		audit:     d.Audit,
		artifact:  d.Artifact,
		loadErr:   d.LoadError,
		log:       d.Logger,
		now:       d.Now,
		pages:     pages,
	}
	if h.evaluator == nil {
		h.evaluator = risk.NewEvaluator(nil)
	}
	if h.stats == nil {
		h.stats = monitoring.NewStats()
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /calculate", h.handleCalculate)
	mux.HandleFunc("GET /export/{id}", h.handleExport)

	mux.HandleFunc("POST /api/risk", h.handleRiskCreate)
	mux.HandleFunc("GET /api/risk/{id}", h.handleRiskGet)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/monitor/stats", h.handleMonitorStats)
	mux.HandleFunc("GET /api/ws/monitor", h.handleMonitorWS)
}

// evaluate runs one evaluation and records its outcome in the counters,
// the live feed, the audit log and the store.
func (h *Handlers) evaluate(ctx context.Context, record ml.PatientRecord) (*risk.Assessment, error) {
	start := time.Now()
	a, err := h.evaluator.Evaluate(ctx, record)
	latency := time.Since(start)
	if err != nil {
		h.recordFailure(ctx, err, latency)
		return nil, err
	}

	h.store.Put(a)
	h.stats.RecordEvaluation(a.Category, latency)
	if h.hub != nil {
		h.hub.Broadcast(monitoring.Event{
			Type: monitoring.EventEvaluation,
			Data: monitoring.EvaluationEvent{
				AssessmentID: a.ID,
				Category:     string(a.Category),
				LatencyMS:    latencyMS(latency),
			},
		})
	}
	h.auditEvaluation(ctx, db.Evaluation{
		AssessmentID: a.ID,
		Status:       db.StatusOK,
		Category:     string(a.Category),
		Latency:      latency,
		EvaluatedAt:  a.EvaluatedAt,
	})
	h.log.Info("evaluation",
		zap.String("request_id", GetRequestID(ctx)),
		zap.String("assessment_id", a.ID),
		zap.String("category", string(a.Category)),
		zap.Duration("latency", latency),
	)
	return a, nil
}

// recordFailure is also used for submissions rejected before evaluation,
// so every failed attempt is counted once.
func (h *Handlers) recordFailure(ctx context.Context, err error, latency time.Duration) {
	stage := failureStage(err)
	h.stats.RecordFailure(stage)
	if h.hub != nil {
		h.hub.Broadcast(monitoring.Event{
			Type: monitoring.EventEvaluationFailed,
			Data: monitoring.EvaluationEvent{Stage: stage, LatencyMS: latencyMS(latency)},
		})
	}
	h.auditEvaluation(ctx, db.Evaluation{
		Status:      db.StatusFailed,
		Stage:       stage,
		Latency:     latency,
		EvaluatedAt: h.now(),
	})
	h.log.Warn("evaluation failed",
		zap.String("request_id", GetRequestID(ctx)),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

func (h *Handlers) auditEvaluation(ctx context.Context, ev db.Evaluation) {
	if h.audit == nil {
		return
	}
	// The audit row must not be lost because the request timed out.
	if err := h.audit.RecordEvaluation(context.WithoutCancel(ctx), ev); err != nil {
		h.log.Error("audit evaluation", zap.Error(err))
	}
}

func failureStage(err error) string {
	var evalErr *risk.EvaluationError
	switch {
	case errors.As(err, &evalErr):
		return evalErr.Stage
	case errors.Is(err, risk.ErrModelUnavailable):
		return monitoring.StageUnavailable
	default:
		return risk.StageValidate
	}
}

// statusFor maps an evaluation error to an HTTP status.
func statusFor(err error) int {
	var evalErr *risk.EvaluationError
	switch {
	case errors.Is(err, risk.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &evalErr) && evalErr.Stage == risk.StageValidate:
		return http.StatusBadRequest
	case errors.Is(err, ml.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func latencyMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
