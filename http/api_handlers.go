package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cvrisk/db"
	"cvrisk/ml"
	"cvrisk/monitoring"
	"cvrisk/risk"
)

type riskResponse struct {
	Assessment *risk.Assessment `json:"assessment"`
	Charts     risk.Charts      `json:"charts"`
	ExportURL  string           `json:"export_url"`
}

type evaluationErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type modelResponse struct {
	Metadata     ml.ModelMetadata `json:"metadata"`
	FeatureNames []string         `json:"feature_names"`
	HorizonDays  float64          `json:"horizon_days"`
	Artifact     *ml.Artifact     `json:"artifact,omitempty"`
}

type statsResponse struct {
	Stats monitoring.Snapshot `json:"stats"`
	Audit *db.Summary         `json:"audit,omitempty"`
}

func newRiskResponse(a *risk.Assessment) riskResponse {
	return riskResponse{Assessment: a, Charts: a.Charts(), ExportURL: "/export/" + a.ID}
}

func (h *Handlers) handleRiskCreate(w http.ResponseWriter, r *http.Request) {
	if !h.evaluator.Available() {
		h.recordFailure(r.Context(), risk.ErrModelUnavailable, 0)
		respondError(w, http.StatusServiceUnavailable, "model unavailable")
		return
	}

	var record ml.PatientRecord
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		err = &risk.EvaluationError{Stage: risk.StageValidate, Err: err}
		h.recordFailure(r.Context(), err, 0)
		respondJSON(w, http.StatusBadRequest, evaluationErrorResponse{Error: "invalid JSON body: " + err.Error(), Stage: risk.StageValidate})
		return
	}
	if sex, err := ml.ParseSex(string(record.Sex)); err == nil {
		record.Sex = sex
	}

	a, err := h.evaluate(r.Context(), record)
	if err != nil {
		body := evaluationErrorResponse{Error: err.Error()}
		var evalErr *risk.EvaluationError
		if errors.As(err, &evalErr) {
			body.Stage = evalErr.Stage
		}
		if errors.Is(err, risk.ErrModelUnavailable) {
			body.Error = "model unavailable"
		}
		respondJSON(w, statusFor(err), body)
		return
	}
	respondJSON(w, http.StatusCreated, newRiskResponse(a))
}

func (h *Handlers) handleRiskGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, newRiskResponse(a))
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	if !h.evaluator.Available() {
		body := map[string]string{"error": "model unavailable"}
		if h.loadErr != nil {
			body["detail"] = h.loadErr.Error()
		}
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	model := h.evaluator.Model()
	respondJSON(w, http.StatusOK, modelResponse{
		Metadata:     model.Metadata(),
		FeatureNames: model.FeatureNames(),
		HorizonDays:  h.evaluator.Horizon(),
		Artifact:     h.artifact,
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": h.evaluator.Available(),
	})
}

func (h *Handlers) handleMonitorStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Stats: h.stats.Snapshot()}
	if h.hub != nil {
		resp.Stats.Clients = h.hub.Clients()
	}
	if h.audit != nil {
		summary, err := h.audit.Summary(r.Context())
		if err != nil {
			h.log.Error("audit summary", zap.Error(err))
		} else {
			resp.Audit = summary
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "monitoring disabled")
		return
	}
	h.hub.HandleWebSocket(w, r)
}
