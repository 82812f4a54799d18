package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salud-digital/anthro/internal/adapters/fhir"
	"github.com/salud-digital/anthro/internal/evaluation"
	"github.com/salud-digital/anthro/internal/growth"
	"github.com/salud-digital/anthro/internal/protocol"
	"github.com/salud-digital/anthro/internal/shared/errors"
)

// Handler provides HTTP handlers for the evaluation module
type Handler struct {
	svc   *evaluation.Service
	store *growth.Store
}

// NewHandler creates a new evaluation handler
func NewHandler(svc *evaluation.Service, store *growth.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

// Routes registers the evaluation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Evaluate)
	r.Post("/fhir", h.EvaluateFHIR)
	r.Post("/followup", h.FollowUp)
	r.Post("/discharge", h.Discharge)

	return r
}

// ReferenceRoutes registers the read-only reference-table routes
func (h *Handler) ReferenceRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{indicator}/{sex}", h.ReferenceTable)

	return r
}

// --- Request/Response types ---

type FollowUpRequest struct {
	WeightKg float64           `json:"weight_kg"`
	FeedType protocol.FeedType `json:"feed_type"`
	Day      int               `json:"day"`
}

type FollowUpResponse struct {
	Plan protocol.FollowUpPlan `json:"plan"`
	Note string                `json:"note"`
}

type DischargeRequest struct {
	WeightKg float64           `json:"weight_kg"`
	FeedType protocol.FeedType `json:"feed_type"`
}

type DischargeResponse struct {
	Plan protocol.DischargePlan `json:"plan"`
	Note string                 `json:"note"`
}

// --- Handlers ---

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	res, err := h.svc.Evaluate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) EvaluateFHIR(w http.ResponseWriter, r *http.Request) {
	var bundle fhir.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	req, err := fhir.ToEvaluationRequest(bundle)
	if err != nil {
		writeError(w, errors.Validation("invalid FHIR bundle", map[string]string{
			"bundle": err.Error(),
		}))
		return
	}

	res, err := h.svc.Evaluate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	plan, note, err := h.svc.FollowUp(r.Context(), req.WeightKg, req.FeedType, req.Day)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FollowUpResponse{Plan: plan, Note: note})
}

func (h *Handler) Discharge(w http.ResponseWriter, r *http.Request) {
	var req DischargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	plan, note, err := h.svc.Discharge(r.Context(), req.WeightKg, req.FeedType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DischargeResponse{Plan: plan, Note: note})
}

func (h *Handler) ReferenceTable(w http.ResponseWriter, r *http.Request) {
	ind := growth.Indicator(chi.URLParam(r, "indicator"))
	sex := growth.Sex(chi.URLParam(r, "sex"))

	table, ok := h.store.Table(ind, sex)
	if !ok {
		writeError(w, errors.NotFound("reference table", string(ind)+"/"+string(sex)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"indicator": ind,
		"sex":       sex,
		"points":    table,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
