package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/gogobubbles/leadops/internal/app"
)

// handleSubmitIntervention handles POST /v1/interventions.
func (s *Server) handleSubmitIntervention(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_intervention"
	var req interventionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}

	status, err := s.deps.Submit(r.Context(), req.event())
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	if status == service.StatusDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: string(status), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: string(status)})
}

// handleClassify handles POST /v1/takeovers/classify.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify"
	var req interventionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	category, err := s.deps.Classify(r.Context(), req.event())
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{JobID: req.JobID, Category: category})
}

// handleCompensation handles POST /v1/takeovers/compensation.
func (s *Server) handleCompensation(w http.ResponseWriter, r *http.Request) {
	const op = "api.compensation"
	var req interventionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	res, err := s.deps.Compensate(r.Context(), req.event())
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetSettlement handles GET /v1/takeovers/{jobID}.
func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Settlement(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, r, "api.get_settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
