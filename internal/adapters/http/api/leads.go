package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gogobubbles/leadops/internal/domain/rules"
)

// handleEvaluation handles GET /v1/leads/{leadID}/evaluation.
func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluation"
	now, err := nowParam(r)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	ev, err := s.deps.Evaluate(r.Context(), chi.URLParam(r, "leadID"), now)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleBonus handles GET /v1/leads/{leadID}/bonus. The period defaults to a week.
func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	const op = "api.bonus"
	now, err := nowParam(r)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = rules.PeriodWeek
	}
	res, err := s.deps.Bonus(r.Context(), chi.URLParam(r, "leadID"), period, now)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePatterns handles GET /v1/leads/{leadID}/patterns.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	const op = "api.patterns"
	now, err := nowParam(r)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	rep, err := s.deps.Patterns(r.Context(), chi.URLParam(r, "leadID"), now)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleRoster handles GET /v1/evaluations.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster"
	now, err := nowParam(r)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	roster, err := s.deps.Roster(r.Context(), now)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}
