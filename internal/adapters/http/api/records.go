package api

import "net/http"

// handleRecordJob handles POST /v1/jobs.
func (s *Server) handleRecordJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_job"
	var req jobRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if err := s.deps.RecordJob(r.Context(), req.record()); err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Status: "created"})
}

// handleRecordCheckIn handles POST /v1/checkins.
func (s *Server) handleRecordCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_check_in"
	var req checkInRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if err := s.deps.RecordCheckIn(r.Context(), req.record()); err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Status: "created"})
}

// handleRecordLeadRating handles POST /v1/lead-ratings.
func (s *Server) handleRecordLeadRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_lead_rating"
	var req leadRatingRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if err := s.deps.RecordLeadRating(r.Context(), req.record()); err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Status: "created"})
}
