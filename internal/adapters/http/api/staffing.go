package api

import (
	"net/http"

	"github.com/gogobubbles/leadops/internal/domain/staffing"
)

// handleQuote handles POST /v1/staffing/quote.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	const op = "api.quote"
	var req staffing.QuoteInput
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	est, err := s.deps.Quote(r.Context(), req)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}
