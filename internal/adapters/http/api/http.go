// Package api is the leadops JSON API: intervention intake, takeover
// pricing, job records, lead evaluation and staffing quotes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/domain/bonus"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/patterns"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues an intervention for settlement.
	Submit(ctx context.Context, e model.JobInterventionEvent) (service.SubmitStatus, error)
	Classify(ctx context.Context, e model.JobInterventionEvent) (model.Category, error)
	Compensate(ctx context.Context, e model.JobInterventionEvent) (model.CompensationResult, error)
	Settlement(ctx context.Context, jobID string) (model.Settlement, error)

	RecordJob(ctx context.Context, job model.CompletedJobRecord) error
	RecordCheckIn(ctx context.Context, c model.CheckInRecord) error
	RecordLeadRating(ctx context.Context, r model.LeadRating) error

	Evaluate(ctx context.Context, leadID string, now time.Time) (model.LeadEvaluation, error)
	Roster(ctx context.Context, now time.Time) ([]model.LeadEvaluation, error)
	Bonus(ctx context.Context, leadID, period string, now time.Time) (bonus.Result, error)
	Patterns(ctx context.Context, leadID string, now time.Time) (patterns.Report, error)
	Quote(ctx context.Context, in staffing.QuoteInput) (staffing.Estimate, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	stats    StatsProvider
	validate *validator.Validate
	logger   logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		stats:    stats,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/interventions", s.handleSubmitIntervention)
			r.Post("/takeovers/classify", s.handleClassify)
			r.Post("/takeovers/compensation", s.handleCompensation)
			r.Get("/takeovers/{jobID}", s.handleGetSettlement)

			r.Post("/jobs", s.handleRecordJob)
			r.Post("/checkins", s.handleRecordCheckIn)
			r.Post("/lead-ratings", s.handleRecordLeadRating)

			r.Get("/leads/{leadID}/evaluation", s.handleEvaluation)
			r.Get("/leads/{leadID}/bonus", s.handleBonus)
			r.Get("/leads/{leadID}/patterns", s.handlePatterns)
			r.Get("/evaluations", s.handleRoster)

			r.Post("/staffing/quote", s.handleQuote)
		})
	})
	r.Handle("/metrics", metricsHandler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status it maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, validationMessage(err))
	}
	return nil
}

// validationMessage reports the first failed field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		ve := verrs[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Namespace(), ve.Tag())
	}
	return "validation error: invalid request"
}

// nowParam parses the optional ?now= RFC3339 query parameter.
func nowParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid now; must be RFC3339", ErrBadRequest)
	}
	return t.UTC(), nil
}
