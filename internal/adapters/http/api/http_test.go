package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gogobubbles/leadops/internal/adapters/http/api"
	"github.com/gogobubbles/leadops/internal/adapters/repository"
	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/domain/bonus"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/patterns"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies runs the pure engine and records what it was given.
type mockDependencies struct {
	submitStatus service.SubmitStatus
	submitErr    error
	submitted    []model.JobInterventionEvent
	jobs         []model.CompletedJobRecord
	checkIns     []model.CheckInRecord
	ratings      []model.LeadRating
	settlements  map[string]model.Settlement
	lastNow      time.Time
	lastPeriod   string
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		submitStatus: service.StatusAccepted,
		settlements:  map[string]model.Settlement{},
	}
}

func (m *mockDependencies) Submit(_ context.Context, e model.JobInterventionEvent) (service.SubmitStatus, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, e)
	return m.submitStatus, nil
}

func (m *mockDependencies) Classify(_ context.Context, e model.JobInterventionEvent) (model.Category, error) {
	return takeover.Classify(rules.Default(), takeover.SignalsOf(&e)), nil
}

func (m *mockDependencies) Compensate(_ context.Context, e model.JobInterventionEvent) (model.CompensationResult, error) {
	_, res, err := takeover.Settle(rules.Default(), &e)
	return res, err
}

func (m *mockDependencies) Settlement(_ context.Context, jobID string) (model.Settlement, error) {
	st, ok := m.settlements[jobID]
	if !ok {
		return model.Settlement{}, fmt.Errorf("settlement %s: %w", jobID, repository.ErrNotFound)
	}
	return st, nil
}

func (m *mockDependencies) RecordJob(_ context.Context, job model.CompletedJobRecord) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockDependencies) RecordCheckIn(_ context.Context, c model.CheckInRecord) error {
	m.checkIns = append(m.checkIns, c)
	return nil
}

func (m *mockDependencies) RecordLeadRating(_ context.Context, r model.LeadRating) error {
	m.ratings = append(m.ratings, r)
	return nil
}

func (m *mockDependencies) Evaluate(_ context.Context, leadID string, now time.Time) (model.LeadEvaluation, error) {
	m.lastNow = now
	return model.LeadEvaluation{LeadID: leadID, EvaluatedAt: now, Status: model.StatusGood, OverallScore: 75}, nil
}

func (m *mockDependencies) Roster(_ context.Context, now time.Time) ([]model.LeadEvaluation, error) {
	m.lastNow = now
	return []model.LeadEvaluation{{LeadID: "lead-a"}, {LeadID: "lead-b"}}, nil
}

func (m *mockDependencies) Bonus(_ context.Context, leadID, period string, now time.Time) (bonus.Result, error) {
	m.lastPeriod = period
	return bonus.Accelerate(rules.Default(), bonus.Input{Period: period}, now), nil
}

func (m *mockDependencies) Patterns(_ context.Context, leadID string, now time.Time) (patterns.Report, error) {
	return patterns.Detect(rules.Default(), nil, now), nil
}

func (m *mockDependencies) Quote(_ context.Context, in staffing.QuoteInput) (staffing.Estimate, error) {
	return staffing.Quote(rules.Default(), in)
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newRouter(deps *mockDependencies) http.Handler {
	r := chi.NewRouter()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).Register(context.Background(), r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

const validIntervention = `{
	"job_id": "job-1",
	"original_bubbler_id": "b-1",
	"lead_id": "lead-1",
	"percent_completed": 50,
	"tasks_redone": {"moderate": 2},
	"job_amount": 50
}`

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newRouter(newMockDependencies())

		Convey("Then /healthz reports ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /stats returns provider stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then /metrics exposes the registry", func() {
			do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "leadops_engine_http_requests_total")
		})

		Convey("Then unknown routes return 404", func() {
			w := do(h, http.MethodGet, "/v1/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Interventions(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		h := newRouter(deps)

		Convey("When a valid intervention is posted", func() {
			w := do(h, http.MethodPost, "/v1/interventions", validIntervention)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].TasksRedone.Moderate, ShouldEqual, 2)
			})
		})

		Convey("When the job was already submitted", func() {
			deps.submitStatus = service.StatusDuplicate
			w := do(h, http.MethodPost, "/v1/interventions", validIntervention)

			Convey("Then 200 duplicate is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := do(h, http.MethodPost, "/v1/interventions", validIntervention)

			Convey("Then 429 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
			})
		})

		Convey("When required fields are missing or out of range", func() {
			bodies := []string{
				`{"original_bubbler_id":"b","lead_id":"l"}`,
				`{"job_id":"j","original_bubbler_id":"b","lead_id":"l","percent_completed":101}`,
				`{"job_id":"j","original_bubbler_id":"b","lead_id":"l","tasks_redone":{"minor":-1}}`,
				`{"job_id":"j","original_bubbler_id":"b","lead_id":"l","unknown":1}`,
				`not json`,
			}
			for i, body := range bodies {
				Convey(fmt.Sprintf("Then request %d is rejected with 400", i), func() {
					w := do(h, http.MethodPost, "/v1/interventions", body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(errorCode(w), ShouldEqual, "bad_request")
					So(deps.submitted, ShouldBeEmpty)
				})
			}
		})

		Convey("When an intervention is classified", func() {
			w := do(h, http.MethodPost, "/v1/takeovers/classify", validIntervention)

			Convey("Then its category is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"category":"partial"`)
			})
		})

		Convey("When an intervention is priced", func() {
			w := do(h, http.MethodPost, "/v1/takeovers/compensation", validIntervention)
			var res model.CompensationResult
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the compensation split is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(res.LeadPayout, ShouldEqual, 34)
				So(res.OriginalBubblerPayout, ShouldEqual, 16)
			})
		})

		Convey("When a full takeover has no tier", func() {
			body := `{"job_id":"j","original_bubbler_id":"b","lead_id":"l","percent_completed":80,` +
				`"assistance_time_minutes":45,"bubbler_left_site":true}`
			w := do(h, http.MethodPost, "/v1/takeovers/compensation", body)

			Convey("Then 422 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "no_compensation_tier")
			})
		})

		Convey("When a settlement is fetched", func() {
			deps.settlements["job-9"] = model.Settlement{Event: model.JobInterventionEvent{JobID: "job-9"}, Category: model.CategoryLight}
			found := do(h, http.MethodGet, "/v1/takeovers/job-9", "")
			missing := do(h, http.MethodGet, "/v1/takeovers/job-0", "")

			Convey("Then known jobs are returned and unknown jobs are 404", func() {
				So(found.Code, ShouldEqual, http.StatusOK)
				So(found.Body.String(), ShouldContainSubstring, `"category":"light"`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(missing), ShouldEqual, "not_found")
			})
		})
	})
}

func TestServer_Records(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		h := newRouter(deps)

		Convey("When a job record is posted", func() {
			w := do(h, http.MethodPost, "/v1/jobs", `{
				"job_id": "job-1",
				"worker_id": "b-1",
				"customer_rating": 4.5,
				"completed_at": "2025-06-29T10:00:00Z",
				"customer_complaint": {"severity": 3},
				"timeliness": "on_time",
				"completion_status": "completed"
			}`)

			Convey("Then it is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.jobs, ShouldHaveLength, 1)
				So(deps.jobs[0].CustomerComplaint.Severity, ShouldEqual, 3)
			})
		})

		Convey("When a job record has neither worker nor original bubbler", func() {
			w := do(h, http.MethodPost, "/v1/jobs", `{"job_id":"job-1","completed_at":"2025-06-29T10:00:00Z"}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.jobs, ShouldBeEmpty)
			})
		})

		Convey("When a check-in is posted", func() {
			w := do(h, http.MethodPost, "/v1/checkins",
				`{"lead_id":"lead-1","bubbler_id":"b-1","check_in_date":"2025-06-29T10:00:00Z","customer_rating":5}`)

			Convey("Then it is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.checkIns, ShouldHaveLength, 1)
			})
		})

		Convey("When a check-in has no date", func() {
			w := do(h, http.MethodPost, "/v1/checkins", `{"lead_id":"lead-1","bubbler_id":"b-1"}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a lead rating is posted", func() {
			ok := do(h, http.MethodPost, "/v1/lead-ratings",
				`{"lead_id":"lead-1","bubbler_id":"b-1","rating":2,"submitted_at":"2025-06-29T10:00:00Z"}`)
			bad := do(h, http.MethodPost, "/v1/lead-ratings",
				`{"lead_id":"lead-1","bubbler_id":"b-1","rating":6,"submitted_at":"2025-06-29T10:00:00Z"}`)

			Convey("Then ratings outside 1-5 are rejected", func() {
				So(ok.Code, ShouldEqual, http.StatusCreated)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.ratings, ShouldHaveLength, 1)
			})
		})
	})
}

func TestServer_Leads(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		h := newRouter(deps)

		Convey("When a lead is evaluated at a given time", func() {
			w := do(h, http.MethodGet, "/v1/leads/lead-1/evaluation?now=2025-06-30T12:00:00Z", "")

			Convey("Then the time is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"lead_id":"lead-1"`)
				So(deps.lastNow.Equal(time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When now is malformed", func() {
			w := do(h, http.MethodGet, "/v1/leads/lead-1/evaluation?now=yesterday", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the roster is requested", func() {
			w := do(h, http.MethodGet, "/v1/evaluations", "")
			var roster []model.LeadEvaluation
			So(json.Unmarshal(w.Body.Bytes(), &roster), ShouldBeNil)

			Convey("Then every lead is listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(roster, ShouldHaveLength, 2)
				So(deps.lastNow.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When a bonus is requested without a period", func() {
			w := do(h, http.MethodGet, "/v1/leads/lead-1/bonus", "")

			Convey("Then the weekly period is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastPeriod, ShouldEqual, rules.PeriodWeek)
				So(w.Body.String(), ShouldContainSubstring, bonus.ReasonInsufficient)
			})
		})

		Convey("When patterns are requested", func() {
			w := do(h, http.MethodGet, "/v1/leads/lead-1/patterns", "")

			Convey("Then an empty report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"flags":[]`)
			})
		})
	})
}

func TestServer_Quote(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := newRouter(newMockDependencies())

		Convey("When a quote is requested", func() {
			w := do(h, http.MethodPost, "/v1/staffing/quote", `{
				"service_type": "home_cleaning",
				"estimated_minutes": 120,
				"bedrooms": 2,
				"bathrooms": 1,
				"tasks": [{"task": "standard_clean"}, {"task": "bathroom"}]
			}`)
			var est staffing.Estimate
			So(json.Unmarshal(w.Body.Bytes(), &est), ShouldBeNil)

			Convey("Then the estimate is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(est.Tier, ShouldEqual, model.StaffingSolo)
				So(est.Total, ShouldEqual, 57)
			})
		})

		Convey("When a task is unknown", func() {
			w := do(h, http.MethodPost, "/v1/staffing/quote",
				`{"service_type":"home_cleaning","estimated_minutes":60,"tasks":[{"task":"moat_cleaning"}]}`)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When no tasks are given", func() {
			w := do(h, http.MethodPost, "/v1/staffing/quote", `{"service_type":"home_cleaning","estimated_minutes":60}`)

			Convey("Then validation rejects it", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "Tasks")
			})
		})
	})
}
