package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gogobubbles/leadops/internal/adapters/repository"
	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/domain/bonus"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/patterns"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	"github.com/gogobubbles/leadops/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu          sync.Mutex
	settlements chan model.Settlement
	flags       []patterns.Flag
	closed      bool
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{settlements: make(chan model.Settlement, 100)}
}

func (p *recordingPublisher) PublishSettlement(_ context.Context, s model.Settlement) error {
	p.settlements <- s
	return nil
}

func (p *recordingPublisher) PublishFlag(_ context.Context, f patterns.Flag) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = append(p.flags, f)
	return nil
}

func (p *recordingPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *recordingPublisher) flagged() []patterns.Flag {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]patterns.Flag(nil), p.flags...)
}

// flakyStore fails SaveSettlement while failing is set.
type flakyStore struct {
	repository.Store
	mu      sync.Mutex
	failing bool
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyStore) SaveSettlement(ctx context.Context, st model.Settlement) error { //nolint:gocritic // hugeParam
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("connection reset")
	}
	return f.Store.SaveSettlement(ctx, st)
}

func startService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithClock(func() time.Time { return now }),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func stopService(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = svc.Stop(ctx)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(3))

		Convey("When it has not been started", func() {
			_, err := svc.Submit(context.Background(), model.JobInterventionEvent{JobID: "j"})

			Convey("Then stateful calls fail with ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			stopService(svc)

			Convey("Then stats reflect each state", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 3)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		pub := newRecordingPublisher()
		svc := startService(service.WithPublisher(pub))
		ctx := context.Background()

		event := model.JobInterventionEvent{
			JobID:             "job-1",
			LeadID:            "lead-1",
			OriginalBubblerID: "b-1",
			PercentCompleted:  50,
			TasksRedone:       model.TasksRedone{Moderate: 2},
			JobAmount:         50,
		}

		Convey("When an intervention is submitted", func() {
			status, err := svc.Submit(ctx, event)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, service.StatusAccepted)

			var settled model.Settlement
			select {
			case settled = <-pub.settlements:
			case <-time.After(2 * time.Second):
			}

			Convey("Then it is settled, published and retrievable", func() {
				So(settled.Event.JobID, ShouldEqual, "job-1")
				So(settled.Category, ShouldEqual, model.CategoryPartial)
				So(settled.Compensation.LeadPayout, ShouldEqual, 34)
				So(settled.SettledAt.Equal(now), ShouldBeTrue)

				stored, err := svc.Settlement(ctx, "job-1")
				So(err, ShouldBeNil)
				So(stored.ID, ShouldEqual, settled.ID)
			})

			Convey("Then resubmitting it is a duplicate", func() {
				status, err := svc.Submit(ctx, event)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, service.StatusDuplicate)
			})
		})

		Convey("When the intervention is invalid", func() {
			event.PercentCompleted = 140
			_, err := svc.Submit(ctx, event)

			Convey("Then ErrInvalidEvent is returned", func() {
				So(errors.Is(err, takeover.ErrInvalidEvent), ShouldBeTrue)
			})
		})

		Reset(func() {
			stopService(svc)
		})
	})
}

func TestService_SubmitAfterStoreFailure(t *testing.T) {
	Convey("Given a service whose store fails to save settlements", t, func() {
		ctx := context.Background()
		pub := newRecordingPublisher()
		store := &flakyStore{Store: repository.NewMemoryStore(ctx), failing: true}
		svc := startService(service.WithStore(store), service.WithPublisher(pub))
		Reset(func() { stopService(svc) })

		event := model.JobInterventionEvent{
			JobID:             "job-9",
			LeadID:            "lead-1",
			OriginalBubblerID: "b-1",
			PercentCompleted:  90,
		}

		Convey("When an intervention fails to settle", func() {
			status, err := svc.Submit(ctx, event)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, service.StatusAccepted)

			released := false
			for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
				if svc.GetStats()["ledgerClaims"] == int64(0) {
					released = true
					break
				}
			}

			Convey("Then its claim is released and a resubmission settles", func() {
				So(released, ShouldBeTrue)
				_, err := svc.Settlement(ctx, "job-9")
				So(err, ShouldNotBeNil)

				store.setFailing(false)
				status, err := svc.Submit(ctx, event)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, service.StatusAccepted)

				var settled model.Settlement
				select {
				case settled = <-pub.settlements:
				case <-time.After(2 * time.Second):
				}
				So(settled.Event.JobID, ShouldEqual, "job-9")
			})
		})
	})
}

func TestService_Engine(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When a job is abandoned at the start", func() {
			e := model.JobInterventionEvent{JobID: "j", LeadID: "l", OriginalBubblerID: "b", PercentCompleted: 0, JobAmount: 45}
			category, cerr := svc.Classify(ctx, e)
			res, err := svc.Compensate(ctx, e)

			Convey("Then the lead takes the whole job plus the hustle bonus", func() {
				So(cerr, ShouldBeNil)
				So(category, ShouldEqual, model.CategoryFull)
				So(err, ShouldBeNil)
				So(res.LeadPayout, ShouldEqual, 45)
				So(res.Bonus, ShouldEqual, 10)
				So(res.OriginalBubblerPayout, ShouldEqual, 0)
				So(res.TotalCompanyCost, ShouldEqual, 10)
			})
		})

		Convey("When a full takeover falls outside every tier", func() {
			e := model.JobInterventionEvent{
				JobID: "j", LeadID: "l", OriginalBubblerID: "b",
				PercentCompleted: 80, AssistanceTimeMinutes: 45, BubblerLeftSite: true,
			}
			_, err := svc.Compensate(ctx, e)

			Convey("Then ErrNoCompensationTier is returned", func() {
				So(errors.Is(err, takeover.ErrNoCompensationTier), ShouldBeTrue)
			})
		})

		Convey("When a solo job is quoted", func() {
			est, err := svc.Quote(ctx, staffing.QuoteInput{
				Job:   staffing.Job{ServiceType: "home_cleaning", EstimatedMinutes: 120, Bedrooms: 2, Bathrooms: 1},
				Tasks: []staffing.TaskRequest{{Task: "standard_clean"}, {Task: "bathroom"}},
			})

			Convey("Then the task rates are summed", func() {
				So(err, ShouldBeNil)
				So(est.Tier, ShouldEqual, model.StaffingSolo)
				So(est.Total, ShouldEqual, 57)
			})
		})
	})
}

// lightSave is the i-th light assist with quality uplift, i*12h+12h ago.
func lightSave(leadID string, i int) model.CompletedJobRecord {
	return model.CompletedJobRecord{
		JobInterventionEvent: model.JobInterventionEvent{
			JobID:                 fmt.Sprintf("%s-save-%d", leadID, i),
			LeadID:                leadID,
			OriginalBubblerID:     fmt.Sprintf("b-%d", i),
			PercentCompleted:      90,
			AssistanceTimeMinutes: 10,
		},
		Category:         model.CategoryLight,
		QualityUplift:    true,
		CustomerRating:   5,
		CompletedAt:      now.Add(-time.Duration(i+1) * 12 * time.Hour),
		Timeliness:       model.TimelinessOnTime,
		CompletionStatus: model.CompletionCompleted,
	}
}

func seedLead(ctx context.Context, svc *service.Service, leadID string) {
	for i := range 10 {
		So(svc.RecordCheckIn(ctx, model.CheckInRecord{
			LeadID:         leadID,
			BubblerID:      fmt.Sprintf("b-%d", i),
			CheckInDate:    now.Add(-time.Duration(i+1) * time.Hour),
			CustomerRating: 5,
		}), ShouldBeNil)

		So(svc.RecordJob(ctx, model.CompletedJobRecord{
			JobInterventionEvent: model.JobInterventionEvent{JobID: fmt.Sprintf("%s-own-%d", leadID, i)},
			WorkerID:             leadID,
			CustomerRating:       5,
			CompletedAt:          now.Add(-time.Duration(i+1) * 24 * time.Hour),
			Timeliness:           model.TimelinessOnTime,
			CompletionStatus:     model.CompletionCompleted,
		}), ShouldBeNil)
	}
	for i := range 8 {
		So(svc.RecordJob(ctx, lightSave(leadID, i)), ShouldBeNil)
	}
	for i := range 2 {
		So(svc.RecordLeadRating(ctx, model.LeadRating{
			LeadID:      leadID,
			BubblerID:   fmt.Sprintf("b-%d", i),
			Rating:      5,
			SubmittedAt: now.Add(-time.Duration(i+1) * 24 * time.Hour),
		}), ShouldBeNil)
	}
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a lead with a strong record", t, func() {
		svc := startService(service.WithEvaluationConcurrency(2))
		ctx := context.Background()
		seedLead(ctx, svc, "lead-a")
		So(svc.RecordCheckIn(ctx, model.CheckInRecord{
			LeadID: "lead-b", BubblerID: "b-1", CheckInDate: now.Add(-time.Hour), CustomerRating: 4,
		}), ShouldBeNil)

		Convey("When the lead is evaluated", func() {
			ev, err := svc.Evaluate(ctx, "lead-a", time.Time{})

			Convey("Then every component scores at its cap", func() {
				So(err, ShouldBeNil)
				So(ev.EvaluatedAt.Equal(now), ShouldBeTrue)
				So(ev.Leadership.TakeoversAvoided, ShouldEqual, 8)
				So(ev.Leadership.WeeklyCheckIns, ShouldEqual, 10)
				So(ev.Personal.JobsConsidered, ShouldEqual, 10)
				So(ev.OverallScore, ShouldEqual, 100)
				So(ev.Strikes, ShouldBeEmpty)
				So(ev.Status, ShouldEqual, model.StatusExcellent)
			})
		})

		Convey("When the roster is evaluated", func() {
			roster, err := svc.Roster(ctx, now)

			Convey("Then every lead is included in ID order", func() {
				So(err, ShouldBeNil)
				So(roster, ShouldHaveLength, 2)
				So(roster[0].LeadID, ShouldEqual, "lead-a")
				So(roster[1].LeadID, ShouldEqual, "lead-b")
				So(roster[1].Status, ShouldEqual, model.StatusWarning)
			})
		})

		Convey("When the lead's bonus is checked", func() {
			res, err := svc.Bonus(ctx, "lead-a", "week", now)

			Convey("Then eight overseen jobs in the week are not enough", func() {
				So(err, ShouldBeNil)
				So(res.JobsCompleted, ShouldEqual, 8)
				So(res.Eligible, ShouldBeFalse)
				So(res.Reason, ShouldEqual, bonus.ReasonInsufficient)
			})
		})

		Convey("When the lead oversees ten clean jobs in the week", func() {
			for i := 8; i < 10; i++ {
				So(svc.RecordJob(ctx, lightSave("lead-a", i)), ShouldBeNil)
			}
			res, err := svc.Bonus(ctx, "lead-a", "week", now)

			Convey("Then tier 2 is granted", func() {
				So(err, ShouldBeNil)
				So(res.JobsCompleted, ShouldEqual, 10)
				So(res.Eligible, ShouldBeTrue)
				So(res.Tier, ShouldEqual, 2)
			})

			Convey("Then an uncategorized full takeover under the lead blocks it", func() {
				So(svc.RecordJob(ctx, model.CompletedJobRecord{
					JobInterventionEvent: model.JobInterventionEvent{
						JobID:             "lead-a-full",
						LeadID:            "lead-a",
						OriginalBubblerID: "b-20",
						PercentCompleted:  20,
					},
					CustomerRating: 5,
					CompletedAt:    now.Add(-time.Hour),
				}), ShouldBeNil)
				res, err := svc.Bonus(ctx, "lead-a", "week", now)
				So(err, ShouldBeNil)
				So(res.Eligible, ShouldBeFalse)
				So(res.Reason, ShouldEqual, bonus.ReasonTakeoverInRange)
			})
		})

		Reset(func() {
			stopService(svc)
		})
	})
}

func TestService_Patterns(t *testing.T) {
	Convey("Given a service with a publisher", t, func() {
		pub := newRecordingPublisher()
		svc := startService(service.WithPublisher(pub))
		ctx := context.Background()

		full := func(id string, daysAgo int) model.CompletedJobRecord {
			at := now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
			return model.CompletedJobRecord{
				JobInterventionEvent: model.JobInterventionEvent{
					JobID:             id,
					LeadID:            "lead-a",
					OriginalBubblerID: "b-9",
					PercentCompleted:  20,
					OccurredAt:        at,
				},
				Category:    model.CategoryFull,
				CompletedAt: at,
			}
		}

		Convey("When a worker is fully taken over twice in a week", func() {
			So(svc.RecordJob(ctx, full("f-1", 2)), ShouldBeNil)
			So(pub.flagged(), ShouldBeEmpty)
			So(svc.RecordJob(ctx, full("f-2", 0)), ShouldBeNil)

			Convey("Then a repeat-takeover flag is published", func() {
				flags := pub.flagged()
				So(flags, ShouldHaveLength, 1)
				So(flags[0].Kind, ShouldEqual, patterns.KindRepeatTakeover)
				So(flags[0].WorkerID, ShouldEqual, "b-9")
				So(flags[0].JobIDs, ShouldResemble, []string{"f-1", "f-2"})
			})

			Convey("Then the lead's pattern report includes it", func() {
				rep, err := svc.Patterns(ctx, "lead-a", now)
				So(err, ShouldBeNil)
				So(rep.Flags, ShouldHaveLength, 1)
				So(rep.HoldSharedScore, ShouldBeFalse)
			})
		})

		Reset(func() {
			stopService(svc)
		})
	})
}
