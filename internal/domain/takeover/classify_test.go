package takeover_test

import (
	"errors"
	"testing"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given the default rules", t, func() {
		r := rules.Default()

		Convey("When completion is 49% or lower", func() {
			Convey("Then the takeover is full regardless of other signals", func() {
				for _, p := range []float64{0, 1, 25, 49} {
					s := takeover.Signals{
						PercentCompleted:      p,
						TasksRedone:           model.TasksRedone{Minor: 10, Moderate: 10, Major: 10},
						AssistanceTimeMinutes: 5,
					}
					So(takeover.Classify(r, s), ShouldEqual, model.CategoryFull)
				}
			})
		})

		Convey("When the bubbler left and the lead assisted over 30 minutes", func() {
			s := takeover.Signals{PercentCompleted: 90, AssistanceTimeMinutes: 31, BubblerLeftSite: true}

			Convey("Then the takeover is full even at high completion", func() {
				So(takeover.Classify(r, s), ShouldEqual, model.CategoryFull)
			})
		})

		Convey("When the assist is exactly 30 minutes after the bubbler left", func() {
			s := takeover.Signals{PercentCompleted: 80, AssistanceTimeMinutes: 30, BubblerLeftSite: true}

			Convey("Then it is not an abandonment", func() {
				So(takeover.Classify(r, s), ShouldEqual, model.CategoryLight)
			})
		})

		Convey("When a long assist happened but the bubbler stayed", func() {
			s := takeover.Signals{PercentCompleted: 80, AssistanceTimeMinutes: 90}

			Convey("Then the takeover is light", func() {
				So(takeover.Classify(r, s), ShouldEqual, model.CategoryLight)
			})
		})

		Convey("When rework crosses a partial threshold", func() {
			cases := []model.TasksRedone{
				{Moderate: 2},
				{Minor: 3},
				{Major: 1},
			}

			Convey("Then the takeover is partial", func() {
				for _, tr := range cases {
					s := takeover.Signals{PercentCompleted: 70, TasksRedone: tr}
					So(takeover.Classify(r, s), ShouldEqual, model.CategoryPartial)
				}
			})
		})

		Convey("When rework stays below every threshold", func() {
			s := takeover.Signals{PercentCompleted: 50, TasksRedone: model.TasksRedone{Minor: 2, Moderate: 1}}

			Convey("Then the takeover is light", func() {
				So(takeover.Classify(r, s), ShouldEqual, model.CategoryLight)
			})
		})

		Convey("When abandonment and rework both apply", func() {
			s := takeover.Signals{
				PercentCompleted:      60,
				TasksRedone:           model.TasksRedone{Major: 3},
				AssistanceTimeMinutes: 45,
				BubblerLeftSite:       true,
			}

			Convey("Then abandonment wins", func() {
				So(takeover.Classify(r, s), ShouldEqual, model.CategoryFull)
			})
		})
	})
}

func TestValidateEvent(t *testing.T) {
	Convey("Given an intervention event", t, func() {
		e := model.JobInterventionEvent{
			JobID:             "job-1",
			OriginalBubblerID: "bubbler-1",
			LeadID:            "lead-1",
			PercentCompleted:  60,
			JobAmount:         50,
		}

		Convey("When every field is in range", func() {
			Convey("Then it validates", func() {
				So(takeover.ValidateEvent(&e), ShouldBeNil)
			})
		})

		Convey("When the percentage is out of range", func() {
			e.PercentCompleted = 101
			err := takeover.ValidateEvent(&e)

			Convey("Then an invalid event error is returned", func() {
				So(errors.Is(err, takeover.ErrInvalidEvent), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "percent_completed")
			})
		})

		Convey("When a count is negative", func() {
			e.TasksRedone.Minor = -1
			So(errors.Is(takeover.ValidateEvent(&e), takeover.ErrInvalidEvent), ShouldBeTrue)
		})

		Convey("When the job id is missing", func() {
			e.JobID = "  "
			err := takeover.ValidateEvent(&e)
			So(errors.Is(err, takeover.ErrInvalidEvent), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "job_id")
		})

		Convey("When the assistance time is negative", func() {
			e.AssistanceTimeMinutes = -5
			So(errors.Is(takeover.ValidateEvent(&e), takeover.ErrInvalidEvent), ShouldBeTrue)
		})
	})
}
