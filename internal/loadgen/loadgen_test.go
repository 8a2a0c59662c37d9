package loadgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/gogobubbles/leadops/internal/adapters/http/api"
	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/loadgen"
	"github.com/gogobubbles/leadops/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

func TestGenerate(t *testing.T) {
	convey.Convey("Given a seeded generator", t, func() {
		a := loadgen.Generate(200, 4, 7)
		b := loadgen.Generate(200, 4, 7)
		c := loadgen.Generate(200, 4, 8)

		convey.Convey("Then equal seeds give equal events", func() {
			convey.So(a, convey.ShouldResemble, b)
			convey.So(a[0].JobID, convey.ShouldNotEqual, c[0].JobID)
		})

		convey.Convey("Then every event is valid and unique", func() {
			seen := map[string]bool{}
			for _, e := range a {
				convey.So(seen[e.JobID], convey.ShouldBeFalse)
				seen[e.JobID] = true
				convey.So(e.PercentCompleted, convey.ShouldBeBetweenOrEqual, 0.0, 100.0)
				convey.So(e.JobAmount, convey.ShouldBeGreaterThan, 0.0)
				convey.So(e.LeadID, convey.ShouldStartWith, "lead-")
			}
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running service behind the HTTP API", t, func() {
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1000))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)

		r := chi.NewRouter()
		api.NewServer(svc, svc).Register(context.Background(), r)
		srv := httptest.NewServer(r)

		convey.Convey("When every intervention is submitted twice", func() {
			stats, err := loadgen.Run(context.Background(), loadgen.Config{
				BaseURL:  srv.URL,
				Jobs:     30,
				Copies:   2,
				Leads:    3,
				Workers:  4,
				Settle:   5 * time.Second,
				Interval: 10 * time.Millisecond,
				Seed:     42,
				Rules:    rules.Default(),
			})

			convey.Convey("Then each job is accepted once and settled as the engine prices it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Generated, convey.ShouldEqual, 30)
				convey.So(stats.Accepted, convey.ShouldEqual, 30)
				convey.So(stats.Duplicates, convey.ShouldEqual, 30)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(stats.Settled, convey.ShouldEqual, 30)
				convey.So(stats.Mismatched, convey.ShouldEqual, 0)
			})
		})

		convey.Reset(func() {
			srv.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svc.Stop(ctx)
		})
	})

	convey.Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		convey.Reset(srv.Close)

		convey.Convey("When a run starts", func() {
			_, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: srv.URL, Jobs: 1})

			convey.Convey("Then it stops at the health check", func() {
				convey.So(errors.Is(err, loadgen.ErrUnhealthy), convey.ShouldBeTrue)
			})
		})
	})
}
