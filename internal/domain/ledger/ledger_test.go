package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogobubbles/leadops/internal/domain/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new ledger", t, func() {
		l := ledger.NewMemoryLedger()

		Convey("When a job is claimed for the first time", func() {
			ok := l.Claim(ctx, "job-1")

			Convey("Then the claim succeeds", func() {
				So(ok, ShouldBeTrue)
				So(l.Size(), ShouldEqual, 1)
				So(l.Claimed(ctx, "job-1"), ShouldBeTrue)
			})
		})

		Convey("When a job is claimed twice", func() {
			l.Claim(ctx, "job-1")
			ok := l.Claim(ctx, "job-1")

			Convey("Then the second claim is refused", func() {
				So(ok, ShouldBeFalse)
				So(l.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a claim is released", func() {
			l.Claim(ctx, "job-1")
			l.Release(ctx, "job-1")

			Convey("Then the job can be claimed again", func() {
				So(l.Size(), ShouldEqual, 0)
				So(l.Claimed(ctx, "job-1"), ShouldBeFalse)
				So(l.Claim(ctx, "job-1"), ShouldBeTrue)
			})
		})

		Convey("When an unknown job is released", func() {
			l.Release(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(l.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded ledger", t, func() {
		l := ledger.NewMemoryLedger(ledger.WithMaxSize(3))

		Convey("When more jobs are claimed than it holds", func() {
			for i := 1; i <= 4; i++ {
				l.Claim(ctx, fmt.Sprintf("job-%d", i))
			}

			Convey("Then the oldest claim is evicted", func() {
				So(l.Size(), ShouldEqual, 3)
				So(l.Claimed(ctx, "job-1"), ShouldBeFalse)
				So(l.Claimed(ctx, "job-2"), ShouldBeTrue)
				So(l.Claimed(ctx, "job-4"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded ledger", t, func() {
		l := ledger.NewMemoryLedger(ledger.WithMaxSize(0))

		Convey("When many goroutines race for the same jobs", func() {
			var won atomic.Int64
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if l.Claim(ctx, fmt.Sprintf("job-%d", i)) {
							won.Add(1)
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each job is claimed exactly once", func() {
				So(won.Load(), ShouldEqual, 100)
				So(l.Size(), ShouldEqual, 100)
			})
		})
	})
}
