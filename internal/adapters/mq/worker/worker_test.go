package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gogobubbles/leadops/internal/adapters/mq/queue"
	"github.com/gogobubbles/leadops/internal/adapters/mq/worker"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	events chan queue.Event
	once   sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{events: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Event {
	return mq.events
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.events) })
	return nil
}

type mockStore struct {
	mu          sync.Mutex
	settlements map[string]model.Settlement
	err         error
}

func newMockStore() *mockStore {
	return &mockStore{settlements: make(map[string]model.Settlement)}
}

func (ms *mockStore) SaveSettlement(ctx context.Context, s model.Settlement) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	ms.settlements[s.Event.JobID] = s
	return nil
}

func (ms *mockStore) get(jobID string) (model.Settlement, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.settlements[jobID]
	return s, ok
}

func (ms *mockStore) count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.settlements)
}

func waitFor(ch <-chan model.Settlement) (model.Settlement, bool) {
	select {
	case s := <-ch:
		return s, true
	case <-time.After(time.Second):
		return model.Settlement{}, false
	}
}

var settledAt = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := newMockQueue()
		store := newMockStore()
		settled := make(chan model.Settlement, 10)
		failed := make(chan string, 10)
		w := worker.NewInMemoryWorker(q, store, rules.Default(),
			worker.WithName("test-worker"),
			worker.WithClock(func() time.Time { return settledAt }),
			worker.WithObserver(worker.ObserverFunc(func(_ context.Context, s model.Settlement) { settled <- s })),
			worker.WithOnFailure(func(_ context.Context, e queue.Event, _ error) { failed <- e.JobID }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		convey.Reset(cancel)

		convey.Convey("When a partial takeover is queued", func() {
			q.events <- queue.Event{
				JobID:             "job-1",
				LeadID:            "lead-1",
				OriginalBubblerID: "b-1",
				PercentCompleted:  80,
				TasksRedone:       model.TasksRedone{Minor: 3},
				JobAmount:         50,
			}
			s, ok := waitFor(settled)

			convey.Convey("Then it is compensated, stored and observed", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s.Category, convey.ShouldEqual, model.CategoryPartial)
				convey.So(s.ID, convey.ShouldNotEqual, uuid.Nil)
				convey.So(s.SettledAt.Equal(settledAt), convey.ShouldBeTrue)
				convey.So(s.Compensation.Bonus, convey.ShouldEqual, 9)

				stored, found := store.get("job-1")
				convey.So(found, convey.ShouldBeTrue)
				convey.So(stored.ID, convey.ShouldEqual, s.ID)
			})
		})

		convey.Convey("When an abandoned job has no compensation tier", func() {
			q.events <- queue.Event{
				JobID:                 "job-2",
				LeadID:                "lead-1",
				OriginalBubblerID:     "b-1",
				PercentCompleted:      80,
				AssistanceTimeMinutes: 45,
				BubblerLeftSite:       true,
			}
			s, ok := waitFor(settled)

			convey.Convey("Then the settlement records the error", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(failed, convey.ShouldBeEmpty)
				convey.So(s.Category, convey.ShouldEqual, model.CategoryFull)
				convey.So(s.Error, convey.ShouldContainSubstring, "80%")
				_, found := store.get("job-2")
				convey.So(found, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the store fails", func() {
			store.err = errors.New("disk full")
			q.events <- queue.Event{JobID: "job-3", LeadID: "lead-1", OriginalBubblerID: "b-1", PercentCompleted: 95}
			_, ok := waitFor(settled)

			convey.Convey("Then observers are not notified", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(store.count(), convey.ShouldEqual, 0)
			})

			convey.Convey("Then the failure handler receives the job", func() {
				var id string
				select {
				case id = <-failed:
				case <-time.After(time.Second):
				}
				convey.So(id, convey.ShouldEqual, "job-3")
			})
		})

		convey.Convey("When the worker is shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops promptly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := newMockStore()
		var mu sync.Mutex
		observed := 0
		p := worker.NewPool(3, q, store, rules.Default(),
			worker.WithObserver(worker.ObserverFunc(func(context.Context, model.Settlement) {
				mu.Lock()
				observed++
				mu.Unlock()
			})),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.Convey("When events are queued and the pool shuts down", func() {
			for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
				q.Enqueue(ctx, queue.Event{JobID: id, LeadID: "lead-1", OriginalBubblerID: "b-1", PercentCompleted: 90})
			}
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then every queued event is settled before workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Size(), convey.ShouldEqual, 3)
				convey.So(store.count(), convey.ShouldEqual, 6)
				mu.Lock()
				convey.So(observed, convey.ShouldEqual, 6)
				mu.Unlock()
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
