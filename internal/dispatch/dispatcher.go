// Package dispatch batches word-progress events for upload.
//
// Events accumulate in memory and are flushed after a quiet period, in
// insertion order, in fixed-size batches. A flush is all or nothing: any
// failure leaves the entire queue intact for the next cycle, and the
// server-side dedupe on (verse, word index) is what keeps resends harmless.
package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"versekeep/internal/api"
)

// Poster uploads a single word-progress event.
type Poster interface {
	PostWordProgress(ctx context.Context, ev api.WordProgress) error
}

// AuthState reports whether a session token is available. Flushing while
// signed out would only produce 401s, so the queue waits instead.
type AuthState interface {
	Authenticated() bool
}

// Scheduler arms a one-shot timer. The returned cancel stops a timer that
// has not fired yet.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

func (timerScheduler) Schedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// NewTimerScheduler returns the real time.AfterFunc-backed scheduler.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

// Dispatcher is the debounced word-progress upload queue.
type Dispatcher struct {
	poster    Poster
	auth      AuthState
	sched     Scheduler
	debounce  time.Duration
	batchSize int
	log       *zap.Logger

	mu      sync.Mutex
	queue   []api.WordProgress
	cancel  func()
	syncing bool
	closed  bool
}

// New wires a dispatcher. A nil scheduler gets the real timer scheduler.
func New(poster Poster, auth AuthState, sched Scheduler, debounce time.Duration, batchSize int, log *zap.Logger) *Dispatcher {
	if sched == nil {
		sched = NewTimerScheduler()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Dispatcher{
		poster:    poster,
		auth:      auth,
		sched:     sched,
		debounce:  debounce,
		batchSize: batchSize,
		log:       log,
	}
}

// Enqueue appends the event and restarts the debounce window. Rapid guessing
// keeps pushing the flush out until the user pauses.
func (d *Dispatcher) Enqueue(ev api.WordProgress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, ev)
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = d.sched.Schedule(d.debounce, func() {
		d.flush(context.Background())
	})
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Flush sends everything queued right now, without waiting for the debounce.
// Used on session expiry and explicit sync.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.flush(ctx)
}

// Close stops the pending timer. Queued events stay in memory; callers that
// want them sent should Flush first.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// flush drains the queue in batches. Concurrent flushes collapse into one:
// a second caller finding syncing=true returns and the queue waits for the
// next trigger.
func (d *Dispatcher) flush(ctx context.Context) {
	d.mu.Lock()
	if d.syncing || len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	if d.auth != nil && !d.auth.Authenticated() {
		// Keep the queue; a later sign-in flushes it.
		d.mu.Unlock()
		return
	}
	d.syncing = true
	snapshot := make([]api.WordProgress, len(d.queue))
	copy(snapshot, d.queue)
	d.mu.Unlock()

	ok := d.send(ctx, snapshot)

	d.mu.Lock()
	if ok {
		// Events enqueued during the send stay queued.
		d.queue = d.queue[len(snapshot):]
	}
	d.syncing = false
	d.mu.Unlock()
}

// send uploads the snapshot batch by batch and reports full success. Items
// within a batch go out concurrently; the first failed batch stops the run.
// The caller confirms nothing unless every event went through, so a partial
// send is retried wholesale.
func (d *Dispatcher) send(ctx context.Context, snapshot []api.WordProgress) bool {
	for start := 0; start < len(snapshot); start += d.batchSize {
		end := start + d.batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		batch := snapshot[start:end]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, ev := range batch {
			wg.Add(1)
			go func(i int, ev api.WordProgress) {
				defer wg.Done()
				errs[i] = d.poster.PostWordProgress(ctx, ev)
			}(i, ev)
		}
		wg.Wait()

		failed := false
		for i, err := range errs {
			if err != nil {
				failed = true
				d.log.Warn("word progress upload failed",
					zap.String("verse", batch[i].VerseReference),
					zap.Int("word_index", batch[i].WordIndex),
					zap.Error(err))
			}
		}
		if failed {
			return false
		}
	}
	return true
}
