package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"versekeep/internal/api"
)

type fakePoster struct {
	mu     sync.Mutex
	sent   []api.WordProgress
	failOn func(ev api.WordProgress) bool
}

func (f *fakePoster) PostWordProgress(_ context.Context, ev api.WordProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil && f.failOn(ev) {
		return errors.New("upload failed")
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakePoster) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeAuth struct {
	ok bool
}

func (f *fakeAuth) Authenticated() bool { return f.ok }

// fakeScheduler records scheduled callbacks so tests fire them by hand.
type fakeScheduler struct {
	mu        sync.Mutex
	pending   func()
	scheduled int
	cancelled int
}

func (f *fakeScheduler) Schedule(_ time.Duration, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled++
	f.pending = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled++
	}
}

func (f *fakeScheduler) fire() {
	f.mu.Lock()
	fn := f.pending
	f.pending = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func event(ref string, idx int) api.WordProgress {
	return api.WordProgress{VerseReference: ref, WordIndex: idx, Word: "w", IsCorrect: true}
}

func TestEnqueueResetsDebounce(t *testing.T) {
	sched := &fakeScheduler{}
	d := New(&fakePoster{}, &fakeAuth{ok: true}, sched, time.Second, 10, nil)

	d.Enqueue(event("John 3:16", 0))
	d.Enqueue(event("John 3:16", 1))
	d.Enqueue(event("John 3:16", 2))

	if sched.scheduled != 3 {
		t.Fatalf("scheduled = %d, want 3 (one per enqueue)", sched.scheduled)
	}
	if sched.cancelled != 2 {
		t.Fatalf("cancelled = %d, want 2 (prior timers reset)", sched.cancelled)
	}
	if d.Pending() != 3 {
		t.Fatalf("pending = %d, want 3 before the timer fires", d.Pending())
	}
}

func TestDebounceFireSendsAll(t *testing.T) {
	poster := &fakePoster{}
	sched := &fakeScheduler{}
	d := New(poster, &fakeAuth{ok: true}, sched, time.Second, 10, nil)

	for i := 0; i < 5; i++ {
		d.Enqueue(event("John 3:16", i))
	}
	sched.fire()

	if got := poster.sentCount(); got != 5 {
		t.Fatalf("sent = %d, want 5", got)
	}
	if d.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after flush", d.Pending())
	}
}

func TestMidBatchFailureKeepsQueueIntact(t *testing.T) {
	// Twelve events: batch one (10) succeeds, batch two fails on one item.
	// A failed flush confirms nothing; all twelve stay queued and the next
	// flush resends them all, leaning on the server-side (verse, word index)
	// dedupe to absorb the repeats.
	poster := &fakePoster{
		failOn: func(ev api.WordProgress) bool { return ev.WordIndex == 10 },
	}
	sched := &fakeScheduler{}
	d := New(poster, &fakeAuth{ok: true}, sched, time.Second, 10, nil)

	for i := 0; i < 12; i++ {
		d.Enqueue(event("Psalm 23:1", i))
	}
	sched.fire()

	if d.Pending() != 12 {
		t.Fatalf("pending = %d, want all 12 retained after a failed flush", d.Pending())
	}

	// A later flush retries everything, including events whose first send
	// went through.
	poster.failOn = nil
	d.Flush(context.Background())
	if d.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after retry", d.Pending())
	}
	seen := map[int]bool{}
	for _, ev := range poster.sent {
		seen[ev.WordIndex] = true
	}
	for i := 0; i < 12; i++ {
		if !seen[i] {
			t.Fatalf("word index %d never delivered", i)
		}
	}
}

func TestUnauthenticatedFlushKeepsQueue(t *testing.T) {
	poster := &fakePoster{}
	sched := &fakeScheduler{}
	auth := &fakeAuth{ok: false}
	d := New(poster, auth, sched, time.Second, 10, nil)

	d.Enqueue(event("John 3:16", 0))
	sched.fire()

	if poster.sentCount() != 0 {
		t.Fatal("nothing should be sent while signed out")
	}
	if d.Pending() != 1 {
		t.Fatalf("pending = %d, want queue kept", d.Pending())
	}

	// Signing in and flushing drains the backlog.
	auth.ok = true
	d.Flush(context.Background())
	if d.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after sign-in flush", d.Pending())
	}
}

func TestOrderPreservedAcrossBatches(t *testing.T) {
	poster := &fakePoster{}
	sched := &fakeScheduler{}
	d := New(poster, &fakeAuth{ok: true}, sched, time.Second, 3, nil)

	for i := 0; i < 7; i++ {
		d.Enqueue(event("John 3:16", i))
	}
	sched.fire()

	if got := poster.sentCount(); got != 7 {
		t.Fatalf("sent = %d, want 7", got)
	}
	// Batches are sequential; within a batch order may interleave, so group
	// membership is what is checked.
	batches := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	pos := 0
	for _, b := range batches {
		seen := map[int]bool{}
		for _, ev := range poster.sent[b[0]:b[1]] {
			seen[ev.WordIndex] = true
		}
		for i := b[0]; i < b[1]; i++ {
			if !seen[i] {
				t.Fatalf("word index %d missing from batch starting at %d", i, b[0])
			}
		}
		pos = b[1]
	}
	if pos != 7 {
		t.Fatalf("checked %d events, want 7", pos)
	}
}

func TestEnqueueAfterCloseDropped(t *testing.T) {
	sched := &fakeScheduler{}
	d := New(&fakePoster{}, &fakeAuth{ok: true}, sched, time.Second, 10, nil)

	d.Enqueue(event("John 3:16", 0))
	d.Close()
	d.Enqueue(event("John 3:16", 1))

	if d.Pending() != 1 {
		t.Fatalf("pending = %d, want enqueue after close ignored", d.Pending())
	}
}
