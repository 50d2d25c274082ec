package render

import (
	"context"
	"sync"
	"testing"
	"time"
)

// instantClock fires immediately and records requested delays.
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// gateClock blocks until the test releases a tick.
type gateClock struct {
	ticks chan time.Time
}

func (c *gateClock) After(time.Duration) <-chan time.Time { return c.ticks }

type recordingSink struct {
	mu       sync.Mutex
	reveals  []string
	finished []int64
	present  func(id int64) bool
}

func (s *recordingSink) Reveal(id int64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.present != nil && !s.present(id) {
		return false
	}
	s.reveals = append(s.reveals, text)
	return true
}

func (s *recordingSink) Finish(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, id)
}

func (s *recordingSink) snapshot() ([]string, []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reveals...), append([]int64(nil), s.finished...)
}

func TestAnimate_RevealsEveryRune(t *testing.T) {
	clk := &instantClock{}
	s := NewScheduler(WithClock(clk))
	sink := &recordingSink{}

	if got := s.Animate(context.Background(), Job{MessageID: 7, Text: "ab"}, sink); got != Completed {
		t.Fatalf("Animate()=%v", got)
	}
	reveals, finished := sink.snapshot()
	if len(reveals) != 2 || reveals[1] != "ab" {
		t.Fatalf("reveals=%q", reveals)
	}
	if len(finished) != 1 || finished[0] != 7 {
		t.Fatalf("finished=%v", finished)
	}
	want := []time.Duration{30 * time.Millisecond, 30 * time.Millisecond, 300 * time.Millisecond}
	if len(clk.delays) != len(want) {
		t.Fatalf("delays=%v", clk.delays)
	}
	for i := range want {
		if clk.delays[i] != want[i] {
			t.Fatalf("delays=%v", clk.delays)
		}
	}
}

func TestAnimate_EmptyCompletesImmediately(t *testing.T) {
	clk := &instantClock{}
	sink := &recordingSink{}
	if got := NewScheduler(WithClock(clk)).Animate(context.Background(), Job{MessageID: 1}, sink); got != Completed {
		t.Fatalf("Animate()=%v", got)
	}
	reveals, finished := sink.snapshot()
	if len(reveals) != 0 || len(finished) != 1 || len(clk.delays) != 0 {
		t.Fatalf("reveals=%v finished=%v delays=%v", reveals, finished, clk.delays)
	}
}

func TestAnimate_CustomUnit(t *testing.T) {
	clk := &instantClock{}
	s := NewScheduler(WithClock(clk), WithUnit(time.Microsecond))
	s.Animate(context.Background(), Job{MessageID: 1, Text: "```x```"}, &recordingSink{})
	if clk.delays[0] != 5*time.Microsecond {
		t.Fatalf("delays=%v", clk.delays)
	}

	clk = &instantClock{}
	NewScheduler(WithClock(clk), WithUnit(0)).Animate(context.Background(), Job{MessageID: 1, Text: "abc"}, &recordingSink{})
	if len(clk.delays) != 0 {
		t.Fatalf("zero unit should not wait: %v", clk.delays)
	}
}

func TestAnimate_OrphanedStopsSilently(t *testing.T) {
	sink := &recordingSink{present: func(int64) bool { return false }}
	got := NewScheduler(WithClock(&instantClock{})).Animate(context.Background(), Job{MessageID: 1, Text: "abc"}, sink)
	if got != Orphaned {
		t.Fatalf("Animate()=%v", got)
	}
	if _, finished := sink.snapshot(); len(finished) != 0 {
		t.Fatalf("Finish called on orphaned job")
	}
}

func TestStart_NewJobCancelsPrevious(t *testing.T) {
	clk := &gateClock{ticks: make(chan time.Time)}
	s := NewScheduler(WithClock(clk))
	first := &recordingSink{}
	second := &recordingSink{}

	done1 := s.Start(context.Background(), Job{MessageID: 1, Text: "hello"}, first)
	// Wait for the first reveal, which happens before the first delay.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if r, _ := first.snapshot(); len(r) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first job never revealed")
		}
		time.Sleep(time.Millisecond)
	}

	done2 := s.Start(context.Background(), Job{MessageID: 2, Text: "x"}, second)
	if got := <-done1; got != Canceled {
		t.Fatalf("first outcome=%v", got)
	}

	close(clk.ticks)
	if got := <-done2; got != Completed {
		t.Fatalf("second outcome=%v", got)
	}
	r1, f1 := first.snapshot()
	if len(r1) != 1 || len(f1) != 0 {
		t.Fatalf("stale job touched the sink: reveals=%v finished=%v", r1, f1)
	}
	if _, f2 := second.snapshot(); len(f2) != 1 || f2[0] != 2 {
		t.Fatalf("second finished=%v", f2)
	}
}

func TestStart_ContextCancel(t *testing.T) {
	clk := &gateClock{ticks: make(chan time.Time)}
	s := NewScheduler(WithClock(clk))
	ctx, cancel := context.WithCancel(context.Background())
	done := s.Start(ctx, Job{MessageID: 1, Text: "abc"}, &recordingSink{})
	cancel()
	select {
	case got := <-done:
		if got != Canceled {
			t.Fatalf("outcome=%v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not stop")
	}
}

func TestStop(t *testing.T) {
	clk := &gateClock{ticks: make(chan time.Time)}
	s := NewScheduler(WithClock(clk))
	done := s.Start(context.Background(), Job{MessageID: 1, Text: "abc"}, &recordingSink{})
	s.Stop()
	if got := <-done; got != Canceled {
		t.Fatalf("outcome=%v", got)
	}
}
