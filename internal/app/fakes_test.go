package app_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/memory"
)

// fakeClock only moves when the test calls Advance. With leaky set, stopped
// timers still fire, like a runtime that cannot cancel a callback in flight.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	leaky  bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every callback that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.fired || t.at.After(c.now) {
			continue
		}
		if t.stopped && !c.leaky {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// pending counts timers that could still fire.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialPins() func() string {
	var mu sync.Mutex
	next := 100000
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return strconv.Itoa(next)
	}
}

type harness struct {
	registry *app.Registry
	clock    *fakeClock
	ledger   *memory.PinLedger
}

func newHarness(t *testing.T, settings app.Settings) *harness {
	t.Helper()
	clock := newFakeClock()
	ledger := memory.NewPinLedger()
	return &harness{
		registry: app.NewRegistryWithClock(ledger, settings, discardLogger(), clock, sequentialPins()),
		clock:    clock,
		ledger:   ledger,
	}
}

// manualSettings disables every display timer so tests drive phases explicitly.
func manualSettings() app.Settings {
	s := app.DefaultSettings()
	s.ResultDisplay = 0
	s.LeaderboardDisplay = 0
	return s
}

func (h *harness) room(t *testing.T, quiz domain.Quiz) *app.Room {
	t.Helper()
	room, err := h.registry.CreateRoom(context.Background(), quiz)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func join(t *testing.T, room *app.Room, playerID, nickname, connID string) domain.JoinResult {
	t.Helper()
	res, err := room.Join(domain.JoinRequest{PlayerID: playerID, Nickname: nickname, ConnID: connID})
	if err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
	return res
}

func singleQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Letters",
		Questions: []domain.Question{
			{Text: "Pick B", Options: []string{"A", "B", "C"}, CorrectIndex: 1, DurationSeconds: 10, Points: 100},
		},
	}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-2",
		Title: "Maths",
		Questions: []domain.Question{
			{Text: "2 + 2", Options: []string{"3", "4"}, CorrectIndex: 1, DurationSeconds: 10, Points: 100},
			{Text: "3 * 3", Options: []string{"6", "9", "12"}, CorrectIndex: 1, DurationSeconds: 20},
		},
	}
}

// drain returns queued events without blocking; closed reports whether the stream ended.
func drain(sub *app.Subscription) (events []domain.Event, closed bool) {
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return events, true
			}
			events = append(events, ev)
		default:
			return events, false
		}
	}
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type())
	}
	return out
}
