package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"

	"quiz-live-service/internal/domain"
)

// PinLedger tracks which PINs are held by live rooms (in-memory, Redis, etc).
type PinLedger interface {
	// Reserve claims pin and reports false if it is already held.
	Reserve(ctx context.Context, pin string) (bool, error)
	Release(ctx context.Context, pin string) error
	// Refresh keeps a reservation alive and reports false once it was lost.
	Refresh(ctx context.Context, pin string) (bool, error)
}

// Registry owns every room of the process, keyed by PIN.
type Registry struct {
	ledger   PinLedger
	settings Settings
	clock    Clock
	logger   *slog.Logger
	newPin   func() string

	mu       sync.RWMutex
	rooms    map[string]*Room
	removals map[string]Timer
	closed   bool
}

func NewRegistry(ledger PinLedger, settings Settings, logger *slog.Logger) *Registry {
	return NewRegistryWithClock(ledger, settings, logger, SystemClock(), randomPin)
}

// NewRegistryWithClock allows deterministic time and PIN draws in tests.
func NewRegistryWithClock(ledger PinLedger, settings Settings, logger *slog.Logger, clock Clock, pins func() string) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if pins == nil {
		pins = randomPin
	}
	return &Registry{
		ledger:   ledger,
		settings: settings.withDefaults(),
		clock:    clock,
		logger:   logger,
		newPin:   pins,
		rooms:    make(map[string]*Room),
		removals: make(map[string]Timer),
	}
}

// randomPin draws a 6-digit PIN without a leading zero.
func randomPin() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// CreateRoom validates quiz and registers a waiting room under a fresh PIN.
func (r *Registry) CreateRoom(ctx context.Context, quiz domain.Quiz) (*Room, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, domain.ErrShuttingDown
	}

	for attempt := 0; attempt < r.settings.PinRetries; attempt++ {
		pin := r.newPin()

		r.mu.RLock()
		_, taken := r.rooms[pin]
		r.mu.RUnlock()
		if taken {
			continue
		}

		ok, err := r.ledger.Reserve(ctx, pin)
		if err != nil {
			return nil, fmt.Errorf("reserve pin: %w", err)
		}
		if !ok {
			continue
		}

		room := newRoom(pin, quiz, r.settings, r.clock, r.logger.With("pin", pin))
		room.onEnded = r.scheduleRemoval

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = r.ledger.Release(ctx, pin)
			return nil, domain.ErrShuttingDown
		}
		r.rooms[pin] = room
		r.mu.Unlock()

		r.logger.Info("room created", "pin", pin, "quiz_id", quiz.ID, "questions", len(quiz.Questions))
		return room, nil
	}
	return nil, domain.ErrPinExhaustion
}

// GetRoom returns the room registered under pin, including ended rooms still in retention.
func (r *Registry) GetRoom(pin string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[pin]
	return room, ok
}

// RetireRoom ends the room and drops its PIN once the retention window elapses.
func (r *Registry) RetireRoom(pin string) {
	room, ok := r.GetRoom(pin)
	if !ok {
		return
	}
	room.terminate(domain.EndForced)
}

// ActiveRooms reports how many rooms are registered.
func (r *Registry) ActiveRooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RefreshPins extends the ledger reservation of every registered room.
// A room whose PIN was lost keeps running; the loss is only logged.
func (r *Registry) RefreshPins(ctx context.Context) error {
	r.mu.RLock()
	pins := make([]string, 0, len(r.rooms))
	for pin := range r.rooms {
		pins = append(pins, pin)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, pin := range pins {
		held, err := r.ledger.Refresh(ctx, pin)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !held {
			r.logger.Warn("pin reservation lost", "pin", pin)
		}
	}
	return firstErr
}

// scheduleRemoval runs once per room, after it reached ended.
func (r *Registry) scheduleRemoval(room *Room) {
	pin := room.Pin()

	r.mu.Lock()
	if r.closed || r.settings.Retention == 0 {
		r.mu.Unlock()
		r.remove(pin)
		return
	}
	if _, pending := r.removals[pin]; pending {
		r.mu.Unlock()
		return
	}
	r.removals[pin] = r.clock.AfterFunc(r.settings.Retention, func() {
		r.remove(pin)
	})
	r.mu.Unlock()
}

func (r *Registry) remove(pin string) {
	r.mu.Lock()
	_, ok := r.rooms[pin]
	delete(r.rooms, pin)
	if t, pending := r.removals[pin]; pending {
		t.Stop()
		delete(r.removals, pin)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := r.ledger.Release(context.Background(), pin); err != nil {
		r.logger.Warn("release pin failed", "pin", pin, "error", err)
	}
	r.logger.Info("room removed", "pin", pin)
}

// Shutdown ends every room, stops their timers and frees all PINs.
// Rooms are drained even when ctx is already done; ctx.Err() is reported after.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	for _, room := range rooms {
		room.terminate(domain.EndAborted)
		// rooms that had already ended are still waiting on a retention timer
		r.remove(room.Pin())
	}
	r.logger.Info("registry drained", "rooms", len(rooms))
	return ctx.Err()
}
