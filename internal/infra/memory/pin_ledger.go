package memory

import (
	"context"
	"sync"
)

// PinLedger is an in-memory implementation of app.PinLedger for single-instance deployments.
type PinLedger struct {
	mu   sync.Mutex
	pins map[string]struct{}
}

func NewPinLedger() *PinLedger {
	return &PinLedger{
		pins: make(map[string]struct{}),
	}
}

func (l *PinLedger) Reserve(_ context.Context, pin string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.pins[pin]; taken {
		return false, nil
	}
	l.pins[pin] = struct{}{}
	return true, nil
}

func (l *PinLedger) Release(_ context.Context, pin string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pins, pin)
	return nil
}

// Refresh reports whether pin is still reserved; in-process reservations never expire.
func (l *PinLedger) Refresh(_ context.Context, pin string) (bool, error) {
	return l.Held(pin), nil
}

// Held reports whether pin is currently reserved.
func (l *PinLedger) Held(pin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pins[pin]
	return ok
}
