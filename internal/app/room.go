package app

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-live-service/internal/domain"
)

// Room is the live state of one quiz run. Every mutation goes through do,
// which serializes it under mu and turns a panic into an aborted room.
type Room struct {
	id        string
	pin       string
	quiz      domain.Quiz
	settings  Settings
	clock     Clock
	logger    *slog.Logger
	createdAt time.Time

	// onEnded is invoked once, outside the lock, after the room reached ended.
	onEnded func(*Room)

	mu                sync.Mutex
	state             domain.RoomState
	phase             domain.Phase
	current           int
	questionStartedAt time.Time
	generation        uint64
	timer             Timer
	endReason         domain.EndReason
	endedAt           time.Time
	endNotified       bool
	finalBoard        domain.Leaderboard

	participants map[string]*domain.Participant
	nicknames    map[string]string
	joined       int
	subscribers  map[string]*subscriber
}

type subscriber struct {
	connID string
	ch     chan domain.Event
}

// Subscription is one connection's view of the room event stream. Events is
// closed when the room ends or the connection is dropped.
type Subscription struct {
	ConnID string
	Events <-chan domain.Event

	room *Room
	sub  *subscriber
}

// Close detaches the stream from the room.
func (s *Subscription) Close() {
	s.room.unsubscribe(s.sub)
}

func newRoom(pin string, quiz domain.Quiz, settings Settings, clock Clock, logger *slog.Logger) *Room {
	return &Room{
		id:           uuid.NewString(),
		pin:          pin,
		quiz:         quiz,
		settings:     settings,
		clock:        clock,
		logger:       logger,
		createdAt:    clock.Now(),
		state:        domain.StateWaiting,
		current:      -1,
		participants: make(map[string]*domain.Participant),
		nicknames:    make(map[string]string),
		subscribers:  make(map[string]*subscriber),
	}
}

func (r *Room) Pin() string { return r.pin }

// ID distinguishes this room from earlier rooms that held the same PIN.
func (r *Room) ID() string { return r.id }

func (r *Room) Quiz() domain.Quiz { return r.quiz }

func (r *Room) State() (domain.RoomState, domain.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.phase
}

func (r *Room) CurrentQuestionIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// do runs fn with the room locked.
func (r *Room) do(op string, fn func() error) (err error) {
	var ended bool
	defer func() {
		if ended && r.onEnded != nil {
			r.onEnded(r)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("room operation panicked, ending room", "op", op, "panic", fmt.Sprint(rec))
			r.endLocked(domain.EndAborted)
			err = fmt.Errorf("%s: %w", op, domain.ErrInternal)
		}
		if r.state == domain.StateEnded && !r.endNotified {
			r.endNotified = true
			ended = true
		}
	}()
	return fn()
}

// Subscribe attaches a connection to the room's broadcasts. The current
// roster is queued immediately so the connection can render the lobby.
func (r *Room) Subscribe(connID string) (*Subscription, error) {
	var sub *subscriber
	err := r.do("subscribe", func() error {
		if r.state == domain.StateEnded {
			return domain.ErrRoomNotFound
		}
		if old, ok := r.subscribers[connID]; ok {
			close(old.ch)
		}
		sub = &subscriber{connID: connID, ch: make(chan domain.Event, r.settings.EventBuffer)}
		r.subscribers[connID] = sub
		sub.ch <- r.rosterLocked()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Subscription{ConnID: connID, Events: sub.ch, room: r, sub: sub}, nil
}

func (r *Room) unsubscribe(sub *subscriber) {
	_ = r.do("unsubscribe", func() error {
		if current, ok := r.subscribers[sub.connID]; ok && current == sub {
			delete(r.subscribers, sub.connID)
			close(sub.ch)
		}
		return nil
	})
}

// broadcastLocked fans ev out without blocking. A connection whose queue is
// full is dropped and treated as if it had left.
func (r *Room) broadcastLocked(ev domain.Event) {
	var dropped []*subscriber
	for _, sub := range r.subscribers {
		select {
		case sub.ch <- ev:
		default:
			dropped = append(dropped, sub)
		}
	}
	if len(dropped) == 0 {
		return
	}

	rosterChanged := false
	for _, sub := range dropped {
		r.logger.Warn("connection too slow, detaching", "conn_id", sub.connID, "event", ev.Type())
		delete(r.subscribers, sub.connID)
		close(sub.ch)
		if r.detachLocked(sub.connID) {
			rosterChanged = true
		}
	}
	if rosterChanged && r.state != domain.StateEnded {
		r.broadcastLocked(r.rosterLocked())
	}
}

func (r *Room) closeSubscribersLocked() {
	for id, sub := range r.subscribers {
		close(sub.ch)
		delete(r.subscribers, id)
	}
}

// orderedLocked returns participants in join order.
func (r *Room) orderedLocked() []*domain.Participant {
	out := make([]*domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinOrder < out[j].JoinOrder
	})
	return out
}

// Snapshot describes the room for a client that needs to sync its view.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() domain.RoomSnapshot {
	snap := domain.RoomSnapshot{
		Pin:                  r.pin,
		Title:                r.quiz.Title,
		State:                r.state,
		Phase:                r.phase,
		CurrentQuestionIndex: r.current,
		TotalQuestions:       len(r.quiz.Questions),
	}
	if r.state == domain.StateActive && r.phase == domain.PhaseQuestion {
		q := r.quiz.Questions[r.current]
		public := q.Public(r.current, len(r.quiz.Questions))
		snap.Question = &public
		remaining := q.Duration() - r.clock.Now().Sub(r.questionStartedAt)
		if remaining > 0 {
			snap.RemainingSeconds = int((remaining + time.Second - 1) / time.Second)
		}
	}
	return snap
}
