package app

import (
	"quiz-live-service/internal/domain"
)

// Room lifecycle:
//
//	waiting -> active.question -> active.result -> active.leaderboard -> active.question ...
//	active.* -> ended
//
// question -> result is the only transition that fires on its own (timer or
// full participation); the rest are host commands or optional display timers.

// Start opens the first question. Only the host may start, and only once.
func (r *Room) Start(isHost bool) error {
	return r.do("start", func() error {
		if !isHost {
			return domain.ErrNotHost
		}
		if r.state != domain.StateWaiting {
			return domain.ErrInvalidState
		}
		r.logger.Info("game started", "participants", len(r.participants))
		r.beginQuestionLocked(0)
		return nil
	})
}

// Advance moves from result or leaderboard to the next question, or ends the
// room after the last one.
func (r *Room) Advance(isHost bool) error {
	return r.do("advance", func() error {
		if !isHost {
			return domain.ErrNotHost
		}
		return r.advanceLocked()
	})
}

// ShowLeaderboard moves from result to leaderboard.
func (r *Room) ShowLeaderboard(isHost bool) error {
	return r.do("show_leaderboard", func() error {
		if !isHost {
			return domain.ErrNotHost
		}
		if !r.showLeaderboardLocked() {
			return domain.ErrInvalidState
		}
		return nil
	})
}

// ForceEnd ends an active room immediately and emits the final leaderboard.
func (r *Room) ForceEnd(isHost bool) error {
	return r.do("force_end", func() error {
		if !isHost {
			return domain.ErrNotHost
		}
		if r.state != domain.StateActive {
			return domain.ErrInvalidState
		}
		r.endLocked(domain.EndForced)
		return nil
	})
}

// terminate ends the room from any state; used by retirement and shutdown.
func (r *Room) terminate(reason domain.EndReason) {
	_ = r.do("terminate", func() error {
		r.endLocked(reason)
		return nil
	})
}

func (r *Room) advanceLocked() error {
	if r.state != domain.StateActive || (r.phase != domain.PhaseResult && r.phase != domain.PhaseLeaderboard) {
		return domain.ErrInvalidState
	}
	if r.current+1 >= len(r.quiz.Questions) {
		r.endLocked(domain.EndCompleted)
		return nil
	}
	r.beginQuestionLocked(r.current + 1)
	return nil
}

func (r *Room) showLeaderboardLocked() bool {
	if r.state != domain.StateActive || r.phase != domain.PhaseResult {
		return false
	}
	r.phase = domain.PhaseLeaderboard
	gen := r.bumpLocked()
	r.broadcastLocked(domain.LeaderboardUpdate{Leaderboard: r.leaderboardLocked()})

	if d := r.settings.LeaderboardDisplay; d > 0 {
		r.armLocked(gen, d, "leaderboard_display", func() {
			if err := r.advanceLocked(); err != nil {
				r.logger.Debug("auto advance skipped", "error", err)
			}
		})
	}
	return true
}

// endLocked is a no-op once the room has ended.
func (r *Room) endLocked(reason domain.EndReason) bool {
	if r.state == domain.StateEnded {
		return false
	}
	r.bumpLocked()
	r.state = domain.StateEnded
	r.phase = domain.PhaseNone
	r.endReason = reason
	r.endedAt = r.clock.Now()
	r.finalBoard = r.leaderboardLocked()

	r.logger.Info("game ended", "reason", reason, "question_index", r.current)
	r.broadcastLocked(domain.GameEnded{Pin: r.pin, Reason: reason, Leaderboard: r.finalBoard})
	r.closeSubscribersLocked()
	return true
}
