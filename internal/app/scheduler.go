package app

import (
	"time"

	"quiz-live-service/internal/domain"
)

// beginQuestionLocked opens question index and arms its countdown. The server
// clock alone decides when the window closes.
func (r *Room) beginQuestionLocked(index int) {
	q := r.quiz.Questions[index]

	r.state = domain.StateActive
	r.phase = domain.PhaseQuestion
	r.current = index
	r.questionStartedAt = r.clock.Now()
	gen := r.bumpLocked()

	r.logger.Info("question opened", "question_index", index, "duration", q.Duration())
	r.broadcastLocked(domain.QuestionStarted{
		Pin:       r.pin,
		Question:  q.Public(index, len(r.quiz.Questions)),
		StartedAt: r.questionStartedAt,
	})
	r.armLocked(gen, q.Duration(), "question_timeout", func() {
		r.endQuestionLocked()
	})
}

// EndQuestion closes the open answer window. It reports false when there was
// nothing to close, e.g. the window already closed on full participation.
func (r *Room) EndQuestion() bool {
	var closed bool
	_ = r.do("end_question", func() error {
		closed = r.endQuestionLocked()
		return nil
	})
	return closed
}

func (r *Room) endQuestionLocked() bool {
	if r.state != domain.StateActive || r.phase != domain.PhaseQuestion {
		return false
	}
	r.phase = domain.PhaseResult
	gen := r.bumpLocked()

	q := r.quiz.Questions[r.current]
	ordered := r.orderedLocked()
	results := make([]domain.ParticipantResult, 0, len(ordered))
	for _, p := range ordered {
		row := domain.ParticipantResult{
			PlayerID: p.PlayerID,
			Nickname: p.Nickname,
			Score:    p.Score,
		}
		if a, ok := p.AnswerFor(r.current); ok {
			row.Answered = true
			row.IsCorrect = a.OptionIndex == q.CorrectIndex
			row.PointsAwarded = a.Points
		}
		results = append(results, row)
	}

	r.logger.Info("question closed", "question_index", r.current)
	r.broadcastLocked(domain.QuestionResult{
		Pin:           r.pin,
		QuestionIndex: r.current,
		CorrectIndex:  q.CorrectIndex,
		Results:       results,
	})

	if d := r.settings.ResultDisplay; d > 0 {
		r.armLocked(gen, d, "result_display", func() {
			r.showLeaderboardLocked()
		})
	}
	return true
}

// allAnsweredLocked reports whether every connected participant has answered
// the current question. Detached players do not hold the window open.
func (r *Room) allAnsweredLocked() bool {
	connected := 0
	for _, p := range r.participants {
		if !p.Connected() {
			continue
		}
		connected++
		if _, ok := p.AnswerFor(r.current); !ok {
			return false
		}
	}
	return connected > 0
}

// bumpLocked invalidates every callback armed so far and returns the new generation.
func (r *Room) bumpLocked() uint64 {
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	return r.generation
}

// armLocked schedules fn to run under the room lock after d, unless the room
// has moved to another generation in the meantime.
func (r *Room) armLocked(gen uint64, d time.Duration, name string, fn func()) {
	r.timer = r.clock.AfterFunc(d, func() {
		_ = r.do(name, func() error {
			if r.generation != gen {
				r.logger.Debug("stale timer ignored", "timer", name, "armed", gen, "current", r.generation)
				return nil
			}
			r.timer = nil
			fn()
			return nil
		})
	})
}
