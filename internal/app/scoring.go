package app

import (
	"sort"
	"time"

	"quiz-live-service/internal/domain"
)

// SpeedBonus decays linearly from maxBonus at elapsed=0 to 0 at elapsed=window.
func SpeedBonus(elapsed, window time.Duration, maxBonus int) int {
	if maxBonus <= 0 || window <= 0 || elapsed >= window {
		return 0
	}
	if elapsed <= 0 {
		return maxBonus
	}
	return int(int64(maxBonus) * int64(window-elapsed) / int64(window))
}

// ScoreAnswer returns (correct, points) for one submission. Wrong answers earn nothing.
func ScoreAnswer(q domain.Question, optionIndex int, elapsed time.Duration, maxBonus int) (bool, int) {
	if optionIndex != q.CorrectIndex {
		return false, 0
	}
	return true, q.BasePoints() + SpeedBonus(elapsed, q.Duration(), maxBonus)
}

// SubmitAnswer scores one answer for the open question. The result goes back
// to the submitter only; other players learn outcomes from the reveal.
func (r *Room) SubmitAnswer(sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	var result domain.AnswerResult
	err := r.do("submit_answer", func() error {
		p, ok := r.participants[sub.PlayerID]
		if !ok {
			return domain.ErrParticipantNotFound
		}
		if _, answered := p.AnswerFor(sub.QuestionIndex); answered {
			return domain.ErrDuplicateSubmission
		}
		if r.state != domain.StateActive || r.phase != domain.PhaseQuestion || sub.QuestionIndex != r.current {
			return domain.ErrStaleSubmission
		}

		q := r.quiz.Questions[r.current]
		submittedAt := sub.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = r.clock.Now()
		}
		elapsed := submittedAt.Sub(r.questionStartedAt)
		if elapsed > q.Duration() {
			// the countdown callback may not have run yet, but the window is closed
			return domain.ErrStaleSubmission
		}
		if sub.OptionIndex < 0 || sub.OptionIndex >= len(q.Options) {
			return domain.ErrInvalidOption
		}

		correct, points := ScoreAnswer(q, sub.OptionIndex, elapsed, r.settings.MaxSpeedBonus)
		p.Answers = append(p.Answers, domain.Answer{
			QuestionIndex: r.current,
			OptionIndex:   sub.OptionIndex,
			Points:        points,
		})
		p.Score += points

		result = domain.AnswerResult{
			QuestionIndex: r.current,
			IsCorrect:     correct,
			PointsAwarded: points,
			TotalScore:    p.Score,
		}
		r.logger.Debug("answer scored", "player_id", p.PlayerID, "question_index", r.current, "correct", correct, "points", points, "elapsed", elapsed)

		if r.allAnsweredLocked() {
			r.endQuestionLocked()
		}
		return nil
	})
	return result, err
}

// Leaderboard ranks participants by score, earliest joiner first on ties.
// Ended rooms keep serving the final standings.
func (r *Room) Leaderboard() domain.Leaderboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == domain.StateEnded {
		return r.finalBoard
	}
	return r.leaderboardLocked()
}

func (r *Room) leaderboardLocked() domain.Leaderboard {
	ordered := r.orderedLocked()
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for i, p := range ordered {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:               i + 1,
			PlayerID:           p.PlayerID,
			Nickname:           p.Nickname,
			AvatarRef:          p.AvatarRef,
			Score:              p.Score,
			CorrectAnswerCount: r.correctCountLocked(p),
		})
	}
	return domain.Leaderboard{
		Pin:       r.pin,
		Entries:   entries,
		UpdatedAt: r.clock.Now(),
	}
}

func (r *Room) correctCountLocked(p *domain.Participant) int {
	n := 0
	for _, a := range p.Answers {
		if a.QuestionIndex < len(r.quiz.Questions) && a.OptionIndex == r.quiz.Questions[a.QuestionIndex].CorrectIndex {
			n++
		}
	}
	return n
}
