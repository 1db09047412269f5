package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultQuestionPoints applies when a question has no point value configured.
	DefaultQuestionPoints = 100
	// DefaultQuestionDuration applies when a question has no duration configured.
	DefaultQuestionDuration = 30
	MinOptions              = 2
	MaxOptions              = 5
	// MinQuestionDuration and MaxQuestionDuration bound a configured answer window, in seconds.
	MinQuestionDuration = 5
	MaxQuestionDuration = 300
)

// Question is one multiple-choice item supplied by the quiz catalog.
type Question struct {
	Text            string   `json:"questionText" yaml:"questionText"`
	Options         []string `json:"options" yaml:"options"`
	CorrectIndex    int      `json:"correctIndex" yaml:"correctIndex"`
	DurationSeconds int      `json:"duration" yaml:"duration"` // defaults to 30 if zero
	Points          int      `json:"points" yaml:"points"`     // defaults to 100 if zero
}

// Duration returns the answer window of the question.
func (q Question) Duration() time.Duration {
	secs := q.DurationSeconds
	if secs <= 0 {
		secs = DefaultQuestionDuration
	}
	return time.Duration(secs) * time.Second
}

// BasePoints returns the points a correct answer earns before any speed bonus.
func (q Question) BasePoints() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// Public strips the correct answer so the question can be shown to players.
func (q Question) Public(index, total int) PublicQuestion {
	return PublicQuestion{
		Index:           index,
		Total:           total,
		Text:            q.Text,
		Options:         append([]string(nil), q.Options...),
		DurationSeconds: int(q.Duration() / time.Second),
	}
}

// Quiz is an ordered list of questions; rooms treat it as read-only.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks that a quiz can drive a live session.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	for i, question := range q.Questions {
		if n := len(question.Options); n < MinOptions || n > MaxOptions {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuiz, i, n)
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidQuiz, i, question.CorrectIndex)
		}
		if question.Points < 0 {
			return fmt.Errorf("%w: question %d has negative points", ErrInvalidQuiz, i)
		}
		if d := question.DurationSeconds; d != 0 && (d < MinQuestionDuration || d > MaxQuestionDuration) {
			return fmt.Errorf("%w: question %d duration %ds outside %d..%d", ErrInvalidQuiz, i, d, MinQuestionDuration, MaxQuestionDuration)
		}
	}
	return nil
}

// RoomState is the coarse lifecycle of a room.
type RoomState string

const (
	StateWaiting RoomState = "waiting"
	StateActive  RoomState = "active"
	StateEnded   RoomState = "ended"
)

// Phase is the sub-state of an active room.
type Phase string

const (
	PhaseNone        Phase = ""
	PhaseQuestion    Phase = "question"
	PhaseResult      Phase = "result"
	PhaseLeaderboard Phase = "leaderboard"
)

// Answer is one scored submission, kept in question order.
type Answer struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
	Points        int `json:"points"`
}

// Participant is the durable record of one player within a room. The
// connection is a detachable reference; reconnecting only swaps ConnID.
type Participant struct {
	PlayerID  string
	Nickname  string
	AvatarRef string
	Score     int
	Answers   []Answer
	ConnID    string
	JoinOrder int
	JoinedAt  time.Time
}

// Connected reports whether a transport connection is attached.
func (p *Participant) Connected() bool {
	return p.ConnID != ""
}

// AnswerFor returns the participant's answer to a question, if any.
func (p *Participant) AnswerFor(questionIndex int) (Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return a, true
		}
	}
	return Answer{}, false
}

// RosterEntry is the public view of a participant.
type RosterEntry struct {
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	AvatarRef string `json:"avatar,omitempty"`
	Connected bool   `json:"connected"`
}

// LeaderboardEntry is a ranked snapshot row.
type LeaderboardEntry struct {
	Rank               int    `json:"rank"`
	PlayerID           string `json:"playerId"`
	Nickname           string `json:"nickname"`
	AvatarRef          string `json:"avatar,omitempty"`
	Score              int    `json:"score"`
	CorrectAnswerCount int    `json:"correctAnswerCount"`
}

// Leaderboard captures the ordered scoreboard for a room.
type Leaderboard struct {
	Pin       string             `json:"pin"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AnswerSubmission models an answer received from a player.
type AnswerSubmission struct {
	PlayerID      string
	QuestionIndex int
	OptionIndex   int
	SubmittedAt   time.Time
}

// AnswerResult summarizes the outcome of a submission for a single player.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	PointsAwarded int  `json:"pointsAwarded"`
	TotalScore    int  `json:"totalScore"`
}

// RoomSnapshot lets a late joiner sync its view of the room.
type RoomSnapshot struct {
	Pin                  string          `json:"pin"`
	Title                string          `json:"title"`
	State                RoomState       `json:"state"`
	Phase                Phase           `json:"phase,omitempty"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TotalQuestions       int             `json:"totalQuestions"`
	Question             *PublicQuestion `json:"question,omitempty"`
	RemainingSeconds     int             `json:"remainingSeconds,omitempty"`
}

// JoinRequest carries an already-verified identity into the roster.
type JoinRequest struct {
	Nickname  string
	AvatarRef string
	PlayerID  string
	ConnID    string
}

// JoinResult is returned to the joining connection only.
type JoinResult struct {
	PlayerID  string       `json:"playerId"`
	Nickname  string       `json:"nickname"`
	AvatarRef string       `json:"avatar,omitempty"`
	Score     int          `json:"score"`
	Room      RoomSnapshot `json:"room"`
}
