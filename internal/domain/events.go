package domain

import "time"

// EventType names an outbound room broadcast on the wire.
type EventType string

const (
	EventParticipantsUpdate EventType = "participants:update"
	EventQuestionNew        EventType = "question:new"
	EventQuestionResult     EventType = "question:result"
	EventLeaderboardUpdate  EventType = "leaderboard:update"
	EventGameEnd            EventType = "game:end"
)

// Event is the closed set of broadcasts a room emits to its connections.
type Event interface {
	Type() EventType
	isEvent()
}

// PublicQuestion is a question as shown to players, without the correct index.
type PublicQuestion struct {
	Index           int      `json:"index"`
	Total           int      `json:"total"`
	Text            string   `json:"text"`
	Options         []string `json:"options"`
	DurationSeconds int      `json:"durationSeconds"`
}

// RosterUpdate is broadcast whenever the room's roster or presence changes.
type RosterUpdate struct {
	Pin          string        `json:"pin"`
	Participants []RosterEntry `json:"participants"`
}

// QuestionStarted opens a new answer window.
type QuestionStarted struct {
	Pin       string         `json:"pin"`
	Question  PublicQuestion `json:"question"`
	StartedAt time.Time      `json:"startedAt"`
}

// ParticipantResult is one row of the per-question correctness summary.
type ParticipantResult struct {
	PlayerID      string `json:"playerId"`
	Nickname      string `json:"nickname"`
	Answered      bool   `json:"answered"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
	Score         int    `json:"score"`
}

// QuestionResult reveals the correct option once the window is closed.
type QuestionResult struct {
	Pin           string              `json:"pin"`
	QuestionIndex int                 `json:"questionIndex"`
	CorrectIndex  int                 `json:"correctIndex"`
	Results       []ParticipantResult `json:"results"`
}

// LeaderboardUpdate carries ranked standings between questions.
type LeaderboardUpdate struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

// EndReason explains why a room ended.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndForced    EndReason = "host_ended"
	EndAborted   EndReason = "aborted"
)

// GameEnded is the final broadcast of a room.
type GameEnded struct {
	Pin         string      `json:"pin"`
	Reason      EndReason   `json:"reason"`
	Leaderboard Leaderboard `json:"leaderboard"`
}

func (RosterUpdate) Type() EventType      { return EventParticipantsUpdate }
func (QuestionStarted) Type() EventType   { return EventQuestionNew }
func (QuestionResult) Type() EventType    { return EventQuestionResult }
func (LeaderboardUpdate) Type() EventType { return EventLeaderboardUpdate }
func (GameEnded) Type() EventType         { return EventGameEnd }

func (RosterUpdate) isEvent()      {}
func (QuestionStarted) isEvent()   {}
func (QuestionResult) isEvent()    {}
func (LeaderboardUpdate) isEvent() {}
func (GameEnded) isEvent()         {}
