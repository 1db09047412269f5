package app

import "time"

// Settings tunes room behaviour. Zero durations disable the matching auto transition.
type Settings struct {
	// MaxSpeedBonus is awarded on top of base points for an instant correct answer.
	MaxSpeedBonus int
	// PinRetries bounds PIN draws before ErrPinExhaustion.
	PinRetries int
	// Retention keeps an ended room reachable for late leaderboard fetches.
	Retention time.Duration
	// ResultDisplay moves a room from result to leaderboard automatically.
	ResultDisplay time.Duration
	// LeaderboardDisplay advances a room from leaderboard to the next question automatically.
	LeaderboardDisplay time.Duration
	// EventBuffer is the per-connection outbound queue size.
	EventBuffer int
}

func DefaultSettings() Settings {
	return Settings{
		MaxSpeedBonus: 1000,
		PinRetries:    10,
		Retention:     10 * time.Minute,
		ResultDisplay: 5 * time.Second,
		EventBuffer:   32,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxSpeedBonus < 0 {
		s.MaxSpeedBonus = 0
	}
	if s.PinRetries <= 0 {
		s.PinRetries = def.PinRetries
	}
	if s.Retention < 0 {
		s.Retention = 0
	}
	if s.EventBuffer <= 0 {
		s.EventBuffer = def.EventBuffer
	}
	return s
}
