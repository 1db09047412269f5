package app

import (
	"github.com/google/uuid"

	"quiz-live-service/internal/domain"
)

// Join admits a player or re-admits a known playerId. Nicknames are compared
// byte for byte; the caller owns any normalization.
func (r *Room) Join(req domain.JoinRequest) (domain.JoinResult, error) {
	var result domain.JoinResult
	err := r.do("join", func() error {
		if r.state == domain.StateEnded {
			return domain.ErrRoomNotFound
		}
		if holder, ok := r.nicknames[req.Nickname]; ok && holder != req.PlayerID {
			return domain.ErrNicknameTaken
		}

		p, known := r.participants[req.PlayerID]
		if known {
			if p.Nickname != req.Nickname {
				delete(r.nicknames, p.Nickname)
				p.Nickname = req.Nickname
			}
			if req.AvatarRef != "" {
				p.AvatarRef = req.AvatarRef
			}
		} else {
			playerID := req.PlayerID
			if playerID == "" {
				playerID = uuid.NewString()
			}
			p = &domain.Participant{
				PlayerID:  playerID,
				Nickname:  req.Nickname,
				AvatarRef: req.AvatarRef,
				JoinOrder: r.joined,
				JoinedAt:  r.clock.Now(),
			}
			r.joined++
			r.participants[playerID] = p
		}
		r.nicknames[p.Nickname] = p.PlayerID
		r.attachLocked(p, req.ConnID)

		r.logger.Info("participant joined", "player_id", p.PlayerID, "nickname", p.Nickname, "rejoin", known)
		r.broadcastLocked(r.rosterLocked())
		result = r.joinResultLocked(p)
		return nil
	})
	return result, err
}

// Reconnect re-associates connID with an existing participant, keeping score and answers.
func (r *Room) Reconnect(playerID, connID string) (domain.JoinResult, error) {
	var result domain.JoinResult
	err := r.do("reconnect", func() error {
		if r.state == domain.StateEnded {
			return domain.ErrRoomNotFound
		}
		p, ok := r.participants[playerID]
		if !ok {
			return domain.ErrParticipantNotFound
		}
		r.attachLocked(p, connID)

		r.logger.Info("participant reconnected", "player_id", playerID)
		r.broadcastLocked(r.rosterLocked())
		result = r.joinResultLocked(p)
		return nil
	})
	return result, err
}

// Leave detaches whichever participant is bound to connID. The participant
// record and score survive so the player can reconnect later.
func (r *Room) Leave(connID string) {
	_ = r.do("leave", func() error {
		if connID == "" || !r.detachLocked(connID) {
			return nil
		}
		if r.state == domain.StateEnded {
			return nil
		}
		r.broadcastLocked(r.rosterLocked())
		if r.phase == domain.PhaseQuestion && r.allAnsweredLocked() {
			r.endQuestionLocked()
		}
		return nil
	})
}

// Roster returns the public participant list in join order.
func (r *Room) Roster() []domain.RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked().Participants
}

func (r *Room) attachLocked(p *domain.Participant, connID string) {
	if connID == "" {
		return
	}
	// a connection speaks for one player only
	for _, other := range r.participants {
		if other != p && other.ConnID == connID {
			other.ConnID = ""
		}
	}
	p.ConnID = connID
}

func (r *Room) detachLocked(connID string) bool {
	for _, p := range r.participants {
		if p.ConnID == connID {
			p.ConnID = ""
			r.logger.Info("participant detached", "player_id", p.PlayerID)
			return true
		}
	}
	return false
}

func (r *Room) rosterLocked() domain.RosterUpdate {
	ordered := r.orderedLocked()
	entries := make([]domain.RosterEntry, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, domain.RosterEntry{
			PlayerID:  p.PlayerID,
			Nickname:  p.Nickname,
			AvatarRef: p.AvatarRef,
			Connected: p.Connected(),
		})
	}
	return domain.RosterUpdate{Pin: r.pin, Participants: entries}
}

func (r *Room) joinResultLocked(p *domain.Participant) domain.JoinResult {
	return domain.JoinResult{
		PlayerID:  p.PlayerID,
		Nickname:  p.Nickname,
		AvatarRef: p.AvatarRef,
		Score:     p.Score,
		Room:      r.snapshotLocked(),
	}
}
