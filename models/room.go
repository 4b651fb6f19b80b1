package models

import (
	"time"
)

// Game states a room moves through. Transitions only move forward:
// waiting -> playing -> voting -> finished. A finished room never
// returns to waiting; a new round means a new room.
const (
	GameStateWaiting  = "waiting"
	GameStatePlaying  = "playing"
	GameStateVoting   = "voting"
	GameStateFinished = "finished"
)

const (
	MinPlayers          = 3
	MaxPlayers          = 10
	DefaultTimerSeconds = 480 // 8 minutes
	InviteCodeLength    = 6
)

// Room is one game session. The player list lives in a single JSON column
// and the Version column backs optimistic concurrency: every committed
// transition bumps it by one.
type Room struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid"`
	InviteCode    string     `json:"invite_code" gorm:"uniqueIndex;not null"`
	HostID        string     `json:"host_id" gorm:"not null"`
	Players       []Player   `json:"players" gorm:"serializer:json"`
	GameState     string     `json:"game_state" gorm:"not null;default:'waiting'"`
	CurrentWord   string     `json:"current_word,omitempty"`
	TimerSeconds  int        `json:"timer_seconds" gorm:"not null"`
	GameStartedAt *time.Time `json:"game_started_at,omitempty"`
	Version       int64      `json:"version" gorm:"not null;default:0"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PlayerByID returns the player with the given player id, or nil.
func (r *Room) PlayerByID(playerID string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByUserID returns the player belonging to the given user, or nil.
// A user holds at most one player per room.
func (r *Room) PlayerByUserID(userID string) *Player {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// SpyPlayer returns the player currently marked as spy, or nil while waiting.
func (r *Room) SpyPlayer() *Player {
	for i := range r.Players {
		if r.Players[i].IsSpy {
			return &r.Players[i]
		}
	}
	return nil
}

// AllVoted reports whether every player in the room has cast a vote.
func (r *Room) AllVoted() bool {
	for i := range r.Players {
		if !r.Players[i].HasVoted {
			return false
		}
	}
	return len(r.Players) > 0
}

// Clone returns a deep copy of the room. Callers that hand a room to
// another goroutine or rewrite its player list must work on a clone so
// the committed value is never mutated in place.
func (r *Room) Clone() *Room {
	out := *r
	out.Players = make([]Player, len(r.Players))
	copy(out.Players, r.Players)
	if r.GameStartedAt != nil {
		t := *r.GameStartedAt
		out.GameStartedAt = &t
	}
	return &out
}
