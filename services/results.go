package services

import (
	"spyfall/models"
)

// GameResult is the computed outcome of a finished round. The spy wins on
// a tie or when the majority lands on the wrong player; the group wins by
// putting the most votes on the spy.
type GameResult struct {
	Winner     string          `json:"winner"` // "spy" or "players"
	Spy        models.Player   `json:"spy"`
	MostVoted  *models.Player  `json:"most_voted,omitempty"`
	Tie        bool            `json:"tie"`
	VoteCounts map[string]int  `json:"vote_counts"`
	Players    []models.Player `json:"players"`
}

// Result computes the outcome of a finished room.
func (s *RoomService) Result(roomID string) (*GameResult, error) {
	room, err := s.store.Get(roomID)
	if err != nil {
		return nil, err
	}
	if room.GameState != models.GameStateFinished {
		return nil, ErrInvalidState
	}
	return computeResult(room), nil
}

func computeResult(room *models.Room) *GameResult {
	counts := make(map[string]int)
	for _, p := range room.Players {
		if p.VotedFor != "" {
			counts[p.VotedFor]++
		}
	}

	maxVotes := 0
	var leaders []string
	for playerID, count := range counts {
		switch {
		case count > maxVotes:
			maxVotes = count
			leaders = []string{playerID}
		case count == maxVotes:
			leaders = append(leaders, playerID)
		}
	}

	result := &GameResult{
		Tie:        len(leaders) != 1,
		VoteCounts: counts,
		Players:    room.Players,
	}
	if spy := room.SpyPlayer(); spy != nil {
		result.Spy = *spy
	}

	if !result.Tie {
		result.MostVoted = room.PlayerByID(leaders[0])
	}
	if !result.Tie && result.MostVoted != nil && result.MostVoted.IsSpy {
		result.Winner = "players"
	} else {
		result.Winner = "spy"
	}
	return result
}
