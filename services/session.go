package services

import (
	"spyfall/models"
)

// ProjectRoomFor redacts a committed room snapshot for one recipient.
// Only the viewer's own spy flag survives; everyone else's is blanked so a
// client can never inspect who the spy is. The location is blanked for the
// spy viewer, who must not learn it, and votes stay hidden from other
// players until the round is finished.
func ProjectRoomFor(room *models.Room, viewerUserID string) *models.Room {
	view := room.Clone()
	viewerIsSpy := false
	for i := range view.Players {
		p := &view.Players[i]
		if p.UserID == viewerUserID {
			viewerIsSpy = p.IsSpy
			continue
		}
		p.IsSpy = false
		if view.GameState != models.GameStateFinished {
			p.VotedFor = ""
		}
	}
	if viewerIsSpy {
		view.CurrentWord = ""
	}
	return view
}

// CurrentPlayer returns the viewer's own player record in the room, or nil
// if the viewer is not (or no longer) part of it.
func CurrentPlayer(room *models.Room, userID string) *models.Player {
	if room == nil {
		return nil
	}
	return room.PlayerByUserID(userID)
}

// ScreenFor maps a room's state to the screen a client should be showing.
// Presentation-layer glue only; the state machine never depends on it.
func ScreenFor(room *models.Room) string {
	switch room.GameState {
	case models.GameStatePlaying:
		return "/game/" + room.ID
	case models.GameStateVoting:
		return "/game/" + room.ID + "/voting"
	case models.GameStateFinished:
		return "/results/" + room.ID
	default:
		return "/lobby/" + room.ID
	}
}
