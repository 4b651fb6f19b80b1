package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spyfall/models"
)

// maxCommitRetries bounds how often a transition is replayed after losing
// a compare-and-update race before the failure surfaces to the caller.
const maxCommitRetries = 3

// maxCodeAttempts bounds invite code generation against collisions with
// live rooms.
const maxCodeAttempts = 10

// allowedTimerMinutes are the round durations the host may configure.
var allowedTimerMinutes = map[int]bool{5: true, 8: true, 10: true, 15: true}

// RoomService is the room state machine. Every operation follows the same
// shape: load the current room, validate, compute the next room, commit via
// the store's compare-and-update, then notify subscribers. Validation runs
// inside the mutator so it always sees the version that will be written.
type RoomService struct {
	store    RoomStore
	rand     *Randomizer
	notifier Notifier
}

func NewRoomService(store RoomStore, rand *Randomizer, notifier Notifier) *RoomService {
	return &RoomService{
		store:    store,
		rand:     rand,
		notifier: notifier,
	}
}

// CreateRoom opens a new room in the waiting state with the caller as its
// only player and host.
func (s *RoomService) CreateRoom(user *models.User) (*models.Room, *models.Player, error) {
	host := models.Player{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Name:            user.Name,
		ProfilePhotoURL: user.ProfilePhotoURL,
		IsHost:          true,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.rand.generateInviteCode(models.InviteCodeLength)
		if _, err := s.store.GetByInviteCode(code); err == nil {
			continue
		} else if !errors.Is(err, ErrRoomNotFound) {
			return nil, nil, err
		}

		room := &models.Room{
			ID:           uuid.NewString(),
			InviteCode:   code,
			HostID:       user.ID,
			Players:      []models.Player{host},
			GameState:    models.GameStateWaiting,
			TimerSeconds: models.DefaultTimerSeconds,
		}
		if err := s.store.Create(room); err != nil {
			return nil, nil, err
		}

		s.notifier.RoomChanged(room)
		log.Printf("Room %s created with invite code %s by user %s", room.ID, room.InviteCode, user.ID)
		return room, &room.Players[0], nil
	}
	return nil, nil, fmt.Errorf("%w: could not generate a unique invite code", ErrStoreUnavailable)
}

// JoinRoom adds the user to the room behind the invite code. Joining a room
// the user is already in returns the existing player unchanged.
func (s *RoomService) JoinRoom(user *models.User, inviteCode string) (*models.Room, *models.Player, error) {
	room, err := s.store.GetByInviteCode(inviteCode)
	if err != nil {
		return nil, nil, err
	}

	var joined *models.Player
	var current *models.Room
	updated, err := s.commit(room.ID, func(r *models.Room) error {
		// An emptied room is condemned for deletion; nothing may join it.
		if len(r.Players) == 0 {
			return ErrRoomNotFound
		}
		if len(r.Players) >= models.MaxPlayers {
			return ErrRoomFull
		}
		if r.GameState != models.GameStateWaiting {
			return ErrGameAlreadyStarted
		}
		if p := r.PlayerByUserID(user.ID); p != nil {
			joined = p
			current = r
			return errNoCommit
		}
		r.Players = append(r.Players, models.Player{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			Name:            user.Name,
			ProfilePhotoURL: user.ProfilePhotoURL,
		})
		joined = &r.Players[len(r.Players)-1]
		return nil
	})
	if errors.Is(err, errNoCommit) {
		return current, joined, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return updated, joined, nil
}

// UpdateTimer sets the round duration. Host only, waiting rooms only.
func (s *RoomService) UpdateTimer(roomID, hostUserID string, minutes int) (*models.Room, error) {
	if !allowedTimerMinutes[minutes] {
		return nil, fmt.Errorf("%w: timer of %d minutes is not allowed", ErrInvalidArgument, minutes)
	}
	return s.commit(roomID, func(r *models.Room) error {
		if r.HostID != hostUserID {
			return ErrNotAuthorized
		}
		if r.GameState != models.GameStateWaiting {
			return ErrInvalidState
		}
		r.TimerSeconds = minutes * 60
		return nil
	})
}

// StartGame assigns one player uniformly at random as spy, draws the round
// location and moves the room to playing. The configured timer carries over
// unchanged; the start timestamp is the marker clients derive the deadline
// from.
func (s *RoomService) StartGame(roomID, hostUserID string) (*models.Room, error) {
	return s.commit(roomID, func(r *models.Room) error {
		if r.HostID != hostUserID {
			return ErrNotAuthorized
		}
		if r.GameState != models.GameStateWaiting {
			return ErrInvalidState
		}
		if len(r.Players) < models.MinPlayers {
			return ErrNotEnoughPlayers
		}

		spyIndex := s.rand.PickSpy(len(r.Players))
		for i := range r.Players {
			r.Players[i].IsSpy = i == spyIndex
			r.Players[i].HasVoted = false
			r.Players[i].VotedFor = ""
		}
		r.CurrentWord = s.rand.PickLocation(models.Locations)
		r.GameState = models.GameStatePlaying
		now := time.Now().UTC()
		r.GameStartedAt = &now
		return nil
	})
}

// LeaveRoom removes the player. Leaving is always permitted, in any game
// state, and is idempotent: a player already gone (or a room already
// deleted) is not an error. Removing the last player deletes the room;
// removing the host promotes the first remaining player.
func (s *RoomService) LeaveRoom(roomID, playerID, callerUserID string) (*models.Room, error) {
	var current *models.Room
	updated, err := s.commit(roomID, func(r *models.Room) error {
		leaving := r.PlayerByID(playerID)
		if leaving == nil {
			current = r
			return errNoCommit
		}
		if leaving.UserID != callerUserID {
			return ErrNotAuthorized
		}

		wasHost := leaving.IsHost
		remaining := make([]models.Player, 0, len(r.Players)-1)
		for _, p := range r.Players {
			if p.ID != playerID {
				remaining = append(remaining, p)
			}
		}
		r.Players = remaining

		if wasHost && len(r.Players) > 0 {
			for i := range r.Players {
				r.Players[i].IsHost = i == 0
			}
			r.HostID = r.Players[0].UserID
		}
		return nil
	})
	if errors.Is(err, errNoCommit) {
		return current, nil
	}
	if errors.Is(err, ErrRoomNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(updated.Players) == 0 {
		if err := s.store.Delete(roomID); err != nil {
			return nil, err
		}
		s.notifier.RoomDeleted(roomID)
		log.Printf("Room %s deleted after last player left", roomID)
		return nil, nil
	}
	return updated, nil
}

// SubmitVote marks the player as having voted and records who they voted
// for. Once every player has voted the room is finished; until then it sits
// in voting. Votes against a finished room and repeat votes are no-ops.
func (s *RoomService) SubmitVote(roomID, playerID, votedPlayerID, callerUserID string) (*models.Room, error) {
	var current *models.Room
	updated, err := s.commit(roomID, func(r *models.Room) error {
		voter := r.PlayerByID(playerID)
		if voter == nil || voter.UserID != callerUserID {
			return ErrNotAuthorized
		}
		if r.GameState == models.GameStateFinished {
			current = r
			return errNoCommit
		}
		if r.GameState != models.GameStatePlaying && r.GameState != models.GameStateVoting {
			return ErrInvalidState
		}
		if r.PlayerByID(votedPlayerID) == nil {
			return fmt.Errorf("%w: voted player %s is not in the room", ErrInvalidArgument, votedPlayerID)
		}
		if voter.HasVoted {
			current = r
			return errNoCommit
		}

		voter.HasVoted = true
		voter.VotedFor = votedPlayerID
		if r.AllVoted() {
			r.GameState = models.GameStateFinished
		} else {
			r.GameState = models.GameStateVoting
		}
		return nil
	})
	if errors.Is(err, errNoCommit) {
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetRoom loads the current committed room state.
func (s *RoomService) GetRoom(roomID string) (*models.Room, error) {
	return s.store.Get(roomID)
}

// commit applies one transition with bounded retry on lost races and
// notifies subscribers once it lands. Validation errors from the mutator
// propagate untouched and are never retried.
func (s *RoomService) commit(roomID string, mutate RoomMutator) (*models.Room, error) {
	var lastErr error
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		room, err := s.store.CompareAndUpdate(roomID, mutate)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		s.notifier.RoomChanged(room)
		return room, nil
	}
	return nil, fmt.Errorf("%w: room %s kept changing under us: %v", ErrStoreUnavailable, roomID, lastErr)
}
