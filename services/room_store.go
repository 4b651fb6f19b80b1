package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"spyfall/models"
)

// RoomMutator mutates a freshly loaded room in place. Returning an error
// aborts the commit and propagates unchanged, so validation failures never
// write anything.
type RoomMutator func(room *models.Room) error

// RoomStore holds one record per room. CompareAndUpdate is the only
// concurrency primitive the state machine relies on: the mutator always
// runs against the most recent committed version, and the write commits
// only if that version is still current, otherwise ErrConflict.
type RoomStore interface {
	Get(roomID string) (*models.Room, error)
	GetByInviteCode(code string) (*models.Room, error)
	Create(room *models.Room) error
	CompareAndUpdate(roomID string, mutate RoomMutator) (*models.Room, error)
	Delete(roomID string) error
}

// GormRoomStore keeps rooms in Postgres, one row per room with the player
// list denormalized into a JSON column and a version counter for
// optimistic locking.
type GormRoomStore struct {
	db *gorm.DB
}

func NewGormRoomStore(db *gorm.DB) *GormRoomStore {
	return &GormRoomStore{db: db}
}

func (s *GormRoomStore) Get(roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: loading room %s: %v", ErrStoreUnavailable, roomID, err)
	}
	return &room, nil
}

func (s *GormRoomStore) GetByInviteCode(code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("invite_code = ?", NormalizeInviteCode(code)).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: loading room by code: %v", ErrStoreUnavailable, err)
	}
	return &room, nil
}

func (s *GormRoomStore) Create(room *models.Room) error {
	if err := s.db.Create(room).Error; err != nil {
		return fmt.Errorf("%w: creating room: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// CompareAndUpdate loads the current row, applies the mutator and writes
// back guarded by the version it read. Zero rows affected means another
// writer committed in between; the caller retries against the refreshed
// state.
func (s *GormRoomStore) CompareAndUpdate(roomID string, mutate RoomMutator) (*models.Room, error) {
	room, err := s.Get(roomID)
	if err != nil {
		return nil, err
	}

	base := room.Version
	if err := mutate(room); err != nil {
		return nil, err
	}
	room.Version = base + 1

	res := s.db.Model(&models.Room{}).
		Where("id = ? AND version = ?", roomID, base).
		Select("host_id", "players", "game_state", "current_word", "timer_seconds", "game_started_at", "version").
		Updates(room)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: updating room %s: %v", ErrStoreUnavailable, roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	return room, nil
}

func (s *GormRoomStore) Delete(roomID string) error {
	if err := s.db.Where("id = ?", roomID).Delete(&models.Room{}).Error; err != nil {
		return fmt.Errorf("%w: deleting room %s: %v", ErrStoreUnavailable, roomID, err)
	}
	return nil
}

// NormalizeInviteCode uppercases and trims a code so lookups are
// case-insensitive on input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
