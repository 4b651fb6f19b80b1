package services

import (
	"sync"

	"spyfall/models"
)

// memoryRoomStore implements RoomStore for tests with the same semantics
// as the Postgres store: compare-and-update runs against the latest
// committed version and commits atomically, with an optional hook to make
// a commit lose the race.
type memoryRoomStore struct {
	mu              sync.Mutex
	rooms           map[string]*models.Room
	conflictsToFail int
}

func newMemoryRoomStore() *memoryRoomStore {
	return &memoryRoomStore{rooms: make(map[string]*models.Room)}
}

func (s *memoryRoomStore) Get(roomID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *memoryRoomStore) GetByInviteCode(code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = NormalizeInviteCode(code)
	for _, room := range s.rooms {
		if room.InviteCode == code {
			return room.Clone(), nil
		}
	}
	return nil, ErrRoomNotFound
}

func (s *memoryRoomStore) Create(room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *memoryRoomStore) CompareAndUpdate(roomID string, mutate RoomMutator) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	next := current.Clone()
	base := next.Version
	if err := mutate(next); err != nil {
		return nil, err
	}

	if s.conflictsToFail > 0 {
		s.conflictsToFail--
		return nil, ErrConflict
	}

	next.Version = base + 1
	s.rooms[roomID] = next
	return next.Clone(), nil
}

func (s *memoryRoomStore) Delete(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

// recordingNotifier captures what the state machine publishes.
type recordingNotifier struct {
	mu     sync.Mutex
	events []RoomEvent
}

func (n *recordingNotifier) RoomChanged(room *models.Room) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, RoomEvent{Type: EventRoomUpdate, RoomID: room.ID, Room: room.Clone()})
}

func (n *recordingNotifier) RoomDeleted(roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, RoomEvent{Type: EventRoomDeleted, RoomID: roomID})
}

func (n *recordingNotifier) lastEvent() *RoomEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return nil
	}
	ev := n.events[len(n.events)-1]
	return &ev
}
