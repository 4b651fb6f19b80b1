package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"spyfall/models"
)

const (
	EventRoomUpdate  = "room_update"
	EventRoomDeleted = "room_deleted"

	roomSnapshotTTL = 2 * time.Hour
)

// RoomEvent is the envelope a committed transition publishes to every
// subscriber of the room.
type RoomEvent struct {
	Type   string       `json:"type"`
	RoomID string       `json:"room_id"`
	Room   *models.Room `json:"room,omitempty"`
}

// Notifier propagates committed room state to subscribers. Publishing runs
// in the committing goroutine after the store write, so two commits can
// reach the channel out of order; subscribers recover commit order from the
// version counter carried in every snapshot (see versionGate).
type Notifier interface {
	RoomChanged(room *models.Room)
	RoomDeleted(roomID string)
}

// RedisNotifier caches the latest snapshot under room:<id> and publishes
// change envelopes on room-events:<id>. Publishing is best effort: a failed
// publish is logged, never surfaced, because the commit already happened.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: client}
}

func (n *RedisNotifier) RoomChanged(room *models.Room) {
	ctx := context.Background()
	ev := RoomEvent{Type: EventRoomUpdate, RoomID: room.ID, Room: room}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal room event for %s: %v", room.ID, err)
		return
	}

	if err := n.redis.Set(ctx, snapshotKey(room.ID), data, roomSnapshotTTL).Err(); err != nil {
		log.Printf("Failed to cache room snapshot for %s: %v", room.ID, err)
	}
	if err := n.redis.Publish(ctx, eventChannel(room.ID), data).Err(); err != nil {
		log.Printf("Failed to publish room update for %s: %v", room.ID, err)
	}
}

func (n *RedisNotifier) RoomDeleted(roomID string) {
	ctx := context.Background()
	if err := n.redis.Del(ctx, snapshotKey(roomID)).Err(); err != nil {
		log.Printf("Failed to drop room snapshot for %s: %v", roomID, err)
	}

	data, err := json.Marshal(RoomEvent{Type: EventRoomDeleted, RoomID: roomID})
	if err != nil {
		log.Printf("Failed to marshal deletion event for %s: %v", roomID, err)
		return
	}
	if err := n.redis.Publish(ctx, eventChannel(roomID), data).Err(); err != nil {
		log.Printf("Failed to publish room deletion for %s: %v", roomID, err)
	}
}

// Subscribe streams the room's events until the context is cancelled.
// Malformed payloads and snapshots older than one already delivered are
// dropped here, so consumers see well-formed rooms in version order.
func (n *RedisNotifier) Subscribe(ctx context.Context, roomID string) <-chan RoomEvent {
	sub := n.redis.Subscribe(ctx, eventChannel(roomID))
	out := make(chan RoomEvent, 16)

	go func() {
		defer close(out)
		defer sub.Close()
		gate := newVersionGate()
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				ev, err := decodeRoomEvent([]byte(msg.Payload))
				if err != nil {
					log.Printf("Dropping malformed room event on %s: %v", roomID, err)
					continue
				}
				if !gate.admit(ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// CachedRoom returns the latest snapshot for a room if one is cached.
func (n *RedisNotifier) CachedRoom(ctx context.Context, roomID string) (*models.Room, error) {
	data, err := n.redis.Get(ctx, snapshotKey(roomID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Redis error reading snapshot for %s: %v", roomID, err)
		}
		return nil, ErrRoomNotFound
	}
	ev, err := decodeRoomEvent([]byte(data))
	if err != nil || ev.Room == nil {
		return nil, ErrRoomNotFound
	}
	return ev.Room, nil
}

// versionGate keeps a subscriber from observing an older room version after
// a newer one. A committer that loses its timeslice between the store write
// and the publish lets a later commit publish first; when the stale snapshot
// finally arrives its version counter gives it away and it is dropped.
// Deletions are terminal and always pass.
type versionGate struct {
	last int64
}

func newVersionGate() *versionGate {
	return &versionGate{last: -1}
}

func (g *versionGate) admit(ev RoomEvent) bool {
	if ev.Type != EventRoomUpdate {
		return true
	}
	if ev.Room.Version <= g.last {
		return false
	}
	g.last = ev.Room.Version
	return true
}

// decodeRoomEvent parses and validates one published envelope. Updates
// without a well-formed room snapshot (missing room, id or invite code)
// are rejected rather than partially applied.
func decodeRoomEvent(payload []byte) (RoomEvent, error) {
	var ev RoomEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return RoomEvent{}, fmt.Errorf("unmarshaling room event: %w", err)
	}
	if ev.RoomID == "" {
		return RoomEvent{}, errors.New("room event missing room id")
	}
	switch ev.Type {
	case EventRoomUpdate:
		if ev.Room == nil || ev.Room.ID == "" || ev.Room.InviteCode == "" {
			return RoomEvent{}, errors.New("room update missing snapshot fields")
		}
	case EventRoomDeleted:
		// deletion carries only the id
	default:
		return RoomEvent{}, fmt.Errorf("unknown room event type %q", ev.Type)
	}
	return ev, nil
}

func snapshotKey(roomID string) string {
	return "room:" + roomID
}

func eventChannel(roomID string) string {
	return "room-events:" + roomID
}
