package services

import (
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"

	"spyfall/models"
)

func newTestService() (*RoomService, *memoryRoomStore, *recordingNotifier) {
	store := newMemoryRoomStore()
	notifier := &recordingNotifier{}
	return NewRoomService(store, NewRandomizer(), notifier), store, notifier
}

func testUser(name string) *models.User {
	return &models.User{ID: uuid.NewString(), Name: name}
}

// roomWithPlayers creates a room and joins count-1 extra users.
func roomWithPlayers(t *testing.T, svc *RoomService, count int) (*models.Room, []*models.User) {
	t.Helper()
	host := testUser("host")
	room, _, err := svc.CreateRoom(host)
	if err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	users := []*models.User{host}
	for i := 1; i < count; i++ {
		u := testUser("player")
		if room, _, err = svc.JoinRoom(u, room.InviteCode); err != nil {
			t.Fatalf("JoinRoom() error: %v", err)
		}
		users = append(users, u)
	}
	return room, users
}

func countHosts(room *models.Room) int {
	n := 0
	for _, p := range room.Players {
		if p.IsHost {
			n++
		}
	}
	return n
}

func countSpies(room *models.Room) int {
	n := 0
	for _, p := range room.Players {
		if p.IsSpy {
			n++
		}
	}
	return n
}

func TestCreateRoom(t *testing.T) {
	svc, _, notifier := newTestService()
	host := testUser("alice")

	room, player, err := svc.CreateRoom(host)
	if err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}

	if room.GameState != models.GameStateWaiting {
		t.Errorf("GameState = %q, want %q", room.GameState, models.GameStateWaiting)
	}
	if room.TimerSeconds != models.DefaultTimerSeconds {
		t.Errorf("TimerSeconds = %d, want %d", room.TimerSeconds, models.DefaultTimerSeconds)
	}
	if len(room.Players) != 1 {
		t.Fatalf("len(Players) = %d, want 1", len(room.Players))
	}
	if !player.IsHost || player.IsSpy || player.HasVoted {
		t.Errorf("host player flags = {host:%v spy:%v voted:%v}, want {true false false}",
			player.IsHost, player.IsSpy, player.HasVoted)
	}
	if room.HostID != host.ID {
		t.Errorf("HostID = %q, want %q", room.HostID, host.ID)
	}
	if room.CurrentWord != "" {
		t.Errorf("CurrentWord = %q, want empty while waiting", room.CurrentWord)
	}

	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	if !pattern.MatchString(room.InviteCode) {
		t.Errorf("InviteCode = %q, want 6 uppercase alphanumeric chars", room.InviteCode)
	}

	ev := notifier.lastEvent()
	if ev == nil || ev.Type != EventRoomUpdate || ev.RoomID != room.ID {
		t.Errorf("expected a room update notification for %s, got %+v", room.ID, ev)
	}
}

func TestJoinRoom_RoundTripWithLowercaseCode(t *testing.T) {
	svc, _, _ := newTestService()
	room, _ := roomWithPlayers(t, svc, 1)

	joined, player, err := svc.JoinRoom(testUser("bob"), "  "+lower(room.InviteCode)+" ")
	if err != nil {
		t.Fatalf("JoinRoom() error: %v", err)
	}
	if joined.InviteCode != room.InviteCode {
		t.Errorf("InviteCode = %q, want %q", joined.InviteCode, room.InviteCode)
	}
	if len(joined.Players) != 2 {
		t.Errorf("len(Players) = %d, want 2", len(joined.Players))
	}
	if player.IsHost || player.IsSpy || player.HasVoted {
		t.Errorf("joined player should have all flags false, got %+v", player)
	}
}

func lower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 'a' - 'A'
		}
	}
	return string(out)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	room, _ := roomWithPlayers(t, svc, 1)
	bob := testUser("bob")

	_, first, err := svc.JoinRoom(bob, room.InviteCode)
	if err != nil {
		t.Fatalf("first JoinRoom() error: %v", err)
	}
	again, second, err := svc.JoinRoom(bob, room.InviteCode)
	if err != nil {
		t.Fatalf("second JoinRoom() error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("player ids differ across rejoin: %q vs %q", first.ID, second.ID)
	}
	if len(again.Players) != 2 {
		t.Errorf("len(Players) = %d after rejoin, want 2", len(again.Players))
	}
}

func TestJoinRoom_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.JoinRoom(testUser("bob"), "ZZZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("JoinRoom() error = %v, want ErrRoomNotFound", err)
	}
}

func TestJoinRoom_Full(t *testing.T) {
	svc, _, _ := newTestService()
	room, _ := roomWithPlayers(t, svc, models.MaxPlayers)

	if _, _, err := svc.JoinRoom(testUser("late"), room.InviteCode); !errors.Is(err, ErrRoomFull) {
		t.Errorf("JoinRoom() error = %v, want ErrRoomFull", err)
	}
}

func TestJoinRoom_AfterStart(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	if _, err := svc.StartGame(room.ID, users[0].ID); err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}

	if _, _, err := svc.JoinRoom(testUser("late"), room.InviteCode); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Errorf("JoinRoom() error = %v, want ErrGameAlreadyStarted", err)
	}
}

func TestUpdateTimer(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 2)

	updated, err := svc.UpdateTimer(room.ID, users[0].ID, 10)
	if err != nil {
		t.Fatalf("UpdateTimer() error: %v", err)
	}
	if updated.TimerSeconds != 600 {
		t.Errorf("TimerSeconds = %d, want 600", updated.TimerSeconds)
	}
}

func TestUpdateTimer_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)

	if _, err := svc.UpdateTimer(room.ID, users[1].ID, 10); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("non-host UpdateTimer() error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.UpdateTimer(room.ID, users[0].ID, 7); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("disallowed minutes UpdateTimer() error = %v, want ErrInvalidArgument", err)
	}

	if _, err := svc.StartGame(room.ID, users[0].ID); err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}
	if _, err := svc.UpdateTimer(room.ID, users[0].ID, 10); !errors.Is(err, ErrInvalidState) {
		t.Errorf("UpdateTimer() after start error = %v, want ErrInvalidState", err)
	}
}

func TestStartGame(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)

	started, err := svc.StartGame(room.ID, users[0].ID)
	if err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}

	if started.GameState != models.GameStatePlaying {
		t.Errorf("GameState = %q, want %q", started.GameState, models.GameStatePlaying)
	}
	if got := countSpies(started); got != 1 {
		t.Errorf("spy count = %d, want exactly 1", got)
	}
	if started.CurrentWord == "" {
		t.Error("CurrentWord should be drawn from the catalog")
	}
	found := false
	for _, loc := range models.Locations {
		if loc == started.CurrentWord {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("CurrentWord %q is not in the catalog", started.CurrentWord)
	}
	if started.TimerSeconds != models.DefaultTimerSeconds {
		t.Errorf("TimerSeconds = %d, want unchanged %d", started.TimerSeconds, models.DefaultTimerSeconds)
	}
	if started.GameStartedAt == nil {
		t.Error("GameStartedAt should be set at start")
	}
	for _, p := range started.Players {
		if p.HasVoted {
			t.Errorf("player %s HasVoted = true at round start", p.ID)
		}
	}
}

func TestStartGame_PreservesConfiguredTimer(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)

	if _, err := svc.UpdateTimer(room.ID, users[0].ID, 15); err != nil {
		t.Fatalf("UpdateTimer() error: %v", err)
	}
	started, err := svc.StartGame(room.ID, users[0].ID)
	if err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}
	if started.TimerSeconds != 900 {
		t.Errorf("TimerSeconds = %d, want 900", started.TimerSeconds)
	}
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	svc, _, _ := newTestService()
	for _, count := range []int{1, 2} {
		room, users := roomWithPlayers(t, svc, count)
		if _, err := svc.StartGame(room.ID, users[0].ID); !errors.Is(err, ErrNotEnoughPlayers) {
			t.Errorf("StartGame() with %d players error = %v, want ErrNotEnoughPlayers", count, err)
		}
	}
}

func TestStartGame_NotAuthorized(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	if _, err := svc.StartGame(room.ID, users[1].ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("StartGame() error = %v, want ErrNotAuthorized", err)
	}
}

func TestStartGame_Twice(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	if _, err := svc.StartGame(room.ID, users[0].ID); err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}
	if _, err := svc.StartGame(room.ID, users[0].ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second StartGame() error = %v, want ErrInvalidState", err)
	}
}

func TestLeaveRoom_HostPromotion(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	hostPlayer := room.PlayerByUserID(users[0].ID)

	updated, err := svc.LeaveRoom(room.ID, hostPlayer.ID, users[0].ID)
	if err != nil {
		t.Fatalf("LeaveRoom() error: %v", err)
	}

	if len(updated.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2", len(updated.Players))
	}
	if got := countHosts(updated); got != 1 {
		t.Errorf("host count = %d, want exactly 1", got)
	}
	// First remaining player by existing order becomes host.
	if !updated.Players[0].IsHost {
		t.Error("first remaining player should be promoted to host")
	}
	if updated.HostID != users[1].ID {
		t.Errorf("HostID = %q, want %q", updated.HostID, users[1].ID)
	}
}

func TestLeaveRoom_LastPlayerDeletesRoom(t *testing.T) {
	svc, store, notifier := newTestService()
	room, users := roomWithPlayers(t, svc, 1)
	player := room.PlayerByUserID(users[0].ID)

	got, err := svc.LeaveRoom(room.ID, player.ID, users[0].ID)
	if err != nil {
		t.Fatalf("LeaveRoom() error: %v", err)
	}
	if got != nil {
		t.Errorf("LeaveRoom() room = %+v, want nil after deletion", got)
	}
	if _, err := store.Get(room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Get() after deletion error = %v, want ErrRoomNotFound", err)
	}

	ev := notifier.lastEvent()
	if ev == nil || ev.Type != EventRoomDeleted || ev.RoomID != room.ID {
		t.Errorf("expected deletion notification for %s, got %+v", room.ID, ev)
	}
}

func TestLeaveRoom_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 2)
	player := room.PlayerByUserID(users[1].ID)

	if _, err := svc.LeaveRoom(room.ID, player.ID, users[1].ID); err != nil {
		t.Fatalf("first LeaveRoom() error: %v", err)
	}
	if _, err := svc.LeaveRoom(room.ID, player.ID, users[1].ID); err != nil {
		t.Errorf("second LeaveRoom() error = %v, want nil (idempotent)", err)
	}
	// Leaving a room that no longer exists is also a no-op.
	if _, err := svc.LeaveRoom("gone", player.ID, users[1].ID); err != nil {
		t.Errorf("LeaveRoom() on deleted room error = %v, want nil", err)
	}
}

func TestLeaveRoom_NotAuthorized(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 2)
	player := room.PlayerByUserID(users[1].ID)

	if _, err := svc.LeaveRoom(room.ID, player.ID, users[0].ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("LeaveRoom() error = %v, want ErrNotAuthorized", err)
	}
}

func TestSubmitVote_Quorum(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	started, err := svc.StartGame(room.ID, users[0].ID)
	if err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}

	target := started.Players[0].ID
	for i, u := range users[:2] {
		voter := started.PlayerByUserID(u.ID)
		updated, err := svc.SubmitVote(room.ID, voter.ID, target, u.ID)
		if err != nil {
			t.Fatalf("vote %d error: %v", i, err)
		}
		if updated.GameState != models.GameStateVoting {
			t.Errorf("after %d of 3 votes GameState = %q, want %q", i+1, updated.GameState, models.GameStateVoting)
		}
	}

	lastVoter := started.PlayerByUserID(users[2].ID)
	final, err := svc.SubmitVote(room.ID, lastVoter.ID, target, users[2].ID)
	if err != nil {
		t.Fatalf("final vote error: %v", err)
	}
	if final.GameState != models.GameStateFinished {
		t.Errorf("after all votes GameState = %q, want %q", final.GameState, models.GameStateFinished)
	}
	if got := countSpies(final); got != 1 {
		t.Errorf("spy count after finish = %d, want exactly 1", got)
	}
}

func TestSubmitVote_FinishedIsNoOp(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	started, _ := svc.StartGame(room.ID, users[0].ID)

	target := started.Players[1].ID
	for _, u := range users {
		voter := started.PlayerByUserID(u.ID)
		if _, err := svc.SubmitVote(room.ID, voter.ID, target, u.ID); err != nil {
			t.Fatalf("vote error: %v", err)
		}
	}

	voter := started.PlayerByUserID(users[0].ID)
	final, err := svc.SubmitVote(room.ID, voter.ID, target, users[0].ID)
	if err != nil {
		t.Fatalf("vote on finished room error = %v, want nil (no-op)", err)
	}
	if final.GameState != models.GameStateFinished {
		t.Errorf("GameState = %q, want still %q", final.GameState, models.GameStateFinished)
	}
}

func TestSubmitVote_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 3)
	waitingPlayer := room.PlayerByUserID(users[1].ID)

	// Voting before the round starts is out of order.
	if _, err := svc.SubmitVote(room.ID, waitingPlayer.ID, waitingPlayer.ID, users[1].ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("vote while waiting error = %v, want ErrInvalidState", err)
	}

	started, _ := svc.StartGame(room.ID, users[0].ID)
	voter := started.PlayerByUserID(users[1].ID)

	if _, err := svc.SubmitVote(room.ID, voter.ID, started.Players[0].ID, users[2].ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("vote as someone else error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.SubmitVote(room.ID, voter.ID, "not-a-player", users[1].ID); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("vote for unknown player error = %v, want ErrInvalidArgument", err)
	}
}

func TestConcurrentJoins(t *testing.T) {
	svc, _, _ := newTestService()
	room, _ := roomWithPlayers(t, svc, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.JoinRoom(testUser("racer"), room.InviteCode)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent join %d error: %v", i, err)
		}
	}

	final, err := svc.GetRoom(room.ID)
	if err != nil {
		t.Fatalf("GetRoom() error: %v", err)
	}
	if len(final.Players) != 3 {
		t.Errorf("len(Players) = %d after two concurrent joins, want 3 (no lost update)", len(final.Players))
	}
}

func TestCommit_RetriesOnConflict(t *testing.T) {
	svc, store, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 2)

	store.conflictsToFail = 2
	if _, err := svc.UpdateTimer(room.ID, users[0].ID, 10); err != nil {
		t.Errorf("UpdateTimer() with 2 conflicts error = %v, want success after retries", err)
	}

	store.conflictsToFail = maxCommitRetries
	if _, err := svc.UpdateTimer(room.ID, users[0].ID, 5); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("UpdateTimer() with persistent conflicts error = %v, want ErrStoreUnavailable", err)
	}
}

func TestHostInvariantAcrossTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	room, users := roomWithPlayers(t, svc, 4)

	if got := countHosts(room); got != 1 {
		t.Fatalf("host count after joins = %d, want 1", got)
	}

	started, err := svc.StartGame(room.ID, users[0].ID)
	if err != nil {
		t.Fatalf("StartGame() error: %v", err)
	}
	if got := countHosts(started); got != 1 {
		t.Errorf("host count after start = %d, want 1", got)
	}

	hostPlayer := started.PlayerByUserID(users[0].ID)
	after, err := svc.LeaveRoom(room.ID, hostPlayer.ID, users[0].ID)
	if err != nil {
		t.Fatalf("LeaveRoom() error: %v", err)
	}
	if got := countHosts(after); got != 1 {
		t.Errorf("host count after host left = %d, want 1", got)
	}
}
