package services

import "errors"

// Every operation fails with one of these kinds. Callers match with
// errors.Is; handlers map each kind to an HTTP status. Only
// ErrStoreUnavailable is safe to retry.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNotEnoughPlayers   = errors.New("not enough players to start the game")
	ErrInvalidState       = errors.New("operation not allowed in current game state")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStoreUnavailable   = errors.New("store unavailable")

	// ErrConflict is the store-level signal that a compare-and-update lost
	// the race against a concurrent writer. The state machine retries it a
	// bounded number of times; it never reaches API callers.
	ErrConflict = errors.New("concurrent update conflict")
)

// errNoCommit aborts a compare-and-update without writing anything. Used
// for idempotent operations that turn out to be no-ops once the current
// room state is in hand.
var errNoCommit = errors.New("no commit needed")
