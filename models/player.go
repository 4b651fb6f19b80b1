package models

// Player is one user's membership in one room. Players are stored
// denormalized inside the Room row, not as their own table, because every
// room transition rewrites the whole list in a single atomic update.
type Player struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
	IsHost          bool   `json:"is_host"`
	IsSpy           bool   `json:"is_spy"`
	HasVoted        bool   `json:"has_voted"`
	VotedFor        string `json:"voted_for,omitempty"`
}
