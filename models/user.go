package models

import (
	"time"
)

// User is the profile bound to one physical device. The ID is minted once
// for the device and never changes; name and photo are editable.
type User struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name            string    `json:"name" gorm:"not null"`
	ProfilePhotoURL string    `json:"profile_photo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
