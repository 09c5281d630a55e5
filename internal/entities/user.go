package entities

import (
	"time"

	"gorm.io/gorm"
)

// User is the account row. The Google credential columns hold Vault
// ciphertext; a nil GoogleRefreshToken means consent was never completed.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:100" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255" json:"email"`
	Token    string `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON

	GoogleAccessToken    *string    `gorm:"type:text" json:"-"`
	GoogleRefreshToken   *string    `gorm:"type:text" json:"-"`
	GoogleTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// HasGoogleCredential reports whether a refresh token is stored.
func (u *User) HasGoogleCredential() bool {
	return u.GoogleRefreshToken != nil && *u.GoogleRefreshToken != ""
}
