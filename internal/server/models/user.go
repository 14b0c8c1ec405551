// Package models holds the persistence-facing row types shared by
// repositories and services.
package models

import "time"

// User is the identity record. Email is stored lower-cased and trimmed
// so the unique index is effectively case-insensitive. PasswordHash is
// the opaque bcrypt digest; the plaintext never reaches storage.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	Company      string    `json:"company"`
	Position     string    `json:"position"`
	AvatarURL    string    `json:"avatar_url"`
	Phone        string    `json:"phone"`
	Location     string    `json:"location"`
	Website      string    `json:"website"`
	Linkedin     string    `json:"linkedin"`
	Github       string    `json:"github"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
