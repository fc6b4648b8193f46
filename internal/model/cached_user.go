package model

import "github.com/google/uuid"

type CachedUser struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
}

// UserAuthor is the author block of a post response. Phone and Email
// are the credit-gated fields: nil until the viewer holds an unlock
// record for the post (or is the owner).
type UserAuthor struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// Redacted strips the private contact fields.
func (a UserAuthor) Redacted() UserAuthor {
	a.Phone = nil
	a.Email = nil
	return a
}
