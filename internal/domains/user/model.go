package user

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// User is the persisted account entity. Once a request's credential is
// verified the loaded User doubles as the request principal; it is never
// shared across requests.
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	FavoriteGenre string    `json:"favorite_genre" db:"favorite_genre"`
}

// Validate enforces the field rules the store layer owns.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username,
			validation.Required.Error("username is required"),
			validation.Length(3, 60).Error("username must be 3-60 characters"),
		),
		validation.Field(&u.PasswordHash,
			validation.Required.Error("password is required"),
		),
		validation.Field(&u.FavoriteGenre,
			validation.Required.Error("favoriteGenre is required"),
		),
	)
}
