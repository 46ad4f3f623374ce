package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is an authenticated user and potential owner of patrimônios.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
