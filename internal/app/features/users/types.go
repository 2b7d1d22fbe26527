package users

import (
	"time"

	"github.com/dalemusser/stratadoc/internal/domain/models"
)

// credentials is the body of signup and login.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionView is one session as listed back to its owner. The token itself
// is never returned; Hint shows its last characters so the owner can tell
// sessions apart.
type SessionView struct {
	ID        string    `json:"id"`
	Access    string    `json:"access"`
	Hint      string    `json:"token_hint"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current"`
}

const hintLen = 4

func newSessionView(s models.Session, current string) SessionView {
	hint := s.Token
	if len(hint) > hintLen {
		hint = hint[len(hint)-hintLen:]
	}
	return SessionView{
		ID:        s.ID,
		Access:    s.Access,
		Hint:      "..." + hint,
		CreatedAt: s.CreatedAt,
		Current:   s.Token == current,
	}
}
