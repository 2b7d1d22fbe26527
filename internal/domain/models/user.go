// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - SessionID / sessionID: The public uuid of one session; safe to show to the owner
//   - Token: The opaque bearer string sent in the x-auth header; never listed back

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsersCollection is the per-tenant collection holding accounts and their sessions.
const UsersCollection = "users"

// AccessAuth is the access-level tag carried by sessions issued on signup or login.
const AccessAuth = "auth"

// User is an account inside one tenant.
//
// Sessions are embedded in the user document so that deleting the account
// removes every session with it, and so that issuing and revoking are single
// atomic $push / $pull updates on one document.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string             `bson:"email" json:"email"` // lowercase, unique per tenant
	PasswordHash string             `bson:"password_hash" json:"-"`
	Tokens       []Session          `bson:"tokens" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Session is one bearer token owned by a user.
type Session struct {
	ID        string    `bson:"id" json:"id"`
	Access    string    `bson:"access" json:"access"`
	Token     string    `bson:"token" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

