// internal/app/store/users/tokens.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/authutil"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// issueAttempts bounds retries when a fresh token collides with a live one.
const issueAttempts = 3

// issue appends a new session to the user with $push.
func (s *Store) issue(ctx context.Context, c *mongo.Collection, userID primitive.ObjectID) (models.Session, error) {
	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		token, err := authutil.NewToken()
		if err != nil {
			return models.Session{}, err
		}
		now := s.now().UTC()
		sess := models.Session{
			ID:        uuid.NewString(),
			Access:    models.AccessAuth,
			Token:     token,
			CreatedAt: now,
		}

		res, err := c.UpdateOne(ctx,
			bson.M{"_id": userID},
			bson.M{
				"$push": bson.M{"tokens": sess},
				"$set":  bson.M{"updated_at": now},
			},
		)
		if err != nil {
			if wafflemongo.IsDup(err) {
				lastErr = err
				continue
			}
			return models.Session{}, err
		}
		if res.MatchedCount == 0 {
			return models.Session{}, fmt.Errorf("%w: user %s", apierr.ErrNotFound, userID.Hex())
		}
		return sess, nil
	}
	return models.Session{}, fmt.Errorf("issue session: %w", lastErr)
}

// liveToken matches the user owning token, ignoring expired sessions.
func (s *Store) liveToken(token string) bson.M {
	if s.tokenMaxAge <= 0 {
		return bson.M{"tokens.token": token}
	}
	return bson.M{"tokens": bson.M{"$elemMatch": bson.M{
		"token":      token,
		"created_at": bson.M{"$gt": s.now().UTC().Add(-s.tokenMaxAge)},
	}}}
}

// Validate returns the user owning an active session with this token.
// Unknown, revoked and expired tokens all report ErrUnauthorized.
func (s *Store) Validate(ctx context.Context, tenant, token string) (*models.User, error) {
	if token == "" {
		return nil, apierr.ErrUnauthorized
	}
	c, err := s.coll(tenant)
	if err != nil {
		return nil, apierr.ErrUnauthorized
	}

	var u models.User
	err = c.FindOne(ctx, s.liveToken(token)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apierr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Revoke removes the session carrying token. Removal is by value, so it is
// safe alongside a concurrent login of the same user. A token the user does
// not hold is a no-op.
func (s *Store) Revoke(ctx context.Context, tenant string, userID primitive.ObjectID, token string) error {
	c, err := s.coll(tenant)
	if err != nil {
		return err
	}
	_, err = c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"tokens": bson.M{"token": token}},
			"$set":  bson.M{"updated_at": s.now().UTC()},
		},
	)
	return err
}

// RevokeByID removes one session by its public id.
func (s *Store) RevokeByID(ctx context.Context, tenant string, userID primitive.ObjectID, sessionID string) error {
	c, err := s.coll(tenant)
	if err != nil {
		return err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": userID, "tokens.id": sessionID},
		bson.M{
			"$pull": bson.M{"tokens": bson.M{"id": sessionID}},
			"$set":  bson.M{"updated_at": s.now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: session %s", apierr.ErrNotFound, sessionID)
	}
	return nil
}

// Sessions lists a user's sessions in the order they were issued.
func (s *Store) Sessions(ctx context.Context, tenant string, userID primitive.ObjectID) ([]models.Session, error) {
	c, err := s.coll(tenant)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = c.FindOne(ctx,
		bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"tokens": 1}),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", apierr.ErrNotFound, userID.Hex())
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.Session, 0, len(u.Tokens))
	for _, sess := range u.Tokens {
		if s.expired(sess) {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Store) expired(sess models.Session) bool {
	return s.tokenMaxAge > 0 && !sess.CreatedAt.After(s.now().Add(-s.tokenMaxAge))
}

// SweepExpired removes sessions issued before cutoff from every user of a
// tenant. It returns the number of users that lost at least one session.
func (s *Store) SweepExpired(ctx context.Context, tenant string, cutoff time.Time) (int64, error) {
	c, err := s.coll(tenant)
	if err != nil {
		return 0, err
	}
	res, err := c.UpdateMany(ctx,
		bson.M{"tokens.created_at": bson.M{"$lte": cutoff}},
		bson.M{"$pull": bson.M{"tokens": bson.M{"created_at": bson.M{"$lte": cutoff}}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// TokenMaxAge is the configured session lifetime; zero means unlimited.
func (s *Store) TokenMaxAge() time.Duration { return s.tokenMaxAge }
