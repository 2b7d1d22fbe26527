// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Attempt tracks failed logins for one email in one tenant.
type Attempt struct {
	Key          string     `bson:"key"`           // tenant + "/" + normalized email
	AttemptCount int        `bson:"attempt_count"` // Failed attempts in current window
	WindowStart  time.Time  `bson:"window_start"`  // When the current counting window started
	LockedUntil  *time.Time `bson:"locked_until"`  // Lockout expiry time (nil if not locked)
	LastAttempt  time.Time  `bson:"last_attempt"`  // Most recent attempt (for TTL cleanup)
}

// Store manages rate limit tracking for login attempts. Counters live in the
// service database so that they are shared by every process.
type Store struct {
	c               *mongo.Collection
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
}

// New creates a new rate limit Store with the given configuration.
func New(db *mongo.Database, maxAttempts int, window, lockout time.Duration) *Store {
	return &Store{
		c:               db.Collection("rate_limits"),
		maxAttempts:     maxAttempts,
		windowDuration:  window,
		lockoutDuration: lockout,
		now:             time.Now,
	}
}

// Key builds the counter key for an email within a tenant.
func Key(tenant, email string) string {
	return tenant + "/" + normalize.Email(email)
}

// CheckAllowed reports whether a login for key may be attempted.
// When the key is locked, lockedUntil says until when.
// Storage errors fail open.
func (s *Store) CheckAllowed(ctx context.Context, key string) (allowed bool, lockedUntil *time.Time) {
	var attempt Attempt
	err := s.c.FindOne(ctx, bson.M{"key": key}).Decode(&attempt)
	if err != nil {
		return true, nil
	}

	now := s.now()
	if attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		return false, attempt.LockedUntil
	}
	return true, nil
}

// RecordFailure counts a failed login for key. It reports whether this
// failure started a lockout. Storage errors fail open.
func (s *Store) RecordFailure(ctx context.Context, key string) (lockedOut bool, lockedUntil *time.Time) {
	now := s.now()

	// Start a new window if the current one (or an expired lockout) is over.
	_, _ = s.c.UpdateOne(ctx,
		bson.M{
			"key":          key,
			"window_start": bson.M{"$lte": now.Add(-s.windowDuration)},
			"$or": bson.A{
				bson.M{"locked_until": nil},
				bson.M{"locked_until": bson.M{"$lte": now}},
			},
		},
		bson.M{"$set": bson.M{
			"attempt_count": 0,
			"window_start":  now,
			"locked_until":  nil,
		}},
	)

	attempt, err := s.increment(ctx, key, now)
	if err != nil && wafflemongo.IsDup(err) {
		// Lost an upsert race with a concurrent failure; the row exists now.
		attempt, err = s.increment(ctx, key, now)
	}
	if err != nil {
		return false, nil
	}

	if attempt.AttemptCount < s.maxAttempts || (attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil)) {
		return false, nil
	}

	until := now.Add(s.lockoutDuration)
	_, err = s.c.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"locked_until": until}},
	)
	if err != nil {
		return false, nil
	}
	return true, &until
}

func (s *Store) increment(ctx context.Context, key string, now time.Time) (Attempt, error) {
	var attempt Attempt
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"key": key},
		bson.M{
			"$inc":         bson.M{"attempt_count": 1},
			"$set":         bson.M{"last_attempt": now},
			"$setOnInsert": bson.M{"window_start": now, "locked_until": nil},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&attempt)
	return attempt, err
}

// ClearOnSuccess removes the counter for key after a successful login.
func (s *Store) ClearOnSuccess(ctx context.Context, key string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"key": key})
	return err
}

// GetAttempt returns the current attempt record for key, or nil.
func (s *Store) GetAttempt(ctx context.Context, key string) (*Attempt, error) {
	var attempt Attempt
	err := s.c.FindOne(ctx, bson.M{"key": key}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
