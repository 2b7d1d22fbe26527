// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Tenant: The database the user lives in; the same email may exist in many tenants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/authutil"
	"github.com/dalemusser/stratadoc/internal/app/system/indexes"
	"github.com/dalemusser/stratadoc/internal/app/system/normalize"
	"github.com/dalemusser/stratadoc/internal/app/system/validators"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store manages accounts and their sessions across tenants.
type Store struct {
	resolver    *collections.Resolver
	tokenMaxAge time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a Store. A tokenMaxAge of zero means sessions never expire.
func New(resolver *collections.Resolver, tokenMaxAge time.Duration, logger *zap.Logger) *Store {
	return &Store{
		resolver:    resolver,
		tokenMaxAge: tokenMaxAge,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Store) coll(tenant string) (*mongo.Collection, error) {
	h, err := s.resolver.ResolveUsers(tenant)
	if err != nil {
		return nil, err
	}
	return h.Collection(), nil
}

// IsTenant reports whether tenant has been prepared by a signup. Databases
// that merely hold a users collection are not tenants.
func (s *Store) IsTenant(ctx context.Context, tenant string) (bool, error) {
	db, err := s.resolver.Database(tenant)
	if err != nil {
		return false, err
	}
	return indexes.HasTenantIndexes(ctx, db)
}

// prepare returns the users collection of a tenant that is about to receive
// a new account, creating its validator and indexes when they are missing.
// The check runs on every signup so a dropped tenant is prepared again.
func (s *Store) prepare(ctx context.Context, tenant string) (*mongo.Collection, error) {
	c, err := s.coll(tenant)
	if err != nil {
		return nil, err
	}
	ready, err := s.IsTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if ready {
		return c, nil
	}
	if err := validators.EnsureTenant(ctx, c.Database()); err != nil {
		return nil, err
	}
	if err := indexes.EnsureTenant(ctx, c.Database()); err != nil {
		return nil, err
	}
	s.logger.Info("tenant prepared", zap.String("tenant", tenant))
	return c, nil
}

// Create registers a new account and issues its first session.
// It returns the stored user and the session token.
func (s *Store) Create(ctx context.Context, tenant, email, password string) (*models.User, string, error) {
	email = normalize.Email(email)
	if err := authutil.ValidateEmail(email); err != nil {
		return nil, "", fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}
	if err := authutil.ValidatePassword(password); err != nil {
		return nil, "", fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}

	c, err := s.prepare(ctx, tenant)
	if err != nil {
		return nil, "", err
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		Tokens:       []models.Session{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, "", fmt.Errorf("%w: %s", apierr.ErrDuplicateEmail, email)
		}
		return nil, "", err
	}

	sess, err := s.issue(ctx, c, u.ID)
	if err != nil {
		return nil, "", err
	}
	u.Tokens = append(u.Tokens, sess)

	s.logger.Info("user created",
		zap.String("tenant", tenant),
		zap.String("user_id", u.ID.Hex()))
	return &u, sess.Token, nil
}

// Login checks a credential and, on success, appends a new session.
// An unknown email and a wrong password both report ErrInvalidCredentials.
func (s *Store) Login(ctx context.Context, tenant, email, password string) (*models.User, string, error) {
	c, err := s.coll(tenant)
	if err != nil {
		return nil, "", err
	}

	var u models.User
	err = c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", apierr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !authutil.CheckPassword(password, u.PasswordHash) {
		return nil, "", apierr.ErrInvalidCredentials
	}

	sess, err := s.issue(ctx, c, u.ID)
	if err != nil {
		return nil, "", err
	}
	u.Tokens = append(u.Tokens, sess)
	return &u, sess.Token, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, tenant string, id primitive.ObjectID) (*models.User, error) {
	c, err := s.coll(tenant)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", apierr.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes an account, and with it every session it owns.
func (s *Store) Delete(ctx context.Context, tenant string, id primitive.ObjectID) error {
	c, err := s.coll(tenant)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: user %s", apierr.ErrNotFound, id.Hex())
	}
	return nil
}
