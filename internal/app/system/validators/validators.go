// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dalemusser/stratadoc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureService creates the service collections (if missing) and tries to
// attach JSON-Schema validators. On servers that don't support
// collMod/validators (e.g. some DocumentDB versions), we log and skip.
func EnsureService(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, map[string]bson.M{
		"audit_logs":  auditLogsSchema(),
		"rate_limits": rateLimitsSchema(),
	})
}

// EnsureTenant does the same for the users collection of one tenant.
// Document collections carry no schema.
func EnsureTenant(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, map[string]bson.M{
		models.UsersCollection: usersSchema(),
	})
}

func ensureAll(ctx context.Context, db *mongo.Database, schemas map[string]bson.M) error {
	var problems []string

	for coll, schema := range schemas {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash", "tokens", "created_at"},
			"properties": bson.M{
				"email":         bson.M{"bsonType": "string", "minLength": 3, "pattern": "^\\S+@\\S+$"},
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
				"tokens": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"id", "access", "token", "created_at"},
						"properties": bson.M{
							"access":     bson.M{"enum": bson.A{models.AccessAuth}},
							"token":      bson.M{"bsonType": "string", "minLength": 1},
							"created_at": bson.M{"bsonType": "date"},
						},
					},
				},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func auditLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_at", "category", "event_type", "tenant", "success"},
			"properties": bson.M{
				"created_at": bson.M{"bsonType": "date"},
				"category":   bson.M{"enum": bson.A{"auth", "account"}},
				"event_type": bson.M{"bsonType": "string", "minLength": 1},
				"tenant":     bson.M{"bsonType": "string"},
				"success":    bson.M{"bsonType": "bool"},
			},
		},
	}
}

func rateLimitsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"key", "attempt_count"},
			"properties": bson.M{
				"key":           bson.M{"bsonType": "string", "minLength": 1},
				"attempt_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"locked_until":  bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}
