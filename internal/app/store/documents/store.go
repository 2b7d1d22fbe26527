// internal/app/store/documents/store.go
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/store/storeutil"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/filter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Result reports the outcome of a bulk write.
type Result struct {
	// Inserted holds the stored form of every NewDocument, in input order.
	Inserted      []bson.M
	InsertedCount int64
	MatchedCount  int64
	ModifiedCount int64
	DeletedCount  int64
}

// Service is the document API used by the HTTP handlers.
type Service interface {
	Reconcile(ctx context.Context, h *collections.Handle, batch Batch) (Result, error)
	FindOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error)
	Find(ctx context.Context, h *collections.Handle, pred filter.Predicate, page, limit int64) ([]bson.M, int64, error)
	UpdateOne(ctx context.Context, h *collections.Handle, id string, partial bson.M) (bson.M, error)
	DeleteOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error)
	DeleteMany(ctx context.Context, h *collections.Handle, pred filter.Predicate) (int64, error)
}

// Store implements Service on MongoDB.
type Store struct {
	logger *zap.Logger
	now    func() time.Time
}

var _ Service = (*Store)(nil)

// New creates a document Store.
func New(logger *zap.Logger) *Store {
	return &Store{logger: logger, now: time.Now}
}

// Reconcile applies a batch in input order. NewDocument items are inserted
// with a fresh identifier; ExistingDocument items replace (or create) the
// document with their identifier.
//
// There is no transaction around the batch. If an item fails, the error is
// returned and the writes of earlier items stay in place.
func (s *Store) Reconcile(ctx context.Context, h *collections.Handle, batch Batch) (Result, error) {
	res := Result{Inserted: []bson.M{}}
	coll := h.Collection()
	now := s.now().UTC()

	for i, it := range batch {
		switch item := it.(type) {
		case NewDocument:
			doc := s.stamp(item.Fields, h.Schema, now)
			doc[h.Schema.IDField] = primitive.NewObjectID()
			if _, err := coll.InsertOne(ctx, doc); err != nil {
				return res, fmt.Errorf("insert item %d: %w", i, err)
			}
			res.Inserted = append(res.Inserted, doc)
			res.InsertedCount++

		case ExistingDocument:
			doc := s.stamp(item.Fields, h.Schema, now)
			_, err := coll.ReplaceOne(ctx,
				bson.M{h.Schema.IDField: item.ID},
				doc,
				options.Replace().SetUpsert(true),
			)
			if err != nil {
				return res, fmt.Errorf("replace item %d (%s): %w", i, item.ID.Hex(), err)
			}
			res.MatchedCount++
			res.ModifiedCount++

		default:
			return res, fmt.Errorf("%w: item %d has unknown kind %T", apierr.ErrValidation, i, it)
		}
	}

	s.logger.Debug("bulk write applied",
		zap.String("tenant", h.Tenant),
		zap.String("collection", h.Name),
		zap.Int64("inserted", res.InsertedCount),
		zap.Int64("matched", res.MatchedCount))
	return res, nil
}

// FindOne returns the document with the given identifier.
func (s *Store) FindOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	err = h.Collection().FindOne(ctx, bson.M{h.Schema.IDField: oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(h, oid)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Find returns one page of the documents matching pred, ordered by
// identifier, and the total number of matches.
func (s *Store) Find(ctx context.Context, h *collections.Handle, pred filter.Predicate, page, limit int64) ([]bson.M, int64, error) {
	if pred.MatchesNothing() {
		return []bson.M{}, 0, nil
	}
	coll := h.Collection()

	total, err := coll.CountDocuments(ctx, pred.Expr())
	if err != nil {
		return nil, 0, err
	}

	opts := storeutil.Page(page, limit, h.Schema.IDField)
	cur, err := coll.Find(ctx, pred.Expr(), opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// UpdateOne sets the given fields on one document and returns the document
// as stored after the update. Reserved fields in partial are ignored.
func (s *Store) UpdateOne(ctx context.Context, h *collections.Handle, id string, partial bson.M) (bson.M, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	fields, err := documentFields(partial, h.Schema)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: update has no fields", apierr.ErrValidation)
	}
	fields[h.Schema.VersionField] = s.now().UTC()

	var doc bson.M
	err = h.Collection().FindOneAndUpdate(ctx,
		bson.M{h.Schema.IDField: oid},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(h, oid)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteOne removes a document and returns it. Deleting an identifier that
// is already gone reports NotFound.
func (s *Store) DeleteOne(ctx context.Context, h *collections.Handle, id string) (bson.M, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	err = h.Collection().FindOneAndDelete(ctx, bson.M{h.Schema.IDField: oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(h, oid)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteMany removes every document matching pred. The None predicate
// deletes nothing and does not reach storage.
func (s *Store) DeleteMany(ctx context.Context, h *collections.Handle, pred filter.Predicate) (int64, error) {
	if pred.MatchesNothing() {
		return 0, nil
	}
	res, err := h.Collection().DeleteMany(ctx, pred.Expr())
	if err != nil {
		return 0, err
	}
	s.logger.Info("bulk delete",
		zap.String("tenant", h.Tenant),
		zap.String("collection", h.Name),
		zap.Int64("deleted", res.DeletedCount))
	return res.DeletedCount, nil
}

// stamp copies fields and sets the version marker.
func (s *Store) stamp(fields bson.M, schema collections.Schema, now time.Time) bson.M {
	doc := make(bson.M, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc[schema.VersionField] = now
	return doc
}

func notFound(h *collections.Handle, id primitive.ObjectID) error {
	return fmt.Errorf("%w: %s/%s/%s", apierr.ErrNotFound, h.Tenant, h.Name, id.Hex())
}
