package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/filter"
	"github.com/dalemusser/stratadoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Store, *collections.Handle) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h, err := collections.New(db.Client()).ResolveDocuments(db.Name(), "todos")
	require.NoError(t, err)
	return New(zap.NewNop()), h
}

func mustParse(t *testing.T, docs ...bson.M) Batch {
	t.Helper()
	b, err := ParseBatch(docs, collections.CommonSchema)
	require.NoError(t, err)
	return b
}

func TestReconcile_NewDocuments(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := s.Reconcile(ctx, h, mustParse(t,
		bson.M{"text": "t1", "number": 2000},
		bson.M{"text": "t2", "number": 3000},
	))
	require.NoError(t, err)

	assert.EqualValues(t, 2, res.InsertedCount)
	assert.EqualValues(t, 0, res.MatchedCount)
	assert.EqualValues(t, 0, res.ModifiedCount)
	assert.EqualValues(t, 0, res.DeletedCount)
	require.Len(t, res.Inserted, 2)

	ids := map[primitive.ObjectID]bool{}
	for i, doc := range res.Inserted {
		id, ok := doc["_id"].(primitive.ObjectID)
		require.True(t, ok)
		assert.False(t, ids[id], "identifiers are distinct")
		ids[id] = true
		assert.Contains(t, doc, "updatedAt")
		assert.Equal(t, []string{"t1", "t2"}[i], doc["text"], "input order is kept")
	}

	n, err := h.Collection().CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestReconcile_ExistingDocuments(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := s.Reconcile(ctx, h, mustParse(t, bson.M{"text": "a"}, bson.M{"text": "b"}))
	require.NoError(t, err)

	idA := first.Inserted[0]["_id"].(primitive.ObjectID)
	idB := first.Inserted[1]["_id"].(primitive.ObjectID)

	res, err := s.Reconcile(ctx, h, mustParse(t,
		bson.M{"_id": idA.Hex(), "text": "a2", "done": true},
		bson.M{"_id": idB.Hex(), "text": "b2"},
	))
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.InsertedCount)
	assert.EqualValues(t, 2, res.MatchedCount)
	assert.EqualValues(t, 2, res.ModifiedCount)
	assert.Empty(t, res.Inserted)

	var got bson.M
	require.NoError(t, h.Collection().FindOne(ctx, bson.M{"_id": idA}).Decode(&got))
	delete(got, "updatedAt")
	assert.Equal(t, bson.M{"_id": idA, "text": "a2", "done": true}, got, "stored document equals the submitted fields")
}

func TestReconcile_UpsertsUnknownIdentifier(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	res, err := s.Reconcile(ctx, h, mustParse(t,
		bson.M{"_id": id.Hex(), "text": "created by upsert"},
		bson.M{"text": "fresh"},
	))
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.InsertedCount)
	assert.EqualValues(t, 1, res.MatchedCount)
	assert.Len(t, res.Inserted, 1, "upserted items are not reported as inserted")
	assert.EqualValues(t, 2, res.InsertedCount+res.MatchedCount)

	n, err := h.Collection().CountDocuments(ctx, bson.M{"_id": id})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestReconcile_EmptyBatch(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := s.Reconcile(ctx, h, Batch{})
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: []bson.M{}}, res)
}

func TestDeleteOne_Idempotent(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := s.Reconcile(ctx, h, mustParse(t, bson.M{"text": "gone soon"}))
	require.NoError(t, err)
	id := res.Inserted[0]["_id"].(primitive.ObjectID).Hex()

	doc, err := s.DeleteOne(ctx, h, id)
	require.NoError(t, err)
	assert.Equal(t, "gone soon", doc["text"])

	_, err = s.DeleteOne(ctx, h, id)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))

	_, err = s.DeleteOne(ctx, h, "xyz")
	assert.True(t, errors.Is(err, apierr.ErrInvalidIdentifier))
}

func TestDeleteMany(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.Reconcile(ctx, h, mustParse(t,
		bson.M{"text": "t1", "number": 2000},
		bson.M{"text": "t2", "number": 2000},
		bson.M{"text": "t3", "number": 3000},
	))
	require.NoError(t, err)

	t.Run("absent filter deletes nothing", func(t *testing.T) {
		n, err := s.DeleteMany(ctx, h, filter.None())
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("matching documents only", func(t *testing.T) {
		pred, err := filter.Decode(`{'number':2000}`)
		require.NoError(t, err)
		n, err := s.DeleteMany(ctx, h, pred)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		left, err := h.Collection().CountDocuments(ctx, bson.M{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, left)
	})
}

func TestUpdateOne(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := s.Reconcile(ctx, h, mustParse(t, bson.M{"text": "t1", "number": 1}))
	require.NoError(t, err)
	id := res.Inserted[0]["_id"].(primitive.ObjectID)

	doc, err := s.UpdateOne(ctx, h, id.Hex(), bson.M{"number": 2, "_id": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, id, doc["_id"])
	assert.Equal(t, "t1", doc["text"], "untouched fields survive")
	assert.EqualValues(t, 2, doc["number"])

	_, err = s.UpdateOne(ctx, h, primitive.NewObjectID().Hex(), bson.M{"number": 3})
	assert.True(t, errors.Is(err, apierr.ErrNotFound))

	_, err = s.UpdateOne(ctx, h, id.Hex(), bson.M{"updatedAt": 1})
	assert.True(t, errors.Is(err, apierr.ErrValidation))

	_, err = s.UpdateOne(ctx, h, id.Hex(), bson.M{"$unset": bson.M{"text": ""}})
	assert.True(t, errors.Is(err, apierr.ErrValidation))

	_, err = s.UpdateOne(ctx, h, "nope", bson.M{"number": 3})
	assert.True(t, errors.Is(err, apierr.ErrInvalidIdentifier))
}

func TestFind(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	docs := make([]bson.M, 0, 5)
	for i := 0; i < 5; i++ {
		docs = append(docs, bson.M{"n": i, "even": i%2 == 0})
	}
	res, err := s.Reconcile(ctx, h, mustParse(t, docs...))
	require.NoError(t, err)

	page, total, err := s.Find(ctx, h, filter.All(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	pred, err := filter.Decode(`{'even':true}`)
	require.NoError(t, err)
	page, total, err = s.Find(ctx, h, pred, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 3)

	one, err := s.FindOne(ctx, h, res.Inserted[4]["_id"].(primitive.ObjectID).Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 4, one["n"])

	_, err = s.FindOne(ctx, h, primitive.NewObjectID().Hex())
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}

func TestTenantIsolation(t *testing.T) {
	s, h := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.Reconcile(ctx, h, mustParse(t, bson.M{"text": "mine"}))
	require.NoError(t, err)

	foreign, err := collections.New(h.Collection().Database().Client()).ResolveDocuments(h.Tenant+"_x", h.Name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = foreign.Collection().Database().Drop(context.Background()) })

	n, err := foreign.Collection().CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
