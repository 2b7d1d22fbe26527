// internal/app/store/documents/batch.go
package documents

import (
	"fmt"
	"strings"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one entry of a bulk write: a NewDocument or an ExistingDocument.
type Item interface {
	item()
}

// NewDocument carries no identifier. It is inserted with a fresh ObjectID.
type NewDocument struct {
	Fields bson.M
}

// ExistingDocument is upserted under its identifier.
type ExistingDocument struct {
	ID     primitive.ObjectID
	Fields bson.M
}

func (NewDocument) item()      {}
func (ExistingDocument) item() {}

// Batch is an ordered bulk write.
type Batch []Item

// Counts returns the number of new and existing items.
func (b Batch) Counts() (newItems, existing int) {
	for _, it := range b {
		switch it.(type) {
		case NewDocument:
			newItems++
		case ExistingDocument:
			existing++
		}
	}
	return newItems, existing
}

// ParseBatch classifies every document of a bulk write. Reserved fields are
// stripped from Fields. A malformed identifier or field name anywhere rejects
// the whole batch, so nothing is written for it.
func ParseBatch(docs []bson.M, schema collections.Schema) (Batch, error) {
	batch := make(Batch, 0, len(docs))
	for i, doc := range docs {
		fields, err := documentFields(doc, schema)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		raw, ok := doc[schema.IDField]
		if !ok || raw == nil {
			batch = append(batch, NewDocument{Fields: fields})
			continue
		}
		id, err := ParseID(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		batch = append(batch, ExistingDocument{ID: id, Fields: fields})
	}
	return batch, nil
}

// ParseID accepts a 24-character hex string or an ObjectID value.
func ParseID(v any) (primitive.ObjectID, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		if id.IsZero() {
			return primitive.NilObjectID, fmt.Errorf("%w: zero object id", apierr.ErrInvalidIdentifier)
		}
		return id, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("%w: %q", apierr.ErrInvalidIdentifier, id)
		}
		return oid, nil
	default:
		return primitive.NilObjectID, fmt.Errorf("%w: %v", apierr.ErrInvalidIdentifier, v)
	}
}

// documentFields drops reserved fields and refuses top-level names that
// MongoDB would read as operators.
func documentFields(doc bson.M, schema collections.Schema) (bson.M, error) {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if schema.Reserved(k) {
			continue
		}
		if strings.HasPrefix(k, "$") {
			return nil, fmt.Errorf("%w: field name %q may not start with $", apierr.ErrValidation, k)
		}
		out[k] = v
	}
	return out, nil
}
