// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize applies when a caller passes no limit.
const DefaultPageSize = 20

// Page returns find options for a 1-based page of limit documents, sorted
// ascending by sortField so that consecutive pages neither repeat nor skip.
// A skip that would overflow is clamped, which yields an empty page.
func Page(page, limit int64, sortField string) *options.FindOptions {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	skip := int64(math.MaxInt64)
	if page-1 <= math.MaxInt64/limit {
		skip = (page - 1) * limit
	}
	return options.Find().
		SetLimit(limit).
		SetSkip(skip).
		SetSort(bson.D{{Key: sortField, Value: 1}})
}
