package documents

import "go.mongodb.org/mongo-driver/bson"

// Counts is the summary of a write.
type Counts struct {
	Inserted int64 `json:"inserted"`
	Deleted  int64 `json:"deleted"`
	Modified int64 `json:"modified"`
	Matched  int64 `json:"matched"`
}

// BulkResponse is the body of POST /{tenant}/{collection}.
// Embedded lists the newly inserted documents in input order.
type BulkResponse struct {
	Embedded []bson.M `json:"_embedded"`
	Counts
}

// ListResponse is the body of GET /{tenant}/{collection}.
// Count is the number of documents matching the filter, across all pages.
type ListResponse struct {
	Embedded []bson.M `json:"_embedded"`
	Count    int64    `json:"count"`
}
