// Package jsonutil provides helper functions for JSON API requests and responses.
//
// Document bodies are decoded with the MongoDB driver's relaxed Extended JSON
// parser, so callers may send typed values such as {"$oid": "..."} or
// {"$date": "..."}. Responses are plain JSON; ObjectIDs render as hex strings.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson"
)

// MaxBodyBytes bounds every request body read by this package.
const MaxBodyBytes = 8 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Empty writes a 200 OK response with no body.
func Empty(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// Decode reads a JSON object from the request body into v.
// Malformed input is reported as apierr.ErrValidation.
func Decode(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}
	return nil
}

// DecodeDocument reads a single Extended JSON object from the request body.
func DecodeDocument(r *http.Request) (bson.M, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	return unmarshalDoc(body)
}

// DecodeDocuments reads the body of a bulk write. The body is a JSON array of
// Extended JSON objects; a lone object is accepted as a batch of one.
func DecodeDocuments(r *http.Request) ([]bson.M, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		doc, err := unmarshalDoc(trimmed)
		if err != nil {
			return nil, err
		}
		return []bson.M{doc}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: body must be an array of documents", apierr.ErrValidation)
	}
	docs := make([]bson.M, 0, len(raws))
	for i, raw := range raws {
		doc, err := unmarshalDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, fmt.Errorf("%w: empty body", apierr.ErrValidation)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apierr.ErrValidation, err)
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", apierr.ErrValidation, MaxBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", apierr.ErrValidation)
	}
	return body, nil
}

func unmarshalDoc(raw []byte) (bson.M, error) {
	var doc bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document must be an object", apierr.ErrValidation)
	}
	return doc, nil
}
