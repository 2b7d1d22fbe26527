// Package filter turns the caller-supplied ?filter= text into a MongoDB
// predicate.
//
// The text is JSON in which single quotes may stand in for double quotes
// (convenient in a query string). After the quotes are normalized the text
// is parsed as relaxed MongoDB Extended JSON, so {"_id":{"$oid":"..."}} and
// {"at":{"$date":"..."}} are understood.
//
// The decoder is not a sanitizer. The predicate goes to storage as-is,
// operators included, so filter text must only be accepted from callers that
// have already passed token authentication.
package filter

import (
	"fmt"
	"strings"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson"
)

// Predicate selects documents in a collection.
//
// A Predicate either carries an expression (an empty expression matches every
// document) or is the explicit "match nothing" value returned by None.
type Predicate struct {
	expr bson.M
	none bool
}

// All matches every document.
func All() Predicate { return Predicate{expr: bson.M{}} }

// None matches no document. Stores short-circuit it without a storage call.
func None() Predicate { return Predicate{none: true} }

// Of wraps an already-built expression.
func Of(expr bson.M) Predicate {
	if expr == nil {
		expr = bson.M{}
	}
	return Predicate{expr: expr}
}

// MatchesNothing reports whether p is the None predicate.
func (p Predicate) MatchesNothing() bool { return p.none }

// Expr returns the expression to hand to the driver.
// It is nil for the None predicate.
func (p Predicate) Expr() bson.M {
	if p.none {
		return nil
	}
	if p.expr == nil {
		return bson.M{}
	}
	return p.expr
}

// Decode parses raw filter text.
func Decode(raw string) (Predicate, error) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "'", `"`))
	if text == "" {
		return Predicate{}, fmt.Errorf("%w: empty filter", apierr.ErrFilterSyntax)
	}
	if text[0] != '{' {
		return Predicate{}, fmt.Errorf("%w: filter must be an object", apierr.ErrFilterSyntax)
	}

	var expr bson.M
	if err := bson.UnmarshalExtJSON([]byte(text), false, &expr); err != nil {
		return Predicate{}, fmt.Errorf("%w: %v", apierr.ErrFilterSyntax, err)
	}
	return Of(expr), nil
}

// ForRead decodes the filter of a read. An absent filter matches everything.
func ForRead(raw string, present bool) (Predicate, error) {
	if !present {
		return All(), nil
	}
	return Decode(raw)
}

// ForDelete decodes the filter of a bulk delete. An absent filter matches
// nothing: a destructive call never widens to the whole collection by omission.
func ForDelete(raw string, present bool) (Predicate, error) {
	if !present {
		return None(), nil
	}
	return Decode(raw)
}
