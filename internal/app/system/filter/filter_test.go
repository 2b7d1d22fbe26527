package filter

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecode(t *testing.T) {
	t.Run("double quotes", func(t *testing.T) {
		p, err := Decode(`{"number":2000}`)
		require.NoError(t, err)
		assert.False(t, p.MatchesNothing())
		assert.Equal(t, bson.M{"number": int32(2000)}, p.Expr())
	})

	t.Run("single quotes are normalized", func(t *testing.T) {
		p, err := Decode(`{'text':'t1'}`)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"text": "t1"}, p.Expr())
	})

	t.Run("operators pass through", func(t *testing.T) {
		p, err := Decode(`{'number':{'$gte':2500}}`)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"number": bson.M{"$gte": int32(2500)}}, p.Expr())
	})

	t.Run("extended json object id", func(t *testing.T) {
		id := primitive.NewObjectID()
		p, err := Decode(`{"_id":{"$oid":"` + id.Hex() + `"}}`)
		require.NoError(t, err)
		assert.Equal(t, id, p.Expr()["_id"])
	})

	t.Run("empty object matches all", func(t *testing.T) {
		p, err := Decode(`{}`)
		require.NoError(t, err)
		assert.Empty(t, p.Expr())
		assert.False(t, p.MatchesNothing())
	})

	for _, raw := range []string{"", "   ", "{number:2000}", `{"number":`, "not json", "[1, 2]", "42"} {
		raw := raw
		t.Run("syntax error "+raw, func(t *testing.T) {
			_, err := Decode(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apierr.ErrFilterSyntax))
		})
	}
}

func TestForRead(t *testing.T) {
	p, err := ForRead("", false)
	require.NoError(t, err)
	assert.False(t, p.MatchesNothing())
	assert.Equal(t, bson.M{}, p.Expr())

	p, err = ForRead(`{'a':1}`, true)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"a": int32(1)}, p.Expr())
}

func TestForDelete(t *testing.T) {
	p, err := ForDelete("", false)
	require.NoError(t, err)
	assert.True(t, p.MatchesNothing())
	assert.Nil(t, p.Expr())

	_, err = ForDelete("", true)
	assert.True(t, errors.Is(err, apierr.ErrFilterSyntax))

	p, err = ForDelete(`{}`, true)
	require.NoError(t, err)
	assert.False(t, p.MatchesNothing(), "an explicit {} is an explicit match-all")
}

func TestZeroPredicate(t *testing.T) {
	var p Predicate
	assert.False(t, p.MatchesNothing())
	assert.Equal(t, bson.M{}, p.Expr())
}
