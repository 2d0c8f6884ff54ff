// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by keyset-paged lists.
const PageSize = 50

// MaxLimit caps any caller-supplied result ceiling.
const MaxLimit = 500

// LimitPlusOne returns PageSize+1 for look-ahead pagination.
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// ParseLimit reads the "limit" query parameter as a result ceiling.
// Missing or invalid values yield def; values above MaxLimit are clamped.
func ParseLimit(r *http.Request, def int) int {
	s := query.Get(r, "limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Page is the response envelope for keyset-paged lists.
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}

// Keyset describes a forward-only keyset window over (sortField, _id).
type Keyset struct {
	Cursor *wafflemongo.Cursor
}

// ParseKeyset decodes the "after" query parameter. An undecodable cursor
// restarts from the first page.
func ParseKeyset(r *http.Request) Keyset {
	after := query.Get(r, "after")
	if after == "" {
		return Keyset{}
	}
	if c, ok := wafflemongo.DecodeCursor(after); ok {
		return Keyset{Cursor: &c}
	}
	return Keyset{}
}

// Apply adds the keyset condition to filter and configures sort and limit.
func (k Keyset) Apply(filter bson.M, find *options.FindOptions, sortField string) {
	if k.Cursor != nil {
		for key, v := range wafflemongo.KeysetWindow(sortField, "gt", k.Cursor.CI, k.Cursor.ID) {
			filter[key] = v
		}
	}
	find.SetSort(bson.D{
		{Key: sortField, Value: 1},
		{Key: "_id", Value: 1},
	}).SetLimit(LimitPlusOne())
}

// Finish trims the look-ahead row and builds the page with its next cursor.
func Finish[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	p := Page[T]{Items: rows}
	if len(rows) > PageSize {
		p.Items = rows[:PageSize]
		last := p.Items[len(p.Items)-1]
		p.Next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}
