package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header a request ID is read from and echoed in.
const Header = "X-Request-Id"

// key is the context key for the request.
type key struct{}

// request is allocated once per NewContext call. Its address identifies the
// request even when clients reuse an ID.
type request struct {
	id string
}

// NewContext returns a copy of parent carrying id. An empty id is replaced
// by a fresh random one. The stored ID is returned.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, &request{id: id}), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	r, ok := ctx.Value(key{}).(*request)
	if !ok {
		return "", false
	}
	return r.id, true
}

// Token returns a comparable value unique to the NewContext call ctx derives
// from, or nil when ctx carries no request. Two requests with the same ID get
// different tokens.
func Token(ctx context.Context) any {
	r, ok := ctx.Value(key{}).(*request)
	if !ok {
		return nil
	}
	return r
}
