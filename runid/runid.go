// Package runid tags a context with the id of a command or job run.
package runid

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type key struct{}

// New returns a context carrying a fresh run id, and a logger tagged with it.
func New(ctx context.Context, log zerolog.Logger) context.Context {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, key{}, id)
	l := log.With().Str("run_id", id).Logger()
	return l.WithContext(ctx)
}

// From returns the run id of ctx, or "" if there is none.
func From(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}
