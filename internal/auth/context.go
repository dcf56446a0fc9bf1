package auth

import (
	"context"

	"github.com/rpggio/recordbase/internal/domain/access"
)

type contextKey string

const actorKey contextKey = "recordbase-actor"

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (access.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(access.Actor)
	return actor, ok
}

// ActorResolver resolves an actor from a bearer token.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (access.Actor, error)
}

// Static resolves every token, including none, to one actor. It backs
// unauthenticated local use.
type Static access.Actor

func (s Static) ResolveActor(context.Context, string) (access.Actor, error) {
	return access.Actor(s), nil
}
