package shared

import "context"

// Actor identifies the authenticated user performing a request. A nil
// LocationID means the actor is not bound to any agency location and acts
// with administrative reach.
type Actor struct {
	UserID     int64
	Name       string
	LocationID *int64
	Admin      bool
}

// BoundTo reports whether the actor is bound to the given location.
func (a Actor) BoundTo(locationID int64) bool {
	return a.LocationID != nil && *a.LocationID == locationID
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
