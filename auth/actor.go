package auth

import (
	"context"
	"time"

	"restaurant-ordering-api/models"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID    uint
	Email     string
	Role      models.UserRole
	TokenID   string
	ExpiresAt time.Time
}

func (a Actor) Is(role models.UserRole) bool {
	return a.Role == role
}

// ActorFromClaims maps validated claims onto an Actor.
func ActorFromClaims(c *Claims) Actor {
	a := Actor{UserID: c.UserID, Email: c.Email, Role: c.Role, TokenID: c.ID}
	if c.ExpiresAt != nil {
		a.ExpiresAt = c.ExpiresAt.Time
	}
	return a
}

// ActiveChecker reports whether a user may still authenticate. Accounts can
// be deactivated while their tokens are unexpired.
type ActiveChecker interface {
	IsActive(ctx context.Context, userID uint) (bool, error)
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
