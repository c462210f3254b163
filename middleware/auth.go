package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/models"
)

const actorKey = "actor"

// AuthRequired validates the bearer JWT, rejects revoked tokens and tokens of
// inactive users, and injects the Actor into both the gin context and the
// request context.
func AuthRequired(issuer *auth.Issuer, denylist auth.Denylist, users auth.ActiveChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			Abort(c, apperr.Unauthenticated("Authorization header required (Bearer <token>)."))
			return
		}
		claims, err := issuer.Parse(tokenStr)
		if err != nil {
			Abort(c, apperr.Unauthenticated("Invalid or expired token."))
			return
		}
		revoked, err := denylist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			Abort(c, err)
			return
		}
		if revoked {
			Abort(c, apperr.Unauthenticated("Token has been revoked."))
			return
		}
		active, err := users.IsActive(c.Request.Context(), claims.UserID)
		if err != nil {
			Abort(c, err)
			return
		}
		if !active {
			Abort(c, apperr.Unauthenticated("User is inactive or deleted."))
			return
		}

		actor := auth.ActorFromClaims(claims)
		ctx := auth.WithActor(c.Request.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", actor.UserID))
		c.Request = c.Request.WithContext(ctx)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RoleRequired enforces that the caller has one of the allowed roles.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			Abort(c, apperr.Unauthenticated("Authentication credentials were not provided."))
			return
		}
		for _, r := range roles {
			if actor.Is(r) {
				c.Next()
				return
			}
		}
		Abort(c, apperr.Forbidden("Access denied. Required role(s): %s", strings.Join(names, ", ")))
	}
}

// ActorFrom returns the caller set by AuthRequired.
func ActorFrom(c *gin.Context) (auth.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return auth.Actor{}, false
	}
	a, ok := v.(auth.Actor)
	return a, ok
}

// Abort renders err with the status of its kind and stops the chain.
// Internal errors are logged and never shown to the client.
func Abort(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(apperr.Status(apperr.KindInternal), gin.H{
			"error": "Internal server error",
			"kind":  apperr.KindInternal,
		})
		return
	}
	body := gin.H{"error": appErr.Message, "kind": appErr.Kind}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(apperr.Status(appErr.Kind), body)
}
