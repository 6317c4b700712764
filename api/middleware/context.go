package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxTerritory contextKey = "territory"
	ctxAccessID  contextKey = "access_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func TerritoryFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTerritory).(string); ok {
		return v
	}
	return ""
}

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects the authenticated identity into the context.
func WithIdentity(ctx context.Context, userID, role, territory, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	ctx = context.WithValue(ctx, ctxTerritory, territory)
	ctx = context.WithValue(ctx, ctxAccessID, accessID)
	return ctx
}

// ActorFromContext rebuilds the typed actor from the request context. The
// zero actor is returned when the request is unauthenticated.
func ActorFromContext(ctx context.Context) access.Actor {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return access.Actor{}
	}
	return access.Actor{
		UserID:      userID,
		ClaimedRole: enums.UserRole(RoleFromContext(ctx)),
		Territory:   enums.Territory(TerritoryFromContext(ctx)),
	}
}
