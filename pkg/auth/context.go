package auth

import (
	"context"
)

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	usernameKey  contextKey = "username"
	claimsKey    contextKey = "jwt_claims"
)

// NewContextWithSessionID returns a context carrying the session ID.
func NewContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionIDFromContext extracts the session ID from the context. The bool
// reports whether an ID was present.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok
}

// SessionIDFromContext returns the session ID, or "guest" when none is set.
func SessionIDFromContext(ctx context.Context) string {
	sessionID, ok := GetSessionIDFromContext(ctx)
	if !ok || sessionID == "" {
		return "guest"
	}
	return sessionID
}

// UsernameFromContext returns the logged-in username, or "" for guests.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// AddClaimsToContext stores validated claims in the context and unpacks the
// session ID (and username for user tokens) for direct access.
func AddClaimsToContext(ctx context.Context, claims interface{}, isUser bool) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)

	if isUser {
		if userClaims, ok := claims.(*UserClaims); ok && userClaims != nil {
			ctx = NewContextWithSessionID(ctx, userClaims.SessionID)
			ctx = context.WithValue(ctx, usernameKey, userClaims.Username)
		}
		return ctx
	}

	if guestClaims, ok := claims.(*GuestClaims); ok && guestClaims != nil {
		ctx = NewContextWithSessionID(ctx, guestClaims.SessionID)
	}
	return ctx
}

// GetClaimsFromContext extracts the raw claims stored by AddClaimsToContext.
func GetClaimsFromContext(ctx context.Context) (interface{}, bool) {
	claims := ctx.Value(claimsKey)
	return claims, claims != nil
}
