package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped values set by the middleware.
type ContextKey string

const (
	// UserIDContextKey holds the learner id from the token's uid claim.
	UserIDContextKey ContextKey = "userID"

	// PlayerIDContextKey holds the PvP player id from the token's pid claim.
	PlayerIDContextKey ContextKey = "playerID"

	// RoleContextKey holds the token's role claim.
	RoleContextKey ContextKey = "role"

	// TraceIDKey holds the trace id of the request.
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader is echoed back on every response and accepted from callers.
	TraceIDHeader = "X-Trace-ID"

	maxTraceIDLength = 64
)

// SetTraceID stores a fresh trace id in the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// WithTraceID stores the given trace id, replacing invalid ids with a fresh one.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if !validTraceID(traceID) {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id, or "" when none is set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// NewTraceID returns a 32 character hex id.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLength {
		return false
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}

// UserID returns the authenticated learner id.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok && id != ""
}

// PlayerID returns the authenticated PvP player id.
func PlayerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(PlayerIDContextKey).(int64)
	return id, ok && id > 0
}

// Role returns the authenticated role, or "".
func Role(ctx context.Context) string {
	role, _ := ctx.Value(RoleContextKey).(string)
	return role
}
