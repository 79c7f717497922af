// Package identity resolves the user id stamped on baselines and ledger
// edits. Sessions come from an external provider; a missing session falls
// back to a synthetic demo user so authorship stamping never blocks an edit.
package identity

import "context"

// DemoUserID is the synthetic author recorded when no session is present.
const DemoUserID = "demo"

// Provider supplies the current user id for a request.
type Provider interface {
	CurrentUserID(ctx context.Context) string
}

// StaticProvider returns a fixed user id, or the demo user when empty.
// Stands in for the real identity provider in local runs and tests.
type StaticProvider struct {
	UserID string
}

// CurrentUserID implements Provider.
func (p StaticProvider) CurrentUserID(ctx context.Context) string {
	if p.UserID == "" {
		return DemoUserID
	}
	return p.UserID
}

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID stores a user id on the context; middleware sets this from the
// session header.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// FromContext reads the user id from the context, falling back to the demo
// user.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return DemoUserID
}

// ContextProvider resolves the user from the request context populated by the
// auth middleware.
type ContextProvider struct{}

// CurrentUserID implements Provider.
func (ContextProvider) CurrentUserID(ctx context.Context) string {
	return FromContext(ctx)
}
