package contexthelpers

import (
	"context"
)

// WithAuthenticatedUser marks ctx as belonging to the signed-in user userID. Services read the user from the
// context the same way for HTTP requests and tests.
func WithAuthenticatedUser(ctx context.Context, userID int) context.Context {
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	ctx = context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
	return ctx
}
