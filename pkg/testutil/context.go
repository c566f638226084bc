package testutil

import (
	"context"
	"net/http"
	"time"

	id "stagegate/pkg/domain"
	"stagegate/pkg/requestcontext"
)

// WithActor injects an authenticated actor into the request context, the way
// the auth middleware would.
func WithActor(req *http.Request, userID id.UserID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithAdmin injects a fresh admin actor and returns its id alongside the
// request.
func WithAdmin(req *http.Request) (*http.Request, id.UserID) {
	adminID := id.NewUserID()
	return WithActor(req, adminID, "ADMIN"), adminID
}

// WithRequestMeta injects a request id and request time.
func WithRequestMeta(req *http.Request, requestID string, at time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithTime(ctx, at)
	return req.WithContext(ctx)
}

// AdminContext builds a service-level context carrying an admin actor.
func AdminContext(adminID id.UserID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), adminID)
	return requestcontext.WithRole(ctx, "ADMIN")
}

// ActorContext builds a service-level context for an arbitrary role.
func ActorContext(userID id.UserID, role string) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithRole(ctx, role)
}
