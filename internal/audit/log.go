// Package audit records security-relevant actions as structured log entries.
package audit

import (
	"context"
	"errors"
	"strings"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/obs"
)

// Event names.
const (
	LoginSucceeded   = "auth.login.succeeded"
	LoginFailed      = "auth.login.failed"
	UserRegistered   = "auth.user.registered"
	MosqueCreated    = "mosque.created"
	EventCreated     = "event.created"
	EventUpdated     = "event.updated"
	EventDeleted     = "event.deleted"
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	AccessDenied     = "auth.access.denied"
	RoleAssigned     = "auth.role.assigned"
)

type ctxKey struct{}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the request identifier stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// LogEvent writes an audit entry enriched with the request id and acting identity.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	e := obs.Logger().Info().Str("type", "audit").Str("event", event)
	if rid := RequestID(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		e = e.Str("user_id", id.ID).Str("role", id.Role.String())
		if id.AssignedMosque != "" {
			e = e.Str("assigned_mosque", id.AssignedMosque)
		}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	e.Interface("fields", fields).Send()
	return nil
}
