package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"jamaat.org/internal/audit"
	"jamaat.org/internal/auth"
	"jamaat.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

const (
	stageAuthenticate = "authenticate"
	stageRole         = "role"
	stageOwnership    = "ownership"
)

// protect resolves the caller's identity from the bearer token. The checks run in
// a fixed order and the first failing one writes the only response.
func (a *API) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get(authHeader))
		if !ok {
			obs.RecordAuthDecision(stageAuthenticate, "deny_no_token")
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		if err := a.tokens.Ready(); err != nil {
			obs.RecordAuthDecision(stageAuthenticate, "deny_config")
			obs.Ctx(r.Context()).Error().Err(err).Msg("cannot verify bearer token")
			writeMessage(w, http.StatusInternalServerError, "JWT secret is not configured")
			return
		}
		id, err := a.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrNotConfigured) {
				obs.RecordAuthDecision(stageAuthenticate, "deny_config")
				writeMessage(w, http.StatusInternalServerError, "JWT secret is not configured")
				return
			}
			obs.RecordAuthDecision(stageAuthenticate, "deny_token_failed")
			obs.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		obs.RecordAuthDecision(stageAuthenticate, "allow")

		ctx := auth.ContextWithIdentity(r.Context(), id)
		l := obs.Ctx(ctx).With().Str("user_id", id.ID).Str("role", id.Role.String()).Logger()
		ctx = obs.WithContext(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken accepts exactly "Bearer <token>": the scheme is case-sensitive, one
// space follows it and the token itself holds no whitespace.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearer) {
		return "", false
	}
	tok := header[len(bearer):]
	if tok == "" || strings.ContainsAny(tok, " \t\r\n") {
		return "", false
	}
	return tok, true
}

// authorize is the role gate for action. It must run after protect.
func (a *API) authorize(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(identityPtr(r), action); err != nil {
				a.deny(w, r, stageRole, action, err)
				return
			}
			obs.RecordAuthDecision(stageRole, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// authorizeResource is the scope check a handler runs once it has loaded the
// resource. It writes the denial and returns false when the caller may not proceed.
func (a *API) authorizeResource(w http.ResponseWriter, r *http.Request, action auth.Action, res auth.Resource) bool {
	if err := auth.AuthorizeResource(identityPtr(r), action, res); err != nil {
		a.deny(w, r, stageOwnership, action, err)
		return false
	}
	obs.RecordAuthDecision(stageOwnership, "allow")
	return true
}

func (a *API) deny(w http.ResponseWriter, r *http.Request, stage string, action auth.Action, err error) {
	outcome := "deny_forbidden"
	if d, ok := auth.AsDenial(err); ok && d.Kind == auth.DenyUnauthenticated {
		outcome = "deny_unauthenticated"
	}
	obs.RecordAuthDecision(stage, outcome)
	_ = audit.LogEvent(r.Context(), audit.AccessDenied, map[string]any{
		"action": string(action),
		"stage":  stage,
	})
	writeDenial(w, r, err)
}

func identityPtr(r *http.Request) *auth.Identity {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}
