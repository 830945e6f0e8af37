package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the signing secret is missing. It is a deployment fault.
	ErrNotConfigured = errors.New("auth: JWT secret is not configured")
	// ErrTokenInvalid covers malformed tokens, signature mismatch and expiry.
	ErrTokenInvalid       = errors.New("auth: invalid token")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrNotFound           = errors.New("auth: not found")
	ErrConflict           = errors.New("auth: already exists")
)

// DenyKind classifies an authorization failure.
type DenyKind int

const (
	// DenyUnauthenticated means no usable identity was present.
	DenyUnauthenticated DenyKind = iota + 1
	// DenyForbidden means the identity is known but lacks role or ownership.
	DenyForbidden
)

func (k DenyKind) String() string {
	switch k {
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Denial is returned by the authorization engine. Message is safe to show to clients.
type Denial struct {
	Kind    DenyKind
	Message string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("auth: %s: %s", d.Kind, d.Message)
}

// AsDenial unwraps err into a *Denial if it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func unauthenticated(msg string) error { return &Denial{Kind: DenyUnauthenticated, Message: msg} }

func forbidden(msg string) error { return &Denial{Kind: DenyForbidden, Message: msg} }
