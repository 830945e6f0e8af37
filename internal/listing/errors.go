package listing

import "errors"

var (
	ErrNotFound     = errors.New("listing: not found")
	ErrConflict     = errors.New("listing: already exists")
	ErrInvalidInput = errors.New("listing: invalid input")
	ErrEventFull    = errors.New("listing: event is fully booked")

	// ErrBelowBooked is returned by Store.UpdateEvent when a limited capacity would
	// fall under the seats already taken.
	ErrBelowBooked = errors.New("listing: capacity is below the seats already booked")
)
