package listing

import (
	"context"
	"time"
)

// Store describes persistence for mosques, events and bookings. Implementations
// return ErrNotFound for missing rows and ErrConflict for unique index violations.
type Store interface {
	CreateMosque(ctx context.Context, m *Mosque) error
	GetMosque(ctx context.Context, id string) (*Mosque, error)
	ListMosques(ctx context.Context) ([]Mosque, error)

	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]EventListing, int, error)
	UpdateEvent(ctx context.Context, id string, upd EventUpdate, now time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// CreateBooking takes a seat atomically: ErrEventFull when capacity is reached,
	// ErrConflict when the user already holds a booking for the event.
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	// DeleteBooking releases the seat taken by the booking.
	DeleteBooking(ctx context.Context, id string) error
}
