package listing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"jamaat.org/internal/ids"
)

// Service applies listing rules on top of a Store. It performs no authorization:
// callers check the acting identity before mutating.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("listing store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewMosque is the input for CreateMosque. Coordinates are [longitude, latitude].
type NewMosque struct {
	Name        string
	Address     string
	Coordinates []float64
	Admin       string
	Description string
	Image       string
}

func (s *Service) CreateMosque(ctx context.Context, in NewMosque) (*Mosque, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" || in.Address == "" {
		return nil, fmt.Errorf("%w: name and address are required", ErrInvalidInput)
	}
	if len(in.Coordinates) != 2 {
		return nil, fmt.Errorf("%w: coordinates must be [longitude, latitude]", ErrInvalidInput)
	}
	lon, lat := in.Coordinates[0], in.Coordinates[1]
	if math.Abs(lon) > 180 || math.Abs(lat) > 90 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	now := s.now().UTC()
	m := &Mosque{
		ID:          ids.New(),
		Name:        in.Name,
		Address:     in.Address,
		Location:    NewPoint(lon, lat),
		Admin:       strings.TrimSpace(in.Admin),
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateMosque(ctx, m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: admin user not found", ErrInvalidInput)
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMosque(ctx context.Context, id string) (*Mosque, error) {
	if !ids.Valid(id) {
		return nil, ErrNotFound
	}
	return s.store.GetMosque(ctx, id)
}

func (s *Service) ListMosques(ctx context.Context) ([]Mosque, error) {
	return s.store.ListMosques(ctx)
}

// NewEvent is the input for CreateEvent. Organiser is the acting identity.
type NewEvent struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Image       string
	EventType   EventType
	Capacity    int
	Mosque      string
	Organiser   string
}

func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (*Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	if in.Title == "" || in.Description == "" || in.Image == "" || in.Date.IsZero() {
		return nil, fmt.Errorf("%w: title, description, date and image are required", ErrInvalidInput)
	}
	if in.Organiser == "" {
		return nil, fmt.Errorf("%w: organiser is required", ErrInvalidInput)
	}
	if in.EventType == "" {
		in.EventType = DefaultEventType
	}
	if !in.EventType.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, in.EventType)
	}
	if in.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	if _, err := s.GetMosque(ctx, in.Mosque); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &Event{
		ID:          ids.New(),
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date.UTC(),
		Location:    strings.TrimSpace(in.Location),
		Image:       in.Image,
		Organiser:   in.Organiser,
		EventType:   in.EventType,
		Capacity:    in.Capacity,
		Mosque:      in.Mosque,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	if !ids.Valid(id) {
		return nil, ErrNotFound
	}
	return s.store.GetEvent(ctx, id)
}

// ListEvents returns one page of events sorted by date ascending.
func (s *Service) ListEvents(ctx context.Context, f EventFilter) (EventPage, error) {
	f = f.Normalize()
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Mosque = strings.TrimSpace(f.Mosque)
	if f.Now.IsZero() {
		f.Now = s.now().UTC()
	}
	events, total, err := s.store.ListEvents(ctx, f)
	if err != nil {
		return EventPage{}, err
	}
	if events == nil {
		events = []EventListing{}
	}
	return EventPage{
		CurrentPage: f.Page,
		TotalPages:  (total + f.Limit - 1) / f.Limit,
		TotalEvents: total,
		Events:      events,
	}, nil
}

// UpdateEvent applies upd to an existing event.
func (s *Service) UpdateEvent(ctx context.Context, id string, upd EventUpdate) (*Event, error) {
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		upd.Title = &t
	}
	if upd.EventType != nil && !upd.EventType.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, *upd.EventType)
	}
	if upd.Capacity != nil && *upd.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	if upd.Date != nil {
		d := upd.Date.UTC()
		upd.Date = &d
	}
	if !ids.Valid(id) {
		return nil, ErrNotFound
	}
	e, err := s.store.UpdateEvent(ctx, id, upd, s.now().UTC())
	if errors.Is(err, ErrBelowBooked) {
		return nil, fmt.Errorf("%w: capacity is below the seats already booked", ErrInvalidInput)
	}
	return e, err
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return ErrNotFound
	}
	return s.store.DeleteEvent(ctx, id)
}

// Book reserves a seat for userID at eventID.
func (s *Service) Book(ctx context.Context, eventID, userID string) (*Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	// capacity is enforced by the store, after the duplicate check
	b := &Booking{
		ID:       ids.New(),
		Event:    ev.ID,
		User:     userID,
		BookedAt: s.now().UTC(),
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	if !ids.Valid(id) {
		return nil, ErrNotFound
	}
	return s.store.GetBooking(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, userID string) ([]Booking, error) {
	bookings, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	return bookings, nil
}

func (s *Service) CancelBooking(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return ErrNotFound
	}
	return s.store.DeleteBooking(ctx, id)
}
