// Package memory keeps users, mosques, events and bookings in process memory. It
// enforces the same unique indexes as the Postgres schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/listing"
)

// Store implements auth.UserStore and listing.Store with in-process concurrency safety.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*auth.User
	mosques  map[string]*listing.Mosque
	events   map[string]*listing.Event
	bookings map[string]*listing.Booking
}

var (
	_ auth.UserStore = (*Store)(nil)
	_ listing.Store  = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]*auth.User),
		mosques:  make(map[string]*listing.Mosque),
		events:   make(map[string]*listing.Event),
		bookings: make(map[string]*listing.Booking),
	}
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return auth.ErrConflict
		}
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) FindUserByEmailOrUsername(_ context.Context, email, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

// SetRole changes a user's role and tenant. Existing tokens keep the old values
// until they expire.
func (s *Store) SetRole(_ context.Context, userID string, role auth.Role, mosqueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Role = role
	u.AssignedMosque = mosqueID
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// --- mosques ---

func (s *Store) CreateMosque(_ context.Context, m *listing.Mosque) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mosques[m.ID]; ok {
		return listing.ErrConflict
	}
	if m.Admin != "" {
		if _, ok := s.users[m.Admin]; !ok {
			return listing.ErrNotFound
		}
	}
	cp := *m
	s.mosques[m.ID] = &cp
	return nil
}

func (s *Store) GetMosque(_ context.Context, id string) (*listing.Mosque, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mosques[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMosques(_ context.Context) ([]listing.Mosque, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]listing.Mosque, 0, len(s.mosques))
	for _, m := range s.mosques {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- events ---

func (s *Store) CreateEvent(_ context.Context, e *listing.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mosques[e.Mosque]; !ok {
		return listing.ErrNotFound
	}
	if _, ok := s.events[e.ID]; ok {
		return listing.ErrConflict
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*listing.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context, f listing.EventFilter) ([]listing.EventListing, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keyword := strings.ToLower(f.Keyword)
	var matched []listing.Event
	for _, e := range s.events {
		if keyword != "" && !strings.Contains(strings.ToLower(e.Title), keyword) {
			continue
		}
		if f.Upcoming && e.Date.Before(f.Now) {
			continue
		}
		if f.Mosque != "" && e.Mosque != f.Mosque {
			continue
		}
		matched = append(matched, *e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Date.Before(matched[j].Date)
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	page := make([]listing.EventListing, 0, end-start)
	for _, e := range matched[start:end] {
		item := listing.EventListing{Event: e}
		if u, ok := s.users[e.Organiser]; ok {
			item.OrganiserDetails = &listing.Person{ID: u.ID, Username: u.Username, Email: u.Email}
		}
		if m, ok := s.mosques[e.Mosque]; ok {
			item.MosqueDetails = &listing.MosqueSummary{ID: m.ID, Name: m.Name, Address: m.Address, Location: m.Location}
		}
		page = append(page, item)
	}
	return page, total, nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, upd listing.EventUpdate, now time.Time) (*listing.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	if upd.Capacity != nil && *upd.Capacity != 0 && *upd.Capacity < e.BookedCount {
		return nil, listing.ErrBelowBooked
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.Image != nil {
		e.Image = *upd.Image
	}
	if upd.EventType != nil {
		e.EventType = *upd.EventType
	}
	if upd.Capacity != nil {
		e.Capacity = *upd.Capacity
	}
	e.UpdatedAt = now
	cp := *e
	return &cp, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return listing.ErrNotFound
	}
	delete(s.events, id)
	for bid, b := range s.bookings {
		if b.Event == id {
			delete(s.bookings, bid)
		}
	}
	return nil
}

// --- bookings ---

func (s *Store) CreateBooking(_ context.Context, b *listing.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[b.Event]
	if !ok {
		return listing.ErrNotFound
	}
	for _, existing := range s.bookings {
		if existing.Event == b.Event && existing.User == b.User {
			return listing.ErrConflict
		}
	}
	if !e.HasSeat() {
		return listing.ErrEventFull
	}
	e.BookedCount++
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*listing.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) ListBookingsByUser(_ context.Context, userID string) ([]listing.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []listing.Booking
	for _, b := range s.bookings {
		if b.User == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.Before(out[j].BookedAt) })
	return out, nil
}

func (s *Store) DeleteBooking(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return listing.ErrNotFound
	}
	delete(s.bookings, id)
	if e, ok := s.events[b.Event]; ok && e.BookedCount > 0 {
		e.BookedCount--
	}
	return nil
}
