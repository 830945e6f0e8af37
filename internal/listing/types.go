package listing

import "time"

// EventType classifies an event.
type EventType string

const (
	EventMuhadera   EventType = "Muhadera"
	EventDers       EventType = "Ders"
	EventCommunity  EventType = "community_event"
	EventConference EventType = "conference"
	EventOther      EventType = "other"

	DefaultEventType = EventMuhadera
)

const (
	defaultEventsPerPage = 10
	maxEventsPerPage     = 50
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventMuhadera, EventDers, EventCommunity, EventConference, EventOther:
		return true
	}
	return false
}

// Point is a GeoJSON point; Coordinates is [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point.
func NewPoint(lon, lat float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// Mosque is a tenant.
type Mosque struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Location    Point     `json:"location"`
	Admin       string    `json:"admin,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Event is published by a mosque admin inside a mosque. Capacity 0 means unlimited.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image"`
	Organiser   string    `json:"organiser"`
	EventType   EventType `json:"eventType"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"bookedCount"`
	Mosque      string    `json:"mosque"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasSeat reports whether one more booking fits.
func (e *Event) HasSeat() bool {
	return e.Capacity == 0 || e.BookedCount < e.Capacity
}

// Person is the public projection of an organiser.
type Person struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MosqueSummary is the public projection of an event's mosque.
type MosqueSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Location Point  `json:"location"`
}

// EventListing is an event as returned by the public list, with its organiser and
// mosque resolved when they still exist.
type EventListing struct {
	Event
	OrganiserDetails *Person        `json:"organiserDetails,omitempty"`
	MosqueDetails    *MosqueSummary `json:"mosqueDetails,omitempty"`
}

// EventFilter selects and pages events. Page and Limit are normalised by Normalize.
type EventFilter struct {
	Keyword  string
	Upcoming bool
	Mosque   string
	Page     int
	Limit    int
	Now      time.Time
}

// Normalize applies paging defaults: page >= 1, 1 <= limit <= 50.
func (f EventFilter) Normalize() EventFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultEventsPerPage
	}
	if f.Limit > maxEventsPerPage {
		f.Limit = maxEventsPerPage
	}
	return f
}

// Offset is the number of rows skipped for the current page.
func (f EventFilter) Offset() int { return (f.Page - 1) * f.Limit }

// EventPage is one page of events.
type EventPage struct {
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalEvents int            `json:"totalEvents"`
	Events      []EventListing `json:"events"`
}

// EventUpdate holds the mutable event fields; nil means unchanged. Organiser and
// mosque are fixed at creation.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Image       *string
	EventType   *EventType
	Capacity    *int
}

// Empty reports whether the update changes nothing.
func (u EventUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Date == nil && u.Location == nil &&
		u.Image == nil && u.EventType == nil && u.Capacity == nil
}

// Booking reserves one seat at an event for a user.
type Booking struct {
	ID       string    `json:"id"`
	Event    string    `json:"event"`
	User     string    `json:"user"`
	BookedAt time.Time `json:"bookedAt"`
}
