package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jamaat.org/internal/audit"
	"jamaat.org/internal/auth"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/validation"
)

type createEventRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Mosque      string `json:"mosque" validate:"required"`
	Image       string `json:"image" validate:"required"`
	Location    string `json:"location"`
	EventType   string `json:"eventType"`
	Capacity    int    `json:"capacity"`
}

// updateEventRequest lists the fields a PUT may change. Organiser and mosque are
// not accepted.
type updateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
	Image       *string `json:"image"`
	EventType   *string `json:"eventType"`
	Capacity    *int    `json:"capacity"`
}

// CreateEvent checks, in order: required fields, the caller's tenant, the date.
func (a *API) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Required fields: title, description, date, mosque, image")
		return
	}
	if !a.authorizeResource(w, r, auth.ActionCreateEvent, auth.Resource{Tenant: req.Mosque}) {
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid date")
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	ev, err := a.listing.CreateEvent(r.Context(), listing.NewEvent{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Image:       req.Image,
		EventType:   listing.EventType(strings.TrimSpace(req.EventType)),
		Capacity:    req.Capacity,
		Mosque:      req.Mosque,
		Organiser:   id.ID,
	})
	switch {
	case errors.Is(err, listing.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, inputMessage(err, listing.ErrInvalidInput))
		return
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Mosque not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error creating event")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventCreated, map[string]any{"event_id": ev.ID, "mosque_id": ev.Mosque})
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := a.listing.ListEvents(r.Context(), listing.EventFilter{
		Keyword:  q.Get("keyword"),
		Upcoming: q.Get("upcoming") == "true",
		Mosque:   q.Get("mosque"),
		Page:     page,
		Limit:    limit,
		Now:      a.now().UTC(),
	})
	if err != nil {
		writeServerError(w, r, err, "Error fetching events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := a.listing.GetEvent(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error fetching event")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// loadEventFor fetches the event named in the path and runs the owner check for
// action. A missing event is reported before any permission decision.
func (a *API) loadEventFor(w http.ResponseWriter, r *http.Request, action auth.Action, failMsg string) (*listing.Event, bool) {
	ev, err := a.listing.GetEvent(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Event not found")
		return nil, false
	case err != nil:
		writeServerError(w, r, err, failMsg)
		return nil, false
	}
	if !a.authorizeResource(w, r, action, auth.Resource{Owner: ev.Organiser, Tenant: ev.Mosque}) {
		return nil, false
	}
	return ev, true
}

func (a *API) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := a.loadEventFor(w, r, auth.ActionUpdateEvent, "Error updating event")
	if !ok {
		return
	}

	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	upd := listing.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Image:       req.Image,
		Capacity:    req.Capacity,
	}
	if req.Date != nil {
		d, ok := parseDate(*req.Date)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid date")
			return
		}
		upd.Date = &d
	}
	if req.EventType != nil {
		t := listing.EventType(strings.TrimSpace(*req.EventType))
		upd.EventType = &t
	}

	updated, err := a.listing.UpdateEvent(r.Context(), ev.ID, upd)
	switch {
	case errors.Is(err, listing.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, inputMessage(err, listing.ErrInvalidInput))
		return
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error updating event")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventUpdated, map[string]any{"event_id": updated.ID})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := a.loadEventFor(w, r, auth.ActionDeleteEvent, "Server error")
	if !ok {
		return
	}
	err := a.listing.DeleteEvent(r.Context(), ev.ID)
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Server error")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventDeleted, map[string]any{"event_id": ev.ID})
	writeMessage(w, http.StatusOK, "Event removed successfully")
}
