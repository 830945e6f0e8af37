package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jamaat.org/internal/audit"
	"jamaat.org/internal/auth"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/validation"
)

type createBookingRequest struct {
	EventID string `json:"eventId" validate:"required"`
}

func (a *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	b, err := a.listing.Book(r.Context(), req.EventID, id.ID)
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	case errors.Is(err, listing.ErrEventFull):
		writeMessage(w, http.StatusConflict, "Event is fully booked")
		return
	case errors.Is(err, listing.ErrConflict):
		writeMessage(w, http.StatusConflict, "Already booked")
		return
	case err != nil:
		writeServerError(w, r, err, "Error creating booking")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.BookingCreated, map[string]any{"booking_id": b.ID, "event_id": b.Event})
	writeJSON(w, http.StatusCreated, b)
}

func (a *API) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	bookings, err := a.listing.ListBookings(r.Context(), id.ID)
	if err != nil {
		writeServerError(w, r, err, "Error fetching bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CancelBooking reports a missing booking before checking who owns it.
func (a *API) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := a.listing.GetBooking(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Booking not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error cancelling booking")
		return
	}
	if !a.authorizeResource(w, r, auth.ActionCancelBooking, auth.Resource{Owner: b.User}) {
		return
	}
	err = a.listing.CancelBooking(r.Context(), b.ID)
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Booking not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error cancelling booking")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.BookingCancelled, map[string]any{"booking_id": b.ID, "event_id": b.Event})
	writeMessage(w, http.StatusOK, "Booking cancelled")
}
