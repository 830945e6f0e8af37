package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jamaat.org/internal/audit"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/validation"
)

type createMosqueRequest struct {
	Name        string    `json:"name" validate:"required"`
	Address     string    `json:"address" validate:"required"`
	Coordinates []float64 `json:"coordinates" validate:"required,len=2"`
	Admin       string    `json:"admin"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
}

func (a *API) CreateMosque(w http.ResponseWriter, r *http.Request) {
	var req createMosqueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Required fields: name, address, coordinates [longitude, latitude]")
		return
	}

	m, err := a.listing.CreateMosque(r.Context(), listing.NewMosque{
		Name:        req.Name,
		Address:     req.Address,
		Coordinates: req.Coordinates,
		Admin:       req.Admin,
		Description: req.Description,
		Image:       req.Image,
	})
	switch {
	case errors.Is(err, listing.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, inputMessage(err, listing.ErrInvalidInput))
		return
	case err != nil:
		writeServerError(w, r, err, "Error creating mosque")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.MosqueCreated, map[string]any{"mosque_id": m.ID})
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) ListMosques(w http.ResponseWriter, r *http.Request) {
	mosques, err := a.listing.ListMosques(r.Context())
	if err != nil {
		writeServerError(w, r, err, "Error fetching mosques")
		return
	}
	if mosques == nil {
		mosques = []listing.Mosque{}
	}
	writeJSON(w, http.StatusOK, mosques)
}

func (a *API) GetMosque(w http.ResponseWriter, r *http.Request) {
	m, err := a.listing.GetMosque(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, listing.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Mosque not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Error fetching mosque")
		return
	}
	writeJSON(w, http.StatusOK, m)
}
