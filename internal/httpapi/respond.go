package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/obs"
)

const timeLayout = time.RFC3339

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, messageResponse{Message: msg})
}

// writeDenial turns an authorization error into 401 or 403. Anything else is a 500.
func writeDenial(w http.ResponseWriter, r *http.Request, err error) {
	d, ok := auth.AsDenial(err)
	if !ok {
		obs.Ctx(r.Context()).Error().Err(err).Msg("authorization failed unexpectedly")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if d.Kind == auth.DenyUnauthenticated {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeMessage(w, http.StatusUnauthorized, d.Message)
		return
	}
	writeMessage(w, http.StatusForbidden, d.Message)
}

// writeServerError logs err and writes a fixed message.
func writeServerError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	obs.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	writeMessage(w, http.StatusInternalServerError, msg)
}

// decodeJSON reads one JSON object from the body. An empty body decodes to the zero value.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// writeDecodeError answers a body that could not be parsed.
func writeDecodeError(w http.ResponseWriter, err error) {
	if isBodyTooLarge(err) {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeMessage(w, http.StatusBadRequest, "Invalid request body")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts RFC 3339 timestamps and the shorter forms browsers send.
// Values without a zone are read as UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// inputMessage strips the sentinel prefix from a wrapped invalid-input error.
func inputMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
