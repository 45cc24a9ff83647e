package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexTLDR/kitchentable/internal/journal"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 16 << 10

const internalErrorMessage = "Something went wrong, please try again"

// Server interface defines the methods needed by handlers
type Server interface {
	GetJournal() *journal.Service
	GetLogger() logrus.FieldLogger
	// CurrentUserID is only valid behind the auth middleware.
	CurrentUserID(r *http.Request) int64
	// CurrentTableID resolves the caller's current table and repairs a stale
	// session pointer.
	CurrentTableID(w http.ResponseWriter, r *http.Request) (int64, error)
	SetCurrentTable(w http.ResponseWriter, r *http.Request, tableID int64) error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// DecodeJSON reads the request body into dst. It writes the error response
// itself and reports whether the handler should continue.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// RespondError answers with the status of a journal error. Anything else is
// logged and hidden behind a generic message.
func RespondError(log logrus.FieldLogger, w http.ResponseWriter, r *http.Request, err error) {
	var e *journal.Error
	if errors.As(err, &e) {
		WriteError(w, e.Code.HTTPStatus(), e.Message)
		return
	}

	log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
	WriteError(w, http.StatusInternalServerError, internalErrorMessage)
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentTable resolves the caller and their table, answering the request on
// failure.
func currentTable(s Server, w http.ResponseWriter, r *http.Request) (userID, tableID int64, ok bool) {
	tableID, err := s.CurrentTableID(w, r)
	if err != nil {
		RespondError(s.GetLogger(), w, r, err)
		return 0, 0, false
	}
	return s.CurrentUserID(r), tableID, true
}
