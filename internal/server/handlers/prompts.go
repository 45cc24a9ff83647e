package handlers

import (
	"net/http"
)

// HandleTodayPrompt returns the active prompt of the current table.
func HandleTodayPrompt(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		view, err := s.GetJournal().CurrentPrompt(r.Context(), tableID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

// HandleYesterdayPrompt returns the previous cycle's prompt with every response.
func HandleYesterdayPrompt(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		view, err := s.GetJournal().PreviousPrompt(r.Context(), tableID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}
