package handlers

import (
	"net/http"
)

type submitRequest struct {
	Response string `json:"response"`
}

// HandleSubmitResponse answers the active prompt of the current table.
func HandleSubmitResponse(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		var req submitRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		resp, err := s.GetJournal().SubmitToActivePrompt(r.Context(), tableID, userID, req.Response)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		visible, err := s.GetJournal().VisibleResponses(r.Context(), resp.PromptID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusCreated, map[string]any{
			"message":   "Response submitted",
			"response":  resp,
			"responses": visible,
		})
	}
}

type editRequest struct {
	PromptID int64  `json:"prompt_id"`
	Response string `json:"response"`
}

// HandleEditResponse rewrites the caller's response while its prompt is active.
func HandleEditResponse(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := s.CurrentUserID(r)

		var req editRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.PromptID <= 0 {
			WriteError(w, http.StatusBadRequest, "prompt_id required")
			return
		}

		resp, err := s.GetJournal().EditResponse(r.Context(), req.PromptID, userID, req.Response)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"message":  "Response updated",
			"response": resp,
		})
	}
}

// HandlePollResponses re-reads the visible responses of the active prompt.
func HandlePollResponses(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		view, err := s.GetJournal().Poll(r.Context(), tableID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}
