package handlers

import (
	"net/http"

	"github.com/AlexTLDR/kitchentable/internal/journal"
)

type createTableRequest struct {
	Name       string `json:"name"`
	PromptTime string `json:"prompt_time"`
}

// HandleCreateTable creates a table owned by the caller and makes it current.
func HandleCreateTable(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTableRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		name, err := journal.ValidateTableName(req.Name)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		release := journal.DefaultReleaseTime
		if req.PromptTime != "" {
			release, err = journal.ParseReleaseTime(req.PromptTime)
			if err != nil {
				RespondError(s.GetLogger(), w, r, err)
				return
			}
		}

		table, err := s.GetJournal().CreateTable(r.Context(), name, s.CurrentUserID(r), release)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		if err := s.SetCurrentTable(w, r, table.ID); err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusCreated, map[string]any{
			"message":     "Table created successfully",
			"table":       table,
			"invite_code": table.InviteCode,
		})
	}
}

type joinTableRequest struct {
	InviteCode string `json:"invite_code"`
}

// HandleJoinTable seats the caller at the table behind an invite code.
func HandleJoinTable(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinTableRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.InviteCode == "" {
			WriteError(w, http.StatusBadRequest, "Invite code required")
			return
		}

		table, err := s.GetJournal().JoinByInviteCode(r.Context(), req.InviteCode, s.CurrentUserID(r))
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		if err := s.SetCurrentTable(w, r, table.ID); err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Joined table successfully",
			"table":   table,
		})
	}
}

// HandleTableInfo returns the current table with its members.
func HandleTableInfo(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		info, err := s.GetJournal().TableInfo(r.Context(), tableID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

// HandleListTables lists every table the caller sits at.
func HandleListTables(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := s.CurrentUserID(r)
		tables, err := s.GetJournal().ListTables(r.Context(), userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		var current int64
		if len(tables) > 0 {
			current, err = s.CurrentTableID(w, r)
			if err != nil {
				RespondError(s.GetLogger(), w, r, err)
				return
			}
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"tables":           tables,
			"current_table_id": current,
		})
	}
}

type switchTableRequest struct {
	TableID int64 `json:"table_id"`
}

// HandleSwitchTable moves the caller's current-table pointer.
func HandleSwitchTable(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req switchTableRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		resolved, err := s.GetJournal().ResolveCurrentTable(r.Context(), s.CurrentUserID(r), req.TableID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		if resolved != req.TableID {
			RespondError(s.GetLogger(), w, r, journal.ErrNotTableMember)
			return
		}
		if err := s.SetCurrentTable(w, r, resolved); err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{"current_table_id": resolved})
	}
}

type settingsRequest struct {
	Name       *string `json:"name"`
	PromptTime *string `json:"prompt_time"`
}

// HandleUpdateSettings changes the current table's name or release time.
func HandleUpdateSettings(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		var req settingsRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		settings := journal.TableSettings{Name: req.Name}
		if req.PromptTime != nil {
			rt, err := journal.ParseReleaseTime(*req.PromptTime)
			if err != nil {
				RespondError(s.GetLogger(), w, r, err)
				return
			}
			settings.ReleaseTime = &rt
		}

		table, err := s.GetJournal().UpdateTableSettings(r.Context(), tableID, userID, settings)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Settings updated successfully",
			"table":   table,
		})
	}
}

type displayNameRequest struct {
	DisplayName string `json:"display_name"`
}

// HandleUpdateDisplayName sets the caller's name at the current table.
func HandleUpdateDisplayName(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		var req displayNameRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		name, err := s.GetJournal().UpdateDisplayName(r.Context(), tableID, userID, req.DisplayName)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"display_name": name})
	}
}

// HandleLeaveTable removes the caller from the current table.
func HandleLeaveTable(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, tableID, ok := currentTable(s, w, r)
		if !ok {
			return
		}

		deleted, err := s.GetJournal().LeaveTable(r.Context(), tableID, userID)
		if err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}
		if err := s.SetCurrentTable(w, r, 0); err != nil {
			RespondError(s.GetLogger(), w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"message":       "Left table successfully",
			"table_deleted": deleted,
		})
	}
}
