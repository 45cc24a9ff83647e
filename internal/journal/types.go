package journal

import (
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
)

type Table struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	PromptTime string    `json:"prompt_time"`
	CreatedBy  int64     `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func tableFromRow(t *database.Table) *Table {
	return &Table{
		ID:         t.ID,
		Name:       t.Name,
		InviteCode: t.InviteCode,
		PromptTime: t.PromptTime,
		CreatedBy:  t.CreatedBy.Int64,
		CreatedAt:  t.CreatedAt,
	}
}

// TableSummary is one entry of a user's table list.
type TableSummary struct {
	Table
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	MemberCount int    `json:"member_count"`
}

type MemberView struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

type TableDetails struct {
	Table       *Table       `json:"table"`
	Members     []MemberView `json:"members"`
	MemberCount int          `json:"member_count"`
	IsOwner     bool         `json:"is_owner"`
	DisplayName string       `json:"display_name"`
	// Ready is false until enough people joined to start sharing.
	Ready       bool         `json:"ready"`
}

// TableSettings is a partial update; nil fields are left unchanged.
type TableSettings struct {
	Name        *string
	ReleaseTime *ReleaseTime
}

type Prompt struct {
	ID       int64  `json:"id"`
	TableID  int64  `json:"table_id"`
	Text     string `json:"text"`
	Date     string `json:"date"`
	IsCustom bool   `json:"is_custom"`
}

func promptFromRow(p *database.Prompt) *Prompt {
	return &Prompt{
		ID:       p.ID,
		TableID:  p.TableID,
		Text:     p.Text,
		Date:     p.Date,
		IsCustom: p.IsCustom,
	}
}

type ResponseView struct {
	ID          int64      `json:"id"`
	PromptID    int64      `json:"prompt_id"`
	UserID      int64      `json:"user_id"`
	Text        string     `json:"text"`
	DisplayName string     `json:"display_name,omitempty"`
	Username    string     `json:"username,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
}

func responseFromRow(r *database.Response) *ResponseView {
	v := &ResponseView{
		ID:        r.ID,
		PromptID:  r.PromptID,
		UserID:    r.UserID,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
	if r.EditedAt.Valid {
		edited := r.EditedAt.Time
		v.EditedAt = &edited
	}
	return v
}

func responsesFromRows(rows []*database.ResponseWithAuthor) []ResponseView {
	out := make([]ResponseView, 0, len(rows))
	for _, r := range rows {
		v := responseFromRow(&r.Response)
		v.DisplayName = r.DisplayName
		v.Username = r.Username
		out = append(out, *v)
	}
	return out
}

// PromptView is everything a member sees for one prompt.
type PromptView struct {
	Prompt                  *Prompt        `json:"prompt"`
	ActiveDate              string         `json:"active_date"`
	UserHasResponded        bool           `json:"user_has_responded"`
	UserResponse            *ResponseView  `json:"user_response,omitempty"`
	Responses               []ResponseView `json:"responses"`
	ResponseCount           int            `json:"response_count"`
	IsEditable              bool           `json:"is_editable"`
	SecondsUntilNextRelease uint64         `json:"seconds_until_next_release"`
}

// PollView is the read-only refresh of the active prompt's responses.
type PollView struct {
	PromptID         int64          `json:"prompt_id,omitempty"`
	UserHasResponded bool           `json:"user_has_responded"`
	Responses        []ResponseView `json:"responses"`
	ResponseCount    int            `json:"response_count"`
}

// BulkResult reports one run of EnsureActivePrompts.
type BulkResult struct {
	Tables  int `json:"tables"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}
