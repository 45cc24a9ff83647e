package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertResponse stores a response unless the user already answered the
// prompt. created is false for the duplicate case.
func (q *Queries) InsertResponse(ctx context.Context, promptID, userID int64, text string, now time.Time) (resp *Response, created bool, err error) {
	var id int64
	err = q.q.QueryRowContext(ctx,
		`INSERT INTO responses (prompt_id, user_id, response_text, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (prompt_id, user_id) DO NOTHING
		 RETURNING id`,
		promptID, userID, text, now.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create response: %w", err)
	}

	resp, err = q.GetResponse(ctx, promptID, userID)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// GetResponse returns the response of a user to a prompt.
func (q *Queries) GetResponse(ctx context.Context, promptID, userID int64) (*Response, error) {
	r := &Response{}
	err := q.q.QueryRowContext(ctx,
		`SELECT id, prompt_id, user_id, response_text, created_at, edited_at
		 FROM responses WHERE prompt_id = $1 AND user_id = $2`,
		promptID, userID,
	).Scan(&r.ID, &r.PromptID, &r.UserID, &r.Text, &r.CreatedAt, &r.EditedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return r, nil
}

func (q *Queries) HasResponded(ctx context.Context, promptID, userID int64) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM responses WHERE prompt_id = $1 AND user_id = $2)`,
		promptID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check response: %w", err)
	}
	return exists, nil
}

// UpdateResponse replaces the text of an existing response and stamps edited_at.
func (q *Queries) UpdateResponse(ctx context.Context, promptID, userID int64, text string, now time.Time) (*Response, error) {
	result, err := q.q.ExecContext(ctx,
		`UPDATE responses SET response_text = $1, edited_at = $2
		 WHERE prompt_id = $3 AND user_id = $4`,
		text, now.UTC(), promptID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update response: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("failed to update response: %w", sql.ErrNoRows)
	}

	return q.GetResponse(ctx, promptID, userID)
}

func (q *Queries) CountResponses(ctx context.Context, promptID int64) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM responses WHERE prompt_id = $1`, promptID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// ListResponses returns every response to a prompt in submission order. The
// author name is the per-table display name, or the global one for authors
// who have since left the table.
func (q *Queries) ListResponses(ctx context.Context, promptID int64) ([]*ResponseWithAuthor, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT r.id, r.prompt_id, r.user_id, r.response_text, r.created_at, r.edited_at,
		        COALESCE(tm.display_name, u.display_name), u.username
		 FROM responses r
		 JOIN prompts p ON p.id = r.prompt_id
		 JOIN users u ON u.id = r.user_id
		 LEFT JOIN table_members tm ON tm.table_id = p.table_id AND tm.user_id = r.user_id
		 WHERE r.prompt_id = $1
		 ORDER BY r.created_at ASC, r.id ASC`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}
	defer rows.Close()

	var responses []*ResponseWithAuthor
	for rows.Next() {
		r := &ResponseWithAuthor{}
		err := rows.Scan(&r.ID, &r.PromptID, &r.UserID, &r.Text, &r.CreatedAt, &r.EditedAt,
			&r.DisplayName, &r.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate responses: %w", err)
	}

	return responses, nil
}
