package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const promptColumns = `id, table_id, prompt_text, prompt_date, is_custom, created_at`

func scanPrompt(row rowScanner) (*Prompt, error) {
	p := &Prompt{}
	if err := row.Scan(&p.ID, &p.TableID, &p.Text, &p.Date, &p.IsCustom, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (q *Queries) GetPrompt(ctx context.Context, id int64) (*Prompt, error) {
	p, err := scanPrompt(q.q.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return p, nil
}

// GetPromptByDate returns the prompt of a table for a YYYY-MM-DD date.
func (q *Queries) GetPromptByDate(ctx context.Context, tableID int64, date string) (*Prompt, error) {
	p, err := scanPrompt(q.q.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE table_id = $1 AND prompt_date = $2`,
		tableID, date))
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return p, nil
}

// InsertPromptIfAbsent creates the prompt for (table, date) unless one exists.
// created is false when another writer got there first; the caller re-fetches.
func (q *Queries) InsertPromptIfAbsent(ctx context.Context, tableID int64, text, date string, isCustom bool, now time.Time) (id int64, created bool, err error) {
	err = q.q.QueryRowContext(ctx,
		`INSERT INTO prompts (table_id, prompt_text, prompt_date, is_custom, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (table_id, prompt_date) DO NOTHING
		 RETURNING id`,
		tableID, text, date, isCustom, now.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create prompt: %w", err)
	}
	return id, true, nil
}

// LastDefaultPromptID returns the pool id of the most recent non-custom prompt
// of a table, or 0 when the table has not used the pool yet.
func (q *Queries) LastDefaultPromptID(ctx context.Context, tableID int64) (int64, error) {
	var id int64
	err := q.q.QueryRowContext(ctx,
		`SELECT dp.id
		 FROM prompts p
		 JOIN default_prompts dp ON dp.prompt_text = p.prompt_text
		 WHERE p.table_id = $1 AND p.is_custom = FALSE
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT 1`,
		tableID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last default prompt: %w", err)
	}
	return id, nil
}

// DefaultPromptAfter returns the first pool entry with an id greater than
// afterID. ok is false when there is none.
func (q *Queries) DefaultPromptAfter(ctx context.Context, afterID int64) (text string, ok bool, err error) {
	err = q.q.QueryRowContext(ctx,
		`SELECT prompt_text FROM default_prompts WHERE id > $1 ORDER BY id ASC LIMIT 1`,
		afterID,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get default prompt: %w", err)
	}
	return text, true, nil
}
