package database

import (
	"context"
	"fmt"
	"time"
)

const tableColumns = `id, name, invite_code, created_by, prompt_time, created_at`

func scanTable(row rowScanner) (*Table, error) {
	t := &Table{}
	if err := row.Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &t.PromptTime, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// InviteCodeExists reports whether an invite code is already issued.
func (q *Queries) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tables WHERE invite_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code uniqueness: %w", err)
	}
	return exists, nil
}

func (q *Queries) CreateTable(ctx context.Context, name, inviteCode string, createdBy int64, promptTime string, now time.Time) (*Table, error) {
	var id int64
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO tables (name, invite_code, created_by, prompt_time, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		name, inviteCode, createdBy, promptTime, now.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return q.GetTable(ctx, id)
}

func (q *Queries) GetTable(ctx context.Context, id int64) (*Table, error) {
	t, err := scanTable(q.q.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return t, nil
}

func (q *Queries) GetTableByInviteCode(ctx context.Context, code string) (*Table, error) {
	t, err := scanTable(q.q.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE invite_code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get table by invite code: %w", err)
	}
	return t, nil
}

// ListTables returns every table ordered by id.
func (q *Queries) ListTables(ctx context.Context) ([]*Table, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	return tables, nil
}

func (q *Queries) UpdateTableName(ctx context.Context, id int64, name string) error {
	_, err := q.q.ExecContext(ctx, `UPDATE tables SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update table name: %w", err)
	}
	return nil
}

func (q *Queries) UpdateTablePromptTime(ctx context.Context, id int64, promptTime string) error {
	_, err := q.q.ExecContext(ctx, `UPDATE tables SET prompt_time = $1 WHERE id = $2`, promptTime, id)
	if err != nil {
		return fmt.Errorf("failed to update table prompt time: %w", err)
	}
	return nil
}

// DeleteTable deletes a table together with its members, prompts and responses.
func (q *Queries) DeleteTable(ctx context.Context, id int64) error {
	// Explicit deletes keep this independent of foreign key enforcement.
	stmts := []struct {
		query string
		what  string
	}{
		{`DELETE FROM responses WHERE prompt_id IN (SELECT id FROM prompts WHERE table_id = $1)`, "responses"},
		{`DELETE FROM prompts WHERE table_id = $1`, "prompts"},
		{`DELETE FROM table_members WHERE table_id = $1`, "members"},
		{`DELETE FROM tables WHERE id = $1`, "table"},
	}

	for _, stmt := range stmts {
		if _, err := q.q.ExecContext(ctx, stmt.query, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", stmt.what, err)
		}
	}

	return nil
}
