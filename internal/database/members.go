package database

import (
	"context"
	"fmt"
	"time"
)

func (q *Queries) AddMember(ctx context.Context, tableID, userID int64, role, displayName string, now time.Time) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO table_members (table_id, user_id, role, display_name, joined_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		tableID, userID, role, displayName, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (q *Queries) GetMember(ctx context.Context, tableID, userID int64) (*Member, error) {
	m := &Member{}
	err := q.q.QueryRowContext(ctx,
		`SELECT tm.table_id, tm.user_id, tm.role, tm.display_name, u.username, tm.joined_at
		 FROM table_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.table_id = $1 AND tm.user_id = $2`,
		tableID, userID,
	).Scan(&m.TableID, &m.UserID, &m.Role, &m.DisplayName, &m.Username, &m.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (q *Queries) CountMembers(ctx context.Context, tableID int64) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM table_members WHERE table_id = $1`, tableID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// ListMembers returns the members of a table in join order.
func (q *Queries) ListMembers(ctx context.Context, tableID int64) ([]*Member, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT tm.table_id, tm.user_id, tm.role, tm.display_name, u.username, tm.joined_at
		 FROM table_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.table_id = $1
		 ORDER BY tm.joined_at ASC, tm.user_id ASC`,
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.TableID, &m.UserID, &m.Role, &m.DisplayName, &m.Username, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ListMemberships returns every table the user belongs to, oldest membership first.
func (q *Queries) ListMemberships(ctx context.Context, userID int64) ([]*Membership, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT t.id, t.name, t.invite_code, t.created_by, t.prompt_time, t.created_at,
		        tm.role, tm.display_name, tm.joined_at,
		        (SELECT COUNT(*) FROM table_members c WHERE c.table_id = t.id)
		 FROM table_members tm
		 JOIN tables t ON t.id = tm.table_id
		 WHERE tm.user_id = $1
		 ORDER BY tm.joined_at ASC, t.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m := &Membership{}
		err := rows.Scan(&m.ID, &m.Name, &m.InviteCode, &m.CreatedBy, &m.PromptTime, &m.CreatedAt,
			&m.Role, &m.DisplayName, &m.JoinedAt, &m.MemberCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return memberships, nil
}

func (q *Queries) RemoveMember(ctx context.Context, tableID, userID int64) error {
	_, err := q.q.ExecContext(ctx,
		`DELETE FROM table_members WHERE table_id = $1 AND user_id = $2`,
		tableID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (q *Queries) UpdateMemberDisplayName(ctx context.Context, tableID, userID int64, displayName string) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE table_members SET display_name = $1 WHERE table_id = $2 AND user_id = $3`,
		displayName, tableID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

// BackfillMemberDisplayNames copies the global display name onto memberships
// that have none yet. It returns the number of rows updated.
func (q *Queries) BackfillMemberDisplayNames(ctx context.Context) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		`UPDATE table_members
		 SET display_name = (SELECT u.display_name FROM users u WHERE u.id = table_members.user_id)
		 WHERE display_name IS NULL OR display_name = ''`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill display names: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
