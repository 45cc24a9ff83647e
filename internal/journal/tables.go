package journal

import (
	"context"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/utils"
	"github.com/sirupsen/logrus"
)

// ValidateTableName trims name and checks it is MinTableName..MaxNameLength characters.
func ValidateTableName(name string) (string, error) {
	name = utils.NormalizeText(name)
	if n := utils.CharCount(name); n < MinTableName || n > MaxNameLength {
		return "", ErrInvalidTableName
	}
	return name, nil
}

// CreateTable creates a table with a fresh invite code and seats the creator
// as its owner. The first prompt is created right away.
func (s *Service) CreateTable(ctx context.Context, name string, ownerID int64, release ReleaseTime) (*Table, error) {
	name, err := ValidateTableName(name)
	if err != nil {
		return nil, err
	}

	var table *database.Table
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		owner, err := q.GetUserByID(ctx, ownerID)
		if isNoRows(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		code, err := s.uniqueInviteCode(ctx, q)
		if err != nil {
			return err
		}

		now := s.Now()
		table, err = q.CreateTable(ctx, name, code, ownerID, release.String(), now)
		if err != nil {
			return err
		}
		if err := q.AddMember(ctx, table.ID, ownerID, database.RoleOwner, owner.DisplayName, now); err != nil {
			return err
		}

		_, _, err = s.ensurePrompt(ctx, q, table.ID, ActiveDate(release, now))
		return err
	})
	if err != nil {
		return nil, s.fail("create_table", err, logrus.Fields{"owner_id": ownerID})
	}

	s.log.WithFields(logrus.Fields{
		"table_id": table.ID,
		"owner_id": ownerID,
	}).Info("created table")
	return tableFromRow(table), nil
}

// AddMember seats a user at a table as a regular member.
func (s *Service) AddMember(ctx context.Context, tableID, userID int64) (*Table, error) {
	var table *database.Table
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		table, err = getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		return s.addMember(ctx, q, table, userID)
	})
	if err != nil {
		return nil, s.fail("add_member", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return tableFromRow(table), nil
}

// JoinByInviteCode resolves an invite code and adds the user to its table.
func (s *Service) JoinByInviteCode(ctx context.Context, code string, userID int64) (*Table, error) {
	code = utils.NormalizeInviteCode(code)

	var table *database.Table
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		table, err = q.GetTableByInviteCode(ctx, code)
		if isNoRows(err) {
			return ErrInvalidInvite
		}
		if err != nil {
			return err
		}
		return s.addMember(ctx, q, table, userID)
	})
	if err != nil {
		return nil, s.fail("join_table", err, logrus.Fields{"user_id": userID})
	}
	return tableFromRow(table), nil
}

func (s *Service) addMember(ctx context.Context, q *database.Queries, table *database.Table, userID int64) error {
	user, err := q.GetUserByID(ctx, userID)
	if isNoRows(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	_, err = q.GetMember(ctx, table.ID, userID)
	if err == nil {
		return ErrAlreadyMember
	}
	if !isNoRows(err) {
		return err
	}

	count, err := q.CountMembers(ctx, table.ID)
	if err != nil {
		return err
	}
	if count >= MaxTableMembers {
		return ErrTableFull
	}

	err = q.AddMember(ctx, table.ID, userID, database.RoleMember, user.DisplayName, s.Now())
	if database.IsUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return err
}

// LeaveTable removes the user from a table. An owner can only leave once
// everybody else has. When the last member leaves the table is deleted along
// with its prompts and responses; deleted reports that case.
func (s *Service) LeaveTable(ctx context.Context, tableID, userID int64) (deleted bool, err error) {
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		member, err := q.GetMember(ctx, tableID, userID)
		if isNoRows(err) {
			return ErrNotMember
		}
		if err != nil {
			return err
		}

		count, err := q.CountMembers(ctx, tableID)
		if err != nil {
			return err
		}
		if member.Role == database.RoleOwner && count > 1 {
			return ErrOwnerCannotLeave
		}

		if err := q.RemoveMember(ctx, tableID, userID); err != nil {
			return err
		}
		if count == 1 {
			deleted = true
			return q.DeleteTable(ctx, tableID)
		}
		return nil
	})
	if err != nil {
		return false, s.fail("leave_table", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}

	if deleted {
		s.log.WithField("table_id", tableID).Info("deleted empty table")
	}
	return deleted, nil
}

// UpdateTableSettings applies the non-nil fields of settings. Only the owner
// may change them.
func (s *Service) UpdateTableSettings(ctx context.Context, tableID, actorID int64, settings TableSettings) (*Table, error) {
	if settings.Name != nil {
		name, err := ValidateTableName(*settings.Name)
		if err != nil {
			return nil, err
		}
		settings.Name = &name
	}

	var table *database.Table
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		if _, err := getTable(ctx, q, tableID); err != nil {
			return err
		}
		member, err := requireMember(ctx, q, tableID, actorID)
		if err != nil {
			return err
		}
		if member.Role != database.RoleOwner {
			return ErrNotOwner
		}

		if settings.Name != nil {
			if err := q.UpdateTableName(ctx, tableID, *settings.Name); err != nil {
				return err
			}
		}
		if settings.ReleaseTime != nil {
			if err := q.UpdateTablePromptTime(ctx, tableID, settings.ReleaseTime.String()); err != nil {
				return err
			}
		}

		table, err = q.GetTable(ctx, tableID)
		return err
	})
	if err != nil {
		return nil, s.fail("update_table_settings", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  actorID,
		})
	}
	return tableFromRow(table), nil
}

// ListTables returns the tables the user sits at, oldest membership first.
func (s *Service) ListTables(ctx context.Context, userID int64) ([]TableSummary, error) {
	var out []TableSummary
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		rows, err := q.ListMemberships(ctx, userID)
		if err != nil {
			return err
		}
		out = make([]TableSummary, 0, len(rows))
		for _, m := range rows {
			out = append(out, TableSummary{
				Table:       *tableFromRow(&m.Table),
				Role:        m.Role,
				DisplayName: m.DisplayName,
				MemberCount: m.MemberCount,
			})
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("list_tables", err, logrus.Fields{"user_id": userID})
	}
	return out, nil
}

// TableInfo returns a table and its members to one of those members.
func (s *Service) TableInfo(ctx context.Context, tableID, userID int64) (*TableDetails, error) {
	var details *TableDetails
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		table, err := getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		me, err := requireMember(ctx, q, tableID, userID)
		if err != nil {
			return err
		}

		members, err := q.ListMembers(ctx, tableID)
		if err != nil {
			return err
		}

		details = &TableDetails{
			Table:       tableFromRow(table),
			Members:     make([]MemberView, 0, len(members)),
			MemberCount: len(members),
			IsOwner:     me.Role == database.RoleOwner,
			DisplayName: me.DisplayName,
			Ready:       len(members) >= MinTableMembers,
		}
		for _, m := range members {
			details.Members = append(details.Members, MemberView{
				UserID:      m.UserID,
				Username:    m.Username,
				DisplayName: m.DisplayName,
				Role:        m.Role,
				JoinedAt:    m.JoinedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("table_info", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return details, nil
}

// ResolveCurrentTable returns current if the user still sits at it, otherwise
// the table they joined first. ErrNoTable means they sit at none.
func (s *Service) ResolveCurrentTable(ctx context.Context, userID, current int64) (int64, error) {
	var resolved int64
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		memberships, err := q.ListMemberships(ctx, userID)
		if err != nil {
			return err
		}
		if len(memberships) == 0 {
			return ErrNoTable
		}

		resolved = memberships[0].ID
		for _, m := range memberships {
			if m.ID == current {
				resolved = current
				break
			}
		}
		return nil
	})
	if err != nil {
		return 0, s.fail("resolve_current_table", err, logrus.Fields{"user_id": userID})
	}
	return resolved, nil
}
