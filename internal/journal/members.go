package journal

import (
	"context"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/utils"
	"github.com/sirupsen/logrus"
)

// ValidateDisplayName trims name and checks it is 1..MaxNameLength characters.
func ValidateDisplayName(name string) (string, error) {
	name = utils.NormalizeText(name)
	if n := utils.CharCount(name); n < 1 || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// UpdateDisplayName sets the name the user goes by at one table. Other tables
// and the global profile keep theirs.
func (s *Service) UpdateDisplayName(ctx context.Context, tableID, userID int64, name string) (string, error) {
	name, err := ValidateDisplayName(name)
	if err != nil {
		return "", err
	}

	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		_, err := q.GetMember(ctx, tableID, userID)
		if isNoRows(err) {
			return ErrNotMember
		}
		if err != nil {
			return err
		}
		return q.UpdateMemberDisplayName(ctx, tableID, userID, name)
	})
	if err != nil {
		return "", s.fail("update_display_name", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return name, nil
}
