package journal

import (
	"context"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// EnsurePrompt returns the prompt of a table for date, creating it from the
// default pool on first access. Concurrent callers all get the same row.
func (s *Service) EnsurePrompt(ctx context.Context, tableID int64, date time.Time) (*Prompt, error) {
	var prompt *database.Prompt
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		if _, err := getTable(ctx, q, tableID); err != nil {
			return err
		}
		var err error
		prompt, _, err = s.ensurePrompt(ctx, q, tableID, date)
		return err
	})
	if err != nil {
		return nil, s.fail("ensure_prompt", err, logrus.Fields{
			"table_id": tableID,
			"date":     date.Format(DateLayout),
		})
	}
	return promptFromRow(prompt), nil
}

// PromptForDate looks up the prompt of a table for date without creating it.
func (s *Service) PromptForDate(ctx context.Context, tableID int64, date time.Time) (*Prompt, error) {
	prompt, err := s.db.GetPromptByDate(ctx, tableID, date.Format(DateLayout))
	if isNoRows(err) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, s.fail("prompt_for_date", err, logrus.Fields{
			"table_id": tableID,
			"date":     date.Format(DateLayout),
		})
	}
	return promptFromRow(prompt), nil
}

// promptQueries is the part of the store ensurePrompt works against.
type promptQueries interface {
	GetPrompt(ctx context.Context, id int64) (*database.Prompt, error)
	GetPromptByDate(ctx context.Context, tableID int64, date string) (*database.Prompt, error)
	InsertPromptIfAbsent(ctx context.Context, tableID int64, text, date string, isCustom bool, now time.Time) (int64, bool, error)
	LastDefaultPromptID(ctx context.Context, tableID int64) (int64, error)
	DefaultPromptAfter(ctx context.Context, afterID int64) (string, bool, error)
}

func (s *Service) ensurePrompt(ctx context.Context, q promptQueries, tableID int64, date time.Time) (*database.Prompt, bool, error) {
	key := date.Format(DateLayout)

	prompt, err := q.GetPromptByDate(ctx, tableID, key)
	if err == nil {
		return prompt, false, nil
	}
	if !isNoRows(err) {
		return nil, false, err
	}

	text, err := nextDefaultPrompt(ctx, q, tableID)
	if err != nil {
		return nil, false, err
	}

	id, created, err := q.InsertPromptIfAbsent(ctx, tableID, text, key, false, s.Now())
	if err != nil {
		return nil, false, err
	}
	if !created {
		// lost the race; the winner's row is the prompt
		prompt, err = q.GetPromptByDate(ctx, tableID, key)
		return prompt, false, err
	}

	prompt, err = q.GetPrompt(ctx, id)
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"table_id":  tableID,
		"date":      key,
		"prompt_id": id,
	}).Info("created prompt")
	return prompt, true, nil
}

// NextDefaultPrompt returns the pool entry after the one the table used last,
// wrapping to the start of the pool.
func (s *Service) NextDefaultPrompt(ctx context.Context, tableID int64) (string, error) {
	var text string
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		text, err = nextDefaultPrompt(ctx, q, tableID)
		return err
	})
	if err != nil {
		return "", s.fail("next_default_prompt", err, logrus.Fields{"table_id": tableID})
	}
	return text, nil
}

func nextDefaultPrompt(ctx context.Context, q promptQueries, tableID int64) (string, error) {
	lastID, err := q.LastDefaultPromptID(ctx, tableID)
	if err != nil {
		return "", err
	}

	text, ok, err := q.DefaultPromptAfter(ctx, lastID)
	if err != nil || ok {
		return text, err
	}

	text, ok, err = q.DefaultPromptAfter(ctx, 0)
	if err != nil || ok {
		return text, err
	}

	return FallbackPrompt, nil
}

// EnsureActivePrompts makes sure every table has a prompt for its current
// active date. Each table is handled in its own transaction; a failing table
// does not stop the others.
func (s *Service) EnsureActivePrompts(ctx context.Context) (BulkResult, error) {
	tables, err := s.db.ListTables(ctx)
	if err != nil {
		return BulkResult{}, s.fail("ensure_active_prompts", err, nil)
	}

	now := s.Now()
	result := BulkResult{Tables: len(tables)}
	created := make([]bool, len(tables))
	errs := make([]error, len(tables))

	g := new(errgroup.Group)
	g.SetLimit(s.bulk)
	for i, t := range tables {
		i, t := i, t
		g.Go(func() error {
			date := ActiveDate(s.releaseTimeOf(t), now)
			errs[i] = s.db.WithTx(ctx, func(q *database.Queries) error {
				var err error
				_, created[i], err = s.ensurePrompt(ctx, q, t.ID, date)
				return err
			})
			if errs[i] != nil {
				s.log.WithFields(logrus.Fields{
					"table_id": t.ID,
					"date":     date.Format(DateLayout),
				}).WithError(errs[i]).Error("failed to ensure prompt")
			}
			return nil
		})
	}
	_ = g.Wait()

	var combined error
	for i := range tables {
		if errs[i] != nil {
			result.Failed++
			combined = multierr.Append(combined, errs[i])
		} else if created[i] {
			result.Created++
		}
	}

	s.log.WithFields(logrus.Fields{
		"tables":  result.Tables,
		"created": result.Created,
		"failed":  result.Failed,
	}).Info("ensured active prompts")

	if combined != nil {
		return result, WrapError(CodeStore, storeMessage, combined)
	}
	return result, nil
}
