package journal

import (
	"context"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/utils"
	"github.com/sirupsen/logrus"
)

// ValidateResponseText normalizes text and checks it is 1..MaxResponseLength
// characters long.
func ValidateResponseText(text string) (string, error) {
	text = utils.NormalizeText(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	if utils.CharCount(text) > MaxResponseLength {
		return "", ErrResponseTooLong
	}
	return text, nil
}

// SubmitResponse records the first and only response of a user to a prompt.
// The prompt must belong to a table the user sits at and still be active.
func (s *Service) SubmitResponse(ctx context.Context, promptID, userID int64, text string) (*ResponseView, error) {
	text, err := ValidateResponseText(text)
	if err != nil {
		return nil, err
	}

	var resp *database.Response
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		prompt, err := q.GetPrompt(ctx, promptID)
		if isNoRows(err) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}
		resp, err = s.submit(ctx, q, prompt, userID, text, s.Now())
		return err
	})
	if err != nil {
		return nil, s.fail("submit_response", err, logrus.Fields{
			"prompt_id": promptID,
			"user_id":   userID,
		})
	}
	return responseFromRow(resp), nil
}

// SubmitToActivePrompt answers the table's active prompt, creating it if needed.
func (s *Service) SubmitToActivePrompt(ctx context.Context, tableID, userID int64, text string) (*ResponseView, error) {
	text, err := ValidateResponseText(text)
	if err != nil {
		return nil, err
	}

	var resp *database.Response
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		table, err := getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		now := s.Now()
		prompt, _, err := s.ensurePrompt(ctx, q, table.ID, ActiveDate(s.releaseTimeOf(table), now))
		if err != nil {
			return err
		}
		resp, err = s.submit(ctx, q, prompt, userID, text, now)
		return err
	})
	if err != nil {
		return nil, s.fail("submit_response", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return responseFromRow(resp), nil
}

func (s *Service) submit(ctx context.Context, q *database.Queries, prompt *database.Prompt, userID int64, text string, now time.Time) (*database.Response, error) {
	table, err := getTable(ctx, q, prompt.TableID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, q, table.ID, userID); err != nil {
		return nil, err
	}
	if prompt.Date != ActiveDate(s.releaseTimeOf(table), now).Format(DateLayout) {
		return nil, ErrInactiveWindow
	}

	resp, created, err := q.InsertResponse(ctx, prompt.ID, userID, text, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyResponded
		}
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyResponded
	}
	return resp, nil
}

// EditResponse replaces the text of the user's response while the prompt is
// still the table's active one.
func (s *Service) EditResponse(ctx context.Context, promptID, userID int64, text string) (*ResponseView, error) {
	text, err := ValidateResponseText(text)
	if err != nil {
		return nil, err
	}

	var resp *database.Response
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		prompt, err := q.GetPrompt(ctx, promptID)
		if isNoRows(err) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}
		table, err := getTable(ctx, q, prompt.TableID)
		if err != nil {
			return err
		}

		now := s.Now()
		if prompt.Date != ActiveDate(s.releaseTimeOf(table), now).Format(DateLayout) {
			return ErrInactiveWindow
		}

		resp, err = q.UpdateResponse(ctx, promptID, userID, text, now)
		if isNoRows(err) {
			return ErrResponseNotFound
		}
		return err
	})
	if err != nil {
		return nil, s.fail("edit_response", err, logrus.Fields{
			"prompt_id": promptID,
			"user_id":   userID,
		})
	}
	return responseFromRow(resp), nil
}

// VisibleResponses returns every response to the prompt in submission order,
// but only once userID has responded to it. Otherwise the list is empty.
func (s *Service) VisibleResponses(ctx context.Context, promptID, userID int64) ([]ResponseView, error) {
	var visible []ResponseView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		visible, _, err = visibleResponses(ctx, q, promptID, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("visible_responses", err, logrus.Fields{
			"prompt_id": promptID,
			"user_id":   userID,
		})
	}
	return visible, nil
}

func visibleResponses(ctx context.Context, q *database.Queries, promptID, userID int64) ([]ResponseView, bool, error) {
	responded, err := q.HasResponded(ctx, promptID, userID)
	if err != nil {
		return nil, false, err
	}
	if !responded {
		return []ResponseView{}, false, nil
	}

	rows, err := q.ListResponses(ctx, promptID)
	if err != nil {
		return nil, false, err
	}
	return responsesFromRows(rows), true, nil
}

// CurrentPrompt ensures the table's active prompt and returns it with the
// responses the caller may see.
func (s *Service) CurrentPrompt(ctx context.Context, tableID, userID int64) (*PromptView, error) {
	var view *PromptView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		table, err := getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		if _, err := requireMember(ctx, q, tableID, userID); err != nil {
			return err
		}

		now := s.Now()
		rt := s.releaseTimeOf(table)
		active := ActiveDate(rt, now)
		prompt, _, err := s.ensurePrompt(ctx, q, tableID, active)
		if err != nil {
			return err
		}

		view, err = buildPromptView(ctx, q, prompt, userID, true)
		if err != nil {
			return err
		}
		view.ActiveDate = active.Format(DateLayout)
		view.IsEditable = view.UserHasResponded
		view.SecondsUntilNextRelease = SecondsUntilNextRelease(rt, now)
		return nil
	})
	if err != nil {
		return nil, s.fail("current_prompt", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return view, nil
}

// PreviousPrompt returns the prompt of the cycle before the active one. Its
// window is closed, so every response is shown.
func (s *Service) PreviousPrompt(ctx context.Context, tableID, userID int64) (*PromptView, error) {
	var view *PromptView
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		table, err := getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		if _, err := requireMember(ctx, q, tableID, userID); err != nil {
			return err
		}

		active := ActiveDate(s.releaseTimeOf(table), s.Now())
		prompt, err := q.GetPromptByDate(ctx, tableID, active.AddDate(0, 0, -1).Format(DateLayout))
		if isNoRows(err) {
			return ErrNoPreviousPrompt
		}
		if err != nil {
			return err
		}

		view, err = buildPromptView(ctx, q, prompt, userID, false)
		if err != nil {
			return err
		}
		view.ActiveDate = active.Format(DateLayout)
		return nil
	})
	if err != nil {
		return nil, s.fail("previous_prompt", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return view, nil
}

func buildPromptView(ctx context.Context, q *database.Queries, prompt *database.Prompt, userID int64, gated bool) (*PromptView, error) {
	view := &PromptView{Prompt: promptFromRow(prompt), Responses: []ResponseView{}}

	own, err := q.GetResponse(ctx, prompt.ID, userID)
	switch {
	case err == nil:
		view.UserHasResponded = true
		view.UserResponse = responseFromRow(own)
	case !isNoRows(err):
		return nil, err
	}

	if view.UserHasResponded || !gated {
		rows, err := q.ListResponses(ctx, prompt.ID)
		if err != nil {
			return nil, err
		}
		view.Responses = responsesFromRows(rows)
	}

	view.ResponseCount, err = q.CountResponses(ctx, prompt.ID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Poll re-reads the active prompt's responses without creating the prompt.
func (s *Service) Poll(ctx context.Context, tableID, userID int64) (*PollView, error) {
	view := &PollView{Responses: []ResponseView{}}
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		table, err := getTable(ctx, q, tableID)
		if err != nil {
			return err
		}
		if _, err := requireMember(ctx, q, tableID, userID); err != nil {
			return err
		}

		active := ActiveDate(s.releaseTimeOf(table), s.Now())
		prompt, err := q.GetPromptByDate(ctx, tableID, active.Format(DateLayout))
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}

		view.PromptID = prompt.ID
		view.Responses, view.UserHasResponded, err = visibleResponses(ctx, q, prompt.ID, userID)
		if err != nil {
			return err
		}
		view.ResponseCount, err = q.CountResponses(ctx, prompt.ID)
		return err
	})
	if err != nil {
		return nil, s.fail("poll", err, logrus.Fields{
			"table_id": tableID,
			"user_id":  userID,
		})
	}
	return view, nil
}
