// Package journal implements the daily prompt cycle of a table: which date is
// active, who may see which responses, and how people join and leave tables.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/sirupsen/logrus"
)

const (
	MinTableMembers   = 2
	MaxTableMembers   = 10
	MaxResponseLength = 500
	MaxNameLength     = 50
	MinTableName      = 3

	// FallbackPrompt is used when the default prompt pool is empty.
	FallbackPrompt = "What's on your mind today?"
)

type Service struct {
	db     *database.DB
	log    logrus.FieldLogger
	now    func() time.Time
	loc    *time.Location
	bulk   int
	codeFn func() (string, error)
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the wall clock the release times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithBulkConcurrency bounds how many tables EnsureActivePrompts works on at once.
func WithBulkConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bulk = n
		}
	}
}

func NewService(db *database.DB, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		log:    log,
		now:    time.Now,
		loc:    time.Local,
		bulk:   4,
		codeFn: GenerateInviteCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current instant on the service's wall clock.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// fail passes journal errors through and turns anything else into a logged,
// generic store error.
func (s *Service) fail(op string, err error, fields logrus.Fields) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	s.log.WithFields(fields).WithField("operation", op).WithError(err).Error("store operation failed")
	return WrapError(CodeStore, storeMessage, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// releaseTimeOf reads a table's stored release time, falling back to the
// default for values that no longer parse.
func (s *Service) releaseTimeOf(t *database.Table) ReleaseTime {
	rt, err := ParseReleaseTime(t.PromptTime)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"table_id":    t.ID,
			"prompt_time": t.PromptTime,
		}).Warn("invalid stored release time, using default")
		return DefaultReleaseTime
	}
	return rt
}

func getTable(ctx context.Context, q *database.Queries, tableID int64) (*database.Table, error) {
	t, err := q.GetTable(ctx, tableID)
	if isNoRows(err) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// requireMember returns the caller's membership or ErrNotTableMember.
func requireMember(ctx context.Context, q *database.Queries, tableID, userID int64) (*database.Member, error) {
	m, err := q.GetMember(ctx, tableID, userID)
	if isNoRows(err) {
		return nil, ErrNotTableMember
	}
	return m, err
}
