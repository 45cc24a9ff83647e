package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	db    *database.DB
	clock *testClock
	hook  *test.Hook
}

// 18:00 UTC, after the default 17:00 release.
var fixtureStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	logger, hook := test.NewNullLogger()
	clock := &testClock{now: fixtureStart}

	return &fixture{
		svc:   NewService(db, logger, WithClock(clock.Now), WithLocation(time.UTC)),
		db:    db,
		clock: clock,
		hook:  hook,
	}
}

func (f *fixture) user(t *testing.T, username string) int64 {
	t.Helper()
	u, err := f.db.CreateUser(context.Background(), username, username+"@example.com", "", "Global "+username, f.clock.Now())
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) table(t *testing.T, ownerID int64, release ReleaseTime) *Table {
	t.Helper()
	table, err := f.svc.CreateTable(context.Background(), "Kitchen", ownerID, release)
	require.NoError(t, err)
	return table
}

// join seats n new users at the table and returns their ids.
func (f *fixture) join(t *testing.T, tableID int64, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id := f.user(t, name)
		_, err := f.svc.AddMember(context.Background(), tableID, id)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// setPool replaces the default prompt pool.
func (f *fixture) setPool(t *testing.T, texts ...string) {
	t.Helper()
	_, err := f.db.Exec(`DELETE FROM default_prompts`)
	require.NoError(t, err)
	for _, text := range texts {
		_, err := f.db.Exec(`INSERT INTO default_prompts (prompt_text) VALUES ($1)`, text)
		require.NoError(t, err)
	}
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}
