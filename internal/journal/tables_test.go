package journal

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inviteCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for n := 0; n < 200; n++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Regexp(t, inviteCodePattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestCreateTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")

	table, err := f.svc.CreateTable(ctx, "Sunday Dinner", owner, ReleaseTime{Hour: 8, Minute: 30})
	require.NoError(t, err)
	assert.Equal(t, "Sunday Dinner", table.Name)
	assert.Equal(t, "08:30", table.PromptTime)
	assert.Equal(t, owner, table.CreatedBy)
	assert.Regexp(t, inviteCodePattern, table.InviteCode)

	info, err := f.svc.TableInfo(ctx, table.ID, owner)
	require.NoError(t, err)
	assert.True(t, info.IsOwner)
	assert.False(t, info.Ready)
	require.Len(t, info.Members, 1)
	assert.Equal(t, "owner", info.Members[0].Role)
	assert.Equal(t, "Global owner", info.Members[0].DisplayName)

	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM prompts WHERE table_id = $1`, table.ID))

	_, err = f.svc.CreateTable(ctx, "Nobody's", 9999, DefaultReleaseTime)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.CreateTable(ctx, " ab ", owner, DefaultReleaseTime)
	require.ErrorIs(t, err, ErrInvalidTableName)
}

func TestCreateTableRetriesInviteCodeCollisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	existing := f.table(t, owner, DefaultReleaseTime)

	calls := 0
	f.svc.codeFn = func() (string, error) {
		calls++
		if calls < 3 {
			return existing.InviteCode, nil
		}
		return "WXYZ-2345", nil
	}

	table, err := f.svc.CreateTable(ctx, "Second", owner, DefaultReleaseTime)
	require.NoError(t, err)
	assert.Equal(t, "WXYZ-2345", table.InviteCode)
	assert.Equal(t, 3, calls)
}

func TestCreateTableGivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	existing := f.table(t, owner, DefaultReleaseTime)

	calls := 0
	f.svc.codeFn = func() (string, error) {
		calls++
		return existing.InviteCode, nil
	}

	_, err := f.svc.CreateTable(ctx, "Doomed", owner, DefaultReleaseTime)
	require.Error(t, err)
	assert.Equal(t, CodeStore, CodeOf(err))
	assert.Equal(t, maxInviteCodeRetries+1, calls)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM tables`))
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	table := f.table(t, owner, DefaultReleaseTime)

	_, err := f.svc.AddMember(ctx, table.ID, owner)
	require.ErrorIs(t, err, ErrAlreadyMember)

	member := f.join(t, table.ID, "member")[0]
	_, err = f.svc.AddMember(ctx, table.ID, member)
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.svc.AddMember(ctx, 9999, member)
	require.ErrorIs(t, err, ErrTableNotFound)

	// members may sit at several tables
	other := f.table(t, f.user(t, "host"), DefaultReleaseTime)
	_, err = f.svc.AddMember(ctx, other.ID, member)
	require.NoError(t, err)

	tables, err := f.svc.ListTables(ctx, member)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, table.ID, tables[0].ID)
	assert.Equal(t, "member", tables[0].Role)
	assert.Equal(t, 2, tables[0].MemberCount)
	assert.Equal(t, other.ID, tables[1].ID)
}

func TestAddMemberCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	table := f.table(t, owner, DefaultReleaseTime)

	names := make([]string, 0, MaxTableMembers-2)
	for i := 0; i < MaxTableMembers-2; i++ {
		names = append(names, fmt.Sprintf("guest%d", i))
	}
	f.join(t, table.ID, names...)
	assert.Equal(t, MaxTableMembers-1, f.count(t, `SELECT COUNT(*) FROM table_members WHERE table_id = $1`, table.ID))

	_, err := f.svc.AddMember(ctx, table.ID, f.user(t, "last"))
	require.NoError(t, err)
	assert.Equal(t, MaxTableMembers, f.count(t, `SELECT COUNT(*) FROM table_members WHERE table_id = $1`, table.ID))

	_, err = f.svc.AddMember(ctx, table.ID, f.user(t, "toomany"))
	require.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, CodeCapacity, CodeOf(err))
	assert.Equal(t, MaxTableMembers, f.count(t, `SELECT COUNT(*) FROM table_members WHERE table_id = $1`, table.ID))
}

func TestJoinByInviteCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	table := f.table(t, f.user(t, "owner"), DefaultReleaseTime)
	guest := f.user(t, "guest")

	typed := table.InviteCode[:4] + table.InviteCode[5:]
	joined, err := f.svc.JoinByInviteCode(ctx, " "+typed+" ", guest)
	require.NoError(t, err)
	assert.Equal(t, table.ID, joined.ID)

	_, err = f.svc.JoinByInviteCode(ctx, "ZZZZ-ZZZZ", guest)
	require.ErrorIs(t, err, ErrInvalidInvite)
}

func TestLeaveTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	table := f.table(t, owner, DefaultReleaseTime)
	member := f.join(t, table.ID, "member")[0]

	_, err := f.svc.LeaveTable(ctx, table.ID, owner)
	require.ErrorIs(t, err, ErrOwnerCannotLeave)
	assert.Equal(t, CodePermission, CodeOf(err))

	_, err = f.svc.LeaveTable(ctx, table.ID, f.user(t, "stranger"))
	require.ErrorIs(t, err, ErrNotMember)

	deleted, err := f.svc.LeaveTable(ctx, table.ID, member)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = f.svc.LeaveTable(ctx, table.ID, owner)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM table_members WHERE table_id = $1`, table.ID))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM tables WHERE id = $1`, table.ID))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM prompts WHERE table_id = $1`, table.ID))
}

func TestUpdateTableSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "owner")
	table := f.table(t, owner, DefaultReleaseTime)
	member := f.join(t, table.ID, "member")[0]

	name := "Renamed"
	_, err := f.svc.UpdateTableSettings(ctx, table.ID, member, TableSettings{Name: &name})
	require.ErrorIs(t, err, ErrNotOwner)

	short := "no"
	_, err = f.svc.UpdateTableSettings(ctx, table.ID, owner, TableSettings{Name: &short})
	require.ErrorIs(t, err, ErrInvalidTableName)

	updated, err := f.svc.UpdateTableSettings(ctx, table.ID, owner, TableSettings{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "17:00", updated.PromptTime)

	// moving the release past now turns the active date back a day
	late := ReleaseTime{Hour: 21}
	updated, err = f.svc.UpdateTableSettings(ctx, table.ID, owner, TableSettings{ReleaseTime: &late})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "21:00", updated.PromptTime)

	view, err := f.svc.CurrentPrompt(ctx, table.ID, member)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-13", view.ActiveDate)
}

func TestUpdateDisplayNameIsPerTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	first := f.table(t, alice, DefaultReleaseTime)
	second := f.table(t, alice, DefaultReleaseTime)

	_, err := f.svc.UpdateDisplayName(ctx, first.ID, alice, "")
	require.ErrorIs(t, err, ErrInvalidName)

	name, err := f.svc.UpdateDisplayName(ctx, first.ID, alice, "  Mom  ")
	require.NoError(t, err)
	assert.Equal(t, "Mom", name)

	_, err = f.svc.UpdateDisplayName(ctx, first.ID, f.user(t, "stranger"), "Hi")
	require.ErrorIs(t, err, ErrNotMember)

	resp, err := f.svc.SubmitToActivePrompt(ctx, first.ID, alice, "hello")
	require.NoError(t, err)
	visible, err := f.svc.VisibleResponses(ctx, resp.PromptID, alice)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Mom", visible[0].DisplayName)

	tables, err := f.svc.ListTables(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Mom", tables[0].DisplayName)
	assert.Equal(t, second.ID, tables[1].ID)
	assert.Equal(t, "Global alice", tables[1].DisplayName)
}

func TestResolveCurrentTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.svc.ResolveCurrentTable(ctx, alice, 0)
	require.ErrorIs(t, err, ErrNoTable)

	first := f.table(t, alice, DefaultReleaseTime)
	second := f.table(t, alice, DefaultReleaseTime)
	stranger := f.table(t, f.user(t, "bob"), DefaultReleaseTime)

	tests := []struct {
		name     string
		pointer  int64
		expected int64
	}{
		{name: "no pointer", pointer: 0, expected: first.ID},
		{name: "valid pointer", pointer: second.ID, expected: second.ID},
		{name: "table the user is not at", pointer: stranger.ID, expected: first.ID},
		{name: "deleted table", pointer: 9999, expected: first.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ResolveCurrentTable(ctx, alice, tt.pointer)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
