package consolidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
	emailsvc "github.com/nocheto/libretas/services/email"
	inmemdb "github.com/nocheto/libretas/storage/database/inmem"
	testutil "github.com/nocheto/libretas/tests"
)

var ctx = context.Background()

func newService(t *testing.T) (*consolidation.Service, *emailsvc.ConsoleServiceMock) {
	logger := testutil.Logger()
	mail := emailsvc.NewConsoleServiceMock(core.NewTestConfig(), logger)
	repo := inmemdb.NewConsolidationRepository(inmemdb.Open())
	return consolidation.NewService(repo, testutil.Directory(t), mail, logger), mail
}

func freezeClock(t *testing.T, at time.Time) {
	core.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { core.NowFunc = func() time.Time { return time.Now().UTC() } })
}

func TestService_Close(t *testing.T) {
	svc, mail := newService(t)
	first := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	freezeClock(t, first)

	c, err := svc.Close(ctx, " 1A ", "bim1", "u-tutor1a")
	require.NoError(t, err)
	assert.Equal(t, "1A", c.Section)
	assert.True(t, c.IsClosed)
	assert.Equal(t, "u-tutor1a", c.ClosedBy)
	require.NotNil(t, c.ClosedAt)
	assert.Equal(t, first, *c.ClosedAt)

	// the principal is notified
	sent := mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "director@school.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Tomas Tutor closed I Bimestre for section 1A on 2026-05-02 14:00 UTC.")

	closed, err := svc.IsClosed(ctx, "1A", "bim1")
	require.NoError(t, err)
	assert.True(t, closed)

	// other periods stay open
	closed, err = svc.IsClosed(ctx, "1A", "bim2")
	require.NoError(t, err)
	assert.False(t, closed)

	_, err = svc.Close(ctx, "", "bim1", "u-tutor1a")
	assert.True(t, core.IsValidationError(err))
	_, err = svc.Close(ctx, "1A", "bim1", "")
	assert.True(t, core.IsValidationError(err))
}

func TestService_Close_unknownPeriod(t *testing.T) {
	svc, mail := newService(t)

	tests := []struct {
		name      string
		section   string
		bimester  string
		userID    string
		wantField string
	}{
		{name: "unknown section", section: "9Z", bimester: "bim1", userID: "u-principal", wantField: "section"},
		{name: "unknown bimester", section: "1A", bimester: "bim9", userID: "u-principal", wantField: "bimester"},
		{name: "unknown user", section: "1A", bimester: "bim1", userID: "ghost", wantField: "closed_by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Close(ctx, tt.section, tt.bimester, tt.userID)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	// nothing reaches the ledger
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, mail.SentMessages())
}

func TestService_CloseReopenClose(t *testing.T) {
	svc, _ := newService(t)
	first := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	last := first.Add(48 * time.Hour)

	freezeClock(t, first)
	_, err := svc.Close(ctx, "1A", "bim1", "u-tutor1a")
	require.NoError(t, err)

	c, err := svc.Reopen(ctx, "1A", "bim1")
	require.NoError(t, err)
	assert.False(t, c.IsClosed)
	assert.Empty(t, c.ClosedBy)
	assert.Nil(t, c.ClosedAt)

	freezeClock(t, last)
	_, err = svc.Close(ctx, "1A", "bim1", "u-principal")
	require.NoError(t, err)

	c, err = svc.Get(ctx, "1A", "bim1")
	require.NoError(t, err)
	assert.True(t, c.IsClosed)
	assert.Equal(t, "u-principal", c.ClosedBy)
	require.NotNil(t, c.ClosedAt)
	assert.Equal(t, last, *c.ClosedAt)
}

func TestService_Reopen_notFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Reopen(ctx, "1A", "bim1")
	assert.Equal(t, consolidation.ErrNotFound, err)

	// no record is created by a failed reopen
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_State(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(ctx, "1A", "bim1")
	assert.Equal(t, consolidation.ErrNotFound, err)

	c, err := svc.State(ctx, "1A", "bim1")
	require.NoError(t, err)
	assert.Equal(t, consolidation.Consolidation{Section: "1A", Bimester: "bim1"}, c)
}

func TestService_ListAll(t *testing.T) {
	svc, _ := newService(t)
	periods := [][2]string{{"1B", "bim1"}, {"1A", "bim2"}, {"1A", "bim1"}}
	for _, p := range periods {
		_, err := svc.Close(ctx, p[0], p[1], "u-principal")
		require.NoError(t, err)
	}
	_, err := svc.Reopen(ctx, "1A", "bim2")
	require.NoError(t, err)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	got := make([][2]string, 0, len(all))
	for _, c := range all {
		got = append(got, [2]string{c.Section, c.Bimester})
	}
	assert.Equal(t, [][2]string{{"1A", "bim1"}, {"1A", "bim2"}, {"1B", "bim1"}}, got)
	assert.False(t, all[1].IsClosed)
}
