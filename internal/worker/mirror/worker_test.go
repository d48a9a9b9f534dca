package mirror_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/affiliate"
	"github.com/robalyx/affiliates/internal/announcement"
	"github.com/robalyx/affiliates/internal/worker/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

type fakeHistory struct {
	items []announcement.Item
	err   error
	limit int
}

func (h *fakeHistory) FetchRecent(_ context.Context, limit int) ([]announcement.Item, error) {
	h.limit = limit
	if h.err != nil {
		return nil, h.err
	}

	return append([]announcement.Item(nil), h.items...), nil
}

type fakeSink struct {
	sent   []string
	failAt map[int]bool // 1-based call numbers that fail
	calls  int
}

func (s *fakeSink) Emit(_ context.Context, content string) error {
	s.calls++
	if s.failAt[s.calls] {
		return errBoom
	}

	s.sent = append(s.sent, content)

	return nil
}

type fakeRoles struct {
	mu      sync.Mutex
	added   []snowflake.ID
	removed []snowflake.ID
	fail    map[snowflake.ID]bool
}

func (r *fakeRoles) AddRole(_ context.Context, userID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail[userID] {
		return errBoom
	}

	r.added = append(r.added, userID)

	return nil
}

func (r *fakeRoles) RemoveRole(_ context.Context, userID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail[userID] {
		return errBoom
	}

	r.removed = append(r.removed, userID)

	return nil
}

type fakeStore struct {
	stored affiliate.Set
	err    error
	swaps  int
}

func (s *fakeStore) Swap(ctx context.Context, fn affiliate.SwapFunc) error {
	s.swaps++
	if s.err != nil {
		return s.err
	}

	next, err := fn(ctx, affiliate.NewSet(s.stored.Sorted()...))
	if err != nil {
		return err
	}

	s.stored = next

	return nil
}

func clanItem(id snowflake.ID, title string, contacts ...snowflake.ID) announcement.Item {
	value := ""
	for _, contact := range contacts {
		value += fmt.Sprintf("<@%d> ", contact)
	}

	return announcement.Item{
		ID: id,
		Embed: &announcement.Embed{
			Title:       title,
			Description: "Join " + title,
			Fields:      []announcement.Field{{Name: announcement.ContactFieldName, Value: value}},
		},
	}
}

func newWorker(
	history *fakeHistory, sink *fakeSink, roles *fakeRoles, store *fakeStore, opts mirror.Options,
) *mirror.Worker {
	formatter := &announcement.Formatter{Style: announcement.ContactStyleHeading}
	return mirror.New(history, sink, roles, store, formatter, opts, zap.NewNop())
}

const (
	userA snowflake.ID = 111111111111111111
	userB snowflake.ID = 222222222222222222
	userC snowflake.ID = 333333333333333333
	userD snowflake.ID = 444444444444444444
)

func TestRun_MirrorsOldestFirstAndReconciles(t *testing.T) {
	t.Parallel()

	// Newest first, as Discord returns it
	history := &fakeHistory{items: []announcement.Item{
		clanItem(3, "Clan C", userC),
		{ID: 2},
		clanItem(1, "Clan A", userA, userB),
	}}
	sink := &fakeSink{}
	roles := &fakeRoles{}
	store := &fakeStore{stored: affiliate.NewSet(userB, userD)}

	report, err := newWorker(history, sink, roles, store, mirror.Options{}).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, mirror.DefaultHistoryLimit, history.limit)
	require.Len(t, sink.sent, 2)
	assert.Contains(t, sink.sent[0], "## Clan A")
	assert.Contains(t, sink.sent[1], "## Clan C")

	assert.ElementsMatch(t, []snowflake.ID{userA, userC}, roles.added)
	assert.ElementsMatch(t, []snowflake.ID{userD}, roles.removed)
	assert.Equal(t, []snowflake.ID{userA, userB, userC}, store.stored.Sorted())

	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Actionable)
	assert.Equal(t, 2, report.Emitted)
	assert.Equal(t, []uint64{uint64(userA), uint64(userC)}, report.Added)
	assert.Equal(t, []uint64{uint64(userD)}, report.Removed)
	assert.Equal(t, []uint64{uint64(userA), uint64(userB), uint64(userC)}, report.Affiliates)
	assert.True(t, report.SnapshotStored)
}

func TestRun_SendFailureIsIsolated(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{items: []announcement.Item{
		clanItem(3, "Clan 3", userC),
		clanItem(2, "Clan 2", userB),
		clanItem(1, "Clan 1", userA),
	}}
	sink := &fakeSink{failAt: map[int]bool{2: true}}
	roles := &fakeRoles{}
	store := &fakeStore{}

	report, err := newWorker(history, sink, roles, store, mirror.Options{}).Run(t.Context())
	require.NoError(t, err)

	require.Len(t, sink.sent, 2)
	assert.Contains(t, sink.sent[0], "## Clan 1")
	assert.Contains(t, sink.sent[1], "## Clan 3")

	assert.Equal(t, 2, report.Emitted)
	require.Len(t, report.SendFailures, 1)
	assert.Equal(t, uint64(2), report.SendFailures[0].MessageID)
	assert.Contains(t, report.SendFailures[0].Error, mirror.ErrSendMessage.Error())

	// Contacts of the unsent post still hold the role
	assert.ElementsMatch(t, []snowflake.ID{userA, userB, userC}, roles.added)
	assert.True(t, report.SnapshotStored)
}

func TestRun_RoleFailureIsIsolated(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{items: []announcement.Item{clanItem(1, "Clan", userA, userB)}}
	roles := &fakeRoles{fail: map[snowflake.ID]bool{userA: true, userD: true}}
	store := &fakeStore{stored: affiliate.NewSet(userC, userD)}

	report, err := newWorker(history, &fakeSink{}, roles, store, mirror.Options{RoleConcurrency: 1}).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []snowflake.ID{userB}, roles.added)
	assert.Equal(t, []snowflake.ID{userC}, roles.removed)
	assert.Equal(t, []uint64{uint64(userB)}, report.Added)
	assert.Equal(t, []uint64{uint64(userC)}, report.Removed)
	require.Len(t, report.RoleFailures, 2)
	assert.Equal(t, "add", report.RoleFailures[0].Operation)
	assert.Equal(t, uint64(userA), report.RoleFailures[0].UserID)
	assert.Equal(t, "remove", report.RoleFailures[1].Operation)
	assert.Equal(t, uint64(userD), report.RoleFailures[1].UserID)

	// The snapshot reflects the announcements, not the role outcomes
	assert.Equal(t, []snowflake.ID{userA, userB}, store.stored.Sorted())
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{err: errBoom}
	sink := &fakeSink{}
	roles := &fakeRoles{}
	store := &fakeStore{stored: affiliate.NewSet(userA)}

	_, err := newWorker(history, sink, roles, store, mirror.Options{}).Run(t.Context())
	require.ErrorIs(t, err, mirror.ErrFetchHistory)
	require.ErrorIs(t, err, errBoom)

	assert.Zero(t, store.swaps)
	assert.Empty(t, sink.sent)
	assert.Empty(t, roles.added)
	assert.Empty(t, roles.removed)
	assert.Equal(t, []snowflake.ID{userA}, store.stored.Sorted())
}

func TestRun_SnapshotFailureIsFatal(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{items: []announcement.Item{clanItem(1, "Clan", userA)}}
	store := &fakeStore{err: errBoom}

	report, err := newWorker(history, &fakeSink{}, &fakeRoles{}, store, mirror.Options{}).Run(t.Context())
	require.ErrorIs(t, err, mirror.ErrSnapshot)
	assert.False(t, report.SnapshotStored)
}

func TestRun_UnparsableItemsContributeNothing(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{items: []announcement.Item{
		{ID: 2, Embed: &announcement.Embed{
			Title:  "No description",
			Fields: []announcement.Field{{Name: announcement.ContactFieldName, Value: fmt.Sprintf("<@%d>", userB)}},
		}},
		clanItem(1, "Clan", userA),
	}}
	roles := &fakeRoles{}
	store := &fakeStore{}

	report, err := newWorker(history, &fakeSink{}, roles, store, mirror.Options{}).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Actionable)
	assert.Equal(t, []snowflake.ID{userA}, roles.added)
	assert.Equal(t, []snowflake.ID{userA}, store.stored.Sorted())
}

func TestRun_DryRunLeavesEverythingUntouched(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{items: []announcement.Item{clanItem(1, "Clan", userA)}}
	sink := &fakeSink{}
	roles := &fakeRoles{}
	store := &fakeStore{stored: affiliate.NewSet(userB)}

	report, err := newWorker(history, sink, roles, store, mirror.Options{DryRun: true}).Run(t.Context())
	require.NoError(t, err)

	assert.Empty(t, sink.sent)
	assert.Empty(t, roles.added)
	assert.Empty(t, roles.removed)
	assert.Equal(t, []snowflake.ID{userB}, store.stored.Sorted())

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Emitted)
	assert.Equal(t, []uint64{uint64(userA)}, report.Added)
	assert.Equal(t, []uint64{uint64(userB)}, report.Removed)
	assert.False(t, report.SnapshotStored)
}

func TestRun_CancelledContextKeepsSnapshot(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	history := &fakeHistory{items: []announcement.Item{clanItem(1, "Clan", userA)}}
	store := &fakeStore{stored: affiliate.NewSet(userB)}

	_, err := newWorker(history, &fakeSink{}, &fakeRoles{}, store, mirror.Options{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []snowflake.ID{userB}, store.stored.Sorted())
}

func TestReport_WriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	report := &mirror.Report{RunID: "run", Emitted: 2, Added: []uint64{uint64(userA)}}
	require.NoError(t, report.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId":"run"`)
	assert.Contains(t, string(data), `"emitted":2`)
	assert.Contains(t, string(data), `"added":[111111111111111111]`)
}
