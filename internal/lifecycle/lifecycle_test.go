package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomboard/internal/api"
	"roomboard/internal/board"
	"roomboard/internal/models"
	"roomboard/internal/prompt"
	"roomboard/internal/session"
)

type call struct {
	op    string
	id    string
	force bool
	col   *api.ColumnInput
	patch *api.CardPatch
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	// failOn makes the call with this op:id fail with failErr.
	failOn  string
	failErr error
	// block, when set, holds ArchiveCard until closed.
	block chan struct{}
}

func (r *recorder) record(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.failOn != "" && r.failOn == c.op+":"+c.id {
		return r.failErr
	}
	return nil
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.op + ":" + c.id
	}
	return out
}

func (r *recorder) last() call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *recorder) CreateBoard(_ context.Context, _, name string) (models.Board, error) {
	return models.Board{PublicID: "new-board", Name: name}, r.record(call{op: "create-board", id: name})
}

func (r *recorder) UpdateBoard(_ context.Context, _, boardID, name string) (models.Board, error) {
	return models.Board{PublicID: boardID, Name: name}, r.record(call{op: "update-board", id: name})
}

func (r *recorder) CreateColumn(_ context.Context, _, _ string, in api.ColumnInput) (models.Column, error) {
	return models.Column{ID: 99, Title: in.Title, WIPLimit: in.WIPLimit}, r.record(call{op: "create-column", id: in.Title, col: &in})
}

func (r *recorder) UpdateColumn(_ context.Context, _, _ string, columnID int64, in api.ColumnInput) (models.Column, error) {
	return models.Column{ID: columnID}, r.record(call{op: "update-column", id: fmt.Sprint(columnID), col: &in})
}

func (r *recorder) ReorderColumns(_ context.Context, _, _ string, ids []int64) ([]api.ColumnPosition, error) {
	return nil, r.record(call{op: "reorder-columns", id: fmt.Sprint(ids)})
}

func (r *recorder) ArchiveColumn(_ context.Context, _, _ string, columnID int64) error {
	return r.record(call{op: "archive-column", id: fmt.Sprint(columnID)})
}

func (r *recorder) RestoreColumn(_ context.Context, _, _ string, columnID int64) (models.Column, error) {
	return models.Column{ID: columnID}, r.record(call{op: "restore-column", id: fmt.Sprint(columnID)})
}

func (r *recorder) HardDeleteColumn(_ context.Context, _, _ string, columnID int64, force bool) error {
	return r.record(call{op: "purge-column", id: fmt.Sprint(columnID), force: force})
}

func (r *recorder) CreateCard(_ context.Context, _, _ string, columnID int64, in api.CardInput) (models.Card, error) {
	return models.Card{ID: "new", Title: in.Title, ColumnID: columnID}, r.record(call{op: "create-card", id: in.Title})
}

func (r *recorder) UpdateCard(_ context.Context, _, _ string, columnID int64, cardID string, patch api.CardPatch) (models.Card, error) {
	return models.Card{ID: cardID, ColumnID: columnID}, r.record(call{op: "update-card", id: fmt.Sprintf("%s@%d", cardID, columnID), patch: &patch})
}

func (r *recorder) ReorderCards(_ context.Context, _, _ string, columnID int64, ids []string) ([]api.CardPosition, error) {
	return nil, r.record(call{op: "reorder-cards", id: fmt.Sprintf("%d%v", columnID, ids)})
}

func (r *recorder) ArchiveCard(_ context.Context, _, _ string, columnID int64, cardID string) error {
	if r.block != nil {
		<-r.block
	}
	return r.record(call{op: "archive-card", id: fmt.Sprintf("%s@%d", cardID, columnID)})
}

func (r *recorder) RestoreCard(_ context.Context, _, _ string, columnID int64, cardID string) (models.Card, error) {
	return models.Card{ID: cardID}, r.record(call{op: "restore-card", id: cardID})
}

func (r *recorder) HardDeleteCard(_ context.Context, _, _ string, columnID int64, cardID string) error {
	return r.record(call{op: "purge-card", id: cardID})
}

func (r *recorder) BoardArchive(context.Context, string, string) (models.Archive, error) {
	return models.Archive{}, r.record(call{op: "archive"})
}

type fakeBoard struct {
	mu       sync.Mutex
	view     board.View
	reloads  int
	selected string
}

func (b *fakeBoard) View() board.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *fakeBoard) Reload(context.Context) board.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++
	return b.view
}

func (b *fakeBoard) SelectBoard(_ context.Context, id string) board.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = id
	b.reloads++
	return b.view
}

func (b *fakeBoard) reloadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

const (
	timeout = time.Second
	tick    = time.Millisecond
)

func intPtr(n int) *int { return &n }

func newFixture(role models.Role) (*Orchestrator, *recorder, *fakeBoard, *prompt.Scripted) {
	gw := &recorder{}
	fb := &fakeBoard{view: board.View{
		RoomID:        "room1",
		ActiveBoardID: "board1",
		Columns: []models.Column{
			{ID: 1, Title: "Backlog", WIPLimit: intPtr(5), Cards: []models.Card{
				{ID: "c1", Title: "Slay dragon", ColumnID: 1},
				{ID: "c2", Title: "Find sword", ColumnID: 1},
			}},
			{ID: 2, Title: "Doing"},
		},
	}}
	conf := &prompt.Scripted{}
	o := New(gw, fb, session.Session{UserPublicID: "u1", Role: role}, conf)
	return o, gw, fb, conf
}

func TestCreateColumnRejectsShortTitleLocally(t *testing.T) {
	o, gw, fb, _ := newFixture(models.RoleMember)

	_, err := o.CreateColumn(context.Background(), ColumnDraft{Title: " ab "})
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.KindValidation, apiErr.Kind)
	assert.Equal(t, "title", apiErr.Field)
	assert.Equal(t, "Column title must be at least 3 characters long.", apiErr.Message)
	assert.Empty(t, gw.ops())
	assert.Zero(t, fb.reloadCount())
}

func TestCreateColumnParsesWIPLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"", nil},
		{"  ", nil},
		{"3", intPtr(3)},
		{"0", intPtr(0)},
		{"abc", nil},
		{"-2", nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			o, gw, fb, _ := newFixture(models.RoleMember)
			notice, err := o.CreateColumn(context.Background(), ColumnDraft{Title: "  Backlog ", WIPLimit: tt.raw})
			require.NoError(t, err)
			assert.Equal(t, "Column created.", notice)
			c := gw.last()
			assert.Equal(t, "Backlog", c.col.Title)
			assert.Equal(t, tt.want, c.col.WIPLimit)
			assert.Equal(t, 1, fb.reloadCount())
		})
	}
}

func TestUpdateColumnKeepsPreviousValues(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleMember)
	ctx := context.Background()

	_, err := o.UpdateColumn(ctx, 1, ColumnDraft{Title: "", WIPLimit: "lots"})
	require.NoError(t, err)
	c := gw.last()
	assert.Equal(t, "Backlog", c.col.Title)
	assert.Equal(t, intPtr(5), c.col.WIPLimit)

	_, err = o.UpdateColumn(ctx, 1, ColumnDraft{Title: "Icebox", WIPLimit: ""})
	require.NoError(t, err)
	c = gw.last()
	assert.Equal(t, "Icebox", c.col.Title)
	assert.Nil(t, c.col.WIPLimit)

	_, err = o.UpdateColumn(ctx, 1, ColumnDraft{Title: "no"})
	assert.True(t, api.IsKind(err, api.KindValidation))

	_, err = o.UpdateColumn(ctx, 42, ColumnDraft{Title: "Ghost"})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Len(t, gw.ops(), 2)
}

func TestCardTitleValidation(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleMember)
	ctx := context.Background()

	_, err := o.CreateCard(ctx, 1, CardDraft{Title: "   "})
	assert.EqualError(t, err, "validation: Please provide a card title.")

	_, err = o.UpdateCard(ctx, "c1", CardDraft{Title: ""})
	assert.EqualError(t, err, "validation: Card title cannot be empty.")
	assert.Empty(t, gw.ops())

	empty := ""
	notice, err := o.CreateCard(ctx, 1, CardDraft{Title: " Slay dragon ", Description: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Card created.", notice)
	assert.Equal(t, []string{"create-card:Slay dragon"}, gw.ops())
}

func TestUpdateCardMovesThroughCurrentColumn(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleMember)

	notice, err := o.MoveCard(context.Background(), "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, "Card moved.", notice)
	c := gw.last()
	assert.Equal(t, "update-card:c1@1", c.op+":"+c.id)
	require.NotNil(t, c.patch.ColumnID)
	assert.Equal(t, int64(2), *c.patch.ColumnID)
	assert.Equal(t, "Slay dragon", *c.patch.Title)

	notice, err = o.UpdateCard(context.Background(), "c2", CardDraft{Title: "Find the sword", ColumnID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Card updated.", notice)
	assert.Nil(t, gw.last().patch.ColumnID)

	_, err = o.MoveCard(context.Background(), "c1", 77)
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func TestArchiveColumnNeedsConfirmation(t *testing.T) {
	o, gw, fb, conf := newFixture(models.RoleMember)
	ctx := context.Background()

	_, err := o.ArchiveColumn(ctx, 1)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, []string{ArchiveColumnQuestion}, conf.Asked)
	assert.Empty(t, gw.ops())

	conf.Confirms = []bool{true}
	notice, err := o.ArchiveColumn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Column archived.", notice)
	assert.Equal(t, []string{"archive-column:1"}, gw.ops())
	assert.Equal(t, 1, fb.reloadCount())
}

func TestArchiveCardHasNoConfirmation(t *testing.T) {
	o, gw, _, conf := newFixture(models.RoleMember)

	notice, err := o.ArchiveCard(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "Card archived.", notice)
	assert.Empty(t, conf.Asked)
	assert.Equal(t, []string{"archive-card:c2@1"}, gw.ops())
}

func TestViewerCannotWriteButCanRestore(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleViewer)
	ctx := context.Background()

	_, err := o.ArchiveCard(ctx, "c1")
	assert.True(t, api.IsKind(err, api.KindValidation))
	_, err = o.CreateColumn(ctx, ColumnDraft{Title: "Later"})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Empty(t, gw.ops())

	notice, err := o.RestoreColumn(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Column restored.", notice)
	notice, err = o.RestoreCard(ctx, models.ArchivedCard{PublicID: "c9", ColumnID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Card restored.", notice)
}

func TestServerFailureUsesServerMessageOrFallback(t *testing.T) {
	o, gw, fb, _ := newFixture(models.RoleMember)
	gw.failOn = "archive-card:c1@1"
	gw.failErr = &api.Error{Kind: api.KindNetwork, Status: 503, Message: "Service Unavailable"}

	_, err := o.ArchiveCard(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, "Could not archive card.", err.Error())
	assert.True(t, api.IsKind(err, api.KindNetwork))
	assert.Zero(t, fb.reloadCount())

	gw.failErr = &api.Error{Kind: api.KindValidation, Status: 400, Message: "Card is locked"}
	_, err = o.ArchiveCard(context.Background(), "c1")
	assert.Equal(t, "Card is locked", err.Error())
}

func TestBusyRejectsDuplicateSubmission(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleMember)
	gw.block = make(chan struct{})
	ctx := context.Background()

	errs := make(chan error, 1)
	go func() {
		_, err := o.ArchiveCard(ctx, "c1")
		errs <- err
	}()
	require.Eventually(t, func() bool { return o.Busy("archive-card") }, timeout, tick)

	_, err := o.ArchiveCard(ctx, "c2")
	assert.ErrorIs(t, err, ErrBusy)

	// unrelated actions are not serialized
	_, err = o.RestoreColumn(ctx, 5)
	assert.NoError(t, err)

	close(gw.block)
	assert.NoError(t, <-errs)
}

func TestReorderValidation(t *testing.T) {
	o, gw, _, _ := newFixture(models.RoleMember)
	ctx := context.Background()

	_, err := o.ReorderColumns(ctx, []int64{2, 2})
	assert.Contains(t, err.Error(), "listed twice")
	_, err = o.ReorderColumns(ctx, []int64{2, 3})
	assert.Contains(t, err.Error(), "not on this board")
	_, err = o.ReorderCards(ctx, 1, []string{"c2", "zz"})
	assert.Contains(t, err.Error(), "not in column")
	assert.Empty(t, gw.ops())

	_, err = o.ReorderColumns(ctx, []int64{2, 1})
	require.NoError(t, err)
	_, err = o.ReorderCards(ctx, 1, []string{"c2", "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"reorder-columns:[2 1]", "reorder-cards:1[c2 c1]"}, gw.ops())
}

func TestBoardNameBounds(t *testing.T) {
	o, gw, fb, _ := newFixture(models.RoleMember)
	ctx := context.Background()

	_, err := o.RenameBoard(ctx, "  ")
	assert.True(t, api.IsKind(err, api.KindValidation))
	_, err = o.RenameBoard(ctx, "ab")
	assert.True(t, api.IsKind(err, api.KindValidation))
	_, err = o.RenameBoard(ctx, strings.Repeat("x", 65))
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Empty(t, gw.ops())

	notice, err := o.RenameBoard(ctx, " Quests ")
	require.NoError(t, err)
	assert.Equal(t, "Board renamed.", notice)

	notice, err = o.CreateBoard(ctx, "Side quests")
	require.NoError(t, err)
	assert.Equal(t, "Board created.", notice)
	assert.Equal(t, "new-board", fb.selected)
	assert.Equal(t, []string{"update-board:Quests", "create-board:Side quests"}, gw.ops())
}

func archiveFixture() models.Archive {
	return models.Archive{
		Columns: []models.ArchivedColumn{{ID: 10, Title: "Old"}, {ID: 11, Title: "Older"}, {ID: 12, Title: "Empty"}},
		Cards: []models.ArchivedCard{
			{PublicID: "a1", ColumnID: 10},
			{PublicID: "a2", ColumnID: 11},
			{PublicID: "a3", ColumnID: 1},
		},
	}
}

func TestHardDeletePromptWarning(t *testing.T) {
	a := archiveFixture()

	none := HardDeletePrompt(a, Selection{ColumnIDs: []int64{12}})
	assert.NotContains(t, none, "WARNING")
	assert.Equal(t, "Type DELETE to permanently remove the selected archived items. This action cannot be undone.", none)

	one := HardDeletePrompt(a, Selection{ColumnIDs: []int64{10, 12}})
	assert.True(t, strings.HasPrefix(one, "WARNING: 1 selected column still has archived cards."))

	two := HardDeletePrompt(a, Selection{ColumnIDs: []int64{10, 11, 12}})
	assert.True(t, strings.HasPrefix(two, "WARNING: 2 selected columns still have archived cards."))
}

func TestHardDeleteRequiresExactToken(t *testing.T) {
	for _, typed := range []string{"", "delete", " DELETE", "DELETE "} {
		o, gw, _, conf := newFixture(models.RoleMember)
		conf.Answers = []string{typed}
		_, err := o.HardDeleteSelection(context.Background(), archiveFixture(), Selection{CardIDs: []string{"a1"}})
		assert.ErrorIs(t, err, ErrCancelled, "typed %q", typed)
		assert.Empty(t, gw.ops())
	}
}

func TestHardDeleteOrderAndForce(t *testing.T) {
	o, gw, fb, conf := newFixture(models.RoleMember)
	conf.Answers = []string{"DELETE"}
	sel := Selection{ColumnIDs: []int64{10, 11, 12}, CardIDs: []string{"a1", "a3"}}

	notice, err := o.HardDeleteSelection(context.Background(), archiveFixture(), sel)
	require.NoError(t, err)
	assert.Equal(t, "Permanently deleted 5 item(s).", notice)
	assert.Equal(t, []string{"purge-card:a1", "purge-card:a3", "purge-column:10", "purge-column:11", "purge-column:12"}, gw.ops())

	forces := map[string]bool{}
	for _, c := range gw.calls {
		if c.op == "purge-column" {
			forces[c.id] = c.force
		}
	}
	// 10 lost its only archived card first, 11 still holds a2
	assert.Equal(t, map[string]bool{"10": false, "11": true, "12": false}, forces)
	assert.Equal(t, 1, fb.reloadCount())
	assert.Contains(t, conf.Asked[0], "WARNING: 2 selected columns still have archived cards.")
}

func TestHardDeleteRejectsLiveItems(t *testing.T) {
	o, gw, _, conf := newFixture(models.RoleMember)
	conf.Answers = []string{"DELETE"}

	_, err := o.HardDeleteSelection(context.Background(), archiveFixture(), Selection{CardIDs: []string{"c1"}})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Empty(t, conf.Asked)
	assert.Empty(t, gw.ops())
}

func TestRestoreSelectionPartialFailure(t *testing.T) {
	o, gw, fb, _ := newFixture(models.RoleViewer)
	gw.failOn = "restore-card:a2"
	gw.failErr = &api.Error{Kind: api.KindConflict, Status: 409, Message: "Column is archived"}
	sel := Selection{CardIDs: []string{"a1", "a2", "a3"}, ColumnIDs: []int64{10}}

	_, err := o.RestoreSelection(context.Background(), archiveFixture(), sel)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "card a2", be.Item)
	assert.Equal(t, 2, be.Done)
	assert.True(t, api.IsKind(err, api.KindConflict))
	// columns first, then cards, stopping at the failure
	assert.Equal(t, []string{"restore-column:10", "restore-card:a1", "restore-card:a2"}, gw.ops())
	assert.Equal(t, 1, fb.reloadCount())
}

func TestRestoreSelectionEmpty(t *testing.T) {
	o, _, _, _ := newFixture(models.RoleMember)
	_, err := o.RestoreSelection(context.Background(), archiveFixture(), Selection{})
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func TestNoBoardSelected(t *testing.T) {
	o, _, fb, _ := newFixture(models.RoleOwner)
	fb.view.ActiveBoardID = ""
	_, err := o.ArchiveCard(context.Background(), "c1")
	assert.EqualError(t, err, "validation: No board selected.")
	_, err = o.Archive(context.Background())
	assert.True(t, errors.As(err, new(*api.Error)))
}
