package membership

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomboard/internal/api"
	"roomboard/internal/models"
	"roomboard/internal/prompt"
	"roomboard/internal/session"
)

type roleCall struct {
	member       string
	role         models.Role
	confirmation string
}

type fakeGateway struct {
	mu        sync.Mutex
	rooms     []models.Room
	members   []models.Member
	invites   []models.Invite
	roleCalls []roleCall
	created   []api.InviteInput
	revoked   []string
	left      []string
	deleted   []string
	accepted  []string
	roomsHits int
	err       error
}

func (f *fakeGateway) Rooms(context.Context) ([]models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomsHits++
	return append([]models.Room(nil), f.rooms...), nil
}

func (f *fakeGateway) DeleteRoom(_ context.Context, roomID string) error {
	f.deleted = append(f.deleted, roomID)
	return f.err
}

func (f *fakeGateway) LeaveRoom(_ context.Context, roomID string) error {
	f.left = append(f.left, roomID)
	return f.err
}

func (f *fakeGateway) Members(context.Context, string) ([]models.Member, error) {
	return append([]models.Member(nil), f.members...), nil
}

func (f *fakeGateway) UpdateMemberRole(_ context.Context, _, memberID string, role models.Role, confirmation string) (models.Member, error) {
	f.roleCalls = append(f.roleCalls, roleCall{memberID, role, confirmation})
	return models.Member{UserPublicID: memberID, Role: role}, f.err
}

func (f *fakeGateway) Invites(context.Context, string) ([]models.Invite, error) {
	return append([]models.Invite(nil), f.invites...), nil
}

func (f *fakeGateway) CreateInvite(_ context.Context, _ string, in api.InviteInput) (models.Invite, error) {
	f.created = append(f.created, in)
	if f.err != nil {
		return models.Invite{}, f.err
	}
	return models.Invite{Code: "NEWCODE", Role: in.Role, MaxUses: 1}, nil
}

func (f *fakeGateway) RevokeInvite(_ context.Context, _, code string) error {
	f.revoked = append(f.revoked, code)
	return f.err
}

func (f *fakeGateway) AcceptInvite(_ context.Context, code string) (api.AcceptedInvite, error) {
	f.accepted = append(f.accepted, code)
	var res api.AcceptedInvite
	res.Room.Name = "Guild Hall"
	return res, f.err
}

func strPtr(s string) *string { return &s }

var (
	admin  = session.Session{UserPublicID: "admin", Role: models.RoleAdmin}
	member = session.Session{UserPublicID: "m", Role: models.RoleMember}
)

func TestRequiresConfirmation(t *testing.T) {
	assert.True(t, RequiresConfirmation(models.RoleViewer, models.RoleMember))
	assert.True(t, RequiresConfirmation(models.RoleMember, models.RoleAdmin))
	assert.False(t, RequiresConfirmation(models.RoleAdmin, models.RoleMember))
	assert.False(t, RequiresConfirmation(models.RoleMember, models.RoleMember))
}

func TestChangeRoleNoOpIsSilent(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, &prompt.Scripted{})
	notice, err := e.ChangeRole(context.Background(), admin, "r1", models.Member{UserPublicID: "u1", Role: models.RoleMember}, models.RoleMember, "")
	assert.NoError(t, err)
	assert.Empty(t, notice)
	assert.Empty(t, gw.roleCalls)
}

func TestChangeRoleDemotionSendsNoConfirmation(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, &prompt.Scripted{})
	m := models.Member{UserPublicID: "u1", Name: "Gimli", Role: models.RoleAdmin}

	notice, err := e.ChangeRole(context.Background(), admin, "r1", m, models.RoleViewer, "whatever")
	require.NoError(t, err)
	assert.Equal(t, "Gimli is now Viewer.", notice)
	assert.Equal(t, []roleCall{{"u1", models.RoleViewer, ""}}, gw.roleCalls)
}

func TestChangeRolePromotionNeedsTypedName(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, &prompt.Scripted{})
	m := models.Member{UserPublicID: "u1", Name: "Legolas Greenleaf", DisplayName: strPtr("Legolas"), Role: models.RoleViewer}
	ctx := context.Background()

	for _, typed := range []string{"", "   ", "legolas", "Legolas Greenleaf"} {
		_, err := e.ChangeRole(ctx, admin, "r1", m, models.RoleMember, typed)
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr, "typed %q", typed)
		assert.Equal(t, "Type Legolas to confirm promotion.", apiErr.Message)
		assert.Equal(t, "confirmation_name", apiErr.Field)
	}
	assert.Empty(t, gw.roleCalls)

	_, err := e.ChangeRole(ctx, admin, "r1", m, models.RoleAdmin, "  Legolas ")
	require.NoError(t, err)
	assert.Equal(t, []roleCall{{"u1", models.RoleAdmin, "Legolas"}}, gw.roleCalls)
}

func TestChangeRoleGuards(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, &prompt.Scripted{})
	ctx := context.Background()
	m := models.Member{UserPublicID: "u1", Name: "Sam", Role: models.RoleMember}

	_, err := e.ChangeRole(ctx, member, "r1", m, models.RoleViewer, "")
	assert.True(t, api.IsKind(err, api.KindValidation))

	owner := models.Member{UserPublicID: "o", Name: "Frodo", Role: models.RoleOwner}
	_, err = e.ChangeRole(ctx, admin, "r1", owner, models.RoleAdmin, "Frodo")
	assert.True(t, api.IsKind(err, api.KindValidation))

	_, err = e.ChangeRole(ctx, admin, "r1", m, models.RoleOwner, "Sam")
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Empty(t, gw.roleCalls)
}

func TestChangeRoleConflictMessage(t *testing.T) {
	gw := &fakeGateway{err: &api.Error{Kind: api.KindConflict, Status: 409, Message: "Conflict"}}
	e := New(gw, &prompt.Scripted{})
	_, err := e.ChangeRole(context.Background(), admin, "r1", models.Member{UserPublicID: "u1", Name: "Sam", Role: models.RoleMember}, models.RoleViewer, "")
	require.Error(t, err)
	assert.Equal(t, roleFailed.Conflict, err.Error())
	assert.True(t, api.IsKind(err, api.KindConflict))
}

func TestSortMembers(t *testing.T) {
	in := []models.Member{
		{UserPublicID: "5", Name: "zed", Role: models.RoleViewer},
		{UserPublicID: "4", Name: "bob", Role: models.RoleMember},
		{UserPublicID: "3", Name: "x", DisplayName: strPtr("Éowyn"), Role: models.RoleMember},
		{UserPublicID: "2", Name: "y", DisplayName: strPtr("aragorn"), Role: models.RoleMember},
		{UserPublicID: "1", Name: "Owner", Role: models.RoleOwner},
		{UserPublicID: "6", Name: "Admin", Role: models.RoleAdmin},
		{UserPublicID: "0", Name: "bob", Role: models.RoleMember},
	}
	got := SortMembers(in)

	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.UserPublicID
	}
	assert.Equal(t, []string{"1", "6", "2", "3", "0", "4", "5"}, ids)
	assert.Equal(t, "5", in[0].UserPublicID, "input is not reordered")
}

func TestInviteDraftDropsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		draft InviteDraft
		uses  *int
		hours *int
	}{
		{"defaults", NewInviteDraft(), intPtr(1), intPtr(168)},
		{"blank", InviteDraft{Role: models.RoleViewer}, nil, nil},
		{"zero and negative", InviteDraft{Role: models.RoleMember, MaxUses: "0", ExpiresInDays: "-3"}, nil, nil},
		{"not numbers", InviteDraft{Role: models.RoleMember, MaxUses: "many", ExpiresInDays: "soon"}, nil, nil},
		{"values", InviteDraft{Role: models.RoleMember, MaxUses: " 5 ", ExpiresInDays: "2"}, intPtr(5), intPtr(48)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.draft.InviteInput()
			require.NoError(t, err)
			assert.Equal(t, tt.uses, in.MaxUses)
			assert.Equal(t, tt.hours, in.ExpiresInHours)
		})
	}

	_, err := InviteDraft{Role: models.RoleAdmin}.InviteInput()
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func intPtr(n int) *int { return &n }

func TestInvitesRevokeAndValidity(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	gw := &fakeGateway{invites: []models.Invite{
		{Code: "A", Role: models.RoleMember, MaxUses: 2, Used: 0},
		{Code: "B", Role: models.RoleMember, MaxUses: 1, Used: 1, Remaining: 3},
		{Code: "C", Role: models.RoleViewer, MaxUses: 4, ExpiresAt: &past},
	}}
	e := New(gw, &prompt.Scripted{}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := e.Invites(ctx, member, "r1")
	assert.True(t, api.IsKind(err, api.KindValidation))

	invs, err := e.Invites(ctx, admin, "r1")
	require.NoError(t, err)
	require.Len(t, invs, 3)
	assert.Equal(t, 0, invs[1].Remaining)

	valid := e.ValidInvites("r1")
	require.Len(t, valid, 1)
	assert.Equal(t, "A", valid[0].Code)

	notice, err := e.RevokeInvite(ctx, admin, "r1", "A")
	require.NoError(t, err)
	assert.Equal(t, "Invite revoked.", notice)
	assert.Len(t, e.VisibleInvites("r1"), 2)
	assert.Empty(t, e.ValidInvites("r1"))

	inv, err := e.CreateInvite(ctx, admin, "r1", NewInviteDraft())
	require.NoError(t, err)
	assert.Equal(t, "NEWCODE", inv.Code)
	assert.Equal(t, 1, inv.Remaining)
	assert.Equal(t, "NEWCODE", e.VisibleInvites("r1")[0].Code)
}

func TestAcceptInvite(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, &prompt.Scripted{})
	ctx := context.Background()

	_, err := e.AcceptInvite(ctx, "   ")
	assert.EqualError(t, err, "validation: Enter an invite code to join a room.")
	assert.Empty(t, gw.accepted)

	notice, err := e.AcceptInvite(ctx, " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "Joined Guild Hall.", notice)
	assert.Equal(t, []string{"abc123"}, gw.accepted)
	assert.Equal(t, 1, gw.roomsHits)
}

func TestLeaveRoom(t *testing.T) {
	gw := &fakeGateway{}
	conf := &prompt.Scripted{}
	e := New(gw, conf)
	ctx := context.Background()
	room := models.Room{PublicID: "r1", Name: "Guild Hall", Membership: models.Membership{Role: models.RoleMember}}

	_, err := e.LeaveRoom(ctx, models.Room{PublicID: "r2", Membership: models.Membership{Role: models.RoleOwner}})
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Empty(t, conf.Asked)

	_, err = e.LeaveRoom(ctx, room)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, gw.left)

	conf.Confirms = []bool{true}
	next, err := e.LeaveRoom(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, "/rooms", next)
	assert.Equal(t, []string{"r1"}, gw.left)
}

func TestDeleteRoom(t *testing.T) {
	gw := &fakeGateway{rooms: []models.Room{
		{PublicID: "r1", Name: "Guild Hall", Membership: models.Membership{Role: models.RoleOwner}},
		{PublicID: "r2", Name: "Tavern", Membership: models.Membership{Role: models.RoleViewer}},
	}}
	e := New(gw, &prompt.Scripted{})
	ctx := context.Background()
	ov, err := e.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, ov.Owned, 1)
	require.Len(t, ov.Joined, 1)
	assert.Equal(t, "You own this room", ov.Owned[0].Blurb)
	assert.Equal(t, "You can view this room", ov.Joined[0].Blurb)

	_, err = e.DeleteRoom(ctx, gw.rooms[1], "DELETE")
	assert.EqualError(t, err, "validation: Only the owner can delete this room.")

	_, err = e.DeleteRoom(ctx, gw.rooms[0], "remove")
	assert.EqualError(t, err, "validation: Type DELETE to confirm.")
	assert.Empty(t, gw.deleted)

	notice, err := e.DeleteRoom(ctx, gw.rooms[0], "  delete ")
	require.NoError(t, err)
	assert.Equal(t, "Deleted Guild Hall.", notice)
	assert.Equal(t, []string{"r1"}, gw.deleted)
	assert.Equal(t, 1, e.Current().Len())
}

func TestDeleteRoomServerFailure(t *testing.T) {
	gw := &fakeGateway{err: &api.Error{Kind: api.KindNetwork, Status: 500, Message: "Internal Server Error"}}
	e := New(gw, &prompt.Scripted{})
	room := models.Room{PublicID: "r1", Membership: models.Membership{Role: models.RoleOwner}}
	_, err := e.DeleteRoom(context.Background(), room, "DELETE")
	assert.EqualError(t, err, "Failed to delete room.")
}

func TestBlurbs(t *testing.T) {
	assert.Equal(t, "You can manage this room", Blurb(models.RoleAdmin))
	assert.Equal(t, "You can collaborate here", Blurb(models.RoleMember))
}
