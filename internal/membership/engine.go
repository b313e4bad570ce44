// Package membership handles who is in a room and with which role: member listing and role
// changes, invites, joining, leaving and deleting rooms.
package membership

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"roomboard/internal/api"
	"roomboard/internal/inflight"
	"roomboard/internal/models"
	"roomboard/internal/prompt"
	"roomboard/internal/session"
)

var (
	ErrBusy      = inflight.ErrBusy
	ErrCancelled = prompt.ErrCancelled
)

type Gateway interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	LeaveRoom(ctx context.Context, roomID string) error
	Members(ctx context.Context, roomID string) ([]models.Member, error)
	UpdateMemberRole(ctx context.Context, roomID, memberID string, role models.Role, confirmationName string) (models.Member, error)
	Invites(ctx context.Context, roomID string) ([]models.Invite, error)
	CreateInvite(ctx context.Context, roomID string, in api.InviteInput) (models.Invite, error)
	RevokeInvite(ctx context.Context, roomID, code string) error
	AcceptInvite(ctx context.Context, code string) (api.AcceptedInvite, error)
}

type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock replaces time.Now for invite validity checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine keeps the last fetched rooms, members and invites. It never edits them locally
// except for dropping a revoked invite or a deleted room; everything else is re-fetched.
type Engine struct {
	gw      Gateway
	confirm prompt.Confirmer
	log     *slog.Logger
	now     func() time.Time
	busy    inflight.Guard

	mu      sync.Mutex
	rooms   []models.Room
	members map[string][]models.Member
	invites map[string][]models.Invite
}

func New(gw Gateway, confirm prompt.Confirmer, opts ...Option) *Engine {
	e := &Engine{
		gw:      gw,
		confirm: confirm,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		members: make(map[string][]models.Member),
		invites: make(map[string][]models.Invite),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequiresConfirmation reports whether changing from current to target is a promotion.
func RequiresConfirmation(current, target models.Role) bool {
	return target.Priority() > current.Priority()
}

// Members loads the room's members in display order.
func (e *Engine) Members(ctx context.Context, roomID string) ([]models.Member, error) {
	ms, err := e.gw.Members(ctx, roomID)
	if err != nil {
		return nil, api.Messages{Fallback: "Unable to load members right now."}.Wrap("load members", err)
	}
	ms = SortMembers(ms)
	e.mu.Lock()
	e.members[roomID] = ms
	e.mu.Unlock()
	return ms, nil
}

var roleFailed = api.Messages{
	Fallback: "Could not update role.",
	Conflict: "That member's role changed in the meantime. Reload the member list and try again.",
}

// ChangeRole sets member's role to target. Selecting the current role does nothing.
// A promotion must be confirmed by typing the member's name as shown in the list.
func (e *Engine) ChangeRole(ctx context.Context, s session.Session, roomID string, member models.Member, target models.Role, typedName string) (string, error) {
	if target == member.Role {
		return "", nil
	}
	if err := s.Require(session.Admin); err != nil {
		return "", err
	}
	if member.Role == models.RoleOwner {
		return "", api.Invalid("role", "The owner's role cannot be changed here.")
	}
	if !target.Editable() {
		return "", api.Invalid("role", "Choose Viewer, Member or Admin.")
	}
	confirmation := ""
	if RequiresConfirmation(member.Role, target) {
		label := member.Label()
		typed := strings.TrimSpace(typedName)
		if typed == "" || typed != strings.TrimSpace(label) {
			return "", api.Invalid("confirmation_name", fmt.Sprintf("Type %s to confirm promotion.", label))
		}
		confirmation = typed
	}

	done, err := e.busy.Begin("role:" + member.UserPublicID)
	if err != nil {
		return "", err
	}
	defer done()
	if _, err := e.gw.UpdateMemberRole(ctx, roomID, member.UserPublicID, target, confirmation); err != nil {
		return "", roleFailed.Wrap("update role", err)
	}
	if _, err := e.Members(ctx, roomID); err != nil {
		e.log.Warn("reload members", "room", roomID, "err", err)
	}
	return fmt.Sprintf("%s is now %s.", member.Label(), target.Label()), nil
}

// InviteDraft is the invite form as typed. NewInviteDraft holds the form defaults.
type InviteDraft struct {
	Role          models.Role
	MaxUses       string
	ExpiresInDays string
}

func NewInviteDraft() InviteDraft {
	return InviteDraft{Role: models.RoleMember, MaxUses: "1", ExpiresInDays: "7"}
}

// positive parses s as a positive integer; anything else is dropped.
func positive(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// InviteInput turns a draft into the request body. Values that are not positive numbers are
// left out so the server applies its defaults.
func (d InviteDraft) InviteInput() (api.InviteInput, error) {
	if !d.Role.Invitable() {
		return api.InviteInput{}, api.Invalid("role", "Invites can only grant Viewer or Member.")
	}
	in := api.InviteInput{Role: d.Role, MaxUses: positive(d.MaxUses)}
	if days := positive(d.ExpiresInDays); days != nil {
		hours := *days * 24
		in.ExpiresInHours = &hours
	}
	return in, nil
}

func (e *Engine) Invites(ctx context.Context, s session.Session, roomID string) ([]models.Invite, error) {
	if err := s.Require(session.Admin); err != nil {
		return nil, err
	}
	invs, err := e.gw.Invites(ctx, roomID)
	if err != nil {
		return nil, api.Messages{Fallback: "Could not load invites."}.Wrap("load invites", err)
	}
	out := make([]models.Invite, len(invs))
	for i, inv := range invs {
		out[i] = inv.Normalized()
	}
	e.mu.Lock()
	e.invites[roomID] = out
	e.mu.Unlock()
	return out, nil
}

func (e *Engine) CreateInvite(ctx context.Context, s session.Session, roomID string, d InviteDraft) (models.Invite, error) {
	if err := s.Require(session.Admin); err != nil {
		return models.Invite{}, err
	}
	in, err := d.InviteInput()
	if err != nil {
		return models.Invite{}, err
	}
	done, err := e.busy.Begin("create-invite")
	if err != nil {
		return models.Invite{}, err
	}
	defer done()
	inv, err := e.gw.CreateInvite(ctx, roomID, in)
	if err != nil {
		return models.Invite{}, api.Messages{Fallback: "Could not create invite."}.Wrap("create invite", err)
	}
	inv = inv.Normalized()
	e.mu.Lock()
	e.invites[roomID] = append([]models.Invite{inv}, e.invites[roomID]...)
	e.mu.Unlock()
	return inv, nil
}

// RevokeInvite deletes the invite and drops it from the visible set. There is no undo.
func (e *Engine) RevokeInvite(ctx context.Context, s session.Session, roomID, code string) (string, error) {
	if err := s.Require(session.Admin); err != nil {
		return "", err
	}
	done, err := e.busy.Begin("revoke-invite:" + code)
	if err != nil {
		return "", err
	}
	defer done()
	if err := e.gw.RevokeInvite(ctx, roomID, code); err != nil {
		return "", api.Messages{Fallback: "Could not revoke invite."}.Wrap("revoke invite", err)
	}
	e.mu.Lock()
	kept := e.invites[roomID][:0:0]
	for _, inv := range e.invites[roomID] {
		if inv.Code != code {
			kept = append(kept, inv)
		}
	}
	e.invites[roomID] = kept
	e.mu.Unlock()
	return "Invite revoked.", nil
}

// VisibleInvites returns the invites as last fetched, minus revoked ones.
func (e *Engine) VisibleInvites(roomID string) []models.Invite {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Invite(nil), e.invites[roomID]...)
}

// ValidInvites is the subset of visible invites that can still be redeemed.
func (e *Engine) ValidInvites(roomID string) []models.Invite {
	now := e.now()
	var out []models.Invite
	for _, inv := range e.VisibleInvites(roomID) {
		if inv.Redeemable(now) {
			out = append(out, inv)
		}
	}
	return out
}

// AcceptInvite joins the room behind code and refreshes the room list.
func (e *Engine) AcceptInvite(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", api.Invalid("code", "Enter an invite code to join a room.")
	}
	done, err := e.busy.Begin("accept-invite")
	if err != nil {
		return "", err
	}
	defer done()
	res, err := e.gw.AcceptInvite(ctx, code)
	if err != nil {
		return "", api.Messages{Fallback: "Could not join the room."}.Wrap("accept invite", err)
	}
	if _, err := e.Rooms(ctx); err != nil {
		e.log.Warn("reload rooms", "err", err)
	}
	return fmt.Sprintf("Joined %s.", res.Room.Name), nil
}

// LeaveRoom removes the current user from room after confirmation. The owner cannot leave.
// On success the caller should navigate to the returned path.
func (e *Engine) LeaveRoom(ctx context.Context, room models.Room) (string, error) {
	s := session.FromRoom(room)
	if !s.Role.CanLeave() {
		return "", api.Invalid("role", "The owner cannot leave the room. Delete it instead.")
	}
	ok, err := e.confirm.Confirm(ctx, fmt.Sprintf("Leave %s? You will need a new invite to come back.", room.Name))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCancelled
	}
	done, err := e.busy.Begin("leave:" + room.PublicID)
	if err != nil {
		return "", err
	}
	defer done()
	if err := e.gw.LeaveRoom(ctx, room.PublicID); err != nil {
		return "", api.Messages{Fallback: "Could not leave the room."}.Wrap("leave room", err)
	}
	e.dropRoom(room.PublicID)
	return "/rooms", nil
}

// DeleteRoom deletes room and everything in it. Only the owner may, and only after typing
// DELETE in any letter case.
func (e *Engine) DeleteRoom(ctx context.Context, room models.Room, typed string) (string, error) {
	if !session.FromRoom(room).IsOwner() {
		return "", api.Invalid("role", "Only the owner can delete this room.")
	}
	if strings.ToUpper(strings.TrimSpace(typed)) != "DELETE" {
		return "", api.Invalid("confirmation", "Type DELETE to confirm.")
	}
	done, err := e.busy.Begin("delete-room:" + room.PublicID)
	if err != nil {
		return "", err
	}
	defer done()
	if err := e.gw.DeleteRoom(ctx, room.PublicID); err != nil {
		return "", api.Messages{Fallback: "Failed to delete room."}.Wrap("delete room", err)
	}
	e.dropRoom(room.PublicID)
	return fmt.Sprintf("Deleted %s.", room.Name), nil
}

func (e *Engine) dropRoom(roomID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.rooms[:0:0]
	for _, r := range e.rooms {
		if r.PublicID != roomID {
			kept = append(kept, r)
		}
	}
	e.rooms = kept
	delete(e.members, roomID)
	delete(e.invites, roomID)
}
