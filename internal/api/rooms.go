package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"roomboard/internal/models"
)

// InviteInput is the body of invite creation. Nil fields let the server apply its defaults.
type InviteInput struct {
	Role           models.Role `json:"role"`
	MaxUses        *int        `json:"max_uses,omitempty"`
	ExpiresInHours *int        `json:"expires_in_hours,omitempty"`
}

type AcceptedInvite struct {
	Room struct {
		PublicID string `json:"public_id"`
		Name     string `json:"name"`
	} `json:"room"`
	Membership struct {
		Role models.Role `json:"role"`
	} `json:"membership"`
	Invite struct {
		Code string      `json:"code"`
		Role models.Role `json:"role"`
	} `json:"invite"`
}

func roomPath(roomID string) string { return "/api/rooms/" + esc(roomID) }

// Rooms lists every room the current user belongs to.
func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	var out struct {
		Rooms []models.Room `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) Room(ctx context.Context, roomID string) (models.Room, error) {
	if err := requireID("room id", roomID); err != nil {
		return models.Room{}, err
	}
	var out models.Room
	err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &out)
	return out, err
}

// CreateRoom returns the new room's public id.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	var out struct {
		PublicID string `json:"public_id"`
		Name     string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rooms", map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.PublicID) == "" {
		return "", &Error{Kind: KindUnknown, Status: http.StatusCreated, Message: "API did not return a valid public_id"}
	}
	return out.PublicID, nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	if err := requireID("room id", roomID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, roomPath(roomID), nil, nil)
}

// LeaveRoom removes the current user's membership.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	if err := requireID("room id", roomID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, roomPath(roomID)+"/membership", nil, nil)
}

func (c *Client) Members(ctx context.Context, roomID string) ([]models.Member, error) {
	if err := requireID("room id", roomID); err != nil {
		return nil, err
	}
	var out struct {
		Members []models.Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, roomPath(roomID)+"/members", nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// UpdateMemberRole changes a member's role. confirmationName is only sent when non-empty.
func (c *Client) UpdateMemberRole(ctx context.Context, roomID, memberID string, role models.Role, confirmationName string) (models.Member, error) {
	if err := firstErr(requireID("room id", roomID), requireID("member id", memberID)); err != nil {
		return models.Member{}, err
	}
	body := struct {
		Role             models.Role `json:"role"`
		ConfirmationName string      `json:"confirmation_name,omitempty"`
	}{role, confirmationName}
	var out struct {
		Member models.Member `json:"member"`
	}
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/members/%s", roomPath(roomID), esc(memberID)), body, &out)
	return out.Member, err
}

func (c *Client) Invites(ctx context.Context, roomID string) ([]models.Invite, error) {
	if err := requireID("room id", roomID); err != nil {
		return nil, err
	}
	var out struct {
		Invites []models.Invite `json:"invites"`
	}
	if err := c.do(ctx, http.MethodGet, roomPath(roomID)+"/invites", nil, &out); err != nil {
		return nil, err
	}
	return out.Invites, nil
}

func (c *Client) CreateInvite(ctx context.Context, roomID string, in InviteInput) (models.Invite, error) {
	if err := requireID("room id", roomID); err != nil {
		return models.Invite{}, err
	}
	var out struct {
		Invite models.Invite `json:"invite"`
	}
	err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/invites", in, &out)
	return out.Invite, err
}

func (c *Client) RevokeInvite(ctx context.Context, roomID, code string) error {
	if err := firstErr(requireID("room id", roomID), requireID("invite code", code)); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/invites/%s", roomPath(roomID), esc(code)), nil, nil)
}

func (c *Client) AcceptInvite(ctx context.Context, code string) (AcceptedInvite, error) {
	if err := requireID("invite code", code); err != nil {
		return AcceptedInvite{}, err
	}
	var out AcceptedInvite
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/invites/%s/accept", esc(code)), nil, &out)
	return out, err
}
