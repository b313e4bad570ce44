package membership

import (
	"context"
	"sort"

	"golang.org/x/text/cases"

	"roomboard/internal/api"
	"roomboard/internal/models"
)

// SortMembers returns a copy ordered for display: most privileged role first, members with
// a display name before those without, then by case-folded label. The user id breaks any
// remaining tie so the order is total.
func SortMembers(ms []models.Member) []models.Member {
	out := append([]models.Member(nil), ms...)
	fold := cases.Fold()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if pa, pb := a.Role.Priority(), b.Role.Priority(); pa != pb {
			return pa > pb
		}
		if na, nb := a.HasDisplayName(), b.HasDisplayName(); na != nb {
			return na
		}
		if ka, kb := fold.String(a.Label()), fold.String(b.Label()); ka != kb {
			return ka < kb
		}
		return a.UserPublicID < b.UserPublicID
	})
	return out
}

// Blurb describes what the current user can do in a room.
func Blurb(r models.Role) string {
	switch r {
	case models.RoleOwner:
		return "You own this room"
	case models.RoleAdmin:
		return "You can manage this room"
	case models.RoleMember:
		return "You can collaborate here"
	default:
		return "You can view this room"
	}
}

// Rooms fetches the current user's rooms and remembers them for the overview.
func (e *Engine) Rooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := e.gw.Rooms(ctx)
	if err != nil {
		return nil, api.Messages{Fallback: "Unable to load your rooms right now."}.Wrap("load rooms", err)
	}
	for i := range rooms {
		rooms[i].Members = SortMembers(rooms[i].Members)
	}
	e.mu.Lock()
	e.rooms = rooms
	e.mu.Unlock()
	return rooms, nil
}

type RoomEntry struct {
	Room  models.Room
	Blurb string
}

type Overview struct {
	Owned  []RoomEntry
	Joined []RoomEntry
}

func (o Overview) Len() int { return len(o.Owned) + len(o.Joined) }

// Overview loads the rooms and splits them into owned and joined ones.
func (e *Engine) Overview(ctx context.Context) (Overview, error) {
	rooms, err := e.Rooms(ctx)
	if err != nil {
		return Overview{}, err
	}
	return splitRooms(rooms), nil
}

// Current returns the overview of the rooms as last loaded, without a request.
func (e *Engine) Current() Overview {
	e.mu.Lock()
	rooms := append([]models.Room(nil), e.rooms...)
	e.mu.Unlock()
	return splitRooms(rooms)
}

func splitRooms(rooms []models.Room) Overview {
	var ov Overview
	for _, r := range rooms {
		entry := RoomEntry{Room: r, Blurb: Blurb(r.Membership.Role)}
		if r.Membership.Role == models.RoleOwner {
			ov.Owned = append(ov.Owned, entry)
		} else {
			ov.Joined = append(ov.Joined, entry)
		}
	}
	return ov
}
