package models

import (
	"strings"
	"time"
)

type Room struct {
	PublicID   string         `json:"public_id"`
	Name       string         `json:"name"`
	Boards     []BoardSummary `json:"boards"`
	Members    []Member       `json:"members"`
	Membership Membership     `json:"membership"`
}

// Membership is the current user's relationship to a room.
type Membership struct {
	Role         Role   `json:"role"`
	UserPublicID string `json:"user_public_id"`
}

type Member struct {
	UserPublicID string  `json:"user_public_id"`
	DisplayName  *string `json:"display_name"`
	Name         string  `json:"name"`
	Email        *string `json:"email"`
	Role         Role    `json:"role"`
}

// HasDisplayName reports whether the member set a non-blank display name.
func (m Member) HasDisplayName() bool {
	return m.DisplayName != nil && strings.TrimSpace(*m.DisplayName) != ""
}

// Label is the name shown for a member: the display name, or the account name when unset.
func (m Member) Label() string {
	if m.HasDisplayName() {
		return strings.TrimSpace(*m.DisplayName)
	}
	return m.Name
}

type BoardSummary struct {
	PublicID string `json:"public_id"`
	Name     string `json:"name"`
}

type Board struct {
	PublicID string `json:"public_id"`
	Name     string `json:"name"`
	RoomID   string `json:"room_id"`
}

type Column struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Position   float64    `json:"position"`
	WIPLimit   *int       `json:"wip_limit"`
	ColumnType string     `json:"column_type,omitempty"`
	ParentID   *int64     `json:"parent_id"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	Cards      []Card     `json:"cards"`
}

// IsLane reports whether the column renders as a board lane (top-level, no parent).
func (c Column) IsLane() bool { return c.ParentID == nil }

func (c Column) Archived() bool { return c.DeletedAt != nil }

type Card struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Position    float64    `json:"position"`
	ColumnID    int64      `json:"column_id"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (c Card) Archived() bool { return c.DeletedAt != nil }

// BoardDetail is a board together with its columns and their nested cards.
type BoardDetail struct {
	Board   Board    `json:"board"`
	Columns []Column `json:"columns"`
}

type ArchivedColumn struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	DeletedAt *time.Time `json:"deleted_at"`
}

type ArchivedCard struct {
	PublicID  string     `json:"public_id"`
	Title     string     `json:"title"`
	ColumnID  int64      `json:"column_id"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// Archive is the archive view of a board: soft-deleted columns and cards.
type Archive struct {
	Columns []ArchivedColumn `json:"columns"`
	Cards   []ArchivedCard   `json:"cards"`
}

func (a Archive) Len() int { return len(a.Columns) + len(a.Cards) }

func (a Archive) HasColumn(id int64) bool {
	for _, c := range a.Columns {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (a Archive) Card(publicID string) (ArchivedCard, bool) {
	for _, c := range a.Cards {
		if c.PublicID == publicID {
			return c, true
		}
	}
	return ArchivedCard{}, false
}

// ColumnHasArchivedCards reports whether any archived card still points at the column.
func (a Archive) ColumnHasArchivedCards(columnID int64) bool {
	for _, c := range a.Cards {
		if c.ColumnID == columnID {
			return true
		}
	}
	return false
}

// ColumnsWithArchivedCards returns the subset of ids whose column still holds archived cards.
func (a Archive) ColumnsWithArchivedCards(ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if a.ColumnHasArchivedCards(id) {
			out = append(out, id)
		}
	}
	return out
}
