package lifecycle

import (
	"context"
	"strings"
	"unicode/utf8"

	"roomboard/internal/api"
	"roomboard/internal/session"
)

const (
	MinBoardName = 3
	MaxBoardName = 64
)

func validBoardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", api.Invalid("name", "Board name cannot be empty.")
	}
	if n := utf8.RuneCountInString(name); n < MinBoardName || n > MaxBoardName {
		return "", api.Invalid("name", "Board name must be between 3 and 64 characters.")
	}
	return name, nil
}

// RenameBoard renames the active board.
func (o *Orchestrator) RenameBoard(ctx context.Context, name string) (string, error) {
	name, err := validBoardName(name)
	if err != nil {
		return "", err
	}
	t, done, err := o.begin("rename-board", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	if _, err := o.gw.UpdateBoard(ctx, t.roomID, t.boardID, name); err != nil {
		return "", api.Messages{Fallback: "Could not update board name."}.Wrap("rename board", err)
	}
	o.reload(ctx, "rename-board")
	return "Board renamed.", nil
}

// CreateBoard adds a board to the current room and makes it the active one. It works on a
// room that has no boards yet.
func (o *Orchestrator) CreateBoard(ctx context.Context, name string) (string, error) {
	name, err := validBoardName(name)
	if err != nil {
		return "", err
	}
	if err := o.session.Require(session.Write); err != nil {
		return "", err
	}
	roomID := o.board.View().RoomID
	if roomID == "" {
		return "", api.Invalid("room", "No room selected.")
	}
	done, err := o.busy.Begin("create-board")
	if err != nil {
		return "", err
	}
	defer done()
	b, err := o.gw.CreateBoard(ctx, roomID, name)
	if err != nil {
		return "", api.Messages{Fallback: "Could not create board."}.Wrap("create board", err)
	}
	v := o.board.SelectBoard(ctx, b.PublicID)
	if v.Err != nil {
		o.log.Warn("reload after write", "action", "create-board", "err", v.Err)
	}
	return "Board created.", nil
}
