package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"roomboard/internal/api"
	"roomboard/internal/session"
)

const (
	MinColumnTitle = 3

	ArchiveColumnQuestion = "Archive this entire column and its cards?"
)

// ColumnDraft is the column form as typed: WIPLimit is raw text.
type ColumnDraft struct {
	Title    string
	WIPLimit string
}

var columnFailed = api.Messages{Fallback: "Could not update column."}

// parseWIPLimit reads a non-negative integer. ok is false for text that is not one; blank
// text is a valid "no limit".
func parseWIPLimit(s string) (limit *int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, false
	}
	return &n, true
}

func validColumnTitle(title string) error {
	if utf8.RuneCountInString(title) < MinColumnTitle {
		return api.Invalid("title", fmt.Sprintf("Column title must be at least %d characters long.", MinColumnTitle))
	}
	return nil
}

// CreateColumn adds a column to the active board. An unparseable WIP limit becomes no limit.
func (o *Orchestrator) CreateColumn(ctx context.Context, d ColumnDraft) (string, error) {
	title := strings.TrimSpace(d.Title)
	if err := validColumnTitle(title); err != nil {
		return "", err
	}
	limit, _ := parseWIPLimit(d.WIPLimit)

	t, done, err := o.begin("create-column", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	if _, err := o.gw.CreateColumn(ctx, t.roomID, t.boardID, api.ColumnInput{Title: title, WIPLimit: limit}); err != nil {
		return "", columnFailed.Wrap("create column", err)
	}
	o.reload(ctx, "create-column")
	return "Column created.", nil
}

// UpdateColumn edits a live column. A blank title keeps the current one; a WIP limit that
// does not parse keeps the current limit and a blank one clears it.
func (o *Orchestrator) UpdateColumn(ctx context.Context, columnID int64, d ColumnDraft) (string, error) {
	t, done, err := o.begin("update-column", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	col, ok := t.view.Column(columnID)
	if !ok {
		return "", api.Invalid("column", "Column not found on this board.")
	}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = col.Title
	} else if err := validColumnTitle(title); err != nil {
		return "", err
	}
	limit, ok := parseWIPLimit(d.WIPLimit)
	if !ok {
		limit = col.WIPLimit
	}

	if _, err := o.gw.UpdateColumn(ctx, t.roomID, t.boardID, columnID, api.ColumnInput{Title: title, WIPLimit: limit}); err != nil {
		return "", columnFailed.Wrap("update column", err)
	}
	o.reload(ctx, "update-column")
	return "Column updated.", nil
}

// ArchiveColumn asks for confirmation, then archives the column together with its cards.
func (o *Orchestrator) ArchiveColumn(ctx context.Context, columnID int64) (string, error) {
	t, done, err := o.begin("archive-column", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	if _, ok := t.view.Column(columnID); !ok {
		return "", api.Invalid("column", "Column not found on this board.")
	}
	ok, err := o.confirm.Confirm(ctx, ArchiveColumnQuestion)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCancelled
	}
	if err := o.gw.ArchiveColumn(ctx, t.roomID, t.boardID, columnID); err != nil {
		return "", api.Messages{Fallback: "Could not archive column."}.Wrap("archive column", err)
	}
	o.reload(ctx, "archive-column")
	return "Column archived.", nil
}

// RestoreColumn brings an archived column back. It is not gated on the role.
func (o *Orchestrator) RestoreColumn(ctx context.Context, columnID int64) (string, error) {
	t, done, err := o.begin("restore-column", 0)
	if err != nil {
		return "", err
	}
	defer done()
	if _, err := o.gw.RestoreColumn(ctx, t.roomID, t.boardID, columnID); err != nil {
		return "", api.Messages{Fallback: "Could not restore column."}.Wrap("restore column", err)
	}
	o.reload(ctx, "restore-column")
	return "Column restored.", nil
}

// ReorderColumns sends the new lane order. Every id must be a distinct live column.
func (o *Orchestrator) ReorderColumns(ctx context.Context, columnIDs []int64) (string, error) {
	t, done, err := o.begin("reorder-columns", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	if len(columnIDs) == 0 {
		return "", api.Invalid("column_ids", "Provide the columns in their new order.")
	}
	seen := make(map[int64]bool, len(columnIDs))
	for _, id := range columnIDs {
		if seen[id] {
			return "", api.Invalid("column_ids", fmt.Sprintf("Column %d is listed twice.", id))
		}
		seen[id] = true
		if _, ok := t.view.Column(id); !ok {
			return "", api.Invalid("column_ids", fmt.Sprintf("Column %d is not on this board.", id))
		}
	}
	if _, err := o.gw.ReorderColumns(ctx, t.roomID, t.boardID, columnIDs); err != nil {
		return "", api.Messages{Fallback: "Could not reorder columns."}.Wrap("reorder columns", err)
	}
	o.reload(ctx, "reorder-columns")
	return "Columns reordered.", nil
}
