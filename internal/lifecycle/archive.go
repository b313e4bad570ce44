package lifecycle

import (
	"context"
	"fmt"

	"roomboard/internal/api"
	"roomboard/internal/models"
	"roomboard/internal/session"
)

// DeleteToken must be typed exactly to confirm a hard delete.
const DeleteToken = "DELETE"

// Selection is a mixed set of archived columns and cards picked in the archive view.
type Selection struct {
	ColumnIDs []int64
	CardIDs   []string
}

func (s Selection) Len() int { return len(s.ColumnIDs) + len(s.CardIDs) }

// BatchError reports a batch that stopped at Item. The Done items before it stay applied.
type BatchError struct {
	Op   string
	Item string
	Done int
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s stopped at %s after %d item(s): %s", e.Op, e.Item, e.Done, api.UserMessage(e.Err, "request failed"))
}

func (e *BatchError) Unwrap() error { return e.Err }

// Archive loads the archive view of the active board.
func (o *Orchestrator) Archive(ctx context.Context) (models.Archive, error) {
	t, err := o.target()
	if err != nil {
		return models.Archive{}, err
	}
	a, err := o.gw.BoardArchive(ctx, t.roomID, t.boardID)
	if err != nil {
		return models.Archive{}, api.Messages{Fallback: "Could not load archived items."}.Wrap("load archive", err)
	}
	return a, nil
}

// checkSelection makes sure every selected item may move to the target state. Items missing
// from the archive count as active, which can be neither restored nor purged.
func checkSelection(a models.Archive, sel Selection, to models.State) error {
	if sel.Len() == 0 {
		return api.Invalid("selection", "Select items to restore or remove.")
	}
	state := func(archived bool) models.State {
		if archived {
			return models.StateArchived
		}
		return models.StateActive
	}
	for _, id := range sel.ColumnIDs {
		if !models.CanTransition(state(a.HasColumn(id)), to) {
			return api.Invalid("selection", fmt.Sprintf("Column %d is not archived.", id))
		}
	}
	for _, id := range sel.CardIDs {
		_, ok := a.Card(id)
		if !models.CanTransition(state(ok), to) {
			return api.Invalid("selection", fmt.Sprintf("Card %s is not archived.", id))
		}
	}
	return nil
}

// HardDeletePrompt is the text shown before a hard delete. The cascade warning is only
// included when a selected column still holds archived cards.
func HardDeletePrompt(a models.Archive, sel Selection) string {
	msg := ""
	if n := len(a.ColumnsWithArchivedCards(sel.ColumnIDs)); n > 0 {
		noun, verb := "column", "has"
		if n != 1 {
			noun, verb = "columns", "have"
		}
		msg = fmt.Sprintf("WARNING: %d selected %s still %s archived cards. "+
			"Those cards will be moved to the first active column if one exists.\n\n", n, noun, verb)
	}
	return msg + "Type DELETE to permanently remove the selected archived items. This action cannot be undone."
}

// RestoreSelection restores columns first, then cards, one at a time. It stops at the first
// failure; items restored before it stay restored.
func (o *Orchestrator) RestoreSelection(ctx context.Context, a models.Archive, sel Selection) (string, error) {
	if err := checkSelection(a, sel, models.StateActive); err != nil {
		return "", err
	}
	t, done, err := o.begin("restore-selection", 0)
	if err != nil {
		return "", err
	}
	defer done()

	n := 0
	fail := func(item string, err error) (string, error) {
		if n > 0 {
			o.reload(ctx, "restore-selection")
		}
		return "", &BatchError{Op: "restore", Item: item, Done: n, Err: err}
	}
	for _, id := range sel.ColumnIDs {
		if _, err := o.gw.RestoreColumn(ctx, t.roomID, t.boardID, id); err != nil {
			return fail(fmt.Sprintf("column %d", id), err)
		}
		n++
	}
	for _, id := range sel.CardIDs {
		card, _ := a.Card(id)
		if _, err := o.gw.RestoreCard(ctx, t.roomID, t.boardID, card.ColumnID, id); err != nil {
			return fail("card "+id, err)
		}
		n++
	}
	o.reload(ctx, "restore-selection")
	return fmt.Sprintf("Restored %d archived item(s).", n), nil
}

// HardDeleteSelection permanently removes archived items after the user types DELETE.
// Cards go first, then columns; a column that still holds archived cards outside the
// selection is deleted with force so the server relocates them.
func (o *Orchestrator) HardDeleteSelection(ctx context.Context, a models.Archive, sel Selection) (string, error) {
	if err := checkSelection(a, sel, models.StatePurged); err != nil {
		return "", err
	}
	t, done, err := o.begin("hard-delete-selection", session.Write)
	if err != nil {
		return "", err
	}
	defer done()

	typed, err := o.confirm.Prompt(ctx, HardDeletePrompt(a, sel))
	if err != nil {
		return "", err
	}
	if typed != DeleteToken {
		return "", ErrCancelled
	}

	selected := make(map[string]bool, len(sel.CardIDs))
	for _, id := range sel.CardIDs {
		selected[id] = true
	}
	n := 0
	fail := func(item string, err error) (string, error) {
		if n > 0 {
			o.reload(ctx, "hard-delete-selection")
		}
		return "", &BatchError{Op: "hard delete", Item: item, Done: n, Err: err}
	}
	for _, id := range sel.CardIDs {
		card, _ := a.Card(id)
		if err := o.gw.HardDeleteCard(ctx, t.roomID, t.boardID, card.ColumnID, id); err != nil {
			return fail("card "+id, err)
		}
		n++
	}
	for _, id := range sel.ColumnIDs {
		force := false
		for _, c := range a.Cards {
			if c.ColumnID == id && !selected[c.PublicID] {
				force = true
				break
			}
		}
		if err := o.gw.HardDeleteColumn(ctx, t.roomID, t.boardID, id, force); err != nil {
			return fail(fmt.Sprintf("column %d", id), err)
		}
		n++
	}
	o.reload(ctx, "hard-delete-selection")
	return fmt.Sprintf("Permanently deleted %d item(s).", n), nil
}
