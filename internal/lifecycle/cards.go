package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"roomboard/internal/api"
	"roomboard/internal/models"
	"roomboard/internal/session"
)

// CardDraft is the card form. A nil Description leaves the description as it is; a zero
// ColumnID keeps the card where it is on update.
type CardDraft struct {
	Title       string
	Description *string
	ColumnID    int64
}

var cardFailed = api.Messages{Fallback: "Could not update card."}

func (o *Orchestrator) CreateCard(ctx context.Context, columnID int64, d CardDraft) (string, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return "", api.Invalid("title", "Please provide a card title.")
	}
	t, done, err := o.begin("create-card", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	if _, ok := t.view.Column(columnID); !ok {
		return "", api.Invalid("column", "Column not found on this board.")
	}
	if _, err := o.gw.CreateCard(ctx, t.roomID, t.boardID, columnID, api.CardInput{Title: title, Description: d.Description}); err != nil {
		return "", cardFailed.Wrap("create card", err)
	}
	o.reload(ctx, "create-card")
	return "Card created.", nil
}

// UpdateCard edits a live card. Setting ColumnID to another live column moves it there.
func (o *Orchestrator) UpdateCard(ctx context.Context, cardID string, d CardDraft) (string, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return "", api.Invalid("title", "Card title cannot be empty.")
	}
	t, done, err := o.begin("update-card", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	card, ok := t.view.Card(cardID)
	if !ok {
		return "", api.Invalid("card", "Card not found on this board.")
	}
	patch := api.CardPatch{Title: &title, Description: d.Description}
	moved := d.ColumnID != 0 && d.ColumnID != card.ColumnID
	if moved {
		if _, ok := t.view.Column(d.ColumnID); !ok {
			return "", api.Invalid("column", "Column not found on this board.")
		}
		patch.ColumnID = &d.ColumnID
	}
	if _, err := o.gw.UpdateCard(ctx, t.roomID, t.boardID, card.ColumnID, cardID, patch); err != nil {
		return "", cardFailed.Wrap("update card", err)
	}
	o.reload(ctx, "update-card")
	if moved {
		return "Card moved.", nil
	}
	return "Card updated.", nil
}

// MoveCard moves a live card to another column, keeping its title and description.
func (o *Orchestrator) MoveCard(ctx context.Context, cardID string, columnID int64) (string, error) {
	card, ok := o.board.View().Card(cardID)
	if !ok {
		return "", api.Invalid("card", "Card not found on this board.")
	}
	return o.UpdateCard(ctx, cardID, CardDraft{Title: card.Title, ColumnID: columnID})
}

// ArchiveCard archives a live card without asking.
func (o *Orchestrator) ArchiveCard(ctx context.Context, cardID string) (string, error) {
	t, done, err := o.begin("archive-card", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	card, ok := t.view.Card(cardID)
	if !ok {
		return "", api.Invalid("card", "Card not found on this board.")
	}
	if err := o.gw.ArchiveCard(ctx, t.roomID, t.boardID, card.ColumnID, cardID); err != nil {
		return "", api.Messages{Fallback: "Could not archive card."}.Wrap("archive card", err)
	}
	o.reload(ctx, "archive-card")
	return "Card archived.", nil
}

// RestoreCard brings an archived card back into its column. It is not gated on the role.
func (o *Orchestrator) RestoreCard(ctx context.Context, card models.ArchivedCard) (string, error) {
	t, done, err := o.begin("restore-card", 0)
	if err != nil {
		return "", err
	}
	defer done()
	if _, err := o.gw.RestoreCard(ctx, t.roomID, t.boardID, card.ColumnID, card.PublicID); err != nil {
		return "", api.Messages{Fallback: "Could not restore card."}.Wrap("restore card", err)
	}
	o.reload(ctx, "restore-card")
	return "Card restored.", nil
}

// ReorderCards sends the new card order of one column.
func (o *Orchestrator) ReorderCards(ctx context.Context, columnID int64, cardIDs []string) (string, error) {
	t, done, err := o.begin("reorder-cards", session.Write)
	if err != nil {
		return "", err
	}
	defer done()
	col, ok := t.view.Column(columnID)
	if !ok {
		return "", api.Invalid("column", "Column not found on this board.")
	}
	if len(cardIDs) == 0 {
		return "", api.Invalid("card_ids", "Provide the cards in their new order.")
	}
	inColumn := make(map[string]bool, len(col.Cards))
	for _, c := range col.Cards {
		inColumn[c.ID] = true
	}
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if seen[id] {
			return "", api.Invalid("card_ids", fmt.Sprintf("Card %s is listed twice.", id))
		}
		seen[id] = true
		if !inColumn[id] {
			return "", api.Invalid("card_ids", fmt.Sprintf("Card %s is not in column %q.", id, col.Title))
		}
	}
	if _, err := o.gw.ReorderCards(ctx, t.roomID, t.boardID, columnID, cardIDs); err != nil {
		return "", api.Messages{Fallback: "Could not reorder cards."}.Wrap("reorder cards", err)
	}
	o.reload(ctx, "reorder-cards")
	return "Cards reordered.", nil
}
