package api

import (
	"context"
	"fmt"
	"net/http"

	"roomboard/internal/models"
)

// ColumnInput is the body of column create and update. A nil WIPLimit is sent as null.
type ColumnInput struct {
	Title    string `json:"title"`
	WIPLimit *int   `json:"wip_limit"`
}

type CardInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// CardPatch updates a card; nil fields are left untouched. Setting ColumnID moves the card.
type CardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ColumnID    *int64  `json:"column_id,omitempty"`
}

type ColumnPosition struct {
	ID       int64   `json:"id"`
	Position float64 `json:"position"`
}

type CardPosition struct {
	ID       string  `json:"id"`
	ColumnID int64   `json:"column_id"`
	Position float64 `json:"position"`
}

func boardPath(roomID, boardID string) string {
	return fmt.Sprintf("/api/rooms/%s/boards/%s", esc(roomID), esc(boardID))
}

func columnPath(roomID, boardID string, columnID int64) string {
	return fmt.Sprintf("%s/columns/%d", boardPath(roomID, boardID), columnID)
}

func cardPath(roomID, boardID string, columnID int64, cardID string) string {
	return fmt.Sprintf("%s/cards/%s", columnPath(roomID, boardID, columnID), esc(cardID))
}

func checkBoard(roomID, boardID string) error {
	return firstErr(requireID("room id", roomID), requireID("board id", boardID))
}

// BoardIDs lists the public ids of the room's boards in server order.
func (c *Client) BoardIDs(ctx context.Context, roomID string) ([]string, error) {
	if err := requireID("room id", roomID); err != nil {
		return nil, err
	}
	var out struct {
		Boards []string `json:"boards"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/%s/boards", esc(roomID)), nil, &out); err != nil {
		return nil, err
	}
	return out.Boards, nil
}

func (c *Client) BoardDetail(ctx context.Context, roomID, boardID string) (models.BoardDetail, error) {
	if err := checkBoard(roomID, boardID); err != nil {
		return models.BoardDetail{}, err
	}
	var out models.BoardDetail
	err := c.do(ctx, http.MethodGet, boardPath(roomID, boardID), nil, &out)
	return out, err
}

func (c *Client) CreateBoard(ctx context.Context, roomID, name string) (models.Board, error) {
	if err := requireID("room id", roomID); err != nil {
		return models.Board{}, err
	}
	var out struct {
		Board models.Board `json:"board"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/rooms/%s/boards", esc(roomID)), map[string]string{"name": name}, &out)
	return out.Board, err
}

func (c *Client) UpdateBoard(ctx context.Context, roomID, boardID, name string) (models.Board, error) {
	if err := checkBoard(roomID, boardID); err != nil {
		return models.Board{}, err
	}
	var out struct {
		Board models.Board `json:"board"`
	}
	err := c.do(ctx, http.MethodPatch, boardPath(roomID, boardID), map[string]string{"name": name}, &out)
	return out.Board, err
}

func (c *Client) CreateColumn(ctx context.Context, roomID, boardID string, in ColumnInput) (models.Column, error) {
	if err := checkBoard(roomID, boardID); err != nil {
		return models.Column{}, err
	}
	var out struct {
		BoardID string        `json:"board_id"`
		Column  models.Column `json:"column"`
	}
	err := c.do(ctx, http.MethodPost, boardPath(roomID, boardID)+"/columns", in, &out)
	return out.Column, err
}

func (c *Client) UpdateColumn(ctx context.Context, roomID, boardID string, columnID int64, in ColumnInput) (models.Column, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return models.Column{}, err
	}
	var out struct {
		Column models.Column `json:"column"`
	}
	err := c.do(ctx, http.MethodPatch, columnPath(roomID, boardID, columnID), in, &out)
	return out.Column, err
}

// ReorderColumns sends the full lane order; the server assigns new positions.
func (c *Client) ReorderColumns(ctx context.Context, roomID, boardID string, columnIDs []int64) ([]ColumnPosition, error) {
	if err := checkBoard(roomID, boardID); err != nil {
		return nil, err
	}
	var out struct {
		Columns []ColumnPosition `json:"columns"`
	}
	body := map[string]any{"column_ids": columnIDs}
	err := c.do(ctx, http.MethodPatch, boardPath(roomID, boardID)+"/columns/reorder", body, &out)
	return out.Columns, err
}

// ArchiveColumn soft-deletes the column; the server archives its cards with it.
func (c *Client) ArchiveColumn(ctx context.Context, roomID, boardID string, columnID int64) error {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, columnPath(roomID, boardID, columnID), nil, nil)
}

func (c *Client) RestoreColumn(ctx context.Context, roomID, boardID string, columnID int64) (models.Column, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return models.Column{}, err
	}
	var out struct {
		Column models.Column `json:"column"`
	}
	err := c.do(ctx, http.MethodPost, columnPath(roomID, boardID, columnID)+"/restore", nil, &out)
	return out.Column, err
}

// HardDeleteColumn permanently removes an archived column. force lets the server relocate
// archived cards still attached to it.
func (c *Client) HardDeleteColumn(ctx context.Context, roomID, boardID string, columnID int64, force bool) error {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/archive/columns/%d", boardPath(roomID, boardID), columnID)
	if force {
		path += "?force=true"
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) CreateCard(ctx context.Context, roomID, boardID string, columnID int64, in CardInput) (models.Card, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return models.Card{}, err
	}
	var out struct {
		Card models.Card `json:"card"`
	}
	err := c.do(ctx, http.MethodPost, columnPath(roomID, boardID, columnID)+"/cards", in, &out)
	return out.Card, err
}

// UpdateCard addresses the card through its current column.
func (c *Client) UpdateCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string, patch CardPatch) (models.Card, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID), requireID("card id", cardID)); err != nil {
		return models.Card{}, err
	}
	var out struct {
		Card models.Card `json:"card"`
	}
	err := c.do(ctx, http.MethodPatch, cardPath(roomID, boardID, columnID, cardID), patch, &out)
	return out.Card, err
}

func (c *Client) ReorderCards(ctx context.Context, roomID, boardID string, columnID int64, cardIDs []string) ([]CardPosition, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID)); err != nil {
		return nil, err
	}
	var out struct {
		Cards []CardPosition `json:"cards"`
	}
	body := map[string]any{"card_ids": cardIDs}
	err := c.do(ctx, http.MethodPatch, columnPath(roomID, boardID, columnID)+"/cards/reorder", body, &out)
	return out.Cards, err
}

func (c *Client) ArchiveCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) error {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID), requireID("card id", cardID)); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, cardPath(roomID, boardID, columnID, cardID), nil, nil)
}

func (c *Client) RestoreCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) (models.Card, error) {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID), requireID("card id", cardID)); err != nil {
		return models.Card{}, err
	}
	var out struct {
		Card models.Card `json:"card"`
	}
	err := c.do(ctx, http.MethodPost, cardPath(roomID, boardID, columnID, cardID)+"/restore", nil, &out)
	return out.Card, err
}

func (c *Client) HardDeleteCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) error {
	if err := firstErr(checkBoard(roomID, boardID), requirePositive("column id", columnID), requireID("card id", cardID)); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, cardPath(roomID, boardID, columnID, cardID)+"/hard", nil, nil)
}

// BoardArchive lists the archived columns and cards of a board.
func (c *Client) BoardArchive(ctx context.Context, roomID, boardID string) (models.Archive, error) {
	if err := checkBoard(roomID, boardID); err != nil {
		return models.Archive{}, err
	}
	var out models.Archive
	err := c.do(ctx, http.MethodGet, boardPath(roomID, boardID)+"/archive", nil, &out)
	return out, err
}
