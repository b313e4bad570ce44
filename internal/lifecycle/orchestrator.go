// Package lifecycle runs user intents against the active board: create, edit, archive,
// restore and hard-delete of columns and cards, board rename, and batch operations from the
// archive view. It never touches board state itself; every successful write ends with a
// reload of the board engine.
package lifecycle

import (
	"context"
	"io"
	"log/slog"

	"roomboard/internal/api"
	"roomboard/internal/board"
	"roomboard/internal/inflight"
	"roomboard/internal/models"
	"roomboard/internal/prompt"
	"roomboard/internal/session"
)

var (
	ErrBusy      = inflight.ErrBusy
	ErrCancelled = prompt.ErrCancelled
)

// Gateway is the write side of the board API.
type Gateway interface {
	CreateBoard(ctx context.Context, roomID, name string) (models.Board, error)
	UpdateBoard(ctx context.Context, roomID, boardID, name string) (models.Board, error)
	CreateColumn(ctx context.Context, roomID, boardID string, in api.ColumnInput) (models.Column, error)
	UpdateColumn(ctx context.Context, roomID, boardID string, columnID int64, in api.ColumnInput) (models.Column, error)
	ReorderColumns(ctx context.Context, roomID, boardID string, columnIDs []int64) ([]api.ColumnPosition, error)
	ArchiveColumn(ctx context.Context, roomID, boardID string, columnID int64) error
	RestoreColumn(ctx context.Context, roomID, boardID string, columnID int64) (models.Column, error)
	HardDeleteColumn(ctx context.Context, roomID, boardID string, columnID int64, force bool) error
	CreateCard(ctx context.Context, roomID, boardID string, columnID int64, in api.CardInput) (models.Card, error)
	UpdateCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string, patch api.CardPatch) (models.Card, error)
	ReorderCards(ctx context.Context, roomID, boardID string, columnID int64, cardIDs []string) ([]api.CardPosition, error)
	ArchiveCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) error
	RestoreCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) (models.Card, error)
	HardDeleteCard(ctx context.Context, roomID, boardID string, columnID int64, cardID string) error
	BoardArchive(ctx context.Context, roomID, boardID string) (models.Archive, error)
}

// Board is the reconciliation engine as seen by the orchestrator.
type Board interface {
	View() board.View
	Reload(ctx context.Context) board.View
	SelectBoard(ctx context.Context, boardID string) board.View
}

type Option func(*Orchestrator)

func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

type Orchestrator struct {
	gw      Gateway
	board   Board
	session session.Session
	confirm prompt.Confirmer
	log     *slog.Logger
	busy    inflight.Guard
}

// New builds an orchestrator acting as sess on the board held by b.
func New(gw Gateway, b Board, sess session.Session, confirm prompt.Confirmer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:      gw,
		board:   b,
		session: sess,
		confirm: confirm,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether action is running, e.g. to disable the control that triggers it.
func (o *Orchestrator) Busy(action string) bool { return o.busy.Busy(action) }

type target struct {
	roomID  string
	boardID string
	view    board.View
}

func (o *Orchestrator) target() (target, error) {
	v := o.board.View()
	if v.RoomID == "" {
		return target{}, api.Invalid("room", "No room selected.")
	}
	if v.ActiveBoardID == "" {
		return target{}, api.Invalid("board", "No board selected.")
	}
	return target{roomID: v.RoomID, boardID: v.ActiveBoardID, view: v}, nil
}

// begin checks the capability, marks action busy and resolves the active board.
func (o *Orchestrator) begin(action string, need session.Capability) (target, func(), error) {
	if need != 0 {
		if err := o.session.Require(need); err != nil {
			return target{}, nil, err
		}
	}
	t, err := o.target()
	if err != nil {
		return target{}, nil, err
	}
	done, err := o.busy.Begin(action)
	if err != nil {
		return target{}, nil, err
	}
	return t, done, nil
}

func (o *Orchestrator) reload(ctx context.Context, action string) {
	v := o.board.Reload(ctx)
	if v.Err != nil {
		o.log.Warn("reload after write", "action", action, "err", v.Err)
	}
}
