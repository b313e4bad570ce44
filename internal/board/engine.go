// Package board keeps the view of a room's active board consistent across reloads and room
// switches. It is the only owner of board state; other components request a Reload after
// they write.
package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"roomboard/internal/api"
	"roomboard/internal/models"
	"roomboard/internal/prefs"
)

// LoadFailedMessage is shown when a load fails without a usable server message.
const LoadFailedMessage = "Failed to load board."

// Gateway is the part of the remote API the engine reads from.
type Gateway interface {
	Room(ctx context.Context, roomID string) (models.Room, error)
	BoardIDs(ctx context.Context, roomID string) ([]string, error)
	BoardDetail(ctx context.Context, roomID, boardID string) (models.BoardDetail, error)
}

// View is an immutable snapshot of the engine state.
type View struct {
	RoomID        string
	IsLoading     bool
	IsRefreshing  bool
	Err           error
	Room          *models.Room
	Board         *models.Board
	Columns       []models.Column
	ActiveBoardID string
}

// ErrorMessage is the text to show for Err, or "" when the last load succeeded.
func (v View) ErrorMessage() string {
	if v.Err == nil {
		return ""
	}
	return api.UserMessage(v.Err, LoadFailedMessage)
}

// Lanes returns the top-level columns in display order.
func (v View) Lanes() []models.Column {
	out := make([]models.Column, 0, len(v.Columns))
	for _, c := range v.Columns {
		if c.IsLane() {
			out = append(out, c)
		}
	}
	return out
}

func (v View) Column(id int64) (models.Column, bool) {
	for _, c := range v.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return models.Column{}, false
}

// Card finds a live card anywhere on the board.
func (v View) Card(id string) (models.Card, bool) {
	for _, c := range v.Columns {
		for _, card := range c.Cards {
			if card.ID == id {
				return card, true
			}
		}
	}
	return models.Card{}, false
}

// Empty reports the valid empty state: the room loaded but has no boards.
func (v View) Empty() bool {
	return v.Room != nil && v.Board == nil && v.Err == nil && !v.IsLoading
}

type Option func(*Engine)

func WithPrefs(s prefs.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.prefs = s
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine is safe for concurrent use. Network calls run outside the lock; each load carries
// a generation number and its result is applied only while that generation is current.
type Engine struct {
	gw    Gateway
	prefs prefs.Store
	log   *slog.Logger
	bus   *notifier

	mu        sync.Mutex
	gen       uint64
	roomID    string
	hasLoaded bool
	active    string
	view      View
}

func New(gw Gateway, opts ...Option) *Engine {
	e := &Engine{
		gw:    gw,
		prefs: prefs.NewMemoryStore(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		bus:   newNotifier(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// View returns the current snapshot.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

func (e *Engine) RoomID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roomID
}

// Subscribe delivers a snapshot after every state change until cancel is called.
func (e *Engine) Subscribe() (<-chan View, func()) {
	return e.bus.subscribe()
}

// SetRoom switches to roomID and loads it. A different room resets the loaded-once state
// and the active board immediately, before any data for the new room arrives. An empty id
// clears everything.
func (e *Engine) SetRoom(ctx context.Context, roomID string) View {
	e.mu.Lock()
	if roomID != e.roomID || roomID == "" {
		e.gen++
		e.roomID = roomID
		e.hasLoaded = false
		e.active = ""
		e.view = View{RoomID: roomID}
		e.publishLocked()
	}
	if roomID == "" {
		v := e.view
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()
	return e.Reload(ctx)
}

// SelectBoard makes boardID the preferred board of the current room and reloads. A board
// that is no longer listed falls back to the first one.
func (e *Engine) SelectBoard(ctx context.Context, boardID string) View {
	e.mu.Lock()
	e.active = boardID
	e.mu.Unlock()
	return e.Reload(ctx)
}

// Reload re-runs the load sequence for the current room, keeping the previous data visible
// while it runs. Only the most recently started load is applied.
func (e *Engine) Reload(ctx context.Context) View {
	e.mu.Lock()
	roomID := e.roomID
	if roomID == "" {
		v := e.view
		e.mu.Unlock()
		return v
	}
	e.gen++
	gen := e.gen
	previous := e.active
	e.view.IsLoading = !e.hasLoaded
	e.view.IsRefreshing = e.hasLoaded
	e.publishLocked()
	e.mu.Unlock()

	if previous == "" {
		id, err := e.prefs.ActiveBoard(ctx, roomID)
		switch {
		case err == nil:
			previous = id
		case !errors.Is(err, prefs.ErrNotFound):
			e.log.Warn("prefs read", "room", roomID, "err", err)
		}
	}

	res, err := e.load(ctx, roomID, previous)

	e.mu.Lock()
	if gen != e.gen {
		e.log.Debug("board load superseded", "room", roomID, "gen", gen)
		v := e.view
		e.mu.Unlock()
		return v
	}
	if err != nil {
		e.log.Info("board load", "room", roomID, "err", err)
		e.view.IsLoading = false
		e.view.IsRefreshing = false
		e.view.Err = err
		if !e.hasLoaded {
			e.view.Board = nil
			e.view.Columns = nil
			e.view.ActiveBoardID = ""
		}
		e.publishLocked()
		v := e.view
		e.mu.Unlock()
		return v
	}
	e.hasLoaded = true
	e.active = res.boardID
	e.view = View{
		RoomID:        roomID,
		Room:          res.room,
		Board:         res.board,
		Columns:       res.columns,
		ActiveBoardID: res.boardID,
	}
	e.publishLocked()
	v := e.view
	e.mu.Unlock()

	e.remember(ctx, roomID, res.boardID)
	return v
}

type loaded struct {
	room    *models.Room
	board   *models.Board
	columns []models.Column
	boardID string
}

func (e *Engine) load(ctx context.Context, roomID, previous string) (loaded, error) {
	var (
		room models.Room
		ids  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = e.gw.Room(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		ids, err = e.gw.BoardIDs(gctx, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return loaded{}, err
	}

	out := loaded{room: &room}
	boardID := pickBoard(ids, previous)
	if boardID == "" {
		return out, nil
	}
	detail, err := e.gw.BoardDetail(ctx, roomID, boardID)
	if err != nil {
		return loaded{}, err
	}
	b := detail.Board
	out.board = &b
	out.columns = normalize(detail.Columns)
	out.boardID = boardID
	return out, nil
}

// remember persists the active board. Failures only cost stability across runs.
func (e *Engine) remember(ctx context.Context, roomID, boardID string) {
	var err error
	if boardID == "" {
		err = e.prefs.Forget(ctx, roomID)
	} else {
		err = e.prefs.SetActiveBoard(ctx, roomID, boardID)
	}
	if err != nil {
		e.log.Warn("prefs write", "room", roomID, "err", err)
	}
}

func (e *Engine) publishLocked() { e.bus.publish(e.view) }
