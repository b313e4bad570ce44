package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"roomboard/internal/api"
	"roomboard/internal/board"
	"roomboard/internal/config"
	"roomboard/internal/lifecycle"
	"roomboard/internal/membership"
	"roomboard/internal/models"
	"roomboard/internal/prefs"
	"roomboard/internal/prompt"
	"roomboard/internal/session"
)

var (
	flagRoom  string
	flagBoard string
	flagYes   bool
)

var rootCmd = &cobra.Command{
	Use:           "roomboard",
	Short:         "Kanban boards shared in rooms",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.LoadDotEnv(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error loading .env file, skipping:", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoom, "room", "", "room public id (default $ROOMBOARD_ROOM)")
	rootCmd.PersistentFlags().StringVar(&flagBoard, "board", "", "board public id (defaults to the remembered or first board)")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "answer yes to confirmations")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		return 1
	}
	return 0
}

// describe is the one line shown for a failed command.
func describe(err error) string {
	var op *api.OpError
	var batch *lifecycle.BatchError
	switch {
	case errors.Is(err, prompt.ErrCancelled):
		return "Cancelled."
	case errors.Is(err, lifecycle.ErrBusy):
		return "Another change is still in progress."
	case errors.As(err, &batch):
		return batch.Error()
	case errors.As(err, &op):
		return op.Message
	default:
		return api.UserMessage(err, err.Error())
	}
}

// app holds what every command needs. Build it with newApp and Close it when done.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	client  *api.Client
	prefs   prefs.Store
	confirm *prompt.Terminal
	out     io.Writer
	cmd     *cobra.Command

	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
	client, err := api.New(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(log),
		api.WithSessionCookie(cfg.SessionCookie, cfg.Session),
	)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		prefs:   prefs.NewMemoryStore(),
		confirm: prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr()),
		out:     cmd.OutOrStdout(),
		cmd:     cmd,
	}
	a.confirm.AssumeYes = flagYes
	if cfg.StateDSN != "" {
		pg, err := prefs.OpenPostgres(cmd.Context(), cfg.StateDSN)
		if err != nil {
			log.Warn("prefs store unavailable, using memory", "err", err)
		} else {
			a.prefs = pg
			a.closers = append(a.closers, pg.Close)
		}
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close", "err", err)
		}
	}
}

// run wraps a command body with app setup and teardown.
func run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}

// changed reports whether the named flag was set on the command line.
func (a *app) changed(name string) bool { return a.cmd.Flags().Changed(name) }

func (a *app) say(msg string) {
	if msg != "" {
		fmt.Fprintln(a.out, msg)
	}
}

func (a *app) requireRoom() (string, error) {
	if flagRoom != "" {
		return flagRoom, nil
	}
	if id := os.Getenv("ROOMBOARD_ROOM"); id != "" {
		return id, nil
	}
	return "", api.Invalid("room", "No room selected. Pass --room or set ROOMBOARD_ROOM.")
}

// openBoard loads the selected room, and the --board board when given.
func (a *app) openBoard(ctx context.Context) (*board.Engine, board.View, error) {
	roomID, err := a.requireRoom()
	if err != nil {
		return nil, board.View{}, err
	}
	eng := board.New(a.client, board.WithPrefs(a.prefs), board.WithLogger(a.log))
	v := eng.SetRoom(ctx, roomID)
	if flagBoard != "" && v.Err == nil {
		v = eng.SelectBoard(ctx, flagBoard)
	}
	if v.Err != nil {
		return nil, v, api.Messages{Fallback: board.LoadFailedMessage}.Wrap("load board", v.Err)
	}
	return eng, v, nil
}

// orchestrator opens the board and acts as the current user's role in its room.
func (a *app) orchestrator(ctx context.Context) (*lifecycle.Orchestrator, *board.Engine, error) {
	eng, v, err := a.openBoard(ctx)
	if err != nil {
		return nil, nil, err
	}
	o := lifecycle.New(a.client, eng, session.FromRoom(*v.Room), a.confirm, lifecycle.WithLogger(a.log))
	return o, eng, nil
}

func (a *app) membership() *membership.Engine {
	return membership.New(a.client, a.confirm, membership.WithLogger(a.log))
}

// room loads the selected room with the current user's membership.
func (a *app) room(ctx context.Context) (models.Room, error) {
	roomID, err := a.requireRoom()
	if err != nil {
		return models.Room{}, err
	}
	r, err := a.client.Room(ctx, roomID)
	if err != nil {
		return models.Room{}, api.Messages{Fallback: "Could not load the room."}.Wrap("load room", err)
	}
	return r, nil
}
