package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roomboard/internal/board"
	"roomboard/internal/lifecycle"
)

var boardCmd = &cobra.Command{Use: "board", Short: "Show and manage boards"}

var boardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active board with its columns and cards",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		_, v, err := a.openBoard(ctx)
		if err != nil {
			return err
		}
		printBoard(a.out, v)
		return nil
	}),
}

var boardSelectCmd = &cobra.Command{
	Use:   "select BOARD_ID",
	Short: "Make a board the active one for the room",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		eng, _, err := a.openBoard(ctx)
		if err != nil {
			return err
		}
		v := eng.SelectBoard(ctx, args[0])
		if v.Err != nil {
			return v.Err
		}
		if v.ActiveBoardID != args[0] {
			a.say(fmt.Sprintf("Board %s is not in this room; showing the first board.", args[0]))
		}
		printBoard(a.out, v)
		return nil
	}),
}

var boardRenameCmd = &cobra.Command{
	Use:   "rename NAME",
	Short: "Rename the active board",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.RenameBoard(ctx, args[0])
		a.say(msg)
		return err
	}),
}

var boardCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a board and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, eng, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.CreateBoard(ctx, args[0])
		if err != nil {
			return err
		}
		a.say(msg)
		printBoard(a.out, eng.View())
		return nil
	}),
}

var (
	columnWIP   string
	columnTitle string
)

var columnCmd = &cobra.Command{Use: "column", Short: "Manage the columns of the active board"}

var columnAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a column",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.CreateColumn(ctx, lifecycle.ColumnDraft{Title: args[0], WIPLimit: columnWIP})
		a.say(msg)
		return err
	}),
}

var columnEditCmd = &cobra.Command{
	Use:   "edit COLUMN_ID",
	Short: "Change a column's title or WIP limit (--wip \"\" clears it)",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[0])
		if err != nil {
			return err
		}
		o, eng, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		d := lifecycle.ColumnDraft{Title: columnTitle, WIPLimit: columnWIP}
		if col, ok := eng.View().Column(id); ok && !a.changed("wip") {
			d.WIPLimit = formatLimit(col.WIPLimit)
		}
		msg, err := o.UpdateColumn(ctx, id, d)
		a.say(msg)
		return err
	}),
}

var columnArchiveCmd = &cobra.Command{
	Use:   "archive COLUMN_ID",
	Short: "Archive a column and its cards",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[0])
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.ArchiveColumn(ctx, id)
		a.say(msg)
		return err
	}),
}

var columnRestoreCmd = &cobra.Command{
	Use:   "restore COLUMN_ID",
	Short: "Restore an archived column",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[0])
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.RestoreColumn(ctx, id)
		a.say(msg)
		return err
	}),
}

var columnReorderCmd = &cobra.Command{
	Use:   "reorder COLUMN_ID...",
	Short: "Set the order of the columns",
	Args:  cobra.MinimumNArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, s := range args {
			id, err := parseColumnID(s)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.ReorderColumns(ctx, ids)
		a.say(msg)
		return err
	}),
}

var (
	cardTitle       string
	cardDescription string
	cardColumn      int64
)

var cardCmd = &cobra.Command{Use: "card", Short: "Manage cards on the active board"}

var cardAddCmd = &cobra.Command{
	Use:   "add COLUMN_ID TITLE",
	Short: "Add a card to a column",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[0])
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		d := lifecycle.CardDraft{Title: args[1]}
		if a.changed("description") {
			d.Description = &cardDescription
		}
		msg, err := o.CreateCard(ctx, id, d)
		a.say(msg)
		return err
	}),
}

var cardEditCmd = &cobra.Command{
	Use:   "edit CARD_ID",
	Short: "Change a card's title, description or column",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, eng, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		d := lifecycle.CardDraft{Title: cardTitle, ColumnID: cardColumn}
		if card, ok := eng.View().Card(args[0]); ok && !a.changed("title") {
			d.Title = card.Title
		}
		if a.changed("description") {
			d.Description = &cardDescription
		}
		msg, err := o.UpdateCard(ctx, args[0], d)
		a.say(msg)
		return err
	}),
}

var cardMoveCmd = &cobra.Command{
	Use:   "move CARD_ID COLUMN_ID",
	Short: "Move a card to another column",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[1])
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.MoveCard(ctx, args[0], id)
		a.say(msg)
		return err
	}),
}

var cardArchiveCmd = &cobra.Command{
	Use:   "archive CARD_ID",
	Short: "Archive a card",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.ArchiveCard(ctx, args[0])
		a.say(msg)
		return err
	}),
}

var cardRestoreCmd = &cobra.Command{
	Use:   "restore CARD_ID",
	Short: "Restore an archived card",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		arch, err := o.Archive(ctx)
		if err != nil {
			return err
		}
		card, ok := arch.Card(args[0])
		if !ok {
			return fmt.Errorf("card %s is not in the archive", args[0])
		}
		msg, err := o.RestoreCard(ctx, card)
		a.say(msg)
		return err
	}),
}

var cardReorderCmd = &cobra.Command{
	Use:   "reorder COLUMN_ID CARD_ID...",
	Short: "Set the order of the cards in a column",
	Args:  cobra.MinimumNArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseColumnID(args[0])
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		msg, err := o.ReorderCards(ctx, id, args[1:])
		a.say(msg)
		return err
	}),
}

func init() {
	boardCmd.AddCommand(boardShowCmd, boardSelectCmd, boardRenameCmd, boardCreateCmd)

	columnAddCmd.Flags().StringVar(&columnWIP, "wip", "", "WIP limit")
	columnEditCmd.Flags().StringVar(&columnWIP, "wip", "", "WIP limit")
	columnEditCmd.Flags().StringVar(&columnTitle, "title", "", "new title")
	columnCmd.AddCommand(columnAddCmd, columnEditCmd, columnArchiveCmd, columnRestoreCmd, columnReorderCmd)

	cardAddCmd.Flags().StringVar(&cardDescription, "description", "", "card description")
	cardEditCmd.Flags().StringVar(&cardTitle, "title", "", "new title")
	cardEditCmd.Flags().StringVar(&cardDescription, "description", "", "new description")
	cardEditCmd.Flags().Int64Var(&cardColumn, "column", 0, "move to this column")
	cardCmd.AddCommand(cardAddCmd, cardEditCmd, cardMoveCmd, cardArchiveCmd, cardRestoreCmd, cardReorderCmd)

	rootCmd.AddCommand(boardCmd, columnCmd, cardCmd)
}

func parseColumnID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a column id", s)
	}
	return id, nil
}

func formatLimit(l *int) string {
	if l == nil {
		return ""
	}
	return strconv.Itoa(*l)
}

func printBoard(w io.Writer, v board.View) {
	if v.Empty() {
		fmt.Fprintln(w, "This room has no boards yet. Create one with: roomboard board create NAME")
		return
	}
	if v.Board == nil {
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", v.Board.Name, v.Board.PublicID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, col := range v.Lanes() {
		count := strconv.Itoa(len(col.Cards))
		if col.WIPLimit != nil {
			count += "/" + strconv.Itoa(*col.WIPLimit)
		}
		fmt.Fprintf(tw, "[%d]\t%s\t(%s)\n", col.ID, col.Title, count)
		for _, card := range col.Cards {
			fmt.Fprintf(tw, "\t  %s\t%s\n", card.Title, card.ID)
		}
	}
	_ = tw.Flush()
}
