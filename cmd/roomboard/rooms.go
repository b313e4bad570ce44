package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roomboard/internal/membership"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the API is reachable",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		if err := a.client.Ping(ctx); err != nil {
			return err
		}
		a.say("API reachable at " + a.client.BaseURL() + ".")
		return nil
	}),
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms you own and the rooms you joined",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		ov, err := a.membership().Overview(ctx)
		if err != nil {
			return err
		}
		printOverview(a.out, ov)
		return nil
	}),
}

var roomCmd = &cobra.Command{Use: "room", Short: "Create, leave or delete a room"}

var roomCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a room you own",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := a.client.CreateRoom(ctx, args[0])
		if err != nil {
			return err
		}
		a.say(fmt.Sprintf("Created %s (%s).", args[0], id))
		return nil
	}),
}

var roomLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave the selected room",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		if _, err := a.membership().LeaveRoom(ctx, r); err != nil {
			return err
		}
		if err := a.prefs.Forget(ctx, r.PublicID); err != nil {
			a.log.Warn("prefs forget", "room", r.PublicID, "err", err)
		}
		a.say(fmt.Sprintf("Left %s.", r.Name))
		return nil
	}),
}

var roomDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the selected room and everything in it",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		typed, err := a.confirm.Prompt(ctx, fmt.Sprintf("This deletes %s with all its boards. Type DELETE to confirm.", r.Name))
		if err != nil {
			return err
		}
		msg, err := a.membership().DeleteRoom(ctx, r, typed)
		if err != nil {
			return err
		}
		if err := a.prefs.Forget(ctx, r.PublicID); err != nil {
			a.log.Warn("prefs forget", "room", r.PublicID, "err", err)
		}
		a.say(msg)
		return nil
	}),
}

func init() {
	roomCmd.AddCommand(roomCreateCmd, roomLeaveCmd, roomDeleteCmd)
	rootCmd.AddCommand(pingCmd, roomsCmd, roomCmd)
}

func printOverview(w io.Writer, ov membership.Overview) {
	if ov.Len() == 0 {
		fmt.Fprintln(w, "You are not in any room yet. Create one or accept an invite.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	section := func(title string, entries []membership.RoomEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintln(tw, title)
		for _, e := range entries {
			fmt.Fprintf(tw, "  %s\t%s\t%d board(s), %d member(s)\t%s\n",
				e.Room.Name, e.Room.PublicID, len(e.Room.Boards), len(e.Room.Members), e.Blurb)
		}
	}
	section("Owned", ov.Owned)
	section("Joined", ov.Joined)
	_ = tw.Flush()
}
