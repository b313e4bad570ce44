package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"roomboard/internal/api"
	"roomboard/internal/membership"
	"roomboard/internal/models"
	"roomboard/internal/session"
)

var membersCmd = &cobra.Command{Use: "members", Short: "List members and change their roles"}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the members of the selected room",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		roomID, err := a.requireRoom()
		if err != nil {
			return err
		}
		ms, err := a.membership().Members(ctx, roomID)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, m := range ms {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Label(), m.Role.Label(), m.UserPublicID)
		}
		return tw.Flush()
	}),
}

var confirmName string

var membersRoleCmd = &cobra.Command{
	Use:   "role MEMBER_ID ROLE",
	Short: "Change a member's role (VIEWER, MEMBER or ADMIN)",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		target, ok := models.ParseRole(args[1])
		if !ok {
			return api.Invalid("role", fmt.Sprintf("Unknown role %q.", args[1]))
		}
		eng := a.membership()
		ms, err := eng.Members(ctx, r.PublicID)
		if err != nil {
			return err
		}
		var member *models.Member
		for i := range ms {
			if ms[i].UserPublicID == args[0] {
				member = &ms[i]
			}
		}
		if member == nil {
			return api.Invalid("member", fmt.Sprintf("%s is not a member of %s.", args[0], r.Name))
		}
		typed := confirmName
		if typed == "" && membership.RequiresConfirmation(member.Role, target) {
			typed, err = a.confirm.Prompt(ctx, fmt.Sprintf("Promoting %s to %s. Type %s to confirm.", member.Label(), target.Label(), member.Label()))
			if err != nil {
				return err
			}
		}
		msg, err := eng.ChangeRole(ctx, session.FromRoom(r), r.PublicID, *member, target, typed)
		a.say(msg)
		return err
	}),
}

var inviteDraft = membership.NewInviteDraft()

var inviteCmd = &cobra.Command{Use: "invite", Short: "Manage invites to the selected room"}

var inviteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the room's invites",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		eng := a.membership()
		invs, err := eng.Invites(ctx, session.FromRoom(r), r.PublicID)
		if err != nil {
			return err
		}
		if len(invs) == 0 {
			a.say("No invites.")
			return nil
		}
		now := time.Now()
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, inv := range invs {
			status := "valid"
			switch {
			case inv.Expired(now):
				status = "expired"
			case inv.RemainingUses() == 0:
				status = "used up"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d/%d used\t%s\t%s\n", inv.Code, inv.Role.Label(), inv.Used, inv.MaxUses, expiry(inv), status)
		}
		return tw.Flush()
	}),
}

func expiry(inv models.Invite) string {
	if inv.ExpiresAt == nil {
		return "never expires"
	}
	return "expires " + inv.ExpiresAt.Local().Format("2006-01-02 15:04")
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invite code",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		inv, err := a.membership().CreateInvite(ctx, session.FromRoom(r), r.PublicID, inviteDraft)
		if err != nil {
			return err
		}
		a.say(fmt.Sprintf("Invite %s grants %s, %d use(s) left, %s.", inv.Code, inv.Role.Label(), inv.Remaining, expiry(inv)))
		return nil
	}),
}

var inviteRevokeCmd = &cobra.Command{
	Use:   "revoke CODE",
	Short: "Revoke an invite",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		r, err := a.room(ctx)
		if err != nil {
			return err
		}
		msg, err := a.membership().RevokeInvite(ctx, session.FromRoom(r), r.PublicID, args[0])
		a.say(msg)
		return err
	}),
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept CODE",
	Short: "Join a room with an invite code",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		msg, err := a.membership().AcceptInvite(ctx, args[0])
		a.say(msg)
		return err
	}),
}

func init() {
	membersRoleCmd.Flags().StringVar(&confirmName, "confirm-name", "", "member name, required when promoting")
	membersCmd.AddCommand(membersListCmd, membersRoleCmd)

	inviteCreateCmd.Flags().Var(roleFlag{&inviteDraft.Role}, "role", "role granted: VIEWER or MEMBER")
	inviteCreateCmd.Flags().StringVar(&inviteDraft.MaxUses, "max-uses", inviteDraft.MaxUses, "number of uses")
	inviteCreateCmd.Flags().StringVar(&inviteDraft.ExpiresInDays, "days", inviteDraft.ExpiresInDays, "days until the invite expires")
	inviteCmd.AddCommand(inviteListCmd, inviteCreateCmd, inviteRevokeCmd, inviteAcceptCmd)

	rootCmd.AddCommand(membersCmd, inviteCmd)
}

// roleFlag adapts a models.Role to pflag.Value.
type roleFlag struct{ r *models.Role }

func (f roleFlag) String() string {
	if f.r == nil {
		return ""
	}
	return string(*f.r)
}

func (f roleFlag) Set(s string) error {
	r, ok := models.ParseRole(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	*f.r = r
	return nil
}

func (f roleFlag) Type() string { return "role" }
