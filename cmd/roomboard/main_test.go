package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomboard/internal/apitest"
	"roomboard/internal/membership"
)

// cli runs roomboard commands against a fake API as one signed-in user.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.New()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	tok, err := srv.Session(srv.AddUser("ada", "Ada"))
	require.NoError(t, err)

	t.Setenv("ROOMBOARD_API_URL", ts.URL)
	t.Setenv("ROOMBOARD_SESSION", tok)
	t.Setenv("ROOMBOARD_SESSION_COOKIE", apitest.CookieName)
	t.Setenv("ROOMBOARD_STATE_DSN", "")
	t.Setenv("ROOMBOARD_LOG_LEVEL", "error")
	t.Setenv("ROOMBOARD_ROOM", "")
	return &cli{t: t}
}

// run executes args and returns stdout and the error line a user would see.
func (c *cli) run(stdin string, args ...string) (string, string) {
	c.t.Helper()
	flagRoom, flagBoard, flagYes = "", "", false
	selColumns, selCards, confirmName = nil, nil, ""
	inviteDraft = membership.NewInviteDraft()
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return out.String(), describe(err)
	}
	return out.String(), ""
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestCLIBoardFlow(t *testing.T) {
	c := newCLI(t)

	out, failure := c.run("", "room", "create", "Guild Hall")
	require.Empty(t, failure)
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	room := m[1]

	out, failure = c.run("", "board", "show", "--room", room)
	require.Empty(t, failure)
	assert.Contains(t, out, "no boards yet")

	out, failure = c.run("", "board", "create", "Quests", "--room", room)
	require.Empty(t, failure)
	assert.Contains(t, out, "Board created.")

	_, failure = c.run("", "column", "add", "ab", "--room", room)
	assert.Equal(t, "Column title must be at least 3 characters long.", failure)

	out, failure = c.run("", "column", "add", "Backlog", "--wip", "3", "--room", room)
	require.Empty(t, failure)
	assert.Equal(t, "Column created.\n", out)

	out, failure = c.run("", "board", "show", "--room", room)
	require.Empty(t, failure)
	assert.Contains(t, out, "Quests")
	assert.Contains(t, out, "Backlog")
	assert.Contains(t, out, "(0/3)")

	out, failure = c.run("n\n", "column", "archive", "1", "--room", room)
	assert.Empty(t, out)
	assert.Equal(t, "Cancelled.", failure)

	out, failure = c.run("", "column", "archive", "1", "--yes", "--room", room)
	require.Empty(t, failure)
	assert.Equal(t, "Column archived.\n", out)

	out, failure = c.run("", "archive", "list", "--room", room)
	require.Empty(t, failure)
	assert.Contains(t, out, "Backlog")

	out, failure = c.run("", "archive", "restore", "--column", "1", "--room", room)
	require.Empty(t, failure)
	assert.Equal(t, "Restored 1 archived item(s).\n", out)
}

func TestCLIRoomsAndInvites(t *testing.T) {
	c := newCLI(t)

	out, failure := c.run("", "rooms")
	require.Empty(t, failure)
	assert.Contains(t, out, "not in any room")

	out, failure = c.run("", "room", "create", "Guild Hall")
	require.Empty(t, failure)
	room := idPattern.FindStringSubmatch(out)[1]

	out, failure = c.run("", "rooms")
	require.Empty(t, failure)
	assert.Contains(t, out, "Owned")
	assert.Contains(t, out, "You own this room")

	_, failure = c.run("", "invite", "create", "--role", "ADMIN", "--room", room)
	assert.Equal(t, "Invites can only grant Viewer or Member.", failure)

	out, failure = c.run("", "invite", "create", "--role", "viewer", "--max-uses", "3", "--room", room)
	require.Empty(t, failure)
	assert.Contains(t, out, "grants Viewer, 3 use(s) left")

	_, failure = c.run("", "room", "leave", "--room", room)
	assert.Equal(t, "The owner cannot leave the room. Delete it instead.", failure)

	_, failure = c.run("nope\n", "room", "delete", "--room", room)
	assert.Equal(t, "Type DELETE to confirm.", failure)

	out, failure = c.run("delete\n", "room", "delete", "--room", room)
	require.Empty(t, failure)
	assert.Equal(t, "Deleted Guild Hall.\n", out)
}

func TestCLINeedsRoom(t *testing.T) {
	c := newCLI(t)
	_, failure := c.run("", "board", "show")
	assert.Equal(t, "No room selected. Pass --room or set ROOMBOARD_ROOM.", failure)
}
