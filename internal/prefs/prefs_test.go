package prefs

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	room := "room-" + uuid.NewString()

	_, err := s.ActiveBoard(ctx, room)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetActiveBoard(ctx, room, "b1"))
	require.NoError(t, s.SetActiveBoard(ctx, room, "b2"))
	id, err := s.ActiveBoard(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, "b2", id)

	require.NoError(t, s.Forget(ctx, room))
	_, err = s.ActiveBoard(ctx, room)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ROOMBOARD_TEST_DSN")
	if dsn == "" {
		t.Skip("ROOMBOARD_TEST_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
