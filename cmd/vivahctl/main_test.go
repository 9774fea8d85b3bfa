package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/bus"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"status"}, {"profile", "add"}, {"connect"}, {"connections"}, {"accept"}, {"decline"}, {"block"},
		{"conversations"}, {"history"}, {"send"}, {"watch"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	for _, flag := range []string{"viewer", "config", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSendArgsValidated(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"send", "only-conversation"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestSendWaitsForConfirmation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	local := backend.NewLocal(db, bus.New(), logger)
	require.NoError(t, local.UpsertProfile(ctx, chat.Profile{ID: "u1"}))
	require.NoError(t, local.UpsertProfile(ctx, chat.Profile{ID: "u2"}))
	conn, err := local.RequestConnection(ctx, "u1", "u2")
	require.NoError(t, err)
	_, conv, err := local.RespondConnection(ctx, conn.ID, chat.ConnectionAccepted)
	require.NoError(t, err)

	m, err := send(ctx, local, logger, 5, "u1", conv.ID, "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, chat.Confirmed, m.Status)
	assert.Equal(t, "hello there", m.Content)
	assert.False(t, m.IsProvisional())

	d, err := local.FetchConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", d.Conversation.LastMessagePreview)

	_, err = send(ctx, local, logger, 5, "u1", conv.ID, "   ")
	assert.ErrorIs(t, err, chat.ErrEmptyContent)
}

func TestWatchLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan []chat.Message, 1)
	var seen []int
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, updates, func(msgs []chat.Message) error {
			seen = append(seen, len(msgs))
			if len(msgs) == 2 {
				cancel()
			}
			return nil
		})
	}()
	updates <- []chat.Message{{ID: "a"}}
	updates <- []chat.Message{{ID: "a"}, {ID: "b"}}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.Equal(t, []int{1, 2}, seen)
}

func TestPendingConnectionsShowReceivedRequests(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	local := backend.NewLocal(db, bus.New(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, local.UpsertProfile(ctx, chat.Profile{ID: "u1", FirstName: "Asha"}))
	require.NoError(t, local.UpsertProfile(ctx, chat.Profile{ID: "u2"}))
	req, err := local.RequestConnection(ctx, "u1", "u2")
	require.NoError(t, err)

	list, err := listConnections(ctx, local, "u2", true, "")
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, printConnections(&out, list, "u2", "Member"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], req.ID)
	assert.Contains(t, lines[1], "Asha")
	assert.Contains(t, lines[1], "received")

	// The requester has nothing to respond to, but sees the request sent.
	list, err = listConnections(ctx, local, "u1", true, "")
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = listConnections(ctx, local, "u1", false, chat.ConnectionPending)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, printConnections(&out, list, "u1", "Member"))
	assert.Contains(t, out.String(), "Member")
	assert.Contains(t, out.String(), "sent")
}
