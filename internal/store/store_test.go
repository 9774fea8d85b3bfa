package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedConversation creates two profiles, an accepted connection between them
// and returns the conversation.
func seedConversation(t *testing.T, db *DB, sender, receiver string) *Conversation {
	t.Helper()
	for _, id := range []string{sender, receiver} {
		if err := db.UpsertProfile(&Profile{ID: id, FirstName: "First-" + id}); err != nil {
			t.Fatal(err)
		}
	}
	conn, err := db.CreateConnection(sender, receiver)
	if err != nil {
		t.Fatal(err)
	}
	conv, err := db.AcceptConnection(conn.ID)
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed() {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestProfileUpsertStoresNulls(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertProfile(&Profile{ID: "p1", FirstName: "Asha"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertProfile(&Profile{ID: "p1", FirstName: "Asha", LastName: "Rao"}); err != nil {
		t.Fatal(err)
	}
	p, err := db.GetProfile("p1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.LastName != "Rao" || p.PhotoURL != "" {
		t.Errorf("got %+v, want Asha Rao without photo", p)
	}

	var nulls int
	if err := db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE photo_url IS NULL`).Scan(&nulls); err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Errorf("photo_url NULL count = %d, want 1", nulls)
	}

	missing, err := db.GetProfile("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing profile")
	}
}

func TestCreateConnectionRejectsDuplicates(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"a", "b"} {
		if err := db.UpsertProfile(&Profile{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := db.CreateConnection("a", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateConnection("a", "b"); !errors.Is(err, ErrConnectionExists) {
		t.Errorf("same direction: err = %v, want ErrConnectionExists", err)
	}
	if _, err := db.CreateConnection("b", "a"); !errors.Is(err, ErrConnectionExists) {
		t.Errorf("reverse direction: err = %v, want ErrConnectionExists", err)
	}
}

func TestAcceptConnectionCreatesOneConversation(t *testing.T) {
	db := testDB(t)
	conv := seedConversation(t, db, "a", "b")

	again, err := db.AcceptConnection(conv.ConnectionID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != conv.ID {
		t.Errorf("second accept created conversation %s, want %s", again.ID, conv.ID)
	}

	conn, err := db.GetConnection(conv.ConnectionID)
	if err != nil {
		t.Fatal(err)
	}
	if conn.Status != "accepted" {
		t.Errorf("status = %q, want accepted", conn.Status)
	}

	if _, err := db.AcceptConnection("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("accept missing: err = %v, want ErrNotFound", err)
	}
}

func TestSetConnectionStatus(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"a", "b"} {
		if err := db.UpsertProfile(&Profile{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	conn, err := db.CreateConnection("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	got, err := db.SetConnectionStatus(conn.ID, "blocked")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "blocked" {
		t.Errorf("status = %q, want blocked", got.Status)
	}
	if _, err := db.SetConnectionStatus(conn.ID, "bogus"); err == nil {
		t.Error("expected CHECK constraint error for unknown status")
	}
}

func TestInsertMessageIdempotentOnClientToken(t *testing.T) {
	db := testDB(t)
	conv := seedConversation(t, db, "a", "b")

	first, err := db.InsertMessage(conv.ID, "a", "hello", "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.InsertMessage(conv.ID, "a", "hello", "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("retry created %s, want existing %s", second.ID, first.ID)
	}

	// Messages without a token are always inserted.
	if _, err := db.InsertMessage(conv.ID, "a", "hello", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertMessage(conv.ID, "a", "hello", ""); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages(conv.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Errorf("got %d messages, want 3", len(msgs))
	}
}

func TestListMessagesMostRecentFirst(t *testing.T) {
	db := testDB(t)
	conv := seedConversation(t, db, "a", "b")

	for _, body := range []string{"one", "two", "three"} {
		if _, err := db.InsertMessage(conv.ID, "a", body, ""); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages(conv.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "three" || msgs[1].Content != "two" {
		t.Errorf("got [%s %s], want [three two]", msgs[0].Content, msgs[1].Content)
	}
}

func TestMarkMessagesRead(t *testing.T) {
	db := testDB(t)
	conv := seedConversation(t, db, "a", "b")

	for _, sender := range []string{"a", "b", "b"} {
		if _, err := db.InsertMessage(conv.ID, sender, "hi", ""); err != nil {
			t.Fatal(err)
		}
	}

	view, err := db.GetConversationView(conv.ID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if view.UnreadCount != 2 {
		t.Errorf("unread for a = %d, want 2", view.UnreadCount)
	}

	n, err := db.MarkMessagesRead(conv.ID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("marked %d, want 2", n)
	}
	n, _ = db.MarkMessagesRead(conv.ID, "a")
	if n != 0 {
		t.Errorf("second mark = %d, want 0", n)
	}

	// b's unread count is untouched.
	view, _ = db.GetConversationView(conv.ID, "b")
	if view.UnreadCount != 1 {
		t.Errorf("unread for b = %d, want 1", view.UnreadCount)
	}
}

func TestConversationViewJoinsParticipants(t *testing.T) {
	db := testDB(t)
	conv := seedConversation(t, db, "a", "b")

	v, err := db.GetConversationView(conv.ID, "a")
	if err != nil {
		t.Fatal(err)
	}
	if v.Connection == nil || v.Connection.SenderID != "a" || v.Connection.ReceiverID != "b" {
		t.Fatalf("connection = %+v, want a -> b", v.Connection)
	}
	if v.Sender == nil || v.Sender.FirstName != "First-a" {
		t.Errorf("sender = %+v", v.Sender)
	}
	if v.Receiver == nil || v.Receiver.FirstName != "First-b" {
		t.Errorf("receiver = %+v", v.Receiver)
	}
	if v.Conversation.LastMessageAt != 0 {
		t.Errorf("LastMessageAt = %d, want 0 for a new conversation", v.Conversation.LastMessageAt)
	}

	missing, err := db.GetConversationView("nope", "a")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing conversation")
	}
}

func TestListConversationsNullsLast(t *testing.T) {
	db := testDB(t)
	never := seedConversation(t, db, "me", "x")
	older := seedConversation(t, db, "y", "me")
	newer := seedConversation(t, db, "me", "z")
	seedConversation(t, db, "x", "z")

	if err := db.UpdateConversationSummary(older.ID, 1704067200000, "older"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateConversationSummary(newer.ID, 1709251200000, "newer"); err != nil {
		t.Fatal(err)
	}

	views, err := db.ListConversationsForProfile("me")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d conversations, want 3", len(views))
	}
	want := []string{newer.ID, older.ID, never.ID}
	for i, v := range views {
		if v.Conversation.ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, v.Conversation.ID, want[i])
		}
	}
	if views[0].Conversation.LastMessagePreview != "newer" {
		t.Errorf("preview = %q, want newer", views[0].Conversation.LastMessagePreview)
	}
}

func TestUpdateConversationSummaryMissing(t *testing.T) {
	db := testDB(t)
	if err := db.UpdateConversationSummary("nope", 1, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertProfile(&Profile{ID: "p1", FirstName: "Asha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetProfile("p1"); err != nil {
		t.Fatalf("profile not visible on the shared connection: %v", err)
	}
}

func TestAcceptMissingConnectionRollsBack(t *testing.T) {
	db := testDB(t)
	if _, err := db.AcceptConnection("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no conversations, got %d", n)
	}
}

func TestMigrateFreshDatabaseStartsAtZero(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.From != 0 || !result.Changed() {
		t.Errorf("result = %+v, want migration from 0", result)
	}
}

// seedRequests creates profiles a, b, c and d. b and c request a, a requests
// d, and b's request is accepted. Creation times are spread so the order is
// deterministic.
func seedRequests(t *testing.T, db *DB) map[string]*Connection {
	t.Helper()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := db.UpsertProfile(&Profile{ID: id, FirstName: strings.ToUpper(id)}); err != nil {
			t.Fatal(err)
		}
	}
	conns := make(map[string]*Connection)
	for i, pair := range [][2]string{{"b", "a"}, {"c", "a"}, {"a", "d"}} {
		c, err := db.CreateConnection(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`UPDATE connections SET created_at = ? WHERE id = ?`, 1000*(i+1), c.ID); err != nil {
			t.Fatal(err)
		}
		conns[pair[0]+pair[1]] = c
	}
	if _, err := db.AcceptConnection(conns["ba"].ID); err != nil {
		t.Fatal(err)
	}
	return conns
}

func TestListConnectionsForProfile(t *testing.T) {
	db := testDB(t)
	conns := seedRequests(t, db)

	all, err := db.ListConnectionsForProfile("a", "")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, v := range all {
		ids = append(ids, v.Connection.ID)
	}
	want := []string{conns["ad"].ID, conns["ca"].ID, conns["ba"].ID}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want newest first %v", ids, want)
	}

	accepted, err := db.ListConnectionsForProfile("a", "accepted")
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 1 || accepted[0].ConversationID == "" {
		t.Fatalf("accepted = %+v, want one with a conversation", accepted)
	}
	if accepted[0].Sender == nil || accepted[0].Sender.FirstName != "B" || accepted[0].Receiver.ID != "a" {
		t.Errorf("profiles not joined: %+v %+v", accepted[0].Sender, accepted[0].Receiver)
	}
}

func TestListPendingRequestsIsReceiverSide(t *testing.T) {
	db := testDB(t)
	conns := seedRequests(t, db)

	pending, err := db.ListPendingRequests("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Connection.ID != conns["ca"].ID {
		t.Fatalf("pending for a = %+v, want only c's request", pending)
	}
	if pending[0].ConversationID != "" {
		t.Errorf("pending request has conversation %q", pending[0].ConversationID)
	}

	// a's own outgoing request is pending for d, not for a.
	sent, err := db.ListPendingRequests("d")
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0].Connection.SenderID != "a" {
		t.Errorf("pending for d = %+v", sent)
	}
}

func TestGetConnectionBetweenEitherDirection(t *testing.T) {
	db := testDB(t)
	conns := seedRequests(t, db)

	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		c, err := db.GetConnectionBetween(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if c == nil || c.ID != conns["ba"].ID || c.Status != "accepted" {
			t.Errorf("between %v = %+v", pair, c)
		}
	}
	c, err := db.GetConnectionBetween("b", "d")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("between b and d = %+v, want nil", c)
	}
}
