package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const messageColumns = `id, conversation_id, sender_id, content, client_token, is_read, created_at`

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m     Message
		token sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &token, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ClientToken = token.String
	return &m, nil
}

// InsertMessage stores a new message and returns the stored row with its
// server id and timestamp. A message whose client token is already stored in
// the conversation is not inserted again; the existing row is returned.
func (db *DB) InsertMessage(conversationID, senderID, content, clientToken string) (*Message, error) {
	if clientToken != "" {
		existing, err := scanMessage(db.QueryRow(`SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = ? AND client_token = ?`, conversationID, clientToken))
		if err == nil {
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("lookup client token: %w", err)
		}
	}

	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ClientToken:    clientToken,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if _, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, content, client_token, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, nullString(m.ClientToken), m.CreatedAt); err != nil {
		// A concurrent insert with the same token won the unique constraint.
		if clientToken != "" {
			if existing, lookupErr := scanMessage(db.QueryRow(`SELECT `+messageColumns+` FROM messages
				WHERE conversation_id = ? AND client_token = ?`, conversationID, clientToken)); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// ListMessages returns up to limit messages of a conversation, most recent
// first.
func (db *DB) ListMessages(conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// MarkMessagesRead flags unread messages of a conversation not authored by
// viewerID as read and returns how many changed.
func (db *DB) MarkMessagesRead(conversationID, viewerID string) (int64, error) {
	res, err := db.Exec(`
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_id <> ? AND is_read = 0`, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
