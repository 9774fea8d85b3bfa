package store

import (
	"database/sql"
	"fmt"
)

const conversationViewSelect = `
	SELECT cv.id, cv.connection_id, cv.last_message_at, cv.last_message_preview,
		cn.id, cn.sender_id, cn.receiver_id, cn.status, cn.created_at,
		ps.id, ps.first_name, ps.last_name, ps.photo_url,
		pr.id, pr.first_name, pr.last_name, pr.photo_url,
		(SELECT COUNT(*) FROM messages m
			WHERE m.conversation_id = cv.id AND m.sender_id <> ? AND m.is_read = 0) AS unread
	FROM conversations cv
	LEFT JOIN connections cn ON cn.id = cv.connection_id
	LEFT JOIN profiles ps ON ps.id = cn.sender_id
	LEFT JOIN profiles pr ON pr.id = cn.receiver_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversationView(row rowScanner) (*ConversationView, error) {
	var (
		v                                  ConversationView
		lastAt, connCreated                sql.NullInt64
		preview                            sql.NullString
		connID, connSender, connRecv, stat sql.NullString
		sID, sFirst, sLast, sPhoto         sql.NullString
		rID, rFirst, rLast, rPhoto         sql.NullString
	)
	if err := row.Scan(&v.Conversation.ID, &v.Conversation.ConnectionID, &lastAt, &preview,
		&connID, &connSender, &connRecv, &stat, &connCreated,
		&sID, &sFirst, &sLast, &sPhoto,
		&rID, &rFirst, &rLast, &rPhoto,
		&v.UnreadCount); err != nil {
		return nil, err
	}
	v.Conversation.LastMessageAt = lastAt.Int64
	v.Conversation.LastMessagePreview = preview.String
	if connID.Valid {
		v.Connection = &Connection{
			ID: connID.String, SenderID: connSender.String, ReceiverID: connRecv.String,
			Status: stat.String, CreatedAt: connCreated.Int64,
		}
	}
	if sID.Valid {
		v.Sender = &Profile{ID: sID.String, FirstName: sFirst.String, LastName: sLast.String, PhotoURL: sPhoto.String}
	}
	if rID.Valid {
		v.Receiver = &Profile{ID: rID.String, FirstName: rFirst.String, LastName: rLast.String, PhotoURL: rPhoto.String}
	}
	return &v, nil
}

// GetConversationView returns a conversation joined with its connection and
// profiles, or nil if the conversation does not exist. Unread counts are
// relative to viewerID.
func (db *DB) GetConversationView(id, viewerID string) (*ConversationView, error) {
	v, err := scanConversationView(db.QueryRow(conversationViewSelect+` WHERE cv.id = ?`, viewerID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ListConversationsForProfile returns the conversations whose connection
// involves profileID, most recently messaged first and never-messaged last.
func (db *DB) ListConversationsForProfile(profileID string) ([]ConversationView, error) {
	rows, err := db.Query(conversationViewSelect+`
		WHERE cn.sender_id = ? OR cn.receiver_id = ?
		ORDER BY cv.last_message_at DESC NULLS LAST, cv.created_at DESC`,
		profileID, profileID, profileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var views []ConversationView
	for rows.Next() {
		v, err := scanConversationView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

// UpdateConversationSummary sets the denormalized last-message fields.
func (db *DB) UpdateConversationSummary(id string, lastMessageAt int64, preview string) error {
	res, err := db.Exec(`
		UPDATE conversations SET last_message_at = ?, last_message_preview = ?
		WHERE id = ?`, lastMessageAt, preview, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}
