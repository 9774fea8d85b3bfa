package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrConnectionExists is returned when two profiles already have a
// connection in either direction.
var ErrConnectionExists = errors.New("connection already exists")

// CreateConnection records a pending request from senderID to receiverID.
func (db *DB) CreateConnection(senderID, receiverID string) (*Connection, error) {
	existing, err := db.GetConnectionBetween(senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConnectionExists
	}

	c := &Connection{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     "pending",
		CreatedAt:  time.Now().UnixMilli(),
	}
	if _, err := db.Exec(`
		INSERT INTO connections (id, sender_id, receiver_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SenderID, c.ReceiverID, c.Status, c.CreatedAt, c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// GetConnection returns a connection by id, or nil if it does not exist.
func (db *DB) GetConnection(id string) (*Connection, error) {
	var c Connection
	err := db.QueryRow(`SELECT id, sender_id, receiver_id, status, created_at FROM connections WHERE id = ?`, id).
		Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetConnectionStatus moves a connection to declined or blocked.
func (db *DB) SetConnectionStatus(id, status string) (*Connection, error) {
	res, err := db.Exec(`UPDATE connections SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	return db.GetConnection(id)
}

// AcceptConnection marks a connection accepted and creates its conversation.
// Accepting twice returns the existing conversation.
func (db *DB) AcceptConnection(id string) (*Conversation, error) {
	var c Conversation
	err := db.inTx(func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		res, err := tx.Exec(`UPDATE connections SET status = 'accepted', updated_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return fmt.Errorf("accept connection: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("connection %s: %w", id, ErrNotFound)
		}

		if _, err := tx.Exec(`
			INSERT INTO conversations (id, connection_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(connection_id) DO NOTHING`, uuid.NewString(), id, now); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}

		var (
			lastAt  sql.NullInt64
			preview sql.NullString
		)
		if err := tx.QueryRow(`
			SELECT id, connection_id, last_message_at, last_message_preview
			FROM conversations WHERE connection_id = ?`, id).
			Scan(&c.ID, &c.ConnectionID, &lastAt, &preview); err != nil {
			return fmt.Errorf("read conversation: %w", err)
		}
		c.LastMessageAt, c.LastMessagePreview = lastAt.Int64, preview.String
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const connectionViewSelect = `
	SELECT cn.id, cn.sender_id, cn.receiver_id, cn.status, cn.created_at,
		ps.id, ps.first_name, ps.last_name, ps.photo_url,
		pr.id, pr.first_name, pr.last_name, pr.photo_url,
		cv.id
	FROM connections cn
	LEFT JOIN profiles ps ON ps.id = cn.sender_id
	LEFT JOIN profiles pr ON pr.id = cn.receiver_id
	LEFT JOIN conversations cv ON cv.connection_id = cn.id`

func scanConnectionView(row rowScanner) (*ConnectionView, error) {
	var (
		v                          ConnectionView
		sID, sFirst, sLast, sPhoto sql.NullString
		rID, rFirst, rLast, rPhoto sql.NullString
		convID                     sql.NullString
	)
	c := &v.Connection
	if err := row.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.CreatedAt,
		&sID, &sFirst, &sLast, &sPhoto,
		&rID, &rFirst, &rLast, &rPhoto,
		&convID); err != nil {
		return nil, err
	}
	if sID.Valid {
		v.Sender = &Profile{ID: sID.String, FirstName: sFirst.String, LastName: sLast.String, PhotoURL: sPhoto.String}
	}
	if rID.Valid {
		v.Receiver = &Profile{ID: rID.String, FirstName: rFirst.String, LastName: rLast.String, PhotoURL: rPhoto.String}
	}
	v.ConversationID = convID.String
	return &v, nil
}

func (db *DB) queryConnectionViews(where string, args ...any) ([]ConnectionView, error) {
	rows, err := db.Query(connectionViewSelect+" WHERE "+where+" ORDER BY cn.created_at DESC, cn.id", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var views []ConnectionView
	for rows.Next() {
		v, err := scanConnectionView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

// ListConnectionsForProfile returns the connections profileID sent or
// received, newest first. An empty status returns every status.
func (db *DB) ListConnectionsForProfile(profileID, status string) ([]ConnectionView, error) {
	return db.queryConnectionViews(`(cn.sender_id = ? OR cn.receiver_id = ?) AND (? = '' OR cn.status = ?)`,
		profileID, profileID, status, status)
}

// ListPendingRequests returns the pending requests profileID received,
// newest first.
func (db *DB) ListPendingRequests(profileID string) ([]ConnectionView, error) {
	return db.queryConnectionViews(`cn.receiver_id = ? AND cn.status = 'pending'`, profileID)
}

// GetConnectionBetween returns the connection between two profiles in
// either direction, or nil if there is none.
func (db *DB) GetConnectionBetween(a, b string) (*Connection, error) {
	var c Connection
	err := db.QueryRow(`
		SELECT id, sender_id, receiver_id, status, created_at FROM connections
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		LIMIT 1`, a, b, b, a).
		Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
