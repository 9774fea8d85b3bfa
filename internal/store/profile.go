package store

import (
	"database/sql"
	"time"
)

// UpsertProfile inserts or updates a profile.
func (db *DB) UpsertProfile(p *Profile) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO profiles (id, first_name, last_name, photo_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			photo_url = excluded.photo_url,
			updated_at = excluded.updated_at`,
		p.ID, nullString(p.FirstName), nullString(p.LastName), nullString(p.PhotoURL), now, now)
	return err
}

// GetProfile returns a profile by id, or nil if it does not exist.
func (db *DB) GetProfile(id string) (*Profile, error) {
	var (
		p                     Profile
		first, last, photoURL sql.NullString
	)
	err := db.QueryRow(`SELECT id, first_name, last_name, photo_url FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &first, &last, &photoURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.FirstName, p.LastName, p.PhotoURL = first.String, last.String, photoURL.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
