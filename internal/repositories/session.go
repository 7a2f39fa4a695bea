// package repositories implements SQLite-backed persistence for session records
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/djbeb/djbeb/internal/models"
	"github.com/djbeb/djbeb/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database with a generated ID.
func (r *SessionRepository) Create(session *models.Session) error {
	if session.ID() == "" {
		session.SetID(shared.GenerateID())
	}

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sessions (id, access_token, refresh_token, token_expires_at, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, session.ID(), session.AccessToken(), session.RefreshToken(),
		session.TokenExpiry(), session.ExpiresAt(), session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding expired sessions.
// A missing or expired session returns (nil, nil), not an error.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, access_token, refresh_token, token_expires_at, expires_at, created_at, updated_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var (
		sessionID    string
		accessToken  string
		refreshToken string
		tokenExpiry  sql.NullTime
		expiresAt    time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := r.db.QueryRow(query, id, time.Now()).Scan(&sessionID, &accessToken, &refreshToken,
		&tokenExpiry, &expiresAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session := &models.Session{}
	session.SetID(sessionID)
	if tokenExpiry.Valid {
		session.SetTokenFields(accessToken, refreshToken, tokenExpiry.Time)
	} else {
		session.SetTokenFields(accessToken, refreshToken, time.Time{})
	}
	session.SetExpiresAt(expiresAt)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)

	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, token_expires_at = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, session.AccessToken(), session.RefreshToken(),
		session.TokenExpiry(), session.ExpiresAt(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %s", session.ID())
	}

	return nil
}

// Delete removes a session by ID. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes all sessions whose idle window has lapsed and returns the count removed.
func (r *SessionRepository) PurgeExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
