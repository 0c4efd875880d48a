package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/teachable/internal/models"
	"github.com/hyperjump/teachable/internal/vector"
)

// SQLiteStorage implements Storage using SQLite. Sample vectors are stored
// as little-endian float32 blobs.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT,
		dimensions INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS classes (
		session_id TEXT NOT NULL,
		class_index INTEGER NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (session_id, class_index),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS samples (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		class_index INTEGER NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_samples_session ON samples(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession inserts a session.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *models.Session) error {
	session.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, dimensions, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Name, session.Dimensions, session.CreatedAt,
	)
	return err
}

// GetSession returns a session by ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, dimensions, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Name, &session.Dimensions, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStorage) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, dimensions, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.Name, &session.Dimensions, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// AddClass records a class of a session.
func (s *SQLiteStorage) AddClass(ctx context.Context, sessionID string, class models.ClassInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (session_id, class_index, label) VALUES (?, ?, ?)`,
		sessionID, class.Index, class.Label,
	)
	return err
}

// ListClasses returns the classes of a session ordered by class index, with sample counts.
func (s *SQLiteStorage) ListClasses(ctx context.Context, sessionID string) ([]models.ClassInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.class_index, c.label, COUNT(s.id)
		 FROM classes c
		 LEFT JOIN samples s ON s.session_id = c.session_id AND s.class_index = c.class_index
		 WHERE c.session_id = ?
		 GROUP BY c.class_index, c.label
		 ORDER BY c.class_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []models.ClassInfo
	for rows.Next() {
		var c models.ClassInfo
		if err := rows.Scan(&c.Index, &c.Label, &c.Samples); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// AddSample inserts a sample and records its length as the session dimension.
func (s *SQLiteStorage) AddSample(ctx context.Context, sample *models.Sample) error {
	return s.writeSample(ctx, sample, false)
}

// ReplaceSamples deletes the session's samples and inserts sample, in one transaction.
func (s *SQLiteStorage) ReplaceSamples(ctx context.Context, sample *models.Sample) error {
	return s.writeSample(ctx, sample, true)
}

func (s *SQLiteStorage) writeSample(ctx context.Context, sample *models.Sample, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE session_id = ?`, sample.SessionID); err != nil {
			return fmt.Errorf("delete samples: %w", err)
		}
	}
	// Sessions that were never created (in-memory engines) have no row to update.
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET dimensions = ? WHERE id = ?`, len(sample.Embedding), sample.SessionID,
	); err != nil {
		return fmt.Errorf("update dimensions: %w", err)
	}
	createdAt := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO samples (id, session_id, class_index, dimensions, vector, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.SessionID, sample.ClassIndex, len(sample.Embedding),
		vector.EncodeFloat32s(sample.Embedding), createdAt,
	); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	sample.CreatedAt = createdAt
	return nil
}

// ListSamples returns the samples of a session in insertion order.
func (s *SQLiteStorage) ListSamples(ctx context.Context, sessionID string) ([]*models.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, class_index, vector, created_at
		 FROM samples WHERE session_id = ? ORDER BY rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*models.Sample
	for rows.Next() {
		var sample models.Sample
		var blob []byte
		if err := rows.Scan(&sample.ID, &sample.SessionID, &sample.ClassIndex, &blob, &sample.CreatedAt); err != nil {
			return nil, err
		}
		emb, err := vector.DecodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", sample.ID, err)
		}
		sample.Embedding = emb
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}

// CountSamples returns the number of samples of a session, or of all sessions when sessionID is empty.
func (s *SQLiteStorage) CountSamples(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	var err error
	if sessionID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples WHERE session_id = ?`, sessionID).Scan(&count)
	}
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
