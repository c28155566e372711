package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// TranscriptionStore is the data access layer for transcriptions.
type TranscriptionStore struct {
	db *DB
}

// NewTranscriptionStore creates a new TranscriptionStore.
func NewTranscriptionStore(db *DB) *TranscriptionStore {
	return &TranscriptionStore{db: db}
}

// Create inserts a new transcription and fills in its generated ID.
func (s *TranscriptionStore) Create(ctx context.Context, t *types.Transcription) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions (video_id, language, content, content_json, summary, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.VideoID, t.Language, t.Content, t.ContentJSON, t.Summary, t.Confidence, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transcription: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transcription id: %w", err)
	}
	return nil
}

// GetByID returns the transcription with the given id, or ErrNotFound.
func (s *TranscriptionStore) GetByID(ctx context.Context, id int64) (*types.Transcription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, language, content, content_json, summary, confidence, created_at
		FROM transcriptions WHERE id = ?`, id)
	return scanTranscription(row)
}

// ListByVideo returns every transcription for a video, newest first.
func (s *TranscriptionStore) ListByVideo(ctx context.Context, videoID string) ([]types.Transcription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, language, content, content_json, summary, confidence, created_at
		FROM transcriptions WHERE video_id = ? ORDER BY created_at DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcriptions: %w", err)
	}
	defer rows.Close()

	var out []types.Transcription
	for rows.Next() {
		var t types.Transcription
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Language, &t.Content, &t.ContentJSON, &t.Summary, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetSummary attaches the generated summary to an existing transcription.
// It is the only mutation allowed after creation.
func (s *TranscriptionStore) SetSummary(ctx context.Context, id int64, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transcriptions SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTranscription(row *sql.Row) (*types.Transcription, error) {
	var t types.Transcription
	err := row.Scan(&t.ID, &t.VideoID, &t.Language, &t.Content, &t.ContentJSON, &t.Summary, &t.Confidence, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	return &t, nil
}
