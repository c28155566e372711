package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// VideoStore is the data access layer for videos.
type VideoStore struct {
	db *DB
}

// NewVideoStore creates a new VideoStore.
func NewVideoStore(db *DB) *VideoStore {
	return &VideoStore{db: db}
}

// Create inserts a new video. A missing ID is generated and the status
// defaults to queued.
func (s *VideoStore) Create(ctx context.Context, v *types.Video) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = types.StatusQueued
	}
	if v.Stage == "" {
		v.Stage = types.StageAcquisition
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (id, owner_id, source_type, source_value, status, stage, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.OwnerID, v.SourceType, v.SourceValue, v.Status, v.Stage, v.Duration, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// GetByID returns the video with the given id, or ErrNotFound.
func (s *VideoStore) GetByID(ctx context.Context, id string) (*types.Video, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, source_type, source_value, status, stage, duration, created_at
		FROM videos WHERE id = ?`, id)

	var v types.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.SourceType, &v.SourceValue, &v.Status, &v.Stage, &v.Duration, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &v, nil
}

// List returns videos newest first, optionally filtered by owner.
func (s *VideoStore) List(ctx context.Context, ownerID string, limit int) ([]types.Video, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner_id, source_type, source_value, status, stage, duration, created_at
		FROM videos`
	args := []any{}
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []types.Video
	for rows.Next() {
		var v types.Video
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.SourceType, &v.SourceValue, &v.Status, &v.Stage, &v.Duration, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetStatus writes the video's status and the pipeline stage that wrote it.
func (s *VideoStore) SetStatus(ctx context.Context, id, status, stage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET status = ?, stage = ? WHERE id = ?`, status, stage, id)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishAcquisition records the final audio artifact path and duration and
// marks the video audio_ready in one write.
func (s *VideoStore) FinishAcquisition(ctx context.Context, id, audioPath string, duration float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE videos SET source_value = ?, duration = ?, status = ?, stage = ?
		WHERE id = ?`,
		audioPath, duration, types.StatusAudioReady, types.StageAcquisition, id)
	if err != nil {
		return fmt.Errorf("failed to finish acquisition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the video row and, when acquisition has already produced a
// local audio artifact, that file as well.
func (s *VideoStore) Delete(ctx context.Context, id string) error {
	v, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if v.Status == types.StatusAudioReady || v.Status == types.StatusTranscribing || v.Status == types.StatusTranscribed {
		if err := os.Remove(v.SourceValue); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to delete audio artifact %s: %v", v.SourceValue, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions WHERE video_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transcriptions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}
