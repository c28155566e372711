package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cleitonlanga/learnfy-plataform/internal/acquire"
	"github.com/cleitonlanga/learnfy-plataform/internal/queue"
	"github.com/cleitonlanga/learnfy-plataform/internal/storage"
	"github.com/cleitonlanga/learnfy-plataform/internal/transcribe"
	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// VideoHandler exposes the thin request surface in front of the pipeline:
// create a video and enqueue acquisition, enqueue transcription, poll status,
// read transcripts, delete.
type VideoHandler struct {
	videos         *storage.VideoStore
	transcriptions *storage.TranscriptionStore
	acquisition    *queue.Queue
	transcription  *queue.Queue
	acquirer       *acquire.Worker
	pipeline       *transcribe.Pipeline
	scratchDir     string
	maxUploadMB    int
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(
	videos *storage.VideoStore,
	transcriptions *storage.TranscriptionStore,
	acquisition *queue.Queue,
	transcription *queue.Queue,
	acquirer *acquire.Worker,
	pipeline *transcribe.Pipeline,
	scratchDir string,
	maxUploadMB int,
) *VideoHandler {
	return &VideoHandler{
		videos:         videos,
		transcriptions: transcriptions,
		acquisition:    acquisition,
		transcription:  transcription,
		acquirer:       acquirer,
		pipeline:       pipeline,
		scratchDir:     scratchDir,
		maxUploadMB:    maxUploadMB,
	}
}

// CreateRequest is the JSON body for link-based sources.
type CreateRequest struct {
	SourceType  string `json:"source_type"`
	SourceValue string `json:"source_value"`
	OwnerID     string `json:"owner_id"`
}

// Create registers a new video (multipart for uploads, JSON for youtube and
// external links) and enqueues its acquisition.
func (h *VideoHandler) Create(c *fiber.Ctx) error {
	if file, err := c.FormFile("file"); err == nil {
		return h.createFromUpload(c, file)
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.SourceType != types.SourceYouTube && req.SourceType != types.SourceExternal {
		return c.Status(400).JSON(fiber.Map{
			"error": "source_type must be youtube, external or upload (multipart)",
			"code":  "ERR_INVALID_SOURCE",
		})
	}
	if req.SourceValue == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "source_value is required",
			"code":  "ERR_NO_SOURCE",
		})
	}

	video := &types.Video{
		OwnerID:     ownerID(req.OwnerID),
		SourceType:  req.SourceType,
		SourceValue: req.SourceValue,
	}
	return h.createAndEnqueue(c, video, "")
}

func (h *VideoHandler) createFromUpload(c *fiber.Ctx, file *multipart.FileHeader) error {
	maxSize := int64(h.maxUploadMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxUploadMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	tempPath := filepath.Join(h.scratchDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, tempPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	video := &types.Video{
		OwnerID:     ownerID(c.FormValue("owner_id")),
		SourceType:  types.SourceUpload,
		SourceValue: tempPath,
	}
	return h.createAndEnqueue(c, video, tempPath)
}

func (h *VideoHandler) createAndEnqueue(c *fiber.Ctx, video *types.Video, uploadedPath string) error {
	if err := h.videos.Create(c.Context(), video); err != nil {
		log.Printf("Failed to create video: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to create video",
			"code":  "ERR_CREATE_FAILED",
		})
	}

	videoID := video.ID
	h.acquisition.Enqueue(queue.Job{
		VideoID: videoID,
		Name:    "acquire",
		Run: func(ctx context.Context) error {
			return h.acquirer.Process(ctx, videoID, uploadedPath)
		},
	})

	return c.Status(202).JSON(fiber.Map{
		"id":     videoID,
		"status": video.Status,
	})
}

// EnqueueTranscription submits an audio-ready video to the transcription
// queue. Readiness itself is enforced by the pipeline precondition.
func (h *VideoHandler) EnqueueTranscription(c *fiber.Ctx) error {
	videoID := c.Params("id")
	if _, err := h.videos.GetByID(c.Context(), videoID); err != nil {
		return notFoundOr500(c, err)
	}

	h.transcription.Enqueue(queue.Job{
		VideoID: videoID,
		Name:    "transcribe",
		Run: func(ctx context.Context) error {
			return h.pipeline.Process(ctx, videoID)
		},
	})

	return c.Status(202).JSON(fiber.Map{
		"id":     videoID,
		"status": "enqueued",
	})
}

// Get returns one video row, the status-polling surface for clients.
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	video, err := h.videos.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(video)
}

// List returns videos, optionally filtered by ?owner_id=.
func (h *VideoHandler) List(c *fiber.Ctx) error {
	videos, err := h.videos.List(c.Context(), c.Query("owner_id"), c.QueryInt("limit"))
	if err != nil {
		log.Printf("Failed to list videos: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to list videos"})
	}
	if videos == nil {
		videos = []types.Video{}
	}
	return c.JSON(videos)
}

// Delete removes the video row and its local audio artifact.
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	if err := h.videos.Delete(c.Context(), c.Params("id")); err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(fiber.Map{"message": "Video deleted successfully"})
}

// ListTranscriptions returns the transcriptions of one video.
func (h *VideoHandler) ListTranscriptions(c *fiber.Ctx) error {
	videoID := c.Params("id")
	if _, err := h.videos.GetByID(c.Context(), videoID); err != nil {
		return notFoundOr500(c, err)
	}

	list, err := h.transcriptions.ListByVideo(c.Context(), videoID)
	if err != nil {
		log.Printf("Failed to list transcriptions: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to list transcriptions"})
	}
	if list == nil {
		list = []types.Transcription{}
	}
	return c.JSON(list)
}

func ownerID(raw string) string {
	if raw == "" {
		return "anonymous"
	}
	return raw
}

func notFoundOr500(c *fiber.Ctx, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Video not found"})
	}
	log.Printf("Storage error: %v", err)
	return c.Status(500).JSON(fiber.Map{"error": "Internal error"})
}
