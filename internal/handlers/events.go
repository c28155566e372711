package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/cleitonlanga/learnfy-plataform/internal/storage"
	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// statusPollInterval is how often the feed re-reads the video row.
const statusPollInterval = time.Second

// StatusEvent is one message pushed over the status feed.
type StatusEvent struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
	Stage   string `json:"stage"`
}

// EventsHandler pushes status changes of one video over a WebSocket, closing
// the connection once a terminal state is reached.
type EventsHandler struct {
	videos *storage.VideoStore
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(videos *storage.VideoStore) *EventsHandler {
	return &EventsHandler{videos: videos}
}

// Handle streams status changes until the video reaches a terminal state or
// the client disconnects.
func (h *EventsHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	videoID := c.Params("id")
	ctx := context.Background()

	var lastStatus string
	for {
		video, err := h.videos.GetByID(ctx, videoID)
		if err != nil {
			log.Printf("Status feed lookup failed for video %s: %v", videoID, err)
			return
		}

		if video.Status != lastStatus {
			lastStatus = video.Status
			event := StatusEvent{VideoID: video.ID, Status: video.Status, Stage: video.Stage}
			if err := c.WriteJSON(event); err != nil {
				return
			}
		}

		if types.IsTerminalStatus(video.Status) {
			return
		}

		time.Sleep(statusPollInterval)
	}
}
