package acquire

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cleitonlanga/learnfy-plataform/internal/storage"
	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// videoContainerExts lists upload extensions that carry a video stream and
// must be converted to audio before storage.
var videoContainerExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
	".avi": true,
}

// mediaOps is the slice of the media processor the worker needs.
type mediaOps interface {
	ConvertToAudio(ctx context.Context, inputPath, outputPath string) error
	Probe(ctx context.Context, path string) (float64, error)
}

// audioDownloader resolves a remote video URL into a local audio stream and
// reports the duration known from the source's own metadata.
type audioDownloader interface {
	DownloadAudio(ctx context.Context, videoURL, outputPath string) (float64, error)
}

// Worker resolves a video's source into a local audio artifact.
type Worker struct {
	videos     *storage.VideoStore
	media      mediaOps
	youtube    audioDownloader
	httpClient *http.Client
	scratchDir string
	audioDir   string
}

// NewWorker creates an acquisition worker.
func NewWorker(videos *storage.VideoStore, media mediaOps, youtube audioDownloader, scratchDir, audioDir string) *Worker {
	return &Worker{
		videos:     videos,
		media:      media,
		youtube:    youtube,
		httpClient: &http.Client{},
		scratchDir: scratchDir,
		audioDir:   audioDir,
	}
}

// Process acquires the audio for one queued video. On success the video's
// sourceValue points at the final artifact, its duration is known and its
// status is audio_ready. On failure the status is set to failed and the
// error propagates to the scheduler, whose compensation may set failed again
// (idempotent).
func (w *Worker) Process(ctx context.Context, videoID, uploadedPath string) error {
	video, err := w.videos.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video.Status != types.StatusQueued {
		return fmt.Errorf("video %s is not queued (status: %s)", videoID, video.Status)
	}

	if err := w.videos.SetStatus(ctx, videoID, types.StatusDownloading, types.StageAcquisition); err != nil {
		return err
	}

	audioPath, duration, err := w.acquire(ctx, video, uploadedPath)
	if err == nil && duration == 0 {
		duration, err = w.media.Probe(ctx, audioPath)
	}
	if err != nil {
		if serr := w.videos.SetStatus(ctx, videoID, types.StatusFailed, types.StageAcquisition); serr != nil {
			log.Printf("Failed to mark video %s failed: %v", videoID, serr)
		}
		return err
	}

	return w.videos.FinishAcquisition(ctx, videoID, audioPath, duration)
}

// acquire dispatches on the video's source type and returns the artifact
// path plus the duration if the source metadata already knows it.
func (w *Worker) acquire(ctx context.Context, video *types.Video, uploadedPath string) (string, float64, error) {
	switch video.SourceType {
	case types.SourceYouTube:
		return w.acquireYouTube(ctx, video.SourceValue)
	case types.SourceUpload:
		return w.acquireUpload(ctx, uploadedPath)
	case types.SourceExternal:
		return w.acquireExternal(ctx, video.SourceValue)
	default:
		return "", 0, fmt.Errorf("unsupported source type: %s", video.SourceType)
	}
}

func (w *Worker) acquireYouTube(ctx context.Context, videoURL string) (string, float64, error) {
	tempPath := filepath.Join(w.scratchDir, uuid.New().String()+".audio")
	duration, err := w.youtube.DownloadAudio(ctx, videoURL, tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("youtube download failed: %w", err)
	}
	defer w.removeTemp(tempPath)

	audioPath := filepath.Join(w.audioDir, uuid.New().String()+".mp3")
	if err := w.media.ConvertToAudio(ctx, tempPath, audioPath); err != nil {
		return "", 0, err
	}
	return audioPath, duration, nil
}

func (w *Worker) acquireUpload(ctx context.Context, uploadedPath string) (string, float64, error) {
	if uploadedPath == "" {
		return "", 0, fmt.Errorf("file not uploaded")
	}
	if _, err := os.Stat(uploadedPath); err != nil {
		return "", 0, fmt.Errorf("uploaded file missing: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(uploadedPath))
	if videoContainerExts[ext] {
		audioPath := filepath.Join(w.audioDir, uuid.New().String()+".mp3")
		if err := w.media.ConvertToAudio(ctx, uploadedPath, audioPath); err != nil {
			return "", 0, err
		}
		w.removeTemp(uploadedPath)
		return audioPath, 0, nil
	}

	// Already an audio container: relocate as-is.
	audioPath := filepath.Join(w.audioDir, uuid.New().String()+ext)
	if err := os.Rename(uploadedPath, audioPath); err != nil {
		return "", 0, fmt.Errorf("failed to relocate uploaded file: %w", err)
	}
	return audioPath, 0, nil
}

func (w *Worker) acquireExternal(ctx context.Context, rawURL string) (string, float64, error) {
	tempPath := filepath.Join(w.scratchDir, uuid.New().String()+urlExt(rawURL))
	if err := w.downloadToFile(ctx, rawURL, tempPath); err != nil {
		return "", 0, err
	}
	defer w.removeTemp(tempPath)

	audioPath := filepath.Join(w.audioDir, uuid.New().String()+".mp3")
	if err := w.media.ConvertToAudio(ctx, tempPath, audioPath); err != nil {
		return "", 0, err
	}
	return audioPath, 0, nil
}

// downloadToFile streams the raw bytes of rawURL to destPath.
func (w *Worker) downloadToFile(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download rejected with status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}

func (w *Worker) removeTemp(filePath string) {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}

// urlExt extracts a file extension from a URL path, if any.
func urlExt(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(parsed.Path)
}
