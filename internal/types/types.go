package types

import "time"

// Video status constants. Acquisition moves a video through
// queued -> downloading -> audio_ready; transcription through
// audio_ready -> transcribing -> transcribed. failed is terminal and
// reachable from any non-terminal state.
const (
	StatusQueued       = "queued"
	StatusDownloading  = "downloading"
	StatusAudioReady   = "audio_ready"
	StatusTranscribing = "transcribing"
	StatusTranscribed  = "transcribed"
	StatusFailed       = "failed"
)

// Pipeline stage constants, recorded alongside every status write.
const (
	StageAcquisition   = "acquisition"
	StageTranscription = "transcription"
)

// Source type constants
const (
	SourceYouTube  = "youtube"
	SourceUpload   = "upload"
	SourceExternal = "external"
)

// IsTerminalStatus reports whether no further pipeline-driven transition
// can occur from status.
func IsTerminalStatus(status string) bool {
	return status == StatusTranscribed || status == StatusFailed
}

// Video is a media source submitted for transcription. SourceValue starts
// as a URL or uploaded file path and is overwritten with the final audio
// artifact path once acquisition succeeds.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	SourceType  string    `json:"source_type"`
	SourceValue string    `json:"source_value"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transcription is the assembled transcript for one video. Summary is the
// only field mutated after creation.
type Transcription struct {
	ID          int64     `json:"id"`
	VideoID     string    `json:"video_id"`
	Language    string    `json:"language"`
	Content     string    `json:"content"`
	ContentJSON string    `json:"content_json"`
	Summary     *string   `json:"summary"`
	Confidence  *float64  `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}
