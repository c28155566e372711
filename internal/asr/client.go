package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the ASR provider's v2 REST endpoint.
const DefaultBaseURL = "https://api.assemblyai.com/v2"

// maxUploadBytes caps a single segment upload at 1 GB.
const maxUploadBytes = 1_000_000_000

// Poll loop defaults: one status fetch every 5 seconds, bounded by both a
// wall-clock ceiling and an iteration ceiling.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 2 * time.Hour
	DefaultMaxPolls     = 100
)

// ErrPollTimeout is returned when a provider job stays non-terminal past the
// maximum wall-clock wait.
var ErrPollTimeout = errors.New("transcription polling timed out")

// ErrRetriesExhausted is returned when the poll iteration ceiling is hit
// before the job reaches a terminal state.
var ErrRetriesExhausted = errors.New("maximum polling retries exceeded")

// JobFailedError reports a provider-side transcription failure, as opposed
// to a polling timeout on our side.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transcription job %s failed", e.JobID)
	}
	return fmt.Sprintf("transcription job %s failed: %s", e.JobID, e.Message)
}

// Transcript is the provider's job payload. Raw preserves the exact response
// body for persistence.
type Transcript struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Text         string   `json:"text"`
	Confidence   *float64 `json:"confidence"`
	LanguageCode string   `json:"language_code"`
	Error        string   `json:"error"`

	Raw json.RawMessage `json:"-"`
}

// Client talks to the ASR provider's upload/transcript endpoints.
type Client struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxPolls     int
}

// NewClient creates a Client with the default endpoint and poll bounds.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:      DefaultBaseURL,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{},
		PollInterval: DefaultPollInterval,
		MaxWait:      DefaultMaxWait,
		MaxPolls:     DefaultMaxPolls,
	}
}

// Upload streams the audio file at path to the provider and returns the
// upload handle. A missing local file fails before any network call.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %s", path)
	}
	if info.Size() > maxUploadBytes {
		return "", fmt.Errorf("audio file exceeds upload limit: %d bytes", info.Size())
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", file)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(body))
	}

	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if uploaded.UploadURL == "" {
		return "", fmt.Errorf("invalid upload response: missing upload_url")
	}
	return uploaded.UploadURL, nil
}

// transcriptRequest carries the fixed feature set submitted with every job.
type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	LanguageDetection bool   `json:"language_detection"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	Disfluencies      bool   `json:"disfluencies"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
	AutoChapters      bool   `json:"auto_chapters"`
	FilterProfanity   bool   `json:"filter_profanity"`
	RedactPII         bool   `json:"redact_pii"`
}

// CreateTranscript submits an uploaded segment for transcription and returns
// the provider job id.
func (c *Client) CreateTranscript(ctx context.Context, uploadURL string) (string, error) {
	payload, err := json.Marshal(transcriptRequest{
		AudioURL:          uploadURL,
		LanguageDetection: true,
		SpeakerLabels:     true,
		Disfluencies:      true,
		Punctuate:         true,
		FormatText:        true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build transcript request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript response: %w", err)
	}

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode transcript response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("failed to create transcription job: %s", string(body))
	}
	return created.ID, nil
}

// GetTranscript fetches the current job payload once.
func (c *Client) GetTranscript(ctx context.Context, jobID string) (*Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request rejected with status %d: %s", resp.StatusCode, string(body))
	}

	var transcript Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	transcript.Raw = body
	return &transcript, nil
}

// Poll fetches the job at the configured interval until it reaches a
// terminal state. It returns the payload on completed, a JobFailedError on
// failed, and ErrPollTimeout or ErrRetriesExhausted when the respective
// ceiling is exceeded first.
func (c *Client) Poll(ctx context.Context, jobID string) (*Transcript, error) {
	start := time.Now()

	for retries := 0; retries < c.MaxPolls; retries++ {
		transcript, err := c.GetTranscript(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch transcript.Status {
		case "completed":
			return transcript, nil
		case "failed":
			return nil, &JobFailedError{JobID: jobID, Message: transcript.Error}
		}

		if time.Since(start) > c.MaxWait {
			return nil, ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}

	return nil, ErrRetriesExhausted
}
