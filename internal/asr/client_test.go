package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.PollInterval = time.Millisecond
	client.MaxWait = time.Second
	client.MaxPolls = 5
	return client, server
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadMissingFileSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network calls, got %d", hits.Load())
	}
}

func TestUploadReturnsHandle(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("unexpected content type %s", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/abc"})
	}))

	uploadURL, err := client.Upload(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if uploadURL != "https://cdn.example/abc" {
		t.Errorf("unexpected upload url %q", uploadURL)
	}
}

func TestUploadRejectsMissingHandle(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	if _, err := client.Upload(context.Background(), writeTempAudio(t)); err == nil {
		t.Fatal("expected an error when upload_url is absent")
	}
}

func TestCreateTranscriptSubmitsFeatureSet(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcript" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("invalid request body: %v", err)
		}
		if body["audio_url"] != "https://cdn.example/abc" {
			t.Errorf("unexpected audio_url %v", body["audio_url"])
		}
		for _, flag := range []string{"language_detection", "speaker_labels", "disfluencies", "punctuate", "format_text"} {
			if body[flag] != true {
				t.Errorf("expected %s=true, got %v", flag, body[flag])
			}
		}
		for _, flag := range []string{"auto_chapters", "filter_profanity", "redact_pii"} {
			if body[flag] != false {
				t.Errorf("expected %s=false, got %v", flag, body[flag])
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": "queued"})
	}))

	jobID, err := client.CreateTranscript(context.Background(), "https://cdn.example/abc")
	if err != nil {
		t.Fatalf("CreateTranscript failed: %v", err)
	}
	if jobID != "job-1" {
		t.Errorf("unexpected job id %q", jobID)
	}
}

func TestCreateTranscriptRejectsMissingID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))

	if _, err := client.CreateTranscript(context.Background(), "https://cdn.example/abc"); err == nil {
		t.Fatal("expected an error when the provider returns no job id")
	}
}

func TestPollReturnsOnCompleted(t *testing.T) {
	var polls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		status := "processing"
		if n >= 3 {
			status = "completed"
		}
		fmt.Fprintf(w, `{"id":"job-1","status":%q,"text":"hello","confidence":0.93,"language_code":"en"}`, status)
	}))

	transcript, err := client.Poll(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if transcript.Text != "hello" {
		t.Errorf("unexpected text %q", transcript.Text)
	}
	if transcript.Confidence == nil || *transcript.Confidence != 0.93 {
		t.Errorf("unexpected confidence %v", transcript.Confidence)
	}
	if polls.Load() != 3 {
		t.Errorf("expected poll to stop at first completed response, got %d polls", polls.Load())
	}
	if len(transcript.Raw) == 0 {
		t.Error("expected raw payload to be preserved")
	}
}

func TestPollRaisesOnProviderFailure(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"job-1","status":"failed","error":"audio unreadable"}`)
	}))

	_, err := client.Poll(context.Background(), "job-1")
	var jobErr *JobFailedError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobFailedError, got %v", err)
	}
	if jobErr.Message != "audio unreadable" {
		t.Errorf("unexpected message %q", jobErr.Message)
	}
}

func TestPollExhaustsRetries(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"job-1","status":"processing"}`)
	}))

	_, err := client.Poll(context.Background(), "job-1")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
}

func TestPollTimesOut(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"job-1","status":"processing"}`)
	}))
	client.MaxWait = 0
	client.MaxPolls = 1000

	_, err := client.Poll(context.Background(), "job-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
}
