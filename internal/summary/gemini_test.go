package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSummarizeSkipsShortContent(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient("test-key", "")
	client.BaseURL = server.URL

	got, err := client.Summarize(context.Background(), "too short")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty summary for short content, got %q", got)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no provider call for short content, got %d", hits.Load())
	}
}

func TestSummarizeReturnsGeneratedText(t *testing.T) {
	transcript := strings.Repeat("the lecture covers goroutines and channels. ", 5)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid request body: %v", err)
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, transcript) {
			t.Error("prompt does not embed the transcript")
		}

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  - topic one\n  - topic two  "}]}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "")
	client.BaseURL = server.URL

	got, err := client.Summarize(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "- topic one\n  - topic two" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarizeErrorsOnProviderFailure(t *testing.T) {
	transcript := strings.Repeat("long enough transcript content. ", 5)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", "")
	client.BaseURL = server.URL

	if _, err := client.Summarize(context.Background(), transcript); err == nil {
		t.Fatal("expected an error on provider failure")
	}
}

func TestSummarizeErrorsOnEmptyCandidates(t *testing.T) {
	transcript := strings.Repeat("long enough transcript content. ", 5)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "")
	client.BaseURL = server.URL

	if _, err := client.Summarize(context.Background(), transcript); err == nil {
		t.Fatal("expected an error when the provider returns no candidates")
	}
}
