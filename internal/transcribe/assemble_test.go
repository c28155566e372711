package transcribe

import (
	"encoding/json"
	"strings"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestAssembleOrdersByIndex(t *testing.T) {
	// Results appended out of order; output must follow the segment index.
	results := []SegmentResult{
		{Index: 2, Start: 1800, Text: "third", Raw: json.RawMessage(`{"text":"third"}`)},
		{Index: 0, Start: 0, Text: "first", Raw: json.RawMessage(`{"text":"first"}`)},
		{Index: 1, Start: 900, Text: "second", Raw: json.RawMessage(`{"text":"second"}`)},
	}

	transcription, err := Assemble("video-1", results)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	firstPos := strings.Index(transcription.Content, "first")
	secondPos := strings.Index(transcription.Content, "second")
	thirdPos := strings.Index(transcription.Content, "third")
	if firstPos < 0 || secondPos < 0 || thirdPos < 0 {
		t.Fatalf("content missing segment text: %q", transcription.Content)
	}
	if !(firstPos < secondPos && secondPos < thirdPos) {
		t.Errorf("segments out of order: positions %d, %d, %d", firstPos, secondPos, thirdPos)
	}

	for _, marker := range []string{"[Segment 1 | start=0s]", "[Segment 2 | start=900s]", "[Segment 3 | start=1800s]"} {
		if !strings.Contains(transcription.Content, marker) {
			t.Errorf("content missing marker %q", marker)
		}
	}
}

func TestAssembleContentJSONPreservesRawPayloads(t *testing.T) {
	results := []SegmentResult{
		{Index: 1, Start: 900, Text: "b", Raw: json.RawMessage(`{"id":"job-b"}`)},
		{Index: 0, Start: 0, Text: "a", Raw: json.RawMessage(`{"id":"job-a"}`)},
	}

	transcription, err := Assemble("video-1", results)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	var decoded struct {
		Chunks []struct {
			ID string `json:"id"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal([]byte(transcription.ContentJSON), &decoded); err != nil {
		t.Fatalf("content_json is not valid JSON: %v", err)
	}
	if len(decoded.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(decoded.Chunks))
	}
	if decoded.Chunks[0].ID != "job-a" || decoded.Chunks[1].ID != "job-b" {
		t.Errorf("chunks not in index order: %+v", decoded.Chunks)
	}
}

func TestAssembleConfidenceMean(t *testing.T) {
	results := []SegmentResult{
		{Index: 0, Confidence: floatPtr(0.91)},
		{Index: 1, Confidence: floatPtr(0.87)},
	}

	transcription, err := Assemble("video-1", results)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if transcription.Confidence == nil {
		t.Fatal("expected a confidence value")
	}
	if *transcription.Confidence != 0.89 {
		t.Errorf("expected confidence 0.89, got %f", *transcription.Confidence)
	}
}

func TestAssembleConfidenceSkipsMissing(t *testing.T) {
	results := []SegmentResult{
		{Index: 0, Confidence: floatPtr(0.6)},
		{Index: 1},
		{Index: 2, Confidence: floatPtr(0.9)},
	}

	transcription, err := Assemble("video-1", results)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if transcription.Confidence == nil {
		t.Fatal("expected a confidence value")
	}
	if *transcription.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", *transcription.Confidence)
	}
}

func TestAssembleConfidenceAbsent(t *testing.T) {
	results := []SegmentResult{{Index: 0}, {Index: 1}}

	transcription, err := Assemble("video-1", results)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if transcription.Confidence != nil {
		t.Errorf("expected no confidence, got %f", *transcription.Confidence)
	}
}

func TestAssembleLanguage(t *testing.T) {
	withLanguage := []SegmentResult{
		{Index: 1, Language: "pt"},
		{Index: 0, Language: "en"},
	}
	transcription, err := Assemble("video-1", withLanguage)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if transcription.Language != "en" {
		t.Errorf("expected language of first segment (en), got %q", transcription.Language)
	}

	withoutLanguage := []SegmentResult{{Index: 0}}
	transcription, err = Assemble("video-1", withoutLanguage)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if transcription.Language != "unknown" {
		t.Errorf("expected language unknown, got %q", transcription.Language)
	}
}
