package transcribe

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// SegmentResult is one provider payload tagged with the segment's original
// position in the audio.
type SegmentResult struct {
	Index      int
	Start      float64
	Text       string
	Confidence *float64
	Language   string
	Raw        json.RawMessage
}

// contentJSON is the shape persisted under Transcription.ContentJSON.
type contentJSON struct {
	Chunks []json.RawMessage `json:"chunks"`
}

// Assemble merges per-segment results into one transcription. Ordering is
// determined solely by segment index, not by the order results arrived in.
func Assemble(videoID string, results []SegmentResult) (*types.Transcription, error) {
	sorted := make([]SegmentResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	parts := make([]string, len(sorted))
	for i, r := range sorted {
		marker := fmt.Sprintf("\n\n[Segment %d | start=%ds]\n\n", i+1, int(r.Start))
		parts[i] = marker + r.Text
	}

	raw := contentJSON{Chunks: make([]json.RawMessage, len(sorted))}
	for i, r := range sorted {
		raw.Chunks[i] = r.Raw
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal segment payloads: %w", err)
	}

	language := "unknown"
	if len(sorted) > 0 && sorted[0].Language != "" {
		language = sorted[0].Language
	}

	return &types.Transcription{
		VideoID:     videoID,
		Language:    language,
		Content:     strings.Join(parts, "\n"),
		ContentJSON: string(encoded),
		Confidence:  meanConfidence(sorted),
	}, nil
}

// meanConfidence averages the confidences of segments that report one,
// rounded to 3 decimal places. It is nil when no segment reports a value.
func meanConfidence(results []SegmentResult) *float64 {
	var sum float64
	var count int
	for _, r := range results {
		if r.Confidence != nil && !math.IsNaN(*r.Confidence) {
			sum += *r.Confidence
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := math.Round(sum/float64(count)*1000) / 1000
	return &mean
}
