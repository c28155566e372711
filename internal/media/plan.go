package media

// ChunkSeconds bounds the duration of one transcription segment.
const ChunkSeconds = 900

// SegmentPlan describes one planned slice of normalized audio.
type SegmentPlan struct {
	Index    int
	Start    float64
	Duration float64
}

// PlanSegments splits a total duration into non-overlapping slices of at
// most ChunkSeconds each. A duration within the bound yields a single
// segment covering the whole file.
func PlanSegments(totalSeconds float64) []SegmentPlan {
	if totalSeconds <= ChunkSeconds {
		return []SegmentPlan{{Index: 0, Start: 0, Duration: totalSeconds}}
	}

	var plans []SegmentPlan
	for start := 0.0; start < totalSeconds; start += ChunkSeconds {
		duration := float64(ChunkSeconds)
		if remaining := totalSeconds - start; remaining < duration {
			duration = remaining
		}
		plans = append(plans, SegmentPlan{
			Index:    len(plans),
			Start:    start,
			Duration: duration,
		})
	}
	return plans
}
