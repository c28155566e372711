package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Processor runs ffmpeg/ffprobe against local media files. The binaries are
// resolved from FFMPEG_PATH / FFPROBE_PATH or fall back to $PATH.
type Processor struct {
	scratchDir  string
	ffmpegPath  string
	ffprobePath string
}

// NewProcessor creates a Processor writing intermediate files to scratchDir.
func NewProcessor(scratchDir string) *Processor {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Processor{
		scratchDir:  scratchDir,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// Segment is one extracted slice of normalized audio.
type Segment struct {
	Path  string
	Index int
	Start float64
}

// Prepared is the result of PrepareAndChunk. TempFiles lists every file the
// caller owes cleanup, the normalized master included.
type Prepared struct {
	Segments  []Segment
	TempFiles []string
	Duration  float64
}

// Normalize resamples input to mono 16 kHz 16-bit PCM WAV with loudness
// normalization applied, written to a fresh file under the scratch dir.
func (p *Processor) Normalize(ctx context.Context, inputPath string) (string, error) {
	if err := os.MkdirAll(p.scratchDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	outputPath := filepath.Join(p.scratchDir, uuid.New().String()+".wav")

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-af", "loudnorm",
		"-f", "wav",
		"-y",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg normalization failed: %w\nOutput: %s", err, string(output))
	}
	return outputPath, nil
}

// Probe returns the duration of a media file in seconds.
func (p *Processor) Probe(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// ConvertToAudio strips any video stream and transcodes input to MP3 at
// outputPath. The input file is left in place.
func (p *Processor) ConvertToAudio(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-f", "mp3",
		"-y",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// extractSegment copies a bounded window of the normalized file into its own
// WAV file.
func (p *Processor) extractSegment(ctx context.Context, inputPath, outputPath string, start, duration float64) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", strconv.FormatFloat(start, 'f', -1, 64),
		"-t", strconv.FormatFloat(duration, 'f', -1, 64),
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-y",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg segment extraction failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// PrepareAndChunk normalizes the file at path and splits it into bounded
// segments. Every file it writes is reported in TempFiles; on error nothing
// partial is returned and whatever was written so far is removed.
func (p *Processor) PrepareAndChunk(ctx context.Context, path string) (*Prepared, error) {
	normalizedPath, err := p.Normalize(ctx, path)
	if err != nil {
		return nil, err
	}

	duration, err := p.Probe(ctx, normalizedPath)
	if err != nil {
		os.Remove(normalizedPath)
		return nil, err
	}

	prepared := &Prepared{
		TempFiles: []string{normalizedPath},
		Duration:  duration,
	}

	plans := PlanSegments(duration)
	if len(plans) == 1 {
		prepared.Segments = []Segment{{Path: normalizedPath, Index: 0, Start: 0}}
		return prepared, nil
	}

	for _, plan := range plans {
		segmentPath := filepath.Join(p.scratchDir, uuid.New().String()+".wav")
		if err := p.extractSegment(ctx, normalizedPath, segmentPath, plan.Start, float64(ChunkSeconds)); err != nil {
			for _, f := range prepared.TempFiles {
				os.Remove(f)
			}
			return nil, err
		}
		prepared.TempFiles = append(prepared.TempFiles, segmentPath)
		prepared.Segments = append(prepared.Segments, Segment{
			Path:  segmentPath,
			Index: plan.Index,
			Start: plan.Start,
		})
	}

	return prepared, nil
}
