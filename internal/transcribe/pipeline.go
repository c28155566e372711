package transcribe

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cleitonlanga/learnfy-plataform/internal/asr"
	"github.com/cleitonlanga/learnfy-plataform/internal/media"
	"github.com/cleitonlanga/learnfy-plataform/internal/storage"
	"github.com/cleitonlanga/learnfy-plataform/internal/types"
)

// Chunker prepares an audio artifact for transcription.
type Chunker interface {
	PrepareAndChunk(ctx context.Context, path string) (*media.Prepared, error)
}

// Recognizer is the external ASR provider's upload/create/poll protocol.
type Recognizer interface {
	Upload(ctx context.Context, path string) (string, error)
	CreateTranscript(ctx context.Context, uploadURL string) (string, error)
	Poll(ctx context.Context, jobID string) (*asr.Transcript, error)
}

// Summarizer generates a structured summary from the assembled transcript.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Pipeline runs the full transcription of one video: chunk the audio, push
// each segment through the provider sequentially, assemble and persist the
// transcript, then fire off summarization without waiting for it.
type Pipeline struct {
	videos         *storage.VideoStore
	transcriptions *storage.TranscriptionStore
	chunker        Chunker
	recognizer     Recognizer
	summarizer     Summarizer

	// OnSummaryDone, when set, is called after the detached summarization
	// attempt finishes, whether or not it produced a summary.
	OnSummaryDone func(transcriptionID int64)
}

// NewPipeline creates a transcription pipeline.
func NewPipeline(
	videos *storage.VideoStore,
	transcriptions *storage.TranscriptionStore,
	chunker Chunker,
	recognizer Recognizer,
	summarizer Summarizer,
) *Pipeline {
	return &Pipeline{
		videos:         videos,
		transcriptions: transcriptions,
		chunker:        chunker,
		recognizer:     recognizer,
		summarizer:     summarizer,
	}
}

// Process transcribes one audio-ready video. Any error aborts the whole run:
// already-completed segment results are discarded, the status is set to
// failed and the error propagates to the scheduler. On success the video
// ends transcribed with exactly one new Transcription row.
func (p *Pipeline) Process(ctx context.Context, videoID string) error {
	video, err := p.videos.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video.SourceValue == "" || video.Status != types.StatusAudioReady {
		return fmt.Errorf("video %s is not ready for transcription (status: %s)", videoID, video.Status)
	}

	if err := p.videos.SetStatus(ctx, videoID, types.StatusTranscribing, types.StageTranscription); err != nil {
		return err
	}

	transcription, err := p.run(ctx, video)
	if err != nil {
		if serr := p.videos.SetStatus(ctx, videoID, types.StatusFailed, types.StageTranscription); serr != nil {
			log.Printf("Failed to mark video %s failed: %v", videoID, serr)
		}
		return err
	}

	if err := p.videos.SetStatus(ctx, videoID, types.StatusTranscribed, types.StageTranscription); err != nil {
		return err
	}

	go p.summarize(transcription)
	return nil
}

// run performs chunking, per-segment transcription and assembly. Temp files
// are cleaned on every exit path.
func (p *Pipeline) run(ctx context.Context, video *types.Video) (*types.Transcription, error) {
	prepared, err := p.chunker.PrepareAndChunk(ctx, video.SourceValue)
	if err != nil {
		return nil, fmt.Errorf("audio preparation failed: %w", err)
	}
	defer removeAll(prepared.TempFiles)

	log.Printf("Prepared audio for video %s: duration=%.1fs segments=%d", video.ID, prepared.Duration, len(prepared.Segments))

	results := make([]SegmentResult, 0, len(prepared.Segments))
	for _, segment := range prepared.Segments {
		result, err := p.transcribeSegment(ctx, segment, len(prepared.Segments))
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	transcription, err := Assemble(video.ID, results)
	if err != nil {
		return nil, err
	}
	if err := p.transcriptions.Create(ctx, transcription); err != nil {
		return nil, err
	}

	log.Printf("Saved transcription %d for video %s", transcription.ID, video.ID)
	return transcription, nil
}

// transcribeSegment runs one segment through upload, job creation and
// polling.
func (p *Pipeline) transcribeSegment(ctx context.Context, segment media.Segment, total int) (*SegmentResult, error) {
	log.Printf("Uploading segment %d/%d: %s", segment.Index+1, total, segment.Path)
	uploadURL, err := p.recognizer.Upload(ctx, segment.Path)
	if err != nil {
		return nil, err
	}

	jobID, err := p.recognizer.CreateTranscript(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Created transcription job %s for segment %d", jobID, segment.Index+1)

	transcript, err := p.recognizer.Poll(ctx, jobID)
	if err != nil {
		return nil, err
	}
	log.Printf("Segment %d completed: job=%s text length=%d", segment.Index+1, jobID, len(transcript.Text))

	return &SegmentResult{
		Index:      segment.Index,
		Start:      segment.Start,
		Text:       transcript.Text,
		Confidence: transcript.Confidence,
		Language:   transcript.LanguageCode,
		Raw:        transcript.Raw,
	}, nil
}

// summarize runs detached from the pipeline that created the transcription.
// A failure leaves the summary absent; it is never retried.
func (p *Pipeline) summarize(transcription *types.Transcription) {
	defer func() {
		if p.OnSummaryDone != nil {
			p.OnSummaryDone(transcription.ID)
		}
	}()

	generated, err := p.summarizer.Summarize(context.Background(), transcription.Content)
	if err != nil {
		log.Printf("Summary generation failed for transcription %d: %v", transcription.ID, err)
		return
	}

	if err := p.transcriptions.SetSummary(context.Background(), transcription.ID, generated); err != nil {
		log.Printf("Failed to save summary for transcription %d: %v", transcription.ID, err)
	}
}

func removeAll(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove temp file %s: %v", path, err)
		}
	}
}
