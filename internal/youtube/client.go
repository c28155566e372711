package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// Client downloads audio streams from YouTube.
type Client struct {
	client ytdl.Client
}

// NewClient creates a new YouTube client.
func NewClient() *Client {
	return &Client{client: ytdl.Client{}}
}

// DownloadAudio fetches the best available audio-only stream of videoURL
// into outputPath and returns the video duration in seconds as reported by
// the source's own metadata.
func (c *Client) DownloadAudio(ctx context.Context, videoURL, outputPath string) (float64, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return 0, fmt.Errorf("failed to get video: %w", err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return 0, fmt.Errorf("no audio formats available for %s", videoURL)
	}

	stream, _, err := c.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		os.Remove(outputPath)
		return 0, fmt.Errorf("failed to download audio stream: %w", err)
	}

	return video.Duration.Seconds(), nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
func bestAudioFormat(formats ytdl.FormatList) *ytdl.Format {
	var audio []*ytdl.Format
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "audio/") {
			audio = append(audio, &formats[i])
		}
	}
	if len(audio) == 0 {
		return nil
	}

	sort.Slice(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})
	return audio[0]
}
