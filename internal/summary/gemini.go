package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the generative-text provider endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// minContentLength is the threshold below which a transcript is too short to
// summarize meaningfully.
const minContentLength = 50

const promptTemplate = `
You are an assistant specialized in summarizing texts for educational purposes.

TASK:
1. Translate the text below to Portuguese (if it is not already).
2. Summarize it clearly, coherently, and in an organized manner.
3. Structure the summary in the format of topics and subtopics, highlighting:
  - The main ideas.
  - The key concepts.
  - The important facts, events, or arguments.

Text to be translated and summarized:
%s
`

// Client generates structured summaries through the provider's
// generateContent call.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewClient creates a summary client for the given model.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize produces a topic/subtopic summary of text. Text shorter than the
// meaningful threshold yields an empty summary without a provider call.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) < minContentLength {
		return "", nil
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(promptTemplate, text)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read summary response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary rejected with status %d: %s", resp.StatusCode, string(body))
	}

	var generated generateResponse
	if err := json.Unmarshal(body, &generated); err != nil {
		return "", fmt.Errorf("failed to decode summary response: %w", err)
	}
	if len(generated.Candidates) == 0 {
		return "", fmt.Errorf("summary response contains no candidates")
	}

	var b strings.Builder
	for _, p := range generated.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}
