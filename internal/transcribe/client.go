package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmptyResult is returned when the model responds without any text.
var ErrEmptyResult = errors.New("transcription returned an empty result")

// StoppedError is returned when the model finished for a reason other than
// normal completion. The reason code is carried in the message.
type StoppedError struct {
	Reason string
}

func (e *StoppedError) Error() string {
	return fmt.Sprintf("transcription stopped: %s", e.Reason)
}

// Config contains transcription client configuration
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client issues one-shot transcription requests: one request, one response,
// no retries. Retrying is the caller's decision.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new transcription HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Request/response wire shapes.

type generateRequest struct {
	Contents          []requestContent `json:"contents"`
	SystemInstruction *requestContent  `json:"systemInstruction,omitempty"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string             `json:"text,omitempty"`
	InlineData *requestInlineData `json:"inlineData,omitempty"`
}

type requestInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// TranscribeFile sends the file's bytes inline and returns the transcript.
// The media type must already be resolved via ResolveMediaType.
func (c *Client) TranscribeFile(ctx context.Context, data []byte, mediaType, language string) (string, error) {
	systemInstruction, err := LanguageInstruction(language)
	if err != nil {
		return "", err
	}

	reqBody := generateRequest{
		Contents: []requestContent{{
			Parts: []requestPart{
				{InlineData: &requestInlineData{
					MimeType: mediaType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: Instruction},
			},
		}},
		SystemInstruction: &requestContent{
			Parts: []requestPart{{Text: systemInstruction}},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.config.Endpoint, c.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription request failed: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(genResp.Candidates) == 0 {
		return "", ErrEmptyResult
	}

	candidate := genResp.Candidates[0]
	if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
		return "", &StoppedError{Reason: candidate.FinishReason}
	}

	var text string
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", ErrEmptyResult
	}

	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
