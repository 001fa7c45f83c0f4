// File: internal/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/internal/config"
)

// ErrModalityRejected marks a backend refusal caused by the image payload
// shape rather than the request as a whole. It triggers the text-only
// fallback instead of the retry policy.
var ErrModalityRejected = errors.New("backend rejected multimodal payload")

// imageSentMarker replaces the raw image payload in the stored transcript.
const imageSentMarker = " [Image Sent]"

// fallbackNote is appended to the prompt when a multimodal request is
// reissued text-only, so the model knows the visual context is missing.
const fallbackNote = "\n[System Note: Screen analysis failed due to model incompatibility. Use text context only.]"

// AskOptions carries the optional pieces of a request.
type AskOptions struct {
	// SystemPrompt, when non-empty, is sent as the system instruction.
	SystemPrompt string
	// ImageJPEG, when non-nil, is attached to the user turn as an inline
	// JPEG payload and switches the request to the vision model.
	ImageJPEG []byte
}

// Asker is the request-layer contract the interpreter and executor consume.
type Asker interface {
	Ask(ctx context.Context, prompt string, opts AskOptions) (string, error)
}

// Client talks to a Gemini-style generateContent endpoint. It owns the
// conversation history and is the only writer to it.
type Client struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	logger     *zap.Logger
	history    *History

	// Retry pacing, overridable in tests to keep them fast.
	retryInitial time.Duration
	retryMax     time.Duration
}

// NewClient initializes the request layer.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if cfg.TextModel == "" {
		return nil, fmt.Errorf("LLM text model is required")
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger:       logger.Named("llm_client"),
		history:      NewHistory(cfg.MaxHistory),
		retryInitial: 2 * time.Second,
		retryMax:     10 * time.Second,
	}, nil
}

// History exposes the transcript for inspection. Mutation stays in here.
func (c *Client) History() *History { return c.history }

// Ask sends one prompt, with the rolling history as context, and returns the
// raw model text. Transient backend errors are retried up to three attempts
// total. If the backend rejects the image payload shape, the request is
// rebuilt text-only and reissued once against the text model; that fallback
// is not itself retried. Terminal failures propagate.
func (c *Client) Ask(ctx context.Context, prompt string, opts AskOptions) (string, error) {
	hasImage := len(opts.ImageJPEG) > 0
	model := c.cfg.TextModel
	if hasImage {
		model = c.cfg.VisionModel
		if model == "" {
			model = c.cfg.TextModel
		}
	}

	payload := c.buildPayload(prompt, opts, hasImage)
	reply, err := c.generateWithRetry(ctx, model, payload, hasImage)

	if err != nil && hasImage && errors.Is(err, ErrModalityRejected) {
		c.logger.Warn("Model rejected image input, falling back to text-only",
			zap.String("model", model), zap.Error(err))
		textOpts := AskOptions{SystemPrompt: opts.SystemPrompt}
		payload = c.buildPayload(prompt+fallbackNote, textOpts, false)
		reply, err = c.generateOnce(ctx, c.cfg.TextModel, payload, false)
	}
	if err != nil {
		return "", err
	}

	userTurn := prompt
	if hasImage {
		// Keep a marker, never the payload, to bound transcript memory.
		userTurn += imageSentMarker
	}
	c.history.Append(userTurn, reply)
	return reply, nil
}

// -- Gemini wire structures (internal to this file) --

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// buildPayload assembles system instruction, transcript, and the new user
// turn into one request body. The image, when used, rides the user turn as
// inline data.
func (c *Client) buildPayload(prompt string, opts AskOptions, withImage bool) geminiRequestPayload {
	var contents []geminiContent
	for _, msg := range c.history.Entries() {
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	userParts := []geminiPart{{Text: prompt}}
	if withImage && len(opts.ImageJPEG) > 0 {
		userParts = append(userParts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(opts.ImageJPEG),
			},
		})
	}
	contents = append(contents, geminiContent{Role: RoleUser, Parts: userParts})

	payload := geminiRequestPayload{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     float64(c.cfg.Temperature),
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}
	if opts.SystemPrompt != "" {
		payload.SystemInstruction = &geminiSystemInstruction{
			Parts: []geminiPart{{Text: opts.SystemPrompt}},
		}
	}
	return payload
}

// generateWithRetry wraps generateOnce in the bounded retry policy: three
// attempts total, exponential backoff starting at the initial interval,
// doubling, capped at the max interval. Permanent errors short-circuit.
func (c *Client) generateWithRetry(ctx context.Context, model string, payload geminiRequestPayload, hadImage bool) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = c.retryMax
	b.Multiplier = 2
	b.RandomizationFactor = 0

	var reply string
	operation := func() error {
		var err error
		reply, err = c.generateOnce(ctx, model, payload, hadImage)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx))
	if err != nil {
		return "", err
	}
	return reply, nil
}

// generateOnce performs a single HTTP round trip against the backend.
// Transient failures come back as plain errors (retryable); everything else
// is wrapped in backoff.Permanent.
func (c *Client) generateOnce(ctx context.Context, model string, payload geminiRequestPayload, hadImage bool) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to marshal request payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointFor(model), bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyAPIError(resp.StatusCode, respBody, hadImage)
	}

	var responsePayload geminiResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
	}

	if len(responsePayload.Candidates) == 0 {
		return "", backoff.Permanent(fmt.Errorf("backend returned no candidates"))
	}
	candidate := responsePayload.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
			return "", backoff.Permanent(fmt.Errorf("backend blocked the request (reason: %s)", candidate.FinishReason))
		}
		return "", fmt.Errorf("backend returned empty content parts (reason: %s)", candidate.FinishReason)
	}

	c.logger.Info("LLM generation complete",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", responsePayload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", responsePayload.UsageMetadata.CandidatesTokenCount),
	)

	return strings.TrimSpace(candidate.Content.Parts[0].Text), nil
}

// classifyAPIError maps HTTP failures onto the error taxonomy: rate limits
// and server faults are transient, a bad-request on a multimodal call is a
// modality rejection, and anything else is permanent.
func (c *Client) classifyAPIError(statusCode int, body []byte, hadImage bool) error {
	c.logger.Error("LLM API returned error status",
		zap.Int("status", statusCode), zap.ByteString("response", body))
	err := fmt.Errorf("LLM API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient, retry.
	case http.StatusBadRequest:
		if hadImage {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrModalityRejected, err))
		}
		return backoff.Permanent(err)
	default:
		return backoff.Permanent(err)
	}
}

// endpointFor builds the generateContent URL for the given model. A custom
// endpoint (used in tests and for proxies) replaces the host portion only.
func (c *Client) endpointFor(model string) string {
	base := c.cfg.Endpoint
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return fmt.Sprintf("%s/%s:generateContent", strings.TrimSuffix(base, "/"), model)
}
