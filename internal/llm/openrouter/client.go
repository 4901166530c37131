// Package openrouter talks to OpenRouter's OpenAI-compatible chat/completions
// endpoint for vision-capable structured generation.
package openrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/doctriage/doctriage/internal/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

type Config struct {
	APIKey      string
	BaseURL     string // default https://openrouter.ai/api/v1
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateVision implements llm.VisionGenerator using data-URL image parts.
func (c *Client) GenerateVision(ctx context.Context, req llm.GenerateRequest, images [][]byte) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("missing OPENROUTER_API_KEY")
	}

	contents := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}
	for _, img := range images {
		contents = append(contents, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL(img)},
		})
	}

	messages := []map[string]any{}
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": contents})

	body := map[string]any{
		"model":           req.Model,
		"messages":        messages,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := llm.SendJSON(ctx, c.http, url, body, headers, c.log)
	if err != nil {
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openrouter response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func dataURL(img []byte) string {
	mt := http.DetectContentType(img)
	if !strings.HasPrefix(mt, "image/") {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img)
}
