// Package ollama talks to a local Ollama server's /api/generate endpoint for
// both text-only and multimodal structured generation.
package ollama

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

type Config struct {
	BaseURL     string // default http://localhost:11434
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
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	body := map[string]any{
		"model":   req.Model,
		"prompt":  req.Prompt,
		"system":  req.System,
		"format":  "json",
		"stream":  false,
		"options": map[string]any{"temperature": c.cfg.Temperature},
	}
	return c.generate(ctx, body)
}

// GenerateVision implements llm.VisionGenerator. Images are attached as
// base64 strings per the Ollama multimodal API.
func (c *Client) GenerateVision(ctx context.Context, req llm.GenerateRequest, images [][]byte) (string, error) {
	b64 := make([]string, 0, len(images))
	for _, img := range images {
		b64 = append(b64, base64.StdEncoding.EncodeToString(img))
	}
	body := map[string]any{
		"model":   req.Model,
		"prompt":  req.Prompt,
		"system":  req.System,
		"images":  b64,
		"format":  "json",
		"stream":  false,
		"options": map[string]any{"temperature": c.cfg.Temperature},
	}
	return c.generate(ctx, body)
}

func (c *Client) generate(ctx context.Context, body map[string]any) (string, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, _, err := llm.SendJSON(ctx, c.http, url, body, nil, c.log)
	if err != nil {
		return "", err
	}
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return strings.TrimSpace(gr.Response), nil
}
