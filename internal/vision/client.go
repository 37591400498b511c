// Package vision implements the synchronous HTTP call to the external
// vision-language model, plus the pure prompt/primary-class selection logic
// the orchestrator needs to build its request.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"sentrycore/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	minValidLength = 15
)

// Result is the validated (or invalid-sentinel) outcome of one analyze call.
type Result struct {
	Context             string
	ResponseTimeSeconds float64
	IsValid             bool
	PromptUsed          string
}

// Config configures the endpoint and model this client talks to.
type Config struct {
	Endpoint         string
	Model            string
	OverallTimeout   time.Duration // default 30s per §5
	Templates        PromptTemplates
	DefaultTemplate  string
	MaxWords         int
}

// Client is the vision-language collaborator.
type Client struct {
	cfg    Config
	http   *http.Client
	log    *logger.Logger
}

// New builds a Client with a connect-timeout-bounded transport and an
// overall per-request timeout.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.OverallTimeout == 0 {
		cfg.OverallTimeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		log: log,
	}
}

type request struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type response struct {
	Response string `json:"response"`
}

// Analyze builds the prompt for cameraID/class, POSTs the snapshot bytes as
// base64 JSON, and validates the trimmed response.
func (c *Client) Analyze(ctx context.Context, snapshotPath, cameraID string, detectedClasses []string) Result {
	start := time.Now()
	class := SelectPrimaryClass(detectedClasses)
	prompt := BuildPrompt(c.cfg.Templates, cameraID, c.cfg.DefaultTemplate, class, c.cfg.MaxWords)

	imgBytes, err := os.ReadFile(snapshotPath)
	if err != nil {
		c.log.Error("vision: read snapshot %s: %v", snapshotPath, err)
		return Result{PromptUsed: prompt}
	}

	body, err := json.Marshal(request{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(imgBytes)},
		Stream: false,
	})
	if err != nil {
		c.log.Error("vision: marshal request: %v", err)
		return Result{PromptUsed: prompt}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.OverallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error("vision: build request: %v", err)
		return Result{PromptUsed: prompt}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("vision: request failed: %v", err)
		return Result{PromptUsed: prompt, ResponseTimeSeconds: time.Since(start).Seconds()}
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Error("vision: decode response: %v", err)
		return Result{PromptUsed: prompt, ResponseTimeSeconds: time.Since(start).Seconds()}
	}

	elapsed := time.Since(start).Seconds()
	trimmed := strings.TrimSpace(out.Response)
	valid := len(trimmed) >= minValidLength && strings.Contains(trimmed, " ")

	return Result{
		Context:             trimmed,
		ResponseTimeSeconds: elapsed,
		IsValid:             valid,
		PromptUsed:          prompt,
	}
}

func (c *Client) Model() string { return c.cfg.Model }
