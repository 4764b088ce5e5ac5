// Package oracle implements the intent gate and the confirmation
// synthesizer on a local Ollama-compatible chat endpoint. One client
// serves both roles; the gate constrains the reply to a verdict token
// while completions return free text.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/reevehome/reeve/internal/httpkit"
	"github.com/reevehome/reeve/internal/prompts"
	"github.com/reevehome/reeve/internal/runtime"
)

// Client talks to an Ollama-compatible chat API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an oracle client. Empty arguments fall back to the local
// Ollama defaults.
func New(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen3:4b"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// A non-streaming chat returns headers only after the model finishes
	// generating, so the transport header timeout stays off; the client
	// timeout bounds the whole call.
	transport := httpkit.NewTransport()
	transport.ResponseHeaderTimeout = 0

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
			httpkit.WithTransport(transport),
		),
	}
}

// message is a chat message in the Ollama wire format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request format for the Ollama chat API.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *options  `json:"options,omitempty"`
}

// options are model parameters. Temperature serializes even at zero so
// the gate stays deterministic.
type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chatResponse is the response from the Ollama chat API.
type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

// chat sends a non-streaming chat request and returns the reply text.
func (c *Client) chat(ctx context.Context, prompt string, opts *options) (string, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  opts,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// ShouldRespond renders the intent-gate prompt and classifies the
// model's verdict. The reply is capped to a handful of tokens; the
// verdict words are scanned for anywhere in it.
func (c *Client) ShouldRespond(ctx context.Context, stateSnapshot, userMessage string) (runtime.Decision, error) {
	reply, err := c.chat(ctx, prompts.Gate(stateSnapshot, userMessage), &options{Temperature: 0, NumPredict: 10})
	if err != nil {
		return runtime.Ignore, err
	}
	return ParseDecision(reply), nil
}

// ParseDecision extracts the gate verdict from a model reply. Models
// pad answers with reasoning, so the token may appear anywhere. A stop
// request outranks everything else, and an unrecognizable reply is
// Ignore, never Respond.
func ParseDecision(reply string) runtime.Decision {
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, "STOP"):
		return runtime.Stop
	case strings.Contains(upper, "RESPOND"):
		return runtime.Respond
	default:
		return runtime.Ignore
	}
}

// Complete sends a rendered prompt and returns the model's reply text,
// trimmed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := c.chat(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Ping checks whether the model endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}

	return nil
}
