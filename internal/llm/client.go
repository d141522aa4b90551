package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
)

var (
	// ErrTimeout reports that a completion did not finish within the
	// configured deadline.
	ErrTimeout = errors.New("llm request timed out")
	// ErrBadResponse reports that the completion payload carried no usable
	// content.
	ErrBadResponse = errors.New("llm response unusable")
)

// Message is one chat turn sent to the completions endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces a chat completion for an ordered list of messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a chat completions client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	reqID := uuid.NewString()
	start := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("req_id", reqID).
		Str("model", c.model).
		Int("messages", len(messages)).
		Msg("Sending chat completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			metrics.LLMCallsTotal.WithLabelValues("timeout").Inc()
			log.Warn().
				Str("req_id", reqID).
				Dur("elapsed", time.Since(start)).
				Msg("Chat completion timed out")
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to unmarshal chat response: %w", err)
	}
	if parsed.Error != nil {
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %s", ErrBadResponse, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		metrics.LLMCallsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: no choices returned", ErrBadResponse)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	metrics.LLMCallsTotal.WithLabelValues("ok").Inc()
	metrics.LLMCallDuration.Observe(time.Since(start).Seconds())
	log.Debug().
		Str("req_id", reqID).
		Int("size", len(content)).
		Dur("elapsed", time.Since(start)).
		Msg("Chat completion successful")
	return content, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
