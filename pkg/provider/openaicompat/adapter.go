// Package openaicompat implements provider.Adapter for any provider
// exposing an OpenAI-compatible chat completions endpoint.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/provider"
)

// PricingTable maps model name to per-million-token input/output cost.
type PricingTable map[string]struct{ InputPerM, OutputPerM float64 }

// Config configures an Adapter.
type Config struct {
	ProviderID string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Pricing    PricingTable
	Caps       provider.Capabilities
}

// Adapter talks to an OpenAI-compatible /chat/completions endpoint.
type Adapter struct {
	cfg Config
}

// New creates an Adapter.
func New(cfg Config) *Adapter {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Adapter{cfg: cfg}
}

func (a *Adapter) ProviderID() string                    { return a.cfg.ProviderID }
func (a *Adapter) Capabilities() provider.Capabilities { return a.cfg.Caps }

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolSpec    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type toolSpec struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (a *Adapter) buildRequest(req provider.Request, stream bool) chatRequest {
	cr := chatRequest{Model: req.Model, Stream: stream}
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	for _, t := range req.Tools {
		var ts toolSpec
		ts.Type = "function"
		ts.Function.Name = t.Name
		ts.Function.Description = t.Description
		ts.Function.Parameters = json.RawMessage(t.ParametersSchema)
		cr.Tools = append(cr.Tools, ts)
	}
	return cr
}

func (a *Adapter) cost(model string, inTok, outTok int) float64 {
	p, ok := a.cfg.Pricing[model]
	if !ok {
		return 0
	}
	return (float64(inTok)/1e6)*p.InputPerM + (float64(outTok)/1e6)*p.OutputPerM
}

// Complete performs a non-streaming chat completion.
func (a *Adapter) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	body, err := json.Marshal(a.buildRequest(req, false))
	if err != nil {
		return provider.Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return provider.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return provider.Response{}, httpStatusError{status: resp.StatusCode}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return provider.Response{}, err
	}
	if len(cr.Choices) == 0 {
		return provider.Response{}, errs.New(errs.KindProviderInvalid, "empty choices in response")
	}

	out := provider.Response{
		Content:      cr.Choices[0].Message.Content,
		InputTokens:  cr.Usage.PromptTokens,
		OutputTokens: cr.Usage.CompletionTokens,
		TotalTokens:  cr.Usage.TotalTokens,
	}
	for _, tc := range cr.Choices[0].Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	out.CostUSD = a.cost(req.Model, out.InputTokens, out.OutputTokens)
	return out, nil
}

// StreamComplete performs a streaming chat completion using the
// OpenAI-compatible server-sent-events wire format.
func (a *Adapter) StreamComplete(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	body, err := json.Marshal(a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, httpStatusError{status: resp.StatusCode}
	}

	out := make(chan provider.Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var inTok, outTok int
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				break
			}
			var chunk struct {
				Choices []struct {
					Delta struct {
						Content   string     `json:"content"`
						ToolCalls []toolCall `json:"tool_calls"`
					} `json:"delta"`
				} `json:"choices"`
				Usage *struct {
					PromptTokens     int `json:"prompt_tokens"`
					CompletionTokens int `json:"completion_tokens"`
				} `json:"usage"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Usage != nil {
				inTok, outTok = chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens
			}
			for _, c := range chunk.Choices {
				if c.Delta.Content != "" {
					select {
					case out <- &provider.TextChunk{Content: c.Delta.Content}:
					case <-ctx.Done():
						return
					}
				}
				for _, tc := range c.Delta.ToolCalls {
					select {
					case out <- &provider.ToolCallChunk{CallID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		out <- &provider.UsageChunk{
			InputTokens:  inTok,
			OutputTokens: outTok,
			TotalTokens:  inTok + outTok,
			CostUSD:      a.cost(req.Model, inTok, outTok),
		}
	}()
	return out, nil
}

type httpStatusError struct{ status int }

func (e httpStatusError) Error() string { return fmt.Sprintf("http status %d", e.status) }

// ClassifyError maps a transport-level error to the uniform taxonomy.
func (a *Adapter) ClassifyError(err error) error {
	var se httpStatusError
	if e, ok := err.(httpStatusError); ok {
		se = e
		switch {
		case se.status == http.StatusUnauthorized || se.status == http.StatusForbidden:
			return errs.New(errs.KindProviderAuth, "provider rejected credentials").WithRetryable(false)
		case se.status == http.StatusTooManyRequests:
			return errs.New(errs.KindProviderServer, "provider rate limited").WithRetryable(true)
		case se.status == http.StatusNotFound:
			return errs.New(errs.KindProviderModel, "model not found").WithRetryable(false)
		case se.status == http.StatusRequestTimeout:
			return errs.New(errs.KindProviderTimeout, "request timed out").WithRetryable(true)
		case se.status >= 500:
			return errs.New(errs.KindProviderServer, "provider server error").WithRetryable(true)
		default:
			return errs.New(errs.KindProviderInvalid, "provider rejected request").WithRetryable(false)
		}
	}
	if err == context.DeadlineExceeded {
		return errs.New(errs.KindProviderTimeout, "request timed out").WithRetryable(true)
	}
	return errs.Wrap(errs.KindProviderNetwork, "network error", err)
}
