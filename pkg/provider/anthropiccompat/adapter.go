// Package anthropiccompat implements provider.Adapter for providers
// exposing an Anthropic-style /v1/messages endpoint (system prompt
// passed separately, content as typed blocks).
package anthropiccompat

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

// Adapter talks to an Anthropic-style /v1/messages endpoint.
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

type contentBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

type anthroMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string          `json:"model"`
	System    string          `json:"system,omitempty"`
	Messages  []anthroMessage `json:"messages"`
	Tools     []toolSpec      `json:"tools,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
}

type toolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *Adapter) buildRequest(req provider.Request, stream bool) messagesRequest {
	mr := messagesRequest{Model: req.Model, Stream: stream, MaxTokens: req.MaxTokens}
	if mr.MaxTokens == 0 {
		mr.MaxTokens = 4096
	}
	for _, m := range req.Messages {
		if m.Role == provider.RoleSystem {
			mr.System += m.Content
			continue
		}
		mr.Messages = append(mr.Messages, anthroMessage{
			Role:    string(m.Role),
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}
	for _, t := range req.Tools {
		mr.Tools = append(mr.Tools, toolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: json.RawMessage(t.ParametersSchema),
		})
	}
	return mr
}

func (a *Adapter) cost(model string, inTok, outTok int) float64 {
	p, ok := a.cfg.Pricing[model]
	if !ok {
		return 0
	}
	return (float64(inTok)/1e6)*p.InputPerM + (float64(outTok)/1e6)*p.OutputPerM
}

// Complete performs a non-streaming message completion.
func (a *Adapter) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	body, err := json.Marshal(a.buildRequest(req, false))
	if err != nil {
		return provider.Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return provider.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return provider.Response{}, httpStatusError{status: resp.StatusCode}
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return provider.Response{}, err
	}

	out := provider.Response{
		InputTokens:  mr.Usage.InputTokens,
		OutputTokens: mr.Usage.OutputTokens,
		TotalTokens:  mr.Usage.InputTokens + mr.Usage.OutputTokens,
	}
	for _, block := range mr.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{ID: block.ID, Name: block.Name, Arguments: string(args)})
		}
	}
	out.CostUSD = a.cost(req.Model, out.InputTokens, out.OutputTokens)
	return out, nil
}

// StreamComplete performs a streaming message completion using
// Anthropic's event-typed SSE format.
func (a *Adapter) StreamComplete(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	body, err := json.Marshal(a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
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
			var ev struct {
				Type  string `json:"type"`
				Delta struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"delta"`
				Usage struct {
					InputTokens  int `json:"input_tokens"`
					OutputTokens int `json:"output_tokens"`
				} `json:"usage"`
				Message struct {
					Usage struct {
						InputTokens int `json:"input_tokens"`
					} `json:"usage"`
				} `json:"message"`
			}
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			switch ev.Type {
			case "message_start":
				inTok = ev.Message.Usage.InputTokens
			case "content_block_delta":
				if ev.Delta.Text != "" {
					select {
					case out <- &provider.TextChunk{Content: ev.Delta.Text}:
					case <-ctx.Done():
						return
					}
				}
			case "message_delta":
				outTok = ev.Usage.OutputTokens
			case "message_stop":
				out <- &provider.UsageChunk{
					InputTokens:  inTok,
					OutputTokens: outTok,
					TotalTokens:  inTok + outTok,
					CostUSD:      a.cost(req.Model, inTok, outTok),
				}
				return
			}
		}
	}()
	return out, nil
}

type httpStatusError struct{ status int }

func (e httpStatusError) Error() string { return fmt.Sprintf("http status %d", e.status) }

// ClassifyError maps a transport-level error to the uniform taxonomy.
func (a *Adapter) ClassifyError(err error) error {
	if e, ok := err.(httpStatusError); ok {
		switch {
		case e.status == http.StatusUnauthorized || e.status == http.StatusForbidden:
			return errs.New(errs.KindProviderAuth, "provider rejected credentials").WithRetryable(false)
		case e.status == http.StatusTooManyRequests:
			return errs.New(errs.KindProviderServer, "provider rate limited").WithRetryable(true)
		case e.status == http.StatusNotFound:
			return errs.New(errs.KindProviderModel, "model not found").WithRetryable(false)
		case e.status == http.StatusRequestTimeout:
			return errs.New(errs.KindProviderTimeout, "request timed out").WithRetryable(true)
		case e.status >= 500:
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
