// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the chat completion provider used for generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/pdiddy/concept-engine/internal/logging"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text content")

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// ModelOptions tunes one completion call. Zero fields fall back to the
// completer's configured defaults.
type ModelOptions struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float64
}

// Completer produces a text completion for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts ModelOptions) (string, error)
}

// MessagesClient is the subset of the Anthropic SDK the completer calls.
type MessagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// sdkMessages adapts the SDK's MessageService to MessagesClient.
type sdkMessages struct {
	svc *anthropic.MessageService
}

func (s sdkMessages) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return s.svc.New(ctx, params)
}

// ClaudeCompleter calls the Anthropic Messages API.
type ClaudeCompleter struct {
	client   MessagesClient
	defaults ModelOptions
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClaudeCompleter builds a completer from cfg using the Anthropic SDK.
func NewClaudeCompleter(cfg types.GenerationConfig, logger *zap.Logger) (*ClaudeCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required: set generation.api_key, CONCEPT_ENGINE_GENERATION_API_KEY, or .secrets/anthropic-api-key")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return NewClaudeCompleterWithClient(sdkMessages{svc: &client.Messages}, cfg, logger), nil
}

// NewClaudeCompleterWithClient builds a completer over an existing client.
func NewClaudeCompleterWithClient(client MessagesClient, cfg types.GenerationConfig, logger *zap.Logger) *ClaudeCompleter {
	return &ClaudeCompleter{
		client: client,
		defaults: ModelOptions{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		timeout: cfg.Timeout,
		logger:  logging.OrNop(logger).Named("llm"),
	}
}

// Complete sends messages and returns the concatenated text blocks of the
// reply.
func (c *ClaudeCompleter) Complete(ctx context.Context, messages []Message, opts ModelOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}
	opts = c.merge(opts)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := c.client.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	c.logger.Debug("completion",
		zap.String("model", opts.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func (c *ClaudeCompleter) merge(opts ModelOptions) ModelOptions {
	if opts.Model == "" {
		opts.Model = c.defaults.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Temperature <= 0 {
		opts.Temperature = c.defaults.Temperature
	}
	return opts
}
