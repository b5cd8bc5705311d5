// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client       llms.Model
	systemPrompt string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return newCompleterWithModel(client, config), nil
}

func newCompleterWithModel(client llms.Model, config *ai.Config) *Completer {
	return &Completer{
		client:       client,
		systemPrompt: config.SystemPrompt,
		temperature:  config.Temperature,
		maxTokens:    config.MaxTokens,
		timeout:      config.Timeout,
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		logger:       slog.Default().With("component", "openai-completer"),
	}
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends the prompt as a single user message after the configured
// system prompt and returns the trimmed reply.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if c.systemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(c.systemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	var reply string
	err := retryWithBackoff(ctx, func() error {
		callCtx, cancel := withTimeout(ctx, c.timeout)
		defer cancel()

		response, err := c.client.GenerateContent(callCtx, content,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
		)
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ErrNoChoices
		}
		reply = response.Choices[0].Content
		return nil
	}, c.maxRetries, c.retryDelay)
	if err != nil {
		c.logger.Error("completion failed", "prompt_length", len(prompt), "err", err)
		return "", err
	}

	return strings.TrimSpace(reply), nil
}
