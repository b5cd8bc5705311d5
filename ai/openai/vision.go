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

const ocrPrompt = `Transcribe all text visible in this image, line by line, in reading order.
Output only the transcribed lines. If there is no text, output nothing.`

// VisionReader implements ai.ImageReader with a vision-capable chat model.
type VisionReader struct {
	client     llms.Model
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func newVisionReader(config *ai.Config) (*VisionReader, error) {
	if config.VisionModel == "" {
		return nil, ErrVisionDisabled
	}
	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.VisionModel),
	)
	if err != nil {
		return nil, err
	}
	return &VisionReader{
		client:     client,
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     slog.Default().With("component", "openai-vision"),
	}, nil
}

// NewImageReader creates an OCR reader backed by Config.VisionModel.
func NewImageReader(config *ai.Config) (ai.ImageReader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newVisionReader(config)
}

// ReadImage asks the model to transcribe the image and splits the reply into non-empty lines.
func (v *VisionReader) ReadImage(ctx context.Context, mimeType string, data []byte) ([]string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(ocrPrompt),
				llms.BinaryPart(mimeType, data),
			},
		},
	}

	var reply string
	err := retryWithBackoff(ctx, func() error {
		callCtx, cancel := withTimeout(ctx, v.timeout)
		defer cancel()

		response, err := v.client.GenerateContent(callCtx, content, llms.WithTemperature(0.0))
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ErrNoChoices
		}
		reply = response.Choices[0].Content
		return nil
	}, v.maxRetries, v.retryDelay)
	if err != nil {
		v.logger.Error("ocr failed", "mime", mimeType, "bytes", len(data), "err", err)
		return nil, err
	}

	return splitLines(reply), nil
}

func splitLines(s string) []string {
	var lines []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// disabledReader is returned when no vision model is configured.
type disabledReader struct{}

func (disabledReader) ReadImage(context.Context, string, []byte) ([]string, error) {
	return nil, ErrVisionDisabled
}
