package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/chunkr/internal/platform/logger"
)

const (
	// DefaultModelName is the Gemini model used when none is configured.
	DefaultModelName = "gemini-2.0-flash"

	defaultGeminiPrompt = "Convert this PDF document to clean Markdown. " +
		"Preserve the heading hierarchy with # markers, keep tables as Markdown tables " +
		"and omit page headers, footers and page numbers. Return only the Markdown."
)

// contentGenerator is the subset of the genai Models service the converter
// calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures GeminiConverter.
type GeminiConfig struct {
	APIKey     string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
}

// GeminiConverter converts PDFs by sending them to the Gemini API as inline
// data and saving the Markdown it returns.
type GeminiConverter struct {
	cfg       GeminiConfig
	generator contentGenerator
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGeminiConverter creates a converter backed by a genai client. Without an
// API key no client is created and every conversion fails with
// ErrMissingCredential.
func NewGeminiConverter(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiConverter, error) {
	if cfg.APIKey == "" {
		return newGeminiConverter(nil, cfg, logger), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiConverter(client.Models, cfg, logger), nil
}

func newGeminiConverter(gen contentGenerator, cfg GeminiConfig, logger *slog.Logger) *GeminiConverter {
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GeminiConverter{
		cfg:       cfg,
		generator: gen,
		logger:    logger.With("component", "gemini_converter"),
		sleep:     sleepContext,
	}
}

// Convert uploads path and writes the returned Markdown to OutputPath(path).
func (c *GeminiConverter) Convert(ctx context.Context, path string) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("%w: a Gemini API key is required for parsing PDFs", ErrMissingCredential)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("PDF file not found: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: defaultGeminiPrompt},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: data}},
			},
		},
	}

	resp, err := c.generateWithRetry(ctx, contents)
	if err != nil {
		return "", err
	}

	markdown := responseText(resp)
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("%w: Gemini returned no text for %s", ErrConversionFailed, path)
	}

	output := OutputPath(path)
	if err := writeOutput(output, []byte(stripCodeFence(markdown))); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %v", ErrConversionFailed, output, err)
	}
	return output, nil
}

// generateWithRetry calls the API up to MaxRetries+1 times with exponential
// backoff and jitter. Context errors are returned without retrying.
func (c *GeminiConverter) generateWithRetry(
	ctx context.Context,
	contents []*genai.Content,
) (*genai.GenerateContentResponse, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			delay += rand.N(c.cfg.RetryDelay)
			log.Warn("retrying Gemini API call",
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		log.Info("making Gemini API call", "attempt", attempt+1, "model", c.cfg.ModelName)
		resp, err := c.generator.GenerateContent(ctx, c.cfg.ModelName, contents, nil)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: Gemini API: %v", ErrConversionFailed, lastErr)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		// first candidate with content wins
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// stripCodeFence removes a ```markdown fence wrapping the whole response.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return s
	}
	body := strings.TrimSuffix(trimmed, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return s
	}
	return strings.TrimSpace(body) + "\n"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
