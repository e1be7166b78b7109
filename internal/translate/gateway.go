// Package translate turns "text + target language" into a translation
// Outcome, hiding the backend's failure modes behind a closed set of kinds.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/polyglot-bot/polyglot/internal/languages"
	"github.com/polyglot-bot/polyglot/internal/sanitize"
)

var (
	// ErrRateLimited is returned by a Backend when it was throttled.
	ErrRateLimited = errors.New("rate limit reached")
	// ErrAuthFailed is returned by a Backend when credentials were rejected.
	ErrAuthFailed = errors.New("authentication failed")
)

// APIError is an error the backend reported about the request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Backend performs a single chat completion.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Gateway validates the target language, sanitizes mentions, calls the
// backend once and classifies the result.
type Gateway struct {
	registry *languages.Registry
	backend  Backend
	logger   *slog.Logger
}

// NewGateway creates a gateway. A nil logger discards output.
func NewGateway(registry *languages.Registry, backend Backend, logger *slog.Logger) (*Gateway, error) {
	if registry == nil {
		return nil, errors.New("language registry is required")
	}
	if backend == nil {
		return nil, errors.New("translation backend is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{registry: registry, backend: backend, logger: logger}, nil
}

// SystemPrompt is the instruction sent with every translation.
func SystemPrompt(languageName string) string {
	return fmt.Sprintf("You are an excellent translator. Please translate the following text to %s. "+
		"Preserve the original nuance, meaning, and any special formatting such as **bold**, *italic*. "+
		"Read everything before translating.", languageName)
}

// Translate never returns an error: every failure is folded into the Outcome.
func (g *Gateway) Translate(ctx context.Context, text, code string) Outcome {
	lang, ok := g.registry.Lookup(code)
	if !ok {
		return Unsupported(code)
	}

	translated, err := g.backend.Complete(ctx, SystemPrompt(lang.Name), sanitize.Mentions(text))
	if err != nil {
		return g.classify(err)
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		return Empty()
	}
	return Success(translated)
}

func (g *Gateway) classify(err error) Outcome {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrRateLimited):
		g.logger.Warn("translation backend rate limited", "error", err)
		return RateLimited()
	case errors.Is(err, ErrAuthFailed):
		g.logger.Error("translation backend rejected credentials; check translator.apiKey", "error", err)
		return AuthFailed()
	case errors.As(err, &apiErr):
		g.logger.Error("translation backend API error", "status", apiErr.StatusCode, "error", apiErr.Message)
		return APIFailure(apiErr.Message)
	default:
		g.logger.Error("translation error", "error", err)
		return UnknownFailure(err.Error())
	}
}
