package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/generator/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"google.golang.org/genai"
)

// Generator produces a reply for a role-tagged prompt
type Generator interface {
	Generate(ctx context.Context, req domain.Request) (string, error)
}

// Gemini implements Generator on the Gemini API
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGemini creates a Gemini-backed generator. Without an API key the
// returned generator fails every call as transient, so generative automations
// fall back to the apology reply.
func NewGemini(ctx context.Context, cfg *config.Config) (Generator, error) {
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, generative replies will use the fallback text")
		return unavailable{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, oops.With("context", "failed to create gemini client").Wrap(err)
	}

	return newGemini(client, cfg), nil
}

func newGemini(client *genai.Client, cfg *config.Config) *Gemini {
	return &Gemini{
		client:      client,
		model:       cfg.GeminiModel,
		temperature: cfg.GeminiTemperature,
		maxTokens:   cfg.GeminiMaxOutputTokens,
	}
}

func (g *Gemini) Generate(ctx context.Context, req domain.Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	genConfig := &genai.GenerateContentConfig{
		Temperature:     lo.ToPtr(g.temperature),
		TopK:            lo.ToPtr(float32(1)),
		TopP:            lo.ToPtr(float32(1)),
		MaxOutputTokens: g.maxTokens,
	}
	if req.Instruction != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &domain.Error{Kind: domain.KindMalformedResponse, Err: errors.New("empty completion")}
	}
	return text, nil
}

// classify maps a provider error onto a failure kind
func classify(err error) error {
	code, status := 0, ""

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status = apiErr.Code, apiErr.Status
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, status = apiErrPtr.Code, apiErrPtr.Status
	}

	if code == http.StatusTooManyRequests || strings.EqualFold(status, "RESOURCE_EXHAUSTED") {
		return &domain.Error{Kind: domain.KindQuotaExceeded, Err: err}
	}
	if code == 0 && strings.Contains(strings.ToLower(err.Error()), "resource_exhausted") {
		return &domain.Error{Kind: domain.KindQuotaExceeded, Err: err}
	}
	return &domain.Error{Kind: domain.KindTransient, Err: err}
}

type unavailable struct{}

func (unavailable) Generate(context.Context, domain.Request) (string, error) {
	return "", &domain.Error{Kind: domain.KindTransient, Err: appErrors.ErrGeneratorUnavailable}
}
