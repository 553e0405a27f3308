// Package openai implements entity extraction over the OpenAI
// chat-completions API in JSON mode.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/metrics"
)

const systemPrompt = `You extract structured clinical-trial search entities from a user query.
Respond with a single JSON object with these keys:
  "phase": one of PHASE1, PHASE1/PHASE2, PHASE2, PHASE2/PHASE3, PHASE3, PHASE4, EARLY_PHASE1, NA, or "" when not mentioned
  "status": one of RECRUITING, NOT_YET_RECRUITING, ACTIVE_NOT_RECRUITING, ENROLLING_BY_INVITATION, COMPLETED, TERMINATED, SUSPENDED, WITHDRAWN, UNKNOWN, or ""
  "study_type": one of INTERVENTIONAL, OBSERVATIONAL, EXPANDED_ACCESS, NA, or ""
  "conditions": list of medical conditions mentioned
  "interventions": list of drugs, procedures, or treatments mentioned
  "sponsors": list of sponsoring organizations mentioned
  "locations": list of cities, states, or countries mentioned
  "keywords": list of other salient search terms (genes, biomarkers, populations)
  "confidence": your confidence in the extraction, 0.0 to 1.0
Extract only what the query states. Do not infer entities that are not present.`

// Extractor pulls entities from queries via an OpenAI-compatible API.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// Config holds the extraction provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Logger      *zap.Logger
}

// NewExtractor creates an OpenAI-compatible extraction provider.
func NewExtractor(cfg *Config) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		logger:      cfg.Logger,
	}
}

// Extract implements domain.Extractor. All provider failures are
// wrapped with domain.ErrExtractionUnavailable so callers can degrade.
func (e *Extractor) Extract(ctx context.Context, query string) (entities.Extracted, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}

	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return entities.Extracted{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return entities.Extracted{}, fmt.Errorf("empty completion response: %w", domain.ErrExtractionUnavailable)
	}

	var ents entities.Extracted
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &ents); err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		e.logger.Warn("Malformed extraction payload", zap.Error(err))
		return entities.Extracted{}, fmt.Errorf("decode extraction payload: %w", domain.ErrExtractionUnavailable)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(e.model).Observe(duration.Seconds())

	return ents, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrExtractionUnavailable so the
// search path can fall back to plain full-text matching.
func parseAPIError(err error) error {
	wrap := domain.ErrExtractionUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("extraction API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("extraction API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("extraction request: %v: %w", err, wrap)
}
