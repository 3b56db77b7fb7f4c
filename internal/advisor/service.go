// Package advisor orchestrates answer generation: it assembles retrieval
// context, calls the generation backend, and degrades to templated advice
// when the backend fails.
package advisor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/metrics"
)

const financeSystemPrompt = `You are an expert AI Finance Advisor specializing in Indian financial markets and regulations.
Provide accurate, helpful, and personalized financial advice based on the following guidelines:

1. Personal Finance: Help with budgeting, savings, debt management, and financial planning
2. Investment Advice: Provide insights on stocks, mutual funds, gold, and other investment options
3. Tax Planning: Guide on Indian tax laws, Sections 80C, 80D, and tax-saving investments
4. Market Analysis: Analyze market trends and provide investment recommendations
5. Risk Assessment: Always consider risk factors and provide balanced advice

Important guidelines:
- Always mention that you're providing general advice and recommend consulting a financial advisor
- Include specific Indian context and regulations when relevant
- Provide actionable steps and clear explanations
- Be conservative in recommendations and highlight risks`

const documentAnalysisPrompt = `You are an expert financial document analyst. Analyze the provided financial documents and extract key insights:

1. Bank Statements: Identify spending patterns, income sources, and financial health indicators
2. Portfolio Reports: Analyze asset allocation, performance, and risk metrics
3. EMI Lists: Calculate debt-to-income ratios and repayment capacity
4. Investment Reports: Extract key metrics, returns, and recommendations

Provide structured analysis with key findings, financial health indicators, recommendations for improvement, and risk factors to consider.`

const authErrorMessage = "I apologize, but there's an issue with the AI service configuration. Please check your API key settings."

// Generator is the external generation backend.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ContextProvider assembles retrieval context for a query.
type ContextProvider interface {
	Context(ctx context.Context, query string, filter map[string]string) string
}

// Request is one generation request. DocumentText, when set, switches the
// prompt to document analysis and skips retrieval. Filter restricts
// retrieval to chunks whose metadata matches every pair.
type Request struct {
	Query        string
	DocumentText string
	Filter       map[string]string
}

// Extractor parses financial entities out of the query.
type Extractor interface {
	Extract(text string) domain.ExtractedEntities
}

// Responder produces templated advice for degraded outcomes.
type Responder interface {
	Respond(topic domain.Topic, entities domain.ExtractedEntities) string
}

type Service struct {
	generator Generator
	retriever ContextProvider
	extractor Extractor
	responder Responder
	logger    *zap.Logger
}

func New(
	generator Generator,
	retriever ContextProvider,
	extractor Extractor,
	responder Responder,
	logger *zap.Logger,
) *Service {
	return &Service{
		generator: generator,
		retriever: retriever,
		extractor: extractor,
		responder: responder,
		logger:    logger,
	}
}

// Generate answers a request. It performs a single backend attempt; on
// failure it classifies the error and resolves to a degraded outcome instead
// of returning an error. Callers wanting a deadline set it on ctx.
func (s *Service) Generate(ctx context.Context, req Request) domain.Outcome {
	systemPrompt, userMessage := s.buildPrompt(ctx, req)

	text, err := s.generator.Generate(ctx, systemPrompt, userMessage)
	if err == nil {
		return domain.Outcome{Text: text}
	}

	reason := classify(err)
	s.logger.Warn("Generation backend failed",
		zap.Error(err),
		zap.String("reason", string(reason)),
	)
	metrics.FallbackResponsesTotal.WithLabelValues(string(reason)).Inc()

	if reason == domain.ReasonAuthError {
		return domain.Outcome{Text: authErrorMessage, Reason: reason}
	}

	entities := s.extractor.Extract(req.Query)
	return domain.Outcome{
		Text:   s.responder.Respond(entities.Topic, entities),
		Reason: reason,
	}
}

func (s *Service) buildPrompt(ctx context.Context, req Request) (string, string) {
	if req.DocumentText != "" {
		return documentAnalysisPrompt,
			"Document Content:\n" + req.DocumentText + "\n\nUser Query: " + req.Query
	}
	systemPrompt := financeSystemPrompt
	if retrieved := s.retriever.Context(ctx, req.Query, req.Filter); retrieved != "" {
		systemPrompt += "\n\nContext: " + retrieved
	}
	return systemPrompt, req.Query
}

// classify maps a backend error to a degraded reason by substring. The
// backend exposes no structured taxonomy, so message matching is the contract.
func classify(err error) domain.DegradedReason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		return domain.ReasonQuotaExceeded
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return domain.ReasonRateLimited
	case strings.Contains(msg, "api key"), strings.Contains(msg, "authentication"):
		return domain.ReasonAuthError
	default:
		return domain.ReasonTransientError
	}
}
