// Package openai implements the text-classification capability on an
// OpenAI-compatible chat completion API.
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

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/metrics"
)

// Classifier answers relevance and keyword-extraction requests via chat
// completions. Every call is bounded by a hard timeout; a malformed response
// surfaces as domain.ErrClassifierError so callers apply their documented
// fallbacks instead of crashing.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds the classification provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates an OpenAI-compatible classifier.
func NewClassifier(cfg *Config) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Classifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

const relevanceSystemPrompt = `You judge whether a social media post is relevant to a business hypothesis under validation.
Respond with strict JSON only, no prose:
{"relevant": bool, "problem_match": bool, "confidence": number between 0 and 1, "reason": "short explanation"}
"relevant" means the post discusses the same space; "problem_match" means the author experiences the specific problem.`

const keywordSystemPrompt = `You extract search keywords from a business hypothesis.
Respond with strict JSON only, no prose:
{"primary": ["2-4 phrases people use when discussing this problem"], "secondary": ["2-4 broader related phrases"], "exclude": ["phrases that signal unrelated discussions"]}`

// ClassifyRelevance judges one item against the hypothesis.
func (c *Classifier) ClassifyRelevance(
	ctx context.Context, item domain.Item, hyp domain.Hypothesis,
) (domain.Relevance, error) {
	user := fmt.Sprintf("Hypothesis: %s\n\nPost title: %s\nPost body: %s",
		hyp.Summary(), item.Title, domain.Preview(item.Body))

	content, err := c.complete(ctx, relevanceSystemPrompt, user)
	if err != nil {
		return domain.Relevance{}, err
	}

	rel, err := parseRelevance(content)
	if err != nil {
		metrics.ClassificationErrorsTotal.WithLabelValues(c.model, "malformed_response").Inc()
		c.logger.Warn("unparsable relevance response",
			zap.String("item_id", item.ID),
			zap.String("content", domain.Preview(content)))
		return domain.Relevance{}, fmt.Errorf("parse relevance response: %w", domain.ErrClassifierError)
	}
	return rel, nil
}

// ExtractKeywords derives a structured keyword set from the hypothesis.
func (c *Classifier) ExtractKeywords(ctx context.Context, hyp domain.Hypothesis) (domain.KeywordSet, error) {
	content, err := c.complete(ctx, keywordSystemPrompt, "Hypothesis: "+hyp.Summary())
	if err != nil {
		return domain.KeywordSet{}, err
	}

	kw, err := parseKeywords(content)
	if err != nil {
		metrics.ClassificationErrorsTotal.WithLabelValues(c.model, "malformed_response").Inc()
		return domain.KeywordSet{}, fmt.Errorf("parse keyword response: %w", domain.ErrClassifierError)
	}
	return kw, nil
}

// complete issues one bounded chat completion and records usage and metrics.
func (c *Classifier) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ClassificationRequestsTotal.WithLabelValues(c.model, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.ClassificationErrorsTotal.WithLabelValues(c.model, "timeout").Inc()
			return "", fmt.Errorf("classification timed out after %s: %w", c.timeout, context.DeadlineExceeded)
		}
		metrics.ClassificationErrorsTotal.WithLabelValues(c.model, "api_error").Inc()
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.ClassificationRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.ClassificationErrorsTotal.WithLabelValues(c.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrClassifierError)
	}

	metrics.ClassificationRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ClassificationRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ClassificationTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ClassificationTokensTotal.WithLabelValues(c.model, "total").Add(float64(resp.Usage.TotalTokens))
	}
	domain.UsageFromContext(ctx).AddTokens(resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, nil
}

// parseRelevance decodes the model's JSON verdict. Code fences and prose
// around the object are tolerated.
func parseRelevance(content string) (domain.Relevance, error) {
	payload, err := extractJSON(content)
	if err != nil {
		return domain.Relevance{}, err
	}

	var rel domain.Relevance
	if err := json.Unmarshal([]byte(payload), &rel); err != nil {
		return domain.Relevance{}, fmt.Errorf("decode relevance: %w", err)
	}
	if rel.Confidence < 0 || rel.Confidence > 1 {
		return domain.Relevance{}, fmt.Errorf("confidence %v out of range", rel.Confidence)
	}
	return rel, nil
}

// parseKeywords decodes the model's keyword set.
func parseKeywords(content string) (domain.KeywordSet, error) {
	payload, err := extractJSON(content)
	if err != nil {
		return domain.KeywordSet{}, err
	}

	var kw domain.KeywordSet
	if err := json.Unmarshal([]byte(payload), &kw); err != nil {
		return domain.KeywordSet{}, fmt.Errorf("decode keywords: %w", err)
	}
	if kw.IsEmpty() {
		return domain.KeywordSet{}, errors.New("no keywords extracted")
	}
	return kw, nil
}

// extractJSON returns the first top-level JSON object in the content. Models
// occasionally wrap the object in markdown fences despite instructions.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON object in response")
	}
	return content[start : end+1], nil
}

// parseAPIError extracts a readable error from the API response. Everything
// is wrapped with domain.ErrClassifierError for consistent classification.
func parseAPIError(err error) error {
	wrap := domain.ErrClassifierError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("classification API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("classification API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("classification request failed: %w", wrap)
}
