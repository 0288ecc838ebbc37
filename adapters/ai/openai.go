package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	defaultTimeout = 10 * time.Second
)

const defaultSystemPrompt = `You are a content moderator for a student and alumni professional network. ` +
	`Analyze the following content for appropriateness. Consider factors like hate speech, harassment, ` +
	`violence, and inappropriate content. Return a JSON response with 'isAppropriate' (boolean) and ` +
	`'reason' (string) fields.`

// OpenAIAdapter is an HTTP classifier compatible with OpenAI-style chat completions.
type OpenAIAdapter struct {
	model    string
	client   *resty.Client
	prompt   string
	endpoint string
}

var _ interfaces.Classifier = (*OpenAIAdapter)(nil)

// OpenAIOptions configures adapter.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
}

// NewOpenAIAdapter creates adapter instance.
func NewOpenAIAdapter(opt OpenAIOptions) (*OpenAIAdapter, error) {
	if strings.TrimSpace(opt.APIKey) == "" {
		return nil, errors.New("ai: API key is required")
	}
	if strings.TrimSpace(opt.BaseURL) == "" {
		opt.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(opt.Model) == "" {
		opt.Model = defaultModel
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultTimeout
	}
	prompt := defaultSystemPrompt
	if strings.TrimSpace(opt.SystemPrompt) != "" {
		prompt = opt.SystemPrompt
	}
	base := strings.TrimRight(opt.BaseURL, "/")
	return &OpenAIAdapter{
		model:    opt.Model,
		endpoint: buildChatCompletionsURL(base),
		client: resty.New().
			SetTimeout(opt.Timeout).
			SetRetryCount(0).
			SetAuthToken(opt.APIKey).
			SetHeader("Content-Type", "application/json"),
		prompt: prompt,
	}, nil
}

func (a *OpenAIAdapter) Name() string { return "openai" }

// Classify sends one request and parses the verdict. Every failure is a *ClassifierError.
func (a *OpenAIAdapter) Classify(ctx context.Context, text string) (models.ClassifierResult, error) {
	payload, err := a.buildPayload(text)
	if err != nil {
		return models.ClassifierResult{}, newError("encode", err)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(a.endpoint)
	if err != nil {
		return models.ClassifierResult{}, newError("request", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return models.ClassifierResult{}, newError("request", fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 256)))
	}

	content, err := extractContent(resp.Body())
	if err != nil {
		return models.ClassifierResult{}, newError("decode", err)
	}
	result, err := parseResult(content)
	if err != nil {
		return models.ClassifierResult{}, newError("decode", err)
	}
	return result, nil
}

func (a *OpenAIAdapter) buildPayload(text string) ([]byte, error) {
	type responseFormat struct {
		Type string `json:"type"`
	}
	type requestMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type requestPayload struct {
		Model          string           `json:"model"`
		Messages       []requestMessage `json:"messages"`
		Temperature    float64          `json:"temperature"`
		Stream         bool             `json:"stream"`
		ResponseFormat responseFormat   `json:"response_format"`
	}

	body := requestPayload{
		Model: a.model,
		Messages: []requestMessage{
			{Role: "system", Content: a.prompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		Stream:      false,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	return json.Marshal(body)
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func extractContent(body []byte) (string, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("choices is empty")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("response content is empty")
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content), nil
}

func parseResult(content string) (models.ClassifierResult, error) {
	var out models.ClassifierResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return models.ClassifierResult{}, err
	}
	return out, nil
}

func buildChatCompletionsURL(base string) string {
	if base == "" {
		return defaultBaseURL + "/chat/completions"
	}
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/chat/completions"
	}
	u.Path = strings.TrimRight(u.Path, "/")
	switch u.Path {
	case "":
		u.Path = "/chat/completions"
	case "/chat/completions", "/v1/chat/completions":
	default:
		u.Path = u.Path + "/chat/completions"
	}
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
