// Package openai provides a feedback generation provider backed by the
// OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxhire/voxhire/pkg/provider"
	"github.com/voxhire/voxhire/pkg/provider/feedbackgen"
)

const (
	// target tags errors for the resilience layer.
	target = "feedback-gen"

	// temperature is kept low so repeated evaluations of the same
	// transcript stay close.
	temperature = 0.3

	// maxErrBody caps the vendor error excerpt carried inside errors.
	maxErrBody = 512
)

const systemPrompt = `You are a senior hiring manager evaluating a recorded interview. Respond ONLY with a JSON object, no prose, with exactly these fields: "overall_score" (integer 0-100), "strengths" (array of strings), "weaknesses" (array of strings), "recommendations" (array of strings), "detailed_analysis" (string).`

// Provider implements feedbackgen.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI feedback generation Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Evaluate implements feedbackgen.Provider.
func (p *Provider) Evaluate(ctx context.Context, req feedbackgen.Request) (feedbackgen.Assessment, error) {
	if len(req.Pairs) == 0 {
		return feedbackgen.Assessment{}, errors.New("openai: transcript must not be empty")
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(buildUserPrompt(req)),
		},
		Temperature: param.NewOpt(temperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return feedbackgen.Assessment{}, classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return feedbackgen.Assessment{}, errors.New("openai: empty choices in response")
	}

	assessment, err := parseAssessment(resp.Choices[0].Message.Content)
	if err != nil {
		return feedbackgen.Assessment{}, fmt.Errorf("openai: %w", err)
	}
	return assessment, nil
}

// buildUserPrompt renders the transcript into the user message.
func buildUserPrompt(req feedbackgen.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate this interview for the role %q.\n", req.JobTitle)
	if req.InterviewType != "" {
		fmt.Fprintf(&b, "Interview focus: %s.\n", req.InterviewType)
	}
	b.WriteString("\nTranscript:\n")
	for i, pair := range req.Pairs {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n\n", i+1, pair.QuestionText, i+1, pair.AnswerText)
	}
	return b.String()
}

// rawAssessment tolerates a fractional score and absent lists.
type rawAssessment struct {
	OverallScore     float64  `json:"overall_score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Recommendations  []string `json:"recommendations"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

// parseAssessment turns untrusted model output into a validated assessment:
// fences stripped, score clamped to [0, 100], missing lists defaulted to
// empty.
func parseAssessment(content string) (feedbackgen.Assessment, error) {
	cleaned := stripFences(content)

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return feedbackgen.Assessment{}, fmt.Errorf("parse assessment: %w", err)
	}

	return feedbackgen.Assessment{
		OverallScore:     clampScore(int(math.Round(raw.OverallScore))),
		Strengths:        orEmpty(raw.Strengths),
		Weaknesses:       orEmpty(raw.Weaknesses),
		Recommendations:  orEmpty(raw.Recommendations),
		DetailedAnalysis: strings.TrimSpace(raw.DetailedAnalysis),
	}, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// clampScore forces n into [0, 100].
func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// orEmpty substitutes an empty slice for nil so callers never see nil lists.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// classifyErr translates SDK errors into the resilience layer's taxonomy.
func classifyErr(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		body := apierr.Error()
		if len(body) > maxErrBody {
			body = body[:maxErrBody]
		}
		return &provider.StatusError{Target: target, Code: apierr.StatusCode, Body: body}
	}
	return &provider.TransportError{Target: target, Err: err}
}

// Ensure Provider implements feedbackgen.Provider at compile time.
var _ feedbackgen.Provider = (*Provider)(nil)
