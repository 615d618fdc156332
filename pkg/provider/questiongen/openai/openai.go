// Package openai provides a question generation provider backed by the
// OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxhire/voxhire/pkg/provider"
	"github.com/voxhire/voxhire/pkg/provider/questiongen"
)

const (
	// target tags errors for the resilience layer.
	target = "question-gen"

	// defaultCount is the number of questions produced when the request
	// does not say otherwise.
	defaultCount = 10

	// temperature keeps some variety between interviews for the same role.
	temperature = 0.7

	// maxErrBody caps the vendor error excerpt carried inside errors.
	maxErrBody = 512
)

const systemPrompt = `You are an experienced technical interviewer. You design interview questions tailored to a candidate's resume and a target role. Respond ONLY with a JSON array, no prose. Each element must be an object with exactly these fields: "question" (string), "category" (one of TECHNICAL, BEHAVIORAL, SITUATIONAL), "difficulty" (one of EASY, MEDIUM, HARD).`

// Provider implements questiongen.Provider using the OpenAI API.
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

// New constructs a new OpenAI question generation Provider.
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

// Generate implements questiongen.Provider.
func (p *Provider) Generate(ctx context.Context, req questiongen.Request) ([]questiongen.Question, error) {
	count := req.Count
	if count <= 0 {
		count = defaultCount
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(buildUserPrompt(req, count)),
		},
		Temperature: param.NewOpt(temperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices in response")
	}

	questions, err := parseQuestions(resp.Choices[0].Message.Content, count)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return questions, nil
}

// buildUserPrompt renders the request into the user message.
func buildUserPrompt(req questiongen.Request, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d interview questions for the role %q.\n", count, req.JobTitle)
	if req.InterviewType != "" {
		fmt.Fprintf(&b, "The interview focus is %s.\n", req.InterviewType)
	}
	if req.JobDescription != "" {
		fmt.Fprintf(&b, "\nRole description:\n%s\n", req.JobDescription)
	}
	if req.ResumeText != "" {
		fmt.Fprintf(&b, "\nCandidate resume:\n%s\n", req.ResumeText)
	}
	return b.String()
}

// rawQuestion tolerates both "question" and "text" as the text field name.
type rawQuestion struct {
	Question   string `json:"question"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// parseQuestions turns untrusted model output into validated questions.
// Markdown fences are stripped, items with empty text or unrecognized
// category/difficulty are dropped, and the result is truncated to count.
// It fails only when no valid item survives.
func parseQuestions(content string, count int) ([]questiongen.Question, error) {
	cleaned := stripFences(content)

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		// Some models wrap the array in an object.
		var wrapper struct {
			Questions []rawQuestion `json:"questions"`
		}
		if err2 := json.Unmarshal([]byte(cleaned), &wrapper); err2 != nil || wrapper.Questions == nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
		raw = wrapper.Questions
	}

	questions := make([]questiongen.Question, 0, len(raw))
	for _, r := range raw {
		text := strings.TrimSpace(r.Question)
		if text == "" {
			text = strings.TrimSpace(r.Text)
		}
		if text == "" {
			continue
		}
		category := strings.ToUpper(strings.TrimSpace(r.Category))
		difficulty := strings.ToUpper(strings.TrimSpace(r.Difficulty))
		if !questiongen.ValidCategory(category) || !questiongen.ValidDifficulty(difficulty) {
			continue
		}
		questions = append(questions, questiongen.Question{
			Text:       text,
			Category:   category,
			Difficulty: difficulty,
		})
	}

	if len(questions) == 0 {
		return nil, errors.New("no valid questions in model output")
	}
	if count > 0 && len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
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

// Ensure Provider implements questiongen.Provider at compile time.
var _ questiongen.Provider = (*Provider)(nil)
