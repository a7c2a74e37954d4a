package generator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/mcq-practice/backend/internal/config"
	"github.com/mcq-practice/backend/internal/logger"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// LLMClient is the interface every model backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator drafts multiple-choice questions for a chapter or topic.
type Generator struct {
	llm      LLMClient
	model    string
	verifier *Verifier
}

// NewGenerator picks a backend from configuration: the local claude CLI,
// canned mock drafts, or the Anthropic API.
func NewGenerator(cfg config.GeneratorConfig) *Generator {
	var llm LLMClient
	model := "mock"

	switch {
	case cfg.UseCLI:
		llm = NewCLIClient(cfg.CLIPath)
		model = "claude-cli"
		log.Println("[generator] using Claude CLI")
	case cfg.Mock:
		llm = NewMockClient()
		log.Println("[generator] using mock drafts")
	default:
		model = cfg.Model
		if model == "" {
			model = defaultModel
		}
		llm = NewAPIClient(cfg.APIKey, model)
		log.Println("[generator] using Anthropic API:", model)
	}

	g := &Generator{llm: llm, model: model}
	if !cfg.Mock {
		g.verifier = NewVerifier(llm)
	}
	return g
}

// NewWithClient builds a Generator around an existing client. verify turns
// on the blind answer check.
func NewWithClient(llm LLMClient, model string, verify bool) *Generator {
	g := &Generator{llm: llm, model: model}
	if verify {
		g.verifier = NewVerifier(llm)
	}
	return g
}

func (g *Generator) ModelName() string {
	return g.model
}

// Draft asks the model for req.Count questions, parses and validates them,
// then scores each one. Drafts are never stored here.
func (g *Generator) Draft(ctx context.Context, req DraftRequest) (*DraftResult, error) {
	req = req.withDefaults()

	resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("generate drafts: %w", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse drafts: %w", err)
	}

	result := &DraftResult{
		Drafts:       batch.Questions,
		Model:        g.model,
		PromptTokens: resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
		Warnings:     batch.Warnings,
	}

	var checks []Verification
	if g.verifier != nil {
		checks = g.verifier.VerifyBatch(ctx, batch.Questions)
		for _, c := range checks {
			result.PromptTokens += c.PromptTokens
			result.OutputTokens += c.OutputTokens
		}
	}

	distribOK := AnswerDistributionOK(batch.Questions)
	for i, d := range batch.Questions {
		structural := ComputeStructuralScore(d)
		structural.AnswerDistribOK = distribOK

		var v *Verification
		if checks != nil {
			v = &checks[i]
			if !v.Matches {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("draft %d: verifier picked option %d, key says %d", i+1, v.SelectedAnswer, d.CorrectAnswer))
			}
		}

		score := ComputeQualityScore(v, structural)
		result.Scores = append(result.Scores, score)
		if ClassifyQuality(score) == QualityReject {
			result.Warnings = append(result.Warnings, fmt.Sprintf("draft %d: low quality score %.2f", i+1, score))
		}
	}

	return result, nil
}

// ── APIClient ─────────────────────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      text,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[generator] retrying Anthropic API call in %v (attempt %d)", wait, attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		logger.Warnf("[generator] Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient ────────────────────────────────────────────

// MockClient returns canned drafts about whatever topic the prompt names.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      buildMockJSON(promptField(userPrompt, "Topic:")),
		PromptTokens: 600,
		OutputTokens: 1200,
	}, nil
}

func promptField(prompt, label string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	return "the chapter"
}

func buildMockJSON(topic string) string {
	var b strings.Builder
	b.WriteString(`{"questions":[`)
	for i := 0; i < 4; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		correct := i%4 + 1
		fmt.Fprintf(&b, `{"question":"[Mock] Question %d about %s: which statement is accurate?",`, i+1, topic)
		b.WriteString(`"options":[`)
		for j := 1; j <= 4; j++ {
			if j > 1 {
				b.WriteString(",")
			}
			label := "a distractor"
			if j == correct {
				label = "the accurate statement"
			}
			fmt.Fprintf(&b, `"[Mock] Option %d, %s"`, j, label)
		}
		fmt.Fprintf(&b, `],"correctAnswer":%d,"explanation":"[Mock] Option %d is the accurate statement about %s."}`, correct, correct, topic)
	}
	b.WriteString("]}")
	return b.String()
}
