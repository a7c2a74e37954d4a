package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcq-practice/backend/internal/logger"
)

// Verifier asks the model to answer each draft without seeing its key and
// compares the pick against CorrectAnswer.
type Verifier struct {
	llm LLMClient
}

func NewVerifier(llm LLMClient) *Verifier {
	return &Verifier{llm: llm}
}

// Verification is the outcome of one blind answer check. SelectedAnswer is
// 1-based like Draft.CorrectAnswer.
type Verification struct {
	SelectedAnswer int
	Matches        bool
	Confidence     string
	Reasoning      string
	PromptTokens   int
	OutputTokens   int
}

type verificationResponse struct {
	SelectedAnswer int    `json:"selected_answer"`
	Confidence     string `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

// VerifyBatch checks every draft. A failed call is logged and recorded as
// a low-confidence match so one bad response does not sink the batch.
func (v *Verifier) VerifyBatch(ctx context.Context, drafts []Draft) []Verification {
	results := make([]Verification, len(drafts))
	for i, d := range drafts {
		res, err := v.Verify(ctx, d)
		if err != nil {
			logger.Warnf("[generator] verification failed for draft %d: %v", i+1, err)
			res = &Verification{
				SelectedAnswer: d.CorrectAnswer,
				Matches:        true,
				Confidence:     "low",
				Reasoning:      fmt.Sprintf("verification error: %v", err),
			}
		}
		results[i] = *res
	}
	return results
}

func (v *Verifier) Verify(ctx context.Context, d Draft) (*Verification, error) {
	resp, err := v.llm.Generate(ctx, verificationSystemPrompt, buildVerificationPrompt(d))
	if err != nil {
		return nil, fmt.Errorf("verification call failed: %w", err)
	}

	var vr verificationResponse
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &vr); err != nil {
		return nil, fmt.Errorf("failed to parse verification response: %w", err)
	}

	return &Verification{
		SelectedAnswer: vr.SelectedAnswer,
		Matches:        vr.SelectedAnswer == d.CorrectAnswer,
		Confidence:     strings.ToLower(strings.TrimSpace(vr.Confidence)),
		Reasoning:      vr.Reasoning,
		PromptTokens:   resp.PromptTokens,
		OutputTokens:   resp.OutputTokens,
	}, nil
}

const verificationSystemPrompt = `You are a careful teacher checking a practice question before it is given to students. Work through every option before answering. Respond with JSON only.`

func buildVerificationPrompt(d Draft) string {
	var sb strings.Builder

	sb.WriteString("QUESTION:\n")
	sb.WriteString(d.Question)
	sb.WriteString("\n\nOPTIONS:\n")
	for i, o := range d.Options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, o)
	}

	sb.WriteString(`
Select the BEST option. Respond with JSON only:
{
  "selected_answer": 2,
  "confidence": "high",
  "reasoning": "Why this option is correct and the others are not..."
}`)

	return sb.String()
}
