package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/jobscout/internal/types"
)

// Outcome tags how a fit evaluation attempt turned out.
type Outcome string

const (
	// OutcomeOK means the model returned a valid evaluation.
	OutcomeOK Outcome = "ok"
	// OutcomeUnavailable means no LLM client is configured.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeTimeout means the call exceeded its deadline.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeMalformed means the model responded with output that failed
	// parsing or schema validation.
	OutcomeMalformed Outcome = "malformed"
)

// fitResponseSchema validates the model's evaluation JSON. A response that
// parses but violates this schema is treated the same as garbage output.
const fitResponseSchema = `{
  "type": "object",
  "required": ["fit_score", "fit_reasons"],
  "properties": {
    "fit_score": {"type": "number", "minimum": 0, "maximum": 1},
    "fit_reasons": {
      "type": "array",
      "items": {"type": "string"},
      "maxItems": 5
    },
    "job_category": {"type": "string"},
    "job_subcategory": {"type": "string"}
  }
}`

// FitEvaluation is the result of judging one posting against a profile.
type FitEvaluation struct {
	Outcome     Outcome
	FitScore    float64 // 0..1, meaningful only when Outcome is OutcomeOK
	FitReasons  []string
	Category    string
	Subcategory string
	Err         error // underlying cause for non-OK outcomes, may be nil
}

// FitJudge evaluates posting fit with an LLM, degrading to a non-OK outcome
// instead of failing when the model is missing, slow, or incoherent.
type FitJudge struct {
	client  Client
	timeout time.Duration
}

// NewFitJudge creates a judge. A nil client is allowed and yields
// OutcomeUnavailable from every Evaluate call.
func NewFitJudge(client Client, timeout time.Duration) *FitJudge {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &FitJudge{client: client, timeout: timeout}
}

// Available reports whether a model is configured.
func (j *FitJudge) Available() bool {
	return j != nil && j.client != nil
}

// Evaluate judges one posting against the profile. deterministicScore is the
// keyword match percentage, passed to the model as context. The returned
// evaluation always has a meaningful Outcome; the error inside it is
// informational and never fatal to the caller.
func (j *FitJudge) Evaluate(ctx context.Context, profile *types.CandidateProfile, posting *types.Posting, deterministicScore float64) FitEvaluation {
	if !j.Available() {
		return FitEvaluation{Outcome: OutcomeUnavailable}
	}

	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	prompt := buildFitPrompt(profile, posting, deterministicScore)
	raw, err := j.client.GenerateJSON(callCtx, prompt, TierLite)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return FitEvaluation{Outcome: OutcomeTimeout, Err: err}
		}
		return FitEvaluation{Outcome: OutcomeMalformed, Err: err}
	}

	eval, err := parseFitResponse(raw)
	if err != nil {
		return FitEvaluation{Outcome: OutcomeMalformed, Err: err}
	}
	return eval
}

type fitResponse struct {
	FitScore       float64  `json:"fit_score"`
	FitReasons     []string `json:"fit_reasons"`
	JobCategory    string   `json:"job_category"`
	JobSubcategory string   `json:"job_subcategory"`
}

func parseFitResponse(raw string) (FitEvaluation, error) {
	raw = CleanJSONBlock(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fitResponseSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return FitEvaluation{}, fmt.Errorf("failed to validate fit response: %w", err)
	}
	if !result.Valid() {
		return FitEvaluation{}, fmt.Errorf("fit response failed schema validation: %v", result.Errors())
	}

	var resp fitResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return FitEvaluation{}, fmt.Errorf("failed to parse fit response: %w", err)
	}

	return FitEvaluation{
		Outcome:     OutcomeOK,
		FitScore:    clamp01(resp.FitScore),
		FitReasons:  resp.FitReasons,
		Category:    resp.JobCategory,
		Subcategory: resp.JobSubcategory,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
