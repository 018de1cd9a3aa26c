package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/platform/openai"
)

// Verdict is the structured outcome of evaluating one step's answers.
type Verdict struct {
	StepPass        bool             `json:"step_pass"`
	GlobalFeedback  []string         `json:"global_feedback"`
	QuestionResults []QuestionResult `json:"question_results"`
}

type QuestionResult struct {
	QuestionID        string   `json:"question_id"`
	Pass              bool     `json:"pass"`
	FailedChecks      []string `json:"failed_checks"`
	Feedback          []string `json:"feedback"`
	SuggestedRevision string   `json:"suggested_revision,omitempty"`
}

// PassingVerdict is the trivial verdict for ungated steps: no judge
// call, nothing to report.
func PassingVerdict() *Verdict {
	return &Verdict{
		StepPass:        true,
		GlobalFeedback:  []string{},
		QuestionResults: []QuestionResult{},
	}
}

type QuestionAnswer struct {
	QuestionID string          `json:"questionId"`
	Value      json.RawMessage `json:"value"`
}

type EvaluateInput struct {
	StepID   string
	WizardID string
	Version  int
	Rubric   json.RawMessage
	Answers  []QuestionAnswer
}

// Judge evaluates a step's current answers against its rubric. It is
// a potentially-failing remote call; callers own the failure policy.
type Judge interface {
	Evaluate(ctx context.Context, input EvaluateInput) (*Verdict, error)
}

const judgeSystemPrompt = "You are an instructional design reviewer. Evaluate user answers " +
	"against the provided rubric. Be strict when hard_gate is true. " +
	"Return only structured JSON matching the schema."

// verdictSchema mirrors Verdict for the structured-output call.
var verdictSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"step_pass":       map[string]any{"type": "boolean"},
		"global_feedback": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"question_results": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"question_id":        map[string]any{"type": "string"},
					"pass":               map[string]any{"type": "boolean"},
					"failed_checks":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"feedback":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"suggested_revision": map[string]any{"type": "string"},
				},
				"required": []string{"question_id", "pass", "failed_checks", "feedback"},
			},
		},
	},
	"required": []string{"step_pass", "global_feedback", "question_results"},
}

type openaiJudge struct {
	log     *logger.Logger
	client  openai.Client
	timeout time.Duration
}

func NewOpenAIJudge(log *logger.Logger, client openai.Client) Judge {
	return &openaiJudge{
		log:     log.With("service", "Judge"),
		client:  client,
		timeout: envutil.Seconds("JUDGE_TIMEOUT_SECONDS", 60*time.Second),
	}
}

func (j *openaiJudge) Evaluate(ctx context.Context, input EvaluateInput) (*Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	userMessage, err := buildJudgeMessage(input)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	obj, err := j.client.GenerateJSON(ctx, judgeSystemPrompt, userMessage, "step_evaluation", verdictSchema)
	if err != nil {
		return nil, fmt.Errorf("evaluate step %s: %w", input.StepID, err)
	}

	verdict, err := verdictFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("evaluate step %s: %w", input.StepID, err)
	}

	j.log.Debug("Step evaluated",
		"step_id", input.StepID,
		"wizard_id", input.WizardID,
		"pass", verdict.StepPass,
		"elapsed", time.Since(started).String(),
	)
	return verdict, nil
}

func buildJudgeMessage(input EvaluateInput) (string, error) {
	answers := input.Answers
	if answers == nil {
		answers = []QuestionAnswer{}
	}
	payload := map[string]any{
		"task":   "evaluate_step",
		"stepId": input.StepID,
		"context": map[string]any{
			"wizardId": input.WizardID,
			"version":  input.Version,
		},
		"rubric":  input.Rubric,
		"answers": answers,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode judge message: %w", err)
	}
	return string(raw), nil
}

// verdictFromObject re-decodes the structured-output object into a
// Verdict, rejecting shapes that drop the required fields.
func verdictFromObject(obj map[string]any) (*Verdict, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var verdict Verdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return nil, fmt.Errorf("malformed verdict: %w", err)
	}
	if verdict.GlobalFeedback == nil {
		verdict.GlobalFeedback = []string{}
	}
	if verdict.QuestionResults == nil {
		verdict.QuestionResults = []QuestionResult{}
	}
	return &verdict, nil
}
