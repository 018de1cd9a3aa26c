package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/db"
	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/platform/sessionlock"
	"github.com/yungbote/coursemap-backend/internal/repos"
	"github.com/yungbote/coursemap-backend/internal/types"
)

const testWizardHardThenNone = `{
	"wizard_id": "w_test",
	"version": 1,
	"title": "Test Wizard",
	"steps": [
		{
			"id": "stepA",
			"title": "Gated step",
			"gate": {"mode": "hard", "rubric_id": "rA"},
			"questions": [{"id": "q1", "type": "short_text", "required": true}]
		},
		{
			"id": "stepB",
			"title": "Open step",
			"gate": {"mode": "none"},
			"questions": [{"id": "q2", "type": "long_text"}]
		}
	]
}`

const testWizardSoft = `{
	"wizard_id": "w_soft",
	"version": 1,
	"title": "Soft Wizard",
	"steps": [
		{
			"id": "stepA",
			"title": "Advisory step",
			"gate": {"mode": "soft", "rubric_id": "rA"},
			"questions": [{"id": "q1", "type": "short_text"}]
		},
		{
			"id": "stepB",
			"title": "Final step",
			"gate": {"mode": "none"},
			"questions": []
		}
	]
}`

const testWizardGatedNoQuestions = `{
	"wizard_id": "w_empty",
	"version": 1,
	"title": "Empty Gated Wizard",
	"steps": [
		{
			"id": "stepA",
			"title": "Gated step without questions",
			"gate": {"mode": "hard", "rubric_id": "rA"},
			"questions": []
		},
		{
			"id": "stepB",
			"title": "Final step",
			"gate": {"mode": "none"},
			"questions": [{"id": "q1", "type": "short_text"}]
		}
	]
}`

type stubJudge struct {
	verdict *Verdict
	err     error
	calls   []EvaluateInput
	// onEvaluate runs after the call is recorded, inside the transition
	// window between the precondition read and the final transaction.
	onEvaluate func()
}

func (s *stubJudge) Evaluate(_ context.Context, input EvaluateInput) (*Verdict, error) {
	s.calls = append(s.calls, input)
	if s.onEvaluate != nil {
		s.onEvaluate()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

func failingVerdict() *Verdict {
	return &Verdict{
		StepPass:       false,
		GlobalFeedback: []string{"Outcomes are too vague to assess."},
		QuestionResults: []QuestionResult{
			{
				QuestionID:   "q1",
				Pass:         false,
				FailedChecks: []string{"measurable_verb"},
				Feedback:     []string{"Use an observable action verb."},
			},
		},
	}
}

type engineFixture struct {
	db       *gorm.DB
	service  SessionService
	wizards  WizardService
	judge    *stubJudge
	sessions repos.SessionRepo
	answers  repos.AnswerRepo
	feedback repos.FeedbackRepo
	userID   uuid.UUID
}

func newEngineFixture(t *testing.T, configJSON string, rubricSteps ...string) *engineFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	var parsed struct {
		WizardID string `json:"wizard_id"`
		Version  int    `json:"version"`
	}
	if err := json.Unmarshal([]byte(configJSON), &parsed); err != nil {
		t.Fatalf("decode test config: %v", err)
	}
	ctx := context.Background()

	configRepo := repos.NewWizardConfigRepo(conn, log)
	if err := configRepo.Upsert(ctx, nil, &types.WizardConfig{
		ID:       types.WizardConfigID(parsed.WizardID, parsed.Version),
		WizardID: parsed.WizardID,
		Version:  parsed.Version,
		JSON:     datatypes.JSON(configJSON),
	}); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	rubricRepo := repos.NewRubricRepo(conn, log)
	for _, stepID := range rubricSteps {
		rubric := fmt.Sprintf(`{"id":"r_%s","applies_to_step":%q,"required_checks":["measurable_verb"]}`, stepID, stepID)
		if err := rubricRepo.Upsert(ctx, nil, &types.Rubric{
			ID:       types.RubricID(parsed.WizardID, parsed.Version, stepID),
			WizardID: parsed.WizardID,
			Version:  parsed.Version,
			StepID:   stepID,
			JSON:     datatypes.JSON(rubric),
		}); err != nil {
			t.Fatalf("seed rubric: %v", err)
		}
	}

	userRepo := repos.NewUserRepo(conn, log)
	user, err := userRepo.UpsertByEmail(ctx, nil, "owner@example.com")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	judge := &stubJudge{verdict: PassingVerdict()}
	sessionRepo := repos.NewSessionRepo(conn, log)
	answerRepo := repos.NewAnswerRepo(conn, log)
	feedbackRepo := repos.NewFeedbackRepo(conn, log)
	wizards := NewWizardService(conn, log, configRepo, rubricRepo)
	service := NewSessionService(
		conn, log,
		sessionRepo,
		answerRepo,
		feedbackRepo,
		repos.NewCommentRepo(conn, log),
		wizards,
		judge,
		sessionlock.NewLocal(),
	)

	return &engineFixture{
		db:       conn,
		service:  service,
		wizards:  wizards,
		judge:    judge,
		sessions: sessionRepo,
		answers:  answerRepo,
		feedback: feedbackRepo,
		userID:   user.ID,
	}
}

func answersFor(values map[string]string) []SubmitAnswer {
	out := make([]SubmitAnswer, 0, len(values))
	for id, v := range values {
		out = append(out, SubmitAnswer{QuestionID: id, Value: json.RawMessage(fmt.Sprintf("%q", v))})
	}
	return out
}

func wantStatusCode(t *testing.T, err error, wantStatus int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", wantStatus)
	}
	status, _ := apierr.StatusAndCode(err)
	if status != wantStatus {
		t.Fatalf("unexpected status: got=%d want=%d (err=%v)", status, wantStatus, err)
	}
}

func TestStartPointsAtFirstStep(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.StepID != "stepA" {
		t.Fatalf("unexpected first step: got=%q want=stepA", session.StepID)
	}
	if session.Status != types.SessionStatusInProgress {
		t.Fatalf("unexpected status: got=%q", session.Status)
	}
}

func TestStartUnknownWizardNotFound(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")

	_, err := f.service.Start(context.Background(), f.userID, "missing", 1)
	wantStatusCode(t, err, http.StatusNotFound)
}

func TestHardGateBlocksThenAdvances(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.judge.verdict = failingVerdict()
	result, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "learn things"}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Verdict.StepPass {
		t.Fatalf("expected failing verdict")
	}
	if result.StepID != "stepA" || result.Status != types.SessionStatusInProgress {
		t.Fatalf("hard gate must hold the pointer: got step=%q status=%q", result.StepID, result.Status)
	}

	f.judge.verdict = PassingVerdict()
	result, err = f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "analyze churn data"}))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !result.Verdict.StepPass {
		t.Fatalf("expected passing verdict")
	}
	if result.StepID != "stepB" {
		t.Fatalf("expected advancement to stepB, got %q", result.StepID)
	}

	// Both submissions were recorded; the judge saw the updated value.
	history, err := f.answers.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("unexpected answer history length: got=%d want=2", len(history))
	}
	last := f.judge.calls[len(f.judge.calls)-1]
	if len(last.Answers) != 1 || string(last.Answers[0].Value) != `"analyze churn data"` {
		t.Fatalf("judge did not receive the latest answer: %+v", last.Answers)
	}

	// Feedback was replaced, not accumulated.
	feedback, err := f.feedback.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(feedback) != 1 {
		t.Fatalf("expected a single current feedback row, got %d", len(feedback))
	}
	if feedback[0].Verdict != types.VerdictPass {
		t.Fatalf("unexpected stored verdict: got=%q", feedback[0].Verdict)
	}
}

func TestUngatedLastStepCompletesSession(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "ok"})); err != nil {
		t.Fatalf("submit stepA: %v", err)
	}
	judgeCalls := len(f.judge.calls)

	result, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepB", answersFor(map[string]string{"q2": "done"}))
	if err != nil {
		t.Fatalf("submit stepB: %v", err)
	}
	if result.Status != types.SessionStatusComplete {
		t.Fatalf("expected completion, got status=%q", result.Status)
	}
	if result.StepID != "stepB" {
		t.Fatalf("pointer must stay pinned to the last step, got %q", result.StepID)
	}
	if !result.Verdict.StepPass {
		t.Fatalf("ungated step must pass trivially")
	}
	if len(f.judge.calls) != judgeCalls {
		t.Fatalf("judge must not run for an ungated step")
	}

	// A completed session rejects further submissions without writing.
	before, _ := f.answers.ListBySession(ctx, nil, session.ID)
	_, err = f.service.SubmitStep(ctx, f.userID, session.ID, "stepB", answersFor(map[string]string{"q2": "more"}))
	wantStatusCode(t, err, http.StatusBadRequest)
	after, _ := f.answers.ListBySession(ctx, nil, session.ID)
	if len(after) != len(before) {
		t.Fatalf("rejected submission must not persist answers: before=%d after=%d", len(before), len(after))
	}
}

func TestGatedStepWithoutQuestionsPasses(t *testing.T) {
	f := newEngineFixture(t, testWizardGatedNoQuestions, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_empty", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Verdict.StepPass {
		t.Fatalf("a gated step with nothing to evaluate must pass")
	}
	if result.StepID != "stepB" {
		t.Fatalf("expected advancement to stepB, got %q", result.StepID)
	}
	if len(f.judge.calls) != 0 {
		t.Fatalf("judge must not run when the step has no questions")
	}

	feedback, err := f.feedback.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Verdict != types.VerdictPass {
		t.Fatalf("expected a stored passing feedback row, got %+v", feedback)
	}
}

func TestAdvancePointerRequiresObservedStep(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	moved, err := f.sessions.AdvancePointer(ctx, nil, session.ID, "stepB", "stepA", types.SessionStatusInProgress)
	if err != nil {
		t.Fatalf("advance with stale step: %v", err)
	}
	if moved {
		t.Fatalf("a stale observed step must not move the pointer")
	}

	moved, err = f.sessions.AdvancePointer(ctx, nil, session.ID, "stepA", "stepB", types.SessionStatusInProgress)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !moved {
		t.Fatalf("matching observed step must move the pointer")
	}
}

func TestLostPointerRaceIsConflict(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Move the pointer out from under the transition after its
	// precondition read but before its commit.
	f.judge.onEvaluate = func() {
		moved, err := f.sessions.AdvancePointer(ctx, nil, session.ID, "stepA", "stepB", types.SessionStatusInProgress)
		if err != nil || !moved {
			t.Errorf("out-of-band advance failed: moved=%v err=%v", moved, err)
		}
	}

	_, err = f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "ok"}))
	wantStatusCode(t, err, http.StatusConflict)

	// Answers stay durable but the losing transition's feedback was
	// rolled back with it.
	history, err := f.answers.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected the answer to remain persisted, got %d rows", len(history))
	}
	feedback, err := f.feedback.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(feedback) != 0 {
		t.Fatalf("losing transition must not leave feedback, got %d rows", len(feedback))
	}

	reloaded, err := f.sessions.GetByIDForUser(ctx, nil, session.ID, f.userID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.StepID != "stepB" {
		t.Fatalf("the winning move must stand, got step %q", reloaded.StepID)
	}
}

func TestSubmitWrongStepWritesNothing(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = f.service.SubmitStep(ctx, f.userID, session.ID, "stepB", answersFor(map[string]string{"q2": "skip ahead"}))
	wantStatusCode(t, err, http.StatusBadRequest)

	history, err := f.answers.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no persisted answers, got %d", len(history))
	}
	feedback, err := f.feedback.ListBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(feedback) != 0 {
		t.Fatalf("expected no feedback rows, got %d", len(feedback))
	}
	if len(f.judge.calls) != 0 {
		t.Fatalf("judge must not run for a rejected submission")
	}
}

func TestJudgeFailureSynthesizesFailingVerdict(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.judge.err = errors.New("upstream timeout")
	result, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "ok"}))
	if err != nil {
		t.Fatalf("a judge outage must not surface as a request error: %v", err)
	}
	if result.Verdict.StepPass {
		t.Fatalf("a broken evaluator must never pass a hard gate")
	}
	if len(result.Verdict.GlobalFeedback) == 0 {
		t.Fatalf("synthesized verdict must carry a diagnostic message")
	}
	if result.StepID != "stepA" {
		t.Fatalf("pointer must hold on synthesized failure, got %q", result.StepID)
	}

	// Answers are still durable and feedback is stored.
	history, _ := f.answers.ListBySession(ctx, nil, session.ID)
	if len(history) != 1 {
		t.Fatalf("expected the answer to be persisted, got %d rows", len(history))
	}
	feedback, _ := f.feedback.ListBySession(ctx, nil, session.ID)
	if len(feedback) != 1 || feedback[0].Verdict != types.VerdictFail {
		t.Fatalf("expected a stored failing feedback row, got %+v", feedback)
	}
}

func TestSoftGateNeverBlocks(t *testing.T) {
	f := newEngineFixture(t, testWizardSoft, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_soft", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.judge.verdict = failingVerdict()
	result, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "rough draft"}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Verdict.StepPass {
		t.Fatalf("expected the failing verdict to be reported")
	}
	if result.StepID != "stepB" {
		t.Fatalf("soft gate must advance despite failure, got %q", result.StepID)
	}

	feedback, _ := f.feedback.ListBySession(ctx, nil, session.ID)
	if len(feedback) != 1 || feedback[0].Verdict != types.VerdictFail {
		t.Fatalf("soft gate failure must still store feedback, got %+v", feedback)
	}
}

func TestGetViewIsReadOnly(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.SubmitStep(ctx, f.userID, session.ID, "stepA", answersFor(map[string]string{"q1": "ok"})); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := f.service.GetView(ctx, f.userID, session.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	second, err := f.service.GetView(ctx, f.userID, session.ID)
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if len(first.Answers) != len(second.Answers) || len(first.Feedback) != len(second.Feedback) {
		t.Fatalf("view must not change state: first=%d/%d second=%d/%d",
			len(first.Answers), len(first.Feedback), len(second.Answers), len(second.Feedback))
	}
	if first.Session.StepID != "stepB" {
		t.Fatalf("view reflects the advanced pointer, got %q", first.Session.StepID)
	}
	for i := 1; i < len(first.Answers); i++ {
		if first.Answers[i].CreatedAt.Before(first.Answers[i-1].CreatedAt) {
			t.Fatalf("answers must be ordered oldest first")
		}
	}
}

func TestForeignSessionIsNotFound(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	stranger := uuid.New()
	_, err = f.service.GetView(ctx, stranger, session.ID)
	wantStatusCode(t, err, http.StatusNotFound)
	_, err = f.service.SubmitStep(ctx, stranger, session.ID, "stepA", nil)
	wantStatusCode(t, err, http.StatusNotFound)
}

func TestAddComment(t *testing.T) {
	f := newEngineFixture(t, testWizardHardThenNone, "stepA")
	ctx := context.Background()

	session, err := f.service.Start(ctx, f.userID, "w_test", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.service.AddComment(ctx, f.userID, session.ID, "stepA", "   "); err == nil {
		t.Fatalf("expected empty comment to be rejected")
	}

	comment, err := f.service.AddComment(ctx, f.userID, session.ID, "", "needs a sharper outcome verb")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if comment.StepID != "stepA" {
		t.Fatalf("comment defaults to the current step, got %q", comment.StepID)
	}

	view, err := f.service.GetView(ctx, f.userID, session.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Comments) != 1 || view.Comments[0].Body != "needs a sharper outcome verb" {
		t.Fatalf("unexpected comments in view: %+v", view.Comments)
	}
}
