package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/platform/sessionlock"
	"github.com/yungbote/coursemap-backend/internal/repos"
	"github.com/yungbote/coursemap-backend/internal/types"
	"github.com/yungbote/coursemap-backend/internal/wizard"
)

const evaluationUnavailableMessage = "Evaluation could not be completed. Your answers were saved; please submit again."

// SubmitAnswer is one submitted value. Value is opaque structured data
// (strings, numbers, nested objects, file-reference metadata) the
// engine records without inspecting.
type SubmitAnswer struct {
	QuestionID string          `json:"questionId" binding:"required"`
	Value      json.RawMessage `json:"value"`
}

type SubmitResult struct {
	Verdict *Verdict `json:"evaluation"`
	StepID  string   `json:"stepId"`
	Status  string   `json:"status"`
}

// SessionView is the full read model: summary plus complete ordered
// answer, feedback and comment history. Clients derive current values
// the same way the engine does (latest row per question wins).
type SessionView struct {
	Session  *types.Session          `json:"session"`
	Answers  []*types.Answer         `json:"answers"`
	Feedback []*types.FeedbackRecord `json:"feedback"`
	Comments []*types.Comment        `json:"comments"`
}

// SessionService owns the session state machine: it is the only writer
// of a session's step pointer and status.
type SessionService interface {
	Start(ctx context.Context, userID uuid.UUID, wizardID string, version int) (*types.Session, error)
	SubmitStep(ctx context.Context, userID, sessionID uuid.UUID, stepID string, answers []SubmitAnswer) (*SubmitResult, error)
	GetView(ctx context.Context, userID, sessionID uuid.UUID) (*SessionView, error)
	AddComment(ctx context.Context, userID, sessionID uuid.UUID, stepID, body string) (*types.Comment, error)
}

type sessionService struct {
	db           *gorm.DB
	log          *logger.Logger
	sessionRepo  repos.SessionRepo
	answerRepo   repos.AnswerRepo
	feedbackRepo repos.FeedbackRepo
	commentRepo  repos.CommentRepo
	wizards      WizardService
	judge        Judge
	locker       sessionlock.Locker
	lockWait     time.Duration
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	sessionRepo repos.SessionRepo,
	answerRepo repos.AnswerRepo,
	feedbackRepo repos.FeedbackRepo,
	commentRepo repos.CommentRepo,
	wizards WizardService,
	judge Judge,
	locker sessionlock.Locker,
) SessionService {
	return &sessionService{
		db:           db,
		log:          log.With("service", "SessionService"),
		sessionRepo:  sessionRepo,
		answerRepo:   answerRepo,
		feedbackRepo: feedbackRepo,
		commentRepo:  commentRepo,
		wizards:      wizards,
		judge:        judge,
		locker:       locker,
		lockWait:     envutil.Seconds("SUBMIT_LOCK_WAIT_SECONDS", 15*time.Second),
	}
}

func (ss *sessionService) Start(ctx context.Context, userID uuid.UUID, wizardID string, version int) (*types.Session, error) {
	def, err := ss.wizards.Definition(ctx, wizardID, version)
	if err != nil {
		return nil, err
	}

	session := &types.Session{
		ID:       uuid.New(),
		UserID:   userID,
		WizardID: wizardID,
		Version:  version,
		StepID:   def.FirstStep().ID,
		Status:   types.SessionStatusInProgress,
	}
	if err := ss.sessionRepo.Create(ctx, nil, session); err != nil {
		return nil, err
	}

	ss.log.Info("Session started",
		"session_id", session.ID.String(),
		"wizard_id", wizardID,
		"version", version,
		"step_id", session.StepID,
	)
	return session, nil
}

// SubmitStep runs one gated transition. Transitions are serialized per
// session; the guarded pointer update inside the final transaction is
// the backstop should two instances ever slip past the lock.
func (ss *sessionService) SubmitStep(ctx context.Context, userID, sessionID uuid.UUID, stepID string, answers []SubmitAnswer) (*SubmitResult, error) {
	if strings.TrimSpace(stepID) == "" {
		return nil, apierr.InvalidRequest(errors.New("stepId required"))
	}
	for _, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return nil, apierr.InvalidRequest(errors.New("answer questionId required"))
		}
	}

	lockCtx, cancel := context.WithTimeout(ctx, ss.lockWait)
	release, err := ss.locker.Acquire(lockCtx, sessionID.String())
	cancel()
	if err != nil {
		if errors.Is(err, sessionlock.ErrHeld) {
			return nil, apierr.Conflict(err)
		}
		return nil, err
	}
	defer release()

	session, err := ss.loadOwned(ctx, nil, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.SessionStatusInProgress {
		return nil, apierr.InvalidRequest(fmt.Errorf("session is %s", session.Status))
	}
	if session.StepID != stepID {
		// Submitting past the pointer would let a client skip gates by
		// naming a later step; reject before any write.
		return nil, apierr.InvalidRequest(fmt.Errorf("step %q is not the session's current step", stepID))
	}

	def, err := ss.wizards.Definition(ctx, session.WizardID, session.Version)
	if err != nil {
		return nil, err
	}
	step, ok := def.ResolveStep(stepID)
	if !ok {
		return nil, apierr.NotFound(fmt.Errorf("step %q not found in wizard %s:%d", stepID, session.WizardID, session.Version))
	}

	// Answers are durable from here on; the transition must reach a
	// consistent terminal state even if the caller disconnects.
	ctx = ctxutil.Detach(ctx)

	if err := ss.appendAnswers(ctx, session, stepID, answers); err != nil {
		return nil, err
	}

	verdict, gateApplies, err := ss.computeVerdict(ctx, session, step)
	if err != nil {
		return nil, err
	}

	toStepID, toStatus := ss.decideAdvance(def, step, verdict, gateApplies, session)

	payload, err := json.Marshal(verdict)
	if err != nil {
		return nil, fmt.Errorf("encode verdict: %w", err)
	}
	verdictLabel := types.VerdictFail
	if verdict.StepPass {
		verdictLabel = types.VerdictPass
	}

	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ss.feedbackRepo.DeleteByStep(ctx, tx, sessionID, stepID); err != nil {
			return err
		}
		record := &types.FeedbackRecord{
			ID:        uuid.New(),
			SessionID: sessionID,
			StepID:    stepID,
			Verdict:   verdictLabel,
			Payload:   datatypes.JSON(payload),
		}
		if err := ss.feedbackRepo.Create(ctx, tx, record); err != nil {
			return err
		}
		moved, err := ss.sessionRepo.AdvancePointer(ctx, tx, sessionID, stepID, toStepID, toStatus)
		if err != nil {
			return err
		}
		if !moved {
			return apierr.Conflict(fmt.Errorf("session %s advanced concurrently", sessionID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.log.Info("Step submitted",
		"session_id", sessionID.String(),
		"step_id", stepID,
		"gate", step.GateMode(),
		"pass", verdict.StepPass,
		"next_step_id", toStepID,
		"status", toStatus,
	)
	return &SubmitResult{Verdict: verdict, StepID: toStepID, Status: toStatus}, nil
}

func (ss *sessionService) appendAnswers(ctx context.Context, session *types.Session, stepID string, answers []SubmitAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	rows := make([]*types.Answer, 0, len(answers))
	base := time.Now()
	for i, a := range answers {
		value := a.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		rows = append(rows, &types.Answer{
			ID:         uuid.New(),
			SessionID:  session.ID,
			StepID:     stepID,
			QuestionID: a.QuestionID,
			Value:      datatypes.JSON(value),
			// Distinct timestamps keep latest-wins deterministic when one
			// submission repeats a question id.
			CreatedAt: base.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return ss.answerRepo.AppendMany(ctx, nil, rows)
}

// computeVerdict implements the evaluation half of the transition:
// ungated or rubric-less steps pass trivially, everything else goes to
// the judge against the step's complete current answer set. A judge
// failure is absorbed into a failing verdict so a hard gate can never
// be passed by breaking the evaluator, and the step always ends up
// with stored feedback.
func (ss *sessionService) computeVerdict(ctx context.Context, session *types.Session, step wizard.Step) (*Verdict, bool, error) {
	if step.GateMode() == wizard.GateNone {
		return PassingVerdict(), false, nil
	}

	rubric, err := ss.wizards.Rubric(ctx, session.WizardID, session.Version, step.ID)
	if err != nil {
		return nil, false, err
	}
	if rubric == nil {
		return PassingVerdict(), false, nil
	}
	if len(step.Questions) == 0 {
		// Nothing to evaluate.
		return PassingVerdict(), true, nil
	}

	latest, err := ss.answerRepo.LatestByStep(ctx, nil, session.ID, step.ID)
	if err != nil {
		return nil, false, err
	}
	current := make([]QuestionAnswer, 0, len(step.Questions))
	for _, q := range step.Questions {
		value, ok := latest[q.ID]
		if !ok {
			continue
		}
		current = append(current, QuestionAnswer{QuestionID: q.ID, Value: json.RawMessage(value)})
	}

	verdict, err := ss.judge.Evaluate(ctx, EvaluateInput{
		StepID:   step.ID,
		WizardID: session.WizardID,
		Version:  session.Version,
		Rubric:   json.RawMessage(rubric.JSON),
		Answers:  current,
	})
	if err != nil {
		ss.log.Warn("Judge call failed, synthesizing failing verdict",
			"session_id", session.ID.String(),
			"step_id", step.ID,
			"error", err,
		)
		return &Verdict{
			StepPass:        false,
			GlobalFeedback:  []string{evaluationUnavailableMessage},
			QuestionResults: []QuestionResult{},
		}, true, nil
	}
	return verdict, true, nil
}

// decideAdvance computes the next (stepID, status). Soft gates never
// block; hard gates hold the pointer on a failing verdict. Advancing
// off the last step completes the session with the pointer pinned.
func (ss *sessionService) decideAdvance(def *wizard.Definition, step wizard.Step, verdict *Verdict, gateApplies bool, session *types.Session) (string, string) {
	canAdvance := verdict.StepPass || !gateApplies || step.GateMode() == wizard.GateSoft
	if !canAdvance {
		return session.StepID, session.Status
	}
	if def.IsLast(step.ID) {
		return session.StepID, types.SessionStatusComplete
	}
	next, _ := def.NextStep(step.ID)
	return next.ID, types.SessionStatusInProgress
}

// GetView is the pure read path: no evaluation, no writes. Histories
// load concurrently and come back ordered by creation time ascending.
func (ss *sessionService) GetView(ctx context.Context, userID, sessionID uuid.UUID) (*SessionView, error) {
	session, err := ss.loadOwned(ctx, nil, userID, sessionID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{Session: session}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		answers, err := ss.answerRepo.ListBySession(gctx, nil, sessionID)
		view.Answers = answers
		return err
	})
	g.Go(func() error {
		feedback, err := ss.feedbackRepo.ListBySession(gctx, nil, sessionID)
		view.Feedback = feedback
		return err
	})
	g.Go(func() error {
		comments, err := ss.commentRepo.ListBySession(gctx, nil, sessionID)
		view.Comments = comments
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if view.Answers == nil {
		view.Answers = []*types.Answer{}
	}
	if view.Feedback == nil {
		view.Feedback = []*types.FeedbackRecord{}
	}
	if view.Comments == nil {
		view.Comments = []*types.Comment{}
	}
	return view, nil
}

func (ss *sessionService) AddComment(ctx context.Context, userID, sessionID uuid.UUID, stepID, body string) (*types.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apierr.InvalidRequest(errors.New("comment body required"))
	}
	session, err := ss.loadOwned(ctx, nil, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(stepID) == "" {
		stepID = session.StepID
	}

	comment := &types.Comment{
		ID:        uuid.New(),
		SessionID: sessionID,
		StepID:    stepID,
		Body:      body,
	}
	if err := ss.commentRepo.Create(ctx, nil, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (ss *sessionService) loadOwned(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID) (*types.Session, error) {
	session, err := ss.sessionRepo.GetByIDForUser(ctx, tx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("session %s not found", sessionID))
		}
		return nil, err
	}
	return session, nil
}
