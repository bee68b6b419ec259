package genfix

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CycleManager orchestrates one generate, check and fix run
type CycleManager struct {
	cfg     CycleConfig
	subject string
	maker   *QuestionMaker
	checker *QualityChecker
	fixer   *QuestionFixer
	dedup   *QuestionDedup
	logger  *zap.Logger
}

type cycleOptions struct {
	logger              *zap.Logger
	fixerOpts           []FixerOption
	similarityThreshold float64
}

// CycleOption configures a CycleManager
type CycleOption func(*cycleOptions)

// WithLogger sets the logger shared by every stage of the cycle
func WithLogger(logger *zap.Logger) CycleOption {
	return func(o *cycleOptions) {
		o.logger = logger
	}
}

// WithFixerOptions passes options through to the QuestionFixer
func WithFixerOptions(opts ...FixerOption) CycleOption {
	return func(o *cycleOptions) {
		o.fixerOpts = append(o.fixerOpts, opts...)
	}
}

// WithSimilarityThreshold sets the near-duplicate threshold used against
// CycleConfig.ExistingQuestions
func WithSimilarityThreshold(threshold float64) CycleOption {
	return func(o *cycleOptions) {
		o.similarityThreshold = threshold
	}
}

// NewCycleManager resolves the course and wires the pipeline stages to gateway.
// An unknown course fails here, before any completion call.
func NewCycleManager(cfg CycleConfig, gateway Gateway, opts ...CycleOption) (*CycleManager, error) {
	subject, ok := GetSubject(cfg.Course)
	if !ok {
		return nil, &UnknownCourseError{Course: cfg.Course}
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: no gateway", ErrConfiguration)
	}

	o := cycleOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := orNop(o.logger)

	return &CycleManager{
		cfg:     cfg,
		subject: subject,
		maker:   NewQuestionMaker(gateway, logger),
		checker: NewQualityChecker(gateway, logger),
		fixer:   NewQuestionFixer(gateway, logger, o.fixerOpts...),
		dedup:   NewQuestionDedup(o.similarityThreshold, logger),
		logger:  logger,
	}, nil
}

// Subject returns the subject area resolved from the course
func (cm *CycleManager) Subject() string {
	return cm.subject
}

// RunCycle runs the pipeline once. The fixed question is not checked again.
// On an error the cycle is still returned, marked failed.
func (cm *CycleManager) RunCycle(ctx context.Context) (*GenerationCycle, error) {
	cycle := &GenerationCycle{
		ID:        uuid.NewString(),
		Course:    cm.cfg.Course,
		Subject:   cm.subject,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
	logger := cm.logger.With(zap.String("cycle_id", cycle.ID))
	logger.Info("Starting generation cycle",
		zap.String("course", cycle.Course),
		zap.String("subject", cycle.Subject),
		zap.Stringer("difficulty", cm.cfg.TargetDifficulty),
	)

	question, err := cm.maker.Generate(ctx, GenerationRequest{
		Subject:           cm.subject,
		Article:           cm.cfg.Article,
		EKCodes:           cm.cfg.EKCodes,
		LOCodes:           cm.cfg.LOCodes,
		Difficulty:        cm.cfg.TargetDifficulty,
		ExistingQuestions: cm.cfg.ExistingQuestions,
	})
	if err != nil {
		return cm.abort(logger, cycle, err)
	}
	cycle.OriginalQuestion = question
	cycle.SimilarTo = cm.dedup.Similar(question, cm.cfg.ExistingQuestions)

	results, err := cm.checker.RunAllChecks(ctx, question, cm.cfg.Article)
	if err != nil {
		return cm.abort(logger, cycle, err)
	}
	cycle.QCResults = results

	if !cycle.NeedsRevision() {
		logger.Info("Question passed quality checks")
		cycle.FinalQuestion = question
		cm.finish(logger, cycle, StatusComplete)
		return cycle, nil
	}

	cycle.Status = StatusNeedsRevision
	failed := lo.Map(cycle.FailedChecks(), func(r QCResult, _ int) string { return string(r.Check) })
	logger.Info("Question needs revision", zap.Strings("failed_checks", failed))

	fixed, err := cm.fixer.FixQuestion(ctx, question, results)
	if err != nil {
		return cm.abort(logger, cycle, err)
	}
	if fixed == nil {
		cycle.FailureReason = "no fix applied for failed checks: " + strings.Join(failed, ", ")
		cm.finish(logger, cycle, StatusFailed)
		return cycle, nil
	}

	cycle.FinalQuestion = fixed
	cm.finish(logger, cycle, StatusComplete)
	return cycle, nil
}

func (cm *CycleManager) abort(logger *zap.Logger, cycle *GenerationCycle, err error) (*GenerationCycle, error) {
	cycle.FailureReason = err.Error()
	cm.finish(logger, cycle, StatusFailed)
	logger.Error("Generation cycle aborted", zap.Error(err))
	return cycle, err
}

func (cm *CycleManager) finish(logger *zap.Logger, cycle *GenerationCycle, status CycleStatus) {
	cycle.finish(status)
	cyclesTotal.WithLabelValues(string(cycle.Status)).Inc()
	logger.Info("Generation cycle finished",
		zap.String("status", string(cycle.Status)),
		zap.Duration("elapsed", cycle.FinishedAt.Sub(cycle.StartedAt)),
		zap.Int("similar_to", len(cycle.SimilarTo)),
	)
}

// RunGeneration builds the gateway from cfg.LLM and runs a single cycle.
// The course is validated before any credential is looked up.
func RunGeneration(ctx context.Context, cfg CycleConfig, logger *zap.Logger, opts ...CycleOption) (*GenerationCycle, error) {
	if _, ok := GetSubject(cfg.Course); !ok {
		return nil, &UnknownCourseError{Course: cfg.Course}
	}
	gateway, err := NewGateway(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	manager, err := NewCycleManager(cfg, gateway, append([]CycleOption{WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return manager.RunCycle(ctx)
}
