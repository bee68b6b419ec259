package genfix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// FixStrategy is the repair applied for a failed check
type FixStrategy int

const (
	StrategyNone FixStrategy = iota
	StrategyRewriteText
	StrategyRegenerateResponses
	StrategyAdjustDifficulty
)

func (s FixStrategy) String() string {
	switch s {
	case StrategyRewriteText:
		return "rewrite-text"
	case StrategyRegenerateResponses:
		return "regenerate-responses"
	case StrategyAdjustDifficulty:
		return "adjust-difficulty"
	default:
		return "none"
	}
}

// StrategyFor maps a result to its repair. The check kind decides; results
// built without one fall back to the rationale used as a category tag.
func StrategyFor(result QCResult) FixStrategy {
	category := string(result.Check)
	if category == "" {
		category = strings.ToLower(strings.TrimSpace(result.Rationale))
	}
	switch category {
	case string(CheckClarity):
		return StrategyRewriteText
	case string(CheckFormat), "responses":
		return StrategyRegenerateResponses
	case string(CheckDifficulty):
		return StrategyAdjustDifficulty
	default:
		return StrategyNone
	}
}

// QuestionFixer repairs a question from failed quality checks
type QuestionFixer struct {
	gateway          Gateway
	logger           *zap.Logger
	repairDifficulty bool
}

// FixerOption configures a QuestionFixer
type FixerOption func(*QuestionFixer)

// WithDifficultyRepair enables the adjust-difficulty strategy. Without it
// difficulty failures are left alone.
func WithDifficultyRepair() FixerOption {
	return func(f *QuestionFixer) {
		f.repairDifficulty = true
	}
}

// NewQuestionFixer creates a fixer on top of a gateway
func NewQuestionFixer(gateway Gateway, logger *zap.Logger, opts ...FixerOption) *QuestionFixer {
	f := &QuestionFixer{
		gateway: gateway,
		logger:  orNop(logger),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FixQuestion applies a repair for each failed result, in order, each one
// building on the output of the previous. It returns nil when the outcome
// is unchanged from question. Incomplete or malformed fix replies are skipped;
// gateway failures are returned.
func (f *QuestionFixer) FixQuestion(ctx context.Context, question *Question, results []QCResult) (*Question, error) {
	current := question

	for _, result := range results {
		if result.Passed() {
			continue
		}

		strategy := StrategyFor(result)
		if strategy == StrategyAdjustDifficulty && !f.repairDifficulty {
			strategy = StrategyNone
		}

		var (
			fixed *Question
			err   error
		)
		switch strategy {
		case StrategyRewriteText:
			fixed, err = f.rewriteText(ctx, current, result)
		case StrategyRegenerateResponses:
			fixed, err = f.regenerateResponses(ctx, current, result)
		case StrategyAdjustDifficulty:
			fixed, err = f.adjustDifficulty(ctx, current, result)
		case StrategyNone:
			f.logger.Info("No fix for failed check", zap.String("check", string(result.Check)))
			continue
		}

		if err != nil {
			if errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrSchema) {
				f.logger.Warn("Skipping fix", zap.Stringer("strategy", strategy), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("%s fix failed: %w", strategy, err)
		}
		if fixed == nil {
			f.logger.Warn("Skipping fix with incomplete revision", zap.Stringer("strategy", strategy))
			continue
		}

		f.logger.Info("Applied fix", zap.Stringer("strategy", strategy), zap.String("check", string(result.Check)))
		current = fixed
	}

	if current.Equal(question) {
		return nil, nil
	}
	return current, nil
}

func (f *QuestionFixer) rewriteText(ctx context.Context, q *Question, result QCResult) (*Question, error) {
	reply, err := f.complete(ctx, "fix-clarity", TemplateFixClarity, map[string]string{
		"question": q.Text,
		"feedback": result.Feedback,
	})
	if err != nil {
		return nil, err
	}
	if reply.RevisedQuestion == "" {
		return nil, nil
	}
	return q.withText(reply.RevisedQuestion), nil
}

func (f *QuestionFixer) regenerateResponses(ctx context.Context, q *Question, result QCResult) (*Question, error) {
	reply, err := f.complete(ctx, "fix-responses", TemplateFixResponses, map[string]string{
		"question":  q.Text,
		"responses": formatResponses(q),
		"feedback":  result.Feedback,
		"absolutes": strings.Join(Absolutes(), ", "),
	})
	if err != nil {
		return nil, err
	}
	responses, ok := responsesFrom(reply.RevisedResponses)
	if !ok {
		return nil, nil
	}
	return q.withResponses(responses), nil
}

func (f *QuestionFixer) adjustDifficulty(ctx context.Context, q *Question, result QCResult) (*Question, error) {
	current := q.Difficulty
	if result.AssessedDifficulty != nil {
		current = *result.AssessedDifficulty
	}
	reply, err := f.complete(ctx, "fix-difficulty", TemplateFixDifficulty, map[string]string{
		"question":           q.Text,
		"responses":          formatResponses(q),
		"current_difficulty": current.String(),
		"target_difficulty":  q.Difficulty.String(),
		"feedback":           result.Feedback,
		"task_verbs":         strings.Join(TaskVerbs(q.Difficulty), ", "),
	})
	if err != nil {
		return nil, err
	}

	revised := q
	if reply.RevisedQuestion != "" {
		revised = revised.withText(reply.RevisedQuestion)
	}
	if responses, ok := responsesFrom(reply.RevisedResponses); ok {
		revised = revised.withResponses(responses)
	}
	if revised == q {
		return nil, nil
	}
	return revised, nil
}

func (f *QuestionFixer) complete(ctx context.Context, purpose string, id TemplateID, vars map[string]string) (FixReply, error) {
	prompt, err := RenderPrompt(id, vars)
	if err != nil {
		return FixReply{}, err
	}
	obj, err := f.gateway.Complete(WithPurpose(ctx, purpose), prompt)
	if err != nil {
		return FixReply{}, err
	}
	return ParseFix(obj)
}

// responsesFrom turns a regenerated set into one correct response followed
// by the distractors; an empty or partial set is rejected
func responsesFrom(set *ResponseSet) ([]Response, bool) {
	if set == nil || set.Correct == "" || len(set.Distractors) == 0 {
		return nil, false
	}
	responses := make([]Response, 0, len(set.Distractors)+1)
	responses = append(responses, Response{Text: set.Correct, IsCorrect: true})
	for _, d := range set.Distractors {
		responses = append(responses, Response{Text: d})
	}
	return responses, true
}
