package genfix

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// GenerationRequest holds everything the generation prompt is built from
type GenerationRequest struct {
	Subject           string
	Article           string
	EKCodes           []string
	LOCodes           []string
	Difficulty        Difficulty
	ExistingQuestions []string
}

// QuestionMaker generates the initial question of a cycle
type QuestionMaker struct {
	gateway Gateway
	logger  *zap.Logger
}

// NewQuestionMaker creates a question maker on top of a gateway
func NewQuestionMaker(gateway Gateway, logger *zap.Logger) *QuestionMaker {
	return &QuestionMaker{
		gateway: gateway,
		logger:  orNop(logger),
	}
}

// Generate renders the generation prompt, calls the model and parses the reply
func (qm *QuestionMaker) Generate(ctx context.Context, req GenerationRequest) (*Question, error) {
	qm.logger.Info("Generating question",
		zap.String("subject", req.Subject),
		zap.Stringer("difficulty", req.Difficulty),
		zap.Int("existing_questions", len(req.ExistingQuestions)),
	)

	prompt, err := RenderPrompt(TemplateGenerateMCQ, qm.promptVars(req))
	if err != nil {
		return nil, err
	}

	obj, err := qm.gateway.Complete(WithPurpose(ctx, "generate"), prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate question: %w", err)
	}

	question, err := ParseQuestion(obj, req.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated question: %w", err)
	}

	qm.logger.Info("Generated question",
		zap.String("text", question.Text),
		zap.Int("responses", len(question.Responses)),
	)
	return question, nil
}

func (qm *QuestionMaker) promptVars(req GenerationRequest) map[string]string {
	avoid := ""
	if len(req.ExistingQuestions) > 0 {
		avoid = "- Ensure question is not similar to: " + strings.Join(req.ExistingQuestions, " | ")
	}
	return map[string]string{
		"article":             req.Article,
		"task_verbs":          strings.Join(TaskVerbs(req.Difficulty), ", "),
		"criteria":            orNA(GetCriteria(req.Subject, CriteriaQuestion)),
		"distractor_criteria": orNA(GetCriteria(req.Subject, CriteriaDistractor)),
		"ek_codes":            joinOrNA(req.EKCodes),
		"lo_codes":            joinOrNA(req.LOCodes),
		"difficulty":          fmt.Sprintf("%d (%s)", int(req.Difficulty), req.Difficulty),
		"avoid":               avoid,
		"examples":            formatExamples(Examples(req.Subject, ExamplesGood)),
	}
}
