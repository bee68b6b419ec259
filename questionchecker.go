package genfix

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

var checkTemplates = map[CheckKind]TemplateID{
	CheckClarity:    TemplateQCClarity,
	CheckFormat:     TemplateQCFormat,
	CheckContent:    TemplateQCContent,
	CheckDifficulty: TemplateQCDifficulty,
}

// QualityChecker runs the fixed battery of quality checks against a question
type QualityChecker struct {
	gateway Gateway
	logger  *zap.Logger
}

// NewQualityChecker creates a checker on top of a gateway
func NewQualityChecker(gateway Gateway, logger *zap.Logger) *QualityChecker {
	return &QualityChecker{
		gateway: gateway,
		logger:  orNop(logger),
	}
}

// Check runs a single quality check. The article is only used by the content check.
func (qc *QualityChecker) Check(ctx context.Context, kind CheckKind, question *Question, article string) (QCResult, error) {
	id, ok := checkTemplates[kind]
	if !ok {
		return QCResult{}, fmt.Errorf("%w: unknown check %q", ErrConfiguration, kind)
	}

	prompt, err := RenderPrompt(id, qc.promptVars(question, article))
	if err != nil {
		return QCResult{}, err
	}

	obj, err := qc.gateway.Complete(WithPurpose(ctx, "qc-"+string(kind)), prompt)
	if err != nil {
		return QCResult{}, fmt.Errorf("%s check failed: %w", kind, err)
	}

	result, err := ParseQC(obj)
	if err != nil {
		return QCResult{}, fmt.Errorf("failed to parse %s check: %w", kind, err)
	}
	result.Check = kind

	qc.logger.Info("Quality check",
		zap.String("check", string(kind)),
		zap.Int("score", result.Score),
		zap.String("rationale", result.Rationale),
	)
	return result, nil
}

// RunAllChecks runs every check in order and returns one result per check.
// A failed score never skips a later check; any call or parse error aborts.
func (qc *QualityChecker) RunAllChecks(ctx context.Context, question *Question, article string) ([]QCResult, error) {
	kinds := Checks()
	results := make([]QCResult, 0, len(kinds))
	for _, kind := range kinds {
		result, err := qc.Check(ctx, kind, question, article)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (qc *QualityChecker) promptVars(question *Question, article string) map[string]string {
	return map[string]string{
		"question":  question.Text,
		"responses": formatResponses(question),
		"article":   article,
		"ek_code":   orNA(question.EKCode),
		"lo_code":   orNA(question.LOCode),
	}
}
