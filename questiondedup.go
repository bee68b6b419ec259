package genfix

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultSimilarityThreshold is the normalized edit similarity at which two
// question texts count as near-duplicates
const DefaultSimilarityThreshold = 0.8

// QuestionDedup flags generated questions that read like ones already written.
// It only reports; nothing is rejected.
type QuestionDedup struct {
	threshold float64
	logger    *zap.Logger
}

// NewQuestionDedup creates a deduplicator. A threshold outside (0, 1] falls
// back to DefaultSimilarityThreshold.
func NewQuestionDedup(threshold float64, logger *zap.Logger) *QuestionDedup {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &QuestionDedup{
		threshold: threshold,
		logger:    orNop(logger),
	}
}

// Similar returns the existing texts that are near-duplicates of question
func (qd *QuestionDedup) Similar(question *Question, existing []string) []string {
	if question == nil || len(existing) == 0 {
		return nil
	}
	matches := lo.Filter(existing, func(text string, _ int) bool {
		return Similarity(question.Text, text) >= qd.threshold
	})
	if len(matches) > 0 {
		qd.logger.Info("Generated question resembles existing questions",
			zap.String("text", question.Text),
			zap.Strings("similar_to", matches),
		)
	}
	return matches
}

// Similarity is 1 minus the Levenshtein distance over the longer length,
// compared case-insensitively with whitespace collapsed
func Similarity(a, b string) float64 {
	a, b = normalizeText(a), normalizeText(b)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
