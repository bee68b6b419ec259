package genfix

import (
	"strings"
	"sync"
)

// QuestionPool keeps the most recent question texts of a batch so each new
// cycle can be told what to avoid. Oldest entries drop out first.
type QuestionPool struct {
	mu    sync.RWMutex
	max   int
	texts []string
}

// NewQuestionPool creates a pool holding at most max texts; max <= 0 means unbounded
func NewQuestionPool(max int) *QuestionPool {
	return &QuestionPool{
		max:   max,
		texts: make([]string, 0),
	}
}

// Add records a question's text. Blank texts and repeats are ignored.
func (qp *QuestionPool) Add(question *Question) {
	if question == nil {
		return
	}
	text := strings.TrimSpace(question.Text)
	if text == "" {
		return
	}

	qp.mu.Lock()
	defer qp.mu.Unlock()

	for _, t := range qp.texts {
		if t == text {
			return
		}
	}
	qp.texts = append(qp.texts, text)
	if qp.max > 0 && len(qp.texts) > qp.max {
		qp.texts = qp.texts[len(qp.texts)-qp.max:]
	}
}

// Seed adds texts that were written before this run, e.g. loaded from the database
func (qp *QuestionPool) Seed(texts []string) {
	for _, t := range texts {
		qp.Add(&Question{Text: t})
	}
}

// Texts returns a copy of the pool contents, oldest first
func (qp *QuestionPool) Texts() []string {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	out := make([]string, len(qp.texts))
	copy(out, qp.texts)
	return out
}

// Size returns the number of texts in the pool
func (qp *QuestionPool) Size() int {
	qp.mu.RLock()
	defer qp.mu.RUnlock()
	return len(qp.texts)
}

// IsEmpty returns true if the pool is empty
func (qp *QuestionPool) IsEmpty() bool {
	return qp.Size() == 0
}
