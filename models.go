package genfix

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/samber/lo"
)

// Response is a single answer option of a question
type Response struct {
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// QuestionType is the kind of assessment item
type QuestionType string

const (
	MCQ QuestionType = "MCQ"
	FRQ QuestionType = "FRQ"
)

// ParseQuestionType resolves an exact type name
func ParseQuestionType(s string) (QuestionType, error) {
	switch QuestionType(s) {
	case MCQ, FRQ:
		return QuestionType(s), nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Difficulty is the cognitive level a question targets. Levels are ordered.
type Difficulty int

const (
	ReadingComprehension Difficulty = iota // explicitly stated in the article
	Recall                                 // Bloom's easy
	Analyze                                // Bloom's moderate
	Evaluate                               // Bloom's difficult
)

var difficultyNames = []string{"READING_COMPREHENSION", "RECALL", "ANALYZE", "EVALUATE"}

func (d Difficulty) String() string {
	if d < ReadingComprehension || d > Evaluate {
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// ParseDifficulty resolves either the exact level name or its exact value ("0" to "3")
func ParseDifficulty(s string) (Difficulty, error) {
	if i := slices.Index(difficultyNames, s); i >= 0 {
		return Difficulty(i), nil
	}
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s && n >= 0 && n < len(difficultyNames) {
		return Difficulty(n), nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) {
	if d < ReadingComprehension || d > Evaluate {
		return nil, fmt.Errorf("invalid difficulty %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Question is one assessment item. A Question is never modified after it is
// built; revisions produce a new value.
type Question struct {
	Text       string       `json:"text"`
	Responses  []Response   `json:"responses"`
	Type       QuestionType `json:"question_type"`
	Difficulty Difficulty   `json:"difficulty"`
	EKCode     string       `json:"ek_code,omitempty"`
	LOCode     string       `json:"lo_code,omitempty"`
	SkillCode  string       `json:"skill_code,omitempty"`
}

// CorrectResponse returns the first response marked correct
func (q *Question) CorrectResponse() (Response, bool) {
	return lo.Find(q.Responses, func(r Response) bool { return r.IsCorrect })
}

// Distractors returns the incorrect responses in order
func (q *Question) Distractors() []Response {
	return lo.Filter(q.Responses, func(r Response, _ int) bool { return !r.IsCorrect })
}

// Equal reports whether two questions carry the same content
func (q *Question) Equal(other *Question) bool {
	if q == nil || other == nil {
		return q == other
	}
	return q.Text == other.Text &&
		q.Type == other.Type &&
		q.Difficulty == other.Difficulty &&
		q.EKCode == other.EKCode &&
		q.LOCode == other.LOCode &&
		q.SkillCode == other.SkillCode &&
		slices.Equal(q.Responses, other.Responses)
}

func (q *Question) withText(text string) *Question {
	revised := *q
	revised.Text = text
	return &revised
}

func (q *Question) withResponses(responses []Response) *Question {
	revised := *q
	revised.Responses = responses
	return &revised
}

// CheckKind names one of the quality checks
type CheckKind string

const (
	CheckClarity    CheckKind = "clarity"
	CheckFormat     CheckKind = "format"
	CheckContent    CheckKind = "content"
	CheckDifficulty CheckKind = "difficulty"
)

// Checks returns the check kinds in execution order
func Checks() []CheckKind {
	return []CheckKind{CheckClarity, CheckFormat, CheckContent, CheckDifficulty}
}

// QCResult is the outcome of one quality check
type QCResult struct {
	Check              CheckKind   `json:"check"`
	Score              int         `json:"score"` // 1 = pass
	Rationale          string      `json:"rationale"`
	Feedback           string      `json:"feedback"`
	RevisedContent     string      `json:"revised_content,omitempty"`
	AssessedDifficulty *Difficulty `json:"assessed_difficulty,omitempty"`
}

// Passed reports whether the check scored 1
func (r QCResult) Passed() bool {
	return r.Score == 1
}

// CycleStatus is the state of a generation cycle
type CycleStatus string

const (
	StatusPending       CycleStatus = "pending"
	StatusNeedsRevision CycleStatus = "needs_revision"
	StatusComplete      CycleStatus = "complete"
	StatusFailed        CycleStatus = "failed"
)

// Terminal reports whether no further transition is allowed
func (s CycleStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// GenerationCycle records one generate, check and fix run for a single question
type GenerationCycle struct {
	ID               string      `json:"id"`
	Course           string      `json:"course"`
	Subject          string      `json:"subject"`
	OriginalQuestion *Question   `json:"original_question,omitempty"`
	QCResults        []QCResult  `json:"qc_results"`
	FinalQuestion    *Question   `json:"final_question,omitempty"`
	Status           CycleStatus `json:"status"`
	SimilarTo        []string    `json:"similar_to,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       time.Time   `json:"finished_at,omitempty"`
}

// NeedsRevision reports whether any check failed
func (c *GenerationCycle) NeedsRevision() bool {
	return lo.SomeBy(c.QCResults, func(r QCResult) bool { return r.Score == 0 })
}

// FailedChecks returns the failed results in execution order
func (c *GenerationCycle) FailedChecks() []QCResult {
	return lo.Filter(c.QCResults, func(r QCResult, _ int) bool { return r.Score == 0 })
}

func (c *GenerationCycle) finish(status CycleStatus) {
	if c.Status.Terminal() {
		return
	}
	c.Status = status
	c.FinishedAt = time.Now()
}

// LLMConfig holds the sampling parameters passed on every gateway call
type LLMConfig struct {
	Provider         string  `mapstructure:"provider" json:"provider"`
	Model            string  `mapstructure:"model" json:"model"`
	Temperature      float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens" json:"max_tokens"`
	TopP             float64 `mapstructure:"top_p" json:"top_p"`
	PresencePenalty  float64 `mapstructure:"presence_penalty" json:"presence_penalty"`
	FrequencyPenalty float64 `mapstructure:"frequency_penalty" json:"frequency_penalty"`
	BaseURL          string  `mapstructure:"base_url" json:"base_url,omitempty"`

	// RequestsPerMinute paces completion calls; 0 disables pacing
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute,omitempty"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOllama:    "llama3.1",
}

// DefaultModel returns the model used for a provider when none is configured
func DefaultModel(provider string) string {
	if provider == "" {
		provider = ProviderOpenAI
	}
	return defaultModels[provider]
}

// DefaultLLMConfig favours low temperature for consistent, focused replies.
// Model is left empty so each provider falls back to its own DefaultModel.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderOpenAI,
		Temperature: 0.2,
		MaxTokens:   2048,
		TopP:        0.95,
	}
}

// CycleConfig is the input of a single generation cycle
type CycleConfig struct {
	Course            string     `json:"course"`
	Article           string     `json:"article"`
	EKCodes           []string   `json:"ek_codes,omitempty"`
	LOCodes           []string   `json:"lo_codes,omitempty"`
	TargetDifficulty  Difficulty `json:"target_difficulty"`
	ExistingQuestions []string   `json:"existing_questions,omitempty"`
	LLM               LLMConfig  `json:"llm"`
}
