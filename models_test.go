package genfix

import (
	"encoding/json"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"READING_COMPREHENSION", ReadingComprehension, false},
		{"RECALL", Recall, false},
		{"ANALYZE", Analyze, false},
		{"EVALUATE", Evaluate, false},
		{"0", ReadingComprehension, false},
		{"3", Evaluate, false},
		{"4", 0, true},
		{"-1", 0, true},
		{"03", 0, true},
		{"analyze", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDifficultyOrdered(t *testing.T) {
	if !(ReadingComprehension < Recall && Recall < Analyze && Analyze < Evaluate) {
		t.Error("difficulty levels are not ordered")
	}
}

func TestQuestionJSON(t *testing.T) {
	data, err := json.Marshal(sampleQuestion())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["difficulty"] != "ANALYZE" || raw["question_type"] != "MCQ" {
		t.Errorf("encoded enums = %v, %v", raw["difficulty"], raw["question_type"])
	}

	var back Question
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Equal(sampleQuestion()) {
		t.Errorf("decoded question differs: %+v", back)
	}
}

func TestNeedsRevision(t *testing.T) {
	tests := []struct {
		name    string
		results []QCResult
		want    bool
	}{
		{"empty", nil, false},
		{"all pass", []QCResult{{Score: 1}, {Score: 1}, {Score: 1}, {Score: 1}}, false},
		{"one fail", []QCResult{{Score: 1}, {Score: 0}, {Score: 1}, {Score: 1}}, true},
		{"all fail", []QCResult{{Score: 0}, {Score: 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &GenerationCycle{QCResults: tt.results}
			if got := c.NeedsRevision(); got != tt.want {
				t.Errorf("NeedsRevision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailedChecksOrder(t *testing.T) {
	c := &GenerationCycle{QCResults: []QCResult{
		{Check: CheckClarity, Score: 0},
		{Check: CheckFormat, Score: 1},
		{Check: CheckContent, Score: 0},
		{Check: CheckDifficulty, Score: 1},
	}}
	failed := c.FailedChecks()
	if len(failed) != 2 || failed[0].Check != CheckClarity || failed[1].Check != CheckContent {
		t.Errorf("FailedChecks() = %+v", failed)
	}
}

func TestCycleFinishIsTerminal(t *testing.T) {
	c := &GenerationCycle{Status: StatusPending}
	c.finish(StatusComplete)
	finishedAt := c.FinishedAt
	if c.Status != StatusComplete || finishedAt.IsZero() {
		t.Fatalf("after finish: status %s, finished %v", c.Status, finishedAt)
	}

	c.finish(StatusFailed)
	if c.Status != StatusComplete || !c.FinishedAt.Equal(finishedAt) {
		t.Errorf("terminal cycle changed to %s", c.Status)
	}
}

func TestQuestionRevisionsAreCopies(t *testing.T) {
	q := sampleQuestion()
	revised := q.withText("A new stem?")
	if q.Text == revised.Text {
		t.Error("withText modified the original")
	}
	if !sameResponses(q.Responses, revised.Responses) {
		t.Error("withText changed the responses")
	}

	other := q.withResponses([]Response{{Text: "x", IsCorrect: true}})
	if len(q.Responses) != 4 || other.Text != q.Text {
		t.Error("withResponses modified the original or the text")
	}
}

func sameResponses(a, b []Response) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
