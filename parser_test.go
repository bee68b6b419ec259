package genfix

import (
	"errors"
	"testing"
)

func mustObject(t *testing.T, text string) Object {
	t.Helper()
	obj, err := decodeObject(text)
	if err != nil {
		t.Fatalf("decodeObject(%s) error = %v", text, err)
	}
	return obj
}

func TestParseQuestion(t *testing.T) {
	q, err := ParseQuestion(mustObject(t, generationReply), Analyze)
	if err != nil {
		t.Fatalf("ParseQuestion() error = %v", err)
	}
	if len(q.Responses) != 4 {
		t.Fatalf("responses = %d, want 1 + 3 distractors", len(q.Responses))
	}
	correct := 0
	for i, r := range q.Responses {
		if r.IsCorrect {
			correct++
			if i != 0 {
				t.Errorf("correct response at %d, want 0", i)
			}
		}
	}
	if correct != 1 {
		t.Errorf("correct responses = %d, want 1", correct)
	}
	if q.Responses[0].Explanation == "" {
		t.Error("explanation not attached to the correct response")
	}
	if q.Type != MCQ || q.Difficulty != Analyze || q.EKCode != "PSO-6.C.1" || q.LOCode != "PSO-6.C" {
		t.Errorf("question = %+v", q)
	}
}

func TestParseQuestionDistractorCount(t *testing.T) {
	for _, tt := range []struct {
		reply string
		want  int
	}{
		{`{"text":"Q?","correct_answer":"A","distractors":["B"]}`, 2},
		{`{"text":"Q?","correct_answer":"A","distractors":["B","C","D","E"]}`, 5},
	} {
		q, err := ParseQuestion(mustObject(t, tt.reply), Recall)
		if err != nil {
			t.Fatalf("ParseQuestion(%s) error = %v", tt.reply, err)
		}
		if len(q.Responses) != tt.want {
			t.Errorf("responses = %d, want %d", len(q.Responses), tt.want)
		}
	}
}

func TestParseQuestionOverrides(t *testing.T) {
	obj := mustObject(t, `{"text":"Q?","correct_answer":"A","distractors":["B"],"question_type":"FRQ","difficulty":"EVALUATE","skill_code":"1.A"}`)
	q, err := ParseQuestion(obj, Recall)
	if err != nil {
		t.Fatal(err)
	}
	if q.Type != FRQ || q.Difficulty != Evaluate || q.SkillCode != "1.A" {
		t.Errorf("question = %+v", q)
	}
}

func TestParseQuestionSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		key   string
	}{
		{"missing text", `{"correct_answer":"A","distractors":["B"]}`, "text"},
		{"empty text", `{"text":"  ","correct_answer":"A","distractors":["B"]}`, "text"},
		{"missing correct", `{"text":"Q?","distractors":["B"]}`, "correct_answer"},
		{"null correct", `{"text":"Q?","correct_answer":null,"distractors":["B"]}`, "correct_answer"},
		{"numeric text", `{"text":7,"correct_answer":"A","distractors":["B"]}`, "text"},
		{"distractors not a list", `{"text":"Q?","correct_answer":"A","distractors":"B"}`, "distractors"},
		{"no distractors", `{"text":"Q?","correct_answer":"A","distractors":[]}`, "distractors"},
		{"blank distractor", `{"text":"Q?","correct_answer":"A","distractors":["B",""]}`, "distractors"},
		{"bad difficulty", `{"text":"Q?","correct_answer":"A","distractors":["B"],"difficulty":"HARD"}`, "difficulty"},
		{"bad type", `{"text":"Q?","correct_answer":"A","distractors":["B"],"question_type":"essay"}`, "question_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestion(mustObject(t, tt.reply), Analyze)
			var schema *SchemaError
			if !errors.As(err, &schema) {
				t.Fatalf("error = %v, want SchemaError", err)
			}
			if schema.Key != tt.key {
				t.Errorf("key = %q, want %q", schema.Key, tt.key)
			}
			if !errors.Is(err, ErrSchema) {
				t.Error("error does not match ErrSchema")
			}
		})
	}
}

func TestParseQC(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		score    int
		assessed *Difficulty
		wantErr  bool
	}{
		{"pass", `{"score":1,"rationale":"ok","feedback":""}`, 1, nil, false},
		{"fail", `{"score":0,"rationale":"clarity","feedback":"ambiguous referent"}`, 0, nil, false},
		{"string score", `{"score":"1","rationale":"ok","feedback":"fine"}`, 1, nil, false},
		{"with difficulty", `{"score":1,"difficulty":"2","rationale":"ok","feedback":""}`, 1, ptr(Analyze), false},
		{"numeric difficulty", `{"score":0,"difficulty":0,"rationale":"too easy","feedback":"raise it"}`, 0, ptr(ReadingComprehension), false},
		{"score out of range", `{"score":2,"rationale":"ok","feedback":""}`, 0, nil, true},
		{"fractional score", `{"score":0.5,"rationale":"ok","feedback":""}`, 0, nil, true},
		{"missing score", `{"rationale":"ok","feedback":""}`, 0, nil, true},
		{"missing rationale", `{"score":1,"feedback":""}`, 0, nil, true},
		{"missing feedback", `{"score":1,"rationale":"ok"}`, 0, nil, true},
		{"bad difficulty", `{"score":1,"difficulty":"4","rationale":"ok","feedback":""}`, 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQC(mustObject(t, tt.reply))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQC() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrSchema) {
					t.Errorf("error %v does not match ErrSchema", err)
				}
				return
			}
			if got.Score != tt.score {
				t.Errorf("Score = %d, want %d", got.Score, tt.score)
			}
			switch {
			case tt.assessed == nil && got.AssessedDifficulty != nil:
				t.Errorf("AssessedDifficulty = %v, want nil", *got.AssessedDifficulty)
			case tt.assessed != nil && (got.AssessedDifficulty == nil || *got.AssessedDifficulty != *tt.assessed):
				t.Errorf("AssessedDifficulty = %v, want %v", got.AssessedDifficulty, *tt.assessed)
			}
		})
	}
}

func TestParseFix(t *testing.T) {
	t.Run("question only", func(t *testing.T) {
		got, err := ParseFix(mustObject(t, `{"revision_status":"revision necessary","revised_question":"Better?","explanation":"clearer"}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.RevisedQuestion != "Better?" || got.RevisedResponses != nil {
			t.Errorf("reply = %+v", got)
		}
	})

	t.Run("responses", func(t *testing.T) {
		got, err := ParseFix(mustObject(t, `{"revised_responses":{"correct":"A","distractors":["B","C","D"]}}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.RevisedResponses == nil || got.RevisedResponses.Correct != "A" || len(got.RevisedResponses.Distractors) != 3 {
			t.Errorf("reply = %+v", got)
		}
	})

	t.Run("empty object", func(t *testing.T) {
		got, err := ParseFix(Object{})
		if err != nil {
			t.Fatal(err)
		}
		if got.RevisedQuestion != "" || got.RevisedResponses != nil {
			t.Errorf("reply = %+v", got)
		}
	})

	for _, tt := range []struct {
		name  string
		reply string
		key   string
	}{
		{"question not a string", `{"revised_question":["a"]}`, "revised_question"},
		{"responses not an object", `{"revised_responses":"A"}`, "revised_responses"},
		{"nested distractors", `{"revised_responses":{"correct":"A","distractors":"B"}}`, "revised_responses.distractors"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFix(mustObject(t, tt.reply))
			var schema *SchemaError
			if !errors.As(err, &schema) || schema.Key != tt.key {
				t.Errorf("error = %v, want SchemaError on %q", err, tt.key)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
