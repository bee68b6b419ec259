package genfix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FixReply is the decoded reply of a fix prompt. Every field is optional;
// the fixer decides what an incomplete revision means.
type FixReply struct {
	RevisionStatus   string
	RevisedQuestion  string
	RevisedResponses *ResponseSet
	Explanation      string
}

// ResponseSet is a regenerated set of answer options
type ResponseSet struct {
	Correct     string
	Distractors []string
}

// ParseQuestion builds a multiple-choice Question from a generation reply.
// difficulty applies unless the reply names one itself.
func ParseQuestion(obj Object, difficulty Difficulty) (*Question, error) {
	text, err := requireString(obj, "text")
	if err != nil {
		return nil, err
	}
	correct, err := requireString(obj, "correct_answer")
	if err != nil {
		return nil, err
	}
	distractors, err := requireStringList(obj, "distractors")
	if err != nil {
		return nil, err
	}
	explanation, err := optionalString(obj, "explanation")
	if err != nil {
		return nil, err
	}

	question := &Question{
		Text:       text,
		Type:       MCQ,
		Difficulty: difficulty,
		Responses:  make([]Response, 0, len(distractors)+1),
	}
	question.Responses = append(question.Responses, Response{Text: correct, IsCorrect: true, Explanation: explanation})
	for _, d := range distractors {
		question.Responses = append(question.Responses, Response{Text: d})
	}

	if question.EKCode, err = optionalString(obj, "ek_code"); err != nil {
		return nil, err
	}
	if question.LOCode, err = optionalString(obj, "lo_code"); err != nil {
		return nil, err
	}
	if question.SkillCode, err = optionalString(obj, "skill_code"); err != nil {
		return nil, err
	}

	if raw, ok := field(obj, "question_type"); ok {
		s, err := decodeString("question_type", raw)
		if err != nil {
			return nil, err
		}
		qt, err := ParseQuestionType(s)
		if err != nil {
			return nil, &SchemaError{Key: "question_type", Reason: err.Error()}
		}
		question.Type = qt
	}
	if raw, ok := field(obj, "difficulty"); ok {
		d, err := decodeDifficulty(raw)
		if err != nil {
			return nil, err
		}
		question.Difficulty = d
	}

	return question, nil
}

// ParseQC builds a QCResult from a quality check reply
func ParseQC(obj Object) (QCResult, error) {
	var result QCResult

	raw, ok := field(obj, "score")
	if !ok {
		return result, &SchemaError{Key: "score", Reason: "required field missing"}
	}
	score, err := decodeScore(raw)
	if err != nil {
		return result, err
	}
	result.Score = score

	if result.Rationale, err = requireText(obj, "rationale"); err != nil {
		return result, err
	}
	if result.Feedback, err = requireText(obj, "feedback"); err != nil {
		return result, err
	}
	if result.RevisedContent, err = optionalString(obj, "revised_content"); err != nil {
		return result, err
	}
	if raw, ok := field(obj, "difficulty"); ok {
		d, err := decodeDifficulty(raw)
		if err != nil {
			return result, err
		}
		result.AssessedDifficulty = &d
	}

	return result, nil
}

// ParseFix decodes a fix reply, checking the shape of whatever is present
func ParseFix(obj Object) (FixReply, error) {
	var reply FixReply
	var err error

	if reply.RevisionStatus, err = optionalString(obj, "revision_status"); err != nil {
		return reply, err
	}
	if reply.RevisedQuestion, err = optionalString(obj, "revised_question"); err != nil {
		return reply, err
	}
	if reply.Explanation, err = optionalString(obj, "explanation"); err != nil {
		return reply, err
	}

	if raw, ok := field(obj, "revised_responses"); ok {
		var nested Object
		if err := json.Unmarshal(raw, &nested); err != nil {
			return reply, &SchemaError{Key: "revised_responses", Reason: "expected an object"}
		}
		set := &ResponseSet{}
		if set.Correct, err = optionalString(nested, "correct"); err != nil {
			return reply, prefixKey("revised_responses", err)
		}
		if rawDistractors, ok := field(nested, "distractors"); ok {
			if set.Distractors, err = decodeStringList("distractors", rawDistractors); err != nil {
				return reply, prefixKey("revised_responses", err)
			}
		}
		reply.RevisedResponses = set
	}

	return reply, nil
}

// field returns a present, non-null value
func field(obj Object, key string) (json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, false
	}
	return trimmed, true
}

// requireString returns a present, non-empty string
func requireString(obj Object, key string) (string, error) {
	s, err := requireText(obj, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &SchemaError{Key: key, Reason: "must not be empty"}
	}
	return s, nil
}

// requireText returns a present string, which may be empty
func requireText(obj Object, key string) (string, error) {
	raw, ok := field(obj, key)
	if !ok {
		return "", &SchemaError{Key: key, Reason: "required field missing"}
	}
	return decodeString(key, raw)
}

func optionalString(obj Object, key string) (string, error) {
	raw, ok := field(obj, key)
	if !ok {
		return "", nil
	}
	return decodeString(key, raw)
}

func requireStringList(obj Object, key string) ([]string, error) {
	raw, ok := field(obj, key)
	if !ok {
		return nil, &SchemaError{Key: key, Reason: "required field missing"}
	}
	list, err := decodeStringList(key, raw)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &SchemaError{Key: key, Reason: "must not be empty"}
	}
	return list, nil
}

func decodeString(key string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &SchemaError{Key: key, Reason: "expected a string"}
	}
	return strings.TrimSpace(s), nil
}

func decodeStringList(key string, raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &SchemaError{Key: key, Reason: "expected an array of strings"}
	}
	for i, s := range list {
		list[i] = strings.TrimSpace(s)
		if list[i] == "" {
			return nil, &SchemaError{Key: key, Reason: fmt.Sprintf("element %d is empty", i)}
		}
	}
	return list, nil
}

// decodeScore accepts 0 or 1 as a JSON number or as the strings "0" and "1"
func decodeScore(raw json.RawMessage) (int, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &SchemaError{Key: "score", Reason: "invalid value"}
	}
	switch s := v.(type) {
	case float64:
		if s == 0 || s == 1 {
			return int(s), nil
		}
	case string:
		if s == "0" || s == "1" {
			return strconv.Atoi(s)
		}
	}
	return 0, &SchemaError{Key: "score", Reason: fmt.Sprintf("expected 0 or 1, got %s", raw)}
}

// decodeDifficulty accepts a level name, or its value as a number or string
func decodeDifficulty(raw json.RawMessage) (Difficulty, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &SchemaError{Key: "difficulty", Reason: "invalid value"}
	}
	var s string
	switch d := v.(type) {
	case string:
		s = strings.TrimSpace(d)
	case float64:
		s = strconv.FormatFloat(d, 'f', -1, 64)
	default:
		return 0, &SchemaError{Key: "difficulty", Reason: fmt.Sprintf("unrecognized value %s", raw)}
	}
	d, err := ParseDifficulty(s)
	if err != nil {
		return 0, &SchemaError{Key: "difficulty", Reason: err.Error()}
	}
	return d, nil
}

func prefixKey(parent string, err error) error {
	if se, ok := err.(*SchemaError); ok {
		return &SchemaError{Key: parent + "." + se.Key, Reason: se.Reason}
	}
	return err
}
