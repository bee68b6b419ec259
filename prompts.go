package genfix

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// TemplateID names a prompt template
type TemplateID string

const (
	TemplateGenerateMCQ   TemplateID = "generate-mcq"
	TemplateQCClarity     TemplateID = "qc-clarity"
	TemplateQCFormat      TemplateID = "qc-format"
	TemplateQCContent     TemplateID = "qc-content"
	TemplateQCDifficulty  TemplateID = "qc-difficulty"
	TemplateFixClarity    TemplateID = "fix-clarity"
	TemplateFixResponses  TemplateID = "fix-responses"
	TemplateFixDifficulty TemplateID = "fix-difficulty"
)

const systemInstruction = "You are an expert in AP assessment design. Always respond in valid JSON format."

var templateSources = map[TemplateID]string{
	TemplateGenerateMCQ: `You are a psychometrician turned high school teacher. Your task is building AP level learning assessments.

The assessment is to test whether students read this article: {{.article}}

Requirements:
- Write exactly one multiple choice question with one correct answer and three distractors
- Use task verbs from Bloom's taxonomy, such as: {{.task_verbs}}
- Connect article information to student understanding
- Follow these criteria: {{.criteria}}
- Distractors must follow these criteria: {{.distractor_criteria}}
- Specify which ek_code and lo_code it addresses from: {{.ek_codes}} and {{.lo_codes}}
- Target difficulty level: {{.difficulty}}
- Do not refer to the article in the question
{{.avoid}}
Examples of well-formed questions:
{{.examples}}

Output your response in this exact JSON format:
{
    "text": "question text",
    "correct_answer": "correct answer text",
    "distractors": ["distractor1", "distractor2", "distractor3"],
    "explanation": "why this is correct",
    "ek_code": "relevant code",
    "lo_code": "relevant code"
}`,

	TemplateQCClarity: `As an AP assessment expert, evaluate this question's clarity:

Question: {{.question}}
Responses:
{{.responses}}

Score 1 if ALL conditions are met:
- Has single, clear interpretation
- Provides sufficient context
- Uses precise language
- Avoids compound questions

Score 0 if ANY condition is not met.

Format response as JSON:
{
    "score": 0 or 1,
    "rationale": "2-line explanation",
    "feedback": "2-line actionable feedback"
}`,

	TemplateQCFormat: `As an AP assessment expert, evaluate this question's format:

Question: {{.question}}
Responses:
{{.responses}}

Score 1 if ALL conditions are met:
- Has 4-5 answer options
- All formulas properly formatted
- All referenced materials present
- Consistent formatting across options

Score 0 if ANY condition is not met.

Format response as JSON:
{
    "score": 0 or 1,
    "rationale": "2-line explanation",
    "feedback": "2-line actionable feedback"
}`,

	TemplateQCContent: `As an AP assessment expert, evaluate this question's content:

Question: {{.question}}
Responses:
{{.responses}}
Article: {{.article}}
EK Code: {{.ek_code}}
LO Code: {{.lo_code}}

Score 1 if ALL conditions are met:
- Answerable through critical thinking and article content
- Uses correct terminology
- Aligns with EK/LO codes
- Culturally sensitive and appropriate
- Not redundant with other questions

Score 0 if ANY condition is not met.

Format response as JSON:
{
    "score": 0 or 1,
    "rationale": "2-line explanation",
    "feedback": "2-line actionable feedback"
}`,

	TemplateQCDifficulty: `As an AP assessment expert, evaluate this question's difficulty:

Question: {{.question}}
Responses:
{{.responses}}

Assign difficulty level:
0: Reading comprehension (explicit in text)
1: Recall (Bloom's Easy)
2: Analysis (Bloom's Moderate)
3: Evaluation (Bloom's Difficult)

Score 1 if difficulty > 0, 0 if difficulty = 0

Format response as JSON:
{
    "score": 0 or 1,
    "difficulty": "0-3",
    "rationale": "2-line explanation",
    "feedback": "2-line actionable feedback"
}`,

	TemplateFixClarity: `As an AP assessment expert, improve this question's clarity:

Original Question: {{.question}}
QC Feedback: {{.feedback}}

Requirements:
- Ensure single, clear interpretation
- Provide necessary context
- Use precise language
- Avoid compound questions
- Maintain original intent

Format response as JSON:
{
    "revision_status": "revision necessary/no revision necessary",
    "revised_question": "improved question",
    "explanation": "what was changed and why"
}`,

	TemplateFixResponses: `As an AP assessment expert, improve these response options:

Question: {{.question}}
Original Responses:
{{.responses}}
QC Feedback: {{.feedback}}

Requirements:
- Maintain similar length and structure
- Use consistent terminology
- Ensure one clearly correct answer
- Make distractors plausible but clearly incorrect
- Avoid absolute terms such as: {{.absolutes}}

Format response as JSON:
{
    "revision_status": "revision necessary/no revision necessary",
    "revised_responses": {
        "correct": "improved correct answer",
        "distractors": [
            "improved distractor 1",
            "improved distractor 2",
            "improved distractor 3"
        ]
    },
    "explanation": "what was changed and why"
}`,

	TemplateFixDifficulty: `As an AP assessment expert, adjust this question's difficulty:

Question: {{.question}}
Responses:
{{.responses}}
Current Difficulty: {{.current_difficulty}}
Target Difficulty: {{.target_difficulty}}
QC Feedback: {{.feedback}}

Requirements:
- Maintain content alignment
- Use appropriate Bloom's taxonomy verbs: {{.task_verbs}}
- Adjust complexity without changing topic
- Keep question answerable

Format response as JSON:
{
    "revision_status": "revision necessary/no revision necessary",
    "revised_question": "adjusted question",
    "revised_responses": {
        "correct": "adjusted correct answer",
        "distractors": [
            "adjusted distractor 1",
            "adjusted distractor 2",
            "adjusted distractor 3"
        ]
    },
    "explanation": "how difficulty was adjusted"
}`,
}

type promptTemplate struct {
	tmpl *template.Template
	vars []string
}

var (
	templateVarPattern = regexp.MustCompile(`\{\{\s*\.(\w+)\s*\}\}`)
	promptTemplates    = parseTemplates()
)

func parseTemplates() map[TemplateID]promptTemplate {
	parsed := make(map[TemplateID]promptTemplate, len(templateSources))
	for id, src := range templateSources {
		var vars []string
		seen := make(map[string]bool)
		for _, m := range templateVarPattern.FindAllStringSubmatch(src, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				vars = append(vars, m[1])
			}
		}
		parsed[id] = promptTemplate{
			tmpl: template.Must(template.New(string(id)).Option("missingkey=error").Parse(src)),
			vars: vars,
		}
	}
	return parsed
}

// TemplateVariables lists the variables a template requires, in order of first use
func TemplateVariables(id TemplateID) ([]string, error) {
	pt, ok := promptTemplates[id]
	if !ok {
		return nil, &TemplateNotFoundError{ID: id}
	}
	return append([]string(nil), pt.vars...), nil
}

// RenderPrompt substitutes vars into the named template. Every variable the
// template references must be present in vars, even if its value is empty.
func RenderPrompt(id TemplateID, vars map[string]string) (string, error) {
	pt, ok := promptTemplates[id]
	if !ok {
		return "", &TemplateNotFoundError{ID: id}
	}
	for _, name := range pt.vars {
		if _, ok := vars[name]; !ok {
			return "", &MissingVariableError{Template: id, Name: name}
		}
	}

	var sb strings.Builder
	if err := pt.tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", id, err)
	}
	return sb.String(), nil
}

// formatResponses lists responses one per line; the correct one is starred
func formatResponses(q *Question) string {
	var sb strings.Builder
	for i, r := range q.Responses {
		marker := " "
		if r.IsCorrect {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s%d. %s", marker, i+1, r.Text))
		if r.Explanation != "" {
			sb.WriteString(fmt.Sprintf(" (Explanation: %s)", r.Explanation))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
