package genfix

import (
	"fmt"
	"sort"
	"strings"
)

// Subject area codes
const (
	SubjectSocialStudies  = "soc"
	SubjectSocialSciences = "ssc"
	SubjectSciences       = "sci"
	SubjectEnglish        = "eng"
	SubjectMath           = "mat"
	SubjectComputing      = "csc"
)

// Criteria types
const (
	CriteriaQuestion   = "question"
	CriteriaCorrect    = "correct"
	CriteriaDistractor = "distractor"
)

var courseSubjects = map[string][]string{
	SubjectSocialStudies:  {"APCGOV", "APAPUSGOV", "APHUMG", "APUSH", "APWORLD", "APEURO"},
	SubjectSocialSciences: {"APMACRO", "APMICRO", "APPSYCH"},
	SubjectSciences:       {"APBIO", "APCHEM", "APENVS", "APPHY1", "APPHY2", "APPHYCEM", "APPHYCMEC"},
	SubjectEnglish:        {"APLANG", "APLIT"},
	SubjectMath:           {"APCALCAB", "APCALCBC", "APPRECALC", "APSTAT"},
	SubjectComputing:      {"APCSCA", "APCSCP"},
}

var subjectCriteria = map[string]map[string]string{
	SubjectSocialStudies: {
		CriteriaQuestion: `
- Relates to one or more ek_codes
- Contains task verbs from LOs if present
- Can be answered from article or critical thinking
- Can be answered in 1-2 short sentences
- Connects concepts to broader themes
- Provides all needed information
- Has single clear interpretation
- Makes only one connection (no multiple 'and's)`,
		CriteriaCorrect: `
- Factually correct
- One sentence up to 20 words
- Responds to all question parts
- Uses task verb correctly`,
		CriteriaDistractor: `
- Avoids absolute terms
- Similar length to correct answer
- Same structure as correct answer
- Responds to all question parts
- Related to time period/topic
- Clearly incorrect but plausible`,
	},
	SubjectSciences: {
		CriteriaQuestion: `
- Relates to specific scientific concepts
- Uses precise scientific terminology
- Can be answered through analysis or application
- Requires understanding of scientific principles
- Connects to experimental or observational evidence
- Provides necessary context and data`,
		CriteriaCorrect: `
- Scientifically accurate
- One sentence up to 20 words
- Uses precise terminology
- Shows clear reasoning`,
		CriteriaDistractor: `
- Based on common misconceptions
- Uses correct terminology
- Plausible but incorrect
- Similar complexity to correct answer
- Related to core concepts`,
	},
}

// GetCriteria returns the criteria block for a subject, or "" when either key is unknown
func GetCriteria(subject, criteriaType string) string {
	return strings.TrimSpace(subjectCriteria[subject][criteriaType])
}

// GetSubject returns the subject area a course belongs to
func GetSubject(course string) (string, bool) {
	for subject, courses := range courseSubjects {
		for _, c := range courses {
			if c == course {
				return subject, true
			}
		}
	}
	return "", false
}

// Courses returns every known course code, sorted
func Courses() []string {
	var courses []string
	for _, cs := range courseSubjects {
		courses = append(courses, cs...)
	}
	sort.Strings(courses)
	return courses
}

var (
	bloomEasy = []string{
		"Define", "Identify", "List", "State", "Describe", "Explain",
		"Summarize", "Interpret", "Illustrate", "Classify", "Compare",
		"Contrast", "Categorize", "Estimate", "Predict", "Infer",
	}
	bloomModerate = []string{
		"Analyze", "Calculate", "Demonstrate", "Determine", "Develop",
		"Differentiate", "Examine", "Formulate", "Investigate", "Justify",
		"Organize", "Relate", "Solve", "Support", "Use",
	}
	bloomDifficult = []string{
		"Appraise", "Apply", "Argue", "Assess", "Compose", "Conclude",
		"Construct", "Create", "Critique", "Design", "Evaluate", "Generate",
		"Hypothesize", "Invent", "Judge", "Plan", "Produce", "Propose",
		"Recommend", "Revise", "Synthesize", "Validate",
	}
)

// TaskVerbs returns the Bloom's taxonomy task verbs matching a difficulty
func TaskVerbs(d Difficulty) []string {
	switch {
	case d >= Evaluate:
		return bloomDifficult
	case d == Analyze:
		return bloomModerate
	default:
		return bloomEasy
	}
}

var absolutes = []string{
	"all", "always", "complete", "completely", "every", "exclusively",
	"immediate", "immediately", "irrelevant", "never", "none", "purely",
	"sole", "solely", "uniform", "universal",
}

var patternPhrases = []string{
	"effects were limited", "impact was limited", "largely irrelevant",
	"minimal impact", "no significant impact", "passive victims",
	"perfectly equal", "universal",
}

// Absolutes returns absolute terms distractors should avoid
func Absolutes() []string {
	return absolutes
}

// PatternPhrases returns stock phrases that make distractors easy to eliminate
func PatternPhrases() []string {
	return patternPhrases
}

// Example is a reference question used to steer generation
type Example struct {
	Question    string
	Correct     string
	Distractors []string
	Note        string
}

const (
	ExamplesGood = "good"
	ExamplesBad  = "bad"
)

var subjectExamples = map[string]map[string][]Example{
	SubjectSocialStudies: {
		ExamplesGood: {
			{
				Question: "Which of the following characteristics is currently shared by Switzerland, Canada, and New Zealand?",
				Correct:  "Low population-growth rates",
				Distractors: []string{
					"Primate urban systems",
					"High infant-mortality rates",
					"Membership in the European Union (EU)",
					"More than ten percent of the population involved in sheep farming",
				},
				Note: "Tests understanding of demographic patterns without using absolute terms.",
			},
			{
				Question: "Since the 1970s changes in social roles have affected population through which of the following?",
				Correct:  "Decreased total fertility rates",
				Distractors: []string{
					"Increased total fertility rates",
					"Increased death rates",
					"Decreased death rates",
					"Increased infant mortality rates",
				},
				Note: "Tests understanding of demographic change with specific timeframe and clear causation.",
			},
		},
		ExamplesBad: {
			{
				Question: "In what way did Neo-Confucianism emerge as a response to Buddhism during the Song Dynasty?",
				Correct:  "It integrated some Buddhist concepts while reinforcing Confucian values.",
				Distractors: []string{
					"It completely rejected all Buddhist teachings and practices.",
					"It promoted atheism as a new belief system among scholars.",
					"It led to widespread persecution of Buddhist monks and temples.",
				},
				Note: "Uses absolute terms like 'completely' and 'all' in distractors.",
			},
		},
	},
	SubjectSciences: {
		ExamplesGood: {
			{
				Question: "Which best explains how water properties contribute to sweating as a cooling mechanism?",
				Correct:  "The high heat of vaporization allows heat removal through phase change.",
				Distractors: []string{
					"The high specific heat capacity allows excess heat absorption.",
					"The high surface tension aids water leaving the body.",
					"The high melting temperature enables solid to liquid transition.",
				},
				Note: "Tests understanding of water properties and phase changes without absolute terms.",
			},
		},
		ExamplesBad: {
			{
				Question:    "What is the average atomic mass of chlorine given isotopic masses and abundances?",
				Correct:     "35.438 amu",
				Distractors: []string{"34.968 amu", "36.000 amu", "37.500 amu"},
				Note:        "Missing necessary data (isotopic masses and abundances) to solve.",
			},
		},
	},
}

// Examples returns reference questions for a subject; kind is "good" or "bad"
func Examples(subject, kind string) []Example {
	return subjectExamples[subject][kind]
}

func formatExamples(examples []Example) string {
	if len(examples) == 0 {
		return "N/A"
	}
	var sb strings.Builder
	for i, ex := range examples {
		sb.WriteString(fmt.Sprintf("Example %d: %s\n", i+1, ex.Question))
		sb.WriteString(fmt.Sprintf("  Correct: %s\n", ex.Correct))
		sb.WriteString(fmt.Sprintf("  Distractors: %s\n", strings.Join(ex.Distractors, "; ")))
		sb.WriteString(fmt.Sprintf("  Why: %s\n", ex.Note))
	}
	return strings.TrimRight(sb.String(), "\n")
}
