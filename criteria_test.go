package genfix

import (
	"sort"
	"strings"
	"testing"
)

func TestGetSubject(t *testing.T) {
	tests := []struct {
		course string
		want   string
		wantOK bool
	}{
		{"APHUMG", SubjectSocialStudies, true},
		{"APUSH", SubjectSocialStudies, true},
		{"APPSYCH", SubjectSocialSciences, true},
		{"APBIO", SubjectSciences, true},
		{"APLIT", SubjectEnglish, true},
		{"APSTAT", SubjectMath, true},
		{"APCSCP", SubjectComputing, true},
		{"ZZTOP", "", false},
		{"aphumg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.course, func(t *testing.T) {
			got, ok := GetSubject(tt.course)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetSubject(%q) = %q, %v; want %q, %v", tt.course, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGetCriteria(t *testing.T) {
	tests := []struct {
		name         string
		subject      string
		criteriaType string
		wantEmpty    bool
		contains     string
	}{
		{"soc question", SubjectSocialStudies, CriteriaQuestion, false, "ek_codes"},
		{"soc distractor", SubjectSocialStudies, CriteriaDistractor, false, "absolute"},
		{"sci correct", SubjectSciences, CriteriaCorrect, false, "Scientifically accurate"},
		{"subject without criteria", SubjectMath, CriteriaQuestion, true, ""},
		{"unknown type", SubjectSocialStudies, "rubric", true, ""},
		{"unknown subject", "xyz", CriteriaQuestion, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetCriteria(tt.subject, tt.criteriaType)
			if (got == "") != tt.wantEmpty {
				t.Fatalf("GetCriteria() = %q, wantEmpty %v", got, tt.wantEmpty)
			}
			if tt.contains != "" && !strings.Contains(got, tt.contains) {
				t.Errorf("GetCriteria() missing %q", tt.contains)
			}
			if got != strings.TrimSpace(got) {
				t.Error("criteria not trimmed")
			}
		})
	}
}

func TestCoursesSortedAndResolvable(t *testing.T) {
	courses := Courses()
	if !sort.StringsAreSorted(courses) {
		t.Error("Courses() is not sorted")
	}
	for _, c := range courses {
		if _, ok := GetSubject(c); !ok {
			t.Errorf("course %s has no subject", c)
		}
	}
}

func TestTaskVerbs(t *testing.T) {
	tests := []struct {
		d    Difficulty
		verb string
	}{
		{ReadingComprehension, "Identify"},
		{Recall, "Describe"},
		{Analyze, "Analyze"},
		{Evaluate, "Evaluate"},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			found := false
			for _, v := range TaskVerbs(tt.d) {
				if v == tt.verb {
					found = true
				}
			}
			if !found {
				t.Errorf("TaskVerbs(%s) lacks %q", tt.d, tt.verb)
			}
		})
	}
}

func TestFormatExamples(t *testing.T) {
	if got := formatExamples(nil); got != "N/A" {
		t.Errorf("formatExamples(nil) = %q", got)
	}
	got := formatExamples(Examples(SubjectSciences, ExamplesGood))
	if !strings.HasPrefix(got, "Example 1: ") || !strings.Contains(got, "heat of vaporization") {
		t.Errorf("formatExamples() = %q", got)
	}
}
