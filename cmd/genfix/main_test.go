package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"genfix"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReadArticle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.txt")
	if err := os.WriteFile(path, []byte("\n  Edge cities grew.  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readArticle(path, nil)
	if err != nil || got != "Edge cities grew." {
		t.Errorf("readArticle(file) = %q, %v", got, err)
	}
	got, err = readArticle("-", strings.NewReader("from stdin"))
	if err != nil || got != "from stdin" {
		t.Errorf("readArticle(-) = %q, %v", got, err)
	}
	if _, err := readArticle("-", strings.NewReader("   ")); !errors.Is(err, genfix.ErrConfiguration) {
		t.Errorf("empty article error = %v", err)
	}
	if _, err := readArticle(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("missing file accepted")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestPrintCycle(t *testing.T) {
	cycle := &genfix.GenerationCycle{
		ID:      "c1",
		Course:  "APHUMG",
		Subject: "soc",
		Status:  genfix.StatusComplete,
		FinalQuestion: &genfix.Question{
			Text: "Why did edge cities grow?",
			Responses: []genfix.Response{
				{Text: "Highways", IsCorrect: true, Explanation: "access"},
				{Text: "Farming"},
			},
			Difficulty: genfix.Analyze,
		},
		QCResults: []genfix.QCResult{
			{Check: genfix.CheckClarity, Score: 0, Feedback: "vague"},
			{Check: genfix.CheckFormat, Score: 1},
		},
	}

	var out bytes.Buffer
	printCycle(&out, cycle)
	for _, want := range []string{"* A) Highways", "  B) Farming", "Explanation: access", "Difficulty: ANALYZE", "FAIL  vague"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestCoursesCommand(t *testing.T) {
	out, err := execute(t, "courses")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "APHUMG") {
		t.Errorf("courses output:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	db, err := genfix.OpenDB(genfix.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := db.CreateTables(ctx); err != nil {
		t.Fatal(err)
	}
	cycle := &genfix.GenerationCycle{
		ID:            "stored-1",
		Course:        "APUSH",
		Subject:       "soc",
		Status:        genfix.StatusFailed,
		FailureReason: "no fix applied for failed checks: content",
		OriginalQuestion: &genfix.Question{
			Text:      "What ended Reconstruction?",
			Responses: []genfix.Response{{Text: "The Compromise of 1877", IsCorrect: true}, {Text: "The Civil War"}},
		},
		QCResults: []genfix.QCResult{{Check: genfix.CheckContent, Score: 0, Rationale: "content"}},
		StartedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := db.SaveCycle(ctx, cycle, "article"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err := execute(t, "--db", dsn, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"stored-1", "APUSH", "failed", "content", "What ended Reconstruction?"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "--db", dsn, "show", "stored-1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Failure: no fix applied") || !strings.Contains(out, "* A) The Compromise of 1877") {
		t.Errorf("show output:\n%s", out)
	}

	if _, err := execute(t, "--db", dsn, "show", "missing"); !errors.Is(err, genfix.ErrCycleNotFound) {
		t.Errorf("show missing error = %v", err)
	}
}
