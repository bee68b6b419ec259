package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"genfix"
)

type runOptions struct {
	course     string
	article    string
	ekCodes    []string
	loCodes    []string
	difficulty string
	count      int
	output     string
	save       bool
	timeout    time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run generation cycles for a course and article",
		Example: `  genfix run --course APHUMG --article article.txt --difficulty ANALYZE
  cat article.txt | genfix run --course APBIO --article - --count 3 --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycles(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.course, "course", "", "course code, e.g. APHUMG (required)")
	flags.StringVar(&opts.article, "article", "", "article file, or - for stdin (required)")
	flags.StringSliceVar(&opts.ekCodes, "ek", nil, "essential knowledge codes")
	flags.StringSliceVar(&opts.loCodes, "lo", nil, "learning objective codes")
	flags.StringVar(&opts.difficulty, "difficulty", genfix.Analyze.String(), "target difficulty (READING_COMPREHENSION, RECALL, ANALYZE, EVALUATE or 0-3)")
	flags.IntVar(&opts.count, "count", 1, "number of cycles to run one after another")
	flags.StringVar(&opts.output, "output", "", "output file for cycle JSON (default: stdout)")
	flags.BoolVar(&opts.save, "save", false, "store cycles in the database and avoid questions already stored")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall timeout")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("article")

	flags.String("provider", "", "LLM provider (openai, anthropic or ollama)")
	flags.String("model", "", "model id")
	flags.Float64("temperature", 0, "sampling temperature")
	flags.String("base-url", "", "override the provider endpoint")
	flags.Int("rpm", 0, "maximum completion calls per minute (0 for no limit)")
	flags.Bool("repair-difficulty", false, "also repair failed difficulty checks")
	for name, key := range map[string]string{
		"provider":          "llm.provider",
		"model":             "llm.model",
		"temperature":       "llm.temperature",
		"base-url":          "llm.base_url",
		"rpm":               "llm.requests_per_minute",
		"repair-difficulty": "cycle.repair_difficulty",
	} {
		mustBind(key, flags.Lookup(name))
	}
	return cmd
}

func runCycles(cmd *cobra.Command, opts *runOptions) error {
	if _, ok := genfix.GetSubject(opts.course); !ok {
		return &genfix.UnknownCourseError{Course: opts.course}
	}
	difficulty, err := genfix.ParseDifficulty(strings.ToUpper(strings.TrimSpace(opts.difficulty)))
	if err != nil {
		return fmt.Errorf("%w: %v", genfix.ErrConfiguration, err)
	}
	article, err := readArticle(opts.article, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.count < 1 {
		opts.count = 1
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	gateway, err := genfix.NewGateway(settings.LLM, logger)
	if err != nil {
		return err
	}

	pool := genfix.NewQuestionPool(settings.Cycle.AvoidHistory)
	var db *genfix.DB
	if opts.save {
		if db, err = openDB(cmd); err != nil {
			return err
		}
		defer db.Close()
		stored, err := db.QuestionTexts(ctx, opts.course, settings.Cycle.AvoidHistory)
		if err != nil {
			return err
		}
		pool.Seed(stored)
	}

	cycleOpts := append([]genfix.CycleOption{genfix.WithLogger(logger)}, settings.CycleOptions()...)
	cycles := make([]*genfix.GenerationCycle, 0, opts.count)
	var runErr error
	for i := 0; i < opts.count; i++ {
		manager, err := genfix.NewCycleManager(genfix.CycleConfig{
			Course:            opts.course,
			Article:           article,
			EKCodes:           opts.ekCodes,
			LOCodes:           opts.loCodes,
			TargetDifficulty:  difficulty,
			ExistingQuestions: pool.Texts(),
			LLM:               settings.LLM,
		}, gateway, cycleOpts...)
		if err != nil {
			return err
		}

		cycle, err := manager.RunCycle(ctx)
		if cycle != nil {
			cycles = append(cycles, cycle)
			pool.Add(cycle.OriginalQuestion)
			pool.Add(cycle.FinalQuestion)
			if db != nil {
				saveCycle(ctx, db, cycle, article)
			}
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if err := writeCycles(cmd.OutOrStdout(), opts.output, cycles); err != nil {
		return err
	}

	complete := 0
	for _, c := range cycles {
		if c.Status == genfix.StatusComplete {
			complete++
		}
	}
	logger.Info("Run finished", zap.Int("cycles", len(cycles)), zap.Int("complete", complete))
	return runErr
}

// saveCycle stores a cycle even when ctx has already expired, so a cycle
// aborted by the run timeout is still recorded
func saveCycle(ctx context.Context, db *genfix.DB, cycle *genfix.GenerationCycle, article string) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := db.SaveCycle(saveCtx, cycle, article); err != nil {
		logger.Error("Failed to save cycle", zap.String("cycle_id", cycle.ID), zap.Error(err))
	}
}

func readArticle(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read article: %w", err)
	}
	article := strings.TrimSpace(string(data))
	if article == "" {
		return "", fmt.Errorf("%w: article is empty", genfix.ErrConfiguration)
	}
	return article, nil
}

func writeCycles(stdout io.Writer, path string, cycles []*genfix.GenerationCycle) error {
	output, err := json.MarshalIndent(cycles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cycles: %w", err)
	}

	if path == "" {
		_, err = fmt.Fprintln(stdout, string(output))
		return err
	}
	if err := os.WriteFile(path, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Info("Cycles saved", zap.String("path", path))
	return nil
}
