package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"genfix"
)

// ValueStore is the part of Client the exporter needs
type ValueStore interface {
	Read(ctx context.Context, req ReadRequest) (*ReadResponse, error)
	Write(ctx context.Context, req WriteRequest) (*WriteResponse, error)
}

// Header is the first row written to an empty sheet
var Header = []string{
	"Cycle ID", "Course", "Subject", "Status", "Question", "Correct Answer",
	"Distractor 1", "Distractor 2", "Distractor 3", "Distractor 4", "Difficulty",
	"EK Code", "LO Code", "Failed Checks", "Similar To", "Failure Reason", "Finished At",
}

// distractorColumns is the number of distractor cells per row
const distractorColumns = 4

// Exporter appends finished cycles below whatever a sheet already holds
type Exporter struct {
	store         ValueStore
	spreadsheetID string
	sheetName     string
	logger        *zap.Logger
}

// NewExporter creates an exporter writing to one sheet of a spreadsheet
func NewExporter(store ValueStore, spreadsheetID, sheetName string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:         store,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}
}

// Append writes one row per cycle after the last used row. Column A decides
// which rows are used; an empty sheet gets the header first.
func (e *Exporter) Append(ctx context.Context, cycles []*genfix.GenerationCycle) (*WriteResponse, error) {
	if len(cycles) == 0 {
		return nil, nil
	}

	existing, err := e.store.Read(ctx, ReadRequest{
		SpreadsheetID:  e.spreadsheetID,
		Range:          Range{SheetName: e.sheetName, StartCell: "A1", EndCell: "A"},
		MajorDimension: Rows,
	})
	if err != nil {
		return nil, err
	}

	for _, c := range cycles {
		if n := DroppedDistractors(c); n > 0 {
			e.logger.Warn("Distractors do not fit the sheet and are left out",
				zap.String("cycle_id", c.ID),
				zap.Int("dropped", n),
			)
		}
	}

	rows := CycleRows(cycles)
	used := len(existing.Values)
	if used == 0 {
		rows = append([][]string{Header}, rows...)
	}

	resp, err := e.store.Write(ctx, WriteRequest{
		SpreadsheetID:  e.spreadsheetID,
		Range:          Range{SheetName: e.sheetName, StartCell: fmt.Sprintf("A%d", used+1)},
		Values:         rows,
		MajorDimension: Rows,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Exported cycles",
		zap.Int("cycles", len(cycles)),
		zap.String("range", resp.UpdatedRange),
		zap.Int64("cells", resp.UpdatedCells),
	)
	return resp, nil
}

// CycleRows flattens cycles into sheet rows matching Header. The final
// question is preferred; a failed cycle shows its original question.
func CycleRows(cycles []*genfix.GenerationCycle) [][]string {
	return lo.Map(cycles, func(c *genfix.GenerationCycle, _ int) []string {
		q := exported(c)

		row := []string{c.ID, c.Course, c.Subject, string(c.Status)}
		if q == nil {
			row = append(row, make([]string, 5+distractorColumns)...)
		} else {
			correct, _ := q.CorrectResponse()
			distractors := q.Distractors()
			row = append(row, q.Text, correct.Text)
			for i := 0; i < distractorColumns; i++ {
				if i < len(distractors) {
					row = append(row, distractors[i].Text)
				} else {
					row = append(row, "")
				}
			}
			row = append(row, q.Difficulty.String(), q.EKCode, q.LOCode)
		}

		failed := lo.Map(c.FailedChecks(), func(r genfix.QCResult, _ int) string { return string(r.Check) })
		finished := ""
		if !c.FinishedAt.IsZero() {
			finished = c.FinishedAt.UTC().Format(time.RFC3339)
		}
		return append(row,
			strings.Join(failed, ", "),
			strings.Join(c.SimilarTo, " | "),
			c.FailureReason,
			finished,
		)
	})
}

// DroppedDistractors returns how many of a cycle's distractors have no column
func DroppedDistractors(c *genfix.GenerationCycle) int {
	q := exported(c)
	if q == nil {
		return 0
	}
	return max(0, len(q.Distractors())-distractorColumns)
}

func exported(c *genfix.GenerationCycle) *genfix.Question {
	if c.FinalQuestion != nil {
		return c.FinalQuestion
	}
	return c.OriginalQuestion
}
