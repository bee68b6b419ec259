package genfix

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrCycleNotFound is returned when no stored cycle has the requested id
var ErrCycleNotFound = errors.New("cycle not found")

// DB stores finished generation cycles
type DB struct {
	db     *sql.DB
	driver string
}

// CycleRecord is a stored cycle together with the article it was generated from
type CycleRecord struct {
	*GenerationCycle
	Article string `json:"article"`
}

// OpenDB opens a new database connection
func OpenDB(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	case "":
		driver = DriverSQLite
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", ErrConfiguration, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if driver == DriverSQLite {
		// a single writer avoids "database is locked" under the web server
		db.SetMaxOpenConns(1)
	}

	return &DB{db: db, driver: driver}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			course TEXT NOT NULL,
			subject TEXT NOT NULL,
			status TEXT NOT NULL,
			article TEXT NOT NULL DEFAULT '',
			original_question TEXT,
			final_question TEXT,
			similar_to TEXT NOT NULL DEFAULT '[]',
			failure_reason TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS qc_results (
			cycle_id TEXT NOT NULL REFERENCES cycles(id),
			position INTEGER NOT NULL,
			check_kind TEXT NOT NULL,
			score INTEGER NOT NULL,
			rationale TEXT NOT NULL,
			feedback TEXT NOT NULL,
			revised_content TEXT NOT NULL DEFAULT '',
			assessed_difficulty INTEGER,
			PRIMARY KEY (cycle_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS cycles_course_started ON cycles (course, started_at)`,
	}

	for _, query := range queries {
		if _, err := db.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SaveCycle stores a cycle and its QC results, replacing any earlier copy
func (db *DB) SaveCycle(ctx context.Context, cycle *GenerationCycle, article string) error {
	original, err := marshalQuestion(cycle.OriginalQuestion)
	if err != nil {
		return err
	}
	final, err := marshalQuestion(cycle.FinalQuestion)
	if err != nil {
		return err
	}
	similar, err := json.Marshal(nonNil(cycle.SimilarTo))
	if err != nil {
		return fmt.Errorf("failed to marshal similar questions: %w", err)
	}
	var finishedAt sql.NullTime
	if !cycle.FinishedAt.IsZero() {
		finishedAt = sql.NullTime{Time: cycle.FinishedAt, Valid: true}
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind("DELETE FROM qc_results WHERE cycle_id = ?"), cycle.ID); err != nil {
		return fmt.Errorf("failed to clear qc results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, db.rebind("DELETE FROM cycles WHERE id = ?"), cycle.ID); err != nil {
		return fmt.Errorf("failed to clear cycle: %w", err)
	}

	_, err = tx.ExecContext(ctx, db.rebind(
		`INSERT INTO cycles (id, course, subject, status, article, original_question, final_question, similar_to, failure_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		cycle.ID, cycle.Course, cycle.Subject, string(cycle.Status), article,
		original, final, string(similar), cycle.FailureReason, cycle.StartedAt, finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	insert := db.rebind(`INSERT INTO qc_results (cycle_id, position, check_kind, score, rationale, feedback, revised_content, assessed_difficulty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, r := range cycle.QCResults {
		var assessed sql.NullInt64
		if r.AssessedDifficulty != nil {
			assessed = sql.NullInt64{Int64: int64(*r.AssessedDifficulty), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			cycle.ID, i, string(r.Check), r.Score, r.Rationale, r.Feedback, r.RevisedContent, assessed,
		); err != nil {
			return fmt.Errorf("failed to create qc result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

const cycleColumns = "id, course, subject, status, article, original_question, final_question, similar_to, failure_reason, started_at, finished_at"

// GetCycle retrieves a cycle by ID
func (db *DB) GetCycle(ctx context.Context, id string) (*CycleRecord, error) {
	row := db.db.QueryRowContext(ctx, db.rebind("SELECT "+cycleColumns+" FROM cycles WHERE id = ?"), id)
	record, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	if record.QCResults, err = db.qcResults(ctx, id); err != nil {
		return nil, err
	}
	return record, nil
}

// ListCycles retrieves the most recent cycles first, optionally limited by count
func (db *DB) ListCycles(ctx context.Context, limit int) ([]*CycleRecord, error) {
	query := "SELECT " + cycleColumns + " FROM cycles ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var records []*CycleRecord
	for rows.Next() {
		record, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	for _, record := range records {
		if record.QCResults, err = db.qcResults(ctx, record.ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// QuestionTexts returns the final question texts of a course's completed
// cycles, newest first. They seed the "avoid" list of later cycles.
func (db *DB) QuestionTexts(ctx context.Context, course string, limit int) ([]string, error) {
	query := db.rebind("SELECT final_question FROM cycles WHERE course = ? AND status = ? AND final_question IS NOT NULL ORDER BY started_at DESC")
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.QueryContext(ctx, query, course, string(StatusComplete))
	if err != nil {
		return nil, fmt.Errorf("failed to get question texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q, err := unmarshalQuestion(sql.NullString{String: raw, Valid: true})
		if err != nil {
			return nil, err
		}
		texts = append(texts, q.Text)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return texts, nil
}

func (db *DB) qcResults(ctx context.Context, cycleID string) ([]QCResult, error) {
	rows, err := db.db.QueryContext(ctx, db.rebind(
		"SELECT check_kind, score, rationale, feedback, revised_content, assessed_difficulty FROM qc_results WHERE cycle_id = ? ORDER BY position"),
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get qc results: %w", err)
	}
	defer rows.Close()

	var results []QCResult
	for rows.Next() {
		var (
			r        QCResult
			kind     string
			assessed sql.NullInt64
		)
		if err := rows.Scan(&kind, &r.Score, &r.Rationale, &r.Feedback, &r.RevisedContent, &assessed); err != nil {
			return nil, fmt.Errorf("failed to scan qc result: %w", err)
		}
		r.Check = CheckKind(kind)
		if assessed.Valid {
			d := Difficulty(assessed.Int64)
			r.AssessedDifficulty = &d
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating qc results: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*CycleRecord, error) {
	var (
		cycle      GenerationCycle
		status     string
		article    string
		original   sql.NullString
		final      sql.NullString
		similar    string
		finishedAt sql.NullTime
	)
	err := row.Scan(&cycle.ID, &cycle.Course, &cycle.Subject, &status, &article,
		&original, &final, &similar, &cycle.FailureReason, &cycle.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	cycle.Status = CycleStatus(status)
	if finishedAt.Valid {
		cycle.FinishedAt = finishedAt.Time
	}
	if cycle.OriginalQuestion, err = unmarshalQuestion(original); err != nil {
		return nil, err
	}
	if cycle.FinalQuestion, err = unmarshalQuestion(final); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(similar), &cycle.SimilarTo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal similar questions: %w", err)
	}
	return &CycleRecord{GenerationCycle: &cycle, Article: article}, nil
}

// rebind rewrites ? placeholders into the driver's style
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func marshalQuestion(q *Question) (sql.NullString, error) {
	if q == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal question: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalQuestion(s sql.NullString) (*Question, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var q Question
	if err := json.Unmarshal([]byte(s.String), &q); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question: %w", err)
	}
	return &q, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

