package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/viditforsv/quizplayer/internal/model"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const schemaVersion = "1"

// Store is the result journal: finished play-throughs, their answers and
// the outcome of every attempt recording call.
type Store struct {
	db     *sql.DB
	driver Driver
}

// New opens the journal and creates its tables.
func New(driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite, "":
		driver, drvName = DriverSQLite, "sqlite"
		if dsn != ":memory:" && !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps :memory: databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) migrate() error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}
	schema := `
	CREATE TABLE IF NOT EXISTS quiz_sessions (
		session_id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL DEFAULT '',
		quiz_id TEXT NOT NULL,
		quiz_title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		auto_submit BOOLEAN NOT NULL DEFAULT FALSE,
		score INTEGER,
		correct INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		started_at BIGINT NOT NULL,
		submitted_at BIGINT
	);

	CREATE TABLE IF NOT EXISTS session_answers (
		session_id TEXT NOT NULL REFERENCES quiz_sessions(session_id) ON DELETE CASCADE,
		question_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		checked BOOLEAN NOT NULL DEFAULT FALSE,
		hint_used BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		PRIMARY KEY (session_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS attempt_log (
		` + id + `,
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		lesson_id TEXT,
		course_id TEXT,
		time_taken_seconds INTEGER NOT NULL,
		is_correct BOOLEAN NOT NULL,
		hint_used BOOLEAN NOT NULL,
		session_order INTEGER NOT NULL,
		ok BOOLEAN NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempt_log_session ON attempt_log(session_id);

	CREATE TABLE IF NOT EXISTS journal_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetMetadata(context.Background(), metaSchemaVersion, schemaVersion)
}

func unixOrNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}

func fromUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

// SaveSession upserts a play-through and replaces its answers.
func (s *Store) SaveSession(ctx context.Context, rec model.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var score any
	if rec.Score != nil {
		score = *rec.Score
	}
	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO quiz_sessions (session_id, player_id, quiz_id, quiz_title, status, auto_submit, score, correct, total, started_at, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   status = excluded.status, auto_submit = excluded.auto_submit, score = excluded.score,
		   correct = excluded.correct, total = excluded.total, submitted_at = excluded.submitted_at`),
		rec.SessionID, rec.PlayerID, rec.QuizID, rec.QuizTitle, string(rec.Status), rec.AutoSubmit,
		score, rec.Correct, rec.Total, rec.StartedAt.Unix(), unixOrNil(rec.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM session_answers WHERE session_id = ?`), rec.SessionID); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	for _, a := range rec.Answers {
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO session_answers (session_id, question_id, position, answer, checked, hint_used, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			rec.SessionID, a.QuestionID, a.Position, a.Answer, a.Checked, a.HintUsed, string(a.Status),
		)
		if err != nil {
			return fmt.Errorf("insert answer %s: %w", a.QuestionID, err)
		}
	}
	return tx.Commit()
}

const sessionColumns = `session_id, player_id, quiz_id, quiz_title, status, auto_submit, score, correct, total, started_at, submitted_at`

func scanSession(row interface{ Scan(...any) error }) (model.SessionRecord, error) {
	var (
		rec       model.SessionRecord
		status    string
		score     sql.NullInt64
		started   int64
		submitted sql.NullInt64
	)
	err := row.Scan(&rec.SessionID, &rec.PlayerID, &rec.QuizID, &rec.QuizTitle, &status,
		&rec.AutoSubmit, &score, &rec.Correct, &rec.Total, &started, &submitted)
	if err != nil {
		return rec, err
	}
	rec.Status = model.SessionStatus(status)
	if score.Valid {
		v := int(score.Int64)
		rec.Score = &v
	}
	rec.StartedAt = time.Unix(started, 0).UTC()
	rec.SubmittedAt = fromUnix(submitted)
	return rec, nil
}

// GetSession returns a journaled play-through with its answers, or
// sql.ErrNoRows.
func (s *Store) GetSession(ctx context.Context, sessionID string) (model.SessionRecord, error) {
	rec, err := scanSession(s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+sessionColumns+` FROM quiz_sessions WHERE session_id = ?`), sessionID))
	if err != nil {
		return rec, err
	}
	rec.Answers, err = s.GetAnswers(ctx, sessionID)
	return rec, err
}

// ListSessions returns journaled play-throughs, newest first. An empty
// quizID lists all quizzes.
func (s *Store) ListSessions(ctx context.Context, quizID string) ([]model.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM quiz_sessions`
	var args []any
	if quizID != "" {
		query += ` WHERE quiz_id = ?`
		args = append(args, quizID)
	}
	query += ` ORDER BY started_at DESC, session_id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAnswers returns the answers of a play-through in quiz order.
func (s *Store) GetAnswers(ctx context.Context, sessionID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT question_id, position, answer, checked, hint_used, status
		 FROM session_answers WHERE session_id = ? ORDER BY position`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AnswerRecord
	for rows.Next() {
		var a model.AnswerRecord
		var status string
		if err := rows.Scan(&a.QuestionID, &a.Position, &a.Answer, &a.Checked, &a.HintUsed, &status); err != nil {
			return nil, err
		}
		a.Status = model.ReviewStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LogAttempt journals the outcome of one attempt recording call. A nil
// callErr means the backend accepted it.
func (s *Store) LogAttempt(ctx context.Context, a model.Attempt, callErr error) error {
	var msg string
	if callErr != nil {
		msg = callErr.Error()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO attempt_log (session_id, question_id, lesson_id, course_id, time_taken_seconds, is_correct, hint_used, session_order, ok, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.SessionID, a.QuestionID, a.LessonID, a.CourseID, a.TimeTakenSeconds, a.IsCorrect,
		a.HintUsed, a.SessionOrder, callErr == nil, msg, time.Now().Unix(),
	)
	return err
}

// ListAttempts returns logged attempts in insertion order. An empty
// sessionID lists all of them.
func (s *Store) ListAttempts(ctx context.Context, sessionID string) ([]model.AttemptLog, error) {
	query := `SELECT id, session_id, question_id, lesson_id, course_id, time_taken_seconds, is_correct, hint_used, session_order, ok, error, created_at
		FROM attempt_log`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AttemptLog
	for rows.Next() {
		var (
			l       model.AttemptLog
			lesson  sql.NullString
			course  sql.NullString
			created int64
		)
		if err := rows.Scan(&l.ID, &l.Attempt.SessionID, &l.Attempt.QuestionID, &lesson, &course,
			&l.Attempt.TimeTakenSeconds, &l.Attempt.IsCorrect, &l.Attempt.HintUsed,
			&l.Attempt.SessionOrder, &l.OK, &l.Error, &created); err != nil {
			return nil, err
		}
		if lesson.Valid {
			l.Attempt.LessonID = &lesson.String
		}
		if course.Valid {
			l.Attempt.CourseID = &course.String
		}
		l.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}

// SessionCount returns the number of journaled play-throughs.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_sessions`).Scan(&n)
	return n, err
}
