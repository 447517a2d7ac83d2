/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface the engine consumes
  (salary.LessonSource, salary.SettingsStore, salary.SalaryStore, the
  four obligation collaborator sources) plus the record plumbing the API
  needs (teachers, students, lessons, facts). In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  teachers:            Teacher roster with current hourly rate
  students:            Group rosters with active status
  lessons:             Lesson records with hourly-rate snapshots
  attendance:          Per-lesson per-student attendance marks
  feedback:            Per-lesson per-student feedback entries
  lesson_messages:     Voice/text message facts tagged by lesson
  obligation_settings: The singleton percent configuration
  salaries:            One row per (teacher, year, month)
  salary_lines:        Per-lesson breakdown, written with its parent

UNIQUENESS:
  idx_salaries_teacher_month enforces the one-record-per-teacher-month
  invariant at the database level; the generation job's transactional
  existence check enforces it at the semantic level (refuse paid,
  replace pending). A unique-index race between concurrent writers
  surfaces as salary.ErrConcurrentModification.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/salaries.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - salary/store.go: Interface definitions
  - salary/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lingua/salary-engine/salary"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hourly_rate TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_group ON students(group_id);

	CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		hourly_rate TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);

	-- Hot path: eligible-lesson fetch for one teacher-month
	CREATE INDEX IF NOT EXISTS idx_lessons_teacher_scheduled
		ON lessons(teacher_id, scheduled_at);
	CREATE INDEX IF NOT EXISTS idx_lessons_status ON lessons(status);

	CREATE TABLE IF NOT EXISTS attendance (
		lesson_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		present BOOLEAN NOT NULL DEFAULT TRUE,
		marked_at TEXT NOT NULL,
		PRIMARY KEY (lesson_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_lesson ON feedback(lesson_id);

	CREATE TABLE IF NOT EXISTS lesson_messages (
		lesson_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		PRIMARY KEY (lesson_id, kind)
	);

	-- Singleton: exactly one row with id = 1
	CREATE TABLE IF NOT EXISTS obligation_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		absence_percent INTEGER NOT NULL,
		feedback_percent INTEGER NOT NULL,
		voice_percent INTEGER NOT NULL,
		text_percent INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS salaries (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		lessons_count INTEGER NOT NULL,
		gross TEXT NOT NULL,
		deduction TEXT NOT NULL,
		net TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		generated_at TEXT NOT NULL
	);

	-- CRITICAL: one salary record per teacher-month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_salaries_teacher_month
		ON salaries(teacher_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_salaries_status ON salaries(status);

	CREATE TABLE IF NOT EXISTS salary_lines (
		id TEXT PRIMARY KEY,
		salary_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		lesson_name TEXT NOT NULL,
		lesson_date TEXT NOT NULL,
		gross TEXT NOT NULL,
		deduction TEXT NOT NULL,
		net TEXT NOT NULL,
		missing_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_salary_lines_salary
		ON salary_lines(salary_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TEACHER STORE
// =============================================================================

// SaveTeacher inserts or updates a teacher.
func (s *Store) SaveTeacher(ctx context.Context, t salary.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO teachers (id, name, email, hourly_rate, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hourly_rate = excluded.hourly_rate,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Email, t.HourlyRate.Value.String(), t.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetTeacher returns nil when the teacher does not exist.
func (s *Store) GetTeacher(ctx context.Context, id salary.TeacherID) (*salary.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t salary.Teacher
	var rate string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, hourly_rate, active FROM teachers WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Email, &rate, &t.Active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.HourlyRate = salary.MustParseMoney(rate)
	return &t, nil
}

// ListTeachers returns all teachers ordered by name.
func (s *Store) ListTeachers(ctx context.Context) ([]salary.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, hourly_rate, active FROM teachers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []salary.Teacher
	for rows.Next() {
		var t salary.Teacher
		var rate string
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &rate, &t.Active); err != nil {
			return nil, err
		}
		t.HourlyRate = salary.MustParseMoney(rate)
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// =============================================================================
// STUDENT / ROSTER STORE
// =============================================================================

// SaveStudent inserts or updates a roster entry.
func (s *Store) SaveStudent(ctx context.Context, st salary.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO students (id, group_id, name, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			name = excluded.name,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.GroupID, st.Name, st.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// EnrolledStudents implements salary.RosterSource.
func (s *Store) EnrolledStudents(ctx context.Context, groupID salary.GroupID) ([]salary.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, group_id, name, active FROM students WHERE group_id = ? ORDER BY id", groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []salary.Student
	for rows.Next() {
		var st salary.Student
		if err := rows.Scan(&st.ID, &st.GroupID, &st.Name, &st.Active); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// =============================================================================
// LESSON STORE (salary.LessonSource)
// =============================================================================

// SaveLesson inserts or updates a lesson record.
func (s *Store) SaveLesson(ctx context.Context, l salary.LessonFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO lessons (id, teacher_id, group_id, name, scheduled_at, duration_minutes, hourly_rate, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			scheduled_at = excluded.scheduled_at,
			duration_minutes = excluded.duration_minutes,
			hourly_rate = excluded.hourly_rate,
			status = excluded.status
	`

	_, err := s.db.ExecContext(ctx, query,
		l.LessonID, l.TeacherID, l.GroupID, l.Name,
		l.ScheduledAt.UTC().Format(time.RFC3339),
		l.DurationMinutes,
		l.HourlyRate.Value.String(),
		l.Status,
	)
	return err
}

// GetLesson returns nil when the lesson does not exist.
func (s *Store) GetLesson(ctx context.Context, id salary.LessonID) (*salary.LessonFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lessons, err := s.queryLessons(ctx,
		"SELECT id, teacher_id, group_id, name, scheduled_at, duration_minutes, hourly_rate, status FROM lessons WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return nil, nil
	}
	return &lessons[0], nil
}

// CompletedLessons implements salary.LessonSource: completed lessons of
// the teacher scheduled inside [period.Start, period.End).
func (s *Store) CompletedLessons(ctx context.Context, teacherID salary.TeacherID, period salary.Period) ([]salary.LessonFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, teacher_id, group_id, name, scheduled_at, duration_minutes, hourly_rate, status
		FROM lessons
		WHERE teacher_id = ? AND status = 'completed'
		  AND scheduled_at >= ? AND scheduled_at < ?
		ORDER BY scheduled_at ASC, id ASC
	`

	return s.queryLessons(ctx, query, teacherID,
		period.Start.UTC().Format(time.RFC3339), period.End.UTC().Format(time.RFC3339))
}

func (s *Store) queryLessons(ctx context.Context, query string, args ...any) ([]salary.LessonFact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []salary.LessonFact
	for rows.Next() {
		var l salary.LessonFact
		var scheduledAt, rate string
		if err := rows.Scan(&l.LessonID, &l.TeacherID, &l.GroupID, &l.Name,
			&scheduledAt, &l.DurationMinutes, &rate, &l.Status); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		l.ScheduledAt, _ = time.Parse(time.RFC3339, scheduledAt)
		l.HourlyRate = salary.MustParseMoney(rate)
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// =============================================================================
// OBLIGATION FACT STORES (attendance, feedback, messages)
// =============================================================================

// MarkAttendance records an attendance mark for one student in a lesson.
func (s *Store) MarkAttendance(ctx context.Context, lessonID salary.LessonID, studentID salary.StudentID, present bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (lesson_id, student_id, present, marked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(lesson_id, student_id) DO UPDATE SET
			present = excluded.present,
			marked_at = excluded.marked_at
	`

	_, err := s.db.ExecContext(ctx, query,
		lessonID, studentID, present, time.Now().UTC().Format(time.RFC3339))
	return err
}

// MarkedStudents implements salary.AttendanceSource.
func (s *Store) MarkedStudents(ctx context.Context, lessonID salary.LessonID) ([]salary.StudentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT student_id FROM attendance WHERE lesson_id = ?", lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []salary.StudentID
	for rows.Next() {
		var id salary.StudentID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddFeedback records one feedback entry.
func (s *Store) AddFeedback(ctx context.Context, id string, lessonID salary.LessonID, studentID salary.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (id, lesson_id, student_id, created_at) VALUES (?, ?, ?, ?)",
		id, lessonID, studentID, time.Now().UTC().Format(time.RFC3339))
	return err
}

// FeedbackCounts implements salary.FeedbackSource.
func (s *Store) FeedbackCounts(ctx context.Context, lessonID salary.LessonID) (map[salary.StudentID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT student_id, COUNT(*) FROM feedback WHERE lesson_id = ? GROUP BY student_id", lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[salary.StudentID]int)
	for rows.Next() {
		var id salary.StudentID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// RecordMessage stores the "message sent" fact for a lesson. Repeated
// sends keep the earliest timestamp.
func (s *Store) RecordMessage(ctx context.Context, lessonID salary.LessonID, kind salary.MessageKind, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO lesson_messages (lesson_id, kind, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(lesson_id, kind) DO UPDATE SET
			sent_at = MIN(lesson_messages.sent_at, excluded.sent_at)
	`

	_, err := s.db.ExecContext(ctx, query, lessonID, kind, sentAt.UTC().Format(time.RFC3339))
	return err
}

// MessageSentAt implements salary.MessageSource.
func (s *Store) MessageSentAt(ctx context.Context, lessonID salary.LessonID, kind salary.MessageKind) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sentAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT sent_at FROM lesson_messages WHERE lesson_id = ? AND kind = ?",
		lessonID, kind,
	).Scan(&sentAt)

	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := time.Parse(time.RFC3339, sentAt)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// =============================================================================
// SETTINGS STORE (salary.SettingsStore)
// =============================================================================

// ObligationConfig returns the stored singleton, or the default when no
// admin has configured one yet.
func (s *Store) ObligationConfig(ctx context.Context) (salary.ObligationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var absence, feedback, voice, text int
	err := s.db.QueryRowContext(ctx,
		"SELECT absence_percent, feedback_percent, voice_percent, text_percent FROM obligation_settings WHERE id = 1",
	).Scan(&absence, &feedback, &voice, &text)

	if err == sql.ErrNoRows {
		return salary.DefaultObligationConfig(), nil
	}
	if err != nil {
		return salary.ObligationConfig{}, err
	}

	// Stored values passed the constructor on the way in; re-validating
	// here catches manual database edits before they reach the engine.
	return salary.NewObligationConfig(absence, feedback, voice, text)
}

// UpdateObligationConfig implements salary.SettingsStore.
func (s *Store) UpdateObligationConfig(ctx context.Context, cfg salary.ObligationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO obligation_settings (id, absence_percent, feedback_percent, voice_percent, text_percent, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			absence_percent = excluded.absence_percent,
			feedback_percent = excluded.feedback_percent,
			voice_percent = excluded.voice_percent,
			text_percent = excluded.text_percent,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		cfg.AbsencePercent(), cfg.FeedbackPercent(), cfg.VoicePercent(), cfg.TextPercent(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// SALARY STORE (salary.SalaryStore)
// =============================================================================

// GetRecord returns nil when no record exists for the key.
func (s *Store) GetRecord(ctx context.Context, key salary.Key) (*salary.SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRecord(ctx, s.db, key)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getRecord(ctx context.Context, db querier, key salary.Key) (*salary.SalaryRecord, error) {
	query := `
		SELECT id, teacher_id, year, month, lessons_count, gross, deduction, net, status, generated_at
		FROM salaries
		WHERE teacher_id = ? AND year = ? AND month = ?
	`

	var r salary.SalaryRecord
	var month int
	var gross, deduction, net, generatedAt string
	err := db.QueryRowContext(ctx, query, key.TeacherID, key.Year, int(key.Month)).Scan(
		&r.ID, &r.TeacherID, &r.Year, &month, &r.LessonsCount,
		&gross, &deduction, &net, &r.Status, &generatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Month = time.Month(month)
	r.Gross = salary.MustParseMoney(gross)
	r.Deduction = salary.MustParseMoney(deduction)
	r.Net = salary.MustParseMoney(net)
	r.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
	return &r, nil
}

// GetRecordByID returns nil when no record has the id.
func (s *Store) GetRecordByID(ctx context.Context, id salary.SalaryID) (*salary.SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryRecords(ctx,
		`SELECT id, teacher_id, year, month, lessons_count, gross, deduction, net, status, generated_at
		 FROM salaries WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// RecordsByTeacher returns all records for a teacher, newest month first.
func (s *Store) RecordsByTeacher(ctx context.Context, teacherID salary.TeacherID) ([]salary.SalaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, teacher_id, year, month, lessons_count, gross, deduction, net, status, generated_at
		FROM salaries
		WHERE teacher_id = ?
		ORDER BY year DESC, month DESC
	`

	return s.queryRecords(ctx, query, teacherID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]salary.SalaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query salaries: %w", err)
	}
	defer rows.Close()

	var records []salary.SalaryRecord
	for rows.Next() {
		var r salary.SalaryRecord
		var month int
		var gross, deduction, net, generatedAt string
		if err := rows.Scan(&r.ID, &r.TeacherID, &r.Year, &month, &r.LessonsCount,
			&gross, &deduction, &net, &r.Status, &generatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan salary: %w", err)
		}
		r.Month = time.Month(month)
		r.Gross = salary.MustParseMoney(gross)
		r.Deduction = salary.MustParseMoney(deduction)
		r.Net = salary.MustParseMoney(net)
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Lines returns the breakdown lines of a record in stored order.
func (s *Store) Lines(ctx context.Context, salaryID salary.SalaryID) ([]salary.BreakdownLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, salary_id, lesson_id, lesson_name, lesson_date, gross, deduction, net, missing_json
		FROM salary_lines
		WHERE salary_id = ?
		ORDER BY lesson_date ASC, lesson_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, salaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary lines: %w", err)
	}
	defer rows.Close()

	var lines []salary.BreakdownLine
	for rows.Next() {
		var l salary.BreakdownLine
		var lessonDate, gross, deduction, net, missingJSON string
		if err := rows.Scan(&l.ID, &l.SalaryID, &l.LessonID, &l.LessonName,
			&lessonDate, &gross, &deduction, &net, &missingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan salary line: %w", err)
		}
		l.LessonDate, _ = time.Parse(time.RFC3339, lessonDate)
		l.Gross = salary.MustParseMoney(gross)
		l.Deduction = salary.MustParseMoney(deduction)
		l.Net = salary.MustParseMoney(net)
		if missingJSON != "" {
			json.Unmarshal([]byte(missingJSON), &l.Missing)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(salary.SalaryWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	writer := &txWriter{tx: sqlTx, parent: s}
	if err := fn(writer); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isUniqueConstraintError(err) || isBusyError(err) {
			return salary.ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit salary transaction: %w", err)
	}
	return nil
}

type txWriter struct {
	tx     *sql.Tx
	parent *Store
}

func (w *txWriter) GetRecord(ctx context.Context, key salary.Key) (*salary.SalaryRecord, error) {
	return w.parent.getRecord(ctx, w.tx, key)
}

// ReplaceRecord upserts the salary row by business key and wholesale
// replaces its lines: delete-then-insert inside the same transaction.
func (w *txWriter) ReplaceRecord(ctx context.Context, record salary.SalaryRecord, lines []salary.BreakdownLine) error {
	if _, err := w.tx.ExecContext(ctx,
		"DELETE FROM salary_lines WHERE salary_id = ?", record.ID); err != nil {
		return fmt.Errorf("failed to clear salary lines: %w", err)
	}

	query := `
		INSERT INTO salaries (id, teacher_id, year, month, lessons_count, gross, deduction, net, status, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(teacher_id, year, month) DO UPDATE SET
			lessons_count = excluded.lessons_count,
			gross = excluded.gross,
			deduction = excluded.deduction,
			net = excluded.net,
			generated_at = excluded.generated_at
	`

	_, err := w.tx.ExecContext(ctx, query,
		record.ID, record.TeacherID, record.Year, int(record.Month),
		record.LessonsCount,
		record.Gross.Value.String(),
		record.Deduction.Value.String(),
		record.Net.Value.String(),
		record.Status,
		record.GeneratedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return salary.ErrConcurrentModification
		}
		return fmt.Errorf("failed to upsert salary: %w", err)
	}

	for _, l := range lines {
		missingJSON, _ := json.Marshal(l.Missing)
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO salary_lines (id, salary_id, lesson_id, lesson_name, lesson_date, gross, deduction, net, missing_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.SalaryID, l.LessonID, l.LessonName,
			l.LessonDate.UTC().Format(time.RFC3339),
			l.Gross.Value.String(),
			l.Deduction.Value.String(),
			l.Net.Value.String(),
			string(missingJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert salary line: %w", err)
		}
	}
	return nil
}

// MarkPaid transitions a pending record to paid. Returns
// salary.ErrSalaryNotFound for an unknown id and salary.ErrSalaryFinalized
// when the record is already paid.
func (s *Store) MarkPaid(ctx context.Context, id salary.SalaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE salaries SET status = 'paid' WHERE id = ? AND status = 'pending'", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status string
		err := s.db.QueryRowContext(ctx, "SELECT status FROM salaries WHERE id = ?", id).Scan(&status)
		if err == sql.ErrNoRows {
			return salary.ErrSalaryNotFound
		}
		if err != nil {
			return err
		}
		return salary.ErrSalaryFinalized
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"salary_lines", "salaries", "lesson_messages", "feedback",
		"attendance", "lessons", "students", "teachers", "obligation_settings",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isBusyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
