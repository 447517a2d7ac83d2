/*
store.go - Persistence interfaces for the compensation engine

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never touches SQL; it speaks these interfaces, which the sqlite store
  implements for production and salary/store implements in memory for
  tests.

KEY INTERFACES:
  LessonSource:  Eligible lesson facts per teacher-month
  SettingsStore: The ObligationConfig singleton (validated update path)
  SalaryStore:   Salary records + breakdown lines, with transactions
  SalaryWriter:  The write surface visible inside one transaction

WRITE CONTRACT:
  All salary writes go through WithTx. Inside the transaction the job
  re-reads the existing record for the key and then either inserts or
  wholesale-replaces record+lines as ONE atomic unit - a crash or
  cancellation mid-persist never leaves a record without its lines.
  A PAID record is never touched.

CONFLICTS:
  A concurrent generation for the same (teacher, year, month) surfaces as
  ErrConcurrentModification from WithTx (unique-index race); the job
  retries with a fresh snapshot.

SEE ALSO:
  - job.go: The only writer
  - store/memory.go: In-memory implementation for testing
  - store/sqlite: Production implementation
*/
package salary

import (
	"context"
)

// =============================================================================
// LESSON SOURCE - Read-only feed of eligible lessons
// =============================================================================

type LessonSource interface {
	// CompletedLessons returns every lesson of the teacher with completed
	// status scheduled inside the period, ordered by scheduled time.
	CompletedLessons(ctx context.Context, teacherID TeacherID, period Period) ([]LessonFact, error)

	// GetTeacher returns nil when the teacher does not exist.
	GetTeacher(ctx context.Context, teacherID TeacherID) (*Teacher, error)
}

// =============================================================================
// SETTINGS STORE - ObligationConfig singleton
// =============================================================================

type SettingsStore interface {
	// ObligationConfig returns the current config. A store with no stored
	// row returns DefaultObligationConfig.
	ObligationConfig(ctx context.Context) (ObligationConfig, error)

	// UpdateObligationConfig persists a new config. The config is valid
	// by construction; the store only writes it.
	UpdateObligationConfig(ctx context.Context, cfg ObligationConfig) error
}

// =============================================================================
// SALARY STORE - Records and breakdown lines
// =============================================================================

// SalaryStore reads salary state and opens write transactions.
type SalaryStore interface {
	// GetRecord returns nil when no record exists for the key.
	GetRecord(ctx context.Context, key Key) (*SalaryRecord, error)

	// RecordsByTeacher returns all records for a teacher, newest first.
	RecordsByTeacher(ctx context.Context, teacherID TeacherID) ([]SalaryRecord, error)

	// Lines returns the persisted breakdown lines of a record, in
	// insertion order (lesson date ascending as written by the job).
	Lines(ctx context.Context, salaryID SalaryID) ([]BreakdownLine, error)

	// WithTx runs fn inside one database transaction. fn returning an
	// error rolls everything back. A serialization/uniqueness race with
	// a concurrent writer surfaces as ErrConcurrentModification.
	WithTx(ctx context.Context, fn func(SalaryWriter) error) error
}

// SalaryWriter is the write surface inside one WithTx transaction.
type SalaryWriter interface {
	// GetRecord re-reads existing-record state inside the transaction.
	GetRecord(ctx context.Context, key Key) (*SalaryRecord, error)

	// ReplaceRecord inserts the record, or replaces the existing record
	// with the same business key, deleting and re-inserting its breakdown
	// lines in the same transaction. Callers must have verified the
	// existing record is not paid.
	ReplaceRecord(ctx context.Context, record SalaryRecord, lines []BreakdownLine) error
}
