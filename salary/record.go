/*
record.go - Salary record and breakdown line

PURPOSE:
  SalaryRecord is the one-per-(teacher, year, month) aggregate the engine
  produces; BreakdownLine is the per-lesson derivation stored with it.
  Together they answer "how much?" and "why exactly that much?".

LIFECYCLE:
  A record is created PENDING by the generation job. Regenerating while
  PENDING wholesale-replaces the record and its lines. The payment
  workflow moves it PENDING -> PAID, after which it is immutable and
  regeneration fails with SalaryFinalizedError.

LINE SNAPSHOTS:
  Lines denormalize the lesson name and date so the audit view stays
  stable even if the lesson record is later renamed or rescheduled.

SEE ALSO:
  - job.go: Creates records
  - query.go: Reads lines back with ordering
*/
package salary

import (
	"time"
)

// =============================================================================
// SALARY RECORD - One per (teacher, year, month)
// =============================================================================

type SalaryStatus string

const (
	SalaryPending SalaryStatus = "pending"
	SalaryPaid    SalaryStatus = "paid"
)

type SalaryRecord struct {
	ID           SalaryID
	TeacherID    TeacherID
	Year         int
	Month        time.Month
	LessonsCount int
	Gross        Money
	Deduction    Money
	Net          Money
	Status       SalaryStatus
	GeneratedAt  time.Time
}

// Key identifies a salary record by its business key.
type Key struct {
	TeacherID TeacherID
	Year      int
	Month     time.Month
}

func (r SalaryRecord) Key() Key {
	return Key{TeacherID: r.TeacherID, Year: r.Year, Month: r.Month}
}

// =============================================================================
// BREAKDOWN LINE - Per-lesson derivation, persisted with its record
// =============================================================================

// BreakdownLine is written atomically with its parent record and replaced
// only as part of regenerating the parent while still pending.
type BreakdownLine struct {
	ID         string
	SalaryID   SalaryID
	LessonID   LessonID
	LessonName string
	LessonDate time.Time
	Gross      Money
	Deduction  Money
	Net        Money
	Missing    []ObligationKind
}

// =============================================================================
// MONTH PERIOD - Eligibility window for a generation run
// =============================================================================

// Period is the closed time window [Start, End) of one calendar month in
// UTC. A lesson is inside the period when Start <= ScheduledAt < End.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the period covering the given calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + ")"
}
