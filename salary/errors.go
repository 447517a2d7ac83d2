/*
errors.go - Centralized error types for the compensation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch with errors.Is / errors.As; the structured types carry
  the context an operator needs to act on a failure.

ERROR CATEGORIES:
  1. Config errors     - rejected before the engine ever runs
  2. State errors      - caller bugs (non-completed lesson, unknown teacher)
  3. Conflict errors   - regenerating a finalized salary
  4. Transient errors  - commit conflicts under concurrent generation

USAGE:
  if errors.Is(err, salary.ErrSalaryFinalized) {
      // surface "already finalized" to the admin, do not retry
  }
  if salary.IsRetryable(err) {
      // safe to re-run the generation with a fresh snapshot
  }
*/
package salary

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfig is returned when obligation percents are out of
	// range or do not sum to exactly 100.
	ErrInvalidConfig = errors.New("invalid obligation config")

	// ErrInvalidLessonState is returned when evaluating a lesson that is
	// not in completed status. This is a programming error, not a domain
	// outcome.
	ErrInvalidLessonState = errors.New("lesson is not completed")

	// ErrTeacherNotFound is returned when generating for an unknown teacher.
	ErrTeacherNotFound = errors.New("teacher not found")

	// ErrSalaryNotFound is returned by the breakdown query when no salary
	// record exists for the teacher-month.
	ErrSalaryNotFound = errors.New("salary record not found")

	// ErrSalaryFinalized is returned when regeneration targets a salary
	// that has already been paid. The existing record is left untouched.
	ErrSalaryFinalized = errors.New("salary already finalized")

	// ErrConcurrentModification is returned when the persist transaction
	// loses a race against a concurrent generation for the same key.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidConfigError reports a rejected obligation percent set.
type InvalidConfigError struct {
	Absence  int
	Feedback int
	Voice    int
	Text     int
	Sum      int
	Reason   string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid obligation config {absence:%d feedback:%d voice:%d text:%d}: %s",
		e.Absence, e.Feedback, e.Voice, e.Text, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// InvalidLessonStateError reports an attempt to evaluate a lesson that is
// not completed.
type InvalidLessonStateError struct {
	LessonID LessonID
	Status   LessonStatus
}

func (e *InvalidLessonStateError) Error() string {
	return fmt.Sprintf("lesson %s has status %q, only completed lessons can be evaluated",
		e.LessonID, e.Status)
}

func (e *InvalidLessonStateError) Unwrap() error { return ErrInvalidLessonState }

// SalaryFinalizedError reports a regeneration attempt against a PAID record.
type SalaryFinalizedError struct {
	TeacherID   TeacherID
	Year        int
	Month       time.Month
	GeneratedAt time.Time
}

func (e *SalaryFinalizedError) Error() string {
	return fmt.Sprintf("salary for teacher %s %d-%02d is already paid (generated %s)",
		e.TeacherID, e.Year, int(e.Month), e.GeneratedAt.Format("2006-01-02"))
}

func (e *SalaryFinalizedError) Unwrap() error { return ErrSalaryFinalized }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if re-running the generation with a fresh
// snapshot might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsConflict returns true for the expected already-finalized outcome.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSalaryFinalized)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidLessonState)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTeacherNotFound) ||
		errors.Is(err, ErrSalaryNotFound)
}
