/*
job.go - Monthly salary generation

PURPOSE:
  Orchestrates, for one teacher and one calendar month, the pipeline
  FETCH_LESSONS -> EVALUATE_EACH -> AGGREGATE -> PERSIST, producing one
  SalaryRecord plus its per-lesson breakdown lines.

IDEMPOTENCE:
  Calling Generate twice over unchanged facts yields identical records.
  Regenerating while the record is PENDING wholesale-replaces the record
  and its lines (a late attendance correction simply changes the next
  run's output); regenerating a PAID record fails with
  SalaryFinalizedError and changes nothing.

SNAPSHOT SEMANTICS:
  The ObligationConfig is read ONCE at run start and carried through the
  run. Lessons carry their own hourly-rate snapshots. On a commit
  conflict the job does NOT blindly retry the write: it re-snapshots the
  whole pipeline so the committed result always reflects one consistent
  read taken close to commit time.

PARALLELISM:
  Per-lesson evaluation is read-only and independent, so it runs on a
  bounded worker pool. The lesson set is fixed at fetch time; lessons
  completed mid-run show up in the next regeneration, not this one.

SEE ALSO:
  - obligation.go: Per-lesson evaluation
  - deduction.go:  Per-lesson money computation
  - query.go:      Reading the stored breakdown back
*/
package salary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// GENERATION JOB
// =============================================================================

const (
	defaultParallelism = 4
	persistAttempts    = 3
)

// GenerationJob wires the engine's components together. Safe for
// concurrent Generate calls across different teacher-months.
type GenerationJob struct {
	Lessons  LessonSource
	Settings SettingsStore
	Tracker  *Tracker
	Store    SalaryStore

	// Parallelism bounds concurrent per-lesson evaluation.
	// Zero means defaultParallelism.
	Parallelism int

	// Now is overridable for tests. Nil means time.Now.
	Now func() time.Time
}

// Generate computes and persists the salary record for one teacher-month.
// Zero eligible lessons is a valid zero-amount record, not an error.
func (j *GenerationJob) Generate(ctx context.Context, teacherID TeacherID, year int, month time.Month) (*SalaryRecord, error) {
	var lastErr error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		record, err := j.generateOnce(ctx, teacherID, year, month)
		if err == nil {
			return record, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		// Re-snapshot the whole pipeline, not just the write.
		lastErr = err
	}
	return nil, fmt.Errorf("salary generation for %s %d-%02d: %w", teacherID, year, int(month), lastErr)
}

func (j *GenerationJob) generateOnce(ctx context.Context, teacherID TeacherID, year int, month time.Month) (*SalaryRecord, error) {
	teacher, err := j.Lessons.GetTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("generate salary: %w: %s", ErrTeacherNotFound, teacherID)
	}

	// Config snapshot for the whole run.
	cfg, err := j.Settings.ObligationConfig(ctx)
	if err != nil {
		return nil, err
	}

	// FETCH_LESSONS: the lesson set for this run is fixed here.
	period := MonthPeriod(year, month)
	lessons, err := j.Lessons.CompletedLessons(ctx, teacherID, period)
	if err != nil {
		return nil, err
	}

	// EVALUATE_EACH: independent and read-only, so fan out.
	breakdowns, err := j.evaluateAll(ctx, lessons, cfg)
	if err != nil {
		return nil, err
	}

	// AGGREGATE: exact sums of the already-rounded per-lesson amounts.
	record := SalaryRecord{
		ID:           SalaryID(uuid.NewString()),
		TeacherID:    teacherID,
		Year:         year,
		Month:        month,
		LessonsCount: len(lessons),
		Gross:        ZeroMoney(),
		Deduction:    ZeroMoney(),
		Net:          ZeroMoney(),
		Status:       SalaryPending,
		GeneratedAt:  j.now(),
	}
	lines := make([]BreakdownLine, len(lessons))
	for i, b := range breakdowns {
		record.Gross = record.Gross.Add(b.Gross)
		record.Deduction = record.Deduction.Add(b.Deduction)
		record.Net = record.Net.Add(b.Net)
		lines[i] = BreakdownLine{
			ID:         uuid.NewString(),
			SalaryID:   record.ID,
			LessonID:   lessons[i].LessonID,
			LessonName: lessons[i].Name,
			LessonDate: lessons[i].ScheduledAt,
			Gross:      b.Gross,
			Deduction:  b.Deduction,
			Net:        b.Net,
			Missing:    b.Missing,
		}
	}

	// PERSIST: one transaction for the create-or-replace state machine.
	err = j.Store.WithTx(ctx, func(w SalaryWriter) error {
		existing, err := w.GetRecord(ctx, record.Key())
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == SalaryPaid {
				return &SalaryFinalizedError{
					TeacherID:   existing.TeacherID,
					Year:        existing.Year,
					Month:       existing.Month,
					GeneratedAt: existing.GeneratedAt,
				}
			}
			// Keep the stable id so external references survive
			// regeneration while pending.
			record.ID = existing.ID
			for i := range lines {
				lines[i].SalaryID = existing.ID
			}
		}
		return w.ReplaceRecord(ctx, record, lines)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// evaluateAll runs tracker+rule engine per lesson on a bounded pool,
// preserving lesson order in the result.
func (j *GenerationJob) evaluateAll(ctx context.Context, lessons []LessonFact, cfg ObligationConfig) ([]DeductionBreakdown, error) {
	if len(lessons) == 0 {
		return nil, nil
	}

	parallelism := j.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	if parallelism > len(lessons) {
		parallelism = len(lessons)
	}

	breakdowns := make([]DeductionBreakdown, len(lessons))
	errs := make([]error, len(lessons))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				state, err := j.Tracker.Evaluate(ctx, lessons[i])
				if err != nil {
					errs[i] = err
					continue
				}
				breakdowns[i] = ComputeDeduction(lessons[i].Gross(), state, cfg)
			}
		}()
	}

feed:
	for i := range lessons {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return breakdowns, nil
}

func (j *GenerationJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now().UTC()
}
