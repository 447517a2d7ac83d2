package salary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua/salary-engine/salary"
	"github.com/lingua/salary-engine/salary/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestJob(t *testing.T) (*salary.GenerationJob, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	job := &salary.GenerationJob{
		Lessons:  mem,
		Settings: mem,
		Tracker:  salary.NewTracker(mem, mem, mem, mem),
		Store:    mem,
		Now:      func() time.Time { return time.Date(2026, time.August, 1, 6, 0, 0, 0, time.UTC) },
	}
	return job, mem
}

// seedPerfectLesson records a completed lesson with every obligation met.
func seedPerfectLesson(mem *store.Memory, id salary.LessonID, teacherID salary.TeacherID, at time.Time, minutes int, rate float64) {
	mem.PutLesson(salary.LessonFact{
		LessonID:        id,
		TeacherID:       teacherID,
		GroupID:         "group-1",
		Name:            string(id),
		ScheduledAt:     at,
		DurationMinutes: minutes,
		HourlyRate:      salary.NewMoney(rate),
		Status:          salary.LessonCompleted,
	})
	mem.MarkAttendance(id, "stu-1")
	mem.AddFeedback(id, "stu-1")
	mem.RecordMessage(id, salary.MessageVoice, at.Add(time.Hour))
	mem.RecordMessage(id, salary.MessageText, at.Add(time.Hour))
}

func july(day int) time.Time {
	return time.Date(2026, time.July, day, 10, 0, 0, 0, time.UTC)
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerate_ZeroLessons_ZeroRecord(t *testing.T) {
	// GIVEN: A teacher with no completed lessons in the month
	// WHEN: Generating the salary
	// THEN: A zero-amount pending record is persisted, not an error

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})

	record, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	assert.Equal(t, 0, record.LessonsCount)
	assert.True(t, record.Gross.IsZero(), "gross should be zero")
	assert.True(t, record.Net.IsZero(), "net should be zero")
	assert.Equal(t, salary.SalaryPending, record.Status)

	stored, err := mem.GetRecord(context.Background(), record.Key())
	require.NoError(t, err)
	require.NotNil(t, stored, "record should be persisted")
}

func TestGenerate_UnknownTeacher_Fails(t *testing.T) {
	job, _ := newTestJob(t)

	_, err := job.Generate(context.Background(), "nobody", 2026, time.July)
	require.Error(t, err)
	assert.ErrorIs(t, err, salary.ErrTeacherNotFound)
}

func TestGenerate_SumsPerLessonAmounts(t *testing.T) {
	// GIVEN: Two perfect lessons and one with all obligations missed
	// WHEN: Generating
	// THEN: Record totals are the sums of the per-lesson lines

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	seedPerfectLesson(mem, "l-1", "teacher-1", july(2), 60, 40) // 40.00 net
	seedPerfectLesson(mem, "l-2", "teacher-1", july(9), 90, 40) // 60.00 net

	// 50.00 gross with every obligation missed
	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-3",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		Name:            "l-3",
		ScheduledAt:     july(16),
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(50),
		Status:          salary.LessonCompleted,
	})

	record, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	assert.Equal(t, 3, record.LessonsCount)
	assert.True(t, record.Gross.Equal(salary.MustParseMoney("150.00")), "gross: %s", record.Gross)
	assert.True(t, record.Deduction.Equal(salary.MustParseMoney("50.00")), "deduction: %s", record.Deduction)
	assert.True(t, record.Net.Equal(salary.MustParseMoney("100.00")), "net: %s", record.Net)
	assert.True(t, record.Gross.Equal(record.Deduction.Add(record.Net)), "gross identity")

	lines, err := mem.Lines(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// The fully-missed lesson nets zero and lists all four obligations.
	for _, line := range lines {
		if line.LessonID == "l-3" {
			assert.True(t, line.Net.IsZero(), "missed lesson should net zero")
			assert.Len(t, line.Missing, 4)
		} else {
			assert.Empty(t, line.Missing)
		}
	}
}

func TestGenerate_OutOfMonthAndNonCompletedLessons_Excluded(t *testing.T) {
	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	seedPerfectLesson(mem, "l-in", "teacher-1", july(10), 60, 40)
	seedPerfectLesson(mem, "l-june", "teacher-1", time.Date(2026, time.June, 30, 23, 0, 0, 0, time.UTC), 60, 40)
	seedPerfectLesson(mem, "l-august", "teacher-1", time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), 60, 40)
	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-cancelled",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		ScheduledAt:     july(20),
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(40),
		Status:          salary.LessonCancelled,
	})

	record, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	assert.Equal(t, 1, record.LessonsCount)
	assert.True(t, record.Gross.Equal(salary.MustParseMoney("40.00")), "gross: %s", record.Gross)
}

// =============================================================================
// IDEMPOTENCE TESTS
// =============================================================================

func TestGenerate_UnchangedFacts_SameRecord(t *testing.T) {
	// GIVEN: A generated month with no fact changes
	// WHEN: Generating again
	// THEN: Totals are identical and the record id is stable

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	seedPerfectLesson(mem, "l-1", "teacher-1", july(5), 60, 40)

	first, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	second, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "record id should survive regeneration")
	assert.True(t, first.Gross.Equal(second.Gross))
	assert.True(t, first.Deduction.Equal(second.Deduction))
	assert.True(t, first.Net.Equal(second.Net))

	// Lines were replaced, not appended.
	lines, err := mem.Lines(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestGenerate_PendingRegeneration_PicksUpLateFacts(t *testing.T) {
	// GIVEN: A pending record generated before the feedback arrived
	// WHEN: The feedback is recorded and the month regenerated
	// THEN: The deduction drops and the old lines are replaced

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	at := july(5)
	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-1",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		ScheduledAt:     at,
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(100),
		Status:          salary.LessonCompleted,
	})
	mem.MarkAttendance("l-1", "stu-1")
	mem.RecordMessage("l-1", salary.MessageVoice, at.Add(time.Hour))
	mem.RecordMessage("l-1", salary.MessageText, at.Add(time.Hour))

	first, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)
	assert.True(t, first.Deduction.Equal(salary.MustParseMoney("25.00")), "deduction: %s", first.Deduction)

	// Late feedback correction
	mem.AddFeedback("l-1", "stu-1")

	second, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Deduction.IsZero(), "deduction after correction: %s", second.Deduction)
	assert.True(t, second.Net.Equal(salary.MustParseMoney("100.00")), "net: %s", second.Net)

	lines, err := mem.Lines(context.Background(), second.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Empty(t, lines[0].Missing)
}

func TestGenerate_PendingRegeneration_DropsIneligibleLessonLines(t *testing.T) {
	// GIVEN: A pending record covering two lessons
	// WHEN: One lesson is cancelled and the month regenerated
	// THEN: The record shrinks and no stale line survives for the
	//       cancelled lesson

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	seedPerfectLesson(mem, "l-1", "teacher-1", july(3), 60, 100)
	seedPerfectLesson(mem, "l-2", "teacher-1", july(10), 60, 100)

	first, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)
	assert.Equal(t, 2, first.LessonsCount)
	assert.True(t, first.Gross.Equal(salary.MustParseMoney("200.00")), "gross: %s", first.Gross)

	// The second lesson is cancelled after the fact
	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-2",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		Name:            "l-2",
		ScheduledAt:     july(10),
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(100),
		Status:          salary.LessonCancelled,
	})

	second, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.LessonsCount)
	assert.True(t, second.Gross.Equal(salary.MustParseMoney("100.00")), "gross: %s", second.Gross)

	lines, err := mem.Lines(context.Background(), second.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, salary.LessonID("l-1"), lines[0].LessonID)
}

func TestGenerate_PaidRecord_Rejected(t *testing.T) {
	// GIVEN: A salary already marked paid
	// WHEN: Regenerating the same teacher-month
	// THEN: Generation fails with SalaryFinalizedError and nothing changes

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	seedPerfectLesson(mem, "l-1", "teacher-1", july(5), 60, 40)

	first, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.NoError(t, err)

	mem.MarkPaid(first.Key())

	// A fact change after payment must not leak into the paid record.
	seedPerfectLesson(mem, "l-2", "teacher-1", july(12), 60, 40)

	_, err = job.Generate(context.Background(), "teacher-1", 2026, time.July)
	require.Error(t, err)

	var finalErr *salary.SalaryFinalizedError
	assert.ErrorAs(t, err, &finalErr, "should be SalaryFinalizedError")
	assert.ErrorIs(t, err, salary.ErrSalaryFinalized)
	assert.False(t, salary.IsRetryable(err), "finalized conflict must not be retried")

	stored, err := mem.GetRecord(context.Background(), first.Key())
	require.NoError(t, err)
	assert.True(t, stored.Gross.Equal(first.Gross), "paid record must be untouched")
	assert.Equal(t, salary.SalaryPaid, stored.Status)
}

func TestGenerate_CancelledContext_Aborts(t *testing.T) {
	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	seedPerfectLesson(mem, "l-1", "teacher-1", july(5), 60, 40)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := job.Generate(ctx, "teacher-1", 2026, time.July)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
