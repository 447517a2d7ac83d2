package salary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lingua/salary-engine/salary"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// seedBreakdownMonth generates a July 2026 salary with three lessons of
// differing amounts and obligation states. Returns the query and record.
func seedBreakdownMonth(t *testing.T) (*salary.BreakdownQuery, *salary.SalaryRecord) {
	t.Helper()

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	// Charlie (July 3): perfect, 40.00 gross
	seedPerfectLesson(mem, "l-charlie", "teacher-1", july(3), 60, 40)

	// Alpha (July 10): all missed, 80.00 gross
	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-alpha",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		Name:            "Alpha",
		ScheduledAt:     july(10),
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(80),
		Status:          salary.LessonCompleted,
	})

	// Bravo (July 17): perfect, 60.00 gross
	seedPerfectLesson(mem, "l-bravo", "teacher-1", july(17), 60, 60)

	record, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}

	return &salary.BreakdownQuery{Store: mem}, record
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestBreakdown_NoRecord_NotFound(t *testing.T) {
	// GIVEN: No generation has run for the month
	// WHEN: Querying the breakdown
	// THEN: ErrSalaryNotFound, never an empty recomputed view

	_, mem := newTestJob(t)
	q := &salary.BreakdownQuery{Store: mem}

	_, _, err := q.Breakdown(context.Background(), "teacher-1", 2026, time.July, salary.OrderByDate)
	if err == nil {
		t.Fatal("Expected error for missing record, got nil")
	}
	if !errors.Is(err, salary.ErrSalaryNotFound) {
		t.Errorf("Expected ErrSalaryNotFound, got %v", err)
	}
	if !salary.IsNotFound(err) {
		t.Error("Expected IsNotFound to classify the error")
	}
}

func TestBreakdown_DefaultOrder_DateAscending(t *testing.T) {
	q, _ := seedBreakdownMonth(t)

	record, lines, err := q.Breakdown(context.Background(), "teacher-1", 2026, time.July, salary.OrderByDate)
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}

	if record.LessonsCount != 3 {
		t.Fatalf("Expected 3 lessons, got %d", record.LessonsCount)
	}
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	for i := 1; i < len(lines); i++ {
		if lines[i].LessonDate.Before(lines[i-1].LessonDate) {
			t.Errorf("Lines out of date order at %d: %v after %v",
				i, lines[i].LessonDate, lines[i-1].LessonDate)
		}
	}
	if lines[0].LessonID != "l-charlie" {
		t.Errorf("Expected earliest lesson first, got %s", lines[0].LessonID)
	}
}

func TestBreakdown_OrderByGross_Ascending(t *testing.T) {
	q, _ := seedBreakdownMonth(t)

	_, lines, err := q.Breakdown(context.Background(), "teacher-1", 2026, time.July, salary.OrderByGross)
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}

	want := []salary.LessonID{"l-charlie", "l-bravo", "l-alpha"} // 40, 60, 80
	for i, id := range want {
		if lines[i].LessonID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, lines[i].LessonID)
		}
	}
}

func TestBreakdown_OrderByNet_MissedLessonFirst(t *testing.T) {
	q, _ := seedBreakdownMonth(t)

	_, lines, err := q.Breakdown(context.Background(), "teacher-1", 2026, time.July, salary.OrderByNet)
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}

	// Alpha netted zero, so it sorts first under net ascending.
	if lines[0].LessonID != "l-alpha" {
		t.Errorf("Expected fully-deducted lesson first, got %s", lines[0].LessonID)
	}
}

func TestBreakdown_ReadsPersistedLines_NotLiveState(t *testing.T) {
	// GIVEN: A generated month, then a fact change WITHOUT regeneration
	// WHEN: Querying the breakdown
	// THEN: The stored derivation is returned unchanged

	job, mem := newTestJob(t)
	mem.PutTeacher(salary.Teacher{ID: "teacher-1", Name: "Anna", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})

	mem.PutLesson(salary.LessonFact{
		LessonID:        "l-1",
		TeacherID:       "teacher-1",
		GroupID:         "group-1",
		ScheduledAt:     july(5),
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(100),
		Status:          salary.LessonCompleted,
	})

	record, err := job.Generate(context.Background(), "teacher-1", 2026, time.July)
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}

	// Facts arrive after generation; the query must not see them.
	mem.MarkAttendance("l-1", "stu-1")
	mem.AddFeedback("l-1", "stu-1")

	q := &salary.BreakdownQuery{Store: mem}
	got, lines, err := q.Breakdown(context.Background(), "teacher-1", 2026, time.July, salary.OrderByDate)
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}

	if !got.Net.Equal(record.Net) {
		t.Errorf("Expected stored net %s, got %s", record.Net, got.Net)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if len(lines[0].Missing) != 4 {
		t.Errorf("Expected stored line to keep 4 missing obligations, got %d", len(lines[0].Missing))
	}
}

// =============================================================================
// ORDER PARSING TESTS
// =============================================================================

func TestParseLineOrder_EmptyDefaultsToDate(t *testing.T) {
	order, err := salary.ParseLineOrder("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if order != salary.OrderByDate {
		t.Errorf("Expected date order, got %s", order)
	}
}

func TestParseLineOrder_KnownValues(t *testing.T) {
	for _, s := range []string{"date", "name", "gross", "deduction", "net"} {
		if _, err := salary.ParseLineOrder(s); err != nil {
			t.Errorf("Expected %q to parse, got %v", s, err)
		}
	}
}

func TestParseLineOrder_Unknown_Rejected(t *testing.T) {
	if _, err := salary.ParseLineOrder("teacher"); err == nil {
		t.Error("Expected error for unknown order")
	}
}
