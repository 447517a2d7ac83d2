package salary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lingua/salary-engine/salary"
	"github.com/lingua/salary-engine/salary/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestTracker(t *testing.T) (*salary.Tracker, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return salary.NewTracker(mem, mem, mem, mem), mem
}

func completedLesson(id salary.LessonID, group salary.GroupID, at time.Time) salary.LessonFact {
	return salary.LessonFact{
		LessonID:        id,
		TeacherID:       "teacher-1",
		GroupID:         group,
		Name:            "Lesson",
		ScheduledAt:     at,
		DurationMinutes: 60,
		HourlyRate:      salary.NewMoney(40),
		Status:          salary.LessonCompleted,
	}
}

var lessonTime = time.Date(2026, time.July, 10, 14, 0, 0, 0, time.UTC)

// =============================================================================
// LESSON STATE TESTS
// =============================================================================

func TestTracker_Evaluate_ScheduledLesson_Rejected(t *testing.T) {
	// GIVEN: A lesson that never reached completed status
	// WHEN: Evaluating its obligations
	// THEN: Evaluation fails with InvalidLessonStateError

	tracker, _ := newTestTracker(t)

	lesson := completedLesson("lesson-1", "group-1", lessonTime)
	lesson.Status = salary.LessonScheduled

	_, err := tracker.Evaluate(context.Background(), lesson)
	if err == nil {
		t.Fatal("Expected error for scheduled lesson, got nil")
	}

	var stateErr *salary.InvalidLessonStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Expected InvalidLessonStateError, got %T", err)
	}
	if stateErr.LessonID != "lesson-1" {
		t.Errorf("Expected lesson-1 in error, got %s", stateErr.LessonID)
	}
	if !errors.Is(err, salary.ErrInvalidLessonState) {
		t.Error("Expected error to unwrap to ErrInvalidLessonState")
	}
}

func TestTracker_Evaluate_CancelledLesson_Rejected(t *testing.T) {
	tracker, _ := newTestTracker(t)

	lesson := completedLesson("lesson-1", "group-1", lessonTime)
	lesson.Status = salary.LessonCancelled

	if _, err := tracker.Evaluate(context.Background(), lesson); err == nil {
		t.Fatal("Expected error for cancelled lesson, got nil")
	}
}

// =============================================================================
// ABSENCE MARKING TESTS
// =============================================================================

func TestTracker_AbsenceMarked_AllStudentsMarked(t *testing.T) {
	// GIVEN: Two enrolled students, both with attendance marks
	// WHEN: Evaluating
	// THEN: The absence obligation is met

	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: true})
	mem.MarkAttendance("lesson-1", "stu-1")
	mem.MarkAttendance("lesson-1", "stu-2")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.AbsenceMarked {
		t.Error("Expected absence obligation met")
	}
}

func TestTracker_AbsenceMarked_OneStudentUnmarked(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: true})
	mem.MarkAttendance("lesson-1", "stu-1")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.AbsenceMarked {
		t.Error("Expected absence obligation missed with an unmarked student")
	}
}

func TestTracker_AbsenceMarked_InactiveStudentStillRequired(t *testing.T) {
	// Attendance covers the WHOLE roster: an inactive student without a
	// mark still fails the check (unlike feedback).
	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: false})
	mem.MarkAttendance("lesson-1", "stu-1")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.AbsenceMarked {
		t.Error("Expected absence obligation missed with unmarked inactive student")
	}
}

func TestTracker_AbsenceMarked_EmptyRoster_VacuouslyMet(t *testing.T) {
	tracker, _ := newTestTracker(t)

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-empty", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.AbsenceMarked {
		t.Error("Expected absence obligation vacuously met for empty roster")
	}
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func TestTracker_Feedback_EveryActiveStudentOnce(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: true})
	mem.AddFeedback("lesson-1", "stu-1")
	mem.AddFeedback("lesson-1", "stu-2")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.FeedbackComplete {
		t.Error("Expected feedback obligation met")
	}
}

func TestTracker_Feedback_InactiveStudentExcluded(t *testing.T) {
	// GIVEN: A roster with one active and one inactive student, and
	//        feedback only for the active one
	// WHEN: Evaluating
	// THEN: The feedback obligation is met

	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: false})
	mem.AddFeedback("lesson-1", "stu-1")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.FeedbackComplete {
		t.Error("Expected feedback obligation met with inactive student excluded")
	}
}

func TestTracker_Feedback_MissingStudent(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.PutStudent(salary.Student{ID: "stu-2", GroupID: "group-1", Active: true})
	mem.AddFeedback("lesson-1", "stu-1")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.FeedbackComplete {
		t.Error("Expected feedback obligation missed with a student lacking feedback")
	}
}

func TestTracker_Feedback_DuplicateEntry_NotComplete(t *testing.T) {
	// Exactly one entry per active student; double submissions indicate
	// a data problem, not completeness.
	tracker, mem := newTestTracker(t)
	mem.PutStudent(salary.Student{ID: "stu-1", GroupID: "group-1", Active: true})
	mem.AddFeedback("lesson-1", "stu-1")
	mem.AddFeedback("lesson-1", "stu-1")

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-1", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.FeedbackComplete {
		t.Error("Expected feedback obligation missed with duplicate entries")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestTracker_Messages_SentAfterLesson_Counted(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.RecordMessage("lesson-1", salary.MessageVoice, lessonTime.Add(time.Hour))
	mem.RecordMessage("lesson-1", salary.MessageText, lessonTime.Add(2*time.Hour))

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-empty", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.VoiceSent {
		t.Error("Expected voice obligation met")
	}
	if !state.TextSent {
		t.Error("Expected text obligation met")
	}
}

func TestTracker_Messages_SentExactlyAtLessonTime_Counted(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.RecordMessage("lesson-1", salary.MessageVoice, lessonTime)

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-empty", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !state.VoiceSent {
		t.Error("Expected voice message at scheduled time to count")
	}
}

func TestTracker_Messages_SentBeforeLesson_NotCounted(t *testing.T) {
	// GIVEN: A voice message sent before the lesson started
	// WHEN: Evaluating
	// THEN: The pre-lesson reminder does not satisfy the follow-up

	tracker, mem := newTestTracker(t)
	mem.RecordMessage("lesson-1", salary.MessageVoice, lessonTime.Add(-time.Minute))

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-empty", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.VoiceSent {
		t.Error("Expected pre-lesson voice message to be ignored")
	}
}

func TestTracker_Messages_KindsIndependent(t *testing.T) {
	tracker, mem := newTestTracker(t)
	mem.RecordMessage("lesson-1", salary.MessageText, lessonTime.Add(time.Hour))

	state, err := tracker.Evaluate(context.Background(), completedLesson("lesson-1", "group-empty", lessonTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if state.VoiceSent {
		t.Error("Expected voice obligation missed")
	}
	if !state.TextSent {
		t.Error("Expected text obligation met")
	}
}
