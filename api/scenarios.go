/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates teachers, students,
	lessons, and obligation facts that demonstrate specific features.

AVAILABLE SCENARIOS:

	perfect-month:       One teacher, all four obligations met, no deduction
	missed-obligations:  Lessons with partial obligation completion
	mixed-roster:        Inactive students excluded from feedback checks
	paid-month:          A finalized salary that blocks regeneration

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create teachers and group rosters
 3. Record completed lessons for last month
 4. Record attendance, feedback, and message facts
 5. Optionally generate (and pay) the salary

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "missed-obligations"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - salary/job.go: GenerationJob
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lingua/salary-engine/salary"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "perfect-month",
		Name:        "Perfect Month",
		Description: "All obligations met on every lesson, zero deductions",
		Category:    "salary",
	},
	{
		ID:          "missed-obligations",
		Name:        "Missed Obligations",
		Description: "Lessons with partial obligation completion and per-lesson deductions",
		Category:    "salary",
	},
	{
		ID:          "mixed-roster",
		Name:        "Mixed Roster",
		Description: "Inactive students excluded from feedback completeness",
		Category:    "salary",
	},
	{
		ID:          "paid-month",
		Name:        "Paid Month",
		Description: "A finalized salary that rejects regeneration",
		Category:    "salary",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "perfect-month":
		err = h.loadPerfectMonthScenario(ctx)
	case "missed-obligations":
		err = h.loadMissedObligationsScenario(ctx)
	case "mixed-roster":
		err = h.loadMixedRosterScenario(ctx)
	case "paid-month":
		err = h.loadPaidMonthScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// lastMonth returns the first day of the previous calendar month in UTC.
func lastMonth() time.Time {
	now := time.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0)
}

func (h *Handler) loadPerfectMonthScenario(ctx context.Context) error {
	teacher := salary.Teacher{
		ID:         "teacher-anna",
		Name:       "Anna Kovaleva",
		Email:      "anna@example.com",
		HourlyRate: salary.NewMoneyFromInt(40),
		Active:     true,
	}
	if err := h.Store.SaveTeacher(ctx, teacher); err != nil {
		return err
	}

	students := []salary.Student{
		{ID: "stu-1", GroupID: "group-a1", Name: "Boris Ivanov", Active: true},
		{ID: "stu-2", GroupID: "group-a1", Name: "Carla Diaz", Active: true},
	}
	for _, s := range students {
		if err := h.Store.SaveStudent(ctx, s); err != nil {
			return err
		}
	}

	month := lastMonth()
	for i := 0; i < 8; i++ {
		lessonID := salary.LessonID(fmt.Sprintf("lesson-perfect-%d", i+1))
		scheduledAt := month.AddDate(0, 0, i*3).Add(10 * time.Hour)
		lesson := salary.LessonFact{
			LessonID:        lessonID,
			TeacherID:       teacher.ID,
			GroupID:         "group-a1",
			Name:            fmt.Sprintf("English A1 #%d", i+1),
			ScheduledAt:     scheduledAt,
			DurationMinutes: 60,
			HourlyRate:      teacher.HourlyRate,
			Status:          salary.LessonCompleted,
		}
		if err := h.Store.SaveLesson(ctx, lesson); err != nil {
			return err
		}

		for _, s := range students {
			if err := h.Store.MarkAttendance(ctx, lessonID, s.ID, true); err != nil {
				return err
			}
			if err := h.Store.AddFeedback(ctx, uuid.NewString(), lessonID, s.ID); err != nil {
				return err
			}
		}
		if err := h.Store.RecordMessage(ctx, lessonID, salary.MessageVoice, scheduledAt.Add(time.Hour)); err != nil {
			return err
		}
		if err := h.Store.RecordMessage(ctx, lessonID, salary.MessageText, scheduledAt.Add(2*time.Hour)); err != nil {
			return err
		}
	}

	_, err := h.Job.Generate(ctx, teacher.ID, month.Year(), month.Month())
	return err
}

func (h *Handler) loadMissedObligationsScenario(ctx context.Context) error {
	teacher := salary.Teacher{
		ID:         "teacher-marco",
		Name:       "Marco Rossi",
		Email:      "marco@example.com",
		HourlyRate: salary.NewMoneyFromInt(50),
		Active:     true,
	}
	if err := h.Store.SaveTeacher(ctx, teacher); err != nil {
		return err
	}

	students := []salary.Student{
		{ID: "stu-3", GroupID: "group-b2", Name: "Dmitri Volkov", Active: true},
		{ID: "stu-4", GroupID: "group-b2", Name: "Elena Petrova", Active: true},
		{ID: "stu-5", GroupID: "group-b2", Name: "Farid Aliyev", Active: true},
	}
	for _, s := range students {
		if err := h.Store.SaveStudent(ctx, s); err != nil {
			return err
		}
	}

	month := lastMonth()

	// Lesson 1: everything done
	l1 := salary.LessonID("lesson-miss-1")
	at1 := month.AddDate(0, 0, 2).Add(9 * time.Hour)
	if err := h.Store.SaveLesson(ctx, salary.LessonFact{
		LessonID: l1, TeacherID: teacher.ID, GroupID: "group-b2", Name: "Italian B2 #1",
		ScheduledAt: at1, DurationMinutes: 90, HourlyRate: teacher.HourlyRate,
		Status: salary.LessonCompleted,
	}); err != nil {
		return err
	}
	for _, s := range students {
		h.Store.MarkAttendance(ctx, l1, s.ID, true)
		h.Store.AddFeedback(ctx, uuid.NewString(), l1, s.ID)
	}
	h.Store.RecordMessage(ctx, l1, salary.MessageVoice, at1.Add(time.Hour))
	h.Store.RecordMessage(ctx, l1, salary.MessageText, at1.Add(time.Hour))

	// Lesson 2: attendance only, no feedback or messages
	l2 := salary.LessonID("lesson-miss-2")
	at2 := month.AddDate(0, 0, 9).Add(9 * time.Hour)
	if err := h.Store.SaveLesson(ctx, salary.LessonFact{
		LessonID: l2, TeacherID: teacher.ID, GroupID: "group-b2", Name: "Italian B2 #2",
		ScheduledAt: at2, DurationMinutes: 90, HourlyRate: teacher.HourlyRate,
		Status: salary.LessonCompleted,
	}); err != nil {
		return err
	}
	for _, s := range students {
		h.Store.MarkAttendance(ctx, l2, s.ID, false)
	}

	// Lesson 3: voice message sent BEFORE the lesson, so it does not count
	l3 := salary.LessonID("lesson-miss-3")
	at3 := month.AddDate(0, 0, 16).Add(9 * time.Hour)
	if err := h.Store.SaveLesson(ctx, salary.LessonFact{
		LessonID: l3, TeacherID: teacher.ID, GroupID: "group-b2", Name: "Italian B2 #3",
		ScheduledAt: at3, DurationMinutes: 90, HourlyRate: teacher.HourlyRate,
		Status: salary.LessonCompleted,
	}); err != nil {
		return err
	}
	for _, s := range students {
		h.Store.MarkAttendance(ctx, l3, s.ID, true)
		h.Store.AddFeedback(ctx, uuid.NewString(), l3, s.ID)
	}
	h.Store.RecordMessage(ctx, l3, salary.MessageVoice, at3.Add(-2*time.Hour))
	h.Store.RecordMessage(ctx, l3, salary.MessageText, at3.Add(time.Hour))

	// Lesson 4: nothing done at all, full deduction
	l4 := salary.LessonID("lesson-miss-4")
	at4 := month.AddDate(0, 0, 23).Add(9 * time.Hour)
	if err := h.Store.SaveLesson(ctx, salary.LessonFact{
		LessonID: l4, TeacherID: teacher.ID, GroupID: "group-b2", Name: "Italian B2 #4",
		ScheduledAt: at4, DurationMinutes: 90, HourlyRate: teacher.HourlyRate,
		Status: salary.LessonCompleted,
	}); err != nil {
		return err
	}

	_, err := h.Job.Generate(ctx, teacher.ID, month.Year(), month.Month())
	return err
}

func (h *Handler) loadMixedRosterScenario(ctx context.Context) error {
	teacher := salary.Teacher{
		ID:         "teacher-yuki",
		Name:       "Yuki Tanaka",
		Email:      "yuki@example.com",
		HourlyRate: salary.NewMoneyFromInt(45),
		Active:     true,
	}
	if err := h.Store.SaveTeacher(ctx, teacher); err != nil {
		return err
	}

	// One student left the group mid-course: still on the roster for
	// attendance history, but inactive, so feedback is not required.
	students := []salary.Student{
		{ID: "stu-6", GroupID: "group-jp1", Name: "Grete Larsen", Active: true},
		{ID: "stu-7", GroupID: "group-jp1", Name: "Hugo Meier", Active: false},
	}
	for _, s := range students {
		if err := h.Store.SaveStudent(ctx, s); err != nil {
			return err
		}
	}

	month := lastMonth()
	lessonID := salary.LessonID("lesson-mixed-1")
	at := month.AddDate(0, 0, 5).Add(14 * time.Hour)
	if err := h.Store.SaveLesson(ctx, salary.LessonFact{
		LessonID: lessonID, TeacherID: teacher.ID, GroupID: "group-jp1", Name: "Japanese N5 #1",
		ScheduledAt: at, DurationMinutes: 45, HourlyRate: teacher.HourlyRate,
		Status: salary.LessonCompleted,
	}); err != nil {
		return err
	}

	// Attendance covers the whole roster, feedback only the active student.
	for _, s := range students {
		if err := h.Store.MarkAttendance(ctx, lessonID, s.ID, s.Active); err != nil {
			return err
		}
	}
	if err := h.Store.AddFeedback(ctx, uuid.NewString(), lessonID, "stu-6"); err != nil {
		return err
	}
	h.Store.RecordMessage(ctx, lessonID, salary.MessageVoice, at.Add(30*time.Minute))
	h.Store.RecordMessage(ctx, lessonID, salary.MessageText, at.Add(time.Hour))

	_, err := h.Job.Generate(ctx, teacher.ID, month.Year(), month.Month())
	return err
}

func (h *Handler) loadPaidMonthScenario(ctx context.Context) error {
	if err := h.loadPerfectMonthScenario(ctx); err != nil {
		return err
	}

	month := lastMonth()
	record, err := h.Store.GetRecord(ctx, salary.Key{
		TeacherID: "teacher-anna",
		Year:      month.Year(),
		Month:     month.Month(),
	})
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("scenario seed produced no salary record")
	}

	return h.Store.MarkPaid(ctx, record.ID)
}
