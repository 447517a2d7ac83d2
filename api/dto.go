/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request DTOs carry go-playground/validator struct tags; handlers run
  them through the package-level validator before touching the domain.
  Domain invariants (percents sum to 100) are still enforced by the
  domain constructors - the tags only catch malformed input early.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lingua/salary-engine/salary"
)

// validate is the shared validator instance for request DTOs.
var validate = validator.New()

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// TEACHER / ROSTER TYPES
// =============================================================================

// TeacherDTO represents a teacher in API responses.
type TeacherDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	HourlyRate string `json:"hourly_rate"`
	Active     bool   `json:"active"`
}

// SaveTeacherRequest creates or updates a teacher.
type SaveTeacherRequest struct {
	ID         string  `json:"id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Email      string  `json:"email" validate:"omitempty,email"`
	HourlyRate float64 `json:"hourly_rate" validate:"gt=0"`
	Active     bool    `json:"active"`
}

// SaveStudentRequest creates or updates a roster entry.
type SaveStudentRequest struct {
	ID      string `json:"id" validate:"required"`
	GroupID string `json:"group_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Active  bool   `json:"active"`
}

// =============================================================================
// LESSON / FACT TYPES
// =============================================================================

// SaveLessonRequest records a lesson. The hourly rate snapshot defaults
// to the teacher's current rate when omitted.
type SaveLessonRequest struct {
	ID              string   `json:"id" validate:"required"`
	TeacherID       string   `json:"teacher_id" validate:"required"`
	GroupID         string   `json:"group_id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	ScheduledAt     string   `json:"scheduled_at" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"gt=0"`
	HourlyRate      *float64 `json:"hourly_rate,omitempty" validate:"omitempty,gt=0"`
	Status          string   `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// LessonDTO represents a lesson in API responses.
type LessonDTO struct {
	ID              string `json:"id"`
	TeacherID       string `json:"teacher_id"`
	GroupID         string `json:"group_id"`
	Name            string `json:"name"`
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
	HourlyRate      string `json:"hourly_rate"`
	Status          string `json:"status"`
}

// MarkAttendanceRequest records attendance marks for a lesson.
type MarkAttendanceRequest struct {
	Marks []AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}

type AttendanceMark struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
}

// AddFeedbackRequest records one feedback entry for a lesson.
type AddFeedbackRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// RecordMessageRequest records a "message sent" fact for a lesson.
type RecordMessageRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=voice text"`
	SentAt string `json:"sent_at" validate:"required"`
}

// =============================================================================
// SETTINGS TYPES
// =============================================================================

// ObligationConfigDTO is both the response shape and the update request
// for the obligation percent singleton.
type ObligationConfigDTO struct {
	AbsencePercent  int `json:"absence_percent" validate:"min=0,max=100"`
	FeedbackPercent int `json:"feedback_percent" validate:"min=0,max=100"`
	VoicePercent    int `json:"voice_percent" validate:"min=0,max=100"`
	TextPercent     int `json:"text_percent" validate:"min=0,max=100"`
}

// =============================================================================
// SALARY TYPES
// =============================================================================

// GenerateSalaryRequest triggers generation for one teacher-month.
type GenerateSalaryRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Year      int    `json:"year" validate:"gte=2000,lte=2100"`
	Month     int    `json:"month" validate:"gte=1,lte=12"`
}

// GenerateAllRequest triggers generation for every active teacher.
type GenerateAllRequest struct {
	Year  int `json:"year" validate:"gte=2000,lte=2100"`
	Month int `json:"month" validate:"gte=1,lte=12"`
}

// SalaryDTO represents a salary record in API responses.
type SalaryDTO struct {
	ID           string `json:"id"`
	TeacherID    string `json:"teacher_id"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	LessonsCount int    `json:"lessons_count"`
	Gross        string `json:"gross"`
	Deduction    string `json:"deduction"`
	Net          string `json:"net"`
	Status       string `json:"status"`
	GeneratedAt  string `json:"generated_at"`
}

func salaryDTO(r salary.SalaryRecord) SalaryDTO {
	return SalaryDTO{
		ID:           string(r.ID),
		TeacherID:    string(r.TeacherID),
		Year:         r.Year,
		Month:        int(r.Month),
		LessonsCount: r.LessonsCount,
		Gross:        r.Gross.String(),
		Deduction:    r.Deduction.String(),
		Net:          r.Net.String(),
		Status:       string(r.Status),
		GeneratedAt:  r.GeneratedAt.Format(time.RFC3339),
	}
}

// BreakdownLineDTO represents one per-lesson derivation row.
type BreakdownLineDTO struct {
	LessonID   string   `json:"lesson_id"`
	LessonName string   `json:"lesson_name"`
	LessonDate string   `json:"lesson_date"`
	Gross      string   `json:"gross"`
	Deduction  string   `json:"deduction"`
	Net        string   `json:"net"`
	Missing    []string `json:"missing_obligations"`
}

func breakdownLineDTO(l salary.BreakdownLine) BreakdownLineDTO {
	missing := make([]string, len(l.Missing))
	for i, kind := range l.Missing {
		missing[i] = string(kind)
	}
	return BreakdownLineDTO{
		LessonID:   string(l.LessonID),
		LessonName: l.LessonName,
		LessonDate: l.LessonDate.Format(time.RFC3339),
		Gross:      l.Gross.String(),
		Deduction:  l.Deduction.String(),
		Net:        l.Net.String(),
		Missing:    missing,
	}
}

// BreakdownDTO wraps the aggregate record and its lines.
type BreakdownDTO struct {
	Salary SalaryDTO          `json:"salary"`
	Lines  []BreakdownLineDTO `json:"lines"`
}

// GenerateAllResultDTO reports the per-teacher outcome of a batch run.
type GenerateAllResultDTO struct {
	Generated []SalaryDTO       `json:"generated"`
	Failed    map[string]string `json:"failed,omitempty"`
}
