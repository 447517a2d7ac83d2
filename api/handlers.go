/*
handlers.go - HTTP API handlers for the salary engine

PURPOSE:
  Exposes the compensation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Teachers:
    GET    /api/teachers                    List all teachers
    POST   /api/teachers                    Create/update teacher
    GET    /api/teachers/{id}               Get teacher details
    GET    /api/teachers/{id}/salaries      Salary history
    GET    /api/teachers/{id}/salaries/{year}/{month}  Salary breakdown

  Lessons & facts:
    POST   /api/lessons                     Record a lesson
    GET    /api/lessons/{id}                Get a recorded lesson
    POST   /api/students                    Create/update roster entry
    POST   /api/lessons/{id}/attendance     Record attendance marks
    POST   /api/lessons/{id}/feedback       Record a feedback entry
    POST   /api/lessons/{id}/messages       Record a voice/text message fact

  Settings:
    GET    /api/settings/obligations        Current obligation percents
    PUT    /api/settings/obligations        Update obligation percents

  Salaries:
    POST   /api/salaries/generate           Generate one teacher-month
    POST   /api/salaries/generate-all       Generate all active teachers
    POST   /api/salaries/{id}/pay           Mark a salary as paid

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Job: Salary generation pipeline
  - Query: Breakdown reads

ERROR HANDLING:
  Domain errors are mapped to HTTP status through the salary package
  classifiers:
  - 400: Validation errors, invalid input (IsClientError)
  - 404: Record not found (IsNotFound)
  - 409: Paid-salary conflict, concurrent modification (IsConflict)
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lingua/salary-engine/salary"
	"github.com/lingua/salary-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Job   *salary.GenerationJob
	Query *salary.BreakdownQuery

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Job: &salary.GenerationJob{
			Lessons:  store,
			Settings: store,
			Tracker:  salary.NewTracker(store, store, store, store),
			Store:    store,
		},
		Query: &salary.BreakdownQuery{Store: store},
	}
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.Store.ListTeachers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	dtos := make([]TeacherDTO, len(teachers))
	for i, t := range teachers {
		dtos[i] = teacherDTO(t)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetTeacher returns a single teacher.
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id := salary.TeacherID(chi.URLParam(r, "id"))

	teacher, err := h.Store.GetTeacher(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get teacher", err)
		return
	}
	if teacher == nil {
		writeError(w, http.StatusNotFound, "Teacher not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, teacherDTO(*teacher))
}

// SaveTeacher creates or updates a teacher.
func (h *Handler) SaveTeacher(w http.ResponseWriter, r *http.Request) {
	var req SaveTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	teacher := salary.Teacher{
		ID:         salary.TeacherID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		HourlyRate: salary.NewMoney(req.HourlyRate),
		Active:     req.Active,
	}

	if err := h.Store.SaveTeacher(r.Context(), teacher); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save teacher", err)
		return
	}

	writeJSON(w, http.StatusCreated, teacherDTO(teacher))
}

func teacherDTO(t salary.Teacher) TeacherDTO {
	return TeacherDTO{
		ID:         string(t.ID),
		Name:       t.Name,
		Email:      t.Email,
		HourlyRate: t.HourlyRate.String(),
		Active:     t.Active,
	}
}

// SaveStudent creates or updates a roster entry.
func (h *Handler) SaveStudent(w http.ResponseWriter, r *http.Request) {
	var req SaveStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	student := salary.Student{
		ID:      salary.StudentID(req.ID),
		GroupID: salary.GroupID(req.GroupID),
		Name:    req.Name,
		Active:  req.Active,
	}

	if err := h.Store.SaveStudent(r.Context(), student); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save student", err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// LESSON & FACT HANDLERS
// =============================================================================

// SaveLesson records a lesson.
func (h *Handler) SaveLesson(w http.ResponseWriter, r *http.Request) {
	var req SaveLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_at format (use RFC3339)", err)
		return
	}

	ctx := r.Context()

	// Snapshot the hourly rate at recording time so later rate changes
	// never alter past lessons.
	var rate salary.Money
	if req.HourlyRate != nil {
		rate = salary.NewMoney(*req.HourlyRate)
	} else {
		teacher, err := h.Store.GetTeacher(ctx, salary.TeacherID(req.TeacherID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get teacher", err)
			return
		}
		if teacher == nil {
			writeError(w, http.StatusNotFound, "Teacher not found", nil)
			return
		}
		rate = teacher.HourlyRate
	}

	status := salary.LessonStatus(req.Status)
	if req.Status == "" {
		status = salary.LessonScheduled
	}

	lesson := salary.LessonFact{
		LessonID:        salary.LessonID(req.ID),
		TeacherID:       salary.TeacherID(req.TeacherID),
		GroupID:         salary.GroupID(req.GroupID),
		Name:            req.Name,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		HourlyRate:      rate,
		Status:          status,
	}

	if err := h.Store.SaveLesson(ctx, lesson); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save lesson", err)
		return
	}

	writeJSON(w, http.StatusCreated, lessonDTO(lesson))
}

func lessonDTO(l salary.LessonFact) LessonDTO {
	return LessonDTO{
		ID:              string(l.LessonID),
		TeacherID:       string(l.TeacherID),
		GroupID:         string(l.GroupID),
		Name:            l.Name,
		ScheduledAt:     l.ScheduledAt.Format(time.RFC3339),
		DurationMinutes: l.DurationMinutes,
		HourlyRate:      l.HourlyRate.String(),
		Status:          string(l.Status),
	}
}

// GetLesson returns a single recorded lesson.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id := salary.LessonID(chi.URLParam(r, "id"))

	lesson, err := h.Store.GetLesson(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get lesson", err)
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "Lesson not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, lessonDTO(*lesson))
}

// MarkAttendance records attendance marks for a lesson.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	lessonID := salary.LessonID(chi.URLParam(r, "id"))

	var req MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	ctx := r.Context()
	for _, mark := range req.Marks {
		if err := h.Store.MarkAttendance(ctx, lessonID, salary.StudentID(mark.StudentID), mark.Present); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to record attendance", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "recorded",
		"count":  len(req.Marks),
	})
}

// AddFeedback records one feedback entry for a lesson.
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	lessonID := salary.LessonID(chi.URLParam(r, "id"))

	var req AddFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	if err := h.Store.AddFeedback(r.Context(), uuid.NewString(), lessonID, salary.StudentID(req.StudentID)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record feedback", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// RecordMessage records a voice or text message fact for a lesson.
func (h *Handler) RecordMessage(w http.ResponseWriter, r *http.Request) {
	lessonID := salary.LessonID(chi.URLParam(r, "id"))

	var req RecordMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	sentAt, err := time.Parse(time.RFC3339, req.SentAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sent_at format (use RFC3339)", err)
		return
	}

	if err := h.Store.RecordMessage(r.Context(), lessonID, salary.MessageKind(req.Kind), sentAt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record message", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetObligationSettings returns the current obligation percents.
func (h *Handler) GetObligationSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.ObligationConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}

	writeJSON(w, http.StatusOK, ObligationConfigDTO{
		AbsencePercent:  cfg.AbsencePercent(),
		FeedbackPercent: cfg.FeedbackPercent(),
		VoicePercent:    cfg.VoicePercent(),
		TextPercent:     cfg.TextPercent(),
	})
}

// UpdateObligationSettings replaces the obligation percents. The four
// values must each be in [0,100] and sum to exactly 100; anything else
// is rejected and the stored config stays untouched.
func (h *Handler) UpdateObligationSettings(w http.ResponseWriter, r *http.Request) {
	var req ObligationConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := salary.NewObligationConfig(req.AbsencePercent, req.FeedbackPercent, req.VoicePercent, req.TextPercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid obligation configuration", err)
		return
	}

	if err := h.Store.UpdateObligationConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// SALARY HANDLERS
// =============================================================================

// GenerateSalary generates (or regenerates) one teacher-month.
func (h *Handler) GenerateSalary(w http.ResponseWriter, r *http.Request) {
	var req GenerateSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	record, err := h.Job.Generate(r.Context(), salary.TeacherID(req.TeacherID), req.Year, time.Month(req.Month))
	if err != nil {
		writeDomainError(w, "Failed to generate salary", err)
		return
	}

	writeJSON(w, http.StatusCreated, salaryDTO(*record))
}

// GenerateAllSalaries generates the given month for every active teacher.
// Per-teacher failures are reported without aborting the batch.
func (h *Handler) GenerateAllSalaries(w http.ResponseWriter, r *http.Request) {
	var req GenerateAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	ctx := r.Context()
	teachers, err := h.Store.ListTeachers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teachers", err)
		return
	}

	// Teacher-months are independent, so the batch fans out one
	// goroutine per active teacher.
	result := GenerateAllResultDTO{Generated: []SalaryDTO{}}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, t := range teachers {
		if !t.Active {
			continue
		}
		wg.Add(1)
		go func(t salary.Teacher) {
			defer wg.Done()
			record, err := h.Job.Generate(ctx, t.ID, req.Year, time.Month(req.Month))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if result.Failed == nil {
					result.Failed = make(map[string]string)
				}
				result.Failed[string(t.ID)] = err.Error()
				return
			}
			result.Generated = append(result.Generated, salaryDTO(*record))
		}(t)
	}
	wg.Wait()

	sort.Slice(result.Generated, func(i, j int) bool {
		return result.Generated[i].TeacherID < result.Generated[j].TeacherID
	})

	writeJSON(w, http.StatusOK, result)
}

// ListSalaries returns a teacher's salary history.
func (h *Handler) ListSalaries(w http.ResponseWriter, r *http.Request) {
	teacherID := salary.TeacherID(chi.URLParam(r, "id"))

	records, err := h.Store.RecordsByTeacher(r.Context(), teacherID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list salaries", err)
		return
	}

	dtos := make([]SalaryDTO, len(records))
	for i, rec := range records {
		dtos[i] = salaryDTO(rec)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetBreakdown returns the per-lesson breakdown behind one teacher-month.
// Supports ?sort=date|name|gross|deduction|net (default date).
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	teacherID := salary.TeacherID(chi.URLParam(r, "id"))

	year, month, ok := parseYearMonth(w, chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if !ok {
		return
	}

	order, err := salary.ParseLineOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sort order", err)
		return
	}

	record, lines, err := h.Query.Breakdown(r.Context(), teacherID, year, month, order)
	if err != nil {
		writeDomainError(w, "Failed to load breakdown", err)
		return
	}

	lineDTOs := make([]BreakdownLineDTO, len(lines))
	for i, l := range lines {
		lineDTOs[i] = breakdownLineDTO(l)
	}

	writeJSON(w, http.StatusOK, BreakdownDTO{
		Salary: salaryDTO(*record),
		Lines:  lineDTOs,
	})
}

// MarkPaid finalizes a pending salary. Paid salaries can no longer be
// regenerated.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id := salary.SalaryID(chi.URLParam(r, "id"))

	if err := h.Store.MarkPaid(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to mark salary paid", err)
		return
	}

	record, err := h.Store.GetRecordByID(r.Context(), id)
	if err != nil || record == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load paid salary", err)
		return
	}

	writeJSON(w, http.StatusOK, salaryDTO(*record))
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case salary.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case salary.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case salary.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseYearMonth(w http.ResponseWriter, yearStr, monthStr string) (int, time.Month, bool) {
	t, err := time.Parse("2006/1", yearStr+"/"+monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month in path", err)
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}
