// Package store provides in-memory implementations of the salary
// persistence and collaborator interfaces, for testing and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lingua/salary-engine/salary"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements salary.LessonSource, salary.SettingsStore,
// salary.SalaryStore and the four obligation collaborator interfaces.
// A single mutex keeps it safe for the job's concurrent evaluation.
type Memory struct {
	mu sync.RWMutex

	teachers map[salary.TeacherID]salary.Teacher
	lessons  map[salary.LessonID]salary.LessonFact
	students map[salary.GroupID][]salary.Student

	attendance map[salary.LessonID]map[salary.StudentID]bool
	feedback   map[salary.LessonID]map[salary.StudentID]int
	messages   map[salary.LessonID]map[salary.MessageKind]time.Time

	config  *salary.ObligationConfig
	records map[salary.Key]salary.SalaryRecord
	lines   map[salary.SalaryID][]salary.BreakdownLine
}

func NewMemory() *Memory {
	return &Memory{
		teachers:   make(map[salary.TeacherID]salary.Teacher),
		lessons:    make(map[salary.LessonID]salary.LessonFact),
		students:   make(map[salary.GroupID][]salary.Student),
		attendance: make(map[salary.LessonID]map[salary.StudentID]bool),
		feedback:   make(map[salary.LessonID]map[salary.StudentID]int),
		messages:   make(map[salary.LessonID]map[salary.MessageKind]time.Time),
		records:    make(map[salary.Key]salary.SalaryRecord),
		lines:      make(map[salary.SalaryID][]salary.BreakdownLine),
	}
}

// =============================================================================
// FACT SEEDING - Test setup helpers
// =============================================================================

func (m *Memory) PutTeacher(t salary.Teacher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[t.ID] = t
}

func (m *Memory) PutLesson(l salary.LessonFact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[l.LessonID] = l
}

func (m *Memory) PutStudent(s salary.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.GroupID] = append(m.students[s.GroupID], s)
}

func (m *Memory) MarkAttendance(lessonID salary.LessonID, studentID salary.StudentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attendance[lessonID] == nil {
		m.attendance[lessonID] = make(map[salary.StudentID]bool)
	}
	m.attendance[lessonID][studentID] = true
}

func (m *Memory) AddFeedback(lessonID salary.LessonID, studentID salary.StudentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feedback[lessonID] == nil {
		m.feedback[lessonID] = make(map[salary.StudentID]int)
	}
	m.feedback[lessonID][studentID]++
}

func (m *Memory) RecordMessage(lessonID salary.LessonID, kind salary.MessageKind, sentAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages[lessonID] == nil {
		m.messages[lessonID] = make(map[salary.MessageKind]time.Time)
	}
	m.messages[lessonID][kind] = sentAt
}

// =============================================================================
// LESSON SOURCE
// =============================================================================

func (m *Memory) CompletedLessons(_ context.Context, teacherID salary.TeacherID, period salary.Period) ([]salary.LessonFact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []salary.LessonFact
	for _, l := range m.lessons {
		if l.TeacherID == teacherID && l.Status == salary.LessonCompleted && period.Contains(l.ScheduledAt) {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		if !result[i].ScheduledAt.Equal(result[k].ScheduledAt) {
			return result[i].ScheduledAt.Before(result[k].ScheduledAt)
		}
		return result[i].LessonID < result[k].LessonID
	})
	return result, nil
}

func (m *Memory) GetTeacher(_ context.Context, teacherID salary.TeacherID) (*salary.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teachers[teacherID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// =============================================================================
// OBLIGATION COLLABORATORS
// =============================================================================

func (m *Memory) MarkedStudents(_ context.Context, lessonID salary.LessonID) ([]salary.StudentID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []salary.StudentID
	for id := range m.attendance[lessonID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) FeedbackCounts(_ context.Context, lessonID salary.LessonID) (map[salary.StudentID]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[salary.StudentID]int, len(m.feedback[lessonID]))
	for id, n := range m.feedback[lessonID] {
		counts[id] = n
	}
	return counts, nil
}

func (m *Memory) MessageSentAt(_ context.Context, lessonID salary.LessonID, kind salary.MessageKind) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sentAt, ok := m.messages[lessonID][kind]
	return sentAt, ok, nil
}

func (m *Memory) EnrolledStudents(_ context.Context, groupID salary.GroupID) ([]salary.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]salary.Student, len(m.students[groupID]))
	copy(result, m.students[groupID])
	return result, nil
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (m *Memory) ObligationConfig(_ context.Context) (salary.ObligationConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return salary.DefaultObligationConfig(), nil
	}
	return *m.config, nil
}

func (m *Memory) UpdateObligationConfig(_ context.Context, cfg salary.ObligationConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = &cfg
	return nil
}

// =============================================================================
// SALARY STORE
// =============================================================================

func (m *Memory) GetRecord(_ context.Context, key salary.Key) (*salary.SalaryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRecordLocked(key), nil
}

func (m *Memory) getRecordLocked(key salary.Key) *salary.SalaryRecord {
	r, ok := m.records[key]
	if !ok {
		return nil
	}
	return &r
}

func (m *Memory) RecordsByTeacher(_ context.Context, teacherID salary.TeacherID) ([]salary.SalaryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []salary.SalaryRecord
	for _, r := range m.records {
		if r.TeacherID == teacherID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		if result[i].Year != result[k].Year {
			return result[i].Year > result[k].Year
		}
		return result[i].Month > result[k].Month
	})
	return result, nil
}

func (m *Memory) Lines(_ context.Context, salaryID salary.SalaryID) ([]salary.BreakdownLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]salary.BreakdownLine, len(m.lines[salaryID]))
	copy(result, m.lines[salaryID])
	return result, nil
}

// WithTx serializes writers with the store mutex. The memory store cannot
// race, so ErrConcurrentModification never surfaces here.
func (m *Memory) WithTx(_ context.Context, fn func(salary.SalaryWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryWriter{store: m})
}

type memoryWriter struct {
	store *Memory
}

func (w *memoryWriter) GetRecord(_ context.Context, key salary.Key) (*salary.SalaryRecord, error) {
	return w.store.getRecordLocked(key), nil
}

func (w *memoryWriter) ReplaceRecord(_ context.Context, record salary.SalaryRecord, lines []salary.BreakdownLine) error {
	if existing := w.store.getRecordLocked(record.Key()); existing != nil {
		delete(w.store.lines, existing.ID)
	}
	w.store.records[record.Key()] = record
	stored := make([]salary.BreakdownLine, len(lines))
	copy(stored, lines)
	w.store.lines[record.ID] = stored
	return nil
}

// MarkPaid flips a record to paid status (stand-in for the payment
// workflow in tests).
func (m *Memory) MarkPaid(key salary.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.records[key]; ok {
		r.Status = salary.SalaryPaid
		m.records[key] = r
	}
}
