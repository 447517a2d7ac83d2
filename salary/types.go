/*
Package salary provides the teacher compensation engine.

PURPOSE:
  This package contains the types and algorithms that turn raw
  lesson-completion facts into monthly pay. A lesson earns its teacher a
  gross amount (duration x hourly rate snapshot); four per-lesson
  obligations (mark attendance, complete feedback, send a voice message,
  send a text message) each carry a configurable penalty percent, and
  missing obligations reduce the net amount accordingly.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal
  - LessonFact: Read-only projection of one completed lesson
  - ObligationState: The four per-lesson obligation booleans
  - Teacher/Lesson/Student IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Reproducibility: LessonFact carries the hourly rate SNAPSHOT taken
     when the lesson completed, so old salary runs never drift when a
     teacher's current rate changes
  3. Single rounding point: amounts are rounded half-up to the currency
     minor unit exactly once, in the deduction computation
  4. Type Safety: Strong typing for IDs prevents mixing teacher/lesson IDs

USAGE:
  gross := lesson.Gross()
  breakdown := salary.ComputeDeduction(gross, state, cfg)

SEE ALSO:
  - config.go: Validated obligation percent configuration
  - deduction.go: Penalty computation from obligation state
  - obligation.go: Deriving ObligationState from collaborator records
  - job.go: Monthly salary generation
*/
package salary

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal-backed monetary amount (single currency)
// =============================================================================

// minorUnitPlaces is the number of decimal places of the currency minor
// unit. All rounding in the engine targets this scale.
const minorUnitPlaces = 2

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) String() string                 { return m.Value.StringFixed(minorUnitPlaces) }

// RoundMinor rounds half-up to the currency minor unit. decimal.Round
// rounds half away from zero, which for the non-negative amounts this
// engine produces is exactly round-half-up.
func (m Money) RoundMinor() Money {
	return Money{Value: m.Value.Round(minorUnitPlaces)}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TeacherID string
type LessonID string
type GroupID string
type StudentID string
type SalaryID string

// =============================================================================
// LESSON FACT - Read-only projection of a completed lesson
// =============================================================================

type LessonStatus string

const (
	LessonScheduled LessonStatus = "scheduled"
	LessonCompleted LessonStatus = "completed"
	LessonCancelled LessonStatus = "cancelled"
)

// LessonFact is everything the engine needs to know about one lesson.
// HourlyRate is the teacher's rate captured when the lesson completed,
// not the teacher's current rate.
type LessonFact struct {
	LessonID        LessonID
	TeacherID       TeacherID
	GroupID         GroupID
	Name            string
	ScheduledAt     time.Time
	DurationMinutes int
	HourlyRate      Money
	Status          LessonStatus
}

// Gross returns the pre-deduction pay for the lesson, rounded to the
// minor unit: duration x hourly rate snapshot.
func (l LessonFact) Gross() Money {
	minutes := decimal.NewFromInt(int64(l.DurationMinutes))
	return l.HourlyRate.Mul(minutes).Div(decimal.NewFromInt(60)).RoundMinor()
}

// =============================================================================
// OBLIGATIONS - The four required teacher actions per lesson
// =============================================================================

type ObligationKind string

const (
	ObligationAbsence  ObligationKind = "absence"  // attendance marked for every enrolled student
	ObligationFeedback ObligationKind = "feedback" // feedback entry for every active student
	ObligationVoice    ObligationKind = "voice"    // voice message sent to the group chat
	ObligationText     ObligationKind = "text"     // text message sent to the group chat
)

// ObligationKinds lists the four kinds in their canonical order.
var ObligationKinds = []ObligationKind{
	ObligationAbsence,
	ObligationFeedback,
	ObligationVoice,
	ObligationText,
}

// ObligationState holds the per-lesson evaluation result. Computed, never
// persisted on its own; breakdown lines record the missing kinds instead.
type ObligationState struct {
	AbsenceMarked    bool
	FeedbackComplete bool
	VoiceSent        bool
	TextSent         bool
}

// Met reports whether the given obligation kind was fulfilled.
func (s ObligationState) Met(kind ObligationKind) bool {
	switch kind {
	case ObligationAbsence:
		return s.AbsenceMarked
	case ObligationFeedback:
		return s.FeedbackComplete
	case ObligationVoice:
		return s.VoiceSent
	case ObligationText:
		return s.TextSent
	default:
		return false
	}
}

// Missing returns the unmet kinds in canonical order.
func (s ObligationState) Missing() []ObligationKind {
	var missing []ObligationKind
	for _, kind := range ObligationKinds {
		if !s.Met(kind) {
			missing = append(missing, kind)
		}
	}
	return missing
}

// AllMet reports whether every obligation was fulfilled.
func (s ObligationState) AllMet() bool {
	return s.AbsenceMarked && s.FeedbackComplete && s.VoiceSent && s.TextSent
}

// =============================================================================
// TEACHER - Minimal roster entry consumed by the engine
// =============================================================================

// Teacher is the engine's view of a teacher record. HourlyRate here is the
// CURRENT rate, copied onto lessons as they complete.
type Teacher struct {
	ID         TeacherID
	Name       string
	Email      string
	HourlyRate Money
	Active     bool
}

// Student is the roster entry used to scope feedback completeness.
type Student struct {
	ID      StudentID
	GroupID GroupID
	Name    string
	Active  bool
}
