/*
obligation.go - Obligation tracker

PURPOSE:
  Derives the four per-lesson obligation booleans from the underlying
  attendance, feedback, messaging and roster records. The tracker only
  READS collaborators and returns a value object - calling it twice over
  unchanged records yields identical results.

THE FOUR CHECKS:
  AbsenceMarked:    an attendance record exists for EVERY enrolled student
                    (not "at least one"); an empty roster is vacuously true
  FeedbackComplete: every enrolled ACTIVE student has exactly one feedback
                    entry; inactive/withdrawn students are out of scope,
                    partial feedback counts as incomplete
  VoiceSent/TextSent: the messaging collaborator reports a message of that
                    kind, tagged with the lesson id, sent at or after the
                    lesson's scheduled time

INPUT CONSTRAINT:
  Only completed lessons may be evaluated. A non-completed lesson is a
  caller bug and fails with *InvalidLessonStateError.

SEE ALSO:
  - store.go: Collaborator interface definitions live with the other
    persistence interfaces
  - job.go: Runs the tracker per eligible lesson
*/
package salary

import (
	"context"
	"time"
)

// =============================================================================
// COLLABORATOR INTERFACES - Read-only views of external records
// =============================================================================

// MessageKind distinguishes the two required group-chat messages.
type MessageKind string

const (
	MessageVoice MessageKind = "voice"
	MessageText  MessageKind = "text"
)

// AttendanceSource reports which students have an attendance record for a
// lesson (present or absent - marking is what matters, not presence).
type AttendanceSource interface {
	MarkedStudents(ctx context.Context, lessonID LessonID) ([]StudentID, error)
}

// FeedbackSource reports feedback entry counts per student for a lesson.
type FeedbackSource interface {
	FeedbackCounts(ctx context.Context, lessonID LessonID) (map[StudentID]int, error)
}

// MessageSource reports whether a message of a kind was sent to the
// lesson's group chat, tagged with the lesson id.
type MessageSource interface {
	// MessageSentAt returns the send time and true if such a message
	// exists, or the zero time and false otherwise.
	MessageSentAt(ctx context.Context, lessonID LessonID, kind MessageKind) (sentAt time.Time, ok bool, err error)
}

// RosterSource lists the students enrolled in a group.
type RosterSource interface {
	EnrolledStudents(ctx context.Context, groupID GroupID) ([]Student, error)
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker evaluates per-lesson obligations. Stateless; safe for
// concurrent use across lessons.
type Tracker struct {
	Attendance AttendanceSource
	Feedback   FeedbackSource
	Messages   MessageSource
	Roster     RosterSource
}

func NewTracker(attendance AttendanceSource, feedback FeedbackSource, messages MessageSource, roster RosterSource) *Tracker {
	return &Tracker{
		Attendance: attendance,
		Feedback:   feedback,
		Messages:   messages,
		Roster:     roster,
	}
}

// Evaluate derives the obligation state for one completed lesson.
func (t *Tracker) Evaluate(ctx context.Context, lesson LessonFact) (ObligationState, error) {
	if lesson.Status != LessonCompleted {
		return ObligationState{}, &InvalidLessonStateError{LessonID: lesson.LessonID, Status: lesson.Status}
	}

	roster, err := t.Roster.EnrolledStudents(ctx, lesson.GroupID)
	if err != nil {
		return ObligationState{}, err
	}

	absenceMarked, err := t.absenceMarked(ctx, lesson, roster)
	if err != nil {
		return ObligationState{}, err
	}

	feedbackComplete, err := t.feedbackComplete(ctx, lesson, roster)
	if err != nil {
		return ObligationState{}, err
	}

	voiceSent, err := t.messageSent(ctx, lesson, MessageVoice)
	if err != nil {
		return ObligationState{}, err
	}

	textSent, err := t.messageSent(ctx, lesson, MessageText)
	if err != nil {
		return ObligationState{}, err
	}

	return ObligationState{
		AbsenceMarked:    absenceMarked,
		FeedbackComplete: feedbackComplete,
		VoiceSent:        voiceSent,
		TextSent:         textSent,
	}, nil
}

// absenceMarked requires an attendance record for every enrolled student,
// regardless of active status. Zero enrolled students is vacuously true.
func (t *Tracker) absenceMarked(ctx context.Context, lesson LessonFact, roster []Student) (bool, error) {
	if len(roster) == 0 {
		return true, nil
	}

	marked, err := t.Attendance.MarkedStudents(ctx, lesson.LessonID)
	if err != nil {
		return false, err
	}

	markedSet := make(map[StudentID]bool, len(marked))
	for _, id := range marked {
		markedSet[id] = true
	}

	for _, student := range roster {
		if !markedSet[student.ID] {
			return false, nil
		}
	}
	return true, nil
}

// feedbackComplete requires exactly one feedback entry per enrolled ACTIVE
// student. Inactive students are excluded from the requirement.
func (t *Tracker) feedbackComplete(ctx context.Context, lesson LessonFact, roster []Student) (bool, error) {
	counts, err := t.Feedback.FeedbackCounts(ctx, lesson.LessonID)
	if err != nil {
		return false, err
	}

	for _, student := range roster {
		if !student.Active {
			continue
		}
		if counts[student.ID] != 1 {
			return false, nil
		}
	}
	return true, nil
}

// messageSent requires a message of the kind tagged with the lesson id,
// sent at or after the lesson's scheduled time. Earlier sends don't count:
// a pre-lesson reminder is not the post-lesson follow-up.
func (t *Tracker) messageSent(ctx context.Context, lesson LessonFact, kind MessageKind) (bool, error) {
	sentAt, ok, err := t.Messages.MessageSentAt(ctx, lesson.LessonID, kind)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return !sentAt.Before(lesson.ScheduledAt), nil
}
