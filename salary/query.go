/*
query.go - Salary breakdown query

PURPOSE:
  Returns the per-lesson breakdown EXACTLY as it was persisted by the
  last successful generation run. The query never recomputes from live
  obligation state: a breakdown shown for a paid salary stays stable even
  if a student's feedback is backfilled or attendance is edited later.

ORDERING:
  Default is lesson date ascending. Callers can sort by lesson name or by
  any of the three amounts; ties always break by lesson date ascending,
  then lesson id, so orderings are stable and reproducible.

SEE ALSO:
  - job.go: Writes the lines this reads
  - record.go: BreakdownLine
*/
package salary

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// LINE ORDERING
// =============================================================================

type LineOrder string

const (
	OrderByDate      LineOrder = "date" // default
	OrderByName      LineOrder = "name"
	OrderByGross     LineOrder = "gross"
	OrderByDeduction LineOrder = "deduction"
	OrderByNet       LineOrder = "net"
)

// ParseLineOrder maps a query-string value to an order, defaulting to
// date for the empty string.
func ParseLineOrder(s string) (LineOrder, error) {
	switch LineOrder(s) {
	case "", OrderByDate:
		return OrderByDate, nil
	case OrderByName, OrderByGross, OrderByDeduction, OrderByNet:
		return LineOrder(s), nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// =============================================================================
// BREAKDOWN QUERY
// =============================================================================

// BreakdownQuery reads persisted breakdown lines for audit/UI display.
type BreakdownQuery struct {
	Store SalaryStore
}

// Breakdown returns the stored lines for the teacher-month in the given
// order, with the parent record for the aggregates.
// Returns ErrSalaryNotFound when no record exists.
func (q *BreakdownQuery) Breakdown(ctx context.Context, teacherID TeacherID, year int, month time.Month, order LineOrder) (*SalaryRecord, []BreakdownLine, error) {
	record, err := q.Store.GetRecord(ctx, Key{TeacherID: teacherID, Year: year, Month: month})
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, fmt.Errorf("breakdown for %s %d-%02d: %w", teacherID, year, int(month), ErrSalaryNotFound)
	}

	lines, err := q.Store.Lines(ctx, record.ID)
	if err != nil {
		return nil, nil, err
	}

	sortLines(lines, order)
	return record, lines, nil
}

// sortLines orders lines by the requested field with the stable
// tie-break: lesson date ascending, then lesson id.
func sortLines(lines []BreakdownLine, order LineOrder) {
	less := func(a, b BreakdownLine) bool {
		switch order {
		case OrderByName:
			if a.LessonName != b.LessonName {
				return a.LessonName < b.LessonName
			}
		case OrderByGross:
			if !a.Gross.Equal(b.Gross) {
				return b.Gross.GreaterThan(a.Gross)
			}
		case OrderByDeduction:
			if !a.Deduction.Equal(b.Deduction) {
				return b.Deduction.GreaterThan(a.Deduction)
			}
		case OrderByNet:
			if !a.Net.Equal(b.Net) {
				return b.Net.GreaterThan(a.Net)
			}
		}
		if !a.LessonDate.Equal(b.LessonDate) {
			return a.LessonDate.Before(b.LessonDate)
		}
		return a.LessonID < b.LessonID
	}
	sort.SliceStable(lines, func(i, k int) bool { return less(lines[i], lines[k]) })
}
