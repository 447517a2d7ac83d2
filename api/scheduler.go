/*
scheduler.go - Automated payroll scheduler

PURPOSE:
  Periodically checks for active teachers whose previous month has no
  salary record yet and generates one automatically.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets the most recently closed calendar month
  - Skips teachers that already have a record for that month
  - Paid records are never touched; generation for a paid month fails
    with a conflict and is logged, not retried in the same pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPayrollScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateSalary endpoint (manual generation)
  - salary/job.go: GenerationJob
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lingua/salary-engine/salary"
	"github.com/lingua/salary-engine/store/sqlite"
)

// PayrollScheduler handles automated month-end salary generation.
type PayrollScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(store *sqlite.Store, handler *Handler) *PayrollScheduler {
	return &PayrollScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.wg.Add(1)

	go ps.run()

	log.Printf("[Scheduler] Started with check interval: %v", ps.CheckInterval)
}

// Stop stops the scheduler.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ps *PayrollScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.checkAndGenerate()

	for {
		select {
		case <-ps.ticker.C:
			ps.checkAndGenerate()
		case <-ps.stop:
			return
		}
	}
}

func (ps *PayrollScheduler) checkAndGenerate() {
	ctx := context.Background()
	now := time.Now().UTC()

	year, month := previousMonth(now)

	log.Printf("[Scheduler] Checking salaries for %d-%02d at %v", year, month, now.Format(time.RFC3339))

	teachers, err := ps.Store.ListTeachers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing teachers: %v", err)
		return
	}

	generatedCount := 0
	skippedCount := 0

	for _, t := range teachers {
		if !t.Active {
			continue
		}

		existing, err := ps.Store.GetRecord(ctx, salary.Key{TeacherID: t.ID, Year: year, Month: month})
		if err != nil {
			log.Printf("[Scheduler] Error checking salary for %s: %v", t.ID, err)
			continue
		}
		if existing != nil {
			skippedCount++
			continue
		}

		record, err := ps.Handler.Job.Generate(ctx, t.ID, year, month)
		if err != nil {
			log.Printf("[Scheduler] Error generating salary for %s: %v", t.ID, err)
			continue
		}

		generatedCount++
		log.Printf("[Scheduler] Generated %s for %s: gross=%s net=%s over %d lessons",
			record.ID, t.ID, record.Gross.String(), record.Net.String(), record.LessonsCount)
	}

	if generatedCount > 0 || skippedCount > 0 {
		log.Printf("[Scheduler] Completed: %d generated, %d skipped (already exist)", generatedCount, skippedCount)
	}
}

// previousMonth returns the most recently closed calendar month.
// Truncating to the first of the month before subtracting avoids
// AddDate's day normalization rolling month-end dates forward.
func previousMonth(now time.Time) (int, time.Month) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// RunNow triggers an immediate check (for testing/admin).
func (ps *PayrollScheduler) RunNow() {
	ps.checkAndGenerate()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ps *PayrollScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ps.CheckInterval)
}
