/*
scheduler.go - Automated assignment housekeeping

PURPOSE:
  Periodically sweeps committed assignments: marks Active assignments
  Completed once their end date has passed, and reminds the approver
  role about assignments ending soon.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Idempotent: marking an already-Completed assignment is a no-op, and
    each reminder is sent at most once per process lifetime
  - Safe to run concurrently with user-driven transitions: Completed is
    an assignment-level status and never conflicts with the terminal
    Approved/Rejected allocation states

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - ReminderWindow: How far ahead to look for ending assignments
    (default: 7 days)

USAGE:
  scheduler := NewHousekeepingScheduler(store, notifier)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - allocation/store.go: Assignments interface
  - handlers.go: GetDashboard shows the same ending-soon view
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/allocation-engine/allocation"
)

// HousekeepingScheduler sweeps assignments on a timer.
type HousekeepingScheduler struct {
	Store          allocation.Assignments
	Notifier       allocation.Notifier
	CheckInterval  time.Duration
	ReminderWindow int // days

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	reminded map[allocation.AssignmentID]bool
}

// NewHousekeepingScheduler creates a scheduler with default settings.
func NewHousekeepingScheduler(store allocation.Assignments, notifier allocation.Notifier) *HousekeepingScheduler {
	return &HousekeepingScheduler{
		Store:          store,
		Notifier:       notifier,
		CheckInterval:  1 * time.Hour,
		ReminderWindow: 7,
		stop:           make(chan struct{}),
		reminded:       make(map[allocation.AssignmentID]bool),
	}
}

// Start begins the scheduler.
func (hs *HousekeepingScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.wg.Add(1)
	go hs.run(hs.ticker)

	log.Printf("[Housekeeping] Started with check interval: %v", hs.CheckInterval)
}

// Stop stops the scheduler and waits for the current sweep to finish.
func (hs *HousekeepingScheduler) Stop() {
	hs.mu.Lock()
	ticker := hs.ticker
	hs.ticker = nil
	hs.mu.Unlock()

	// The lock is released before waiting: a running sweep takes it to
	// record reminders.
	if ticker != nil {
		ticker.Stop()
		close(hs.stop)
		hs.wg.Wait()
		log.Println("[Housekeeping] Stopped")
	}
}

func (hs *HousekeepingScheduler) run(ticker *time.Ticker) {
	defer hs.wg.Done()

	// Run immediately on start
	hs.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			hs.Sweep(context.Background())
		case <-hs.stop:
			return
		}
	}
}

// Sweep runs one housekeeping pass. Exported so it can be triggered
// directly in tests and admin tooling.
func (hs *HousekeepingScheduler) Sweep(ctx context.Context) {
	today := allocation.Today()

	active, err := hs.Store.ListAssignments(ctx, allocation.AssignmentActive)
	if err != nil {
		log.Printf("[Housekeeping] Error listing assignments: %v", err)
		return
	}

	completed := 0
	reminded := 0
	for _, a := range active {
		if a.Window.End.Before(today) {
			if err := hs.Store.SetAssignmentStatus(ctx, a.ID, allocation.AssignmentCompleted); err != nil {
				log.Printf("[Housekeeping] Error completing assignment %s: %v", a.ID, err)
				continue
			}
			completed++
			continue
		}

		if allocation.DaysBetween(today, a.Window.End) <= hs.ReminderWindow && hs.markReminded(a.ID) {
			hs.send(ctx, allocation.Notification{
				Recipient: string(allocation.RoleApprover),
				Subject:   fmt.Sprintf("Assignment ending soon: %s", a.ID),
				Body: fmt.Sprintf("Employee %s on project %s ends %s (%d days remaining).",
					a.Employee, a.Project, a.Window.End, allocation.DaysBetween(today, a.Window.End)),
				Severity: allocation.SeverityAlert,
			})
			reminded++
		}
	}

	if completed > 0 || reminded > 0 {
		log.Printf("[Housekeeping] Completed sweep: %d assignments completed, %d reminders sent", completed, reminded)
	}
}

func (hs *HousekeepingScheduler) markReminded(id allocation.AssignmentID) bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.reminded[id] {
		return false
	}
	hs.reminded[id] = true
	return true
}

func (hs *HousekeepingScheduler) send(ctx context.Context, n allocation.Notification) {
	if hs.Notifier == nil {
		return
	}
	if err := hs.Notifier.Send(ctx, n); err != nil {
		log.Printf("[Housekeeping] notification delivery failed: %v", err)
	}
}
