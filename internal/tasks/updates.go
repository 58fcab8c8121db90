package tasks

import (
	"fmt"

	"github.com/desertthunder/removarr/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadAccounts Phase = iota
	VerifyLibrary
	ScanAccount
	Completed
	SweepAccount
)

func (p Phase) String() string {
	switch p {
	case LoadAccounts:
		return "load_accounts"
	case VerifyLibrary:
		return "verify_library"
	case ScanAccount:
		return "scan_account"
	case Completed:
		return "completed"
	case SweepAccount:
		return "sweep_account"
	default:
		return ""
	}
}

func loadAccountsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadAccounts,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d linked account(s)", count),
	}
}

func verifyLibraryUpdate(e models.Event) ProgressUpdate {
	return ProgressUpdate{
		Phase:   VerifyLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking Plex library for %s (%s)...", e.Title, e.YearString()),
	}
}

func scanAccountUpdate(step, total int, detail string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanAccount,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, detail),
	}
}

func completedUpdate(r models.ReconciliationResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    r.ScannedAccounts,
		Total:   r.ScannedAccounts,
		Message: fmt.Sprintf("Removed from %d of %d watchlist(s)", r.Removed, r.ScannedAccounts),
		Data:    r,
	}
}

func sweepAccountUpdate(step, total int, label string, ok bool, msg string) ProgressUpdate {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   SweepAccount,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s: %s", step, total, mark, label, msg),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
