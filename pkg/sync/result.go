package sync

import (
	"fmt"
	"strings"

	"github.com/agentstation/gdcard/pkg/catalog"
)

// Outcome is how a save ended.
type Outcome int

const (
	// Committed means the card was rewritten.
	Committed Outcome = iota
	// Declined means the confirmation prompt was answered no.
	Declined
	// Canceled means the user stopped the save before anything was written.
	Canceled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Declined:
		return "declined"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// EntryFailure is an entry that could not be placed in unattended mode.
type EntryFailure struct {
	Entry *catalog.Entry
	Name  string
	Slot  int // slot the entry was meant to take
	Err   error
}

// Result represents the result of a Save.
type Result struct {
	Outcome  Outcome
	Placed   int            // Entries now on the card, menu excluded
	Failures []EntryFailure // Entries skipped in unattended mode
	Menu     *catalog.Entry // The rebuilt menu entry
	TempDir  string         // Scratch folder used by the save
}

// HasFailures returns true if any entry was skipped.
func (r *Result) HasFailures() bool {
	return len(r.Failures) > 0
}

// Summary returns a human-readable summary of the save result.
func (r *Result) Summary() string {
	switch r.Outcome {
	case Declined:
		return "Save declined, card unchanged"
	case Canceled:
		return "Save canceled, card unchanged"
	}

	summary := fmt.Sprintf("%d games written", r.Placed)
	if r.HasFailures() {
		names := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			names = append(names, f.Name)
		}
		summary += fmt.Sprintf(", %d failed (%s)", len(r.Failures), strings.Join(names, ", "))
	}
	return summary
}
