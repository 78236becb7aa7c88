// Package report aggregates the per-document outcomes of a run. Warnings
// and skips never disappear into logs alone: every degraded or skipped
// item shows up as a line in the run summary handed back to the operator.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies what happened to one document during a run.
type Status string

const (
	StatusProcessed Status = "processed"
	// StatusDegraded means the document was booked, but at least one line
	// fell back to immediate recognition because its period was ambiguous.
	StatusDegraded Status = "degraded"
	StatusSkipped  Status = "skipped"
)

// Warning is a human-visible note attached to a document.
type Warning struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

// Outcome is the typed result for one document.
type Outcome struct {
	DocumentID string `json:"document_id"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Entries    int    `json:"entries"`
}

// Run collects everything a single export run produced.
type Run struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Outcomes []Outcome `json:"outcomes"`
	Warnings []Warning `json:"warnings"`
	Entries  int       `json:"entries"`
}

func NewRun(from, to time.Time) *Run {
	return &Run{From: from, To: to, Started: time.Now()}
}

func (r *Run) Processed(docID string, entries int, degraded bool) {
	status := StatusProcessed
	if degraded {
		status = StatusDegraded
	}
	r.Outcomes = append(r.Outcomes, Outcome{DocumentID: docID, Status: status, Entries: entries})
	r.Entries += entries
}

func (r *Run) Skipped(docID, reason string) {
	r.Outcomes = append(r.Outcomes, Outcome{DocumentID: docID, Status: StatusSkipped, Reason: reason})
	r.Warnings = append(r.Warnings, Warning{DocumentID: docID, Message: "skipped: " + reason})
}

func (r *Run) Warn(docID, message string) {
	r.Warnings = append(r.Warnings, Warning{DocumentID: docID, Message: message})
}

// Counts tallies outcomes per status.
func (r *Run) Counts() (processed, degraded, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusProcessed:
			processed++
		case StatusDegraded:
			degraded++
		case StatusSkipped:
			skipped++
		}
	}
	return
}

// Summary renders the run for the operator, one line per warning so
// nothing is lost silently.
func (r *Run) Summary() string {
	processed, degraded, skipped := r.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "window %s to %s: %d processed, %d degraded, %d skipped, %d ledger entries\n",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), processed, degraded, skipped, r.Entries)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  warning %s: %s\n", w.DocumentID, w.Message)
	}
	return b.String()
}
