// Package stage defines the pipeline positions of a job application.
//
// Stage order:
//
//	applied ──► screening ──► interviewing ──► offer ──► accepted
//	    │            │              │            │
//	    └────────────┴──────────────┴────────────┴──► rejected
//
// Unlike a strict Kanban state machine, users may drag an application to any
// stage; the board is a personal tracker, not a workflow gate. What a stage
// change DOES drive is the opportunistic date stamping on the row.
package stage

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownStage is returned by Parse for values outside the stage set.
var ErrUnknownStage = errors.New("unknown application stage")

// Stage values mirror the applications.stage check constraint in PostgreSQL.
type Stage string

const (
	Applied      Stage = "applied"
	Screening    Stage = "screening"
	Interviewing Stage = "interviewing"
	Offer        Stage = "offer"
	Accepted     Stage = "accepted"
	Rejected     Stage = "rejected"
)

// All lists every stage in pipeline order.
var All = []Stage{Applied, Screening, Interviewing, Offer, Accepted, Rejected}

// Parse converts a raw string to a Stage, returning an error for unknown
// values.
func Parse(s string) (Stage, error) {
	st := Stage(s)
	switch st {
	case Applied, Screening, Interviewing, Offer, Accepted, Rejected:
		return st, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStage, s)
}

// IsTerminal returns true for stages that end the pipeline.
func IsTerminal(s Stage) bool { return s == Accepted || s == Rejected }

// Dates holds the opportunistic date fields of an application row.
type Dates struct {
	AppliedAt   *time.Time
	InterviewAt *time.Time
	OfferAt     *time.Time
	ResolvedAt  *time.Time
}

// Touch stamps the date field that corresponds to entering the given stage,
// if it has not been set already. Moving back out of a stage never clears a
// previously stamped date.
func Touch(d *Dates, to Stage, now time.Time) {
	switch to {
	case Applied:
		if d.AppliedAt == nil {
			d.AppliedAt = &now
		}
	case Interviewing:
		if d.InterviewAt == nil {
			d.InterviewAt = &now
		}
	case Offer:
		if d.OfferAt == nil {
			d.OfferAt = &now
		}
	case Accepted, Rejected:
		if d.ResolvedAt == nil {
			d.ResolvedAt = &now
		}
	}
}
