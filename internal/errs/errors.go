package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	// ErrAmbiguousPeriod is returned when a service period cannot be resolved
	// from a line item's text. Recoverable: the item degrades to immediate
	// recognition at its accounting date.
	ErrAmbiguousPeriod = errors.New("ambiguous_period")
	// ErrInvariant marks a post-condition failure in the recognition math
	// (split amounts not summing back to the input). Always a logic defect,
	// never bad input; runs must abort on it.
	ErrInvariant = errors.New("invariant_violation")
	// ErrUnsupportedDocument flags a document shape the assembler does not
	// model (e.g. two simultaneous reversal events). The document is skipped
	// and surfaced in the run report.
	ErrUnsupportedDocument = errors.New("unsupported_document")
	// ErrConfig indicates a missing account mapping or tax classification.
	// Fatal: no postings for the document may be emitted.
	ErrConfig = errors.New("configuration_error")

	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")
)
