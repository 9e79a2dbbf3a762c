package screening

import "errors"

// Errors surfaced by the screening pipeline. Callers match them with errors.Is;
// the underlying cause, when any, is wrapped alongside.
var (
	// ErrExtraction means no requirement list could be derived from the job text.
	ErrExtraction = errors.New("requirement extraction failed")
	// ErrInvalidRequirements means the assessor got an empty or missing requirement list.
	ErrInvalidRequirements = errors.New("invalid requirements")
	// ErrAssessment means no complete assessment table could be produced.
	ErrAssessment = errors.New("candidate assessment failed")
	// ErrEmptyInput means no candidate documents were supplied.
	ErrEmptyInput = errors.New("no candidate documents supplied")
)
