// Package models defines the data structures shared by the ingestion pipeline.
package models

import (
	"io"
	"strings"
)

// Outcome tags why a pipeline step produced the text it did.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeUnintelligible   Outcome = "unintelligible"
	OutcomeServiceError     Outcome = "service_error"
	OutcomeModelUnavailable Outcome = "model_unavailable"
)

// UploadedArtifact is a user-supplied file. Name is only used to recover the
// extension; Body is owned by the request and never retained.
type UploadedArtifact struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Result is the text produced by an extractor, the transcriber or the model
// client, together with the reason it looks the way it does.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
}

// Blank reports the "no readable text" state. It is not an error.
func (r Result) Blank() bool {
	return strings.TrimSpace(r.Text) == ""
}

// OK reports whether the step succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Display returns the value a user interface shows for this result.
func (r Result) Display() string {
	return r.Text
}
