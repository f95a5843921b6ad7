// Package extract converts raw archive documents into structured questions.
// The sweep engine only ever sees the Extractor interface, so the real HTML
// parser can be swapped for a canned double in tests.
package extract

import "github.com/moazrovne/harvest-cli/internal/model"

// Result is the outcome of extracting one question document. NotFound means
// the remote archive signalled that the ID does not exist; it is the sweep's
// only absence signal. A Found result may carry empty sub-fields; a missing
// sub-field never means NotFound.
type Result struct {
	NotFound bool
	Question model.Question
}

// Extractor parses a single question document.
type Extractor interface {
	Extract(doc []byte) (Result, error)
}

// ListingExtractor parses an archive listing page carrying many questions.
type ListingExtractor interface {
	ExtractListing(doc []byte) ([]model.Question, error)
}
