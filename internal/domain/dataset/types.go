// Package dataset holds the shapes exchanged between the cashcat API pager,
// the fan-out orchestrator and the tool handlers.
package dataset

import (
	"encoding/json"
	"math"
)

// MaxPageSize is the largest limit the cashcat API accepts.
const MaxPageSize = 1000

// Page is one successful response from a cashcat API endpoint.
type Page struct {
	// Data holds the rows of the page.
	Data []any
	// Meta is the meta object, nil when the upstream sent none.
	Meta map[string]any
}

// NextCursor returns meta.next_cursor when it is a non-empty string.
func (p *Page) NextCursor() string {
	s, _ := p.Meta["next_cursor"].(string)
	return s
}

// Total returns meta.total when it is a finite number.
func (p *Page) Total() (float64, bool) {
	var f float64
	switch v := p.Meta["total"].(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Result is the outcome of following pagination on one endpoint.
type Result struct {
	Rows      []any          `json:"rows"`
	RowCount  int            `json:"row_count"`
	Truncated bool           `json:"truncated"`
	LastMeta  map[string]any `json:"meta"`
}

// Request asks for one dataset in a fan-out.
type Request struct {
	// Key names the dataset in the bundle.
	Key string
	// Endpoint is the cashcat API path below the API prefix.
	Endpoint string
	// Query holds the endpoint filters. The pager owns limit and cursor.
	Query map[string]string
	// MaxRows is the row ceiling for this dataset.
	MaxRows int
}

// Bundle maps dataset keys to their results.
type Bundle map[string]Result

// Rows returns the rows fetched for key, nil when the key was not requested.
func (b Bundle) Rows(key string) []any {
	return b[key].Rows
}

// Truncation reports the truncated flag of every dataset in the bundle.
func (b Bundle) Truncation() map[string]bool {
	out := make(map[string]bool, len(b))
	for k, r := range b {
		out[k] = r.Truncated
	}
	return out
}

// RowCounts reports the row count of every dataset in the bundle.
func (b Bundle) RowCounts() map[string]int {
	out := make(map[string]int, len(b))
	for k, r := range b {
		out[k] = r.RowCount
	}
	return out
}

// UpstreamError is a failed call to a cashcat API endpoint. Its message has
// the form "{endpoint}: {reason}".
type UpstreamError struct {
	Endpoint string
	// Status is the HTTP status, 0 when no response was received.
	Status int
	Reason string
}

func (e *UpstreamError) Error() string {
	return e.Endpoint + ": " + e.Reason
}
