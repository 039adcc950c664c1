package pipeline

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// Document is one unit of work: a source identifier, the parsed document
// value and, once processed, its output or the error that stopped it.
type Document struct {
	ID       string
	Raw      gjson.Result
	Output   string
	Err      error
	Duration time.Duration
}

// Fetcher returns the parsed document value for a source identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (gjson.Result, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) (gjson.Result, error)

func (f FetcherFunc) Fetch(ctx context.Context, id string) (gjson.Result, error) {
	return f(ctx, id)
}

// Sink accepts rendered documents, in input order.
type Sink interface {
	Write(ctx context.Context, id string, output string) error
}

// Processor transforms the rendered output of a document.
type Processor interface {
	Process(ctx context.Context, doc *Document) error
	Name() string
}

// Report lists every document of a run with its individual outcome.
type Report struct {
	RunID     string
	Documents []*Document
}

// Failed returns the documents that did not reach the sink.
func (r *Report) Failed() []*Document {
	failed := make([]*Document, 0)
	for _, doc := range r.Documents {
		if doc.Err != nil {
			failed = append(failed, doc)
		}
	}
	return failed
}

// Succeeded returns the number of documents written to the sink.
func (r *Report) Succeeded() int {
	return len(r.Documents) - len(r.Failed())
}
