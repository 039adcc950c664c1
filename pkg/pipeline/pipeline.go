package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/athapong/gitbook2html/pkg/gitbook"
	"github.com/athapong/gitbook2html/pkg/metrics"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLoader sets the loader used to build document trees.
func WithLoader(loader *gitbook.Loader) Option {
	return func(p *Pipeline) {
		p.loader = loader
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithBatchSize sets how many documents are rendered concurrently.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// Pipeline renders documents and hands them to a sink. Documents are
// independent: one failure is recorded on that document and never stops
// its siblings.
type Pipeline struct {
	loader     *gitbook.Loader
	processors []Processor
	mutex      sync.RWMutex
	logger     *logrus.Logger
	batchSize  int
}

// NewPipeline creates a new rendering pipeline
func NewPipeline(opts ...Option) *Pipeline {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	p := &Pipeline{
		processors: make([]Processor, 0),
		batchSize:  10,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = gitbook.NewLoader(gitbook.WithLogger(p.logger))
	}
	return p
}

// AddProcessor appends a stage that runs after rendering
func (p *Pipeline) AddProcessor(processor Processor) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.processors = append(p.processors, processor)
}

// Run fetches every id in order, renders the fetched documents and writes
// the successful ones to sink in input order. The returned error is only
// set when ctx ends the run; per-document failures are in the report.
func (p *Pipeline) Run(ctx context.Context, ids []string, fetcher Fetcher, sink Sink) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Documents: make([]*Document, 0, len(ids)),
	}
	logger := p.logger.WithField("run_id", report.RunID)
	logger.WithField("document_count", len(ids)).Info("Starting run")

	// Fetching is sequential; the fetcher is responsible for pacing.
	fetched := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc := &Document{ID: id}
		report.Documents = append(report.Documents, doc)

		raw, err := fetcher.Fetch(ctx, id)
		if err != nil {
			doc.Err = errors.Wrapf(err, "fetch %s", id)
			logger.WithError(err).WithField("doc_id", id).Error("Failed to fetch document")
			continue
		}
		doc.Raw = raw
		fetched = append(fetched, doc)
	}

	if err := p.BatchProcess(ctx, fetched); err != nil {
		return report, err
	}

	for _, doc := range report.Documents {
		if doc.Err != nil {
			continue
		}
		if err := sink.Write(ctx, doc.ID, doc.Output); err != nil {
			doc.Err = errors.Wrapf(err, "write %s", doc.ID)
			logger.WithError(err).WithField("doc_id", doc.ID).Error("Failed to write document")
		}
	}

	logger.WithFields(logrus.Fields{
		"succeeded": report.Succeeded(),
		"failed":    len(report.Failed()),
	}).Info("Run completed")
	return report, nil
}

// BatchProcess renders documents concurrently, batchSize at a time. Errors
// are stored on each document; only a cancelled ctx is returned.
func (p *Pipeline) BatchProcess(ctx context.Context, docs []*Document) error {
	metrics.PipelineQueueLength.Set(float64(len(docs)))
	defer metrics.PipelineQueueLength.Set(0)

	for i := 0; i < len(docs); i += p.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := i + p.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		var wg sync.WaitGroup
		for _, doc := range docs[i:end] {
			wg.Add(1)
			go func(d *Document) {
				defer wg.Done()
				if err := p.Process(ctx, d); err != nil {
					p.logger.WithError(err).WithField("doc_id", d.ID).Error("Failed to render document")
				}
			}(doc)
		}
		wg.Wait()

		metrics.PipelineQueueLength.Set(float64(len(docs) - end))
	}

	return nil
}

// Process loads and renders a single document, then runs the processors
// in order. The outcome is also stored on doc.
func (p *Pipeline) Process(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("cannot process nil document")
	}

	started := time.Now()
	err := p.process(ctx, doc)
	doc.Duration = time.Since(started)

	status := "success"
	if err != nil {
		status = "error"
		doc.Err = err
		doc.Output = ""
	}
	metrics.RenderDuration.WithLabelValues(status).Observe(doc.Duration.Seconds())
	metrics.DocumentsRendered.WithLabelValues(status).Inc()
	return err
}

func (p *Pipeline) process(ctx context.Context, doc *Document) error {
	tree, err := p.loader.Load(doc.Raw)
	if err != nil {
		return errors.Wrapf(err, "render %s", doc.ID)
	}
	doc.Output = gitbook.Render(tree)

	p.mutex.RLock()
	processors := p.processors
	p.mutex.RUnlock()

	for _, processor := range processors {
		if err := processor.Process(ctx, doc); err != nil {
			return errors.Wrapf(err, "processor %s failed on %s", processor.Name(), doc.ID)
		}
	}
	return nil
}
