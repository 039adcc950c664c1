package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/athapong/gitbook2html/pkg/assembly"
	"github.com/athapong/gitbook2html/pkg/gitbook"
	"github.com/athapong/gitbook2html/pkg/metrics"
	"github.com/athapong/gitbook2html/pkg/pipeline"
	"github.com/athapong/gitbook2html/services"
)

var (
	envFile     = flag.String("env", ".env", "Path to environment file")
	spaceID     = flag.String("space", "", "GitBook space ID (defaults to GITBOOK_SPACE)")
	pageIDs     = flag.String("pages", "", "Comma separated page IDs (defaults to every page of the space)")
	inputDir    = flag.String("input", "", "Directory of JSON documents to convert instead of calling the API")
	outputFile  = flag.String("output", "book.html", "Output file path")
	format      = flag.String("format", "html", "Output format (html, markdown)")
	outline     = flag.Bool("outline", false, "Prepend a navigation list built from the headings")
	batchSize   = flag.Int("batch-size", 10, "Number of documents rendered concurrently")
	maxDepth    = flag.Int("max-depth", gitbook.DefaultMaxDepth, "Maximum document nesting depth")
	logLevel    = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	metricsAddr = flag.String("metrics-addr", "", "Address to expose Prometheus metrics on (disabled when empty)")
)

func main() {
	flag.Parse()

	// Configure logging
	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(*envFile); err != nil {
		logger.WithError(err).Debugf("No env file loaded from %s", *envFile)
	}

	if *format != "html" && *format != "markdown" {
		logger.Fatalf("Unsupported format %q", *format)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Infof("Serving metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, fetcher, err := source(ctx, logger)
	if err != nil {
		logger.Fatalf("Failed to prepare documents: %v", err)
	}
	if len(ids) == 0 {
		logger.Fatal("No documents to convert")
	}

	// Create the rendering pipeline
	loader := gitbook.NewLoader(gitbook.WithLogger(logger), gitbook.WithMaxDepth(*maxDepth))
	p := pipeline.NewPipeline(
		pipeline.WithLoader(loader),
		pipeline.WithLogger(logger),
		pipeline.WithBatchSize(*batchSize),
	)
	if *format == "markdown" {
		p.AddProcessor(pipeline.NewMarkdownProcessor())
	}

	var sinkOpts []assembly.SinkOption
	if *outline && *format == "html" {
		sinkOpts = append(sinkOpts, assembly.WithOutline())
	}
	sink := assembly.NewFileSink(*outputFile, sinkOpts...)

	logger.Infof("Converting %d documents...", len(ids))
	report, err := p.Run(ctx, ids, fetcher, sink)
	if err != nil {
		logger.Fatalf("Run aborted: %v", err)
	}

	if err := sink.Flush(ctx); err != nil {
		logger.Fatalf("Failed to write output: %v", err)
	}

	metrics.UpdateSystemMetrics()

	for _, doc := range report.Failed() {
		logger.WithField("doc_id", doc.ID).Errorf("%v", doc.Err)
	}
	logger.WithField("run_id", report.RunID).Infof("Converted %d of %d documents to %s",
		report.Succeeded(), len(report.Documents), *outputFile)

	if len(report.Failed()) > 0 {
		stop()
		os.Exit(1)
	}
}

// source picks the documents to convert: a directory of JSON files, or
// pages of a GitBook space.
func source(ctx context.Context, logger *logrus.Logger) ([]string, pipeline.Fetcher, error) {
	if *inputDir != "" {
		files := pipeline.NewFileFetcher(*inputDir)
		ids, err := files.IDs()
		return ids, files, err
	}

	cfg, err := services.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	space := *spaceID
	if space == "" {
		space = cfg.Space
	}
	if space == "" {
		return nil, nil, errors.New("a space must be given with -space or GITBOOK_SPACE")
	}

	client := services.NewGitBookClient(cfg, services.WithClientLogger(logger))
	fetcher := pipeline.FetcherFunc(func(ctx context.Context, id string) (gjson.Result, error) {
		return client.GetPageDocument(ctx, space, id)
	})

	if *pageIDs != "" {
		var ids []string
		for _, id := range strings.Split(*pageIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, fetcher, nil
	}

	pages, err := client.ListPages(ctx, space)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(pages))
	for _, page := range pages {
		ids = append(ids, page.ID)
	}
	return ids, fetcher, nil
}
