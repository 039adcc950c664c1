package assembly

import (
	"context"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// SinkOption configures a FileSink.
type SinkOption func(s *FileSink)

// WithOutline prepends a navigation list built from the documents' headings.
func WithOutline() SinkOption {
	return func(s *FileSink) {
		s.outline = true
	}
}

type section struct {
	id     string
	output string
}

// FileSink collects rendered documents, wraps each one in a container
// carrying its identifier and writes them to a single file in the order
// they were received.
type FileSink struct {
	filePath string
	outline  bool

	mutex    sync.Mutex
	sections []section
}

// NewFileSink creates a sink that writes to filePath on Flush
func NewFileSink(filePath string, opts ...SinkOption) *FileSink {
	s := &FileSink{
		filePath: filePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write queues one document.
func (s *FileSink) Write(ctx context.Context, id string, output string) error {
	if id == "" {
		return errors.New("document identifier is required")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sections = append(s.sections, section{id: id, output: output})
	return nil
}

// Assemble returns the file contents for the documents written so far.
func (s *FileSink) Assemble() (string, error) {
	s.mutex.Lock()
	sections := make([]section, len(s.sections))
	copy(sections, s.sections)
	s.mutex.Unlock()

	var body strings.Builder
	for _, sec := range sections {
		body.WriteString(Wrap(sec.id, sec.output))
	}

	if !s.outline {
		return body.String(), nil
	}

	entries, err := Outline(body.String())
	if err != nil {
		return "", err
	}
	return RenderNav(entries) + body.String(), nil
}

// Flush writes the assembled documents to the sink's file
func (s *FileSink) Flush(ctx context.Context) error {
	content, err := s.Assemble()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	if err := os.WriteFile(s.filePath, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", s.filePath)
	}
	return nil
}

// Wrap places a rendered document inside a container identified by id.
func Wrap(id, output string) string {
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	return `<div id="` + html.EscapeString(id) + `">` + "\n" + output + "</div>\n"
}
