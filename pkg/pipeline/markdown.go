package pipeline

import (
	"context"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownProcessor converts rendered HTML to Markdown.
type MarkdownProcessor struct{}

// NewMarkdownProcessor creates a new instance of MarkdownProcessor.
func NewMarkdownProcessor() *MarkdownProcessor {
	return &MarkdownProcessor{}
}

func (p *MarkdownProcessor) Process(ctx context.Context, doc *Document) error {
	md, err := htmltomarkdown.ConvertString(doc.Output)
	if err != nil {
		return err
	}
	doc.Output = md
	return nil
}

func (p *MarkdownProcessor) Name() string {
	return "markdown"
}
