package assembly

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// OutlineEntry is one heading of an assembled document.
type OutlineEntry struct {
	DocumentID string
	Level      int
	Text       string
}

// Outline lists the headings of every document container in assembled
// HTML, in document order.
func Outline(assembled string) ([]OutlineEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(assembled))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse assembled HTML")
	}

	entries := make([]OutlineEntry, 0)
	doc.Find("body > div[id]").Each(func(_ int, container *goquery.Selection) {
		id, _ := container.Attr("id")
		container.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, heading *goquery.Selection) {
			entries = append(entries, OutlineEntry{
				DocumentID: id,
				Level:      int(goquery.NodeName(heading)[1] - '0'),
				Text:       strings.TrimSpace(heading.Text()),
			})
		})
	})

	return entries, nil
}

// RenderNav renders a navigation list linking to each document container,
// titled by the document's first heading.
func RenderNav(entries []OutlineEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<nav><ul>")
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.DocumentID] {
			continue
		}
		seen[e.DocumentID] = true
		b.WriteString(`<li><a href="#` + html.EscapeString(e.DocumentID) + `">` + html.EscapeString(e.Text) + "</a></li>")
	}
	b.WriteString("</ul></nav>\n")
	return b.String()
}
