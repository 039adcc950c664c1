package gitbook

import (
	"strings"

	"github.com/tidwall/gjson"
)

type renderBuffer = strings.Builder

var defaultLoader = NewLoader()

// Render serializes an already loaded tree. Text is written verbatim;
// no escaping is applied.
func Render(elem Element) string {
	if elem == nil {
		return ""
	}

	var result renderBuffer
	elem.writeTo(&result)
	return result.String()
}

// Convert loads raw with the default loader and renders it. On failure it
// returns an empty string; no partial output is produced.
func Convert(raw gjson.Result) (string, error) {
	elem, err := defaultLoader.Load(raw)
	if err != nil {
		return "", err
	}
	return Render(elem), nil
}

// ConvertBytes is Convert for a JSON encoded document value.
func ConvertBytes(data []byte) (string, error) {
	elem, err := defaultLoader.LoadBytes(data)
	if err != nil {
		return "", err
	}
	return Render(elem), nil
}

func (n *Node) writeTo(b *renderBuffer) {
	b.WriteString(n.tags.Open)
	for _, child := range n.children {
		child.writeTo(b)
	}
	b.WriteString(n.tags.Close)
	// Block siblings are separated by a single newline and nothing else.
	if n.kind == ObjectBlock {
		b.WriteByte('\n')
	}
}

func (l *Leaf) writeTo(b *renderBuffer) {
	b.WriteString(l.tags.Open)
	b.WriteString(l.text)
	b.WriteString(l.tags.Close)
}
