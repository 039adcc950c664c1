package gitbook

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/athapong/gitbook2html/pkg/metrics"
)

// DefaultMaxDepth bounds document nesting so that loading and rendering
// cannot exhaust the call stack.
const DefaultMaxDepth = 256

// Option configures a Loader.
type Option func(l *Loader)

// WithLogger sets the logger used for skipped attributes.
func WithLogger(logger *logrus.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxDepth sets the deepest allowed entry; the root is depth 0.
func WithMaxDepth(depth int) Option {
	return func(l *Loader) {
		if depth > 0 {
			l.maxDepth = depth
		}
	}
}

// Loader builds Node/Leaf trees from raw GitBook document values.
// A Loader holds no per-document state and may be shared between goroutines.
type Loader struct {
	logger   *logrus.Logger
	maxDepth int
}

// NewLoader creates a loader with the given options.
func NewLoader(opts ...Option) *Loader {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	l := &Loader{
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadBytes parses a JSON document value and loads it.
func (l *Loader) LoadBytes(data []byte) (Element, error) {
	if !gjson.ValidBytes(data) {
		return nil, schemaErrorf("", 0, "invalid JSON")
	}
	return l.Load(gjson.ParseBytes(data))
}

// Load builds the tree rooted at raw. The "object" field decides whether
// raw becomes a *Node or a *Leaf.
func (l *Loader) Load(raw gjson.Result) (Element, error) {
	return l.load(raw, "", 0)
}

func (l *Loader) load(raw gjson.Result, path string, depth int) (Element, error) {
	if depth > l.maxDepth {
		return nil, errors.WithStack(&TooDeepError{Path: path, Depth: depth, Limit: l.maxDepth})
	}
	if !raw.IsObject() {
		return nil, schemaErrorf(path, depth, "entry is not an object")
	}

	object := raw.Get("object")
	if !object.Exists() {
		return nil, schemaErrorf(path, depth, `missing "object" discriminator`)
	}
	if object.Type != gjson.String {
		return nil, schemaErrorf(path, depth, `"object" must be a string`)
	}

	kind := ObjectKind(object.Str)
	switch {
	case kind == ObjectLeaf:
		return l.loadLeaf(raw, path, depth)
	case kind.IsNode():
		return l.loadNode(raw, kind, path, depth)
	default:
		return nil, schemaErrorf(path, depth, "unknown object kind %q", object.Str)
	}
}

func (l *Loader) loadNode(raw gjson.Result, kind ObjectKind, path string, depth int) (*Node, error) {
	node := &Node{
		kind:  kind,
		depth: depth,
	}

	if t := raw.Get("type"); t.Exists() {
		if t.Type != gjson.String {
			return nil, schemaErrorf(path, depth, `"type" must be a string`)
		}
		node.elementType = ElementType(t.Str)
	}

	nodes, err := collection(raw, "nodes", path, depth)
	if err != nil {
		return nil, err
	}
	for i, child := range nodes {
		elem, err := l.load(child, childPath(path, "nodes", i), depth+1)
		if err != nil {
			return nil, err
		}
		node.children = append(node.children, elem)
	}

	leaves, err := collection(raw, "leaves", path, depth)
	if err != nil {
		return nil, err
	}
	for i, child := range leaves {
		leafPath := childPath(path, "leaves", i)
		elem, err := l.load(child, leafPath, depth+1)
		if err != nil {
			return nil, err
		}
		leaf, ok := elem.(*Leaf)
		if !ok {
			return nil, schemaErrorf(leafPath, depth+1, "leaves entry has object kind %q", elem.Kind())
		}
		node.children = append(node.children, leaf)
	}

	tags, err := l.resolveTags(node, raw.Get("data"), path)
	if err != nil {
		return nil, err
	}
	node.tags = tags

	return node, nil
}

// resolveTags builds the node attributes from its data payload, whether or
// not the node has an element type, and then the tag pair. It runs exactly
// once per node.
func (l *Loader) resolveTags(node *Node, data gjson.Result, path string) (TagPair, error) {
	node.attributes = l.buildAttributes(data, path)
	if node.elementType == ElementNone {
		return TagPair{}, nil
	}

	tmpl, ok := LookupElement(node.elementType)
	if !ok {
		return TagPair{}, errors.WithStack(&KeyMissingError{
			Registry: "element type",
			Key:      string(node.elementType),
			Path:     path,
			Depth:    node.depth,
		})
	}

	return tmpl.Resolve(node.attributes), nil
}

func (l *Loader) buildAttributes(data gjson.Result, path string) []Attribute {
	if !data.IsObject() {
		return nil
	}

	var attributes []Attribute
	data.ForEach(func(key, value gjson.Result) bool {
		src, ok := LookupAttributeSource(key.String())
		if !ok {
			l.skipAttribute(path, key.String(), "no attribute mapping")
			return true
		}
		field := value.Get(gjsonEscape(src.Field))
		if !value.IsObject() || !field.Exists() {
			l.skipAttribute(path, key.String(), "payload has no "+src.Field+" field")
			return true
		}
		attributes = setAttribute(attributes, src.Attribute, field.String())
		return true
	})
	return attributes
}

func (l *Loader) skipAttribute(path, key, reason string) {
	metrics.AttributesSkipped.WithLabelValues(key).Inc()
	l.logger.WithFields(logrus.Fields{
		"path":   displayPath(path),
		"key":    key,
		"reason": reason,
	}).Warn("Skipping unmapped attribute")
}

// setAttribute overwrites an existing attribute in place, keeping its position.
func setAttribute(attributes []Attribute, name, value string) []Attribute {
	for i := range attributes {
		if attributes[i].Name == name {
			attributes[i].Value = value
			return attributes
		}
	}
	return append(attributes, Attribute{Name: name, Value: value})
}

func (l *Loader) loadLeaf(raw gjson.Result, path string, depth int) (*Leaf, error) {
	text := raw.Get("text")
	if !text.Exists() {
		return nil, schemaErrorf(path, depth, `leaf is missing "text"`)
	}
	if text.Type != gjson.String {
		return nil, schemaErrorf(path, depth, `leaf "text" must be a string`)
	}

	leaf := &Leaf{
		text:  text.Str,
		depth: depth,
	}

	marks, err := collection(raw, "marks", path, depth)
	if err != nil {
		return nil, err
	}
	for i, mark := range marks {
		pair, err := resolveMark(mark, childPath(path, "marks", i), depth)
		if err != nil {
			return nil, err
		}
		leaf.marks = append(leaf.marks, pair)
	}

	leaf.tags = nestMarks(leaf.marks)
	return leaf, nil
}

func resolveMark(mark gjson.Result, path string, depth int) (TagPair, error) {
	markType := mark.Get("type")
	if !mark.IsObject() || markType.Type != gjson.String {
		return TagPair{}, schemaErrorf(path, depth, `mark is missing a string "type"`)
	}

	pair, err := LookupMark(markType.Str, mark.Get("data"))
	if err != nil {
		var missing *KeyMissingError
		if errors.As(err, &missing) {
			missing.Path = path
			missing.Depth = depth
		}
		return TagPair{}, errors.WithStack(err)
	}
	return pair, nil
}

// nestMarks opens marks in source order and closes them in reverse, so the
// first declared mark wraps outermost.
func nestMarks(marks []TagPair) TagPair {
	var opening, closing renderBuffer
	for _, m := range marks {
		opening.WriteString(m.Open)
	}
	for i := len(marks) - 1; i >= 0; i-- {
		closing.WriteString(marks[i].Close)
	}
	return TagPair{Open: opening.String(), Close: closing.String()}
}

// collection returns the entries of an optional array field.
func collection(raw gjson.Result, field, path string, depth int) ([]gjson.Result, error) {
	v := raw.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, schemaErrorf(path, depth, "%q must be an array", field)
	}
	return v.Array(), nil
}
