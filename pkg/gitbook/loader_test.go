package gitbook

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/athapong/gitbook2html/pkg/metrics"
)

func quietLoader(opts ...Option) *Loader {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewLoader(append([]Option{WithLogger(logger)}, opts...)...)
}

func TestLoadDispatch(t *testing.T) {
	l := quietLoader()

	t.Run("block becomes node", func(t *testing.T) {
		elem, err := l.Load(gjson.Parse(`{"object":"block","type":"paragraph"}`))
		require.NoError(t, err)

		node, ok := elem.(*Node)
		require.True(t, ok, "got %T", elem)
		assert.Equal(t, ObjectBlock, node.Kind())
		assert.Equal(t, ElementParagraph, node.ElementType())
		assert.Equal(t, 0, node.Depth())
	})

	t.Run("leaf becomes leaf", func(t *testing.T) {
		elem, err := l.Load(gjson.Parse(`{"object":"leaf","text":"hi","marks":[]}`))
		require.NoError(t, err)

		leaf, ok := elem.(*Leaf)
		require.True(t, ok, "got %T", elem)
		assert.Equal(t, "hi", leaf.Text())
		assert.Empty(t, leaf.Marks())
	})

	t.Run("missing type is passthrough", func(t *testing.T) {
		elem, err := l.Load(gjson.Parse(`{"object":"inline"}`))
		require.NoError(t, err)
		assert.Equal(t, TagPair{}, elem.Tags())
	})
}

func TestLoadChildOrderAndDepth(t *testing.T) {
	raw := `{
		"object": "text",
		"leaves": [
			{"object": "leaf", "text": "c", "marks": []}
		],
		"nodes": [
			{"object": "inline", "nodes": [{"object": "text", "leaves": [{"object": "leaf", "text": "a"}]}]},
			{"object": "inline"}
		]
	}`

	elem, err := quietLoader().Load(gjson.Parse(raw))
	require.NoError(t, err)

	children, err := elem.Children()
	require.NoError(t, err)
	require.Len(t, children, 3)

	// nodes first, then leaves, regardless of field order in the source
	assert.Equal(t, ObjectInline, children[0].Kind())
	assert.Equal(t, ObjectInline, children[1].Kind())
	assert.Equal(t, ObjectLeaf, children[2].Kind())

	for _, child := range children {
		assert.Equal(t, 1, child.Depth())
	}

	grandchildren, err := children[0].Children()
	require.NoError(t, err)
	require.Len(t, grandchildren, 1)
	assert.Equal(t, 2, grandchildren[0].Depth())

	leaves, err := grandchildren[0].Children()
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, 3, leaves[0].Depth())
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantPath string
	}{
		{
			name: "missing discriminator",
			json: `{"type":"paragraph"}`,
		},
		{
			name: "non-string discriminator",
			json: `{"object":7}`,
		},
		{
			name: "unknown object kind",
			json: `{"object":"mark"}`,
		},
		{
			name:     "leaf without text",
			json:     `{"object":"block","type":"paragraph","nodes":[{"object":"text","leaves":[{"object":"leaf","marks":[]}]}]}`,
			wantPath: "nodes.0.leaves.0",
		},
		{
			name:     "leaf with numeric text",
			json:     `{"object":"text","leaves":[{"object":"leaf","text":3}]}`,
			wantPath: "leaves.0",
		},
		{
			name: "nodes is not an array",
			json: `{"object":"block","nodes":{"object":"text"}}`,
		},
		{
			name:     "node in leaves collection",
			json:     `{"object":"text","leaves":[{"object":"inline"}]}`,
			wantPath: "leaves.0",
		},
		{
			name:     "mark without type",
			json:     `{"object":"leaf","text":"x","marks":[{"object":"mark"}]}`,
			wantPath: "marks.0",
		},
	}

	l := quietLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elem, err := l.Load(gjson.Parse(tt.json))
			require.Error(t, err)
			assert.Nil(t, elem)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.Equal(t, tt.wantPath, schemaErr.Path)
		})
	}
}

func TestLoadBytesRejectsInvalidJSON(t *testing.T) {
	_, err := quietLoader().LoadBytes([]byte(`{"object":`))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestLoadUnknownElementType(t *testing.T) {
	raw := `{"object":"document","nodes":[{"object":"block","type":"code-block","nodes":[]}]}`

	_, err := quietLoader().Load(gjson.Parse(raw))
	require.Error(t, err)

	var missing *KeyMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "element type", missing.Registry)
	assert.Equal(t, "code-block", missing.Key)
	assert.Equal(t, "nodes.0", missing.Path)
	assert.Equal(t, 1, missing.Depth)
}

func TestLoadUnknownMark(t *testing.T) {
	raw := `{"object":"text","leaves":[{"object":"leaf","text":"x","marks":[{"type":"italic"},{"type":"strikethrough"}]}]}`

	_, err := quietLoader().Load(gjson.Parse(raw))
	require.Error(t, err)

	var missing *KeyMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "mark", missing.Registry)
	assert.Equal(t, "strikethrough", missing.Key)
	assert.Equal(t, "leaves.0.marks.1", missing.Path)
}

func TestLoadDepthLimit(t *testing.T) {
	nested := func(levels int) string {
		raw := `{"object":"leaf","text":"deep"}`
		for i := 0; i < levels; i++ {
			raw = `{"object":"inline","nodes":[` + raw + `]}`
		}
		return raw
	}

	l := quietLoader(WithMaxDepth(3))

	_, err := l.Load(gjson.Parse(nested(3)))
	require.NoError(t, err)

	_, err = l.Load(gjson.Parse(nested(4)))
	var tooDeep *TooDeepError
	require.True(t, errors.As(err, &tooDeep), "got %v", err)
	assert.Equal(t, 4, tooDeep.Depth)
	assert.Equal(t, 3, tooDeep.Limit)
	assert.Equal(t, "nodes.0.nodes.0.nodes.0.nodes.0", tooDeep.Path)
}

func TestLeafChildrenIsInvalid(t *testing.T) {
	elem, err := quietLoader().Load(gjson.Parse(`{"object":"leaf","text":"x"}`))
	require.NoError(t, err)

	children, err := elem.Children()
	assert.Nil(t, children)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantAttrs []Attribute
		wantOpen  string
	}{
		{
			name:      "ref becomes href",
			data:      `{"ref":{"kind":"url","url":"http://e.com"}}`,
			wantAttrs: []Attribute{{Name: "href", Value: "http://e.com"}},
			wantOpen:  `<a href="http://e.com">`,
		},
		{
			name:     "unmapped key is skipped",
			data:     `{"anchor":{"id":"x"}}`,
			wantOpen: `<a>`,
		},
		{
			name:     "ref without url is skipped",
			data:     `{"ref":{"kind":"page","page":"abc"}}`,
			wantOpen: `<a>`,
		},
		{
			name:      "skipped keys do not affect mapped ones",
			data:      `{"anchor":"x","ref":{"url":"/a"},"other":1}`,
			wantAttrs: []Attribute{{Name: "href", Value: "/a"}},
			wantOpen:  `<a href="/a">`,
		},
		{
			name:     "data is not an object",
			data:     `"nope"`,
			wantOpen: `<a>`,
		},
	}

	l := quietLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"object":"inline","type":"link","data":` + tt.data + `}`
			elem, err := l.Load(gjson.Parse(raw))
			require.NoError(t, err)

			node := elem.(*Node)
			assert.Equal(t, tt.wantAttrs, node.Attributes())
			assert.Equal(t, tt.wantOpen, node.Tags().Open)
			assert.Equal(t, "</a>", node.Tags().Close)
		})
	}
}

func TestSkippedAttributeIsLoggedAndCounted(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	l := NewLoader(WithLogger(logger))
	before := testutil.ToFloat64(metrics.AttributesSkipped.WithLabelValues("anchor"))

	elem, err := l.Load(gjson.Parse(`{"object":"document","nodes":[
		{"object":"inline","type":"link","data":{"anchor":"a","ref":{"url":"/x"}}}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, `<a href="/x"></a>`, Render(elem))

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "anchor", entry.Data["key"])
	assert.Equal(t, "nodes.0", entry.Data["path"])
	assert.Equal(t, "no attribute mapping", entry.Data["reason"])

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AttributesSkipped.WithLabelValues("anchor")))
}

func TestUntypedNodeStillBuildsAttributes(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	l := NewLoader(WithLogger(logger))

	elem, err := l.Load(gjson.Parse(`{"object":"inline","data":{"ref":{"url":"/x"},"anchor":"a"},
		"nodes":[{"object":"text","leaves":[{"object":"leaf","text":"x"}]}]}`))
	require.NoError(t, err)

	node := elem.(*Node)
	assert.Equal(t, ElementNone, node.ElementType())
	assert.Equal(t, []Attribute{{Name: "href", Value: "/x"}}, node.Attributes())
	assert.Equal(t, TagPair{}, node.Tags())
	assert.Equal(t, "x", Render(elem))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "anchor", hook.LastEntry().Data["key"])
	assert.Equal(t, "(root)", hook.LastEntry().Data["path"])
}
