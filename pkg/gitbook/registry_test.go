package gitbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestLookupElement(t *testing.T) {
	tests := []struct {
		elementType ElementType
		want        TagPair
	}{
		{ElementParagraph, TagPair{"<p>", "</p>"}},
		{ElementHeading1, TagPair{"<h1>", "</h1>"}},
		{ElementHeading2, TagPair{"<h2>", "</h2>"}},
		{ElementHeading3, TagPair{"<h3>", "</h3>"}},
		{ElementHeading4, TagPair{"<h4>", "</h4>"}},
		{ElementHeading5, TagPair{"<h5>", "</h5>"}},
		{ElementHeading6, TagPair{"<h6>", "</h6>"}},
		{ElementListUnordered, TagPair{"<ul>", "</ul>"}},
		{ElementListOrdered, TagPair{"<ol>", "</ol>"}},
		{ElementListItem, TagPair{"<li>", "</li>"}},
		{ElementText, TagPair{"", ""}},
		{ElementLink, TagPair{"<a>", "</a>"}},
		{ElementTable, TagPair{"<table>", "</table>"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.elementType), func(t *testing.T) {
			tmpl, ok := LookupElement(tt.elementType)
			require.True(t, ok)
			assert.Equal(t, tt.want, tmpl.Resolve(nil))
		})
	}

	_, ok := LookupElement("blockquote")
	assert.False(t, ok)
}

func TestTagTemplateResolveAttributes(t *testing.T) {
	tmpl, ok := LookupElement(ElementTable)
	require.True(t, ok)

	got := tmpl.Resolve([]Attribute{
		{Name: "id", Value: "t1"},
		{Name: "class", Value: "wide"},
	})
	assert.Equal(t, TagPair{Open: `<table id="t1" class="wide">`, Close: "</table>"}, got)
}

func TestLookupMark(t *testing.T) {
	pair, err := LookupMark("italic", gjson.Result{})
	require.NoError(t, err)
	assert.Equal(t, TagPair{"<em>", "</em>"}, pair)

	pair, err = LookupMark("color", gjson.Parse(`{"text":"#123","background":3}`))
	require.NoError(t, err)
	assert.Equal(t, `<span style="color: #123; background-colour: 3">`, pair.Open)
	assert.Equal(t, "</span>", pair.Close)

	_, err = LookupMark("code", gjson.Result{})
	var missing *KeyMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "code", missing.Key)
}

func TestLookupAttributeSource(t *testing.T) {
	src, ok := LookupAttributeSource("ref")
	require.True(t, ok)
	assert.Equal(t, AttributeSource{Field: "url", Attribute: "href"}, src)

	_, ok = LookupAttributeSource("anchor")
	assert.False(t, ok)
}

func TestObjectKindIsNode(t *testing.T) {
	for _, k := range []ObjectKind{ObjectDocument, ObjectBlock, ObjectInline, ObjectText} {
		assert.True(t, k.IsNode(), k)
	}
	assert.False(t, ObjectLeaf.IsNode())
	assert.False(t, ObjectKind("mark").IsNode())
}
