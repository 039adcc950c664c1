package gitbook

import (
	"strings"

	"github.com/tidwall/gjson"
)

const attribsPlaceholder = "{attribs}"

// styleDefault replaces any style field a mark does not supply.
const styleDefault = "auto"

// TagTemplate is a tag pair whose opening tag may hold an {attribs} placeholder.
type TagTemplate struct {
	Open  string
	Close string
}

// Resolve splices the rendered attributes into the opening template.
func (t TagTemplate) Resolve(attributes []Attribute) TagPair {
	return TagPair{
		Open:  strings.Replace(t.Open, attribsPlaceholder, formatAttributes(attributes), 1),
		Close: t.Close,
	}
}

// AttributeSource maps a key of a node's "data" payload to an HTML attribute.
type AttributeSource struct {
	// Field is read from the payload value stored under the source key.
	Field string
	// Attribute is the HTML attribute name it is written to.
	Attribute string
}

// StyleTemplate is a mark whose opening tag is filled from the mark's data.
type StyleTemplate struct {
	Open   string
	Close  string
	Fields []string
}

var elementTags = map[ElementType]TagTemplate{
	ElementParagraph:     {"<p{attribs}>", "</p>"},
	ElementHeading1:      {"<h1{attribs}>", "</h1>"},
	ElementHeading2:      {"<h2{attribs}>", "</h2>"},
	ElementHeading3:      {"<h3{attribs}>", "</h3>"},
	ElementHeading4:      {"<h4{attribs}>", "</h4>"},
	ElementHeading5:      {"<h5{attribs}>", "</h5>"},
	ElementHeading6:      {"<h6{attribs}>", "</h6>"},
	ElementListUnordered: {"<ul{attribs}>", "</ul>"},
	ElementListOrdered:   {"<ol{attribs}>", "</ol>"},
	ElementListItem:      {"<li{attribs}>", "</li>"},
	ElementText:          {"", ""},
	ElementLink:          {"<a{attribs}>", "</a>"},
	ElementTable:         {"<table{attribs}>", "</table>"},
}

var attributeSources = map[string]AttributeSource{
	"ref": {Field: "url", Attribute: "href"},
}

var simpleMarks = map[string]TagPair{
	"italic":    {"<em>", "</em>"},
	"strong":    {"<strong>", "</strong>"},
	"bold":      {"<strong>", "</strong>"},
	"underline": {"<u>", "</u>"},
}

// The background property name is emitted as GitBook exports always wrote it.
var styleMarks = map[string]StyleTemplate{
	"color": {
		Open:   `<span style="color: {text}; background-colour: {background}">`,
		Close:  "</span>",
		Fields: []string{"text", "background"},
	},
}

// LookupElement returns the tag template registered for an element type.
func LookupElement(t ElementType) (TagTemplate, bool) {
	tmpl, ok := elementTags[t]
	return tmpl, ok
}

// LookupAttributeSource returns the mapping for a "data" payload key.
func LookupAttributeSource(key string) (AttributeSource, bool) {
	src, ok := attributeSources[key]
	return src, ok
}

// LookupMark resolves a mark type to its tag pair. Style marks are filled
// from data; fields absent from data become "auto".
func LookupMark(markType string, data gjson.Result) (TagPair, error) {
	if pair, ok := simpleMarks[markType]; ok {
		return pair, nil
	}
	if tmpl, ok := styleMarks[markType]; ok {
		return tmpl.fill(data), nil
	}
	return TagPair{}, &KeyMissingError{Registry: "mark", Key: markType}
}

func (t StyleTemplate) fill(data gjson.Result) TagPair {
	pairs := make([]string, 0, 2*len(t.Fields))
	for _, field := range t.Fields {
		pairs = append(pairs, "{"+field+"}", styleValue(data, field))
	}
	return TagPair{
		Open:  strings.NewReplacer(pairs...).Replace(t.Open),
		Close: t.Close,
	}
}

func styleValue(data gjson.Result, field string) string {
	if !data.IsObject() {
		return styleDefault
	}
	v := data.Get(gjsonEscape(field))
	if !v.Exists() {
		return styleDefault
	}
	return v.String()
}

func formatAttributes(attributes []Attribute) string {
	if len(attributes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		parts = append(parts, attr.Name+`="`+attr.Value+`"`)
	}
	return " " + strings.Join(parts, " ")
}

var gjsonPathEscaper = strings.NewReplacer(
	`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`,
)

// gjsonEscape quotes path metacharacters so key is looked up literally.
func gjsonEscape(key string) string {
	return gjsonPathEscaper.Replace(key)
}
