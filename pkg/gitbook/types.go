// Package gitbook renders GitBook document trees, as returned by the GitBook
// content API, into HTML fragments.
package gitbook

import "github.com/pkg/errors"

// ObjectKind is the value of the "object" discriminator of a raw entry.
type ObjectKind string

const (
	ObjectDocument ObjectKind = "document"
	ObjectBlock    ObjectKind = "block"
	ObjectInline   ObjectKind = "inline"
	ObjectText     ObjectKind = "text"
	ObjectLeaf     ObjectKind = "leaf"
)

// IsNode reports whether entries of this kind load into a *Node.
func (k ObjectKind) IsNode() bool {
	switch k {
	case ObjectDocument, ObjectBlock, ObjectInline, ObjectText:
		return true
	}
	return false
}

// ElementType is the structural role of a node. The zero value means the
// entry had no "type" field and renders as a passthrough container.
type ElementType string

const (
	ElementNone          ElementType = ""
	ElementParagraph     ElementType = "paragraph"
	ElementHeading1      ElementType = "heading-1"
	ElementHeading2      ElementType = "heading-2"
	ElementHeading3      ElementType = "heading-3"
	ElementHeading4      ElementType = "heading-4"
	ElementHeading5      ElementType = "heading-5"
	ElementHeading6      ElementType = "heading-6"
	ElementListUnordered ElementType = "list-unordered"
	ElementListOrdered   ElementType = "list-ordered"
	ElementListItem      ElementType = "list-item"
	ElementText          ElementType = "text"
	ElementLink          ElementType = "link"
	ElementTable         ElementType = "table"
)

// TagPair is an opening and closing markup string.
type TagPair struct {
	Open  string
	Close string
}

// Attribute is a single HTML attribute.
type Attribute struct {
	Name  string
	Value string
}

// Element is either a *Node or a *Leaf.
type Element interface {
	Kind() ObjectKind
	Tags() TagPair
	Depth() int
	// Children returns the owned children in render order. Leaves have no
	// children and always return ErrInvalidOperation.
	Children() ([]Element, error)

	writeTo(b *renderBuffer)
}

// Node is a structural element (document, block, inline or text container).
type Node struct {
	kind        ObjectKind
	elementType ElementType
	children    []Element
	attributes  []Attribute
	depth       int
	tags        TagPair
}

func (n *Node) Kind() ObjectKind             { return n.kind }
func (n *Node) ElementType() ElementType     { return n.elementType }
func (n *Node) Tags() TagPair                { return n.tags }
func (n *Node) Depth() int                   { return n.depth }
func (n *Node) Children() ([]Element, error) { return n.children, nil }

// Attributes returns the HTML attributes in insertion order.
func (n *Node) Attributes() []Attribute { return n.attributes }

// Leaf is a run of text carrying zero or more marks.
type Leaf struct {
	text  string
	marks []TagPair
	depth int
	tags  TagPair
}

func (l *Leaf) Kind() ObjectKind { return ObjectLeaf }
func (l *Leaf) Tags() TagPair    { return l.tags }
func (l *Leaf) Depth() int       { return l.depth }
func (l *Leaf) Text() string     { return l.text }

// Marks returns the resolved tag pair of every mark, in source order.
func (l *Leaf) Marks() []TagPair { return l.marks }

func (l *Leaf) Children() ([]Element, error) {
	return nil, errors.Wrap(ErrInvalidOperation, "leaf has no children")
}
