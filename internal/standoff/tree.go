package standoff

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const xmlNamespaceURL = "http://www.w3.org/XML/1998/namespace"

// element is one XML element of an annotation document. Names are kept as
// local names; CATMA exports put everything in the TEI default namespace.
type element struct {
	name     string
	attrs    []xml.Attr
	parent   *element
	children []*element
	content  []contentItem
}

// contentItem preserves the order of character data and child elements so
// text content can be reassembled the way it appears in the document.
type contentItem struct {
	text  string
	child *element
}

// Tree is a decoded annotation document.
type Tree struct {
	root *element
}

// Decode reads a whole annotation document into memory.
func Decode(r io.Reader) (*Tree, error) {
	decoder := xml.NewDecoder(r)

	var root, current *element
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			el := &element{
				name:   t.Name.Local,
				attrs:  append([]xml.Attr(nil), t.Attr...),
				parent: current,
			}
			if current != nil {
				current.children = append(current.children, el)
				current.content = append(current.content, contentItem{child: el})
			} else if root == nil {
				root = el
			}
			current = el
		case xml.EndElement:
			if current != nil {
				current = current.parent
			}
		case xml.CharData:
			if current != nil {
				current.content = append(current.content, contentItem{text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("error parsing XML: document has no root element")
	}

	return &Tree{root: root}, nil
}

// attr returns a non-namespaced attribute by local name.
func (e *element) attr(local string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// xmlID returns the xml:id attribute.
func (e *element) xmlID() (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == "id" && (a.Name.Space == xmlNamespaceURL || a.Name.Space == "xml") {
			return a.Value, true
		}
	}
	return "", false
}

// findAll returns every descendant (not e itself) named name, in document order.
func (e *element) findAll(name string) []*element {
	var found []*element
	var walk func(*element)
	walk = func(n *element) {
		for _, c := range n.children {
			if c.name == name {
				found = append(found, c)
			}
			walk(c)
		}
	}
	walk(e)
	return found
}

// findAllInclusive is findAll over the subtree rooted at e, e included.
func (e *element) findAllInclusive(name string) []*element {
	found := e.findAll(name)
	if e.name == name {
		found = append([]*element{e}, found...)
	}
	return found
}

// textContent concatenates all character data below e.
func (e *element) textContent() string {
	var sb strings.Builder
	var walk func(*element)
	walk = func(n *element) {
		for _, item := range n.content {
			if item.child != nil {
				walk(item.child)
				continue
			}
			sb.WriteString(item.text)
		}
	}
	walk(e)
	return sb.String()
}
