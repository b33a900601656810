package flickr

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is an element of a parsed XML response
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
	Text     string
}

// Attr returns the value of the named attribute, or "" when absent
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// FirstChild returns the first element child, or nil
func (n *Node) FirstChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Child returns the first element child with the given name, or nil
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all element children with the given name
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// TextOf returns the trimmed text of the named child, or ""
func (n *Node) TextOf(name string) string {
	return strings.TrimSpace(n.Child(name).textOrEmpty())
}

func (n *Node) textOrEmpty() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// String renders the node back to XML
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	n.write(&buf)
	return buf.String()
}

func (n *Node) write(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, k := range Args(n.Attrs).sortedKeys() {
		fmt.Fprintf(buf, ` %s="`, k)
		xml.EscapeText(buf, []byte(n.Attrs[k]))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	xml.EscapeText(buf, []byte(n.Text))
	for _, c := range n.Children {
		c.write(buf)
	}
	fmt.Fprintf(buf, "</%s>", n.Name)
}

var errEmptyDocument = errors.New("document has no root element")

// parseDocument parses data and returns its root element. Text of mixed
// content is concatenated into Node.Text.
func parseDocument(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errEmptyDocument
	}
	return root, nil
}
