package xmlrows

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNoRoot is returned for documents without any element.
	ErrNoRoot = errors.New("no root element")
	// ErrMultipleRoots is returned when several documents were concatenated.
	ErrMultipleRoots = errors.New("multiple root elements")
	// ErrNoChildren is returned when the root carries a bare value.
	ErrNoChildren = errors.New("root element has no child elements")
)

// StructuredParser parses well-formed documents with encoding/xml.
type StructuredParser struct{}

// Name implements Strategy.
func (StructuredParser) Name() Kind { return KindStructured }

type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	content  strings.Builder // all descendant character data, in order
}

// Extract implements Strategy.
func (p StructuredParser) Extract(text, itemHint string) (Result, error) {
	root, err := parseTree(text)
	if err != nil {
		return Result{Kind: KindStructured}, err
	}
	if len(root.children) == 0 {
		return Result{Kind: KindStructured}, ErrNoChildren
	}

	items := collectItems(root, itemHint)
	if len(items) == 0 && itemHint != "" {
		items = collectItems(root, "")
	}

	if len(items) == 0 {
		row := make(Row)
		flatten(row, root, "")
		return Result{Kind: KindStructured, Rows: []Row{row}}, nil
	}

	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row := make(Row, len(item.children))
		for _, child := range item.children {
			row[child.name] = CleanText(child.content.String())
		}
		rows = append(rows, row)
	}
	return Result{Kind: KindStructured, Rows: rows}, nil
}

func parseTree(text string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	// the text is already decoded; the prolog's encoding label is stale
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}

	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml syntax: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, ErrMultipleRoots
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				for _, open := range stack {
					open.content.Write(t)
				}
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("xml syntax: text outside root element")
			}
		}
	}

	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// collectItems returns item elements in document order without descending
// into a matched item.
func collectItems(n *node, hint string) []*node {
	var out []*node
	for _, c := range n.children {
		if isItemName(c.name, hint) {
			out = append(out, c)
			continue
		}
		out = append(out, collectItems(c, hint)...)
	}
	return out
}

func flatten(row Row, n *node, prefix string) {
	base := prefix
	if base == "" {
		base = n.name
	}
	for _, a := range n.attrs {
		row[base+"."+a.Name.Local] = CleanText(a.Value)
	}

	for _, c := range n.children {
		path := c.name
		if prefix != "" {
			path = prefix + "." + c.name
		}
		if len(c.children) == 0 {
			row[path] = CleanText(c.content.String())
			for _, a := range c.attrs {
				row[path+"."+a.Name.Local] = CleanText(a.Value)
			}
			continue
		}
		flatten(row, c, path)
	}
}
