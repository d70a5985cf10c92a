package compile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"src.manglr.sh/pkg/diag"
)

// SourceNode is a node of the markup tree given to the compiler. Nodes with
// an empty Tag are text.
type SourceNode struct {
	Tag      string
	Text     string
	Attrs    []SourceAttr
	Children []*SourceNode

	Line, Column int
}

// SourceAttr is an attribute of a SourceNode.
type SourceAttr struct {
	Name, Value  string
	Line, Column int
}

// Attr returns the value of an attribute and whether it exists.
func (n *SourceNode) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// LoadYAML reads a markup tree from YAML. The document is the list of child
// nodes of the body. Each node is either a string, which is text, or a
// mapping with a single key, the tag. The value of the tag is one of:
//
//   - nothing, for an empty element;
//   - a string, for an element with a single text child;
//   - a list, for an element with the given children;
//   - a mapping of attributes, with the children under the "children" key.
//
// For example:
//
//	- h1: Todos
//	- ul:
//	    children:
//	      - li:
//	          repeat: todo from todos
//	          children: ["{todo.title}"]
func LoadYAML(name string, data []byte) (*SourceNode, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &diag.Error{Type: "syntax error", Message: err.Error(),
			Context: diag.Context{Name: name}}
	}
	l := yamlLoader{name}
	body := &SourceNode{Tag: "body", Line: 1, Column: 1}
	if len(doc.Content) == 0 {
		return body, nil
	}
	children, err := l.children(doc.Content[0])
	if err != nil {
		return nil, err
	}
	body.Children = children
	return body, nil
}

type yamlLoader struct{ name string }

func (l yamlLoader) errorf(n *yaml.Node, format string, args ...any) error {
	return &diag.Error{Type: "syntax error", Message: fmt.Sprintf(format, args...),
		Context: diag.Context{Name: l.name, Line: n.Line, Column: n.Column}}
}

func (l yamlLoader) children(n *yaml.Node) ([]*SourceNode, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return []*SourceNode{{Text: n.Value, Line: n.Line, Column: n.Column}}, nil
	case yaml.SequenceNode:
		children := make([]*SourceNode, 0, len(n.Content))
		for _, c := range n.Content {
			child, err := l.node(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return children, nil
	}
	return nil, l.errorf(n, "children must be a string or a list")
}

func (l yamlLoader) node(n *yaml.Node) (*SourceNode, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return &SourceNode{Text: n.Value, Line: n.Line, Column: n.Column}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, l.errorf(n, "an element must be a mapping with one key")
		}
	default:
		return nil, l.errorf(n, "a node must be a string or a mapping")
	}
	key, value := n.Content[0], n.Content[1]
	el := &SourceNode{Tag: key.Value, Line: key.Line, Column: key.Column}
	if value.Kind != yaml.MappingNode {
		children, err := l.children(value)
		el.Children = children
		return el, err
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Value == "children" {
			children, err := l.children(v)
			if err != nil {
				return nil, err
			}
			el.Children = children
			continue
		}
		if v.Kind != yaml.ScalarNode {
			return nil, l.errorf(v, "value of attribute %q must be a string", k.Value)
		}
		el.Attrs = append(el.Attrs, SourceAttr{k.Value, v.Value, k.Line, k.Column})
	}
	return el, nil
}
