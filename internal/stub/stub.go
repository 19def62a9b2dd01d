// Package stub parses typeshed-style stub documents (.pyi files) with
// tree-sitter and extracts the surface they declare: the set of class,
// function, and value-binding names a unit promises to expose, with
// conditional sections resolved against a version/platform context.
package stub

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Kind classifies a declared name.
type Kind string

const (
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindValue    Kind = "value-binding"
)

// Entry is one name a stub document declares.
type Entry struct {
	Name     string
	Kind     Kind
	Exported bool

	// DeclaredType holds the coarse annotation or "# type:" comment attached
	// to a value binding ("int", "str", ...). Empty for other kinds.
	DeclaredType string
}

// Surface maps declared names to their entries for one unit. Built once per
// check and treated as immutable afterwards.
type Surface map[string]Entry

// Notice is a non-fatal extraction finding, such as a conditional whose guard
// the evaluator refused to interpret.
type Notice struct {
	Unit    string
	Message string
}

// Document is a parsed stub file.
type Document struct {
	tree *sitter.Tree
	src  []byte
}

// Parse parses stub source into a Document. The caller owns the Document and
// should Close it when done.
func Parse(ctx context.Context, src []byte) (*Document, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("stub: parse: %w", err)
	}
	return &Document{tree: tree, src: src}, nil
}

// Close releases the underlying tree-sitter tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// Root returns the document's module node.
func (d *Document) Root() *sitter.Node {
	return d.tree.RootNode()
}

// Source returns the raw stub bytes backing the tree.
func (d *Document) Source() []byte {
	return d.src
}
