package stub

import (
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/surfcheck/internal/guard"
)

// typeCommentRE matches the legacy "# type: X" trailing comment form.
var typeCommentRE = regexp.MustCompile(`^#\s*type:\s*(\S+)`)

// decl is an Entry plus the source row it ended on, kept so trailing type
// comments can be matched up after the walk.
type decl struct {
	Entry
	row uint32
}

type extractor struct {
	unit string
	src  []byte
	gctx *guard.Context

	decls   []decl
	notices []Notice

	// commentRows maps a source row to the comment text found there.
	commentRows map[uint32]string

	exports    []string
	hasExports bool
}

// Extract resolves the document against gctx and returns the declared surface
// together with any extraction notices. A failing conditional guard
// contributes a notice and no entries; the rest of the document is still
// processed.
func (d *Document) Extract(unit string, gctx *guard.Context) (Surface, []Notice) {
	x := &extractor{
		unit:        unit,
		src:         d.src,
		gctx:        gctx,
		commentRows: make(map[uint32]string),
	}
	x.walkBody(d.Root())
	return x.finish(), x.notices
}

// walkBody processes the statements of a module or block node in document
// order.
func (x *extractor) walkBody(body *sitter.Node) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		x.walkStatement(body.NamedChild(i))
	}
}

func (x *extractor) walkStatement(n *sitter.Node) {
	switch n.Type() {
	case "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			x.add(name.Content(x.src), KindClass, "", n)
		}

	case "function_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			x.add(name.Content(x.src), KindFunction, "", n)
		}

	case "decorated_definition":
		// Decorators (@overload, @property) do not change what is declared.
		if def := n.ChildByFieldName("definition"); def != nil {
			x.walkStatement(def)
		}

	case "expression_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "assignment" {
				x.handleAssignment(child)
			}
		}

	case "if_statement":
		x.handleIf(n)

	case "comment":
		x.commentRows[n.StartPoint().Row] = n.Content(x.src)

	default:
		// Imports, docstrings, and anything else declare no surface here.
	}
}

// handleAssignment records value bindings to plain names. Chained assignments
// (a = b = ...) contribute every name; tuple-unpacking targets are ignored,
// matching how stub surfaces are conventionally read.
func (x *extractor) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}
	if left.Type() == "identifier" {
		name := left.Content(x.src)
		declaredType := ""
		if typeNode := n.ChildByFieldName("type"); typeNode != nil {
			declaredType = strings.TrimSpace(typeNode.Content(x.src))
		}
		if name == "__all__" {
			x.recordExports(n.ChildByFieldName("right"))
		}
		x.add(name, KindValue, declaredType, n)
	}
	if right := n.ChildByFieldName("right"); right != nil && right.Type() == "assignment" {
		x.handleAssignment(right)
	}
}

// recordExports reads the string elements of an __all__ list or tuple.
func (x *extractor) recordExports(value *sitter.Node) {
	if value == nil {
		return
	}
	if value.Type() != "list" && value.Type() != "tuple" {
		return
	}
	x.hasExports = true
	for i := 0; i < int(value.NamedChildCount()); i++ {
		elem := value.NamedChild(i)
		if elem.Type() != "string" {
			continue
		}
		name, err := guard.Unquote(elem.Content(x.src))
		if err != nil {
			continue
		}
		x.exports = append(x.exports, name)
	}
}

// handleIf resolves a conditional via the guard evaluator and descends into
// exactly the taken branch. An undecidable guard yields a notice and no
// entries from the whole conditional.
func (x *extractor) handleIf(n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return
	}
	taken, ok := x.evalGuard(cond)
	if !ok {
		return
	}
	if taken {
		if body := n.ChildByFieldName("consequence"); body != nil {
			x.walkBody(body)
		}
		return
	}
	// Walk elif/else alternatives in order until one is taken.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			elifCond := child.ChildByFieldName("condition")
			if elifCond == nil {
				continue
			}
			taken, ok := x.evalGuard(elifCond)
			if !ok {
				return
			}
			if taken {
				if body := child.ChildByFieldName("consequence"); body != nil {
					x.walkBody(body)
				}
				return
			}
		case "else_clause":
			if body := child.ChildByFieldName("body"); body != nil {
				x.walkBody(body)
			}
			return
		}
	}
}

func (x *extractor) evalGuard(cond *sitter.Node) (taken, ok bool) {
	v, err := guard.Eval(cond, x.src, x.gctx)
	if err != nil {
		x.notices = append(x.notices, Notice{
			Unit:    x.unit,
			Message: fmt.Sprintf("bad conditional %q: %v", cond.Content(x.src), err),
		})
		return false, false
	}
	return guard.Truthy(v), true
}

func (x *extractor) add(name string, kind Kind, declaredType string, node *sitter.Node) {
	x.decls = append(x.decls, decl{
		Entry: Entry{Name: name, Kind: kind, DeclaredType: declaredType},
		row:   node.EndPoint().Row,
	})
}

// finish assembles the Surface: trailing type comments are attached, the
// later of duplicate declarations wins, and exportedness is computed from
// __all__ when present, else from the leading-underscore convention.
func (x *extractor) finish() Surface {
	exported := func(name string) bool {
		if x.hasExports {
			for _, e := range x.exports {
				if e == name {
					return true
				}
			}
			return false
		}
		return !strings.HasPrefix(name, "_")
	}

	surface := make(Surface, len(x.decls))
	for _, d := range x.decls {
		entry := d.Entry
		if entry.Kind == KindValue && entry.DeclaredType == "" {
			if comment, ok := x.commentRows[d.row]; ok {
				if m := typeCommentRE.FindStringSubmatch(comment); m != nil {
					entry.DeclaredType = m[1]
				}
			}
		}
		entry.Exported = exported(entry.Name)
		surface[entry.Name] = entry
	}
	return surface
}
