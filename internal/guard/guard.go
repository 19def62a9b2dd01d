// Package guard evaluates the restricted conditional expressions that gate
// version- and platform-specific sections of a stub document. It interprets a
// small, closed subset of Python expression syntax over a tree-sitter node and
// a single injected context value bound to the identifier "sys". Anything
// outside the subset fails with *EvalError so callers can treat the branch as
// undecidable instead of guessing.
package guard

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// EvalError reports a guard expression the evaluator refuses to interpret.
type EvalError struct {
	msg string
}

func (e *EvalError) Error() string { return "guard: " + e.msg }

func errf(format string, args ...any) *EvalError {
	return &EvalError{msg: fmt.Sprintf(format, args...)}
}

// Context holds the fixed evaluation environment. Only the "sys" identifier
// resolves; its attributes mirror the interpreter being checked.
type Context struct {
	sys map[string]any
}

// NewContext builds a Context for the given interpreter version and platform.
// versionInfo is exposed as sys.version_info, a tuple shaped like Python's
// (major, minor, micro, releaselevel, serial).
func NewContext(major, minor, micro int, platform string, maxsize int64) *Context {
	return &Context{
		sys: map[string]any{
			"version_info": []any{int64(major), int64(minor), int64(micro), "final", int64(0)},
			"platform":     platform,
			"maxsize":      maxsize,
		},
	}
}

// Eval evaluates expr (a tree-sitter Python expression node over src) in ctx.
// The result is one of int64, string, bool, []any (tuple), or map[string]any
// (the context object itself).
func Eval(expr *sitter.Node, src []byte, ctx *Context) (any, error) {
	if ctx == nil {
		return nil, errf("nil context")
	}
	return eval(expr, src, ctx)
}

func eval(n *sitter.Node, src []byte, ctx *Context) (any, error) {
	switch n.Type() {
	case "parenthesized_expression":
		inner := firstNamedChild(n)
		if inner == nil {
			return nil, errf("empty parenthesized expression")
		}
		return eval(inner, src, ctx)

	case "integer":
		text := strings.ReplaceAll(n.Content(src), "_", "")
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, errf("cannot parse integer %q", n.Content(src))
		}
		return v, nil

	case "string":
		return Unquote(n.Content(src))

	case "tuple":
		var elems []any
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v, err := eval(n.NamedChild(i), src, ctx)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return elems, nil

	case "identifier":
		if name := n.Content(src); name != "sys" {
			return nil, errf("cannot evaluate name %q", name)
		}
		return ctx.sys, nil

	case "attribute":
		return evalAttribute(n, src, ctx)

	case "subscript":
		return evalSubscript(n, src, ctx)

	case "comparison_operator":
		return evalComparison(n, src, ctx)

	case "boolean_operator":
		return evalBoolean(n, src, ctx)

	default:
		return nil, errf("cannot evaluate %s node %q", n.Type(), n.Content(src))
	}
}

func evalAttribute(n *sitter.Node, src []byte, ctx *Context) (any, error) {
	objNode := n.ChildByFieldName("object")
	attrNode := n.ChildByFieldName("attribute")
	if objNode == nil || attrNode == nil {
		return nil, errf("malformed attribute access %q", n.Content(src))
	}
	obj, err := eval(objNode, src, ctx)
	if err != nil {
		return nil, err
	}
	attrs, ok := obj.(map[string]any)
	if !ok {
		return nil, errf("cannot access attribute %q on %s", attrNode.Content(src), typeName(obj))
	}
	v, ok := attrs[attrNode.Content(src)]
	if !ok {
		return nil, errf("cannot access attribute %q", attrNode.Content(src))
	}
	return v, nil
}

func evalSubscript(n *sitter.Node, src []byte, ctx *Context) (any, error) {
	valNode := n.ChildByFieldName("value")
	subNode := n.ChildByFieldName("subscript")
	if valNode == nil || subNode == nil {
		return nil, errf("malformed subscript %q", n.Content(src))
	}
	val, err := eval(valNode, src, ctx)
	if err != nil {
		return nil, err
	}
	if subNode.Type() == "slice" {
		lo, hi, step, err := evalSlice(subNode, src, ctx)
		if err != nil {
			return nil, err
		}
		return applySlice(val, lo, hi, step)
	}
	idx, err := eval(subNode, src, ctx)
	if err != nil {
		return nil, err
	}
	return applyIndex(val, idx)
}

// evalSlice splits a slice node's bound expressions on the ":" tokens, since
// the python grammar gives the bounds no field names. Each bound is *int64,
// nil meaning omitted.
func evalSlice(n *sitter.Node, src []byte, ctx *Context) (lo, hi, step *int64, err error) {
	bounds := [3]*int64{}
	slot := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			if child.Content(src) == ":" {
				slot++
			}
			continue
		}
		if slot > 2 {
			return nil, nil, nil, errf("malformed slice %q", n.Content(src))
		}
		v, err := eval(child, src, ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		iv, ok := v.(int64)
		if !ok {
			return nil, nil, nil, errf("slice bound must be an integer, got %s", typeName(v))
		}
		bounds[slot] = &iv
	}
	return bounds[0], bounds[1], bounds[2], nil
}

func applySlice(val any, lo, hi, step *int64) (any, error) {
	st := int64(1)
	if step != nil {
		st = *step
	}
	if st == 0 {
		return nil, errf("slice step cannot be zero")
	}
	switch v := val.(type) {
	case []any:
		idxs := sliceIndices(int64(len(v)), lo, hi, st)
		out := make([]any, 0, len(idxs))
		for _, i := range idxs {
			out = append(out, v[i])
		}
		return out, nil
	case string:
		idxs := sliceIndices(int64(len(v)), lo, hi, st)
		var b strings.Builder
		for _, i := range idxs {
			b.WriteByte(v[i])
		}
		return b.String(), nil
	default:
		return nil, errf("cannot slice %s value", typeName(val))
	}
}

// sliceIndices mirrors Python slice semantics: bounds are clamped, negatives
// count from the end, and a negative step walks backwards.
func sliceIndices(n int64, lo, hi *int64, step int64) []int64 {
	normalize := func(b *int64, def int64) int64 {
		if b == nil {
			return def
		}
		v := *b
		if v < 0 {
			v += n
		}
		return v
	}
	var start, stop int64
	if step > 0 {
		start = clamp(normalize(lo, 0), 0, n)
		stop = clamp(normalize(hi, n), 0, n)
	} else {
		start = clamp(normalize(lo, n-1), -1, n-1)
		stop = clamp(normalize(hi, -1), -1, n-1)
	}
	var out []int64
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func applyIndex(val, idx any) (any, error) {
	i, ok := idx.(int64)
	if !ok {
		return nil, errf("subscript index must be an integer, got %s", typeName(idx))
	}
	switch v := val.(type) {
	case []any:
		if i < 0 {
			i += int64(len(v))
		}
		if i < 0 || i >= int64(len(v)) {
			return nil, errf("tuple index %d out of range", i)
		}
		return v[i], nil
	case string:
		if i < 0 {
			i += int64(len(v))
		}
		if i < 0 || i >= int64(len(v)) {
			return nil, errf("string index %d out of range", i)
		}
		return string(v[i]), nil
	default:
		return nil, errf("cannot index %s value", typeName(val))
	}
}

func evalComparison(n *sitter.Node, src []byte, ctx *Context) (any, error) {
	// Operands are the named children; operator tokens are the unnamed ones.
	// "not in" and "is not" arrive as two adjacent tokens.
	var operands []*sitter.Node
	var opTokens []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			operands = append(operands, child)
		} else {
			opTokens = append(opTokens, child.Content(src))
		}
	}
	if len(operands) != 2 {
		return nil, errf("cannot evaluate chained comparison %q", n.Content(src))
	}
	op := strings.Join(opTokens, " ")

	left, err := eval(operands[0], src, ctx)
	if err != nil {
		return nil, err
	}
	right, err := eval(operands[1], src, ctx)
	if err != nil {
		return nil, err
	}
	return compare(op, left, right)
}

func compare(op string, left, right any) (any, error) {
	switch op {
	case "==", "is":
		return equal(left, right), nil
	case "!=", "is not":
		return !equal(left, right), nil
	case "<", "<=", ">", ">=":
		c, err := order(left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "in":
		return contains(right, left)
	case "not in":
		ok, err := contains(right, left)
		if err != nil {
			return nil, err
		}
		return !ok.(bool), nil
	default:
		return nil, errf("unsupported comparison operator %q", op)
	}
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// order compares two values of the same shape, returning -1, 0, or 1.
// Tuples compare lexicographically, a shorter tuple ranking below its own
// prefix, matching Python.
func order(a, b any) (int, error) {
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return 0, errf("cannot order int and %s", typeName(b))
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, errf("cannot order str and %s", typeName(b))
		}
		return strings.Compare(av, bv), nil
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return 0, errf("cannot order tuple and %s", typeName(b))
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			c, err := order(av[i], bv[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		switch {
		case len(av) < len(bv):
			return -1, nil
		case len(av) > len(bv):
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errf("cannot order %s values", typeName(a))
	}
}

func contains(container, item any) (any, error) {
	switch cv := container.(type) {
	case []any:
		for _, elem := range cv {
			if equal(elem, item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, errf("cannot test %s membership in str", typeName(item))
		}
		return strings.Contains(cv, s), nil
	default:
		return nil, errf("cannot test membership in %s value", typeName(container))
	}
}

func evalBoolean(n *sitter.Node, src []byte, ctx *Context) (any, error) {
	leftNode := n.ChildByFieldName("left")
	rightNode := n.ChildByFieldName("right")
	opNode := n.ChildByFieldName("operator")
	if leftNode == nil || rightNode == nil || opNode == nil {
		return nil, errf("malformed boolean expression %q", n.Content(src))
	}
	left, err := eval(leftNode, src, ctx)
	if err != nil {
		return nil, err
	}
	// Short-circuit returns the deciding operand's value, not a coerced bool.
	switch op := opNode.Content(src); op {
	case "or":
		if Truthy(left) {
			return left, nil
		}
	case "and":
		if !Truthy(left) {
			return left, nil
		}
	default:
		return nil, errf("unsupported boolean operator %q", op)
	}
	return eval(rightNode, src, ctx)
}

// Truthy reports the Python truthiness of an evaluated guard value.
func Truthy(v any) bool {
	switch tv := v.(type) {
	case bool:
		return tv
	case int64:
		return tv != 0
	case string:
		return tv != ""
	case []any:
		return len(tv) > 0
	case map[string]any:
		return true
	default:
		return v != nil
	}
}

func typeName(v any) string {
	switch v.(type) {
	case int64:
		return "int"
	case string:
		return "str"
	case bool:
		return "bool"
	case []any:
		return "tuple"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// Unquote strips Python string quoting: optional r/b/u prefix, then single,
// double, or triple quotes. Only the escape sequences that plausibly appear
// in platform guards are decoded.
func Unquote(s string) (string, error) {
	raw := false
	for len(s) > 0 {
		c := s[0]
		if c == '\'' || c == '"' {
			break
		}
		switch c {
		case 'r', 'R':
			raw = true
		case 'b', 'B', 'u', 'U', 'f', 'F':
		default:
			return "", errf("cannot parse string literal %q", s)
		}
		s = s[1:]
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			if raw {
				return s, nil
			}
			return decodeEscapes(s), nil
		}
	}
	return "", errf("cannot parse string literal %q", s)
}

func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	replacer := strings.NewReplacer(
		`\\`, `\`,
		`\'`, `'`,
		`\"`, `"`,
		`\n`, "\n",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
