package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprNode is the interface every expression AST node implements. Each
// node has exactly one operation: evaluate itself against a context
// accessor and return a Value (see expr_eval.go).
type ExprNode interface {
	String() string
	exprNode()
}

// ConstantNode wraps a literal value folded at parse time.
type ConstantNode struct {
	Value Value
}

func (n *ConstantNode) exprNode() {}
func (n *ConstantNode) String() string {
	s, err := n.Value.ToString("")
	if err != nil {
		return "<const>"
	}
	if n.Value.Kind() == KindString {
		return strconv.Quote(s)
	}
	return s
}

// ContextRefNode represents the bare `ctx` keyword.
type ContextRefNode struct{}

func (n *ContextRefNode) exprNode()     {}
func (n *ContextRefNode) String() string { return KeywordCtx }

// PropertyNode represents `child.name`.
type PropertyNode struct {
	Child ExprNode
	Name  string
}

func (n *PropertyNode) exprNode() {}
func (n *PropertyNode) String() string {
	return fmt.Sprintf("%s.%s", n.Child.String(), n.Name)
}

// IndexNode represents `child[index]`.
type IndexNode struct {
	Child ExprNode
	Index ExprNode
}

func (n *IndexNode) exprNode() {}
func (n *IndexNode) String() string {
	return fmt.Sprintf("%s[%s]", n.Child.String(), n.Index.String())
}

// MethodCallNode represents `child.name(args...)`.
type MethodCallNode struct {
	Child ExprNode
	Name  string
	Args  []ExprNode
}

func (n *MethodCallNode) exprNode() {}
func (n *MethodCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s.%s(%s)", n.Child.String(), n.Name, strings.Join(args, ", "))
}

// FuncCallNode represents bare `ident(args...)`, sugar for `ctx.ident(args...)`.
type FuncCallNode struct {
	Name string
	Args []ExprNode
}

func (n *FuncCallNode) exprNode() {}
func (n *FuncCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

// UnaryOpNode represents a prefix `-`, `+`, or `!`.
type UnaryOpNode struct {
	Op    string
	Child ExprNode
}

func (n *UnaryOpNode) exprNode() {}
func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("(%s%s)", n.Op, n.Child.String())
}

// BinaryOpNode represents an infix arithmetic/logical/comparison operator.
type BinaryOpNode struct {
	Left  ExprNode
	Op    string
	Right ExprNode
}

func (n *BinaryOpNode) exprNode() {}
func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op, n.Right.String())
}

// TernaryNode represents `cond ? then : else`.
type TernaryNode struct {
	Cond ExprNode
	Then ExprNode
	Else ExprNode
}

func (n *TernaryNode) exprNode() {}
func (n *TernaryNode) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", n.Cond.String(), n.Then.String(), n.Else.String())
}

// ArrayLitNode represents a `[a, b, ...]` array literal expression.
type ArrayLitNode struct {
	Elements []ExprNode
}

func (n *ArrayLitNode) exprNode() {}
func (n *ArrayLitNode) String() string {
	parts := make([]string, len(n.Elements))
	for i, e := range n.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectLitNode represents a `{ident: expr, ...}` object literal expression.
type ObjectLitNode struct {
	Keys   []string
	Values []ExprNode
}

func (n *ObjectLitNode) exprNode() {}
func (n *ObjectLitNode) String() string {
	parts := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		parts[i] = fmt.Sprintf("%s: %s", k, n.Values[i].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// IdentifierNode represents a bare identifier, sugar for `ctx.identifier`.
type IdentifierNode struct {
	Name string
}

func (n *IdentifierNode) exprNode()      {}
func (n *IdentifierNode) String() string { return n.Name }
