package internal

import "fmt"

// TextNode is the interface for text-template AST nodes (spec section
// 3). Renderable reports whether the node is expected to produce
// visible output (variable binds are not). The sequential renderer's
// newline stitching (§4.4) does not consult it: it keys on a child's
// rendered output being empty.
type TextNode interface {
	Renderable() bool
	String() string
}

// PlainNode is a literal run of source text.
type PlainNode struct{ Text string }

func (n *PlainNode) Renderable() bool { return true }
func (n *PlainNode) String() string   { return fmt.Sprintf("Plain(%q)", n.Text) }

// ExprOutputNode emits the formatted result of an expression (`@expr`
// or `@expr:format`).
type ExprOutputNode struct {
	Expr   ExprNode
	Format string
}

func (n *ExprOutputNode) Renderable() bool { return true }
func (n *ExprOutputNode) String() string   { return "@" + n.Expr.String() }

// TextIfElseNode is `@if cond { then } else { else }`.
type TextIfElseNode struct {
	Cond ExprNode
	Then TextNode
	Else TextNode // nil if no else branch
}

func (n *TextIfElseNode) Renderable() bool { return true }
func (n *TextIfElseNode) String() string   { return "@if(" + n.Cond.String() + ")" }

// TextForeachNode is `@foreach x in expr { body }`.
type TextForeachNode struct {
	Iterable ExprNode
	Var      string
	Body     TextNode
}

func (n *TextForeachNode) Renderable() bool { return true }
func (n *TextForeachNode) String() string {
	return "@foreach(" + n.Var + " in " + n.Iterable.String() + ")"
}

// TextRenderNode is `@render nameExpr [with ctxExpr]`.
type TextRenderNode struct {
	Name ExprNode
	Ctx  ExprNode // nil if not supplied
}

func (n *TextRenderNode) Renderable() bool { return true }
func (n *TextRenderNode) String() string   { return "@render(" + n.Name.String() + ")" }

// TextVarAssignNode is `@let name = expr` (Create=true) or
// `@name = expr` (Create=false, rebind-existing).
type TextVarAssignNode struct {
	Name   string
	Expr   ExprNode
	Create bool
}

func (n *TextVarAssignNode) Renderable() bool { return false }
func (n *TextVarAssignNode) String() string   { return "@let " + n.Name + " = " + n.Expr.String() }

// TextSequentialNode concatenates its children with newline stitching.
type TextSequentialNode struct{ Children []TextNode }

func (n *TextSequentialNode) Renderable() bool { return true }
func (n *TextSequentialNode) String() string   { return fmt.Sprintf("Sequential(%d)", len(n.Children)) }

// ---- Messages template AST ----

// MessagesNode is the interface for messages-template AST nodes.
type MessagesNode interface {
	String() string
	messagesNode()
}

// MessagesEntryNode wraps a role expression around a text-template
// sub-tree, emitting one {role, text} pair (spec section 4.6).
type MessagesEntryNode struct {
	Role ExprNode
	Body TextNode
}

func (n *MessagesEntryNode) messagesNode() {}
func (n *MessagesEntryNode) String() string {
	return "@message(" + n.Role.String() + ")"
}

type MessagesIfElseNode struct {
	Cond ExprNode
	Then MessagesNode
	Else MessagesNode
}

func (n *MessagesIfElseNode) messagesNode()  {}
func (n *MessagesIfElseNode) String() string { return "@if(" + n.Cond.String() + ")" }

type MessagesForeachNode struct {
	Iterable ExprNode
	Var      string
	Body     MessagesNode
}

func (n *MessagesForeachNode) messagesNode() {}
func (n *MessagesForeachNode) String() string {
	return "@foreach(" + n.Var + " in " + n.Iterable.String() + ")"
}

type MessagesRenderNode struct {
	Name ExprNode
	Ctx  ExprNode
}

func (n *MessagesRenderNode) messagesNode()  {}
func (n *MessagesRenderNode) String() string { return "@render(" + n.Name.String() + ")" }

type MessagesVarAssignNode struct {
	Name   string
	Expr   ExprNode
	Create bool
}

func (n *MessagesVarAssignNode) messagesNode() {}
func (n *MessagesVarAssignNode) String() string {
	return "@let " + n.Name + " = " + n.Expr.String()
}

type MessagesSequentialNode struct{ Children []MessagesNode }

func (n *MessagesSequentialNode) messagesNode() {}
func (n *MessagesSequentialNode) String() string {
	return fmt.Sprintf("Sequential(%d)", len(n.Children))
}

// Message is the engine's abstract {role, text} pair (spec section 1,
// "Out of scope" — the engine never depends on a concrete chat-message
// library, only on this pair shape).
type Message struct {
	Role string
	Text string
}
