package internal

import "strings"

// renderText walks a text-template node tree, producing its string
// output under ctx (spec section 4.4).
func renderText(node TextNode, ctx *ContextAccessor) (string, error) {
	switch n := node.(type) {
	case *PlainNode:
		return n.Text, nil

	case *ExprOutputNode:
		v, err := EvalExpr(n.Expr, ctx)
		if err != nil {
			return "", err
		}
		return v.ToString(n.Format)

	case *TextIfElseNode:
		cond, err := EvalExpr(n.Cond, ctx)
		if err != nil {
			return "", err
		}
		branch := n.Else
		if cond.AsBool() {
			branch = n.Then
		}
		if branch == nil {
			return "", nil
		}
		if err := ctx.PushFrame(); err != nil {
			return "", err
		}
		defer ctx.PopFrame()
		return renderText(branch, ctx)

	case *TextForeachNode:
		return renderTextForeach(n, ctx)

	case *TextRenderNode:
		return renderTextRenderDirective(n, ctx)

	case *TextVarAssignNode:
		v, err := EvalExpr(n.Expr, ctx)
		if err != nil {
			return "", err
		}
		if n.Create {
			ctx.Bind(n.Name, v)
		} else if err := ctx.Rebind(n.Name, v); err != nil {
			return "", err
		}
		return "", nil

	case *TextSequentialNode:
		return renderTextSequential(n.Children, ctx)

	default:
		return "", NewRuntimeError(RuntimeErrBinaryNotApplicable, node.String(), nil, "unknown text node")
	}
}

// renderTextForeach renders the body once per element and joins the
// results with a newline. The refinement pass (internal/refine.go)
// strips the blank line the body's own closing brace leaves behind, so
// without this explicit join successive iterations would run together
// on one line; spec section 8's worked foreach examples render one
// line per element, so the separator is supplied here instead.
func renderTextForeach(n *TextForeachNode, ctx *ContextAccessor) (string, error) {
	iterable, err := EvalExpr(n.Iterable, ctx)
	if err != nil {
		return "", err
	}
	elems, err := Iterate(iterable)
	if err != nil {
		return "", err
	}
	if err := ctx.PushFrame(); err != nil {
		return "", err
	}
	defer ctx.PopFrame()
	outputs := make([]string, 0, len(elems))
	for _, elem := range elems {
		ctx.Bind(n.Var, elem)
		out, err := renderText(n.Body, ctx)
		if err != nil {
			return "", err
		}
		outputs = append(outputs, out)
	}
	return strings.Join(outputs, "\n"), nil
}

func renderTextRenderDirective(n *TextRenderNode, ctx *ContextAccessor) (string, error) {
	tmpl, renderCtx, err := resolveRenderTarget(n.Name, n.Ctx, ctx)
	if err != nil {
		return "", err
	}
	if tmpl.Kind == TemplateKindMessages {
		return "", NewRuntimeError(RuntimeErrTemplateKindMismatch, n.String(), tmpl.Kind, "cannot @render a messages template from a text context")
	}
	return tmpl.Render(renderCtx)
}

// resolveRenderTarget evaluates the render directive's name and (if
// present) context expressions, then looks the template up first in
// the current accessor's library and, failing that, the process-wide
// shared library (spec section 4.8).
func resolveRenderTarget(nameExpr, ctxExpr ExprNode, ctx *ContextAccessor) (*Template, *ContextAccessor, error) {
	nameVal, err := EvalExpr(nameExpr, ctx)
	if err != nil {
		return nil, nil, err
	}
	name, err := nameVal.ToString("")
	if err != nil {
		return nil, nil, err
	}
	var tmpl *Template
	if ctx.Library() != nil {
		tmpl, _ = ctx.Library().GetSingleStrictBestEffort(NewIdentifier(name))
	}
	if tmpl == nil {
		tmpl, _ = SharedLibrary().GetSingleStrictBestEffort(NewIdentifier(name))
	}
	if tmpl == nil {
		return nil, nil, NewRuntimeError(RuntimeErrTemplateNotFound, nameExpr.String(), name, "no template registered for identifier "+name)
	}
	renderCtx := ctx
	if ctxExpr != nil {
		root, err := EvalExpr(ctxExpr, ctx)
		if err != nil {
			return nil, nil, err
		}
		renderCtx = ctx.WithRoot(root)
	}
	return tmpl, renderCtx, nil
}

// renderTextSequential stitches children together: a child that
// renders to the empty string (a variable bind, or a conditional
// branch that didn't fire) is invisible, and the newline that
// separated it from its neighbours collapses to a single newline
// rather than vanishing along with it or doubling up (spec section
// 4.4, "sequential rendering").
func renderTextSequential(children []TextNode, ctx *ContextAccessor) (string, error) {
	var sb strings.Builder
	suppressNextLeadingNewline := false
	for _, child := range children {
		out, err := renderText(child, ctx)
		if err != nil {
			return "", err
		}
		if out == "" {
			if endsWithNewline(sb.String()) {
				suppressNextLeadingNewline = true
			}
			continue
		}
		if suppressNextLeadingNewline {
			out = stripOneLeadingNewline(out)
			suppressNextLeadingNewline = false
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func endsWithNewline(s string) bool {
	return strings.HasSuffix(s, "\n")
}

func stripOneLeadingNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}

// ---- Messages rendering ----

func renderMessages(node MessagesNode, ctx *ContextAccessor) ([]Message, error) {
	switch n := node.(type) {
	case *MessagesEntryNode:
		roleVal, err := EvalExpr(n.Role, ctx)
		if err != nil {
			return nil, err
		}
		role, err := roleVal.ToString("")
		if err != nil {
			return nil, err
		}
		if err := validateRole(role); err != nil {
			return nil, err
		}
		text, err := renderText(n.Body, ctx)
		if err != nil {
			return nil, err
		}
		return []Message{{Role: role, Text: text}}, nil

	case *MessagesIfElseNode:
		cond, err := EvalExpr(n.Cond, ctx)
		if err != nil {
			return nil, err
		}
		branch := n.Else
		if cond.AsBool() {
			branch = n.Then
		}
		if branch == nil {
			return nil, nil
		}
		if err := ctx.PushFrame(); err != nil {
			return nil, err
		}
		defer ctx.PopFrame()
		return renderMessages(branch, ctx)

	case *MessagesForeachNode:
		return renderMessagesForeach(n, ctx)

	case *MessagesRenderNode:
		return renderMessagesRenderDirective(n, ctx)

	case *MessagesVarAssignNode:
		v, err := EvalExpr(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if n.Create {
			ctx.Bind(n.Name, v)
		} else if err := ctx.Rebind(n.Name, v); err != nil {
			return nil, err
		}
		return nil, nil

	case *MessagesSequentialNode:
		var out []Message
		for _, child := range n.Children {
			msgs, err := renderMessages(child, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, msgs...)
		}
		return out, nil

	default:
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, node.String(), nil, "unknown messages node")
	}
}

func renderMessagesForeach(n *MessagesForeachNode, ctx *ContextAccessor) ([]Message, error) {
	iterable, err := EvalExpr(n.Iterable, ctx)
	if err != nil {
		return nil, err
	}
	elems, err := Iterate(iterable)
	if err != nil {
		return nil, err
	}
	if err := ctx.PushFrame(); err != nil {
		return nil, err
	}
	defer ctx.PopFrame()
	var out []Message
	for _, elem := range elems {
		ctx.Bind(n.Var, elem)
		msgs, err := renderMessages(n.Body, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func renderMessagesRenderDirective(n *MessagesRenderNode, ctx *ContextAccessor) ([]Message, error) {
	tmpl, renderCtx, err := resolveRenderTarget(n.Name, n.Ctx, ctx)
	if err != nil {
		return nil, err
	}
	if tmpl.Kind != TemplateKindMessages {
		return nil, NewRuntimeError(RuntimeErrTemplateKindMismatch, n.String(), tmpl.Kind, "cannot @render a non-messages template from a messages context")
	}
	return tmpl.RenderMessages(renderCtx)
}

func validateRole(role string) error {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	case RoleTool:
		return NewRuntimeError(RuntimeErrToolNotSupported, "", role, "tool role is reserved and not yet supported")
	default:
		return NewRuntimeError(RuntimeErrInvalidRole, "", role, "unknown role: "+role)
	}
}
