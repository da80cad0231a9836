package internal

// EvalExpr recursively evaluates an expression AST node against a
// context accessor. Per spec section 4.1/9's locked-in Open Question,
// `&&` and `||` always evaluate both operands — there is no
// short-circuiting here, unlike a typical Go boolean expression.
func EvalExpr(node ExprNode, ctx *ContextAccessor) (Value, error) {
	v, err := evalExpr(node, ctx)
	if err != nil {
		return nil, attachNode(err, node)
	}
	return v, nil
}

func evalExpr(node ExprNode, ctx *ContextAccessor) (Value, error) {
	switch n := node.(type) {
	case *ConstantNode:
		return n.Value, nil

	case *ContextRefNode:
		return ctx, nil

	case *IdentifierNode:
		return ctx.Property(n.Name)

	case *PropertyNode:
		child, err := evalExpr(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return child.Property(n.Name)

	case *IndexNode:
		child, err := evalExpr(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		idx, err := evalExpr(n.Index, ctx)
		if err != nil {
			return nil, err
		}
		return child.Index(idx)

	case *MethodCallNode:
		child, err := evalExpr(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		args, err := evalArgs(n.Args, ctx)
		if err != nil {
			return nil, err
		}
		return child.Call(n.Name, args)

	case *FuncCallNode:
		args, err := evalArgs(n.Args, ctx)
		if err != nil {
			return nil, err
		}
		return ctx.Call(n.Name, args)

	case *UnaryOpNode:
		child, err := evalExpr(n.Child, ctx)
		if err != nil {
			return nil, err
		}
		return UnaryEval(n.Op, child)

	case *BinaryOpNode:
		left, err := evalExpr(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return BinaryEval(left, n.Op, right)

	case *TernaryNode:
		cond, err := evalExpr(n.Cond, ctx)
		if err != nil {
			return nil, err
		}
		if cond.AsBool() {
			return evalExpr(n.Then, ctx)
		}
		return evalExpr(n.Else, ctx)

	case *ArrayLitNode:
		elems := make([]Value, len(n.Elements))
		for i, e := range n.Elements {
			v, err := evalExpr(e, ctx)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return ArrayValue(elems), nil

	case *ObjectLitNode:
		d := NewDict()
		for i, k := range n.Keys {
			v, err := evalExpr(n.Values[i], ctx)
			if err != nil {
				return nil, err
			}
			d.Set(k, v)
		}
		return d, nil

	default:
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, node.String(), nil, "unknown expression node")
	}
}

func evalArgs(nodes []ExprNode, ctx *ContextAccessor) ([]Value, error) {
	args := make([]Value, len(nodes))
	for i, a := range nodes {
		v, err := evalExpr(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func attachNode(err error, node ExprNode) error {
	if re, ok := err.(*RuntimeError); ok && re.Node == "" {
		re.Node = node.String()
	}
	return err
}
