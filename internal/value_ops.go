package internal

import "fmt"

// UnaryEval applies a prefix operator (spec section 4.1). LogicalNot is
// universal; Negate is numeric only.
func UnaryEval(op string, v Value) (Value, error) {
	switch op {
	case OpNot:
		return NewBool(!v.AsBool()), nil
	case OpSub:
		n, ok := v.(NumberValue)
		if !ok {
			return nil, NewRuntimeError(RuntimeErrUnaryNotApplicable, "", v, fmt.Sprintf("unary - not applicable to %s", v.Kind()))
		}
		return NewNumber(-float64(n)), nil
	case OpAdd:
		n, ok := v.(NumberValue)
		if !ok {
			return nil, NewRuntimeError(RuntimeErrUnaryNotApplicable, "", v, fmt.Sprintf("unary + not applicable to %s", v.Kind()))
		}
		return NewNumber(float64(n)), nil
	default:
		return nil, NewRuntimeError(RuntimeErrUnaryNotApplicable, "", v, "unknown unary operator "+op)
	}
}

// BinaryEval applies an infix operator (spec section 4.1). `&&`/`||`
// always evaluate both operands (the caller has already done so); this
// function only combines the two already-evaluated operands.
func BinaryEval(left Value, op string, right Value) (Value, error) {
	switch op {
	case OpAdd:
		return evalAdd(left, right)
	case OpSub, OpMul, OpDiv, OpMod:
		return evalArith(left, op, right)
	case OpLt, OpLte, OpGt, OpGte:
		return evalCompare(left, op, right)
	case OpEq:
		return NewBool(ValuesEqual(left, right)), nil
	case OpNeq:
		return NewBool(!ValuesEqual(left, right)), nil
	case OpAnd:
		return NewBool(left.AsBool() && right.AsBool()), nil
	case OpOr:
		return NewBool(left.AsBool() || right.AsBool()), nil
	default:
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", nil, "unknown binary operator "+op)
	}
}

func evalAdd(left, right Value) (Value, error) {
	ln, lok := left.(NumberValue)
	rn, rok := right.(NumberValue)
	if lok && rok {
		return NewNumber(float64(ln) + float64(rn)), nil
	}
	if left.Kind() == KindString || right.Kind() == KindString {
		ls, err := left.ToString("")
		if err != nil {
			return nil, err
		}
		rs, err := right.ToString("")
		if err != nil {
			return nil, err
		}
		return NewString(ls + rs), nil
	}
	if la, lok := left.(ArrayValue); lok {
		if ra, rok := right.(ArrayValue); rok {
			combined := make([]Value, 0, len(la)+len(ra))
			combined = append(combined, la...)
			combined = append(combined, ra...)
			return ArrayValue(combined), nil
		}
	}
	if ld, lok := left.(*DictValue); lok {
		if rd, rok := right.(*DictValue); rok {
			return ld.Merge(rd), nil
		}
	}
	return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", nil,
		fmt.Sprintf("+ not applicable to %s and %s", left.Kind(), right.Kind()))
}

func evalArith(left Value, op string, right Value) (Value, error) {
	ln, lok := left.(NumberValue)
	rn, rok := right.(NumberValue)
	if !lok || !rok {
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", nil,
			fmt.Sprintf("%s not applicable to %s and %s", op, left.Kind(), right.Kind()))
	}
	a, b := float64(ln), float64(rn)
	switch op {
	case OpSub:
		return NewNumber(a - b), nil
	case OpMul:
		return NewNumber(a * b), nil
	case OpDiv:
		return NewNumber(a / b), nil
	case OpMod:
		return NewNumber(float64(int64(a) % int64(b))), nil
	}
	return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", nil, "unknown arithmetic operator "+op)
}

func evalCompare(left Value, op string, right Value) (Value, error) {
	if ln, lok := left.(NumberValue); lok {
		if rn, rok := right.(NumberValue); rok {
			return NewBool(compareNum(float64(ln), op, float64(rn))), nil
		}
	}
	if ls, lok := left.(StringValue); lok {
		if rs, rok := right.(StringValue); rok {
			return NewBool(compareStr(string(ls), op, string(rs))), nil
		}
	}
	return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", nil,
		fmt.Sprintf("%s not applicable to %s and %s", op, left.Kind(), right.Kind()))
}

func compareNum(a float64, op string, b float64) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	}
	return false
}

func compareStr(a string, op string, b string) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	}
	return false
}

// ValuesEqual implements `==`/`!=`'s structural equality over the
// wrapped native value; arrays/dicts compare element/entry-wise.
func ValuesEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		// Null compares unequal to everything except null.
		return false
	}
	switch av := a.(type) {
	case nullValue:
		return true
	case BoolValue:
		bv := b.(BoolValue)
		return av == bv
	case NumberValue:
		bv := b.(NumberValue)
		return av == bv
	case StringValue:
		bv := b.(StringValue)
		return av == bv
	case ArrayValue:
		bv := b.(ArrayValue)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *DictValue:
		bv := b.(*DictValue)
		if av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.Get(k)
			if !ok {
				return false
			}
			if !ValuesEqual(av.values[k], bval) {
				return false
			}
		}
		return true
	case *HostObjectValue:
		bv := b.(*HostObjectValue)
		return av.obj == bv.obj
	default:
		return a == b
	}
}

// Truthy is a convenience wrapper over Value.AsBool used by control-flow
// nodes.
func Truthy(v Value) bool { return v.AsBool() }
