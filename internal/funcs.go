package internal

import "fmt"

// Func is a built-in callable reachable from bare-identifier call syntax
// on the context accessor (spec section 4.9). Grounded on the teacher's
// Func{Name, MinArgs, MaxArgs, Fn} registration record shape, reduced to
// the fixed built-in set the spec names — there is no user-defined
// function registration surface in scope.
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      func(args []Value) (Value, error)
}

// FunctionSet is the fixed table of built-ins consulted by method calls
// made directly on the context accessor.
type FunctionSet struct {
	funcs map[string]*Func
}

// NewFunctionSet returns the default built-in set: length, strcat, substr.
func NewFunctionSet() *FunctionSet {
	fs := &FunctionSet{funcs: make(map[string]*Func)}
	fs.register(&Func{Name: FuncLength, MinArgs: 1, MaxArgs: 1, Fn: builtinLength})
	fs.register(&Func{Name: FuncStrcat, MinArgs: 0, MaxArgs: -1, Fn: builtinStrcat})
	fs.register(&Func{Name: FuncSubstr, MinArgs: 3, MaxArgs: 3, Fn: builtinSubstr})
	return fs
}

func (fs *FunctionSet) register(f *Func) { fs.funcs[f.Name] = f }

// Call invokes the named function, validating arity first.
func (fs *FunctionSet) Call(name string, args []Value) (Value, error) {
	f, ok := fs.funcs[name]
	if !ok {
		return nil, NewRuntimeError(RuntimeErrUnknownFunction, "", name, "unknown function "+name)
	}
	if len(args) < f.MinArgs || (f.MaxArgs >= 0 && len(args) > f.MaxArgs) {
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", name,
			fmt.Sprintf("%s expects between %d and %d arguments, got %d", name, f.MinArgs, f.MaxArgs, len(args)))
	}
	return f.Fn(args)
}

func (fs *FunctionSet) Has(name string) bool {
	_, ok := fs.funcs[name]
	return ok
}

func builtinLength(args []Value) (Value, error) {
	v := args[0]
	switch val := v.(type) {
	case StringValue:
		return NewNumber(float64(len([]rune(string(val))))), nil
	case ArrayValue:
		return NewNumber(float64(len(val))), nil
	case *DictValue:
		return NewNumber(float64(val.Len())), nil
	case *HostObjectValue:
		if n, ok := val.Length(); ok {
			return NewNumber(float64(n)), nil
		}
	}
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", v, "length not supported on "+v.Kind().String())
}

func builtinStrcat(args []Value) (Value, error) {
	result := ""
	for _, a := range args {
		s, err := a.ToString("")
		if err != nil {
			return nil, err
		}
		result += s
	}
	return NewString(result), nil
}

func builtinSubstr(args []Value) (Value, error) {
	s, ok := args[0].(StringValue)
	if !ok {
		return nil, NewRuntimeError(RuntimeErrBinaryNotApplicable, "", args[0], "substr expects a string as its first argument")
	}
	start, ok := args[1].(NumberValue)
	if !ok {
		return nil, NewRuntimeError(RuntimeErrIndexNotInteger, "", args[1], "substr start must be a number")
	}
	length, ok := args[2].(NumberValue)
	if !ok {
		return nil, NewRuntimeError(RuntimeErrIndexNotInteger, "", args[2], "substr length must be a number")
	}
	runes := []rune(string(s))
	startIdx := int(start)
	endIdx := startIdx + int(length)
	if startIdx < 0 || startIdx > len(runes) || endIdx < startIdx || endIdx > len(runes) {
		return nil, NewRuntimeError(RuntimeErrIndexOutOfRange, "", startIdx, "substr range out of bounds")
	}
	return NewString(string(runes[startIdx:endIdx])), nil
}
