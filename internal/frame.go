package internal

// frame is a single string-to-value scope, pushed on entry to a
// conditional/loop block and popped on exit (spec section 3/glossary).
type frame map[string]Value

// ContextAccessor is the evaluator's per-invocation scope object: a
// frame stack plus a read-only root value, a reference to the host
// template's metadata, the function set, and the library used to
// resolve `@render`. It implements Value so expressions can reference
// `ctx` directly.
type ContextAccessor struct {
	frames       []frame
	root         Value
	metadata     *MetadataCollection
	funcs        *FunctionSet
	library      *Library
	maxFrameDepth int
}

// NewContextAccessor builds an accessor over root with a single base
// frame already pushed, per spec section 3's invariant that at least
// one frame always exists.
func NewContextAccessor(root Value, metadata *MetadataCollection, funcs *FunctionSet, lib *Library, maxFrameDepth int) *ContextAccessor {
	if maxFrameDepth <= 0 {
		maxFrameDepth = DefaultMaxFrameDepth
	}
	return &ContextAccessor{
		frames:        []frame{make(frame)},
		root:          root,
		metadata:      metadata,
		funcs:         funcs,
		library:       lib,
		maxFrameDepth: maxFrameDepth,
	}
}

func (c *ContextAccessor) Kind() ValueKind { return KindContextAccessor }
func (c *ContextAccessor) AsBool() bool    { return true }
func (c *ContextAccessor) String() string  { return "ctx" }

func (c *ContextAccessor) ToString(format string) (string, error) {
	return c.root.ToString(format)
}

// Root returns the caller-provided root value.
func (c *ContextAccessor) Root() Value { return c.root }

// Metadata returns the host template's metadata collection.
func (c *ContextAccessor) Metadata() *MetadataCollection { return c.metadata }

// Funcs returns the accessor's function set.
func (c *ContextAccessor) Funcs() *FunctionSet { return c.funcs }

// Library returns the library used to resolve @render.
func (c *ContextAccessor) Library() *Library { return c.library }

// WithRoot returns a new accessor sharing this one's metadata/funcs/
// library but rooted at a different value and a fresh frame stack —
// used by @render when a new context expression is supplied.
func (c *ContextAccessor) WithRoot(root Value) *ContextAccessor {
	return NewContextAccessor(root, c.metadata, c.funcs, c.library, c.maxFrameDepth)
}

// PushFrame adds a new empty frame on top of the stack.
func (c *ContextAccessor) PushFrame() error {
	if len(c.frames) >= c.maxFrameDepth {
		return NewRuntimeError(RuntimeErrStackOverflow, "", nil, "frame stack exceeded max depth")
	}
	c.frames = append(c.frames, make(frame))
	return nil
}

// PopFrame removes the topmost frame. It is an error to pop the base
// frame.
func (c *ContextAccessor) PopFrame() error {
	if len(c.frames) <= 1 {
		return NewRuntimeError(RuntimeErrStackUnderflow, "", nil, "cannot pop base frame")
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Bind writes name=value to the top frame (the `let` / create mode of
// VarAssign).
func (c *ContextAccessor) Bind(name string, v Value) {
	c.frames[len(c.frames)-1][name] = v
}

// Rebind walks frames top-down, writing to the first frame that
// already owns name. Fails if no frame owns it (assign-existing mode).
func (c *ContextAccessor) Rebind(name string, v Value) error {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if _, ok := c.frames[i][name]; ok {
			c.frames[i][name] = v
			return nil
		}
	}
	suggestions := FindSimilarStrings(name, c.allKnownKeys(), 3)
	return NewRuntimeError(RuntimeErrVariableNotFound, "", name, "variable not found: "+name+FormatSuggestions(suggestions))
}

// Lookup searches frames top-down, then falls through to the root
// value's Property.
func (c *ContextAccessor) Lookup(name string) (Value, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][name]; ok {
			return v, true
		}
	}
	if v, err := c.root.Property(name); err == nil {
		return v, true
	}
	return nil, false
}

// Property implements Value.Property: frames top-down, then the root
// value's Property.
func (c *ContextAccessor) Property(name string) (Value, error) {
	if v, ok := c.Lookup(name); ok {
		return v, nil
	}
	suggestions := FindSimilarStrings(name, c.allKnownKeys(), 3)
	msg := "variable not found: " + name + FormatSuggestions(suggestions)
	return nil, NewRuntimeError(RuntimeErrVariableNotFound, "", name, msg)
}

// allKnownKeys gathers variable names across every frame plus the
// root value's own keys (when it exposes a KeyLister), for "did you
// mean?" suggestions on lookup failure.
func (c *ContextAccessor) allKnownKeys() []string {
	var keys []string
	for _, f := range c.frames {
		for k := range f {
			keys = append(keys, k)
		}
	}
	if lister, ok := c.root.(KeyLister); ok {
		keys = append(keys, lister.Keys()...)
	}
	return keys
}

func (c *ContextAccessor) Index(idx Value) (Value, error) {
	return c.root.Index(idx)
}

// Call dispatches bare-identifier call syntax to the function set.
func (c *ContextAccessor) Call(method string, args []Value) (Value, error) {
	return c.funcs.Call(method, args)
}

// Keys lists every variable name visible from the current frame stack,
// for "did you mean?" suggestions (internal/suggest.go).
func (c *ContextAccessor) Keys() []string {
	return c.allKnownKeys()
}

// Iterate extracts the elements of an iterable value for `foreach`
// (spec section 4.5): arrays iterate their elements, dicts iterate
// their values in insertion order, and a context accessor iterates
// its root value.
func Iterate(v Value) ([]Value, error) {
	switch val := v.(type) {
	case ArrayValue:
		return []Value(val), nil
	case *DictValue:
		elems := make([]Value, 0, val.Len())
		for _, k := range val.Keys() {
			ev, _ := val.Get(k)
			elems = append(elems, ev)
		}
		return elems, nil
	case *ContextAccessor:
		return Iterate(val.root)
	case *HostObjectValue:
		return iterateHostObject(val)
	default:
		return nil, NewRuntimeError(RuntimeErrNotIterable, "", v, "value of kind "+v.Kind().String()+" is not iterable")
	}
}

func iterateHostObject(h *HostObjectValue) ([]Value, error) {
	n, ok := h.Length()
	if !ok {
		return nil, NewRuntimeError(RuntimeErrNotIterable, "", h, "host object is not iterable")
	}
	elems := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := h.Index(NewNumber(float64(i)))
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return elems, nil
}
