package internal

import "strings"

// RefineText normalizes a freshly parsed block body so its rendered
// output doesn't depend on how the author indented the source (spec
// section 4.3). It is applied once per text block — template bodies
// and every nested if/else/foreach/message-entry body alike — right as
// parseTextBlockUntilRBrace closes out that block. depth is
// that block's nesting depth: 0 for a template/messages body, and one
// deeper for every if/else, foreach, and message-entry body nested
// inside it (an else-if chain stays at its sibling if's depth, since
// it never opens a brace of its own until its own then-branch does).
//
// Four passes run, in order: boundary trimming (a single space/tab of
// brace padding, plus a wholly blank leading or trailing line, is
// dropped), comment-line newline collapse (an elided `@//`/`@* *@`
// comment leaves two adjacent Plain runs straddling its own line's
// newline; the left run's trailing newline is dropped so the comment
// vanishes without leaving a blank line behind), depth-counted
// indentation stripping (up to depth*4 leading spaces/tabs come off
// every line, undoing the author's source indentation), and
// adjacent-Plain merging (closing the gaps the comment pass leaves).
func RefineText(node TextNode, depth int) TextNode {
	seq, ok := node.(*TextSequentialNode)
	if !ok || len(seq.Children) == 0 {
		return node
	}
	children := append([]TextNode(nil), seq.Children...)
	if pn, ok := children[0].(*PlainNode); ok {
		trimmed := trimLeadingBracePadding(pn.Text)
		children[0] = &PlainNode{Text: trimmed}
	}
	if pn, ok := children[len(children)-1].(*PlainNode); ok {
		trimmed := trimTrailingBracePadding(pn.Text)
		children[len(children)-1] = &PlainNode{Text: trimmed}
	}
	collapseCommentNewlines(children)
	for i, c := range children {
		if pn, ok := c.(*PlainNode); ok {
			children[i] = &PlainNode{Text: dedentLines(pn.Text, depth)}
		}
	}
	merged := mergeAdjacentPlain(children)
	if len(merged) == 1 {
		return merged[0]
	}
	return &TextSequentialNode{Children: merged}
}

// RefineMessages tidies a messages body's Sequential wrapper by dropping
// nil children; it does no trimming of its own. The TextNode bodies
// nested inside MessagesEntryNode are already refined by RefineText at
// the point those are built.
func RefineMessages(node MessagesNode) MessagesNode {
	seq, ok := node.(*MessagesSequentialNode)
	if !ok {
		return node
	}
	var filtered []MessagesNode
	for _, c := range seq.Children {
		if c == nil {
			continue
		}
		filtered = append(filtered, c)
	}
	return &MessagesSequentialNode{Children: filtered}
}

func trimLeadingBracePadding(text string) string {
	if len(text) > 0 && (text[0] == ' ' || text[0] == '\t') {
		text = text[1:]
	}
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return text
	}
	firstLine := text[:nl]
	if strings.TrimSpace(firstLine) == "" {
		return text[nl+1:]
	}
	return text
}

func trimTrailingBracePadding(text string) string {
	if len(text) > 0 {
		last := text[len(text)-1]
		if last == ' ' || last == '\t' {
			text = text[:len(text)-1]
		}
	}
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return text
	}
	lastLine := text[idx+1:]
	if strings.TrimSpace(lastLine) == "" {
		return text[:idx]
	}
	return text
}

// collapseCommentNewlines walks adjacent Plain/Plain pairs in place
// and drops the left neighbor's trailing newline wherever it and the
// right neighbor's leading newline sandwich an elided comment-only
// line. Two Plain nodes only ever end up directly adjacent (nothing
// else flushed between them) when a comment directive produced no
// node of its own, so every such pair is a candidate; the newline
// shapes decide whether the comment actually occupied its own line.
func collapseCommentNewlines(children []TextNode) {
	for i := 0; i+1 < len(children); i++ {
		left, ok := children[i].(*PlainNode)
		if !ok {
			continue
		}
		right, ok := children[i+1].(*PlainNode)
		if !ok {
			continue
		}
		if !endsWithBlankNewline(left.Text) || !startsWithBlankNewline(right.Text) {
			continue
		}
		idx := strings.LastIndexByte(left.Text, '\n')
		children[i] = &PlainNode{Text: left.Text[:idx] + left.Text[idx+1:]}
	}
}

// endsWithBlankNewline reports whether s ends in a newline, ignoring
// any horizontal whitespace trailing it.
func endsWithBlankNewline(s string) bool {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
		i--
	}
	return i > 0 && s[i-1] == '\n'
}

// startsWithBlankNewline reports whether s opens with a newline,
// ignoring any horizontal whitespace leading it.
func startsWithBlankNewline(s string) bool {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i < len(s) && s[i] == '\n'
}

// dedentLines strips up to depth*4 leading spaces/tabs from every
// line of text, undoing the source indentation a nested block
// inherits from its enclosing braces.
func dedentLines(text string, depth int) string {
	if depth <= 0 || text == "" {
		return text
	}
	max := depth * 4
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		n := 0
		for n < len(line) && n < max && (line[n] == ' ' || line[n] == '\t') {
			n++
		}
		lines[i] = line[n:]
	}
	return strings.Join(lines, "\n")
}

// mergeAdjacentPlain coalesces consecutive Plain children (such as the
// pair an elided comment leaves behind), dropping any nil entries.
func mergeAdjacentPlain(children []TextNode) []TextNode {
	var out []TextNode
	for _, c := range children {
		if c == nil {
			continue
		}
		if pn, ok := c.(*PlainNode); ok {
			if len(out) > 0 {
				if prev, ok2 := out[len(out)-1].(*PlainNode); ok2 {
					merged := &PlainNode{Text: prev.Text + pn.Text}
					out[len(out)-1] = merged
					continue
				}
			}
		}
		out = append(out, c)
	}
	return out
}
