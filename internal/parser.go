package internal

import (
	"strings"

	"github.com/google/uuid"
)

// Parser drives a Scanner directly over the template/messages grammar
// (spec section 4). Only the expression sub-grammar gets its own token
// stream — every full-expression context (if/foreach conditions,
// let/render operands, message role expressions) bounds a substring of
// the remaining source and hands it to ExprTokenizer/ExprParser,
// advancing the Scanner by exactly the bytes the expression parser
// consumed. Inline `@expr` markup output is adjacency-sensitive and
// does not go through that path — see scanInlineExpr.
type Parser struct {
	sc  *Scanner
	lib *Library
}

// ParseSource parses a complete source document into a Library holding
// one Template per `@template`/`@messages` declaration.
func ParseSource(src string) (*Library, error) {
	p := &Parser{sc: NewScanner(src), lib: NewLibrary()}
	for {
		p.sc.SkipWhitespace()
		if p.sc.AtEnd() {
			break
		}
		if p.sc.Peek() == DirectiveSigil && p.sc.PeekAt(1) == '/' && p.sc.PeekAt(2) == '/' {
			p.skipLineComment()
			continue
		}
		if p.sc.Peek() == DirectiveSigil && p.sc.PeekAt(1) == '*' {
			if err := p.skipBlockComment(); err != nil {
				return nil, err
			}
			continue
		}
		if p.sc.Peek() != DirectiveSigil {
			return nil, p.errorf(ParseErrUnexpectedChar, "'@template' or '@messages'", string(p.sc.Peek()))
		}
		if err := p.parseDeclaration(); err != nil {
			return nil, err
		}
	}
	return p.lib, nil
}

func (p *Parser) parseDeclaration() error {
	p.sc.Advance() // '@'
	switch {
	case p.matchKeywordAt(KeywordTemplateDecl):
		p.sc.AdvanceN(len(KeywordTemplateDecl))
		return p.parseTemplateDecl()
	case p.matchKeywordAt(KeywordMessagesDecl):
		p.sc.AdvanceN(len(KeywordMessagesDecl))
		return p.parseMessagesDecl()
	default:
		return p.errorf(ParseErrUnknownDirective, "'template' or 'messages'", p.peekWordForError())
	}
}

func (p *Parser) parseTemplateDecl() error {
	name, metadata, err := p.parseDeclHeader()
	if err != nil {
		return err
	}
	if err := p.expectByte('{'); err != nil {
		return err
	}
	body, err := p.parseTextBlockUntilRBrace(0)
	if err != nil {
		return err
	}
	p.lib.Add(&Template{
		ID:       uuid.NewString(),
		Kind:     TemplateKindPrompt,
		Name:     name,
		TextBody: body,
		Metadata: metadata,
	})
	return nil
}

func (p *Parser) parseMessagesDecl() error {
	name, metadata, err := p.parseDeclHeader()
	if err != nil {
		return err
	}
	if err := p.expectByte('{'); err != nil {
		return err
	}
	body, err := p.parseMessagesBlockUntilRBrace(0)
	if err != nil {
		return err
	}
	p.lib.Add(&Template{
		ID:           uuid.NewString(),
		Kind:         TemplateKindMessages,
		Name:         name,
		MessagesBody: body,
		Metadata:     metadata,
	})
	return nil
}

// parseDeclHeader reads the optional declared name and optional
// `@metadata{...}` block that follow `@template`/`@messages`. A
// declared name is registered as an Identifier constraint unless the
// metadata block already supplies one explicitly.
func (p *Parser) parseDeclHeader() (string, *MetadataCollection, error) {
	p.sc.SkipSpacesTabs()
	name := ""
	if isIdentStartByte(p.sc.Peek()) {
		name = p.scanIdentifier()
	}
	p.sc.SkipWhitespace()
	var metadata *MetadataCollection
	if p.sc.Peek() == DirectiveSigil && p.matchKeywordAtOffset(1, KeywordMetadata) {
		p.sc.Advance() // '@'
		mc, err := p.parseMetadataBlock()
		if err != nil {
			return "", nil, err
		}
		metadata = mc
		p.sc.SkipWhitespace()
	}
	if metadata == nil {
		metadata = NewMetadataCollection()
	}
	if name != "" && !MetadataHasType[IdentifierMetadata](metadata) {
		metadata.Add(NewIdentifier(name))
	}
	return name, metadata, nil
}

// parseMetadataBlock parses `@metadata` (already consumed) `{ key:
// value[, value...] ... }`. Entries are newline- or comma-separated;
// multiple comma-separated values under one key register one metadata
// value each (spec section 4.7, multi-value constraints).
func (p *Parser) parseMetadataBlock() (*MetadataCollection, error) {
	p.sc.AdvanceN(len(KeywordMetadata))
	p.sc.SkipWhitespace()
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	mc := NewMetadataCollection()
	for {
		p.skipMetadataSeparators()
		if p.sc.AtEnd() {
			return nil, p.errorf(ParseErrUnclosedBlock, "'}'", "EOF")
		}
		if p.sc.Peek() == '}' {
			p.sc.Advance()
			break
		}
		if !isIdentStartByte(p.sc.Peek()) {
			return nil, p.errorf(ParseErrUnexpectedToken, "metadata key", string(p.sc.Peek()))
		}
		key := p.scanIdentifier()
		p.sc.SkipSpacesTabs()
		if err := p.expectByte(':'); err != nil {
			return nil, err
		}
		for {
			value, err := p.scanMetadataValue()
			if err != nil {
				return nil, err
			}
			m, ok := metadataFor(key, value)
			if !ok {
				return nil, p.errorf(ParseErrUnknownDirective, "known metadata key", key)
			}
			mc.Add(m)
			p.sc.SkipSpacesTabs()
			if p.sc.Peek() != ',' {
				break
			}
			mark := p.sc.Mark()
			p.sc.Advance()
			p.skipMetadataSeparators()
			if looksLikeMetadataKey(p.sc.Remaining()) {
				p.sc.Reset(mark)
				break
			}
		}
	}
	return mc, nil
}

func metadataFor(key, value string) (Metadata, bool) {
	switch strings.ToLower(key) {
	case "identifier", "id":
		return NewIdentifier(value), true
	case "lang", "language":
		return NewLanguage(value), true
	case "model", "target_model":
		return NewTargetModel(value), true
	case "model_family", "target_model_family":
		return NewTargetModelFamily(value), true
	default:
		return nil, false
	}
}

func looksLikeMetadataKey(s string) bool {
	n := identLen(s)
	if n == 0 {
		return false
	}
	rest := strings.TrimLeft(s[n:], " \t")
	return strings.HasPrefix(rest, ":")
}

func (p *Parser) skipMetadataSeparators() {
	for !p.sc.AtEnd() {
		switch p.sc.Peek() {
		case ' ', '\t', '\n', '\r', ',':
			p.sc.Advance()
		default:
			return
		}
	}
}

func (p *Parser) scanMetadataValue() (string, error) {
	p.sc.SkipSpacesTabs()
	if p.sc.Peek() == '\'' {
		return p.scanQuotedMetadataValue()
	}
	start := p.sc.Pos()
	for !p.sc.AtEnd() {
		ch := p.sc.Peek()
		if ch == ',' || ch == '\n' || ch == '}' {
			break
		}
		p.sc.Advance()
	}
	return strings.TrimSpace(p.sc.Slice(start, p.sc.Pos())), nil
}

func (p *Parser) scanQuotedMetadataValue() (string, error) {
	p.sc.Advance() // opening quote
	var sb strings.Builder
	for {
		if p.sc.AtEnd() {
			return "", p.errorf(ParseErrUnterminatedStr, "closing quote", "EOF")
		}
		ch := p.sc.Advance()
		if ch == '\'' {
			if p.sc.Peek() == '\'' {
				sb.WriteByte('\'')
				p.sc.Advance()
				continue
			}
			return sb.String(), nil
		}
		sb.WriteByte(ch)
	}
}

// ---- text-template bodies ----

// parseTextBlockUntilRBrace parses text-template content up to and
// including its matching closing brace, returning the refined node
// tree (spec section 4.3/4.4). Called once per nested block: template
// bodies, if/else branches, foreach bodies, message entry bodies.
func (p *Parser) parseTextBlockUntilRBrace(depth int) (TextNode, error) {
	var children []TextNode
	var plain strings.Builder
	flushPlain := func() {
		if plain.Len() > 0 {
			children = append(children, &PlainNode{Text: plain.String()})
			plain.Reset()
		}
	}
	for {
		if p.sc.AtEnd() {
			return nil, p.errorf(ParseErrUnclosedBlock, "'}'", "EOF")
		}
		ch := p.sc.Peek()
		if ch == '}' {
			p.sc.Advance()
			flushPlain()
			break
		}
		if ch == DirectiveSigil {
			if p.sc.PeekAt(1) == '@' {
				plain.WriteByte('@')
				p.sc.AdvanceN(2)
				continue
			}
			if p.sc.PeekAt(1) == '/' && p.sc.PeekAt(2) == '/' {
				flushPlain()
				p.skipLineComment()
				continue
			}
			if p.sc.PeekAt(1) == '*' {
				flushPlain()
				if err := p.skipBlockComment(); err != nil {
					return nil, err
				}
				continue
			}
			flushPlain()
			node, err := p.parseTextDirective(depth)
			if err != nil {
				return nil, err
			}
			if node != nil {
				children = append(children, node)
			}
			continue
		}
		plain.WriteByte(p.sc.Advance())
	}
	return RefineText(&TextSequentialNode{Children: children}, depth), nil
}

// parseTextDirective parses one `@...` construct within a text body.
// The leading `@` has not yet been consumed. depth is the nesting
// depth of the block this directive lives in; any braced body it
// opens is parsed one level deeper (spec section 4.3).
func (p *Parser) parseTextDirective(depth int) (TextNode, error) {
	start := p.sc.Mark()
	p.sc.Advance() // '@'
	switch {
	case p.matchKeywordAt(KeywordIf):
		p.sc.AdvanceN(len(KeywordIf))
		return p.parseIfChainText(depth)
	case p.matchKeywordAt(KeywordForeach):
		p.sc.AdvanceN(len(KeywordForeach))
		return p.parseForeachText(depth)
	case p.matchKeywordAt(KeywordLet):
		p.sc.AdvanceN(len(KeywordLet))
		name, expr, err := p.parseLetParts()
		if err != nil {
			return nil, err
		}
		return &TextVarAssignNode{Name: name, Expr: expr, Create: true}, nil
	case p.matchKeywordAt(KeywordRender):
		p.sc.AdvanceN(len(KeywordRender))
		nameExpr, ctxExpr, err := p.parseRenderParts()
		if err != nil {
			return nil, err
		}
		return &TextRenderNode{Name: nameExpr, Ctx: ctxExpr}, nil
	}
	if name, ok := p.tryScanRebindTarget(); ok {
		p.sc.SkipSpacesTabs()
		p.sc.Advance() // '='
		p.sc.SkipSpacesTabs()
		expr, err := p.parseBoundedExpr("\n}")
		if err != nil {
			return nil, err
		}
		return &TextVarAssignNode{Name: name, Expr: expr, Create: false}, nil
	}
	p.sc.Reset(start)
	p.sc.Advance() // '@'
	return p.parseInlineExprOutput()
}

// parseIfChainText parses the `if cond { ... }` core plus any trailing
// bare `else`/`else if` (spec section 4.2 — `else` carries no `@`
// sigil). An `else if` continuation is parsed at the same depth as its
// sibling `if`; only the braced bodies themselves go one level deeper.
func (p *Parser) parseIfChainText(depth int) (TextNode, error) {
	p.sc.SkipSpacesTabs()
	cond, err := p.parseBoundedExpr("{")
	if err != nil {
		return nil, err
	}
	p.sc.SkipSpacesTabs()
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	thenBody, err := p.parseTextBlockUntilRBrace(depth + 1)
	if err != nil {
		return nil, err
	}
	node := &TextIfElseNode{Cond: cond, Then: thenBody}
	mark := p.sc.Mark()
	p.sc.SkipWhitespace()
	if p.matchKeywordAt(KeywordElse) {
		p.sc.AdvanceN(len(KeywordElse))
		p.sc.SkipSpacesTabs()
		if p.matchKeywordAt(KeywordIf) {
			p.sc.AdvanceN(len(KeywordIf))
			elseBranch, err := p.parseIfChainText(depth)
			if err != nil {
				return nil, err
			}
			node.Else = elseBranch
			return node, nil
		}
		if err := p.expectByte('{'); err != nil {
			return nil, err
		}
		elseBody, err := p.parseTextBlockUntilRBrace(depth + 1)
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
		return node, nil
	}
	p.sc.Reset(mark)
	return node, nil
}

func (p *Parser) parseForeachText(depth int) (TextNode, error) {
	varName, iterable, err := p.parseForeachHeader()
	if err != nil {
		return nil, err
	}
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	body, err := p.parseTextBlockUntilRBrace(depth + 1)
	if err != nil {
		return nil, err
	}
	return &TextForeachNode{Iterable: iterable, Var: varName, Body: body}, nil
}

func (p *Parser) parseForeachHeader() (string, ExprNode, error) {
	p.sc.SkipSpacesTabs()
	if !isIdentStartByte(p.sc.Peek()) {
		return "", nil, p.errorf(ParseErrUnexpectedToken, "loop variable", string(p.sc.Peek()))
	}
	varName := p.scanIdentifier()
	p.sc.SkipWhitespace()
	if !p.matchKeywordAt(KeywordIn) {
		return "", nil, p.errorf(ParseErrUnexpectedToken, "'in'", p.peekWordForError())
	}
	p.sc.AdvanceN(len(KeywordIn))
	p.sc.SkipSpacesTabs()
	iterable, err := p.parseBoundedExpr("{")
	if err != nil {
		return "", nil, err
	}
	p.sc.SkipSpacesTabs()
	return varName, iterable, nil
}

func (p *Parser) parseLetParts() (string, ExprNode, error) {
	p.sc.SkipSpacesTabs()
	if !isIdentStartByte(p.sc.Peek()) {
		return "", nil, p.errorf(ParseErrUnexpectedToken, "identifier", string(p.sc.Peek()))
	}
	name := p.scanIdentifier()
	p.sc.SkipSpacesTabs()
	if err := p.expectByte('='); err != nil {
		return "", nil, err
	}
	p.sc.SkipSpacesTabs()
	expr, err := p.parseBoundedExpr("\n}")
	if err != nil {
		return "", nil, err
	}
	return name, expr, nil
}

func (p *Parser) parseRenderParts() (ExprNode, ExprNode, error) {
	p.sc.SkipSpacesTabs()
	nameExpr, err := p.parseBoundedExprKW("\n}", KeywordWith)
	if err != nil {
		return nil, nil, err
	}
	var ctxExpr ExprNode
	p.sc.SkipSpacesTabs()
	if p.matchKeywordAt(KeywordWith) {
		p.sc.AdvanceN(len(KeywordWith))
		p.sc.SkipSpacesTabs()
		ctxExpr, err = p.parseBoundedExpr("\n}")
		if err != nil {
			return nil, nil, err
		}
	}
	return nameExpr, ctxExpr, nil
}

// tryScanRebindTarget looks ahead for `identifier =` (not `==`)
// immediately after the directive sigil, disambiguating `@name =
// expr` rebind syntax from inline `@expr` output. On failure the
// scanner is restored to its pre-lookahead position.
func (p *Parser) tryScanRebindTarget() (string, bool) {
	mark := p.sc.Mark()
	if !isIdentStartByte(p.sc.Peek()) {
		return "", false
	}
	name := p.scanIdentifier()
	probe := p.sc.Mark()
	p.sc.SkipSpacesTabs()
	isAssign := p.sc.Peek() == '=' && p.sc.PeekAt(1) != '='
	p.sc.Reset(probe)
	if isAssign {
		return name, true
	}
	p.sc.Reset(mark)
	return "", false
}

func (p *Parser) parseInlineExprOutput() (TextNode, error) {
	expr, format, err := p.scanInlineExpr()
	if err != nil {
		return nil, err
	}
	return &ExprOutputNode{Expr: expr, Format: format}, nil
}

// scanInlineExpr bounds the extent of a bare `@expr[:format]` markup
// output: a primary (`ctx` or an identifier, optionally called)
// followed by zero or more `.ident`/`.ident(...)`/`[...]` postfix
// segments with no intervening whitespace, optionally followed by a
// `:format` suffix. It must stop at the first character that cannot
// continue the chain, since this is adjacency-sensitive markup
// embedded in surrounding prose rather than a delimited statement —
// unlike every other expression context, it cannot be tokenized
// greedily (expr_tokens.go).
func (p *Parser) scanInlineExpr() (ExprNode, string, error) {
	s := p.sc.Remaining()
	if len(s) == 0 {
		return nil, "", p.errorf(ParseErrUnexpectedEOF, "expression", "")
	}
	var end int
	switch {
	case strings.HasPrefix(s, KeywordCtx) && (len(s) == len(KeywordCtx) || !isIdentPartByte(s[len(KeywordCtx)])):
		end = len(KeywordCtx)
	case isIdentStartByte(s[0]):
		end = identLen(s)
	default:
		return nil, "", p.errorf(ParseErrUnexpectedToken, "expression", string(s[0]))
	}
	end = consumeCallIfPresent(s, end)
	for end < len(s) {
		if s[end] == '.' && end+1 < len(s) && isIdentStartByte(s[end+1]) {
			next := end + 1 + identLen(s[end+1:])
			next = consumeCallIfPresent(s, next)
			end = next
			continue
		}
		if s[end] == '[' {
			close := matchDelim(s, end, '[', ']')
			if close < 0 {
				return nil, "", p.errorf(ParseErrUnclosedBlock, "']'", "EOF")
			}
			end = close + 1
			continue
		}
		break
	}
	format := ""
	if end < len(s) && s[end] == ':' {
		fstart := end + 1
		fend := fstart
		for fend < len(s) && isIdentPartByte(s[fend]) {
			fend++
		}
		format = s[fstart:fend]
		end = fend
	}
	tokens, err := NewExprTokenizer(s[:end]).Tokenize()
	if err != nil {
		return nil, "", p.wrapExprTokenErr(err)
	}
	ep := NewExprParser(tokens)
	node, err := ep.Parse()
	if err != nil {
		return nil, "", p.wrapExprParseErr(err)
	}
	p.sc.AdvanceN(end)
	return node, format, nil
}

// ---- messages-template bodies ----

func (p *Parser) parseMessagesBlockUntilRBrace(depth int) (MessagesNode, error) {
	var children []MessagesNode
	for {
		p.sc.SkipWhitespace()
		if p.sc.AtEnd() {
			return nil, p.errorf(ParseErrUnclosedBlock, "'}'", "EOF")
		}
		if p.sc.Peek() == '}' {
			p.sc.Advance()
			break
		}
		if p.sc.Peek() == DirectiveSigil && p.sc.PeekAt(1) == '/' && p.sc.PeekAt(2) == '/' {
			p.skipLineComment()
			continue
		}
		if p.sc.Peek() == DirectiveSigil && p.sc.PeekAt(1) == '*' {
			if err := p.skipBlockComment(); err != nil {
				return nil, err
			}
			continue
		}
		if p.sc.Peek() != DirectiveSigil {
			return nil, p.errorf(ParseErrUnexpectedToken, "message directive", string(p.sc.Peek()))
		}
		node, err := p.parseMessagesDirective(depth)
		if err != nil {
			return nil, err
		}
		if node != nil {
			children = append(children, node)
		}
	}
	return RefineMessages(&MessagesSequentialNode{Children: children}), nil
}

func (p *Parser) parseMessagesDirective(depth int) (MessagesNode, error) {
	start := p.sc.Mark()
	p.sc.Advance() // '@'
	switch {
	case p.matchKeywordAt(RoleSystem):
		p.sc.AdvanceN(len(RoleSystem))
		return p.parseMessageEntry(&ConstantNode{Value: NewString(RoleSystem)}, depth)
	case p.matchKeywordAt(RoleUser):
		p.sc.AdvanceN(len(RoleUser))
		return p.parseMessageEntry(&ConstantNode{Value: NewString(RoleUser)}, depth)
	case p.matchKeywordAt(RoleAssistant):
		p.sc.AdvanceN(len(RoleAssistant))
		return p.parseMessageEntry(&ConstantNode{Value: NewString(RoleAssistant)}, depth)
	case p.matchKeywordAt(KeywordMessage):
		p.sc.AdvanceN(len(KeywordMessage))
		p.sc.SkipSpacesTabs()
		roleExpr, err := p.parseBoundedExpr("{")
		if err != nil {
			return nil, err
		}
		p.sc.SkipSpacesTabs()
		return p.parseMessageEntry(roleExpr, depth)
	case p.matchKeywordAt(KeywordIf):
		p.sc.AdvanceN(len(KeywordIf))
		return p.parseIfChainMessages(depth)
	case p.matchKeywordAt(KeywordForeach):
		p.sc.AdvanceN(len(KeywordForeach))
		return p.parseForeachMessages(depth)
	case p.matchKeywordAt(KeywordLet):
		p.sc.AdvanceN(len(KeywordLet))
		name, expr, err := p.parseLetParts()
		if err != nil {
			return nil, err
		}
		return &MessagesVarAssignNode{Name: name, Expr: expr, Create: true}, nil
	case p.matchKeywordAt(KeywordRender):
		p.sc.AdvanceN(len(KeywordRender))
		nameExpr, ctxExpr, err := p.parseRenderParts()
		if err != nil {
			return nil, err
		}
		return &MessagesRenderNode{Name: nameExpr, Ctx: ctxExpr}, nil
	default:
		p.sc.Reset(start)
		return nil, p.errorf(ParseErrUnknownDirective, "message directive", p.peekWordForError())
	}
}

func (p *Parser) parseMessageEntry(roleExpr ExprNode, depth int) (MessagesNode, error) {
	p.sc.SkipSpacesTabs()
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	body, err := p.parseTextBlockUntilRBrace(depth + 1)
	if err != nil {
		return nil, err
	}
	return &MessagesEntryNode{Role: roleExpr, Body: body}, nil
}

// parseIfChainMessages mirrors parseIfChainText's bare `else`/`else
// if` handling (spec section 4.2) for messages bodies.
func (p *Parser) parseIfChainMessages(depth int) (MessagesNode, error) {
	p.sc.SkipSpacesTabs()
	cond, err := p.parseBoundedExpr("{")
	if err != nil {
		return nil, err
	}
	p.sc.SkipSpacesTabs()
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	thenBody, err := p.parseMessagesBlockUntilRBrace(depth + 1)
	if err != nil {
		return nil, err
	}
	node := &MessagesIfElseNode{Cond: cond, Then: thenBody}
	mark := p.sc.Mark()
	p.sc.SkipWhitespace()
	if p.matchKeywordAt(KeywordElse) {
		p.sc.AdvanceN(len(KeywordElse))
		p.sc.SkipSpacesTabs()
		if p.matchKeywordAt(KeywordIf) {
			p.sc.AdvanceN(len(KeywordIf))
			elseBranch, err := p.parseIfChainMessages(depth)
			if err != nil {
				return nil, err
			}
			node.Else = elseBranch
			return node, nil
		}
		if err := p.expectByte('{'); err != nil {
			return nil, err
		}
		elseBody, err := p.parseMessagesBlockUntilRBrace(depth + 1)
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
		return node, nil
	}
	p.sc.Reset(mark)
	return node, nil
}

func (p *Parser) parseForeachMessages(depth int) (MessagesNode, error) {
	varName, iterable, err := p.parseForeachHeader()
	if err != nil {
		return nil, err
	}
	if err := p.expectByte('{'); err != nil {
		return nil, err
	}
	body, err := p.parseMessagesBlockUntilRBrace(depth + 1)
	if err != nil {
		return nil, err
	}
	return &MessagesForeachNode{Iterable: iterable, Var: varName, Body: body}, nil
}

// ---- shared expression-bounding helpers ----

// parseBoundedExpr tokenizes and parses a full expression out of the
// scanner's remaining input, stopping at the first byte in
// terminators found at bracket depth 0, then advances the scanner by
// exactly the bytes the expression parser consumed.
func (p *Parser) parseBoundedExpr(terminators string) (ExprNode, error) {
	return p.parseBoundedExprKW(terminators, "")
}

// parseBoundedExprKW is parseBoundedExpr plus an additional keyword
// (e.g. "with") that also terminates the bound at depth 0.
func (p *Parser) parseBoundedExprKW(terminators, kw string) (ExprNode, error) {
	remaining := p.sc.Remaining()
	limit := findExprBoundaryKeyword(remaining, terminators, kw)
	tokens, err := NewExprTokenizer(remaining[:limit]).Tokenize()
	if err != nil {
		return nil, p.wrapExprTokenErr(err)
	}
	ep := NewExprParser(tokens)
	node, err := ep.Parse()
	if err != nil {
		return nil, p.wrapExprParseErr(err)
	}
	consumed := tokens[ep.Consumed()].Pos
	p.sc.AdvanceN(consumed)
	return node, nil
}

// findExprBoundaryKeyword scans s for the first byte in terminators,
// or the first occurrence of kw as a whole word, at bracket depth 0
// and outside a single-quoted string literal. Known limitation: the
// depth counter is shared across (), [], {} rather than type-matched,
// so a condition that opens with a bracket of one kind and closes with
// another would be miscounted; well-formed expressions never do this.
func findExprBoundaryKeyword(s, terminators, kw string) int {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		if depth == 0 {
			if strings.IndexByte(terminators, ch) >= 0 {
				return i
			}
			if kw != "" && strings.HasPrefix(s[i:], kw) {
				before := i == 0 || !isIdentPartByte(s[i-1])
				after := i+len(kw) >= len(s) || !isIdentPartByte(s[i+len(kw)])
				if before && after {
					return i
				}
			}
		}
		switch ch {
		case '\'':
			inString = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return len(s)
}

func identLen(s string) int {
	n := 0
	for n < len(s) && isIdentPartByte(s[n]) {
		n++
	}
	return n
}

// matchDelim scans from openIdx (where s[openIdx] == open) for the
// matching close, skipping single-quoted string contents, and returns
// its index or -1 if unmatched.
func matchDelim(s string, openIdx int, open, close byte) int {
	depth := 0
	inString := false
	for i := openIdx; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}
		switch ch {
		case '\'':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func consumeCallIfPresent(s string, pos int) int {
	if pos < len(s) && s[pos] == '(' {
		close := matchDelim(s, pos, '(', ')')
		if close < 0 {
			return len(s)
		}
		return close + 1
	}
	return pos
}

// ---- low-level scanning helpers ----

func (p *Parser) scanIdentifier() string {
	start := p.sc.Pos()
	for !p.sc.AtEnd() && isIdentPartByte(p.sc.Peek()) {
		p.sc.Advance()
	}
	return p.sc.Slice(start, p.sc.Pos())
}

// matchKeywordAt reports whether kw appears at the scanner's current
// position followed by a non-identifier byte (or EOF).
func (p *Parser) matchKeywordAt(kw string) bool {
	if !p.sc.Match(kw) {
		return false
	}
	next := p.sc.PeekAt(len(kw))
	return next == 0 || !isIdentPartByte(next)
}

func (p *Parser) matchKeywordAtOffset(offset int, kw string) bool {
	rest := p.sc.Remaining()
	if offset > len(rest) {
		return false
	}
	rest = rest[offset:]
	if !strings.HasPrefix(rest, kw) {
		return false
	}
	after := len(kw)
	return after >= len(rest) || !isIdentPartByte(rest[after])
}

func (p *Parser) skipLineComment() {
	p.sc.AdvanceN(3) // '@//'
	for !p.sc.AtEnd() && p.sc.Peek() != '\n' {
		p.sc.Advance()
	}
}

func (p *Parser) skipBlockComment() error {
	p.sc.AdvanceN(2) // '@*'
	for {
		if p.sc.AtEnd() {
			return p.errorf(ParseErrUnclosedBlock, "'*@'", "EOF")
		}
		if p.sc.Peek() == '*' && p.sc.PeekAt(1) == '@' {
			p.sc.AdvanceN(2)
			return nil
		}
		p.sc.Advance()
	}
}

func (p *Parser) expectByte(b byte) error {
	if p.sc.AtEnd() || p.sc.Peek() != b {
		got := ""
		if !p.sc.AtEnd() {
			got = string(p.sc.Peek())
		}
		return p.errorf(ParseErrUnexpectedToken, "'"+string(b)+"'", got)
	}
	p.sc.Advance()
	return nil
}

func (p *Parser) peekWordForError() string {
	rest := p.sc.Remaining()
	if rest == "" {
		return ""
	}
	n := identLen(rest)
	if n == 0 {
		n = 1
	}
	return rest[:n]
}

func (p *Parser) errorf(kind ParseErrorKind, expected, actual string) error {
	return NewParseError(kind, p.sc.Position(), expected, actual)
}

func (p *Parser) wrapExprTokenErr(err error) error {
	if te, ok := err.(*ExprTokenError); ok {
		return NewParseError(ParseErrUnexpectedChar, p.sc.Position(), "expression", te.Detail)
	}
	return NewParseError(ParseErrUnexpectedChar, p.sc.Position(), "expression", err.Error())
}

func (p *Parser) wrapExprParseErr(err error) error {
	if pe, ok := err.(*ExprParseError); ok {
		return NewParseError(ParseErrUnexpectedToken, p.sc.Position(), pe.Expected, pe.Actual)
	}
	return NewParseError(ParseErrUnexpectedToken, p.sc.Position(), "expression", err.Error())
}
