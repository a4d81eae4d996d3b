package rules

import (
	"fmt"
	"strconv"
)

// The grammar, lowest precedence first:
//
//	or      = and { "||" and }
//	and     = not { "&&" not }
//	not     = "!" not | compare
//	compare = unary [ compareOp unary ]
//	unary   = literal | list | ident | call | "(" or ")"
//
// compareOp is one of == != < <= > >= in contains startsWith endsWith matches.
// Comparisons do not chain; "a < b < c" is a parse error, not a silent truthy.

type node interface{ nodeTag() }

type literalNode struct{ value any } // float64, string, bool, nil
type identNode struct{ path string }
type listNode struct{ items []node }
type callNode struct {
	name string
	args []node
}
type unaryNode struct{ operand node } // logical not
type binaryNode struct {
	op          string
	left, right node
}

func (literalNode) nodeTag() {}
func (identNode) nodeTag()   {}
func (listNode) nodeTag()    {}
func (callNode) nodeTag()    {}
func (unaryNode) nodeTag()   {}
func (binaryNode) nodeTag()  {}

type parser struct {
	tokens []token
	pos    int
}

// parse turns a normalized condition into an AST. All syntax errors surface
// here; evaluation assumes a well-formed tree.
func parse(input string) (node, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
	return root, nil
}

func (p *parser) peek() token   { return p.tokens[p.pos] }
func (p *parser) advance() token { tok := p.tokens[p.pos]; p.pos++; return tok }

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOperator && p.peek().text == "||" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOperator && p.peek().text == "&&" {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokenOperator && p.peek().text == "!" {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand: operand}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

var keywordOps = map[string]bool{
	"in": true, "contains": true, "startsWith": true, "endsWith": true, "matches": true,
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	switch {
	case tok.kind == tokenOperator && compareOps[tok.text]:
		p.advance()
	case tok.kind == tokenKeyword && keywordOps[tok.text]:
		p.advance()
	default:
		return left, nil
	}
	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: tok.text, left: left, right: right}, nil
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenNumber:
		p.advance()
		return literalNode{value: parseNumber(tok.text)}, nil
	case tokenString:
		p.advance()
		return literalNode{value: tok.text}, nil
	case tokenKeyword:
		switch tok.text {
		case "true":
			p.advance()
			return literalNode{value: true}, nil
		case "false":
			p.advance()
			return literalNode{value: false}, nil
		case "null":
			p.advance()
			return literalNode{value: nil}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at %d", tok.text, tok.pos)
	case tokenLBracket:
		return p.parseList()
	case tokenLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("expected ) at %d", p.peek().pos)
		}
		p.advance()
		return inner, nil
	case tokenIdent:
		p.advance()
		if p.peek().kind == tokenLParen {
			return p.parseCallArgs(tok.text)
		}
		return identNode{path: tok.text}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
}

func (p *parser) parseList() (node, error) {
	p.advance() // [
	var items []node
	if p.peek().kind == tokenRBracket {
		p.advance()
		return listNode{}, nil
	}
	for {
		item, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		switch p.peek().kind {
		case tokenComma:
			p.advance()
		case tokenRBracket:
			p.advance()
			return listNode{items: items}, nil
		default:
			return nil, fmt.Errorf("expected , or ] at %d", p.peek().pos)
		}
	}
}

func (p *parser) parseCallArgs(name string) (node, error) {
	p.advance() // (
	call := callNode{name: name}
	if p.peek().kind == tokenRParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		switch p.peek().kind {
		case tokenComma:
			p.advance()
		case tokenRParen:
			p.advance()
			return call, nil
		default:
			return nil, fmt.Errorf("expected , or ) at %d", p.peek().pos)
		}
	}
}

func parseNumber(text string) float64 {
	v, _ := strconv.ParseFloat(text, 64)
	return v
}
