package registry

import (
	"errors"
	"fmt"
	"strings"
	"text/scanner"
)

var ErrSyntax = errors.New("syntax error")

type SyntaxError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d in %q: %s", ErrSyntax, e.Pos, e.Source, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

type parser struct {
	src string
	s   scanner.Scanner
	tok rune
	err error
}

func newParser(src string) *parser {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanChars
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = &SyntaxError{Source: src, Pos: s.Pos().Offset, Msg: msg}
		}
	}
	p.next()

	return p
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) text() string { return p.s.TokenText() }

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}

	return &SyntaxError{Source: p.src, Pos: p.s.Position.Offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(tok rune) error {
	if p.tok != tok {
		return p.errorf("expected %s, got %s", scanner.TokenString(tok), p.describe())
	}
	p.next()

	return nil
}

func (p *parser) describe() string {
	if p.tok == scanner.EOF {
		return "end of input"
	}

	return fmt.Sprintf("%q", p.text())
}

// adjacent reports whether the current token starts right where the previous one ended.
func (p *parser) adjacent(prevEnd int) bool {
	return p.s.Position.Offset == prevEnd
}

func (p *parser) end() error {
	if p.err != nil {
		return p.err
	}

	if p.tok != scanner.EOF {
		return p.errorf("unexpected %s", p.describe())
	}

	return nil
}

// ParseTypeExpr parses a type expression:
//
//	type := name [ "<" type { "," type } ">" ] { "[]" | "?" }
func ParseTypeExpr(src string) (TypeExpr, error) {
	p := newParser(src)
	expr, err := p.parseType()
	if err != nil {
		return nil, err
	}

	return expr, p.end()
}

func (p *parser) parseType() (TypeExpr, error) {
	if p.tok != scanner.Ident {
		return nil, p.errorf("expected type name, got %s", p.describe())
	}

	var expr TypeExpr = Identifier(p.text())
	p.next()

	if p.tok == '<' {
		p.next()
		generic := GenericType{Name: expr.(Identifier)}
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			generic.Args = append(generic.Args, arg)

			if p.tok != ',' {
				break
			}
			p.next()
		}

		err := p.expect('>')
		if err != nil {
			return nil, err
		}
		expr = generic
	}

	for {
		switch p.tok {
		case '[':
			p.next()
			err := p.expect(']')
			if err != nil {
				return nil, err
			}
			expr = ArrayType{Element: expr}
		case '?':
			p.next()
			expr = NullableType{Element: expr}
		default:
			return expr, p.err
		}
	}
}
