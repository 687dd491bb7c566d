package registry

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"text/scanner"
	"unicode/utf8"

	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/numeric"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/shopspring/decimal"
)

// ParseArgument parses one call-site argument:
//
//	arg   := "*" value | "**" value | name "=" value | value
//	value := "nil" | "true" | "false" | number | string | ":" name
//	       | "[" [ value { "," value } ] "]"
//	       | "{" [ key ":" value { "," key ":" value } ] "}"
//	       | type ":" value
//	       | word
//
// Integers are fixnums when they fit and big integers otherwise. Lists are
// sequences, braces build a hash with symbol keys (string keys when quoted).
// A type prefix converts the value: "int8:5", "decimal:1.25", "char:a",
// "box<int32>:5", "Point:{x: 1}". Bare words are strings.
func (r *Registry) ParseArgument(src string) (binder.ArgumentInfo, any, error) {
	p := newParser(src)

	info := binder.SimpleArgument()
	switch {
	case p.tok == '*':
		end := p.s.Position.Offset + 1
		p.next()
		info = binder.SplatArgument()
		if p.tok == '*' && p.adjacent(end) {
			p.next()
			info = binder.DictionaryArgument()
		}
	case p.tok == scanner.Ident && p.s.Peek() == '=':
		info = binder.NamedArgument(p.text())
		p.next()
		p.next()
	}

	v, err := r.parseValue(p)
	if err != nil {
		return info, nil, err
	}

	return info, v, p.end()
}

// ParseArguments parses a call-site argument list into its signature and values.
func (r *Registry) ParseArguments(srcs []string) (binder.CallSignature, []any, error) {
	infos := make([]binder.ArgumentInfo, len(srcs))
	values := make([]any, len(srcs))
	for i, src := range srcs {
		info, v, err := r.ParseArgument(src)
		if err != nil {
			return binder.CallSignature{}, nil, fmt.Errorf("argument %d: %w", i, err)
		}
		infos[i] = info
		values[i] = v
	}

	sig := binder.NewCallSignature(infos...)
	return sig, values, sig.Validate()
}

// ParseValue parses a single value literal.
func (r *Registry) ParseValue(src string) (any, error) {
	p := newParser(src)
	v, err := r.parseValue(p)
	if err != nil {
		return nil, err
	}

	return v, p.end()
}

func (r *Registry) parseValue(p *parser) (any, error) {
	if p.err != nil {
		return nil, p.err
	}

	switch p.tok {
	case '-':
		p.next()
		if p.tok != scanner.Int && p.tok != scanner.Float {
			return nil, p.errorf("expected number after '-', got %s", p.describe())
		}
		return p.parseNumber("-")
	case scanner.Int, scanner.Float:
		return p.parseNumber("")
	case scanner.String, scanner.RawString:
		s, err := strconv.Unquote(p.text())
		if err != nil {
			return nil, p.errorf("invalid string %s", p.text())
		}
		p.next()
		return s, nil
	case scanner.Char:
		s, err := strconv.Unquote(p.text())
		if err != nil {
			return nil, p.errorf("invalid character %s", p.text())
		}
		p.next()
		c, _ := utf8.DecodeRuneInString(s)
		return object.Char(c), nil
	case ':':
		p.next()
		if p.tok != scanner.Ident {
			return nil, p.errorf("expected symbol name, got %s", p.describe())
		}
		sym := object.Symbol(p.text())
		p.next()
		return sym, nil
	case '[':
		return r.parseList(p)
	case '{':
		return r.parseHash(p)
	case scanner.Ident:
		return r.parseWord(p)
	default:
		return nil, p.errorf("unexpected %s", p.describe())
	}
}

func (p *parser) parseNumber(sign string) (any, error) {
	text := sign + p.text()
	tok := p.tok
	p.next()

	if tok == scanner.Float {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("invalid float %s", text)
		}
		return f, nil
	}

	bi, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, p.errorf("invalid integer %s", text)
	}
	if bi.IsInt64() && bi.Int64() >= math.MinInt32 && bi.Int64() <= math.MaxInt32 {
		return int32(bi.Int64()), nil
	}

	return bi, nil
}

func (r *Registry) parseList(p *parser) (any, error) {
	p.next()

	list := object.List{}
	for p.tok != ']' {
		v, err := r.parseValue(p)
		if err != nil {
			return nil, err
		}
		list = append(list, v)

		if p.tok != ',' {
			break
		}
		p.next()
	}

	return list, p.expect(']')
}

func (r *Registry) parseHash(p *parser) (*object.Hash, error) {
	p.next()

	h := object.NewHash()
	for p.tok != '}' {
		var key any
		switch p.tok {
		case scanner.Ident:
			key = object.Symbol(p.text())
		case scanner.String:
			s, err := strconv.Unquote(p.text())
			if err != nil {
				return nil, p.errorf("invalid string %s", p.text())
			}
			key = s
		default:
			return nil, p.errorf("expected hash key, got %s", p.describe())
		}
		p.next()

		err := p.expect(':')
		if err != nil {
			return nil, err
		}

		v, err := r.parseValue(p)
		if err != nil {
			return nil, err
		}
		h.Set(key, v)

		if p.tok != ',' {
			break
		}
		p.next()
	}

	return h, p.expect('}')
}

func (r *Registry) parseWord(p *parser) (any, error) {
	word := p.text()

	switch word {
	case "nil":
		p.next()
		return nil, nil
	case "true":
		p.next()
		return true, nil
	case "false":
		p.next()
		return false, nil
	}

	if !r.defined(word) {
		p.next()
		return word, nil
	}

	expr, err := p.parseType()
	if err != nil {
		return nil, err
	}

	t, err := r.ResolveType(expr, nil)
	if err != nil {
		return nil, err
	}

	err = p.expect(':')
	if err != nil {
		return nil, err
	}

	if t == types.Char && p.tok == scanner.Ident {
		s := p.text()
		p.next()
		c, size := utf8.DecodeRuneInString(s)
		if size != len(s) {
			return nil, p.errorf("char literal %q is not a single character", s)
		}
		return object.Char(c), nil
	}

	if (t == types.String || t == types.Symbol) && p.tok == scanner.Ident {
		s := p.text()
		p.next()
		if t == types.Symbol {
			return object.Symbol(s), nil
		}
		return s, nil
	}

	v, err := r.parseValue(p)
	if err != nil {
		return nil, err
	}

	return typedValue(t, v)
}

// typedValue converts a parsed literal to the representation of t.
func typedValue(t types.Type, v any) (any, error) {
	switch t := t.(type) {
	case *types.Box:
		inner, err := typedValue(t.Elem(), v)
		if err != nil {
			return nil, err
		}
		return object.NewBox(t.Elem(), inner), nil
	case *types.Nullable:
		if v == nil {
			return nil, nil
		}
		return typedValue(t.Elem(), v)
	case *types.Class:
		h, ok := v.(*object.Hash)
		if !ok {
			return nil, fmt.Errorf("%s literal must be a hash of members, got %s", t, object.Inspect(v))
		}
		inst := object.NewInstance(t)
		for _, key := range h.Keys() {
			name := fmt.Sprint(key)
			if sym, ok := key.(object.Symbol); ok {
				name = string(sym)
			}
			member, ok := types.LookupMember(t, name)
			if !ok {
				return nil, fmt.Errorf("%s has no member %s", t, name)
			}
			value, _ := h.Get(key)
			value, err := typedValue(member.Type, value)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", name, err)
			}
			inst.Init(name, value)
		}
		return inst, nil
	}

	switch t {
	case types.Object, types.Dynamic:
		return v, nil
	case types.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return object.Inspect(v), nil
	case types.Symbol:
		if s, ok := v.(string); ok {
			return object.Symbol(s), nil
		}
	case types.Char:
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) == 1 {
			c, _ := utf8.DecodeRuneInString(s)
			return object.Char(c), nil
		}
		if c, ok := v.(object.Char); ok {
			return c, nil
		}
	case types.Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case types.Decimal:
		switch v.(type) {
		case float64, int32, *big.Int:
			f := fmt.Sprint(v)
			d, err := decimal.NewFromString(f)
			if err != nil {
				return nil, err
			}
			return numeric.Convert(d, numeric.Decimal)
		}
	}

	if code, ok := numeric.CodeOf(t.Kind()); ok {
		return numeric.Convert(v, code)
	}

	if types.IsAssignableTo(object.TypeOf(v), t) {
		return v, nil
	}

	return nil, fmt.Errorf("cannot make a %s literal from %s", t, object.Inspect(v))
}
