package plan

import (
	"fmt"
	"strings"

	"github.com/rhino1998/callbind/pkg/binder/types"
)

// Builder accumulates temporaries and statements for one block.
type Builder struct {
	temps []*Temp
	body  []Node
}

func (b *Builder) Temp(name string, typ types.Type) *Temp {
	t := &Temp{ID: len(b.temps), Name: name, Typ: typ}
	b.temps = append(b.temps, t)
	return t
}

func (b *Builder) Add(nodes ...Node) {
	b.body = append(b.body, nodes...)
}

// Assign stores value into a fresh temporary and returns it.
func (b *Builder) Assign(name string, value Node) *Temp {
	t := b.Temp(name, value.Type())
	b.Add(&Assign{Temp: t, Value: value})
	return t
}

func (b *Builder) Block(result Node) *Block {
	return &Block{
		Vars:   b.temps,
		Body:   b.body,
		Result: result,
	}
}

// Format renders n as an indented tree, one operation per line.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n, 0)
	return sb.String()
}

func format(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Lambda:
		fmt.Fprintf(sb, "%slambda %s/%d -> %s\n", indent, n.Name, n.Arity, n.Type())
		format(sb, n.Body, depth+1)
	case *Block:
		fmt.Fprintf(sb, "%sblock", indent)
		for _, v := range n.Vars {
			fmt.Fprintf(sb, " %s:%s", v, v.Typ)
		}
		sb.WriteString("\n")
		for _, stmt := range n.Body {
			format(sb, stmt, depth+1)
		}
		if n.Result != nil {
			fmt.Fprintf(sb, "%s  => ", indent)
			sb.WriteString(strings.TrimLeft(Format(n.Result), " "))
		}
	default:
		fmt.Fprintf(sb, "%s%s\n", indent, n)
	}
}
