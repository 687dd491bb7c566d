package interpreter

import (
	"fmt"

	"github.com/rhino1998/callbind/pkg/binder/plan"
)

type Value = any

// Scope holds the temporaries of one plan block.
type Scope struct {
	parent *Scope
	temps  map[*plan.Temp]Value
}

func newScope(parent *Scope) *Scope {
	return &Scope{
		temps:  make(map[*plan.Temp]Value),
		parent: parent,
	}
}

func (s *Scope) Get(t *plan.Temp) (Value, bool) {
	if s == nil {
		return nil, false
	}

	v, ok := s.temps[t]
	if ok {
		return v, true
	}

	return s.parent.Get(t)
}

func (s *Scope) Declare(t *plan.Temp) error {
	if _, ok := s.temps[t]; ok {
		return fmt.Errorf("temporary %s already declared", t)
	}

	s.temps[t] = nil
	return nil
}

func (s *Scope) Set(t *plan.Temp, v Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.temps[t]; ok {
			cur.temps[t] = v
			return nil
		}
	}

	return fmt.Errorf("temporary %s is not declared", t)
}
