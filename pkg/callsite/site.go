package callsite

import (
	"slices"
	"sync/atomic"

	"github.com/rhino1998/callbind/pkg/binder"
)

type State uint8

const (
	Empty State = iota
	Monomorphic
	Polymorphic
	Megamorphic
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Monomorphic:
		return "monomorphic"
	case Polymorphic:
		return "polymorphic"
	case Megamorphic:
		return "megamorphic"
	default:
		return "unknown"
	}
}

type siteState struct {
	state   State
	entries []*Entry
}

func (s *siteState) lookup(key string) *Entry {
	for _, e := range s.entries {
		if e.key == key {
			return e
		}
	}

	return nil
}

// Site is one call site: a fixed overload set and call shape, with an inline
// cache that moves from empty to monomorphic, polymorphic and finally
// megamorphic as it sees distinct argument types. A megamorphic site looks
// plans up in the shared cache and keeps the most recent ones alive there.
type Site struct {
	cache     *Cache
	overloads *binder.Overloads
	signature binder.CallSignature

	state  atomic.Pointer[siteState]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *Cache) NewSite(overloads *binder.Overloads, signature binder.CallSignature) *Site {
	s := &Site{
		cache:     c,
		overloads: overloads,
		signature: signature,
	}
	s.state.Store(&siteState{state: Empty})

	return s
}

func (s *Site) State() State { return s.state.Load().state }

func (s *Site) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// Invoke binds and runs a call with arguments restricted to their natural types.
func (s *Site) Invoke(args ...any) (any, error) {
	return s.InvokeRestricted(binder.RestrictArguments(args...), args)
}

// InvokeRestricted binds a call and runs its plan against values.
func (s *Site) InvokeRestricted(restricted *binder.RestrictedArguments, values []any) (any, error) {
	b := s.cache.binder
	actual, err := b.Normalize(s.overloads, s.signature, restricted)
	if err != nil {
		return nil, err
	}

	if restricted.HasValueRestriction() {
		result, err := b.ResolveArguments(s.overloads, actual, b.Config.Narrowing)
		if err != nil {
			return nil, err
		}
		return result.Plan.Invoke(values)
	}

	key := Key(s.overloads, actual)
	if state := s.state.Load(); state.state != Megamorphic {
		if e := state.lookup(key); e != nil {
			s.hits.Add(1)
			return e.Plan().Invoke(values)
		}
	}
	s.misses.Add(1)

	e, err := s.cache.Acquire(s.overloads, actual)
	if err != nil {
		return nil, err
	}

	res, err := e.Plan().Invoke(values)
	s.update(e)

	return res, err
}

// update hands e to the inline cache, which either keeps the reference or releases it.
func (s *Site) update(e *Entry) {
	for {
		old := s.state.Load()
		if old.lookup(e.key) != nil {
			e.Release()
			return
		}

		entries := append(slices.Clone(old.entries), e)
		var (
			next    *siteState
			evicted []*Entry
		)
		switch {
		case old.state != Megamorphic && len(entries) <= s.cache.Config.MaxPolymorphic:
			state := Polymorphic
			if len(entries) == 1 {
				state = Monomorphic
			}
			next = &siteState{state: state, entries: entries}
		default:
			if over := len(entries) - s.cache.Config.MaxMegamorphic; over > 0 {
				evicted, entries = entries[:over], entries[over:]
			}
			next = &siteState{state: Megamorphic, entries: entries}
		}

		if !s.state.CompareAndSwap(old, next) {
			continue
		}

		for _, held := range evicted {
			held.Release()
		}
		return
	}
}

// Close releases every plan the site holds.
func (s *Site) Close() {
	old := s.state.Swap(&siteState{state: Empty})
	for _, e := range old.entries {
		e.Release()
	}
}
