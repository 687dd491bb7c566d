package binder

import (
	"fmt"

	"github.com/rhino1998/callbind/pkg/binder/plan"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/object"
)

// dictionaryStrategy is how a params dictionary of one declared type is built:
// the factory producing it, the key each keyword name becomes and the type
// values are converted to.
type dictionaryStrategy struct {
	factory plan.DictionaryFactory
	key     func(name string) any
	value   types.Type
}

var (
	hashFactory = plan.DictionaryFactory{
		Name: "hash",
		Make: func(keys, values []any) (any, error) {
			h := object.NewHash()
			for i, key := range keys {
				h.Set(key, values[i])
			}
			return h, nil
		},
	}

	mapFactory = plan.DictionaryFactory{
		Name: "map",
		Make: func(keys, values []any) (any, error) {
			m := make(map[string]any, len(keys))
			for i, key := range keys {
				name, ok := key.(string)
				if !ok {
					return nil, fmt.Errorf("bug: string dictionary key %T", key)
				}
				m[name] = values[i]
			}
			return m, nil
		},
	}
)

func symbolKey(name string) any { return object.Symbol(name) }

func stringKey(name string) any { return name }

// dictionaryStrategyFor selects the construction strategy for a declared
// params dictionary type: the built-in hash and object-keyed dictionaries
// take symbol keys, string-keyed dictionaries take string keys.
func dictionaryStrategyFor(t types.Type) (dictionaryStrategy, bool) {
	switch {
	case t == types.Object || t == types.Dynamic || types.Equal(t, types.Hash):
		return dictionaryStrategy{factory: hashFactory, key: symbolKey, value: types.Object}, true
	}

	constructed, ok := t.(*types.Constructed)
	if !ok {
		return dictionaryStrategy{}, false
	}

	def := constructed.Definition()
	if def != types.Dictionary && def != types.DictionaryInterface {
		return dictionaryStrategy{}, false
	}

	key, value := constructed.Args()[0], constructed.Args()[1]
	switch {
	case key == types.String:
		return dictionaryStrategy{factory: mapFactory, key: stringKey, value: value}, true
	case key == types.Symbol || (key == types.Object && def == types.DictionaryInterface):
		return dictionaryStrategy{factory: hashFactory, key: symbolKey, value: value}, true
	default:
		return dictionaryStrategy{}, false
	}
}
