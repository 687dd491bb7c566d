// Package topological orders values so that every value follows the values it depends on.
package topological

import (
	"fmt"
	"maps"
	"slices"

	"golang.org/x/exp/constraints"
)

var ErrCycleDetected = fmt.Errorf("cycle detected")

type CycleError[K constraints.Ordered] struct {
	Keys []K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("%s among %v", ErrCycleDetected, e.Keys)
}

func (e *CycleError[K]) Is(target error) bool {
	return target == ErrCycleDetected
}

func sortedKeys[M ~map[K]V, K constraints.Ordered, V any](m M) []K {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}

func Sort[T constraints.Ordered](values []T, depFunc func(T) []T) ([]T, error) {
	return SortFunc(values, func(val T) T { return val }, depFunc)
}

// SortFunc returns values ordered so that each one appears after all of its
// dependencies. Dependencies that are not among values are ignored. Values
// that are ready at the same time are emitted in key order.
func SortFunc[T any, K constraints.Ordered](values []T, keyFunc func(T) K, depFunc func(T) []T) ([]T, error) {
	valuesByKey := make(map[K]T, len(values))
	for _, val := range values {
		valuesByKey[keyFunc(val)] = val
	}

	dependencies := make(map[K]map[K]struct{})
	dependents := make(map[K]map[K]struct{})

	for _, key := range sortedKeys(valuesByKey) {
		for _, dep := range depFunc(valuesByKey[key]) {
			depKey := keyFunc(dep)
			if _, ok := valuesByKey[depKey]; !ok {
				continue
			}

			if dependencies[key] == nil {
				dependencies[key] = make(map[K]struct{})
			}
			dependencies[key][depKey] = struct{}{}

			if dependents[depKey] == nil {
				dependents[depKey] = make(map[K]struct{})
			}
			dependents[depKey][key] = struct{}{}
		}
	}

	var ready []K
	for _, key := range sortedKeys(valuesByKey) {
		if len(dependencies[key]) == 0 {
			ready = append(ready, key)
		}
	}

	list := make([]T, 0, len(valuesByKey))
	for len(ready) > 0 {
		var key K
		key, ready = ready[0], ready[1:]
		list = append(list, valuesByKey[key])

		var freed []K
		for _, dependent := range sortedKeys(dependents[key]) {
			delete(dependencies[dependent], key)
			if len(dependencies[dependent]) == 0 {
				delete(dependencies, dependent)
				freed = append(freed, dependent)
			}
		}

		ready = append(ready, freed...)
		slices.Sort(ready)
	}

	if len(dependencies) > 0 {
		return nil, &CycleError[K]{Keys: sortedKeys(dependencies)}
	}

	return list, nil
}
