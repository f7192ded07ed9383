// Package enum registers the values of string-backed enum types so their
// wire form can be parsed back, e.g. a raffle status read from a row:
//
//	var RaffleOpen = enum.New(RaffleStatus("open"))
//	status, err := enum.ToEnum[RaffleStatus]("open")
package enum

import (
	"fmt"
	"reflect"
)

var registry = map[string]any{}

type valueSet[T comparable] struct {
	byName map[string]T
}

// New registers value under its type and returns it unchanged, so it can be
// used directly in a var declaration.
func New[T comparable](value T) T {
	v := reflect.ValueOf(value)
	name := v.Type().Name()
	if _, ok := registry[name]; !ok {
		registry[name] = valueSet[T]{byName: make(map[string]T)}
	}

	registry[name].(valueSet[T]).byName[v.String()] = value
	return value
}

// ToEnum parses s back into a registered value of T.
func ToEnum[T comparable](s string) (T, error) {
	var defaultT T
	set, ok := registry[reflect.TypeOf(defaultT).Name()]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	value, ok := set.(valueSet[T]).byName[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return value, nil
}
