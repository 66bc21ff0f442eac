// SPDX-License-Identifier: MIT

package expr

import "fmt"

// Symbols resolves identifiers.
type Symbols interface {
	Lookup(name string) (Value, bool)
}

// SymbolTable is a map-backed Symbols; it is also a Namespace, so a table
// can be nested under a name (np.exp).
type SymbolTable map[string]Value

// Lookup implements Symbols.
func (t SymbolTable) Lookup(name string) (Value, bool) {
	v, ok := t[name]

	return v, ok
}

// Member implements Namespace.
func (t SymbolTable) Member(name string) (Value, error) {
	v, ok := t[name]
	if !ok {
		return Value{}, fmt.Errorf("member %q: %w", name, ErrUnboundSymbol)
	}

	return v, nil
}

// Constants converts a name→number map into a SymbolTable.
func Constants(values map[string]float64) SymbolTable {
	t := make(SymbolTable, len(values))
	for k, v := range values {
		t[k] = Scalar(v)
	}

	return t
}

// chain resolves names through scopes in order, first hit wins.
type chain []Symbols

// Lookup implements Symbols.
func (c chain) Lookup(name string) (Value, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}

	return Value{}, false
}

// Chain combines scopes; earlier scopes shadow later ones.
func Chain(scopes ...Symbols) Symbols { return chain(scopes) }

// Loader is a Namespace whose members are vectors produced on demand,
// for example skim.Handle.Fetch.
type Loader func(key string) ([]float64, error)

// Member implements Namespace.
func (l Loader) Member(name string) (Value, error) {
	v, err := l(name)
	if err != nil {
		return Value{}, err
	}

	return Vector(v), nil
}

// Columns is a Namespace over named vectors (orig_zone, dest_zone).
type Columns map[string][]float64

// Member implements Namespace.
func (c Columns) Member(name string) (Value, error) {
	v, ok := c[name]
	if !ok {
		return Value{}, fmt.Errorf("column %q: %w", name, ErrUnboundSymbol)
	}

	return Vector(v), nil
}
