package objmodel

import (
	"math"
	"strconv"
)

// Symbol is a unique property key with an optional description.
type Symbol struct {
	desc string
}

const maxArrayIndex = math.MaxUint32 - 1

// NewSymbol creates a new unique symbol.
func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc}
}

var (
	SymToPrimitive = NewSymbol("Symbol.toPrimitive")
	SymToStringTag = NewSymbol("Symbol.toStringTag")
	SymIterator    = NewSymbol("Symbol.iterator")
)

func (s *Symbol) ToInteger() int64 {
	panic(typeError("Cannot convert a Symbol value to a number"))
}

func (s *Symbol) String() string {
	return "Symbol(" + s.desc + ")"
}

func (s *Symbol) ToFloat() float64 {
	panic(typeError("Cannot convert a Symbol value to a number"))
}

func (s *Symbol) ToNumber() Value {
	panic(typeError("Cannot convert a Symbol value to a number"))
}

func (s *Symbol) ToBoolean() bool {
	return true
}

func (s *Symbol) SameAs(other Value) bool {
	if o, ok := other.(*Symbol); ok {
		return s == o
	}
	return false
}

func (s *Symbol) StrictEquals(o Value) bool {
	return s.SameAs(o)
}

func (s *Symbol) Export() interface{} {
	return s.String()
}

// Description returns the description the symbol was created with.
func (s *Symbol) Description() string {
	return s.desc
}

// PropertyKey is either a string or a *Symbol. The zero value is the empty string key.
// PropertyKey is comparable and can be used as a map key.
type PropertyKey struct {
	name string
	sym  *Symbol
}

// StrKey returns a string property key.
func StrKey(s string) PropertyKey {
	return PropertyKey{name: s}
}

// SymKey returns a symbol property key.
func SymKey(s *Symbol) PropertyKey {
	return PropertyKey{sym: s}
}

// IdxKey returns the canonical string key of an array index.
func IdxKey(idx uint32) PropertyKey {
	return PropertyKey{name: strconv.FormatUint(uint64(idx), 10)}
}

func (k PropertyKey) IsSymbol() bool {
	return k.sym != nil
}

func (k PropertyKey) Symbol() *Symbol {
	return k.sym
}

// Name returns the string of a string key.
func (k PropertyKey) Name() string {
	return k.name
}

// Value returns the key as a language value.
func (k PropertyKey) Value() Value {
	if k.sym != nil {
		return k.sym
	}
	return valueString(k.name)
}

func (k PropertyKey) String() string {
	if k.sym != nil {
		return k.sym.String()
	}
	return k.name
}

// ArrayIndex reports whether the key is the canonical decimal form of an integer in [0, 2^32-2].
func (k PropertyKey) ArrayIndex() (uint32, bool) {
	if k.sym != nil {
		return 0, false
	}
	return strToArrayIdx(k.name)
}

func (k PropertyKey) isIndex() bool {
	_, ok := k.ArrayIndex()
	return ok
}

func strToArrayIdx(s string) (uint32, bool) {
	l := len(s)
	if l == 0 || l > 10 {
		return 0, false
	}
	if s[0] == '0' {
		return 0, l == 1
	}
	var n uint64
	for i := 0; i < l; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if n > maxArrayIndex {
		return 0, false
	}
	return uint32(n), true
}

// CanonicalNumericIndex implements CanonicalNumericIndexString. It reports whether the
// key is "-0" or the string form of a Number equals the key itself.
func (k PropertyKey) CanonicalNumericIndex() (float64, bool) {
	if k.sym != nil {
		return 0, false
	}
	if idx, ok := strToArrayIdx(k.name); ok {
		return float64(idx), true
	}
	if k.name == "-0" {
		return negativeZero, true
	}
	if k.name == "" {
		return 0, false
	}
	f := stringToNumber(k.name)
	if numberToString(f) != k.name {
		return 0, false
	}
	return f, true
}

// isValidIntegerIndex reports whether n addresses an element of a view of the given length.
func isValidIntegerIndex(n float64, length int) (int, bool) {
	if n != math.Trunc(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if n == 0 && math.Signbit(n) {
		return 0, false
	}
	if n < 0 || n >= float64(length) {
		return 0, false
	}
	return int(n), true
}
