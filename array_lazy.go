package objmodel

import (
	"strconv"

	"github.com/dlclark/regexp2"
)

// LazySource produces the elements of a lazily populated array. Materialize is called at
// most once, on the first element operation; Len must be known up front.
type LazySource interface {
	Len() uint32
	Materialize() []Value
}

type lazyStore struct {
	source LazySource
	store  elementStore
}

func (s *lazyStore) materialize() elementStore {
	if s.store == nil {
		values := s.source.Materialize()
		if len(values) == 0 {
			s.store = emptyConstantStore
		} else {
			s.store = denseStoreFor(values)
		}
		s.source = nil
	}
	return s.store
}

func (s *lazyStore) representation() ArrayRepresentation {
	return RepresentationLazy
}

func (s *lazyStore) get(idx uint32) Value {
	return s.materialize().get(idx)
}

func (s *lazyStore) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	return s.materialize().put(idx, v, p)
}

func (s *lazyStore) remove(idx uint32) elementStore {
	return s.materialize().remove(idx)
}

func (s *lazyStore) truncate(length uint32) elementStore {
	return s.materialize().truncate(length)
}

func (s *lazyStore) count() int {
	return s.materialize().count()
}

func (s *lazyStore) indicesFrom(from uint32, accum []uint32) []uint32 {
	return s.materialize().indicesFrom(from, accum)
}

func (s *lazyStore) hasAttributes() bool {
	return false
}

// NewLazyArray creates an array whose elements are produced by source on first use.
func (r *Runtime) NewLazyArray(source LazySource) *Object {
	return r.newArrayObject(r.global.ArrayPrototype, &lazyStore{source: source}, source.Len()).val
}

type matchSource struct {
	match *regexp2.Match
}

func (s matchSource) Len() uint32 {
	return uint32(s.match.GroupCount())
}

func (s matchSource) Materialize() []Value {
	groups := s.match.Groups()
	values := make([]Value, len(groups))
	for i := range groups {
		if len(groups[i].Captures) == 0 {
			values[i] = _undefined
		} else {
			values[i] = valueString(groups[i].String())
		}
	}
	return values
}

// NewMatchArray creates the result array of a regular expression match: element 0 is the
// matched text, then one element per capture group (undefined if it did not participate).
// The array also carries index, input and groups. The captures are only converted to
// values when an element is first accessed.
func (r *Runtime) NewMatchArray(m *regexp2.Match, input string) *Object {
	a := r.newArrayObject(r.global.ArrayPrototype, &lazyStore{source: matchSource{match: m}}, uint32(m.GroupCount()))
	a._putProp(StrKey("index"), intToValue(int64(m.Index)), true, true, true)
	a._putProp(StrKey("input"), valueString(input), true, true, true)
	var named *Object
	for _, g := range m.Groups() {
		if _, err := strconv.Atoi(g.Name); err == nil {
			continue
		}
		if named == nil {
			named = r.CreateOrdinary(nil)
		}
		if len(g.Captures) == 0 {
			named.self._putProp(StrKey(g.Name), _undefined, true, true, true)
		} else {
			named.self._putProp(StrKey(g.Name), valueString(g.String()), true, true, true)
		}
	}
	if named != nil {
		a._putProp(StrKey("groups"), named, true, true, true)
	} else {
		a._putProp(StrKey("groups"), _undefined, true, true, true)
	}
	return a.val
}
