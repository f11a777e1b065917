package objmodel

import (
	"sort"
)

// ArrayRepresentation is the physical layout of the elements of an array.
type ArrayRepresentation int

const (
	// RepresentationConstant is a shared immutable backing, copied on first write.
	RepresentationConstant ArrayRepresentation = iota
	RepresentationZeroBasedInt32
	RepresentationZeroBasedFloat64
	RepresentationZeroBasedObject
	RepresentationHolesDense
	RepresentationSparse
	RepresentationLazy
)

func (r ArrayRepresentation) String() string {
	switch r {
	case RepresentationConstant:
		return "Constant"
	case RepresentationZeroBasedInt32:
		return "ZeroBasedInt32"
	case RepresentationZeroBasedFloat64:
		return "ZeroBasedFloat64"
	case RepresentationZeroBasedObject:
		return "ZeroBasedObject"
	case RepresentationHolesDense:
		return "HolesDense"
	case RepresentationSparse:
		return "Sparse"
	case RepresentationLazy:
		return "Lazy"
	}
	return "Unknown"
}

const sparseIndexMin = 1 << 31

type arrayPolicy struct {
	sparseMinIndex      uint32
	sparseDensity       uint32
	denseRevertMinItems int
}

func newArrayPolicy(c *Config) arrayPolicy {
	return arrayPolicy{
		sparseMinIndex:      c.SparseMinIndex,
		sparseDensity:       c.SparseDensity,
		denseRevertMinItems: c.DenseRevertMinItems,
	}
}

// goSparse reports whether writing idx into a dense store holding count elements should
// switch to sparse storage.
func (p *arrayPolicy) goSparse(idx uint32, count int) bool {
	if idx >= sparseIndexMin {
		return true
	}
	return idx > p.sparseMinIndex && (count == 0 || idx/uint32(count) > p.sparseDensity)
}

// valueProperty is an element with non-default attributes. Only sparse stores hold them.
type valueProperty struct {
	valueInternal
	value          Value
	getter, setter *Object
	flags          propFlags
}

func propertyFromDescriptor(d *PropertyDescriptor) *valueProperty {
	p := &valueProperty{flags: d.flags()}
	if d.IsAccessor() {
		p.getter, _ = d.Getter.(*Object)
		p.setter, _ = d.Setter.(*Object)
	} else {
		p.value = nilSafe(d.Value)
	}
	return p
}

func (p *valueProperty) descriptor() PropertyDescriptor {
	if p.flags.accessor() {
		d := PropertyDescriptor{
			Getter:       _undefined,
			Setter:       _undefined,
			Enumerable:   ToFlag(p.flags.enumerable()),
			Configurable: ToFlag(p.flags.configurable()),
		}
		if p.getter != nil {
			d.Getter = p.getter
		}
		if p.setter != nil {
			d.Setter = p.setter
		}
		return d
	}
	return PropertyDescriptor{
		Value:        p.value,
		Writable:     ToFlag(p.flags.writable()),
		Enumerable:   ToFlag(p.flags.enumerable()),
		Configurable: ToFlag(p.flags.configurable()),
	}
}

// elementStore is one physical encoding of array elements. Raw elements are nil for a
// hole, a plain value (default attributes) or a *valueProperty. Mutators return the store
// to use afterwards, which may be a different representation.
type elementStore interface {
	representation() ArrayRepresentation
	get(idx uint32) Value
	put(idx uint32, v Value, p *arrayPolicy) elementStore
	remove(idx uint32) elementStore
	// truncate drops every element at index >= length.
	truncate(length uint32) elementStore
	count() int
	// indicesFrom appends the present indices >= from in ascending order.
	indicesFrom(from uint32, accum []uint32) []uint32
	hasAttributes() bool
}

var emptyConstantStore = &constantStore{}

type constantStore struct {
	values []Value
}

func (s *constantStore) representation() ArrayRepresentation {
	return RepresentationConstant
}

func (s *constantStore) get(idx uint32) Value {
	if int64(idx) < int64(len(s.values)) {
		return s.values[idx]
	}
	return nil
}

func (s *constantStore) clone() elementStore {
	values := make([]Value, len(s.values))
	copy(values, s.values)
	return denseStoreFor(values)
}

func (s *constantStore) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	return s.clone().put(idx, v, p)
}

func (s *constantStore) remove(idx uint32) elementStore {
	if int64(idx) >= int64(len(s.values)) {
		return s
	}
	return s.clone().remove(idx)
}

func (s *constantStore) truncate(length uint32) elementStore {
	if int64(length) >= int64(len(s.values)) {
		return s
	}
	return &constantStore{values: s.values[:length:length]}
}

func (s *constantStore) count() int {
	return len(s.values)
}

func (s *constantStore) indicesFrom(from uint32, accum []uint32) []uint32 {
	for i := int64(from); i < int64(len(s.values)); i++ {
		accum = append(accum, uint32(i))
	}
	return accum
}

func (s *constantStore) hasAttributes() bool {
	return false
}

// denseStoreFor picks the narrowest dense store for values. nil entries are holes.
func denseStoreFor(values []Value) elementStore {
	allInt, allNum := true, true
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			return newHoleyStore(values)
		case valueInt:
			if int64(int32(v)) != int64(v) {
				allInt = false
			}
		case valueFloat:
			allInt = false
		default:
			allInt, allNum = false, false
		}
	}
	switch {
	case len(values) == 0:
		return &objectStore{}
	case allInt:
		ints := make([]int32, len(values))
		for i, v := range values {
			ints[i] = int32(v.(valueInt))
		}
		return &int32Store{values: ints}
	case allNum:
		floats := make([]float64, len(values))
		for i, v := range values {
			floats[i] = v.ToFloat()
		}
		return &float64Store{values: floats}
	}
	return &objectStore{values: values}
}

func isInt32Value(v Value) (int32, bool) {
	if i, ok := v.(valueInt); ok && int64(int32(i)) == int64(i) {
		return int32(i), true
	}
	return 0, false
}

func isNumberValue(v Value) bool {
	switch v.(type) {
	case valueInt, valueFloat:
		return true
	}
	return false
}

type int32Store struct {
	values []int32
}

func (s *int32Store) representation() ArrayRepresentation {
	return RepresentationZeroBasedInt32
}

func (s *int32Store) get(idx uint32) Value {
	if int64(idx) < int64(len(s.values)) {
		return valueInt(s.values[idx])
	}
	return nil
}

func (s *int32Store) toObject() *objectStore {
	values := make([]Value, len(s.values), cap(s.values))
	for i, v := range s.values {
		values[i] = valueInt(v)
	}
	return &objectStore{values: values}
}

func (s *int32Store) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	l := int64(len(s.values))
	if int64(idx) <= l {
		if i, ok := isInt32Value(v); ok {
			if int64(idx) == l {
				s.values = append(s.values, i)
			} else {
				s.values[idx] = i
			}
			return s
		}
		if isNumberValue(v) {
			floats := make([]float64, len(s.values), cap(s.values))
			for i, v := range s.values {
				floats[i] = float64(v)
			}
			return (&float64Store{values: floats}).put(idx, v, p)
		}
	}
	return s.toObject().put(idx, v, p)
}

func (s *int32Store) remove(idx uint32) elementStore {
	l := int64(len(s.values))
	if int64(idx) >= l {
		return s
	}
	if int64(idx) == l-1 {
		s.values = s.values[:idx]
		return s
	}
	return s.toObject().remove(idx)
}

func (s *int32Store) truncate(length uint32) elementStore {
	if int64(length) < int64(len(s.values)) {
		s.values = s.values[:length]
	}
	return s
}

func (s *int32Store) count() int {
	return len(s.values)
}

func (s *int32Store) indicesFrom(from uint32, accum []uint32) []uint32 {
	for i := int64(from); i < int64(len(s.values)); i++ {
		accum = append(accum, uint32(i))
	}
	return accum
}

func (s *int32Store) hasAttributes() bool {
	return false
}

type float64Store struct {
	values []float64
}

func (s *float64Store) representation() ArrayRepresentation {
	return RepresentationZeroBasedFloat64
}

func (s *float64Store) get(idx uint32) Value {
	if int64(idx) < int64(len(s.values)) {
		return floatToValue(s.values[idx])
	}
	return nil
}

func (s *float64Store) toObject() *objectStore {
	values := make([]Value, len(s.values), cap(s.values))
	for i, v := range s.values {
		values[i] = floatToValue(v)
	}
	return &objectStore{values: values}
}

func (s *float64Store) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	l := int64(len(s.values))
	if int64(idx) <= l && isNumberValue(v) {
		f := v.ToFloat()
		if int64(idx) == l {
			s.values = append(s.values, f)
		} else {
			s.values[idx] = f
		}
		return s
	}
	return s.toObject().put(idx, v, p)
}

func (s *float64Store) remove(idx uint32) elementStore {
	l := int64(len(s.values))
	if int64(idx) >= l {
		return s
	}
	if int64(idx) == l-1 {
		s.values = s.values[:idx]
		return s
	}
	return s.toObject().remove(idx)
}

func (s *float64Store) truncate(length uint32) elementStore {
	if int64(length) < int64(len(s.values)) {
		s.values = s.values[:length]
	}
	return s
}

func (s *float64Store) count() int {
	return len(s.values)
}

func (s *float64Store) indicesFrom(from uint32, accum []uint32) []uint32 {
	for i := int64(from); i < int64(len(s.values)); i++ {
		accum = append(accum, uint32(i))
	}
	return accum
}

func (s *float64Store) hasAttributes() bool {
	return false
}

// objectStore is a dense run of arbitrary values without holes.
type objectStore struct {
	values []Value
}

func (s *objectStore) representation() ArrayRepresentation {
	return RepresentationZeroBasedObject
}

func (s *objectStore) get(idx uint32) Value {
	if int64(idx) < int64(len(s.values)) {
		return s.values[idx]
	}
	return nil
}

func (s *objectStore) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	if _, isProp := v.(*valueProperty); !isProp {
		l := int64(len(s.values))
		if int64(idx) < l {
			s.values[idx] = v
			return s
		}
		if int64(idx) == l && idx < sparseIndexMin {
			s.values = append(s.values, v)
			return s
		}
	}
	return newHoleyStore(s.values).put(idx, v, p)
}

func (s *objectStore) remove(idx uint32) elementStore {
	l := int64(len(s.values))
	if int64(idx) >= l {
		return s
	}
	if int64(idx) == l-1 {
		s.values[idx] = nil
		s.values = s.values[:idx]
		return s
	}
	return newHoleyStore(s.values).remove(idx)
}

func (s *objectStore) truncate(length uint32) elementStore {
	if int64(length) < int64(len(s.values)) {
		clearValues(s.values[length:])
		s.values = s.values[:length]
	}
	return s
}

func (s *objectStore) count() int {
	return len(s.values)
}

func (s *objectStore) indicesFrom(from uint32, accum []uint32) []uint32 {
	for i := int64(from); i < int64(len(s.values)); i++ {
		accum = append(accum, uint32(i))
	}
	return accum
}

func (s *objectStore) hasAttributes() bool {
	return false
}

func clearValues(values []Value) {
	for i := range values {
		values[i] = nil
	}
}

// holeyStore is a dense run of values where nil marks a hole.
type holeyStore struct {
	values []Value
	n      int
}

func newHoleyStore(values []Value) *holeyStore {
	s := &holeyStore{values: values}
	for _, v := range values {
		if v != nil {
			s.n++
		}
	}
	return s
}

func (s *holeyStore) representation() ArrayRepresentation {
	return RepresentationHolesDense
}

func (s *holeyStore) get(idx uint32) Value {
	if int64(idx) < int64(len(s.values)) {
		return s.values[idx]
	}
	return nil
}

func (s *holeyStore) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	if _, isProp := v.(*valueProperty); isProp {
		return toSparseStore(s).put(idx, v, p)
	}
	l := int64(len(s.values))
	if int64(idx) >= l {
		if p.goSparse(idx, s.n) {
			return toSparseStore(s).put(idx, v, p)
		}
		s.expand(idx)
	}
	if s.values[idx] == nil {
		s.n++
	}
	s.values[idx] = v
	if s.n == len(s.values) {
		return &objectStore{values: s.values}
	}
	return s
}

// expand grows the slice to hold idx, using the same growth policy as runtime.growslice.
func (s *holeyStore) expand(idx uint32) {
	targetLen := int(idx) + 1
	if targetLen <= cap(s.values) {
		s.values = s.values[:targetLen]
		return
	}
	newcap := cap(s.values)
	doublecap := newcap + newcap
	if targetLen > doublecap {
		newcap = targetLen
	} else if len(s.values) < 1024 {
		newcap = doublecap
	} else {
		for newcap < targetLen {
			newcap += newcap / 4
		}
	}
	values := make([]Value, targetLen, newcap)
	copy(values, s.values)
	s.values = values
}

func (s *holeyStore) remove(idx uint32) elementStore {
	if int64(idx) < int64(len(s.values)) && s.values[idx] != nil {
		s.values[idx] = nil
		s.n--
	}
	return s
}

func (s *holeyStore) truncate(length uint32) elementStore {
	if int64(length) < int64(len(s.values)) {
		for _, v := range s.values[length:] {
			if v != nil {
				s.n--
			}
		}
		clearValues(s.values[length:])
		s.values = s.values[:length]
	}
	return s
}

func (s *holeyStore) count() int {
	return s.n
}

func (s *holeyStore) indicesFrom(from uint32, accum []uint32) []uint32 {
	for i := int64(from); i < int64(len(s.values)); i++ {
		if s.values[i] != nil {
			accum = append(accum, uint32(i))
		}
	}
	return accum
}

func (s *holeyStore) hasAttributes() bool {
	return false
}

type sparseArrayItem struct {
	idx   uint32
	value Value
}

// sparseStore keeps present elements sorted by index.
type sparseStore struct {
	items     []sparseArrayItem
	propCount int
}

// toSparseStore converts any store into a sparse one holding the same raw elements.
func toSparseStore(s elementStore) *sparseStore {
	if sa, ok := s.(*sparseStore); ok {
		return sa
	}
	idxs := s.indicesFrom(0, nil)
	sa := &sparseStore{items: make([]sparseArrayItem, len(idxs))}
	for i, idx := range idxs {
		sa.items[i] = sparseArrayItem{idx: idx, value: s.get(idx)}
	}
	return sa
}

func (s *sparseStore) representation() ArrayRepresentation {
	return RepresentationSparse
}

func (s *sparseStore) findIdx(idx uint32) int {
	return sort.Search(len(s.items), func(i int) bool {
		return s.items[i].idx >= idx
	})
}

func (s *sparseStore) get(idx uint32) Value {
	i := s.findIdx(idx)
	if i < len(s.items) && s.items[i].idx == idx {
		return s.items[i].value
	}
	return nil
}

func (s *sparseStore) put(idx uint32, v Value, p *arrayPolicy) elementStore {
	_, isProp := v.(*valueProperty)
	i := s.findIdx(idx)
	if i < len(s.items) && s.items[i].idx == idx {
		if _, wasProp := s.items[i].value.(*valueProperty); wasProp {
			s.propCount--
		}
		s.items[i].value = v
	} else {
		s.items = append(s.items, sparseArrayItem{})
		copy(s.items[i+1:], s.items[i:])
		s.items[i] = sparseArrayItem{idx: idx, value: v}
	}
	if isProp {
		s.propCount++
		return s
	}
	return s.maybeDense(p)
}

// maybeDense switches back to holey storage once the elements are dense enough.
func (s *sparseStore) maybeDense(p *arrayPolicy) elementStore {
	l := len(s.items)
	if s.propCount > 0 || l < p.denseRevertMinItems {
		return s
	}
	last := s.items[l-1].idx
	if last >= sparseIndexMin || int(last>>3) >= l {
		return s
	}
	values := make([]Value, last+1)
	for _, item := range s.items {
		values[item.idx] = item.value
	}
	return &holeyStore{values: values, n: l}
}

func (s *sparseStore) remove(idx uint32) elementStore {
	i := s.findIdx(idx)
	if i < len(s.items) && s.items[i].idx == idx {
		if _, ok := s.items[i].value.(*valueProperty); ok {
			s.propCount--
		}
		copy(s.items[i:], s.items[i+1:])
		s.items[len(s.items)-1].value = nil
		s.items = s.items[:len(s.items)-1]
	}
	return s
}

func (s *sparseStore) truncate(length uint32) elementStore {
	i := s.findIdx(length)
	for j := i; j < len(s.items); j++ {
		if _, ok := s.items[j].value.(*valueProperty); ok {
			s.propCount--
		}
		s.items[j].value = nil
	}
	s.items = s.items[:i]
	return s
}

func (s *sparseStore) count() int {
	return len(s.items)
}

func (s *sparseStore) indicesFrom(from uint32, accum []uint32) []uint32 {
	for _, item := range s.items[s.findIdx(from):] {
		accum = append(accum, item.idx)
	}
	return accum
}

func (s *sparseStore) hasAttributes() bool {
	return s.propCount > 0
}
