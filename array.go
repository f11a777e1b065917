package objmodel

import (
	"math"

	"github.com/sirupsen/logrus"
)

var lengthKey = StrKey("length")

// IntegrityLevel is the element marker set by SetIntegrityLevel on arrays.
type IntegrityLevel int

const (
	IntegrityNone IntegrityLevel = iota
	IntegritySealed
	IntegrityFrozen
)

func (l IntegrityLevel) String() string {
	switch l {
	case IntegritySealed:
		return "sealed"
	case IntegrityFrozen:
		return "frozen"
	}
	return "none"
}

type arrayObject struct {
	baseObject
	length    uint32
	store     elementStore
	integrity IntegrityLevel
}

// arrayLength is the computed payload of the length property, shared by all arrays.
var arrayLength = &computedProperty{
	get: func(this *Object) Value {
		return intToValue(int64(this.self.(*arrayObject).length))
	},
	set: func(this *Object, v Value, throw bool) bool {
		return this.self.(*arrayObject).setLength(v, throw)
	},
}

func (a *arrayObject) init() {
	a.baseObject.init()
	a._putComputed(lengthKey, arrayLength, true, false, false)
}

func (a *arrayObject) kind() Kind {
	return KindArray
}

func (r *Runtime) newArrayObject(proto *Object, store elementStore, length uint32) *arrayObject {
	v := &Object{runtime: r}
	a := &arrayObject{
		length: length,
		store:  store,
	}
	a.class = classArray
	a.val = v
	a.extensible = true
	a.prototype = proto
	v.self = a
	a.init()
	return a
}

func (r *Runtime) newArrayPrototype() *Object {
	return r.newArrayObject(r.global.ObjectPrototype, emptyConstantStore, 0).val
}

// CreateArray creates an array with the given prototype. The elements are copied; nil
// entries become holes.
func (r *Runtime) CreateArray(proto *Object, elems []Value) *Object {
	if len(elems) == 0 {
		return r.newArrayObject(proto, emptyConstantStore, 0).val
	}
	if uint64(len(elems)) > math.MaxUint32 {
		panic(r.NewRangeError("Invalid array length"))
	}
	values := make([]Value, len(elems))
	copy(values, elems)
	return r.newArrayObject(proto, denseStoreFor(values), uint32(len(values))).val
}

// NewArray creates an array inheriting from Array.prototype.
func (r *Runtime) NewArray(items ...interface{}) *Object {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = ToValue(item)
	}
	return r.CreateArray(r.global.ArrayPrototype, values)
}

// NewConstantArray creates an array sharing values as its backing store until the first
// write. The caller must not modify values afterwards. values must not contain nil.
func (r *Runtime) NewConstantArray(values []Value) *Object {
	return r.newArrayObject(r.global.ArrayPrototype, &constantStore{values: values}, uint32(len(values))).val
}

// ArrayRepresentation returns the current element representation of an array.
func (o *Object) ArrayRepresentation() (ArrayRepresentation, bool) {
	if a, ok := o.self.(*arrayObject); ok {
		return a.store.representation(), true
	}
	return 0, false
}

func (a *arrayObject) noteTransition(from ArrayRepresentation) {
	if to := a.store.representation(); to != from {
		a.val.runtime.logger.WithFields(logrus.Fields{
			"from":   from.String(),
			"to":     to.String(),
			"length": a.length,
		}).Debug("array representation changed")
	}
}

// elements materialises a lazy store and returns the current one.
func (a *arrayObject) elements() elementStore {
	if l, ok := a.store.(*lazyStore); ok {
		a.store = l.materialize()
		a.noteTransition(RepresentationLazy)
	}
	return a.store
}

func (a *arrayObject) putRaw(idx uint32, v Value) {
	from := a.elements().representation()
	if _, isProp := v.(*valueProperty); isProp {
		a.makeExplicit()
	}
	a.store = a.store.put(idx, v, &a.val.runtime.arrayPolicy)
	a.noteTransition(from)
}

// makeExplicit folds the integrity marker into per-element descriptors held by a sparse store.
func (a *arrayObject) makeExplicit() {
	if a.integrity == IntegrityNone {
		return
	}
	flags := a.plainFlags()
	sa := toSparseStore(a.store)
	for i := range sa.items {
		if _, ok := sa.items[i].value.(*valueProperty); !ok {
			sa.items[i].value = &valueProperty{value: sa.items[i].value, flags: flags}
			sa.propCount++
		}
	}
	a.store = sa
	a.integrity = IntegrityNone
}

// plainFlags returns the attributes of elements stored without a descriptor.
func (a *arrayObject) plainFlags() propFlags {
	switch a.integrity {
	case IntegrityFrozen:
		return flagEnumerable
	case IntegritySealed:
		return flagWritable | flagEnumerable
	}
	return flagsDefault
}

func (a *arrayObject) elementFlags(raw Value) propFlags {
	if p, ok := raw.(*valueProperty); ok {
		return p.flags
	}
	return a.plainFlags()
}

func (a *arrayObject) elementDescriptor(raw Value) PropertyDescriptor {
	if p, ok := raw.(*valueProperty); ok {
		return p.descriptor()
	}
	f := a.plainFlags()
	return PropertyDescriptor{
		Value:        raw,
		Writable:     ToFlag(f.writable()),
		Enumerable:   ToFlag(f.enumerable()),
		Configurable: ToFlag(f.configurable()),
	}
}

func (a *arrayObject) lengthWritable() bool {
	_, flags, _ := a.lookupOwn(lengthKey)
	return flags.writable()
}

func (a *arrayObject) getIdx(idx uint32) Value {
	return a.elements().get(idx)
}

func (a *arrayObject) getOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if idx, ok := key.ArrayIndex(); ok {
		raw := a.getIdx(idx)
		if raw == nil {
			return PropertyDescriptor{}, false
		}
		return a.elementDescriptor(raw), true
	}
	return a.baseObject.getOwnProperty(key)
}

// protoMayHaveElements reports whether an element missing from the array has to be looked
// up on the prototype chain.
func (a *arrayObject) protoMayHaveElements() bool {
	if a.prototype == nil {
		return false
	}
	r := a.val.runtime
	return a.prototype != r.global.ArrayPrototype || !r.noProtoElements.isValid()
}

func (a *arrayObject) resolveElement(raw Value, receiver Value) Value {
	if p, ok := raw.(*valueProperty); ok {
		if p.flags.accessor() {
			if p.getter == nil {
				return _undefined
			}
			return a.val.runtime.callFunction(p.getter, receiver)
		}
		return p.value
	}
	return raw
}

func (a *arrayObject) get(key PropertyKey, receiver Value) Value {
	if idx, ok := key.ArrayIndex(); ok {
		if raw := a.getIdx(idx); raw != nil {
			return a.resolveElement(raw, receiver)
		}
		if a.protoMayHaveElements() {
			return a.prototype.self.get(key, receiver)
		}
		return nil
	}
	return a.baseObject.get(key, receiver)
}

func (a *arrayObject) hasOwnProperty(key PropertyKey) bool {
	if idx, ok := key.ArrayIndex(); ok {
		return a.getIdx(idx) != nil
	}
	return a.baseObject.hasOwnProperty(key)
}

func (a *arrayObject) hasProperty(key PropertyKey) bool {
	if idx, ok := key.ArrayIndex(); ok {
		if a.getIdx(idx) != nil {
			return true
		}
		if a.protoMayHaveElements() {
			return a.prototype.self.hasProperty(key)
		}
		return false
	}
	return a.baseObject.hasProperty(key)
}

// setElement assigns to an existing element.
func (a *arrayObject) setElement(idx uint32, raw, v, receiver Value, throw bool) bool {
	if p, ok := raw.(*valueProperty); ok {
		if p.flags.accessor() {
			if p.setter == nil {
				a.val.runtime.typeErrorResult(throw, "Cannot set property %d of %s which has only a getter", idx, a.describe())
				return false
			}
			a.val.runtime.callFunction(p.setter, receiver, v)
			return true
		}
		if !p.flags.writable() {
			a.val.runtime.typeErrorResult(throw, "Cannot assign to read only property '%d'", idx)
			return false
		}
		p.value = v
		return true
	}
	if a.integrity == IntegrityFrozen {
		a.val.runtime.typeErrorResult(throw, "Cannot assign to read only property '%d'", idx)
		return false
	}
	a.putRaw(idx, v)
	return true
}

func (a *arrayObject) setOwn(key PropertyKey, v Value, throw bool) bool {
	if idx, ok := key.ArrayIndex(); ok {
		if raw := a.getIdx(idx); raw != nil {
			return a.setElement(idx, raw, v, a.val, throw)
		}
		if a.protoMayHaveElements() {
			// we know it's foreign because prototype loops are not allowed
			if res, handled := a.prototype.self.setForeign(key, v, a.val, throw); handled {
				return res
			}
		}
		return a.defineIndex(idx, PropertyDescriptor{
			Value:        v,
			Writable:     FLAG_TRUE,
			Enumerable:   FLAG_TRUE,
			Configurable: FLAG_TRUE,
		}, throw)
	}
	return a.baseObject.setOwn(key, v, throw)
}

func (a *arrayObject) setForeign(key PropertyKey, v, receiver Value, throw bool) (bool, bool) {
	if idx, ok := key.ArrayIndex(); ok {
		if raw := a.getIdx(idx); raw != nil {
			if a.elementFlags(raw).accessor() || !a.elementFlags(raw).writable() {
				return a.setElement(idx, raw, v, receiver, throw), true
			}
			return false, false
		}
		if proto := a.prototype; proto != nil {
			if receiver == proto {
				return proto.self.setOwn(key, v, throw), true
			}
			return proto.self.setForeign(key, v, receiver, throw)
		}
		return false, false
	}
	return a.baseObject.setForeign(key, v, receiver, throw)
}

func (a *arrayObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	if idx, ok := key.ArrayIndex(); ok {
		return a.defineIndex(idx, desc, throw)
	}
	if key == lengthKey {
		return a.defineLength(desc, throw)
	}
	return a.baseObject.defineOwnProperty(key, desc, throw)
}

func (a *arrayObject) defineIndex(idx uint32, desc PropertyDescriptor, throw bool) bool {
	if idx >= a.length && !a.lengthWritable() {
		a.val.runtime.typeErrorResult(throw, "Cannot add property %d, length is not writable", idx)
		return false
	}
	raw := a.getIdx(idx)
	if raw == nil {
		if !a.extensible {
			a.val.runtime.typeErrorResult(throw, "Cannot define property %d, object is not extensible", idx)
			return false
		}
		desc.complete()
		if !desc.IsAccessor() && desc.flags() == flagsDefault && a.integrity == IntegrityNone {
			a.putRaw(idx, desc.Value)
		} else {
			a.putRaw(idx, propertyFromDescriptor(&desc))
		}
		if r := a.val.runtime; a.val == r.global.ArrayPrototype {
			r.noProtoElements.invalidate(r, "element added to Array.prototype")
		}
	} else {
		current := a.elementDescriptor(raw)
		if !isCompatiblePropertyDescriptor(a.extensible, desc, current, true) {
			a.val.runtime.typeErrorResult(throw, "Cannot redefine property: %d", idx)
			return false
		}
		merged := mergeDescriptor(current, desc)
		if p, ok := raw.(*valueProperty); ok {
			*p = *propertyFromDescriptor(&merged)
		} else if !merged.IsAccessor() && merged.flags() == a.plainFlags() {
			a.putRaw(idx, merged.Value)
		} else {
			a.putRaw(idx, propertyFromDescriptor(&merged))
		}
	}
	if idx >= a.length {
		a.length = idx + 1
	}
	return true
}

// toArrayLength validates a new length value: ToUint32(v) must equal ToNumber(v).
// Both conversions run, so an object value is converted twice.
func (a *arrayObject) toArrayLength(v Value) uint32 {
	r := a.val.runtime
	l := toUint32(r.ToNumber(v).ToFloat())
	num := r.ToNumber(v).ToFloat()
	if float64(l) != num {
		panic(r.NewRangeError("Invalid array length"))
	}
	return l
}

func (a *arrayObject) setLength(v Value, throw bool) bool {
	return a.defineLength(PropertyDescriptor{Value: v}, throw)
}

// defineLength implements ArraySetLength.
func (a *arrayObject) defineLength(desc PropertyDescriptor, throw bool) bool {
	if desc.Value == nil {
		return a.baseObject.defineOwnProperty(lengthKey, desc, throw)
	}
	newLen := a.toArrayLength(desc.Value)
	if desc.Configurable == FLAG_TRUE || desc.Enumerable == FLAG_TRUE || desc.IsAccessor() {
		a.val.runtime.typeErrorResult(throw, "Cannot redefine property: length")
		return false
	}
	writable := a.lengthWritable()
	if newLen >= a.length {
		if newLen != a.length && !writable {
			a.val.runtime.typeErrorResult(throw, "Cannot redefine property: length")
			return false
		}
		if desc.Writable == FLAG_TRUE && !writable {
			a.val.runtime.typeErrorResult(throw, "Cannot redefine property: length")
			return false
		}
		a.length = newLen
		if desc.Writable == FLAG_FALSE {
			a.setLengthWritable(false)
		}
		return true
	}
	if !writable {
		a.val.runtime.typeErrorResult(throw, "Cannot redefine property: length")
		return false
	}
	ok := a.shrink(newLen)
	if desc.Writable == FLAG_FALSE {
		a.setLengthWritable(false)
	}
	if !ok {
		a.val.runtime.typeErrorResult(throw, "Cannot redefine property: length")
	}
	return ok
}

func (a *arrayObject) setLengthWritable(w bool) {
	cur, flags, _ := a.lookupOwn(lengthKey)
	if w {
		flags |= flagWritable
	} else {
		flags &^= flagWritable
	}
	a.updateOwn(lengthKey, cur, flags)
}

// shrink deletes the elements at index >= newLen from the top down. A non-configurable
// element stops the deletion: length is left at its index + 1 and false is returned.
func (a *arrayObject) shrink(newLen uint32) bool {
	store := a.elements()
	from := store.representation()
	ret := true
	if store.count() > 0 {
		idxs := store.indicesFrom(newLen, nil)
		for i := len(idxs) - 1; i >= 0; i-- {
			if !a.elementFlags(store.get(idxs[i])).configurable() {
				newLen = idxs[i] + 1
				ret = false
				break
			}
		}
	}
	a.store = store.truncate(newLen)
	a.length = newLen
	a.noteTransition(from)
	return ret
}

func (a *arrayObject) delete(key PropertyKey, throw bool) bool {
	if idx, ok := key.ArrayIndex(); ok {
		raw := a.getIdx(idx)
		if raw == nil {
			return true
		}
		if !a.elementFlags(raw).configurable() {
			a.val.runtime.typeErrorResult(throw, "Cannot delete property '%d' of %s", idx, a.describe())
			return false
		}
		from := a.store.representation()
		a.store = a.store.remove(idx)
		a.noteTransition(from)
		return true
	}
	return a.baseObject.delete(key, throw)
}

func (a *arrayObject) ownKeys() []PropertyKey {
	idxs := a.elements().indicesFrom(0, nil)
	named := a.baseObject.ownKeys()
	keys := make([]PropertyKey, 0, len(idxs)+len(named))
	for _, idx := range idxs {
		keys = append(keys, IdxKey(idx))
	}
	return append(keys, named...)
}

// setIntegrity seals or freezes the elements without touching the named properties.
func (a *arrayObject) setIntegrity(level IntegrityLevel) {
	store := a.elements()
	a.extensible = false
	if store.hasAttributes() {
		// only sparse stores carry attributes
		sa := store.(*sparseStore)
		plain := a.plainFlags()
		for i := range sa.items {
			p, ok := sa.items[i].value.(*valueProperty)
			if !ok {
				p = &valueProperty{value: sa.items[i].value, flags: plain}
				sa.items[i].value = p
				sa.propCount++
			}
			p.flags &^= flagConfigurable
			if level == IntegrityFrozen && !p.flags.accessor() {
				p.flags &^= flagWritable
			}
		}
		a.integrity = IntegrityNone
		return
	}
	if level > a.integrity {
		a.integrity = level
	}
}

func (a *arrayObject) export() interface{} {
	arr := make([]interface{}, a.length)
	store := a.elements()
	for _, idx := range store.indicesFrom(0, nil) {
		arr[idx] = a.resolveElement(store.get(idx), a.val).Export()
	}
	return arr
}
