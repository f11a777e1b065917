package objmodel

import (
	"math"
	"sort"
)

const (
	classObject            = "Object"
	classArray             = "Array"
	classFunction          = "Function"
	classError             = "Error"
	classProxy             = "Proxy"
	classArrayBuffer       = "ArrayBuffer"
	classSharedArrayBuffer = "SharedArrayBuffer"
)

// Kind is the exotic-object tag of an object.
type Kind int

const (
	KindOrdinary Kind = iota
	KindArray
	KindArrayBuffer
	KindTypedArray
	KindProxy
	KindDictionary
	KindFunction
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOrdinary:
		return "Ordinary"
	case KindArray:
		return "Array"
	case KindArrayBuffer:
		return "ArrayBuffer"
	case KindTypedArray:
		return "TypedArray"
	case KindProxy:
		return "Proxy"
	case KindDictionary:
		return "Dictionary"
	case KindFunction:
		return "Function"
	case KindError:
		return "Error"
	}
	return "Unknown"
}

type Object struct {
	runtime *Runtime
	self    objectImpl
}

type objectImpl interface {
	kind() Kind
	className() string
	getOwnProperty(key PropertyKey) (PropertyDescriptor, bool)
	// get returns nil if the property is not found on the object or its prototype chain.
	get(key PropertyKey, receiver Value) Value
	// setOwn is [[Set]] where the receiver is the object itself.
	setOwn(key PropertyKey, v Value, throw bool) bool
	// setForeign is [[Set]] with a different receiver. If handled is false the caller
	// must create or update the property on the receiver.
	setForeign(key PropertyKey, v, receiver Value, throw bool) (res, handled bool)
	hasProperty(key PropertyKey) bool
	hasOwnProperty(key PropertyKey) bool
	defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool
	delete(key PropertyKey, throw bool) bool
	proto() *Object
	setProto(proto *Object, throw bool) bool
	isExtensible() bool
	preventExtensions(throw bool) bool
	ownKeys() []PropertyKey
	assertCallable() func(FunctionCall) Value
	export() interface{}
	_putProp(key PropertyKey, v Value, writable, enumerable, configurable bool)
}

type baseObject struct {
	class      string
	val        *Object
	prototype  *Object
	extensible bool

	shape *shape
	slots []Value

	// dict replaces shape and slots in dictionary mode.
	dict *propertyTable
}

func (o *baseObject) init() {
	o.shape = o.val.runtime.rootShape
}

func (r *Runtime) newBaseObject(proto *Object, class string) *baseObject {
	v := &Object{runtime: r}
	o := &baseObject{
		class:      class,
		val:        v,
		extensible: true,
		prototype:  proto,
	}
	v.self = o
	o.init()
	return o
}

func (o *baseObject) kind() Kind {
	return KindOrdinary
}

func (o *baseObject) className() string {
	return o.class
}

func (o *baseObject) lookupOwn(key PropertyKey) (Value, propFlags, bool) {
	if o.dict != nil {
		return o.dict.lookup(key)
	}
	if i, flags, ok := o.shape.lookup(key); ok {
		return o.slots[i], flags, true
	}
	return nil, 0, false
}

// writeOwn updates the value of an existing property without touching its flags.
func (o *baseObject) writeOwn(key PropertyKey, v Value) {
	if o.dict != nil {
		o.dict.setValue(key, v)
		return
	}
	if i, _, ok := o.shape.lookup(key); ok {
		o.slots[i] = v
	}
}

// updateOwn replaces the payload and the flags of an existing property.
func (o *baseObject) updateOwn(key PropertyKey, v Value, flags propFlags) {
	if o.dict != nil {
		o.dict.put(key, v, flags)
		return
	}
	if i, _, ok := o.shape.lookup(key); ok {
		o.shape = o.shape.withFlags(i, flags)
		o.slots[i] = v
	}
}

// addOwn appends a new property. Ordinary objects may switch to dictionary mode here.
func (o *baseObject) addOwn(key PropertyKey, v Value, flags propFlags) {
	r := o.val.runtime
	if key.isIndex() && r.isIndexedProtoHolder(o.val) {
		r.noProtoElements.invalidate(r, "index property added to "+o.class+".prototype")
	}
	if o.dict == nil && o.shouldBecomeDictionary(key) {
		d := o.toDictionary()
		d.dict.put(key, v, flags)
		return
	}
	if o.dict != nil {
		o.dict.put(key, v, flags)
		return
	}
	o.shape = o.shape.addProp(key, flags)
	o.slots = append(o.slots, v)
}

func (o *baseObject) removeOwn(key PropertyKey) {
	if o.dict != nil {
		o.dict.remove(key)
		return
	}
	if i, _, ok := o.shape.lookup(key); ok {
		o.shape = o.shape.without(i)
		copy(o.slots[i:], o.slots[i+1:])
		o.slots[len(o.slots)-1] = nil
		o.slots = o.slots[:len(o.slots)-1]
	}
}

func (o *baseObject) ownPropCount() int {
	if o.dict != nil {
		return o.dict.len()
	}
	return o.shape.size()
}

// forEachOwn visits the own properties in creation order.
func (o *baseObject) forEachOwn(fn func(key PropertyKey, v Value, flags propFlags)) {
	if o.dict != nil {
		o.dict.forEach(fn)
		return
	}
	for i, p := range o.shape.props {
		fn(p.key, o.slots[i], p.flags)
	}
}

func (o *baseObject) descriptorOf(v Value, flags propFlags) PropertyDescriptor {
	if flags.accessor() {
		pair := v.(*accessorPair)
		d := PropertyDescriptor{
			Getter:       _undefined,
			Setter:       _undefined,
			Enumerable:   ToFlag(flags.enumerable()),
			Configurable: ToFlag(flags.configurable()),
		}
		if pair.getter != nil {
			d.Getter = pair.getter
		}
		if pair.setter != nil {
			d.Setter = pair.setter
		}
		return d
	}
	if c, ok := v.(*computedProperty); ok {
		v = c.get(o.val)
	}
	return PropertyDescriptor{
		Value:        v,
		Writable:     ToFlag(flags.writable()),
		Enumerable:   ToFlag(flags.enumerable()),
		Configurable: ToFlag(flags.configurable()),
	}
}

// slotValue converts a complete descriptor into a slot payload.
func slotValue(d *PropertyDescriptor) Value {
	if d.IsAccessor() {
		pair := &accessorPair{}
		pair.getter, _ = d.Getter.(*Object)
		pair.setter, _ = d.Setter.(*Object)
		return pair
	}
	return nilSafe(d.Value)
}

func (o *baseObject) getOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	v, flags, ok := o.lookupOwn(key)
	if !ok {
		return PropertyDescriptor{}, false
	}
	return o.descriptorOf(v, flags), true
}

// resolve reads a slot payload on behalf of receiver.
func (o *baseObject) resolve(v Value, flags propFlags, receiver Value) Value {
	if flags.accessor() {
		pair := v.(*accessorPair)
		if pair.getter == nil {
			return _undefined
		}
		return o.val.runtime.callFunction(pair.getter, receiver)
	}
	if c, ok := v.(*computedProperty); ok {
		return c.get(o.val)
	}
	return v
}

func (o *baseObject) get(key PropertyKey, receiver Value) Value {
	if v, flags, ok := o.lookupOwn(key); ok {
		return o.resolve(v, flags, receiver)
	}
	if o.prototype != nil {
		return o.prototype.self.get(key, receiver)
	}
	return nil
}

func (o *baseObject) hasOwnProperty(key PropertyKey) bool {
	_, _, ok := o.lookupOwn(key)
	return ok
}

func (o *baseObject) hasProperty(key PropertyKey) bool {
	if o.val.self.hasOwnProperty(key) {
		return true
	}
	if o.prototype != nil {
		return o.prototype.self.hasProperty(key)
	}
	return false
}

// setExisting assigns to an own property found at the start of a [[Set]].
func (o *baseObject) setExisting(key PropertyKey, cur Value, flags propFlags, v, receiver Value, throw bool) bool {
	if flags.accessor() {
		pair := cur.(*accessorPair)
		if pair.setter == nil {
			o.val.runtime.typeErrorResult(throw, "Cannot set property %s of %s which has only a getter", key, o.describe())
			return false
		}
		o.val.runtime.callFunction(pair.setter, receiver, v)
		return true
	}
	if !flags.writable() {
		o.val.runtime.typeErrorResult(throw, "Cannot assign to read only property '%s'", key)
		return false
	}
	if c, ok := cur.(*computedProperty); ok {
		return c.set(o.val, v, throw)
	}
	o.writeOwn(key, v)
	return true
}

func (o *baseObject) setOwn(key PropertyKey, v Value, throw bool) bool {
	if cur, flags, ok := o.lookupOwn(key); ok {
		return o.setExisting(key, cur, flags, v, o.val, throw)
	}
	if proto := o.prototype; proto != nil {
		// we know it's foreign because prototype loops are not allowed
		if res, handled := proto.self.setForeign(key, v, o.val, throw); handled {
			return res
		}
	}
	return o.val.self.defineOwnProperty(key, PropertyDescriptor{
		Value:        v,
		Writable:     FLAG_TRUE,
		Enumerable:   FLAG_TRUE,
		Configurable: FLAG_TRUE,
	}, throw)
}

func (o *baseObject) setForeign(key PropertyKey, v, receiver Value, throw bool) (bool, bool) {
	if cur, flags, ok := o.lookupOwn(key); ok {
		if flags.accessor() || !flags.writable() {
			return o.setExisting(key, cur, flags, v, receiver, throw), true
		}
		return false, false
	}
	if proto := o.prototype; proto != nil {
		if receiver == proto {
			return proto.self.setOwn(key, v, throw), true
		}
		return proto.self.setForeign(key, v, receiver, throw)
	}
	return false, false
}

func (o *baseObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	cur, flags, exists := o.lookupOwn(key)
	if !exists {
		if !o.extensible {
			o.val.runtime.typeErrorResult(throw, "Cannot define property %s, object is not extensible", key)
			return false
		}
		desc.complete()
		o.addOwn(key, slotValue(&desc), desc.flags())
		return true
	}
	current := o.descriptorOf(cur, flags)
	if !isCompatiblePropertyDescriptor(o.extensible, desc, current, true) {
		o.val.runtime.typeErrorResult(throw, "Cannot redefine property: %s", key)
		return false
	}
	merged := mergeDescriptor(current, desc)
	if c, ok := cur.(*computedProperty); ok && merged.IsData() {
		if desc.Value != nil && !desc.Value.SameAs(current.Value) {
			if !c.set(o.val, desc.Value, throw) {
				return false
			}
		}
		o.updateOwn(key, c, merged.flags()|flagComputed)
		return true
	}
	o.updateOwn(key, slotValue(&merged), merged.flags())
	return true
}

func (o *baseObject) describe() string {
	return "[object " + o.val.self.className() + "]"
}

func (o *baseObject) delete(key PropertyKey, throw bool) bool {
	_, flags, ok := o.lookupOwn(key)
	if !ok {
		return true
	}
	if !flags.configurable() {
		o.val.runtime.typeErrorResult(throw, "Cannot delete property '%s' of %s", key, o.describe())
		return false
	}
	o.removeOwn(key)
	return true
}

func (o *baseObject) proto() *Object {
	return o.prototype
}

func (o *baseObject) setProto(proto *Object, throw bool) bool {
	current := o.prototype
	if current == proto {
		return true
	}
	if !o.extensible {
		o.val.runtime.typeErrorResult(throw, "%s is not extensible", o.describe())
		return false
	}
	for p := proto; p != nil; {
		if p == o.val {
			o.val.runtime.typeErrorResult(throw, "Cyclic __proto__ value")
			return false
		}
		if p.self.kind() == KindProxy {
			break
		}
		p = p.self.proto()
	}
	o.prototype = proto
	r := o.val.runtime
	if r.isIndexedProtoHolder(o.val) {
		r.noProtoElements.invalidate(r, o.class+".prototype prototype changed")
	}
	return true
}

func (o *baseObject) isExtensible() bool {
	return o.extensible
}

func (o *baseObject) preventExtensions(bool) bool {
	o.extensible = false
	return true
}

// ownKeys returns index keys ascending, then string keys and symbols in creation order.
func (o *baseObject) ownKeys() []PropertyKey {
	var indices []uint32
	var strs, syms []PropertyKey
	o.forEachOwn(func(key PropertyKey, _ Value, _ propFlags) {
		if key.sym != nil {
			syms = append(syms, key)
		} else if idx, ok := key.ArrayIndex(); ok {
			indices = append(indices, idx)
		} else {
			strs = append(strs, key)
		}
	})
	keys := make([]PropertyKey, 0, len(indices)+len(strs)+len(syms))
	if len(indices) > 0 {
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		for _, idx := range indices {
			keys = append(keys, IdxKey(idx))
		}
	}
	keys = append(keys, strs...)
	return append(keys, syms...)
}

func (o *baseObject) assertCallable() func(FunctionCall) Value {
	return nil
}

func (o *baseObject) export() interface{} {
	m := make(map[string]interface{})
	for _, key := range o.val.self.ownKeys() {
		if key.IsSymbol() {
			continue
		}
		if desc, ok := o.val.self.getOwnProperty(key); ok && desc.Enumerable == FLAG_TRUE {
			if v := o.val.self.get(key, o.val); v != nil {
				m[key.name] = v.Export()
			} else {
				m[key.name] = nil
			}
		}
	}
	return m
}

func (o *baseObject) _putProp(key PropertyKey, v Value, writable, enumerable, configurable bool) {
	flags := makeFlags(writable, enumerable, configurable)
	if _, _, ok := o.lookupOwn(key); ok {
		o.updateOwn(key, v, flags)
		return
	}
	o.addOwn(key, v, flags)
}

func (o *baseObject) _putAccessor(key PropertyKey, getter, setter *Object, enumerable, configurable bool) {
	flags := makeFlags(false, enumerable, configurable) | flagAccessor
	pair := &accessorPair{getter: getter, setter: setter}
	if _, _, ok := o.lookupOwn(key); ok {
		o.updateOwn(key, pair, flags)
		return
	}
	o.addOwn(key, pair, flags)
}

func (o *baseObject) _putComputed(key PropertyKey, c *computedProperty, writable, enumerable, configurable bool) {
	o.addOwn(key, c, makeFlags(writable, enumerable, configurable)|flagComputed)
}

func (o *Object) set(key PropertyKey, v, receiver Value, throw bool) bool {
	if receiver == o {
		return o.self.setOwn(key, v, throw)
	}
	if res, handled := o.self.setForeign(key, v, receiver, throw); handled {
		return res
	}
	return o.runtime.receiverSet(key, v, receiver, throw)
}

// receiverSet is the tail of OrdinarySetWithOwnDescriptor: the property was found as a
// writable data property (or not at all) and is created or updated on the receiver.
func (r *Runtime) receiverSet(key PropertyKey, v, receiver Value, throw bool) bool {
	robj, ok := receiver.(*Object)
	if !ok {
		r.typeErrorResult(throw, "Receiver is not an object: %s", describeValue(receiver))
		return false
	}
	if desc, exists := robj.self.getOwnProperty(key); exists {
		if desc.IsAccessor() {
			r.typeErrorResult(throw, "Receiver property %s is an accessor", key)
			return false
		}
		if desc.Writable != FLAG_TRUE {
			r.typeErrorResult(throw, "Cannot assign to read only property '%s'", key)
			return false
		}
		return robj.self.defineOwnProperty(key, PropertyDescriptor{Value: v}, throw)
	}
	return robj.self.defineOwnProperty(key, PropertyDescriptor{
		Value:        v,
		Writable:     FLAG_TRUE,
		Configurable: FLAG_TRUE,
		Enumerable:   FLAG_TRUE,
	}, throw)
}

func describeValue(v Value) string {
	switch v := v.(type) {
	case *Object:
		return "[object " + v.self.className() + "]"
	case *Symbol:
		return v.String()
	case valueString:
		return "'" + string(v) + "'"
	}
	return v.String()
}

// Get returns the value of the property, or undefined if it does not exist.
func (o *Object) Get(key PropertyKey) Value {
	return nilSafe(o.self.get(key, o))
}

func (o *Object) GetWithReceiver(key PropertyKey, receiver Value) Value {
	return nilSafe(o.self.get(key, receiver))
}

// Set performs [[Set]] with the object as the receiver. In strict mode a failure panics
// with a TypeError *Exception, otherwise it is reported by the return value.
func (o *Object) Set(key PropertyKey, v Value, strict bool) bool {
	return o.set(key, v, o, strict)
}

func (o *Object) SetWithReceiver(key PropertyKey, v, receiver Value, strict bool) bool {
	return o.set(key, v, receiver, strict)
}

func (o *Object) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor, strict bool) bool {
	return o.self.defineOwnProperty(key, desc, strict)
}

// DefineDataProperty is a shortcut for defining a data property with all attributes given.
func (o *Object) DefineDataProperty(key PropertyKey, v Value, writable, enumerable, configurable Flag) bool {
	return o.self.defineOwnProperty(key, PropertyDescriptor{
		Value:        v,
		Writable:     writable,
		Enumerable:   enumerable,
		Configurable: configurable,
	}, true)
}

// DefineAccessorProperty is a shortcut for defining an accessor property.
func (o *Object) DefineAccessorProperty(key PropertyKey, getter, setter Value, enumerable, configurable Flag) bool {
	return o.self.defineOwnProperty(key, PropertyDescriptor{
		Getter:       getter,
		Setter:       setter,
		Enumerable:   enumerable,
		Configurable: configurable,
	}, true)
}

func (o *Object) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	return o.self.getOwnProperty(key)
}

// GetOwnPropertyDescriptor returns the descriptor of an own property as a descriptor
// object, or undefined.
func (o *Object) GetOwnPropertyDescriptor(key PropertyKey) Value {
	if desc, ok := o.self.getOwnProperty(key); ok {
		return o.runtime.fromPropertyDescriptor(desc)
	}
	return _undefined
}

func (o *Object) Delete(key PropertyKey, strict bool) bool {
	return o.self.delete(key, strict)
}

func (o *Object) HasProperty(key PropertyKey) bool {
	return o.self.hasProperty(key)
}

func (o *Object) HasOwnProperty(key PropertyKey) bool {
	return o.self.hasOwnProperty(key)
}

// OwnKeys implements [[OwnPropertyKeys]]: array indices ascending, then the other string
// keys in creation order, then symbols in creation order.
func (o *Object) OwnKeys() []PropertyKey {
	return o.self.ownKeys()
}

// Keys returns the enumerable own string keys.
func (o *Object) Keys() (keys []string) {
	for _, key := range o.self.ownKeys() {
		if key.IsSymbol() {
			continue
		}
		if desc, ok := o.self.getOwnProperty(key); ok && desc.Enumerable == FLAG_TRUE {
			keys = append(keys, key.name)
		}
	}
	return
}

func (o *Object) PreventExtensions(strict bool) bool {
	return o.self.preventExtensions(strict)
}

func (o *Object) IsExtensible() bool {
	return o.self.isExtensible()
}

func (o *Object) GetPrototypeOf() *Object {
	return o.self.proto()
}

func (o *Object) SetPrototypeOf(proto *Object, strict bool) bool {
	return o.self.setProto(proto, strict)
}

func (o *Object) Kind() Kind {
	return o.self.kind()
}

func (o *Object) ClassName() string {
	return o.self.className()
}

func (o *Object) Runtime() *Runtime {
	return o.runtime
}

func (o *Object) ToInteger() int64 {
	return o.ToNumber().ToInteger()
}

func (o *Object) String() string {
	return o.runtime.toPrimitive(o, hintString).String()
}

func (o *Object) ToFloat() float64 {
	return o.ToNumber().ToFloat()
}

func (o *Object) ToNumber() Value {
	p := o.runtime.toPrimitive(o, hintNumber)
	if _, ok := p.(*valueBigInt); ok {
		panic(o.runtime.NewTypeError("Cannot convert a BigInt value to a number"))
	}
	return p.ToNumber()
}

func (o *Object) ToBoolean() bool {
	return true
}

func (o *Object) SameAs(other Value) bool {
	if other, ok := other.(*Object); ok {
		return o == other
	}
	return false
}

func (o *Object) StrictEquals(other Value) bool {
	return o.SameAs(other)
}

func (o *Object) Export() interface{} {
	return o.self.export()
}

func toLength(v Value) int64 {
	if v == nil {
		return 0
	}
	f := toIntegerOrInfinity(v.ToFloat())
	if f <= 0 {
		return 0
	}
	if f > maxSafeInt {
		return maxSafeInt
	}
	return int64(f)
}

// toIndex implements ToIndex.
func (r *Runtime) toIndex(v Value) int {
	if v == nil || v == _undefined {
		return 0
	}
	f := toIntegerOrInfinity(v.ToFloat())
	if f < 0 || f > maxSafeInt {
		panic(r.NewRangeError("Invalid index: %s", numberToString(f)))
	}
	if f > math.MaxInt32 && math.MaxInt == math.MaxInt32 {
		panic(r.NewRangeError("Invalid index: %s", numberToString(f)))
	}
	return int(f)
}
