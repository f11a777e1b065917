package objmodel

import (
	"math"
	"math/big"
)

// ElementType is the element type of a typed array view.
type ElementType int

const (
	Int8 ElementType = iota
	Uint8
	Uint8Clamped
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	BigInt64
	BigUint64

	numElementTypes = int(iota)
)

var elementTypeNames = [numElementTypes]string{
	"Int8Array", "Uint8Array", "Uint8ClampedArray", "Int16Array", "Uint16Array",
	"Int32Array", "Uint32Array", "Float32Array", "Float64Array", "BigInt64Array",
	"BigUint64Array",
}

func (t ElementType) String() string {
	if t < 0 || int(t) >= numElementTypes {
		return "Unknown"
	}
	return elementTypeNames[t]
}

// ElementTypeByName accepts both "Int32" and "Int32Array".
func ElementTypeByName(name string) (ElementType, bool) {
	for i, n := range elementTypeNames {
		if name == n || name+"Array" == n {
			return ElementType(i), true
		}
	}
	return 0, false
}

// Size returns the element size in bytes.
func (t ElementType) Size() int {
	switch t {
	case Int8, Uint8, Uint8Clamped:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	}
	return 8
}

func (t ElementType) isBigInt() bool {
	return t == BigInt64 || t == BigUint64
}

// toRaw coerces v to the element domain. The conversion may run user code.
func (t ElementType) toRaw(r *Runtime, v Value) uint64 {
	if t.isBigInt() {
		b := r.toBigInt(v).big()
		if t == BigInt64 {
			return uint64(toBigInt64(b))
		}
		return toBigUint64(b)
	}
	f := r.ToNumber(v).ToFloat()
	switch t {
	case Int8, Uint8:
		return uint64(toUint8(f))
	case Uint8Clamped:
		return uint64(toUint8Clamp(f))
	case Int16, Uint16:
		return uint64(toUint16(f))
	case Int32, Uint32:
		return uint64(toUint32(f))
	case Float32:
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}

func (t ElementType) fromRaw(raw uint64) Value {
	switch t {
	case Int8:
		return valueInt(int8(raw))
	case Uint8, Uint8Clamped:
		return valueInt(uint8(raw))
	case Int16:
		return valueInt(int16(raw))
	case Uint16:
		return valueInt(uint16(raw))
	case Int32:
		return valueInt(int32(raw))
	case Uint32:
		return valueInt(uint32(raw))
	case Float32:
		return floatToValue(float64(math.Float32frombits(uint32(raw))))
	case Float64:
		return floatToValue(math.Float64frombits(raw))
	case BigInt64:
		return (*valueBigInt)(big.NewInt(int64(raw)))
	}
	return (*valueBigInt)(new(big.Int).SetUint64(raw))
}

type typedArrayObject struct {
	baseObject
	buffer         *arrayBufferObject
	elemType       ElementType
	byteOffset     int
	length         int
	lengthTracking bool
}

func (a *typedArrayObject) kind() Kind {
	return KindTypedArray
}

// isOutOfBounds is recomputed on every access: the buffer may have been detached or
// resized since the last one.
func (a *typedArrayObject) isOutOfBounds() bool {
	if a.buffer.detached {
		return true
	}
	bufLen := a.buffer.byteLength()
	if a.byteOffset > bufLen {
		return true
	}
	return !a.lengthTracking && a.byteOffset+a.length*a.elemType.Size() > bufLen
}

func (a *typedArrayObject) currentLength() int {
	if a.isOutOfBounds() {
		return 0
	}
	if a.lengthTracking {
		return (a.buffer.byteLength() - a.byteOffset) / a.elemType.Size()
	}
	return a.length
}

func (a *typedArrayObject) byteLength() int {
	return a.currentLength() * a.elemType.Size()
}

func (a *typedArrayObject) validIndex(n float64) (int, bool) {
	return isValidIntegerIndex(n, a.currentLength())
}

func (a *typedArrayObject) getElement(n float64) Value {
	idx, ok := a.validIndex(n)
	if !ok {
		return nil
	}
	size := a.elemType.Size()
	return a.elemType.fromRaw(loadRaw(a.buffer.bytes(), a.byteOffset+idx*size, size, a.buffer.shared != nil))
}

// setElement coerces v before checking the index. An index that became invalid during
// the coercion makes the write a no-op.
func (a *typedArrayObject) setElement(n float64, v Value) {
	raw := a.elemType.toRaw(a.val.runtime, v)
	idx, ok := a.validIndex(n)
	if !ok {
		return
	}
	size := a.elemType.Size()
	storeRaw(a.buffer.bytes(), a.byteOffset+idx*size, size, raw, a.buffer.shared != nil)
}

func (a *typedArrayObject) getOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	if n, ok := key.CanonicalNumericIndex(); ok {
		v := a.getElement(n)
		if v == nil {
			return PropertyDescriptor{}, false
		}
		return PropertyDescriptor{
			Value:        v,
			Writable:     FLAG_TRUE,
			Enumerable:   FLAG_TRUE,
			Configurable: FLAG_TRUE,
		}, true
	}
	return a.baseObject.getOwnProperty(key)
}

func (a *typedArrayObject) get(key PropertyKey, receiver Value) Value {
	if n, ok := key.CanonicalNumericIndex(); ok {
		return a.getElement(n)
	}
	return a.baseObject.get(key, receiver)
}

func (a *typedArrayObject) hasOwnProperty(key PropertyKey) bool {
	if n, ok := key.CanonicalNumericIndex(); ok {
		_, valid := a.validIndex(n)
		return valid
	}
	return a.baseObject.hasOwnProperty(key)
}

func (a *typedArrayObject) hasProperty(key PropertyKey) bool {
	if n, ok := key.CanonicalNumericIndex(); ok {
		_, valid := a.validIndex(n)
		return valid
	}
	return a.baseObject.hasProperty(key)
}

func (a *typedArrayObject) setOwn(key PropertyKey, v Value, throw bool) bool {
	if n, ok := key.CanonicalNumericIndex(); ok {
		a.setElement(n, v)
		return true
	}
	return a.baseObject.setOwn(key, v, throw)
}

func (a *typedArrayObject) setForeign(key PropertyKey, v, receiver Value, throw bool) (bool, bool) {
	if n, ok := key.CanonicalNumericIndex(); ok {
		if _, valid := a.validIndex(n); !valid {
			return true, true
		}
		// a writable data property: the receiver gets its own
		return false, false
	}
	return a.baseObject.setForeign(key, v, receiver, throw)
}

func (a *typedArrayObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	if n, ok := key.CanonicalNumericIndex(); ok {
		r := a.val.runtime
		if _, valid := a.validIndex(n); !valid {
			r.typeErrorResult(throw, "Invalid typed array index")
			return false
		}
		if desc.Configurable == FLAG_FALSE || desc.Enumerable == FLAG_FALSE || desc.IsAccessor() || desc.Writable == FLAG_FALSE {
			r.typeErrorResult(throw, "Cannot redefine property: %s", key)
			return false
		}
		if desc.Value != nil {
			a.setElement(n, desc.Value)
		}
		return true
	}
	return a.baseObject.defineOwnProperty(key, desc, throw)
}

func (a *typedArrayObject) delete(key PropertyKey, throw bool) bool {
	if n, ok := key.CanonicalNumericIndex(); ok {
		if _, valid := a.validIndex(n); !valid {
			return true
		}
		a.val.runtime.typeErrorResult(throw, "Cannot delete property '%s' of %s", key, a.describe())
		return false
	}
	return a.baseObject.delete(key, throw)
}

func (a *typedArrayObject) ownKeys() []PropertyKey {
	l := a.currentLength()
	named := a.baseObject.ownKeys()
	keys := make([]PropertyKey, 0, l+len(named))
	for i := 0; i < l; i++ {
		keys = append(keys, IdxKey(uint32(i)))
	}
	return append(keys, named...)
}

func (a *typedArrayObject) export() interface{} {
	l := a.currentLength()
	size := a.elemType.Size()
	data := a.buffer.bytes()
	shared := a.buffer.shared != nil
	raw := func(i int) uint64 {
		return loadRaw(data, a.byteOffset+i*size, size, shared)
	}
	switch a.elemType {
	case Int8:
		s := make([]int8, l)
		for i := range s {
			s[i] = int8(raw(i))
		}
		return s
	case Uint8, Uint8Clamped:
		s := make([]uint8, l)
		for i := range s {
			s[i] = uint8(raw(i))
		}
		return s
	case Int16:
		s := make([]int16, l)
		for i := range s {
			s[i] = int16(raw(i))
		}
		return s
	case Uint16:
		s := make([]uint16, l)
		for i := range s {
			s[i] = uint16(raw(i))
		}
		return s
	case Int32:
		s := make([]int32, l)
		for i := range s {
			s[i] = int32(raw(i))
		}
		return s
	case Uint32:
		s := make([]uint32, l)
		for i := range s {
			s[i] = uint32(raw(i))
		}
		return s
	case Float32:
		s := make([]float32, l)
		for i := range s {
			s[i] = math.Float32frombits(uint32(raw(i)))
		}
		return s
	case Float64:
		s := make([]float64, l)
		for i := range s {
			s[i] = math.Float64frombits(raw(i))
		}
		return s
	case BigInt64:
		s := make([]int64, l)
		for i := range s {
			s[i] = int64(raw(i))
		}
		return s
	}
	s := make([]uint64, l)
	for i := range s {
		s[i] = raw(i)
	}
	return s
}

// CreateView creates a typed array of type t over buffer. A negative length creates a
// view up to the end of the buffer, which tracks the buffer length if it is resizable
// or growable.
func (r *Runtime) CreateView(buffer *Object, byteOffset, length int, t ElementType) *Object {
	buf, ok := buffer.self.(*arrayBufferObject)
	if !ok {
		panic(r.NewTypeError("%s is not an ArrayBuffer", describeValue(buffer)))
	}
	if t < 0 || int(t) >= numElementTypes {
		panic(r.NewTypeError("Unknown element type %d", int(t)))
	}
	size := t.Size()
	if byteOffset < 0 {
		panic(r.NewRangeError("Start offset %d is outside the bounds of the buffer", byteOffset))
	}
	if byteOffset%size != 0 {
		panic(r.NewRangeError("Start offset of %s should be a multiple of %d", t, size))
	}
	buf.ensureNotDetached()
	bufLen := buf.byteLength()
	v := &typedArrayObject{
		buffer:     buf,
		elemType:   t,
		byteOffset: byteOffset,
	}
	switch {
	case length < 0 && buf.lengthTrackable():
		if byteOffset > bufLen {
			panic(r.NewRangeError("Start offset %d is outside the bounds of the buffer", byteOffset))
		}
		v.lengthTracking = true
	case length < 0:
		if bufLen%size != 0 {
			panic(r.NewRangeError("Byte length of %s should be a multiple of %d", t, size))
		}
		if byteOffset > bufLen {
			panic(r.NewRangeError("Start offset %d is outside the bounds of the buffer", byteOffset))
		}
		v.length = (bufLen - byteOffset) / size
	default:
		if byteOffset+length*size > bufLen {
			panic(r.NewRangeError("Invalid typed array length: %d", length))
		}
		v.length = length
	}
	obj := &Object{runtime: r}
	v.class = t.String()
	v.val = obj
	v.extensible = true
	v.prototype = r.global.typedArrayPrototypes[t]
	obj.self = v
	v.init()
	return obj
}

// NewTypedArray creates a view of type t over a new zeroed buffer of length elements.
func (r *Runtime) NewTypedArray(t ElementType, length int) *Object {
	if length < 0 || length > math.MaxInt32/t.Size() {
		panic(r.NewRangeError("Invalid typed array length: %d", length))
	}
	buf := r.NewArrayBuffer(make([]byte, length*t.Size()))
	return r.CreateView(buf.Object(), 0, length, t)
}

func (r *Runtime) toTypedArray(v Value, method string) *typedArrayObject {
	if o, ok := v.(*Object); ok {
		if a, ok := o.self.(*typedArrayObject); ok {
			return a
		}
	}
	panic(r.NewTypeError("Method %s called on incompatible receiver %s", method, describeValue(v)))
}

func (r *Runtime) viewGetter(proto *baseObject, name string, get func(a *typedArrayObject) Value) {
	method := "%TypedArray%.prototype." + name
	getter := r.newNativeFunc(r.global.FunctionPrototype, "get "+name, 0, func(call FunctionCall) Value {
		return get(r.toTypedArray(call.This, method))
	})
	proto._putAccessor(StrKey(name), getter, nil, false, true)
}

func (r *Runtime) initTypedArrays() {
	proto := r.newBaseObject(r.global.ObjectPrototype, classObject)
	r.viewGetter(proto, "buffer", func(a *typedArrayObject) Value {
		return a.buffer.val
	})
	r.viewGetter(proto, "byteLength", func(a *typedArrayObject) Value {
		return intToValue(int64(a.byteLength()))
	})
	r.viewGetter(proto, "byteOffset", func(a *typedArrayObject) Value {
		if a.isOutOfBounds() {
			return intToValue(0)
		}
		return intToValue(int64(a.byteOffset))
	})
	r.viewGetter(proto, "length", func(a *typedArrayObject) Value {
		return intToValue(int64(a.currentLength()))
	})
	tag := r.newNativeFunc(r.global.FunctionPrototype, "get [Symbol.toStringTag]", 0, func(call FunctionCall) Value {
		if o, ok := call.This.(*Object); ok {
			if a, ok := o.self.(*typedArrayObject); ok {
				return valueString(a.elemType.String())
			}
		}
		return _undefined
	})
	proto._putAccessor(SymKey(SymToStringTag), tag, nil, false, true)
	r.global.TypedArrayPrototype = proto.val

	for i := 0; i < numElementTypes; i++ {
		t := ElementType(i)
		r.global.typedArrayPrototypes[t] = r.newLazyObject(func(val *Object) objectImpl {
			o := &baseObject{
				class:      classObject,
				val:        val,
				extensible: true,
				prototype:  r.global.TypedArrayPrototype,
			}
			o.init()
			o._putProp(StrKey("BYTES_PER_ELEMENT"), valueInt(t.Size()), false, false, false)
			return o
		})
	}
}
