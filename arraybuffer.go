package objmodel

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// SharedBlock is the memory of a SharedArrayBuffer. It may be wrapped by buffers of
// several runtimes running on different goroutines: the byte length only grows, through
// a compare-and-swap loop, and element access goes through word-sized atomics.
type SharedBlock struct {
	words      []uint64
	data       []byte
	byteLength atomic.Int64
	maxLength  int
	growable   bool
}

// NewSharedBlock allocates a block. A growable block reserves maxByteLength bytes up
// front so that growing never moves the data.
func NewSharedBlock(byteLength, maxByteLength int, growable bool) *SharedBlock {
	if !growable {
		maxByteLength = byteLength
	}
	b := &SharedBlock{
		maxLength: maxByteLength,
		growable:  growable,
	}
	// 8-byte alignment for 64-bit atomics
	b.words = make([]uint64, (maxByteLength+7)/8)
	if len(b.words) > 0 {
		b.data = unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), len(b.words)*8)
	}
	b.byteLength.Store(int64(byteLength))
	return b
}

func (b *SharedBlock) ByteLength() int {
	return int(b.byteLength.Load())
}

func (b *SharedBlock) MaxByteLength() int {
	return b.maxLength
}

func (b *SharedBlock) Growable() bool {
	return b.growable
}

// Grow sets the byte length to newLength. It fails if the block is not growable, if
// newLength exceeds the maximum or if it is smaller than the current length, which may
// have been raised concurrently by another agent.
func (b *SharedBlock) Grow(newLength int) error {
	if !b.growable {
		return errNotGrowable
	}
	if newLength < 0 || newLength > b.maxLength {
		return errInvalidLength
	}
	for {
		cur := b.byteLength.Load()
		if int64(newLength) < cur {
			return errShrinkShared
		}
		if int64(newLength) == cur || b.byteLength.CompareAndSwap(cur, int64(newLength)) {
			return nil
		}
	}
}

type bufferError string

func (e bufferError) Error() string {
	return string(e)
}

const (
	errNotGrowable   bufferError = "SharedArrayBuffer is not growable"
	errInvalidLength bufferError = "Invalid array buffer length"
	errShrinkShared  bufferError = "SharedArrayBuffer cannot shrink"
)

type arrayBufferObject struct {
	baseObject
	data          []byte
	detached      bool
	resizable     bool
	maxByteLength int
	shared        *SharedBlock
}

func (a *arrayBufferObject) kind() Kind {
	return KindArrayBuffer
}

func (a *arrayBufferObject) byteLength() int {
	if a.shared != nil {
		return a.shared.ByteLength()
	}
	return len(a.data)
}

// bytes returns the memory addressable at the current byte length.
func (a *arrayBufferObject) bytes() []byte {
	if a.shared != nil {
		return a.shared.data[:a.shared.ByteLength()]
	}
	return a.data
}

func (a *arrayBufferObject) lengthTrackable() bool {
	if a.shared != nil {
		return a.shared.growable
	}
	return a.resizable
}

func (a *arrayBufferObject) export() interface{} {
	return a.bytes()
}

func (a *arrayBufferObject) ensureNotDetached() {
	if a.detached {
		panic(a.val.runtime.NewTypeError("ArrayBuffer is detached"))
	}
}

func (a *arrayBufferObject) detach() {
	if a.shared != nil {
		panic(a.val.runtime.NewTypeError("Cannot detach a SharedArrayBuffer"))
	}
	if a.detached {
		return
	}
	a.data = nil
	a.detached = true
	a.val.runtime.logger.WithField("buffer", a.describe()).Debug("array buffer detached")
}

func (a *arrayBufferObject) resize(newLength int) {
	r := a.val.runtime
	if a.shared != nil || !a.resizable {
		panic(r.NewTypeError("Method ArrayBuffer.prototype.resize called on incompatible receiver %s", a.describe()))
	}
	a.ensureNotDetached()
	if newLength < 0 || newLength > a.maxByteLength {
		panic(r.NewRangeError("Invalid array buffer length"))
	}
	old := len(a.data)
	a.data = a.data[:newLength]
	if newLength > old {
		clear(a.data[old:])
	}
	r.logger.WithFields(logrus.Fields{
		"from": old,
		"to":   newLength,
	}).Debug("array buffer resized")
}

func (a *arrayBufferObject) grow(newLength int) {
	r := a.val.runtime
	if a.shared == nil {
		panic(r.NewTypeError("Method SharedArrayBuffer.prototype.grow called on incompatible receiver %s", a.describe()))
	}
	if err := a.shared.Grow(newLength); err != nil {
		if err == errNotGrowable {
			panic(r.NewTypeError("%s", err.Error()))
		}
		panic(r.NewRangeError("%s", err.Error()))
	}
}

func (r *Runtime) newArrayBufferObject(proto *Object, class string) *arrayBufferObject {
	v := &Object{runtime: r}
	a := &arrayBufferObject{}
	a.class = class
	a.val = v
	a.extensible = true
	a.prototype = proto
	v.self = a
	a.init()
	return a
}

func (r *Runtime) checkBufferLength(byteLength, maxByteLength int) {
	if byteLength < 0 || byteLength > maxByteLength || maxByteLength > math.MaxInt32 {
		panic(r.NewRangeError("Invalid array buffer length"))
	}
}

// ArrayBuffer is a Go handle to a buffer object.
type ArrayBuffer struct {
	buf *arrayBufferObject
}

// NewArrayBuffer creates a fixed-length buffer holding a copy of data.
func (r *Runtime) NewArrayBuffer(data []byte) ArrayBuffer {
	a := r.newArrayBufferObject(r.global.ArrayBufferPrototype, classArrayBuffer)
	a.data = make([]byte, len(data))
	copy(a.data, data)
	a.maxByteLength = len(data)
	return ArrayBuffer{buf: a}
}

// NewResizableArrayBuffer creates a zeroed buffer that can be resized up to maxByteLength.
func (r *Runtime) NewResizableArrayBuffer(byteLength, maxByteLength int) ArrayBuffer {
	r.checkBufferLength(byteLength, maxByteLength)
	a := r.newArrayBufferObject(r.global.ArrayBufferPrototype, classArrayBuffer)
	a.data = make([]byte, byteLength, maxByteLength)
	a.resizable = true
	a.maxByteLength = maxByteLength
	return ArrayBuffer{buf: a}
}

// NewSharedArrayBuffer creates a SharedArrayBuffer over a new block. A maxByteLength
// below zero creates a fixed-length buffer.
func (r *Runtime) NewSharedArrayBuffer(byteLength, maxByteLength int) ArrayBuffer {
	growable := maxByteLength >= 0
	if !growable {
		maxByteLength = byteLength
	}
	r.checkBufferLength(byteLength, maxByteLength)
	return r.WrapSharedBlock(NewSharedBlock(byteLength, maxByteLength, growable))
}

// WrapSharedBlock creates a SharedArrayBuffer of this runtime over an existing block.
func (r *Runtime) WrapSharedBlock(block *SharedBlock) ArrayBuffer {
	a := r.newArrayBufferObject(r.global.SharedArrayBufferPrototype, classSharedArrayBuffer)
	a.shared = block
	a.maxByteLength = block.maxLength
	return ArrayBuffer{buf: a}
}

// Object returns the buffer object, nil for the zero ArrayBuffer.
func (b ArrayBuffer) Object() *Object {
	if b.buf == nil {
		return nil
	}
	return b.buf.val
}

// Bytes returns the memory of the buffer. Writes to it are visible through views. It is
// nil once the buffer is detached. For shared buffers the caller is responsible for
// synchronisation.
func (b ArrayBuffer) Bytes() []byte {
	return b.buf.bytes()
}

// Detach detaches the buffer. Panics with a TypeError for shared buffers.
func (b ArrayBuffer) Detach() {
	b.buf.detach()
}

func (b ArrayBuffer) Detached() bool {
	return b.buf.detached
}

func (b ArrayBuffer) ByteLength() int {
	return b.buf.byteLength()
}

func (b ArrayBuffer) MaxByteLength() int {
	return b.buf.maxByteLength
}

// Resize changes the length of a resizable buffer. Panics with a TypeError if the buffer
// is not resizable or detached and with a RangeError if newLength is out of range.
func (b ArrayBuffer) Resize(newLength int) {
	b.buf.resize(newLength)
}

// Grow increases the length of a growable shared buffer.
func (b ArrayBuffer) Grow(newLength int) {
	b.buf.grow(newLength)
}

// SharedBlock returns the block of a shared buffer, nil otherwise.
func (b ArrayBuffer) SharedBlock() *SharedBlock {
	return b.buf.shared
}

// ExportArrayBuffer returns the handle of a buffer object.
func ExportArrayBuffer(o *Object) (ArrayBuffer, bool) {
	if a, ok := o.self.(*arrayBufferObject); ok {
		return ArrayBuffer{buf: a}, true
	}
	return ArrayBuffer{}, false
}

func (r *Runtime) toArrayBuffer(v Value, method string, shared bool) *arrayBufferObject {
	if o, ok := v.(*Object); ok {
		if a, ok := o.self.(*arrayBufferObject); ok && (a.shared != nil) == shared {
			return a
		}
	}
	panic(r.NewTypeError("Method %s called on incompatible receiver %s", method, describeValue(v)))
}

// bufferGetter installs a read-only accessor computed from the receiving buffer.
func (r *Runtime) bufferGetter(proto *baseObject, name string, shared bool, get func(a *arrayBufferObject) Value) {
	class := "ArrayBuffer"
	if shared {
		class = "SharedArrayBuffer"
	}
	method := class + ".prototype." + name
	getter := r.newNativeFunc(r.global.FunctionPrototype, "get "+name, 0, func(call FunctionCall) Value {
		return get(r.toArrayBuffer(call.This, method, shared))
	})
	proto._putAccessor(StrKey(name), getter, nil, false, true)
}

func (r *Runtime) initArrayBuffer() {
	proto := r.newBaseObject(r.global.ObjectPrototype, classObject)
	r.bufferGetter(proto, "byteLength", false, func(a *arrayBufferObject) Value {
		return intToValue(int64(a.byteLength()))
	})
	r.bufferGetter(proto, "maxByteLength", false, func(a *arrayBufferObject) Value {
		if a.detached {
			return intToValue(0)
		}
		return intToValue(int64(a.maxByteLength))
	})
	r.bufferGetter(proto, "resizable", false, func(a *arrayBufferObject) Value {
		return valueBool(a.resizable)
	})
	r.bufferGetter(proto, "detached", false, func(a *arrayBufferObject) Value {
		return valueBool(a.detached)
	})
	proto._putProp(StrKey("resize"), r.newNativeFunc(r.global.FunctionPrototype, "resize", 1, func(call FunctionCall) Value {
		a := r.toArrayBuffer(call.This, "ArrayBuffer.prototype.resize", false)
		a.resize(r.toIndex(r.ToNumber(call.Argument(0))))
		return _undefined
	}), true, false, true)
	proto._putProp(SymKey(SymToStringTag), valueString(classArrayBuffer), false, false, true)
	r.global.ArrayBufferPrototype = proto.val

	sproto := r.newBaseObject(r.global.ObjectPrototype, classObject)
	r.bufferGetter(sproto, "byteLength", true, func(a *arrayBufferObject) Value {
		return intToValue(int64(a.byteLength()))
	})
	r.bufferGetter(sproto, "maxByteLength", true, func(a *arrayBufferObject) Value {
		return intToValue(int64(a.maxByteLength))
	})
	r.bufferGetter(sproto, "growable", true, func(a *arrayBufferObject) Value {
		return valueBool(a.shared.growable)
	})
	sproto._putProp(StrKey("grow"), r.newNativeFunc(r.global.FunctionPrototype, "grow", 1, func(call FunctionCall) Value {
		a := r.toArrayBuffer(call.This, "SharedArrayBuffer.prototype.grow", true)
		a.grow(r.toIndex(r.ToNumber(call.Argument(0))))
		return _undefined
	}), true, false, true)
	sproto._putProp(SymKey(SymToStringTag), valueString(classSharedArrayBuffer), false, false, true)
	r.global.SharedArrayBufferPrototype = sproto.val
}

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// loadRaw reads size bytes at off in native byte order.
func loadRaw(data []byte, off, size int, shared bool) uint64 {
	p := unsafe.Pointer(&data[off])
	if shared {
		switch size {
		case 8:
			return atomic.LoadUint64((*uint64)(p))
		case 4:
			return uint64(atomic.LoadUint32((*uint32)(p)))
		}
		word, shift := subWord(data, off, size)
		return uint64(atomic.LoadUint32(word)>>shift) & (1<<(size*8) - 1)
	}
	switch size {
	case 1:
		return uint64(data[off])
	case 2:
		return uint64(*(*uint16)(p))
	case 4:
		return uint64(*(*uint32)(p))
	}
	return *(*uint64)(p)
}

// storeRaw writes the low size bytes of v at off in native byte order.
func storeRaw(data []byte, off, size int, v uint64, shared bool) {
	p := unsafe.Pointer(&data[off])
	if shared {
		switch size {
		case 8:
			atomic.StoreUint64((*uint64)(p), v)
			return
		case 4:
			atomic.StoreUint32((*uint32)(p), uint32(v))
			return
		}
		word, shift := subWord(data, off, size)
		mask := uint32(1<<(size*8)-1) << shift
		bits := uint32(v) << shift & mask
		for {
			old := atomic.LoadUint32(word)
			if atomic.CompareAndSwapUint32(word, old, old&^mask|bits) {
				return
			}
		}
	}
	switch size {
	case 1:
		data[off] = byte(v)
	case 2:
		*(*uint16)(p) = uint16(v)
	case 4:
		*(*uint32)(p) = uint32(v)
	default:
		*(*uint64)(p) = v
	}
}

// subWord locates a 1 or 2 byte element within its enclosing aligned 32-bit word.
func subWord(data []byte, off, size int) (*uint32, uint) {
	base := off &^ 3
	pos := off - base
	var shift uint
	if littleEndian {
		shift = uint(pos * 8)
	} else {
		shift = uint((4 - size - pos) * 8)
	}
	return (*uint32)(unsafe.Pointer(&data[base])), shift
}
