package objmodel

import (
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedArrayDetachDuringCoercion(t *testing.T) {
	r := New()
	buf := r.NewArrayBuffer(make([]byte, 8))
	view := r.CreateView(buf.Object(), 0, -1, Int32)
	mem := buf.Bytes()

	v := r.NewObject()
	v.Set(StrKey("valueOf"), r.NewNativeFunction("valueOf", 0, func(FunctionCall) Value {
		buf.Detach()
		return intToValue(42)
	}), true)

	assert.True(t, view.Set(IdxKey(0), v, true))
	assert.True(t, buf.Detached())
	assert.Equal(t, make([]byte, 8), mem)
	assert.Equal(t, _undefined, view.Get(IdxKey(0)))
	assert.False(t, view.HasOwnProperty(IdxKey(0)))
	assert.Equal(t, intToValue(0), view.Get(StrKey("length")))
	assert.Empty(t, view.OwnKeys())
}

func TestTypedArrayShrinkDuringCoercion(t *testing.T) {
	r := New()
	buf := r.NewResizableArrayBuffer(8, 16)
	view := r.CreateView(buf.Object(), 0, -1, Int32)

	v := r.NewObject()
	v.Set(StrKey("valueOf"), r.NewNativeFunction("valueOf", 0, func(FunctionCall) Value {
		buf.Resize(4)
		return intToValue(42)
	}), true)

	assert.True(t, view.Set(IdxKey(1), v, true))
	assert.Equal(t, intToValue(1), view.Get(StrKey("length")))
	assert.Equal(t, _undefined, view.Get(IdxKey(1)))
	assert.Equal(t, intToValue(0), view.Get(IdxKey(0)))
}

func TestTypedArrayIndices(t *testing.T) {
	r := New()
	view := r.NewTypedArray(Uint8, 3)
	require.True(t, view.Set(IdxKey(1), intToValue(7), true))
	assert.Equal(t, intToValue(7), view.Get(IdxKey(1)))
	assert.Equal(t, intToValue(7), view.Get(StrKey("1")))

	for _, key := range []string{"3", "-0", "1.5", "-1", "Infinity", "NaN"} {
		k := StrKey(key)
		assert.Equal(t, _undefined, view.Get(k), key)
		assert.False(t, view.HasProperty(k), key)
		assert.True(t, view.Set(k, intToValue(1), true), key)
		assert.False(t, view.HasOwnProperty(k), key)
	}

	// not canonical numeric strings are ordinary keys
	for _, key := range []string{"01", "+1", "1e0"} {
		k := StrKey(key)
		require.True(t, view.Set(k, intToValue(1), true), key)
		assert.True(t, view.HasOwnProperty(k), key)
	}
	view.Set(StrKey("foo"), intToValue(1), true)
	assert.Equal(t, []string{"0", "1", "2", "01", "+1", "1e0", "foo"}, keyNames(view.OwnKeys()))
}

func TestTypedArrayReceiver(t *testing.T) {
	r := New()
	view := r.NewTypedArray(Int16, 2)
	child := r.CreateOrdinary(view)

	require.True(t, child.Set(IdxKey(0), intToValue(5), true))
	assert.True(t, child.HasOwnProperty(IdxKey(0)))
	assert.Equal(t, intToValue(0), view.Get(IdxKey(0)))

	// an invalid index on the view swallows the write
	require.True(t, child.Set(IdxKey(10), intToValue(5), true))
	assert.False(t, child.HasOwnProperty(IdxKey(10)))
}

func TestTypedArrayDefineDelete(t *testing.T) {
	r := New()
	view := r.NewTypedArray(Int32, 2)
	assert.True(t, view.DefineOwnProperty(IdxKey(0), PropertyDescriptor{Value: intToValue(7)}, true))
	assert.Equal(t, intToValue(7), view.Get(IdxKey(0)))
	assert.True(t, view.DefineOwnProperty(IdxKey(0), DataDescriptor(intToValue(8), true, true, true), true))
	assert.Equal(t, intToValue(8), view.Get(IdxKey(0)))

	for _, desc := range []PropertyDescriptor{
		{Configurable: FLAG_FALSE},
		{Enumerable: FLAG_FALSE},
		{Writable: FLAG_FALSE},
		{Getter: r.NewNativeFunction("", 0, func(FunctionCall) Value { return _undefined })},
	} {
		assert.False(t, view.DefineOwnProperty(IdxKey(1), desc, false))
	}
	requireException(t, r, TypeError, func() {
		view.DefineOwnProperty(IdxKey(2), PropertyDescriptor{Value: intToValue(1)}, true)
	})

	desc, ok := view.GetOwnProperty(IdxKey(0))
	require.True(t, ok)
	assert.Equal(t, DataDescriptor(intToValue(8), true, true, true), desc)

	assert.False(t, view.Delete(IdxKey(0), false))
	requireException(t, r, TypeError, func() {
		view.Delete(IdxKey(0), true)
	})
	assert.True(t, view.Delete(IdxKey(5), true))
}

func TestTypedArrayConversions(t *testing.T) {
	r := New()
	tests := []struct {
		t    ElementType
		in   Value
		want Value
	}{
		{Int8, intToValue(200), intToValue(-56)},
		{Uint8, intToValue(-1), intToValue(255)},
		{Uint8Clamped, intToValue(300), intToValue(255)},
		{Uint8Clamped, intToValue(-5), intToValue(0)},
		{Uint8Clamped, floatToValue(2.5), intToValue(2)},
		{Int16, intToValue(40000), intToValue(-25536)},
		{Uint16, intToValue(-1), intToValue(65535)},
		{Int32, floatToValue(1.9), intToValue(1)},
		{Uint32, intToValue(-1), intToValue(4294967295)},
		{Float32, floatToValue(0.1), floatToValue(float64(float32(0.1)))},
		{Float64, valueString("1.25"), floatToValue(1.25)},
		{Int32, valueString("abc"), intToValue(0)},
	}
	for _, tc := range tests {
		view := r.NewTypedArray(tc.t, 1)
		view.Set(IdxKey(0), tc.in, true)
		got := view.Get(IdxKey(0))
		assert.True(t, tc.want.SameAs(got), "%s(%v): want %v, got %v", tc.t, tc.in, tc.want, got)
	}

	view := r.NewTypedArray(Float64, 1)
	view.Set(IdxKey(0), _NaN, true)
	assert.True(t, IsNaN(view.Get(IdxKey(0))))
}

func TestBigIntTypedArray(t *testing.T) {
	r := New()
	view := r.NewTypedArray(BigInt64, 2)
	view.Set(IdxKey(0), NewBigInt(big.NewInt(-1)), true)
	assert.Equal(t, "-1", view.Get(IdxKey(0)).String())
	view.Set(IdxKey(1), valueString("0x10"), true)
	assert.Equal(t, "16", view.Get(IdxKey(1)).String())
	assert.Equal(t, []int64{-1, 16}, view.Export())

	requireException(t, r, TypeError, func() {
		view.Set(IdxKey(0), intToValue(1), true)
	})

	uview := r.NewTypedArray(BigUint64, 1)
	uview.Set(IdxKey(0), NewBigInt(big.NewInt(-1)), true)
	assert.Equal(t, "18446744073709551615", uview.Get(IdxKey(0)).String())

	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	huge.Add(huge, big.NewInt(3))
	uview.Set(IdxKey(0), NewBigInt(huge), true)
	assert.Equal(t, []uint64{3}, uview.Export())

	requireException(t, r, TypeError, func() {
		r.NewTypedArray(Int32, 1).Set(IdxKey(0), NewBigInt(big.NewInt(1)), true)
	})
}

func TestTypedArrayExport(t *testing.T) {
	r := New()
	view := r.NewTypedArray(Float32, 2)
	view.Set(IdxKey(1), floatToValue(1.5), true)
	assert.Equal(t, []float32{0, 1.5}, view.Export())

	buf := r.NewArrayBuffer([]byte{1, 2, 3, 4})
	u8 := r.CreateView(buf.Object(), 1, 2, Uint8)
	assert.Equal(t, []uint8{2, 3}, u8.Export())
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Object().Export())
}

func TestCreateViewErrors(t *testing.T) {
	r := New()
	buf := r.NewArrayBuffer(make([]byte, 10))
	requireException(t, r, RangeError, func() {
		r.CreateView(buf.Object(), 2, 1, Int32)
	})
	requireException(t, r, RangeError, func() {
		r.CreateView(buf.Object(), -4, 1, Int32)
	})
	requireException(t, r, RangeError, func() {
		r.CreateView(buf.Object(), 4, 2, Int32)
	})
	requireException(t, r, RangeError, func() {
		r.CreateView(buf.Object(), 0, -1, Int32)
	})
	requireException(t, r, RangeError, func() {
		r.CreateView(buf.Object(), 12, -1, Uint8)
	})
	requireException(t, r, TypeError, func() {
		r.CreateView(r.NewObject(), 0, 1, Uint8)
	})
	requireException(t, r, RangeError, func() {
		r.NewTypedArray(Float64, -1)
	})

	view := r.CreateView(buf.Object(), 8, -1, Uint16)
	assert.Equal(t, intToValue(1), view.Get(StrKey("length")))

	buf.Detach()
	requireException(t, r, TypeError, func() {
		r.CreateView(buf.Object(), 0, 1, Uint8)
	})
}

func TestTypedArrayLengthTracking(t *testing.T) {
	r := New()
	buf := r.NewResizableArrayBuffer(8, 16)
	tracking := r.CreateView(buf.Object(), 0, -1, Int16)
	fixed := r.CreateView(buf.Object(), 4, 2, Int16)
	length := func(o *Object) int64 {
		return o.Get(StrKey("length")).ToInteger()
	}
	assert.Equal(t, int64(4), length(tracking))
	assert.Equal(t, int64(2), length(fixed))

	fixed.Set(IdxKey(1), intToValue(9), true)
	assert.Equal(t, intToValue(9), tracking.Get(IdxKey(3)))

	buf.Resize(16)
	assert.Equal(t, int64(8), length(tracking))
	assert.Equal(t, intToValue(0), tracking.Get(IdxKey(7)))

	buf.Resize(6)
	assert.Equal(t, int64(3), length(tracking))
	assert.Equal(t, int64(0), length(fixed))
	assert.Equal(t, intToValue(0), fixed.Get(StrKey("byteOffset")))
	assert.Equal(t, intToValue(0), fixed.Get(StrKey("byteLength")))
	assert.Equal(t, _undefined, fixed.Get(IdxKey(0)))

	buf.Resize(8)
	assert.Equal(t, int64(2), length(fixed))
	assert.Equal(t, intToValue(4), fixed.Get(StrKey("byteOffset")))
	// grown bytes are zeroed
	assert.Equal(t, intToValue(0), fixed.Get(IdxKey(1)))
}

func TestTypedArrayPrototypes(t *testing.T) {
	r := New()
	view := r.NewTypedArray(Int16, 3)
	proto := view.GetPrototypeOf()
	require.NotNil(t, proto)
	assert.Same(t, r.TypedArrayPrototype(), proto.GetPrototypeOf())
	assert.Equal(t, intToValue(2), view.Get(StrKey("BYTES_PER_ELEMENT")))
	assert.Equal(t, valueString("Int16Array"), view.Get(SymKey(SymToStringTag)))
	assert.Equal(t, "[object Int16Array]", view.String())
	assert.Equal(t, intToValue(6), view.Get(StrKey("byteLength")))

	buf, ok := view.Get(StrKey("buffer")).(*Object)
	require.True(t, ok)
	assert.Equal(t, KindArrayBuffer, buf.Kind())
	assert.Same(t, r.ArrayBufferPrototype(), buf.GetPrototypeOf())

	other := r.NewTypedArray(Int16, 1)
	assert.Same(t, proto, other.GetPrototypeOf())
	assert.NotSame(t, proto, r.NewTypedArray(Int8, 1).GetPrototypeOf())

	getter, _ := r.TypedArrayPrototype().GetOwnProperty(StrKey("length"))
	fn, ok := AssertFunction(getter.Getter)
	require.True(t, ok)
	_, err := fn(r.NewObject())
	var ex *Exception
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, TypeError, ex.Kind())
}

func TestElementTypeByName(t *testing.T) {
	for i := 0; i < numElementTypes; i++ {
		et := ElementType(i)
		got, ok := ElementTypeByName(et.String())
		require.True(t, ok)
		assert.Equal(t, et, got)
	}
	got, ok := ElementTypeByName("Float32")
	assert.True(t, ok)
	assert.Equal(t, Float32, got)
	_, ok = ElementTypeByName("Float16")
	assert.False(t, ok)
	assert.Equal(t, 8, BigUint64.Size())
}

func TestArrayBufferGetters(t *testing.T) {
	r := New()
	buf := r.NewResizableArrayBuffer(4, 8)
	o := buf.Object()
	assert.Equal(t, intToValue(4), o.Get(StrKey("byteLength")))
	assert.Equal(t, intToValue(8), o.Get(StrKey("maxByteLength")))
	assert.Equal(t, valueTrue, o.Get(StrKey("resizable")))
	assert.Equal(t, valueFalse, o.Get(StrKey("detached")))

	resize, ok := AssertFunction(o.Get(StrKey("resize")))
	require.True(t, ok)
	_, err := resize(o, intToValue(6))
	require.NoError(t, err)
	assert.Equal(t, 6, buf.ByteLength())
	_, err = resize(o, intToValue(9))
	var ex *Exception
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, RangeError, ex.Kind())

	buf.Detach()
	assert.Equal(t, valueTrue, o.Get(StrKey("detached")))
	assert.Equal(t, intToValue(0), o.Get(StrKey("byteLength")))
	assert.Equal(t, intToValue(0), o.Get(StrKey("maxByteLength")))
	requireException(t, r, TypeError, func() {
		buf.Resize(2)
	})
	// detaching twice is a no-op
	buf.Detach()

	fixed := r.NewArrayBuffer([]byte{1})
	assert.Equal(t, valueFalse, fixed.Object().Get(StrKey("resizable")))
	requireException(t, r, TypeError, func() {
		fixed.Resize(1)
	})
	requireException(t, r, RangeError, func() {
		r.NewResizableArrayBuffer(4, 2)
	})
}

func TestSharedArrayBuffer(t *testing.T) {
	r := New()
	buf := r.NewSharedArrayBuffer(4, 16)
	o := buf.Object()
	assert.Equal(t, valueTrue, o.Get(StrKey("growable")))
	assert.Equal(t, valueString("SharedArrayBuffer"), o.Get(SymKey(SymToStringTag)))
	assert.Equal(t, _undefined, o.Get(StrKey("detached")))
	requireException(t, r, TypeError, func() {
		buf.Detach()
	})

	view := r.CreateView(o, 0, -1, Uint8)
	assert.Equal(t, intToValue(4), view.Get(StrKey("length")))
	buf.Grow(12)
	assert.Equal(t, intToValue(12), view.Get(StrKey("length")))
	ex := requireException(t, r, RangeError, func() {
		buf.Grow(8)
	})
	assert.Equal(t, "RangeError: "+errShrinkShared.Error(), ex.Error())
	ex = requireException(t, r, RangeError, func() {
		buf.Grow(17)
	})
	assert.Equal(t, "RangeError: "+errInvalidLength.Error(), ex.Error())

	fixed := r.NewSharedArrayBuffer(4, -1)
	assert.Equal(t, valueFalse, fixed.Object().Get(StrKey("growable")))
	ex = requireException(t, r, TypeError, func() {
		fixed.Grow(4)
	})
	assert.Equal(t, "TypeError: "+errNotGrowable.Error(), ex.Error())
	assert.Equal(t, errNotGrowable, fixed.SharedBlock().Grow(4))
}

func TestSharedBlockConcurrentGrow(t *testing.T) {
	block := NewSharedBlock(0, 1024, true)
	var wg sync.WaitGroup
	errs := make([]error, 64)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = block.Grow((i + 1) * 16)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1024, block.ByteLength())
	for _, err := range errs {
		if err != nil {
			assert.Equal(t, errShrinkShared, err)
		}
	}
	assert.Equal(t, errInvalidLength, block.Grow(1025))
}

func TestSharedBlockAcrossRuntimes(t *testing.T) {
	block := NewSharedBlock(16, 16, false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := New()
			view := r.CreateView(r.WrapSharedBlock(block).Object(), 0, -1, Uint8)
			u16 := r.CreateView(r.WrapSharedBlock(block).Object(), 8, -1, Uint16)
			for n := 0; n < 1000; n++ {
				view.Set(IdxKey(uint32(i)), intToValue(int64(i+1)), false)
				if i < 4 {
					u16.Set(IdxKey(uint32(i)), intToValue(int64(1000*(i+1))), false)
				}
			}
		}(i)
	}
	wg.Wait()

	r := New()
	view := r.CreateView(r.WrapSharedBlock(block).Object(), 0, 8, Uint8)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8}, view.Export())
	u16 := r.CreateView(r.WrapSharedBlock(block).Object(), 8, -1, Uint16)
	assert.Equal(t, []uint16{1000, 2000, 3000, 4000}, u16.Export())
}

func TestSharedBlockWideAtomics(t *testing.T) {
	block := NewSharedBlock(16, 16, false)
	r := New()
	buf := r.WrapSharedBlock(block)
	f64 := r.CreateView(buf.Object(), 0, 1, Float64)
	i32 := r.CreateView(buf.Object(), 8, 2, Int32)
	f64.Set(IdxKey(0), floatToValue(math.Pi), true)
	i32.Set(IdxKey(1), intToValue(-7), true)
	assert.Equal(t, floatToValue(math.Pi), f64.Get(IdxKey(0)))
	assert.Equal(t, intToValue(-7), i32.Get(IdxKey(1)))
	assert.Equal(t, intToValue(0), i32.Get(IdxKey(0)))
}
