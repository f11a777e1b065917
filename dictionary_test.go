package objmodel

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallDictConfig() Config {
	c := DefaultConfig()
	c.DictionaryThreshold = 8
	c.DictionaryReverseThreshold = 4
	return c
}

func TestDictionaryThreshold(t *testing.T) {
	r := New(WithConfig(smallDictConfig()))
	o := r.NewObject()
	o.DefineDataProperty(StrKey("ro"), intToValue(-1), FLAG_FALSE, FLAG_FALSE, FLAG_FALSE)
	for i := 0; i < 7; i++ {
		o.Set(StrKey("p"+strconv.Itoa(i)), intToValue(int64(i)), true)
	}
	assert.Equal(t, KindOrdinary, o.Kind())

	o.Set(StrKey("p7"), intToValue(7), true)
	require.Equal(t, KindDictionary, o.Kind())

	// descriptors and creation order survive the switch
	desc, ok := o.GetOwnProperty(StrKey("ro"))
	require.True(t, ok)
	assert.Equal(t, DataDescriptor(intToValue(-1), false, false, false), desc)
	keys := keyNames(o.OwnKeys())
	assert.Equal(t, "ro", keys[0])
	assert.Equal(t, "p7", keys[len(keys)-1])
	assert.False(t, o.Set(StrKey("ro"), intToValue(1), false))
	assert.Equal(t, intToValue(3), o.Get(StrKey("p3")))
}

func TestDictionaryRevertsAfterShrink(t *testing.T) {
	r := New(WithConfig(smallDictConfig()))
	o := r.NewObject()
	for i := 0; i < 10; i++ {
		o.Set(StrKey("p"+strconv.Itoa(i)), intToValue(int64(i)), true)
	}
	require.Equal(t, KindDictionary, o.Kind())
	for i := 0; i < 7; i++ {
		require.True(t, o.Delete(StrKey("p"+strconv.Itoa(i)), true))
	}
	assert.Equal(t, KindDictionary, o.Kind())
	assert.Equal(t, []string{"p7", "p8", "p9"}, o.Keys())

	o.Set(StrKey("q"), intToValue(1), true)
	assert.Equal(t, KindOrdinary, o.Kind())
	assert.Equal(t, []string{"p7", "p8", "p9", "q"}, o.Keys())
	assert.Equal(t, intToValue(8), o.Get(StrKey("p8")))
}

func TestDictionaryRevertsOnRedefinition(t *testing.T) {
	r := New()
	o := r.CreateDictionary(r.ObjectPrototype())
	require.Equal(t, KindDictionary, o.Kind())
	assert.Same(t, r.ObjectPrototype(), o.GetPrototypeOf())
	o.Set(StrKey("a"), intToValue(1), true)
	o.Set(StrKey("b"), intToValue(2), true)

	// a value update keeps the table
	o.Set(StrKey("a"), intToValue(3), true)
	assert.Equal(t, KindDictionary, o.Kind())

	require.True(t, o.DefineOwnProperty(StrKey("a"), PropertyDescriptor{Enumerable: FLAG_FALSE}, true))
	assert.Equal(t, KindOrdinary, o.Kind())
	desc, _ := o.GetOwnProperty(StrKey("a"))
	assert.Equal(t, DataDescriptor(intToValue(3), true, false, true), desc)
	assert.Equal(t, []string{"b"}, o.Keys())
	assert.Equal(t, []string{"a", "b"}, keyNames(o.OwnKeys()))
}

func TestDictionaryOnIndexKey(t *testing.T) {
	r := New()
	o := r.NewObject()
	o.Set(IdxKey(3), valueString("x"), true)
	assert.Equal(t, KindDictionary, o.Kind())
	o.Set(StrKey("name"), valueString("n"), true)
	o.Set(IdxKey(1), valueString("y"), true)
	assert.Equal(t, []string{"1", "3", "name"}, o.Keys())

	// only the first property triggers the switch
	o2 := r.NewObject()
	o2.Set(StrKey("name"), valueString("n"), true)
	o2.Set(IdxKey(0), valueString("x"), true)
	assert.Equal(t, KindOrdinary, o2.Kind())

	c := DefaultConfig()
	c.DictionaryOnIndexKey = false
	r = New(WithConfig(c))
	o3 := r.NewObject()
	o3.Set(IdxKey(0), valueString("x"), true)
	assert.Equal(t, KindOrdinary, o3.Kind())
}

func TestDictionaryOnlyPlainObjects(t *testing.T) {
	r := New(WithConfig(smallDictConfig()))
	fn := r.NewNativeFunction("f", 0, func(FunctionCall) Value { return _undefined })
	arr := r.NewArray()
	for i := 0; i < 20; i++ {
		k := StrKey("p" + strconv.Itoa(i))
		fn.Set(k, intToValue(int64(i)), true)
		arr.Set(k, intToValue(int64(i)), true)
	}
	assert.Equal(t, KindFunction, fn.Kind())
	assert.Equal(t, KindArray, arr.Kind())
	assert.Equal(t, intToValue(19), arr.Get(StrKey("p19")))
}

func TestDictionaryIntegrity(t *testing.T) {
	r := New()
	o := r.CreateDictionary(nil)
	o.Set(StrKey("a"), intToValue(1), true)
	require.True(t, o.Freeze(true))
	assert.True(t, o.IsFrozen())
	assert.False(t, o.Set(StrKey("a"), intToValue(2), false))
	assert.False(t, o.Set(StrKey("b"), intToValue(2), false))
	assert.Equal(t, intToValue(1), o.Get(StrKey("a")))
}

func TestPropertyTableCompaction(t *testing.T) {
	tbl := newPropertyTable(0)
	for i := 0; i < 40; i++ {
		tbl.put(StrKey(strconv.Itoa(i)), intToValue(int64(i)), flagWritable)
	}
	for i := 0; i < 30; i++ {
		tbl.remove(StrKey(strconv.Itoa(i)))
	}
	assert.Equal(t, 10, tbl.len())
	assert.Less(t, len(tbl.entries), 40)
	var keys []string
	tbl.forEach(func(key PropertyKey, v Value, flags propFlags) {
		keys = append(keys, key.String())
	})
	assert.Equal(t, []string{"30", "31", "32", "33", "34", "35", "36", "37", "38", "39"}, keys)
	v, _, ok := tbl.lookup(StrKey("35"))
	require.True(t, ok)
	assert.Equal(t, intToValue(35), v)
}

func TestDictionaryThresholdKeepsIntrinsics(t *testing.T) {
	c := DefaultConfig()
	c.DictionaryThreshold = 2
	c.DictionaryReverseThreshold = 1
	require.NoError(t, c.Validate())
	r := New(WithConfig(c))

	abProto := r.ArrayBufferPrototype()
	for _, name := range []string{"byteLength", "maxByteLength", "resizable", "detached", "resize"} {
		assert.True(t, abProto.HasOwnProperty(StrKey(name)), name)
	}
	for _, name := range []string{"buffer", "byteLength", "byteOffset", "length"} {
		assert.True(t, r.TypedArrayPrototype().HasOwnProperty(StrKey(name)), name)
	}

	buf := r.NewResizableArrayBuffer(4, 8)
	view := r.CreateView(buf.Object(), 0, -1, Uint8)
	assert.Equal(t, valueFalse, buf.Object().Get(StrKey("detached")))
	assert.Equal(t, intToValue(4), view.Get(StrKey("length")))
	assert.Equal(t, "[object Object]", r.NewObject().String())

	// user additions after construction still switch the prototype, and its accessors keep working
	abProto.Set(StrKey("extra"), intToValue(1), true)
	assert.Equal(t, KindDictionary, abProto.Kind())
	buf.Resize(8)
	assert.Equal(t, intToValue(8), buf.Object().Get(StrKey("byteLength")))
}
