package objmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(r *Runtime, traps map[string]func(FunctionCall) Value) *Object {
	h := r.NewObject()
	for name, f := range traps {
		h.Set(StrKey(name), r.NewNativeFunction(name, 0, f), true)
	}
	return h
}

func TestProxyForwardsWithoutTraps(t *testing.T) {
	r := New()
	proto := r.NewObject()
	target := r.CreateOrdinary(proto)
	proxy := r.CreateProxy(target, r.NewObject())

	assert.Equal(t, KindProxy, proxy.Kind())
	assert.Same(t, proto, proxy.GetPrototypeOf())

	require.True(t, proxy.Set(StrKey("x"), intToValue(1), true))
	assert.Equal(t, intToValue(1), target.Get(StrKey("x")))
	assert.Equal(t, intToValue(1), proxy.Get(StrKey("x")))
	assert.True(t, proxy.HasProperty(StrKey("x")))
	assert.True(t, proxy.HasOwnProperty(StrKey("x")))
	assert.Equal(t, []string{"x"}, keyNames(proxy.OwnKeys()))

	require.True(t, proxy.DefineDataProperty(StrKey("y"), intToValue(2), FLAG_TRUE, FLAG_FALSE, FLAG_TRUE))
	desc, ok := target.GetOwnProperty(StrKey("y"))
	require.True(t, ok)
	assert.Equal(t, FLAG_FALSE, desc.Enumerable)

	require.True(t, proxy.Delete(StrKey("x"), true))
	assert.False(t, target.HasOwnProperty(StrKey("x")))

	require.True(t, proxy.PreventExtensions(true))
	assert.False(t, target.IsExtensible())
	assert.False(t, proxy.IsExtensible())
}

func TestProxyGetInvariant(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_FALSE, FLAG_TRUE, FLAG_FALSE)
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"get": func(FunctionCall) Value {
			return intToValue(2)
		},
	}))

	ex := requireException(t, r, TypeError, func() {
		proxy.Get(StrKey("x"))
	})
	assert.Contains(t, ex.Error(), "'get' on proxy")
	assert.Equal(t, intToValue(2), proxy.Get(StrKey("other")))
}

func TestProxyGetReceiver(t *testing.T) {
	r := New()
	var receiver Value
	proxy := r.CreateProxy(r.NewObject(), newHandler(r, map[string]func(FunctionCall) Value{
		"get": func(call FunctionCall) Value {
			receiver = call.Argument(2)
			return call.Argument(1)
		},
		"set": func(call FunctionCall) Value {
			receiver = call.Argument(3)
			return valueTrue
		},
	}))
	child := r.CreateOrdinary(proxy)

	assert.Equal(t, valueString("x"), child.Get(StrKey("x")))
	assert.Same(t, child, receiver)

	require.True(t, child.Set(StrKey("y"), intToValue(1), true))
	assert.Same(t, child, receiver)
	assert.False(t, child.HasOwnProperty(StrKey("y")))
}

func TestProxySetInvariant(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_FALSE, FLAG_TRUE, FLAG_FALSE)
	setResult := valueTrue
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"set": func(FunctionCall) Value {
			return setResult
		},
	}))

	requireException(t, r, TypeError, func() {
		proxy.Set(StrKey("x"), intToValue(2), false)
	})
	// the same value is allowed
	assert.True(t, proxy.Set(StrKey("x"), intToValue(1), true))

	setResult = valueFalse
	assert.False(t, proxy.Set(StrKey("y"), intToValue(1), false))
	ex := requireException(t, r, TypeError, func() {
		proxy.Set(StrKey("y"), intToValue(1), true)
	})
	assert.Contains(t, ex.Error(), "trap returned falsish")
}

func TestProxyHasAndDeleteInvariants(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.DefineDataProperty(StrKey("fixed"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_FALSE)
	target.Set(StrKey("loose"), intToValue(1), true)
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"has": func(FunctionCall) Value {
			return valueFalse
		},
		"deleteProperty": func(FunctionCall) Value {
			return valueTrue
		},
	}))

	assert.False(t, proxy.HasProperty(StrKey("loose")))
	ex := requireException(t, r, TypeError, func() {
		proxy.HasProperty(StrKey("fixed"))
	})
	assert.Contains(t, ex.Error(), "'has' on proxy")

	assert.True(t, proxy.Delete(StrKey("loose"), true))
	assert.True(t, target.HasOwnProperty(StrKey("loose")))
	requireException(t, r, TypeError, func() {
		proxy.Delete(StrKey("fixed"), false)
	})

	target.PreventExtensions(true)
	requireException(t, r, TypeError, func() {
		proxy.HasProperty(StrKey("loose"))
	})
	requireException(t, r, TypeError, func() {
		proxy.Delete(StrKey("loose"), false)
	})
}

func TestProxyGetOwnPropertyInvariants(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.DefineDataProperty(StrKey("fixed"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_FALSE)
	var result Value = _undefined
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"getOwnPropertyDescriptor": func(FunctionCall) Value {
			return result
		},
	}))

	_, ok := proxy.GetOwnProperty(StrKey("missing"))
	assert.False(t, ok)
	requireException(t, r, TypeError, func() {
		proxy.GetOwnProperty(StrKey("fixed"))
	})

	// reporting non-configurability for a property the target does not have
	result = r.fromPropertyDescriptor(DataDescriptor(intToValue(1), true, true, false))
	ex := requireException(t, r, TypeError, func() {
		proxy.GetOwnProperty(StrKey("missing"))
	})
	assert.Contains(t, ex.Error(), "non-configurability")

	result = r.fromPropertyDescriptor(DataDescriptor(intToValue(5), true, true, true))
	desc, ok := proxy.GetOwnProperty(StrKey("missing"))
	require.True(t, ok)
	assert.Equal(t, intToValue(5), desc.Value)

	result = intToValue(1)
	requireException(t, r, TypeError, func() {
		proxy.GetOwnProperty(StrKey("missing"))
	})
}

func TestProxyDefinePropertyInvariants(t *testing.T) {
	r := New()
	target := r.NewObject()
	result := valueTrue
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"defineProperty": func(FunctionCall) Value {
			return result
		},
	}))

	assert.True(t, proxy.DefineOwnProperty(StrKey("x"), PropertyDescriptor{Value: intToValue(1)}, true))
	assert.False(t, target.HasOwnProperty(StrKey("x")))
	requireException(t, r, TypeError, func() {
		proxy.DefineOwnProperty(StrKey("x"), DataDescriptor(intToValue(1), true, true, false), true)
	})

	result = valueFalse
	assert.False(t, proxy.DefineOwnProperty(StrKey("x"), PropertyDescriptor{Value: intToValue(1)}, false))
	requireException(t, r, TypeError, func() {
		proxy.DefineOwnProperty(StrKey("x"), PropertyDescriptor{Value: intToValue(1)}, true)
	})

	result = valueTrue
	target.PreventExtensions(true)
	requireException(t, r, TypeError, func() {
		proxy.DefineOwnProperty(StrKey("y"), PropertyDescriptor{Value: intToValue(1)}, false)
	})
}

func TestProxyDefinePropertyForwardsPartialDescriptor(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.Set(StrKey("x"), intToValue(1), true)
	target.DefineDataProperty(StrKey("acc"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_TRUE)
	var seen [][]string
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"defineProperty": func(call FunctionCall) Value {
			desc := call.Argument(2).(*Object)
			seen = append(seen, desc.Keys())
			key := r.ToPropertyKey(call.Argument(1))
			return valueBool(call.Argument(0).(*Object).DefineOwnProperty(key, r.ToPropertyDescriptor(desc), false))
		},
	}))

	require.True(t, proxy.Set(StrKey("x"), intToValue(2), true))
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"value"}, seen[0])
	desc, ok := target.GetOwnProperty(StrKey("x"))
	require.True(t, ok)
	assert.Equal(t, DataDescriptor(intToValue(2), true, true, true), desc)

	// a generic descriptor stays generic and does not turn the data property into an accessor
	require.True(t, proxy.DefineOwnProperty(StrKey("acc"), PropertyDescriptor{Configurable: FLAG_FALSE}, true))
	assert.Equal(t, []string{"configurable"}, seen[1])
	desc, ok = target.GetOwnProperty(StrKey("acc"))
	require.True(t, ok)
	assert.Equal(t, DataDescriptor(intToValue(1), true, true, false), desc)

	// complete descriptors are passed through unchanged
	require.True(t, proxy.DefineOwnProperty(StrKey("y"), DataDescriptor(intToValue(3), false, true, false), true))
	assert.Equal(t, []string{"value", "writable", "enumerable", "configurable"}, seen[2])
}

func TestProxyOwnKeysInvariants(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.Set(StrKey("a"), intToValue(1), true)
	var keys []Value
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"ownKeys": func(FunctionCall) Value {
			return r.CreateArray(r.ArrayPrototype(), keys)
		},
	}))

	keys = []Value{valueString("b"), valueString("a")}
	assert.Equal(t, []string{"b", "a"}, keyNames(proxy.OwnKeys()))

	// a configurable key of an extensible target may be omitted
	keys = nil
	assert.Empty(t, proxy.OwnKeys())

	keys = []Value{valueString("a"), valueString("a")}
	ex := requireException(t, r, TypeError, func() {
		proxy.OwnKeys()
	})
	assert.Contains(t, ex.Error(), "duplicate")

	keys = []Value{intToValue(1)}
	requireException(t, r, TypeError, func() {
		proxy.OwnKeys()
	})

	target.DefineDataProperty(StrKey("fixed"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_FALSE)
	keys = []Value{valueString("a")}
	ex = requireException(t, r, TypeError, func() {
		proxy.OwnKeys()
	})
	assert.Contains(t, ex.Error(), "non-configurable 'fixed'")

	target.PreventExtensions(true)
	keys = []Value{valueString("a"), valueString("fixed"), valueString("extra")}
	ex = requireException(t, r, TypeError, func() {
		proxy.OwnKeys()
	})
	assert.Contains(t, ex.Error(), "extra keys")

	keys = []Value{valueString("fixed")}
	ex = requireException(t, r, TypeError, func() {
		proxy.OwnKeys()
	})
	assert.Contains(t, ex.Error(), "did not include 'a'")

	keys = []Value{valueString("fixed"), valueString("a")}
	assert.Equal(t, []string{"fixed", "a"}, keyNames(proxy.OwnKeys()))
}

func TestProxyPrototypeInvariants(t *testing.T) {
	r := New()
	target := r.NewObject()
	other := r.NewObject()
	proxy := r.CreateProxy(target, newHandler(r, map[string]func(FunctionCall) Value{
		"getPrototypeOf": func(FunctionCall) Value {
			return other
		},
		"isExtensible": func(FunctionCall) Value {
			return valueTrue
		},
	}))

	assert.Same(t, other, proxy.GetPrototypeOf())
	assert.True(t, proxy.IsExtensible())

	target.PreventExtensions(true)
	requireException(t, r, TypeError, func() {
		proxy.GetPrototypeOf()
	})
	requireException(t, r, TypeError, func() {
		proxy.IsExtensible()
	})
}

func TestProxyRevoked(t *testing.T) {
	r := New()
	target := r.NewObject()
	p := r.NewRevocableProxy(target, r.NewObject())
	proxy := p.Object()
	proxy.Set(StrKey("x"), intToValue(1), true)

	p.Revoke()
	assert.True(t, p.Revoked())
	assert.Nil(t, p.Target())
	assert.Nil(t, p.Handler())
	// revoking twice is a no-op
	p.Revoke()

	ops := map[string]func(){
		"get":                      func() { proxy.Get(StrKey("x")) },
		"set":                      func() { proxy.Set(StrKey("x"), intToValue(2), false) },
		"has":                      func() { proxy.HasProperty(StrKey("x")) },
		"deleteProperty":           func() { proxy.Delete(StrKey("x"), false) },
		"ownKeys":                  func() { proxy.OwnKeys() },
		"getOwnPropertyDescriptor": func() { proxy.GetOwnProperty(StrKey("x")) },
		"defineProperty":           func() { proxy.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_TRUE) },
		"getPrototypeOf":           func() { proxy.GetPrototypeOf() },
		"setPrototypeOf":           func() { proxy.SetPrototypeOf(nil, false) },
		"isExtensible":             func() { proxy.IsExtensible() },
		"preventExtensions":        func() { proxy.PreventExtensions(false) },
	}
	for trap, op := range ops {
		t.Run(trap, func(t *testing.T) {
			ex := requireException(t, r, TypeError, op)
			assert.Equal(t, "TypeError: Cannot perform '"+trap+"' on a proxy that has been revoked", ex.Error())
		})
	}
	assert.Equal(t, intToValue(1), target.Get(StrKey("x")))
}

func TestProxyCreateErrors(t *testing.T) {
	r := New()
	requireException(t, r, TypeError, func() {
		r.CreateProxy(nil, r.NewObject())
	})
	requireException(t, r, TypeError, func() {
		r.CreateProxy(r.NewObject(), nil)
	})
}

func TestNativeProxy(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.Set(StrKey("a"), intToValue(1), true)
	sym := NewSymbol("tag")
	var defined []string
	p := r.NewProxy(target, &ProxyTrapConfig{
		Get: func(target *Object, key PropertyKey, receiver Value) Value {
			if key.IsSymbol() {
				return valueString("symbol")
			}
			return valueString("native:" + key.Name())
		},
		Has: func(target *Object, key PropertyKey) bool {
			return key.Name() == "magic" || target.HasProperty(key)
		},
		OwnKeys: func(target *Object) []PropertyKey {
			return []PropertyKey{StrKey("b"), StrKey("a"), SymKey(sym)}
		},
		GetOwnPropertyDescriptor: func(target *Object, key PropertyKey) (PropertyDescriptor, bool) {
			if key.Name() == "b" {
				return DataDescriptor(intToValue(2), true, true, true), true
			}
			return target.GetOwnProperty(key)
		},
		DefineProperty: func(target *Object, key PropertyKey, desc PropertyDescriptor) bool {
			defined = append(defined, key.Name())
			return target.DefineOwnProperty(key, desc, false)
		},
	})
	proxy := p.Object()

	assert.Equal(t, valueString("native:a"), proxy.Get(StrKey("a")))
	assert.Equal(t, valueString("symbol"), proxy.Get(SymKey(sym)))
	assert.True(t, proxy.HasProperty(StrKey("magic")))
	assert.False(t, proxy.HasProperty(StrKey("nothing")))
	assert.Equal(t, []string{"b", "a", "Symbol(tag)"}, keyNames(proxy.OwnKeys()))

	desc, ok := proxy.GetOwnProperty(StrKey("b"))
	require.True(t, ok)
	assert.Equal(t, intToValue(2), desc.Value)
	assert.Equal(t, FLAG_TRUE, desc.Writable)

	require.True(t, proxy.Set(StrKey("c"), intToValue(3), true))
	assert.Equal(t, []string{"c"}, defined)
	assert.Equal(t, intToValue(3), target.Get(StrKey("c")))

	exported, ok := ExportProxy(proxy)
	require.True(t, ok)
	assert.Same(t, target, exported.Target())
	_, ok = ExportProxy(target)
	assert.False(t, ok)
}

func TestNativeProxyValidated(t *testing.T) {
	r := New()
	target := r.NewObject()
	target.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_FALSE, FLAG_TRUE, FLAG_FALSE)
	cfg := &ProxyTrapConfig{
		Get: func(*Object, PropertyKey, Value) Value {
			return intToValue(2)
		},
		OwnKeys: func(*Object) []PropertyKey {
			return nil
		},
	}

	checked := r.NewProxy(target, cfg).Object()
	requireException(t, r, TypeError, func() {
		checked.Get(StrKey("x"))
	})
	requireException(t, r, TypeError, func() {
		checked.OwnKeys()
	})

	trusted := r.NewTrustedProxy(target, cfg).Object()
	assert.Equal(t, intToValue(2), trusted.Get(StrKey("x")))
	assert.Empty(t, trusted.OwnKeys())
}

func TestProxyApply(t *testing.T) {
	r := New()
	target := r.NewNativeFunction("sum", 2, func(call FunctionCall) Value {
		return intToValue(call.Argument(0).ToInteger() + call.Argument(1).ToInteger())
	})

	plain := r.CreateProxy(target, r.NewObject())
	assert.Equal(t, classFunction, plain.ClassName())
	fn, ok := AssertFunction(plain)
	require.True(t, ok)
	res, err := fn(_undefined, intToValue(1), intToValue(2))
	require.NoError(t, err)
	assert.Equal(t, intToValue(3), res)

	var gotThis Value
	var gotArgs []Value
	traced := r.NewProxy(target, &ProxyTrapConfig{
		Apply: func(target *Object, this Value, args []Value) Value {
			gotThis = this
			gotArgs = args
			call, _ := AssertFunction(target)
			v, err := call(this, args...)
			if err != nil {
				panic(err)
			}
			return intToValue(v.ToInteger() * 10)
		},
	}).Object()
	fn, ok = AssertFunction(traced)
	require.True(t, ok)
	res, err = fn(valueString("this"), intToValue(2), intToValue(3))
	require.NoError(t, err)
	assert.Equal(t, intToValue(50), res)
	assert.Equal(t, valueString("this"), gotThis)
	assert.Equal(t, []Value{intToValue(2), intToValue(3)}, gotArgs)

	notCallable := r.CreateProxy(r.NewObject(), r.NewObject())
	_, ok = AssertFunction(notCallable)
	assert.False(t, ok)
	assert.Equal(t, classObject, notCallable.ClassName())
}
