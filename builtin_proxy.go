package objmodel

// ProxyTrapConfig holds Go implementations of proxy traps. A nil field means the
// operation is forwarded to the target.
type ProxyTrapConfig struct {
	// A trap for [[GetPrototypeOf]]
	GetPrototypeOf func(target *Object) (prototype *Object)
	// A trap for [[SetPrototypeOf]]
	SetPrototypeOf func(target *Object, prototype *Object) (success bool)
	// A trap for [[IsExtensible]]
	IsExtensible func(target *Object) (success bool)
	// A trap for [[PreventExtensions]]
	PreventExtensions func(target *Object) (success bool)
	// A trap for [[GetOwnProperty]]. ok is false if the property is reported as absent.
	GetOwnPropertyDescriptor func(target *Object, key PropertyKey) (desc PropertyDescriptor, ok bool)
	// A trap for [[DefineOwnProperty]]
	DefineProperty func(target *Object, key PropertyKey, desc PropertyDescriptor) (success bool)
	// A trap for [[HasProperty]]
	Has func(target *Object, key PropertyKey) (available bool)
	// A trap for [[Get]]
	Get func(target *Object, key PropertyKey, receiver Value) (value Value)
	// A trap for [[Set]]
	Set func(target *Object, key PropertyKey, value Value, receiver Value) (success bool)
	// A trap for [[Delete]]
	DeleteProperty func(target *Object, key PropertyKey) (success bool)
	// A trap for [[OwnPropertyKeys]]
	OwnKeys func(target *Object) (keys []PropertyKey)
	// A trap for [[Call]]
	Apply func(target *Object, this Value, argumentsList []Value) (value Value)
}

// NewProxy creates a proxy whose traps are Go functions. The results are validated
// against the target like those of any other handler.
func (r *Runtime) NewProxy(target *Object, nativeHandler *ProxyTrapConfig) Proxy {
	return Proxy{proxy: r.newProxyObject(target, r.newNativeProxyHandler(nativeHandler))}
}

// NewTrustedProxy is like NewProxy but trap results are not checked against the target.
// It is meant for proxies created by the embedder itself, never for user handlers.
func (r *Runtime) NewTrustedProxy(target *Object, nativeHandler *ProxyTrapConfig) Proxy {
	p := r.newProxyObject(target, r.newNativeProxyHandler(nativeHandler))
	p.trusted = true
	return Proxy{proxy: p}
}

func (r *Runtime) newNativeProxyHandler(nativeHandler *ProxyTrapConfig) *Object {
	handler := r.NewObject()
	r.proxyproto_nativehandler_getPrototypeOf(nativeHandler.GetPrototypeOf, handler)
	r.proxyproto_nativehandler_setPrototypeOf(nativeHandler.SetPrototypeOf, handler)
	r.proxyproto_nativehandler_isExtensible(nativeHandler.IsExtensible, handler)
	r.proxyproto_nativehandler_preventExtensions(nativeHandler.PreventExtensions, handler)
	r.proxyproto_nativehandler_getOwnPropertyDescriptor(nativeHandler.GetOwnPropertyDescriptor, handler)
	r.proxyproto_nativehandler_defineProperty(nativeHandler.DefineProperty, handler)
	r.proxyproto_nativehandler_has(nativeHandler.Has, handler)
	r.proxyproto_nativehandler_get(nativeHandler.Get, handler)
	r.proxyproto_nativehandler_set(nativeHandler.Set, handler)
	r.proxyproto_nativehandler_deleteProperty(nativeHandler.DeleteProperty, handler)
	r.proxyproto_nativehandler_ownKeys(nativeHandler.OwnKeys, handler)
	r.proxyproto_nativehandler_apply(nativeHandler.Apply, handler)
	return handler
}

func (r *Runtime) putNativeTrap(handler *Object, trap proxyTrap, length int, f func(FunctionCall) Value) {
	handler.self._putProp(StrKey(trap.String()), r.newNativeFunc(r.global.FunctionPrototype, "[native "+trap.String()+"]", length, f), true, true, true)
}

func (r *Runtime) trapTarget(trap proxyTrap, call FunctionCall) *Object {
	if t, ok := call.Argument(0).(*Object); ok {
		return t
	}
	panic(r.NewTypeError("%s needs to be called with target as Object", trap))
}

func (r *Runtime) trapKey(call FunctionCall) PropertyKey {
	return r.ToPropertyKey(call.Argument(1))
}

func (r *Runtime) proxyproto_nativehandler_getPrototypeOf(native func(*Object) *Object, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_getPrototypeOf, 1, func(call FunctionCall) Value {
			if p := native(r.trapTarget(proxy_trap_getPrototypeOf, call)); p != nil {
				return p
			}
			return _null
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_setPrototypeOf(native func(*Object, *Object) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_setPrototypeOf, 2, func(call FunctionCall) Value {
			t := r.trapTarget(proxy_trap_setPrototypeOf, call)
			proto, _ := call.Argument(1).(*Object)
			return valueBool(native(t, proto))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_isExtensible(native func(*Object) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_isExtensible, 1, func(call FunctionCall) Value {
			return valueBool(native(r.trapTarget(proxy_trap_isExtensible, call)))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_preventExtensions(native func(*Object) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_preventExtensions, 1, func(call FunctionCall) Value {
			return valueBool(native(r.trapTarget(proxy_trap_preventExtensions, call)))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_getOwnPropertyDescriptor(native func(*Object, PropertyKey) (PropertyDescriptor, bool), handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_getOwnPropertyDescriptor, 2, func(call FunctionCall) Value {
			desc, ok := native(r.trapTarget(proxy_trap_getOwnPropertyDescriptor, call), r.trapKey(call))
			if !ok {
				return _undefined
			}
			return r.fromPropertyDescriptor(desc)
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_defineProperty(native func(*Object, PropertyKey, PropertyDescriptor) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_defineProperty, 3, func(call FunctionCall) Value {
			t := r.trapTarget(proxy_trap_defineProperty, call)
			return valueBool(native(t, r.trapKey(call), r.toPropertyDescriptor(call.Argument(2))))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_has(native func(*Object, PropertyKey) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_has, 2, func(call FunctionCall) Value {
			return valueBool(native(r.trapTarget(proxy_trap_has, call), r.trapKey(call)))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_get(native func(*Object, PropertyKey, Value) Value, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_get, 3, func(call FunctionCall) Value {
			t := r.trapTarget(proxy_trap_get, call)
			return native(t, r.trapKey(call), call.Argument(2))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_set(native func(*Object, PropertyKey, Value, Value) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_set, 4, func(call FunctionCall) Value {
			t := r.trapTarget(proxy_trap_set, call)
			return valueBool(native(t, r.trapKey(call), call.Argument(2), call.Argument(3)))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_deleteProperty(native func(*Object, PropertyKey) bool, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_deleteProperty, 2, func(call FunctionCall) Value {
			return valueBool(native(r.trapTarget(proxy_trap_deleteProperty, call), r.trapKey(call)))
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_ownKeys(native func(*Object) []PropertyKey, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_ownKeys, 1, func(call FunctionCall) Value {
			keys := native(r.trapTarget(proxy_trap_ownKeys, call))
			values := make([]Value, len(keys))
			for i, key := range keys {
				values[i] = key.Value()
			}
			return r.CreateArray(r.global.ArrayPrototype, values)
		})
	}
}

func (r *Runtime) proxyproto_nativehandler_apply(native func(*Object, Value, []Value) Value, handler *Object) {
	if native != nil {
		r.putNativeTrap(handler, proxy_trap_apply, 3, func(call FunctionCall) Value {
			t := r.trapTarget(proxy_trap_apply, call)
			var args []Value
			if a, ok := call.Argument(2).(*Object); ok {
				l := toLength(a.self.get(lengthKey, a))
				args = make([]Value, l)
				for i := range args {
					args[i] = nilSafe(a.self.get(IdxKey(uint32(i)), a))
				}
			}
			return native(t, call.Argument(1), args)
		})
	}
}
