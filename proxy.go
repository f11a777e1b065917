package objmodel

import (
	"fmt"
)

// Proxy is a Go handle to a proxy object.
type Proxy struct {
	proxy *proxyObject
}

func (p Proxy) Object() *Object {
	return p.proxy.val
}

// Revoke revokes the proxy. Every subsequent operation on it throws a TypeError.
func (p Proxy) Revoke() {
	p.proxy.revoke()
}

func (p Proxy) Revoked() bool {
	return p.proxy.handler == nil
}

// Target returns the target, nil once revoked.
func (p Proxy) Target() *Object {
	return p.proxy.target
}

func (p Proxy) Handler() *Object {
	return p.proxy.handler
}

type proxyTrap string

const (
	proxy_trap_getPrototypeOf           proxyTrap = "getPrototypeOf"
	proxy_trap_setPrototypeOf           proxyTrap = "setPrototypeOf"
	proxy_trap_isExtensible             proxyTrap = "isExtensible"
	proxy_trap_preventExtensions        proxyTrap = "preventExtensions"
	proxy_trap_getOwnPropertyDescriptor proxyTrap = "getOwnPropertyDescriptor"
	proxy_trap_defineProperty           proxyTrap = "defineProperty"
	proxy_trap_has                      proxyTrap = "has"
	proxy_trap_get                      proxyTrap = "get"
	proxy_trap_set                      proxyTrap = "set"
	proxy_trap_deleteProperty           proxyTrap = "deleteProperty"
	proxy_trap_ownKeys                  proxyTrap = "ownKeys"
	proxy_trap_apply                    proxyTrap = "apply"
)

func (p proxyTrap) String() (name string) {
	return string(p)
}

type proxyObject struct {
	baseObject
	target  *Object
	handler *Object
	call    func(FunctionCall) Value
	// trusted handlers are engine-internal; their results are not validated.
	trusted bool
}

func (p *proxyObject) kind() Kind {
	return KindProxy
}

func (p *proxyObject) className() string {
	if p.call != nil {
		return classFunction
	}
	return classObject
}

func (p *proxyObject) checkRevoked(trap proxyTrap) {
	if p.handler == nil {
		panic(p.val.runtime.NewTypeError("Cannot perform '%s' on a proxy that has been revoked", trap))
	}
}

// proxyCall invokes the trap if the handler defines it. ok is false when the operation
// must be forwarded to the target.
func (p *proxyObject) proxyCall(trap proxyTrap, args ...Value) (Value, bool) {
	p.checkRevoked(trap)
	r := p.val.runtime
	if m := r.getMethod(p.handler, StrKey(trap.String())); m != nil {
		return r.callFunction(m, p.handler, args...), true
	}
	return nil, false
}

func (p *proxyObject) invariantError(trap proxyTrap, format string, args ...interface{}) {
	panic(p.val.runtime.NewTypeError("'%s' on proxy: %s", trap, fmt.Sprintf(format, args...)))
}

func sameObject(a, b *Object) bool {
	return a == b
}

func (p *proxyObject) proto() *Object {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_getPrototypeOf, target)
	if !ok {
		return target.self.proto()
	}
	var handlerProto *Object
	switch v := v.(type) {
	case *Object:
		handlerProto = v
	case valueNull:
	default:
		p.invariantError(proxy_trap_getPrototypeOf, "trap returned neither object nor null")
	}
	if !p.trusted && !target.self.isExtensible() && !sameObject(handlerProto, target.self.proto()) {
		p.invariantError(proxy_trap_getPrototypeOf, "proxy target is non-extensible but the trap did not return its actual prototype")
	}
	return handlerProto
}

func (p *proxyObject) setProto(proto *Object, throw bool) bool {
	target := p.target
	var protoVal Value = _null
	if proto != nil {
		protoVal = proto
	}
	v, ok := p.proxyCall(proxy_trap_setPrototypeOf, target, protoVal)
	if !ok {
		return target.self.setProto(proto, throw)
	}
	if !v.ToBoolean() {
		p.val.runtime.typeErrorResult(throw, "'setPrototypeOf' on proxy: trap returned falsish")
		return false
	}
	if !p.trusted && !target.self.isExtensible() && !sameObject(proto, target.self.proto()) {
		p.invariantError(proxy_trap_setPrototypeOf, "trap returned truish for setting a new prototype on the non-extensible proxy target")
	}
	return true
}

func (p *proxyObject) isExtensible() bool {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_isExtensible, target)
	if !ok {
		return target.self.isExtensible()
	}
	booleanTrapResult := v.ToBoolean()
	if !p.trusted {
		if te := target.self.isExtensible(); booleanTrapResult != te {
			p.invariantError(proxy_trap_isExtensible, "trap result does not reflect extensibility of proxy target (which is '%v')", te)
		}
	}
	return booleanTrapResult
}

func (p *proxyObject) preventExtensions(throw bool) bool {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_preventExtensions, target)
	if !ok {
		return target.self.preventExtensions(throw)
	}
	if !v.ToBoolean() {
		p.val.runtime.typeErrorResult(throw, "'preventExtensions' on proxy: trap returned falsish")
		return false
	}
	if !p.trusted && target.self.isExtensible() {
		p.invariantError(proxy_trap_preventExtensions, "trap returned truish but the proxy target is extensible")
	}
	return true
}

func (p *proxyObject) getOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_getOwnPropertyDescriptor, target, key.Value())
	if !ok {
		return target.self.getOwnProperty(key)
	}
	r := p.val.runtime
	if _, isObj := v.(*Object); !isObj && v != _undefined {
		p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap returned neither object nor undefined for property '%s'", key)
	}
	if p.trusted {
		if v == _undefined {
			return PropertyDescriptor{}, false
		}
		desc := r.toPropertyDescriptor(v)
		desc.complete()
		return desc, true
	}
	targetDesc, hasTarget := target.self.getOwnProperty(key)
	if v == _undefined {
		if !hasTarget {
			return PropertyDescriptor{}, false
		}
		if targetDesc.Configurable == FLAG_FALSE {
			p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap returned undefined for property '%s' which is non-configurable in the proxy target", key)
		}
		if !target.self.isExtensible() {
			p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap returned undefined for property '%s' which exists in the non-extensible proxy target", key)
		}
		return PropertyDescriptor{}, false
	}
	extensible := target.self.isExtensible()
	desc := r.toPropertyDescriptor(v)
	desc.complete()
	if !isCompatiblePropertyDescriptor(extensible, desc, targetDesc, hasTarget) {
		p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap returned descriptor for property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if desc.Configurable == FLAG_FALSE {
		if !hasTarget || targetDesc.Configurable == FLAG_TRUE {
			p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap reported non-configurability for property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		if desc.Writable == FLAG_FALSE && targetDesc.Writable == FLAG_TRUE {
			p.invariantError(proxy_trap_getOwnPropertyDescriptor, "trap reported non-configurable and writable for property '%s' which is non-configurable, non-writable in the proxy target", key)
		}
	}
	return desc, true
}

func (p *proxyObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	target := p.target
	r := p.val.runtime
	v, ok := p.proxyCall(proxy_trap_defineProperty, target, key.Value(), r.fromPropertyDescriptor(desc))
	if !ok {
		return target.self.defineOwnProperty(key, desc, throw)
	}
	if !v.ToBoolean() {
		r.typeErrorResult(throw, "'defineProperty' on proxy: trap returned falsish for property '%s'", key)
		return false
	}
	if p.trusted {
		return true
	}
	targetDesc, hasTarget := target.self.getOwnProperty(key)
	extensibleTarget := target.self.isExtensible()
	settingConfigFalse := desc.Configurable == FLAG_FALSE
	if !hasTarget {
		if !extensibleTarget {
			p.invariantError(proxy_trap_defineProperty, "trap returned truish for adding property '%s' to the non-extensible proxy target", key)
		}
		if settingConfigFalse {
			p.invariantError(proxy_trap_defineProperty, "trap returned truish for defining non-configurable property '%s' which is non-existent in the proxy target", key)
		}
		return true
	}
	if !isCompatiblePropertyDescriptor(extensibleTarget, desc, targetDesc, true) {
		p.invariantError(proxy_trap_defineProperty, "trap returned truish for adding property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if settingConfigFalse && targetDesc.Configurable == FLAG_TRUE {
		p.invariantError(proxy_trap_defineProperty, "trap returned truish for defining non-configurable property '%s' which is configurable in the proxy target", key)
	}
	if targetDesc.IsData() && targetDesc.Configurable == FLAG_FALSE && targetDesc.Writable == FLAG_TRUE && desc.Writable == FLAG_FALSE {
		p.invariantError(proxy_trap_defineProperty, "trap returned truish for defining non-configurable property '%s' which cannot be non-writable, unless there exists a corresponding non-configurable, non-writable own property of the target object", key)
	}
	return true
}

func (p *proxyObject) hasProperty(key PropertyKey) bool {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_has, target, key.Value())
	if !ok {
		return target.self.hasProperty(key)
	}
	booleanTrapResult := v.ToBoolean()
	if !booleanTrapResult && !p.trusted {
		if targetDesc, has := target.self.getOwnProperty(key); has {
			if targetDesc.Configurable == FLAG_FALSE {
				p.invariantError(proxy_trap_has, "trap returned falsish for property '%s' which exists in the proxy target as non-configurable", key)
			}
			if !target.self.isExtensible() {
				p.invariantError(proxy_trap_has, "trap returned falsish for property '%s' but the proxy target is not extensible", key)
			}
		}
	}
	return booleanTrapResult
}

func (p *proxyObject) hasOwnProperty(key PropertyKey) bool {
	_, ok := p.getOwnProperty(key)
	return ok
}

func (p *proxyObject) get(key PropertyKey, receiver Value) Value {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_get, target, key.Value(), receiver)
	if !ok {
		return target.self.get(key, receiver)
	}
	if p.trusted {
		return v
	}
	if targetDesc, has := target.self.getOwnProperty(key); has && targetDesc.Configurable == FLAG_FALSE {
		if targetDesc.IsData() {
			if targetDesc.Writable == FLAG_FALSE && !v.SameAs(nilSafe(targetDesc.Value)) {
				p.invariantError(proxy_trap_get, "property '%s' is a read-only and non-configurable data property on the proxy target but the proxy did not return its actual value (expected '%s' but got '%s')", key, nilSafe(targetDesc.Value), v)
			}
		} else if nilSafe(targetDesc.Getter) == _undefined && v != _undefined {
			p.invariantError(proxy_trap_get, "property '%s' is a non-configurable accessor property on the proxy target and does not have a getter function, but the trap did not return 'undefined' (got '%s')", key, v)
		}
	}
	return v
}

func (p *proxyObject) proxySet(key PropertyKey, v, receiver Value, throw bool) bool {
	target := p.target
	res, ok := p.proxyCall(proxy_trap_set, target, key.Value(), v, receiver)
	if !ok {
		return target.set(key, v, receiver, throw)
	}
	if !res.ToBoolean() {
		p.val.runtime.typeErrorResult(throw, "'set' on proxy: trap returned falsish for property '%s'", key)
		return false
	}
	if p.trusted {
		return true
	}
	if targetDesc, has := target.self.getOwnProperty(key); has && targetDesc.Configurable == FLAG_FALSE {
		if targetDesc.IsData() {
			if targetDesc.Writable == FLAG_FALSE && !v.SameAs(nilSafe(targetDesc.Value)) {
				p.invariantError(proxy_trap_set, "trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable data property with a different value", key)
			}
		} else if nilSafe(targetDesc.Setter) == _undefined {
			p.invariantError(proxy_trap_set, "trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable accessor property without a setter", key)
		}
	}
	return true
}

func (p *proxyObject) setOwn(key PropertyKey, v Value, throw bool) bool {
	return p.proxySet(key, v, p.val, throw)
}

func (p *proxyObject) setForeign(key PropertyKey, v, receiver Value, throw bool) (bool, bool) {
	return p.proxySet(key, v, receiver, throw), true
}

func (p *proxyObject) delete(key PropertyKey, throw bool) bool {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_deleteProperty, target, key.Value())
	if !ok {
		return target.self.delete(key, throw)
	}
	if !v.ToBoolean() {
		p.val.runtime.typeErrorResult(throw, "'deleteProperty' on proxy: trap returned falsish for property '%s'", key)
		return false
	}
	if p.trusted {
		return true
	}
	if targetDesc, has := target.self.getOwnProperty(key); has {
		if targetDesc.Configurable == FLAG_FALSE {
			p.invariantError(proxy_trap_deleteProperty, "property '%s' is a non-configurable property but the trap returned truish", key)
		}
		if !target.self.isExtensible() {
			p.invariantError(proxy_trap_deleteProperty, "trap returned truish for property '%s' but the proxy target is non-extensible", key)
		}
	}
	return true
}

func (p *proxyObject) ownKeys() []PropertyKey {
	target := p.target
	v, ok := p.proxyCall(proxy_trap_ownKeys, target)
	if !ok {
		return target.self.ownKeys()
	}
	r := p.val.runtime
	keys, isObj := v.(*Object)
	if !isObj {
		p.invariantError(proxy_trap_ownKeys, "trap returned a non-object")
	}
	var keyList []PropertyKey
	keySet := make(map[PropertyKey]struct{})
	l := toLength(keys.self.get(lengthKey, keys))
	for k := int64(0); k < l; k++ {
		item := nilSafe(keys.self.get(StrKey(valueInt(k).String()), keys))
		var key PropertyKey
		switch item := item.(type) {
		case valueString:
			key = StrKey(string(item))
		case *Symbol:
			key = SymKey(item)
		default:
			panic(r.NewTypeError("%s is not a valid property name", describeValue(item)))
		}
		if _, exists := keySet[key]; exists {
			p.invariantError(proxy_trap_ownKeys, "trap returned duplicate entries")
		}
		keyList = append(keyList, key)
		keySet[key] = struct{}{}
	}
	if p.trusted {
		return keyList
	}
	ext := target.self.isExtensible()
	for _, key := range target.self.ownKeys() {
		if _, exists := keySet[key]; exists {
			delete(keySet, key)
			continue
		}
		if !ext {
			p.invariantError(proxy_trap_ownKeys, "trap result did not include '%s'", key)
		}
		if desc, has := target.self.getOwnProperty(key); has && desc.Configurable == FLAG_FALSE {
			p.invariantError(proxy_trap_ownKeys, "trap result did not include non-configurable '%s'", key)
		}
	}
	if !ext && len(keySet) > 0 {
		p.invariantError(proxy_trap_ownKeys, "trap returned extra keys but proxy target is non-extensible")
	}
	return keyList
}

func (p *proxyObject) assertCallable() func(FunctionCall) Value {
	if p.call != nil {
		return p.apply
	}
	return nil
}

func (p *proxyObject) apply(call FunctionCall) Value {
	r := p.val.runtime
	if v, ok := p.proxyCall(proxy_trap_apply, p.target, nilSafe(call.This), r.CreateArray(r.global.ArrayPrototype, call.Arguments)); ok {
		return v
	}
	return p.call(call)
}

func (p *proxyObject) export() interface{} {
	return Proxy{proxy: p}
}

func (p *proxyObject) _putProp(key PropertyKey, v Value, writable, enumerable, configurable bool) {
	p.defineOwnProperty(key, DataDescriptor(v, writable, enumerable, configurable), true)
}

func (p *proxyObject) revoke() {
	if p.handler == nil {
		return
	}
	p.handler = nil
	p.target = nil
	p.val.runtime.logger.Debug("proxy revoked")
}

func (r *Runtime) newProxyObject(target, handler *Object) *proxyObject {
	if target == nil || handler == nil {
		panic(r.NewTypeError("Cannot create proxy with a non-object as target or handler"))
	}
	v := &Object{runtime: r}
	p := &proxyObject{}
	v.self = p
	p.val = v
	p.class = classProxy
	p.extensible = false
	p.init()
	p.target = target
	p.handler = handler
	p.call = target.self.assertCallable()
	return p
}

// CreateProxy creates a proxy with a script-level handler object.
func (r *Runtime) CreateProxy(target, handler *Object) *Object {
	return r.newProxyObject(target, handler).val
}

// NewRevocableProxy is like CreateProxy but returns a handle that can revoke the proxy.
func (r *Runtime) NewRevocableProxy(target, handler *Object) Proxy {
	return Proxy{proxy: r.newProxyObject(target, handler)}
}

// ExportProxy returns the handle of a proxy object.
func ExportProxy(o *Object) (Proxy, bool) {
	if p, ok := o.self.(*proxyObject); ok {
		return Proxy{proxy: p}, true
	}
	return Proxy{}, false
}
