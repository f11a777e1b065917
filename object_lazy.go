package objmodel

// lazyObject stands in for an intrinsic that is only built on first use. Any internal
// method call replaces it with the real implementation.
type lazyObject struct {
	val    *Object
	create func(*Object) objectImpl
}

func (o *lazyObject) materialize() objectImpl {
	obj := o.create(o.val)
	o.val.self = obj
	return obj
}

func (o *lazyObject) kind() Kind {
	return o.materialize().kind()
}

func (o *lazyObject) className() string {
	return o.materialize().className()
}

func (o *lazyObject) getOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	return o.materialize().getOwnProperty(key)
}

func (o *lazyObject) get(key PropertyKey, receiver Value) Value {
	return o.materialize().get(key, receiver)
}

func (o *lazyObject) setOwn(key PropertyKey, v Value, throw bool) bool {
	return o.materialize().setOwn(key, v, throw)
}

func (o *lazyObject) setForeign(key PropertyKey, v, receiver Value, throw bool) (bool, bool) {
	return o.materialize().setForeign(key, v, receiver, throw)
}

func (o *lazyObject) hasProperty(key PropertyKey) bool {
	return o.materialize().hasProperty(key)
}

func (o *lazyObject) hasOwnProperty(key PropertyKey) bool {
	return o.materialize().hasOwnProperty(key)
}

func (o *lazyObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	return o.materialize().defineOwnProperty(key, desc, throw)
}

func (o *lazyObject) delete(key PropertyKey, throw bool) bool {
	return o.materialize().delete(key, throw)
}

func (o *lazyObject) proto() *Object {
	return o.materialize().proto()
}

func (o *lazyObject) setProto(proto *Object, throw bool) bool {
	return o.materialize().setProto(proto, throw)
}

func (o *lazyObject) isExtensible() bool {
	return o.materialize().isExtensible()
}

func (o *lazyObject) preventExtensions(throw bool) bool {
	return o.materialize().preventExtensions(throw)
}

func (o *lazyObject) ownKeys() []PropertyKey {
	return o.materialize().ownKeys()
}

func (o *lazyObject) assertCallable() func(FunctionCall) Value {
	return o.materialize().assertCallable()
}

func (o *lazyObject) export() interface{} {
	return o.materialize().export()
}

func (o *lazyObject) _putProp(key PropertyKey, v Value, writable, enumerable, configurable bool) {
	o.materialize()._putProp(key, v, writable, enumerable, configurable)
}

func (r *Runtime) newLazyObject(create func(*Object) objectImpl) *Object {
	val := &Object{runtime: r}
	val.self = &lazyObject{
		val:    val,
		create: create,
	}
	return val
}
