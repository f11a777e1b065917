package objmodel

type FunctionCall struct {
	This      Value
	Arguments []Value
}

func (f FunctionCall) Argument(idx int) Value {
	if idx < len(f.Arguments) {
		return f.Arguments[idx]
	}
	return _undefined
}

// Callable is a Go view of a callable object.
type Callable func(this Value, args ...Value) (Value, error)

type nativeFuncObject struct {
	baseObject

	f func(FunctionCall) Value
}

func (f *nativeFuncObject) kind() Kind {
	return KindFunction
}

func (f *nativeFuncObject) init(name string, length int) {
	f.baseObject.init()
	f._putProp(StrKey("length"), valueInt(length), false, false, true)
	f._putProp(StrKey("name"), valueString(name), false, false, true)
}

func (f *nativeFuncObject) assertCallable() func(FunctionCall) Value {
	return f.f
}

func (f *nativeFuncObject) export() interface{} {
	return f.f
}

func (r *Runtime) newNativeFunc(proto *Object, name string, length int, call func(FunctionCall) Value) *Object {
	v := &Object{runtime: r}
	f := &nativeFuncObject{f: call}
	f.class = classFunction
	f.val = v
	f.extensible = true
	f.prototype = proto
	v.self = f
	f.init(name, length)
	return v
}

// NewNativeFunction creates a function object backed by Go code. Native functions are the
// boundary to the executor: accessors, proxy traps and conversion hooks are functions.
// To throw, call Runtime.Throw or panic with an *Exception.
func (r *Runtime) NewNativeFunction(name string, length int, call func(FunctionCall) Value) *Object {
	return r.newNativeFunc(r.global.FunctionPrototype, name, length, call)
}

// callFunction calls fn which must be callable.
func (r *Runtime) callFunction(fn *Object, this Value, args ...Value) Value {
	call := fn.self.assertCallable()
	if call == nil {
		panic(r.NewTypeError("%s is not a function", describeValue(fn)))
	}
	return nilSafe(call(FunctionCall{
		This:      this,
		Arguments: args,
	}))
}

// AssertFunction returns a Go function calling v if v is callable.
func AssertFunction(v Value) (Callable, bool) {
	obj, ok := v.(*Object)
	if !ok {
		return nil, false
	}
	call := obj.self.assertCallable()
	if call == nil {
		return nil, false
	}
	return func(this Value, args ...Value) (ret Value, err error) {
		err = obj.runtime.Try(func() {
			ret = nilSafe(call(FunctionCall{
				This:      this,
				Arguments: args,
			}))
		})
		return
	}, true
}

// getMethod implements GetMethod: undefined and null yield nil.
func (r *Runtime) getMethod(o *Object, key PropertyKey) *Object {
	v := o.self.get(key, o)
	if v == nil || v == _undefined || v == _null {
		return nil
	}
	fn, ok := v.(*Object)
	if !ok || fn.self.assertCallable() == nil {
		panic(r.NewTypeError("%s is not a function", describeValue(v)))
	}
	return fn
}
