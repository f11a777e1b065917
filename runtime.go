package objmodel

import (
	"io"

	"github.com/sirupsen/logrus"
)

type global struct {
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object

	ErrorPrototype      *Object
	TypeErrorPrototype  *Object
	RangeErrorPrototype *Object

	ArrayBufferPrototype       *Object
	SharedArrayBufferPrototype *Object
	TypedArrayPrototype        *Object

	typedArrayPrototypes [numElementTypes]*Object
}

// Runtime is a realm: the intrinsic prototypes, the shape tree and the fast-path
// assumptions shared by every object it creates. A Runtime must only be used by one
// goroutine at a time.
type Runtime struct {
	global    global
	rootShape *shape

	noProtoElements assumption

	// initializing suppresses dictionary mode while intrinsics are built through
	// their *baseObject.
	initializing bool

	config      Config
	arrayPolicy arrayPolicy
	logger      logrus.FieldLogger
}

func New(opts ...Option) *Runtime {
	o := options{}
	for _, opt := range opts {
		opt.apply(&o)
	}
	r := &Runtime{
		rootShape:       newRootShape(),
		noProtoElements: newAssumption("no elements on Array.prototype and Object.prototype"),
	}
	if o.config != nil {
		r.config = *o.config
	} else {
		r.config = DefaultConfig()
	}
	r.arrayPolicy = newArrayPolicy(&r.config)
	if o.logger != nil {
		r.logger = o.logger
	} else {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.logger = l
	}
	r.init()
	return r
}

func (r *Runtime) init() {
	r.initializing = true
	defer func() { r.initializing = false }()
	r.global.ObjectPrototype = r.newBaseObject(nil, classObject).val
	r.global.FunctionPrototype = r.newNativeFunc(r.global.ObjectPrototype, "", 0, func(FunctionCall) Value {
		return _undefined
	})
	r.global.ArrayPrototype = r.newArrayPrototype()
	r.initObjectPrototype()
	r.initErrors()
	r.initArrayBuffer()
	r.initTypedArrays()
}

func (r *Runtime) initObjectPrototype() {
	o := r.global.ObjectPrototype.self
	o._putProp(StrKey("toString"), r.newNativeFunc(r.global.FunctionPrototype, "toString", 0, func(call FunctionCall) Value {
		switch this := call.This.(type) {
		case valueUndefined:
			return valueString("[object Undefined]")
		case valueNull:
			return valueString("[object Null]")
		case *Object:
			if tag, ok := this.self.get(SymKey(SymToStringTag), this).(valueString); ok {
				return valueString("[object " + string(tag) + "]")
			}
			return valueString("[object " + this.self.className() + "]")
		}
		return valueString("[object Object]")
	}), true, false, true)
	o._putProp(StrKey("valueOf"), r.newNativeFunc(r.global.FunctionPrototype, "valueOf", 0, func(call FunctionCall) Value {
		return call.This
	}), true, false, true)
}

func (r *Runtime) initErrors() {
	proto := r.newBaseObject(r.global.ObjectPrototype, classError)
	proto._putProp(StrKey("name"), valueString("Error"), true, false, true)
	proto._putProp(StrKey("message"), valueString(""), true, false, true)
	proto._putProp(StrKey("toString"), r.newNativeFunc(r.global.FunctionPrototype, "toString", 0, func(call FunctionCall) Value {
		this, ok := call.This.(*Object)
		if !ok {
			panic(r.NewTypeError("Error.prototype.toString called on non-object"))
		}
		name := "Error"
		if v := this.self.get(StrKey("name"), this); v != nil && v != _undefined {
			name = v.String()
		}
		msg := ""
		if v := this.self.get(StrKey("message"), this); v != nil && v != _undefined {
			msg = v.String()
		}
		switch {
		case msg == "":
			return valueString(name)
		case name == "":
			return valueString(msg)
		}
		return valueString(name + ": " + msg)
	}), true, false, true)
	r.global.ErrorPrototype = proto.val

	sub := func(name string) *Object {
		p := r.newBaseObject(r.global.ErrorPrototype, classError)
		p._putProp(StrKey("name"), valueString(name), true, false, true)
		p._putProp(StrKey("message"), valueString(""), true, false, true)
		return p.val
	}
	r.global.TypeErrorPrototype = sub("TypeError")
	r.global.RangeErrorPrototype = sub("RangeError")
}

func (r *Runtime) ObjectPrototype() *Object {
	return r.global.ObjectPrototype
}

func (r *Runtime) FunctionPrototype() *Object {
	return r.global.FunctionPrototype
}

func (r *Runtime) ArrayPrototype() *Object {
	return r.global.ArrayPrototype
}

func (r *Runtime) ArrayBufferPrototype() *Object {
	return r.global.ArrayBufferPrototype
}

func (r *Runtime) TypedArrayPrototype() *Object {
	return r.global.TypedArrayPrototype
}

func (r *Runtime) Config() Config {
	return r.config
}

func (r *Runtime) Logger() logrus.FieldLogger {
	return r.logger
}

// CreateOrdinary creates an ordinary extensible object with the given prototype (may be nil).
func (r *Runtime) CreateOrdinary(proto *Object) *Object {
	return r.newBaseObject(proto, classObject).val
}

// NewObject creates an ordinary object inheriting from Object.prototype.
func (r *Runtime) NewObject() *Object {
	return r.CreateOrdinary(r.global.ObjectPrototype)
}

type toPrimitiveHint int

const (
	hintDefault toPrimitiveHint = iota
	hintNumber
	hintString
)

func (h toPrimitiveHint) String() string {
	switch h {
	case hintNumber:
		return "number"
	case hintString:
		return "string"
	}
	return "default"
}

// toPrimitive implements ToPrimitive for objects.
func (r *Runtime) toPrimitive(o *Object, hint toPrimitiveHint) Value {
	if exotic := o.self.get(SymKey(SymToPrimitive), o); exotic != nil && exotic != _undefined && exotic != _null {
		fn, ok := exotic.(*Object)
		if !ok || fn.self.assertCallable() == nil {
			panic(r.NewTypeError("Symbol.toPrimitive is not a function"))
		}
		v := r.callFunction(fn, o, valueString(hint.String()))
		if _, isObj := v.(*Object); isObj {
			panic(r.NewTypeError("Cannot convert object to primitive value"))
		}
		return v
	}
	methods := [2]string{"valueOf", "toString"}
	if hint == hintString {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		if v := r.tryPrimitive(o, name); v != nil {
			return v
		}
	}
	panic(r.NewTypeError("Cannot convert object to primitive value"))
}

// ToPrimitive converts v to a primitive with no preferred type. Objects are converted
// through Symbol.toPrimitive (called with "default"), then valueOf and toString.
func (r *Runtime) ToPrimitive(v Value) Value {
	if o, ok := v.(*Object); ok {
		return r.toPrimitive(o, hintDefault)
	}
	return v
}

func (r *Runtime) tryPrimitive(o *Object, methodName string) Value {
	if method, ok := o.self.get(StrKey(methodName), o).(*Object); ok {
		if call := method.self.assertCallable(); call != nil {
			v := call(FunctionCall{
				This: o,
			})
			if _, fail := v.(*Object); !fail {
				return v
			}
		}
	}
	return nil
}

// ToNumber implements ToNumber. BigInt values are rejected with a TypeError.
func (r *Runtime) ToNumber(v Value) Value {
	switch v := v.(type) {
	case *valueBigInt:
		panic(r.NewTypeError("Cannot convert a BigInt value to a number"))
	case *Symbol:
		panic(r.NewTypeError("Cannot convert a Symbol value to a number"))
	case *Object:
		return r.ToNumber(r.toPrimitive(v, hintNumber))
	}
	return v.ToNumber()
}

// ToBigInt implements ToBigInt.
func (r *Runtime) ToBigInt(v Value) Value {
	return r.toBigInt(v)
}

func (r *Runtime) toBigInt(v Value) *valueBigInt {
	if o, ok := v.(*Object); ok {
		v = r.toPrimitive(o, hintNumber)
	}
	switch p := v.(type) {
	case *valueBigInt:
		return p
	case valueBool:
		if p {
			return (*valueBigInt)(bigOne())
		}
		return (*valueBigInt)(bigZero())
	case valueString:
		if b, ok := stringToBigInt(string(p)); ok {
			return (*valueBigInt)(b)
		}
		panic(r.NewTypeError("Cannot convert %s to a BigInt", describeValue(p)))
	case valueUndefined, valueNull, valueInt, valueFloat:
		panic(r.NewTypeError("Cannot convert %s to a BigInt", describeValue(p)))
	}
	panic(r.NewTypeError("Cannot convert a Symbol value to a BigInt"))
}

// ToPropertyKey implements ToPropertyKey.
func (r *Runtime) ToPropertyKey(v Value) PropertyKey {
	if o, ok := v.(*Object); ok {
		v = r.toPrimitive(o, hintString)
	}
	if s, ok := v.(*Symbol); ok {
		return SymKey(s)
	}
	return StrKey(v.String())
}

// ToPropertyDescriptor converts a descriptor object.
func (r *Runtime) ToPropertyDescriptor(v Value) PropertyDescriptor {
	return r.toPropertyDescriptor(v)
}

// FromPropertyDescriptor converts a descriptor into a descriptor object.
func (r *Runtime) FromPropertyDescriptor(d PropertyDescriptor) *Object {
	return r.fromPropertyDescriptor(d)
}
