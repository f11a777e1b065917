package objmodel

import (
	"fmt"
)

type ErrorKind int

const (
	// Thrown wraps an arbitrary value thrown by native code.
	Thrown ErrorKind = iota
	TypeError
	RangeError
)

func (k ErrorKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case RangeError:
		return "RangeError"
	}
	return "Error"
}

// Exception is raised (as a panic) by internal methods called in strict mode, by proxy
// invariant violations and by native functions. Runtime.Try converts it to an error.
type Exception struct {
	kind ErrorKind
	msg  string
	val  Value
}

func (e *Exception) Error() string {
	if e.kind == Thrown {
		if e.val != nil {
			if o, ok := e.val.(*Object); ok {
				if o.self.kind() == KindError {
					return o.String()
				}
			}
			return e.val.String()
		}
		return e.msg
	}
	return e.kind.String() + ": " + e.msg
}

func (e *Exception) Kind() ErrorKind {
	return e.kind
}

func (e *Exception) Message() string {
	return e.msg
}

// Value returns the thrown value: an error object for exceptions created by a Runtime,
// undefined when none is attached.
func (e *Exception) Value() Value {
	if e.val == nil {
		return _undefined
	}
	return e.val
}

// typeError is used where no runtime is reachable, such as symbol conversions.
func typeError(msg string) *Exception {
	return &Exception{kind: TypeError, msg: msg}
}

func (r *Runtime) newError(kind ErrorKind, format string, args ...interface{}) *Exception {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	proto := r.global.ErrorPrototype
	switch kind {
	case TypeError:
		proto = r.global.TypeErrorPrototype
	case RangeError:
		proto = r.global.RangeErrorPrototype
	}
	return &Exception{
		kind: kind,
		msg:  msg,
		val:  r.newErrorObject(proto, msg),
	}
}

func (r *Runtime) NewTypeError(format string, args ...interface{}) *Exception {
	return r.newError(TypeError, format, args...)
}

func (r *Runtime) NewRangeError(format string, args ...interface{}) *Exception {
	return r.newError(RangeError, format, args...)
}

// Throw panics with an exception carrying v. Intended for native functions.
func (r *Runtime) Throw(v Value) {
	if o, ok := v.(*Object); ok {
		if e, ok := o.self.(*errorObject); ok {
			panic(&Exception{kind: e.errKind, msg: e.message(), val: v})
		}
	}
	panic(&Exception{kind: Thrown, msg: v.String(), val: v})
}

func (r *Runtime) typeErrorResult(throw bool, format string, args ...interface{}) {
	if throw {
		panic(r.NewTypeError(format, args...))
	}
}

// Try runs f and returns the *Exception it panicked with, if any. Other panics propagate.
func (r *Runtime) Try(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if ex, ok := x.(*Exception); ok {
				err = ex
				return
			}
			panic(x)
		}
	}()
	f()
	return nil
}

type errorObject struct {
	baseObject
	errKind ErrorKind
}

func (e *errorObject) kind() Kind {
	return KindError
}

func (e *errorObject) message() string {
	if v := e.get(StrKey("message"), e.val); v != nil {
		return v.String()
	}
	return ""
}

func (r *Runtime) newErrorObject(proto *Object, msg string) *Object {
	v := &Object{runtime: r}
	e := &errorObject{}
	e.class = classError
	e.val = v
	e.extensible = true
	e.prototype = proto
	e.init()
	v.self = e
	switch proto {
	case r.global.TypeErrorPrototype:
		e.errKind = TypeError
	case r.global.RangeErrorPrototype:
		e.errKind = RangeError
	default:
		e.errKind = Thrown
	}
	e._putProp(StrKey("message"), valueString(msg), true, false, true)
	return v
}

// NewError creates an error object of the given kind.
func (r *Runtime) NewError(kind ErrorKind, msg string) *Object {
	switch kind {
	case TypeError:
		return r.newErrorObject(r.global.TypeErrorPrototype, msg)
	case RangeError:
		return r.newErrorObject(r.global.RangeErrorPrototype, msg)
	}
	return r.newErrorObject(r.global.ErrorPrototype, msg)
}
