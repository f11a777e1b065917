package scenario

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dop251/objmodel"
)

// Failure is a step whose outcome did not match its expectation.
type Failure struct {
	Step    int
	Op      string
	Message string
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d (%s): %s", f.Step, f.Op, f.Message)
}

type Result struct {
	Steps    int
	Failures []Failure
}

func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

type runner struct {
	rt      *objmodel.Runtime
	logger  logrus.FieldLogger
	objects map[string]*objmodel.Object
	symbols map[string]*objmodel.Symbol
}

// Run executes the steps of doc on a new runtime. Mismatched expectations are collected
// in the result; an error is returned only for malformed steps.
func Run(doc *Document, base objmodel.Config, logger logrus.FieldLogger) (*Result, error) {
	config, err := doc.EffectiveConfig(base)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	rn := &runner{
		rt:      objmodel.New(objmodel.WithConfig(config), objmodel.WithLogger(logger)),
		logger:  logger,
		objects: make(map[string]*objmodel.Object),
		symbols: make(map[string]*objmodel.Symbol),
	}
	res := &Result{}
	for i := range doc.Steps {
		step := &doc.Steps[i]
		var out interface{}
		var stepErr error
		thrown := rn.rt.Try(func() {
			out, stepErr = rn.exec(step)
		})
		if stepErr != nil {
			return res, errors.Wrapf(stepErr, "step %d (%s)", i, step.Op)
		}
		res.Steps++
		if msg := check(step, out, thrown); msg != "" {
			f := Failure{Step: i, Op: step.Op, Message: msg}
			logger.WithFields(logrus.Fields{
				"step": i,
				"op":   step.Op,
			}).Warn(msg)
			res.Failures = append(res.Failures, f)
		}
	}
	return res, nil
}

func check(step *Step, out interface{}, thrown error) string {
	if step.Error != "" {
		var ex *objmodel.Exception
		if thrown == nil {
			return fmt.Sprintf("expected %s, got %s", step.Error, format(out))
		}
		if !errors.As(thrown, &ex) || ex.Kind().String() != step.Error {
			return fmt.Sprintf("expected %s, got %v", step.Error, thrown)
		}
		return ""
	}
	if thrown != nil {
		return fmt.Sprintf("unexpected exception: %v", thrown)
	}
	if step.Expect != nil && format(step.Expect) != format(out) {
		return fmt.Sprintf("expected %s, got %s", format(step.Expect), format(out))
	}
	return ""
}

func format(v interface{}) string {
	return fmt.Sprint(v)
}

func (rn *runner) object(name string) (*objmodel.Object, error) {
	if o, ok := rn.objects[name]; ok {
		return o, nil
	}
	return nil, errors.Errorf("unknown object %q", name)
}

func (rn *runner) symbol(desc string) *objmodel.Symbol {
	s, ok := rn.symbols[desc]
	if !ok {
		s = objmodel.NewSymbol(desc)
		rn.symbols[desc] = s
	}
	return s
}

func (rn *runner) key(step *Step) objmodel.PropertyKey {
	if step.Symbol != "" {
		return objmodel.SymKey(rn.symbol(step.Symbol))
	}
	return objmodel.StrKey(step.Key)
}

func (rn *runner) value(step *Step) (objmodel.Value, error) {
	if step.Ref != "" {
		return rn.object(step.Ref)
	}
	return toValue(step.Value), nil
}

func toValue(v interface{}) objmodel.Value {
	if s, ok := v.(string); ok && s == "undefined" {
		return objmodel.Undefined()
	}
	return objmodel.ToValue(v)
}

func flag(b *bool) objmodel.Flag {
	if b == nil {
		return objmodel.FLAG_NOT_SET
	}
	return objmodel.ToFlag(*b)
}

func (rn *runner) descriptor(step *Step) (objmodel.PropertyDescriptor, error) {
	desc := objmodel.PropertyDescriptor{
		Writable:     flag(step.Writable),
		Enumerable:   flag(step.Enumerable),
		Configurable: flag(step.Configurable),
	}
	if step.Getter != "" || step.Setter != "" {
		for _, acc := range []struct {
			name string
			dst  *objmodel.Value
		}{{step.Getter, &desc.Getter}, {step.Setter, &desc.Setter}} {
			if acc.name == "" {
				continue
			}
			fn, err := rn.object(acc.name)
			if err != nil {
				return desc, err
			}
			*acc.dst = fn
		}
		return desc, nil
	}
	if step.Value != nil || step.Ref != "" {
		v, err := rn.value(step)
		if err != nil {
			return desc, err
		}
		desc.Value = v
	}
	return desc, nil
}

func (rn *runner) exec(step *Step) (interface{}, error) {
	if step.Op == "new" {
		o, err := rn.create(step)
		if err != nil {
			return nil, err
		}
		if step.Name == "" {
			return nil, errors.New("new requires a name")
		}
		rn.objects[step.Name] = o
		return o.Kind().String(), nil
	}
	o, err := rn.object(step.Object)
	if err != nil {
		return nil, err
	}
	switch step.Op {
	case "define":
		desc, err := rn.descriptor(step)
		if err != nil {
			return nil, err
		}
		return o.DefineOwnProperty(rn.key(step), desc, step.Strict), nil
	case "set":
		v, err := rn.value(step)
		if err != nil {
			return nil, err
		}
		return o.Set(rn.key(step), v, step.Strict), nil
	case "get":
		return o.Get(rn.key(step)).Export(), nil
	case "descriptor":
		desc, ok := o.GetOwnProperty(rn.key(step))
		if !ok {
			return nil, nil
		}
		return exportDescriptor(desc), nil
	case "has":
		return o.HasProperty(rn.key(step)), nil
	case "hasOwn":
		return o.HasOwnProperty(rn.key(step)), nil
	case "delete":
		return o.Delete(rn.key(step), step.Strict), nil
	case "keys":
		keys := o.OwnKeys()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return names, nil
	case "freeze":
		return o.Freeze(step.Strict), nil
	case "seal":
		return o.Seal(step.Strict), nil
	case "isFrozen":
		return o.IsFrozen(), nil
	case "isSealed":
		return o.IsSealed(), nil
	case "preventExtensions":
		return o.PreventExtensions(step.Strict), nil
	case "isExtensible":
		return o.IsExtensible(), nil
	case "setPrototype":
		var proto *objmodel.Object
		if step.Proto != "" {
			if proto, err = rn.object(step.Proto); err != nil {
				return nil, err
			}
		}
		return o.SetPrototypeOf(proto, step.Strict), nil
	case "kind":
		return o.Kind().String(), nil
	case "representation":
		rep, ok := o.ArrayRepresentation()
		if !ok {
			return nil, errors.Errorf("%s is not an array", step.Object)
		}
		return rep.String(), nil
	case "detach", "resize", "grow":
		buf, ok := objmodel.ExportArrayBuffer(o)
		if !ok {
			return nil, errors.Errorf("%s is not an array buffer", step.Object)
		}
		switch step.Op {
		case "detach":
			buf.Detach()
		case "resize":
			buf.Resize(step.ByteLength)
		default:
			buf.Grow(step.ByteLength)
		}
		return buf.ByteLength(), nil
	case "revoke":
		p, ok := objmodel.ExportProxy(o)
		if !ok {
			return nil, errors.Errorf("%s is not a proxy", step.Object)
		}
		p.Revoke()
		return true, nil
	}
	return nil, errors.Errorf("unknown op %q", step.Op)
}

func (rn *runner) create(step *Step) (*objmodel.Object, error) {
	rt := rn.rt
	switch step.Kind {
	case "", "object", "dictionary":
		proto := rt.ObjectPrototype()
		if step.Proto != "" {
			p, err := rn.object(step.Proto)
			if err != nil {
				return nil, err
			}
			proto = p
		}
		if step.Kind == "dictionary" {
			return rt.CreateDictionary(proto), nil
		}
		return rt.CreateOrdinary(proto), nil
	case "array":
		values := make([]objmodel.Value, len(step.Elements))
		for i, e := range step.Elements {
			if e != nil {
				values[i] = toValue(e)
			}
		}
		return rt.CreateArray(rt.ArrayPrototype(), values), nil
	case "buffer":
		return rt.NewArrayBuffer(make([]byte, step.ByteLength)).Object(), nil
	case "resizableBuffer":
		if step.MaxByteLength == nil {
			return nil, errors.New("resizableBuffer requires maxByteLength")
		}
		return rt.NewResizableArrayBuffer(step.ByteLength, *step.MaxByteLength).Object(), nil
	case "sharedBuffer":
		maxLen := -1
		if step.MaxByteLength != nil {
			maxLen = *step.MaxByteLength
		}
		return rt.NewSharedArrayBuffer(step.ByteLength, maxLen).Object(), nil
	case "view":
		buf, err := rn.object(step.Target)
		if err != nil {
			return nil, err
		}
		t, ok := objmodel.ElementTypeByName(step.Type)
		if !ok {
			return nil, errors.Errorf("unknown element type %q", step.Type)
		}
		length := -1
		if step.Length != nil {
			length = *step.Length
		}
		return rt.CreateView(buf, step.Offset, length, t), nil
	case "proxy":
		target, err := rn.object(step.Target)
		if err != nil {
			return nil, err
		}
		var handler *objmodel.Object
		if step.Handler != "" {
			if handler, err = rn.object(step.Handler); err != nil {
				return nil, err
			}
		} else {
			handler = rt.NewObject()
			for trap, result := range step.Traps {
				v := toValue(result)
				handler.Set(objmodel.StrKey(trap), rt.NewNativeFunction(trap, 0, func(objmodel.FunctionCall) objmodel.Value {
					return v
				}), true)
			}
		}
		return rt.NewRevocableProxy(target, handler).Object(), nil
	case "function":
		v, err := rn.value(step)
		if err != nil {
			return nil, err
		}
		return rt.NewNativeFunction(step.Name, 0, func(objmodel.FunctionCall) objmodel.Value {
			return v
		}), nil
	}
	return nil, errors.Errorf("unknown kind %q", step.Kind)
}

func exportDescriptor(desc objmodel.PropertyDescriptor) map[string]interface{} {
	m := make(map[string]interface{})
	if desc.Value != nil {
		m["value"] = desc.Value.Export()
	}
	if desc.Writable != objmodel.FLAG_NOT_SET {
		m["writable"] = desc.Writable.Bool()
	}
	if desc.Enumerable != objmodel.FLAG_NOT_SET {
		m["enumerable"] = desc.Enumerable.Bool()
	}
	if desc.Configurable != objmodel.FLAG_NOT_SET {
		m["configurable"] = desc.Configurable.Bool()
	}
	if desc.Getter != nil {
		m["get"] = !objmodel.IsUndefined(desc.Getter)
	}
	if desc.Setter != nil {
		m["set"] = !objmodel.IsUndefined(desc.Setter)
	}
	return m
}
