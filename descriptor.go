package objmodel

type Flag int

const (
	FLAG_NOT_SET Flag = iota
	FLAG_FALSE
	FLAG_TRUE
)

func (f Flag) Bool() bool {
	return f == FLAG_TRUE
}

func ToFlag(b bool) Flag {
	if b {
		return FLAG_TRUE
	}
	return FLAG_FALSE
}

// PropertyDescriptor is a possibly partial property description. A nil Value, Getter or
// Setter means the field is absent, FLAG_NOT_SET means an attribute is absent.
type PropertyDescriptor struct {
	Value Value

	Writable, Configurable, Enumerable Flag

	Getter, Setter Value
}

func (p *PropertyDescriptor) IsAccessor() bool {
	return p.Setter != nil || p.Getter != nil
}

func (p *PropertyDescriptor) IsData() bool {
	return p.Value != nil || p.Writable != FLAG_NOT_SET
}

func (p *PropertyDescriptor) IsGeneric() bool {
	return !p.IsAccessor() && !p.IsData()
}

func (p *PropertyDescriptor) IsEmpty() bool {
	return p.IsGeneric() && p.Enumerable == FLAG_NOT_SET && p.Configurable == FLAG_NOT_SET
}

// complete fills absent fields with their defaults.
func (p *PropertyDescriptor) complete() {
	if p.IsGeneric() || p.IsData() {
		if p.Value == nil {
			p.Value = _undefined
		}
		if p.Writable == FLAG_NOT_SET {
			p.Writable = FLAG_FALSE
		}
	} else {
		if p.Getter == nil {
			p.Getter = _undefined
		}
		if p.Setter == nil {
			p.Setter = _undefined
		}
	}
	if p.Enumerable == FLAG_NOT_SET {
		p.Enumerable = FLAG_FALSE
	}
	if p.Configurable == FLAG_NOT_SET {
		p.Configurable = FLAG_FALSE
	}
}

func (p *PropertyDescriptor) flags() propFlags {
	var f propFlags
	if p.IsAccessor() {
		f |= flagAccessor
	} else if p.Writable == FLAG_TRUE {
		f |= flagWritable
	}
	if p.Enumerable == FLAG_TRUE {
		f |= flagEnumerable
	}
	if p.Configurable == FLAG_TRUE {
		f |= flagConfigurable
	}
	return f
}

// DataDescriptor returns a complete data descriptor.
func DataDescriptor(v Value, writable, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		Value:        v,
		Writable:     ToFlag(writable),
		Enumerable:   ToFlag(enumerable),
		Configurable: ToFlag(configurable),
	}
}

// AccessorDescriptor returns a complete accessor descriptor. Nil functions become undefined.
func AccessorDescriptor(getter, setter *Object, enumerable, configurable bool) PropertyDescriptor {
	p := PropertyDescriptor{
		Getter:       _undefined,
		Setter:       _undefined,
		Enumerable:   ToFlag(enumerable),
		Configurable: ToFlag(configurable),
	}
	if getter != nil {
		p.Getter = getter
	}
	if setter != nil {
		p.Setter = setter
	}
	return p
}

// fromPropertyDescriptor implements FromPropertyDescriptor. Only the fields present
// in d are emitted, so a partial descriptor stays partial.
func (r *Runtime) fromPropertyDescriptor(d PropertyDescriptor) *Object {
	o := r.NewObject()
	put := func(name string, v Value) {
		o.self._putProp(StrKey(name), v, true, true, true)
	}
	if d.Value != nil {
		put("value", d.Value)
	}
	if d.Writable != FLAG_NOT_SET {
		put("writable", valueBool(d.Writable.Bool()))
	}
	if d.Getter != nil {
		put("get", d.Getter)
	}
	if d.Setter != nil {
		put("set", d.Setter)
	}
	if d.Enumerable != FLAG_NOT_SET {
		put("enumerable", valueBool(d.Enumerable.Bool()))
	}
	if d.Configurable != FLAG_NOT_SET {
		put("configurable", valueBool(d.Configurable.Bool()))
	}
	return o
}

// toPropertyDescriptor implements ToPropertyDescriptor.
func (r *Runtime) toPropertyDescriptor(v Value) (ret PropertyDescriptor) {
	o, ok := v.(*Object)
	if !ok {
		panic(r.NewTypeError("Property description must be an object: %s", v.String()))
	}
	field := func(name string) Value {
		k := StrKey(name)
		if o.self.hasProperty(k) {
			return nilSafe(o.self.get(k, o))
		}
		return nil
	}
	if v := field("enumerable"); v != nil {
		ret.Enumerable = ToFlag(v.ToBoolean())
	}
	if v := field("configurable"); v != nil {
		ret.Configurable = ToFlag(v.ToBoolean())
	}
	if v := field("value"); v != nil {
		ret.Value = v
	}
	if v := field("writable"); v != nil {
		ret.Writable = ToFlag(v.ToBoolean())
	}
	if v := field("get"); v != nil {
		if v != _undefined {
			if obj, ok := v.(*Object); !ok || obj.self.assertCallable() == nil {
				panic(r.NewTypeError("Getter must be a function: %s", v.String()))
			}
		}
		ret.Getter = v
	}
	if v := field("set"); v != nil {
		if v != _undefined {
			if obj, ok := v.(*Object); !ok || obj.self.assertCallable() == nil {
				panic(r.NewTypeError("Setter must be a function: %s", v.String()))
			}
		}
		ret.Setter = v
	}
	if ret.IsAccessor() && ret.IsData() {
		panic(r.NewTypeError("Invalid property descriptor. Cannot both specify accessors and a value or writable attribute"))
	}
	return
}

// isCompatiblePropertyDescriptor implements IsCompatiblePropertyDescriptor
// (ValidateAndApplyPropertyDescriptor without an object).
func isCompatiblePropertyDescriptor(extensible bool, desc PropertyDescriptor, current PropertyDescriptor, hasCurrent bool) bool {
	if !hasCurrent {
		return extensible
	}
	if desc.IsEmpty() {
		return true
	}
	if current.Configurable == FLAG_FALSE {
		if desc.Configurable == FLAG_TRUE {
			return false
		}
		if desc.Enumerable != FLAG_NOT_SET && desc.Enumerable != current.Enumerable {
			return false
		}
		if !desc.IsGeneric() && desc.IsAccessor() != current.IsAccessor() {
			return false
		}
		if current.IsAccessor() {
			if desc.Getter != nil && !desc.Getter.SameAs(nilSafe(current.Getter)) {
				return false
			}
			if desc.Setter != nil && !desc.Setter.SameAs(nilSafe(current.Setter)) {
				return false
			}
		} else if current.Writable == FLAG_FALSE {
			if desc.Writable == FLAG_TRUE {
				return false
			}
			if desc.Value != nil && !desc.Value.SameAs(nilSafe(current.Value)) {
				return false
			}
		}
	}
	return true
}

// mergeDescriptor returns current updated with the present fields of desc, converting
// between data and accessor kinds as needed.
func mergeDescriptor(current, desc PropertyDescriptor) PropertyDescriptor {
	if !desc.IsGeneric() && desc.IsAccessor() != current.IsAccessor() {
		conf, enum := current.Configurable, current.Enumerable
		if desc.IsAccessor() {
			current = PropertyDescriptor{Getter: _undefined, Setter: _undefined}
		} else {
			current = PropertyDescriptor{Value: _undefined, Writable: FLAG_FALSE}
		}
		current.Configurable, current.Enumerable = conf, enum
	}
	if desc.Value != nil {
		current.Value = desc.Value
	}
	if desc.Writable != FLAG_NOT_SET {
		current.Writable = desc.Writable
	}
	if desc.Getter != nil {
		current.Getter = desc.Getter
	}
	if desc.Setter != nil {
		current.Setter = desc.Setter
	}
	if desc.Enumerable != FLAG_NOT_SET {
		current.Enumerable = desc.Enumerable
	}
	if desc.Configurable != FLAG_NOT_SET {
		current.Configurable = desc.Configurable
	}
	return current
}
