package objmodel

type propFlags uint8

const (
	flagWritable propFlags = 1 << iota
	flagEnumerable
	flagConfigurable
	flagAccessor
	flagComputed

	flagsDefault = flagWritable | flagEnumerable | flagConfigurable
)

func (f propFlags) writable() bool     { return f&flagWritable != 0 }
func (f propFlags) enumerable() bool   { return f&flagEnumerable != 0 }
func (f propFlags) configurable() bool { return f&flagConfigurable != 0 }
func (f propFlags) accessor() bool     { return f&flagAccessor != 0 }

func makeFlags(writable, enumerable, configurable bool) propFlags {
	var f propFlags
	if writable {
		f |= flagWritable
	}
	if enumerable {
		f |= flagEnumerable
	}
	if configurable {
		f |= flagConfigurable
	}
	return f
}

// shapeIndexMin is the property count from which a shape carries a key index
// instead of being scanned linearly.
const shapeIndexMin = 8

type shapeProp struct {
	key   PropertyKey
	flags propFlags
}

type shapeTransition struct {
	key   PropertyKey
	flags propFlags
}

// shape is an immutable property layout: keys in creation order with their attribute
// flags. The slot of a property is its position in props. Shapes are shared by all
// objects built through the same sequence of additions.
type shape struct {
	parent      *shape
	props       []shapeProp
	index       map[PropertyKey]int
	transitions map[shapeTransition]*shape
}

func newRootShape() *shape {
	return &shape{}
}

func (s *shape) root() *shape {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *shape) size() int {
	return len(s.props)
}

func (s *shape) lookup(key PropertyKey) (int, propFlags, bool) {
	if s.index != nil {
		if i, ok := s.index[key]; ok {
			return i, s.props[i].flags, true
		}
		return -1, 0, false
	}
	for i := range s.props {
		if s.props[i].key == key {
			return i, s.props[i].flags, true
		}
	}
	return -1, 0, false
}

func (s *shape) addProp(key PropertyKey, flags propFlags) *shape {
	t := shapeTransition{key: key, flags: flags}
	if next := s.transitions[t]; next != nil {
		return next
	}
	props := make([]shapeProp, len(s.props)+1)
	copy(props, s.props)
	props[len(s.props)] = shapeProp{key: key, flags: flags}
	next := &shape{
		parent: s,
		props:  props,
	}
	if len(props) >= shapeIndexMin {
		next.index = make(map[PropertyKey]int, len(props))
		for i, p := range props {
			next.index[p.key] = i
		}
	}
	if s.transitions == nil {
		s.transitions = make(map[shapeTransition]*shape)
	}
	s.transitions[t] = next
	return next
}

// withFlags returns the layout where the property at slot i has the given flags.
// The result is rebuilt from the root so that it goes through cached transitions.
func (s *shape) withFlags(i int, flags propFlags) *shape {
	if s.props[i].flags == flags {
		return s
	}
	n := s.root()
	for j, p := range s.props {
		if j == i {
			n = n.addProp(p.key, flags)
		} else {
			n = n.addProp(p.key, p.flags)
		}
	}
	return n
}

// without returns the layout with the property at slot i removed. Slots after i shift down by one.
func (s *shape) without(i int) *shape {
	n := s.root()
	for j, p := range s.props {
		if j != i {
			n = n.addProp(p.key, p.flags)
		}
	}
	return n
}

// accessorPair is the slot payload of an accessor property.
type accessorPair struct {
	valueInternal
	getter, setter *Object
}

// computedProperty is a slot payload whose value is produced by native code. It is seen by
// the object model as a data property.
type computedProperty struct {
	valueInternal
	get func(this *Object) Value
	set func(this *Object, v Value, throw bool) bool
}
