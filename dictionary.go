package objmodel

import (
	"github.com/sirupsen/logrus"
)

type propertyEntry struct {
	key     PropertyKey
	value   Value
	flags   propFlags
	deleted bool
}

// propertyTable is an insertion-ordered key -> property map. Removed entries leave a
// tombstone until the table is compacted.
type propertyTable struct {
	index   map[PropertyKey]int
	entries []propertyEntry
	count   int
	shrunk  bool
}

func newPropertyTable(capacity int) *propertyTable {
	return &propertyTable{
		index:   make(map[PropertyKey]int, capacity),
		entries: make([]propertyEntry, 0, capacity),
	}
}

func (t *propertyTable) len() int {
	return t.count
}

func (t *propertyTable) lookup(key PropertyKey) (Value, propFlags, bool) {
	if i, ok := t.index[key]; ok {
		e := &t.entries[i]
		return e.value, e.flags, true
	}
	return nil, 0, false
}

func (t *propertyTable) setValue(key PropertyKey, v Value) {
	if i, ok := t.index[key]; ok {
		t.entries[i].value = v
	}
}

// put adds a property at the end or updates an existing one in place.
func (t *propertyTable) put(key PropertyKey, v Value, flags propFlags) {
	if i, ok := t.index[key]; ok {
		t.entries[i].value = v
		t.entries[i].flags = flags
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, propertyEntry{key: key, value: v, flags: flags})
	t.count++
}

func (t *propertyTable) remove(key PropertyKey) {
	i, ok := t.index[key]
	if !ok {
		return
	}
	delete(t.index, key)
	t.entries[i] = propertyEntry{deleted: true}
	t.count--
	t.shrunk = true
	if len(t.entries) > 16 && t.count < len(t.entries)/2 {
		t.compact()
	}
}

func (t *propertyTable) compact() {
	entries := make([]propertyEntry, 0, t.count)
	for _, e := range t.entries {
		if !e.deleted {
			t.index[e.key] = len(entries)
			entries = append(entries, e)
		}
	}
	t.entries = entries
}

func (t *propertyTable) forEach(fn func(key PropertyKey, v Value, flags propFlags)) {
	for i := 0; i < len(t.entries); i++ {
		e := &t.entries[i]
		if !e.deleted {
			fn(e.key, e.value, e.flags)
		}
	}
}

// dictObject is an ordinary object whose properties live in a propertyTable.
type dictObject struct {
	baseObject
}

func (d *dictObject) kind() Kind {
	return KindDictionary
}

func (d *dictObject) defineOwnProperty(key PropertyKey, desc PropertyDescriptor, throw bool) bool {
	_, oldFlags, existed := d.dict.lookup(key)
	if !d.baseObject.defineOwnProperty(key, desc, throw) {
		return false
	}
	if d.val.self != objectImpl(d) {
		return true
	}
	cfg := &d.val.runtime.config
	if d.dict.shrunk && d.dict.len() <= cfg.DictionaryReverseThreshold {
		d.toOrdinary("shrunk")
		return true
	}
	if existed && d.dict.len() < cfg.DictionaryThreshold {
		if _, flags, _ := d.dict.lookup(key); flags != oldFlags {
			d.toOrdinary("redefined " + key.String())
		}
	}
	return true
}

// shouldBecomeDictionary reports whether adding key to this object should switch it to
// dictionary mode. Only plain ordinary objects qualify.
func (o *baseObject) shouldBecomeDictionary(key PropertyKey) bool {
	if o.val.self != objectImpl(o) || o.class != classObject || o.val.runtime.initializing {
		return false
	}
	cfg := &o.val.runtime.config
	count := o.ownPropCount()
	if count == 0 && cfg.DictionaryOnIndexKey && key.isIndex() {
		return true
	}
	return cfg.DictionaryThreshold > 0 && count >= cfg.DictionaryThreshold
}

// toDictionary snapshots every property in creation order into a table and replaces the
// object implementation. The *Object identity is preserved.
func (o *baseObject) toDictionary() *dictObject {
	t := newPropertyTable(o.ownPropCount() + 1)
	o.forEachOwn(func(key PropertyKey, v Value, flags propFlags) {
		t.put(key, v, flags)
	})
	d := &dictObject{baseObject: *o}
	d.shape = nil
	d.slots = nil
	d.dict = t
	o.val.self = d
	o.val.runtime.logger.WithFields(logrus.Fields{
		"properties": t.len(),
	}).Debug("object switched to dictionary mode")
	return d
}

// toOrdinary rebuilds the shape layout from the table in creation order.
func (d *dictObject) toOrdinary(reason string) *baseObject {
	o := &baseObject{}
	*o = d.baseObject
	o.dict = nil
	o.shape = d.val.runtime.rootShape
	o.slots = make([]Value, 0, d.dict.len())
	d.dict.forEach(func(key PropertyKey, v Value, flags propFlags) {
		o.shape = o.shape.addProp(key, flags)
		o.slots = append(o.slots, v)
	})
	d.val.self = o
	d.val.runtime.logger.WithFields(logrus.Fields{
		"properties": len(o.slots),
		"reason":     reason,
	}).Debug("object switched back from dictionary mode")
	return o
}

// CreateDictionary creates an ordinary object that starts in dictionary mode.
func (r *Runtime) CreateDictionary(proto *Object) *Object {
	o := r.newBaseObject(proto, classObject)
	return o.toDictionary().val
}
