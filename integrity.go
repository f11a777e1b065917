package objmodel

// SetIntegrityLevel seals or freezes the object. Arrays mark their elements in one step
// instead of redefining every index.
func (o *Object) SetIntegrityLevel(level IntegrityLevel, strict bool) bool {
	if level == IntegrityNone {
		return true
	}
	if !o.self.preventExtensions(strict) {
		return false
	}
	keys := o.self.ownKeys()
	if a, ok := o.self.(*arrayObject); ok {
		a.setIntegrity(level)
		named := keys[:0]
		for _, key := range keys {
			if _, isIdx := key.ArrayIndex(); !isIdx {
				named = append(named, key)
			}
		}
		keys = named
	}
	for _, key := range keys {
		desc := PropertyDescriptor{Configurable: FLAG_FALSE}
		if level == IntegrityFrozen {
			cur, ok := o.self.getOwnProperty(key)
			if !ok {
				continue
			}
			if !cur.IsAccessor() {
				desc.Writable = FLAG_FALSE
			}
		}
		if !o.self.defineOwnProperty(key, desc, strict) {
			return false
		}
	}
	return true
}

// TestIntegrityLevel reports whether the object is at least sealed or frozen.
func (o *Object) TestIntegrityLevel(level IntegrityLevel) bool {
	if o.self.isExtensible() {
		return false
	}
	if level == IntegrityNone {
		return true
	}
	if a, ok := o.self.(*arrayObject); ok && a.integrity >= level && !a.store.hasAttributes() {
		return a.testNamedIntegrity(level)
	}
	for _, key := range o.self.ownKeys() {
		desc, ok := o.self.getOwnProperty(key)
		if !ok {
			continue
		}
		if desc.Configurable == FLAG_TRUE {
			return false
		}
		if level == IntegrityFrozen && desc.IsData() && desc.Writable == FLAG_TRUE {
			return false
		}
	}
	return true
}

func (a *arrayObject) testNamedIntegrity(level IntegrityLevel) bool {
	ok := true
	a.forEachOwn(func(_ PropertyKey, _ Value, flags propFlags) {
		if flags.configurable() || level == IntegrityFrozen && !flags.accessor() && flags.writable() {
			ok = false
		}
	})
	return ok
}

func (o *Object) Seal(strict bool) bool {
	return o.SetIntegrityLevel(IntegritySealed, strict)
}

func (o *Object) Freeze(strict bool) bool {
	return o.SetIntegrityLevel(IntegrityFrozen, strict)
}

func (o *Object) IsSealed() bool {
	return o.TestIntegrityLevel(IntegritySealed)
}

func (o *Object) IsFrozen() bool {
	return o.TestIntegrityLevel(IntegrityFrozen)
}
