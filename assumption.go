package objmodel

import (
	"github.com/sirupsen/logrus"
)

// assumption is a runtime-owned fast-path flag. Once invalidated it stays invalid.
type assumption struct {
	name  string
	valid bool
}

func newAssumption(name string) assumption {
	return assumption{name: name, valid: true}
}

func (a *assumption) isValid() bool {
	return a.valid
}

func (a *assumption) invalidate(r *Runtime, reason string) {
	if !a.valid {
		return
	}
	a.valid = false
	r.logger.WithFields(logrus.Fields{
		"assumption": a.name,
		"reason":     reason,
	}).Debug("assumption invalidated")
}

// isIndexedProtoHolder reports whether o is one of the prototypes covered by the
// "no elements on the prototype chain of arrays" assumption.
func (r *Runtime) isIndexedProtoHolder(o *Object) bool {
	return o != nil && (o == r.global.ArrayPrototype || o == r.global.ObjectPrototype)
}

// NoPrototypeElements reports whether Array.prototype and Object.prototype are still
// known to hold no index properties.
func (r *Runtime) NoPrototypeElements() bool {
	return r.noProtoElements.isValid()
}
