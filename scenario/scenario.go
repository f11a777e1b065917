// Package scenario runs object-model scenarios described in YAML: a list of steps that
// create objects and apply internal methods to them, each optionally checked against an
// expected result or error kind.
package scenario

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dop251/objmodel"
)

// VersionConstraint is the range of scenario document versions understood by this package.
const VersionConstraint = "^1.0"

type Document struct {
	Version string `yaml:"version"`
	// Config is decoded on top of the runner's base configuration.
	Config yaml.Node `yaml:"config"`
	Steps  []Step    `yaml:"steps"`
}

// Step is one operation. Which fields are used depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Name registers the object created by "new".
	Name string `yaml:"name"`
	// Object is the registered object the operation applies to.
	Object string `yaml:"object"`

	Kind     string        `yaml:"kind"`
	Proto    string        `yaml:"proto"`
	Elements []interface{} `yaml:"elements"`

	Key string `yaml:"key"`
	// Symbol names a symbol key; symbols are created on first use.
	Symbol string      `yaml:"symbol"`
	Value  interface{} `yaml:"value"`
	// Ref names a registered object used as the value.
	Ref string `yaml:"ref"`

	Writable     *bool  `yaml:"writable"`
	Enumerable   *bool  `yaml:"enumerable"`
	Configurable *bool  `yaml:"configurable"`
	Getter       string `yaml:"getter"`
	Setter       string `yaml:"setter"`

	Strict bool `yaml:"strict"`

	ByteLength    int    `yaml:"byteLength"`
	MaxByteLength *int   `yaml:"maxByteLength"`
	Offset        int    `yaml:"offset"`
	Length        *int   `yaml:"length"`
	Type          string `yaml:"type"`

	Target  string `yaml:"target"`
	Handler string `yaml:"handler"`
	// Traps makes a handler whose traps return constant values.
	Traps map[string]interface{} `yaml:"traps"`

	Expect interface{} `yaml:"expect"`
	// Error is the expected error kind, "TypeError" or "RangeError".
	Error string `yaml:"error"`
}

// Parse decodes and version-checks a scenario document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "could not parse scenario")
	}
	v, err := semver.NewVersion(doc.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid scenario version %q", doc.Version)
	}
	constraint, err := semver.NewConstraint(VersionConstraint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid version constraint")
	}
	if !constraint.Check(v) {
		return nil, errors.Errorf("scenario version %s does not satisfy %s", doc.Version, VersionConstraint)
	}
	return &doc, nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read scenario %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return doc, nil
}

// EffectiveConfig returns the configuration the scenario runs with: the scenario's own
// settings decoded on top of base.
func (d *Document) EffectiveConfig(base objmodel.Config) (objmodel.Config, error) {
	c := base
	if !d.Config.IsZero() {
		if err := d.Config.Decode(&c); err != nil {
			return c, errors.Wrap(err, "could not decode scenario config")
		}
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrap(err, "scenario config")
	}
	return c, nil
}
