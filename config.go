package objmodel

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/mstoykov/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ConfigVersionConstraint is the range of config file versions this package understands.
const ConfigVersionConstraint = "^1.0"

// Config holds the representation tuning knobs of a Runtime. None of them is observable
// from the object model except through performance.
type Config struct {
	Version string `yaml:"version" envconfig:"OBJMODEL_CONFIG_VERSION"`

	// DictionaryThreshold is the own property count at which an ordinary object switches
	// to dictionary mode. Zero disables the count trigger.
	DictionaryThreshold int `yaml:"dictionaryThreshold" envconfig:"OBJMODEL_DICTIONARY_THRESHOLD"`
	// DictionaryReverseThreshold is the size at or below which a dictionary that has lost
	// properties switches back to shape storage.
	DictionaryReverseThreshold int `yaml:"dictionaryReverseThreshold" envconfig:"OBJMODEL_DICTIONARY_REVERSE_THRESHOLD"`
	// DictionaryOnIndexKey switches an empty object to dictionary mode when its first
	// property is an array index.
	DictionaryOnIndexKey bool `yaml:"dictionaryOnIndexKey" envconfig:"OBJMODEL_DICTIONARY_ON_INDEX_KEY"`

	// SparseMinIndex and SparseDensity control when a write far past the end of a dense
	// array switches it to sparse storage: index > SparseMinIndex and
	// index / elementCount > SparseDensity.
	SparseMinIndex uint32 `yaml:"sparseMinIndex" envconfig:"OBJMODEL_SPARSE_MIN_INDEX"`
	SparseDensity  uint32 `yaml:"sparseDensity" envconfig:"OBJMODEL_SPARSE_DENSITY"`
	// DenseRevertMinItems is the element count from which a sufficiently dense sparse
	// array switches back to dense storage.
	DenseRevertMinItems int `yaml:"denseRevertMinItems" envconfig:"OBJMODEL_DENSE_REVERT_MIN_ITEMS"`

	LogLevel string `yaml:"logLevel" envconfig:"OBJMODEL_LOG_LEVEL"`
}

func DefaultConfig() Config {
	return Config{
		Version:                    "1.0",
		DictionaryThreshold:        256,
		DictionaryReverseThreshold: 32,
		DictionaryOnIndexKey:       true,
		SparseMinIndex:             4096,
		SparseDensity:              10,
		DenseRevertMinItems:        1024,
		LogLevel:                   "info",
	}
}

// Validate checks the version constraint and the consistency of the thresholds.
func (c *Config) Validate() error {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return errors.Wrapf(err, "invalid config version %q", c.Version)
	}
	constraint, err := semver.NewConstraint(ConfigVersionConstraint)
	if err != nil {
		return errors.Wrap(err, "invalid version constraint")
	}
	if !constraint.Check(v) {
		return errors.Errorf("config version %s does not satisfy %s", c.Version, ConfigVersionConstraint)
	}
	if c.DictionaryThreshold < 0 {
		return errors.Errorf("dictionaryThreshold must not be negative, got %d", c.DictionaryThreshold)
	}
	if c.DictionaryThreshold > 0 && c.DictionaryReverseThreshold >= c.DictionaryThreshold {
		return errors.Errorf("dictionaryReverseThreshold (%d) must be below dictionaryThreshold (%d)",
			c.DictionaryReverseThreshold, c.DictionaryThreshold)
	}
	if c.SparseDensity == 0 {
		return errors.New("sparseDensity must be positive")
	}
	if c.DenseRevertMinItems <= 0 {
		return errors.New("denseRevertMinItems must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid logLevel")
	}
	return nil
}

// ParseConfig decodes YAML on top of the defaults.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrap(err, "could not parse config")
	}
	return c, nil
}

// LoadConfig reads the YAML file at path (if not empty), applies environment overrides
// from lookup (os.LookupEnv if nil) and validates the result.
func LoadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrapf(err, "could not read config file %s", path)
		}
		if c, err = ParseConfig(data); err != nil {
			return c, errors.Wrapf(err, "config file %s", path)
		}
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyEnv overrides fields from OBJMODEL_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := envconfig.Process("", c, lookup); err != nil {
		return errors.Wrap(err, "could not apply environment overrides")
	}
	return nil
}
