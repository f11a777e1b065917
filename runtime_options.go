package objmodel

import (
	"github.com/sirupsen/logrus"
)

type Option interface {
	apply(*options)
}

type options struct {
	config *Config
	logger logrus.FieldLogger
}

type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithConfig sets the representation thresholds. The config is used as is; call
// Config.Validate first if it comes from an untrusted source.
func WithConfig(c Config) Option {
	return newFuncOption(func(o *options) {
		o.config = &c
	})
}

// WithLogger sets the logger representation transitions are reported to (at Debug level).
func WithLogger(l logrus.FieldLogger) Option {
	return newFuncOption(func(o *options) {
		o.logger = l
	})
}
