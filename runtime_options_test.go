package objmodel

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debugLogger() (*logrus.Logger, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func entriesWithMessage(hook *logtest.Hook, msg string) []logrus.Entry {
	var res []logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			res = append(res, *e)
		}
	}
	return res
}

func TestWithConfig(t *testing.T) {
	c := DefaultConfig()
	c.SparseMinIndex = 10
	r := New(WithConfig(c))
	assert.Equal(t, uint32(10), r.Config().SparseMinIndex)

	// the option copies the config
	c.SparseMinIndex = 20
	assert.Equal(t, uint32(10), r.Config().SparseMinIndex)

	assert.Equal(t, DefaultConfig(), New().Config())
}

func TestWithLogger(t *testing.T) {
	logger, hook := debugLogger()
	r := New(WithLogger(logger))
	assert.Same(t, logger, r.Logger())

	a := r.NewArray(1, 2)
	a.Set(IdxKey(0), valueString("x"), true)
	entries := entriesWithMessage(hook, "array representation changed")
	require.Len(t, entries, 1)
	assert.Equal(t, "ZeroBasedInt32", entries[0].Data["from"])
	assert.Equal(t, "ZeroBasedObject", entries[0].Data["to"])
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)

	o := r.NewObject()
	o.Set(IdxKey(0), valueTrue, true)
	entries = entriesWithMessage(hook, "object switched to dictionary mode")
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Data["properties"])

	o.DefineOwnProperty(IdxKey(0), PropertyDescriptor{Writable: FLAG_FALSE}, true)
	entries = entriesWithMessage(hook, "object switched back from dictionary mode")
	require.Len(t, entries, 1)
	assert.Equal(t, "redefined 0", entries[0].Data["reason"])

	buf := r.NewArrayBuffer([]byte{1, 2, 3})
	buf.Detach()
	assert.Len(t, entriesWithMessage(hook, "array buffer detached"), 1)

	p := r.NewRevocableProxy(r.NewObject(), r.NewObject())
	p.Revoke()
	assert.Len(t, entriesWithMessage(hook, "proxy revoked"), 1)
}

func TestDefaultLoggerDiscards(t *testing.T) {
	r := New()
	require.NotNil(t, r.Logger())
	// transitions must not fail without a configured logger
	a := r.NewArray(1)
	a.Set(IdxKey(100000), valueTrue, true)
	rep, _ := a.ArrayRepresentation()
	assert.Equal(t, RepresentationSparse, rep)
}
