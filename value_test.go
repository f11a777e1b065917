package objmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberToString(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{100, "100"},
		{-42, "-42"},
		{1.5, "1.5"},
		{123.456, "123.456"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e-6, "0.000001"},
		{1.5e-6, "0.0000015"},
		{1e-7, "1e-7"},
		{-1.25e-7, "-1.25e-7"},
		{123456789012345680000, "123456789012345680000"},
		{1e21, "1e+21"},
		{-1e21, "-1e+21"},
		{1.2345e22, "1.2345e+22"},
		{math.MaxFloat64, "1.7976931348623157e+308"},
		{5e-324, "5e-324"},
	}
	for _, tc := range tests {
		if got := numberToString(tc.f); got != tc.want {
			t.Errorf("numberToString(%v): expected %q, got %q", tc.f, tc.want, got)
		}
	}
}

func TestStringToNumber(t *testing.T) {
	tests := []struct {
		s    string
		want float64
	}{
		{"", 0},
		{"  \n", 0},
		{" 42 ", 42},
		{"-1.5", -1.5},
		{"+.5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"1E-2", 0.01},
		{"0x10", 16},
		{"0O17", 15},
		{"0b101", 5},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e400", math.Inf(1)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, stringToNumber(tc.s), "%q", tc.s)
	}

	for _, s := range []string{"abc", "0x", "0xg", "-0x10", "1_000", "0b1_0", "inf", "1e", ".", "1.2.3", "infinity"} {
		assert.True(t, math.IsNaN(stringToNumber(s)), "%q", s)
	}
}

func TestFloatToValueNormalises(t *testing.T) {
	assert.Equal(t, valueInt(3), floatToValue(3))
	assert.Equal(t, valueFloat(3.5), floatToValue(3.5))
	assert.True(t, floatToValue(math.Copysign(0, -1)).SameAs(_negativeZero))
	assert.False(t, floatToValue(0).SameAs(_negativeZero))
	assert.True(t, floatToValue(0).StrictEquals(_negativeZero))
}
