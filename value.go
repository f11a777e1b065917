package objmodel

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

var (
	valueFalse    Value = valueBool(false)
	valueTrue     Value = valueBool(true)
	_null         Value = valueNull{}
	_undefined    Value = valueUndefined{}
	_NaN          Value = valueFloat(math.NaN())
	_positiveInf  Value = valueFloat(math.Inf(+1))
	_negativeInf  Value = valueFloat(math.Inf(-1))
	_positiveZero Value = valueInt(0)
	negativeZero        = math.Float64frombits(0 | (1 << 63))
	_negativeZero Value = valueFloat(negativeZero)
)

const (
	maxSafeInt = 1<<53 - 1
	minSafeInt = -maxSafeInt
)

// Value is a language value: undefined, null, a boolean, a number, a string, a BigInt,
// a *Symbol or an *Object.
type Value interface {
	ToInteger() int64
	String() string
	ToFloat() float64
	ToNumber() Value
	ToBoolean() bool
	SameAs(Value) bool
	StrictEquals(Value) bool
	Export() interface{}
}

type valueInt int64
type valueFloat float64
type valueBool bool
type valueString string
type valueNull struct{}
type valueUndefined struct{}
type valueBigInt big.Int

// valueInternal is embedded by slot payloads that are stored alongside values
// (accessor pairs, computed properties, flagged array elements) but never escape to callers.
type valueInternal struct{}

func (valueInternal) ToInteger() int64        { return 0 }
func (valueInternal) String() string          { return "" }
func (valueInternal) ToFloat() float64        { return math.NaN() }
func (valueInternal) ToNumber() Value         { return _NaN }
func (valueInternal) ToBoolean() bool         { return false }
func (valueInternal) SameAs(Value) bool       { return false }
func (valueInternal) StrictEquals(Value) bool { return false }
func (valueInternal) Export() interface{}     { return nil }

// Undefined returns the undefined value.
func Undefined() Value {
	return _undefined
}

// Null returns the null value.
func Null() Value {
	return _null
}

func IsUndefined(v Value) bool {
	return v == _undefined
}

func IsNull(v Value) bool {
	return v == _null
}

// IsNaN reports whether v is a number with the value NaN.
func IsNaN(v Value) bool {
	f, ok := v.(valueFloat)
	return ok && math.IsNaN(float64(f))
}

func nilSafe(v Value) Value {
	if v != nil {
		return v
	}
	return _undefined
}

func intToValue(i int64) Value {
	return valueInt(i)
}

func floatToValue(f float64) Value {
	if f == 0 {
		if math.Signbit(f) {
			return _negativeZero
		}
		return _positiveZero
	}
	if f >= minSafeInt && f <= maxSafeInt && f == math.Trunc(f) {
		return valueInt(int64(f))
	}
	return valueFloat(f)
}

// ToValue converts a Go primitive into a Value. Values are returned unchanged.
func ToValue(i interface{}) Value {
	switch i := i.(type) {
	case nil:
		return _null
	case Value:
		return i
	case bool:
		return valueBool(i)
	case int:
		return intToValue(int64(i))
	case int8:
		return intToValue(int64(i))
	case int16:
		return intToValue(int64(i))
	case int32:
		return intToValue(int64(i))
	case int64:
		return floatOrInt(i)
	case uint8:
		return intToValue(int64(i))
	case uint16:
		return intToValue(int64(i))
	case uint32:
		return intToValue(int64(i))
	case uint64:
		if i <= maxSafeInt {
			return intToValue(int64(i))
		}
		return valueFloat(float64(i))
	case float32:
		return floatToValue(float64(i))
	case float64:
		return floatToValue(i)
	case string:
		return valueString(i)
	case *big.Int:
		return (*valueBigInt)(new(big.Int).Set(i))
	}
	return _undefined
}

func floatOrInt(i int64) Value {
	if i >= minSafeInt && i <= maxSafeInt {
		return valueInt(i)
	}
	return valueFloat(float64(i))
}

// NewString returns a string value.
func NewString(s string) Value {
	return valueString(s)
}

// NewBigInt returns a BigInt value holding a copy of i.
func NewBigInt(i *big.Int) Value {
	return (*valueBigInt)(new(big.Int).Set(i))
}

func (i valueInt) ToInteger() int64 {
	return int64(i)
}

func (i valueInt) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (i valueInt) ToFloat() float64 {
	return float64(i)
}

func (i valueInt) ToNumber() Value {
	return i
}

func (i valueInt) ToBoolean() bool {
	return i != 0
}

func (i valueInt) SameAs(other Value) bool {
	switch o := other.(type) {
	case valueInt:
		return i == o
	case valueFloat:
		return float64(i) == float64(o) && !(i == 0 && math.Signbit(float64(o)))
	}
	return false
}

func (i valueInt) StrictEquals(other Value) bool {
	switch o := other.(type) {
	case valueInt:
		return i == o
	case valueFloat:
		return float64(i) == float64(o)
	}
	return false
}

func (i valueInt) Export() interface{} {
	return int64(i)
}

func (f valueFloat) ToInteger() int64 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case math.IsInf(float64(f), 1):
		return math.MaxInt64
	case math.IsInf(float64(f), -1):
		return math.MinInt64
	}
	return int64(f)
}

func (f valueFloat) String() string {
	return numberToString(float64(f))
}

func (f valueFloat) ToFloat() float64 {
	return float64(f)
}

func (f valueFloat) ToNumber() Value {
	return f
}

func (f valueFloat) ToBoolean() bool {
	return float64(f) != 0 && !math.IsNaN(float64(f))
}

func (f valueFloat) SameAs(other Value) bool {
	switch o := other.(type) {
	case valueFloat:
		this := float64(f)
		o1 := float64(o)
		if math.IsNaN(this) && math.IsNaN(o1) {
			return true
		}
		return this == o1 && math.Signbit(this) == math.Signbit(o1)
	case valueInt:
		return o.SameAs(f)
	}
	return false
}

func (f valueFloat) StrictEquals(other Value) bool {
	switch o := other.(type) {
	case valueFloat:
		return f == o
	case valueInt:
		return float64(f) == float64(o)
	}
	return false
}

func (f valueFloat) Export() interface{} {
	return float64(f)
}

func (b valueBool) ToInteger() int64 {
	if b {
		return 1
	}
	return 0
}

func (b valueBool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b valueBool) ToFloat() float64 {
	if b {
		return 1
	}
	return 0
}

func (b valueBool) ToNumber() Value {
	if b {
		return valueInt(1)
	}
	return valueInt(0)
}

func (b valueBool) ToBoolean() bool {
	return bool(b)
}

func (b valueBool) SameAs(other Value) bool {
	o, ok := other.(valueBool)
	return ok && b == o
}

func (b valueBool) StrictEquals(other Value) bool {
	return b.SameAs(other)
}

func (b valueBool) Export() interface{} {
	return bool(b)
}

func (s valueString) ToInteger() int64 {
	return s.ToNumber().ToInteger()
}

func (s valueString) String() string {
	return string(s)
}

func (s valueString) ToFloat() float64 {
	return stringToNumber(string(s))
}

func (s valueString) ToNumber() Value {
	return floatToValue(stringToNumber(string(s)))
}

func (s valueString) ToBoolean() bool {
	return len(s) > 0
}

func (s valueString) SameAs(other Value) bool {
	o, ok := other.(valueString)
	return ok && s == o
}

func (s valueString) StrictEquals(other Value) bool {
	return s.SameAs(other)
}

func (s valueString) Export() interface{} {
	return string(s)
}

func (valueNull) ToInteger() int64 {
	return 0
}

func (valueNull) String() string {
	return "null"
}

func (valueNull) ToFloat() float64 {
	return 0
}

func (valueNull) ToNumber() Value {
	return _positiveZero
}

func (valueNull) ToBoolean() bool {
	return false
}

func (valueNull) SameAs(other Value) bool {
	_, same := other.(valueNull)
	return same
}

func (n valueNull) StrictEquals(other Value) bool {
	return n.SameAs(other)
}

func (valueNull) Export() interface{} {
	return nil
}

func (valueUndefined) ToInteger() int64 {
	return 0
}

func (valueUndefined) String() string {
	return "undefined"
}

func (valueUndefined) ToFloat() float64 {
	return math.NaN()
}

func (valueUndefined) ToNumber() Value {
	return _NaN
}

func (valueUndefined) ToBoolean() bool {
	return false
}

func (valueUndefined) SameAs(other Value) bool {
	_, same := other.(valueUndefined)
	return same
}

func (u valueUndefined) StrictEquals(other Value) bool {
	return u.SameAs(other)
}

func (valueUndefined) Export() interface{} {
	return nil
}

func (b *valueBigInt) big() *big.Int {
	return (*big.Int)(b)
}

func (b *valueBigInt) ToInteger() int64 {
	return b.big().Int64()
}

func (b *valueBigInt) String() string {
	return b.big().String()
}

func (b *valueBigInt) ToFloat() float64 {
	f, _ := new(big.Float).SetInt(b.big()).Float64()
	return f
}

func (b *valueBigInt) ToNumber() Value {
	return floatToValue(b.ToFloat())
}

func (b *valueBigInt) ToBoolean() bool {
	return b.big().Sign() != 0
}

func (b *valueBigInt) SameAs(other Value) bool {
	o, ok := other.(*valueBigInt)
	return ok && b.big().Cmp(o.big()) == 0
}

func (b *valueBigInt) StrictEquals(other Value) bool {
	return b.SameAs(other)
}

func (b *valueBigInt) Export() interface{} {
	return new(big.Int).Set(b.big())
}

// numberToString implements Number::toString(10).
func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	var sb strings.Builder
	if f < 0 {
		sb.WriteByte('-')
		f = -f
	}
	// shortest round-trip digits and the decimal exponent
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expStr, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expStr)
	k := len(digits)
	n := exp + 1

	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		if n-1 >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(n - 1))
	}
	return sb.String()
}

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// stringToNumber implements StringToNumber.
func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSSpace)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			var v big.Int
			if _, ok := v.SetString(s[2:], base); !ok || strings.ContainsAny(s[2:], "_+-") {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(&v).Float64()
			return f
		}
	}
	sign := 1.0
	body := s
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		sign = -1
		body = body[1:]
	}
	if body == "Infinity" {
		return sign * math.Inf(1)
	}
	if !isDecimalLiteral(body) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return sign * f
		}
		return math.NaN()
	}
	return sign * f
}

func isDecimalLiteral(s string) bool {
	digits := 0
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}
	return i == len(s)
}

// toIntegerOrInfinity implements ToIntegerOrInfinity on an already numeric value.
func toIntegerOrInfinity(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 0) {
		return f
	}
	t := math.Trunc(f)
	if t == 0 {
		return 0
	}
	return t
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	f = math.Mod(f, 1<<32)
	if f < 0 {
		f += 1 << 32
	}
	return uint32(f)
}

func toUint16(f float64) uint16 {
	return uint16(toUint32(f))
}

func toUint8(f float64) uint8 {
	return uint8(toUint32(f))
}

func toUint8Clamp(f float64) uint8 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(f))
}

func toBigInt64(b *big.Int) int64 {
	return int64(toBigUint64(b))
}

var twoTo64 = new(big.Int).Lsh(big.NewInt(1), 64)

func toBigUint64(b *big.Int) uint64 {
	var m big.Int
	m.Mod(b, twoTo64)
	return m.Uint64()
}

func bigZero() *big.Int {
	return new(big.Int)
}

func bigOne() *big.Int {
	return big.NewInt(1)
}

// stringToBigInt implements StringToBigInt.
func stringToBigInt(s string) (*big.Int, bool) {
	s = strings.TrimFunc(s, isJSSpace)
	if s == "" {
		return bigZero(), true
	}
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			s = s[2:]
			if strings.ContainsAny(s, "+-_") {
				return nil, false
			}
		}
	}
	if base == 10 {
		digits := strings.TrimLeft(s, "+-")
		if len(s)-len(digits) > 1 || digits == "" || strings.Trim(digits, "0123456789") != "" {
			return nil, false
		}
	}
	b, ok := new(big.Int).SetString(s, base)
	return b, ok
}
