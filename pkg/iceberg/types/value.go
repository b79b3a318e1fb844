package types

import (
	"bytes"
	"math"
	"math/big"
	"time"
)

// Value is a typed field value usable as a partition key component or as a
// column bound (lower/upper) in a data file's statistics.
type Value struct {
	Kind PrimitiveKind

	boolVal      bool
	int64Val     int64
	floatVal     float64
	stringVal    string
	bytesVal     []byte
	timeVal      time.Time
	decimalScale int32 // valid only when Kind == KindDecimal; int64Val holds the unscaled value
}

func Bool(v bool) Value           { return Value{Kind: KindBoolean, boolVal: v} }
func Int32(v int32) Value         { return Value{Kind: KindInt32, int64Val: int64(v)} }
func Int64(v int64) Value         { return Value{Kind: KindInt64, int64Val: v} }
func Float32(v float32) Value     { return Value{Kind: KindFloat32, floatVal: float64(v)} }
func Float64(v float64) Value     { return Value{Kind: KindFloat64, floatVal: v} }
func String(v string) Value       { return Value{Kind: KindString, stringVal: v} }
func Binary(v []byte) Value       { return Value{Kind: KindBinary, bytesVal: v} }
func Timestamp(v time.Time) Value { return Value{Kind: KindTimestamp, timeVal: v} }

// Decimal builds a KindDecimal value from its unscaled integer
// representation and scale, the same (unscaled, scale) pair Iceberg's
// decimal(P,S) logical type serializes.
func Decimal(unscaled int64, scale int32) Value {
	return Value{Kind: KindDecimal, int64Val: unscaled, decimalScale: scale}
}

func (v Value) AsBool() bool       { return v.boolVal }
func (v Value) AsInt64() int64     { return v.int64Val }
func (v Value) AsFloat64() float64 { return v.floatVal }
func (v Value) AsString() string   { return v.stringVal }
func (v Value) AsBytes() []byte    { return v.bytesVal }
func (v Value) AsTime() time.Time  { return v.timeVal }

// AsDecimal returns the unscaled integer value and scale of a KindDecimal
// value.
func (v Value) AsDecimal() (unscaled int64, scale int32) { return v.int64Val, v.decimalScale }

// Compare orders two values of the same Kind. Result follows the usual
// -1/0/1 convention. Comparing values of different kinds panics, since that
// indicates a programming error (e.g. comparing a bucketed partition value
// against a raw source column value).
//
// Float comparison treats NaN as sorting after every other value of its
// kind (ascending order puts NaN last) and two NaNs as equal to each
// other, rather than Go's IEEE-754 default where NaN compares false
// against everything including itself. -0.0 and +0.0 need no special
// handling: Go's </> already treat them as equal, which is the behavior
// required here too.
func (v Value) Compare(other Value) int {
	if v.Kind != other.Kind {
		panic("types: cannot compare values of different kinds")
	}
	switch v.Kind {
	case KindBoolean:
		if v.boolVal == other.boolVal {
			return 0
		}
		if !v.boolVal {
			return -1
		}
		return 1
	case KindInt32, KindInt64, KindDate:
		switch {
		case v.int64Val < other.int64Val:
			return -1
		case v.int64Val > other.int64Val:
			return 1
		default:
			return 0
		}
	case KindFloat32, KindFloat64:
		return compareFloat(v.floatVal, other.floatVal)
	case KindDecimal:
		return compareDecimal(v.int64Val, v.decimalScale, other.int64Val, other.decimalScale)
	case KindString, KindUUID:
		switch {
		case v.stringVal < other.stringVal:
			return -1
		case v.stringVal > other.stringVal:
			return 1
		default:
			return 0
		}
	case KindBinary:
		return bytes.Compare(v.bytesVal, other.bytesVal)
	case KindTimestamp, KindTimestampTZ:
		if v.timeVal.Before(other.timeVal) {
			return -1
		}
		if v.timeVal.After(other.timeVal) {
			return 1
		}
		return 0
	default:
		panic("types: unsupported kind for comparison")
	}
}

func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareDecimal aligns two (unscaled, scale) pairs to a common scale via
// exact integer arithmetic (no float rounding) before comparing, since two
// decimal values of the same logical type may still arrive with different
// scales from different writers.
func compareDecimal(aUnscaled int64, aScale int32, bUnscaled int64, bScale int32) int {
	a := big.NewInt(aUnscaled)
	b := big.NewInt(bUnscaled)
	switch {
	case aScale < bScale:
		a.Mul(a, pow10(bScale-aScale))
	case bScale < aScale:
		b.Mul(b, pow10(aScale-bScale))
	}
	return a.Cmp(b)
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
