package types

import (
	"fmt"
	"hash/fnv"
	"time"
)

// TransformKind is one of the Iceberg partition transforms.
type TransformKind int

const (
	TransformIdentity TransformKind = iota
	TransformYear
	TransformMonth
	TransformDay
	TransformHour
	TransformBucket
	TransformTruncate
)

// Transform applies a partition transform to a source value. Bucket and
// Truncate carry a parameter (N buckets, or truncate width W).
type Transform struct {
	Kind  TransformKind
	Param int
}

func Identity() Transform              { return Transform{Kind: TransformIdentity} }
func Year() Transform                  { return Transform{Kind: TransformYear} }
func Month() Transform                 { return Transform{Kind: TransformMonth} }
func Day() Transform                   { return Transform{Kind: TransformDay} }
func Hour() Transform                  { return Transform{Kind: TransformHour} }
func Bucket(n int) Transform           { return Transform{Kind: TransformBucket, Param: n} }
func Truncate(width int) Transform     { return Transform{Kind: TransformTruncate, Param: width} }

func (t Transform) String() string {
	switch t.Kind {
	case TransformIdentity:
		return "identity"
	case TransformYear:
		return "year"
	case TransformMonth:
		return "month"
	case TransformDay:
		return "day"
	case TransformHour:
		return "hour"
	case TransformBucket:
		return fmt.Sprintf("bucket[%d]", t.Param)
	case TransformTruncate:
		return fmt.Sprintf("truncate[%d]", t.Param)
	default:
		return "unknown"
	}
}

// Apply derives the partition value for v. The returned Value's Kind is the
// partition column's storage kind: identity/truncate preserve v's Kind;
// year/month/day/hour produce KindInt32; bucket produces KindInt32.
func (t Transform) Apply(v Value) Value {
	switch t.Kind {
	case TransformIdentity:
		return v
	case TransformYear:
		return Int32(int32(v.AsTime().Year() - 1970))
	case TransformMonth:
		tt := v.AsTime()
		return Int32(int32((tt.Year()-1970)*12 + int(tt.Month()) - 1))
	case TransformDay:
		return Int32(int32(v.AsTime().Truncate(24*time.Hour).Unix() / 86400))
	case TransformHour:
		return Int32(int32(v.AsTime().Unix() / 3600))
	case TransformBucket:
		return Int32(int32(bucketHash(v) % uint32(t.Param)))
	case TransformTruncate:
		return truncateValue(v, t.Param)
	default:
		panic("types: unsupported transform")
	}
}

func bucketHash(v Value) uint32 {
	h := fnv.New32a()
	switch v.Kind {
	case KindString, KindUUID:
		h.Write([]byte(v.AsString()))
	case KindBinary:
		h.Write(v.AsBytes())
	case KindInt32, KindInt64, KindDate:
		var b [8]byte
		n := v.AsInt64()
		for i := 0; i < 8; i++ {
			b[i] = byte(n >> (8 * i))
		}
		h.Write(b[:])
	default:
		h.Write([]byte(fmt.Sprintf("%v", v)))
	}
	return h.Sum32() & 0x7fffffff
}

func truncateValue(v Value, width int) Value {
	switch v.Kind {
	case KindString:
		s := v.AsString()
		if len(s) > width {
			s = s[:width]
		}
		return String(s)
	case KindInt32, KindInt64:
		n := v.AsInt64()
		rem := n % int64(width)
		if rem < 0 {
			rem += int64(width)
		}
		if v.Kind == KindInt32 {
			return Int32(int32(n - rem))
		}
		return Int64(n - rem)
	case KindBinary:
		b := v.AsBytes()
		if len(b) > width {
			b = b[:width]
		}
		return Binary(b)
	default:
		panic("types: truncate unsupported for kind")
	}
}

// PartitionField maps a source schema field through a Transform into a
// partition column with its own field id.
type PartitionField struct {
	SourceFieldID    int
	PartitionFieldID int
	Name             string
	Transform        Transform
}

// PartitionSpec is an ordered set of PartitionFields.
type PartitionSpec struct {
	ID     int
	Fields []PartitionField
}

// Unpartitioned returns the spec with no partition fields.
func Unpartitioned() *PartitionSpec { return &PartitionSpec{ID: 0} }

func (p *PartitionSpec) IsUnpartitioned() bool { return len(p.Fields) == 0 }

// Tuple is a resolved partition value for a specific data file, positional
// and parallel to the PartitionSpec's Fields.
type Tuple struct {
	Values []Value
}

// Apply computes the partition tuple for a row given as a field-id-keyed map.
func (p *PartitionSpec) Apply(row map[int]Value) Tuple {
	vals := make([]Value, len(p.Fields))
	for i, f := range p.Fields {
		vals[i] = f.Transform.Apply(row[f.SourceFieldID])
	}
	return Tuple{Values: vals}
}
