package types

import (
	"math"
	"testing"
	"time"
)

func TestTransform_Day(t *testing.T) {
	spec := &PartitionSpec{Fields: []PartitionField{
		{SourceFieldID: 1, PartitionFieldID: 1000, Name: "date_day", Transform: Day()},
	}}
	d := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	tuple := spec.Apply(map[int]Value{1: Timestamp(d)})

	expected := int32(d.Truncate(24 * time.Hour).Unix() / 86400)
	if got := tuple.Values[0].AsInt64(); got != int64(expected) {
		t.Fatalf("day transform = %d, want %d", got, expected)
	}
}

func TestTransform_Bucket_Deterministic(t *testing.T) {
	b := Bucket(8)
	v := String("order-42")
	a := b.Apply(v)
	c := b.Apply(v)
	if a.AsInt64() != c.AsInt64() {
		t.Fatalf("bucket transform must be deterministic: %d != %d", a.AsInt64(), c.AsInt64())
	}
	if a.AsInt64() < 0 || a.AsInt64() >= 8 {
		t.Fatalf("bucket[8] out of range: %d", a.AsInt64())
	}
}

func TestTransform_Truncate_String(t *testing.T) {
	tr := Truncate(4)
	got := tr.Apply(String("hello world"))
	if got.AsString() != "hell" {
		t.Fatalf("truncate[4] = %q, want %q", got.AsString(), "hell")
	}
}

func TestValue_CompareOrdersAscending(t *testing.T) {
	if Int64(1).Compare(Int64(2)) >= 0 {
		t.Fatal("1 should compare less than 2")
	}
	if String("a").Compare(String("b")) >= 0 {
		t.Fatal(`"a" should compare less than "b"`)
	}
}

func TestValue_CompareFloat_NaNSortsLast(t *testing.T) {
	nan := Float64(math.NaN())
	one := Float64(1.0)

	if nan.Compare(one) <= 0 {
		t.Fatal("NaN must compare greater than any non-NaN value (sorts last ascending)")
	}
	if one.Compare(nan) >= 0 {
		t.Fatal("any non-NaN value must compare less than NaN")
	}
	if nan.Compare(nan) != 0 {
		t.Fatal("NaN must compare equal to NaN")
	}
}

func TestValue_CompareFloat_NegativeAndPositiveZeroAreEqual(t *testing.T) {
	if Float64(0.0).Compare(Float64(math.Copysign(0, -1))) != 0 {
		t.Fatal("+0.0 and -0.0 must compare equal")
	}
}

func TestValue_CompareDecimal_AlignsScale(t *testing.T) {
	// 1.50 (unscaled 150, scale 2) vs 1.5 (unscaled 15, scale 1): equal value.
	a := Decimal(150, 2)
	b := Decimal(15, 1)
	if a.Compare(b) != 0 {
		t.Fatalf("1.50 and 1.5 at different scales should compare equal, got %d", a.Compare(b))
	}

	c := Decimal(151, 2) // 1.51
	if a.Compare(c) >= 0 {
		t.Fatal("1.50 should compare less than 1.51")
	}
}
