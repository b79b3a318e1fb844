// Package types implements the Iceberg value/schema model: logical types,
// schemas, partition specs and partition transforms (spec C1).
package types

import "fmt"

// PrimitiveKind enumerates the scalar logical types a Field can hold.
type PrimitiveKind int

const (
	KindBoolean PrimitiveKind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindDate
	KindTimestamp
	KindTimestampTZ
	KindString
	KindBinary
	KindUUID
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInt32:
		return "int"
	case KindInt64:
		return "long"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Field is a single schema column. FieldID is monotone and immutable across
// schema evolution within a table.
type Field struct {
	ID       int
	Name     string
	Type     PrimitiveKind
	Required bool
}

// Schema is an ordered, id-addressable set of fields.
type Schema struct {
	ID     int
	Fields []Field
}

func (s *Schema) FieldByID(id int) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HighestFieldID returns the largest field id in use, used when assigning
// ids to newly added columns during schema evolution.
func (s *Schema) HighestFieldID() int {
	max := 0
	for _, f := range s.Fields {
		if f.ID > max {
			max = f.ID
		}
	}
	return max
}

// WithAddedColumn returns a new Schema with a field appended, assigning it
// the next monotone field id. The receiver is not mutated.
func (s *Schema) WithAddedColumn(name string, kind PrimitiveKind, required bool) *Schema {
	next := s.HighestFieldID() + 1
	fields := make([]Field, len(s.Fields), len(s.Fields)+1)
	copy(fields, s.Fields)
	fields = append(fields, Field{ID: next, Name: name, Type: kind, Required: required})
	return &Schema{ID: s.ID + 1, Fields: fields}
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(id=%d, fields=%d)", s.ID, len(s.Fields))
}
