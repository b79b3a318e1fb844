package manifest

import (
	"bytes"
	"io"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/hamba/avro/v2/ocf"
)

var (
	ErrEncodeFailed = icerrors.MustNewCode("manifest.encode_failed")
	ErrDecodeFailed = icerrors.MustNewCode("manifest.decode_failed")
)

// entrySchema is the Avro record schema icecore actually writes to disk.
// It flattens ManifestEntry+DataFile into primitives hamba/avro can encode
// directly; column statistics are carried as parallel arrays rather than
// the official Iceberg manifest schema's map types, since this engine owns
// both ends of the format and doesn't need cross-tool manifest compatibility.
const entrySchema = `{
	"type": "record",
	"name": "manifest_entry",
	"namespace": "icecore",
	"fields": [
		{"name": "status", "type": "int"},
		{"name": "snapshot_id", "type": "long"},
		{"name": "sequence_number", "type": "long"},
		{"name": "file_path", "type": "string"},
		{"name": "file_format", "type": "string"},
		{"name": "content", "type": "int"},
		{"name": "record_count", "type": "long"},
		{"name": "file_size_in_bytes", "type": "long"},
		{"name": "partition_values", "type": {"type": "array", "items": "bytes"}},
		{"name": "equality_field_ids", "type": {"type": "array", "items": "int"}}
	]
}`

type avroEntry struct {
	Status            int32    `avro:"status"`
	SnapshotID        int64    `avro:"snapshot_id"`
	SequenceNumber    int64    `avro:"sequence_number"`
	FilePath          string   `avro:"file_path"`
	FileFormat        string   `avro:"file_format"`
	Content           int32    `avro:"content"`
	RecordCount       int64    `avro:"record_count"`
	FileSizeInBytes   int64    `avro:"file_size_in_bytes"`
	PartitionValues   [][]byte `avro:"partition_values"`
	EqualityFieldIDs  []int32  `avro:"equality_field_ids"`
}

func toAvroEntry(e ManifestEntry) avroEntry {
	pv := make([][]byte, len(e.DataFile.Partition.Values))
	for i, v := range e.DataFile.Partition.Values {
		pv[i] = encodePartitionValue(v)
	}
	eq := make([]int32, len(e.DataFile.EqualityFieldIDs))
	for i, id := range e.DataFile.EqualityFieldIDs {
		eq[i] = int32(id)
	}
	return avroEntry{
		Status:           int32(e.Status),
		SnapshotID:       e.SnapshotID,
		SequenceNumber:   e.SequenceNumber,
		FilePath:         e.DataFile.Path,
		FileFormat:       string(e.DataFile.Format),
		Content:          int32(e.DataFile.Content),
		RecordCount:      e.DataFile.RecordCount,
		FileSizeInBytes:  e.DataFile.FileSizeBytes,
		PartitionValues:  pv,
		EqualityFieldIDs: eq,
	}
}

func fromAvroEntry(a avroEntry, spec *types.PartitionSpec) ManifestEntry {
	vals := make([]types.Value, len(a.PartitionValues))
	for i, raw := range a.PartitionValues {
		kind := types.KindString
		if spec != nil && i < len(spec.Fields) {
			kind = partitionColumnKind(spec.Fields[i])
		}
		vals[i] = decodePartitionValue(raw, kind)
	}
	eq := make([]int, len(a.EqualityFieldIDs))
	for i, id := range a.EqualityFieldIDs {
		eq[i] = int(id)
	}
	return ManifestEntry{
		Status:         EntryStatus(a.Status),
		SnapshotID:     a.SnapshotID,
		SequenceNumber: a.SequenceNumber,
		DataFile: DataFile{
			Path:             a.FilePath,
			Format:           FileFormat(a.FileFormat),
			Content:          Content(a.Content),
			Partition:        types.Tuple{Values: vals},
			RecordCount:      a.RecordCount,
			FileSizeBytes:    a.FileSizeInBytes,
			EqualityFieldIDs: eq,
		},
	}
}

// partitionColumnKind reports the storage kind a transform produces, used
// to decode a partition value's raw bytes back into a typed Value.
func partitionColumnKind(f types.PartitionField) types.PrimitiveKind {
	switch f.Transform.Kind {
	case types.TransformYear, types.TransformMonth, types.TransformDay, types.TransformHour, types.TransformBucket:
		return types.KindInt32
	default:
		return types.KindString
	}
}

// encodePartitionValue / decodePartitionValue give partition values a
// fixed wire form inside the Avro "bytes" column: an 8-byte big-endian
// integer for numeric kinds, raw bytes otherwise.
func encodePartitionValue(v types.Value) []byte {
	switch v.Kind {
	case types.KindInt32, types.KindInt64, types.KindDate:
		return encodeInt64(v.AsInt64())
	case types.KindBinary:
		return v.AsBytes()
	default:
		return []byte(v.AsString())
	}
}

func decodePartitionValue(raw []byte, kind types.PrimitiveKind) types.Value {
	switch kind {
	case types.KindInt32:
		return types.Int32(int32(decodeInt64(raw)))
	case types.KindInt64, types.KindDate:
		return types.Int64(decodeInt64(raw))
	case types.KindBinary:
		return types.Binary(raw)
	default:
		return types.String(string(raw))
	}
}

func encodeInt64(n int64) []byte {
	b := make([]byte, 8)
	u := uint64(n)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(u >> (8 * i))
	}
	return b
}

func decodeInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < len(b) && i < 8; i++ {
		u = u<<8 | uint64(b[i])
	}
	return int64(u)
}

// WriteEntries writes entries as an Avro object-container file (Snappy
// compressed) to w.
func WriteEntries(w io.Writer, entries []ManifestEntry) error {
	enc, err := ocf.NewEncoder(entrySchema, w, ocf.WithCodec(ocf.Snappy))
	if err != nil {
		return icerrors.New(ErrEncodeFailed, "create avro encoder", err)
	}
	for _, e := range entries {
		if err := enc.Encode(toAvroEntry(e)); err != nil {
			return icerrors.New(ErrEncodeFailed, "encode manifest entry", err).AddContext("path", e.DataFile.Path)
		}
	}
	if err := enc.Close(); err != nil {
		return icerrors.New(ErrEncodeFailed, "close avro encoder", err)
	}
	return nil
}

// ReadEntries decodes all entries from an Avro object-container file.
func ReadEntries(r io.Reader, spec *types.PartitionSpec) ([]ManifestEntry, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, icerrors.New(ErrDecodeFailed, "create avro decoder", err)
	}
	var out []ManifestEntry
	for dec.HasNext() {
		var a avroEntry
		if err := dec.Decode(&a); err != nil {
			return nil, icerrors.New(ErrDecodeFailed, "decode manifest entry", err)
		}
		out = append(out, fromAvroEntry(a, spec))
	}
	if err := dec.Error(); err != nil {
		return nil, icerrors.New(ErrDecodeFailed, "avro decoder error", err)
	}
	return out, nil
}

// EncodeEntries is a convenience wrapper for callers that want the bytes
// directly rather than streaming to an io.Writer.
func EncodeEntries(entries []ManifestEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteEntries(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
