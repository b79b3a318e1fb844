package manifest

import (
	"bytes"
	"fmt"
	"io"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/google/uuid"
	"github.com/hamba/avro/v2/ocf"
)

const manifestListSchema = `{
	"type": "record",
	"name": "manifest_file",
	"namespace": "icecore",
	"fields": [
		{"name": "manifest_path", "type": "string"},
		{"name": "manifest_length", "type": "long"},
		{"name": "partition_spec_id", "type": "int"},
		{"name": "sequence_number", "type": "long"},
		{"name": "min_sequence_number", "type": "long"},
		{"name": "added_snapshot_id", "type": "long"},
		{"name": "added_files_count", "type": "int"},
		{"name": "existing_files_count", "type": "int"},
		{"name": "deleted_files_count", "type": "int"},
		{"name": "added_rows_count", "type": "long"},
		{"name": "existing_rows_count", "type": "long"},
		{"name": "deleted_rows_count", "type": "long"},
		{"name": "partition_lower_bounds", "type": {"type": "array", "items": "bytes"}},
		{"name": "partition_upper_bounds", "type": {"type": "array", "items": "bytes"}}
	]
}`

type avroManifestFile struct {
	ManifestPath        string   `avro:"manifest_path"`
	ManifestLength      int64    `avro:"manifest_length"`
	PartitionSpecID     int32    `avro:"partition_spec_id"`
	SequenceNumber      int64    `avro:"sequence_number"`
	MinSequenceNumber   int64    `avro:"min_sequence_number"`
	AddedSnapshotID     int64    `avro:"added_snapshot_id"`
	AddedFilesCount     int32    `avro:"added_files_count"`
	ExistingFilesCount  int32    `avro:"existing_files_count"`
	DeletedFilesCount   int32    `avro:"deleted_files_count"`
	AddedRowsCount      int64    `avro:"added_rows_count"`
	ExistingRowsCount   int64    `avro:"existing_rows_count"`
	DeletedRowsCount    int64    `avro:"deleted_rows_count"`
	PartitionLowerBounds [][]byte `avro:"partition_lower_bounds"`
	PartitionUpperBounds [][]byte `avro:"partition_upper_bounds"`
}

func toAvroManifestFile(m ManifestFile) avroManifestFile {
	lo := make([][]byte, len(m.Partitions))
	hi := make([][]byte, len(m.Partitions))
	for i, p := range m.Partitions {
		if p.HasBounds {
			lo[i] = encodePartitionValue(p.LowerBound)
			hi[i] = encodePartitionValue(p.UpperBound)
		}
	}
	return avroManifestFile{
		ManifestPath:         m.Path,
		ManifestLength:       m.Length,
		PartitionSpecID:      int32(m.PartitionSpecID),
		SequenceNumber:       m.SequenceNumber,
		MinSequenceNumber:    m.MinSequenceNumber,
		AddedSnapshotID:      m.SnapshotID,
		AddedFilesCount:      int32(m.AddedFilesCount),
		ExistingFilesCount:   int32(m.ExistingFilesCount),
		DeletedFilesCount:    int32(m.DeletedFilesCount),
		AddedRowsCount:       m.AddedRows,
		ExistingRowsCount:    m.ExistingRows,
		DeletedRowsCount:     m.DeletedRows,
		PartitionLowerBounds: lo,
		PartitionUpperBounds: hi,
	}
}

func fromAvroManifestFile(a avroManifestFile, spec *types.PartitionSpec) ManifestFile {
	parts := make([]PartitionFieldSummary, len(a.PartitionLowerBounds))
	for i := range parts {
		if len(a.PartitionLowerBounds[i]) == 0 && len(a.PartitionUpperBounds[i]) == 0 {
			continue
		}
		kind := types.KindString
		if spec != nil && i < len(spec.Fields) {
			kind = partitionColumnKind(spec.Fields[i])
		}
		parts[i] = PartitionFieldSummary{
			HasBounds:  true,
			LowerBound: decodePartitionValue(a.PartitionLowerBounds[i], kind),
			UpperBound: decodePartitionValue(a.PartitionUpperBounds[i], kind),
		}
	}
	return ManifestFile{
		Path:               a.ManifestPath,
		Length:             a.ManifestLength,
		PartitionSpecID:    int(a.PartitionSpecID),
		SequenceNumber:     a.SequenceNumber,
		MinSequenceNumber:  a.MinSequenceNumber,
		SnapshotID:         a.AddedSnapshotID,
		AddedFilesCount:    int(a.AddedFilesCount),
		ExistingFilesCount: int(a.ExistingFilesCount),
		DeletedFilesCount:  int(a.DeletedFilesCount),
		AddedRows:          a.AddedRowsCount,
		ExistingRows:       a.ExistingRowsCount,
		DeletedRows:        a.DeletedRowsCount,
		Partitions:         parts,
	}
}

// WriteManifestList encodes a snapshot's manifest-list as an Avro OCF.
func WriteManifestList(w io.Writer, manifests []ManifestFile) error {
	enc, err := ocf.NewEncoder(manifestListSchema, w, ocf.WithCodec(ocf.Snappy))
	if err != nil {
		return icerrors.New(ErrEncodeFailed, "create avro encoder for manifest list", err)
	}
	for _, m := range manifests {
		if err := enc.Encode(toAvroManifestFile(m)); err != nil {
			return icerrors.New(ErrEncodeFailed, "encode manifest-list entry", err).AddContext("path", m.Path)
		}
	}
	if err := enc.Close(); err != nil {
		return icerrors.New(ErrEncodeFailed, "close avro encoder for manifest list", err)
	}
	return nil
}

// ReadManifestList decodes a manifest-list from its Avro OCF bytes.
func ReadManifestList(r io.Reader, spec *types.PartitionSpec) ([]ManifestFile, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, icerrors.New(ErrDecodeFailed, "create avro decoder for manifest list", err)
	}
	var out []ManifestFile
	for dec.HasNext() {
		var a avroManifestFile
		if err := dec.Decode(&a); err != nil {
			return nil, icerrors.New(ErrDecodeFailed, "decode manifest-list entry", err)
		}
		out = append(out, fromAvroManifestFile(a, spec))
	}
	if err := dec.Error(); err != nil {
		return nil, icerrors.New(ErrDecodeFailed, "avro decoder error", err)
	}
	return out, nil
}

func EncodeManifestList(manifests []ManifestFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteManifestList(&buf, manifests); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewManifestListPath generates a manifest-list file name in the Iceberg
// convention: snap-<snapshot-id>-<uuid>.avro.
func NewManifestListPath(snapshotID int64) string {
	return fmt.Sprintf("snap-%d-%s.avro", snapshotID, uuid.NewString())
}
