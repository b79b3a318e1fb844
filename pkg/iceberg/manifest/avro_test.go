package manifest

import (
	"bytes"
	"testing"

	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/stretchr/testify/require"
)

func TestWriteReadEntries_RoundTrip(t *testing.T) {
	spec := &types.PartitionSpec{Fields: []types.PartitionField{
		{SourceFieldID: 1, PartitionFieldID: 1000, Name: "id_bucket", Transform: types.Bucket(4)},
	}}

	entries := []ManifestEntry{
		{
			Status:         StatusAdded,
			SnapshotID:     100,
			SequenceNumber: 1,
			DataFile: DataFile{
				Path:          "data/part-0.parquet",
				Format:        FormatParquet,
				Content:       ContentData,
				Partition:     types.Tuple{Values: []types.Value{types.Int32(2)}},
				RecordCount:   10,
				FileSizeBytes: 1024,
			},
		},
		{
			Status:         StatusExisting,
			SnapshotID:     90,
			SequenceNumber: 0,
			DataFile: DataFile{
				Path:          "data/part-1.parquet",
				Format:        FormatParquet,
				Content:       ContentData,
				Partition:     types.Tuple{Values: []types.Value{types.Int32(3)}},
				RecordCount:   20,
				FileSizeBytes: 2048,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, entries))
	require.Greater(t, buf.Len(), 0)

	got, err := ReadEntries(bytes.NewReader(buf.Bytes()), spec)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, StatusAdded, got[0].Status)
	require.Equal(t, "data/part-0.parquet", got[0].DataFile.Path)
	require.Equal(t, int64(10), got[0].DataFile.RecordCount)
	require.Equal(t, int64(2), got[0].DataFile.Partition.Values[0].AsInt64())

	require.Equal(t, StatusExisting, got[1].Status)
	require.Equal(t, int64(3), got[1].DataFile.Partition.Values[0].AsInt64())
}

func TestWriteManifestList_RoundTrip(t *testing.T) {
	mfs := []ManifestFile{
		{
			Path:            "m1.avro",
			Length:          123,
			SequenceNumber:  1,
			AddedFilesCount: 2,
			Partitions: []PartitionFieldSummary{
				{HasBounds: true, LowerBound: types.Int32(0), UpperBound: types.Int32(3)},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteManifestList(&buf, mfs))

	got, err := ReadManifestList(bytes.NewReader(buf.Bytes()), &types.PartitionSpec{
		Fields: []types.PartitionField{{Transform: types.Bucket(4)}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "m1.avro", got[0].Path)
	require.Equal(t, 2, got[0].AddedFilesCount)
	require.True(t, got[0].Partitions[0].HasBounds)
	require.Equal(t, int64(0), got[0].Partitions[0].LowerBound.AsInt64())
	require.Equal(t, int64(3), got[0].Partitions[0].UpperBound.AsInt64())
}
