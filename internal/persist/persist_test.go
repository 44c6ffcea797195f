package persist

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumDetectsCorruption(t *testing.T) {
	blob := []byte("BFWL\x01\x00\x00\x00payload")
	sum := Checksum(blob)
	assert.Len(t, sum, 32)
	assert.NoError(t, verify(blob, sum))

	blob[9] ^= 0xFF
	assert.ErrorIs(t, verify(blob, sum), ErrChecksumMismatch)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, uint32(1), formatOf([]byte("BFWL\x01\x00\x00\x00")))
	assert.Equal(t, uint32(0), formatOf([]byte("BFW")))
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir() + "/nested")

	_, err := s.Load(ctx, "main")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, s.Save(ctx, "main", []byte("first")))
	require.NoError(t, s.Save(ctx, "main", []byte("second")))
	blob, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), blob)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "main.bfw", entries[0].Name())
}
