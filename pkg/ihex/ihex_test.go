package ihex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHexFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "image.hex")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseSingleDataRecord(t *testing.T) {
	// S3: one DATA record at 0x0100 with 16 bytes, followed by EOF.
	path := writeHexFile(t, ":10010000214601360121470136007EFE09D2190140\n:00000001FF\n")

	sections, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, uint32(0x0100), sections[0].Start)
	assert.Len(t, sections[0].Data, 16)
	assert.Equal(t, []byte{
		0x21, 0x46, 0x01, 0x36, 0x01, 0x21, 0x47, 0x01,
		0x36, 0x00, 0x7E, 0xFE, 0x09, 0xD2, 0x19, 0x01,
	}, sections[0].Data)
}

func TestParseMergesAdjacentRecords(t *testing.T) {
	path := writeHexFile(t, ":04000000AABBCCDDEE\n:04000400EEFF0011FA\n:00000001FF\n")

	sections, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, uint32(0), sections[0].Start)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}, sections[0].Data)
}

func TestParseStartsNewSectionOnGap(t *testing.T) {
	path := writeHexFile(t, ":04000000AABBCCDDEE\n:040010001122334442\n:00000001FF\n")

	sections, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, uint32(0x0000), sections[0].Start)
	assert.Equal(t, uint32(0x0010), sections[1].Start)
}

func TestParseExtendedLinearAddress(t *testing.T) {
	path := writeHexFile(t, ":020000040001F9\n:04000000DEADBEEFC4\n:00000001FF\n")

	sections, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, uint32(0x00010000), sections[0].Start)
}

func TestParseMissingEOFFails(t *testing.T) {
	path := writeHexFile(t, ":04000000AABBCCDDEE\n")

	_, err := Parse(path)
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestParseRejectsBadChecksum(t *testing.T) {
	path := writeHexFile(t, ":04000000AABBCCDD00\n:00000001FF\n") // wrong trailing checksum

	_, err := Parse(path)
	require.Error(t, err)
}

func TestParseRejectsMissingColon(t *testing.T) {
	path := writeHexFile(t, "04000000AABBCCDD7D\n:00000001FF\n")

	_, err := Parse(path)
	require.Error(t, err)
}

func TestPadToPageFrontAndBack(t *testing.T) {
	// S4: 3-byte section at 0x0005, page size 16.
	sections := []Section{{Start: 0x0005, Data: []byte{0xD0, 0xD1, 0xD2}}}

	padded := PadToPage(sections, 16, 0xFF)
	require.Len(t, padded, 1)
	assert.Equal(t, uint32(0x0000), padded[0].Start)
	assert.Equal(t, []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xD0, 0xD1, 0xD2,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}, padded[0].Data)
}

func TestPadToPageIsIdempotent(t *testing.T) {
	sections := []Section{{Start: 0x0123, Data: []byte{1, 2, 3, 4, 5, 6, 7}}}

	once := PadToPage(sections, 512, 0xFF)
	twice := PadToPage(once, 512, 0xFF)
	assert.Equal(t, once, twice)
}

func TestSplitPagesAlignment(t *testing.T) {
	sections := []Section{{Start: 0x0005, Data: []byte{0xD0, 0xD1, 0xD2}}}
	padded := PadToPage(sections, 512, 0xFF)

	pages := SplitPages(padded, 512)
	require.Len(t, pages, 1)
	assert.Equal(t, uint32(0), pages[0].Address%512)
	assert.Len(t, pages[0].Data, 512)
}

func TestSplitPagesPreservesOrderAndConcatenatesToPaddedData(t *testing.T) {
	data := make([]byte, 1200)
	for i := range data {
		data[i] = byte(i)
	}
	sections := []Section{{Start: 0x1000, Data: data}}
	padded := PadToPage(sections, 512, 0xFF)

	pages := SplitPages(padded, 512)
	require.Len(t, pages, len(padded[0].Data)/512)

	var rebuilt []byte
	for i, p := range pages {
		assert.Equal(t, padded[0].Start+uint32(i*512), p.Address)
		rebuilt = append(rebuilt, p.Data...)
	}
	assert.Equal(t, padded[0].Data, rebuilt)
}
