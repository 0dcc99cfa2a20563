package xlsxtext

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aurelia-jewels/po-extractor/internal/common"
)

func workbookBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	doc := workbookBytes(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "Sr No"))
		require.NoError(t, f.SetCellValue("Sheet1", "B1", "Style"))
		require.NoError(t, f.SetCellValue("Sheet1", "C1", "Qty"))
		// row 2 intentionally left blank
		require.NoError(t, f.SetCellValue("Sheet1", "A3", 1))
		require.NoError(t, f.SetCellValue("Sheet1", "B3", "R-100"))
		require.NoError(t, f.SetCellValue("Sheet1", "C3", 2))
	})

	text, err := Extract(doc)
	require.NoError(t, err)

	assert.Contains(t, text, "=== Sheet: Sheet1 ===")
	assert.Contains(t, text, "Sr No,Style,Qty")
	assert.Contains(t, text, "1,R-100,2")
}

func TestExtractMultipleSheets(t *testing.T) {
	doc := workbookBytes(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "first"))
		_, err := f.NewSheet("Orders")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Orders", "A1", "second"))
	})

	text, err := Extract(doc)
	require.NoError(t, err)

	assert.Contains(t, text, "=== Sheet: Sheet1 ===")
	assert.Contains(t, text, "=== Sheet: Orders ===")
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "second")
}

func TestExtractCorruptInput(t *testing.T) {
	_, err := Extract([]byte("this is not a workbook"))
	var perr *common.DocumentParseError
	require.ErrorAs(t, err, &perr)
}

// emptyOLEContainer builds a structurally valid compound file holding no
// streams at all: a legacy .xls envelope with no workbook inside.
func emptyOLEContainer() []byte {
	h := make([]byte, 512)
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(h[24:], 0x003E)     // minor version
	binary.LittleEndian.PutUint16(h[26:], 0x0003)     // major version
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE)     // little-endian marker
	binary.LittleEndian.PutUint16(h[30:], 9)          // 512-byte sectors
	binary.LittleEndian.PutUint16(h[32:], 6)          // 64-byte mini sectors
	binary.LittleEndian.PutUint32(h[48:], 0xFFFFFFFE) // no directory chain
	binary.LittleEndian.PutUint32(h[56:], 4096)       // mini stream cutoff
	binary.LittleEndian.PutUint32(h[60:], 0xFFFFFFFE) // no mini FAT
	binary.LittleEndian.PutUint32(h[68:], 0xFFFFFFFE) // no DIFAT
	for i := 76; i < 512; i += 4 {
		binary.LittleEndian.PutUint32(h[i:], 0xFFFFFFFF) // free DIFAT slots
	}
	return h
}

// Compound-file bytes must reach the BIFF reader, not excelize, which cannot
// open them at all.
func TestExtractRoutesLegacyWorkbook(t *testing.T) {
	_, err := Extract(emptyOLEContainer())
	require.Error(t, err)

	var perr *common.DocumentParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "legacy xls")
	assert.NotContains(t, err.Error(), "unsupported workbook file format")
}
