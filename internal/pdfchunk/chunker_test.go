package pdfchunk

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-jewels/po-extractor/internal/common"
	"github.com/aurelia-jewels/po-extractor/internal/po"
)

// blankPDF assembles a minimal n-page document with a hand-written xref table.
func blankPDF(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	kids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj(fmt.Sprintf(
		"2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n",
		strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n", i+3))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)
	return buf.Bytes()
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(blankPDF(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPageCountCorruptInput(t *testing.T) {
	_, err := PageCount([]byte("definitely not a pdf"))
	var perr *common.DocumentParseError
	require.ErrorAs(t, err, &perr)
}

func TestValidateRanges(t *testing.T) {
	ok := []po.PageRange{{StartPage: 1, EndPage: 3}, {StartPage: 4, EndPage: 10}}
	require.NoError(t, ValidateRanges(ok, 10))

	// overlap and gaps are the caller's business
	require.NoError(t, ValidateRanges([]po.PageRange{
		{StartPage: 1, EndPage: 5}, {StartPage: 3, EndPage: 8},
	}, 10))

	tests := []struct {
		name string
		r    po.PageRange
	}{
		{"start below one", po.PageRange{StartPage: 0, EndPage: 3}},
		{"start after end", po.PageRange{StartPage: 5, EndPage: 2}},
		{"end past document", po.PageRange{StartPage: 8, EndPage: 12}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRanges([]po.PageRange{tc.r}, 10)
			var rerr *common.InvalidRangeError
			require.ErrorAs(t, err, &rerr)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Equal(t, 10, rerr.TotalPages)
		})
	}
}

func TestValidateRangesEmpty(t *testing.T) {
	err := ValidateRanges(nil, 10)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSplit(t *testing.T) {
	doc := blankPDF(6)
	chunks, err := Split(doc, []po.PageRange{
		{StartPage: 1, EndPage: 2},
		{StartPage: 3, EndPage: 6},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	n, err := PageCount(chunks[0].Bytes)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = PageCount(chunks[1].Bytes)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, 1, chunks[0].Range.StartPage)
	assert.Equal(t, 3, chunks[1].Range.StartPage)
}

func TestSplitInvalidRangeProducesNoChunks(t *testing.T) {
	chunks, err := Split(blankPDF(4), []po.PageRange{
		{StartPage: 1, EndPage: 2},
		{StartPage: 3, EndPage: 9},
	})
	var rerr *common.InvalidRangeError
	require.ErrorAs(t, err, &rerr)
	assert.Nil(t, chunks)
}
