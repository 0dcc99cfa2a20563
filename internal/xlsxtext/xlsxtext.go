// Package xlsxtext renders a spreadsheet as plain text suitable for a text
// model prompt: one "=== Sheet: name ===" block per worksheet with
// comma-joined rows, blank rows skipped. Both OOXML (.xlsx) and legacy BIFF
// (.xls) workbooks are handled; the container format is sniffed from the
// bytes, not the file extension.
package xlsxtext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/aurelia-jewels/po-extractor/internal/common"
)

// oleSignature is the compound-file magic that opens every legacy .xls.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Extract converts all worksheets of an xlsx/xls document to text.
func Extract(doc []byte) (string, error) {
	if bytes.HasPrefix(doc, oleSignature) {
		return extractLegacy(doc)
	}
	return extractOOXML(doc)
}

func extractOOXML(doc []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc))
	if err != nil {
		return "", &common.DocumentParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		writeSheet(&b, sheet, rows)
	}
	return b.String(), nil
}

// extractLegacy reads BIFF workbooks, which excelize does not understand.
func extractLegacy(doc []byte) (string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(doc))
	if err != nil {
		return "", &common.DocumentParseError{Err: fmt.Errorf("open legacy xls workbook: %w", err)}
	}

	var b strings.Builder
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			return "", fmt.Errorf("read xls sheet %d: %w", i, err)
		}
		rows := make([][]string, 0, sheet.GetNumberRows())
		for r := 0; r < sheet.GetNumberRows(); r++ {
			row, err := sheet.GetRow(r)
			if err != nil {
				// unwritten row in a sparse sheet
				rows = append(rows, nil)
				continue
			}
			var cells []string
			for _, col := range row.GetCols() {
				cells = append(cells, col.GetString())
			}
			rows = append(rows, cells)
		}
		writeSheet(&b, sheet.GetName(), rows)
	}
	return b.String(), nil
}

func writeSheet(b *strings.Builder, name string, rows [][]string) {
	b.WriteString("\n\n=== Sheet: ")
	b.WriteString(name)
	b.WriteString(" ===\n")
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
