package pdfchunk

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/aurelia-jewels/po-extractor/internal/common"
	"github.com/aurelia-jewels/po-extractor/internal/po"
)

// Chunk pairs a page range with a self-contained PDF holding only those
// pages. Chunks are ephemeral: consumed by a single model call, then
// discarded.
type Chunk struct {
	Range po.PageRange
	Bytes []byte
}

func readConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the document.
// Corrupt input yields a *common.DocumentParseError.
func PageCount(doc []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(doc), readConf())
	if err != nil {
		return 0, &common.DocumentParseError{Err: fmt.Errorf("read pdf: %w", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, &common.DocumentParseError{Err: fmt.Errorf("page count: %w", err)}
	}
	return ctx.PageCount, nil
}

// ValidateRanges checks every range against the document's page count.
// It deliberately does NOT check for overlap or full coverage: ranges come
// from a caller that already classified the document's pages, and gaps or
// overlaps are taken as intent.
func ValidateRanges(ranges []po.PageRange, totalPages int) error {
	if len(ranges) == 0 {
		return common.NewAppError("INVALID_RANGES", "no page ranges supplied", common.ErrInvalidInput)
	}
	for _, r := range ranges {
		if r.StartPage < 1 || r.StartPage > r.EndPage || r.EndPage > totalPages {
			return &common.InvalidRangeError{
				StartPage:  r.StartPage,
				EndPage:    r.EndPage,
				TotalPages: totalPages,
			}
		}
	}
	return nil
}

// Split produces one self-contained PDF per range, preserving page order.
// All ranges are validated before any chunk is built; a violation yields no
// partial output. The source document is never mutated.
func Split(doc []byte, ranges []po.PageRange) ([]Chunk, error) {
	total, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	if err := ValidateRanges(ranges, total); err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(ranges))
	for _, r := range ranges {
		var buf bytes.Buffer
		sel := []string{fmt.Sprintf("%d-%d", r.StartPage, r.EndPage)}
		if err := api.Trim(bytes.NewReader(doc), &buf, sel, readConf()); err != nil {
			return nil, fmt.Errorf("split pages %d-%d: %w", r.StartPage, r.EndPage, err)
		}
		chunks = append(chunks, Chunk{Range: r, Bytes: buf.Bytes()})
	}
	return chunks, nil
}
