// Package extract drives purchase-order extraction end to end: mode planning,
// chunked or single-shot model calls, recovery parsing, ordered aggregation,
// count validation and the correction pass.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aurelia-jewels/po-extractor/constants"
	"github.com/aurelia-jewels/po-extractor/internal/common"
	"github.com/aurelia-jewels/po-extractor/internal/llm"
	"github.com/aurelia-jewels/po-extractor/internal/pdfchunk"
	"github.com/aurelia-jewels/po-extractor/internal/po"
	"github.com/aurelia-jewels/po-extractor/internal/xlsxtext"
)

// Orchestrator turns one po.Request into one po.Record or a terminal error.
// It does not retry failed model calls: a failure would otherwise mask a
// systematic prompt or schema defect.
type Orchestrator struct {
	Logger  *slog.Logger
	Service llm.TextService
}

var _ po.Extractor = (*Orchestrator)(nil)

func NewOrchestrator(svc llm.TextService, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Logger: logger, Service: svc}
}

type mode int

const (
	modeSingleShot mode = iota
	modeChunked
)

// ExtractPurchaseOrder runs the extraction state machine:
// plan -> extract -> parse -> aggregate -> validate -> (correct) -> done.
func (o *Orchestrator) ExtractPurchaseOrder(ctx context.Context, req po.Request) (*po.Record, error) {
	rid := uuid.New().String()
	start := time.Now()

	o.Logger.Info("extract.start",
		"req_id", rid,
		"format", req.Format,
		"filename", req.Filename,
		"doc_bytes", len(req.Document),
		"expected_items", intOrNil(req.ExpectedItems),
		"page_ranges", len(req.PageRanges),
	)

	m, err := o.plan(req)
	if err != nil {
		return nil, err
	}

	var rec *po.Record
	truncated := false
	switch {
	case m == modeChunked:
		rec, err = o.extractChunked(ctx, rid, req, &truncated)
	case req.Format == constants.PDF:
		rec, err = o.extractSinglePDF(ctx, rid, req, &truncated)
	default:
		rec, err = o.extractSpreadsheet(ctx, rid, req, &truncated)
	}
	if err != nil {
		o.Logger.Error("extract.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	rec, err = o.finalize(ctx, rid, rec, req, truncated)
	if err != nil {
		o.Logger.Error("extract.failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	o.Logger.Info("extract.ok",
		"req_id", rid,
		"items", len(rec.Items),
		"client", rec.ClientName,
		"invoice", rec.InvoiceNumber,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// plan decides the extraction mode exactly once. Chunked mode requires a PDF
// with caller-supplied page ranges; spreadsheets are always single-shot text.
func (o *Orchestrator) plan(req po.Request) (mode, error) {
	switch req.Format {
	case constants.PDF:
		if len(req.PageRanges) > 0 {
			return modeChunked, nil
		}
		return modeSingleShot, nil
	case constants.XLSX, constants.XLS:
		if len(req.PageRanges) > 0 {
			return 0, common.NewAppError("INVALID_INPUT",
				"page ranges are only supported for PDF documents", common.ErrInvalidInput)
		}
		return modeSingleShot, nil
	default:
		return 0, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("unsupported document format %q; supported: pdf, xlsx, xls", req.Format),
			common.ErrInvalidInput)
	}
}

type chunkResult struct {
	rng po.PageRange
	rec po.Record
}

// extractChunked splits the PDF by page ranges, runs one independent model
// call per chunk and aggregates the results in range order. Every uploaded
// attachment is released exactly once, success or failure.
func (o *Orchestrator) extractChunked(ctx context.Context, rid string, req po.Request, truncated *bool) (*po.Record, error) {
	chunks, err := pdfchunk.Split(req.Document, req.PageRanges)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chunks, func(a, b pdfchunk.Chunk) int {
		return a.Range.StartPage - b.Range.StartPage
	})
	o.Logger.Info("extract.chunks.ready", "req_id", rid, "count", len(chunks))

	var uploaded []string
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		for _, fileID := range uploaded {
			if err := o.Service.DeleteFile(cleanupCtx, fileID); err != nil {
				o.Logger.Warn("extract.cleanup.delete_failed",
					"req_id", rid, "file_id", fileID, "error", err)
			}
		}
	}()

	results := make([]chunkResult, 0, len(chunks))
	for i, ch := range chunks {
		rec, fileID, err := o.extractChunk(ctx, rid, req, ch)
		if fileID != "" {
			uploaded = append(uploaded, fileID)
		}
		if err != nil {
			return nil, &common.ChunkError{
				StartPage: ch.Range.StartPage,
				EndPage:   ch.Range.EndPage,
				Err:       err,
			}
		}
		if rec.truncated {
			*truncated = true
		}
		results = append(results, chunkResult{rng: ch.Range, rec: rec.record})
		o.Logger.Info("extract.chunk.ok",
			"req_id", rid, "chunk", i+1, "of", len(chunks),
			"pages", fmt.Sprintf("%d-%d", ch.Range.StartPage, ch.Range.EndPage),
			"items", len(rec.record.Items),
		)
	}

	return aggregate(results), nil
}

// extractChunk runs one chunk's upload -> prompt -> call -> parse sequence.
// The returned fileID is reported even on failure so the caller can release it.
func (o *Orchestrator) extractChunk(ctx context.Context, rid string, req po.Request, ch pdfchunk.Chunk) (decoded, string, error) {
	filename := fmt.Sprintf("chunk-%d-%d.pdf", ch.Range.StartPage, ch.Range.EndPage)
	fileID, err := o.Service.UploadFile(ctx, filename, ch.Bytes)
	if err != nil {
		return decoded{}, "", fmt.Errorf("upload chunk: %w", err)
	}

	prompt := llm.BuildExtractionPrompt(req.ClientName, req.MappingText, ch.Range.ExpectedItems) +
		llm.BuildChunkInstructions(ch.Range, req.ExpectedItems)

	raw, err := o.Service.GenerateWithFile(ctx, prompt, fileID)
	if err != nil {
		return decoded{}, fileID, fmt.Errorf("model call: %w", err)
	}

	rec, err := o.decodeRecord(raw, ch.Range.ExpectedItems)
	if err != nil {
		return decoded{}, fileID, err
	}
	return rec, fileID, nil
}

// extractSinglePDF uploads the whole document for one model call.
func (o *Orchestrator) extractSinglePDF(ctx context.Context, rid string, req po.Request, truncated *bool) (*po.Record, error) {
	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	fileID, err := o.Service.UploadFile(ctx, filename, req.Document)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	defer func() {
		if err := o.Service.DeleteFile(context.WithoutCancel(ctx), fileID); err != nil {
			o.Logger.Warn("extract.cleanup.delete_failed",
				"req_id", rid, "file_id", fileID, "error", err)
		}
	}()

	prompt := llm.BuildExtractionPrompt(req.ClientName, req.MappingText, req.ExpectedItems) +
		llm.BuildPDFInstructions()

	raw, err := o.Service.GenerateWithFile(ctx, prompt, fileID)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	rec, err := o.decodeRecord(raw, req.ExpectedItems)
	if err != nil {
		return nil, err
	}
	if rec.truncated {
		*truncated = true
	}
	return &rec.record, nil
}

// extractSpreadsheet converts the workbook to text and makes one text call.
func (o *Orchestrator) extractSpreadsheet(ctx context.Context, rid string, req po.Request, truncated *bool) (*po.Record, error) {
	text, err := xlsxtext.Extract(req.Document)
	if err != nil {
		return nil, err
	}
	o.Logger.Info("extract.xlsx.converted", "req_id", rid, "text_bytes", len(text))

	prompt := llm.BuildExtractionPrompt(req.ClientName, req.MappingText, req.ExpectedItems) +
		llm.BuildExcelInstructions() +
		"\n\nFile Content:\n" + text

	raw, err := o.Service.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	rec, err := o.decodeRecord(raw, req.ExpectedItems)
	if err != nil {
		return nil, err
	}
	if rec.truncated {
		*truncated = true
	}
	return &rec.record, nil
}

type decoded struct {
	record    po.Record
	truncated bool
}

// decodeRecord runs one raw response through the recovery parser and decodes
// it into the canonical record. expected gates truncation repair: a repaired
// response that recovered fewer items than the caller declared is rejected
// rather than silently accepted.
func (o *Orchestrator) decodeRecord(raw string, expected *int) (decoded, error) {
	var out decoded

	jsonText := llm.ExtractJSON(raw)
	parsed, err := llm.ParseWithFallback(jsonText, &llm.ParseOptions{
		Logger: o.Logger,
		OnTruncationRepaired: func(recovered int) error {
			out.truncated = true
			if expected != nil && recovered < *expected {
				return &common.CountMismatchError{
					Expected:  *expected,
					Got:       recovered,
					Corrected: -1,
					Truncated: true,
				}
			}
			return nil
		},
	})
	if err != nil {
		return out, err
	}

	if _, ok := parsed["items"].([]any); !ok {
		return out, fmt.Errorf("items array is missing or invalid: %w", common.ErrStructural)
	}

	// Round-trip through JSON to map the generic value onto the record type.
	b, err := json.Marshal(parsed)
	if err != nil {
		return out, fmt.Errorf("re-encode parsed response: %w", err)
	}
	if err := json.Unmarshal(b, &out.record); err != nil {
		return out, fmt.Errorf("response does not fit record shape (%v): %w", err, common.ErrStructural)
	}
	return out, nil
}

// finalize enforces the record invariants: header defaults, structural schema
// validation, and exact item count when the caller declared one (with a
// single correction attempt before failing).
func (o *Orchestrator) finalize(ctx context.Context, rid string, rec *po.Record, req po.Request, truncated bool) (*po.Record, error) {
	if rec.ClientName == "" {
		rec.ClientName = req.ClientName
	}
	if rec.ClientName == "" {
		rec.ClientName = "Unknown Client"
	}
	if rec.InvoiceDate == "" {
		rec.InvoiceDate = time.Now().UTC().Format("2006-01-02")
	}
	rec.TotalEntries = len(rec.Items)

	if req.ExpectedItems != nil && len(rec.Items) != *req.ExpectedItems {
		expected := *req.ExpectedItems
		got := len(rec.Items)
		o.Logger.Warn("extract.count_mismatch",
			"req_id", rid, "expected", expected, "got", got)

		corrected, err := o.correctCount(ctx, rid, rec, expected)
		if err != nil {
			return nil, &common.CountMismatchError{
				Expected:  expected,
				Got:       got,
				Corrected: -1,
				Truncated: truncated,
				Err:       err,
			}
		}
		if len(corrected.Items) != expected {
			return nil, &common.CountMismatchError{
				Expected:  expected,
				Got:       got,
				Corrected: len(corrected.Items),
				Truncated: truncated,
			}
		}
		rec = corrected
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildRecordJSONSchema(), b); err != nil {
		return nil, fmt.Errorf("record validation (%v): %w", err, common.ErrStructural)
	}
	return rec, nil
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
