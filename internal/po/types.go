package po

import "context"

// LineItem is one canonical purchase-order row. Field names mirror the JSON
// keys the factory's order management expects; enum conformance of Metal,
// Tone, StockType and MakeType is a prompting concern, not validated here.
type LineItem struct {
	VendorStyleCode               string  `json:"VendorStyleCode"`
	Category                      string  `json:"Category"`
	ItemSize                      *string `json:"ItemSize"`
	OrderQty                      float64 `json:"OrderQty"`
	Metal                         string  `json:"Metal"`
	Tone                          string  `json:"Tone"`
	ItemPoNo                      string  `json:"ItemPoNo"`
	ItemRefNo                     string  `json:"ItemRefNo"`
	StockType                     *string `json:"StockType"`
	MakeType                      *string `json:"MakeType"`
	CustomerProductionInstruction *string `json:"CustomerProductionInstruction"`
	SpecialRemarks                *string `json:"SpecialRemarks"`
	DesignProductionInstruction   *string `json:"DesignProductionInstruction"`
	StampInstruction              *string `json:"StampInstruction"`
}

// Record is the canonical extraction output. Before a Record is returned to
// the caller, TotalEntries == len(Items), and when the request declared an
// expected count, len(Items) equals it exactly.
type Record struct {
	TotalValue    *float64   `json:"total_value"`
	ClientName    string     `json:"client_name"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	TotalEntries  int        `json:"total_entries"`
	Items         []LineItem `json:"items"`
}

// PageRange addresses an inclusive, 1-indexed span of source pages.
// ExpectedItems, when set, is a hard per-chunk count constraint.
type PageRange struct {
	StartPage     int
	EndPage       int
	ExpectedItems *int
}

// Request is the immutable input to the extraction orchestrator. Document
// bytes are already in hand; where they came from is the caller's concern.
type Request struct {
	Document      []byte
	Format        string // constants.PDF, constants.XLSX or constants.XLS
	Filename      string
	ClientName    string
	MappingText   string
	ExpectedItems *int
	PageRanges    []PageRange
}

// Extractor is the interface the surrounding application depends on.
// One request yields exactly one Record or a terminal error; there is no
// partial delivery.
type Extractor interface {
	ExtractPurchaseOrder(ctx context.Context, req Request) (*Record, error)
}
