package llm

import "context"

// TextService is the narrow boundary to the LLM provider: prompt text plus an
// optional uploaded document in, raw text out. The response is expected to be
// JSON-shaped but is treated as untrusted; see the recovery parser.
type TextService interface {
	// GenerateText sends a text-only prompt and returns the raw response text.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateWithFile sends a prompt together with a previously uploaded
	// document and returns the raw response text.
	GenerateWithFile(ctx context.Context, prompt, fileID string) (string, error)

	// UploadFile registers a transient document with the provider and returns
	// its id. Every uploaded file must be released with DeleteFile once the
	// call that needed it completes, success or failure.
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)

	// DeleteFile releases a previously uploaded document.
	DeleteFile(ctx context.Context, fileID string) error
}
