package llm

import "context"

// ExtractRequest carries everything the AI extraction call needs.
type ExtractRequest struct {
	Text         string // parsed document text (markdown)
	FilenameHint string // document filename, echoed back into the payload
}

// StructuredExtractor is the interface the pipeline depends on. It returns the
// decoded payload as an untyped map (the validator owns all shape assumptions)
// plus the raw JSON for auditing.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, req ExtractRequest) (map[string]any, []byte, error)
}
