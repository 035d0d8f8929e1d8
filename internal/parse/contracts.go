// Package parse turns PDF bytes into text through the document-layout
// extraction service.
package parse

import (
	"context"
	"errors"
)

var (
	// ErrServiceError marks a parse-service failure worth retrying.
	ErrServiceError = errors.New("parse service error")

	// ErrUnsupportedFormat marks input the service will never accept.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// TextExtractor is the interface the pipeline depends on.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}
