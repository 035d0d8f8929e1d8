// Package discovery finds candidate appraisal documents in the loan portal
// and fetches their bytes. The rest of the system depends only on the
// Discoverer interface; session lifecycle stays inside this package.
package discovery

import (
	"context"
	"errors"

	"github.com/zhada/appraisal-extractor/internal/entity"
)

var (
	// ErrUnavailable marks a portal that cannot currently be reached.
	ErrUnavailable = errors.New("portal unavailable")

	// ErrNotFound marks a document that no longer exists at its locator.
	ErrNotFound = errors.New("document not found")
)

// Discoverer lists candidate work items and fetches document bytes.
type Discoverer interface {
	// ListCandidates returns discovered documents in stable portal order
	// (oldest first).
	ListCandidates(ctx context.Context) ([]entity.WorkItem, error)

	// FetchBytes downloads the document at the given source locator.
	FetchBytes(ctx context.Context, locator string) ([]byte, error)
}
