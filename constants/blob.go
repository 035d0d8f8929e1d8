package constants

import (
	"path"
	"strings"
)

// Blob layout for persisted results. One folder per loan key under BlobFolder,
// holding the source PDF plus one extraction result object.
const (
	BlobFolder       = "processed_appraisals/"
	SummaryFolder    = "processing_summaries/"
	ResultObjectName = "extraction_results.json"
)

// AllowedExtensions holds the file extensions accepted from discovery.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ResultPath returns the blob path for a document's extraction result.
func ResultPath(key string) string {
	return BlobFolder + path.Join(key, ResultObjectName)
}

// DocumentPath returns the blob path for a document's source bytes.
func DocumentPath(key, filename string) string {
	return BlobFolder + path.Join(key, filename)
}
