package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/entity"
	"github.com/zhada/appraisal-extractor/internal/llm"
)

var longText = strings.Repeat("appraisal report text ", 50)

func goodPayload() map[string]any {
	return map[string]any{
		"Appraisal Form Type":               "Fannie Mae Form 1004",
		"Subject Property Address":          "123 Main St, Austin, TX 78701",
		"Effective Date of Appraisal":       "2026-07-15",
		"Appraiser Name":                    "Jane Roe",
		"Borrower Name":                     "John Doe",
		"Document Title":                    "Uniform Residential Appraisal Report",
		"Subject Additional Square Footage": float64(0),
		"Subject Property Value":            float64(650000),
		"As-Is Value":                       float64(650000),
		"ARV Value":                         float64(850000),
		"Sales Comparables":                 []any{},
		"ARV Comparables":                   []any{},
		"Land Comparables":                  []any{},
		"Other Comparables":                 []any{},
	}
}

type fakeFetcher struct {
	data  []byte
	errs  []error // consumed per call; nil entry means success
	calls atomic.Int32
}

func (f *fakeFetcher) ListCandidates(ctx context.Context) ([]entity.WorkItem, error) {
	return nil, nil
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	n := int(f.calls.Add(1))
	if n <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}
	return f.data, nil
}

type fakeParser struct {
	text  string
	err   error
	calls atomic.Int32
}

func (p *fakeParser) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	p.calls.Add(1)
	return p.text, p.err
}

type fakeExtractor struct {
	payload map[string]any
	err     error
	calls   atomic.Int32
}

func (e *fakeExtractor) ExtractStructured(ctx context.Context, req llm.ExtractRequest) (map[string]any, []byte, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, nil, e.err
	}
	return e.payload, nil, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	jsons   map[string]any
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, jsons: map[string]any{}}
}

func (s *fakeStore) ListProcessedKeys(ctx context.Context) (map[string]struct{}, error) {
	return nil, nil
}

func (s *fakeStore) PutObject(ctx context.Context, path string, data []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return nil
}

func (s *fakeStore) PutJSON(ctx context.Context, path string, v any) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsons[path] = v
	return nil
}

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, AttemptTimeout: time.Second}
}

func testItem() entity.WorkItem {
	return entity.WorkItem{Key: "L-1001", Filename: "appraisal.pdf", SourceLocator: "docs/appraisal.pdf"}
}

func TestExecute_SuccessPath(t *testing.T) {
	store := newFakeStore()
	p := NewProcessor(fastConfig(), nil,
		&fakeFetcher{data: []byte("pdf bytes")},
		&fakeParser{text: longText},
		&fakeExtractor{payload: goodPayload()},
		nil, store)

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeSucceeded, out.Kind)
	assert.Equal(t, constants.StageCompleted, out.Stage)
	require.NotNil(t, out.Record)
	assert.True(t, out.Record.Complete)
	assert.Equal(t, len(longText), out.TextLen)

	// both the source bytes and the result object were persisted
	assert.Contains(t, store.objects, "processed_appraisals/L-1001/appraisal.pdf")
	assert.Contains(t, store.jsons, "processed_appraisals/L-1001/extraction_results.json")
}

func TestExecute_ShortTextFailsWithoutAICall(t *testing.T) {
	extractor := &fakeExtractor{payload: goodPayload()}
	p := NewProcessor(fastConfig(), nil,
		&fakeFetcher{data: []byte("pdf bytes")},
		&fakeParser{text: "too short"},
		extractor, nil, newFakeStore())

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeFailed, out.Kind)
	assert.Equal(t, constants.StageTextExtracting, out.Stage)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "no extractable content")
	assert.Equal(t, common.ClassPermanent, common.ClassOf(out.Err))
	assert.Equal(t, int32(0), extractor.calls.Load())
}

func TestExecute_IncompleteRecordStillUploadedAsPartial(t *testing.T) {
	payload := goodPayload()
	delete(payload, "Appraiser Name")
	store := newFakeStore()
	p := NewProcessor(fastConfig(), nil,
		&fakeFetcher{data: []byte("pdf bytes")},
		&fakeParser{text: longText},
		&fakeExtractor{payload: payload},
		nil, store)

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomePartial, out.Kind)
	assert.Equal(t, constants.StageCompleted, out.Stage)
	require.NotNil(t, out.Record)
	assert.False(t, out.Record.Complete)
	assert.Contains(t, out.Record.MissingFields, "Appraiser Name")
	assert.Contains(t, store.jsons, "processed_appraisals/L-1001/extraction_results.json")
}

func TestExecute_PermanentDownloadFailureDoesNotRetry(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{
		common.Permanent("pipeline.download", errors.New("document gone")),
		common.Permanent("pipeline.download", errors.New("document gone")),
		common.Permanent("pipeline.download", errors.New("document gone")),
	}}
	parser := &fakeParser{text: longText}
	p := NewProcessor(fastConfig(), nil, fetcher, parser,
		&fakeExtractor{payload: goodPayload()}, nil, newFakeStore())

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeFailed, out.Kind)
	assert.Equal(t, constants.StageDownloading, out.Stage)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, int32(0), parser.calls.Load())
}

func TestExecute_TransientDownloadFailureRecovers(t *testing.T) {
	fetcher := &fakeFetcher{
		data: []byte("pdf bytes"),
		errs: []error{common.Transient("pipeline.download", errors.New("connection reset")), nil},
	}
	p := NewProcessor(fastConfig(), nil, fetcher,
		&fakeParser{text: longText},
		&fakeExtractor{payload: goodPayload()},
		nil, newFakeStore())

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeSucceeded, out.Kind)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestExecute_AIFailureExhaustsRetries(t *testing.T) {
	extractor := &fakeExtractor{err: common.Transient("llm.extract", errors.New("model overloaded"))}
	p := NewProcessor(fastConfig(), nil,
		&fakeFetcher{data: []byte("pdf bytes")},
		&fakeParser{text: longText},
		extractor, nil, newFakeStore())

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeFailed, out.Kind)
	assert.Equal(t, constants.StageAIExtracting, out.Stage)
	assert.Equal(t, int32(3), extractor.calls.Load())
}

func TestExecute_UploadFailureFailsTheRun(t *testing.T) {
	store := newFakeStore()
	store.putErr = common.Permanent("storage.put", errors.New("container deleted"))
	p := NewProcessor(fastConfig(), nil,
		&fakeFetcher{data: []byte("pdf bytes")},
		&fakeParser{text: longText},
		&fakeExtractor{payload: goodPayload()},
		nil, store)

	out := p.Execute(context.Background(), testItem())

	assert.Equal(t, constants.OutcomeFailed, out.Kind)
	assert.Equal(t, constants.StageUploading, out.Stage)
}
