package constants

// RunStage is the canonical stage for a document pipeline run.
type RunStage string

// Stable values (these exact strings appear in logs and summaries).
const (
	StageDiscovered     RunStage = "DISCOVERED"      // known, not yet dispatched
	StageDownloading    RunStage = "DOWNLOADING"     // fetching source bytes
	StageTextExtracting RunStage = "TEXT_EXTRACTING" // parse service call
	StageAIExtracting   RunStage = "AI_EXTRACTING"   // LLM structured extraction
	StageValidating     RunStage = "VALIDATING"      // local schema/field checks
	StageUploading      RunStage = "UPLOADING"       // blob + result persistence
	StageCompleted      RunStage = "COMPLETED"       // terminal success
	StageFailed         RunStage = "FAILED"          // terminal failure
)

// next maps each non-terminal stage to its legal successor.
var next = map[RunStage]RunStage{
	StageDiscovered:     StageDownloading,
	StageDownloading:    StageTextExtracting,
	StageTextExtracting: StageAIExtracting,
	StageAIExtracting:   StageValidating,
	StageValidating:     StageUploading,
	StageUploading:      StageCompleted,
}

// Next returns the successor stage, or StageFailed if s is terminal.
func (s RunStage) Next() RunStage {
	if n, ok := next[s]; ok {
		return n
	}
	return StageFailed
}

// Terminal reports whether s is a terminal stage.
func (s RunStage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// OutcomeKind classifies how a pipeline run ended.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "SUCCEEDED" // complete record persisted
	OutcomePartial   OutcomeKind = "PARTIAL"   // record persisted with missing fields
	OutcomeFailed    OutcomeKind = "FAILED"    // run failed before persistence
)
