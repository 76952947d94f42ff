package constants

// RunStatus is the canonical status for rows in extraction_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning     RunStatus = "RUNNING"      // in progress
	RunStatusAccepted    RunStatus = "ACCEPTED"     // local result passed the quality gate
	RunStatusMerged      RunStatus = "MERGED"       // local and remote results merged
	RunStatusNeedsReview RunStatus = "NEEDS_REVIEW" // completed with warnings or low confidence
	RunStatusRateLimited RunStatus = "RATE_LIMITED" // remote quota exhausted, caller should retry
	RunStatusFailed      RunStatus = "FAILED"       // terminal failure
)

// Provider names reported in extraction metadata.
const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
	ProviderMerged = "local+remote"
)
