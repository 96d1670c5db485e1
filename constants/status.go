package constants

// JobStatus is the canonical status for queued document jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED" // terminal failure
)

// Processing methods recorded on document results.
const (
	MethodDirectText  = "direct_text_extraction"
	MethodOCRPipeline = "ocr_pipeline"
)
