package domain

// Operation selects the statistic computed over each climatological period.
type Operation string

const (
	OperationMean Operation = "mean"
	OperationStd  Operation = "std"
)

// Resolution is an output temporal resolution for generated climo files.
type Resolution string

const (
	ResolutionYearly   Resolution = "yearly"
	ResolutionSeasonal Resolution = "seasonal"
	ResolutionMonthly  Resolution = "monthly"
)

// JobStatus tracks each stage of a single climo generation job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusOpening    JobStatus = "opening"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCollecting JobStatus = "collecting"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Settings contains operator-adjustable runtime configuration.
type Settings struct {
	ListenAddr         string `json:"listenAddr" validate:"required"`
	BaseURL            string `json:"baseUrl" validate:"required,url"`
	WorkRoot           string `json:"workRoot" validate:"required"`
	GenerateClimosPath string `json:"generateClimosPath" validate:"required"`
	NCInfoPath         string `json:"ncinfoPath" validate:"required"`
}

// Job stores the current job identity, lifecycle status, and outcome.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}
