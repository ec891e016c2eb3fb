package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pavelpascari/typedhttp/pkg/typedhttp"
	"go.uber.org/zap"

	"github.com/tlvu/thunderbird/internal/domain"
	"github.com/tlvu/thunderbird/internal/jobs"
	"github.com/tlvu/thunderbird/internal/metalink"
	"github.com/tlvu/thunderbird/internal/process"
)

// ExecuteRequest is the inbound job submission. Flag pointers distinguish
// "omitted" from "explicit false"; omitted flags default to true, matching
// the tool's own defaults.
type ExecuteRequest struct {
	Dataset           string   `json:"dataset" validate:"required"`
	Operation         string   `json:"operation" validate:"required,oneof=mean std"`
	ClimoPeriods      []string `json:"climoPeriods" validate:"required,min=1,max=6,dive,oneof=6190 7100 8100 2020 2050 2080"`
	Resolutions       []string `json:"resolutions" validate:"required,min=1,max=3,dive,oneof=yearly seasonal monthly"`
	ConvertLongitudes *bool    `json:"convertLongitudes"`
	SplitVars         *bool    `json:"splitVars"`
	SplitIntervals    *bool    `json:"splitIntervals"`
	DryRun            bool     `json:"dryRun"`
}

// ExecuteResponse acknowledges an accepted job.
type ExecuteResponse struct {
	Job domain.Job `json:"job"`
}

type executeHandler struct {
	srv *Server
}

func (h *executeHandler) Handle(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	resolutions := make([]domain.Resolution, 0, len(req.Resolutions))
	for _, r := range req.Resolutions {
		resolutions = append(resolutions, domain.Resolution(r))
	}

	job, err := h.srv.StartJob(process.Request{
		Dataset:           req.Dataset,
		Operation:         domain.Operation(req.Operation),
		Periods:           req.ClimoPeriods,
		Resolutions:       resolutions,
		ConvertLongitudes: flagValue(req.ConvertLongitudes),
		SplitVars:         flagValue(req.SplitVars),
		SplitIntervals:    flagValue(req.SplitIntervals),
		DryRun:            req.DryRun,
	})
	if err != nil {
		if errors.Is(err, jobs.ErrJobAlreadyRunning) {
			return ExecuteResponse{}, typedhttp.NewConflictError("a job is already running")
		}
		return ExecuteResponse{}, err
	}

	return ExecuteResponse{Job: job}, nil
}

// flagValue resolves an optional boolean flag, defaulting to true.
func flagValue(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// CurrentJobRequest is empty; the endpoint takes no parameters.
type CurrentJobRequest struct{}

// CurrentJobResponse reports the current job and whether it is active.
type CurrentJobResponse struct {
	Job     domain.Job `json:"job"`
	Running bool       `json:"running"`
}

type currentJobHandler struct {
	srv *Server
}

func (h *currentJobHandler) Handle(ctx context.Context, req CurrentJobRequest) (CurrentJobResponse, error) {
	return CurrentJobResponse{
		Job:     h.srv.CurrentJob(),
		Running: h.srv.jobs.IsRunning(),
	}, nil
}

// EventsRequest selects events after a sequence number.
type EventsRequest struct {
	Since int64 `query:"since" validate:"min=0"`
}

// EventsResponse carries an incremental slice of the event feed.
type EventsResponse struct {
	Events []jobs.Event `json:"events"`
}

type eventsHandler struct {
	srv *Server
}

func (h *eventsHandler) Handle(ctx context.Context, req EventsRequest) (EventsResponse, error) {
	return EventsResponse{Events: h.srv.JobEvents(req.Since)}, nil
}

type diagnosticsRequest struct{}

type diagnosticsHandler struct {
	srv *Server
}

func (h *diagnosticsHandler) Handle(ctx context.Context, req diagnosticsRequest) (domain.DiagnosticReport, error) {
	return h.srv.Diagnostics(), nil
}

type refreshDiagnosticsHandler struct {
	srv *Server
}

func (h *refreshDiagnosticsHandler) Handle(ctx context.Context, req diagnosticsRequest) (domain.DiagnosticReport, error) {
	return h.srv.RefreshDiagnostics()
}

type settingsRequest struct{}

type getSettingsHandler struct {
	srv *Server
}

func (h *getSettingsHandler) Handle(ctx context.Context, req settingsRequest) (domain.Settings, error) {
	return h.srv.Settings(), nil
}

// UpdateSettingsRequest replaces the persisted settings wholesale. Empty
// fields fall back to defaults during normalization.
type UpdateSettingsRequest struct {
	ListenAddr         string `json:"listenAddr"`
	BaseURL            string `json:"baseUrl"`
	WorkRoot           string `json:"workRoot"`
	GenerateClimosPath string `json:"generateClimosPath"`
	NCInfoPath         string `json:"ncinfoPath"`
}

type updateSettingsHandler struct {
	srv *Server
}

func (h *updateSettingsHandler) Handle(ctx context.Context, req UpdateSettingsRequest) (domain.Settings, error) {
	return h.srv.SaveSettings(domain.Settings{
		ListenAddr:         req.ListenAddr,
		BaseURL:            req.BaseURL,
		WorkRoot:           req.WorkRoot,
		GenerateClimosPath: req.GenerateClimosPath,
		NCInfoPath:         req.NCInfoPath,
	})
}

type healthRequest struct{}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}

type healthHandler struct{}

func (h *healthHandler) Handle(ctx context.Context, req healthRequest) (HealthResponse, error) {
	return HealthResponse{Status: "ok"}, nil
}

// Handler assembles the full HTTP surface: the typed API router plus the
// plain file-serving endpoint for produced outputs.
func (s *Server) Handler() http.Handler {
	router := typedhttp.NewRouter()

	typedhttp.POST(router, "/jobs", &executeHandler{srv: s},
		typedhttp.WithTags("jobs"),
		typedhttp.WithSummary("Submit a climatology generation job"),
	)
	typedhttp.GET(router, "/jobs/current", &currentJobHandler{srv: s},
		typedhttp.WithTags("jobs"),
		typedhttp.WithSummary("Get the current job"),
	)
	typedhttp.GET(router, "/jobs/events", &eventsHandler{srv: s},
		typedhttp.WithTags("jobs"),
		typedhttp.WithSummary("Read job events incrementally"),
	)
	typedhttp.GET(router, "/diagnostics", &diagnosticsHandler{srv: s},
		typedhttp.WithTags("diagnostics"),
		typedhttp.WithSummary("Get cached dependency diagnostics"),
	)
	typedhttp.POST(router, "/diagnostics/refresh", &refreshDiagnosticsHandler{srv: s},
		typedhttp.WithTags("diagnostics"),
		typedhttp.WithSummary("Rerun dependency diagnostics"),
	)
	typedhttp.GET(router, "/settings", &getSettingsHandler{srv: s},
		typedhttp.WithTags("settings"),
		typedhttp.WithSummary("Get service settings"),
	)
	typedhttp.PUT(router, "/settings", &updateSettingsHandler{srv: s},
		typedhttp.WithTags("settings"),
		typedhttp.WithSummary("Replace service settings"),
	)
	typedhttp.GET(router, "/healthz", &healthHandler{},
		typedhttp.WithSummary("Liveness probe"),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /outputs/{name}", s.serveOutput)
	mux.Handle("/", router)
	return mux
}

// jobResponder adapts progress callbacks into job transitions and events.
type jobResponder struct {
	srv   *Server
	jobID string
}

func (r *jobResponder) UpdateStatus(message string, percent float64) {
	if status, ok := statusForMessage(message); ok {
		_ = r.srv.jobs.Transition(status)
	}

	r.srv.publish(jobs.Event{
		JobID:   r.jobID,
		Type:    jobs.EventTypeStatus,
		Status:  r.srv.jobs.Current().Status,
		Message: message,
		Percent: percent,
	})
}

func (r *jobResponder) SetOutput(manifest *metalink.Document) {
	xml, err := manifest.XML()
	if err != nil {
		r.srv.logger.Error("encode manifest", zap.Error(err))
		return
	}

	r.srv.publish(jobs.Event{
		JobID:  r.jobID,
		Type:   jobs.EventTypeResult,
		Status: r.srv.jobs.Current().Status,
		Output: xml,
	})
}

func (r *jobResponder) SetDryOutput(report string) {
	r.srv.publish(jobs.Event{
		JobID:     r.jobID,
		Type:      jobs.EventTypeResult,
		Status:    r.srv.jobs.Current().Status,
		DryOutput: report,
	})
}

// statusForMessage maps the workflow's status messages onto job states.
func statusForMessage(message string) (domain.JobStatus, bool) {
	switch {
	case strings.HasPrefix(message, "Processing file "):
		return domain.JobStatusProcessing, true
	case message == "Collecting output files":
		return domain.JobStatusCollecting, true
	case message == "Completed process":
		return domain.JobStatusDone, true
	default:
		return "", false
	}
}
