// Package server exposes the generate_climos workflow over HTTP using typed
// handlers. It owns the transport-side concerns the core does not: request
// decoding and validation, the single-active-job discipline, the progress
// event feed, and serving produced files.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tlvu/thunderbird/internal/climos"
	"github.com/tlvu/thunderbird/internal/config"
	"github.com/tlvu/thunderbird/internal/dataset"
	"github.com/tlvu/thunderbird/internal/diagnostics"
	"github.com/tlvu/thunderbird/internal/domain"
	"github.com/tlvu/thunderbird/internal/jobs"
	"github.com/tlvu/thunderbird/internal/process"
	"github.com/tlvu/thunderbird/internal/tool"
)

// processRunner isolates the orchestration core behind an interface.
type processRunner interface {
	Handle(ctx context.Context, workdir string, req process.Request, resp process.Responder) error
}

// processFactory builds a core bound to the current settings. fileURL maps a
// produced file name to the URL recorded in the manifest.
type processFactory func(settings domain.Settings, fileURL func(workdir, name string) string, logger *zap.Logger) processRunner

// defaultProcessFactory wires the real collaborators.
func defaultProcessFactory(settings domain.Settings, fileURL func(workdir, name string) string, logger *zap.Logger) processRunner {
	opener := dataset.NewOpener(settings.NCInfoPath)
	generator := climos.NewGenerator(settings.GenerateClimosPath)
	return process.New(opener, generator, fileURL, logger)
}

// Server wires settings, jobs, diagnostics, and the process core.
type Server struct {
	store   config.Store
	jobs    *jobs.Manager
	events  *jobs.EventBus
	checker *diagnostics.Checker
	factory processFactory
	logger  *zap.Logger

	mu            sync.Mutex
	settings      domain.Settings
	diagnostics   domain.DiagnosticReport
	activeWorkdir string
}

// New builds the server with persisted settings and startup diagnostics.
func New(store config.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &Server{
		store:       store,
		jobs:        jobs.NewManager(),
		events:      jobs.NewEventBus(1000),
		checker:     checker,
		factory:     defaultProcessFactory,
		logger:      logger,
		settings:    settings,
		diagnostics: report,
	}, nil
}

// NewForTests builds a server with an injectable checker and process factory.
func NewForTests(store config.Store, checker *diagnostics.Checker, factory processFactory, logger *zap.Logger) (*Server, error) {
	srv, err := New(store, logger)
	if err != nil {
		return nil, err
	}
	if checker != nil {
		srv.checker = checker
		srv.diagnostics = checker.Run(srv.settings)
	}
	if factory != nil {
		srv.factory = factory
	}
	return srv, nil
}

// Settings returns the current settings snapshot.
func (s *Server) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
// Listen address changes take effect on restart.
func (s *Server) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := s.store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.settings = normalized
	s.diagnostics = s.checker.Run(normalized)
	s.mu.Unlock()

	return normalized, nil
}

// Diagnostics returns the latest cached diagnostics report.
func (s *Server) Diagnostics() domain.DiagnosticReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (s *Server) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := s.store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	s.mu.Lock()
	s.settings = settings
	s.diagnostics = s.checker.Run(settings)
	report := s.diagnostics
	s.mu.Unlock()

	return report, nil
}

// CurrentJob returns current job metadata and status.
func (s *Server) CurrentJob() domain.Job {
	return s.jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (s *Server) JobEvents(sinceSeq int64) []jobs.Event {
	return s.events.Since(sinceSeq)
}

// StartJob creates a job for one interpreted request and runs it
// asynchronously. Only one job may be active at a time.
func (s *Server) StartJob(req process.Request) (domain.Job, error) {
	jobID := uuid.NewString()
	if err := s.jobs.Start(jobID); err != nil {
		return domain.Job{}, err
	}

	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	workdir := filepath.Join(settings.WorkRoot, jobID)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		s.jobs.Fail(fmt.Sprintf("create working directory: %v", err))
		return domain.Job{}, fmt.Errorf("create working directory %s: %w", workdir, err)
	}

	s.mu.Lock()
	s.activeWorkdir = workdir
	s.mu.Unlock()

	req.OnToolLog = s.toolLogPublisher(jobID)

	fileURL := func(workdir, name string) string {
		return settings.BaseURL + "/outputs/" + name
	}
	proc := s.factory(settings, fileURL, s.logger.Named("process"))

	s.publish(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  domain.JobStatusOpening,
		Message: "Job accepted",
	})

	go s.runJob(context.Background(), proc, jobID, workdir, req)
	return s.jobs.Current(), nil
}

// runJob executes the core and maps outcomes to job events. Requests run to
// completion or abort on unhandled failure; there is no cancellation.
func (s *Server) runJob(ctx context.Context, proc processRunner, jobID, workdir string, req process.Request) {
	resp := &jobResponder{srv: s, jobID: jobID}

	if err := proc.Handle(ctx, workdir, req, resp); err != nil {
		s.logger.Error("job failed", zap.String("job", jobID), zap.Error(err))
		s.jobs.Fail(err.Error())
		s.publish(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  domain.JobStatusFailed,
			Message: err.Error(),
		})
		return
	}

	// The terminal "Completed process" update has already moved the job to
	// done; this is a no-op safeguard for dry runs and zero-work requests.
	_ = s.jobs.Transition(domain.JobStatusDone)
	s.logger.Info("job completed", zap.String("job", jobID))
}

// publish stores one event in the feed.
func (s *Server) publish(event jobs.Event) {
	s.events.Publish(event)
}

// toolLogPublisher converts external command logs into log events.
func (s *Server) toolLogPublisher(jobID string) func(log tool.Log) {
	return func(log tool.Log) {
		s.publish(jobs.Event{
			JobID:    jobID,
			Type:     jobs.EventTypeLog,
			Message:  "Command completed",
			Command:  log.Command,
			Args:     log.Args,
			ExitCode: log.ExitCode,
			Stdout:   log.Stdout,
			Stderr:   log.Stderr,
		})
	}
}

// serveOutput streams one produced file from the active working directory.
func (s *Server) serveOutput(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid output name", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	workdir := s.activeWorkdir
	s.mu.Unlock()
	if workdir == "" {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(workdir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/x-netcdf")
	http.ServeFile(w, r, path)
}
