package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tlvu/thunderbird/internal/domain"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("generate_climos", settings.GenerateClimosPath),
		c.checkTool("ncinfo", settings.NCInfoPath),
		c.checkWorkRoot(settings.WorkRoot),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is available. Absolute paths
// are checked directly; bare names are resolved on PATH.
func (c *Checker) checkTool(name, configured string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_" + name,
		Name: name,
	}

	configured = strings.TrimSpace(configured)
	if configured == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No path configured for %s.", name)
		item.Hint = "Set the tool path in settings or install it on PATH."
		return item
	}

	path, err := c.lookPath(configured)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Tool not found: %s", configured)
		item.Hint = "Install the PCIC climate-data tools and ensure the binary is reachable before submitting a job."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkWorkRoot validates the per-request working directory root exists and
// is writable.
func (c *Checker) checkWorkRoot(workRoot string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "work_root",
		Name: "Work root",
	}

	if strings.TrimSpace(workRoot) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Work root is empty."
		item.Hint = "Set a directory where per-request working directories can be created."
		return item
	}

	if err := c.mkdirAll(workRoot, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create work root: %s", workRoot)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(workRoot, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Work root is not writable: %s", workRoot)
		item.Hint = "Choose a writable directory for climo output staging."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", workRoot)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
