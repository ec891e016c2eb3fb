// Package climos invokes the external generate_climos tool, which computes
// climatological means or standard deviations for one period and writes zero
// or more NetCDF files into the working directory as a side effect.
package climos

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tlvu/thunderbird/internal/dataset"
	"github.com/tlvu/thunderbird/internal/domain"
	"github.com/tlvu/thunderbird/internal/tool"
)

// Request describes one generate_climos invocation.
type Request struct {
	Workdir           string
	Dataset           *dataset.CFDataset
	Operation         domain.Operation
	TimeStart         time.Time
	TimeEnd           time.Time
	ConvertLongitudes bool
	SplitVars         bool
	SplitIntervals    bool
	Resolutions       []domain.Resolution
	OnLog             func(log tool.Log)
}

// ToolError is a generate_climos failure with command context.
type ToolError struct {
	Message string   `json:"message"`
	Log     tool.Log `json:"commandLog"`
	Err     error    `json:"-"`
}

// Error formats tool failures for logs and job events.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Log.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (cmd=%s exit=%d)", e.Message, e.Log.Command, e.Log.ExitCode)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Generator runs the generate_climos binary.
type Generator struct {
	toolPath string
	runner   tool.Runner
}

// NewGenerator constructs the production generator.
func NewGenerator(toolPath string) *Generator {
	return &Generator{
		toolPath: toolPath,
		runner:   &tool.ExecRunner{},
	}
}

// Generate performs one synchronous tool invocation. Output files land in
// req.Workdir; the caller discovers them by rescanning the directory.
func (g *Generator) Generate(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Workdir) == "" {
		return &ToolError{Message: "working directory is required"}
	}
	if req.Dataset == nil {
		return &ToolError{Message: "dataset handle is required"}
	}

	args := buildArgs(req)
	result, runErr := g.runner.Run(ctx, g.toolPath, args...)
	log := tool.Log{
		Command:  g.toolPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if req.OnLog != nil {
		req.OnLog(log)
	}

	if runErr != nil {
		return &ToolError{
			Message: "generate_climos failed",
			Log:     log,
			Err:     runErr,
		}
	}
	return nil
}

// buildArgs builds the generate_climos CLI arguments for one period.
func buildArgs(req Request) []string {
	args := []string{
		"-o", req.Workdir,
		"--operation", string(req.Operation),
		"--time-start", req.TimeStart.Format("2006-01-02"),
		"--time-end", req.TimeEnd.Format("2006-01-02"),
	}

	if req.ConvertLongitudes {
		args = append(args, "--convert-longitudes")
	}
	if req.SplitVars {
		args = append(args, "--split-vars")
	}
	if req.SplitIntervals {
		args = append(args, "--split-intervals")
	}

	resolutions := make([]string, 0, len(req.Resolutions))
	for _, r := range req.Resolutions {
		resolutions = append(resolutions, string(r))
	}
	sort.Strings(resolutions)
	for _, r := range resolutions {
		args = append(args, "--resolution", r)
	}

	return append(args, req.Dataset.Location())
}

// NewGeneratorForTests constructs a generator with an injectable runner.
func NewGeneratorForTests(toolPath string, runner tool.Runner) *Generator {
	return &Generator{
		toolPath: toolPath,
		runner:   runner,
	}
}
