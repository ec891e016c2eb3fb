// Package process implements the generate_climos workflow: interpret one
// request, intersect its climatological periods with the dataset catalog,
// drive the computation tool once per matched period with progress
// accounting, and aggregate produced files into a metalink manifest.
package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/tlvu/thunderbird/internal/climos"
	"github.com/tlvu/thunderbird/internal/dataset"
	"github.com/tlvu/thunderbird/internal/domain"
	"github.com/tlvu/thunderbird/internal/metalink"
	"github.com/tlvu/thunderbird/internal/tool"
)

// Progress milestones: the baseline reflects "dataset opened", the ceiling
// reserves the final band for output collection. The band between them is
// split across the matched periods, one fixed tick before each tool call and
// one linear increment after it.
const (
	progressBaseline = 5.0
	progressCeiling  = 95.0
)

// Request is one immutable climo-generation request, as interpreted from the
// transport layer. Allowed-value membership is enforced upstream.
type Request struct {
	Dataset           string
	Operation         domain.Operation
	Periods           []string
	Resolutions       []domain.Resolution
	ConvertLongitudes bool
	SplitVars         bool
	SplitIntervals    bool
	DryRun            bool

	// OnToolLog receives one entry per external command invocation.
	OnToolLog func(log tool.Log)
}

// Responder is the response-transport contract: progress updates plus the
// two named outputs, of which exactly one is set per request.
type Responder interface {
	UpdateStatus(message string, percent float64)
	SetOutput(manifest *metalink.Document)
	SetDryOutput(report string)
}

// Opener abstracts the dataset collaborator.
type Opener interface {
	Open(ctx context.Context, location string) (*dataset.CFDataset, error)
}

// Generator abstracts the climatology-computation collaborator.
type Generator interface {
	Generate(ctx context.Context, req climos.Request) error
}

// Process orchestrates one request start-to-finish. It holds no per-request
// state; everything a request needs is passed through Handle.
type Process struct {
	opener    Opener
	generator Generator
	logger    *zap.Logger
	readDir   func(name string) ([]os.DirEntry, error)
	stat      func(name string) (os.FileInfo, error)
	fileURL   func(workdir, name string) string
}

// New constructs the production process. fileURL maps a produced file to the
// location recorded in the manifest; nil means file:// URLs.
func New(opener Opener, generator Generator, fileURL func(workdir, name string) string, logger *zap.Logger) *Process {
	if fileURL == nil {
		fileURL = localFileURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Process{
		opener:    opener,
		generator: generator,
		logger:    logger,
		readDir:   os.ReadDir,
		stat:      os.Stat,
		fileURL:   fileURL,
	}
}

// Handle runs one request against the given private working directory. All
// progress and outputs flow through resp; any returned error means the
// request aborted with no manifest produced.
func (p *Process) Handle(ctx context.Context, workdir string, req Request, resp Responder) error {
	req = normalize(req)

	// Progress is monotone non-decreasing for the life of one request and
	// lands at exactly 100 on completion.
	last := 0.0
	report := func(message string, percent float64) {
		if percent < last {
			percent = last
		}
		if percent > 100 {
			percent = 100
		}
		last = percent
		resp.UpdateStatus(message, percent)
	}

	report("Starting Process", 0)

	if req.DryRun {
		p.logger.Info("dry run", zap.String("dataset", req.Dataset))
		resp.SetDryOutput(p.dryRunInfo(ctx, req.Dataset, req.Periods))
		report("Completed process", 100)
		return nil
	}

	report(fmt.Sprintf("Processing %s", req.Dataset), 0)
	ds, err := p.opener.Open(ctx, req.Dataset)
	if err != nil {
		return fmt.Errorf("open dataset %s: %w", req.Dataset, err)
	}

	progress := progressBaseline
	catalog := ds.ClimoPeriods()
	matched := matchPeriods(catalog, req.Periods)
	total := len(matched)
	p.logger.Info("matched climatological periods",
		zap.Strings("requested", req.Periods),
		zap.Strings("matched", matched))

	if total == 0 {
		// No divisible work. Skip straight to collection so the manifest
		// still enumerates whatever sits in the working directory.
		report("No requested climatological periods available in dataset", progress)
	} else {
		increment := (progressCeiling - progress - float64(total)) / float64(total)
		remaining := total
		for _, label := range matched {
			progress++
			report(fmt.Sprintf("Processing file %d/%d", remaining, total), progress)

			timeRange := catalog[label]
			err := p.generator.Generate(ctx, climos.Request{
				Workdir:           workdir,
				Dataset:           ds,
				Operation:         req.Operation,
				TimeStart:         timeRange.Start,
				TimeEnd:           timeRange.End,
				ConvertLongitudes: req.ConvertLongitudes,
				SplitVars:         req.SplitVars,
				SplitIntervals:    req.SplitIntervals,
				Resolutions:       req.Resolutions,
				OnLog:             req.OnToolLog,
			})
			if err != nil {
				return fmt.Errorf("generate climos for period %s: %w", label, err)
			}

			progress += increment
			remaining--
			report("Climo file created", progress)
		}
	}

	report("Collecting output files", progress)
	manifest, err := p.buildManifest(workdir)
	if err != nil {
		return err
	}
	p.logger.Info("collected output files", zap.Int("count", manifest.Len()))

	resp.SetOutput(manifest)
	report("Completed process", 100)
	return nil
}

// normalize flattens the multi-valued inputs into deduplicated sorted sets.
func normalize(req Request) Request {
	req.Periods = dedupeSorted(req.Periods)

	seen := make(map[domain.Resolution]bool, len(req.Resolutions))
	resolutions := make([]domain.Resolution, 0, len(req.Resolutions))
	for _, r := range req.Resolutions {
		if !seen[r] {
			seen[r] = true
			resolutions = append(resolutions, r)
		}
	}
	req.Resolutions = resolutions
	return req
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// matchPeriods intersects the requested period labels with the dataset
// catalog, in lexicographic order for reproducible progress messages.
func matchPeriods(catalog map[string]dataset.TimeRange, requested []string) []string {
	matched := make([]string, 0, len(requested))
	for _, label := range requested {
		if _, ok := catalog[label]; ok {
			matched = append(matched, label)
		}
	}
	sort.Strings(matched)
	return matched
}

// buildManifest scans the working directory (non-recursive) and references
// every produced climatology file, exactly as found.
func (p *Process) buildManifest(workdir string) (*metalink.Document, error) {
	files, err := p.collectClimoFiles(workdir)
	if err != nil {
		return nil, err
	}

	manifest := metalink.New("outputs", "Output of netCDF climo files")
	var totalSize int64
	for _, name := range files {
		entry := metalink.File{
			Name:        name,
			Identity:    "Climatology",
			Description: "Climatology",
			MetaURL: metalink.MetaURL{
				MediaType: metalink.MediaTypeNetCDF,
				URL:       p.fileURL(workdir, name),
			},
		}
		if info, statErr := p.stat(filepath.Join(workdir, name)); statErr == nil {
			entry.Size = info.Size()
			totalSize += info.Size()
		}
		manifest.Append(entry)
	}
	p.logger.Debug("manifest assembled",
		zap.Int("files", manifest.Len()),
		zap.String("totalSize", humanize.Bytes(uint64(totalSize))))
	return manifest, nil
}

// collectClimoFiles lists produced .nc files in sorted order.
func (p *Process) collectClimoFiles(workdir string) ([]string, error) {
	entries, err := p.readDir(workdir)
	if err != nil {
		return nil, fmt.Errorf("scan working directory %s: %w", workdir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".nc") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func localFileURL(workdir, name string) string {
	return "file://" + filepath.Join(workdir, name)
}

// NewForTests constructs a process with injectable filesystem dependencies.
func NewForTests(
	opener Opener,
	generator Generator,
	fileURL func(workdir, name string) string,
	readDir func(name string) ([]os.DirEntry, error),
	stat func(name string) (os.FileInfo, error),
) *Process {
	p := New(opener, generator, fileURL, zap.NewNop())
	if readDir != nil {
		p.readDir = readDir
	}
	if stat != nil {
		p.stat = stat
	}
	return p
}
