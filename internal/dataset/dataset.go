// Package dataset reads climate-dataset metadata through the external ncinfo
// probe. The service never parses NetCDF itself; everything it knows about a
// dataset comes from one probe invocation at open time.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tlvu/thunderbird/internal/tool"
)

// MissingAttributeError reports a metadata attribute absent from the dataset.
type MissingAttributeError struct {
	Attr string
}

// Error formats the missing attribute for diagnostic reports.
func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("dataset has no attribute %q", e.Attr)
}

// probeResult mirrors the JSON document printed by `ncinfo --json`.
type probeResult struct {
	Filepath  string `json:"filepath"`
	TimeRange *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"time_range"`
	Metadata          map[string]string `json:"metadata"`
	DependentVarnames []string          `json:"dependent_varnames"`
	TimeResolution    *string           `json:"time_resolution"`
	IsMultiYearMean   *bool             `json:"is_multi_year_mean"`
}

// CFDataset is an opened dataset handle: location plus probed metadata.
// All accessors are read-only; per-field lookups fail independently so a
// dataset with partial metadata can still be inspected.
type CFDataset struct {
	location        string
	coverage        TimeRange
	metadata        map[string]string
	varnames        []string
	timeResolution  *string
	isMultiYearMean *bool
}

// Location returns the path or URL the dataset was opened from.
func (d *CFDataset) Location() string {
	return d.location
}

// TimeCoverage returns the date range spanned by the dataset's time axis.
func (d *CFDataset) TimeCoverage() TimeRange {
	return d.coverage
}

// MetadataField returns one provenance attribute (project, institution,
// model, emissions, run) or a MissingAttributeError.
func (d *CFDataset) MetadataField(attr string) (string, error) {
	value, ok := d.metadata[attr]
	if !ok {
		return "", &MissingAttributeError{Attr: attr}
	}
	return value, nil
}

// DependentVarnames returns the dependent variable names in sorted order.
func (d *CFDataset) DependentVarnames() []string {
	out := append([]string(nil), d.varnames...)
	sort.Strings(out)
	return out
}

// TimeResolution returns the declared temporal resolution of the data.
func (d *CFDataset) TimeResolution() (string, error) {
	if d.timeResolution == nil {
		return "", &MissingAttributeError{Attr: "time_resolution"}
	}
	return *d.timeResolution, nil
}

// IsMultiYearMean reports whether the dataset is already a multi-year mean.
func (d *CFDataset) IsMultiYearMean() (bool, error) {
	if d.isMultiYearMean == nil {
		return false, &MissingAttributeError{Attr: "is_multi_year_mean"}
	}
	return *d.isMultiYearMean, nil
}

// ClimoPeriods returns the catalog of climatological periods whose full date
// range lies inside the dataset's time coverage.
func (d *CFDataset) ClimoPeriods() map[string]TimeRange {
	catalog := make(map[string]TimeRange)
	for label, rng := range periodDefinitions {
		if d.coverage.Contains(rng) {
			catalog[label] = rng
		}
	}
	return catalog
}

// Opener constructs CFDataset handles by running the ncinfo probe.
type Opener struct {
	ncinfoPath string
	runner     tool.Runner
	stat       func(name string) (os.FileInfo, error)
}

// NewOpener builds an opener using the real probe binary and OS dependencies.
func NewOpener(ncinfoPath string) *Opener {
	return &Opener{
		ncinfoPath: ncinfoPath,
		runner:     &tool.ExecRunner{},
		stat:       os.Stat,
	}
}

// Open probes the resource at location and returns a dataset handle.
// It fails with a descriptive error on a missing, incompatible, or corrupt
// resource.
func (o *Opener) Open(ctx context.Context, location string) (*CFDataset, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("dataset location is required")
	}

	// Remote resources (OPeNDAP URLs) are handed to the probe as-is; local
	// paths get a stat first for a crisp not-found error.
	if !strings.Contains(location, "://") {
		if _, err := o.stat(location); err != nil {
			return nil, err
		}
	}

	result, err := o.runner.Run(ctx, o.ncinfoPath, "--json", location)
	if err != nil {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("probe %s: %s", location, detail)
	}

	var probe probeResult
	if err := json.Unmarshal([]byte(result.Stdout), &probe); err != nil {
		return nil, fmt.Errorf("parse probe output for %s: %w", location, err)
	}

	if probe.TimeRange == nil {
		return nil, fmt.Errorf("probe output for %s has no time_range", location)
	}
	start, err := parseDate(probe.TimeRange.Start)
	if err != nil {
		return nil, fmt.Errorf("parse time_range.start: %w", err)
	}
	end, err := parseDate(probe.TimeRange.End)
	if err != nil {
		return nil, fmt.Errorf("parse time_range.end: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("time_range ends %s before it starts %s", probe.TimeRange.End, probe.TimeRange.Start)
	}

	return &CFDataset{
		location:        location,
		coverage:        TimeRange{Start: start, End: end},
		metadata:        probe.Metadata,
		varnames:        probe.DependentVarnames,
		timeResolution:  probe.TimeResolution,
		isMultiYearMean: probe.IsMultiYearMean,
	}, nil
}

// parseDate accepts plain dates and full RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// NewForTests constructs a dataset handle with fixed probe data.
func NewForTests(
	location string,
	coverage TimeRange,
	metadata map[string]string,
	varnames []string,
	timeResolution *string,
	isMultiYearMean *bool,
) *CFDataset {
	return &CFDataset{
		location:        location,
		coverage:        coverage,
		metadata:        metadata,
		varnames:        varnames,
		timeResolution:  timeResolution,
		isMultiYearMean: isMultiYearMean,
	}
}

// NewOpenerForTests creates an opener with injectable dependencies.
func NewOpenerForTests(
	ncinfoPath string,
	runner tool.Runner,
	stat func(name string) (os.FileInfo, error),
) *Opener {
	return &Opener{
		ncinfoPath: ncinfoPath,
		runner:     runner,
		stat:       stat,
	}
}
