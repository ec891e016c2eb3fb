package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tlvu/thunderbird/internal/tool"
)

// fakeRunner returns canned probe output for every invocation.
type fakeRunner struct {
	result tool.Result
	err    error

	lastName string
	lastArgs []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (tool.Result, error) {
	r.lastName = name
	r.lastArgs = args
	return r.result, r.err
}

func statOK(string) (os.FileInfo, error) { return nil, nil }

const probeJSON = `{
	"filepath": "/data/tasmax_day.nc",
	"time_range": {"start": "1950-01-01", "end": "2010-12-31"},
	"metadata": {"project": "CMIP5", "institution": "PCIC", "model": "CanESM2", "run": "r1i1p1"},
	"dependent_varnames": ["tasmax", "pr"],
	"time_resolution": "daily",
	"is_multi_year_mean": false
}`

// TestOpenParsesProbeOutput checks the happy path end to end.
func TestOpenParsesProbeOutput(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: probeJSON}}
	opener := NewOpenerForTests("ncinfo", runner, statOK)

	ds, err := opener.Open(context.Background(), "/data/tasmax_day.nc")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if runner.lastName != "ncinfo" {
		t.Fatalf("probe binary = %q, want ncinfo", runner.lastName)
	}
	if len(runner.lastArgs) != 2 || runner.lastArgs[0] != "--json" {
		t.Fatalf("probe args = %v, want [--json <location>]", runner.lastArgs)
	}

	if got := ds.TimeCoverage().Start.Year(); got != 1950 {
		t.Fatalf("coverage start year = %d, want 1950", got)
	}
	project, err := ds.MetadataField("project")
	if err != nil || project != "CMIP5" {
		t.Fatalf("project = %q, %v; want CMIP5", project, err)
	}
	if got := ds.DependentVarnames(); len(got) != 2 || got[0] != "pr" || got[1] != "tasmax" {
		t.Fatalf("varnames = %v, want sorted [pr tasmax]", got)
	}
	res, err := ds.TimeResolution()
	if err != nil || res != "daily" {
		t.Fatalf("time resolution = %q, %v; want daily", res, err)
	}
	mym, err := ds.IsMultiYearMean()
	if err != nil || mym {
		t.Fatalf("is_multi_year_mean = %v, %v; want false", mym, err)
	}
}

// TestClimoPeriodsIntersectsCoverage checks catalog derivation from coverage.
func TestClimoPeriodsIntersectsCoverage(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: probeJSON}}
	opener := NewOpenerForTests("ncinfo", runner, statOK)

	ds, err := opener.Open(context.Background(), "/data/tasmax_day.nc")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	catalog := ds.ClimoPeriods()
	for _, label := range []string{"6190", "7100", "8100"} {
		if _, ok := catalog[label]; !ok {
			t.Fatalf("catalog missing %s: %v", label, catalog)
		}
	}
	for _, label := range []string{"2020", "2050", "2080"} {
		if _, ok := catalog[label]; ok {
			t.Fatalf("catalog must not contain future period %s for 1950-2010 coverage", label)
		}
	}
}

// TestMetadataFieldMissingAttribute checks per-field failure reporting.
func TestMetadataFieldMissingAttribute(t *testing.T) {
	ds := NewForTests("x.nc", TimeRange{}, map[string]string{"project": "CMIP5"}, nil, nil, nil)

	_, err := ds.MetadataField("emissions")
	var missing *MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingAttributeError", err)
	}
	if missing.Attr != "emissions" {
		t.Fatalf("attr = %q, want emissions", missing.Attr)
	}
}

// TestAccessorsWithoutProbeValues checks nil-backed accessors fail independently.
func TestAccessorsWithoutProbeValues(t *testing.T) {
	ds := NewForTests("x.nc", TimeRange{}, nil, nil, nil, nil)

	if _, err := ds.TimeResolution(); err == nil {
		t.Fatal("expected missing time_resolution error")
	}
	if _, err := ds.IsMultiYearMean(); err == nil {
		t.Fatal("expected missing is_multi_year_mean error")
	}
}

// TestOpenMissingLocalFile checks stat failures surface as not-found errors.
func TestOpenMissingLocalFile(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: probeJSON}}
	opener := NewOpenerForTests("ncinfo", runner, func(string) (os.FileInfo, error) {
		return nil, os.ErrNotExist
	})

	_, err := opener.Open(context.Background(), "/data/missing.nc")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want not-exist", err)
	}
	if runner.lastName != "" {
		t.Fatal("probe must not run when the local file is missing")
	}
}

// TestOpenRemoteSkipsStat checks URL locations bypass the local stat.
func TestOpenRemoteSkipsStat(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: probeJSON}}
	opener := NewOpenerForTests("ncinfo", runner, func(string) (os.FileInfo, error) {
		return nil, os.ErrNotExist
	})

	_, err := opener.Open(context.Background(), "https://data.example.org/dodsC/tasmax.nc")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
}

// TestOpenProbeFailureIncludesStderr checks probe failures carry tool detail.
func TestOpenProbeFailureIncludesStderr(t *testing.T) {
	runner := &fakeRunner{
		result: tool.Result{Stderr: "not a NetCDF file", ExitCode: 1},
		err:    fmt.Errorf("exit status 1"),
	}
	opener := NewOpenerForTests("ncinfo", runner, statOK)

	_, err := opener.Open(context.Background(), "/data/garbage.bin")
	if err == nil || !strings.Contains(err.Error(), "not a NetCDF file") {
		t.Fatalf("error = %v, want stderr detail", err)
	}
}

// TestOpenInvalidProbeJSON checks corrupt probe output is an open failure.
func TestOpenInvalidProbeJSON(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: "{broken"}}
	opener := NewOpenerForTests("ncinfo", runner, statOK)

	if _, err := opener.Open(context.Background(), "/data/x.nc"); err == nil {
		t.Fatal("expected parse error")
	}
}

// TestOpenMissingTimeRange checks a probe document without coverage is rejected.
func TestOpenMissingTimeRange(t *testing.T) {
	runner := &fakeRunner{result: tool.Result{Stdout: `{"metadata": {}}`}}
	opener := NewOpenerForTests("ncinfo", runner, statOK)

	if _, err := opener.Open(context.Background(), "/data/x.nc"); err == nil {
		t.Fatal("expected missing time_range error")
	}
}

// TestKnownPeriodLabels checks the fixed period enumeration.
func TestKnownPeriodLabels(t *testing.T) {
	got := KnownPeriodLabels()
	want := []string{"2020", "2050", "2080", "6190", "7100", "8100"}
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels = %v, want %v", got, want)
		}
	}
}

// TestTimeRangeContains checks interval containment edge cases.
func TestTimeRangeContains(t *testing.T) {
	outer := TimeRange{Start: date(1961, time.January, 1), End: date(1990, time.December, 31)}
	if !outer.Contains(outer) {
		t.Fatal("a range must contain itself")
	}
	if outer.Contains(TimeRange{Start: date(1960, time.December, 31), End: date(1990, time.December, 31)}) {
		t.Fatal("range starting earlier must not be contained")
	}
}
