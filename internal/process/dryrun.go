package process

import (
	"context"
	"fmt"
	"strings"
)

// dryRunInfo produces the diagnostic report for a dry-run request. Every
// lookup runs inside its own failure boundary: a dataset with partial or
// malformed metadata still yields one line per attribute, because the point
// of a dry run is diagnostic completeness rather than strict validation.
func (p *Process) dryRunInfo(ctx context.Context, location string, periods []string) string {
	var b strings.Builder
	b.WriteString("Dry Run\n")
	fmt.Fprintf(&b, "File: %s\n", location)

	ds, err := p.opener.Open(ctx, location)
	if err != nil {
		fmt.Fprintf(&b, "%s: %s\n", errKind(err), err.Error())
		return b.String()
	}

	matched := matchPeriods(ds.ClimoPeriods(), dedupeSorted(periods))
	fmt.Fprintf(&b, "climo_periods: {%s}\n", strings.Join(matched, ", "))

	fields := []struct {
		label string
		get   func() (string, error)
	}{
		{"project", func() (string, error) { return ds.MetadataField("project") }},
		{"institution", func() (string, error) { return ds.MetadataField("institution") }},
		{"model", func() (string, error) { return ds.MetadataField("model") }},
		{"emissions", func() (string, error) { return ds.MetadataField("emissions") }},
		{"run", func() (string, error) { return ds.MetadataField("run") }},
		{"dependent_varnames", func() (string, error) {
			return fmt.Sprintf("%v", ds.DependentVarnames()), nil
		}},
		{"time_resolution", func() (string, error) { return ds.TimeResolution() }},
		{"is_multi_year_mean", func() (string, error) {
			mym, err := ds.IsMultiYearMean()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%t", mym), nil
		}},
	}

	for _, field := range fields {
		value, err := field.get()
		if err != nil {
			fmt.Fprintf(&b, "%s: %s: %s\n", field.label, errKind(err), err.Error())
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field.label, value)
	}

	return b.String()
}
