package sync

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// ItemResult is the outcome of publishing a single record.
type ItemResult struct {
	Kind    RecordKind
	Key     string
	Outcome Outcome
	Err     error
}

// Report collects the per item outcomes of a publish run.
type Report struct {
	RunID   string
	DryRun  bool
	Items   []ItemResult
	Created int
	Updated int
	Skipped int
	Failed  int
}

func (r *Report) add(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case Created:
		r.Created++
	case Updated:
		r.Updated++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	}
}

// Err combines the errors of all failed items, or returns nil.
func (r Report) Err() error {
	var result *multierror.Error
	for _, item := range r.Items {
		if item.Outcome == Failed && item.Err != nil {
			result = multierror.Append(result, item.Err)
		}
	}
	return result.ErrorOrNil()
}

func (r Report) Summary() string {
	s := fmt.Sprintf("%d created, %d updated, %d skipped, %d failed", r.Created, r.Updated, r.Skipped, r.Failed)
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

// WriteCSV writes one row per item.
func (r Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Run", "Kind", "Record", "Outcome", "Error"}); err != nil {
		return err
	}
	for _, item := range r.Items {
		var msg string
		if item.Err != nil {
			msg = item.Err.Error()
		}
		if err := writer.Write([]string{r.RunID, item.Kind.String(), item.Key, string(item.Outcome), msg}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
