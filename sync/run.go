package sync

import (
	"context"
	"errors"
	"fmt"
)

type Mode string

const (
	ExportMode   Mode = "export"
	ImportMode   Mode = "import"
	TransferMode Mode = "transfer"
)

// RunParams selects which stages run: fetch from Source, read from
// InputPath, write to OutputPath and publish to Destination.
type RunParams struct {
	Mode        Mode
	Source      *NetBoxClient
	Destination *NetBoxClient
	Scope       FetchScope
	InputPath   string
	OutputPath  string
}

func (p RunParams) Validate() error {
	needSource := p.Mode == ExportMode || p.Mode == TransferMode
	needDestination := p.Mode == ImportMode || p.Mode == TransferMode
	switch {
	case p.Mode != ExportMode && p.Mode != ImportMode && p.Mode != TransferMode:
		return fmt.Errorf("unsupported mode %q", p.Mode)
	case needSource && (p.Source == nil || !p.Source.Instance.IsConfigured()):
		return errors.New("source url and token are required")
	case needDestination && (p.Destination == nil || !p.Destination.Instance.IsConfigured()):
		return errors.New("destination url and token are required")
	case needSource && p.Scope.IsEmpty():
		return errors.New("nothing to fetch, enable config contexts, virtual machines or devices")
	case p.Mode == ExportMode && p.OutputPath == "":
		return errors.New("export needs an output file")
	case p.Mode == ImportMode && p.InputPath == "":
		return errors.New("import needs an input file")
	}
	return nil
}

// Run executes one batch. The returned report is empty for exports.
func Run(ctx context.Context, params RunParams) (Report, error) {
	var report Report
	if err := params.Validate(); err != nil {
		return report, err
	}

	var records []Record
	var err error
	if params.Mode == ImportMode {
		records, err = ImportRecords(params.InputPath)
	} else {
		records, err = params.Source.Fetch(ctx, params.Scope)
		if err == nil && params.OutputPath != "" {
			err = ExportRecords(params.OutputPath, records)
		}
	}
	if err != nil {
		return report, err
	}

	if params.Mode == ExportMode {
		return report, nil
	}
	return NewPublisher(params.Destination).Publish(ctx, records)
}
