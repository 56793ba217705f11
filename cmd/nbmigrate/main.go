// nbmigrate copies config contexts and local context data between NetBox instances.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/homemade/nbmigrate/sync"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var version = "dev"

// errItemFailures is returned when --fail-on-item-error is set and at
// least one record was rejected by the destination.
var errItemFailures = errors.New("one or more records failed")

type options struct {
	configFile      string
	pageSize        int
	reportFile      string
	recordDir       string
	verbose         bool
	dryRun          bool
	failOnItemError bool

	source      sync.Instance
	destination sync.Instance

	input  string
	output string

	includeDevices     bool
	includeVMs         bool
	skipConfigContexts bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Printf("Error: %v", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errItemFailures):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "nbmigrate",
		Short:         "Copy config contexts and local context data between NetBox instances",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file")
	flags.IntVar(&opts.pageSize, "page-size", sync.DefaultPageSize, "objects requested per page")
	flags.StringVar(&opts.reportFile, "report", "", "write per record outcomes to this CSV file")
	flags.StringVar(&opts.recordDir, "record", "", "record HTTP traffic below this directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "decide create/update but do not write to the destination")
	flags.BoolVar(&opts.failOnItemError, "fail-on-item-error", false, "exit with status 2 when any record fails")

	rootCmd.AddCommand(newExportCmd(opts), newImportCmd(opts), newTransferCmd(opts))
	return rootCmd
}

func newExportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch records from the source and write them to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, sync.ExportMode)
		},
	}
	addSourceFlags(cmd, opts)
	addScopeFlags(cmd, opts)
	addOutputFlags(cmd, opts)
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Read records from a JSON file and publish them to the destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, sync.ImportMode)
		},
	}
	addDestinationFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.input, "input", "", "JSON file to read records from")
	cmd.Flags().StringVar(&opts.input, "import-file", "", "alias for --input")
	return cmd
}

func newTransferCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Fetch records from the source and publish them to the destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, sync.TransferMode)
		},
	}
	addSourceFlags(cmd, opts)
	addDestinationFlags(cmd, opts)
	addScopeFlags(cmd, opts)
	addOutputFlags(cmd, opts)
	return cmd
}

func addSourceFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.source.URL, "source-url", "", "URL of the source NetBox (or NETBOX_SOURCE_URL)")
	cmd.Flags().StringVar(&opts.source.Token, "source-token", "", "API token for the source NetBox (or NETBOX_SOURCE_TOKEN)")
}

func addDestinationFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.destination.URL, "dest-url", "", "URL of the destination NetBox (or NETBOX_DESTINATION_URL)")
	cmd.Flags().StringVar(&opts.destination.Token, "dest-token", "", "API token for the destination NetBox (or NETBOX_DESTINATION_TOKEN)")
}

func addScopeFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().BoolVar(&opts.includeDevices, "include-devices", false, "include device local context data")
	cmd.Flags().BoolVar(&opts.includeVMs, "include-vms", false, "include virtual machine local context data")
	cmd.Flags().BoolVar(&opts.skipConfigContexts, "skip-config-contexts", false, "do not fetch config contexts")
}

func addOutputFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.output, "output", "", "JSON file to write fetched records to")
	cmd.Flags().StringVar(&opts.output, "export-file", "", "alias for --output")
}

func (o *options) run(cmd *cobra.Command, mode sync.Mode) error {
	config, err := sync.LoadConfig(o.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("page-size") {
		config.PageSize = o.pageSize
	}
	config.Source = overrideInstance(config.Source, o.source)
	config.Destination = overrideInstance(config.Destination, o.destination)
	if err = config.Validate(); err != nil {
		return err
	}

	sc := &sync.SyncContext{
		Config:         config,
		RunID:          uuid.NewString(),
		RecordRequests: o.recordDir,
		Verbose:        o.verbose,
		DryRun:         o.dryRun,
	}
	log.Printf("Starting %s run %s", mode, sc.RunID)

	report, err := sync.Run(cmd.Context(), sync.RunParams{
		Mode:        mode,
		Source:      sync.NewNetBoxClient(sc, config.Source, "source"),
		Destination: sync.NewNetBoxClient(sc, config.Destination, "destination"),
		Scope: sync.FetchScope{
			ConfigContexts:  !o.skipConfigContexts,
			VirtualMachines: o.includeVMs,
			Devices:         o.includeDevices,
		},
		InputPath:  o.input,
		OutputPath: o.output,
	})
	if err != nil {
		return err
	}

	if mode != sync.ExportMode && o.reportFile != "" {
		if err = writeReport(o.reportFile, report); err != nil {
			return err
		}
	}
	if o.failOnItemError && report.Failed > 0 {
		return fmt.Errorf("%w: %v", errItemFailures, report.Err())
	}
	return nil
}

func overrideInstance(i sync.Instance, flags sync.Instance) sync.Instance {
	if flags.URL != "" {
		i.URL = flags.URL
	}
	if flags.Token != "" {
		i.Token = flags.Token
	}
	return i
}

func writeReport(filename string, report sync.Report) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to write report %w", err)
	}
	if err = report.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %w", err)
	}
	return f.Close()
}
