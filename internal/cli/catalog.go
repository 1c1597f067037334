package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filescenario/internal/protocol"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	SyncMode string // empty means the scenario's own sync mode
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog <scenario-file>",
		Short: "Print the configured catalog of a scenario",
		Long: `Print the configured catalog derived from a scenario's expected catalog.

Every stream is configured with the given sync mode and the append
destination sync mode. Without --sync-mode the scenario's own sync mode is
used: incremental when it has an incremental section, full_refresh
otherwise.

Examples:
  fbscenario catalog ./scenarios/csv_single_stream.yaml
  fbscenario catalog ./scenarios/csv_single_stream.yaml --sync-mode incremental --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SyncMode, "sync-mode", "", "sync mode (full_refresh|incremental)")

	return cmd
}

func runCatalog(opts *CatalogOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var mode protocol.SyncMode
	if opts.SyncMode != "" {
		parsed, err := protocol.ParseSyncMode(opts.SyncMode)
		if err != nil {
			_ = formatter.Error(ErrCodeSyncMode, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --sync-mode", err)
		}
		mode = parsed
	}

	scn, err := loadScenario(path, opts.logger())
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to load scenario %s", path), err)
	}
	if mode == "" {
		mode = scn.SyncMode()
	}

	catalog := scn.ConfiguredCatalog(mode)
	if catalog == nil {
		msg := fmt.Sprintf("scenario %s has no expected catalog", scn.Name())
		_ = formatter.Error(ErrCodeNoCatalog, msg, nil)
		return NewExitError(ExitFailure, msg)
	}
	formatter.VerboseLog("Configured %d stream(s) for %s", len(catalog.Streams), mode)

	if opts.Format == "json" {
		return formatter.Success(catalog)
	}

	w := formatter.Writer
	for _, cs := range catalog.Streams {
		fmt.Fprintf(w, "%s\tsync_mode=%s\tdestination_sync_mode=%s\n",
			cs.Stream.Name, cs.SyncMode, cs.DestinationSyncMode)
	}
	return nil
}
