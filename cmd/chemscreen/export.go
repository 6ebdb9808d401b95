package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chemscreen/internal/export"
	"github.com/pdiddy/chemscreen/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Write a session report as CSV, XLSX, or JSON",
	Long: `Export renders a recorded session as a report file. Results appear in the
order of the original chemical list regardless of completion order. The
default output path is <exports-dir>/<session-id>.<format>.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "csv", "report format: csv, xlsx, or json")
	exportCmd.Flags().String("output", "", "output path (default under the exports directory)")
	exportCmd.Flags().Bool("include-abstracts", false, "add per-publication abstracts (xlsx only)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "csv", "xlsx", "json":
	default:
		return fmt.Errorf("unknown format %q: use csv, xlsx, or json", format)
	}

	store, err := openSessionStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		path = filepath.Join(cfg.Export.Dir, sess.ID+"."+format)
	}

	opts := export.Options{IncludeAbstracts: cfg.Export.IncludeAbstracts}
	if cmd.Flags().Changed("include-abstracts") {
		opts.IncludeAbstracts, _ = cmd.Flags().GetBool("include-abstracts")
	}

	if err := writeReport(path, func(f *os.File) error {
		return writeFormat(f, format, sess, opts)
	}); err != nil {
		return err
	}

	fmt.Printf("wrote %s report to %s (%d results)\n", format, path, len(sess.Results))
	return nil
}

func writeFormat(f *os.File, format string, sess *types.BatchSession, opts export.Options) error {
	switch format {
	case "xlsx":
		return export.WriteXLSX(f, sess, opts)
	case "json":
		return export.WriteJSON(f, sess)
	default:
		return export.WriteCSV(f, sess)
	}
}
