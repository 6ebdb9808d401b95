package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chemscreen/internal/batch"
	"github.com/pdiddy/chemscreen/internal/cache"
	"github.com/pdiddy/chemscreen/internal/chem"
	"github.com/pdiddy/chemscreen/internal/export"
	"github.com/pdiddy/chemscreen/internal/pubmed"
	"github.com/pdiddy/chemscreen/internal/ratelimit"
	"github.com/pdiddy/chemscreen/internal/session"
	"github.com/pdiddy/chemscreen/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [chemicals.csv]",
	Short: "Screen a chemical list against PubMed",
	Long: `Run reads a chemical list from a CSV or YAML file (or --chemical flags), searches
PubMed for each entry, and records the scored results as a session. CAS
numbers are checksum-validated, common abbreviations like TCE are expanded,
and duplicates are dropped before the search starts.

Interrupting the run with Ctrl-C stops cleanly: finished chemicals stay
recorded and the session is marked cancelled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringArray("chemical", nil, "chemical name to screen (repeatable, alternative to a CSV file)")
	runCmd.Flags().Int("years", 0, "publication date range in years (default 10)")
	runCmd.Flags().Int("max-results", 0, "maximum records fetched per chemical (default 100)")
	runCmd.Flags().Bool("include-reviews", true, "include review articles")
	runCmd.Flags().Bool("no-cache", false, "bypass the result cache")
	runCmd.Flags().String("export-csv", "", "write a CSV report to this path when the run finishes")

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := loadConfig()
	params := cfg.Search
	if v, _ := cmd.Flags().GetInt("years"); v > 0 {
		params.DateRangeYears = v
	}
	if v, _ := cmd.Flags().GetInt("max-results"); v > 0 {
		params.MaxResults = v
	}
	if cmd.Flags().Changed("include-reviews") {
		params.IncludeReviews, _ = cmd.Flags().GetBool("include-reviews")
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		params.UseCache = false
	}

	chemicals, err := readChemicals(cmd, args)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cfg.PubMed.RequestsPerSecond())
	if err != nil {
		return err
	}
	resultCache, err := cache.New(cfg.Cache, log)
	if err != nil {
		return err
	}
	store, err := session.NewStore(cfg.Sessions, log)
	if err != nil {
		return err
	}
	defer store.Close()

	client := pubmed.NewClient(cfg.PubMed, limiter, log)
	orchestrator := batch.New(client, resultCache, store, cfg.Batch, log)

	// Ctrl-C cancels the run; completed work is preserved.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Screening %d chemical(s) at %.0f req/s...\n",
		len(chemicals), cfg.PubMed.RequestsPerSecond())

	sess, err := orchestrator.Run(ctx, chemicals, params, func(completed, total int, name string) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", completed, total, name)
	})
	if err != nil {
		return err
	}

	results := sess.OrderedResults()
	sum := export.Summarize(results)
	fmt.Printf("\nSession %s (%s)\n", sess.ID, sess.Status)
	fmt.Printf("  screened:      %d\n", sum.Chemicals)
	fmt.Printf("  succeeded:     %d\n", sum.Succeeded)
	fmt.Printf("  failed:        %d\n", sum.Failed)
	fmt.Printf("  cache hits:    %d\n", sum.CacheHits)
	fmt.Printf("  mean score:    %.1f\n", sum.MeanScore)
	fmt.Printf("  high priority: %d\n", sum.HighPriority)

	if path, _ := cmd.Flags().GetString("export-csv"); path != "" {
		if err := writeReport(path, func(f *os.File) error {
			return export.WriteCSV(f, sess)
		}); err != nil {
			return err
		}
		fmt.Printf("  report:        %s\n", path)
	}
	return nil
}

// readChemicals collects the input list from the CSV argument or the
// repeated --chemical flag, then normalizes and deduplicates it.
func readChemicals(cmd *cobra.Command, args []string) ([]types.Chemical, error) {
	names, _ := cmd.Flags().GetStringArray("chemical")

	var chemicals []types.Chemical
	switch {
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening chemical list: %w", err)
		}
		defer f.Close()

		parse := chem.ParseCSV
		if ext := filepath.Ext(args[0]); ext == ".yaml" || ext == ".yml" {
			parse = chem.ParseYAML
		}
		parsed, rowErrs, err := parse(f)
		if err != nil {
			return nil, err
		}
		for _, re := range rowErrs {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", args[0], re)
		}
		chemicals = parsed
	case len(names) > 0:
		for _, name := range names {
			c, err := chem.Normalize(types.Chemical{Name: name})
			if err != nil {
				return nil, err
			}
			chemicals = append(chemicals, c)
		}
	default:
		return nil, fmt.Errorf("provide a CSV file or at least one --chemical flag")
	}

	unique, dups := chem.Dedupe(chemicals)
	if len(dups) > 0 {
		fmt.Fprintf(os.Stderr, "dropped %d duplicate(s)\n", len(dups))
	}
	return unique, nil
}

func writeReport(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
