package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"treeclean/internal/database"
	"treeclean/internal/exitcodes"
)

const defaultDBPath = ".treeclean/history.db"

type globalFlags struct {
	dbPath     string
	jsonOutput bool
}

func main() {
	cmd := newRootCmd(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitcodes.RuntimeError)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "treeclean-history",
		Short:         "Query the deletion history recorded by treeclean --db",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&g.dbPath, "db", defaultDBPath, "path to the history database")
	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output in JSON format")

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				records, err := db.GetRecentDeletions(limit)
				if err != nil {
					return fmt.Errorf("failed to get recent records: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records, g.jsonOutput)
			})
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")

	var days int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				s, err := db.GetDeletionStats(days)
				if err != nil {
					return fmt.Errorf("failed to get statistics: %w", err)
				}
				return printStats(cmd.OutOrStdout(), s, days, g.jsonOutput)
			})
		},
	}
	stats.Flags().IntVar(&days, "days", 30, "number of days to aggregate")

	byAction := &cobra.Command{
		Use:   "action DELETE|DRY_RUN|SKIP|ERROR",
		Short: "Show records with the given action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				records, err := db.GetDeletionsByAction(args[0])
				if err != nil {
					return fmt.Errorf("failed to query by action: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records, g.jsonOutput)
			})
		},
	}

	byRule := &cobra.Command{
		Use:   "rule KIND:PATTERN",
		Short: "Show records selected by a rule, e.g. suffix:.pyc",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				records, err := db.GetDeletionsByRule(args[0])
				if err != nil {
					return fmt.Errorf("failed to query by rule: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records, g.jsonOutput)
			})
		},
	}

	byPath := &cobra.Command{
		Use:   "path PATTERN",
		Short: "Show records whose path matches a SQL LIKE pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				records, err := db.GetDeletionsByPath(args[0])
				if err != nil {
					return fmt.Errorf("failed to query by path: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records, g.jsonOutput)
			})
		},
	}

	var olderThan int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than --older-than days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(g, func(db *database.DeletionDB) error {
				n, err := db.DeleteOldRecords(olderThan)
				if err != nil {
					return fmt.Errorf("failed to prune: %w", err)
				}
				if err := db.Vacuum(); err != nil {
					return fmt.Errorf("failed to vacuum: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", n)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&olderThan, "older-than", 90, "age in days")

	root.AddCommand(recent, stats, byAction, byRule, byPath, prune)
	return root
}

func withDB(g *globalFlags, fn func(db *database.DeletionDB) error) (err error) {
	if _, statErr := os.Stat(g.dbPath); statErr != nil {
		return fmt.Errorf("open database %s: %w", g.dbPath, statErr)
	}
	db, err := database.NewDeletionDB(g.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", g.dbPath, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
	}()
	return fn(db)
}

func printStats(w io.Writer, stats *database.DeletionStats, days int, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, stats)
	}

	fmt.Fprintf(w, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Runs:             %d\n", stats.Runs)
	fmt.Fprintf(w, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(w, "Total Skipped:    %d\n", stats.TotalSkipped)
	fmt.Fprintf(w, "Total Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Space Freed:      %s\n", formatBytes(stats.TotalSpaceFreed))

	if len(stats.ByRule) > 0 {
		reasons := make([]string, 0, len(stats.ByRule))
		for r := range stats.ByRule {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)

		fmt.Fprintln(w, "\nBy Rule Kind:")
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-15s %d\n", r, stats.ByRule[r])
		}
	}
	return nil
}

func printRecords(w io.Writer, records []database.Record, jsonOutput bool) error {
	if jsonOutput {
		if records == nil {
			records = []database.Record{}
		}
		return writeJSON(w, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Timestamp", "Action", "Rule", "Size", "Path"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, r := range records {
		table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Action,
			r.Rule,
			formatBytes(r.Size),
			r.Path,
		})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
