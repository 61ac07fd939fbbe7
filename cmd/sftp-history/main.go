package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"sftp-tools/internal/database"
	"sftp-tools/internal/exitcodes"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitcodes.RuntimeError)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "sftp-history",
		Usage:           "Query the operation history recorded by sftp-delete and sftp-upload",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "/var/lib/sftp-tools/history.db", Usage: "Path to operation history database", EnvVars: []string{"SFTP_DATABASE_PATH"}},
			&cli.IntFlag{Name: "recent", Usage: "Show N most recent operations"},
			&cli.StringFlag{Name: "run", Usage: "Show every operation of one run ID"},
			&cli.StringFlag{Name: "action", Usage: "Filter by action (DELETE_FILE, REMOVE_DIR, MAKE_DIR, UPLOAD, LIST, SKIP)"},
			&cli.StringFlag{Name: "status", Usage: "Filter by status (OK, ERROR, SKIPPED)"},
			&cli.StringFlag{Name: "path", Usage: "Filter by remote path pattern (SQL LIKE syntax)"},
			&cli.BoolFlag{Name: "stats", Usage: "Show operation statistics"},
			&cli.IntFlag{Name: "days", Value: 30, Usage: "Number of days for statistics"},
			&cli.IntFlag{Name: "prune", Usage: "Delete records older than N days and vacuum"},
			&cli.BoolFlag{Name: "json", Usage: "Output in JSON format"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if !hasMode(c) {
		return usage(c)
	}

	// Only pruning writes; queries never create or migrate the database
	db, err := database.OpenOperationDB(c.String("db"), c.Int("prune") <= 0)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Failed to open database %s: %v", c.String("db"), err), exitcodes.RuntimeError)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to close database: %v\n", err)
		}
	}()

	out := c.App.Writer
	jsonOutput := c.Bool("json")

	// Handle different query modes
	switch {
	case c.Int("prune") > 0:
		return prune(out, db, c.Int("prune"))
	case c.Bool("stats"):
		return showStats(out, db, c.Int("days"), jsonOutput)
	case c.Int("recent") > 0:
		return show(out, jsonOutput, fmt.Sprintf("%d most recent operations:", c.Int("recent")), func() ([]database.OperationRecord, error) {
			return db.GetRecentOperations(c.Int("recent"))
		})
	case c.String("run") != "":
		return show(out, jsonOutput, "Operations of run: "+c.String("run"), func() ([]database.OperationRecord, error) {
			return db.GetOperationsByRun(c.String("run"))
		})
	case c.String("action") != "":
		return show(out, jsonOutput, "Records with action: "+c.String("action"), func() ([]database.OperationRecord, error) {
			return db.GetOperationsByAction(c.String("action"))
		})
	case c.String("status") != "":
		return show(out, jsonOutput, "Records with status: "+c.String("status"), func() ([]database.OperationRecord, error) {
			return db.GetOperationsByStatus(c.String("status"))
		})
	case c.String("path") != "":
		return show(out, jsonOutput, "Operations matching path pattern: "+c.String("path"), func() ([]database.OperationRecord, error) {
			return db.GetOperationsByPath(c.String("path"))
		})
	default:
		return usage(c)
	}
}

func hasMode(c *cli.Context) bool {
	return c.Int("prune") > 0 || c.Bool("stats") || c.Int("recent") > 0 ||
		c.String("run") != "" || c.String("action") != "" || c.String("status") != "" || c.String("path") != ""
}

func usage(c *cli.Context) error {
	out := c.App.Writer
	_ = cli.ShowAppHelp(c)
	fmt.Fprintln(out, "\nExamples:")
	fmt.Fprintln(out, "  sftp-history --recent 10              # Show 10 most recent operations")
	fmt.Fprintln(out, "  sftp-history --stats --days 7         # Show statistics for the last week")
	fmt.Fprintln(out, "  sftp-history --status ERROR           # Show only failures")
	fmt.Fprintln(out, "  sftp-history --action UPLOAD          # Show only uploads")
	fmt.Fprintln(out, "  sftp-history --path '/srv/backup/%'   # Show operations under /srv/backup")
	fmt.Fprintln(out, "  sftp-history --run <run-id>           # Replay one run")
	return cli.Exit("", exitcodes.InvalidConfig)
}

func show(out io.Writer, jsonOutput bool, title string, query func() ([]database.OperationRecord, error)) error {
	records, err := query()
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Query failed: %v", err), exitcodes.RuntimeError)
	}

	if jsonOutput {
		return printJSON(out, records)
	}

	fmt.Fprintf(out, "%s\n\n", title)
	printRecords(out, records)
	return nil
}

func showStats(out io.Writer, db *database.OperationDB, days int, jsonOutput bool) error {
	stats, err := db.GetOperationStats(days)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Failed to get statistics: %v", err), exitcodes.RuntimeError)
	}

	if jsonOutput {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Operation Statistics (Last %d days)\n", days)
	fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(out, "Runs:             %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Succeeded:        %d\n", stats.TotalOK)
	fmt.Fprintf(out, "Skipped:          %d\n", stats.TotalSkipped)
	fmt.Fprintf(out, "Errors:           %d\n", stats.TotalErrors)
	fmt.Fprintf(out, "Bytes Uploaded:   %s\n\n", formatBytes(stats.BytesUploaded))

	printCounts(out, "By Action:", stats.ByAction)
	printCounts(out, "By Status:", stats.ByStatus)
	return nil
}

func prune(out io.Writer, db *database.OperationDB, days int) error {
	removed, err := db.DeleteOldRecords(days)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Failed to prune records: %v", err), exitcodes.RuntimeError)
	}
	if err := db.Vacuum(); err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Failed to vacuum database: %v", err), exitcodes.RuntimeError)
	}
	fmt.Fprintf(out, "Removed %d records older than %d days\n", removed, days)
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("ERROR: Failed to encode JSON: %v", err), exitcodes.RuntimeError)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-15s %d\n", k, counts[k])
	}
	fmt.Fprintln(out)
}

func printRecords(out io.Writer, records []database.OperationRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tTool\tAction\tStatus\tSize\tPath\tDetail")
	_, _ = fmt.Fprintln(w, "--\t---------\t----\t------\t------\t----\t----\t------")

	for _, r := range records {
		detail := r.Reason
		if r.ErrorMessage != "" {
			detail = r.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Tool, r.Action, r.Status,
			formatBytes(r.Size), r.Path, detail)
	}
	_ = w.Flush()
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
