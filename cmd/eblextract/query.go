package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jchantrell/eblextract/internal/database"
	"github.com/spf13/cobra"
)

var queryArchives bool

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Query the extraction manifest",
	Long: `Query runs SQL against the manifest written by extract --manifest.

The files table holds one row per extracted file: archive, path, output,
name_hash, size, encrypted, unknown, decompressed and digest (BLAKE3).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if cfg.Manifest == "" {
			return fmt.Errorf("no manifest configured: set --manifest or manifest in the config file")
		}

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Manifest))
		if err != nil {
			return fmt.Errorf("opening manifest: %w", err)
		}
		defer db.Close()

		if queryArchives {
			counts, err := database.NewManifest(db, 0).CountByArchive(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("Extracted archives:")
			for _, name := range names {
				fmt.Printf("  %s\t%d files\n", name, counts[name])
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no query provided, use --archives to list extracted archives")
		}
		return runQuery(ctx, db, args[0])
	},
}

func runQuery(ctx context.Context, db *database.Database, query string) error {
	slog.Debug("Executing SQL query", "query", query)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("getting column names: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, strings.Join(columns, "\t"))
	seps := make([]string, len(columns))
	for i, col := range columns {
		seps[i] = strings.Repeat("-", len(col))
	}
	fmt.Fprintln(w, strings.Join(seps, "\t"))

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}

		cells := make([]string, len(values))
		for i, val := range values {
			switch v := val.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(v)
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}
	return nil
}

func init() {
	queryCmd.Flags().BoolVar(&queryArchives, "archives", false, "list extracted archives and their file counts")
	rootCmd.AddCommand(queryCmd)
}
