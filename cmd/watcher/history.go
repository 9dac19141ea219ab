package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"listingwatch/internal/domain"
	chstore "listingwatch/internal/storage/clickhouse"
)

var (
	historySlug  string
	historyRunID string
	historySince time.Duration
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the dispatch audit log",
	Long: `History reads the ClickHouse dispatch audit log and prints past
send attempts. Filter by listing slug or run ID, or list everything
within a time range.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySlug, "slug", "", "Filter by listing slug")
	historyCmd.Flags().StringVar(&historyRunID, "run-id", "", "Filter by run ID")
	historyCmd.Flags().DurationVar(&historySince, "since", 24*time.Hour, "Time range when no slug or run ID is given")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "Maximum number of rows to print")
}

func runHistory(_ *cobra.Command, _ []string) error {
	dsn := viper.GetString("clickhouse-dsn")
	if dsn == "" {
		return fmt.Errorf("clickhouse dsn is required (--clickhouse-dsn or LISTINGWATCH_CLICKHOUSE_DSN)")
	}
	if historySlug != "" && historyRunID != "" {
		return fmt.Errorf("--slug and --run-id are mutually exclusive")
	}
	if historyLimit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", historyLimit)
	}

	ctx := context.Background()

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	store := chstore.NewDispatchLogStore(conn)

	var records []*domain.DispatchRecord
	switch {
	case historySlug != "":
		records, err = store.GetBySlug(ctx, historySlug)
	case historyRunID != "":
		records, err = store.GetByRunID(ctx, historyRunID)
	default:
		end := time.Now().UnixMilli()
		start := end - historySince.Milliseconds()
		records, err = store.GetByTimeRange(ctx, start, end)
	}
	if err != nil {
		return fmt.Errorf("query dispatch log: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No dispatch records found")
		return nil
	}
	if len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}

	printRecords(records)
	return nil
}

func printRecords(records []*domain.DispatchRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SENT AT\tSLUG\tSYMBOL\tCHANNEL\tRECIPIENT\tSTATUS\tERROR")
	for _, r := range records {
		errText := ""
		if r.Error != nil {
			errText = *r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			time.UnixMilli(r.SentAt).UTC().Format(time.RFC3339),
			r.Slug,
			r.Symbol,
			r.Channel,
			r.Recipient,
			r.Status,
			errText,
		)
	}

	fmt.Fprintf(w, "\n%d record(s)\n", len(records))
}
