package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"lv-ledger/internal/journal"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the closed-trade journal",
	Long: `Query the SQLite journal written by the API when JOURNAL_PATH is set.

Examples:
  ledgerctl journal list --limit 20
  ledgerctl journal trade 42`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently closed trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show the journal entry of one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd, journalTradeCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./journal.sqlite", "path to SQLite journal DB")
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "maximum entries")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.List(cmd.Context(), journalLimit)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRADE\tACCOUNT\tSYMBOL\tSIDE\tVOLUME\tENTRY\tCLOSE\tPROFIT\tOUTCOME\tPATH\tCLOSED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TradeID, r.AccountID, r.Symbol, r.Side, r.Volume, r.EntryPrice, r.ClosePrice,
			r.Profit.StringFixed(2), r.ForcedOutcome, r.Path, r.CloseTime.Format("2006-01-02 15:04:05"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totals := journal.Summarize(recs)
	paths := make([]string, 0, len(totals))
	for p := range totals {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(out, "total %s: %s\n", p, totals[p].StringFixed(2))
	}
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trade id %q", args[0])
	}
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	r, err := j.Get(cmd.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		return fmt.Errorf("trade %d is not in the journal", id)
	}
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "trade:\t%d\n", r.TradeID)
	fmt.Fprintf(tw, "account:\t%d\n", r.AccountID)
	fmt.Fprintf(tw, "symbol:\t%s %s\n", r.Side, r.Symbol)
	fmt.Fprintf(tw, "volume:\t%s\n", r.Volume)
	fmt.Fprintf(tw, "entry:\t%s\n", r.EntryPrice)
	fmt.Fprintf(tw, "close:\t%s\n", r.ClosePrice)
	fmt.Fprintf(tw, "profit:\t%s\n", r.Profit)
	fmt.Fprintf(tw, "outcome:\t%s\n", r.ForcedOutcome)
	fmt.Fprintf(tw, "path:\t%s\n", r.Path)
	fmt.Fprintf(tw, "opened:\t%s\n", r.OpenTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "closed:\t%s\n", r.CloseTime.Format("2006-01-02 15:04:05"))
	return tw.Flush()
}
