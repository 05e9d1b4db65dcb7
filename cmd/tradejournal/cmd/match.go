package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/tradejournal/match"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Reconcile the journal against broker trades",
	Long: `Match journal entries to broker trades from the analytics feed.

Each entry gets a confidence (high, medium, low), a list of discrepancies and
the exits the trades suggest. With --apply the suggested exits are recorded
after confirmation.

Examples:
  tradejournal match --feed trading_data.json
  tradejournal match --apply
  tradejournal match --apply --yes`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

var (
	matchFeed  string
	matchApply bool
	matchYes   bool
)

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchFeed, "feed", "", "trade feed JSON (default from config feed.path)")
	matchCmd.Flags().BoolVar(&matchApply, "apply", false, "record suggested exits")
	matchCmd.Flags().BoolVarP(&matchYes, "yes", "y", false, "apply without asking")
}

func runMatch(cmd *cobra.Command, args []string) error {
	path := matchFeed
	if path == "" {
		path = cfg.Feed.Path
	}
	if path == "" {
		return fmt.Errorf("no trade feed: pass --feed or set feed.path")
	}

	feed, err := match.LoadFeed(path)
	if err != nil {
		return err
	}
	trades := feed.BrokerTrades()
	log.Debug().Str("feed", path).Int("trades", len(trades)).Msg("loaded feed")

	open := openReader
	if matchApply {
		open = openSession
	}
	s, err := open(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	m := match.NewMatcher()
	entries := s.book.Entries()
	results := m.FindMatches(entries, trades)
	printResults(s.out, results)

	if !matchApply {
		return nil
	}

	approve := confirm(cmd.InOrStdin(), s.out)
	if matchYes {
		approve = func(ctx context.Context, _ []match.Result) (bool, error) { return true, nil }
	}

	updated, applied, err := m.AutoUpdate(cmd.Context(), entries, trades, approve)
	if err != nil {
		return err
	}
	if !applied {
		fmt.Fprintln(s.out, "No exits recorded.")
		return nil
	}

	s.warn(s.book.ReplaceAll(cmd.Context(), updated))
	fmt.Fprintf(s.out, "✓ Recorded %d suggested exits\n", countSuggested(results))
	return nil
}

func printResults(out io.Writer, results []match.Result) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No entries.")
		return
	}
	for _, r := range results {
		e := r.Entry
		fmt.Fprintf(out, "%s  %s %s on %s: %d trades, %s confidence\n",
			e.ID, e.Direction, e.Coin, e.Exchange, len(r.Trades), r.Confidence)
		for _, d := range r.Discrepancies {
			fmt.Fprintf(out, "    ! %s\n", d)
		}
		for _, x := range r.Suggested {
			fmt.Fprintf(out, "    + exit %.2f%% at %g, P&L %.2f (%s)\n", x.Percentage, x.Price, x.PnL, x.PnLSource)
		}
	}
}

func countSuggested(results []match.Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Suggested)
	}
	return n
}

// confirm asks on out and reads a y/N answer from in.
func confirm(in io.Reader, out io.Writer) match.Approval {
	return func(_ context.Context, results []match.Result) (bool, error) {
		fmt.Fprintf(out, "Record %d suggested exits? [y/N] ", countSuggested(results))
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
