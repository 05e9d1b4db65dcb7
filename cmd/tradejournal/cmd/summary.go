package cmd

import (
	"fmt"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate P&L, win rate and open risk",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var (
	summaryCoin     string
	summaryExchange string
)

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVar(&summaryCoin, "coin", "", "only this asset")
	summaryCmd.Flags().StringVar(&summaryExchange, "exchange", "", "only this exchange")
}

func runSummary(cmd *cobra.Command, args []string) error {
	s, err := openReader(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entries := journal.Select(s.book.Entries(), journal.Filter{Coin: summaryCoin, Exchange: summaryExchange})
	sum := journal.Summarize(entries)

	fmt.Fprintf(s.out, "Entries:        %d (%d open, %d partially closed, %d closed)\n",
		sum.Entries, sum.Open, sum.PartiallyClosed, sum.Closed)
	fmt.Fprintf(s.out, "Realized P&L:   $%.2f\n", sum.RealizedPnL)
	fmt.Fprintf(s.out, "Fees:           $%.2f\n", sum.Fees)
	fmt.Fprintf(s.out, "Open risk:      $%.2f\n", sum.OpenRisk)
	fmt.Fprintf(s.out, "Win rate:       %.1f%% (%d W / %d L)\n", sum.WinRate, sum.Wins, sum.Losses)
	fmt.Fprintf(s.out, "Avg R:R:        %.2f\n", sum.AvgRiskReward)
	fmt.Fprintf(s.out, "Avg P&L:        $%.2f (stddev %.2f)\n", sum.AvgPnL, sum.StdDevPnL)
	return nil
}
