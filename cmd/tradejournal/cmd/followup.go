package cmd

import (
	"fmt"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Annotate an entry",
}

var followupAddCmd = &cobra.Command{
	Use:   "add <entry-id>",
	Short: "Add a follow-up; exit follow-ups with a price also record an exit",
	Long: `Add a follow-up note to an entry.

Types: note, stop_move, partial_exit, full_exit, add_position.
A partial_exit or full_exit with --exit-price also records an exit at the
entry's default exit order type. full_exit always closes 100%.

Example:
  tradejournal followup add trade_01HX... -t partial_exit --exit-price 66000 --exit-pct 25 \
    --desc "scaled out" --reason "into resistance"`,
	Args: cobra.ExactArgs(1),
	RunE: runFollowupAdd,
}

var (
	fuType      string
	fuDesc      string
	fuReason    string
	fuNewStop   float64
	fuExitPrice float64
	fuExitPct   float64
	fuImages    []string
)

func init() {
	rootCmd.AddCommand(followupCmd)
	followupCmd.AddCommand(followupAddCmd)

	fl := followupAddCmd.Flags()
	fl.StringVarP(&fuType, "type", "t", string(journal.FollowUpNote), "follow-up type")
	fl.StringVar(&fuDesc, "desc", "", "what happened")
	fl.StringVar(&fuReason, "reason", "", "why")
	fl.Float64Var(&fuNewStop, "new-stop", 0, "new stop-loss price (stop_move)")
	fl.Float64Var(&fuExitPrice, "exit-price", 0, "exit price (partial_exit, full_exit)")
	fl.Float64Var(&fuExitPct, "exit-pct", 0, "percent of the original position (partial_exit)")
	fl.StringArrayVar(&fuImages, "image", nil, "image reference (repeatable)")
}

func runFollowupAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entry, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}

	f := journal.FollowUp{
		Type:        journal.FollowUpType(fuType),
		Description: fuDesc,
		Reasoning:   fuReason,
		Images:      fuImages,
	}
	fl := cmd.Flags()
	if fl.Changed("new-stop") {
		f.NewStopLoss = journal.Ptr(fuNewStop)
	}
	if fl.Changed("exit-price") {
		f.ExitPrice = journal.Ptr(fuExitPrice)
	}
	if fl.Changed("exit-pct") {
		f.ExitPercentage = journal.Ptr(fuExitPct)
	}

	out, ws, err := s.engine.AddFollowUp(entry, f)
	if err != nil {
		return err
	}
	s.warn(ws)

	saveWs, err := s.book.Put(cmd.Context(), out)
	if err != nil {
		return err
	}
	s.warn(saveWs)

	added := out.FollowUps[len(out.FollowUps)-1]
	fmt.Fprintf(s.out, "✓ Follow-up %s (%s) on %s", added.ID, added.Type, out.ID)
	if n := len(out.ActualExits) - len(entry.ActualExits); n > 0 {
		x := out.ActualExits[len(out.ActualExits)-1]
		fmt.Fprintf(s.out, ", exit %.2f%% at %g, P&L %.2f", x.Percentage, x.Price, x.PnL)
	}
	fmt.Fprintf(s.out, " [%s]\n", out.Status)
	return nil
}
