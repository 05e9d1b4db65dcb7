package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/risk"
	"github.com/spf13/cobra"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Plan, edit and query journal entries",
	Long: `Manage journal entries.

Subcommands:
  add     - Plan a new entry and record it
  update  - Change an entry's plan, keeping its exits and follow-ups
  list    - List entries, optionally filtered
  show    - Show one entry in Org format
  remove  - Delete an entry

Examples:
  tradejournal entry add -x Blofin -c BTCUSDT -d Long -s 0.5 -e 64000 --stop 62500 --tp 67000:50 --tp 70000
  tradejournal entry list --status Open
  tradejournal entry show trade_01HX...`,
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Plan a new entry",
	Long: `Plan a new entry and record it.

The plan is reviewed against the risk section of the config: max risk per
trade, minimum R:R, open trades and daily or weekly loss limits. Violations
are printed; with --strict they also stop the entry from being recorded.`,
	Args: cobra.NoArgs,
	RunE:  runEntryAdd,
}

var entryUpdateCmd = &cobra.Command{
	Use:   "update <entry-id>",
	Short: "Change an entry's plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryUpdate,
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	Args:  cobra.NoArgs,
	RunE:  runEntryList,
}

var entryShowCmd = &cobra.Command{
	Use:   "show <entry-id>",
	Short: "Show an entry in Org format",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryShow,
}

var entryRemoveCmd = &cobra.Command{
	Use:   "remove <entry-id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryRemove,
}

var (
	entryAddFlags    entryFlags
	entryUpdateFlags entryFlags
	entryDryRun      bool
	entryStrict      bool

	listStatus   string
	listCoin     string
	listExchange string
	listDay      string
	listOrg      bool
)

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd, entryUpdateCmd, entryListCmd, entryShowCmd, entryRemoveCmd)

	entryAddFlags.register(entryAddCmd)
	entryAddCmd.Flags().BoolVar(&entryDryRun, "dry-run", false, "show the calculations without saving")
	entryAddCmd.Flags().BoolVar(&entryStrict, "strict", false, "refuse entries that break the risk policy")
	entryUpdateFlags.register(entryUpdateCmd)

	entryListCmd.Flags().StringVar(&listStatus, "status", "", "Open, \"Partially Closed\" or Closed")
	entryListCmd.Flags().StringVar(&listCoin, "coin", "", "only this asset")
	entryListCmd.Flags().StringVar(&listExchange, "exchange", "", "only this exchange")
	entryListCmd.Flags().StringVar(&listDay, "day", "", "only entries opened on YYYY-MM-DD (local time)")
	entryListCmd.Flags().BoolVar(&listOrg, "org", false, "print full Org blocks")
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	in, err := entryAddFlags.input(cmd, journal.EntryInput{})
	if err != nil {
		return err
	}

	if entryDryRun {
		calc, ws, err := s.engine.DeriveCalculations(in, s.book.Settings())
		if err != nil {
			return err
		}
		s.warn(ws)
		printCalculations(s.out, calc)
		s.review(calc)
		return nil
	}

	e, calc, ws, err := s.engine.CreateEntry(in, s.book.Settings())
	if err != nil {
		return err
	}
	s.warn(ws)
	if d := s.review(calc); !d.Allowed && entryStrict {
		return errRiskPolicy
	}

	saveWs, err := s.book.Add(cmd.Context(), e)
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	s.warn(saveWs)

	fmt.Fprintf(s.out, "✓ Created %s: %s %s on %s\n", e.ID, e.Direction, e.Coin, e.Exchange)
	printCalculations(s.out, calc)
	return nil
}

var errRiskPolicy = errors.New("entry breaks the risk policy; not recorded")

// review checks a plan against the configured policy and prints any
// violations.
func (s *session) review(calc journal.Calculations) risk.Decision {
	entries := s.book.Entries()
	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := journal.WeekStart(now)

	d := risk.Evaluate(cfg.Risk,
		risk.Intent{Risk: calc.RiskAmount, RiskReward: calc.RiskRewardRatios},
		risk.Account{
			Size:         s.book.Settings().AccountSize,
			OpenTrades:   journal.OpenCount(entries),
			DayRealized:  journal.RealizedBetween(entries, day, day.AddDate(0, 0, 1)),
			WeekRealized: journal.RealizedBetween(entries, week, week.AddDate(0, 0, 7)),
		})
	for _, v := range d.Violations {
		fmt.Fprintf(s.out, "⚠ %s\n", v)
	}
	log.Debug().Bool("allowed", d.Allowed).Float64("risk_pct", d.RiskPct).Float64("best_rr", d.BestRR).Msg("risk review")
	return d
}

func runEntryUpdate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	existing, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}
	in, err := entryUpdateFlags.input(cmd, inputFromEntry(existing))
	if err != nil {
		return err
	}

	e, calc, ws, err := s.engine.UpdateEntry(existing, in, s.book.Settings())
	if err != nil {
		return err
	}
	s.warn(ws)

	saveWs, err := s.book.Put(cmd.Context(), e)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	s.warn(saveWs)

	fmt.Fprintf(s.out, "✓ Updated %s [%s]\n", e.ID, e.Status)
	printCalculations(s.out, calc)
	return nil
}

func runEntryList(cmd *cobra.Command, args []string) error {
	s, err := openReader(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entries := s.book.Entries()
	if listDay != "" {
		start, end, err := journal.DayBounds(time.Local, listDay)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		entries = journal.OpenedBetween(entries, start, end)
	}
	entries = journal.Select(entries, journal.Filter{
		Status:   journal.Status(listStatus),
		Coin:     listCoin,
		Exchange: listExchange,
	})
	if listOrg {
		fmt.Fprintln(s.out, journal.FormatEntriesOrg(entries))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%-32s %s  %-5s %-10s %-9s %-16s size %-8g entry %-10g rem %5.1f%%  P&L %.2f\n",
			e.ID, e.Timestamp.Local().Format("2006-01-02 15:04"), e.Direction, e.Coin, e.Exchange, e.Status,
			e.Size, e.EntryPrice, e.RemainingPosition(), e.TotalRealizedPnL())
	}
	return nil
}

func runEntryShow(cmd *cobra.Command, args []string) error {
	s, err := openReader(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	e, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, journal.FormatEntryOrg(e))
	return nil
}

func runEntryRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ws, err := s.book.Remove(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s.warn(ws)
	fmt.Fprintf(s.out, "✓ Removed %s\n", args[0])
	return nil
}
