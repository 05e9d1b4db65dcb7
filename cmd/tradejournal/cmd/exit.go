package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Record, edit or delete realized exits",
	Long: `Manage the realized exits of an entry. Percentages are of the original position.

A manual P&L is checked against the price movement. When it looks wrong the
command stops and nothing is saved; rerun with --force to record it anyway.

Examples:
  tradejournal exit add trade_01HX... --price 67000 --pct 50 --type take_profit
  tradejournal exit add trade_01HX... --price 61000 --pct 50 --pnl -750 --fees 12.4
  tradejournal exit edit trade_01HX... 0 --price 67100 --pct 50
  tradejournal exit delete trade_01HX... 1`,
}

var exitAddCmd = &cobra.Command{
	Use:   "add <entry-id>",
	Short: "Record an exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runExitAdd,
}

var exitEditCmd = &cobra.Command{
	Use:   "edit <entry-id> <index>",
	Short: "Replace the exit at index (0-based)",
	Long: `Replace the exit at index (0-based). --price and --pct are always required.
Recorded fees and a manual P&L are kept unless given again; --calculated
switches a manual exit back to the P&L implied by the prices.`,
	Args: cobra.ExactArgs(2),
	RunE:  runExitEdit,
}

var exitDeleteCmd = &cobra.Command{
	Use:   "delete <entry-id> <index>",
	Short: "Delete the exit at index (0-based)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExitDelete,
}

type exitFlags struct {
	price     float64
	pct       float64
	exitType  string
	fees      float64
	pnl       float64
	orderType string
	notes     string
	tradeID   string
	at        string
	force     bool

	calculated bool
}

var (
	exitAddFlags  exitFlags
	exitEditFlags exitFlags

	errPnLWarning = errors.New("manual P&L failed the plausibility check; rerun with --force to record it anyway")
)

func (f *exitFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.Float64VarP(&f.price, "price", "p", 0, "exit price")
	fl.Float64Var(&f.pct, "pct", 0, "percent of the original position closed")
	fl.StringVarP(&f.exitType, "type", "t", "", "stop_loss, take_profit or manual (default manual)")
	fl.Float64Var(&f.fees, "fees", 0, "actual fees paid, replaces the estimate")
	fl.Float64Var(&f.pnl, "pnl", 0, "manual gross P&L, before fees")
	fl.StringVar(&f.orderType, "order", "", "exit order type: Market or Limit (default: the entry's)")
	fl.StringVar(&f.notes, "notes", "", "notes")
	fl.StringVar(&f.tradeID, "trade-id", "", "exchange trade id")
	fl.StringVar(&f.at, "at", "", "exit time, RFC 3339 (default now)")
	fl.BoolVarP(&f.force, "force", "f", false, "record even if the manual P&L looks wrong")
}

func (f *exitFlags) request(cmd *cobra.Command) (journal.ExitRequest, error) {
	req := journal.ExitRequest{
		Price:           f.price,
		Percentage:      f.pct,
		Type:            journal.ExitType(f.exitType),
		Notes:           f.notes,
		ExchangeTradeID: f.tradeID,
		Calculated:      f.calculated,
	}
	if cmd.Flags().Changed("fees") {
		req.Fees = journal.Ptr(f.fees)
	}
	if cmd.Flags().Changed("pnl") {
		req.ManualPnL = journal.Ptr(f.pnl)
	}
	if f.orderType != "" {
		o, err := parseOrderType(f.orderType)
		if err != nil {
			return req, err
		}
		req.OrderType = &o
	}
	if f.at != "" {
		t, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return req, fmt.Errorf("--at: %w", err)
		}
		req.Timestamp = t
	}
	return req, nil
}

func init() {
	rootCmd.AddCommand(exitCmd)
	exitCmd.AddCommand(exitAddCmd, exitEditCmd, exitDeleteCmd)

	exitAddFlags.register(exitAddCmd)
	exitEditFlags.register(exitEditCmd)
	exitEditCmd.Flags().BoolVar(&exitEditFlags.calculated, "calculated", false, "drop the recorded manual P&L")
}

func runExitAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entry, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}
	req, err := exitAddFlags.request(cmd)
	if err != nil {
		return err
	}

	out, ws, err := s.engine.AddExit(entry, req)
	if err != nil {
		return err
	}
	return s.saveExit(cmd, out, ws, exitAddFlags.force, len(out.ActualExits)-1)
}

func runExitEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entry, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	req, err := exitEditFlags.request(cmd)
	if err != nil {
		return err
	}

	out, ws, err := s.engine.EditExit(entry, idx, req)
	if err != nil {
		return err
	}
	return s.saveExit(cmd, out, ws, exitEditFlags.force, idx)
}

func runExitDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entry, err := s.book.Entry(args[0])
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	out, err := s.engine.DeleteExit(entry, idx)
	if err != nil {
		return err
	}
	ws, err := s.book.Put(cmd.Context(), out)
	if err != nil {
		return err
	}
	s.warn(ws)
	fmt.Fprintf(s.out, "✓ Deleted exit %d from %s [%s, %.1f%% open]\n", idx, out.ID, out.Status, out.RemainingPosition())
	return nil
}

// saveExit stores out unless ws carries a P&L warning and force is off.
func (s *session) saveExit(cmd *cobra.Command, out journal.Entry, ws []journal.Warning, force bool, idx int) error {
	s.warn(ws)
	if journal.HasPnLWarning(ws) && !force {
		return errPnLWarning
	}

	saveWs, err := s.book.Put(cmd.Context(), out)
	if err != nil {
		return err
	}
	s.warn(saveWs)

	x := out.ActualExits[idx]
	fmt.Fprintf(s.out, "✓ Exit %d on %s: %.2f%% at %g, P&L %.2f (%s) [%s, %.1f%% open]\n",
		idx, out.ID, x.Percentage, x.Price, x.PnL, x.PnLSource, out.Status, out.RemainingPosition())
	return nil
}
