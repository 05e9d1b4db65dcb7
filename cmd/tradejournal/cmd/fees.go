package cmd

import (
	"fmt"

	"github.com/rustyeddy/tradejournal/fees"
	"github.com/spf13/cobra"
)

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Compare exchange fees and size positions",
	Long: `Fee tools.

Subcommands:
  compare - Price the same round trip on every exchange
  size    - Position size for a risk budget, fees included
  info    - Maker and taker rates

Examples:
  tradejournal fees compare --size 0.5 --price 64000 --entry-order Limit
  tradejournal fees size -x Blofin --entry 64000 --stop 62500 --budget 200
  tradejournal fees info EdgeX`,
}

var feesCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare round-trip fees across exchanges",
	Args:  cobra.NoArgs,
	RunE:  runFeesCompare,
}

var feesSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Position size for a risk budget",
	Long: `Solve for the position size whose stop-out loss plus fees equals the budget.
Without --budget the budget is risk_percentage of account_size from the settings.`,
	Args: cobra.NoArgs,
	RunE: runFeesSize,
}

var feesInfoCmd = &cobra.Command{
	Use:   "info [exchange]",
	Short: "Show fee rates",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeesInfo,
}

var (
	feeSize      float64
	feePrice     float64
	feeEntryType string
	feeExitType  string

	sizeExchange string
	sizeEntry    float64
	sizeStop     float64
	sizeBudget   float64
)

func init() {
	rootCmd.AddCommand(feesCmd)
	feesCmd.AddCommand(feesCompareCmd, feesSizeCmd, feesInfoCmd)

	feesCmd.PersistentFlags().StringVar(&feeEntryType, "entry-order", "Market", "entry order type")
	feesCmd.PersistentFlags().StringVar(&feeExitType, "exit-order", "Market", "exit order type")

	feesCompareCmd.Flags().Float64Var(&feeSize, "size", 0, "position size (required)")
	feesCompareCmd.Flags().Float64Var(&feePrice, "price", 0, "price (required)")
	_ = feesCompareCmd.MarkFlagRequired("size")
	_ = feesCompareCmd.MarkFlagRequired("price")

	feesSizeCmd.Flags().StringVarP(&sizeExchange, "exchange", "x", "Blofin", "exchange")
	feesSizeCmd.Flags().Float64Var(&sizeEntry, "entry", 0, "entry price (required)")
	feesSizeCmd.Flags().Float64Var(&sizeStop, "stop", 0, "stop-loss price (required)")
	feesSizeCmd.Flags().Float64Var(&sizeBudget, "budget", 0, "risk budget in dollars")
	_ = feesSizeCmd.MarkFlagRequired("entry")
	_ = feesSizeCmd.MarkFlagRequired("stop")
}

func orderTypes() (fees.OrderType, fees.OrderType, error) {
	entry, err := parseOrderType(feeEntryType)
	if err != nil {
		return "", "", err
	}
	exit, err := parseOrderType(feeExitType)
	if err != nil {
		return "", "", err
	}
	return entry, exit, nil
}

func runFeesCompare(cmd *cobra.Command, args []string) error {
	entryType, exitType, err := orderTypes()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Round trip of %g at %g (%s in, %s out)\n", feeSize, feePrice, entryType, exitType)
	for i, c := range fees.Default().CompareFees(feeSize, feePrice, entryType, exitType) {
		fmt.Fprintf(out, "%d. %-9s $%.4f  (entry %.4f, exit %.4f, %.4f%% of notional)\n",
			i+1, c.Exchange, c.TotalFees, c.EntryFee, c.ExitFee, c.FeePercentage)
	}
	return nil
}

func runFeesSize(cmd *cobra.Command, args []string) error {
	entryType, exitType, err := orderTypes()
	if err != nil {
		return err
	}

	budget := sizeBudget
	if !cmd.Flags().Changed("budget") {
		st := cfg.Settings
		budget = st.AccountSize * st.RiskPercentage / 100
	}

	sz, err := fees.Default().PositionSizeForRisk(sizeExchange, entryType, exitType, budget, sizeEntry, sizeStop)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sz.Warning != nil {
		fmt.Fprintf(out, "⚠ %s\n", sz.Warning)
	}
	fmt.Fprintf(out, "Budget:         $%.2f\n", budget)
	fmt.Fprintf(out, "Size:           %g\n", sz.Size)
	fmt.Fprintf(out, "Risk per unit:  %.4f\n", sz.RiskPerUnit)
	fmt.Fprintf(out, "Fees:           $%.4f\n", sz.TotalFees)
	fmt.Fprintf(out, "Effective risk: $%.2f\n", sz.EffectiveRisk)
	return nil
}

func runFeesInfo(cmd *cobra.Command, args []string) error {
	calc := fees.Default()
	names := calc.Exchanges()
	if len(args) == 1 {
		names = args
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		info := calc.Info(name)
		if info.Warning != nil {
			fmt.Fprintf(out, "⚠ %s\n", info.Warning)
		}
		fmt.Fprintf(out, "%-9s maker %-7s taker %s\n", info.Exchange, info.MakerFee, info.TakerFee)
	}
	return nil
}
