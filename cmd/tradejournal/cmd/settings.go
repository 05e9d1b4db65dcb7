package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the journal settings",
	Long: `Journal settings are saved with the journal. Until they are first set, the
settings section of the config file is used.

Examples:
  tradejournal settings show
  tradejournal settings set --account-size 25000 --risk-pct 1 --exchanges Blofin,EdgeX`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSet,
}

var (
	setAccountSize float64
	setRiskPct     float64
	setExchanges   []string
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	fl := settingsSetCmd.Flags()
	fl.Float64Var(&setAccountSize, "account-size", 0, "account size in dollars")
	fl.Float64Var(&setRiskPct, "risk-pct", 0, "risk per trade, percent of the account")
	fl.StringSliceVar(&setExchanges, "exchanges", nil, "default exchanges, first is the default")
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	s, err := openReader(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	printSettings(s, s.book.Settings())
	if t, ok := s.book.LastSaved(cmd.Context()); ok {
		fmt.Fprintf(s.out, "Last saved:   %s\n", t.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	st := s.book.Settings()
	fl := cmd.Flags()
	if fl.Changed("account-size") {
		st.AccountSize = setAccountSize
	}
	if fl.Changed("risk-pct") {
		st.RiskPercentage = setRiskPct
	}
	if fl.Changed("exchanges") {
		st.DefaultExchanges = setExchanges
	}

	switch {
	case st.AccountSize < 0:
		return &journal.ValidationError{Field: "account-size", Reason: "must not be negative"}
	case st.RiskPercentage < 0 || st.RiskPercentage > 100:
		return &journal.ValidationError{Field: "risk-pct", Reason: "must be between 0 and 100"}
	case len(st.DefaultExchanges) == 0:
		return &journal.ValidationError{Field: "exchanges", Reason: "must not be empty"}
	}

	s.warn(s.book.SetSettings(cmd.Context(), st))
	fmt.Fprintln(s.out, "✓ Settings saved")
	printSettings(s, s.book.Settings())
	return nil
}

func printSettings(s *session, st journal.Settings) {
	fmt.Fprintf(s.out, "Exchanges:    %s\n", strings.Join(st.DefaultExchanges, ", "))
	fmt.Fprintf(s.out, "Account size: $%.2f\n", st.AccountSize)
	fmt.Fprintf(s.out, "Risk:         %.2f%% ($%.2f per trade)\n", st.RiskPercentage, st.AccountSize*st.RiskPercentage/100)
}
