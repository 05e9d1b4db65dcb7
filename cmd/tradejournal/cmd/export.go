package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal",
	Long: `Export the journal for spreadsheets or Emacs.

Examples:
  tradejournal export exits -o exits.csv
  tradejournal export org -o journal.org`,
}

var exportExitsCmd = &cobra.Command{
	Use:   "exits",
	Short: "Write every recorded exit as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, func(w io.Writer, entries []journal.Entry) error {
			return journal.WriteExitsCSV(w, entries)
		})
	},
}

var exportOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Write every entry as an Org document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, func(w io.Writer, entries []journal.Entry) error {
			_, err := fmt.Fprintln(w, journal.FormatEntriesOrg(entries))
			return err
		})
	},
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportExitsCmd, exportOrgCmd)

	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, write func(io.Writer, []journal.Entry) error) error {
	s, err := openReader(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	entries := s.book.Entries()
	if exportOutput == "" {
		return write(s.out, entries)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	if err := write(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "✓ Exported %d entries to %s\n", len(entries), exportOutput)
	return nil
}
