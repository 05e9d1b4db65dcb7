package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/tradejournal/config"
	"github.com/rustyeddy/tradejournal/fees"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradejournal",
	Short: "A crypto trade journal with fee-aware position accounting",
	Long: `Tradejournal records planned trades, their follow-ups and realized exits.

It provides tools for:
  - Planning entries with fee-aware risk and R:R per take-profit
  - Recording partial and full exits with calculated or manual P&L
  - Comparing fees across Blofin, EdgeX and Breakout
  - Risk-based position sizing
  - Reconciling the journal against broker trades from the analytics feed`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile   string
	storeType string
	storePath string
	logLevel  string

	cfg *config.Config
	log zerolog.Logger
)

// Execute adds all child commands to the root command and sets flags
// appropriately. An interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	pf.StringVar(&storeType, "store-type", "", "journal store: sqlite or json")
	pf.StringVar(&storePath, "store-path", "", "SQLite file or JSON directory")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

// setup loads the configuration and builds the logger. Flags win over the
// environment, which wins over the file.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("store-type") {
		c.Store.Type = storeType
	}
	if f.Changed("store-path") {
		c.Store.Path = storePath
	}
	if f.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c

	log = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Out: cmd.ErrOrStderr()})
	logger.SetGlobalLogger(log)
	return nil
}

func openStore() (journal.Store, error) {
	switch cfg.Store.Type {
	case config.StoreJSON:
		return journal.NewFileStore(cfg.Store.Path)
	default:
		return journal.NewSQLiteStore(cfg.Store.Path)
	}
}

// session is an open journal for the duration of one command.
type session struct {
	book   *journal.Book
	engine *journal.Engine
	store  journal.Store
	out    io.Writer
}

func openSession(cmd *cobra.Command) (*session, error) {
	return newSession(cmd, false)
}

// openReader is openSession for commands that only read the journal. A store
// that cannot be opened leaves an empty in-memory journal and a warning.
func openReader(cmd *cobra.Command) (*session, error) {
	return newSession(cmd, true)
}

func newSession(cmd *cobra.Command, readOnly bool) (*session, error) {
	var ws []journal.Warning
	store, err := openStore()
	if err != nil {
		if !readOnly {
			return nil, fmt.Errorf("open store: %w", err)
		}
		log.Warn().Err(err).Str("path", cfg.Store.Path).Msg("open store")
		ws = append(ws, journal.Warning{
			Code: journal.WarnPersistenceFailure,
			Msg:  fmt.Sprintf("journal unavailable, showing an empty journal: %v", err),
		})
		store = nil
	}

	book, loadWs := journal.OpenBook(cmd.Context(), store, log)
	book.DefaultTo(cfg.Settings)
	s := &session{
		book:   book,
		engine: journal.NewEngine(fees.Default()),
		store:  store,
		out:    cmd.OutOrStdout(),
	}
	s.warn(append(ws, loadWs...))
	return s, nil
}

func (s *session) close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
}

func (s *session) warn(ws []journal.Warning) {
	for _, w := range ws {
		fmt.Fprintf(s.out, "⚠ %s\n", w)
	}
}
