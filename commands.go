package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// app carries the global flags and what PersistentPreRunE builds from them
type app struct {
	configPath string
	debug      bool
	provider   string
	model      string
	plain      bool

	configStore *ConfigStore
	cfg         *Config
	logger      *zap.Logger
}

// skipSetup marks commands that run without loading the config
const skipSetup = "skip-setup"

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "llmterm",
		Short: "A terminal that runs shell commands and answers questions",
		Long: `llmterm reads one line at a time. Lines that name a command on this
system run in the shell; everything else is sent to a language model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.llmterm/config.yaml)")
	flags.BoolVar(&a.debug, "debug", false, "log at debug level")
	flags.StringVar(&a.provider, "provider", "", "provider for this run (anthropic, openai, gemini, bedrock)")
	flags.StringVar(&a.model, "model", "", "model for this run")
	root.Flags().BoolVar(&a.plain, "plain", false, "use the line-mode interface even on a terminal")

	root.AddCommand(
		a.runCmd(),
		a.classifyCmd(),
		a.modelsCmd(),
		a.historyCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger
func (a *app) setup() error {
	a.configStore = NewConfigStore(a.configPath)
	cfg, err := a.configStore.Load()
	if err != nil {
		return err
	}

	if a.provider != "" {
		p, err := ParseProviderType(a.provider)
		if err != nil {
			return err
		}
		cfg.Provider = p
	}
	if a.model != "" {
		cfg.Settings(cfg.Provider).Model = a.model
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	logger, err := NewLogger(cfg.Log, a.debug)
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("config loaded",
		zap.String("path", a.configStore.Path()),
		zap.String("provider", string(cfg.Provider)),
	)
	return nil
}

// openStore opens the history database. A data.history_db of "" or "off"
// runs without persistence.
func (a *app) openStore() (*Store, error) {
	path := a.cfg.Data.HistoryDB
	if path == "" || path == "off" {
		return nil, nil
	}
	store, err := OpenStore(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// newSession wires the real shell, store, renderer and guard into a session
func (a *app) newSession(ctx context.Context) (*Session, func(), error) {
	store, err := a.openStore()
	if err != nil {
		a.logger.Warn("running without history", zap.Error(err))
	}

	var md *MarkdownRenderer
	if a.cfg.UI.Markdown {
		md, err = NewMarkdownRenderer(a.cfg.UI.MarkdownStyle, terminalWidth()-4)
		if err != nil {
			a.logger.Warn("markdown disabled", zap.String("style", a.cfg.UI.MarkdownStyle), zap.Error(err))
			md = nil
		}
	}

	session := NewSession(ctx, SessionOptions{
		Config:      a.cfg,
		Store:       store,
		ConfigStore: a.configStore,
		Prober:      NewResolver(OSRunner{}, a.logger),
		Executor:    NewExecutor(OSRunner{}, a.logger),
		Markdown:    md,
		Guard:       NewPromptGuard(a.cfg.Guard),
		Logger:      a.logger,
	})
	a.logger.Info("session started", zap.String("session", session.ID))

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return session, cleanup, nil
}

func (a *app) runInteractive(ctx context.Context) error {
	session, cleanup, err := a.newSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !a.plain && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		return StartTUI(session, a.configStore, a.logger)
	}
	return NewREPL(session, os.Stdin, os.Stdout, outputProfile(), isTerminal(os.Stdin), a.logger).Run(ctx)
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run INPUT...",
		Short: "Handle one line and exit",
		Long: `Run classifies INPUT the way the interactive prompt does, runs it or sends
it to the model, prints the transcript and exits.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session, cleanup, err := a.newSession(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			lines, _, err := session.Handle(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printTranscript(cmd.OutOrStdout(), lines, outputProfile())
			return nil
		},
	}
}

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify INPUT...",
		Short: "Print whether INPUT would run as a command or go to the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClassifier(NewResolver(OSRunner{}, a.logger))
			fmt.Fprintln(cmd.OutOrStdout(), c.Classify(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func (a *app) modelsCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of each provider",
		Long: `Models prints the cached or built-in model list of each provider. With
--refresh it fetches the lists from the providers in parallel and caches them.
--provider limits the listing to one provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			providers := AllProviders
			if a.provider != "" {
				providers = []ProviderType{a.cfg.Provider}
			}
			out := cmd.OutOrStdout()

			if refresh {
				ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
				defer cancel()
				failed := 0
				for _, r := range RefreshModels(ctx, a.cfg, providers, store, NewProvider, a.logger) {
					if r.Err != nil {
						failed++
						fmt.Fprintf(out, "%s: %s\n", r.Provider.DisplayName(), firstLine(FormatUserError(r.Err)))
						continue
					}
					fmt.Fprintf(out, "%s: %d models\n", r.Provider.DisplayName(), len(r.Models))
				}
				if failed == len(providers) {
					return fmt.Errorf("no model list could be fetched")
				}
				return nil
			}

			for _, p := range providers {
				ids, fetched := ModelsFor(cmd.Context(), store, p)
				source := "built-in"
				if !fetched.IsZero() {
					source = "fetched " + fetched.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%s (%s):\n", p.DisplayName(), source)
				current := a.cfg.Settings(p).Model
				for _, id := range ids {
					marker := "  "
					if id == current {
						marker = "* "
					}
					fmt.Fprintln(out, marker+id)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the model lists from the providers")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit int
		wipe  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the saved input history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled (data.history_db is off)")
			}
			defer func() { _ = store.Close() }()

			if wipe {
				if err := store.ClearHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			}

			records, err := store.LoadHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Input)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete the saved history")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Validate a value and write it to the config file",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 || a.configStore == nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return a.configStore.Keys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.configStore.Set(args[0], args[1]); err != nil {
				return err
			}
			a.logger.Info("config updated", zap.String("key", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "%s set in %s\n", args[0], a.configStore.Path())
			return nil
		},
	}

	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), NewConfigStore(a.configPath).Path())
			return nil
		},
	}

	cmd.AddCommand(show, set, path)
	return cmd
}

func versionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print the version of llmterm",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "llmterm %s (built %s)\n", Version, BuildDate)
			if !check {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			latest, available, err := CheckForUpdate(ctx)
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			PrintUpdateNotice(out, latest, available)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

func printTranscript(w io.Writer, entries []string, profile termenv.Profile) {
	for _, entry := range entries {
		for _, segs := range RenderText(entry) {
			fmt.Fprintln(w, PaintSegments(segs, profile))
		}
	}
}

func firstLine(s string) string {
	s = StripANSI(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// outputProfile is the colour profile for line output: the terminal's when
// stdout is one, plain text otherwise
func outputProfile() termenv.Profile {
	if !isTerminal(os.Stdout) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
