package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/fupanxia/config"
	"github.com/dyike/fupanxia/internal/analysis"
	"github.com/dyike/fupanxia/internal/client"
	"github.com/dyike/fupanxia/internal/debug"
	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/internal/logging"
	"github.com/dyike/fupanxia/internal/server"
	"github.com/dyike/fupanxia/internal/state"
	"github.com/dyike/fupanxia/internal/views"
	"github.com/dyike/fupanxia/models"
)

// errReported means the failure was already rendered for the user.
var errReported = errors.New("analysis failed")

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer

	newAnalyzer func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (analysis.Analyzer, error)
	prompter    Prompter
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{
		out:         os.Stdout,
		errOut:      os.Stderr,
		newAnalyzer: analysis.New,
		prompter:    surveyPrompter{},
	})
}

func newRootCmd(a *app) *cobra.Command {
	var (
		configPath string
		debugLog   bool
	)

	rootCmd := &cobra.Command{
		Use:   "fupanxia",
		Short: "复盘侠 - 上传交易截图，让AI老兵撕下你的伪装",
		Long: `fupanxia sends a screenshot of your trading records to an LLM and prints
a brutally honest review of your trading behavior.

Run without arguments for interactive mode, or use "serve" to start the web app.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if debugLog {
				cfg.Debug = true
			}
			logger, err := logging.New(cfg)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start interactive mode
			return a.runInteractive(cmd.Context())
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	rootCmd.AddCommand(a.newServeCmd())
	rootCmd.AddCommand(a.newRoastCmd())
	rootCmd.AddCommand(a.newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")

	return rootCmd
}

func (a *app) newServeCmd() *cobra.Command {
	var (
		addr      string
		einoDebug bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			if einoDebug {
				a.cfg.EinoDebug = true
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			analyzer, err := a.buildAnalyzer(ctx)
			if err != nil {
				return err
			}
			srv, err := server.New(a.cfg, analyzer, a.logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&einoDebug, "eino-debug", false, "Expose the chat chains to the Eino visual debugger")
	return cmd
}

func (a *app) newRoastCmd() *cobra.Command {
	var (
		serverURL string
		asJSON    bool
		provider  string
	)
	cmd := &cobra.Command{
		Use:   "roast <image>",
		Short: "Analyze one trading screenshot",
		Long: `Analyze one trading screenshot and print the verdict.
Example: fupanxia roast ./持仓.png --provider deepseek`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" {
				a.cfg.LLMProvider = provider
			}
			if serverURL != "" {
				return a.roastRemote(cmd.Context(), serverURL, args[0], asJSON)
			}
			return a.roastLocal(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "Send the image to a running fupanxia server instead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw analysis result as JSON")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: gemini, openai or deepseek")
	return cmd
}

// buildAnalyzer starts the Eino debugger when enabled, then compiles the
// analyzer so its chain is registered with it.
func (a *app) buildAnalyzer(ctx context.Context) (analysis.Analyzer, error) {
	if err := debug.NewEinoDebugger(a.cfg, a.logger.Named("eino")).Initialize(ctx); err != nil {
		return nil, err
	}
	return a.newAnalyzer(ctx, a.cfg, a.logger.Named("analysis"))
}

// roastLocal drives the same Intake -> Controller -> Analyzer path as the server.
func (a *app) roastLocal(ctx context.Context, path string, asJSON bool) error {
	dataURL, err := intake.New(a.cfg.MaxUploadBytes).FromFile(path)
	if err != nil {
		return a.reportIntake(err)
	}

	analyzer, err := a.buildAnalyzer(ctx)
	if err != nil {
		return err
	}

	ctrl := state.NewController()
	stop := func() {}
	if !asJSON {
		stop = a.showLoading(ctx)
	}
	state.Run(ctx, ctrl, analyzer, dataURL, a.logger)
	stop()

	return a.report(ctrl.Snapshot(), asJSON)
}

// showLoading prints the rotating loading line until the returned func is called.
func (a *app) showLoading(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	rot := views.NewRotator(nil)
	fmt.Fprintln(a.errOut, RenderLoading(rot.Current()))
	go func() {
		defer close(done)
		rot.Run(ctx, a.cfg.LoadingInterval, func(msg string) {
			fmt.Fprintln(a.errOut, RenderLoading(msg))
		})
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *app) roastRemote(ctx context.Context, serverURL, path string, asJSON bool) error {
	st, err := client.New(serverURL, 0).AnalyzeFile(ctx, path)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(a.errOut, RenderError(apiErr.Message))
			return errReported
		}
		return a.reportIntake(err)
	}
	return a.report(st.AppState, asJSON)
}

func (a *app) reportIntake(err error) error {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(a.errOut, RenderError(verr.Notice()))
		return errReported
	}
	return err
}

func (a *app) report(st models.AppState, asJSON bool) error {
	switch views.Select(st) {
	case models.ViewResult:
		if asJSON {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(st.Result)
		}
		if err := st.Result.Validate(); err != nil {
			a.logger.Warn("analysis result incomplete", zap.Error(err))
		}
		fmt.Fprintln(a.out, RenderResult(st.Result))
		return nil
	case models.ViewError:
		fmt.Fprintln(a.errOut, RenderError(*st.Error))
		return errReported
	default:
		return fmt.Errorf("unexpected state %s", st.Mode())
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fupanxia %s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "复盘侠 TRADING LAB. 版权没有，翻录不究，反正是为了扎心。")
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration with keys masked",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, RenderConfig(a.cfg))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig()
		},
	})

	return configCmd
}

func (a *app) validateConfig() error {
	if err := a.cfg.Validate(); err != nil {
		fmt.Fprintln(a.errOut, RenderError(err.Error()))
		return err
	}
	if a.cfg.APIKeyFor(a.cfg.LLMProvider) == "" {
		fmt.Fprintln(a.out, warnStyle.Render(fmt.Sprintf("⚠️  %s is not set; every analysis will fail until it is.",
			config.APIKeyEnv(a.cfg.LLMProvider))))
	}
	fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("✅ Configuration OK (provider %s, loading interval %s)",
		a.cfg.LLMProvider, a.cfg.LoadingInterval.Round(100*time.Millisecond))))
	return nil
}
