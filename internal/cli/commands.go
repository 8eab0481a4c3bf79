package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ideabot/internal/app"
	"ideabot/internal/config"
	"ideabot/internal/util/jsonutil"
)

// Version is set at build time.
var Version = "dev"

// flagEnv maps persistent flags onto the environment keys config.Load reads,
// so a flag wins over .env and the process environment.
var flagEnv = map[string]string{
	"model":   "LLM_MODEL",
	"timeout": "LLM_TIMEOUT_SECONDS",
	"rubric":  "RUBRIC",
	"mode":    "COLLECTOR_MODE",
	"fake":    "LLM_FAKE",
}

func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "ideabot",
		Short:         "ideabot - business idea validation bot",
		Long:          `ideabot interviews users about a business idea over Discord or HTTP and asks an LLM for a structured assessment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := applyFlags(cmd); err != nil {
				return err
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	rootCmd.AddCommand(newServeCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(newEvaluateCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("model", "", "Gemini model name")
	rootCmd.PersistentFlags().Float64("timeout", 0, "Pause in seconds before each LLM attempt")
	rootCmd.PersistentFlags().String("rubric", "", "Rubric: value_formula or business_analysis")
	rootCmd.PersistentFlags().String("mode", "", "Collector mode: multi_stage or single_message")
	rootCmd.PersistentFlags().Bool("fake", false, "Use the offline fake model")

	return rootCmd
}

func applyFlags(cmd *cobra.Command) error {
	for name, key := range flagEnv {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := os.Setenv(key, f.Value.String()); err != nil {
			return fmt.Errorf("apply --%s: %w", name, err)
		}
	}
	return nil
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bot on the enabled transports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg())
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.Start(); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}

func newEvaluateCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [IDEA]",
		Short: "Evaluate one idea description and print the assessment",
		Long: `Evaluate sends an idea description through the configured rubric once.
Pass the description as arguments, or "-" to read it from stdin.
Example: ideabot evaluate --fake "a subscription service for houseplants"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			idea, err := readIdea(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runEvaluate(cmd.Context(), cfg(), idea, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("json", false, "Print the assessment as JSON")
	return cmd
}

func readIdea(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		args = []string{string(b)}
	}
	idea := strings.TrimSpace(strings.Join(args, " "))
	if idea == "" {
		return "", fmt.Errorf("idea description is empty")
	}
	return idea, nil
}

func runEvaluate(ctx context.Context, cfg *config.Config, idea string, asJSON bool, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.New(io.Discard, "", 0)
	if !asJSON {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	eval, cli, err := app.NewEvaluator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cli.Close()
	settings, err := app.SettingsFor(cfg)
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Fprintln(w, renderInfo(fmt.Sprintf("Evaluating with %s on %s, pausing %s before each attempt...",
			settings.Schema.Name, settings.Model, settings.Timeout)))
	}
	rec, err := app.Evaluate(ctx, eval, settings, idea)
	if err != nil {
		if !asJSON {
			fmt.Fprintln(w, renderError(err))
		}
		return err
	}
	if asJSON {
		b, err := jsonutil.MarshalNoEscape(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err = fmt.Fprintln(w, renderRecord(rec))
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ideabot %s\n", Version)
		},
	}
}
