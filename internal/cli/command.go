// Package cli implements the gotranslator command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gotranslator/config"
	"gotranslator/internal/app"
	"gotranslator/internal/core"
	"gotranslator/internal/logging"
	"gotranslator/internal/version"
)

const shutdownTimeout = 30 * time.Second

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gotranslator",
		Short: "Microsoft Translator client",
		Long: `gotranslator translates text through the Microsoft Translator v2 API.

Credentials come from config.yaml, a .env file or the environment
(TRANSLATOR_CLIENT_ID, TRANSLATOR_CLIENT_SECRET).

Examples:
  gotranslator translate --from en --to fr "hello"
  gotranslator detect "Guten Tag"
  gotranslator speak --lang en --out hello.wav "hello"
  gotranslator serve`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is config.yaml or config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.EnvFile, "env", "", "env file (default is .env when present)")

	rootCmd.AddCommand(
		translateCommand(flags),
		detectCommand(flags),
		breakCommand(flags),
		languagesCommand(flags),
		namesCommand(flags),
		speakCommand(flags),
		selfTestCommand(flags),
		serveCommand(flags),
		versionCommand(),
	)

	return rootCmd
}

func translateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				result, err := a.Translator().Translate(ctx, core.TranslationRequest{
					Text: strings.Join(args, " "),
					From: flags.From,
					To:   flags.To,
				})
				if err != nil && result == nil {
					return err
				}
				if err != nil {
					slog.Warn("translation not cached", "error", err)
				}
				if !result.Success {
					return result.Failure
				}
				if result.DetectedSourceLanguage != "" {
					slog.Info("detected source language", "language", result.DetectedSourceLanguage)
				}
				_, werr := fmt.Fprintln(cmd.OutOrStdout(), result.Text)
				return werr
			})
		},
	}
	cmd.Flags().StringVar(&flags.From, "from", "", "source language code (empty to auto-detect when enabled)")
	cmd.Flags().StringVar(&flags.To, "to", "", "target language code")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func detectCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [text]",
		Short: "Detect the language of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				result, err := a.Translator().DetectLanguage(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if !result.Success {
					return result.Failure
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Language)
				return err
			})
		},
	}
}

func breakCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "break [text]",
		Short: "Print the length of each sentence in text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				result, err := a.Translator().BreakSentences(ctx, strings.Join(args, " "), flags.Language)
				if err != nil {
					return err
				}
				if !result.Success {
					return result.Failure
				}
				lengths := make([]string, len(result.Lengths))
				for i, n := range result.Lengths {
					lengths[i] = strconv.Itoa(n)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lengths, " "))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&flags.Language, "lang", "", "language code of text")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func languagesCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the language codes available for translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				langs, err := a.Translator().LanguagesSupported(ctx)
				if err != nil {
					return err
				}
				for _, l := range langs {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), l); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func namesCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Print the language names document for a locale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				doc, err := a.Translator().LanguageNames(ctx, flags.Locale)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&flags.Locale, "locale", flags.Locale, "locale for the language names")
	return cmd
}

func speakCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize speech for text",
		Long: `Synthesize speech for text. Audio is written to --out, or to stdout
when --out is empty.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				req := core.SpeechRequest{
					Text:     strings.Join(args, " "),
					Language: flags.Language,
					Format:   flags.Format,
				}
				if flags.OutFile == "" {
					_, err := a.Translator().SpeakTo(ctx, req, cmd.OutOrStdout())
					return err
				}
				n, err := a.Translator().SpeakToFile(ctx, req, flags.OutFile)
				if err != nil {
					return err
				}
				slog.Info("audio written", "file", flags.OutFile, "bytes", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.Language, "lang", "", "language code of text")
	cmd.Flags().StringVarP(&flags.OutFile, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&flags.Format, "format", "", "audio format, e.g. audio/mp3 (default is the service default)")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func selfTestCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Translate a known phrase to verify credentials and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				if err := a.Translator().SelfTest(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}
}

func serveCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				port := a.Config().Server.Port
				if flags.Port != "" {
					port = flags.Port
				}

				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				// Handle graceful shutdown
				go func() {
					<-ctx.Done()
					slog.Info("shutting down server...")

					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()

					if err := a.Shutdown(shutdownCtx); err != nil {
						slog.Error("shutdown error", "error", err)
					}
				}()

				err := a.Start(":" + port)
				stop()
				return err
			})
		},
	}
	cmd.Flags().StringVar(&flags.Port, "port", "", "listen port (default from config, 8080)")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return err
		},
	}
}

// withApp loads configuration, installs the logger, builds the app and runs fn.
func withApp(cmd *cobra.Command, flags *Flags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: flags.CfgFile,
		EnvFile:    flags.EnvFile,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	runErr := fn(cmd.Context(), a)
	if closeErr := a.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	rootCmd := CreateRootCommand(NewFlags())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}
