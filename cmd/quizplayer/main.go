package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/viditforsv/quizplayer/internal/backend"
	"github.com/viditforsv/quizplayer/internal/llm"
	"github.com/viditforsv/quizplayer/internal/llm/prompts"
	"github.com/viditforsv/quizplayer/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quizplayer",
		Short:        "Quiz player for the LMS: HTTP API, terminal player and question bank browser",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, playCmd(), bankCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizplayer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet, level string) {
	f.String("log-level", level, "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addBackendFlags(f *pflag.FlagSet) {
	f.String("backend-url", "", "LMS REST backend base URL")
	f.String("backend-token", "", "Bearer token for the backend")
	f.String("backend-key", "", "API key sent in the apikey header")
	f.Duration("backend-timeout", 10*time.Second, "Timeout for each backend request")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-url", "", "OpenAI-compatible API base URL for generated hints (empty = static hints only)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("hint-variant", string(prompts.PromptStandard), "Hint prompt variant (subtle, standard, detailed)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZPLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizplayer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizplayer")
	v.AddConfigPath("/etc/quizplayer")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newBackend returns nil when no backend URL is configured.
func newBackend(v *viper.Viper) *backend.Client {
	url := v.GetString("backend-url")
	if url == "" {
		return nil
	}
	return backend.New(backend.Config{
		BaseURL:     url,
		AccessToken: v.GetString("backend-token"),
		APIKey:      v.GetString("backend-key"),
		Timeout:     v.GetDuration("backend-timeout"),
	})
}

// newHinter returns nil when no LLM endpoint is configured.
func newHinter(v *viper.Viper) session.Hinter {
	url := v.GetString("llm-url")
	if url == "" {
		return nil
	}
	variant := strings.ToLower(strings.TrimSpace(v.GetString("hint-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid hint-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	slog.Info("generated hints enabled", "url", url, "model", v.GetString("llm-model"), "variant", variant)
	return llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), variant)
}
