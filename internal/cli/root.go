package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ollamachat/internal/backend"
	"ollamachat/internal/logging"
)

// fnServe is swapped out in tests.
var fnServe = serve

// buildRootCmdWith constructs the command tree; flags write into o.
func buildRootCmdWith(o *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "ollamachat",
		Short:         "HTTP relay between a chat UI and a local Ollama backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.ConfigPath, "config", o.ConfigPath, "Config file (.yaml|.yml|.toml|.json); defaults OLLAMACHAT_CONFIG or <user config dir>/ollamachat/config.*")
	pf.StringVar(&o.Host, "host", o.Host, "Listen host (defaults OLLAMACHAT_HOST or config)")
	pf.IntVar(&o.Port, "port", o.Port, "Listen port (defaults OLLAMACHAT_PORT or config)")
	pf.StringVar(&o.BackendURL, "backend-url", o.BackendURL, "Ollama base URL, e.g. http://localhost:11434")
	pf.StringVar(&o.BackendBin, "backend-bin", o.BackendBin, "Ollama executable used by start")
	pf.StringVar(&o.Model, "model", o.Model, "Model name sent to the backend")
	pf.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&o.LogFormat, "log-format", o.LogFormat, "Log format: console|json")
	pf.StringVar(&o.CORSOrigins, "cors-origins", o.CORSOrigins, "Comma-separated allowed CORS origins (default *)")

	serveCmd := &cobra.Command{Use: "serve", Short: "Run the HTTP server (default)", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), o)
	}}

	checkCmd := &cobra.Command{Use: "check", Short: "Probe the backend and report running|stopped", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := resolveConfig(o)
		if err != nil {
			return err
		}
		c := backend.New(cfg.Backend.ProbeTimeout())
		url := cfg.Settings().BackendURL
		if err := c.Check(cmd.Context(), url); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return fmt.Errorf("backend %s not reachable: %w", url, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "running")
		return nil
	}}

	configCmd := &cobra.Command{Use: "config", Short: "Print the effective configuration as YAML", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := resolveConfig(o)
		if err != nil {
			return err
		}
		if path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", path)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}}

	versionCmd := &cobra.Command{Use: "version", Short: "Print the version", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	}}

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})

	root.AddCommand(serveCmd, checkCmd, configCmd, versionCmd, completionCmd)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

func runServe(ctx context.Context, o *Options) error {
	cfg, path, err := resolveConfig(o)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if path != "" {
		log.Info().Str("path", path).Msg("config loaded")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fnServe(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	return nil
}
