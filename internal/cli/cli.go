// Package cli implements the ollamachat command line: flag and environment
// handling, config file discovery, and the serve loop.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ollamachat/internal/common/fsutil"
	"ollamachat/internal/config"
)

// version is stamped at build time with -ldflags "-X ollamachat/internal/cli.version=...".
var version = "dev"

// Options carries flag values. Empty strings and zero ports leave the
// config file value in place.
type Options struct {
	ConfigPath  string
	Host        string
	Port        int
	BackendURL  string
	BackendBin  string
	Model       string
	LogLevel    string
	LogFormat   string
	CORSOrigins string
}

func defaultOptions() *Options {
	return &Options{
		ConfigPath: envStr(envConfig, ""),
		Host:       envStr(envHost, ""),
		Port:       envInt(envPort, 0),
		BackendURL: envStr(envBackendURL, ""),
		BackendBin: envStr(envBackendBin, ""),
		Model:      envStr(envModel, ""),
		LogLevel:   envStr(envLogLevel, ""),
		LogFormat:  envStr(envLogFormat, ""),
	}
}

// resolveConfig loads the config file (explicit path, else the user config
// dir) and applies flag overrides on top.
func resolveConfig(o *Options) (config.Config, string, error) {
	path := o.ConfigPath
	if path == "" {
		path = fsutil.FindConfig("ollamachat")
	}
	cfg := config.Default()
	if path != "" {
		p, err := fsutil.ExpandHome(path)
		if err != nil {
			return cfg, "", err
		}
		if cfg, err = config.Load(p); err != nil {
			return cfg, "", fmt.Errorf("load config: %w", err)
		}
		path = p
	}
	if o.Host != "" {
		cfg.Server.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}
	if o.BackendURL != "" {
		cfg.Backend.URL = o.BackendURL
	}
	if o.BackendBin != "" {
		cfg.Backend.Bin = o.BackendBin
	}
	if o.Model != "" {
		cfg.Model.Name = o.Model
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if origins := splitCSV(o.CORSOrigins); len(origins) > 0 {
		cfg.Server.CORSOrigins = origins
	}
	if err := cfg.Settings().Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

// execute runs the command tree with args, writing command output to out.
func execute(ctx context.Context, args []string, out io.Writer) error {
	root := buildRootCmdWith(defaultOptions())
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

// MainWithArgs runs the CLI and returns the process exit code.
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ollamachat:", err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/ollamachat.
func Main() int { return MainWithArgs(os.Args[1:]) }
