package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/blob"
	"github.com/lgc202/assistant/httpx"
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/session"
	"github.com/lgc202/assistant/settings"
	"github.com/lgc202/assistant/version"
)

const (
	storeFile   = "file"
	storeSQLite = "sqlite"
	storeMemory = "memory"
)

type rootOptions struct {
	verbose      bool
	envFile      string
	dataDir      string
	store        string
	settingsPath string
	retries      int

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Multi-provider chat assistant core",
		Long: `Relays questions to DeepSeek, OpenAI, Anthropic, Moonshot (Kimi) or
OpenRouter and keeps a local multi-session chat history.

  assistant serve                 # newline delimited JSON events on stdio
  assistant ask "what is a goroutine"
  assistant models
  assistant sessions list`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	f := cmd.PersistentFlags()
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging on stderr")
	f.StringVar(&o.envFile, "env-file", ".env", "dotenv file with ASSISTANT_* overrides, ignored when missing")
	f.StringVar(&o.dataDir, "data-dir", "", "directory for settings and sessions (default: user config dir)")
	f.StringVar(&o.store, "store", storeFile, "session store backend: file, sqlite or memory")
	f.StringVar(&o.settingsPath, "settings", "", "settings file, .yaml or .json (default: <data-dir>/settings.yaml)")
	f.IntVar(&o.retries, "retries", 0, "extra attempts after a provider request fails with 429, 5xx or a timeout")

	cmd.AddCommand(
		newServeCmd(o),
		newAskCmd(o),
		newModelsCmd(o),
		newSessionsCmd(o),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) setup(stderr io.Writer) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if o.dataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		o.dataDir = filepath.Join(dir, version.Name)
	}
	if o.settingsPath == "" {
		o.settingsPath = filepath.Join(o.dataDir, "settings.yaml")
	}
	switch o.store {
	case storeFile, storeSQLite, storeMemory:
	default:
		return fmt.Errorf("unknown --store %q (want file, sqlite or memory)", o.store)
	}
	return nil
}

func (o *rootOptions) openSettings(watch bool) (*settings.FileStore, error) {
	s, err := settings.OpenFile(o.settingsPath, settings.WithWatch(watch))
	if err != nil {
		return nil, err
	}
	o.logger.Debug("settings opened", "path", s.Path(), "watch", watch)
	return s, nil
}

// openBlob returns the backend selected by --store and a matching close
// function.
func (o *rootOptions) openBlob() (blob.Store, func() error, error) {
	noop := func() error { return nil }
	switch o.store {
	case storeMemory:
		return blob.NewMemory(), noop, nil
	case storeSQLite:
		if err := os.MkdirAll(o.dataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := blob.OpenSQLite(filepath.Join(o.dataDir, "assistant.db"))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		f, err := blob.NewFile(filepath.Join(o.dataDir, "sessions"))
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	}
}

func (o *rootOptions) openSessions() (*session.Store, func() error, error) {
	b, closeFn, err := o.openBlob()
	if err != nil {
		return nil, nil, err
	}
	o.logger.Debug("session store opened", "backend", o.store, "data_dir", o.dataDir)
	return session.NewStore(b, session.WithLogger(o.logger)), closeFn, nil
}

// adapterOptions are the provider adapter options shared by serve and ask.
func (o *rootOptions) adapterOptions() []llm.AdapterOption {
	opts := []llm.AdapterOption{llm.WithLogger(o.logger)}
	if o.retries > 0 {
		opts = append(opts, llm.WithRetry(httpx.RetryConfig{
			MaxAttempts:       o.retries + 1,
			RespectRetryAfter: true,
			MaxRetryAfter:     10 * time.Second,
		}))
	}
	return opts
}
