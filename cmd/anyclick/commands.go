package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ewjdev/anyclick/internal/autocomplete"
	"github.com/ewjdev/anyclick/internal/credential"
	"github.com/ewjdev/anyclick/internal/logging"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/prefs"
	"github.com/ewjdev/anyclick/internal/proxy"
	"github.com/ewjdev/anyclick/internal/schema"
	"github.com/ewjdev/anyclick/internal/submit"
	"github.com/ewjdev/anyclick/internal/tracker"
	"github.com/ewjdev/anyclick/internal/tracker/jira"
	"github.com/ewjdev/anyclick/internal/ui/reportform"
)

var (
	configPath string
	logLevel   string
	serveAddr  string

	cfg *model.AppConfig

	rootCmd = &cobra.Command{
		Use:   "anyclick",
		Short: "Report issues to your tracker without leaving what you are doing",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = model.DefaultConfigPath()
			}
			var err error
			cfg, err = model.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return nil
		},
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Open the interactive issue wizard",
		RunE:  runReport,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the local proxy that applications submit issues through",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "", "config file (default ~/.config/anyclick/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error",
	)
	serveCmd.Flags().StringVar(
		&serveAddr, "addr", "", "listen address (default from config)",
	)

	rootCmd.AddCommand(reportCmd, serveCmd)
}

// runReport wires the engine and starts the terminal wizard.
func runReport(cmd *cobra.Command, args []string) error {
	log := logging.Discard()

	store, err := prefs.New(prefsPath())
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	defer store.Close()

	deps := reportform.Deps{
		Cfg:   cfg,
		Prefs: store,
		NewEngine: func(token string) reportform.Engine {
			trk := jira.NewAdapter(cfg.Jira.BaseURL, cfg.Jira.Email, token)
			resolver := autocomplete.NewResolver(
				trk, cfg.Jira.ProjectKey, cfg.Jira.EpicIssueType, log,
			)
			return reportform.Engine{
				Fetcher: schema.NewFetcher(trk, cfg.Jira.ProjectKey, schema.NormalizeOptions{
					IncludeOptional:  cfg.Submit.IncludeOptional,
					DefaultOverrides: cfg.Submit.FieldDefaults,
				}, log),
				Search:    autocomplete.NewDebounced(resolver, 0),
				Submitter: submit.NewSubmitter(trk, cfg.Submit.Labels, log),
			}
		},
	}

	p := tea.NewProgram(reportform.New(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running wizard: %w", err)
	}
	return nil
}

// runServe starts the HTTP proxy.
func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	handler := proxy.NewHandler(
		cfg,
		func() (string, error) {
			return credential.Get(credential.KeyAPIToken)
		},
		func(baseURL, email, apiToken string) tracker.Tracker {
			return jira.NewAdapter(baseURL, email, apiToken)
		},
		log,
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.Register(r)

	log.Info("proxy listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		return fmt.Errorf("running proxy: %w", err)
	}
	return nil
}

// prefsPath puts the preferences database next to the config file.
func prefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "anyclick.db"
	}
	dir := filepath.Join(home, ".config", "anyclick")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "anyclick.db")
}
