package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/dispatch"
	"github.com/ppiankov/wikigap/internal/pipeline"
	"github.com/ppiankov/wikigap/internal/server"
)

var (
	serveAddr     string
	serveStrategy string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the request dispatcher over HTTP",
	Long: `Serve exposes the action dispatcher and the analysis pipeline:

  POST /dispatch   {"action": "...", "data": {...}, "requestId": "..."}
  POST /analyze    {"url": "..."}
  GET  /export     export artifact download
  GET  /healthz    liveness

When templates.dir and templates.watch are set, edited template files
are reloaded without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveStrategy, "strategy", "weighted", "scoring strategy for /analyze")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	strat, err := pipeline.ParseStrategy(serveStrategy)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	m, err := openManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	c := newCache(cfg)
	ts, loader, err := newTemplates(cfg, c)
	if err != nil {
		return err
	}
	if cfg.Templates.Watch && cfg.Templates.Dir != "" {
		if err := ts.Watch(ctx, expandHome(cfg.Templates.Dir)); err != nil {
			return err
		}
		logger.Info("watching templates", zap.String("dir", cfg.Templates.Dir))
	}

	opts := pipeline.Options{
		Fetcher:   pipeline.NewFetcherFromConfig(cfg.HTTP),
		Templates: loader,
		Store:     m,
		Strategy:  strat,
		Logger:    logger.Named("pipeline"),
	}
	if strat == pipeline.StrategyLLM {
		analyzer, err := newAnalyzer(ctx, cfg)
		if err != nil {
			return err
		}
		if analyzer == nil {
			return fmt.Errorf("strategy llm needs llm.provider to be configured")
		}
		opts.Analyzer = analyzer
	}

	srv := server.New(server.Options{
		Dispatcher: dispatch.New(m, cfg.Dispatch, logger.Named("dispatch")),
		Manager:    m,
		Analyzer:   pipeline.New(opts),
		Logger:     logger.Named("server"),
	})

	fmt.Printf("wikigap listening on http://%s\n", cfg.Server.Addr)
	return srv.Run(ctx, cfg.Server.Addr)
}
