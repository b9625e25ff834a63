package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/pipeline"
	"github.com/ppiankov/wikigap/internal/render"
	"github.com/ppiankov/wikigap/internal/store"
	"github.com/ppiankov/wikigap/internal/worker"
)

var (
	outJSON     string
	outMD       string
	outputDir   string
	strategy    string
	timeout     time.Duration
	concurrency int
	noSave      bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url|file>",
	Short: "Score one article, or every URL listed in a file",
	Long: `Analyze fetches an article, detects its type, scores it against the
matching template and records the result in the history.

Strategies:
  weighted  section, field and citation checks (default)
  additive  per-section scoring with entity coverage and word counts
  llm       hosted model analysis (needs llm.provider)

When the argument is an existing file it is read as one URL per line
and every URL is analyzed concurrently.

Example:
  wikigap analyze https://en.wikipedia.org/wiki/University_of_Zambia
  wikigap analyze https://en.wikipedia.org/wiki/Lusaka_City_Council --strategy additive --md report.md
  wikigap analyze urls.txt --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (single URL)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (single URL)")
	analyzeCmd.Flags().StringVar(&outputDir, "output-dir", "./wikigap-reports", "output directory for batch reports")
	analyzeCmd.Flags().StringVar(&strategy, "strategy", "weighted", "scoring strategy (weighted, additive, llm)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	analyzeCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers (batch)")
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record results in the history")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	strat, err := pipeline.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var m *store.Manager
	if !noSave {
		m, err = openManager(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
	}

	p, err := newPipeline(ctx, cfg, m, strat)
	if err != nil {
		return err
	}
	renderer := render.NewRenderer(cfg.Output.IncludeFooter)

	if info, statErr := os.Stat(args[0]); statErr == nil && !info.IsDir() {
		return analyzeBatch(ctx, cmd, p, renderer, args[0], cfg.Audit.RequestsPerSecond, cfg.Audit.BurstSize)
	}

	logger.Debug("analyzing", zap.String("url", args[0]), zap.String("strategy", string(strat)))
	report, err := p.AnalyzeURL(ctx, args[0])
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderer.RenderSummary(cmd.OutOrStdout(), report)
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", outMD)
	}
	return nil
}

func analyzeBatch(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, renderer *render.Renderer, file string, rps float64, burst int) error {
	urls, err := worker.ReadLines(file)
	if err != nil {
		return fmt.Errorf("read URL list: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d URLs with %d workers...\n\n", len(urls), concurrency)
	items := p.AnalyzeURLs(ctx, urls, concurrency, worker.NewLimiter(rps, burst))

	ok, failed := 0, 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", item.URL, item.Err)
			continue
		}

		slug := sanitizeFilename(item.Report.Subject)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := renderer.RenderJSON(item.Report, jsonPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", item.URL, err)
			continue
		}
		if err := renderer.RenderMarkdown(item.Report, mdPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", item.URL, err)
			continue
		}
		ok++
		fmt.Fprintf(os.Stderr, "✓ %s (score: %s)\n", item.Report.Subject, item.Report.Result.Score)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n", len(items), ok, failed, outputDir)
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns an article title into a safe file stem
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")
	if s == "" {
		s = "report"
	}
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}
